package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("APP_ENV", "development")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, "authenticated", cfg.JWTAudience)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 3*time.Second, cfg.AuthStoreTimeout)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.True(t, cfg.DevTokensEnabled)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigProductionDisablesDevTokens(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("APP_ENV", "production")
	t.Setenv("DEV_TOKENS_ENABLED", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.False(t, cfg.DevTokensEnabled)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)

	presence := cfg.Presence()
	assert.True(t, presence["jwtSecret"])
	assert.False(t, presence["devTokens"])
	assert.True(t, presence["production"])
}
