package token

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func newTestService(t *testing.T, c *clock, cacheSize int) *Service {
	t.Helper()
	svc, err := NewService(Config{
		Secret:    []byte("test-secret"),
		Audience:  "authenticated",
		TTL:       time.Hour,
		CacheSize: cacheSize,
		Now:       c.Now,
	})
	require.NoError(t, err)
	return svc
}

func TestIssueAndVerify(t *testing.T) {
	c := &clock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	svc := newTestService(t, c, 0)

	issued, err := svc.Issue("user-1", "user1@example.com")
	require.NoError(t, err)
	assert.Equal(t, c.t.Add(time.Hour), issued.ExpiresAt)

	claims, err := svc.Verify(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "user1@example.com", claims.Email)
	assert.Empty(t, claims.Role)
	assert.Equal(t, jwt.ClaimStrings{"authenticated"}, claims.Audience)
}

func TestIssuedTokenHasNoRoleClaim(t *testing.T) {
	svc := newTestService(t, &clock{t: time.Now()}, 0)
	issued, err := svc.Issue("user-1", "u@example.com")
	require.NoError(t, err)

	parts := strings.Split(issued.Token, ".")
	require.Len(t, parts, 3)
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	assert.NotContains(t, string(payload), `"role"`)
}

func TestVerifyExpired(t *testing.T) {
	c := &clock{t: time.Now()}
	svc := newTestService(t, c, 0)
	issued, err := svc.Issue("user-1", "")
	require.NoError(t, err)

	c.t = c.t.Add(2 * time.Hour)
	_, err = svc.Verify(issued.Token)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyCachedTokenStillExpires(t *testing.T) {
	c := &clock{t: time.Now()}
	svc := newTestService(t, c, 16)
	issued, err := svc.Issue("user-1", "")
	require.NoError(t, err)

	_, err = svc.Verify(issued.Token)
	require.NoError(t, err)
	_, err = svc.Verify(issued.Token)
	require.NoError(t, err)

	c.t = c.t.Add(2 * time.Hour)
	_, err = svc.Verify(issued.Token)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyRejectsForgeries(t *testing.T) {
	c := &clock{t: time.Now()}
	svc := newTestService(t, c, 0)
	now := c.t

	base := Claims{
		Email: "x@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Audience:  jwt.ClaimStrings{"authenticated"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	sign := func(method jwt.SigningMethod, claims Claims, secret string) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return s
	}

	wrongAud := base
	wrongAud.Audience = jwt.ClaimStrings{"service"}
	noSubject := base
	noSubject.Subject = ""
	noExpiry := base
	noExpiry.ExpiresAt = nil

	tests := map[string]string{
		"wrong secret":    sign(jwt.SigningMethodHS256, base, "other-secret"),
		"wrong algorithm": sign(jwt.SigningMethodHS512, base, "test-secret"),
		"wrong audience":  sign(jwt.SigningMethodHS256, wrongAud, "test-secret"),
		"missing subject": sign(jwt.SigningMethodHS256, noSubject, "test-secret"),
		"missing expiry":  sign(jwt.SigningMethodHS256, noExpiry, "test-secret"),
		"garbage":         "not.a.token",
		"empty":           "",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Verify(raw)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestVerifyAcceptsLegacyRoleClaim(t *testing.T) {
	c := &clock{t: time.Now()}
	svc := newTestService(t, c, 0)
	claims := Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(c.t.Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	got, err := svc.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "admin", got.Role)
}

func TestNewServiceRequiresSecret(t *testing.T) {
	_, err := NewService(Config{})
	assert.Error(t, err)
}
