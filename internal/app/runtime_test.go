package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInTestMode(t *testing.T) {
	t.Setenv(TestModeEnv, "true")
	RefreshTestMode()
	assert.True(t, InTestMode())

	t.Setenv(TestModeEnv, "0")
	RefreshTestMode()
	assert.False(t, InTestMode())

	t.Setenv(TestModeEnv, "garbage")
	RefreshTestMode()
	assert.False(t, InTestMode())
}
