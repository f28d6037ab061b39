package app

import (
	"os"
	"strconv"
	"sync"
	"sync/atomic"
)

// TestModeEnv makes the binaries exit before touching PostgreSQL or Redis.
const TestModeEnv = "INKWELL_TEST_MODE"

var (
	testMode     atomic.Bool
	testModeOnce sync.Once
)

func loadTestMode() {
	on, _ := strconv.ParseBool(os.Getenv(TestModeEnv))
	testMode.Store(on)
}

// InTestMode reports whether INKWELL_TEST_MODE is set to a true value.
func InTestMode() bool {
	testModeOnce.Do(loadTestMode)
	return testMode.Load()
}

// RefreshTestMode rereads the environment, for tests that toggle the flag.
func RefreshTestMode() {
	testModeOnce.Do(func() {})
	loadTestMode()
}
