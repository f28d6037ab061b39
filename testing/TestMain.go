// Package testing prepares the process environment for inkwell tests. Blank
// import it from a _test.go file before anything reads app.Config.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"

	"github.com/inkwell-blog/inkwell/internal/app"
)

var once sync.Once

// defaults apply only where the variable is unset.
var defaults = map[string]string{
	"JWT_SECRET":         "inkwell-test-secret",
	"DEV_TOKENS_ENABLED": "true",
	"LOG_FORMAT":         "json",
	"LOG_LEVEL":          "warn",
}

func ensureTestEnv() {
	once.Do(func() {
		_ = os.Setenv(app.TestModeEnv, "1")
		for key, value := range defaults {
			if _, ok := os.LookupEnv(key); !ok {
				_ = os.Setenv(key, value)
			}
		}
		app.RefreshTestMode()
	})
}

func init() {
	ensureTestEnv()
}

// TestMain can be delegated to from a package's own TestMain.
func TestMain(m *stdtesting.M) {
	ensureTestEnv()
	os.Exit(m.Run())
}
