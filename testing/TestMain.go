// Package testing puts the process into test mode when imported by a test binary.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

// EnvTestMode is set for every test binary that imports this package.
const EnvTestMode = "MEDLINK_TEST_MODE"

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv(EnvTestMode, "1")
		if os.Getenv("MEDLINK_API_URL") == "" {
			_ = os.Setenv("MEDLINK_API_URL", "http://127.0.0.1:0")
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
