package app

import (
	"os"
	"sync"
	"sync/atomic"
)

const testModeEnv = "ELIMUCORE_TEST_MODE"

var (
	testModeFlag atomic.Bool
	testModeOnce sync.Once
)

func detectTestMode() {
	v := os.Getenv(testModeEnv)
	testModeFlag.Store(v == "1" || v == "true")
}

// InTestMode reports whether the process should skip runtime side effects
// such as binding listeners. Handler tests set ELIMUCORE_TEST_MODE.
func InTestMode() bool {
	testModeOnce.Do(detectTestMode)
	return testModeFlag.Load()
}

// RefreshTestMode re-reads the flag after the environment changes.
func RefreshTestMode() {
	detectTestMode()
}
