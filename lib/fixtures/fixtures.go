// Package fixtures provides shared test helpers, mainly the logger
// initialisation every test binary needs before any component calls
// logger.New.
package fixtures

import (
	"fmt"
	"os"

	"github.com/bitmark-inc/logger"
)

// LogCategory is the default tag used by test loggers.
const LogCategory = "testing"

var logDir string

// SetupTestLogger initialises the global logger into a throwaway
// directory. Call from TestMain before m.Run.
func SetupTestLogger() {
	dir, err := os.MkdirTemp("", "tiercache-test-log")
	if err != nil {
		panic(fmt.Sprintf("cannot create log directory: %s", err))
	}
	logDir = dir

	logging := logger.Configuration{
		Directory: dir,
		File:      fmt.Sprintf("%s.log", LogCategory),
		Size:      1048576,
		Count:     10,
		Console:   false,
		Levels: map[string]string{
			logger.DefaultTag: "critical",
		},
	}

	_ = logger.Initialise(logging)
}

// TeardownTestLogger flushes and removes the test log directory. Call
// from TestMain after m.Run.
func TeardownTestLogger() {
	logger.Finalise()
	if logDir != "" {
		_ = os.RemoveAll(logDir)
		logDir = ""
	}
}
