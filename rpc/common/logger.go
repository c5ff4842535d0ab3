package common

import (
	"fmt"
	"os"
	"strings"

	"github.com/bitmark-inc/logger"
)

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

// validLogLevels mirrors the levels the logging backend accepts.
var validLogLevels = map[string]struct{}{
	"trace":    {},
	"debug":    {},
	"info":     {},
	"warn":     {},
	"error":    {},
	"critical": {},
	"off":      {},
}

// InitLoggers initializes the global logging backend from the server
// configuration. Must be called exactly once before any component
// creates its logger.
func InitLoggers(config ServerConfig) error {
	level := strings.ToLower(config.LogLevel)
	if level == "" {
		level = "info"
	}
	if _, ok := validLogLevels[level]; !ok {
		return fmt.Errorf("invalid log level: %q", config.LogLevel)
	}

	dir := config.LogDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create log directory %q: %w", dir, err)
	}

	return logger.Initialise(logger.Configuration{
		Directory: dir,
		File:      "tiercache.log",
		Size:      1048576,
		Count:     10,
		Console:   config.LogConsole,
		Levels: map[string]string{
			logger.DefaultTag: level,
		},
	})
}
