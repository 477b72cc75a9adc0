package logging

import (
	"github.com/pion/logging"
)

var loggerFactory logging.LoggerFactory = logging.NewDefaultLoggerFactory()

// NewLogger returns a leveled logger for scope from the package factory.
// Levels follow the PION_LOG_* environment variables of the default factory.
func NewLogger(scope string) logging.LeveledLogger {
	return loggerFactory.NewLogger(scope)
}

// Factory returns f when it is not nil, otherwise the package factory.
func Factory(f logging.LoggerFactory) logging.LoggerFactory {
	if f == nil {
		return loggerFactory
	}
	return f
}
