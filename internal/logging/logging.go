// Package logging builds the zap loggers used across braindump.
package logging

import (
	"fmt"
	"log"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a production JSON logger, or a human-readable development
// logger when development is true. level is a zap level name ("debug",
// "info", "warn", "error"); empty means info.
func New(level string, development bool) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}

	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

// StdLog adapts logger for libraries that want a *log.Logger, such as the
// Slack client's debug output. Lines are written at debug level.
func StdLog(logger *zap.Logger, component string) *log.Logger {
	l, err := zap.NewStdLogAt(logger.Named(component), zapcore.DebugLevel)
	if err != nil {
		return zap.NewStdLog(logger.Named(component))
	}
	return l
}
