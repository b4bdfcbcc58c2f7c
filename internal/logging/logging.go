// Package logging builds the zap logger shared by the CLI and the review
// engine.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a console logger writing to stderr. debug enables development
// output at debug level; level is otherwise parsed as a zap level name
// ("warn" when empty).
func New(level string, debug bool) (*zap.Logger, error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		lvl := zapcore.WarnLevel
		if level != "" {
			if err := lvl.UnmarshalText([]byte(level)); err != nil {
				return nil, fmt.Errorf("invalid log level %q: %w", level, err)
			}
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
		cfg.DisableStacktrace = true
	}
	cfg.Encoding = "console"
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

// Must is New that falls back to a no-op logger, reporting the error on
// stderr.
func Must(level string, debug bool) *zap.Logger {
	log, err := New(level, debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "specreview: %v\n", err)
		return zap.NewNop()
	}
	return log
}
