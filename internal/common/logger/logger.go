// Package logger centralizes zap.Logger construction so every binary and
// every core component builds its logger the same way the teacher's
// cmd/*/main.go initLogger functions did, instead of each caller hand
// rolling a zap.Config.
package logger

import "go.uber.org/zap"

// Options controls logger construction.
type Options struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string
	// Development enables human-readable console output instead of JSON.
	Development bool
}

// New builds a process-wide structured logger.
func New(opts Options) (*zap.Logger, error) {
	if opts.Development {
		cfg := zap.NewDevelopmentConfig()
		if lvl, err := zap.ParseAtomicLevel(opts.Level); err == nil {
			cfg.Level = lvl
		}
		return cfg.Build()
	}

	cfg := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(opts.Level)
	if err != nil {
		lvl = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	cfg.Level = lvl
	return cfg.Build()
}

// Nop returns a logger that discards everything, for use in tests.
func Nop() *zap.Logger {
	return zap.NewNop()
}
