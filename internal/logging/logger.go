// Package logging configures the process-wide zap logger.
package logging

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ErrInvalidConfig indicates an invalid logging configuration.
var ErrInvalidConfig = errors.New("invalid logging configuration")

// Config holds logging configuration.
type Config struct {
	// Level is one of debug, info, warn, error.
	Level string

	// Format is "console" or "json".
	Format string
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("%w: level %q", ErrInvalidConfig, c.Level)
	}
	if c.Format != "console" && c.Format != "json" {
		return fmt.Errorf("%w: format %q (want console or json)", ErrInvalidConfig, c.Format)
	}
	return nil
}

// New creates a logger from config. Components receive child loggers via
// logger.Named rather than reaching for a global.
func New(cfg Config) (*zap.Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, _ := zapcore.ParseLevel(cfg.Level)

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.Encoding = cfg.Format
	zapCfg.EncoderConfig.TimeKey = "ts"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.Format == "console" {
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

// Sync flushes buffered entries, ignoring the sync errors stdout and stderr
// report on Linux.
func Sync(logger *zap.Logger) {
	_ = logger.Sync()
}
