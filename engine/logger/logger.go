package logger

import (
	"fmt"

	"go.uber.org/zap"
)

// Log is the process-wide logger. It discards everything until Init is called so that
// packages can log unconditionally from tests and library use.
var Log = zap.NewNop()

// Config selects the encoder and minimum level for the process logger.
type Config struct {
	// Level is a zap level name ("debug", "info", "warn", "error"). Empty means "info".
	Level string

	// Development switches to the human-readable console encoder with caller and stack traces on warnings.
	Development bool
}

// New builds a zap logger from the given configuration.
//
// Parameters:
//   - cfg: the logger configuration
//
// Returns:
//   - *zap.Logger: the configured logger
//   - error: error if the level is unknown or the logger cannot be built
func New(cfg Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		lvl, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		zc.Level = lvl
	}
	return zc.Build()
}

// Init replaces Log (and zap's globals) with a logger built from cfg.
func Init(cfg Config) error {
	l, err := New(cfg)
	if err != nil {
		return err
	}
	Log = l
	zap.ReplaceGlobals(l)
	return nil
}

// Sync flushes any buffered log entries. Errors from syncing stderr on some platforms are ignored.
func Sync() {
	_ = Log.Sync()
}
