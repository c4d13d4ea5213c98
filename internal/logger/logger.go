package logger

import (
	"fmt"

	"go.uber.org/zap"
)

// Log is a no-op until Init runs, so packages can log from tests.
var Log *zap.Logger = zap.NewNop()

// Init installs a production JSON logger at level ("debug", "info", ...).
func Init(level string) error {
	cfg := zap.NewProductionConfig()
	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return fmt.Errorf("log level: %w", err)
		}
		cfg.Level = lvl
	}
	l, err := cfg.Build()
	if err != nil {
		return err
	}
	Log = l
	return nil
}

func Sugar() *zap.SugaredLogger {
	return Log.Sugar()
}
