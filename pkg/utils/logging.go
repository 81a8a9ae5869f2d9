// Package utils contains helpers shared by the binaries.
package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a JSON logger writing to stdout at the given level.  When
// logFile is not empty, entries are written to that file as well.  The caller
// owns the logger and should call Sync before exiting.
func NewLogger(level, logFile string) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if level != "" {
		var err error
		lvl, err = zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("parsing log level: %w", err)
		}
	}

	enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	consoleCore := zapcore.NewCore(enc, zapcore.Lock(os.Stdout), lvl)
	if logFile == "" {
		return zap.New(consoleCore), nil
	}

	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	fileCore := zapcore.NewCore(enc, zapcore.AddSync(f), lvl)
	return zap.New(zapcore.NewTee(fileCore, consoleCore)), nil
}

// MustLogger is like NewLogger but falls back to a production logger on
// error, reporting the error through it.
func MustLogger(level, logFile string) *zap.Logger {
	l, err := NewLogger(level, logFile)
	if err == nil {
		return l
	}
	l, _ = zap.NewProduction()
	l.Warn("falling back to default logger", zap.Error(err))
	return l
}
