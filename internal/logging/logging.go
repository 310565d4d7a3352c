// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging wraps zap's sugared logger behind a small structured API.
// Components take a *Logger and log key/value pairs; the CLI owns the choice
// of development or production encoding.
package logging

import (
	"strings"

	"go.uber.org/zap"
)

// Logger is a thin wrapper over zap.SugaredLogger.
type Logger struct {
	sugar *zap.SugaredLogger
}

// New builds a Logger for the given mode. "prod" and "production" select the
// JSON production encoder; anything else selects the console development
// encoder.
func New(mode string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	zl, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{sugar: zl.Sugar()}, nil
}

// NewNop returns a Logger that discards everything. Tests use it where log
// output is irrelevant.
func NewNop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

// Sync flushes buffered log entries. Callers defer this at shutdown.
func (l *Logger) Sync() {
	_ = l.sugar.Sync()
}

// With returns a child Logger carrying the given key/value pairs on every entry.
func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{sugar: l.sugar.With(keysAndValues...)}
}

func (l *Logger) Debug(msg string, keysAndValues ...any) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l *Logger) Info(msg string, keysAndValues ...any) {
	l.sugar.Infow(msg, keysAndValues...)
}

func (l *Logger) Warn(msg string, keysAndValues ...any) {
	l.sugar.Warnw(msg, keysAndValues...)
}

func (l *Logger) Error(msg string, keysAndValues ...any) {
	l.sugar.Errorw(msg, keysAndValues...)
}
