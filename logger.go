// Copyright (c) 2026 Nlaak Studios (https://nlaak.com)
// Author: Andrew Donelson (https://www.linkedin.com/in/andrew-donelson/)
//
// logger.go — Logger interface used internally by framewire for structured
// logging, a noop default, and an adapter over the standard log/slog logger.

package framewire

import (
	"context"
	"log/slog"
)

// Logger is the logging interface used internally by framewire.
// Implement this to route logs to zap, logrus, etc., or wrap a *slog.Logger
// with NewSlogLogger.
type Logger interface {
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
	Debug(msg string, keysAndValues ...any)
}

type noopLogger struct{}

func (noopLogger) Info(_ string, _ ...any)  {}
func (noopLogger) Warn(_ string, _ ...any)  {}
func (noopLogger) Error(_ string, _ ...any) {}
func (noopLogger) Debug(_ string, _ ...any) {}

type slogLogger struct{ l *slog.Logger }

// NewSlogLogger adapts l to Logger. A nil l uses slog.Default().
func NewSlogLogger(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return slogLogger{l: l}
}

func (s slogLogger) Info(msg string, kv ...any) {
	s.l.Log(context.Background(), slog.LevelInfo, msg, kv...)
}
func (s slogLogger) Warn(msg string, kv ...any) {
	s.l.Log(context.Background(), slog.LevelWarn, msg, kv...)
}
func (s slogLogger) Error(msg string, kv ...any) {
	s.l.Log(context.Background(), slog.LevelError, msg, kv...)
}
func (s slogLogger) Debug(msg string, kv ...any) {
	s.l.Log(context.Background(), slog.LevelDebug, msg, kv...)
}
