// Package slog adapts a log/slog handler to the module's Logger interface.
package slog

import (
	"log/slog"
)

type Adapter struct {
	logger *slog.Logger
}

func New(h slog.Handler) *Adapter {
	return &Adapter{logger: slog.New(h)}
}

func FromLogger(l *slog.Logger) *Adapter {
	return &Adapter{logger: l}
}

func (a *Adapter) Error(msg string, args ...any) {
	a.logger.Error(msg, args...)
}

func (a *Adapter) Warn(msg string, args ...any) {
	a.logger.Warn(msg, args...)
}

func (a *Adapter) Info(msg string, args ...any) {
	a.logger.Info(msg, args...)
}

func (a *Adapter) Debug(msg string, args ...any) {
	a.logger.Debug(msg, args...)
}
