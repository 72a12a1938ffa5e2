package logger

import (
	"context"

	"go.uber.org/zap"
)

// NoopLogger satisfies the logger interfaces of platform packages while
// discarding everything.
type NoopLogger struct{}

func (NoopLogger) Debug(context.Context, string, ...zap.Field) {}
func (NoopLogger) Info(context.Context, string, ...zap.Field)  {}
func (NoopLogger) Warn(context.Context, string, ...zap.Field)  {}
func (NoopLogger) Error(context.Context, string, ...zap.Field) {}
