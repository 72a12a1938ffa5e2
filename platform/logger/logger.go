// Package logger is a thin zap wrapper shared by all components.
// The context argument is accepted on every call so request-scoped
// fields can be attached later without touching call sites.
package logger

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	l *zap.Logger
}

var global = newConsole(zapcore.InfoLevel)

// Init replaces the global logger according to the service config.
func Init(level string, asJSON bool) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return err
	}

	if asJSON {
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.TimeKey = "ts"
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

		core := zapcore.NewCore(
			zapcore.NewJSONEncoder(encCfg),
			zapcore.AddSync(os.Stdout),
			lvl,
		)
		global = &Logger{l: zap.New(core)}
		return nil
	}

	global = newConsole(lvl)
	return nil
}

func newConsole(lvl zapcore.Level) *Logger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.AddSync(os.Stdout),
		lvl,
	)

	return &Logger{l: zap.New(core)}
}

// L returns the global logger.
func L() *Logger { return global }

// SetNopLogger silences the global logger. Used by tests.
func SetNopLogger() { global = &Logger{l: zap.NewNop()} }

// With returns a child of the global logger with preset fields.
func With(fields ...Field) *Logger {
	return &Logger{l: global.l.With(fields...)}
}

func (l *Logger) With(fields ...Field) *Logger {
	return &Logger{l: l.l.With(fields...)}
}

func (l *Logger) Debug(_ context.Context, msg string, fields ...Field) {
	l.l.Debug(msg, fields...)
}

func (l *Logger) Info(_ context.Context, msg string, fields ...Field) {
	l.l.Info(msg, fields...)
}

func (l *Logger) Warn(_ context.Context, msg string, fields ...Field) {
	l.l.Warn(msg, fields...)
}

func (l *Logger) Error(_ context.Context, msg string, fields ...Field) {
	l.l.Error(msg, fields...)
}

func Debug(ctx context.Context, msg string, fields ...Field) {
	global.Debug(ctx, msg, fields...)
}

func Info(ctx context.Context, msg string, fields ...Field) {
	global.Info(ctx, msg, fields...)
}

func Warn(ctx context.Context, msg string, fields ...Field) {
	global.Warn(ctx, msg, fields...)
}

func Error(ctx context.Context, msg string, fields ...Field) {
	global.Error(ctx, msg, fields...)
}
