// Package closer keeps a registry of shutdown hooks and runs them in
// LIFO order during graceful shutdown.
package closer

import (
	"context"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type Closer func(ctx context.Context) error

type Logger interface {
	Info(ctx context.Context, msg string, fields ...zap.Field)
	Error(ctx context.Context, msg string, fields ...zap.Field)
}

type named struct {
	name string
	fn   Closer
}

var (
	mu      sync.Mutex
	closers []named
	log     Logger
)

func SetLogger(l Logger) {
	mu.Lock()
	log = l
	mu.Unlock()
}

func Add(fn Closer) { AddNamed("", fn) }

func AddNamed(name string, fn Closer) {
	mu.Lock()
	closers = append(closers, named{name: name, fn: fn})
	mu.Unlock()
}

// CloseAll runs the registered closers in reverse registration order
// and returns the combined error. The registry is drained so a second
// call is a no-op.
func CloseAll(ctx context.Context) error {
	mu.Lock()
	items := closers
	closers = nil
	l := log
	mu.Unlock()

	var errs error
	for i := len(items) - 1; i >= 0; i-- {
		c := items[i]

		if err := c.fn(ctx); err != nil {
			if l != nil {
				l.Error(ctx, "Close failed",
					zap.String("closer", c.name),
					zap.Error(err),
				)
			}
			errs = multierr.Append(errs, err)
			continue
		}

		if l != nil && c.name != "" {
			l.Info(ctx, "Closed", zap.String("closer", c.name))
		}
	}

	return errs
}
