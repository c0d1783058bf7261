package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

type namedCloser struct {
	name string
	fn   func(context.Context) error
}

// Closers releases resources in the reverse order they were acquired.
type Closers struct {
	mu  sync.Mutex
	fns []namedCloser
}

func (c *Closers) Add(name string, fn func(context.Context) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fns = append(c.fns, namedCloser{name: name, fn: fn})
}

// Close runs every closer even if some fail.
func (c *Closers) Close(ctx context.Context) error {
	c.mu.Lock()
	fns := c.fns
	c.fns = nil
	c.mu.Unlock()

	var errs []error
	for i := len(fns) - 1; i >= 0; i-- {
		if err := fns[i].fn(ctx); err != nil {
			slog.Error("Failed to close resource", "resource", fns[i].name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", fns[i].name, err))
		}
	}
	return errors.Join(errs...)
}
