package util

import (
	"context"
	"time"
)

// Context wraps context.Context so call sites read the same way across the
// crypto core and the page cache, without any per-request federated state.
type Context struct {
	context.Context
}

// Background returns a non-cancellable root Context, for background flush
// and aging cycles that are not tied to any single caller's request.
func Background() Context {
	return Context{context.Background()}
}

// WithCancel mirrors context.WithCancel but returns the wrapped type.
func WithCancel(parent Context) (Context, context.CancelFunc) {
	c, cancel := context.WithCancel(parent.Context)
	return Context{c}, cancel
}

// WithTimeout mirrors context.WithTimeout but returns the wrapped type.
func WithTimeout(parent Context, d time.Duration) (Context, context.CancelFunc) {
	c, cancel := context.WithTimeout(parent.Context, d)
	return Context{c}, cancel
}
