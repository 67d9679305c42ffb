package loader

import (
	"context"
	"sync"
)

// Handle tracks one asynchronous load. It settles after the completion callback has run on the
// poster's thread, so a successful Wait means the asset is already attached.
type Handle struct {
	name string
	once sync.Once
	done chan struct{}
	err  error
}

func newHandle(name string) *Handle {
	return &Handle{name: name, done: make(chan struct{})}
}

// Name returns the path or directory being loaded.
func (h *Handle) Name() string {
	return h.name
}

// Done is closed once the load has settled.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns the load error, or nil while pending or after success.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Wait blocks until the load settles or ctx ends.
//
// Parameters:
//   - ctx: bounds the wait
//
// Returns:
//   - error: the load error, ctx.Err() if the context ended first, or nil
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handle) settle(err error) {
	h.once.Do(func() {
		h.err = err
		close(h.done)
	})
}
