package bitbang

import (
	"errors"
	"fmt"
	"sync"
)

var ErrRegistryClosed = errors.New("shutdown registry already ran")

// CleanupFunc releases resources owned by a registered component.
type CleanupFunc func() error

// ShutdownRegistry collects cleanup functions to run once at process
// teardown. Registering a function transfers the release obligation to
// the registry: it invokes the function at most once, in reverse
// registration order.
type ShutdownRegistry struct {
	mu     sync.Mutex
	stack  []CleanupFunc
	closed bool
}

func NewShutdownRegistry() *ShutdownRegistry {
	return &ShutdownRegistry{}
}

// Register appends fn to the registry. Registration fails once RunAll
// has run, since nothing would ever invoke fn.
func (r *ShutdownRegistry) Register(fn CleanupFunc) error {
	if fn == nil {
		return fmt.Errorf("nil cleanup function")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRegistryClosed
	}
	r.stack = append(r.stack, fn)
	return nil
}

// RunAll invokes every registered cleanup in reverse registration order
// and closes the registry. Calling it again is a no-op.
func (r *ShutdownRegistry) RunAll() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	stack := r.stack
	r.stack = nil
	r.mu.Unlock()
	var errs []error
	for i := len(stack) - 1; i >= 0; i-- {
		if err := stack[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
