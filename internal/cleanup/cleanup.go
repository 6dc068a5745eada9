// Package cleanup collects exit hooks, such as closing the log file, so they
// also run when a command fails or is interrupted.
package cleanup

import (
	"errors"
	"fmt"
	"sync"
)

type hook struct {
	name string
	fn   func() error
}

var (
	mu      sync.Mutex
	pending []hook
)

// Register queues fn under name. Hooks run newest first.
func Register(name string, fn func() error) {
	if fn == nil {
		return
	}
	mu.Lock()
	pending = append(pending, hook{name: name, fn: fn})
	mu.Unlock()
}

// RunAll drains the queue. Every hook runs once; failures are joined and
// labelled with the hook name.
func RunAll() error {
	mu.Lock()
	queued := pending
	pending = nil
	mu.Unlock()

	var errs []error
	for i := len(queued) - 1; i >= 0; i-- {
		if err := queued[i].fn(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", queued[i].name, err))
		}
	}
	return errors.Join(errs...)
}
