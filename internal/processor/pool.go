package processor

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"golang.org/x/sync/errgroup"
)

// PanicError is recorded for a task that panicked
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Pool runs independent tasks on a fixed number of workers.
// A Pool holds no goroutines between Run calls.
type Pool struct {
	workers int
}

// NewPool returns a pool of n workers; n < 1 means runtime.NumCPU()
func NewPool(n int) *Pool {
	if n < 1 {
		n = runtime.NumCPU()
	}
	return &Pool{workers: n}
}

// Workers returns the concurrency limit
func (p *Pool) Workers() int {
	return p.workers
}

// Run calls task(i) for every i in [0, n) and waits for all of them.
// The returned slice holds each task's error at its index; a panic becomes a
// *PanicError. One task failing never stops the others.
func (p *Pool) Run(n int, task func(i int) error) []error {
	errs := make([]error, n)

	var g errgroup.Group
	g.SetLimit(p.workers)

	for i := 0; i < n; i++ {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					errs[i] = &PanicError{Value: r, Stack: debug.Stack()}
				}
			}()
			errs[i] = task(i)
			// never return the error: errgroup would only keep the first
			return nil
		})
	}

	_ = g.Wait()
	return errs
}
