// Package workerpool provides a fixed-size goroutine pool with order-preserving
// map helpers, and the process-wide pool shared by all decode batches.
package workerpool

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// ErrInvalidSize is returned for a non-positive worker count.
var ErrInvalidSize = errors.New("worker count must be positive")

// ErrClosed is returned when submitting to a closed pool.
var ErrClosed = errors.New("worker pool closed")

// Pool runs submitted tasks on a fixed set of worker goroutines.
// Tasks from concurrent Map calls share the same workers.
type Pool struct {
	size  int
	tasks chan func()

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// New starts a pool of size workers.
func New(size int) (*Pool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	p := &Pool{
		size:  size,
		tasks: make(chan func(), size),
	}
	p.wg.Add(size)
	for range size {
		go p.worker()
	}
	return p, nil
}

// DefaultSize is the worker count used when none is configured.
func DefaultSize() int {
	return runtime.NumCPU()
}

// Size returns the number of workers.
func (p *Pool) Size() int { return p.size }

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		task()
	}
}

// Map calls fn(i) for every i in [0, n) on the pool's workers and returns
// once all calls have finished. Completion order is unspecified.
// fn must not call Map on the same pool.
func (p *Pool) Map(n int, fn func(i int)) error {
	if n == 0 {
		return nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	var wg sync.WaitGroup
	wg.Add(n)
	for i := range n {
		p.tasks <- func() {
			defer wg.Done()
			fn(i)
		}
	}
	wg.Wait()
	return nil
}

// Close stops the workers after queued tasks drain. Close is idempotent.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()
	p.wg.Wait()
}

// MapOrdered applies fn to every element of in on the pool and returns the
// results index-aligned with in, independent of completion order.
func MapOrdered[T, R any](p *Pool, in []T, fn func(i int, v T) R) ([]R, error) {
	out := make([]R, len(in))
	err := p.Map(len(in), func(i int) {
		out[i] = fn(i, in[i])
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
