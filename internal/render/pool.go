package render

import (
	"context"
	"errors"
	"sync"
)

// Pool is a bounded set of reusable render handles.
// Acquire blocks until a handle is free, the context is done or the pool
// is closed. Every acquired handle must be released exactly once.
type Pool[T any] struct {
	items   chan T
	all     []T
	closeFn func(T) error

	closeOnce sync.Once
	closed    chan struct{}
}

// NewPool creates a pool holding items. closeFn, if non-nil, is called for
// every item on Close.
func NewPool[T any](items []T, closeFn func(T) error) *Pool[T] {
	p := &Pool[T]{
		items:   make(chan T, len(items)),
		all:     items,
		closeFn: closeFn,
		closed:  make(chan struct{}),
	}
	for _, item := range items {
		p.items <- item
	}
	return p
}

// Acquire takes a free handle.
func (p *Pool[T]) Acquire(ctx context.Context) (T, error) {
	var zero T

	select {
	case <-p.closed:
		return zero, ErrPoolClosed
	default:
	}

	select {
	case item := <-p.items:
		return item, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-p.closed:
		return zero, ErrPoolClosed
	}
}

// Release returns a handle to the pool.
func (p *Pool[T]) Release(item T) {
	select {
	case p.items <- item:
	default:
		// More releases than acquires; drop the extra handle.
	}
}

// Size returns the number of handles managed by the pool.
func (p *Pool[T]) Size() int {
	return len(p.all)
}

// Available returns the number of handles not currently acquired.
func (p *Pool[T]) Available() int {
	return len(p.items)
}

// Close closes every handle. Blocked Acquire calls return ErrPoolClosed.
// Close is idempotent.
func (p *Pool[T]) Close() error {
	var errs []error
	p.closeOnce.Do(func() {
		close(p.closed)
		if p.closeFn == nil {
			return
		}
		for _, item := range p.all {
			if err := p.closeFn(item); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}
