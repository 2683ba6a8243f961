// Package lazy provides a closeable value created on first demand.
package lazy

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Factory creates the value held by a Reference.
type Factory[T io.Closer] func(ctx context.Context) (T, error)

// Reference holds a value that is created on first Eval and closed at most
// once. A failed creation leaves the reference unset, so a later Eval tries
// again.
//
// Thread Safety: all methods are safe for concurrent use. Eval runs the
// factory while holding the reference's lock, so concurrent callers wait for
// a single creation rather than racing.
type Reference[T io.Closer] struct {
	name    string
	factory Factory[T]

	mu     sync.Mutex
	value  T
	set    bool
	closed bool
}

// NewReference creates an unset reference. name is used for diagnostics.
func NewReference[T io.Closer](name string, factory Factory[T]) *Reference[T] {
	return &Reference[T]{
		name:    name,
		factory: factory,
	}
}

// Eval returns the value, creating it if necessary.
func (r *Reference[T]) Eval(ctx context.Context) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.set {
		return r.value, nil
	}

	v, err := r.factory(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	r.value = v
	r.set = true
	return v, nil
}

// IsSet reports whether the value has been created, without creating it.
func (r *Reference[T]) IsSet() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.set
}

// Close closes the value if it was created. Later calls are no-ops.
func (r *Reference[T]) Close() error {
	r.mu.Lock()
	if !r.set || r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	v := r.value
	r.mu.Unlock()

	if err := v.Close(); err != nil {
		return fmt.Errorf("close %s: %w", r.name, err)
	}
	return nil
}

// Name returns the diagnostic name.
func (r *Reference[T]) Name() string {
	return r.name
}

// String renders the reference for logs.
func (r *Reference[T]) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case r.closed:
		return fmt.Sprintf("lazy.Reference{%s: closed}", r.name)
	case r.set:
		return fmt.Sprintf("lazy.Reference{%s: set}", r.name)
	default:
		return fmt.Sprintf("lazy.Reference{%s: unset}", r.name)
	}
}
