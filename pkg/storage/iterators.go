package storage

import (
	"context"
	"sync"
)

type Iterator[T any] interface {
	// Next will return the next available item. It returns ErrIteratorDone when exhausted.
	Next(ctx context.Context) (T, error)
	// Stop terminates iteration over the underlying iterator.
	Stop()
}

// DumpIterator is an iterator over dump rows. It is closed by explicitly calling Stop() or by
// calling Next() until it returns an ErrIteratorDone error.
type DumpIterator = Iterator[*DumpRow]

type staticIterator[T any] struct {
	mu      sync.Mutex
	items   []T
	stopped bool
}

var _ DumpIterator = (*staticIterator[*DumpRow])(nil)

// NewStaticIterator returns a concurrency safe iterator over items.
func NewStaticIterator[T any](items []T) Iterator[T] {
	return &staticIterator[T]{items: items}
}

func (s *staticIterator[T]) Next(ctx context.Context) (T, error) {
	var zero T
	if ctx.Err() != nil {
		return zero, ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || len(s.items) == 0 {
		return zero, ErrIteratorDone
	}
	item := s.items[0]
	s.items = s.items[1:]
	return item, nil
}

func (s *staticIterator[T]) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.items = nil
}
