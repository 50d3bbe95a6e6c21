package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/dbcdk/rawrepo-record-service/pkg/storage"
)

// errorIterator is a mock iterator that fails a single Next call and serves the
// remaining items afterwards.
type errorIterator[T any] struct {
	mu     sync.Mutex
	items  []T
	calls  int
	failAt int
}

func (s *errorIterator[T]) Next(ctx context.Context) (T, error) {
	var val T

	if ctx.Err() != nil {
		return val, ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.calls == s.failAt {
		return val, fmt.Errorf("simulated errors")
	}

	if len(s.items) == 0 {
		return val, storage.ErrIteratorDone
	}

	next, rest := s.items[0], s.items[1:]
	s.items = rest

	return next, nil
}

func (s *errorIterator[T]) Stop() {}

// NewErrorIterator mocks a cursor whose failAt-th Next call (counting from one)
// returns an error. All rows are still served by the other calls.
func NewErrorIterator(rows []*storage.DumpRow, failAt int) storage.DumpIterator {
	return &errorIterator[*storage.DumpRow]{
		items:  rows,
		failAt: failAt,
	}
}
