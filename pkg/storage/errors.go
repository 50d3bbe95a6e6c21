package storage

import (
	"errors"
	"fmt"

	"github.com/dbcdk/rawrepo-record-service/pkg/record"
)

var (
	// ErrCollision if an item already exists within the store.
	ErrCollision = errors.New("item already exists")

	ErrCancelled = errors.New("request has been cancelled")
	ErrNotFound  = errors.New("not found")

	ErrIteratorDone = errors.New("iterator done")
)

// RecordNotFoundError wraps ErrNotFound with the id that was looked up.
func RecordNotFoundError(id record.RecordID) error {
	return fmt.Errorf("record %s: %w", id, ErrNotFound)
}
