// Package errors classifies the failures of the record service. Callers inspect the
// Kind of an error instead of matching the sentinel errors of every package.
package errors

import (
	"context"
	"errors"
	"fmt"

	"github.com/dbcdk/rawrepo-record-service/internal/dump"
	"github.com/dbcdk/rawrepo-record-service/internal/merger"
	"github.com/dbcdk/rawrepo-record-service/pkg/record"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage"
)

type Kind int

const (
	Internal Kind = iota
	NotFound
	DataAccess
	MergeIncompatible
	Validation
	Cancelled
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case DataAccess:
		return "data_access"
	case MergeIncompatible:
		return "merge_incompatible"
	case Validation:
		return "validation"
	case Cancelled:
		return "cancelled"
	default:
		return "internal"
	}
}

// ExitCode is the process exit code the command line tools use for the kind.
func (k Kind) ExitCode() int {
	switch k {
	case NotFound:
		return 3
	case DataAccess:
		return 4
	case MergeIncompatible:
		return 5
	case Validation:
		return 2
	case Cancelled:
		return 130
	default:
		return 1
	}
}

// ErrDataAccess marks failures of the datastore itself, as opposed to missing data.
var ErrDataAccess = errors.New("data access failed")

type dataAccessError struct {
	op  string
	err error
}

func (e *dataAccessError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrDataAccess, e.op, e.err)
}

func (e *dataAccessError) Unwrap() []error {
	return []error{ErrDataAccess, e.err}
}

// WrapDataAccess wraps a datastore failure during op. Not found and cancellation errors are
// returned as they are, so they keep their kind.
func WrapDataAccess(op string, err error) error {
	if err == nil ||
		errors.Is(err, storage.ErrNotFound) ||
		errors.Is(err, storage.ErrCancelled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrDataAccess) {
		return err
	}
	return &dataAccessError{op: op, err: err}
}

// NotFoundError reports that no record with the id exists.
func NotFoundError(id record.RecordID) error {
	return storage.RecordNotFoundError(id)
}

// Classify returns the kind of err. Unknown errors are Internal.
func Classify(err error) Kind {
	var verr *dump.ValidationError
	switch {
	case err == nil:
		return Internal
	case errors.As(err, &verr):
		return Validation
	case errors.Is(err, storage.ErrNotFound):
		return NotFound
	case errors.Is(err, merger.ErrMergeIncompatible):
		return MergeIncompatible
	case errors.Is(err, storage.ErrCancelled),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return Cancelled
	case errors.Is(err, ErrDataAccess):
		return DataAccess
	default:
		return Internal
	}
}
