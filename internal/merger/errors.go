package merger

import (
	"errors"
	"fmt"

	"github.com/dbcdk/rawrepo-record-service/pkg/record"
)

var (
	ErrMergeIncompatible = errors.New("records cannot be merged")
	ErrEmptyChain        = errors.New("no records to merge")
)

// MergeIncompatibleError is returned when a chain holds two records whose mime types
// cannot be merged.
type MergeIncompatibleError struct {
	Base               record.RecordID
	Enrichment         record.RecordID
	BaseMimeType       string
	EnrichmentMimeType string
}

func (e *MergeIncompatibleError) Error() string {
	return fmt.Sprintf("cannot merge %s (%s) onto %s (%s)",
		e.Enrichment, e.EnrichmentMimeType, e.Base, e.BaseMimeType)
}

func (e *MergeIncompatibleError) Unwrap() error {
	return ErrMergeIncompatible
}

// MergeError wraps a failure of the merge port itself.
type MergeError struct {
	Base       record.RecordID
	Enrichment record.RecordID
	Err        error
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("merge %s onto %s: %v", e.Enrichment, e.Base, e.Err)
}

func (e *MergeError) Unwrap() error {
	return e.Err
}
