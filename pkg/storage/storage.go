// Package storage contains the datastore interfaces of the record service and the types
// shared by its implementations.
//
//go:generate mockgen -source storage.go -destination ../../internal/mocks/mock_storage.go -package mocks RawRepoDatastore
package storage

import (
	"context"
	"time"

	"github.com/dbcdk/rawrepo-record-service/pkg/record"
)

// RecordReader reads stored records.
type RecordReader interface {
	// RecordExists reports whether the record is stored. Deleted records only count when
	// includeDeleted is set.
	RecordExists(ctx context.Context, id record.RecordID, includeDeleted bool) (bool, error)

	// ReadRecord returns the stored record, deleted or not. It returns ErrNotFound if
	// the record does not exist.
	ReadRecord(ctx context.Context, id record.RecordID) (*record.Record, error)

	// ReadAgenciesFor lists every agency holding a record with the bibliographic id,
	// deleted records included, in ascending order.
	ReadAgenciesFor(ctx context.Context, bibliographicRecordID string) ([]int, error)

	// ReadRecords returns the stored records among ids. Missing ids are left out.
	ReadRecords(ctx context.Context, ids []record.RecordID) (map[record.RecordID]*record.Record, error)
}

// RelationReader reads the persisted relation edges. Edges only exist for active records.
type RelationReader interface {
	// ReadRelationsFrom returns the records id refers to.
	ReadRelationsFrom(ctx context.Context, id record.RecordID) ([]record.RecordID, error)

	// ReadRelationsTo returns the records referring to id.
	ReadRelationsTo(ctx context.Context, id record.RecordID) ([]record.RecordID, error)
}

// RecordWriter stores records and their relations.
type RecordWriter interface {
	// WriteRecord inserts or replaces a record. Writing a deleted record removes its
	// outgoing relations.
	WriteRecord(ctx context.Context, rec *record.Record) error

	// WriteRelations replaces the outgoing relations of id.
	WriteRelations(ctx context.Context, id record.RecordID, refers []record.RecordID) error

	// WriteHolding registers that agencyID holds the common record with the bibliographic id.
	WriteHolding(ctx context.Context, bibliographicRecordID string, agencyID int) error
}

// DumpReader opens server side cursors for bulk dumps.
type DumpReader interface {
	// ReadDump returns an iterator over the rows matching q. The iterator is safe for
	// concurrent use and must be stopped by the caller.
	ReadDump(ctx context.Context, q DumpQuery) (DumpIterator, error)
}

// RawRepoDatastore is the full datastore used by the service.
type RawRepoDatastore interface {
	RecordReader
	RelationReader
	RecordWriter
	DumpReader

	// IsReady reports whether the datastore is ready to accept traffic.
	IsReady(ctx context.Context) (ReadinessStatus, error)

	// Close closes the datastore and cleans up any residual resources.
	Close()
}

// ReadinessStatus represents the readiness status of the datastore.
type ReadinessStatus struct {
	// Message is a human-friendly status message for the current datastore status.
	Message string

	IsReady bool
}

// RecordSelector picks which kinds of rows a dump of one agency includes.
type RecordSelector string

const (
	SelectLocal      RecordSelector = "LOCAL"
	SelectEnrichment RecordSelector = "ENRICHMENT"
	SelectHoldings   RecordSelector = "HOLDINGS"
)

// RecordStatus filters dumped rows on the deleted flag of the agency's own record.
type RecordStatus string

const (
	StatusActive  RecordStatus = "ACTIVE"
	StatusDeleted RecordStatus = "DELETED"
	StatusAll     RecordStatus = "ALL"
)

// DumpKind is the agency type driven shape of a dump query.
type DumpKind int

const (
	// DumpLocal selects the agency's own records only.
	DumpLocal DumpKind = iota
	// DumpDBC joins the agency's records with the DBC enrichments of the same id.
	DumpDBC
	// DumpFBS unions enrichments joined with the common record, local records and holdings.
	DumpFBS
)

// DumpQuery describes the rows of one agency to stream.
type DumpQuery struct {
	AgencyID     int
	Kind         DumpKind
	Selectors    []RecordSelector
	Status       RecordStatus
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	ModifiedFrom *time.Time
	ModifiedTo   *time.Time
	// Limit caps the number of rows, 0 means no limit.
	Limit int
}

// Selects reports whether s is requested. No selectors means every kind.
func (q DumpQuery) Selects(s RecordSelector) bool {
	if len(q.Selectors) == 0 {
		return true
	}
	for _, sel := range q.Selectors {
		if sel == s {
			return true
		}
	}
	return false
}

// DumpRow is one row of a dump cursor. Local is the record overlaying Common; either
// may be nil: local only rows have no Common and holdings rows have no Local.
type DumpRow struct {
	BibliographicRecordID string
	AgencyID              int
	Local                 *record.Record
	Common                *record.Record
}
