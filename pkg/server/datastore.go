package server

import (
	"context"

	"github.com/dbcdk/rawrepo-record-service/pkg/record"
	serverErrors "github.com/dbcdk/rawrepo-record-service/pkg/server/errors"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage"
)

// readStore is the read side of the datastore as seen by the service.
type readStore interface {
	storage.RecordReader
	storage.RelationReader
	storage.DumpReader
}

type layeredStore struct {
	storage.RecordReader
	storage.RelationReader
	storage.DumpReader
}

// classifyingStore marks datastore failures as data access errors, so callers can tell
// them apart from missing records.
type classifyingStore struct {
	wrapped readStore
}

var _ readStore = (*classifyingStore)(nil)

func (c *classifyingStore) RecordExists(ctx context.Context, id record.RecordID, includeDeleted bool) (bool, error) {
	ok, err := c.wrapped.RecordExists(ctx, id, includeDeleted)
	return ok, serverErrors.WrapDataAccess("record exists", err)
}

func (c *classifyingStore) ReadRecord(ctx context.Context, id record.RecordID) (*record.Record, error) {
	rec, err := c.wrapped.ReadRecord(ctx, id)
	return rec, serverErrors.WrapDataAccess("read record", err)
}

func (c *classifyingStore) ReadAgenciesFor(ctx context.Context, bibliographicRecordID string) ([]int, error) {
	agencies, err := c.wrapped.ReadAgenciesFor(ctx, bibliographicRecordID)
	return agencies, serverErrors.WrapDataAccess("read agencies", err)
}

func (c *classifyingStore) ReadRecords(ctx context.Context, ids []record.RecordID) (map[record.RecordID]*record.Record, error) {
	recs, err := c.wrapped.ReadRecords(ctx, ids)
	return recs, serverErrors.WrapDataAccess("read records", err)
}

func (c *classifyingStore) ReadRelationsFrom(ctx context.Context, id record.RecordID) ([]record.RecordID, error) {
	ids, err := c.wrapped.ReadRelationsFrom(ctx, id)
	return ids, serverErrors.WrapDataAccess("read relations from", err)
}

func (c *classifyingStore) ReadRelationsTo(ctx context.Context, id record.RecordID) ([]record.RecordID, error) {
	ids, err := c.wrapped.ReadRelationsTo(ctx, id)
	return ids, serverErrors.WrapDataAccess("read relations to", err)
}

func (c *classifyingStore) ReadDump(ctx context.Context, q storage.DumpQuery) (storage.DumpIterator, error) {
	iter, err := c.wrapped.ReadDump(ctx, q)
	return iter, serverErrors.WrapDataAccess("open dump cursor", err)
}
