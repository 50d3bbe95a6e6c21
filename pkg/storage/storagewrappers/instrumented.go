package storagewrappers

import (
	"context"
	"sync/atomic"

	"github.com/dbcdk/rawrepo-record-service/pkg/record"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage"
)

// ReadStore is what the resolver, merge engine and expander read from.
type ReadStore interface {
	storage.RecordReader
	storage.RelationReader
}

var _ ReadStore = (*InstrumentedStorage)(nil)

type InstrumentedStorage struct {
	ReadStore
	countReads atomic.Uint32
}

// NewInstrumentedStorage creates a new instance of InstrumentedStorage that wraps the specified datastore and counts its reads.
// InstrumentedStorage is thread-safe but should not be shared across multiple requests.
func NewInstrumentedStorage(wrapped ReadStore) *InstrumentedStorage {
	return &InstrumentedStorage{
		ReadStore: wrapped,
	}
}

type Metrics struct {
	DatastoreQueryCount uint32
}

func (m *InstrumentedStorage) GetMetrics() Metrics {
	return Metrics{
		DatastoreQueryCount: m.countReads.Load(),
	}
}

func (m *InstrumentedStorage) increaseReads() {
	m.countReads.Add(1)
}

func (m *InstrumentedStorage) RecordExists(ctx context.Context, id record.RecordID, includeDeleted bool) (bool, error) {
	m.increaseReads()
	return m.ReadStore.RecordExists(ctx, id, includeDeleted)
}

func (m *InstrumentedStorage) ReadRecord(ctx context.Context, id record.RecordID) (*record.Record, error) {
	m.increaseReads()
	return m.ReadStore.ReadRecord(ctx, id)
}

func (m *InstrumentedStorage) ReadRecords(ctx context.Context, ids []record.RecordID) (map[record.RecordID]*record.Record, error) {
	m.increaseReads()
	return m.ReadStore.ReadRecords(ctx, ids)
}

func (m *InstrumentedStorage) ReadAgenciesFor(ctx context.Context, bibliographicRecordID string) ([]int, error) {
	m.increaseReads()
	return m.ReadStore.ReadAgenciesFor(ctx, bibliographicRecordID)
}

func (m *InstrumentedStorage) ReadRelationsFrom(ctx context.Context, id record.RecordID) ([]record.RecordID, error) {
	m.increaseReads()
	return m.ReadStore.ReadRelationsFrom(ctx, id)
}

func (m *InstrumentedStorage) ReadRelationsTo(ctx context.Context, id record.RecordID) ([]record.RecordID, error) {
	m.increaseReads()
	return m.ReadStore.ReadRelationsTo(ctx, id)
}
