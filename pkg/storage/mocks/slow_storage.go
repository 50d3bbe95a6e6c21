package mocks

import (
	"context"
	"time"

	"github.com/dbcdk/rawrepo-record-service/pkg/record"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage"
)

// slowDataStorage is a proxy to the actual ds except the record reads are slowed down by
// readRecordsDelay. This allows simulating a loaded database.
type slowDataStorage struct {
	storage.RawRepoDatastore
	readRecordsDelay time.Duration
}

// NewMockSlowDataStorage returns a wrapper of a datastore that adds artificial delays into the reads of records
func NewMockSlowDataStorage(ds storage.RawRepoDatastore, readRecordsDelay time.Duration) storage.RawRepoDatastore {
	return &slowDataStorage{
		RawRepoDatastore: ds,
		readRecordsDelay: readRecordsDelay,
	}
}

func (m *slowDataStorage) RecordExists(ctx context.Context, id record.RecordID, includeDeleted bool) (bool, error) {
	time.Sleep(m.readRecordsDelay)
	return m.RawRepoDatastore.RecordExists(ctx, id, includeDeleted)
}

func (m *slowDataStorage) ReadRecord(ctx context.Context, id record.RecordID) (*record.Record, error) {
	time.Sleep(m.readRecordsDelay)
	return m.RawRepoDatastore.ReadRecord(ctx, id)
}

func (m *slowDataStorage) ReadRecords(ctx context.Context, ids []record.RecordID) (map[record.RecordID]*record.Record, error) {
	time.Sleep(m.readRecordsDelay)
	return m.RawRepoDatastore.ReadRecords(ctx, ids)
}

func (m *slowDataStorage) ReadAgenciesFor(ctx context.Context, bibliographicRecordID string) ([]int, error) {
	time.Sleep(m.readRecordsDelay)
	return m.RawRepoDatastore.ReadAgenciesFor(ctx, bibliographicRecordID)
}
