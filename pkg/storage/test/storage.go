// Package test holds the conformance suite every datastore engine runs.
package test

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/dbcdk/rawrepo-record-service/pkg/record"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage"
)

var (
	cmpOpts = []cmp.Option{
		cmpopts.EquateEmpty(),
		cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) }),
	}

	baseTime = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
)

func RunAllTests(t *testing.T, ds storage.RawRepoDatastore) {
	t.Run("TestDatastoreIsReady", func(t *testing.T) {
		status, err := ds.IsReady(context.Background())
		require.NoError(t, err)
		require.True(t, status.IsReady)
	})

	// Records.
	t.Run("TestRecordWriteAndRead", func(t *testing.T) { RecordWritingAndReadingTest(t, ds) })
	t.Run("TestRecordExists", func(t *testing.T) { RecordExistsTest(t, ds) })
	t.Run("TestReadAgenciesFor", func(t *testing.T) { ReadAgenciesForTest(t, ds) })

	// Relations.
	t.Run("TestRelations", func(t *testing.T) { RelationsTest(t, ds) })
	t.Run("TestDeletedRecordDropsRelations", func(t *testing.T) { DeletedRecordDropsRelationsTest(t, ds) })

	// Dumps.
	t.Run("TestDumpLocal", func(t *testing.T) { DumpLocalTest(t, ds) })
	t.Run("TestDumpDBC", func(t *testing.T) { DumpDBCTest(t, ds) })
	t.Run("TestDumpFBS", func(t *testing.T) { DumpFBSTest(t, ds) })
}

// NewRecord builds a record with deterministic timestamps for the suite.
func NewRecord(bibID string, agencyID int, mimeType string, deleted bool) *record.Record {
	return &record.Record{
		ID:         record.NewRecordID(bibID, agencyID),
		Content:    []byte("<record>" + bibID + "</record>"),
		MimeType:   mimeType,
		Deleted:    deleted,
		Created:    baseTime,
		Modified:   baseTime.Add(time.Hour),
		TrackingID: "track-" + bibID,
	}
}

func writeRecords(t *testing.T, ds storage.RawRepoDatastore, recs ...*record.Record) {
	t.Helper()
	for _, rec := range recs {
		require.NoError(t, ds.WriteRecord(context.Background(), rec))
	}
}

func drain(t *testing.T, iter storage.DumpIterator) []*storage.DumpRow {
	t.Helper()
	defer iter.Stop()

	var rows []*storage.DumpRow
	for {
		row, err := iter.Next(context.Background())
		if err != nil {
			require.ErrorIs(t, err, storage.ErrIteratorDone)
			return rows
		}
		rows = append(rows, row)
	}
}
