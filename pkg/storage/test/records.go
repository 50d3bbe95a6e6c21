package test

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/dbcdk/rawrepo-record-service/pkg/record"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage"
)

func RecordWritingAndReadingTest(t *testing.T, ds storage.RawRepoDatastore) {
	ctx := context.Background()

	t.Run("read_missing_returns_not_found", func(t *testing.T) {
		_, err := ds.ReadRecord(ctx, record.NewRecordID("missing", 870970))
		require.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("write_then_read", func(t *testing.T) {
		rec := NewRecord("rw-1", 870970, record.MimeTypeMarcXchange, false)
		writeRecords(t, ds, rec)

		got, err := ds.ReadRecord(ctx, rec.ID)
		require.NoError(t, err)
		if diff := cmp.Diff(rec, got, cmpOpts...); diff != "" {
			t.Fatalf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("write_without_tracking_id_gets_one", func(t *testing.T) {
		rec := NewRecord("rw-t", 870970, record.MimeTypeMarcXchange, false)
		rec.TrackingID = ""
		writeRecords(t, ds, rec)

		got, err := ds.ReadRecord(ctx, rec.ID)
		require.NoError(t, err)
		require.NotEmpty(t, got.TrackingID)
		require.Empty(t, rec.TrackingID)
	})

	t.Run("write_replaces", func(t *testing.T) {
		rec := NewRecord("rw-2", 870970, record.MimeTypeMarcXchange, false)
		writeRecords(t, ds, rec)

		updated := rec.Clone()
		updated.Content = []byte("<record>v2</record>")
		updated.Modified = rec.Modified.Add(24 * time.Hour)
		writeRecords(t, ds, updated)

		got, err := ds.ReadRecord(ctx, rec.ID)
		require.NoError(t, err)
		require.Equal(t, "<record>v2</record>", string(got.Content))
		require.True(t, updated.Modified.Equal(got.Modified))
	})

	t.Run("read_many_skips_missing", func(t *testing.T) {
		a := NewRecord("rw-3", 870979, record.MimeTypeAuthority, false)
		b := NewRecord("rw-4", 870979, record.MimeTypeAuthority, false)
		writeRecords(t, ds, a, b)

		got, err := ds.ReadRecords(ctx, []record.RecordID{a.ID, b.ID, record.NewRecordID("rw-404", 870979)})
		require.NoError(t, err)
		require.Len(t, got, 2)
		require.Equal(t, a.Content, got[a.ID].Content)
		require.Equal(t, b.Content, got[b.ID].Content)

		none, err := ds.ReadRecords(ctx, nil)
		require.NoError(t, err)
		require.Empty(t, none)
	})
}

func RecordExistsTest(t *testing.T, ds storage.RawRepoDatastore) {
	ctx := context.Background()

	active := NewRecord("ex-1", 870970, record.MimeTypeMarcXchange, false)
	deleted := NewRecord("ex-1", 191919, record.MimeTypeEnrichment, true)
	writeRecords(t, ds, active, deleted)

	for _, tc := range []struct {
		name           string
		id             record.RecordID
		includeDeleted bool
		expected       bool
	}{
		{name: "active", id: active.ID, expected: true},
		{name: "active_including_deleted", id: active.ID, includeDeleted: true, expected: true},
		{name: "deleted", id: deleted.ID, expected: false},
		{name: "deleted_including_deleted", id: deleted.ID, includeDeleted: true, expected: true},
		{name: "missing", id: record.NewRecordID("ex-2", 870970), includeDeleted: true, expected: false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			exists, err := ds.RecordExists(ctx, tc.id, tc.includeDeleted)
			require.NoError(t, err)
			require.Equal(t, tc.expected, exists)
		})
	}
}

func ReadAgenciesForTest(t *testing.T, ds storage.RawRepoDatastore) {
	ctx := context.Background()

	writeRecords(t, ds,
		NewRecord("ag-1", 870970, record.MimeTypeMarcXchange, false),
		NewRecord("ag-1", 710100, record.MimeTypeEnrichment, false),
		NewRecord("ag-1", 191919, record.MimeTypeEnrichment, true),
	)

	agencies, err := ds.ReadAgenciesFor(ctx, "ag-1")
	require.NoError(t, err)
	require.Equal(t, []int{191919, 710100, 870970}, agencies)

	agencies, err = ds.ReadAgenciesFor(ctx, "ag-unknown")
	require.NoError(t, err)
	require.Empty(t, agencies)
}

func RelationsTest(t *testing.T, ds storage.RawRepoDatastore) {
	ctx := context.Background()

	head := NewRecord("rel-head", 870970, record.MimeTypeMarcXchange, false)
	volume := NewRecord("rel-volume", 870970, record.MimeTypeMarcXchange, false)
	enrichment := NewRecord("rel-volume", 191919, record.MimeTypeEnrichment, false)
	writeRecords(t, ds, head, volume, enrichment)

	require.NoError(t, ds.WriteRelations(ctx, volume.ID, []record.RecordID{head.ID}))
	require.NoError(t, ds.WriteRelations(ctx, enrichment.ID, []record.RecordID{volume.ID}))

	from, err := ds.ReadRelationsFrom(ctx, volume.ID)
	require.NoError(t, err)
	require.Equal(t, []record.RecordID{head.ID}, from)

	to, err := ds.ReadRelationsTo(ctx, head.ID)
	require.NoError(t, err)
	require.Equal(t, []record.RecordID{volume.ID}, to)

	to, err = ds.ReadRelationsTo(ctx, volume.ID)
	require.NoError(t, err)
	require.Equal(t, []record.RecordID{enrichment.ID}, to)

	// replacing the edges of a record
	require.NoError(t, ds.WriteRelations(ctx, volume.ID, nil))
	from, err = ds.ReadRelationsFrom(ctx, volume.ID)
	require.NoError(t, err)
	require.Empty(t, from)
}

func DeletedRecordDropsRelationsTest(t *testing.T, ds storage.RawRepoDatastore) {
	ctx := context.Background()

	common := NewRecord("del-rel", 870970, record.MimeTypeMarcXchange, false)
	enrichment := NewRecord("del-rel", 191919, record.MimeTypeEnrichment, false)
	writeRecords(t, ds, common, enrichment)
	require.NoError(t, ds.WriteRelations(ctx, enrichment.ID, []record.RecordID{common.ID}))

	enrichment.Deleted = true
	writeRecords(t, ds, enrichment)

	from, err := ds.ReadRelationsFrom(ctx, enrichment.ID)
	require.NoError(t, err)
	require.Empty(t, from)
}
