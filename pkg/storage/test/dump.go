package test

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dbcdk/rawrepo-record-service/pkg/record"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage"
)

func byBibID(rows []*storage.DumpRow) []*storage.DumpRow {
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].BibliographicRecordID < rows[j].BibliographicRecordID
	})
	return rows
}

func DumpLocalTest(t *testing.T, ds storage.RawRepoDatastore) {
	ctx := context.Background()

	old := NewRecord("dl-1", 400001, record.MimeTypeMarcXchange, false)
	fresh := NewRecord("dl-2", 400001, record.MimeTypeMarcXchange, false)
	fresh.Modified = baseTime.Add(30 * 24 * time.Hour)
	gone := NewRecord("dl-3", 400001, record.MimeTypeMarcXchange, true)
	writeRecords(t, ds, old, fresh, gone)

	t.Run("active", func(t *testing.T) {
		iter, err := ds.ReadDump(ctx, storage.DumpQuery{AgencyID: 400001, Kind: storage.DumpLocal, Status: storage.StatusActive})
		require.NoError(t, err)
		rows := byBibID(drain(t, iter))
		require.Len(t, rows, 2)
		require.Equal(t, "dl-1", rows[0].BibliographicRecordID)
		require.Equal(t, 400001, rows[0].AgencyID)
		require.NotNil(t, rows[0].Local)
		require.Nil(t, rows[0].Common)
		require.Equal(t, old.Content, rows[0].Local.Content)
	})

	t.Run("deleted", func(t *testing.T) {
		iter, err := ds.ReadDump(ctx, storage.DumpQuery{AgencyID: 400001, Kind: storage.DumpLocal, Status: storage.StatusDeleted})
		require.NoError(t, err)
		rows := drain(t, iter)
		require.Len(t, rows, 1)
		require.True(t, rows[0].Local.Deleted)
	})

	t.Run("modified_range", func(t *testing.T) {
		from := baseTime.Add(7 * 24 * time.Hour)
		iter, err := ds.ReadDump(ctx, storage.DumpQuery{
			AgencyID:     400001,
			Kind:         storage.DumpLocal,
			Status:       storage.StatusAll,
			ModifiedFrom: &from,
		})
		require.NoError(t, err)
		rows := drain(t, iter)
		require.Len(t, rows, 1)
		require.Equal(t, "dl-2", rows[0].BibliographicRecordID)
	})

	t.Run("limit", func(t *testing.T) {
		iter, err := ds.ReadDump(ctx, storage.DumpQuery{AgencyID: 400001, Kind: storage.DumpLocal, Status: storage.StatusAll, Limit: 2})
		require.NoError(t, err)
		require.Len(t, drain(t, iter), 2)
	})

	t.Run("stop_is_idempotent", func(t *testing.T) {
		iter, err := ds.ReadDump(ctx, storage.DumpQuery{AgencyID: 400001, Kind: storage.DumpLocal, Status: storage.StatusAll})
		require.NoError(t, err)
		_, err = iter.Next(ctx)
		require.NoError(t, err)
		iter.Stop()
		iter.Stop()
		_, err = iter.Next(ctx)
		require.ErrorIs(t, err, storage.ErrIteratorDone)
	})
}

func DumpDBCTest(t *testing.T, ds storage.RawRepoDatastore) {
	ctx := context.Background()

	writeRecords(t, ds,
		NewRecord("dd-1", 870971, record.MimeTypeArticle, false),
		NewRecord("dd-1", 191919, record.MimeTypeEnrichment, false),
		NewRecord("dd-2", 870971, record.MimeTypeArticle, false),
	)

	iter, err := ds.ReadDump(ctx, storage.DumpQuery{AgencyID: 870971, Kind: storage.DumpDBC, Status: storage.StatusActive})
	require.NoError(t, err)
	rows := byBibID(drain(t, iter))
	require.Len(t, rows, 2)

	require.Equal(t, record.NewRecordID("dd-1", 870971), rows[0].Common.ID)
	require.Equal(t, record.NewRecordID("dd-1", 191919), rows[0].Local.ID)
	require.Equal(t, record.MimeTypeEnrichment, rows[0].Local.MimeType)

	require.Equal(t, record.NewRecordID("dd-2", 870971), rows[1].Common.ID)
	require.Nil(t, rows[1].Local)
}

func DumpFBSTest(t *testing.T, ds storage.RawRepoDatastore) {
	ctx := context.Background()

	const fbs = 710200
	writeRecords(t, ds,
		NewRecord("df-1", 870970, record.MimeTypeMarcXchange, false),
		NewRecord("df-1", fbs, record.MimeTypeEnrichment, false),
		NewRecord("df-2", fbs, record.MimeTypeMarcXchange, false),
		NewRecord("df-3", 870970, record.MimeTypeMarcXchange, false),
		NewRecord("df-4", 870970, record.MimeTypeMarcXchange, false),
	)
	require.NoError(t, ds.WriteHolding(ctx, "df-3", fbs))
	// holdings of an id the agency also has its own record for are covered by the record itself
	require.NoError(t, ds.WriteHolding(ctx, "df-1", fbs))
	require.NoError(t, ds.WriteHolding(ctx, "df-3", fbs))

	t.Run("all_types", func(t *testing.T) {
		iter, err := ds.ReadDump(ctx, storage.DumpQuery{AgencyID: fbs, Kind: storage.DumpFBS, Status: storage.StatusActive})
		require.NoError(t, err)
		rows := byBibID(drain(t, iter))
		require.Len(t, rows, 3)

		enrichment := rows[0]
		require.Equal(t, "df-1", enrichment.BibliographicRecordID)
		require.Equal(t, fbs, enrichment.Local.ID.AgencyID)
		require.Equal(t, 870970, enrichment.Common.ID.AgencyID)

		local := rows[1]
		require.Equal(t, "df-2", local.BibliographicRecordID)
		require.NotNil(t, local.Local)
		require.Nil(t, local.Common)

		holding := rows[2]
		require.Equal(t, "df-3", holding.BibliographicRecordID)
		require.Equal(t, fbs, holding.AgencyID)
		require.Nil(t, holding.Local)
		require.Equal(t, 870970, holding.Common.ID.AgencyID)
	})

	t.Run("enrichments_only", func(t *testing.T) {
		iter, err := ds.ReadDump(ctx, storage.DumpQuery{
			AgencyID:  fbs,
			Kind:      storage.DumpFBS,
			Selectors: []storage.RecordSelector{storage.SelectEnrichment},
			Status:    storage.StatusAll,
		})
		require.NoError(t, err)
		rows := drain(t, iter)
		require.Len(t, rows, 1)
		require.Equal(t, "df-1", rows[0].BibliographicRecordID)
	})
}
