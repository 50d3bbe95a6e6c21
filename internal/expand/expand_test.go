package expand

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dbcdk/rawrepo-record-service/internal/relations"
	"github.com/dbcdk/rawrepo-record-service/pkg/agency"
	"github.com/dbcdk/rawrepo-record-service/pkg/hints"
	"github.com/dbcdk/rawrepo-record-service/pkg/marcx"
	"github.com/dbcdk/rawrepo-record-service/pkg/record"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage/memory"
)

func setup(t *testing.T) (*Expander, *memory.MemoryBackend) {
	t.Helper()
	ds := memory.New()
	t.Cleanup(ds.Close)
	resolver := relations.NewResolver(ds, hints.NewStaticProvider())
	return NewExpander(ds, resolver), ds
}

func write(t *testing.T, ds *memory.MemoryBackend, bibID string, agencyID int, mimeType string, deleted bool, fields ...marcx.DataField) *record.Record {
	t.Helper()
	rec := &record.Record{
		ID:       record.NewRecordID(bibID, agencyID),
		Content:  marcx.Encode(marcx.NewRecord(bibID, agencyID, fields...), ""),
		MimeType: mimeType,
		Deleted:  deleted,
		Created:  time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Modified: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, ds.WriteRecord(context.Background(), rec))
	return rec
}

func authorityLink() marcx.DataField {
	return marcx.NewField("100", "5", "870979", "6", "69208045", "4", "aut")
}

func requireExpanded(t *testing.T, rec *record.Record, keepLinks bool) {
	t.Helper()
	content, err := marcx.Decode(rec.Content)
	require.NoError(t, err)
	fields := content.Fields("100")
	require.Len(t, fields, 1)

	name, ok := fields[0].Subfield("a")
	require.True(t, ok)
	require.Equal(t, "Hansen", name)
	_, hasLink := fields[0].Subfield("6")
	require.Equal(t, keepLinks, hasLink)
	role, _ := fields[0].Subfield("4")
	require.Equal(t, "aut", role)
}

func TestExpand(t *testing.T) {
	ctx := context.Background()

	t.Run("active_record_uses_persisted_parents", func(t *testing.T) {
		x, ds := setup(t)
		aut := write(t, ds, "69208045", agency.AuthorityAgency, record.MimeTypeAuthority, false,
			marcx.NewField("100", "a", "Hansen", "h", "Jens"))
		rec := write(t, ds, "11111111", agency.CommonAgency, record.MimeTypeMarcXchange, false, authorityLink())
		require.NoError(t, ds.WriteRelations(ctx, rec.ID, []record.RecordID{aut.ID}))

		expanded, err := x.Expand(ctx, rec, false)
		require.NoError(t, err)
		requireExpanded(t, expanded, false)

		expanded, err = x.Expand(ctx, rec, true)
		require.NoError(t, err)
		requireExpanded(t, expanded, true)

		// the input is not modified
		require.Equal(t, marcx.Encode(marcx.NewRecord("11111111", agency.CommonAgency, authorityLink()), ""), rec.Content)
	})

	t.Run("deleted_record_uses_content_links", func(t *testing.T) {
		x, ds := setup(t)
		write(t, ds, "69208045", agency.AuthorityAgency, record.MimeTypeAuthority, false,
			marcx.NewField("100", "a", "Hansen"))
		rec := write(t, ds, "22222222", agency.CommonAgency, record.MimeTypeMarcXchange, true, authorityLink())

		expanded, err := x.Expand(ctx, rec, false)
		require.NoError(t, err)
		requireExpanded(t, expanded, false)
	})

	t.Run("enrichment_expands_through_sibling", func(t *testing.T) {
		x, ds := setup(t)
		aut := write(t, ds, "69208045", agency.AuthorityAgency, record.MimeTypeAuthority, false,
			marcx.NewField("100", "a", "Hansen"))
		common := write(t, ds, "33333333", agency.CommonAgency, record.MimeTypeMarcXchange, false, authorityLink())
		enrichment := write(t, ds, "33333333", agency.DBCEnrichmentAgency, record.MimeTypeEnrichment, false)
		require.NoError(t, ds.WriteRelations(ctx, common.ID, []record.RecordID{aut.ID}))
		require.NoError(t, ds.WriteRelations(ctx, enrichment.ID, []record.RecordID{common.ID}))

		// a merged record carries the enrichment's id and the common record's fields
		merged := common.Clone()
		merged.ID = enrichment.ID

		expanded, err := x.Expand(ctx, merged, false)
		require.NoError(t, err)
		requireExpanded(t, expanded, false)
		require.Equal(t, enrichment.ID, expanded.ID)
	})

	t.Run("no_expandable_record", func(t *testing.T) {
		x, ds := setup(t)
		rec := write(t, ds, "44444444", 820010, record.MimeTypeMarcXchange, false, authorityLink())

		expanded, err := x.Expand(ctx, rec, false)
		require.NoError(t, err)
		require.Same(t, rec, expanded)
	})

	t.Run("missing_authority_record_leaves_link", func(t *testing.T) {
		x, ds := setup(t)
		rec := write(t, ds, "55555555", agency.CommonAgency, record.MimeTypeMarcXchange, true, authorityLink())

		expanded, err := x.Expand(ctx, rec, false)
		require.NoError(t, err)

		content, err := marcx.Decode(expanded.Content)
		require.NoError(t, err)
		id, ok := content.Fields("100")[0].Subfield("6")
		require.True(t, ok)
		require.Equal(t, "69208045", id)
	})
}
