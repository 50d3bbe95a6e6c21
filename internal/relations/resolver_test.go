package relations

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/dbcdk/rawrepo-record-service/pkg/agency"
	"github.com/dbcdk/rawrepo-record-service/pkg/hints"
	"github.com/dbcdk/rawrepo-record-service/pkg/marcx"
	"github.com/dbcdk/rawrepo-record-service/pkg/record"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage/memory"
)

const fbsAgency = 710100

func newTestResolver(t *testing.T) (*Resolver, *memory.MemoryBackend) {
	t.Helper()
	ds := memory.New()
	t.Cleanup(ds.Close)
	return NewResolver(ds, hints.NewStaticProvider(hints.WithEnrichmentAgencies(fbsAgency))), ds
}

func put(t *testing.T, ds *memory.MemoryBackend, bibID string, agencyID int, mimeType string, deleted bool, fields ...marcx.DataField) record.RecordID {
	t.Helper()
	id := record.NewRecordID(bibID, agencyID)
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, ds.WriteRecord(context.Background(), &record.Record{
		ID:       id,
		Content:  marcx.Encode(marcx.NewRecord(bibID, agencyID, fields...), ""),
		MimeType: mimeType,
		Deleted:  deleted,
		Created:  now,
		Modified: now,
	}))
	return id
}

func relate(t *testing.T, ds *memory.MemoryBackend, from record.RecordID, refers ...record.RecordID) {
	t.Helper()
	require.NoError(t, ds.WriteRelations(context.Background(), from, refers))
}

func requireSet(t *testing.T, expected []record.RecordID, actual *record.Set) {
	t.Helper()
	if diff := cmp.Diff(expected, actual.Values()); diff != "" {
		t.Fatalf("unexpected set (-want +got):\n%s", diff)
	}
}

func TestResolveAgency(t *testing.T) {
	ctx := context.Background()
	r, ds := newTestResolver(t)

	put(t, ds, "deleted-local", 820010, record.MimeTypeMarcXchange, true)
	put(t, ds, "active-local", 820010, record.MimeTypeMarcXchange, false)
	put(t, ds, "common", agency.CommonAgency, record.MimeTypeMarcXchange, false)
	put(t, ds, "deleted-common", agency.CommonAgency, record.MimeTypeMarcXchange, true)
	put(t, ds, "enriched", agency.CommonAgency, record.MimeTypeMarcXchange, false)
	put(t, ds, "enriched", agency.DBCEnrichmentAgency, record.MimeTypeEnrichment, false)

	t.Run("plain_agency_resolves_to_itself_when_deleted", func(t *testing.T) {
		resolved, err := r.ResolveParentAgency(ctx, "deleted-local", 820010)
		require.NoError(t, err)
		require.Equal(t, 820010, resolved)
	})

	t.Run("plain_agency_resolves_to_itself_when_active", func(t *testing.T) {
		resolved, err := r.ResolveParentAgency(ctx, "active-local", 820010)
		require.NoError(t, err)
		require.Equal(t, 820010, resolved)

		resolved, err = r.ResolveAgency(ctx, "active-local", 820010, false)
		require.NoError(t, err)
		require.Equal(t, 820010, resolved)
	})

	t.Run("deleted_record_not_found_without_allow_deleted", func(t *testing.T) {
		_, err := r.ResolveAgency(ctx, "deleted-local", 820010, false)
		require.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("missing_record", func(t *testing.T) {
		_, err := r.ResolveParentAgency(ctx, "missing", 820010)
		require.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("fbs_agency_falls_back_to_common", func(t *testing.T) {
		resolved, err := r.ResolveAgency(ctx, "common", fbsAgency, false)
		require.NoError(t, err)
		require.Equal(t, agency.CommonAgency, resolved)
	})

	t.Run("candidates_tried_in_priority_order", func(t *testing.T) {
		resolved, err := r.ResolveAgency(ctx, "enriched", agency.DBCEnrichmentAgency, false)
		require.NoError(t, err)
		require.Equal(t, agency.DBCEnrichmentAgency, resolved)
	})

	t.Run("deleted_common_candidate", func(t *testing.T) {
		_, err := r.ResolveAgency(ctx, "deleted-common", fbsAgency, false)
		require.ErrorIs(t, err, storage.ErrNotFound)

		resolved, err := r.ResolveParentAgency(ctx, "deleted-common", fbsAgency)
		require.NoError(t, err)
		require.Equal(t, agency.CommonAgency, resolved)
	})
}

func TestGetParents(t *testing.T) {
	ctx := context.Background()
	r, ds := newTestResolver(t)

	t.Run("authority_field_of_deleted_record", func(t *testing.T) {
		id := put(t, ds, "aut-link", agency.CommonAgency, record.MimeTypeMarcXchange, true,
			marcx.NewField("245", "a", "Title"),
			marcx.NewField("100", "5", "870979", "6", "69208045"),
		)
		parents, err := r.GetParents(ctx, id)
		require.NoError(t, err)
		requireSet(t, []record.RecordID{record.NewRecordID("69208045", agency.AuthorityAgency)}, parents)
	})

	t.Run("authority_field_needs_both_subfields", func(t *testing.T) {
		id := put(t, ds, "aut-half", agency.CommonAgency, record.MimeTypeMarcXchange, true,
			marcx.NewField("700", "5", "870979"),
			marcx.NewField("600", "6", "12345678"),
		)
		parents, err := r.GetParents(ctx, id)
		require.NoError(t, err)
		require.True(t, parents.Empty())
	})

	t.Run("hierarchy_field_same_agency", func(t *testing.T) {
		id := put(t, ds, "volume", 820010, record.MimeTypeMarcXchange, true,
			marcx.NewField("014", "a", "head"),
		)
		parents, err := r.GetParents(ctx, id)
		require.NoError(t, err)
		requireSet(t, []record.RecordID{record.NewRecordID("head", 820010)}, parents)
	})

	t.Run("hierarchy_field_alternate_relation", func(t *testing.T) {
		id := put(t, ds, "review", 820010, record.MimeTypeMarcXchange, true,
			marcx.NewField("014", "a", "reviewed", "x", "ANM"),
		)
		parents, err := r.GetParents(ctx, id)
		require.NoError(t, err)
		requireSet(t, []record.RecordID{record.NewRecordID("reviewed", agency.CommonAgency)}, parents)
	})

	t.Run("analysis_fields_only_for_lit_analysis_agency", func(t *testing.T) {
		fields := []marcx.DataField{
			marcx.NewField("016", "a", "analysed", "5", "870970"),
			marcx.NewField("017", "a", "series"),
		}
		id := put(t, ds, "analysis", agency.LittolkAgency, record.MimeTypeLitAnalysis, true, fields...)
		parents, err := r.GetParents(ctx, id)
		require.NoError(t, err)
		requireSet(t, []record.RecordID{
			record.NewRecordID("analysed", agency.CommonAgency),
			record.NewRecordID("series", agency.LittolkAgency),
		}, parents)

		other := put(t, ds, "analysis", 820010, record.MimeTypeMarcXchange, true, fields...)
		parents, err = r.GetParents(ctx, other)
		require.NoError(t, err)
		require.True(t, parents.Empty())
	})

	t.Run("enrichment_agency_never_has_parents", func(t *testing.T) {
		id := put(t, ds, "dbc-enrichment", agency.DBCEnrichmentAgency, record.MimeTypeEnrichment, true,
			marcx.NewField("014", "a", "head"),
			marcx.NewField("100", "5", "870979", "6", "69208045"),
		)
		parents, err := r.GetParents(ctx, id)
		require.NoError(t, err)
		require.True(t, parents.Empty())
	})

	t.Run("active_record_uses_persisted_edges", func(t *testing.T) {
		head := put(t, ds, "active-head", agency.CommonAgency, record.MimeTypeMarcXchange, false)
		vol := put(t, ds, "active-volume", agency.CommonAgency, record.MimeTypeMarcXchange, false,
			marcx.NewField("014", "a", "ignored"),
		)
		enrichment := put(t, ds, "active-volume", agency.DBCEnrichmentAgency, record.MimeTypeEnrichment, false)
		relate(t, ds, vol, head)
		relate(t, ds, enrichment, vol)

		parents, err := r.GetParents(ctx, vol)
		require.NoError(t, err)
		requireSet(t, []record.RecordID{head}, parents)

		// a sibling edge is not a parent
		parents, err = r.GetParents(ctx, enrichment)
		require.NoError(t, err)
		require.True(t, parents.Empty())

		children, err := r.GetChildren(ctx, head)
		require.NoError(t, err)
		requireSet(t, []record.RecordID{vol}, children)
	})

	t.Run("missing_record_has_no_parents", func(t *testing.T) {
		parents, err := r.GetParents(ctx, record.NewRecordID("nothing", 820010))
		require.NoError(t, err)
		require.True(t, parents.Empty())
	})
}

func TestIsParentActive(t *testing.T) {
	ctx := context.Background()

	t.Run("active_parent", func(t *testing.T) {
		r, ds := newTestResolver(t)
		put(t, ds, "head", 820010, record.MimeTypeMarcXchange, false)
		put(t, ds, "volume", 820010, record.MimeTypeMarcXchange, true, marcx.NewField("014", "a", "head"))

		active, err := r.IsParentActive(ctx, "volume", 820010)
		require.NoError(t, err)
		require.True(t, active)
	})

	t.Run("inactive_parent", func(t *testing.T) {
		r, ds := newTestResolver(t)
		put(t, ds, "head", 820010, record.MimeTypeMarcXchange, true)
		put(t, ds, "volume", 820010, record.MimeTypeMarcXchange, true, marcx.NewField("014", "a", "head"))

		active, err := r.IsParentActive(ctx, "volume", 820010)
		require.NoError(t, err)
		require.False(t, active)
	})

	t.Run("no_parents", func(t *testing.T) {
		r, ds := newTestResolver(t)
		put(t, ds, "volume", 820010, record.MimeTypeMarcXchange, true)

		active, err := r.IsParentActive(ctx, "volume", 820010)
		require.NoError(t, err)
		require.False(t, active)
	})

	t.Run("parent_in_other_agency_is_ignored", func(t *testing.T) {
		r, ds := newTestResolver(t)
		put(t, ds, "head", agency.CommonAgency, record.MimeTypeMarcXchange, false)
		put(t, ds, "volume", 820010, record.MimeTypeMarcXchange, true,
			marcx.NewField("014", "a", "head", "x", "DEB"))

		active, err := r.IsParentActive(ctx, "volume", 820010)
		require.NoError(t, err)
		require.False(t, active)
	})

	t.Run("deleted_parent_with_active_parent", func(t *testing.T) {
		r, ds := newTestResolver(t)
		put(t, ds, "head", 820010, record.MimeTypeMarcXchange, false)
		put(t, ds, "section", 820010, record.MimeTypeMarcXchange, true, marcx.NewField("014", "a", "head"))
		put(t, ds, "volume", 820010, record.MimeTypeMarcXchange, true, marcx.NewField("014", "a", "section"))

		active, err := r.IsParentActive(ctx, "volume", 820010)
		require.NoError(t, err)
		require.True(t, active)
	})

	t.Run("dangling_parent", func(t *testing.T) {
		r, ds := newTestResolver(t)
		put(t, ds, "volume", 820010, record.MimeTypeMarcXchange, true, marcx.NewField("014", "a", "gone"))

		active, err := r.IsParentActive(ctx, "volume", 820010)
		require.NoError(t, err)
		require.False(t, active)
	})

	t.Run("parent_cycle_ends", func(t *testing.T) {
		r, ds := newTestResolver(t)
		put(t, ds, "a", 820010, record.MimeTypeMarcXchange, true, marcx.NewField("014", "a", "b"))
		put(t, ds, "b", 820010, record.MimeTypeMarcXchange, true, marcx.NewField("014", "a", "a"))

		active, err := r.IsParentActive(ctx, "a", 820010)
		require.NoError(t, err)
		require.False(t, active)
	})

	t.Run("missing_record", func(t *testing.T) {
		r, _ := newTestResolver(t)
		_, err := r.IsParentActive(ctx, "volume", 820010)
		require.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestSiblings(t *testing.T) {
	ctx := context.Background()

	t.Run("active_records_use_persisted_edges", func(t *testing.T) {
		r, ds := newTestResolver(t)
		common := put(t, ds, "b1", agency.CommonAgency, record.MimeTypeMarcXchange, false)
		enrichment := put(t, ds, "b1", fbsAgency, record.MimeTypeEnrichment, false)
		relate(t, ds, enrichment, common)

		from, err := r.GetSiblingsFromMe(ctx, enrichment)
		require.NoError(t, err)
		requireSet(t, []record.RecordID{common}, from)

		to, err := r.GetSiblingsToMe(ctx, common)
		require.NoError(t, err)
		requireSet(t, []record.RecordID{enrichment}, to)

		from, err = r.GetSiblingsFromMe(ctx, common)
		require.NoError(t, err)
		require.True(t, from.Empty())
	})

	t.Run("deleted_records_use_priority_and_holders", func(t *testing.T) {
		r, ds := newTestResolver(t)
		put(t, ds, "00199087", agency.CommonAgency, record.MimeTypeMarcXchange, true)
		put(t, ds, "00199087", agency.DBCEnrichmentAgency, record.MimeTypeEnrichment, true)
		put(t, ds, "00199087", fbsAgency, record.MimeTypeEnrichment, true)
		put(t, ds, "00199087", 820010, record.MimeTypeMarcXchange, true)

		from, err := r.GetSiblingsFromMe(ctx, record.NewRecordID("00199087", agency.DBCEnrichmentAgency))
		require.NoError(t, err)
		requireSet(t, []record.RecordID{record.NewRecordID("00199087", agency.CommonAgency)}, from)

		from, err = r.GetSiblingsFromMe(ctx, record.NewRecordID("00199087", agency.CommonAgency))
		require.NoError(t, err)
		require.True(t, from.Empty())

		to, err := r.GetSiblingsToMe(ctx, record.NewRecordID("00199087", agency.CommonAgency))
		require.NoError(t, err)
		requireSet(t, []record.RecordID{
			record.NewRecordID("00199087", agency.DBCEnrichmentAgency),
			record.NewRecordID("00199087", fbsAgency),
			record.NewRecordID("00199087", 820010),
		}, to)

		// only common agencies have siblings pointing to a deleted record
		to, err = r.GetSiblingsToMe(ctx, record.NewRecordID("00199087", 820010))
		require.NoError(t, err)
		require.True(t, to.Empty())
	})
}

func TestGetRelations(t *testing.T) {
	ctx := context.Background()
	r, ds := newTestResolver(t)

	head := put(t, ds, "head", agency.CommonAgency, record.MimeTypeMarcXchange, false)
	vol := put(t, ds, "vol", agency.CommonAgency, record.MimeTypeMarcXchange, false)
	enrichment := put(t, ds, "vol", agency.DBCEnrichmentAgency, record.MimeTypeEnrichment, false)
	relate(t, ds, vol, head)
	relate(t, ds, enrichment, vol)

	rel, err := r.GetRelations(ctx, vol)
	require.NoError(t, err)
	require.Equal(t, vol, rel.ID)
	requireSet(t, []record.RecordID{head}, rel.Parents)
	require.True(t, rel.Children.Empty())
	require.True(t, rel.SiblingsFromMe.Empty())
	requireSet(t, []record.RecordID{enrichment}, rel.SiblingsToMe)

	_, err = r.GetRelations(ctx, record.NewRecordID("missing", agency.CommonAgency))
	require.ErrorIs(t, err, storage.ErrNotFound)
}
