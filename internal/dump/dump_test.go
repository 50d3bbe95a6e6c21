package dump

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"

	"github.com/dbcdk/rawrepo-record-service/internal/expand"
	"github.com/dbcdk/rawrepo-record-service/internal/merger"
	"github.com/dbcdk/rawrepo-record-service/internal/mocks"
	"github.com/dbcdk/rawrepo-record-service/internal/relations"
	"github.com/dbcdk/rawrepo-record-service/pkg/agency"
	"github.com/dbcdk/rawrepo-record-service/pkg/hints"
	"github.com/dbcdk/rawrepo-record-service/pkg/logger"
	"github.com/dbcdk/rawrepo-record-service/pkg/marcx"
	"github.com/dbcdk/rawrepo-record-service/pkg/record"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage/memory"
)

type dumpStore interface {
	storage.RecordReader
	storage.RelationReader
	storage.DumpReader
}

func newDumper(store dumpStore, opts ...DumperOption) *Dumper {
	resolver := relations.NewResolver(store, hints.NewStaticProvider(hints.WithEnrichmentAgencies(fbsAgency)))
	engine := merger.NewEngine(store, resolver)
	return NewDumper(store, engine, expand.NewExpander(store, resolver), opts...)
}

func store(t *testing.T, ds *memory.MemoryBackend, bibID string, agencyID int, mimeType string, fields ...marcx.DataField) *record.Record {
	t.Helper()
	rec := newRecord(bibID, agencyID, fields...)
	rec.MimeType = mimeType
	require.NoError(t, ds.WriteRecord(context.Background(), rec))
	return rec
}

func TestRunRejectsInvalidRequestsBeforeReading(t *testing.T) {
	ctrl := gomock.NewController(t)
	// no expectations: any datastore call fails the test
	ds := mocks.NewMockRawRepoDatastore(ctrl)
	d := newDumper(ds)

	var out bytes.Buffer
	_, err := d.Run(context.Background(), Params{
		Agencies: []int{agency.DBCEnrichmentAgency, agency.CommonAgency},
	}, &out)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Empty(t, out.String())
}

func TestRunConcurrentWorkers(t *testing.T) {
	t.Cleanup(func() {
		goleak.VerifyNone(t)
	})

	ds := memory.New()
	t.Cleanup(ds.Close)

	const total = 60
	for i := 0; i < total; i++ {
		bibID := fmt.Sprintf("5%07d", i)
		store(t, ds, bibID, agency.CommonAgency, record.MimeTypeMarcXchange,
			marcx.NewField("245", "a", fmt.Sprintf("Titel %d", i)))
		if i%3 == 0 {
			store(t, ds, bibID, agency.DBCEnrichmentAgency, record.MimeTypeEnrichment,
				marcx.NewField("s10", "a", "DBC"))
		}
	}

	out := &chunkWriter{}
	d := newDumper(ds, WithWorkers(8))
	result, err := d.Run(context.Background(), Params{Agencies: []int{agency.CommonAgency}}, out)
	require.NoError(t, err)

	require.Equal(t, int64(total), result.Records)
	require.True(t, strings.HasPrefix(result.DumpID, "dump-"))
	require.Len(t, result.Agencies, 1)
	ar := result.Agencies[0]
	require.Equal(t, int64(total), ar.Processed)
	require.Zero(t, ar.Failed)
	require.Equal(t, int64(8), ar.WorkerExits[exitDone])

	// header, one chunk per record, footer
	require.Len(t, out.chunks, total+2)
	require.True(t, strings.HasPrefix(out.chunks[0], "<?xml"))
	require.Equal(t, collectionFooter, out.chunks[len(out.chunks)-1])
	for _, chunk := range out.chunks[1 : len(out.chunks)-1] {
		require.True(t, strings.HasPrefix(chunk, "<marcx:record"))
		require.True(t, strings.HasSuffix(chunk, "</marcx:record>\n"))
	}

	dump := out.String()
	require.Equal(t, 1, strings.Count(dump, "<marcx:collection"))
	require.Equal(t, total/3, strings.Count(dump, `tag="s10"`))
}

func TestRunWorkerFailureStopsOnlyThatWorker(t *testing.T) {
	t.Cleanup(func() {
		goleak.VerifyNone(t)
	})

	const local = 300101
	var rows []*storage.DumpRow
	for i := 0; i < 20; i++ {
		rec := newRecord(fmt.Sprintf("6%07d", i), local)
		rows = append(rows, &storage.DumpRow{
			BibliographicRecordID: rec.ID.BibliographicRecordID,
			AgencyID:              local,
			Local:                 rec,
		})
	}

	t.Run("cursor_error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		ds := mocks.NewMockRawRepoDatastore(ctrl)
		ds.EXPECT().ReadDump(gomock.Any(), gomock.Any()).Return(mocks.NewErrorIterator(rows, 2), nil)

		var out bytes.Buffer
		result, err := newDumper(ds, WithWorkers(4)).Run(context.Background(), Params{
			Agencies: []int{local},
			Format:   "LINE",
		}, &out)
		require.NoError(t, err)
		require.Equal(t, int64(len(rows)), result.Records)
		require.Equal(t, len(rows), strings.Count(out.String(), "$\n"))

		ar := result.Agencies[0]
		require.Equal(t, int64(1), ar.WorkerExits[exitError])
		require.Equal(t, int64(3), ar.WorkerExits[exitDone])
	})

	t.Run("record_error", func(t *testing.T) {
		broken := &storage.DumpRow{
			BibliographicRecordID: "69999999",
			AgencyID:              local,
			Local:                 &record.Record{ID: record.NewRecordID("69999999", local), Content: []byte("not marc")},
		}
		withBroken := append([]*storage.DumpRow{broken}, rows...)

		ctrl := gomock.NewController(t)
		ds := mocks.NewMockRawRepoDatastore(ctrl)
		ds.EXPECT().ReadDump(gomock.Any(), gomock.Any()).Return(storage.NewStaticIterator(withBroken), nil)

		log, logs := logger.NewObserverLogger("error")

		var out bytes.Buffer
		result, err := newDumper(ds, WithWorkers(4), WithLogger(log)).Run(context.Background(), Params{
			Agencies: []int{local},
			Format:   "LINE",
		}, &out)
		require.NoError(t, err)
		require.Equal(t, int64(len(rows)), result.Records)

		ar := result.Agencies[0]
		require.Equal(t, int64(1), ar.Failed)
		require.Equal(t, int64(1), ar.WorkerExits[exitError])
		require.NotContains(t, out.String(), "69999999")

		require.Equal(t, 1, logs.Len())
		entries := logs.FilterMessage("dumping record failed").FilterFieldKey("worker").All()
		require.Len(t, entries, 1)
		fields := entries[0].ContextMap()
		require.Equal(t, fmt.Sprintf("69999999:%d", local), fields["record_id"])
		require.Equal(t, result.DumpID, fields["dump_id"])
		require.Equal(t, int64(local), fields["agency_id"])
		require.Contains(t, fields, "worker")
	})
}

func TestRunOpenCursorFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	ds := mocks.NewMockRawRepoDatastore(ctrl)
	ds.EXPECT().ReadDump(gomock.Any(), gomock.Any()).Return(nil, fmt.Errorf("connection refused"))

	var out bytes.Buffer
	_, err := newDumper(ds).Run(context.Background(), Params{Agencies: []int{agency.CommonAgency}}, &out)
	require.ErrorContains(t, err, "connection refused")
	// the collection is still closed
	require.True(t, strings.HasSuffix(out.String(), collectionFooter))
}

func TestRunModes(t *testing.T) {
	ctx := context.Background()
	ds := memory.New()
	t.Cleanup(ds.Close)

	common := store(t, ds, "11111111", agency.CommonAgency, record.MimeTypeMarcXchange,
		marcx.NewField("245", "a", "Fælles titel"),
		marcx.NewField("100", "5", "870979", "6", "69208045"))
	aut := store(t, ds, "69208045", agency.AuthorityAgency, record.MimeTypeAuthority,
		marcx.NewField("100", "a", "Hansen", "h", "Jens"))
	require.NoError(t, ds.WriteRelations(ctx, common.ID, []record.RecordID{aut.ID}))

	enrichment := store(t, ds, "11111111", fbsAgency, record.MimeTypeEnrichment,
		marcx.NewField("504", "a", "Lokal note"))
	require.NoError(t, ds.WriteRelations(ctx, enrichment.ID, []record.RecordID{common.ID}))
	store(t, ds, "22222222", fbsAgency, record.MimeTypeMarcXchange,
		marcx.NewField("245", "a", "Lokal post"))

	store(t, ds, "33333333", agency.CommonAgency, record.MimeTypeMarcXchange,
		marcx.NewField("245", "a", "Beholdning"))
	require.NoError(t, ds.WriteHolding(ctx, "33333333", fbsAgency))

	run := func(t *testing.T, params Params) string {
		t.Helper()
		var out bytes.Buffer
		_, err := newDumper(ds).Run(ctx, params, &out)
		require.NoError(t, err)
		return out.String()
	}

	t.Run("fbs_merged", func(t *testing.T) {
		out := run(t, Params{
			Agencies:    []int{fbsAgency},
			RecordTypes: []string{"ENRICHMENT", "LOCAL", "HOLDINGS"},
			Format:      "LINE",
		})
		require.Equal(t, 3, strings.Count(out, "$\n"))
		require.Contains(t, out, "*aFælles titel")
		require.Contains(t, out, "*aLokal note")
		require.Contains(t, out, "*aLokal post")
		require.Contains(t, out, "*aBeholdning")
	})

	t.Run("fbs_raw", func(t *testing.T) {
		out := run(t, Params{
			Agencies:    []int{fbsAgency},
			RecordTypes: []string{"ENRICHMENT"},
			Mode:        "raw",
			Format:      "LINE",
		})
		require.Equal(t, 1, strings.Count(out, "$\n"))
		require.Contains(t, out, "*aLokal note")
		require.NotContains(t, out, "Fælles titel")
	})

	t.Run("expanded", func(t *testing.T) {
		out := run(t, Params{
			Agencies: []int{agency.CommonAgency},
			Mode:     "expanded",
			Format:   "LINE",
		})
		require.Contains(t, out, "*aHansen")
		require.NotContains(t, out, "*669208045")

		out = run(t, Params{
			Agencies:            []int{agency.CommonAgency},
			Mode:                "expanded",
			Format:              "LINE",
			KeepAuthorityFields: true,
		})
		require.Contains(t, out, "*aHansen")
		require.Contains(t, out, "*669208045")
	})

	t.Run("limit", func(t *testing.T) {
		out := run(t, Params{Agencies: []int{agency.CommonAgency}, Format: "LINE", Limit: 1})
		require.Equal(t, 1, strings.Count(out, "$\n"))
	})

	t.Run("modified_window", func(t *testing.T) {
		out := run(t, Params{
			Agencies:     []int{agency.CommonAgency},
			Format:       "LINE",
			ModifiedFrom: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC).Format(dateLayout),
		})
		require.Empty(t, out)
	})

	t.Run("danmarc2", func(t *testing.T) {
		out := run(t, Params{Agencies: []int{agency.CommonAgency}, Format: "LINE", Encoding: "DANMARC2"})
		require.Contains(t, out, "F@00E6lles titel")
	})
}
