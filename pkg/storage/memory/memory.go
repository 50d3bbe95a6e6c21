package memory

import (
	"context"
	"sort"
	"sync"

	"go.opentelemetry.io/otel"

	"github.com/dbcdk/rawrepo-record-service/pkg/agency"
	"github.com/dbcdk/rawrepo-record-service/pkg/record"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage"
)

var tracer = otel.Tracer("rawrepo/pkg/storage/memory")

type holding struct {
	bibliographicRecordID string
	agencyID              int
}

// MemoryBackend provides an ephemeral memory-backed implementation of [storage.RawRepoDatastore].
// It is used by tests and by the seed tooling; nothing survives a restart.
type MemoryBackend struct {
	records      map[record.RecordID]*record.Record // GUARDED_BY(mutexRecords).
	mutexRecords sync.RWMutex

	// map: record id => outgoing edges
	relations      map[record.RecordID][]record.RecordID // GUARDED_BY(mutexRelations).
	mutexRelations sync.RWMutex

	holdings      map[holding]struct{} // GUARDED_BY(mutexHoldings).
	mutexHoldings sync.RWMutex
}

// Ensures that [MemoryBackend] implements the [storage.RawRepoDatastore] interface.
var _ storage.RawRepoDatastore = (*MemoryBackend)(nil)

// New creates a new empty [MemoryBackend].
func New() *MemoryBackend {
	return &MemoryBackend{
		records:   make(map[record.RecordID]*record.Record),
		relations: make(map[record.RecordID][]record.RecordID),
		holdings:  make(map[holding]struct{}),
	}
}

// Close does not do anything for [MemoryBackend].
func (s *MemoryBackend) Close() {}

// IsReady see [storage.RawRepoDatastore].IsReady.
func (s *MemoryBackend) IsReady(context.Context) (storage.ReadinessStatus, error) {
	return storage.ReadinessStatus{IsReady: true}, nil
}

// RecordExists see [storage.RecordReader].RecordExists.
func (s *MemoryBackend) RecordExists(ctx context.Context, id record.RecordID, includeDeleted bool) (bool, error) {
	_, span := tracer.Start(ctx, "memory.RecordExists")
	defer span.End()

	s.mutexRecords.RLock()
	defer s.mutexRecords.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return false, nil
	}
	return includeDeleted || !rec.Deleted, nil
}

// ReadRecord see [storage.RecordReader].ReadRecord.
func (s *MemoryBackend) ReadRecord(ctx context.Context, id record.RecordID) (*record.Record, error) {
	_, span := tracer.Start(ctx, "memory.ReadRecord")
	defer span.End()

	s.mutexRecords.RLock()
	defer s.mutexRecords.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, storage.RecordNotFoundError(id)
	}
	return rec.Clone(), nil
}

// ReadRecords see [storage.RecordReader].ReadRecords.
func (s *MemoryBackend) ReadRecords(ctx context.Context, ids []record.RecordID) (map[record.RecordID]*record.Record, error) {
	_, span := tracer.Start(ctx, "memory.ReadRecords")
	defer span.End()

	s.mutexRecords.RLock()
	defer s.mutexRecords.RUnlock()

	res := make(map[record.RecordID]*record.Record, len(ids))
	for _, id := range ids {
		if rec, ok := s.records[id]; ok {
			res[id] = rec.Clone()
		}
	}
	return res, nil
}

// ReadAgenciesFor see [storage.RecordReader].ReadAgenciesFor.
func (s *MemoryBackend) ReadAgenciesFor(ctx context.Context, bibliographicRecordID string) ([]int, error) {
	_, span := tracer.Start(ctx, "memory.ReadAgenciesFor")
	defer span.End()

	s.mutexRecords.RLock()
	defer s.mutexRecords.RUnlock()

	var agencies []int
	for id := range s.records {
		if id.BibliographicRecordID == bibliographicRecordID {
			agencies = append(agencies, id.AgencyID)
		}
	}
	sort.Ints(agencies)
	return agencies, nil
}

// ReadRelationsFrom see [storage.RelationReader].ReadRelationsFrom.
func (s *MemoryBackend) ReadRelationsFrom(ctx context.Context, id record.RecordID) ([]record.RecordID, error) {
	_, span := tracer.Start(ctx, "memory.ReadRelationsFrom")
	defer span.End()

	s.mutexRelations.RLock()
	defer s.mutexRelations.RUnlock()

	res := append([]record.RecordID(nil), s.relations[id]...)
	sort.Slice(res, func(i, j int) bool { return record.Compare(res[i], res[j]) < 0 })
	return res, nil
}

// ReadRelationsTo see [storage.RelationReader].ReadRelationsTo.
func (s *MemoryBackend) ReadRelationsTo(ctx context.Context, id record.RecordID) ([]record.RecordID, error) {
	_, span := tracer.Start(ctx, "memory.ReadRelationsTo")
	defer span.End()

	s.mutexRelations.RLock()
	defer s.mutexRelations.RUnlock()

	var res []record.RecordID
	for from, refers := range s.relations {
		for _, refer := range refers {
			if refer == id {
				res = append(res, from)
			}
		}
	}
	sort.Slice(res, func(i, j int) bool { return record.Compare(res[i], res[j]) < 0 })
	return res, nil
}

// WriteRecord see [storage.RecordWriter].WriteRecord.
func (s *MemoryBackend) WriteRecord(ctx context.Context, rec *record.Record) error {
	_, span := tracer.Start(ctx, "memory.WriteRecord")
	defer span.End()

	stored := rec.Clone()
	stored.TrackingID = rec.TrackingIDOrNew()

	s.mutexRecords.Lock()
	s.records[rec.ID] = stored
	s.mutexRecords.Unlock()

	if rec.Deleted {
		s.mutexRelations.Lock()
		delete(s.relations, rec.ID)
		s.mutexRelations.Unlock()
	}
	return nil
}

// WriteRelations see [storage.RecordWriter].WriteRelations.
func (s *MemoryBackend) WriteRelations(ctx context.Context, id record.RecordID, refers []record.RecordID) error {
	_, span := tracer.Start(ctx, "memory.WriteRelations")
	defer span.End()

	s.mutexRelations.Lock()
	defer s.mutexRelations.Unlock()

	if len(refers) == 0 {
		delete(s.relations, id)
		return nil
	}
	s.relations[id] = append([]record.RecordID(nil), refers...)
	return nil
}

// WriteHolding see [storage.RecordWriter].WriteHolding.
func (s *MemoryBackend) WriteHolding(ctx context.Context, bibliographicRecordID string, agencyID int) error {
	_, span := tracer.Start(ctx, "memory.WriteHolding")
	defer span.End()

	s.mutexHoldings.Lock()
	defer s.mutexHoldings.Unlock()

	s.holdings[holding{bibliographicRecordID, agencyID}] = struct{}{}
	return nil
}

// ReadDump see [storage.DumpReader].ReadDump. The rows are computed eagerly.
func (s *MemoryBackend) ReadDump(ctx context.Context, q storage.DumpQuery) (storage.DumpIterator, error) {
	_, span := tracer.Start(ctx, "memory.ReadDump")
	defer span.End()

	s.mutexRecords.RLock()
	defer s.mutexRecords.RUnlock()

	var rows []*storage.DumpRow
	switch q.Kind {
	case storage.DumpDBC:
		for _, rec := range s.agencyRecords(q.AgencyID) {
			if !matches(rec, q) {
				continue
			}
			rows = append(rows, &storage.DumpRow{
				BibliographicRecordID: rec.ID.BibliographicRecordID,
				AgencyID:              q.AgencyID,
				Local:                 s.lookup(rec.ID.BibliographicRecordID, agency.DBCEnrichmentAgency),
				Common:                rec.Clone(),
			})
		}

	case storage.DumpFBS:
		own := s.agencyRecords(q.AgencyID)
		if q.Selects(storage.SelectEnrichment) {
			for _, rec := range own {
				if rec.MimeType == record.MimeTypeEnrichment && matches(rec, q) {
					rows = append(rows, &storage.DumpRow{
						BibliographicRecordID: rec.ID.BibliographicRecordID,
						AgencyID:              q.AgencyID,
						Local:                 rec.Clone(),
						Common:                s.lookup(rec.ID.BibliographicRecordID, agency.CommonAgency),
					})
				}
			}
		}
		if q.Selects(storage.SelectLocal) {
			for _, rec := range own {
				if rec.MimeType != record.MimeTypeEnrichment && matches(rec, q) {
					rows = append(rows, &storage.DumpRow{
						BibliographicRecordID: rec.ID.BibliographicRecordID,
						AgencyID:              q.AgencyID,
						Local:                 rec.Clone(),
					})
				}
			}
		}
		if q.Selects(storage.SelectHoldings) {
			rows = append(rows, s.holdingRows(q)...)
		}

	default:
		for _, rec := range s.agencyRecords(q.AgencyID) {
			if matches(rec, q) {
				rows = append(rows, &storage.DumpRow{
					BibliographicRecordID: rec.ID.BibliographicRecordID,
					AgencyID:              q.AgencyID,
					Local:                 rec.Clone(),
				})
			}
		}
	}

	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	return storage.NewStaticIterator(rows), nil
}

func (s *MemoryBackend) holdingRows(q storage.DumpQuery) []*storage.DumpRow {
	s.mutexHoldings.RLock()
	defer s.mutexHoldings.RUnlock()

	var bibIDs []string
	for h := range s.holdings {
		if h.agencyID != q.AgencyID {
			continue
		}
		if _, own := s.records[record.NewRecordID(h.bibliographicRecordID, h.agencyID)]; own {
			continue
		}
		bibIDs = append(bibIDs, h.bibliographicRecordID)
	}
	sort.Strings(bibIDs)

	var rows []*storage.DumpRow
	for _, bibID := range bibIDs {
		common, ok := s.records[record.NewRecordID(bibID, agency.CommonAgency)]
		if !ok || !matches(common, q) {
			continue
		}
		rows = append(rows, &storage.DumpRow{
			BibliographicRecordID: bibID,
			AgencyID:              q.AgencyID,
			Common:                common.Clone(),
		})
	}
	return rows
}

// agencyRecords returns the records of agencyID ordered by bibliographic id. Callers hold mutexRecords.
func (s *MemoryBackend) agencyRecords(agencyID int) []*record.Record {
	var recs []*record.Record
	for id, rec := range s.records {
		if id.AgencyID == agencyID {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].ID.BibliographicRecordID < recs[j].ID.BibliographicRecordID
	})
	return recs
}

func (s *MemoryBackend) lookup(bibID string, agencyID int) *record.Record {
	return s.records[record.NewRecordID(bibID, agencyID)].Clone()
}

func matches(rec *record.Record, q storage.DumpQuery) bool {
	switch q.Status {
	case storage.StatusActive:
		if rec.Deleted {
			return false
		}
	case storage.StatusDeleted:
		if !rec.Deleted {
			return false
		}
	}
	if q.CreatedFrom != nil && rec.Created.Before(*q.CreatedFrom) {
		return false
	}
	if q.CreatedTo != nil && rec.Created.After(*q.CreatedTo) {
		return false
	}
	if q.ModifiedFrom != nil && rec.Modified.Before(*q.ModifiedFrom) {
		return false
	}
	if q.ModifiedTo != nil && rec.Modified.After(*q.ModifiedTo) {
		return false
	}
	return true
}
