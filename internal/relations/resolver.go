// Package relations resolves parents, children and siblings of records. Active records
// use the persisted relation edges. Deleted records have no edges left, so their
// relations are derived from the record content and from which agencies hold the record.
package relations

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/dbcdk/rawrepo-record-service/pkg/agency"
	"github.com/dbcdk/rawrepo-record-service/pkg/hints"
	"github.com/dbcdk/rawrepo-record-service/pkg/logger"
	"github.com/dbcdk/rawrepo-record-service/pkg/record"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage"
)

var tracer = otel.Tracer("rawrepo/internal/relations")

func startTrace(ctx context.Context, name string, id record.RecordID) (context.Context, trace.Span) {
	return tracer.Start(ctx, "relations."+name, trace.WithAttributes(
		attribute.String("bibliographic_record_id", id.BibliographicRecordID),
		attribute.Int("agency_id", id.AgencyID),
	))
}

// Store is the part of the datastore the resolver reads from.
type Store interface {
	storage.RecordReader
	storage.RelationReader
}

// Resolver answers relation queries. It holds no per request state and is safe for
// concurrent use.
type Resolver struct {
	store     Store
	hints     hints.Provider
	policy    agency.Policy
	extractor *Extractor
	logger    logger.Logger
}

type ResolverOption func(*Resolver)

// WithPolicy overrides the agency policy table. The default is [agency.Default].
func WithPolicy(policy agency.Policy) ResolverOption {
	return func(r *Resolver) {
		r.policy = policy
	}
}

func WithLogger(l logger.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = l
	}
}

func NewResolver(store Store, hp hints.Provider, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		store:  store,
		hints:  hp,
		policy: agency.Default,
		logger: logger.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.extractor = NewExtractor(r.policy)
	return r
}

// Policy returns the agency policy table the resolver was built with.
func (r *Resolver) Policy() agency.Policy {
	return r.policy
}

// Hints returns the hints provider the resolver was built with.
func (r *Resolver) Hints() hints.Provider {
	return r.hints
}

// Relations is every relation of one record.
type Relations struct {
	ID             record.RecordID
	Parents        *record.Set
	Children       *record.Set
	SiblingsFromMe *record.Set
	SiblingsToMe   *record.Set
}

// IsActive reports whether the record exists and is not deleted.
func (r *Resolver) IsActive(ctx context.Context, id record.RecordID) (bool, error) {
	active, err := r.store.RecordExists(ctx, id, false)
	if err != nil {
		return false, fmt.Errorf("check record %s: %w", id, err)
	}
	return active, nil
}

// ResolveAgency finds the agency whose copy of bibID is the base for originAgency.
// Agencies in a common record scheme try their candidate agencies in priority order;
// other agencies resolve to themselves. It fails with [storage.ErrNotFound] when no
// copy exists. With allowDeleted deleted copies count as existing.
func (r *Resolver) ResolveAgency(ctx context.Context, bibID string, originAgency int, allowDeleted bool) (int, error) {
	ctx, span := startTrace(ctx, "ResolveAgency", record.NewRecordID(bibID, originAgency))
	defer span.End()

	h, err := r.hints.Get(ctx, originAgency)
	if err != nil {
		return 0, fmt.Errorf("hints for agency %d: %w", originAgency, err)
	}

	if h.UsesCommonAgency {
		for _, candidate := range h.CandidateCommonAgencies {
			exists, err := r.store.RecordExists(ctx, record.NewRecordID(bibID, candidate), allowDeleted)
			if err != nil {
				return 0, err
			}
			if exists {
				return candidate, nil
			}
		}
	}

	id := record.NewRecordID(bibID, originAgency)
	exists, err := r.store.RecordExists(ctx, id, allowDeleted)
	if err != nil {
		return 0, err
	}
	if exists {
		return originAgency, nil
	}
	return 0, storage.RecordNotFoundError(id)
}

// ResolveParentAgency is ResolveAgency counting deleted copies as existing.
func (r *Resolver) ResolveParentAgency(ctx context.Context, bibID string, originAgency int) (int, error) {
	return r.ResolveAgency(ctx, bibID, originAgency, true)
}

// GetParents returns the records id depends on. Sibling edges, which share the
// bibliographic id, are not parents.
func (r *Resolver) GetParents(ctx context.Context, id record.RecordID) (*record.Set, error) {
	ctx, span := startTrace(ctx, "GetParents", id)
	defer span.End()

	active, err := r.IsActive(ctx, id)
	if err != nil {
		return nil, err
	}
	if active {
		refers, err := r.store.ReadRelationsFrom(ctx, id)
		if err != nil {
			return nil, err
		}
		return otherBib(id, refers), nil
	}

	if id.AgencyID == agency.DBCEnrichmentAgency {
		return record.NewSet(), nil
	}

	rec, err := r.store.ReadRecord(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return record.NewSet(), nil
		}
		return nil, err
	}
	parents, err := r.extractor.Parents(id, rec.Content)
	if err != nil {
		return nil, fmt.Errorf("extract parents of %s: %w", id, err)
	}
	r.logger.DebugWithContext(ctx, "derived parents of deleted record",
		zap.Stringer("record_id", id),
		zap.Int("parents", parents.Len()))
	return parents, nil
}

// GetChildren returns the records depending on id. Deleted records have no children.
func (r *Resolver) GetChildren(ctx context.Context, id record.RecordID) (*record.Set, error) {
	ctx, span := startTrace(ctx, "GetChildren", id)
	defer span.End()

	active, err := r.IsActive(ctx, id)
	if err != nil || !active {
		return record.NewSet(), err
	}
	refs, err := r.store.ReadRelationsTo(ctx, id)
	if err != nil {
		return nil, err
	}
	return otherBib(id, refs), nil
}

// GetSiblingsFromMe returns the other agencies' copies id overlays, most relevant first.
// For deleted records these are the agencies from the priority list that hold the record.
func (r *Resolver) GetSiblingsFromMe(ctx context.Context, id record.RecordID) (*record.Set, error) {
	ctx, span := startTrace(ctx, "GetSiblingsFromMe", id)
	defer span.End()

	active, err := r.IsActive(ctx, id)
	if err != nil {
		return nil, err
	}
	if active {
		refers, err := r.store.ReadRelationsFrom(ctx, id)
		if err != nil {
			return nil, err
		}
		return sameBib(id, refers), nil
	}

	h, err := r.hints.Get(ctx, id.AgencyID)
	if err != nil {
		return nil, fmt.Errorf("hints for agency %d: %w", id.AgencyID, err)
	}
	holders, err := r.holders(ctx, id.BibliographicRecordID)
	if err != nil {
		return nil, err
	}

	siblings := record.NewSet()
	for _, a := range h.AgencyPriority {
		if a == id.AgencyID || !holders.Contains(a) {
			continue
		}
		siblings.Add(record.NewRecordID(id.BibliographicRecordID, a))
	}
	return siblings, nil
}

// GetSiblingsToMe returns the other agencies' copies overlaying id. For deleted records
// only common agencies have any: every other agency holding the record.
func (r *Resolver) GetSiblingsToMe(ctx context.Context, id record.RecordID) (*record.Set, error) {
	ctx, span := startTrace(ctx, "GetSiblingsToMe", id)
	defer span.End()

	active, err := r.IsActive(ctx, id)
	if err != nil {
		return nil, err
	}
	if active {
		refs, err := r.store.ReadRelationsTo(ctx, id)
		if err != nil {
			return nil, err
		}
		return sameBib(id, refs), nil
	}

	siblings := record.NewSet()
	if !r.policy.IsCommon(id.AgencyID) {
		return siblings, nil
	}
	holders, err := r.holders(ctx, id.BibliographicRecordID)
	if err != nil {
		return nil, err
	}
	for _, a := range holders.Values() {
		if a != id.AgencyID {
			siblings.Add(record.NewRecordID(id.BibliographicRecordID, a))
		}
	}
	return siblings, nil
}

// IsParentActive reports whether a parent of the record in the requested or the
// resolved agency is still active. A deleted parent counts when one of its own parents
// is active, so a volume stays live under a deleted section of a live head. A record
// without such parents has no active parent.
func (r *Resolver) IsParentActive(ctx context.Context, bibID string, agencyID int) (bool, error) {
	ctx, span := startTrace(ctx, "IsParentActive", record.NewRecordID(bibID, agencyID))
	defer span.End()

	visited := map[record.RecordID]struct{}{record.NewRecordID(bibID, agencyID): {}}
	return r.isParentActive(ctx, bibID, agencyID, visited)
}

func (r *Resolver) isParentActive(ctx context.Context, bibID string, agencyID int, visited map[record.RecordID]struct{}) (bool, error) {
	resolved, err := r.ResolveParentAgency(ctx, bibID, agencyID)
	if err != nil {
		return false, err
	}
	parents, err := r.GetParents(ctx, record.NewRecordID(bibID, resolved))
	if err != nil {
		return false, err
	}

	for _, p := range parents.Values() {
		if p.AgencyID != agencyID && p.AgencyID != resolved {
			continue
		}
		if _, seen := visited[p]; seen {
			continue
		}
		visited[p] = struct{}{}

		_, err := r.ResolveAgency(ctx, p.BibliographicRecordID, p.AgencyID, false)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return false, err
		}

		active, err := r.isParentActive(ctx, p.BibliographicRecordID, p.AgencyID, visited)
		switch {
		case err == nil && active:
			return true, nil
		case err == nil, errors.Is(err, storage.ErrNotFound):
			continue
		default:
			return false, err
		}
	}
	return false, nil
}

// GetRelations collects every relation of id.
func (r *Resolver) GetRelations(ctx context.Context, id record.RecordID) (*Relations, error) {
	ctx, span := startTrace(ctx, "GetRelations", id)
	defer span.End()

	exists, err := r.store.RecordExists(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, storage.RecordNotFoundError(id)
	}

	rel := &Relations{ID: id}
	if rel.Parents, err = r.GetParents(ctx, id); err != nil {
		return nil, err
	}
	if rel.Children, err = r.GetChildren(ctx, id); err != nil {
		return nil, err
	}
	if rel.SiblingsFromMe, err = r.GetSiblingsFromMe(ctx, id); err != nil {
		return nil, err
	}
	if rel.SiblingsToMe, err = r.GetSiblingsToMe(ctx, id); err != nil {
		return nil, err
	}
	return rel, nil
}

func (r *Resolver) holders(ctx context.Context, bibID string) (*record.AgencySet, error) {
	agencies, err := r.store.ReadAgenciesFor(ctx, bibID)
	if err != nil {
		return nil, err
	}
	return record.NewAgencySet(agencies...), nil
}

func sameBib(id record.RecordID, ids []record.RecordID) *record.Set {
	out := record.NewSet()
	for _, other := range ids {
		if other.BibliographicRecordID == id.BibliographicRecordID {
			out.Add(other)
		}
	}
	return out
}

func otherBib(id record.RecordID, ids []record.RecordID) *record.Set {
	out := record.NewSet()
	for _, other := range ids {
		if other.BibliographicRecordID != id.BibliographicRecordID {
			out.Add(other)
		}
	}
	return out
}
