// Package merger builds merged records. A merged record is the fold of a chain of
// copies of one bibliographic record, from the base (common) copy to the requested
// agency's copy.
package merger

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/dbcdk/rawrepo-record-service/internal/relations"
	"github.com/dbcdk/rawrepo-record-service/pkg/hints"
	"github.com/dbcdk/rawrepo-record-service/pkg/logger"
	"github.com/dbcdk/rawrepo-record-service/pkg/marcx"
	"github.com/dbcdk/rawrepo-record-service/pkg/record"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage"
)

var tracer = otel.Tracer("rawrepo/internal/merger")

// FetchOptions controls FetchMergedRecord.
type FetchOptions struct {
	// AllowDeleted falls back to deleted copies when no active copy resolves.
	AllowDeleted bool
	// UseParentAgency gives the result the base agency's id instead of the requested one.
	UseParentAgency bool
	// ExcludeDBCFields strips the private (non numeric) fields.
	ExcludeDBCFields bool
	// KeepOwnID keeps the requested agency's 001 for DBC and FBS agencies.
	KeepOwnID bool
}

type Engine struct {
	store    storage.RecordReader
	resolver *relations.Resolver
	policies policies
	logger   logger.Logger
}

type EngineOption func(*engineConfig)

type engineConfig struct {
	port   Port
	logger logger.Logger
}

// WithMergePort replaces the default marcx field merger.
func WithMergePort(port Port) EngineOption {
	return func(c *engineConfig) {
		c.port = port
	}
}

func WithLogger(l logger.Logger) EngineOption {
	return func(c *engineConfig) {
		c.logger = l
	}
}

func NewEngine(store storage.RecordReader, resolver *relations.Resolver, opts ...EngineOption) *Engine {
	cfg := &engineConfig{
		port:   marcx.NewFieldMerger(),
		logger: logger.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Engine{
		store:    store,
		resolver: resolver,
		policies: policies{
			defaultPolicy: NewDefaultPolicy(cfg.port),
			ownIDPolicy:   NewOverwriteOwnIDPolicy(cfg.port),
		},
		logger: cfg.logger,
	}
}

// Resolver returns the relation resolver the engine walks chains with.
func (e *Engine) Resolver() *relations.Resolver {
	return e.resolver
}

// DefaultPolicy is the policy used when the requested agency's id is not kept.
func (e *Engine) DefaultPolicy() *Policy {
	return e.policies.defaultPolicy
}

// SelectPolicy picks the merge policy for a request on behalf of agencyID.
func (e *Engine) SelectPolicy(ctx context.Context, keepOwnID bool, agencyID int) (*Policy, error) {
	if !keepOwnID {
		return e.policies.defaultPolicy, nil
	}
	t, err := hints.Classify(ctx, e.resolver.Hints(), e.resolver.Policy(), agencyID)
	if err != nil {
		return nil, fmt.Errorf("classify agency %d: %w", agencyID, err)
	}
	return e.policies.selectPolicy(keepOwnID, t), nil
}

// FetchMergedRecord returns the merged record of bibID as seen by agencyID.
func (e *Engine) FetchMergedRecord(ctx context.Context, bibID string, agencyID int, opts FetchOptions) (*record.Record, error) {
	ctx, span := tracer.Start(ctx, "merger.FetchMergedRecord", trace.WithAttributes(
		attribute.String("bibliographic_record_id", bibID),
		attribute.Int("agency_id", agencyID),
		attribute.Bool("allow_deleted", opts.AllowDeleted),
	))
	defer span.End()

	resolved, err := e.resolver.ResolveAgency(ctx, bibID, agencyID, false)
	if err != nil && opts.AllowDeleted && errors.Is(err, storage.ErrNotFound) {
		resolved, err = e.resolver.ResolveAgency(ctx, bibID, agencyID, true)
	}
	if err != nil {
		return nil, err
	}

	policy, err := e.SelectPolicy(ctx, opts.KeepOwnID, agencyID)
	if err != nil {
		return nil, err
	}

	id := record.NewRecordID(bibID, resolved)
	active, err := e.resolver.IsActive(ctx, id)
	if err != nil {
		return nil, err
	}

	var merged *record.Record
	if active {
		merged, err = e.mergeActive(ctx, id, policy, agencyID, map[int]struct{}{})
	} else {
		var chain []*record.Record
		chain, err = e.ResolveMostRelevantChain(ctx, id)
		if err == nil {
			e.logger.DebugWithContext(ctx, "merging deleted chain",
				zap.Stringer("record_id", id),
				zap.Int("chain_length", len(chain)))
			merged, err = policy.Fold(chain, agencyID)
		}
	}
	if err != nil {
		return nil, err
	}

	baseAgency := firstTrailAgency(merged)
	merged.ID = record.NewRecordID(bibID, agencyID)
	if opts.UseParentAgency {
		merged.ID.AgencyID = baseAgency
	}

	if opts.ExcludeDBCFields {
		if merged.Content, err = stripPrivateFields(merged.Content); err != nil {
			return nil, err
		}
	}
	return merged, nil
}

// FetchMergedRecords fetches each id in turn and stops at the first failure.
func (e *Engine) FetchMergedRecords(ctx context.Context, ids []record.RecordID, opts FetchOptions) ([]*record.Record, error) {
	out := make([]*record.Record, 0, len(ids))
	for _, id := range ids {
		rec, err := e.FetchMergedRecord(ctx, id.BibliographicRecordID, id.AgencyID, opts)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", id, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// mergeActive merges the record onto its persisted sibling, which is merged first.
// An agency seen twice ends the walk.
func (e *Engine) mergeActive(ctx context.Context, id record.RecordID, policy *Policy, requested int, visited map[int]struct{}) (*record.Record, error) {
	visited[id.AgencyID] = struct{}{}

	rec, err := e.store.ReadRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	siblings, err := e.resolver.GetSiblingsFromMe(ctx, id)
	if err != nil {
		return nil, err
	}
	base, ok := siblings.First()
	if _, seen := visited[base.AgencyID]; !ok || seen {
		return policy.Fold([]*record.Record{rec}, requested)
	}

	merged, err := e.mergeActive(ctx, base, policy, requested, visited)
	if err != nil {
		return nil, err
	}
	return policy.step(merged, rec, policy.overwriteOwnID && id.AgencyID == requested)
}

// ResolveMostRelevantChain walks the most relevant sibling from id until no sibling is
// left and returns the records of the walk, base first. An agency seen twice ends the walk.
func (e *Engine) ResolveMostRelevantChain(ctx context.Context, id record.RecordID) ([]*record.Record, error) {
	ctx, span := tracer.Start(ctx, "merger.ResolveMostRelevantChain", trace.WithAttributes(
		attribute.String("bibliographic_record_id", id.BibliographicRecordID),
		attribute.Int("agency_id", id.AgencyID),
	))
	defer span.End()

	ids := []record.RecordID{id}
	visited := map[int]struct{}{id.AgencyID: {}}
	current := id
	for {
		siblings, err := e.resolver.GetSiblingsFromMe(ctx, current)
		if err != nil {
			return nil, err
		}
		next, ok := siblings.First()
		if !ok {
			break
		}
		if _, seen := visited[next.AgencyID]; seen {
			break
		}
		visited[next.AgencyID] = struct{}{}
		ids = append(ids, next)
		current = next
	}

	chain := make([]*record.Record, len(ids))
	for i, cid := range ids {
		rec, err := e.store.ReadRecord(ctx, cid)
		if err != nil {
			return nil, err
		}
		chain[len(ids)-1-i] = rec
	}
	return chain, nil
}

func firstTrailAgency(r *record.Record) int {
	agencies := r.TrailAgencies()
	if len(agencies) == 0 {
		return r.ID.AgencyID
	}
	return agencies[0]
}

func stripPrivateFields(content []byte) ([]byte, error) {
	rec, err := marcx.Decode(content)
	if err != nil {
		return nil, fmt.Errorf("strip private fields: %w", err)
	}
	rec.StripPrivateFields()
	return marcx.Encode(rec, ""), nil
}
