// Package expand injects authority record headings into records that link to them.
package expand

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/dbcdk/rawrepo-record-service/internal/relations"
	"github.com/dbcdk/rawrepo-record-service/pkg/agency"
	"github.com/dbcdk/rawrepo-record-service/pkg/logger"
	"github.com/dbcdk/rawrepo-record-service/pkg/marcx"
	"github.com/dbcdk/rawrepo-record-service/pkg/record"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage"
)

var tracer = otel.Tracer("rawrepo/internal/expand")

type Expander struct {
	store    storage.RecordReader
	resolver *relations.Resolver
	logger   logger.Logger
}

type ExpanderOption func(*Expander)

func WithLogger(l logger.Logger) ExpanderOption {
	return func(x *Expander) {
		x.logger = l
	}
}

func NewExpander(store storage.RecordReader, resolver *relations.Resolver, opts ...ExpanderOption) *Expander {
	x := &Expander{
		store:    store,
		resolver: resolver,
		logger:   logger.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Expand returns a copy of rec with the headings of its authority parents injected.
// A record with no copy that may carry authority parents is returned unexpanded.
func (x *Expander) Expand(ctx context.Context, rec *record.Record, keepAuthorityFields bool) (*record.Record, error) {
	ctx, span := tracer.Start(ctx, "expand.Expand", trace.WithAttributes(
		attribute.String("bibliographic_record_id", rec.ID.BibliographicRecordID),
		attribute.Int("agency_id", rec.ID.AgencyID),
	))
	defer span.End()

	source, ok, err := x.expandableID(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		x.logger.DebugWithContext(ctx, "no expandable record", zap.Stringer("record_id", rec.ID))
		return rec, nil
	}
	span.SetAttributes(attribute.Int("expandable_agency_id", source.AgencyID))

	parents, err := x.resolver.GetParents(ctx, source)
	if err != nil {
		return nil, err
	}
	authorityIDs := parents.Filter(func(id record.RecordID) bool {
		return id.AgencyID == agency.AuthorityAgency
	}).Values()
	if len(authorityIDs) == 0 {
		return rec, nil
	}

	authorities, err := x.store.ReadRecords(ctx, authorityIDs)
	if err != nil {
		return nil, err
	}
	contents := make(map[record.RecordID][]byte, len(authorities))
	for id, aut := range authorities {
		contents[id] = aut.Content
	}

	expanded, err := marcx.ExpandAuthorities(rec.Content, contents, keepAuthorityFields)
	if err != nil {
		return nil, fmt.Errorf("expand %s: %w", rec.ID, err)
	}

	out := rec.Clone()
	out.Content = expanded
	return out, nil
}

// expandableID is the copy whose parents are used: the record itself when its agency may
// have authority parents, otherwise the first such sibling it overlays.
func (x *Expander) expandableID(ctx context.Context, id record.RecordID) (record.RecordID, bool, error) {
	policy := x.resolver.Policy()
	if policy.MayHaveAuthorityParents(id.AgencyID) {
		return id, true, nil
	}

	siblings, err := x.resolver.GetSiblingsFromMe(ctx, id)
	if err != nil {
		return record.RecordID{}, false, err
	}
	for _, s := range siblings.Values() {
		if policy.MayHaveAuthorityParents(s.AgencyID) {
			return s, true, nil
		}
	}
	return record.RecordID{}, false, nil
}
