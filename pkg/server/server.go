// Package server is the record service: merged and expanded record fetches, relation
// lookups and bulk dumps over one datastore and one relation hints provider.
package server

import (
	"context"
	"io"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/dbcdk/rawrepo-record-service/internal/dump"
	"github.com/dbcdk/rawrepo-record-service/internal/expand"
	"github.com/dbcdk/rawrepo-record-service/internal/merger"
	"github.com/dbcdk/rawrepo-record-service/internal/relations"
	"github.com/dbcdk/rawrepo-record-service/pkg/agency"
	"github.com/dbcdk/rawrepo-record-service/pkg/hints"
	"github.com/dbcdk/rawrepo-record-service/pkg/logger"
	"github.com/dbcdk/rawrepo-record-service/pkg/record"
	serverErrors "github.com/dbcdk/rawrepo-record-service/pkg/server/errors"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage/storagewrappers"
	"github.com/dbcdk/rawrepo-record-service/pkg/telemetry"
)

var tracer = otel.Tracer("rawrepo/pkg/server")

// A Server implements the record service on top of a datastore.
type Server struct {
	datastore storage.RawRepoDatastore
	reads     readStore
	hints     hints.Provider
	mergePort merger.Port
	dumper    *dump.Dumper
	logger    logger.Logger
	config    *Config
}

type Dependencies struct {
	Datastore storage.RawRepoDatastore
	Hints     hints.Provider
	Logger    logger.Logger
	// MergePort replaces the marcx field merger when set.
	MergePort merger.Port
}

type Config struct {
	Policy      agency.Policy
	DumpWorkers int
	// MaxConcurrentReads bounds the concurrent record reads, 0 means unbounded.
	MaxConcurrentReads uint32
}

// RecordRequest asks for one record as seen by an agency.
type RecordRequest struct {
	BibliographicRecordID string
	AgencyID              int
	// Mode is raw, merged or expanded. Empty means merged.
	Mode                dump.Mode
	AllowDeleted        bool
	UseParentAgency     bool
	ExcludeDBCFields    bool
	KeepAuthorityFields bool
	KeepOwnID           bool
}

// New creates a new Server which uses the supplied backends.
func New(dependencies *Dependencies, config *Config) *Server {
	log := dependencies.Logger
	if log == nil {
		log = logger.NewNoopLogger()
	}
	if config.DumpWorkers <= 0 {
		config.DumpWorkers = dump.DefaultWorkers
	}

	var records storage.RecordReader = dependencies.Datastore
	if config.MaxConcurrentReads > 0 {
		records = storagewrappers.NewBoundedConcurrencyRecordReader(records, config.MaxConcurrentReads)
	}

	s := &Server{
		datastore: dependencies.Datastore,
		reads: &classifyingStore{wrapped: &layeredStore{
			RecordReader:   records,
			RelationReader: dependencies.Datastore,
			DumpReader:     dependencies.Datastore,
		}},
		hints:     dependencies.Hints,
		mergePort: dependencies.MergePort,
		logger:    log,
		config:    config,
	}

	resolver := s.newResolver(s.reads)
	expander := expand.NewExpander(s.reads, resolver, expand.WithLogger(log))
	s.dumper = dump.NewDumper(s.reads, s.newEngine(s.reads, resolver), expander,
		dump.WithWorkers(config.DumpWorkers),
		dump.WithLogger(log))

	return s
}

func (s *Server) newResolver(store relations.Store) *relations.Resolver {
	return relations.NewResolver(store, s.hints,
		relations.WithPolicy(s.config.Policy),
		relations.WithLogger(s.logger))
}

func (s *Server) newEngine(store storage.RecordReader, resolver *relations.Resolver) *merger.Engine {
	opts := []merger.EngineOption{merger.WithLogger(s.logger)}
	if s.mergePort != nil {
		opts = append(opts, merger.WithMergePort(s.mergePort))
	}
	return merger.NewEngine(store, resolver, opts...)
}

func validateID(bibID string, agencyID int) error {
	verr := &dump.ValidationError{}
	if strings.TrimSpace(bibID) == "" {
		verr.Messages = append(verr.Messages, "bibliographic record id must not be empty")
	}
	if !agency.ValidID(agencyID) {
		verr.Messages = append(verr.Messages, "agency must have six digits")
	}
	if len(verr.Messages) > 0 {
		return verr
	}
	return nil
}

// FetchRecord returns the record in the requested mode.
func (s *Server) FetchRecord(ctx context.Context, req RecordRequest) (rec *record.Record, err error) {
	ctx, span := tracer.Start(ctx, "FetchRecord", trace.WithAttributes(
		attribute.String("bibliographic_record_id", req.BibliographicRecordID),
		attribute.Int("agency_id", req.AgencyID),
		attribute.String("mode", string(req.Mode)),
	))
	defer func() {
		if err != nil {
			telemetry.TraceError(span, err)
		}
		span.End()
	}()

	if err := validateID(req.BibliographicRecordID, req.AgencyID); err != nil {
		return nil, err
	}

	// a fresh component stack per request so the read count belongs to this request
	reads := storagewrappers.NewInstrumentedStorage(s.reads)
	defer func() {
		s.logger.DebugWithContext(ctx, "record fetched",
			zap.String("bibliographic_record_id", req.BibliographicRecordID),
			zap.Int("agency_id", req.AgencyID),
			zap.Uint32("datastore_query_count", reads.GetMetrics().DatastoreQueryCount))
	}()

	id := record.NewRecordID(req.BibliographicRecordID, req.AgencyID)
	switch req.Mode {
	case dump.ModeRaw:
		return s.fetchRaw(ctx, reads, id, req.AllowDeleted)
	case dump.ModeMerged, dump.ModeExpanded, "":
	default:
		return nil, &dump.ValidationError{Messages: []string{"mode '" + string(req.Mode) + "' is not one of raw, merged, expanded"}}
	}

	resolver := s.newResolver(reads)
	rec, err = s.newEngine(reads, resolver).FetchMergedRecord(ctx, req.BibliographicRecordID, req.AgencyID, merger.FetchOptions{
		AllowDeleted:     req.AllowDeleted,
		UseParentAgency:  req.UseParentAgency,
		ExcludeDBCFields: req.ExcludeDBCFields,
		KeepOwnID:        req.KeepOwnID,
	})
	if err != nil {
		return nil, err
	}
	if req.Mode == dump.ModeExpanded {
		return expand.NewExpander(reads, resolver, expand.WithLogger(s.logger)).
			Expand(ctx, rec, req.KeepAuthorityFields)
	}
	return rec, nil
}

func (s *Server) fetchRaw(ctx context.Context, reads storage.RecordReader, id record.RecordID, allowDeleted bool) (*record.Record, error) {
	exists, err := reads.RecordExists(ctx, id, allowDeleted)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, serverErrors.NotFoundError(id)
	}
	return reads.ReadRecord(ctx, id)
}

// Relations lists every relation of the record.
func (s *Server) Relations(ctx context.Context, bibID string, agencyID int) (*relations.Relations, error) {
	ctx, span := tracer.Start(ctx, "Relations", trace.WithAttributes(
		attribute.String("bibliographic_record_id", bibID),
		attribute.Int("agency_id", agencyID),
	))
	defer span.End()

	if err := validateID(bibID, agencyID); err != nil {
		return nil, err
	}
	return s.newResolver(s.reads).GetRelations(ctx, record.NewRecordID(bibID, agencyID))
}

// ValidateDump checks params the way Dump does, so callers can reject a request before
// creating its output.
func (s *Server) ValidateDump(ctx context.Context, params dump.Params) error {
	_, err := s.dumper.Validate(ctx, params)
	return err
}

// Dump streams the records selected by params to out.
func (s *Server) Dump(ctx context.Context, params dump.Params, out io.Writer) (*dump.Result, error) {
	return s.dumper.Run(ctx, params, out)
}

func (s *Server) IsReady(ctx context.Context) (bool, error) {
	// for now we only depend on the datastore being ready
	status, err := s.datastore.IsReady(ctx)
	if err != nil {
		return false, serverErrors.WrapDataAccess("readiness", err)
	}
	if !status.IsReady {
		s.logger.WarnWithContext(ctx, "datastore not ready", zap.String("message", status.Message))
	}
	return status.IsReady, nil
}

// Close releases the datastore and the hints provider when it holds resources.
func (s *Server) Close() {
	if c, ok := s.hints.(interface{ Close() }); ok {
		c.Close()
	}
	s.datastore.Close()
}
