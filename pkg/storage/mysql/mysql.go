package mysql

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dbcdk/rawrepo-record-service/pkg/logger"
	"github.com/dbcdk/rawrepo-record-service/pkg/record"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage/sqlcommon"
)

var tracer = otel.Tracer("rawrepo/pkg/storage/mysql")

func startTrace(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "mysql."+name)
}

// Datastore provides a MySQL based implementation of [storage.RawRepoDatastore].
type Datastore struct {
	db               *sql.DB
	dbInfo           *sqlcommon.DBInfo
	logger           logger.Logger
	dbStatsCollector prometheus.Collector
}

// Ensures that Datastore implements the RawRepoDatastore interface.
var _ storage.RawRepoDatastore = (*Datastore)(nil)

// PrepareDSN overrides the credentials of uri with username and password when they are set,
// and makes the driver return timestamps as time.Time.
func PrepareDSN(uri, username, password string) (string, error) {
	dsnCfg, err := mysql.ParseDSN(uri)
	if err != nil {
		return "", fmt.Errorf("failed to parse mysql connection dsn: %w", err)
	}

	if username != "" {
		dsnCfg.User = username
	}
	if password != "" {
		dsnCfg.Passwd = password
	}
	dsnCfg.ParseTime = true

	return dsnCfg.FormatDSN(), nil
}

// New creates a new [Datastore] storage.
func New(uri string, cfg *sqlcommon.Config) (*Datastore, error) {
	uri, err := PrepareDSN(uri, cfg.Username, cfg.Password)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", uri)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mysql connection: %w", err)
	}
	sqlcommon.ApplyPoolSettings(db, cfg)

	collector, err := sqlcommon.WaitForDB(db, "mysql", cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mysql connection: %w", err)
	}

	return &Datastore{
		db:               db,
		dbInfo:           sqlcommon.NewDBInfo(db, sq.Question, sqlcommon.HandleSQLError, "mysql"),
		logger:           cfg.Logger,
		dbStatsCollector: collector,
	}, nil
}

// Close see [storage.RawRepoDatastore].Close.
func (s *Datastore) Close() {
	if s.dbStatsCollector != nil {
		prometheus.Unregister(s.dbStatsCollector)
	}
	s.db.Close()
}

// IsReady see [sqlcommon.IsReady].
func (s *Datastore) IsReady(ctx context.Context) (storage.ReadinessStatus, error) {
	return sqlcommon.IsReady(ctx, s.db)
}

// RecordExists see [storage.RecordReader].RecordExists.
func (s *Datastore) RecordExists(ctx context.Context, id record.RecordID, includeDeleted bool) (bool, error) {
	ctx, span := startTrace(ctx, "RecordExists")
	defer span.End()

	return sqlcommon.RecordExists(ctx, s.dbInfo, id, includeDeleted)
}

// ReadRecord see [storage.RecordReader].ReadRecord.
func (s *Datastore) ReadRecord(ctx context.Context, id record.RecordID) (*record.Record, error) {
	ctx, span := startTrace(ctx, "ReadRecord")
	defer span.End()

	return sqlcommon.ReadRecord(ctx, s.dbInfo, id)
}

// ReadRecords see [storage.RecordReader].ReadRecords.
func (s *Datastore) ReadRecords(ctx context.Context, ids []record.RecordID) (map[record.RecordID]*record.Record, error) {
	ctx, span := startTrace(ctx, "ReadRecords")
	defer span.End()

	return sqlcommon.ReadRecords(ctx, s.dbInfo, ids)
}

// ReadAgenciesFor see [storage.RecordReader].ReadAgenciesFor.
func (s *Datastore) ReadAgenciesFor(ctx context.Context, bibliographicRecordID string) ([]int, error) {
	ctx, span := startTrace(ctx, "ReadAgenciesFor")
	defer span.End()

	return sqlcommon.ReadAgenciesFor(ctx, s.dbInfo, bibliographicRecordID)
}

// ReadRelationsFrom see [storage.RelationReader].ReadRelationsFrom.
func (s *Datastore) ReadRelationsFrom(ctx context.Context, id record.RecordID) ([]record.RecordID, error) {
	ctx, span := startTrace(ctx, "ReadRelationsFrom")
	defer span.End()

	return sqlcommon.ReadRelationsFrom(ctx, s.dbInfo, id)
}

// ReadRelationsTo see [storage.RelationReader].ReadRelationsTo.
func (s *Datastore) ReadRelationsTo(ctx context.Context, id record.RecordID) ([]record.RecordID, error) {
	ctx, span := startTrace(ctx, "ReadRelationsTo")
	defer span.End()

	return sqlcommon.ReadRelationsTo(ctx, s.dbInfo, id)
}

// WriteRecord see [storage.RecordWriter].WriteRecord.
func (s *Datastore) WriteRecord(ctx context.Context, rec *record.Record) error {
	ctx, span := startTrace(ctx, "WriteRecord")
	defer span.End()

	return sqlcommon.WriteRecord(ctx, s.dbInfo, rec)
}

// WriteRelations see [storage.RecordWriter].WriteRelations.
func (s *Datastore) WriteRelations(ctx context.Context, id record.RecordID, refers []record.RecordID) error {
	ctx, span := startTrace(ctx, "WriteRelations")
	defer span.End()

	return sqlcommon.WriteRelations(ctx, s.dbInfo, id, refers)
}

// WriteHolding see [storage.RecordWriter].WriteHolding.
func (s *Datastore) WriteHolding(ctx context.Context, bibliographicRecordID string, agencyID int) error {
	ctx, span := startTrace(ctx, "WriteHolding")
	defer span.End()

	return sqlcommon.WriteHolding(ctx, s.dbInfo, bibliographicRecordID, agencyID)
}

// ReadDump see [storage.DumpReader].ReadDump.
func (s *Datastore) ReadDump(ctx context.Context, q storage.DumpQuery) (storage.DumpIterator, error) {
	ctx, span := startTrace(ctx, "ReadDump")
	defer span.End()

	return sqlcommon.ReadDump(ctx, s.dbInfo, q)
}
