package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/dbcdk/rawrepo-record-service/internal/build"
	"github.com/dbcdk/rawrepo-record-service/pkg/logger"
	"github.com/dbcdk/rawrepo-record-service/pkg/record"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage/sqlcommon"
)

var tracer = otel.Tracer("rawrepo/pkg/storage/sqlite")

func startTrace(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "sqlite."+name)
}

// Datastore provides a SQLite based implementation of [storage.RawRepoDatastore].
type Datastore struct {
	db               *sql.DB
	dbInfo           *sqlcommon.DBInfo
	logger           logger.Logger
	dbStatsCollector prometheus.Collector
}

// Ensures that SQLite implements the RawRepoDatastore interface.
var _ storage.RawRepoDatastore = (*Datastore)(nil)

// PrepareDSN prepares a raw DSN from config for use with SQLite, specifying defaults for
// journal mode and busy timeout.
func PrepareDSN(uri string) (string, error) {
	// Set journal mode and busy timeout pragmas if not specified.
	query := url.Values{}
	var err error

	if i := strings.Index(uri, "?"); i != -1 {
		query, err = url.ParseQuery(uri[i+1:])
		if err != nil {
			return uri, fmt.Errorf("error parsing dsn: %w", err)
		}

		uri = uri[:i]
	}

	foundJournalMode := false
	foundBusyTimeout := false
	for _, val := range query["_pragma"] {
		if strings.HasPrefix(val, "journal_mode") {
			foundJournalMode = true
		} else if strings.HasPrefix(val, "busy_timeout") {
			foundBusyTimeout = true
		}
	}

	if !foundJournalMode {
		query.Add("_pragma", "journal_mode(WAL)")
	}
	if !foundBusyTimeout {
		query.Add("_pragma", "busy_timeout(100)")
	}

	// Set transaction mode to immediate if not specified
	if !query.Has("_txlock") {
		query.Set("_txlock", "immediate")
	}

	uri += "?" + query.Encode()

	return uri, nil
}

// New creates a new [Datastore] storage.
func New(uri string, cfg *sqlcommon.Config) (*Datastore, error) {
	uri, err := PrepareDSN(uri)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", uri)
	if err != nil {
		return nil, fmt.Errorf("initialize sqlite connection: %w", err)
	}
	sqlcommon.ApplyPoolSettings(db, cfg)

	var collector prometheus.Collector
	if cfg.ExportMetrics {
		collector = collectors.NewDBStatsCollector(db, build.ProjectName)
		if err := prometheus.Register(collector); err != nil {
			return nil, fmt.Errorf("initialize metrics: %w", err)
		}
	}

	return &Datastore{
		db:               db,
		dbInfo:           sqlcommon.NewDBInfo(db, sq.Question, HandleSQLError, "sqlite3"),
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

	return busyRetry(func() error {
		return sqlcommon.WriteRecord(ctx, s.dbInfo, rec)
	})
}

// WriteRelations see [storage.RecordWriter].WriteRelations.
func (s *Datastore) WriteRelations(ctx context.Context, id record.RecordID, refers []record.RecordID) error {
	ctx, span := startTrace(ctx, "WriteRelations")
	defer span.End()

	return busyRetry(func() error {
		return sqlcommon.WriteRelations(ctx, s.dbInfo, id, refers)
	})
}

// WriteHolding see [storage.RecordWriter].WriteHolding.
func (s *Datastore) WriteHolding(ctx context.Context, bibliographicRecordID string, agencyID int) error {
	ctx, span := startTrace(ctx, "WriteHolding")
	defer span.End()

	return busyRetry(func() error {
		return sqlcommon.WriteHolding(ctx, s.dbInfo, bibliographicRecordID, agencyID)
	})
}

// ReadDump see [storage.DumpReader].ReadDump.
func (s *Datastore) ReadDump(ctx context.Context, q storage.DumpQuery) (storage.DumpIterator, error) {
	ctx, span := startTrace(ctx, "ReadDump")
	defer span.End()

	return sqlcommon.ReadDump(ctx, s.dbInfo, q)
}

// HandleSQLError processes an SQL error and converts it into a more
// specific error type based on the nature of the SQL error.
func HandleSQLError(err error, args ...interface{}) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code()&0xFF == sqlite3.SQLITE_CONSTRAINT {
			return storage.ErrCollision
		}
	}

	return sqlcommon.HandleSQLError(err, args...)
}

// SQLite will return an SQLITE_BUSY error when the database is locked rather than waiting for the lock.
// This function retries the operation up to maxRetries times before returning the error.
func busyRetry(fn func() error) error {
	const maxRetries = 10
	for retries := 0; ; retries++ {
		err := fn()
		if err == nil {
			return nil
		}

		if isBusyError(err) {
			if retries < maxRetries {
				continue
			}

			return fmt.Errorf("sqlite busy error after %d retries: %w", maxRetries, err)
		}

		return err
	}
}

var busyErrors = map[int]struct{}{
	sqlite3.SQLITE_BUSY_RECOVERY:      {},
	sqlite3.SQLITE_BUSY_SNAPSHOT:      {},
	sqlite3.SQLITE_BUSY_TIMEOUT:       {},
	sqlite3.SQLITE_BUSY:               {},
	sqlite3.SQLITE_LOCKED_SHAREDCACHE: {},
	sqlite3.SQLITE_LOCKED:             {},
}

func isBusyError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}

	_, ok := busyErrors[sqliteErr.Code()]
	return ok
}
