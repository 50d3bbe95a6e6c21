package sqlcommon

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	sq "github.com/Masterminds/squirrel"

	"github.com/dbcdk/rawrepo-record-service/pkg/agency"
	"github.com/dbcdk/rawrepo-record-service/pkg/record"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage"
)

const sideColumns = 7

func sideOf(alias string) []string {
	cols := make([]string, 0, sideColumns)
	for _, c := range []string{"agencyid", "deleted", "mimetype", "content", "created", "modified", "trackingid"} {
		cols = append(cols, alias+"."+c)
	}
	return cols
}

func nullSide() []string {
	cols := make([]string, sideColumns)
	for i := range cols {
		cols[i] = "NULL"
	}
	return cols
}

func dumpSelect(rowAlias string, local, common []string) sq.SelectBuilder {
	cols := append([]string{rowAlias + ".bibliographicrecordid", rowAlias + ".agencyid"}, local...)
	return sq.Select(append(cols, common...)...)
}

// filterOn applies the status and date filters of q to the table aliased as alias.
func filterOn(sb sq.SelectBuilder, alias string, q storage.DumpQuery) sq.SelectBuilder {
	switch q.Status {
	case storage.StatusActive:
		sb = sb.Where(sq.Eq{alias + ".deleted": false})
	case storage.StatusDeleted:
		sb = sb.Where(sq.Eq{alias + ".deleted": true})
	}
	if q.CreatedFrom != nil {
		sb = sb.Where(sq.GtOrEq{alias + ".created": q.CreatedFrom.UTC()})
	}
	if q.CreatedTo != nil {
		sb = sb.Where(sq.LtOrEq{alias + ".created": q.CreatedTo.UTC()})
	}
	if q.ModifiedFrom != nil {
		sb = sb.Where(sq.GtOrEq{alias + ".modified": q.ModifiedFrom.UTC()})
	}
	if q.ModifiedTo != nil {
		sb = sb.Where(sq.LtOrEq{alias + ".modified": q.ModifiedTo.UTC()})
	}
	return sb
}

func dumpSubQueries(q storage.DumpQuery) []sq.SelectBuilder {
	switch q.Kind {
	case storage.DumpDBC:
		sb := dumpSelect("c", sideOf("e"), sideOf("c")).
			From("records c").
			LeftJoin("records e ON e.bibliographicrecordid = c.bibliographicrecordid AND e.agencyid = ?", agency.DBCEnrichmentAgency).
			Where(sq.Eq{"c.agencyid": q.AgencyID})
		return []sq.SelectBuilder{filterOn(sb, "c", q)}

	case storage.DumpFBS:
		var subs []sq.SelectBuilder
		if q.Selects(storage.SelectEnrichment) {
			sb := dumpSelect("l", sideOf("l"), sideOf("c")).
				From("records l").
				LeftJoin("records c ON c.bibliographicrecordid = l.bibliographicrecordid AND c.agencyid = ?", agency.CommonAgency).
				Where(sq.Eq{"l.agencyid": q.AgencyID, "l.mimetype": record.MimeTypeEnrichment})
			subs = append(subs, filterOn(sb, "l", q))
		}
		if q.Selects(storage.SelectLocal) {
			sb := dumpSelect("l", sideOf("l"), nullSide()).
				From("records l").
				Where(sq.Eq{"l.agencyid": q.AgencyID}).
				Where(sq.NotEq{"l.mimetype": record.MimeTypeEnrichment})
			subs = append(subs, filterOn(sb, "l", q))
		}
		if q.Selects(storage.SelectHoldings) {
			sb := dumpSelect("h", nullSide(), sideOf("c")).
				From("holdings h").
				Join("records c ON c.bibliographicrecordid = h.bibliographicrecordid AND c.agencyid = ?", agency.CommonAgency).
				Where(sq.Eq{"h.agencyid": q.AgencyID}).
				Where("NOT EXISTS (SELECT 1 FROM records r WHERE r.bibliographicrecordid = h.bibliographicrecordid AND r.agencyid = h.agencyid)")
			subs = append(subs, filterOn(sb, "c", q))
		}
		return subs

	default:
		sb := dumpSelect("l", sideOf("l"), nullSide()).
			From("records l").
			Where(sq.Eq{"l.agencyid": q.AgencyID})
		return []sq.SelectBuilder{filterOn(sb, "l", q)}
	}
}

// BuildDumpQuery renders the dump query for q with the given placeholder format.
// Sub-selects are joined with UNION ALL and the row limit is appended last.
func BuildDumpQuery(q storage.DumpQuery, placeholder sq.PlaceholderFormat) (string, []interface{}, error) {
	subs := dumpSubQueries(q)
	if len(subs) == 0 {
		return "", nil, fmt.Errorf("dump of agency %d selects no record types", q.AgencyID)
	}

	parts := make([]string, 0, len(subs))
	var args []interface{}
	for _, sub := range subs {
		query, subArgs, err := sub.PlaceholderFormat(sq.Question).ToSql()
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, query)
		args = append(args, subArgs...)
	}

	query := strings.Join(parts, " UNION ALL ")
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	query, err := placeholder.ReplacePlaceholders(query)
	if err != nil {
		return "", nil, err
	}
	return query, args, nil
}

// ReadDump see [storage.DumpReader].ReadDump.
func ReadDump(ctx context.Context, dbInfo *DBInfo, q storage.DumpQuery) (storage.DumpIterator, error) {
	_, span := startTrace(ctx, "ReadDump")
	defer span.End()

	query, args, err := BuildDumpQuery(q, dbInfo.placeholder)
	if err != nil {
		return nil, err
	}
	return NewSQLDumpIterator(dbInfo.db, query, args, dbInfo.HandleSQLError), nil
}

// SQLDumpIterator is a cursor over dump rows that may be shared by several workers.
type SQLDumpIterator struct {
	db             *sql.DB
	query          string
	args           []interface{}
	handleSQLError errorHandlerFn

	rows    *sql.Rows // GUARDED_BY(mu)
	stopped bool      // GUARDED_BY(mu)
	mu      sync.Mutex
}

var _ storage.DumpIterator = (*SQLDumpIterator)(nil)

// NewSQLDumpIterator returns an iterator that runs query on first use.
func NewSQLDumpIterator(db *sql.DB, query string, args []interface{}, errHandler errorHandlerFn) *SQLDumpIterator {
	return &SQLDumpIterator{
		db:             db,
		query:          query,
		args:           args,
		handleSQLError: errHandler,
	}
}

func (t *SQLDumpIterator) fetchBuffer(ctx context.Context) error {
	ctx, span := startTrace(ctx, "fetchBuffer")
	defer span.End()
	// the cursor outlives the request of whichever worker happens to open it
	ctx = context.WithoutCancel(ctx)
	rows, err := t.db.QueryContext(ctx, t.query, t.args...)
	if err != nil {
		return t.handleSQLError(err)
	}
	t.rows = rows
	return nil
}

// Next returns the next row or storage.ErrIteratorDone.
func (t *SQLDumpIterator) Next(ctx context.Context) (*storage.DumpRow, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return nil, storage.ErrIteratorDone
	}

	if t.rows == nil {
		if err := t.fetchBuffer(ctx); err != nil {
			return nil, err
		}
	}

	if !t.rows.Next() {
		if err := t.rows.Err(); err != nil {
			return nil, t.handleSQLError(err)
		}
		return nil, storage.ErrIteratorDone
	}

	var (
		row           storage.DumpRow
		local, common sideScan
	)
	dest := []interface{}{&row.BibliographicRecordID, &row.AgencyID}
	dest = append(dest, local.targets()...)
	dest = append(dest, common.targets()...)
	if err := t.rows.Scan(dest...); err != nil {
		return nil, t.handleSQLError(err)
	}

	row.Local = local.record(row.BibliographicRecordID)
	row.Common = common.record(row.BibliographicRecordID)
	return &row, nil
}

// Stop terminates iteration. It is safe to call more than once.
func (t *SQLDumpIterator) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	if t.rows != nil {
		_ = t.rows.Close()
	}
}

// sideScan receives the nullable columns of one side of a dump row.
type sideScan struct {
	agencyID   sql.NullInt64
	deleted    sql.NullBool
	mimeType   sql.NullString
	content    []byte
	created    nullTime
	modified   nullTime
	trackingID sql.NullString
}

func (s *sideScan) targets() []interface{} {
	return []interface{}{&s.agencyID, &s.deleted, &s.mimeType, &s.content, &s.created, &s.modified, &s.trackingID}
}

func (s *sideScan) record(bibliographicRecordID string) *record.Record {
	if !s.agencyID.Valid {
		return nil
	}
	return &record.Record{
		ID:         record.NewRecordID(bibliographicRecordID, int(s.agencyID.Int64)),
		Content:    s.content,
		MimeType:   s.mimeType.String,
		Deleted:    s.deleted.Bool,
		Created:    s.created.Time,
		Modified:   s.modified.Time,
		TrackingID: s.trackingID.String,
	}
}
