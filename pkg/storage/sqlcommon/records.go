package sqlcommon

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/dbcdk/rawrepo-record-service/pkg/record"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage"
)

var recordColumns = []string{
	"bibliographicrecordid",
	"agencyid",
	"deleted",
	"mimetype",
	"content",
	"created",
	"modified",
	"trackingid",
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// nullTime scans timestamps from drivers that hand them back as time.Time as well as from
// those returning text, which sqlite does for columns of compound selects.
type nullTime struct {
	Time  time.Time
	Valid bool
}

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (n *nullTime) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		n.Time, n.Valid = time.Time{}, false
		return nil
	case time.Time:
		n.Time, n.Valid = v.UTC(), true
		return nil
	case []byte:
		return n.parse(string(v))
	case string:
		return n.parse(v)
	default:
		return fmt.Errorf("unsupported timestamp type %T", value)
	}
}

func (n *nullTime) parse(s string) error {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			n.Time, n.Valid = t.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("unparseable timestamp %q", s)
}

func scanRecord(row rowScanner) (*record.Record, error) {
	var (
		rec              record.Record
		content          []byte
		created, changed nullTime
	)
	err := row.Scan(
		&rec.ID.BibliographicRecordID,
		&rec.ID.AgencyID,
		&rec.Deleted,
		&rec.MimeType,
		&content,
		&created,
		&changed,
		&rec.TrackingID,
	)
	if err != nil {
		return nil, err
	}
	rec.Content = content
	rec.Created = created.Time
	rec.Modified = changed.Time
	return &rec, nil
}

func idEq(id record.RecordID) sq.Eq {
	return sq.Eq{
		"bibliographicrecordid": id.BibliographicRecordID,
		"agencyid":              id.AgencyID,
	}
}

// RecordExists see [storage.RecordReader].RecordExists.
func RecordExists(ctx context.Context, dbInfo *DBInfo, id record.RecordID, includeDeleted bool) (bool, error) {
	ctx, span := startTrace(ctx, "RecordExists")
	defer span.End()

	sb := dbInfo.stbl.
		Select("1").
		From("records").
		Where(idEq(id))
	if !includeDeleted {
		sb = sb.Where(sq.Eq{"deleted": false})
	}

	var one int
	err := sb.QueryRowContext(ctx).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, dbInfo.HandleSQLError(err)
	}
	return true, nil
}

// ReadRecord see [storage.RecordReader].ReadRecord.
func ReadRecord(ctx context.Context, dbInfo *DBInfo, id record.RecordID) (*record.Record, error) {
	ctx, span := startTrace(ctx, "ReadRecord")
	defer span.End()

	rec, err := scanRecord(dbInfo.stbl.
		Select(recordColumns...).
		From("records").
		Where(idEq(id)).
		QueryRowContext(ctx))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.RecordNotFoundError(id)
	}
	if err != nil {
		return nil, dbInfo.HandleSQLError(err)
	}
	return rec, nil
}

// ReadRecords see [storage.RecordReader].ReadRecords.
func ReadRecords(ctx context.Context, dbInfo *DBInfo, ids []record.RecordID) (map[record.RecordID]*record.Record, error) {
	ctx, span := startTrace(ctx, "ReadRecords")
	defer span.End()

	res := make(map[record.RecordID]*record.Record, len(ids))
	if len(ids) == 0 {
		return res, nil
	}

	or := make(sq.Or, 0, len(ids))
	for _, id := range ids {
		or = append(or, idEq(id))
	}

	rows, err := dbInfo.stbl.
		Select(recordColumns...).
		From("records").
		Where(or).
		QueryContext(ctx)
	if err != nil {
		return nil, dbInfo.HandleSQLError(err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, dbInfo.HandleSQLError(err)
		}
		res[rec.ID] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, dbInfo.HandleSQLError(err)
	}
	return res, nil
}

// ReadAgenciesFor see [storage.RecordReader].ReadAgenciesFor.
func ReadAgenciesFor(ctx context.Context, dbInfo *DBInfo, bibliographicRecordID string) ([]int, error) {
	ctx, span := startTrace(ctx, "ReadAgenciesFor")
	defer span.End()

	rows, err := dbInfo.stbl.
		Select("agencyid").
		From("records").
		Where(sq.Eq{"bibliographicrecordid": bibliographicRecordID}).
		OrderBy("agencyid").
		QueryContext(ctx)
	if err != nil {
		return nil, dbInfo.HandleSQLError(err)
	}
	defer rows.Close()

	var agencies []int
	for rows.Next() {
		var a int
		if err := rows.Scan(&a); err != nil {
			return nil, dbInfo.HandleSQLError(err)
		}
		agencies = append(agencies, a)
	}
	if err := rows.Err(); err != nil {
		return nil, dbInfo.HandleSQLError(err)
	}
	return agencies, nil
}

func readRelations(ctx context.Context, dbInfo *DBInfo, sb sq.SelectBuilder) ([]record.RecordID, error) {
	rows, err := sb.QueryContext(ctx)
	if err != nil {
		return nil, dbInfo.HandleSQLError(err)
	}
	defer rows.Close()

	var ids []record.RecordID
	for rows.Next() {
		var id record.RecordID
		if err := rows.Scan(&id.BibliographicRecordID, &id.AgencyID); err != nil {
			return nil, dbInfo.HandleSQLError(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, dbInfo.HandleSQLError(err)
	}
	return ids, nil
}

// ReadRelationsFrom see [storage.RelationReader].ReadRelationsFrom.
func ReadRelationsFrom(ctx context.Context, dbInfo *DBInfo, id record.RecordID) ([]record.RecordID, error) {
	ctx, span := startTrace(ctx, "ReadRelationsFrom")
	defer span.End()

	return readRelations(ctx, dbInfo, dbInfo.stbl.
		Select("refer_bibliographicrecordid", "refer_agencyid").
		From("relations").
		Where(idEq(id)).
		OrderBy("refer_agencyid", "refer_bibliographicrecordid"))
}

// ReadRelationsTo see [storage.RelationReader].ReadRelationsTo.
func ReadRelationsTo(ctx context.Context, dbInfo *DBInfo, id record.RecordID) ([]record.RecordID, error) {
	ctx, span := startTrace(ctx, "ReadRelationsTo")
	defer span.End()

	return readRelations(ctx, dbInfo, dbInfo.stbl.
		Select("bibliographicrecordid", "agencyid").
		From("relations").
		Where(sq.Eq{
			"refer_bibliographicrecordid": id.BibliographicRecordID,
			"refer_agencyid":              id.AgencyID,
		}).
		OrderBy("agencyid", "bibliographicrecordid"))
}

func (d *DBInfo) inTx(ctx context.Context, fn func(stbl sq.StatementBuilderType) error) error {
	txn, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return d.HandleSQLError(err)
	}
	defer func() {
		_ = txn.Rollback()
	}()

	if err := fn(sq.StatementBuilder.PlaceholderFormat(d.placeholder).RunWith(txn)); err != nil {
		return err
	}

	if err := txn.Commit(); err != nil {
		return d.HandleSQLError(err)
	}
	return nil
}

// WriteRecord see [storage.RecordWriter].WriteRecord.
func WriteRecord(ctx context.Context, dbInfo *DBInfo, rec *record.Record) error {
	ctx, span := startTrace(ctx, "WriteRecord")
	defer span.End()

	return dbInfo.inTx(ctx, func(stbl sq.StatementBuilderType) error {
		if _, err := stbl.Delete("records").Where(idEq(rec.ID)).ExecContext(ctx); err != nil {
			return dbInfo.HandleSQLError(err)
		}

		_, err := stbl.
			Insert("records").
			Columns(recordColumns...).
			Values(
				rec.ID.BibliographicRecordID,
				rec.ID.AgencyID,
				rec.Deleted,
				rec.MimeType,
				rec.Content,
				rec.Created.UTC(),
				rec.Modified.UTC(),
				rec.TrackingIDOrNew(),
			).
			ExecContext(ctx)
		if err != nil {
			return dbInfo.HandleSQLError(err)
		}

		if rec.Deleted {
			if _, err := stbl.Delete("relations").Where(idEq(rec.ID)).ExecContext(ctx); err != nil {
				return dbInfo.HandleSQLError(err)
			}
		}
		return nil
	})
}

// WriteRelations see [storage.RecordWriter].WriteRelations.
func WriteRelations(ctx context.Context, dbInfo *DBInfo, id record.RecordID, refers []record.RecordID) error {
	ctx, span := startTrace(ctx, "WriteRelations")
	defer span.End()

	return dbInfo.inTx(ctx, func(stbl sq.StatementBuilderType) error {
		if _, err := stbl.Delete("relations").Where(idEq(id)).ExecContext(ctx); err != nil {
			return dbInfo.HandleSQLError(err)
		}
		if len(refers) == 0 {
			return nil
		}

		insert := stbl.
			Insert("relations").
			Columns("bibliographicrecordid", "agencyid", "refer_bibliographicrecordid", "refer_agencyid")
		for _, refer := range refers {
			insert = insert.Values(id.BibliographicRecordID, id.AgencyID, refer.BibliographicRecordID, refer.AgencyID)
		}
		if _, err := insert.ExecContext(ctx); err != nil {
			return dbInfo.HandleSQLError(err)
		}
		return nil
	})
}

// WriteHolding see [storage.RecordWriter].WriteHolding.
func WriteHolding(ctx context.Context, dbInfo *DBInfo, bibliographicRecordID string, agencyID int) error {
	ctx, span := startTrace(ctx, "WriteHolding")
	defer span.End()

	return dbInfo.inTx(ctx, func(stbl sq.StatementBuilderType) error {
		where := sq.Eq{"bibliographicrecordid": bibliographicRecordID, "agencyid": agencyID}
		if _, err := stbl.Delete("holdings").Where(where).ExecContext(ctx); err != nil {
			return dbInfo.HandleSQLError(err)
		}
		_, err := stbl.
			Insert("holdings").
			Columns("bibliographicrecordid", "agencyid").
			Values(bibliographicRecordID, agencyID).
			ExecContext(ctx)
		if err != nil {
			return dbInfo.HandleSQLError(err)
		}
		return nil
	})
}
