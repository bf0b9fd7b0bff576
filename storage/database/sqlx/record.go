package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/nidhamu/core/record"
)

type recordRepository struct {
	db *sqlx.DB
}

var _ record.Repository = (*recordRepository)(nil) // interface compliance check

func NewRecordRepository(db *sqlx.DB) *recordRepository {
	return &recordRepository{db: db}
}

type recordRow struct {
	ID         string      `db:"id"`
	Code       string      `db:"code"`
	HappenedAt time.Time   `db:"happened_at"`
	UserID     null.String `db:"user_id"`
	StudentID  string      `db:"student_id"`
	ClassID    string      `db:"class_id"`
	RuleID     string      `db:"rule_id"`
	CreatedAt  time.Time   `db:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at"`
}

func packRecord(rec record.RecordForm) recordRow {
	return recordRow{
		ID:         rec.ID,
		Code:       rec.Code,
		HappenedAt: rec.HappenedAt.UTC(),
		UserID:     null.NewString(rec.UserID, rec.UserID != ""),
		StudentID:  rec.StudentID,
		ClassID:    rec.ClassID,
		RuleID:     rec.RuleID,
		CreatedAt:  rec.CreatedAt.UTC(),
		UpdatedAt:  rec.UpdatedAt.UTC(),
	}
}

func (row recordRow) unpack() record.RecordForm {
	return record.RecordForm{
		ID:         row.ID,
		Code:       row.Code,
		HappenedAt: row.HappenedAt,
		UserID:     row.UserID.String,
		StudentID:  row.StudentID,
		ClassID:    row.ClassID,
		RuleID:     row.RuleID,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
}

// trapNoRowsErr maps psql "no rows" err to record.ErrNotFound
func (repo recordRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return record.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo recordRepository) GetRecordByID(ctx context.Context, id string) (record.RecordForm, error) {
	if _, err := uuid.Parse(id); err != nil {
		return record.RecordForm{}, record.ErrNotFound
	}
	var row recordRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM "record_form" WHERE id = $1`, id); err != nil {
		return record.RecordForm{}, repo.trapNoRowsErr(err, "finding record form by ID")
	}
	return row.unpack(), nil
}

func (repo recordRepository) QueryAllRecords(ctx context.Context) ([]record.RecordForm, error) {
	var rows []recordRow
	err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM "record_form" ORDER BY happened_at DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "querying record forms")
	}
	recs := make([]record.RecordForm, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, row.unpack())
	}
	return recs, nil
}

func (repo recordRepository) QueryRecordCodes(ctx context.Context) ([]string, error) {
	var codes []string
	if err := repo.db.SelectContext(ctx, &codes, `SELECT code FROM "record_form"`); err != nil {
		return nil, errors.Wrap(err, "querying record form codes")
	}
	return codes, nil
}

func (repo recordRepository) FilterRecords(ctx context.Context, filter record.Filter) ([]record.RecordForm, error) {
	conds := []string{"TRUE"}
	var args []interface{}

	if filter.ClassID != "" {
		args = append(args, filter.ClassID)
		conds = append(conds, fmt.Sprintf("class_id = $%d", len(args)))
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conds = append(conds, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From.UTC())
		conds = append(conds, fmt.Sprintf("happened_at >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To.UTC())
		conds = append(conds, fmt.Sprintf("happened_at <= $%d", len(args)))
	}

	q := fmt.Sprintf(
		`SELECT * FROM "record_form" WHERE %s ORDER BY happened_at DESC`,
		strings.Join(conds, " AND "))

	var rows []recordRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "filtering record forms")
	}
	recs := make([]record.RecordForm, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, row.unpack())
	}
	return recs, nil
}

func (repo recordRepository) ApplyCreate(ctx context.Context, rec record.RecordForm, delta int) (record.RecordForm, error) {
	err := runTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO "record_form" (id, code, happened_at, user_id, student_id, class_id, rule_id, created_at, updated_at)
			VALUES (:id, :code, :happened_at, :user_id, :student_id, :class_id, :rule_id, :created_at, :updated_at)`,
			packRecord(rec))
		if err != nil {
			return errors.Wrap(err, "inserting record form")
		}
		if _, err = tx.ExecContext(ctx,
			`UPDATE "class" SET points = points + $1 WHERE id = $2`, delta, rec.ClassID); err != nil {
			return errors.Wrap(err, "adjusting class points")
		}
		if _, err = tx.ExecContext(ctx,
			`UPDATE "student" SET record_forms = array_append(record_forms, $1) WHERE id = $2`,
			rec.ID, rec.StudentID); err != nil {
			return errors.Wrap(err, "appending record form to student")
		}
		return nil
	})
	if err != nil {
		return record.RecordForm{}, err
	}
	return rec, nil
}

func (repo recordRepository) ApplyDelete(ctx context.Context, rec record.RecordForm, reversal int) error {
	return runTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM "record_form" WHERE id = $1`, rec.ID); err != nil {
			return errors.Wrap(err, "deleting record form")
		}
		if reversal != 0 {
			if _, err := tx.ExecContext(ctx,
				`UPDATE "class" SET points = points + $1 WHERE id = $2`, reversal, rec.ClassID); err != nil {
				return errors.Wrap(err, "reversing class points")
			}
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE "student" SET record_forms = array_remove(record_forms, $1::uuid) WHERE id = $2`,
			rec.ID, rec.StudentID); err != nil {
			return errors.Wrap(err, "pulling record form from student")
		}
		return nil
	})
}

func (repo recordRepository) ApplyMove(ctx context.Context, plan record.Move) (record.RecordForm, error) {
	rec := plan.Record
	err := runTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, `
			UPDATE "record_form"
			SET happened_at = :happened_at, user_id = :user_id, student_id = :student_id,
			    class_id = :class_id, rule_id = :rule_id, updated_at = :updated_at
			WHERE id = :id`, packRecord(rec))
		if err != nil {
			return errors.Wrap(err, "updating record form")
		}
		if plan.OldStudentID != "" {
			if _, err = tx.ExecContext(ctx,
				`UPDATE "student" SET record_forms = array_remove(record_forms, $1::uuid) WHERE id = $2`,
				rec.ID, plan.OldStudentID); err != nil {
				return errors.Wrap(err, "pulling record form from old student")
			}
			if _, err = tx.ExecContext(ctx,
				`UPDATE "student" SET record_forms = array_append(record_forms, $1) WHERE id = $2`,
				rec.ID, rec.StudentID); err != nil {
				return errors.Wrap(err, "appending record form to new student")
			}
		}
		for _, cd := range plan.ClassDeltas {
			if _, err = tx.ExecContext(ctx,
				`UPDATE "class" SET points = points + $1 WHERE id = $2`, cd.Delta, cd.ClassID); err != nil {
				return errors.Wrap(err, "adjusting class points")
			}
		}
		return nil
	})
	if err != nil {
		return record.RecordForm{}, err
	}
	return rec, nil
}
