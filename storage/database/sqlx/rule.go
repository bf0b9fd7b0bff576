package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/nidhamu/core/rule"
)

type ruleRepository struct {
	db *sqlx.DB
}

var _ rule.Repository = (*ruleRepository)(nil) // interface compliance check

func NewRuleRepository(db *sqlx.DB) *ruleRepository {
	return &ruleRepository{db: db}
}

type ruleRow struct {
	ID        string    `db:"id"`
	Code      string    `db:"code"`
	Content   string    `db:"content"`
	Points    int       `db:"points"`
	IsBonus   bool      `db:"is_bonus"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func packRule(rl rule.Rule) ruleRow {
	return ruleRow{
		ID:        rl.ID,
		Code:      rl.Code,
		Content:   rl.Content,
		Points:    rl.Points,
		IsBonus:   rl.IsBonus,
		CreatedAt: rl.CreatedAt.UTC(),
		UpdatedAt: rl.UpdatedAt.UTC(),
	}
}

func (row ruleRow) unpack() rule.Rule {
	return rule.Rule{
		ID:        row.ID,
		Code:      row.Code,
		Content:   row.Content,
		Points:    row.Points,
		IsBonus:   row.IsBonus,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

// trapNoRowsErr maps psql "no rows" err to rule.ErrNotFound
func (repo ruleRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return rule.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo ruleRepository) CreateRule(ctx context.Context, rl rule.Rule) (rule.Rule, error) {
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO "rule" (id, code, content, points, is_bonus, created_at, updated_at)
		VALUES (:id, :code, :content, :points, :is_bonus, :created_at, :updated_at)`,
		packRule(rl))
	if err != nil {
		return rule.Rule{}, errors.Wrap(err, "inserting rule")
	}
	return rl, nil
}

func (repo ruleRepository) QueryAllRules(ctx context.Context) ([]rule.Rule, error) {
	var rows []ruleRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM "rule" ORDER BY code`); err != nil {
		return nil, errors.Wrap(err, "querying rules")
	}
	rules := make([]rule.Rule, 0, len(rows))
	for _, row := range rows {
		rules = append(rules, row.unpack())
	}
	return rules, nil
}

func (repo ruleRepository) QueryRuleCodes(ctx context.Context) ([]string, error) {
	var codes []string
	if err := repo.db.SelectContext(ctx, &codes, `SELECT code FROM "rule"`); err != nil {
		return nil, errors.Wrap(err, "querying rule codes")
	}
	return codes, nil
}

func (repo ruleRepository) GetRuleByID(ctx context.Context, id string) (rule.Rule, error) {
	if _, err := uuid.Parse(id); err != nil {
		return rule.Rule{}, rule.ErrNotFound
	}
	var row ruleRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM "rule" WHERE id = $1`, id); err != nil {
		return rule.Rule{}, repo.trapNoRowsErr(err, "finding rule by ID")
	}
	return row.unpack(), nil
}

func (repo ruleRepository) UpdateRule(ctx context.Context, rl rule.Rule) (rule.Rule, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE "rule"
		SET code = :code, content = :content, points = :points, is_bonus = :is_bonus,
		    updated_at = :updated_at
		WHERE id = :id`, packRule(rl))
	if err != nil {
		return rule.Rule{}, errors.Wrap(err, "updating rule")
	}
	if cnt, _ := res.RowsAffected(); cnt == 0 {
		return rule.Rule{}, rule.ErrNotFound
	}
	return rl, nil
}

func (repo ruleRepository) DeleteRuleByID(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM "rule" WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting rule")
	}
	return nil
}
