package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/nidhamu/core/response"
)

type responseRepository struct {
	db *sqlx.DB
}

var _ response.Repository = (*responseRepository)(nil) // interface compliance check

func NewResponseRepository(db *sqlx.DB) *responseRepository {
	return &responseRepository{db: db}
}

type responseRow struct {
	ID           string      `db:"id"`
	RecordFormID string      `db:"record_form_id"`
	UserID       null.String `db:"user_id"`
	FirstName    string      `db:"first_name"`
	LastName     string      `db:"last_name"`
	Email        string      `db:"email"`
	Content      string      `db:"content"`
	State        string      `db:"state"`
	AdminReply   string      `db:"admin_reply"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

func packResponse(rsp response.Response) responseRow {
	return responseRow{
		ID:           rsp.ID,
		RecordFormID: rsp.RecordFormID,
		UserID:       null.NewString(rsp.UserID, rsp.UserID != ""),
		FirstName:    rsp.FirstName,
		LastName:     rsp.LastName,
		Email:        rsp.Email,
		Content:      rsp.Content,
		State:        string(rsp.State),
		AdminReply:   rsp.AdminReply,
		CreatedAt:    rsp.CreatedAt.UTC(),
		UpdatedAt:    rsp.UpdatedAt.UTC(),
	}
}

func (row responseRow) unpack() response.Response {
	return response.Response{
		ID:           row.ID,
		RecordFormID: row.RecordFormID,
		UserID:       row.UserID.String,
		FirstName:    row.FirstName,
		LastName:     row.LastName,
		Email:        row.Email,
		Content:      row.Content,
		State:        response.State(row.State),
		AdminReply:   row.AdminReply,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

// trapNoRowsErr maps psql "no rows" err to response.ErrNotFound
func (repo responseRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return response.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo responseRepository) CreateResponse(ctx context.Context, rsp response.Response) (response.Response, error) {
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO "response" (id, record_form_id, user_id, first_name, last_name, email,
		                        content, state, admin_reply, created_at, updated_at)
		VALUES (:id, :record_form_id, :user_id, :first_name, :last_name, :email,
		        :content, :state, :admin_reply, :created_at, :updated_at)`,
		packResponse(rsp))
	if err != nil {
		return response.Response{}, errors.Wrap(err, "inserting response")
	}
	return rsp, nil
}

func (repo responseRepository) QueryAllResponses(ctx context.Context) ([]response.Response, error) {
	var rows []responseRow
	err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM "response" ORDER BY created_at DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "querying responses")
	}
	responses := make([]response.Response, 0, len(rows))
	for _, row := range rows {
		responses = append(responses, row.unpack())
	}
	return responses, nil
}

func (repo responseRepository) QueryResponsesByUser(ctx context.Context, userID string) ([]response.Response, error) {
	var rows []responseRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM "response" WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying user responses")
	}
	responses := make([]response.Response, 0, len(rows))
	for _, row := range rows {
		responses = append(responses, row.unpack())
	}
	return responses, nil
}

func (repo responseRepository) GetResponseByID(ctx context.Context, id string) (response.Response, error) {
	if _, err := uuid.Parse(id); err != nil {
		return response.Response{}, response.ErrNotFound
	}
	var row responseRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM "response" WHERE id = $1`, id); err != nil {
		return response.Response{}, repo.trapNoRowsErr(err, "finding response by ID")
	}
	return row.unpack(), nil
}

func (repo responseRepository) UpdateResponse(ctx context.Context, rsp response.Response) (response.Response, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE "response"
		SET content = :content, state = :state, admin_reply = :admin_reply, updated_at = :updated_at
		WHERE id = :id`, packResponse(rsp))
	if err != nil {
		return response.Response{}, errors.Wrap(err, "updating response")
	}
	if cnt, _ := res.RowsAffected(); cnt == 0 {
		return response.Response{}, response.ErrNotFound
	}
	return rsp, nil
}
