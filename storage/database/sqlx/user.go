package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/nidhamu/core/user"
)

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

type userRow struct {
	ID               string         `db:"id"`
	Username         string         `db:"username"`
	FirstName        string         `db:"first_name"`
	LastName         string         `db:"last_name"`
	Email            string         `db:"email"`
	Role             string         `db:"role"`
	IsActive         bool           `db:"is_active"`
	FollowingClasses pq.StringArray `db:"following_classes"`
	PasswordHash     []byte         `db:"password_hash"`
	LastLogin        null.Time      `db:"last_login"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

func packUser(usr user.User) userRow {
	return userRow{
		ID:               usr.ID,
		Username:         usr.Username,
		FirstName:        usr.FirstName,
		LastName:         usr.LastName,
		Email:            usr.Email,
		Role:             usr.Role,
		IsActive:         usr.IsActive,
		FollowingClasses: usr.FollowingClasses,
		PasswordHash:     usr.PasswordHash,
		LastLogin:        null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
		CreatedAt:        usr.CreatedAt.UTC(),
		UpdatedAt:        usr.UpdatedAt.UTC(),
	}
}

func (row userRow) unpack() user.User {
	return user.User{
		ID:               row.ID,
		Username:         row.Username,
		FirstName:        row.FirstName,
		LastName:         row.LastName,
		Email:            row.Email,
		Role:             row.Role,
		IsActive:         row.IsActive,
		FollowingClasses: row.FollowingClasses,
		PasswordHash:     row.PasswordHash,
		LastLogin:        row.LastLogin.Time,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	ids := make([]string, 0, len(excludedUsers))
	for _, usr := range excludedUsers {
		ids = append(ids, usr.ID)
	}
	var matchedUname, matchedEmail bool
	err := repo.db.QueryRowContext(ctx, `
		SELECT COALESCE(bool_or(username = $1), FALSE), COALESCE(bool_or(email = $2), FALSE)
		FROM "user" WHERE (username = $1 OR email = $2) AND id <> ALL($3)`,
		username, email, pq.Array(ids)).Scan(&matchedUname, &matchedEmail)
	if err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	if matchedUname {
		return user.ErrUsernameExists
	}
	if matchedEmail {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO "user" (id, username, first_name, last_name, email, role, is_active,
		                    following_classes, password_hash, last_login, created_at, updated_at)
		VALUES (:id, :username, :first_name, :last_name, :email, :role, :is_active,
		        :following_classes, :password_hash, :last_login, :created_at, :updated_at)`,
		packUser(usr))
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM "user" ORDER BY username`); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.unpack())
	}
	return users, nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}
	var row userRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM "user" WHERE id = $1`, id); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user by ID")
	}
	return row.unpack(), nil
}

func (repo userRepository) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	var row userRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM "user" WHERE username = $1`, username); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user by username")
	}
	return row.unpack(), nil
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var row userRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM "user" WHERE email = $1`, email); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user by email")
	}
	return row.unpack(), nil
}

func (repo userRepository) GetUserByUsernameOrEmail(ctx context.Context, username string) (user.User, error) {
	var row userRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT * FROM "user" WHERE username = $1 OR email = $1`, username)
	if err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user")
	}
	return row.unpack(), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	orig, err := repo.GetUserByID(ctx, usr.ID)
	if err != nil {
		return user.User{}, err
	}
	orig.Username = usr.Username
	orig.FirstName = usr.FirstName
	orig.LastName = usr.LastName
	orig.Email = usr.Email
	orig.Role = usr.Role
	if usr.PasswordHash != nil {
		orig.PasswordHash = usr.PasswordHash
	}
	if isActive != nil {
		orig.IsActive = *isActive
	}
	if !usr.LastLogin.IsZero() {
		orig.LastLogin = usr.LastLogin
	}
	orig.UpdatedAt = usr.UpdatedAt

	_, err = repo.db.NamedExecContext(ctx, `
		UPDATE "user"
		SET username = :username, first_name = :first_name, last_name = :last_name,
		    email = :email, role = :role, is_active = :is_active,
		    following_classes = :following_classes, password_hash = :password_hash,
		    last_login = :last_login, updated_at = :updated_at
		WHERE id = :id`, packUser(orig))
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return orig, nil
}

func (repo userRepository) DeleteUserByID(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM "user" WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return nil
}

func (repo userRepository) ApplyAssignments(ctx context.Context, change user.AssignmentChange) error {
	return runTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		for _, clsID := range change.DetachClassIDs {
			if _, err := tx.ExecContext(ctx,
				`UPDATE "user" SET following_classes = array_remove(following_classes, $1::uuid)
				 WHERE $1 = ANY(following_classes)`, clsID); err != nil {
				return errors.Wrap(err, "detaching class from monitors")
			}
		}
		for userID, clsIDs := range change.Attach {
			res, err := tx.ExecContext(ctx,
				`UPDATE "user" SET following_classes = following_classes || $1::uuid[] WHERE id = $2`,
				pq.Array(clsIDs), userID)
			if err != nil {
				return errors.Wrap(err, "attaching classes to monitor")
			}
			if cnt, _ := res.RowsAffected(); cnt == 0 {
				return user.ErrNotFound
			}
		}
		return nil
	})
}
