package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/geocoder89/authhub/internal/observability"
	"github.com/google/uuid"
)

// fixed width so created_at sorts correctly as text
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// UsersRepo implements user.Repository using SQLite.
type UsersRepo struct {
	db   *sql.DB
	prom *observability.Prom
}

func NewUsersRepo(db *DB, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{db: db.SqlDB, prom: prom}
}

func (r *UsersRepo) Create(ctx context.Context, nu user.NewUser) (user.User, error) {
	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Username:     nu.Username,
		Email:        nu.Email,
		PasswordHash: nu.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := r.prom.ObserveDB("users.create", func() error {
		_, e := r.db.ExecContext(ctx,
			`INSERT INTO users (id, username, email, password_hash, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			u.ID, u.Username, u.Email, u.PasswordHash, formatTime(now), formatTime(now),
		)
		return e
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return user.User{}, user.ErrAlreadyExists
		}
		return user.User{}, fmt.Errorf("insert user: %w", err)
	}

	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	return r.getOne(ctx, "users.get_by_id", `WHERE id = ?`, id)
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.getOne(ctx, "users.get_by_email", `WHERE email = ?`, email)
}

func (r *UsersRepo) getOne(ctx context.Context, op, where string, arg any) (user.User, error) {
	var u user.User

	err := r.prom.ObserveDB(op, func() error {
		row := r.db.QueryRowContext(ctx,
			`SELECT id, username, email, password_hash, created_at, updated_at
			 FROM users `+where, arg,
		)
		return scanUser(row.Scan, &u)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, fmt.Errorf("query user: %w", err)
	}
	return u, nil
}

func (r *UsersRepo) List(ctx context.Context, filter user.ListFilter) (user.Page, error) {
	query := `SELECT id, username, email, password_hash, created_at, updated_at FROM users`
	args := []any{}

	if filter.AfterCreatedAt != nil && filter.AfterID != nil {
		c := formatTime(*filter.AfterCreatedAt)
		query += ` WHERE created_at > ? OR (created_at = ? AND id > ?)`
		args = append(args, c, c, *filter.AfterID)
	}

	query += ` ORDER BY created_at ASC, id ASC LIMIT ?`
	args = append(args, filter.Limit+1)

	out := make([]user.User, 0, filter.Limit+1)

	err := r.prom.ObserveDB("users.list", func() error {
		rows, err := r.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var u user.User
			if err := scanUser(rows.Scan, &u); err != nil {
				return err
			}
			out = append(out, u)
		}
		return rows.Err()
	})
	if err != nil {
		return user.Page{}, fmt.Errorf("list users: %w", err)
	}

	hasMore := len(out) > filter.Limit
	if hasMore {
		out = out[:filter.Limit]
	}

	return user.Page{Items: out, HasMore: hasMore}, nil
}

func (r *UsersRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func scanUser(scan func(dest ...any) error, u *user.User) error {
	var createdAt, updatedAt string

	if err := scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &createdAt, &updatedAt); err != nil {
		return err
	}

	var err error
	if u.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return fmt.Errorf("parse created_at: %w", err)
	}
	if u.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return fmt.Errorf("parse updated_at: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// isUniqueConstraintError checks if the error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
