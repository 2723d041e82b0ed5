package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Repository defines user directory data access
type Repository interface {
	Ensure(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	IsPrivate(ctx context.Context, id uuid.UUID) (bool, error)
	SetPrivacy(ctx context.Context, id uuid.UUID, private bool) error
	GetSummaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Summary, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new user directory repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// Ensure upserts the directory mirror row for a user.
func (r *repository) Ensure(ctx context.Context, u *User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, username, display_name, avatar_url, is_private, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (id) DO UPDATE
		SET username = EXCLUDED.username,
		    display_name = EXCLUDED.display_name,
		    avatar_url = EXCLUDED.avatar_url,
		    is_private = EXCLUDED.is_private
	`, u.ID, u.Username, u.DisplayName, u.AvatarURL, u.IsPrivate)
	if err != nil {
		return fmt.Errorf("user repository ensure: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, `
		SELECT id, username, display_name, avatar_url, is_private, created_at
		FROM users WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user repository get: %w", err)
	}
	return &u, nil
}

func (r *repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id)
	if err != nil {
		return false, fmt.Errorf("user repository exists: %w", err)
	}
	return exists, nil
}

func (r *repository) IsPrivate(ctx context.Context, id uuid.UUID) (bool, error) {
	var private bool
	err := r.db.GetContext(ctx, &private, `SELECT is_private FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrUserNotFound
	}
	if err != nil {
		return false, fmt.Errorf("user repository is_private: %w", err)
	}
	return private, nil
}

func (r *repository) SetPrivacy(ctx context.Context, id uuid.UUID, private bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET is_private = $1 WHERE id = $2`, private, id)
	if err != nil {
		return fmt.Errorf("user repository set_privacy: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *repository) GetSummaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Summary, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]Summary{}, nil
	}

	var rows []Summary
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, username, display_name, avatar_url
		FROM users WHERE id = ANY($1)
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("user repository summaries: %w", err)
	}

	summaries := make(map[uuid.UUID]Summary, len(rows))
	for _, row := range rows {
		summaries[row.ID] = row
	}
	return summaries, nil
}
