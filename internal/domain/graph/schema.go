package graph

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schemaStatements holds the engine's tables and pagination indexes.
// Uniqueness per ordered (or canonical) pair and the no-self-edge checks
// live here; everything above the constraints is the repository's job.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id           UUID PRIMARY KEY,
		username     TEXT NOT NULL UNIQUE,
		display_name TEXT,
		avatar_url   TEXT,
		is_private   BOOLEAN NOT NULL DEFAULT FALSE,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS follow_edges (
		id          UUID PRIMARY KEY,
		follower_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		followee_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (follower_id, followee_id),
		CHECK (follower_id <> followee_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_follow_edges_followee
		ON follow_edges (followee_id, created_at DESC, follower_id DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_follow_edges_follower
		ON follow_edges (follower_id, created_at DESC, followee_id DESC)`,

	`CREATE TABLE IF NOT EXISTS follow_requests (
		id           UUID PRIMARY KEY,
		sender_id    UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		recipient_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (sender_id, recipient_id),
		CHECK (sender_id <> recipient_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_follow_requests_recipient
		ON follow_requests (recipient_id, created_at DESC, sender_id DESC)`,

	`CREATE TABLE IF NOT EXISTS friend_edges (
		id         UUID PRIMARY KEY,
		user_a_id  UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		user_b_id  UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (user_a_id, user_b_id),
		CHECK (user_a_id < user_b_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_friend_edges_user_a
		ON friend_edges (user_a_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_friend_edges_user_b
		ON friend_edges (user_b_id, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS friend_requests (
		id           UUID PRIMARY KEY,
		sender_id    UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		recipient_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (sender_id, recipient_id),
		CHECK (sender_id <> recipient_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_friend_requests_recipient
		ON friend_requests (recipient_id, created_at DESC, sender_id DESC)`,

	`CREATE TABLE IF NOT EXISTS user_blocks (
		id         UUID PRIMARY KEY,
		blocker_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		blocked_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (blocker_id, blocked_id),
		CHECK (blocker_id <> blocked_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_user_blocks_blocker
		ON user_blocks (blocker_id, created_at DESC, blocked_id DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_user_blocks_blocked
		ON user_blocks (blocked_id)`,

	`CREATE TABLE IF NOT EXISTS user_stats (
		user_id              UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		follower_count       INT NOT NULL DEFAULT 0 CHECK (follower_count >= 0),
		following_count      INT NOT NULL DEFAULT 0 CHECK (following_count >= 0),
		friend_count         INT NOT NULL DEFAULT 0 CHECK (friend_count >= 0),
		follow_request_count INT NOT NULL DEFAULT 0 CHECK (follow_request_count >= 0),
		friend_request_count INT NOT NULL DEFAULT 0 CHECK (friend_request_count >= 0),
		updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS notifications (
		id         UUID PRIMARY KEY,
		user_id    UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		type       TEXT NOT NULL,
		actor_id   UUID NOT NULL,
		is_read    BOOLEAN NOT NULL DEFAULT FALSE,
		read_at    TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user
		ON notifications (user_id, created_at DESC)`,
}

// EnsureSchema creates the engine's tables and indexes if missing.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("graph schema: %w", err)
		}
	}
	return nil
}
