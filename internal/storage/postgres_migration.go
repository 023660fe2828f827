package storage

import (
	"context"
	"fmt"
)

// migrationStatements are applied in order on startup. Statements are
// idempotent so replicas can race the migration safely.
var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL,
	username TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	avatar_url TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE TABLE IF NOT EXISTS sessions (
	token TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users (id),
	expires_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS content (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users (id),
	type TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	file_url TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	price NUMERIC(20, 8) NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	// Email uniqueness is enforced on the lowered value so it agrees with the
	// lowered lookup in AuthenticateUser: two casings of one address cannot
	// register as distinct users.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_lower ON users (lower(email))`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions (expires_at)`,
	`CREATE INDEX IF NOT EXISTS idx_content_created_at ON content (created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_content_type ON content (type)`,
	`CREATE INDEX IF NOT EXISTS idx_content_user_id ON content (user_id)`,
}

func (r *PostgresRepository) migrate(ctx context.Context) error {
	for _, statement := range migrationStatements {
		if _, err := r.pool.Exec(ctx, statement); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}
