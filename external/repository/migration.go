package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrationStatements = []string{
	`DO $$ BEGIN CREATE TYPE session_status AS ENUM ('running', 'completed'); EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		stream_id TEXT NOT NULL,
		primary_host_id TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		ended_at TIMESTAMPTZ,
		status session_status NOT NULL DEFAULT 'running',
		duration_seconds BIGINT NOT NULL DEFAULT 0,
		host_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_running ON sessions (started_at) WHERE status = 'running'`,
	`CREATE TABLE IF NOT EXISTS session_hosts (
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		host_id TEXT NOT NULL,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		joined_at TIMESTAMPTZ NOT NULL,
		left_at TIMESTAMPTZ,
		PRIMARY KEY (session_id, host_id)
	)`,
	`CREATE TABLE IF NOT EXISTS invitations (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		inviter_host_id TEXT NOT NULL,
		email TEXT NOT NULL,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		status TEXT NOT NULL,
		accepted_host_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_invitations_session ON invitations (session_id, created_at)`,
}

func RunMigration(ctx context.Context, pool *pgxpool.Pool) error {
	for _, s := range migrationStatements {
		stmt := strings.TrimSpace(s)
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
