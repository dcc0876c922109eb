package repository

import (
	"context"
	"errors"
	"time"

	"github.com/foxseedlab/multihost/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) repository.Repository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Shutdown() error {
	r.pool.Close()
	return nil
}

func (r *PostgresRepository) CreateSession(ctx context.Context, input repository.CreateSessionInput) (*repository.Session, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO sessions (id, stream_id, primary_host_id, started_at, status)
		 VALUES ($1, $2, $3, $4, 'running')
		 RETURNING id, stream_id, primary_host_id, started_at, ended_at, status, duration_seconds, host_count, created_at, updated_at`,
		input.SessionID, input.StreamID, input.PrimaryHostID, input.StartedAt)
	return scanSession(row)
}

func (r *PostgresRepository) CompleteSession(ctx context.Context, input repository.CompleteSessionInput) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE sessions
		 SET status = 'completed',
		     ended_at = $2,
		     duration_seconds = GREATEST(0, EXTRACT(EPOCH FROM ($2 - started_at))::BIGINT),
		     host_count = $3,
		     updated_at = NOW()
		 WHERE id = $1`,
		input.SessionID, input.EndedAt, input.HostCount)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`UPDATE session_hosts SET left_at = $2 WHERE session_id = $1 AND left_at IS NULL`,
		input.SessionID, input.EndedAt)
	return err
}

func (r *PostgresRepository) GetSession(ctx context.Context, sessionID string) (*repository.Session, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, stream_id, primary_host_id, started_at, ended_at, status, duration_seconds, host_count, created_at, updated_at
		 FROM sessions WHERE id = $1`,
		sessionID)
	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func (r *PostgresRepository) RecordHostJoined(ctx context.Context, input repository.HostJoinedInput) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO session_hosts (session_id, host_id, name, role, joined_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (session_id, host_id) DO UPDATE
		 SET name = EXCLUDED.name, role = EXCLUDED.role, left_at = NULL`,
		input.SessionID, input.HostID, input.Name, input.Role, input.JoinedAt)
	return err
}

func (r *PostgresRepository) RecordHostLeft(ctx context.Context, input repository.HostLeftInput) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE session_hosts SET left_at = $3 WHERE session_id = $1 AND host_id = $2 AND left_at IS NULL`,
		input.SessionID, input.HostID, input.LeftAt)
	return err
}

func (r *PostgresRepository) ListSessionHosts(ctx context.Context, sessionID string) ([]repository.SessionHost, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT session_id, host_id, name, role, joined_at, left_at
		 FROM session_hosts WHERE session_id = $1 ORDER BY joined_at ASC, host_id ASC`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.SessionHost
	for rows.Next() {
		var h repository.SessionHost
		var leftAt *time.Time
		if err := rows.Scan(&h.SessionID, &h.HostID, &h.Name, &h.Role, &h.JoinedAt, &leftAt); err != nil {
			return nil, err
		}
		h.LeftAt = leftAt
		list = append(list, h)
	}
	return list, rows.Err()
}

func (r *PostgresRepository) SaveInvitation(ctx context.Context, input repository.SaveInvitationInput) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO invitations (id, session_id, inviter_host_id, email, name, role, status, accepted_host_id, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE
		 SET status = EXCLUDED.status, accepted_host_id = EXCLUDED.accepted_host_id, updated_at = NOW()`,
		input.ID, input.SessionID, input.InviterHostID, input.Email, input.Name, input.Role,
		input.Status, input.AcceptedHostID, input.CreatedAt, input.ExpiresAt)
	return err
}

func (r *PostgresRepository) ListInvitations(ctx context.Context, sessionID string) ([]repository.Invitation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, inviter_host_id, email, name, role, status, accepted_host_id, created_at, expires_at, updated_at
		 FROM invitations WHERE session_id = $1 ORDER BY created_at ASC, id ASC`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.Invitation
	for rows.Next() {
		var inv repository.Invitation
		if err := rows.Scan(&inv.ID, &inv.SessionID, &inv.InviterHostID, &inv.Email, &inv.Name, &inv.Role,
			&inv.Status, &inv.AcceptedHostID, &inv.CreatedAt, &inv.ExpiresAt, &inv.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}

func scanSession(row pgx.Row) (*repository.Session, error) {
	var s repository.Session
	var endedAt *time.Time
	err := row.Scan(&s.ID, &s.StreamID, &s.PrimaryHostID, &s.StartedAt, &endedAt, &s.Status,
		&s.DurationSeconds, &s.HostCount, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.EndedAt = endedAt
	return &s, nil
}
