package repository

import (
	"context"
	"time"
)

type CreateSessionInput struct {
	SessionID     string
	StreamID      string
	PrimaryHostID string
	StartedAt     time.Time
}

type CompleteSessionInput struct {
	SessionID string
	EndedAt   time.Time
	HostCount int
}

type HostJoinedInput struct {
	SessionID string
	HostID    string
	Name      string
	Role      string
	JoinedAt  time.Time
}

type HostLeftInput struct {
	SessionID string
	HostID    string
	LeftAt    time.Time
}

// SaveInvitationInput inserts the invitation or overwrites the mutable
// columns of an existing row with the same ID.
type SaveInvitationInput struct {
	ID             string
	SessionID      string
	InviterHostID  string
	Email          string
	Name           string
	Role           string
	Status         string
	AcceptedHostID string
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

type SessionRepository interface {
	CreateSession(ctx context.Context, input CreateSessionInput) (*Session, error)
	CompleteSession(ctx context.Context, input CompleteSessionInput) error
	// GetSession returns nil without error when the session is unknown.
	GetSession(ctx context.Context, sessionID string) (*Session, error)
}

type HostRepository interface {
	RecordHostJoined(ctx context.Context, input HostJoinedInput) error
	RecordHostLeft(ctx context.Context, input HostLeftInput) error
	ListSessionHosts(ctx context.Context, sessionID string) ([]SessionHost, error)
}

type InvitationRepository interface {
	SaveInvitation(ctx context.Context, input SaveInvitationInput) error
	ListInvitations(ctx context.Context, sessionID string) ([]Invitation, error)
}

type Repository interface {
	SessionRepository
	HostRepository
	InvitationRepository
}
