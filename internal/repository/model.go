package repository

import "time"

type SessionStatus string

const (
	SessionStatusRunning   SessionStatus = "running"
	SessionStatusCompleted SessionStatus = "completed"
)

type Session struct {
	ID              string
	StreamID        string
	PrimaryHostID   string
	StartedAt       time.Time
	EndedAt         *time.Time
	Status          SessionStatus
	DurationSeconds int64
	HostCount       int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SessionHost is one stay of a host in a session. A host that is removed
// keeps its row with LeftAt set.
type SessionHost struct {
	SessionID string
	HostID    string
	Name      string
	Role      string
	JoinedAt  time.Time
	LeftAt    *time.Time
}

type Invitation struct {
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
	UpdatedAt      time.Time
}
