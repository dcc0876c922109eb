package webhook

import (
	"context"
	"time"
)

type SessionSummaryHost struct {
	HostID   string     `json:"host_id"`
	Name     string     `json:"name"`
	Role     string     `json:"role"`
	JoinedAt time.Time  `json:"joined_at"`
	LeftAt   *time.Time `json:"left_at,omitempty"`
}

type SessionSummaryPayload struct {
	SessionID           string               `json:"session_id"`
	StreamID            string               `json:"stream_id"`
	PrimaryHostID       string               `json:"primary_host_id"`
	StartedAt           time.Time            `json:"started_at"`
	EndedAt             time.Time            `json:"ended_at"`
	DurationSeconds     int64                `json:"duration_seconds"`
	Hosts               []SessionSummaryHost `json:"hosts"`
	InvitationsSent     int                  `json:"invitations_sent"`
	InvitationsAccepted int                  `json:"invitations_accepted"`
}

type Sender interface {
	SendSessionSummary(ctx context.Context, payload SessionSummaryPayload) error
}
