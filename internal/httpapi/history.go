package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/foxseedlab/multihost/internal/repository"
	"github.com/julienschmidt/httprouter"
)

// HistoryReader is the read side of the history store.
type HistoryReader interface {
	GetSession(ctx context.Context, sessionID string) (*repository.Session, error)
	ListSessionHosts(ctx context.Context, sessionID string) ([]repository.SessionHost, error)
	ListInvitations(ctx context.Context, sessionID string) ([]repository.Invitation, error)
}

type historySession struct {
	ID              string     `json:"id"`
	StreamID        string     `json:"streamId"`
	PrimaryHostID   string     `json:"primaryHostId"`
	Status          string     `json:"status"`
	StartedAt       time.Time  `json:"startedAt"`
	EndedAt         *time.Time `json:"endedAt,omitempty"`
	DurationSeconds int64      `json:"durationSeconds"`
	HostCount       int        `json:"hostCount"`
}

type historyHost struct {
	HostID   string     `json:"hostId"`
	Name     string     `json:"name"`
	Role     string     `json:"role"`
	JoinedAt time.Time  `json:"joinedAt"`
	LeftAt   *time.Time `json:"leftAt,omitempty"`
}

type historyInvitation struct {
	ID             string    `json:"id"`
	InviterHostID  string    `json:"inviterHostId"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	Role           string    `json:"role"`
	Status         string    `json:"status"`
	AcceptedHostID string    `json:"acceptedHostId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

// getHistoryHandler returns a recorded session with its host stays and
// invitations. Sessions that were never recorded are not found.
func (s *Server) getHistoryHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := httprouter.ParamsFromContext(r.Context()).ByName("sessionID")
	ctx := r.Context()

	rec, err := s.history.GetSession(ctx, sessionID)
	if err != nil {
		s.serverErrorResponse(w, r, fmt.Errorf("failed to load session history: %w", err))
		return
	}
	if rec == nil {
		s.notFoundResponse(w, r)
		return
	}
	stays, err := s.history.ListSessionHosts(ctx, sessionID)
	if err != nil {
		s.serverErrorResponse(w, r, fmt.Errorf("failed to load host history: %w", err))
		return
	}
	invitations, err := s.history.ListInvitations(ctx, sessionID)
	if err != nil {
		s.serverErrorResponse(w, r, fmt.Errorf("failed to load invitation history: %w", err))
		return
	}

	hosts := make([]historyHost, 0, len(stays))
	for _, h := range stays {
		hosts = append(hosts, historyHost{
			HostID:   h.HostID,
			Name:     h.Name,
			Role:     h.Role,
			JoinedAt: h.JoinedAt,
			LeftAt:   h.LeftAt,
		})
	}
	invs := make([]historyInvitation, 0, len(invitations))
	for _, inv := range invitations {
		invs = append(invs, historyInvitation{
			ID:             inv.ID,
			InviterHostID:  inv.InviterHostID,
			Email:          inv.Email,
			Name:           inv.Name,
			Role:           inv.Role,
			Status:         inv.Status,
			AcceptedHostID: inv.AcceptedHostID,
			CreatedAt:      inv.CreatedAt,
			ExpiresAt:      inv.ExpiresAt,
		})
	}

	res := envelope{
		"session": historySession{
			ID:              rec.ID,
			StreamID:        rec.StreamID,
			PrimaryHostID:   rec.PrimaryHostID,
			Status:          string(rec.Status),
			StartedAt:       rec.StartedAt,
			EndedAt:         rec.EndedAt,
			DurationSeconds: rec.DurationSeconds,
			HostCount:       rec.HostCount,
		},
		"hosts":       hosts,
		"invitations": invs,
	}
	if err := s.writeJSON(w, http.StatusOK, res, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}
