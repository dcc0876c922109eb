package repository

import (
	"context"

	"github.com/foxseedlab/multihost/internal/repository"
)

// NopRepository discards every write. It backs STORE_DRIVER=none.
type NopRepository struct{}

var _ repository.Repository = NopRepository{}

func (NopRepository) CreateSession(_ context.Context, input repository.CreateSessionInput) (*repository.Session, error) {
	return &repository.Session{
		ID:            input.SessionID,
		StreamID:      input.StreamID,
		PrimaryHostID: input.PrimaryHostID,
		StartedAt:     input.StartedAt,
		Status:        repository.SessionStatusRunning,
	}, nil
}

func (NopRepository) CompleteSession(context.Context, repository.CompleteSessionInput) error {
	return nil
}

func (NopRepository) GetSession(context.Context, string) (*repository.Session, error) {
	return nil, nil
}

func (NopRepository) RecordHostJoined(context.Context, repository.HostJoinedInput) error {
	return nil
}

func (NopRepository) RecordHostLeft(context.Context, repository.HostLeftInput) error {
	return nil
}

func (NopRepository) ListSessionHosts(context.Context, string) ([]repository.SessionHost, error) {
	return nil, nil
}

func (NopRepository) SaveInvitation(context.Context, repository.SaveInvitationInput) error {
	return nil
}

func (NopRepository) ListInvitations(context.Context, string) ([]repository.Invitation, error) {
	return nil, nil
}
