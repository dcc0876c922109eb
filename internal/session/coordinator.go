package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/foxseedlab/multihost/internal/config"
	"github.com/google/uuid"
)

// Coordinator is the single entry point for the multi-host session. One
// instance owns at most one active session; every mutation runs under one
// mutex and its notifications are delivered before the call returns, unless
// another caller is already delivering, in which case that caller delivers
// them in order.
type Coordinator struct {
	cfg *config.Config

	mu          sync.Mutex
	store       *store
	invitations *invitations
	fanout      *Fanout

	now   func() time.Time
	newID func() string
}

func NewCoordinator(cfg *config.Config) *Coordinator {
	c := &Coordinator{
		cfg:    cfg,
		fanout: NewFanout(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	now := func() time.Time { return c.now() }
	newID := func() string { return c.newID() }
	c.store = &store{fanout: c.fanout, now: now, newID: newID}
	c.invitations = &invitations{
		byID:   make(map[string]*Invitation),
		store:  c.store,
		fanout: c.fanout,
		ttl:    cfg.InvitationTTL,
		now:    now,
		newID:  newID,
	}
	return c
}

func (c *Coordinator) defaultSettings() SessionSettings {
	return SessionSettings{
		MaxHosts:              c.cfg.MaxHosts,
		AutoAcceptInvitations: c.cfg.AutoAcceptInvitations,
		DefaultRole:           RoleCoHost,
		DefaultPermissions:    DefaultPermissions(RoleCoHost),
	}
}

// locked runs fn as one serialized mutation, then delivers what it published.
func (c *Coordinator) locked(fn func() error) error {
	c.mu.Lock()
	err := fn()
	c.mu.Unlock()
	c.fanout.Flush()
	return err
}

func (c *Coordinator) CreateSession(in CreateSessionInput) (*Session, error) {
	var sess *Session
	err := c.locked(func() error {
		var err error
		sess, err = c.store.create(in, c.defaultSettings())
		if err != nil {
			return err
		}
		c.invitations.reset()
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("session created", "session_id", sess.ID, "stream_id", sess.StreamID, "primary_host_id", sess.PrimaryHostID)
	return sess, nil
}

// EndSession moves the session to its ended state, notifies subscribers with
// the ended snapshot, then clears it. Pending invitations are discarded.
func (c *Coordinator) EndSession() (bool, error) {
	if _, err := c.EndSessionSnapshot(); err != nil {
		return false, err
	}
	return true, nil
}

// EndSessionSnapshot ends the session like EndSession and returns the
// terminal snapshot taken inside the same mutation.
func (c *Coordinator) EndSessionSnapshot() (*Session, error) {
	var ended *Session
	err := c.locked(func() error {
		var err error
		ended, err = c.store.end()
		if err != nil {
			return err
		}
		c.invitations.reset()
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("session ended", "session_id", ended.ID, "hosts", len(ended.Hosts))
	return ended, nil
}

func (c *Coordinator) InviteHost(in InviteInput) (Invitation, error) {
	var (
		inv      Invitation
		admitted *Host
	)
	err := c.locked(func() error {
		var err error
		inv, admitted, err = c.invitations.invite(in)
		return err
	})
	if err != nil {
		return Invitation{}, err
	}
	slog.Info("host invited", "invitation_id", inv.ID, "inviter_host_id", inv.HostID, "role", string(inv.Role), "expires_at", inv.ExpiresAt)
	if admitted != nil {
		slog.Info("invitation auto-accepted", "invitation_id", inv.ID, "host_id", admitted.ID)
	}
	return inv, nil
}

func (c *Coordinator) AcceptInvitation(invitationID string) (Host, error) {
	var h Host
	err := c.locked(func() error {
		var err error
		h, _, err = c.invitations.accept(invitationID)
		return err
	})
	if err != nil {
		return Host{}, err
	}
	slog.Info("invitation accepted", "invitation_id", invitationID, "host_id", h.ID, "role", string(h.Role))
	return h, nil
}

func (c *Coordinator) DeclineInvitation(invitationID string) (bool, error) {
	err := c.locked(func() error {
		_, err := c.invitations.decline(invitationID)
		return err
	})
	if err != nil {
		return false, err
	}
	slog.Info("invitation declined", "invitation_id", invitationID)
	return true, nil
}

// GetInvitation returns the invitation after applying lazy expiry.
func (c *Coordinator) GetInvitation(invitationID string) (Invitation, error) {
	var inv Invitation
	err := c.locked(func() error {
		var err error
		inv, err = c.invitations.get(invitationID)
		return err
	})
	return inv, err
}

func (c *Coordinator) ListInvitations() []Invitation {
	var list []Invitation
	_ = c.locked(func() error {
		list = c.invitations.list()
		return nil
	})
	return list
}

// RemoveHost removes hostID from the session. An id that is not a member is
// a successful no-op.
func (c *Coordinator) RemoveHost(hostID string) (bool, error) {
	var removed bool
	err := c.locked(func() error {
		var err error
		removed, err = c.store.removeHost(hostID)
		return err
	})
	if err != nil {
		return false, err
	}
	if removed {
		slog.Info("host removed", "host_id", hostID)
	} else {
		slog.Debug("remove host ignored; not a member", "host_id", hostID)
	}
	return true, nil
}

func (c *Coordinator) UpdateHostSettings(hostID string, upd HostUpdate) (Host, error) {
	var h Host
	err := c.locked(func() error {
		var err error
		h, err = c.store.updateHost(hostID, upd)
		return err
	})
	if err != nil {
		return Host{}, err
	}
	slog.Info("host updated", "host_id", h.ID, "status", string(h.Status))
	return h, nil
}

func (c *Coordinator) UpdateLayout(p LayoutPatch) (Layout, error) {
	var l Layout
	err := c.locked(func() error {
		var err error
		l, err = c.store.updateLayout(p)
		return err
	})
	if err != nil {
		return Layout{}, err
	}
	slog.Info("layout updated", "type", string(l.Type), "visible_hosts", len(l.VisibleHostIDs))
	return l, nil
}

func (c *Coordinator) SetActiveHost(hostID string) (bool, error) {
	err := c.locked(func() error {
		return c.store.setActiveHost(hostID)
	})
	if err != nil {
		return false, err
	}
	slog.Info("active host changed", "host_id", hostID)
	return true, nil
}

// SetConnection stores an opaque transport handle for hostID. An empty handle
// clears it.
func (c *Coordinator) SetConnection(hostID, handle string) error {
	err := c.locked(func() error {
		return c.store.setConnection(hostID, handle)
	})
	if err != nil {
		return err
	}
	slog.Debug("host connection updated", "host_id", hostID, "cleared", handle == "")
	return nil
}

// GetCurrentSession returns a copy of the active session, or nil.
func (c *Coordinator) GetCurrentSession() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.snapshot()
}

// LastEndedSession returns the terminal snapshot of the most recently ended
// session until the next session is created.
func (c *Coordinator) LastEndedSession() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store.lastEnded == nil {
		return nil
	}
	return c.store.lastEnded.clone()
}

func (c *Coordinator) SubscribeSession(fn func(*Session)) func() {
	return c.fanout.SubscribeSession(fn)
}

func (c *Coordinator) SubscribeHosts(fn func([]Host)) func() {
	return c.fanout.SubscribeHosts(fn)
}

func (c *Coordinator) SubscribeInvitations(fn func(Invitation)) func() {
	return c.fanout.SubscribeInvitations(fn)
}
