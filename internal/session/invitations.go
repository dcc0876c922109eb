package session

import (
	"strings"
	"time"
)

// invitations tracks the invitations of the active session. Expiry is lazy:
// a pending invitation past its deadline becomes expired the next time it is
// read or acted upon. Guarded by Coordinator like store.
type invitations struct {
	byID   map[string]*Invitation
	order  []string
	store  *store
	fanout *Fanout
	ttl    time.Duration
	now    func() time.Time
	newID  func() string
}

func (m *invitations) invite(in InviteInput) (Invitation, *Host, error) {
	sess, err := m.store.active()
	if err != nil {
		return Invitation{}, nil, err
	}
	idx := sess.hostIndex(in.InviterHostID)
	if idx < 0 {
		return Invitation{}, nil, newError(ErrHostNotFound, "inviter is not a session host", "host_id", in.InviterHostID)
	}
	if !sess.Hosts[idx].Permissions.CanInviteOthers {
		return Invitation{}, nil, newError(ErrPermissionDenied, "host cannot invite others", "host_id", in.InviterHostID)
	}
	role := in.Role
	if role == "" {
		role = sess.Settings.DefaultRole
	}
	if !role.Valid() || role == RolePrimary {
		return Invitation{}, nil, newError(ErrInvalidArgument, "role cannot be invited", "role", string(role))
	}
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return Invitation{}, nil, newError(ErrInvalidArgument, "invitee email is required")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = email
	}

	now := m.now()
	inv := &Invitation{
		ID:          m.newID(),
		SessionID:   sess.ID,
		HostID:      in.InviterHostID,
		Email:       email,
		Name:        name,
		Role:        role,
		Permissions: DefaultPermissions(role),
		Status:      InvitationStatusPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(m.ttl),
	}

	var admitted *Host
	if sess.Settings.AutoAcceptInvitations {
		h, err := m.store.admitHost(inv.Role, inv.Name)
		if err != nil {
			return Invitation{}, nil, err
		}
		inv.Status = InvitationStatusAccepted
		inv.AcceptedHostID = h.ID
		admitted = &h
	}

	m.byID[inv.ID] = inv
	m.order = append(m.order, inv.ID)
	m.fanout.publishInvitation(*inv)
	return *inv, admitted, nil
}

func (m *invitations) get(id string) (Invitation, error) {
	inv, ok := m.byID[id]
	if !ok {
		return Invitation{}, newError(ErrInvitationNotFound, "", "invitation_id", id)
	}
	m.expireIfDue(inv)
	return *inv, nil
}

func (m *invitations) list() []Invitation {
	out := make([]Invitation, 0, len(m.order))
	for _, id := range m.order {
		inv := m.byID[id]
		m.expireIfDue(inv)
		out = append(out, *inv)
	}
	return out
}

func (m *invitations) accept(id string) (Host, Invitation, error) {
	if _, err := m.store.active(); err != nil {
		return Host{}, Invitation{}, err
	}
	inv, err := m.resolvable(id)
	if err != nil {
		return Host{}, Invitation{}, err
	}
	h, err := m.store.admitHost(inv.Role, inv.Name)
	if err != nil {
		return Host{}, Invitation{}, err
	}
	inv.Status = InvitationStatusAccepted
	inv.AcceptedHostID = h.ID
	m.fanout.publishInvitation(*inv)
	return h, *inv, nil
}

func (m *invitations) decline(id string) (Invitation, error) {
	if _, err := m.store.active(); err != nil {
		return Invitation{}, err
	}
	inv, err := m.resolvable(id)
	if err != nil {
		return Invitation{}, err
	}
	inv.Status = InvitationStatusDeclined
	m.fanout.publishInvitation(*inv)
	return *inv, nil
}

// resolvable returns the invitation if it is still pending and unexpired.
func (m *invitations) resolvable(id string) (*Invitation, error) {
	inv, ok := m.byID[id]
	if !ok {
		return nil, newError(ErrInvitationNotFound, "", "invitation_id", id)
	}
	switch inv.Status {
	case InvitationStatusAccepted, InvitationStatusDeclined:
		return nil, newError(ErrInvitationAlreadyResolved, "", "invitation_id", id, "status", string(inv.Status))
	case InvitationStatusExpired:
		return nil, newError(ErrInvitationExpired, "", "invitation_id", id)
	}
	if m.expireIfDue(inv) {
		return nil, newError(ErrInvitationExpired, "", "invitation_id", id)
	}
	return inv, nil
}

// expireIfDue moves a pending invitation past its deadline to expired and
// reports whether it did.
func (m *invitations) expireIfDue(inv *Invitation) bool {
	if inv.Status != InvitationStatusPending || !inv.expiredAt(m.now()) {
		return false
	}
	inv.Status = InvitationStatusExpired
	m.fanout.publishInvitation(*inv)
	return true
}

func (m *invitations) reset() {
	m.byID = make(map[string]*Invitation)
	m.order = nil
}
