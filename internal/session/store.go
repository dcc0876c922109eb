package session

import (
	"slices"
	"strconv"
	"time"
)

// store holds the single active session. It is not safe for concurrent use;
// Coordinator serializes every call.
type store struct {
	current   *Session
	lastEnded *Session
	fanout    *Fanout
	now       func() time.Time
	newID     func() string
}

func (s *store) active() (*Session, error) {
	if s.current == nil {
		return nil, ErrNoActiveSession
	}
	return s.current, nil
}

func (s *store) create(in CreateSessionInput, settings SessionSettings) (*Session, error) {
	if s.current != nil {
		return nil, newError(ErrAlreadyActive, "", "session_id", s.current.ID)
	}
	if in.PrimaryHostID == "" {
		return nil, newError(ErrInvalidArgument, "primary host id is required")
	}
	now := s.now()
	name := in.PrimaryHostName
	if name == "" {
		name = in.PrimaryHostID
	}
	streamID := in.StreamID
	if streamID == "" {
		streamID = s.newID()
	}
	primary := Host{
		ID:           in.PrimaryHostID,
		Name:         name,
		Role:         RolePrimary,
		Status:       HostStatusOnline,
		Permissions:  DefaultPermissions(RolePrimary),
		Settings:     defaultHostSettings(),
		JoinedAt:     now,
		LastActiveAt: now,
	}
	s.current = &Session{
		ID:       s.newID(),
		StreamID: streamID,
		Hosts:    []Host{primary},
		Layout: Layout{
			Type:           LayoutSpotlight,
			PrimaryHostID:  primary.ID,
			VisibleHostIDs: []string{primary.ID},
		},
		PrimaryHostID: primary.ID,
		ActiveHostID:  primary.ID,
		Connections:   map[string]string{},
		StartedAt:     now,
		Settings:      settings,
	}
	s.lastEnded = nil
	s.publishSession()
	s.publishHosts()
	return s.current.clone(), nil
}

func (s *store) admitHost(role Role, name string) (Host, error) {
	sess, err := s.active()
	if err != nil {
		return Host{}, err
	}
	if !role.Valid() || role == RolePrimary {
		return Host{}, newError(ErrInvalidArgument, "role cannot be admitted", "role", string(role))
	}
	if len(sess.Hosts) >= sess.Settings.MaxHosts {
		return Host{}, newError(ErrCapacityExceeded, "", "max_hosts", strconv.Itoa(sess.Settings.MaxHosts))
	}
	now := s.now()
	h := Host{
		ID:           s.newID(),
		Name:         name,
		Role:         role,
		Status:       HostStatusOnline,
		Permissions:  DefaultPermissions(role),
		Settings:     defaultHostSettings(),
		JoinedAt:     now,
		LastActiveAt: now,
	}
	// A session emptied by removals has no primary; the next host takes it.
	if sess.PrimaryHostID == "" {
		h.Role = RolePrimary
		h.Permissions = DefaultPermissions(RolePrimary)
		sess.PrimaryHostID = h.ID
		if sess.Layout.PrimaryHostID == "" {
			sess.Layout.PrimaryHostID = h.ID
		}
	}
	sess.Hosts = append(sess.Hosts, h)
	sess.Layout.VisibleHostIDs = append(sess.Layout.VisibleHostIDs, h.ID)
	if sess.ActiveHostID == "" {
		sess.ActiveHostID = h.ID
	}
	s.publishHosts()
	s.publishSession()
	return h, nil
}

// removeHost reports whether a host was removed. Removing an absent id is a
// successful no-op.
func (s *store) removeHost(hostID string) (bool, error) {
	sess, err := s.active()
	if err != nil {
		return false, err
	}
	idx := sess.hostIndex(hostID)
	if idx < 0 {
		return false, nil
	}
	sess.Hosts = slices.Delete(sess.Hosts, idx, idx+1)
	delete(sess.Connections, hostID)
	sess.Layout.VisibleHostIDs = slices.DeleteFunc(sess.Layout.VisibleHostIDs, func(id string) bool { return id == hostID })

	if sess.ActiveHostID == hostID {
		sess.ActiveHostID = ""
		if len(sess.Hosts) > 0 {
			sess.ActiveHostID = sess.Hosts[0].ID
		}
	}
	if sess.PrimaryHostID == hostID {
		sess.PrimaryHostID = ""
		if successor := sess.hostIndex(sess.ActiveHostID); successor >= 0 {
			sess.Hosts[successor].Role = RolePrimary
			sess.Hosts[successor].Permissions = DefaultPermissions(RolePrimary)
			sess.PrimaryHostID = sess.Hosts[successor].ID
		}
	}
	if sess.Layout.PrimaryHostID == hostID {
		sess.Layout.PrimaryHostID = sess.ActiveHostID
	}
	s.publishHosts()
	s.publishSession()
	return true, nil
}

func (s *store) updateHost(hostID string, upd HostUpdate) (Host, error) {
	sess, err := s.active()
	if err != nil {
		return Host{}, err
	}
	idx := sess.hostIndex(hostID)
	if idx < 0 {
		return Host{}, newError(ErrHostNotFound, "", "host_id", hostID)
	}
	if upd.Status != nil && !upd.Status.Valid() {
		return Host{}, newError(ErrInvalidArgument, "unknown host status", "status", string(*upd.Status))
	}
	h := sess.Hosts[idx]
	if upd.Settings != nil {
		h.Settings = upd.Settings.apply(h.Settings)
	}
	if upd.Permissions != nil {
		h.Permissions = upd.Permissions.apply(h.Permissions)
	}
	if upd.Status != nil {
		h.Status = *upd.Status
	}
	h.LastActiveAt = s.now()
	sess.Hosts[idx] = h
	s.publishHosts()
	return h, nil
}

func (s *store) updateLayout(p LayoutPatch) (Layout, error) {
	sess, err := s.active()
	if err != nil {
		return Layout{}, err
	}
	if p.Type != nil && *p.Type == "" {
		return Layout{}, newError(ErrInvalidArgument, "layout type cannot be empty")
	}
	next := sess.Layout.clone()
	setIf(&next.Type, p.Type)
	setIf(&next.PrimaryHostID, p.PrimaryHostID)
	if p.VisibleHostIDs != nil {
		next.VisibleHostIDs = slices.Clone(p.VisibleHostIDs)
	}
	next.VisibleHostIDs = pruneVisible(next.VisibleHostIDs, sess)
	if next.PrimaryHostID != "" && !sess.hasHost(next.PrimaryHostID) {
		next.PrimaryHostID = sess.ActiveHostID
	}
	sess.Layout = next
	s.publishSession()
	return next.clone(), nil
}

func (s *store) setActiveHost(hostID string) error {
	sess, err := s.active()
	if err != nil {
		return err
	}
	if !sess.hasHost(hostID) {
		return newError(ErrHostNotFound, "", "host_id", hostID)
	}
	sess.ActiveHostID = hostID
	s.publishSession()
	return nil
}

func (s *store) setConnection(hostID, handle string) error {
	sess, err := s.active()
	if err != nil {
		return err
	}
	if !sess.hasHost(hostID) {
		return newError(ErrHostNotFound, "", "host_id", hostID)
	}
	if handle == "" {
		delete(sess.Connections, hostID)
	} else {
		sess.Connections[hostID] = handle
	}
	s.publishSession()
	return nil
}

func (s *store) end() (*Session, error) {
	sess, err := s.active()
	if err != nil {
		return nil, err
	}
	endedAt := s.now()
	sess.EndedAt = &endedAt
	ended := sess.clone()
	s.fanout.publishSession(ended)
	s.current = nil
	s.lastEnded = ended
	s.fanout.publishSession(nil)
	s.fanout.publishHosts([]Host{})
	return ended.clone(), nil
}

func (s *store) snapshot() *Session {
	if s.current == nil {
		return nil
	}
	return s.current.clone()
}

func (s *store) publishSession() {
	s.fanout.publishSession(s.current.clone())
}

func (s *store) publishHosts() {
	s.fanout.publishHosts(cloneHosts(s.current.Hosts))
}

// pruneVisible drops ids that are not session members and duplicate ids,
// keeping first-seen order.
func pruneVisible(ids []string, sess *Session) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !sess.hasHost(id) || slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}
