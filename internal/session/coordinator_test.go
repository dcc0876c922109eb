package session

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/foxseedlab/multihost/internal/config"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCoordinator(t *testing.T) (*Coordinator, *fakeClock) {
	t.Helper()
	cfg := &config.Config{
		Env:              "test",
		HTTPAddr:         ":0",
		MaxHosts:         4,
		InvitationTTL:    24 * time.Hour,
		StoreDriver:      config.StoreDriverNone,
		HistoryQueueSize: 16,
	}
	c := NewCoordinator(cfg)
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	c.now = clock.Now
	var mu sync.Mutex
	var n int
	c.newID = func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return c, clock
}

func mustCreate(t *testing.T, c *Coordinator, primaryHostID string) *Session {
	t.Helper()
	sess, err := c.CreateSession(CreateSessionInput{PrimaryHostID: primaryHostID})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return sess
}

func mustAdmit(t *testing.T, c *Coordinator, inviterHostID, name string, role Role) Host {
	t.Helper()
	inv, err := c.InviteHost(InviteInput{InviterHostID: inviterHostID, Email: name + "@example.com", Name: name, Role: role})
	if err != nil {
		t.Fatalf("invite %s: %v", name, err)
	}
	h, err := c.AcceptInvitation(inv.ID)
	if err != nil {
		t.Fatalf("accept %s: %v", name, err)
	}
	return h
}

func assertInvariants(t *testing.T, sess *Session) {
	t.Helper()
	if sess == nil {
		return
	}
	if len(sess.Hosts) > sess.Settings.MaxHosts {
		t.Fatalf("hosts %d exceed max %d", len(sess.Hosts), sess.Settings.MaxHosts)
	}
	ids := make([]string, 0, len(sess.Hosts))
	primaries := 0
	for _, h := range sess.Hosts {
		if slices.Contains(ids, h.ID) {
			t.Fatalf("duplicate host id %s", h.ID)
		}
		ids = append(ids, h.ID)
		if h.Role == RolePrimary {
			primaries++
		}
	}
	if len(sess.Hosts) == 0 {
		if sess.ActiveHostID != "" {
			t.Fatalf("active host %q set on empty session", sess.ActiveHostID)
		}
	} else {
		if !slices.Contains(ids, sess.ActiveHostID) {
			t.Fatalf("active host %q is not a member of %v", sess.ActiveHostID, ids)
		}
		idx := sess.hostIndex(sess.PrimaryHostID)
		if idx < 0 || sess.Hosts[idx].Role != RolePrimary {
			t.Fatalf("primary host %q is not a primary member", sess.PrimaryHostID)
		}
		if primaries != 1 {
			t.Fatalf("expected exactly one primary, got %d", primaries)
		}
	}
	for _, id := range sess.Layout.VisibleHostIDs {
		if !slices.Contains(ids, id) {
			t.Fatalf("visible host %q is not a member of %v", id, ids)
		}
	}
}

func TestCreateSession_BuildsPrimaryAndSpotlight(t *testing.T) {
	c, _ := newTestCoordinator(t)
	sess := mustCreate(t, c, "h1")

	if len(sess.Hosts) != 1 {
		t.Fatalf("expected one host, got %d", len(sess.Hosts))
	}
	h := sess.Hosts[0]
	if h.ID != "h1" || h.Role != RolePrimary || h.Status != HostStatusOnline {
		t.Fatalf("unexpected primary host: %+v", h)
	}
	if h.Permissions != DefaultPermissions(RolePrimary) {
		t.Fatalf("expected full permissions, got %+v", h.Permissions)
	}
	if sess.Layout.Type != LayoutSpotlight || sess.Layout.PrimaryHostID != "h1" {
		t.Fatalf("unexpected layout: %+v", sess.Layout)
	}
	if !slices.Equal(sess.Layout.VisibleHostIDs, []string{"h1"}) {
		t.Fatalf("unexpected visible hosts: %v", sess.Layout.VisibleHostIDs)
	}
	if sess.ActiveHostID != "h1" || sess.PrimaryHostID != "h1" {
		t.Fatalf("unexpected active/primary: %s/%s", sess.ActiveHostID, sess.PrimaryHostID)
	}
	if sess.Settings.MaxHosts != 4 {
		t.Fatalf("expected default max hosts 4, got %d", sess.Settings.MaxHosts)
	}
	if sess.Settings.DefaultRole != RoleCoHost {
		t.Fatalf("unexpected default role: %s", sess.Settings.DefaultRole)
	}
	assertInvariants(t, sess)
}

func TestCreateSession_UsesInputNameAndStream(t *testing.T) {
	c, _ := newTestCoordinator(t)
	sess, err := c.CreateSession(CreateSessionInput{PrimaryHostID: "h1", PrimaryHostName: "Alice", StreamID: "stream-9"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.StreamID != "stream-9" || sess.Hosts[0].Name != "Alice" {
		t.Fatalf("unexpected session: %+v", sess)
	}
}

func TestCreateSession_RequiresPrimaryHostID(t *testing.T) {
	c, _ := newTestCoordinator(t)
	if _, err := c.CreateSession(CreateSessionInput{}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestCreateSession_AlreadyActiveThenRecreateAfterEnd(t *testing.T) {
	c, _ := newTestCoordinator(t)
	mustCreate(t, c, "h1")

	if _, err := c.CreateSession(CreateSessionInput{PrimaryHostID: "h2"}); !errors.Is(err, ErrAlreadyActive) {
		t.Fatalf("expected already active, got %v", err)
	}
	if ok, err := c.EndSession(); err != nil || !ok {
		t.Fatalf("end session: ok=%v err=%v", ok, err)
	}
	if _, err := c.CreateSession(CreateSessionInput{PrimaryHostID: "h2"}); err != nil {
		t.Fatalf("expected create after end to succeed, got %v", err)
	}
}

func TestOperations_RequireActiveSession(t *testing.T) {
	c, _ := newTestCoordinator(t)

	checks := map[string]error{}
	_, checks["end"] = c.EndSession()
	_, checks["invite"] = c.InviteHost(InviteInput{InviterHostID: "h1", Email: "a@x.com", Role: RoleCoHost})
	_, checks["accept"] = c.AcceptInvitation("missing")
	_, checks["decline"] = c.DeclineInvitation("missing")
	_, checks["remove"] = c.RemoveHost("h1")
	_, checks["update"] = c.UpdateHostSettings("h1", HostUpdate{})
	_, checks["layout"] = c.UpdateLayout(LayoutPatch{})
	_, checks["active"] = c.SetActiveHost("h1")
	checks["connection"] = c.SetConnection("h1", "rtmp://edge/1")

	for name, err := range checks {
		if !errors.Is(err, ErrNoActiveSession) {
			t.Fatalf("%s: expected no active session, got %v", name, err)
		}
	}
	if c.GetCurrentSession() != nil {
		t.Fatal("expected no current session")
	}
}

func TestAdmit_CapacityExceeded(t *testing.T) {
	c, _ := newTestCoordinator(t)
	mustCreate(t, c, "h1")
	for i := 0; i < 3; i++ {
		mustAdmit(t, c, "h1", fmt.Sprintf("guest%d", i), RoleGuest)
	}
	if n := len(c.GetCurrentSession().Hosts); n != 4 {
		t.Fatalf("expected exactly max hosts admitted, got %d", n)
	}

	inv, err := c.InviteHost(InviteInput{InviterHostID: "h1", Email: "late@example.com", Role: RoleGuest})
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if _, err := c.AcceptInvitation(inv.ID); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected capacity exceeded, got %v", err)
	}
	got, err := c.GetInvitation(inv.ID)
	if err != nil {
		t.Fatalf("get invitation: %v", err)
	}
	if got.Status != InvitationStatusPending {
		t.Fatalf("expected invitation to stay pending, got %s", got.Status)
	}
	assertInvariants(t, c.GetCurrentSession())
}

func TestRemoveHost_NonMemberIsNoop(t *testing.T) {
	c, _ := newTestCoordinator(t)
	mustCreate(t, c, "h1")
	before := c.GetCurrentSession()

	var notified int
	c.SubscribeHosts(func([]Host) { notified++ })

	ok, err := c.RemoveHost("nobody")
	if err != nil || !ok {
		t.Fatalf("expected success, got ok=%v err=%v", ok, err)
	}
	after := c.GetCurrentSession()
	if len(after.Hosts) != len(before.Hosts) || !slices.Equal(after.Layout.VisibleHostIDs, before.Layout.VisibleHostIDs) {
		t.Fatalf("session changed on no-op removal: %+v", after)
	}
	if notified != 0 {
		t.Fatalf("expected no notification, got %d", notified)
	}
}

func TestRemoveHost_ReassignsActiveHost(t *testing.T) {
	c, _ := newTestCoordinator(t)
	mustCreate(t, c, "h1")
	guest := mustAdmit(t, c, "h1", "g", RoleGuest)
	cohost := mustAdmit(t, c, "h1", "c", RoleCoHost)

	if _, err := c.SetActiveHost(cohost.ID); err != nil {
		t.Fatalf("set active: %v", err)
	}
	if _, err := c.RemoveHost(cohost.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	sess := c.GetCurrentSession()
	if sess.ActiveHostID != "h1" {
		t.Fatalf("expected first remaining host to become active, got %q", sess.ActiveHostID)
	}
	if slices.Contains(sess.Layout.VisibleHostIDs, cohost.ID) {
		t.Fatal("removed host still visible")
	}
	assertInvariants(t, sess)

	if _, err := c.RemoveHost("h1"); err != nil {
		t.Fatalf("remove primary: %v", err)
	}
	sess = c.GetCurrentSession()
	if sess.ActiveHostID != guest.ID || sess.PrimaryHostID != guest.ID {
		t.Fatalf("expected %s to succeed primary, got active=%s primary=%s", guest.ID, sess.ActiveHostID, sess.PrimaryHostID)
	}
	if sess.Hosts[0].Role != RolePrimary || sess.Hosts[0].Permissions != DefaultPermissions(RolePrimary) {
		t.Fatalf("successor was not promoted: %+v", sess.Hosts[0])
	}
	assertInvariants(t, sess)

	if _, err := c.RemoveHost(guest.ID); err != nil {
		t.Fatalf("remove last: %v", err)
	}
	sess = c.GetCurrentSession()
	if len(sess.Hosts) != 0 || sess.ActiveHostID != "" || sess.PrimaryHostID != "" {
		t.Fatalf("expected empty session, got %+v", sess)
	}
	assertInvariants(t, sess)
}

func TestRemoveHost_DropsConnection(t *testing.T) {
	c, _ := newTestCoordinator(t)
	mustCreate(t, c, "h1")
	h := mustAdmit(t, c, "h1", "c", RoleCoHost)
	if err := c.SetConnection(h.ID, "webrtc:peer-7"); err != nil {
		t.Fatalf("set connection: %v", err)
	}
	if got := c.GetCurrentSession().Connections[h.ID]; got != "webrtc:peer-7" {
		t.Fatalf("unexpected connection: %q", got)
	}
	if _, err := c.RemoveHost(h.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok := c.GetCurrentSession().Connections[h.ID]; ok {
		t.Fatal("expected connection to be dropped with host")
	}
	if err := c.SetConnection("ghost", "x"); !errors.Is(err, ErrHostNotFound) {
		t.Fatalf("expected host not found, got %v", err)
	}
}

func TestConcurrentRemoveOfSameHost(t *testing.T) {
	c, _ := newTestCoordinator(t)
	mustCreate(t, c, "h1")
	h := mustAdmit(t, c, "h1", "c", RoleCoHost)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.RemoveHost(h.ID); err != nil {
				t.Errorf("remove: %v", err)
			}
		}()
	}
	wg.Wait()

	sess := c.GetCurrentSession()
	if len(sess.Hosts) != 1 || !slices.Equal(sess.Layout.VisibleHostIDs, []string{"h1"}) {
		t.Fatalf("unexpected session after concurrent removals: %+v", sess)
	}
	assertInvariants(t, sess)
}

func TestUpdateHostSettings_MergesAndTouches(t *testing.T) {
	c, clock := newTestCoordinator(t)
	mustCreate(t, c, "h1")
	clock.Advance(time.Minute)

	off := false
	device := "usb-cam-2"
	offline := HostStatusOffline
	share := true
	h, err := c.UpdateHostSettings("h1", HostUpdate{
		Settings:    &HostSettingsPatch{IsCameraEnabled: &off, VideoInputDevice: &device},
		Permissions: &HostPermissionsPatch{CanMuteOthers: &off},
		Status:      &offline,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if h.Settings.IsCameraEnabled || !h.Settings.IsMicrophoneEnabled || h.Settings.VideoInputDevice != device {
		t.Fatalf("unexpected settings: %+v", h.Settings)
	}
	if h.Permissions.CanMuteOthers || !h.Permissions.CanControlStream {
		t.Fatalf("unexpected permissions: %+v", h.Permissions)
	}
	if h.Status != HostStatusOffline {
		t.Fatalf("unexpected status: %s", h.Status)
	}
	if !h.LastActiveAt.Equal(clock.Now()) {
		t.Fatalf("expected last active to be touched, got %v", h.LastActiveAt)
	}

	if _, err := c.UpdateHostSettings("h1", HostUpdate{Settings: &HostSettingsPatch{IsScreenShareEnabled: &share}}); err != nil {
		t.Fatalf("second update: %v", err)
	}
	if got := c.GetCurrentSession().Hosts[0]; !got.Settings.IsScreenShareEnabled || got.Settings.IsCameraEnabled {
		t.Fatalf("second update did not merge: %+v", got.Settings)
	}
}

func TestUpdateHostSettings_Failures(t *testing.T) {
	c, _ := newTestCoordinator(t)
	mustCreate(t, c, "h1")
	if _, err := c.UpdateHostSettings("ghost", HostUpdate{}); !errors.Is(err, ErrHostNotFound) {
		t.Fatalf("expected host not found, got %v", err)
	}
	bad := HostStatus("sleeping")
	if _, err := c.UpdateHostSettings("h1", HostUpdate{Status: &bad}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	if c.GetCurrentSession().Hosts[0].Status != HostStatusOnline {
		t.Fatal("rejected update must not change the host")
	}
}

func TestUpdateLayout_MergesAndPrunes(t *testing.T) {
	c, _ := newTestCoordinator(t)
	mustCreate(t, c, "h1")
	h := mustAdmit(t, c, "h1", "c", RoleCoHost)

	grid := LayoutGrid
	l, err := c.UpdateLayout(LayoutPatch{Type: &grid, VisibleHostIDs: []string{h.ID, "ghost", "h1", h.ID}})
	if err != nil {
		t.Fatalf("update layout: %v", err)
	}
	if l.Type != LayoutGrid {
		t.Fatalf("unexpected type: %s", l.Type)
	}
	if !slices.Equal(l.VisibleHostIDs, []string{h.ID, "h1"}) {
		t.Fatalf("unexpected visible hosts: %v", l.VisibleHostIDs)
	}
	if l.PrimaryHostID != "h1" {
		t.Fatalf("expected primary host id kept, got %q", l.PrimaryHostID)
	}

	ghost := "ghost"
	l, err = c.UpdateLayout(LayoutPatch{PrimaryHostID: &ghost})
	if err != nil {
		t.Fatalf("update layout: %v", err)
	}
	if l.PrimaryHostID != "h1" {
		t.Fatalf("expected non-member spotlight to fall back to active host, got %q", l.PrimaryHostID)
	}
	if !slices.Equal(l.VisibleHostIDs, []string{h.ID, "h1"}) {
		t.Fatalf("visible hosts changed unexpectedly: %v", l.VisibleHostIDs)
	}

	empty := LayoutType("")
	if _, err := c.UpdateLayout(LayoutPatch{Type: &empty}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	custom := LayoutType("picture-in-picture")
	if l, err := c.UpdateLayout(LayoutPatch{Type: &custom}); err != nil || l.Type != custom {
		t.Fatalf("expected extensible layout type, got %v %v", l.Type, err)
	}
}

func TestSetActiveHost(t *testing.T) {
	c, _ := newTestCoordinator(t)
	mustCreate(t, c, "h1")
	h := mustAdmit(t, c, "h1", "c", RoleCoHost)

	if _, err := c.SetActiveHost("ghost"); !errors.Is(err, ErrHostNotFound) {
		t.Fatalf("expected host not found, got %v", err)
	}
	ok, err := c.SetActiveHost(h.ID)
	if err != nil || !ok {
		t.Fatalf("set active: ok=%v err=%v", ok, err)
	}
	if c.GetCurrentSession().ActiveHostID != h.ID {
		t.Fatal("active host not updated")
	}
}

func TestEndSession_NotifiesEndedThenCleared(t *testing.T) {
	c, _ := newTestCoordinator(t)
	mustCreate(t, c, "h1")
	mustAdmit(t, c, "h1", "c", RoleCoHost)

	var sessions []*Session
	var hostLists [][]Host
	c.SubscribeSession(func(s *Session) { sessions = append(sessions, s) })
	c.SubscribeHosts(func(h []Host) { hostLists = append(hostLists, h) })

	if _, err := c.EndSession(); err != nil {
		t.Fatalf("end: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected two session notifications, got %d", len(sessions))
	}
	if sessions[0] == nil || sessions[0].EndedAt == nil || len(sessions[0].Hosts) != 2 {
		t.Fatalf("expected ended snapshot first, got %+v", sessions[0])
	}
	if sessions[1] != nil {
		t.Fatalf("expected nil snapshot second, got %+v", sessions[1])
	}
	if len(hostLists) != 1 || len(hostLists[0]) != 0 {
		t.Fatalf("expected one empty host list, got %+v", hostLists)
	}
	if c.GetCurrentSession() != nil {
		t.Fatal("expected store to be cleared")
	}
	last := c.LastEndedSession()
	if last == nil || last.EndedAt == nil {
		t.Fatal("expected ended snapshot to be retained")
	}
	mustCreate(t, c, "h2")
	if c.LastEndedSession() != nil {
		t.Fatal("expected retained snapshot to be dropped on next create")
	}
}

func TestEndSessionSnapshot_SurvivesRecreateDuringDelivery(t *testing.T) {
	c, _ := newTestCoordinator(t)
	mustCreate(t, c, "h1")

	c.SubscribeSession(func(s *Session) {
		if s == nil {
			mustCreate(t, c, "h2")
		}
	})

	ended, err := c.EndSessionSnapshot()
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if ended == nil || ended.PrimaryHostID != "h1" || ended.EndedAt == nil {
		t.Fatalf("expected terminal snapshot of the first session, got %+v", ended)
	}
	if c.LastEndedSession() != nil {
		t.Fatal("expected retained snapshot to be dropped by the recreate")
	}
	if cur := c.GetCurrentSession(); cur == nil || cur.PrimaryHostID != "h2" {
		t.Fatalf("expected recreated session, got %+v", cur)
	}
}

func TestSubscribe_LateSubscriberSeesOnlyLaterMutations(t *testing.T) {
	c, _ := newTestCoordinator(t)
	mustCreate(t, c, "h1")
	mustAdmit(t, c, "h1", "a", RoleGuest)

	var seen [][]Host
	unsubscribe := c.SubscribeHosts(func(h []Host) { seen = append(seen, h) })
	mustAdmit(t, c, "h1", "b", RoleGuest)

	if len(seen) != 1 || len(seen[0]) != 3 {
		t.Fatalf("expected exactly the third admission, got %+v", seen)
	}
	unsubscribe()
	unsubscribe()
	mustAdmit(t, c, "h1", "c", RoleGuest)
	if len(seen) != 1 {
		t.Fatalf("expected no delivery after unsubscribe, got %d", len(seen))
	}
}

func TestConcurrentCaller_DeliveredInOrderByActiveDrainer(t *testing.T) {
	c, _ := newTestCoordinator(t)
	mustCreate(t, c, "h1")
	cohost := mustAdmit(t, c, "h1", "c", RoleCoHost)

	release := make(chan struct{})
	var (
		mu   sync.Mutex
		seen []string
	)
	delivered := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return slices.Clone(seen)
	}
	c.SubscribeSession(func(s *Session) {
		mu.Lock()
		seen = append(seen, s.ActiveHostID)
		first := len(seen) == 1
		mu.Unlock()
		if first {
			<-release
		}
	})

	slowDone := make(chan struct{})
	go func() {
		defer close(slowDone)
		if _, err := c.SetActiveHost(cohost.ID); err != nil {
			t.Errorf("set active host: %v", err)
		}
	}()
	deadline := time.Now().Add(time.Second)
	for len(delivered()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first delivery never started")
		}
		time.Sleep(time.Millisecond)
	}

	returned := make(chan error, 1)
	go func() {
		_, err := c.SetActiveHost("h1")
		returned <- err
	}()
	select {
	case err := <-returned:
		if err != nil {
			t.Fatalf("set active host: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("concurrent caller blocked behind a slow subscriber")
	}
	if cur := c.GetCurrentSession(); cur.ActiveHostID != "h1" {
		t.Fatalf("expected mutation applied, got active host %q", cur.ActiveHostID)
	}
	if got := delivered(); len(got) != 1 {
		t.Fatalf("expected queued delivery to wait for the drainer, got %v", got)
	}

	close(release)
	<-slowDone
	if got := delivered(); !slices.Equal(got, []string{cohost.ID, "h1"}) {
		t.Fatalf("expected publish order to be kept, got %v", got)
	}
}

func TestSubscriberMayCallBackIntoCoordinator(t *testing.T) {
	c, _ := newTestCoordinator(t)
	var observed []int
	c.SubscribeHosts(func(hosts []Host) {
		if sess := c.GetCurrentSession(); sess != nil {
			observed = append(observed, len(sess.Hosts))
		}
		if len(hosts) == 2 {
			if _, err := c.SetActiveHost(hosts[1].ID); err != nil {
				t.Errorf("nested set active: %v", err)
			}
		}
	})
	mustCreate(t, c, "h1")
	h := mustAdmit(t, c, "h1", "c", RoleCoHost)

	if got := c.GetCurrentSession().ActiveHostID; got != h.ID {
		t.Fatalf("expected nested mutation to apply, active=%s", got)
	}
	if !slices.Equal(observed, []int{1, 2}) {
		t.Fatalf("unexpected observed sizes: %v", observed)
	}
}

func TestSnapshotsAreIsolated(t *testing.T) {
	c, _ := newTestCoordinator(t)
	sess := mustCreate(t, c, "h1")
	sess.Hosts[0].Name = "tampered"
	sess.Layout.VisibleHostIDs[0] = "tampered"
	sess.Connections["h1"] = "tampered"

	got := c.GetCurrentSession()
	if got.Hosts[0].Name == "tampered" || got.Layout.VisibleHostIDs[0] == "tampered" || got.Connections["h1"] == "tampered" {
		t.Fatalf("caller mutation leaked into the store: %+v", got)
	}
}

func TestInvariants_RandomOperationSequences(t *testing.T) {
	for seed := uint64(1); seed <= 25; seed++ {
		t.Run(fmt.Sprintf("seed-%d", seed), func(t *testing.T) {
			rng := rand.New(rand.NewPCG(seed, seed*7))
			c, clock := newTestCoordinator(t)
			mustCreate(t, c, "h1")
			var pending []string

			for step := 0; step < 200; step++ {
				sess := c.GetCurrentSession()
				ids := make([]string, 0, len(sess.Hosts))
				for _, h := range sess.Hosts {
					ids = append(ids, h.ID)
				}
				pick := func() string {
					if len(ids) == 0 || rng.IntN(5) == 0 {
						return "ghost"
					}
					return ids[rng.IntN(len(ids))]
				}

				switch rng.IntN(7) {
				case 0:
					inviter := sess.PrimaryHostID
					if inviter == "" {
						inviter = "ghost"
					}
					role := []Role{RoleCoHost, RoleGuest, RoleModerator}[rng.IntN(3)]
					if inv, err := c.InviteHost(InviteInput{InviterHostID: inviter, Email: "x@example.com", Role: role}); err == nil {
						pending = append(pending, inv.ID)
					}
				case 1:
					if len(pending) > 0 {
						i := rng.IntN(len(pending))
						_, _ = c.AcceptInvitation(pending[i])
						pending = slices.Delete(pending, i, i+1)
					}
				case 2:
					_, _ = c.RemoveHost(pick())
				case 3:
					visible := []string{pick(), pick(), pick()}
					grid := LayoutGrid
					_, _ = c.UpdateLayout(LayoutPatch{Type: &grid, VisibleHostIDs: visible})
				case 4:
					_, _ = c.SetActiveHost(pick())
				case 5:
					primary := pick()
					_, _ = c.UpdateLayout(LayoutPatch{PrimaryHostID: &primary})
				case 6:
					clock.Advance(time.Duration(rng.IntN(6)) * time.Hour)
				}
				assertInvariants(t, c.GetCurrentSession())
			}
		})
	}
}

func TestEndToEndScenario(t *testing.T) {
	c, _ := newTestCoordinator(t)

	sess := mustCreate(t, c, "h1")
	if len(sess.Hosts) != 1 || sess.Hosts[0].Role != RolePrimary || sess.Layout.Type != LayoutSpotlight || sess.Layout.PrimaryHostID != "h1" {
		t.Fatalf("unexpected initial session: %+v", sess)
	}

	inv, err := c.InviteHost(InviteInput{InviterHostID: "h1", Email: "a@x.com", Name: "A", Role: RoleCoHost})
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if inv.Status != InvitationStatusPending {
		t.Fatalf("expected pending invitation, got %s", inv.Status)
	}

	h, err := c.AcceptInvitation(inv.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	sess = c.GetCurrentSession()
	if len(sess.Hosts) != 2 {
		t.Fatalf("expected two hosts, got %d", len(sess.Hosts))
	}
	if h.Role != RoleCoHost || h.Permissions.CanControlStream || !h.Permissions.CanShareScreen {
		t.Fatalf("unexpected co-host: %+v", h)
	}

	if _, err := c.RemoveHost("h1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	sess = c.GetCurrentSession()
	if len(sess.Hosts) != 1 || sess.ActiveHostID != h.ID {
		t.Fatalf("expected remaining host to be active, got %+v", sess)
	}
	assertInvariants(t, sess)

	if _, err := c.EndSession(); err != nil {
		t.Fatalf("end: %v", err)
	}
	if c.GetCurrentSession() != nil {
		t.Fatal("expected nil session after end")
	}
	if _, err := c.CreateSession(CreateSessionInput{PrimaryHostID: "h2"}); err != nil {
		t.Fatalf("recreate: %v", err)
	}
}
