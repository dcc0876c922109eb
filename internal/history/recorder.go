// Package history persists the lifecycle of coordinated sessions. It listens
// to coordinator notifications, turns them into repository writes, and posts a
// summary webhook when a session ends. Writes happen on a background worker so
// notification delivery never waits on I/O.
package history

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/foxseedlab/multihost/internal/repository"
	"github.com/foxseedlab/multihost/internal/session"
	"github.com/foxseedlab/multihost/internal/webhook"
)

const jobTimeout = 10 * time.Second

// Source is the notification surface the recorder listens to.
type Source interface {
	SubscribeSession(fn func(*session.Session)) func()
	SubscribeHosts(fn func([]session.Host)) func()
	SubscribeInvitations(fn func(session.Invitation)) func()
}

type job struct {
	name string
	run  func(ctx context.Context) error
}

type stay struct {
	host   session.Host
	leftAt *time.Time
}

type Recorder struct {
	repo   repository.Repository
	sender webhook.Sender
	jobs   chan job
	now    func() time.Time

	dropped atomic.Uint64

	mu          sync.Mutex
	unsubscribe []func()
	current     *session.Session
	stays       map[string]*stay
	stayOrder   []string
	invitations map[string]session.InvitationStatus
}

func NewRecorder(repo repository.Repository, sender webhook.Sender, queueSize int) *Recorder {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Recorder{
		repo:        repo,
		sender:      sender,
		jobs:        make(chan job, queueSize),
		now:         time.Now,
		stays:       make(map[string]*stay),
		invitations: make(map[string]session.InvitationStatus),
	}
}

// Attach subscribes the recorder to src. Calling it again replaces the
// previous subscriptions.
func (r *Recorder) Attach(src Source) {
	r.Detach()
	unsubs := []func(){
		src.SubscribeSession(r.onSession),
		src.SubscribeHosts(r.onHosts),
		src.SubscribeInvitations(r.onInvitation),
	}
	r.mu.Lock()
	r.unsubscribe = unsubs
	r.mu.Unlock()
}

func (r *Recorder) Detach() {
	r.mu.Lock()
	unsubs := r.unsubscribe
	r.unsubscribe = nil
	r.mu.Unlock()
	for _, fn := range unsubs {
		fn()
	}
}

// Dropped reports how many writes were discarded because the queue was full.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Run executes queued writes until ctx is cancelled, then drains what is
// already queued before returning.
func (r *Recorder) Run(ctx context.Context) error {
	slog.Info("history recorder started", "queue_size", cap(r.jobs))
	for {
		select {
		case j := <-r.jobs:
			r.execute(ctx, j)
		case <-ctx.Done():
			r.drain()
			slog.Info("history recorder stopped", "dropped", r.Dropped())
			return nil
		}
	}
}

func (r *Recorder) drain() {
	for {
		select {
		case j := <-r.jobs:
			r.execute(context.Background(), j)
		default:
			return
		}
	}
}

func (r *Recorder) execute(parent context.Context, j job) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), jobTimeout)
	defer cancel()
	if err := j.run(ctx); err != nil {
		slog.Error("history write failed", "job", j.name, "error", err)
		return
	}
	slog.Debug("history write completed", "job", j.name)
}

func (r *Recorder) enqueue(name string, run func(ctx context.Context) error) {
	select {
	case r.jobs <- job{name: name, run: run}:
	default:
		n := r.dropped.Add(1)
		slog.Warn("history queue full; dropping write", "job", name, "dropped_total", n)
	}
}

func (r *Recorder) onSession(s *session.Session) {
	if s == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.EndedAt != nil {
		if r.current == nil || r.current.ID != s.ID {
			return
		}
		r.finishLocked(s)
		return
	}
	if r.current != nil && r.current.ID == s.ID {
		r.current = s
		return
	}
	r.current = s
	r.stays = make(map[string]*stay)
	r.stayOrder = nil
	r.invitations = make(map[string]session.InvitationStatus)

	input := repository.CreateSessionInput{
		SessionID:     s.ID,
		StreamID:      s.StreamID,
		PrimaryHostID: s.PrimaryHostID,
		StartedAt:     s.StartedAt,
	}
	r.enqueue("create_session", func(ctx context.Context) error {
		_, err := r.repo.CreateSession(ctx, input)
		return err
	})
}

func (r *Recorder) onHosts(hosts []session.Host) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return
	}
	sessionID := r.current.ID
	present := make(map[string]bool, len(hosts))
	for _, h := range hosts {
		present[h.ID] = true
		st, ok := r.stays[h.ID]
		if ok && st.leftAt == nil && st.host.Role == h.Role && st.host.Name == h.Name {
			st.host = h
			continue
		}
		if !ok {
			st = &stay{}
			r.stays[h.ID] = st
			r.stayOrder = append(r.stayOrder, h.ID)
		}
		st.host = h
		st.leftAt = nil
		input := repository.HostJoinedInput{
			SessionID: sessionID,
			HostID:    h.ID,
			Name:      h.Name,
			Role:      string(h.Role),
			JoinedAt:  h.JoinedAt,
		}
		r.enqueue("record_host_joined", func(ctx context.Context) error {
			return r.repo.RecordHostJoined(ctx, input)
		})
	}
	for _, id := range r.stayOrder {
		st := r.stays[id]
		if present[id] || st.leftAt != nil {
			continue
		}
		leftAt := r.now()
		st.leftAt = &leftAt
		input := repository.HostLeftInput{SessionID: sessionID, HostID: id, LeftAt: leftAt}
		r.enqueue("record_host_left", func(ctx context.Context) error {
			return r.repo.RecordHostLeft(ctx, input)
		})
	}
}

func (r *Recorder) onInvitation(inv session.Invitation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil || r.current.ID != inv.SessionID {
		return
	}
	r.invitations[inv.ID] = inv.Status
	input := repository.SaveInvitationInput{
		ID:             inv.ID,
		SessionID:      inv.SessionID,
		InviterHostID:  inv.HostID,
		Email:          inv.Email,
		Name:           inv.Name,
		Role:           string(inv.Role),
		Status:         string(inv.Status),
		AcceptedHostID: inv.AcceptedHostID,
		CreatedAt:      inv.CreatedAt,
		ExpiresAt:      inv.ExpiresAt,
	}
	r.enqueue("save_invitation", func(ctx context.Context) error {
		return r.repo.SaveInvitation(ctx, input)
	})
}

func (r *Recorder) finishLocked(ended *session.Session) {
	endedAt := *ended.EndedAt
	payload := webhook.SessionSummaryPayload{
		SessionID:       ended.ID,
		StreamID:        ended.StreamID,
		PrimaryHostID:   ended.PrimaryHostID,
		StartedAt:       ended.StartedAt,
		EndedAt:         endedAt,
		DurationSeconds: max(0, int64(endedAt.Sub(ended.StartedAt)/time.Second)),
		Hosts:           make([]webhook.SessionSummaryHost, 0, len(r.stayOrder)),
	}
	for _, id := range r.stayOrder {
		st := r.stays[id]
		leftAt := st.leftAt
		if leftAt == nil {
			leftAt = &endedAt
		}
		payload.Hosts = append(payload.Hosts, webhook.SessionSummaryHost{
			HostID:   st.host.ID,
			Name:     st.host.Name,
			Role:     string(st.host.Role),
			JoinedAt: st.host.JoinedAt,
			LeftAt:   leftAt,
		})
	}
	for _, status := range r.invitations {
		payload.InvitationsSent++
		if status == session.InvitationStatusAccepted {
			payload.InvitationsAccepted++
		}
	}

	complete := repository.CompleteSessionInput{
		SessionID: ended.ID,
		EndedAt:   endedAt,
		HostCount: len(payload.Hosts),
	}
	r.enqueue("complete_session", func(ctx context.Context) error {
		return r.repo.CompleteSession(ctx, complete)
	})
	r.enqueue("send_session_summary", func(ctx context.Context) error {
		return r.sender.SendSessionSummary(ctx, payload)
	})

	r.current = nil
	r.stays = make(map[string]*stay)
	r.stayOrder = nil
	r.invitations = make(map[string]session.InvitationStatus)
}
