package session

import (
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
)

// Channel names one of the independent notification streams.
type Channel string

const (
	ChannelSession     Channel = "session"
	ChannelHosts       Channel = "hosts"
	ChannelInvitations Channel = "invitations"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelSession, ChannelHosts, ChannelInvitations:
		return true
	default:
		return false
	}
}

type subscriber[T any] struct {
	fn     func(T)
	closed atomic.Bool
}

type topic[T any] struct {
	channel Channel
	subs    []*subscriber[T]
	copy    func(T) T
}

// Fanout keeps one subscriber registry per channel and delivers published
// snapshots in publish order. Publishing only enqueues; Flush delivers.
// Callbacks run without any fanout lock held, so they may subscribe,
// unsubscribe or call back into the coordinator.
type Fanout struct {
	mu          sync.Mutex
	session     topic[*Session]
	hosts       topic[[]Host]
	invitations topic[Invitation]
	pending     []func()
	draining    bool
}

func NewFanout() *Fanout {
	return &Fanout{
		session: topic[*Session]{channel: ChannelSession, copy: func(s *Session) *Session {
			if s == nil {
				return nil
			}
			return s.clone()
		}},
		hosts:       topic[[]Host]{channel: ChannelHosts, copy: cloneHosts},
		invitations: topic[Invitation]{channel: ChannelInvitations, copy: func(i Invitation) Invitation { return i }},
	}
}

// SubscribeSession registers fn for session snapshots. A nil snapshot means
// the session was cleared. The returned func unsubscribes and is idempotent.
func (f *Fanout) SubscribeSession(fn func(*Session)) func() {
	return subscribe(f, &f.session, fn)
}

func (f *Fanout) SubscribeHosts(fn func([]Host)) func() {
	return subscribe(f, &f.hosts, fn)
}

func (f *Fanout) SubscribeInvitations(fn func(Invitation)) func() {
	return subscribe(f, &f.invitations, fn)
}

func (f *Fanout) publishSession(s *Session) {
	publish(f, &f.session, s)
}

func (f *Fanout) publishHosts(hosts []Host) {
	publish(f, &f.hosts, hosts)
}

func (f *Fanout) publishInvitation(inv Invitation) {
	publish(f, &f.invitations, inv)
}

// Flush delivers every queued notification. If another goroutine is already
// draining, the queued work is left to it.
func (f *Fanout) Flush() {
	f.mu.Lock()
	if f.draining {
		f.mu.Unlock()
		return
	}
	f.draining = true
	for len(f.pending) > 0 {
		batch := f.pending
		f.pending = nil
		f.mu.Unlock()
		for _, deliver := range batch {
			deliver()
		}
		f.mu.Lock()
	}
	f.draining = false
	f.mu.Unlock()
}

func (f *Fanout) subscriberCount(channel Channel) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch channel {
	case ChannelSession:
		return len(f.session.subs)
	case ChannelHosts:
		return len(f.hosts.subs)
	case ChannelInvitations:
		return len(f.invitations.subs)
	default:
		return 0
	}
}

func subscribe[T any](f *Fanout, t *topic[T], fn func(T)) func() {
	s := &subscriber[T]{fn: fn}
	f.mu.Lock()
	t.subs = append(t.subs, s)
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.closed.Store(true)
			f.mu.Lock()
			t.subs = slices.DeleteFunc(slices.Clone(t.subs), func(x *subscriber[T]) bool { return x == s })
			f.mu.Unlock()
		})
	}
}

func publish[T any](f *Fanout, t *topic[T], payload T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(t.subs) == 0 {
		return
	}
	subs := slices.Clone(t.subs)
	channel := t.channel
	copyFn := t.copy
	f.pending = append(f.pending, func() {
		for _, s := range subs {
			if s.closed.Load() {
				continue
			}
			deliverSafely(channel, s.fn, copyFn(payload))
		}
	})
}

func deliverSafely[T any](channel Channel, fn func(T), payload T) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("subscriber panicked", "channel", string(channel), "panic", r)
		}
	}()
	fn(payload)
}
