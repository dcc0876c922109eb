package httpapi

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/foxseedlab/multihost/internal/session"
	"github.com/gorilla/websocket"
)

const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	eventBufferSize  = 64
	maxInboundFrame  = 512
	closeSlowMessage = "subscriber too slow"
)

type eventFrame struct {
	Channel session.Channel `json:"channel"`
	Payload any             `json:"payload"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// parseChannels reads the comma separated channels query. An absent query
// selects every channel.
func parseChannels(raw string) ([]session.Channel, error) {
	if strings.TrimSpace(raw) == "" {
		return []session.Channel{session.ChannelSession, session.ChannelHosts, session.ChannelInvitations}, nil
	}
	var out []session.Channel
	seen := make(map[session.Channel]bool)
	for _, part := range strings.Split(raw, ",") {
		ch := session.Channel(strings.TrimSpace(part))
		if !ch.Valid() {
			return nil, fmt.Errorf("unknown channel %q", part)
		}
		if !seen[ch] {
			seen[ch] = true
			out = append(out, ch)
		}
	}
	return out, nil
}

// eventsHandler streams coordinator notifications to a WebSocket client. A
// client that falls eventBufferSize frames behind is disconnected.
func (s *Server) eventsHandler(w http.ResponseWriter, r *http.Request) {
	channels, err := parseChannels(r.URL.Query().Get("channels"))
	if err != nil {
		s.badRequestResponse(w, r, err.Error())
		return
	}

	frames := make(chan eventFrame, eventBufferSize)
	overflow := make(chan struct{})
	var overflowOnce sync.Once
	push := func(f eventFrame) {
		select {
		case frames <- f:
		default:
			overflowOnce.Do(func() { close(overflow) })
		}
	}

	var unsubscribes []func()
	for _, ch := range channels {
		switch ch {
		case session.ChannelSession:
			unsubscribes = append(unsubscribes, s.coordinator.SubscribeSession(func(sess *session.Session) {
				push(eventFrame{Channel: ch, Payload: sess})
			}))
		case session.ChannelHosts:
			unsubscribes = append(unsubscribes, s.coordinator.SubscribeHosts(func(hosts []session.Host) {
				push(eventFrame{Channel: ch, Payload: hosts})
			}))
		case session.ChannelInvitations:
			unsubscribes = append(unsubscribes, s.coordinator.SubscribeInvitations(func(inv session.Invitation) {
				push(eventFrame{Channel: ch, Payload: inv})
			}))
		}
	}
	defer func() {
		for _, unsubscribe := range unsubscribes {
			unsubscribe()
		}
	}()
	// Subscriptions exist before the handshake completes, so a client sees
	// every notification published after its dial returns.
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client.
		slog.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	slog.Info("event stream opened", "remote_addr", r.RemoteAddr, "channels", channels)

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		conn.SetReadLimit(maxInboundFrame)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case f := <-frames:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(f); err != nil {
				slog.Debug("event stream write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-overflow:
			slog.Warn("event stream dropped slow subscriber", "remote_addr", r.RemoteAddr)
			closeMsg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, closeSlowMessage)
			_ = conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(writeWait))
			return
		case <-readDone:
			slog.Info("event stream closed by client", "remote_addr", r.RemoteAddr)
			return
		case <-r.Context().Done():
			closeMsg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
			_ = conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(writeWait))
			return
		}
	}
}
