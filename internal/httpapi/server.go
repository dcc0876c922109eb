// Package httpapi exposes the session coordinator over REST and streams its
// notifications over a WebSocket.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/foxseedlab/multihost/internal/session"
	"github.com/julienschmidt/httprouter"
	"github.com/justinas/alice"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

type Server struct {
	addr        string
	coordinator *session.Coordinator
	history     HistoryReader
}

func NewServer(addr string, coordinator *session.Coordinator, history HistoryReader) *Server {
	return &Server{addr: addr, coordinator: coordinator, history: history}
}

func (s *Server) Handler() http.Handler {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(s.notFoundResponse)
	router.MethodNotAllowed = http.HandlerFunc(s.methodNotAllowedResponse)

	standard := alice.New(s.recoverPanic, s.logRequest)

	router.HandlerFunc(http.MethodGet, "/healthz", s.healthHandler)

	// session
	router.HandlerFunc(http.MethodPost, "/v1/session", s.createSessionHandler)
	router.HandlerFunc(http.MethodGet, "/v1/session", s.getSessionHandler)
	router.HandlerFunc(http.MethodDelete, "/v1/session", s.endSessionHandler)
	router.HandlerFunc(http.MethodPatch, "/v1/session/layout", s.updateLayoutHandler)
	router.HandlerFunc(http.MethodPut, "/v1/session/active-host", s.setActiveHostHandler)

	// hosts
	router.HandlerFunc(http.MethodPatch, "/v1/hosts/:hostID", s.updateHostHandler)
	router.HandlerFunc(http.MethodDelete, "/v1/hosts/:hostID", s.removeHostHandler)
	router.HandlerFunc(http.MethodPut, "/v1/hosts/:hostID/connection", s.setConnectionHandler)

	// invitations
	router.HandlerFunc(http.MethodPost, "/v1/invitations", s.inviteHostHandler)
	router.HandlerFunc(http.MethodGet, "/v1/invitations", s.listInvitationsHandler)
	router.HandlerFunc(http.MethodGet, "/v1/invitations/:invitationID", s.getInvitationHandler)
	router.HandlerFunc(http.MethodPost, "/v1/invitations/:invitationID/accept", s.acceptInvitationHandler)
	router.HandlerFunc(http.MethodPost, "/v1/invitations/:invitationID/decline", s.declineInvitationHandler)

	// history
	router.HandlerFunc(http.MethodGet, "/v1/history/sessions/:sessionID", s.getHistoryHandler)

	// websocket
	router.HandlerFunc(http.MethodGet, "/v1/events", s.eventsHandler)

	return standard.Then(router)
}

// Serve listens on the configured address until ctx is cancelled, then shuts
// down gracefully. Open event streams observe the cancellation through their
// request context.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	slog.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.writeJSON(w, http.StatusOK, envelope{"status": "ok"}, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}
