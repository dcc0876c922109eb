package httpapi

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/foxseedlab/multihost/internal/session"
)

func (s *Server) logError(r *http.Request, err error) {
	slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
}

func (s *Server) errorResponse(w http.ResponseWriter, r *http.Request, status int, code session.Code, message string, metadata map[string]string) {
	detail := envelope{
		"code":    code,
		"message": message,
	}
	if len(metadata) > 0 {
		detail["metadata"] = metadata
	}

	if err := s.writeJSON(w, status, envelope{"error": detail}, nil); err != nil {
		s.logError(r, err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// sessionErrorResponse answers with the status mapped from a coordinator
// error code. Anything else is a server error.
func (s *Server) sessionErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var se *session.Error
	if !errors.As(err, &se) {
		s.serverErrorResponse(w, r, err)
		return
	}
	slog.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "code", string(se.Code), "error", se.Message)
	s.errorResponse(w, r, se.Code.HTTPStatus(), se.Code, se.Message, se.Metadata)
}

func (s *Server) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	s.logError(r, err)
	message := "the server encountered an error and could not process the request"
	s.errorResponse(w, r, http.StatusInternalServerError, "INTERNAL", message, nil)
}

func (s *Server) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	message := "the requested resource is not found"
	s.errorResponse(w, r, http.StatusNotFound, "NOT_FOUND", message, nil)
}

func (s *Server) methodNotAllowedResponse(w http.ResponseWriter, r *http.Request) {
	message := fmt.Sprintf("the %s method is not allowed on this resource", r.Method)
	s.errorResponse(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", message, nil)
}

func (s *Server) badRequestResponse(w http.ResponseWriter, r *http.Request, message string) {
	s.errorResponse(w, r, http.StatusBadRequest, session.CodeInvalidArgument, message, nil)
}
