package httpapi

import (
	"net/http"

	"github.com/foxseedlab/multihost/internal/session"
)

func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	var input session.CreateSessionInput
	if err := s.readJSON(w, r, &input); err != nil {
		s.badRequestResponse(w, r, err.Error())
		return
	}

	sess, err := s.coordinator.CreateSession(input)
	if err != nil {
		s.sessionErrorResponse(w, r, err)
		return
	}

	if err := s.writeJSON(w, http.StatusCreated, envelope{"session": sess}, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

// getSessionHandler answers with a null session when none is active.
func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	sess := s.coordinator.GetCurrentSession()
	if err := s.writeJSON(w, http.StatusOK, envelope{"session": sess}, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

func (s *Server) endSessionHandler(w http.ResponseWriter, r *http.Request) {
	ended, err := s.coordinator.EndSessionSnapshot()
	if err != nil {
		s.sessionErrorResponse(w, r, err)
		return
	}

	res := envelope{"ended": true, "session": ended}
	if err := s.writeJSON(w, http.StatusOK, res, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

func (s *Server) updateLayoutHandler(w http.ResponseWriter, r *http.Request) {
	var patch session.LayoutPatch
	if err := s.readJSON(w, r, &patch); err != nil {
		s.badRequestResponse(w, r, err.Error())
		return
	}

	layout, err := s.coordinator.UpdateLayout(patch)
	if err != nil {
		s.sessionErrorResponse(w, r, err)
		return
	}

	if err := s.writeJSON(w, http.StatusOK, envelope{"layout": layout}, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

func (s *Server) setActiveHostHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		HostID string `json:"hostId"`
	}
	if err := s.readJSON(w, r, &input); err != nil {
		s.badRequestResponse(w, r, err.Error())
		return
	}

	if _, err := s.coordinator.SetActiveHost(input.HostID); err != nil {
		s.sessionErrorResponse(w, r, err)
		return
	}

	if err := s.writeJSON(w, http.StatusOK, envelope{"activeHostId": input.HostID}, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}
