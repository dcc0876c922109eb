package httpapi

import (
	"net/http"

	"github.com/foxseedlab/multihost/internal/session"
	"github.com/julienschmidt/httprouter"
)

func (s *Server) updateHostHandler(w http.ResponseWriter, r *http.Request) {
	hostID := httprouter.ParamsFromContext(r.Context()).ByName("hostID")

	var update session.HostUpdate
	if err := s.readJSON(w, r, &update); err != nil {
		s.badRequestResponse(w, r, err.Error())
		return
	}

	host, err := s.coordinator.UpdateHostSettings(hostID, update)
	if err != nil {
		s.sessionErrorResponse(w, r, err)
		return
	}

	if err := s.writeJSON(w, http.StatusOK, envelope{"host": host}, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

// removeHostHandler succeeds for ids that are not session members.
func (s *Server) removeHostHandler(w http.ResponseWriter, r *http.Request) {
	hostID := httprouter.ParamsFromContext(r.Context()).ByName("hostID")

	removed, err := s.coordinator.RemoveHost(hostID)
	if err != nil {
		s.sessionErrorResponse(w, r, err)
		return
	}

	if err := s.writeJSON(w, http.StatusOK, envelope{"removed": removed}, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

func (s *Server) setConnectionHandler(w http.ResponseWriter, r *http.Request) {
	hostID := httprouter.ParamsFromContext(r.Context()).ByName("hostID")

	var input struct {
		Handle string `json:"handle"`
	}
	if err := s.readJSON(w, r, &input); err != nil {
		s.badRequestResponse(w, r, err.Error())
		return
	}

	if err := s.coordinator.SetConnection(hostID, input.Handle); err != nil {
		s.sessionErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
