package httpapi

import (
	"net/http"

	"github.com/foxseedlab/multihost/internal/session"
	"github.com/julienschmidt/httprouter"
)

func (s *Server) inviteHostHandler(w http.ResponseWriter, r *http.Request) {
	var input session.InviteInput
	if err := s.readJSON(w, r, &input); err != nil {
		s.badRequestResponse(w, r, err.Error())
		return
	}

	inv, err := s.coordinator.InviteHost(input)
	if err != nil {
		s.sessionErrorResponse(w, r, err)
		return
	}

	if err := s.writeJSON(w, http.StatusCreated, envelope{"invitation": inv}, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

func (s *Server) listInvitationsHandler(w http.ResponseWriter, r *http.Request) {
	list := s.coordinator.ListInvitations()
	if err := s.writeJSON(w, http.StatusOK, envelope{"invitations": list}, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

func (s *Server) getInvitationHandler(w http.ResponseWriter, r *http.Request) {
	id := httprouter.ParamsFromContext(r.Context()).ByName("invitationID")

	inv, err := s.coordinator.GetInvitation(id)
	if err != nil {
		s.sessionErrorResponse(w, r, err)
		return
	}

	if err := s.writeJSON(w, http.StatusOK, envelope{"invitation": inv}, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

func (s *Server) acceptInvitationHandler(w http.ResponseWriter, r *http.Request) {
	id := httprouter.ParamsFromContext(r.Context()).ByName("invitationID")

	host, err := s.coordinator.AcceptInvitation(id)
	if err != nil {
		s.sessionErrorResponse(w, r, err)
		return
	}

	if err := s.writeJSON(w, http.StatusOK, envelope{"host": host}, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}

func (s *Server) declineInvitationHandler(w http.ResponseWriter, r *http.Request) {
	id := httprouter.ParamsFromContext(r.Context()).ByName("invitationID")

	declined, err := s.coordinator.DeclineInvitation(id)
	if err != nil {
		s.sessionErrorResponse(w, r, err)
		return
	}

	if err := s.writeJSON(w, http.StatusOK, envelope{"declined": declined}, nil); err != nil {
		s.serverErrorResponse(w, r, err)
	}
}
