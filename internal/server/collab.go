package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/netsblox/cloud/internal/api"
	"github.com/netsblox/cloud/internal/auth"
	"github.com/netsblox/cloud/internal/errs"
)

func (s *Server) listInvites(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["username"]
	if username(r) != name {
		s.writeError(w, errs.ErrForbidden)
		return
	}
	invites, err := s.collab.ListInvites(r.Context(), auth.ViewUser{Username: name})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, invites)
}

func (s *Server) sendInvite(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := api.ProjectID(vars["projectID"])

	// Only editors of the project may invite collaborators to it.
	ep, err := s.editProjectCap(r.Context(), r, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	eu, err := editUserCap(r, username(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	invite, err := s.collab.SendInvite(r.Context(), eu, ep.Metadata.ID, vars["receiver"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, invite)
}

func (s *Server) respondToInvite(w http.ResponseWriter, r *http.Request) {
	var body api.InvitationResponse
	if err := decodeBody(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	state, err := api.ParseInvitationState(string(body.Response))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	eu, err := editUserCap(r, username(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	result, err := s.collab.Respond(r.Context(), eu, mux.Vars(r)["inviteID"], state)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}
