package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/netsblox/cloud/internal/api"
	"github.com/netsblox/cloud/internal/auth"
)

// Host authorization is an operator action; the identity in front of
// this service decides who is an operator. The handlers only shape the
// requests.

func (s *Server) listAuthorizedHosts(w http.ResponseWriter, r *http.Request) {
	hosts, err := s.hosts.ListHosts(r.Context(), auth.ViewAuthHosts{})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, hosts)
}

func (s *Server) authorizeHost(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL        string               `json:"url"`
		ID         string               `json:"id"`
		Visibility api.ServiceHostScope `json:"visibility"`
	}
	if err := decodeBody(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	secret, err := s.hosts.Authorize(r.Context(), auth.AuthorizeHost{}, body.URL, body.ID, body.Visibility)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"secret": secret})
}

func (s *Server) unauthorizeHost(w http.ResponseWriter, r *http.Request) {
	host, err := s.hosts.Unauthorize(r.Context(), auth.AuthorizeHost{}, mux.Vars(r)["hostID"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, host)
}
