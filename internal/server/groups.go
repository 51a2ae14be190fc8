package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/netsblox/cloud/internal/api"
	"github.com/netsblox/cloud/internal/auth"
	"github.com/netsblox/cloud/internal/errs"
)

func groupID(r *http.Request) api.GroupID {
	return api.GroupID(mux.Vars(r)["groupID"])
}

// groupOwnerCaps mints view/edit rights over a group for its owner.
func (s *Server) groupOwner(r *http.Request, id api.GroupID) error {
	group, err := s.groups.ViewGroup(r.Context(), auth.ViewGroup{ID: id})
	if err != nil {
		return err
	}
	if group.Owner != username(r) {
		return errs.ErrForbidden
	}
	return nil
}

func (s *Server) listGroups(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["username"]
	if username(r) != name {
		s.writeError(w, errs.ErrForbidden)
		return
	}
	groups, err := s.groups.ListGroups(r.Context(), auth.ViewUser{Username: name})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, groups)
}

func (s *Server) createGroup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	eu, err := editUserCap(r, mux.Vars(r)["username"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	group, err := s.groups.CreateGroup(r.Context(), eu, body.Name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, group)
}

func (s *Server) viewGroup(w http.ResponseWriter, r *http.Request) {
	id := groupID(r)
	if err := s.groupOwner(r, id); err != nil {
		s.writeError(w, err)
		return
	}
	group, err := s.groups.ViewGroup(r.Context(), auth.ViewGroup{ID: id})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, group)
}

func (s *Server) renameGroup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id := groupID(r)
	if err := s.groupOwner(r, id); err != nil {
		s.writeError(w, err)
		return
	}
	group, err := s.groups.RenameGroup(r.Context(), auth.EditGroup{ID: id}, body.Name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, group)
}

func (s *Server) deleteGroup(w http.ResponseWriter, r *http.Request) {
	id := groupID(r)
	if err := s.groupOwner(r, id); err != nil {
		s.writeError(w, err)
		return
	}
	group, err := s.groups.DeleteGroup(r.Context(), auth.DeleteGroup{ID: id})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, group)
}

func (s *Server) listMembers(w http.ResponseWriter, r *http.Request) {
	id := groupID(r)
	if err := s.groupOwner(r, id); err != nil {
		s.writeError(w, err)
		return
	}
	members, err := s.groups.ListMembers(r.Context(), auth.ViewGroup{ID: id})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, members)
}

func (s *Server) setGroupHosts(w http.ResponseWriter, r *http.Request) {
	var hosts []api.ServiceHost
	if err := decodeBody(r, &hosts); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id := groupID(r)
	if err := s.groupOwner(r, id); err != nil {
		s.writeError(w, err)
		return
	}
	group, err := s.groups.SetGroupHosts(r.Context(), auth.EditGroup{ID: id}, hosts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, group)
}

func (s *Server) getServiceSettings(w http.ResponseWriter, r *http.Request) {
	id := groupID(r)
	if err := s.groupOwner(r, id); err != nil {
		s.writeError(w, err)
		return
	}
	settings, err := s.groups.GetServiceSettings(r.Context(), auth.ViewGroup{ID: id})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, settings)
}

func (s *Server) setServiceSettings(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Settings string `json:"settings"`
	}
	if err := decodeBody(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id := groupID(r)
	if err := s.groupOwner(r, id); err != nil {
		s.writeError(w, err)
		return
	}
	group, err := s.groups.SetServiceSettings(r.Context(), auth.EditGroup{ID: id}, mux.Vars(r)["host"], body.Settings)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, group)
}

func (s *Server) deleteServiceSettings(w http.ResponseWriter, r *http.Request) {
	id := groupID(r)
	if err := s.groupOwner(r, id); err != nil {
		s.writeError(w, err)
		return
	}
	group, err := s.groups.DeleteServiceSettings(r.Context(), auth.EditGroup{ID: id}, mux.Vars(r)["host"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, group)
}
