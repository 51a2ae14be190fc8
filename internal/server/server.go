// Package server assembles the HTTP surface: the WebSocket connect
// endpoint plus thin JSON endpoints over the action services.
//
// The handlers stay deliberately thin. They identify the caller (from a
// placeholder identity header), mint the capability the action needs,
// and translate errors; all behavior lives in the services.
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/netsblox/cloud/internal/api"
	"github.com/netsblox/cloud/internal/auth"
	"github.com/netsblox/cloud/internal/collab"
	"github.com/netsblox/cloud/internal/errs"
	"github.com/netsblox/cloud/internal/groups"
	"github.com/netsblox/cloud/internal/hosts"
	"github.com/netsblox/cloud/internal/projects"
	"github.com/netsblox/cloud/internal/topology"
)

// identityHeader names the already-authenticated caller. Session and
// cookie handling live in front of this service.
const identityHeader = "X-Username"

// Server routes HTTP requests to the action services.
type Server struct {
	log      *logrus.Entry
	topology *topology.Topology
	projects *projects.Actions
	collab   *collab.Actions
	groups   *groups.Actions
	hosts    *hosts.Actions
}

// New builds the server over the services.
func New(topo *topology.Topology, projectActions *projects.Actions, collabActions *collab.Actions, groupActions *groups.Actions, hostActions *hosts.Actions) *Server {
	return &Server{
		log:      logrus.WithField("component", "server"),
		topology: topo,
		projects: projectActions,
		collab:   collabActions,
		groups:   groupActions,
		hosts:    hostActions,
	}
}

// Router returns the HTTP routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/network/ws", s.connectClient).Methods(http.MethodGet)

	p := r.PathPrefix("/projects").Subrouter()
	p.HandleFunc("", s.createProject).Methods(http.MethodPost)
	p.HandleFunc("/id/{projectID}", s.getProjectMetadata).Methods(http.MethodGet)
	p.HandleFunc("/id/{projectID}", s.renameProject).Methods(http.MethodPatch)
	p.HandleFunc("/id/{projectID}", s.deleteProject).Methods(http.MethodDelete)
	p.HandleFunc("/id/{projectID}/export", s.exportProject).Methods(http.MethodGet)
	p.HandleFunc("/id/{projectID}/latest", s.exportLatestProject).Methods(http.MethodGet)
	p.HandleFunc("/id/{projectID}/thumbnail", s.getThumbnail).Methods(http.MethodGet)
	p.HandleFunc("/id/{projectID}/publish", s.publishProject).Methods(http.MethodPost)
	p.HandleFunc("/id/{projectID}/unpublish", s.unpublishProject).Methods(http.MethodPost)
	p.HandleFunc("/id/{projectID}/save", s.markSaved).Methods(http.MethodPost)
	p.HandleFunc("/id/{projectID}/roles", s.addRole).Methods(http.MethodPost)
	p.HandleFunc("/id/{projectID}/roles/{roleID}", s.getRole).Methods(http.MethodGet)
	p.HandleFunc("/id/{projectID}/roles/{roleID}", s.saveRole).Methods(http.MethodPut)
	p.HandleFunc("/id/{projectID}/roles/{roleID}", s.renameRole).Methods(http.MethodPatch)
	p.HandleFunc("/id/{projectID}/roles/{roleID}", s.deleteRole).Methods(http.MethodDelete)
	p.HandleFunc("/id/{projectID}/roles/{roleID}/latest", s.getLatestRole).Methods(http.MethodGet)
	p.HandleFunc("/id/{projectID}/collaborators", s.listCollaborators).Methods(http.MethodGet)
	p.HandleFunc("/id/{projectID}/collaborators/{username}", s.removeCollaborator).Methods(http.MethodDelete)

	c := r.PathPrefix("/collaboration-invites").Subrouter()
	c.HandleFunc("/user/{username}", s.listInvites).Methods(http.MethodGet)
	c.HandleFunc("/{projectID}/invite/{receiver}", s.sendInvite).Methods(http.MethodPost)
	c.HandleFunc("/id/{inviteID}", s.respondToInvite).Methods(http.MethodPost)

	g := r.PathPrefix("/groups").Subrouter()
	g.HandleFunc("/user/{username}", s.listGroups).Methods(http.MethodGet)
	g.HandleFunc("/user/{username}", s.createGroup).Methods(http.MethodPost)
	g.HandleFunc("/id/{groupID}", s.viewGroup).Methods(http.MethodGet)
	g.HandleFunc("/id/{groupID}", s.renameGroup).Methods(http.MethodPatch)
	g.HandleFunc("/id/{groupID}", s.deleteGroup).Methods(http.MethodDelete)
	g.HandleFunc("/id/{groupID}/members", s.listMembers).Methods(http.MethodGet)
	g.HandleFunc("/id/{groupID}/hosts", s.setGroupHosts).Methods(http.MethodPost)
	g.HandleFunc("/id/{groupID}/settings", s.getServiceSettings).Methods(http.MethodGet)
	g.HandleFunc("/id/{groupID}/settings/{host}", s.setServiceSettings).Methods(http.MethodPost)
	g.HandleFunc("/id/{groupID}/settings/{host}", s.deleteServiceSettings).Methods(http.MethodDelete)

	h := r.PathPrefix("/services/hosts/authorized").Subrouter()
	h.HandleFunc("", s.listAuthorizedHosts).Methods(http.MethodGet)
	h.HandleFunc("", s.authorizeHost).Methods(http.MethodPost)
	h.HandleFunc("/{hostID}", s.unauthorizeHost).Methods(http.MethodDelete)

	return r
}

// username returns the authenticated caller, or "" for anonymous.
func username(r *http.Request) string {
	return r.Header.Get(identityHeader)
}

// viewProjectCap mints a ViewProject for the caller: owners,
// collaborators, and anyone for publicly listed projects.
func (s *Server) viewProjectCap(ctx context.Context, r *http.Request, id api.ProjectID) (auth.ViewProject, error) {
	md, err := s.projects.CachedMetadata(ctx, id)
	if err != nil {
		return auth.ViewProject{}, err
	}
	if md.State.AtLeast(api.PublishStatePublic) || canEdit(md, username(r)) {
		return auth.ViewProject{Metadata: md}, nil
	}
	return auth.ViewProject{}, errs.ErrForbidden
}

// editProjectCap mints an EditProject for owners and collaborators. The
// metadata is read fresh so edits act on current state.
func (s *Server) editProjectCap(ctx context.Context, r *http.Request, id api.ProjectID) (auth.EditProject, error) {
	md, err := s.projects.CachedMetadata(ctx, id)
	if err != nil {
		return auth.EditProject{}, err
	}
	if !canEdit(md, username(r)) {
		return auth.EditProject{}, errs.ErrForbidden
	}
	return auth.EditProject{Metadata: md}, nil
}

// editUserCap mints an EditUser when the caller is the named user.
func editUserCap(r *http.Request, name string) (auth.EditUser, error) {
	if name == "" || username(r) != name {
		return auth.EditUser{}, errs.ErrForbidden
	}
	return auth.EditUser{Username: name}, nil
}

func canEdit(md api.ProjectMetadata, user string) bool {
	if user == "" {
		return false
	}
	if md.Owner == user {
		return true
	}
	for _, collaborator := range md.Collaborators {
		if collaborator == user {
			return true
		}
	}
	return false
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.WithError(err).Debug("writing response")
	}
}

func decodeBody(r *http.Request, into any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(into)
}
