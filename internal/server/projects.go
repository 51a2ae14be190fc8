package server

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/netsblox/cloud/internal/api"
)

func projectID(r *http.Request) api.ProjectID {
	return api.ProjectID(mux.Vars(r)["projectID"])
}

func roleID(r *http.Request) api.RoleID {
	return api.RoleID(mux.Vars(r)["roleID"])
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var data api.CreateProjectData
	if err := decodeBody(r, &data); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if data.Owner == "" {
		data.Owner = username(r)
	}
	md, err := s.projects.CreateProject(r.Context(), data)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, md)
}

func (s *Server) getProjectMetadata(w http.ResponseWriter, r *http.Request) {
	vp, err := s.viewProjectCap(r.Context(), r, projectID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.projects.Metadata(vp))
}

func (s *Server) renameProject(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ep, err := s.editProjectCap(r.Context(), r, projectID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	md, err := s.projects.RenameProject(r.Context(), ep, body.Name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, md)
}

func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	ep, err := s.editProjectCap(r.Context(), r, projectID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.projects.DeleteProject(r.Context(), ep); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ep.Metadata)
}

func (s *Server) exportProject(w http.ResponseWriter, r *http.Request) {
	vp, err := s.viewProjectCap(r.Context(), r, projectID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	project, err := s.projects.GetProject(r.Context(), vp)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, project)
}

func (s *Server) exportLatestProject(w http.ResponseWriter, r *http.Request) {
	vp, err := s.viewProjectCap(r.Context(), r, projectID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	project, err := s.projects.GetLatestProject(r.Context(), vp)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, project)
}

func (s *Server) getThumbnail(w http.ResponseWriter, r *http.Request) {
	vp, err := s.viewProjectCap(r.Context(), r, projectID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	var aspectRatio *float64
	if raw := r.URL.Query().Get("aspectRatio"); raw != "" {
		ratio, err := strconv.ParseFloat(raw, 64)
		if err != nil || ratio <= 0 {
			http.Error(w, "invalid aspect ratio", http.StatusBadRequest)
			return
		}
		aspectRatio = &ratio
	}
	thumbnail, err := s.projects.GetThumbnail(r.Context(), vp, aspectRatio)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(thumbnail)
}

func (s *Server) publishProject(w http.ResponseWriter, r *http.Request) {
	ep, err := s.editProjectCap(r.Context(), r, projectID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	state, err := s.projects.Publish(r.Context(), ep)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

func (s *Server) unpublishProject(w http.ResponseWriter, r *http.Request) {
	ep, err := s.editProjectCap(r.Context(), r, projectID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	state, err := s.projects.Unpublish(r.Context(), ep)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

func (s *Server) markSaved(w http.ResponseWriter, r *http.Request) {
	ep, err := s.editProjectCap(r.Context(), r, projectID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	md, err := s.projects.MarkSaved(r.Context(), ep)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, md)
}

func (s *Server) addRole(w http.ResponseWriter, r *http.Request) {
	var data api.RoleData
	if err := decodeBody(r, &data); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ep, err := s.editProjectCap(r.Context(), r, projectID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	md, err := s.projects.AddRole(r.Context(), ep, data)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, md)
}

func (s *Server) getRole(w http.ResponseWriter, r *http.Request) {
	vp, err := s.viewProjectCap(r.Context(), r, projectID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	role, err := s.projects.GetRole(r.Context(), vp, roleID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, role)
}

func (s *Server) getLatestRole(w http.ResponseWriter, r *http.Request) {
	vp, err := s.viewProjectCap(r.Context(), r, projectID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	role, err := s.projects.GetLatestRole(r.Context(), vp, roleID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, role)
}

func (s *Server) saveRole(w http.ResponseWriter, r *http.Request) {
	var data api.RoleData
	if err := decodeBody(r, &data); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ep, err := s.editProjectCap(r.Context(), r, projectID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	md, err := s.projects.SaveRole(r.Context(), ep, roleID(r), data)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, md)
}

func (s *Server) renameRole(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ep, err := s.editProjectCap(r.Context(), r, projectID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	md, err := s.projects.RenameRole(r.Context(), ep, roleID(r), body.Name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, md)
}

func (s *Server) deleteRole(w http.ResponseWriter, r *http.Request) {
	ep, err := s.editProjectCap(r.Context(), r, projectID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	md, err := s.projects.DeleteRole(r.Context(), ep, roleID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, md)
}

func (s *Server) listCollaborators(w http.ResponseWriter, r *http.Request) {
	vp, err := s.viewProjectCap(r.Context(), r, projectID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.projects.Collaborators(vp))
}

func (s *Server) removeCollaborator(w http.ResponseWriter, r *http.Request) {
	ep, err := s.editProjectCap(r.Context(), r, projectID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	md, err := s.projects.RemoveCollaborator(r.Context(), ep, mux.Vars(r)["username"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, md)
}
