package server

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/netsblox/cloud/internal/api"
	"github.com/netsblox/cloud/internal/projects"
	"github.com/netsblox/cloud/internal/topology"
	"github.com/netsblox/cloud/internal/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Origin checks belong to the proxy fronting this service.
	CheckOrigin: func(*http.Request) bool { return true },
}

// connectClient upgrades the connection and runs the session until the
// client goes away.
func (s *Server) connectClient(w http.ResponseWriter, r *http.Request) {
	clientID, err := api.ParseClientID(r.URL.Query().Get("clientId"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Debug("websocket upgrade failed")
		return
	}

	session := ws.NewSession(clientID, conn, s.topology)
	session.Run(r.Context())
}

// topologyNetwork adapts the engine to the lifecycle service's Network
// contract.
type topologyNetwork struct {
	*topology.Topology
}

// NewTopologyNetwork wraps the engine for projects.NewActions.
func NewTopologyNetwork(t *topology.Topology) projects.Network {
	return topologyNetwork{Topology: t}
}

func (n topologyNetwork) RoleFetcher(projectID api.ProjectID, roleID api.RoleID) projects.RoleFetcher {
	req := n.Topology.GetRoleRequest(projectID, roleID)
	if req == nil {
		return nil
	}
	return req
}
