package topology

import "github.com/netsblox/cloud/internal/api"

// projectNetwork is the live occupancy of one project: role id to the
// ordered list of occupying client ids.
type projectNetwork struct {
	id    api.ProjectID
	roles map[api.RoleID][]api.ClientID
}

// roomIndex tracks which clients occupy which (project, role) cells.
// Empty role lists and projects with zero roles are never kept: callers
// observing an emptied project must run project cleanup.
type roomIndex struct {
	rooms map[api.ProjectID]*projectNetwork
}

func newRoomIndex() roomIndex {
	return roomIndex{rooms: make(map[api.ProjectID]*projectNetwork)}
}

// addOccupant places the client, creating project and role entries lazily.
func (idx *roomIndex) addOccupant(projectID api.ProjectID, roleID api.RoleID, clientID api.ClientID) {
	room, ok := idx.rooms[projectID]
	if !ok {
		room = &projectNetwork{id: projectID, roles: make(map[api.RoleID][]api.ClientID)}
		idx.rooms[projectID] = room
	}
	room.roles[roleID] = append(room.roles[roleID], clientID)
}

// removeOccupant drops the client from the cell, pruning the role entry
// when it empties. Reports whether the project itself emptied (and was
// dropped), which obliges the caller to run project cleanup.
func (idx *roomIndex) removeOccupant(projectID api.ProjectID, roleID api.RoleID, clientID api.ClientID) (projectEmptied bool) {
	room, ok := idx.rooms[projectID]
	if !ok {
		return false
	}
	occupants := room.roles[roleID]
	for i, id := range occupants {
		if id == clientID {
			occupants = append(occupants[:i], occupants[i+1:]...)
			break
		}
	}
	if len(occupants) > 0 {
		room.roles[roleID] = occupants
		return false
	}
	delete(room.roles, roleID)
	if len(room.roles) > 0 {
		return false
	}
	delete(idx.rooms, projectID)
	return true
}

// occupants returns the clients in the cell, in insertion order.
func (idx *roomIndex) occupants(projectID api.ProjectID, roleID api.RoleID) []api.ClientID {
	if room, ok := idx.rooms[projectID]; ok {
		return room.roles[roleID]
	}
	return nil
}

// allOccupants returns every client in the project.
func (idx *roomIndex) allOccupants(projectID api.ProjectID) []api.ClientID {
	room, ok := idx.rooms[projectID]
	if !ok {
		return nil
	}
	var all []api.ClientID
	for _, occupants := range room.roles {
		all = append(all, occupants...)
	}
	return all
}

// get returns the project's network, or nil.
func (idx *roomIndex) get(projectID api.ProjectID) *projectNetwork {
	return idx.rooms[projectID]
}

// externalIndex maps app-scoped addresses to client ids for non-browser
// clients. Empty app networks are dropped on unbind.
type externalIndex struct {
	apps map[api.AppID]map[string]api.ClientID
}

func newExternalIndex() externalIndex {
	return externalIndex{apps: make(map[api.AppID]map[string]api.ClientID)}
}

func (idx *externalIndex) bind(appID api.AppID, address string, clientID api.ClientID) {
	network, ok := idx.apps[appID]
	if !ok {
		network = make(map[string]api.ClientID)
		idx.apps[appID] = network
	}
	network[address] = clientID
}

func (idx *externalIndex) unbind(appID api.AppID, address string) {
	network, ok := idx.apps[appID]
	if !ok {
		return
	}
	delete(network, address)
	if len(network) == 0 {
		delete(idx.apps, appID)
	}
}

func (idx *externalIndex) lookup(appID api.AppID, address string) (api.ClientID, bool) {
	network, ok := idx.apps[appID]
	if !ok {
		return "", false
	}
	clientID, ok := network[address]
	return clientID, ok
}
