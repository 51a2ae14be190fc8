// Package topology maintains the live routing topology of the cloud: the
// bidirectional mapping between ephemeral transport connections and the
// durable addresses messages are sent to (user/role/project/external app).
//
// All state is owned by a single-writer engine: every command handler
// runs under one mutex, so command effects are serialized exactly like a
// one-goroutine actor loop. Transport sends happen after the handler has
// released the lock, on handles snapshotted while it was held.
package topology

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/netsblox/cloud/internal/api"
	"github.com/netsblox/cloud/internal/errs"
	"github.com/netsblox/cloud/internal/storage"
)

// BrokenProjectCooldown is how long an unsaved project with a broken
// connection survives after full evacuation before the reaper deletes it.
const BrokenProjectCooldown = 10 * time.Minute

// DefaultRoleRequestWindow is how long a role request waits for the
// selected occupant to reply before callers fall back to the blob store.
const DefaultRoleRequestWindow = 5 * time.Second

// ErrRoleRequestTimeout is returned when no occupant reply arrived in time.
var ErrRoleRequestTimeout = errors.New("no role data received from occupant")

// anonymousName is the occupant name broadcast for clients that never
// supplied a username.
const anonymousName = "guest"

// outbound pairs a snapshotted transport handle with the frame to send.
type outbound struct {
	id     api.ClientID
	handle ClientHandle
	frame  []byte
}

// Topology is the single-writer engine coordinating the client registry,
// the room index, the external index, and the project store gateway.
type Topology struct {
	log      *logrus.Entry
	projects storage.Projects

	mu       sync.Mutex
	clients  map[api.ClientID]*client
	rooms    roomIndex
	external externalIndex

	// version is the room-state broadcast counter. Seeded from Unix
	// seconds so versions stay comparable across restarts; bumped on
	// every broadcast so they are strictly increasing within a process.
	version uint64

	pending           map[uuid.UUID]chan api.RoleData
	roleRequestWindow time.Duration
}

// New returns an engine over the given project store gateway.
func New(projects storage.Projects) *Topology {
	return &Topology{
		log:               logrus.WithField("component", "topology"),
		projects:          projects,
		clients:           make(map[api.ClientID]*client),
		rooms:             newRoomIndex(),
		external:          newExternalIndex(),
		version:           uint64(time.Now().Unix()),
		pending:           make(map[uuid.UUID]chan api.RoleData),
		roleRequestWindow: DefaultRoleRequestWindow,
	}
}

// AddClient registers a live connection. The client has no placement
// until a SetClientState arrives.
func (t *Topology) AddClient(id api.ClientID, handle ClientHandle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clients[id] = &client{id: id, handle: handle}
}

// SetClientState moves the client to a new placement, first undoing any
// prior one. Unknown client ids are dropped: AddClient always precedes
// SetClientState on a live connection.
func (t *Topology) SetClientState(ctx context.Context, id api.ClientID, state api.ClientState, username *string) {
	t.mu.Lock()
	c, ok := t.clients[id]
	if !ok {
		t.mu.Unlock()
		return
	}

	outs := t.resetStateLocked(ctx, c)
	if username != nil {
		c.username = *username
	}

	switch {
	case state.Browser != nil:
		browser := state.Browser
		t.rooms.addOccupant(browser.ProjectID, browser.RoleID, id)
		md, frames := t.roomStateLocked(ctx, browser.ProjectID)
		outs = append(outs, frames...)
		if md != nil && md.DeleteAt != nil {
			// A new occupant resurrects a project awaiting delayed
			// deletion.
			if err := t.projects.CancelDeletion(ctx, md.ID); err != nil {
				t.log.WithError(err).WithField("projectId", md.ID).Error("canceling scheduled deletion")
			}
		}
	case state.External != nil:
		external := state.External
		t.external.bind(api.NewAppID(string(external.AppID)), external.Address, id)
	}
	c.state = &state
	t.mu.Unlock()

	t.deliver(outs)
}

// RemoveClient drops the connection and undoes its placement.
func (t *Topology) RemoveClient(ctx context.Context, id api.ClientID) {
	t.mu.Lock()
	c, ok := t.clients[id]
	if !ok {
		t.mu.Unlock()
		return
	}
	delete(t.clients, id)
	outs := t.resetStateLocked(ctx, c)
	t.mu.Unlock()

	t.deliver(outs)
}

// SetBrokenClient marks the client's project Broken if it is still
// unsaved. The transport follows up with RemoveClient; this only affects
// the save state so cleanup switches to the delayed path. Idempotent.
func (t *Topology) SetBrokenClient(ctx context.Context, id api.ClientID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.clients[id]
	if !ok || c.state == nil || c.state.Browser == nil {
		return
	}
	projectID := c.state.Browser.ProjectID
	matched, err := t.projects.MarkBroken(ctx, projectID)
	if err != nil {
		t.log.WithError(err).WithField("projectId", projectID).Error("marking project broken")
		return
	}
	if matched {
		t.log.WithFields(logrus.Fields{"clientId": id, "projectId": projectID}).
			Info("broken client detected; project marked broken")
	}
}

// SendMessage resolves each address, de-duplicates the recipients by
// client id, and sends the content to each. Best-effort: unresolvable
// addresses yield nothing and per-recipient failures are only logged.
func (t *Topology) SendMessage(ctx context.Context, addresses []string, content []byte) {
	t.mu.Lock()
	seen := make(map[api.ClientID]bool)
	var outs []outbound
	for _, raw := range addresses {
		addr, err := ParseAddress(raw)
		if err != nil {
			t.log.WithField("address", raw).Debug("skipping unparseable address")
			continue
		}
		for _, clientID := range t.clientsAtLocked(ctx, addr) {
			if seen[clientID] {
				continue
			}
			seen[clientID] = true
			if c, ok := t.clients[clientID]; ok {
				outs = append(outs, outbound{id: clientID, handle: c.handle, frame: content})
			}
		}
	}
	t.mu.Unlock()

	t.deliver(outs)
}

// SendRoomState broadcasts the room state built from the given metadata
// to every occupant of the project. Action services call this after any
// mutation that changes what occupants should see (rename, roles,
// collaborators).
func (t *Topology) SendRoomState(md api.ProjectMetadata) {
	t.mu.Lock()
	outs := t.roomStateFromLocked(md)
	t.mu.Unlock()

	t.deliver(outs)
}

// SendToUser sends the frame to every live client logged in as username.
func (t *Topology) SendToUser(username string, frame []byte) {
	t.mu.Lock()
	var outs []outbound
	for _, c := range t.clients {
		if c.username == username {
			outs = append(outs, outbound{id: c.id, handle: c.handle, frame: frame})
		}
	}
	t.mu.Unlock()

	t.deliver(outs)
}

// SendInviteTo pushes a collaboration-invite frame to the recipient's
// live clients.
func (t *Topology) SendInviteTo(username string, invite api.CollaborationInvite) {
	t.SendToUser(username, frame("collab-invite", invite))
}

// ClientInfo reports the username and placement of a client, for
// diagnostics.
func (t *Topology) ClientInfo(id api.ClientID) (api.ClientInfo, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.clients[id]
	if !ok {
		return api.ClientInfo{}, false
	}
	info := api.ClientInfo{State: c.state}
	if c.username != "" {
		username := c.username
		info.Username = &username
	}
	return info, true
}

// resetStateLocked undoes the client's placement: removes it from the
// room index (running project cleanup when the project empties) or from
// the external index. Returns the room-state broadcasts to deliver.
func (t *Topology) resetStateLocked(ctx context.Context, c *client) []outbound {
	c.username = ""
	state := c.state
	c.state = nil
	if state == nil {
		return nil
	}

	switch {
	case state.Browser != nil:
		browser := state.Browser
		existed := t.rooms.get(browser.ProjectID) != nil
		projectEmptied := t.rooms.removeOccupant(browser.ProjectID, browser.RoleID, c.id)
		if projectEmptied {
			t.cleanupProjectLocked(ctx, browser.ProjectID)
			return nil
		}
		if existed {
			_, frames := t.roomStateLocked(ctx, browser.ProjectID)
			return frames
		}
	case state.External != nil:
		external := state.External
		t.external.unbind(external.AppID, external.Address)
	}
	return nil
}

// cleanupProjectLocked applies the evacuation policy: Transient projects
// are deleted immediately, Broken ones get a deletion cool-down, and
// anything saved (or merely created) is left alone.
func (t *Topology) cleanupProjectLocked(ctx context.Context, projectID api.ProjectID) {
	md, err := t.projects.ByID(ctx, projectID)
	if errors.Is(err, errs.ErrProjectNotFound) {
		return
	}
	if err != nil {
		t.log.WithError(err).WithField("projectId", projectID).Error("looking up evacuated project")
		return
	}

	switch md.SaveState {
	case api.SaveStateTransient:
		if err := t.projects.Delete(ctx, projectID); err != nil {
			t.log.WithError(err).WithField("projectId", projectID).Error("deleting transient project")
		}
	case api.SaveStateBroken:
		deleteAt := time.Now().Add(BrokenProjectCooldown)
		if err := t.projects.ScheduleDeletion(ctx, projectID, deleteAt); err != nil {
			t.log.WithError(err).WithField("projectId", projectID).Error("scheduling project deletion")
		}
	}
}

// clientsAtLocked resolves an address to the client ids it names.
func (t *Topology) clientsAtLocked(ctx context.Context, addr ClientAddress) []api.ClientID {
	var ids []api.ClientID
	for _, appID := range addr.AppIDs {
		if appID == DefaultAppID {
			for _, browser := range t.resolveAddressLocked(ctx, addr) {
				ids = append(ids, t.rooms.occupants(browser.ProjectID, browser.RoleID)...)
			}
			continue
		}
		if clientID, ok := t.external.lookup(appID, addr.appString()); ok {
			ids = append(ids, clientID)
		}
	}
	return ids
}

// resolveAddressLocked resolves a default-app address against the
// owner's project metadata. A missing role name matches every role.
func (t *Topology) resolveAddressLocked(ctx context.Context, addr ClientAddress) []api.BrowserClientState {
	project, role := addr.projectAndRole()
	md, err := t.projects.ByOwnerAndName(ctx, addr.UserID, project)
	if err != nil {
		if !errors.Is(err, errs.ErrProjectNotFound) {
			t.log.WithError(err).Error("resolving message address")
		}
		return nil
	}

	nameToID := make(map[string]api.RoleID, len(md.Roles))
	for roleID, roleMd := range md.Roles {
		nameToID[roleMd.Name] = roleID
	}

	roleNames := []string{role}
	if role == "" {
		roleNames = roleNames[:0]
		for _, roleMd := range md.Roles {
			roleNames = append(roleNames, roleMd.Name)
		}
	}

	var targets []api.BrowserClientState
	for _, name := range roleNames {
		if roleID, ok := nameToID[name]; ok {
			targets = append(targets, api.BrowserClientState{ProjectID: md.ID, RoleID: roleID})
		}
	}
	return targets
}

// roomStateLocked fetches the project metadata and builds the broadcast
// for its occupants. Returns nil metadata when the project is gone.
func (t *Topology) roomStateLocked(ctx context.Context, projectID api.ProjectID) (*api.ProjectMetadata, []outbound) {
	md, err := t.projects.ByID(ctx, projectID)
	if err != nil {
		if !errors.Is(err, errs.ErrProjectNotFound) {
			t.log.WithError(err).WithField("projectId", projectID).Error("fetching project for room broadcast")
		}
		return nil, nil
	}
	return md, t.roomStateFromLocked(*md)
}

// roomStateFromLocked builds the room-roles broadcast from the metadata
// and the live occupancy. No-op when the project has no occupants.
func (t *Topology) roomStateFromLocked(md api.ProjectMetadata) []outbound {
	room := t.rooms.get(md.ID)
	if room == nil {
		return nil
	}

	t.version++
	state := api.RoomState{
		ID:            md.ID,
		Owner:         md.Owner,
		Name:          md.Name,
		Roles:         make(map[api.RoleID]api.RoleState, len(md.Roles)),
		Collaborators: md.Collaborators,
		Version:       t.version,
	}
	for roleID, roleMd := range md.Roles {
		occupants := []api.OccupantState{}
		for _, clientID := range room.roles[roleID] {
			name := anonymousName
			if c, ok := t.clients[clientID]; ok && c.username != "" {
				name = c.username
			}
			occupants = append(occupants, api.OccupantState{ID: clientID, Name: name})
		}
		state.Roles[roleID] = api.RoleState{Name: roleMd.Name, Occupants: occupants}
	}

	payload := frame("room-roles", state)
	var outs []outbound
	for _, clientID := range t.rooms.allOccupants(md.ID) {
		if c, ok := t.clients[clientID]; ok {
			outs = append(outs, outbound{id: clientID, handle: c.handle, frame: payload})
		}
	}
	return outs
}

// deliver sends the frames outside the lock. Failures are logged and
// dropped; delivery is best-effort.
func (t *Topology) deliver(outs []outbound) {
	for _, out := range outs {
		if err := out.handle.Send(out.frame); err != nil {
			t.log.WithError(err).WithField("clientId", out.id).Warn("dropping frame for slow client")
		}
	}
}
