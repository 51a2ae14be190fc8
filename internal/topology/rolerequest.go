package topology

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/netsblox/cloud/internal/api"
)

// roleDataRequest is the frame asking an occupant to report its current
// role contents.
type roleDataRequest struct {
	ID        uuid.UUID     `json:"id"`
	ProjectID api.ProjectID `json:"projectId"`
	RoleID    api.RoleID    `json:"roleId"`
}

// RoleRequest is an in-flight request for the live contents of an
// occupied role. It targets the longest-present occupant of the cell, so
// repeated snapshots of a shared role stay consistent.
type RoleRequest struct {
	id       uuid.UUID
	topology *Topology
	handle   ClientHandle
	project  api.ProjectID
	role     api.RoleID
	ch       chan api.RoleData
}

// GetRoleRequest prepares a request against the cell's first occupant.
// Returns nil when the cell is unoccupied; callers then read the blob
// store instead.
func (t *Topology) GetRoleRequest(projectID api.ProjectID, roleID api.RoleID) *RoleRequest {
	t.mu.Lock()
	defer t.mu.Unlock()

	occupants := t.rooms.occupants(projectID, roleID)
	if len(occupants) == 0 {
		return nil
	}
	c, ok := t.clients[occupants[0]]
	if !ok {
		return nil
	}

	r := &RoleRequest{
		id:       uuid.New(),
		topology: t,
		handle:   c.handle,
		project:  projectID,
		role:     roleID,
		ch:       make(chan api.RoleData, 1),
	}
	t.pending[r.id] = r.ch
	return r
}

// Fetch sends the request and waits for the occupant's reply, up to the
// engine's role-request window. On timeout or context cancellation it
// returns an error and callers fall back to the stored role contents.
func (r *RoleRequest) Fetch(ctx context.Context) (*api.RoleData, error) {
	t := r.topology
	defer func() {
		t.mu.Lock()
		delete(t.pending, r.id)
		t.mu.Unlock()
	}()

	req := roleDataRequest{ID: r.id, ProjectID: r.project, RoleID: r.role}
	if err := r.handle.Send(frame("role-data-request", req)); err != nil {
		return nil, err
	}

	timer := time.NewTimer(t.roleRequestWindow)
	defer timer.Stop()
	select {
	case data := <-r.ch:
		return &data, nil
	case <-timer.C:
		return nil, ErrRoleRequestTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RoleDataResponse routes an occupant's reply to the request waiting on
// it. Replies for unknown or expired request ids are dropped.
func (t *Topology) RoleDataResponse(id uuid.UUID, data api.RoleData) {
	t.mu.Lock()
	ch, ok := t.pending[id]
	delete(t.pending, id)
	t.mu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- data:
	default:
	}
}
