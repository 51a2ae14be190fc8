// Package projects implements the project lifecycle: creation, renames,
// role and collaborator mutations, publishing, and content fetches that
// prefer the live in-browser state over the stored blobs.
//
// Every operation takes a capability token minted by the HTTP surface;
// holding the token is the authorization, so no method re-checks policy.
package projects

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/netsblox/cloud/internal/api"
	"github.com/netsblox/cloud/internal/auth"
	"github.com/netsblox/cloud/internal/errs"
	"github.com/netsblox/cloud/internal/libraries"
	"github.com/netsblox/cloud/internal/storage"
)

// defaultRoleName names the single role of a project created without any.
const defaultRoleName = "myRole"

// RoleFetcher retrieves the live contents of an occupied role.
type RoleFetcher interface {
	Fetch(ctx context.Context) (*api.RoleData, error)
}

// Network is the slice of the topology engine the lifecycle service
// drives: room-state broadcasts on metadata changes and live role
// content requests.
type Network interface {
	// SendRoomState broadcasts the room view built from md to its
	// occupants.
	SendRoomState(md api.ProjectMetadata)

	// RoleFetcher returns a fetcher for the role's first occupant, or nil
	// when the role is unoccupied.
	RoleFetcher(projectID api.ProjectID, roleID api.RoleID) RoleFetcher

	// RoleDataResponse routes an occupant's role-content reply to the
	// fetch waiting on requestID.
	RoleDataResponse(requestID uuid.UUID, data api.RoleData)
}

// Actions is the project lifecycle service.
type Actions struct {
	log     *logrus.Entry
	store   storage.Projects
	blobs   storage.Blobs
	cache   *MetadataCache
	network Network
}

// NewActions builds the service over the given store, blob store, cache
// and topology gateway.
func NewActions(store storage.Projects, blobs storage.Blobs, cache *MetadataCache, network Network) *Actions {
	return &Actions{
		log:     logrus.WithField("component", "projects"),
		store:   store,
		blobs:   blobs,
		cache:   cache,
		network: network,
	}
}

// CreateProject persists a new project. The name is made unique among
// the owner's projects; a project created without roles gets one empty
// default role.
func (a *Actions) CreateProject(ctx context.Context, data api.CreateProjectData) (api.ProjectMetadata, error) {
	owner := data.Owner
	if owner == "" && data.ClientID != nil {
		owner = string(*data.ClientID)
	}

	name, err := a.uniqueProjectName(ctx, owner, data.Name)
	if err != nil {
		return api.ProjectMetadata{}, err
	}

	roleData := data.Roles
	if len(roleData) == 0 {
		roleData = []api.RoleData{{Name: defaultRoleName}}
	}
	roles := make([]api.RoleMetadata, 0, len(roleData))
	for _, role := range roleData {
		roleMd, err := a.uploadRole(ctx, role)
		if err != nil {
			return api.ProjectMetadata{}, err
		}
		roles = append(roles, roleMd)
	}

	saveState := api.SaveStateCreated
	if data.SaveState != nil {
		saveState = *data.SaveState
	}

	md := api.NewProjectMetadata(owner, name, roles, saveState)
	if err := a.store.Insert(ctx, md); err != nil {
		return api.ProjectMetadata{}, err
	}
	a.cache.Put(md)
	a.log.WithFields(logrus.Fields{"projectId": md.ID, "owner": owner, "name": name}).Info("project created")
	return md, nil
}

// Metadata returns the viewed project's metadata.
func (a *Actions) Metadata(vp auth.ViewProject) api.ProjectMetadata {
	return vp.Metadata
}

// CachedMetadata reads metadata through the LRU, falling back to the
// store. Readers tolerate staleness; the store stays authoritative.
func (a *Actions) CachedMetadata(ctx context.Context, id api.ProjectID) (api.ProjectMetadata, error) {
	if md, ok := a.cache.Get(id); ok {
		return md, nil
	}
	md, err := a.store.ByID(ctx, id)
	if err != nil {
		return api.ProjectMetadata{}, err
	}
	a.cache.Put(*md)
	return *md, nil
}

// RenameProject renames the project, re-running the uniqueness algorithm
// against the owner's other projects, and broadcasts the new room view.
func (a *Actions) RenameProject(ctx context.Context, ep auth.EditProject, newName string) (api.ProjectMetadata, error) {
	name, err := a.uniqueProjectName(ctx, ep.Metadata.Owner, newName)
	if err != nil {
		return api.ProjectMetadata{}, err
	}
	md, err := a.store.Rename(ctx, ep.Metadata.ID, name)
	if err != nil {
		return api.ProjectMetadata{}, err
	}
	a.onChanged(*md)
	return *md, nil
}

// DeleteProject removes the project document. Role blobs are content
// addressed and may be shared, so they are left for offline garbage
// collection.
func (a *Actions) DeleteProject(ctx context.Context, ep auth.EditProject) error {
	if err := a.store.Delete(ctx, ep.Metadata.ID); err != nil {
		return err
	}
	a.cache.Remove(ep.Metadata.ID)
	return nil
}

// GetProject joins the metadata with the stored role contents, fetching
// all blobs in parallel.
func (a *Actions) GetProject(ctx context.Context, vp auth.ViewProject) (api.Project, error) {
	return a.hydrate(ctx, vp.Metadata, func(ctx context.Context, _ api.RoleID, roleMd api.RoleMetadata) (api.RoleData, error) {
		return a.fetchRole(ctx, roleMd)
	})
}

// GetLatestProject is GetProject but with each occupied role fetched
// live from its first occupant, falling back to the stored blobs.
func (a *Actions) GetLatestProject(ctx context.Context, vp auth.ViewProject) (api.Project, error) {
	return a.hydrate(ctx, vp.Metadata, func(ctx context.Context, roleID api.RoleID, roleMd api.RoleMetadata) (api.RoleData, error) {
		return a.latestRole(ctx, vp.Metadata.ID, roleID, roleMd)
	})
}

// GetRole returns the stored contents of one role.
func (a *Actions) GetRole(ctx context.Context, vp auth.ViewProject, roleID api.RoleID) (api.RoleData, error) {
	roleMd, ok := vp.Metadata.Roles[roleID]
	if !ok {
		return api.RoleData{}, errs.ErrRoleNotFound
	}
	return a.fetchRole(ctx, roleMd)
}

// GetLatestRole returns the live contents of one role when occupied,
// else the stored contents.
func (a *Actions) GetLatestRole(ctx context.Context, vp auth.ViewProject, roleID api.RoleID) (api.RoleData, error) {
	roleMd, ok := vp.Metadata.Roles[roleID]
	if !ok {
		return api.RoleData{}, errs.ErrRoleNotFound
	}
	return a.latestRole(ctx, vp.Metadata.ID, roleID, roleMd)
}

// ReportRoleData routes an occupant's reply to the in-flight role
// request that asked for it.
func (a *Actions) ReportRoleData(ep auth.EditProject, roleID api.RoleID, requestID uuid.UUID, data api.RoleData) error {
	if _, ok := ep.Metadata.Roles[roleID]; !ok {
		return errs.ErrRoleNotFound
	}
	a.network.RoleDataResponse(requestID, data)
	return nil
}

// GetThumbnail renders the thumbnail of the most recently updated role,
// optionally padded to the requested aspect ratio.
func (a *Actions) GetThumbnail(ctx context.Context, vp auth.ViewProject, aspectRatio *float64) ([]byte, error) {
	var latest *api.RoleMetadata
	for _, roleMd := range vp.Metadata.Roles {
		roleMd := roleMd
		if latest == nil || roleMd.Updated.After(latest.Updated) {
			latest = &roleMd
		}
	}
	if latest == nil {
		return nil, errs.ErrThumbnailNotFound
	}
	role, err := a.fetchRole(ctx, *latest)
	if err != nil {
		return nil, err
	}
	return renderThumbnail(role.Code, aspectRatio)
}

// Publish makes the project publicly listed, or queues it for moderation
// when any role uses blocks that require approval. Idempotent.
func (a *Actions) Publish(ctx context.Context, ep auth.EditProject) (api.PublishState, error) {
	state := api.PublishStatePublic
	required, err := a.approvalRequired(ctx, ep.Metadata)
	if err != nil {
		return "", err
	}
	if required {
		state = api.PublishStatePendingApproval
	}
	md, err := a.store.SetState(ctx, ep.Metadata.ID, state)
	if err != nil {
		return "", err
	}
	a.cache.Put(*md)
	return state, nil
}

// Unpublish makes the project private. Idempotent.
func (a *Actions) Unpublish(ctx context.Context, ep auth.EditProject) (api.PublishState, error) {
	md, err := a.store.SetState(ctx, ep.Metadata.ID, api.PublishStatePrivate)
	if err != nil {
		return "", err
	}
	a.cache.Put(*md)
	return api.PublishStatePrivate, nil
}

// AddRole appends a role with the given contents and broadcasts the new
// room view.
func (a *Actions) AddRole(ctx context.Context, ep auth.EditProject, data api.RoleData) (api.ProjectMetadata, error) {
	if err := validateName(data.Name); err != nil {
		return api.ProjectMetadata{}, err
	}
	roleMd, err := a.uploadRole(ctx, data)
	if err != nil {
		return api.ProjectMetadata{}, err
	}
	md, err := a.store.UpsertRole(ctx, ep.Metadata.ID, api.RoleID(uuid.NewString()), roleMd)
	if err != nil {
		return api.ProjectMetadata{}, err
	}
	a.onChanged(*md)
	return *md, nil
}

// SaveRole replaces the contents of an existing role. Saving also moves
// a freshly created project into the transient state, making it eligible
// for garbage collection once fully evacuated.
func (a *Actions) SaveRole(ctx context.Context, ep auth.EditProject, roleID api.RoleID, data api.RoleData) (api.ProjectMetadata, error) {
	if _, ok := ep.Metadata.Roles[roleID]; !ok {
		return api.ProjectMetadata{}, errs.ErrRoleNotFound
	}
	roleMd, err := a.uploadRole(ctx, data)
	if err != nil {
		return api.ProjectMetadata{}, err
	}
	md, err := a.store.UpsertRole(ctx, ep.Metadata.ID, roleID, roleMd)
	if err != nil {
		return api.ProjectMetadata{}, err
	}
	if md.SaveState == api.SaveStateCreated {
		md, err = a.store.SetSaveState(ctx, md.ID, api.SaveStateTransient)
		if err != nil {
			return api.ProjectMetadata{}, err
		}
	}
	a.onChanged(*md)
	return *md, nil
}

// MarkSaved records an explicit user save: the project becomes durable
// and any pending delayed deletion is cancelled.
func (a *Actions) MarkSaved(ctx context.Context, ep auth.EditProject) (api.ProjectMetadata, error) {
	md, err := a.store.SetSaveState(ctx, ep.Metadata.ID, api.SaveStateSaved)
	if err != nil {
		return api.ProjectMetadata{}, err
	}
	if err := a.store.CancelDeletion(ctx, md.ID); err != nil {
		return api.ProjectMetadata{}, err
	}
	md.DeleteAt = nil
	a.cache.Put(*md)
	return *md, nil
}

// RenameRole renames an existing role and broadcasts the new room view.
func (a *Actions) RenameRole(ctx context.Context, ep auth.EditProject, roleID api.RoleID, name string) (api.ProjectMetadata, error) {
	if err := validateName(name); err != nil {
		return api.ProjectMetadata{}, err
	}
	if _, ok := ep.Metadata.Roles[roleID]; !ok {
		return api.ProjectMetadata{}, errs.ErrRoleNotFound
	}
	md, err := a.store.RenameRole(ctx, ep.Metadata.ID, roleID, name)
	if err != nil {
		return api.ProjectMetadata{}, err
	}
	a.onChanged(*md)
	return *md, nil
}

// DeleteRole removes a role; a project always keeps at least one.
func (a *Actions) DeleteRole(ctx context.Context, ep auth.EditProject, roleID api.RoleID) (api.ProjectMetadata, error) {
	if len(ep.Metadata.Roles) == 1 {
		return api.ProjectMetadata{}, errs.ErrCannotDeleteLastRole
	}
	if _, ok := ep.Metadata.Roles[roleID]; !ok {
		return api.ProjectMetadata{}, errs.ErrRoleNotFound
	}
	md, err := a.store.DeleteRole(ctx, ep.Metadata.ID, roleID)
	if err != nil {
		return api.ProjectMetadata{}, err
	}
	a.onChanged(*md)
	return *md, nil
}

// Collaborators lists the project's collaborators.
func (a *Actions) Collaborators(vp auth.ViewProject) []string {
	return vp.Metadata.Collaborators
}

// AddCollaborator adds the user to the collaborator set and broadcasts
// the new room view.
func (a *Actions) AddCollaborator(ctx context.Context, ep auth.EditProject, username string) (api.ProjectMetadata, error) {
	md, err := a.store.AddCollaborator(ctx, ep.Metadata.ID, username)
	if err != nil {
		return api.ProjectMetadata{}, err
	}
	a.onChanged(*md)
	return *md, nil
}

// RemoveCollaborator removes the user from the collaborator set and
// broadcasts the new room view.
func (a *Actions) RemoveCollaborator(ctx context.Context, ep auth.EditProject, username string) (api.ProjectMetadata, error) {
	md, err := a.store.RemoveCollaborator(ctx, ep.Metadata.ID, username)
	if err != nil {
		return api.ProjectMetadata{}, err
	}
	a.onChanged(*md)
	return *md, nil
}

// onChanged records updated metadata in the cache and tells the topology
// engine so occupants see the change.
func (a *Actions) onChanged(md api.ProjectMetadata) {
	a.cache.Put(md)
	a.network.SendRoomState(md)
}

// uniqueProjectName validates basename and makes it unique among the
// owner's project names.
func (a *Actions) uniqueProjectName(ctx context.Context, owner, basename string) (string, error) {
	if err := validateName(basename); err != nil {
		return "", err
	}
	taken, err := a.store.NamesByOwner(ctx, owner)
	if err != nil {
		return "", err
	}
	return uniqueName(taken, basename), nil
}

// uploadRole stores the role contents in the blob store under content
// hashes and returns the resulting role metadata.
func (a *Actions) uploadRole(ctx context.Context, data api.RoleData) (api.RoleMetadata, error) {
	codeKey := blobKey(data.Code)
	mediaKey := blobKey(data.Media)
	if err := a.blobs.Put(ctx, codeKey, []byte(data.Code)); err != nil {
		return api.RoleMetadata{}, err
	}
	if err := a.blobs.Put(ctx, mediaKey, []byte(data.Media)); err != nil {
		return api.RoleMetadata{}, err
	}
	return api.RoleMetadata{
		Name:    data.Name,
		Code:    codeKey,
		Media:   mediaKey,
		Updated: time.Now().UTC(),
	}, nil
}

// fetchRole joins role metadata with its code and media blobs, fetched
// in parallel.
func (a *Actions) fetchRole(ctx context.Context, roleMd api.RoleMetadata) (api.RoleData, error) {
	var code, media []byte
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		code, err = a.blobs.Get(ctx, roleMd.Code)
		return err
	})
	g.Go(func() error {
		var err error
		media, err = a.blobs.Get(ctx, roleMd.Media)
		return err
	})
	if err := g.Wait(); err != nil {
		return api.RoleData{}, err
	}
	return api.RoleData{Name: roleMd.Name, Code: string(code), Media: string(media)}, nil
}

// latestRole prefers the live role contents reported by an occupant and
// falls back to the stored blobs when the role is unoccupied or the
// occupant does not reply in time.
func (a *Actions) latestRole(ctx context.Context, projectID api.ProjectID, roleID api.RoleID, roleMd api.RoleMetadata) (api.RoleData, error) {
	if fetcher := a.network.RoleFetcher(projectID, roleID); fetcher != nil {
		if data, err := fetcher.Fetch(ctx); err == nil {
			return *data, nil
		} else {
			a.log.WithError(err).WithFields(logrus.Fields{"projectId": projectID, "roleId": roleID}).
				Debug("live role fetch failed; using stored contents")
		}
	}
	return a.fetchRole(ctx, roleMd)
}

// hydrate joins the metadata with per-role contents produced by fetch,
// fanning out across the roles.
func (a *Actions) hydrate(ctx context.Context, md api.ProjectMetadata, fetch func(context.Context, api.RoleID, api.RoleMetadata) (api.RoleData, error)) (api.Project, error) {
	type fetched struct {
		id   api.RoleID
		data api.RoleData
	}
	results := make(chan fetched, len(md.Roles))
	g, ctx := errgroup.WithContext(ctx)
	for roleID, roleMd := range md.Roles {
		roleID, roleMd := roleID, roleMd
		g.Go(func() error {
			data, err := fetch(ctx, roleID, roleMd)
			if err != nil {
				return err
			}
			results <- fetched{id: roleID, data: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return api.Project{}, err
	}
	close(results)

	roles := make(map[api.RoleID]api.RoleData, len(md.Roles))
	for r := range results {
		roles[r.id] = r.data
	}
	return api.Project{
		ID:            md.ID,
		Owner:         md.Owner,
		Name:          md.Name,
		Updated:       md.Updated,
		OriginTime:    md.OriginTime,
		State:         md.State,
		SaveState:     md.SaveState,
		Collaborators: md.Collaborators,
		Roles:         roles,
	}, nil
}

// approvalRequired reports whether any role's code uses blocks gated
// behind moderation.
func (a *Actions) approvalRequired(ctx context.Context, md api.ProjectMetadata) (bool, error) {
	for _, roleMd := range md.Roles {
		role, err := a.fetchRole(ctx, roleMd)
		if err != nil {
			return false, err
		}
		if libraries.IsApprovalRequired(role.Code) {
			return true, nil
		}
	}
	return false, nil
}

// blobKey derives the content-addressed key for a blob.
func blobKey(content string) api.S3Key {
	sum := sha256.Sum256([]byte(content))
	return api.S3Key(fmt.Sprintf("blobs/%s", hex.EncodeToString(sum[:])))
}
