package storage

import (
	"context"
	"sync"
	"time"

	"github.com/netsblox/cloud/internal/api"
	"github.com/netsblox/cloud/internal/errs"
)

// MemoryProjects is an in-memory Projects implementation with the same
// observable semantics as the Mongo-backed one. Used by tests and by
// single-process deployments without a database.
type MemoryProjects struct {
	mu       sync.Mutex
	projects map[api.ProjectID]api.ProjectMetadata
}

// NewMemoryProjects returns an empty in-memory project store.
func NewMemoryProjects() *MemoryProjects {
	return &MemoryProjects{projects: make(map[api.ProjectID]api.ProjectMetadata)}
}

var _ Projects = (*MemoryProjects)(nil)

func cloneMetadata(md api.ProjectMetadata) api.ProjectMetadata {
	out := md
	out.Collaborators = append([]string(nil), md.Collaborators...)
	out.NetworkTraces = append([]api.NetworkTraceMetadata(nil), md.NetworkTraces...)
	out.Roles = make(map[api.RoleID]api.RoleMetadata, len(md.Roles))
	for id, role := range md.Roles {
		out.Roles[id] = role
	}
	if md.DeleteAt != nil {
		at := *md.DeleteAt
		out.DeleteAt = &at
	}
	return out
}

func (s *MemoryProjects) ByID(_ context.Context, id api.ProjectID) (*api.ProjectMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	md, ok := s.projects[id]
	if !ok {
		return nil, errs.ErrProjectNotFound
	}
	out := cloneMetadata(md)
	return &out, nil
}

func (s *MemoryProjects) ByOwnerAndName(_ context.Context, owner, name string) (*api.ProjectMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, md := range s.projects {
		if md.Owner == owner && md.Name == name {
			out := cloneMetadata(md)
			return &out, nil
		}
	}
	return nil, errs.ErrProjectNotFound
}

func (s *MemoryProjects) NamesByOwner(_ context.Context, owner string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for _, md := range s.projects {
		if md.Owner == owner {
			names = append(names, md.Name)
		}
	}
	return names, nil
}

func (s *MemoryProjects) Insert(_ context.Context, md api.ProjectMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[md.ID] = cloneMetadata(md)
	return nil
}

// update applies fn to the stored document and returns the updated copy.
func (s *MemoryProjects) update(id api.ProjectID, fn func(*api.ProjectMetadata)) (*api.ProjectMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	md, ok := s.projects[id]
	if !ok {
		return nil, errs.ErrProjectNotFound
	}
	fn(&md)
	md.Updated = time.Now().UTC()
	s.projects[id] = md
	out := cloneMetadata(md)
	return &out, nil
}

func (s *MemoryProjects) Rename(_ context.Context, id api.ProjectID, name string) (*api.ProjectMetadata, error) {
	return s.update(id, func(md *api.ProjectMetadata) { md.Name = name })
}

func (s *MemoryProjects) SetState(_ context.Context, id api.ProjectID, state api.PublishState) (*api.ProjectMetadata, error) {
	return s.update(id, func(md *api.ProjectMetadata) { md.State = state })
}

func (s *MemoryProjects) SetSaveState(_ context.Context, id api.ProjectID, state api.SaveState) (*api.ProjectMetadata, error) {
	return s.update(id, func(md *api.ProjectMetadata) { md.SaveState = state })
}

func (s *MemoryProjects) MarkBroken(_ context.Context, id api.ProjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	md, ok := s.projects[id]
	if !ok || md.SaveState != api.SaveStateTransient {
		return false, nil
	}
	md.SaveState = api.SaveStateBroken
	s.projects[id] = md
	return true, nil
}

func (s *MemoryProjects) ScheduleDeletion(_ context.Context, id api.ProjectID, at time.Time) error {
	_, err := s.update(id, func(md *api.ProjectMetadata) { md.DeleteAt = &at })
	return err
}

func (s *MemoryProjects) CancelDeletion(_ context.Context, id api.ProjectID) error {
	_, err := s.update(id, func(md *api.ProjectMetadata) { md.DeleteAt = nil })
	if err == errs.ErrProjectNotFound {
		return nil
	}
	return err
}

func (s *MemoryProjects) Delete(_ context.Context, id api.ProjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.projects, id)
	return nil
}

func (s *MemoryProjects) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for id, md := range s.projects {
		if md.DeleteAt != nil && !md.DeleteAt.After(now) {
			delete(s.projects, id)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryProjects) AddCollaborator(_ context.Context, id api.ProjectID, username string) (*api.ProjectMetadata, error) {
	return s.update(id, func(md *api.ProjectMetadata) {
		for _, existing := range md.Collaborators {
			if existing == username {
				return
			}
		}
		md.Collaborators = append(md.Collaborators, username)
	})
}

func (s *MemoryProjects) RemoveCollaborator(_ context.Context, id api.ProjectID, username string) (*api.ProjectMetadata, error) {
	return s.update(id, func(md *api.ProjectMetadata) {
		kept := md.Collaborators[:0]
		for _, existing := range md.Collaborators {
			if existing != username {
				kept = append(kept, existing)
			}
		}
		md.Collaborators = kept
	})
}

func (s *MemoryProjects) UpsertRole(_ context.Context, id api.ProjectID, roleID api.RoleID, role api.RoleMetadata) (*api.ProjectMetadata, error) {
	return s.update(id, func(md *api.ProjectMetadata) {
		if md.Roles == nil {
			md.Roles = make(map[api.RoleID]api.RoleMetadata)
		}
		md.Roles[roleID] = role
	})
}

func (s *MemoryProjects) RenameRole(_ context.Context, id api.ProjectID, roleID api.RoleID, name string) (*api.ProjectMetadata, error) {
	return s.update(id, func(md *api.ProjectMetadata) {
		if role, ok := md.Roles[roleID]; ok {
			role.Name = name
			md.Roles[roleID] = role
		}
	})
}

func (s *MemoryProjects) DeleteRole(_ context.Context, id api.ProjectID, roleID api.RoleID) (*api.ProjectMetadata, error) {
	return s.update(id, func(md *api.ProjectMetadata) { delete(md.Roles, roleID) })
}

// MemoryInvites is an in-memory Invites implementation.
type MemoryInvites struct {
	mu      sync.Mutex
	invites map[string]api.CollaborationInvite
}

// NewMemoryInvites returns an empty in-memory invite store.
func NewMemoryInvites() *MemoryInvites {
	return &MemoryInvites{invites: make(map[string]api.CollaborationInvite)}
}

var _ Invites = (*MemoryInvites)(nil)

func (s *MemoryInvites) CreatePending(_ context.Context, invite api.CollaborationInvite) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.invites {
		if existing.Sender == invite.Sender &&
			existing.Receiver == invite.Receiver &&
			existing.ProjectID == invite.ProjectID {
			return false, nil
		}
	}
	s.invites[invite.ID] = invite
	return true, nil
}

func (s *MemoryInvites) ByID(_ context.Context, id string) (*api.CollaborationInvite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	invite, ok := s.invites[id]
	if !ok {
		return nil, errs.ErrInviteNotFound
	}
	return &invite, nil
}

func (s *MemoryInvites) ListForReceiver(_ context.Context, username string) ([]api.CollaborationInvite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var invites []api.CollaborationInvite
	for _, invite := range s.invites {
		if invite.Receiver == username {
			invites = append(invites, invite)
		}
	}
	return invites, nil
}

func (s *MemoryInvites) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.invites, id)
	return nil
}

// MemoryGroups is an in-memory Groups implementation.
type MemoryGroups struct {
	mu     sync.Mutex
	groups map[api.GroupID]api.Group
}

// NewMemoryGroups returns an empty in-memory group store.
func NewMemoryGroups() *MemoryGroups {
	return &MemoryGroups{groups: make(map[api.GroupID]api.Group)}
}

var _ Groups = (*MemoryGroups)(nil)

func cloneGroup(group api.Group) api.Group {
	out := group
	out.ServicesHosts = append([]api.ServiceHost(nil), group.ServicesHosts...)
	out.ServiceSettings = make(map[string]string, len(group.ServiceSettings))
	for host, settings := range group.ServiceSettings {
		out.ServiceSettings[host] = settings
	}
	return out
}

func (s *MemoryGroups) CreateUnlessExists(_ context.Context, group api.Group) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.groups {
		if existing.Owner == group.Owner && existing.Name == group.Name {
			return false, nil
		}
	}
	s.groups[group.ID] = cloneGroup(group)
	return true, nil
}

func (s *MemoryGroups) ByID(_ context.Context, id api.GroupID) (*api.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	group, ok := s.groups[id]
	if !ok {
		return nil, errs.ErrGroupNotFound
	}
	out := cloneGroup(group)
	return &out, nil
}

func (s *MemoryGroups) ByOwner(_ context.Context, owner string) ([]api.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var groups []api.Group
	for _, group := range s.groups {
		if group.Owner == owner {
			groups = append(groups, cloneGroup(group))
		}
	}
	return groups, nil
}

func (s *MemoryGroups) update(id api.GroupID, fn func(*api.Group)) (*api.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	group, ok := s.groups[id]
	if !ok {
		return nil, errs.ErrGroupNotFound
	}
	group = cloneGroup(group)
	fn(&group)
	s.groups[id] = cloneGroup(group)
	return &group, nil
}

func (s *MemoryGroups) Rename(_ context.Context, id api.GroupID, name string) (*api.Group, error) {
	return s.update(id, func(group *api.Group) { group.Name = name })
}

func (s *MemoryGroups) SetHosts(_ context.Context, id api.GroupID, hosts []api.ServiceHost) (*api.Group, error) {
	return s.update(id, func(group *api.Group) { group.ServicesHosts = hosts })
}

func (s *MemoryGroups) SetServiceSettings(_ context.Context, id api.GroupID, host, settings string) (*api.Group, error) {
	return s.update(id, func(group *api.Group) {
		if group.ServiceSettings == nil {
			group.ServiceSettings = map[string]string{}
		}
		group.ServiceSettings[host] = settings
	})
}

func (s *MemoryGroups) DeleteServiceSettings(_ context.Context, id api.GroupID, host string) (*api.Group, error) {
	return s.update(id, func(group *api.Group) { delete(group.ServiceSettings, host) })
}

func (s *MemoryGroups) Delete(_ context.Context, id api.GroupID) (*api.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	group, ok := s.groups[id]
	if !ok {
		return nil, errs.ErrGroupNotFound
	}
	delete(s.groups, id)
	out := cloneGroup(group)
	return &out, nil
}

// MemoryUsers is an in-memory Users implementation.
type MemoryUsers struct {
	mu    sync.Mutex
	users []api.User
}

// NewMemoryUsers returns a user store seeded with the given users.
func NewMemoryUsers(users ...api.User) *MemoryUsers {
	return &MemoryUsers{users: users}
}

var _ Users = (*MemoryUsers)(nil)

func (s *MemoryUsers) MembersOf(_ context.Context, id api.GroupID) ([]api.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var members []api.User
	for _, user := range s.users {
		if user.GroupID != nil && *user.GroupID == id {
			members = append(members, user)
		}
	}
	return members, nil
}

// MemoryHosts is an in-memory Hosts implementation.
type MemoryHosts struct {
	mu    sync.Mutex
	hosts map[string]api.AuthorizedServiceHost
}

// NewMemoryHosts returns an empty in-memory host store.
func NewMemoryHosts() *MemoryHosts {
	return &MemoryHosts{hosts: make(map[string]api.AuthorizedServiceHost)}
}

var _ Hosts = (*MemoryHosts)(nil)

func (s *MemoryHosts) List(_ context.Context) ([]api.AuthorizedServiceHost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hosts := make([]api.AuthorizedServiceHost, 0, len(s.hosts))
	for _, host := range s.hosts {
		hosts = append(hosts, host)
	}
	return hosts, nil
}

func (s *MemoryHosts) Authorize(_ context.Context, host api.AuthorizedServiceHost) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hosts[host.ID]; ok {
		return false, nil
	}
	s.hosts[host.ID] = host
	return true, nil
}

func (s *MemoryHosts) Unauthorize(_ context.Context, id string) (*api.AuthorizedServiceHost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	host, ok := s.hosts[id]
	if !ok {
		return nil, errs.ErrServiceHostNotFound
	}
	delete(s.hosts, id)
	return &host, nil
}

// MemoryBlobs is an in-memory Blobs implementation.
type MemoryBlobs struct {
	mu    sync.Mutex
	blobs map[api.S3Key][]byte
}

// NewMemoryBlobs returns an empty in-memory blob store.
func NewMemoryBlobs() *MemoryBlobs {
	return &MemoryBlobs{blobs: make(map[api.S3Key][]byte)}
}

var _ Blobs = (*MemoryBlobs)(nil)

func (s *MemoryBlobs) Get(_ context.Context, key api.S3Key) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, errs.Blob(errBlobMissing(key))
	}
	return append([]byte(nil), data...), nil
}

func (s *MemoryBlobs) Put(_ context.Context, key api.S3Key, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = append([]byte(nil), data...)
	return nil
}

type errBlobMissing api.S3Key

func (e errBlobMissing) Error() string { return "no blob stored under " + string(e) }
