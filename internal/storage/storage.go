// Package storage defines the persistence contracts consumed by the
// topology engine and the action services, with MongoDB-backed
// implementations for production and in-memory implementations for tests.
//
// The contracts are deliberately narrow: each method corresponds to one
// atomic document operation (find_one_and_update and friends), so the
// callers never need multi-document transactions.
package storage

import (
	"context"
	"time"

	"github.com/netsblox/cloud/internal/api"
)

// Projects is the gateway to the project-metadata collection.
//
// Methods that mutate and return metadata return the post-update document
// (ReturnDocument: After), and return errs.ErrProjectNotFound when the
// filter matches nothing.
type Projects interface {
	// ByID returns the metadata for the given project.
	ByID(ctx context.Context, id api.ProjectID) (*api.ProjectMetadata, error)

	// ByOwnerAndName returns the project with the given owner and name.
	ByOwnerAndName(ctx context.Context, owner, name string) (*api.ProjectMetadata, error)

	// NamesByOwner lists the project names owned by owner.
	NamesByOwner(ctx context.Context, owner string) ([]string, error)

	// Insert stores a new project document.
	Insert(ctx context.Context, md api.ProjectMetadata) error

	// Rename sets the project name.
	Rename(ctx context.Context, id api.ProjectID, name string) (*api.ProjectMetadata, error)

	// SetState sets the publish state.
	SetState(ctx context.Context, id api.ProjectID, state api.PublishState) (*api.ProjectMetadata, error)

	// SetSaveState sets the save state unconditionally.
	SetSaveState(ctx context.Context, id api.ProjectID, state api.SaveState) (*api.ProjectMetadata, error)

	// MarkBroken transitions Transient -> Broken. Reports whether a
	// document matched; marking an absent or non-transient project is not
	// an error (broken-client detection is idempotent).
	MarkBroken(ctx context.Context, id api.ProjectID) (bool, error)

	// ScheduleDeletion sets deleteAt so the reaper removes the project.
	ScheduleDeletion(ctx context.Context, id api.ProjectID, at time.Time) error

	// CancelDeletion unsets deleteAt (project resurrected).
	CancelDeletion(ctx context.Context, id api.ProjectID) error

	// Delete removes the project document.
	Delete(ctx context.Context, id api.ProjectID) error

	// DeleteExpired removes every project whose deleteAt is at or before
	// now and returns how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)

	// AddCollaborator adds username to the collaborator set ($addToSet).
	AddCollaborator(ctx context.Context, id api.ProjectID, username string) (*api.ProjectMetadata, error)

	// RemoveCollaborator removes username from the collaborator set ($pull).
	RemoveCollaborator(ctx context.Context, id api.ProjectID, username string) (*api.ProjectMetadata, error)

	// UpsertRole creates or replaces a role entry.
	UpsertRole(ctx context.Context, id api.ProjectID, roleID api.RoleID, role api.RoleMetadata) (*api.ProjectMetadata, error)

	// RenameRole sets the role name.
	RenameRole(ctx context.Context, id api.ProjectID, roleID api.RoleID, name string) (*api.ProjectMetadata, error)

	// DeleteRole unsets the role entry ($unset).
	DeleteRole(ctx context.Context, id api.ProjectID, roleID api.RoleID) (*api.ProjectMetadata, error)
}

// Invites is the gateway to the collaboration-invite collection.
type Invites interface {
	// CreatePending upserts a Pending invite for the invite's
	// (sender, receiver, project) triple with $setOnInsert semantics.
	// Reports false when a pending invite already existed.
	CreatePending(ctx context.Context, invite api.CollaborationInvite) (bool, error)

	// ByID returns the invite, or errs.ErrInviteNotFound.
	ByID(ctx context.Context, id string) (*api.CollaborationInvite, error)

	// ListForReceiver lists pending invites addressed to the user.
	ListForReceiver(ctx context.Context, username string) ([]api.CollaborationInvite, error)

	// Delete removes the invite document.
	Delete(ctx context.Context, id string) error
}

// Groups is the gateway to the group collection.
type Groups interface {
	// CreateUnlessExists upserts by (owner, name) with $setOnInsert.
	// Reports false when the group already existed.
	CreateUnlessExists(ctx context.Context, group api.Group) (bool, error)

	// ByID returns the group, or errs.ErrGroupNotFound.
	ByID(ctx context.Context, id api.GroupID) (*api.Group, error)

	// ByOwner lists groups owned by the user.
	ByOwner(ctx context.Context, owner string) ([]api.Group, error)

	// Rename sets the group name.
	Rename(ctx context.Context, id api.GroupID, name string) (*api.Group, error)

	// SetHosts sets the services hosts list.
	SetHosts(ctx context.Context, id api.GroupID, hosts []api.ServiceHost) (*api.Group, error)

	// SetServiceSettings sets the settings string for one host.
	SetServiceSettings(ctx context.Context, id api.GroupID, host, settings string) (*api.Group, error)

	// DeleteServiceSettings unsets the settings for one host.
	DeleteServiceSettings(ctx context.Context, id api.GroupID, host string) (*api.Group, error)

	// Delete removes and returns the group (find_one_and_delete).
	Delete(ctx context.Context, id api.GroupID) (*api.Group, error)
}

// Users is the slice of the user collection the core reads.
type Users interface {
	// MembersOf lists the users belonging to the group.
	MembersOf(ctx context.Context, id api.GroupID) ([]api.User, error)
}

// Hosts is the gateway to the authorized-service-host collection.
type Hosts interface {
	// List returns every authorized host.
	List(ctx context.Context) ([]api.AuthorizedServiceHost, error)

	// Authorize upserts by host id with $setOnInsert. Reports false when
	// the host was already authorized.
	Authorize(ctx context.Context, host api.AuthorizedServiceHost) (bool, error)

	// Unauthorize removes and returns the host, or
	// errs.ErrServiceHostNotFound.
	Unauthorize(ctx context.Context, id string) (*api.AuthorizedServiceHost, error)
}

// Blobs is the content-addressed blob store holding role code and media.
type Blobs interface {
	Get(ctx context.Context, key api.S3Key) ([]byte, error)
	Put(ctx context.Context, key api.S3Key, data []byte) error
}
