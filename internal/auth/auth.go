// Package auth defines the capability tokens carried into the action
// services. A capability is proof that the holder has already been
// authorized for one operation on one object; the policy decisions that
// mint them live entirely outside this module (in the HTTP surface).
//
// Handlers pass capabilities by value. An action never re-checks policy:
// holding the token is the authorization.
package auth

import "github.com/netsblox/cloud/internal/api"

// ViewProject permits reading a project's metadata and role content.
type ViewProject struct {
	Metadata api.ProjectMetadata
}

// EditProject permits mutating a project (rename, roles, collaborators,
// publish state). Ownership or collaborator membership grants it.
type EditProject struct {
	Metadata api.ProjectMetadata
}

// ViewUser permits reading a user's own resources (e.g. their invites).
type ViewUser struct {
	Username string
}

// EditUser permits acting as the user (e.g. responding to their invites,
// sending invites on their behalf).
type EditUser struct {
	Username string
}

// ViewGroup permits reading a group.
type ViewGroup struct {
	ID api.GroupID
}

// EditGroup permits mutating a group.
type EditGroup struct {
	ID api.GroupID
}

// DeleteGroup permits deleting a group.
type DeleteGroup struct {
	ID api.GroupID
}

// ViewAuthHosts permits listing authorized service hosts.
type ViewAuthHosts struct{}

// AuthorizeHost permits authorizing and deauthorizing service hosts.
type AuthorizeHost struct{}
