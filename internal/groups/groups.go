// Package groups implements group (class) management: creation, renames,
// per-group service hosts and settings, and member listings.
package groups

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/netsblox/cloud/internal/api"
	"github.com/netsblox/cloud/internal/auth"
	"github.com/netsblox/cloud/internal/errs"
	"github.com/netsblox/cloud/internal/storage"
)

// Actions is the group management service.
type Actions struct {
	log    *logrus.Entry
	groups storage.Groups
	users  storage.Users
}

// NewActions builds the service.
func NewActions(groups storage.Groups, users storage.Users) *Actions {
	return &Actions{
		log:    logrus.WithField("component", "groups"),
		groups: groups,
		users:  users,
	}
}

// CreateGroup makes a group owned by the user. Names are unique per
// owner; a duplicate returns errs.ErrGroupExists.
func (a *Actions) CreateGroup(ctx context.Context, eu auth.EditUser, name string) (api.Group, error) {
	group := api.NewGroup(eu.Username, name)
	created, err := a.groups.CreateUnlessExists(ctx, group)
	if err != nil {
		return api.Group{}, err
	}
	if !created {
		return api.Group{}, errs.ErrGroupExists
	}
	a.log.WithFields(logrus.Fields{"groupId": group.ID, "owner": group.Owner}).Info("group created")
	return group, nil
}

// ListGroups lists the groups owned by the user.
func (a *Actions) ListGroups(ctx context.Context, vu auth.ViewUser) ([]api.Group, error) {
	return a.groups.ByOwner(ctx, vu.Username)
}

// ViewGroup returns one group.
func (a *Actions) ViewGroup(ctx context.Context, vg auth.ViewGroup) (api.Group, error) {
	group, err := a.groups.ByID(ctx, vg.ID)
	if err != nil {
		return api.Group{}, err
	}
	return *group, nil
}

// RenameGroup sets the group name.
func (a *Actions) RenameGroup(ctx context.Context, eg auth.EditGroup, name string) (api.Group, error) {
	group, err := a.groups.Rename(ctx, eg.ID, name)
	if err != nil {
		return api.Group{}, err
	}
	return *group, nil
}

// SetGroupHosts replaces the group's services hosts.
func (a *Actions) SetGroupHosts(ctx context.Context, eg auth.EditGroup, hosts []api.ServiceHost) (api.Group, error) {
	group, err := a.groups.SetHosts(ctx, eg.ID, hosts)
	if err != nil {
		return api.Group{}, err
	}
	return *group, nil
}

// GetServiceSettings returns the per-host settings map.
func (a *Actions) GetServiceSettings(ctx context.Context, vg auth.ViewGroup) (map[string]string, error) {
	group, err := a.groups.ByID(ctx, vg.ID)
	if err != nil {
		return nil, err
	}
	return group.ServiceSettings, nil
}

// SetServiceSettings sets the settings string for one host.
func (a *Actions) SetServiceSettings(ctx context.Context, eg auth.EditGroup, host, settings string) (api.Group, error) {
	group, err := a.groups.SetServiceSettings(ctx, eg.ID, host, settings)
	if err != nil {
		return api.Group{}, err
	}
	return *group, nil
}

// DeleteServiceSettings removes the settings for one host.
func (a *Actions) DeleteServiceSettings(ctx context.Context, eg auth.EditGroup, host string) (api.Group, error) {
	group, err := a.groups.DeleteServiceSettings(ctx, eg.ID, host)
	if err != nil {
		return api.Group{}, err
	}
	return *group, nil
}

// DeleteGroup removes the group and returns its last state.
func (a *Actions) DeleteGroup(ctx context.Context, dg auth.DeleteGroup) (api.Group, error) {
	group, err := a.groups.Delete(ctx, dg.ID)
	if err != nil {
		return api.Group{}, err
	}
	return *group, nil
}

// ListMembers lists the accounts belonging to the group.
func (a *Actions) ListMembers(ctx context.Context, vg auth.ViewGroup) ([]api.User, error) {
	return a.users.MembersOf(ctx, vg.ID)
}
