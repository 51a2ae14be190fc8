package groups

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netsblox/cloud/internal/api"
	"github.com/netsblox/cloud/internal/auth"
	"github.com/netsblox/cloud/internal/errs"
	"github.com/netsblox/cloud/internal/storage"
)

func newTestActions(members ...api.User) *Actions {
	return NewActions(storage.NewMemoryGroups(), storage.NewMemoryUsers(members...))
}

func TestCreateGroupOncePerOwnerAndName(t *testing.T) {
	ctx := context.Background()
	actions := newTestActions()

	group, err := actions.CreateGroup(ctx, auth.EditUser{Username: "teacher"}, "period 1")
	require.NoError(t, err)
	assert.Equal(t, "teacher", group.Owner)

	_, err = actions.CreateGroup(ctx, auth.EditUser{Username: "teacher"}, "period 1")
	assert.ErrorIs(t, err, errs.ErrGroupExists)

	// Same name under another owner is fine.
	_, err = actions.CreateGroup(ctx, auth.EditUser{Username: "other"}, "period 1")
	assert.NoError(t, err)

	groups, err := actions.ListGroups(ctx, auth.ViewUser{Username: "teacher"})
	require.NoError(t, err)
	assert.Len(t, groups, 1)
}

func TestRenameAndViewGroup(t *testing.T) {
	ctx := context.Background()
	actions := newTestActions()
	group, err := actions.CreateGroup(ctx, auth.EditUser{Username: "teacher"}, "period 1")
	require.NoError(t, err)

	renamed, err := actions.RenameGroup(ctx, auth.EditGroup{ID: group.ID}, "period 2")
	require.NoError(t, err)
	assert.Equal(t, "period 2", renamed.Name)

	viewed, err := actions.ViewGroup(ctx, auth.ViewGroup{ID: group.ID})
	require.NoError(t, err)
	assert.Equal(t, "period 2", viewed.Name)

	_, err = actions.ViewGroup(ctx, auth.ViewGroup{ID: "missing"})
	assert.ErrorIs(t, err, errs.ErrGroupNotFound)
}

func TestServiceHostsAndSettings(t *testing.T) {
	ctx := context.Background()
	actions := newTestActions()
	group, err := actions.CreateGroup(ctx, auth.EditUser{Username: "teacher"}, "period 1")
	require.NoError(t, err)

	hosts := []api.ServiceHost{{URL: "https://svc.example.com", Categories: []string{"robots"}}}
	updated, err := actions.SetGroupHosts(ctx, auth.EditGroup{ID: group.ID}, hosts)
	require.NoError(t, err)
	assert.Equal(t, hosts, updated.ServicesHosts)

	updated, err = actions.SetServiceSettings(ctx, auth.EditGroup{ID: group.ID}, "svc", `{"speed":5}`)
	require.NoError(t, err)
	assert.Equal(t, `{"speed":5}`, updated.ServiceSettings["svc"])

	settings, err := actions.GetServiceSettings(ctx, auth.ViewGroup{ID: group.ID})
	require.NoError(t, err)
	assert.Equal(t, `{"speed":5}`, settings["svc"])

	updated, err = actions.DeleteServiceSettings(ctx, auth.EditGroup{ID: group.ID}, "svc")
	require.NoError(t, err)
	_, ok := updated.ServiceSettings["svc"]
	assert.False(t, ok)
}

func TestDeleteGroupReturnsLastState(t *testing.T) {
	ctx := context.Background()
	actions := newTestActions()
	group, err := actions.CreateGroup(ctx, auth.EditUser{Username: "teacher"}, "period 1")
	require.NoError(t, err)

	deleted, err := actions.DeleteGroup(ctx, auth.DeleteGroup{ID: group.ID})
	require.NoError(t, err)
	assert.Equal(t, group.ID, deleted.ID)

	_, err = actions.DeleteGroup(ctx, auth.DeleteGroup{ID: group.ID})
	assert.ErrorIs(t, err, errs.ErrGroupNotFound)
}

func TestListMembers(t *testing.T) {
	ctx := context.Background()
	groupID := api.GroupID("g1")
	actions := newTestActions(
		api.User{Username: "student1", GroupID: &groupID},
		api.User{Username: "student2", GroupID: &groupID},
		api.User{Username: "outsider"},
	)

	members, err := actions.ListMembers(ctx, auth.ViewGroup{ID: groupID})
	require.NoError(t, err)
	assert.Len(t, members, 2)
}
