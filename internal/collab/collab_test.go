package collab

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netsblox/cloud/internal/api"
	"github.com/netsblox/cloud/internal/auth"
	"github.com/netsblox/cloud/internal/errs"
	"github.com/netsblox/cloud/internal/projects"
	"github.com/netsblox/cloud/internal/storage"
)

type stubNetwork struct {
	invites    map[string][]api.CollaborationInvite
	broadcasts []api.ProjectMetadata
}

func newStubNetwork() *stubNetwork {
	return &stubNetwork{invites: make(map[string][]api.CollaborationInvite)}
}

func (n *stubNetwork) SendInviteTo(username string, invite api.CollaborationInvite) {
	n.invites[username] = append(n.invites[username], invite)
}

func (n *stubNetwork) SendRoomState(md api.ProjectMetadata) {
	n.broadcasts = append(n.broadcasts, md)
}

func newTestActions(t *testing.T) (*Actions, *storage.MemoryProjects, *stubNetwork, api.ProjectMetadata) {
	t.Helper()
	projectStore := storage.NewMemoryProjects()
	network := newStubNetwork()
	actions := NewActions(
		storage.NewMemoryInvites(),
		projectStore,
		projects.NewMetadataCache(projects.DefaultCacheCapacity),
		network,
	)
	md := api.NewProjectMetadata("alice", "shared", []api.RoleMetadata{{Name: "myRole"}}, api.SaveStateSaved)
	require.NoError(t, projectStore.Insert(context.Background(), md))
	return actions, projectStore, network, md
}

func TestSendInviteNotifiesRecipient(t *testing.T) {
	ctx := context.Background()
	actions, _, network, md := newTestActions(t)

	invite, err := actions.SendInvite(ctx, auth.EditUser{Username: "alice"}, md.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, "alice", invite.Sender)
	assert.Equal(t, api.InvitationPending, invite.State)
	require.Len(t, network.invites["bob"], 1)

	listed, err := actions.ListInvites(ctx, auth.ViewUser{Username: "bob"})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, invite.ID, listed[0].ID)
}

func TestSendInviteDuplicatePending(t *testing.T) {
	ctx := context.Background()
	actions, _, _, md := newTestActions(t)

	_, err := actions.SendInvite(ctx, auth.EditUser{Username: "alice"}, md.ID, "bob")
	require.NoError(t, err)
	_, err = actions.SendInvite(ctx, auth.EditUser{Username: "alice"}, md.ID, "bob")
	assert.ErrorIs(t, err, errs.ErrInviteExists)

	// A different recipient or project is a distinct triple.
	_, err = actions.SendInvite(ctx, auth.EditUser{Username: "alice"}, md.ID, "carol")
	assert.NoError(t, err)
}

func TestAcceptAddsCollaboratorAndBroadcasts(t *testing.T) {
	ctx := context.Background()
	actions, projectStore, network, md := newTestActions(t)

	invite, err := actions.SendInvite(ctx, auth.EditUser{Username: "alice"}, md.ID, "bob")
	require.NoError(t, err)

	state, err := actions.Respond(ctx, auth.EditUser{Username: "bob"}, invite.ID, api.InvitationAccepted)
	require.NoError(t, err)
	assert.Equal(t, api.InvitationAccepted, state)

	got, err := projectStore.ByID(ctx, md.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, got.Collaborators)
	require.Len(t, network.broadcasts, 1)
	assert.Equal(t, []string{"bob"}, network.broadcasts[0].Collaborators)

	// The row is gone, so the same triple can be invited again.
	_, err = actions.SendInvite(ctx, auth.EditUser{Username: "alice"}, md.ID, "bob")
	assert.NoError(t, err)
}

func TestRejectLeavesNoRecord(t *testing.T) {
	ctx := context.Background()
	actions, projectStore, _, md := newTestActions(t)

	invite, err := actions.SendInvite(ctx, auth.EditUser{Username: "alice"}, md.ID, "bob")
	require.NoError(t, err)

	_, err = actions.Respond(ctx, auth.EditUser{Username: "bob"}, invite.ID, api.InvitationRejected)
	require.NoError(t, err)

	got, err := projectStore.ByID(ctx, md.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Collaborators)

	listed, err := actions.ListInvites(ctx, auth.ViewUser{Username: "bob"})
	require.NoError(t, err)
	assert.Empty(t, listed)

	_, err = actions.Respond(ctx, auth.EditUser{Username: "bob"}, invite.ID, api.InvitationAccepted)
	assert.ErrorIs(t, err, errs.ErrInviteNotFound)
}

func TestRespondRequiresRecipient(t *testing.T) {
	ctx := context.Background()
	actions, _, _, md := newTestActions(t)

	invite, err := actions.SendInvite(ctx, auth.EditUser{Username: "alice"}, md.ID, "bob")
	require.NoError(t, err)

	_, err = actions.Respond(ctx, auth.EditUser{Username: "mallory"}, invite.ID, api.InvitationAccepted)
	assert.ErrorIs(t, err, errs.ErrForbidden)
}
