package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netsblox/cloud/internal/api"
	"github.com/netsblox/cloud/internal/errs"
)

func newTestProject(t *testing.T, store Projects, owner, name string, saveState api.SaveState) api.ProjectMetadata {
	t.Helper()
	md := api.NewProjectMetadata(owner, name, []api.RoleMetadata{{Name: "myRole"}}, saveState)
	require.NoError(t, store.Insert(context.Background(), md))
	return md
}

func TestProjectsByOwnerAndName(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryProjects()
	md := newTestProject(t, store, "alice", "ping pong", api.SaveStateSaved)

	found, err := store.ByOwnerAndName(ctx, "alice", "ping pong")
	require.NoError(t, err)
	assert.Equal(t, md.ID, found.ID)

	_, err = store.ByOwnerAndName(ctx, "alice", "pong")
	assert.ErrorIs(t, err, errs.ErrProjectNotFound)
}

func TestMarkBrokenOnlyTransient(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryProjects()
	transient := newTestProject(t, store, "alice", "a", api.SaveStateTransient)
	saved := newTestProject(t, store, "alice", "b", api.SaveStateSaved)

	matched, err := store.MarkBroken(ctx, transient.ID)
	require.NoError(t, err)
	assert.True(t, matched)

	md, err := store.ByID(ctx, transient.ID)
	require.NoError(t, err)
	assert.Equal(t, api.SaveStateBroken, md.SaveState)

	// Idempotent on re-fire and inert for saved projects.
	matched, err = store.MarkBroken(ctx, transient.ID)
	require.NoError(t, err)
	assert.False(t, matched)

	matched, err = store.MarkBroken(ctx, saved.ID)
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestDeleteExpired(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryProjects()
	expired := newTestProject(t, store, "alice", "old", api.SaveStateBroken)
	fresh := newTestProject(t, store, "alice", "new", api.SaveStateBroken)
	kept := newTestProject(t, store, "alice", "kept", api.SaveStateSaved)

	now := time.Now()
	require.NoError(t, store.ScheduleDeletion(ctx, expired.ID, now.Add(-time.Minute)))
	require.NoError(t, store.ScheduleDeletion(ctx, fresh.ID, now.Add(10*time.Minute)))

	removed, err := store.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	_, err = store.ByID(ctx, expired.ID)
	assert.ErrorIs(t, err, errs.ErrProjectNotFound)
	_, err = store.ByID(ctx, fresh.ID)
	assert.NoError(t, err)
	_, err = store.ByID(ctx, kept.ID)
	assert.NoError(t, err)
}

func TestCancelDeletion(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryProjects()
	md := newTestProject(t, store, "alice", "p", api.SaveStateBroken)

	require.NoError(t, store.ScheduleDeletion(ctx, md.ID, time.Now().Add(-time.Minute)))
	require.NoError(t, store.CancelDeletion(ctx, md.ID))

	removed, err := store.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestCollaboratorsAreASet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryProjects()
	md := newTestProject(t, store, "alice", "p", api.SaveStateSaved)

	updated, err := store.AddCollaborator(ctx, md.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, updated.Collaborators)

	updated, err = store.AddCollaborator(ctx, md.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, updated.Collaborators)

	updated, err = store.RemoveCollaborator(ctx, md.ID, "bob")
	require.NoError(t, err)
	assert.Empty(t, updated.Collaborators)
}

func TestInvitesPendingUniqueness(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryInvites()
	invite := api.NewCollaborationInvite("alice", "bob", "p1")

	created, err := store.CreatePending(ctx, invite)
	require.NoError(t, err)
	assert.True(t, created)

	// Same triple: rejected regardless of the new invite id.
	dup := api.NewCollaborationInvite("alice", "bob", "p1")
	created, err = store.CreatePending(ctx, dup)
	require.NoError(t, err)
	assert.False(t, created)

	// Different project: allowed.
	other := api.NewCollaborationInvite("alice", "bob", "p2")
	created, err = store.CreatePending(ctx, other)
	require.NoError(t, err)
	assert.True(t, created)

	invites, err := store.ListForReceiver(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, invites, 2)

	// Deleting the pending invite frees the triple.
	require.NoError(t, store.Delete(ctx, invite.ID))
	created, err = store.CreatePending(ctx, api.NewCollaborationInvite("alice", "bob", "p1"))
	require.NoError(t, err)
	assert.True(t, created)
}

func TestGroupsCreateUnlessExists(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryGroups()
	group := api.NewGroup("alice", "period 3")

	created, err := store.CreateUnlessExists(ctx, group)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.CreateUnlessExists(ctx, api.NewGroup("alice", "period 3"))
	require.NoError(t, err)
	assert.False(t, created)

	deleted, err := store.Delete(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, group.ID, deleted.ID)

	_, err = store.ByID(ctx, group.ID)
	assert.ErrorIs(t, err, errs.ErrGroupNotFound)
}

func TestHostsAuthorizeOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryHosts()
	host := api.NewAuthorizedServiceHost("https://services.example.com", "svc", api.ServiceHostScope{Private: true})

	created, err := store.Authorize(ctx, host)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.Authorize(ctx, host)
	require.NoError(t, err)
	assert.False(t, created)

	removed, err := store.Unauthorize(ctx, "svc")
	require.NoError(t, err)
	assert.Equal(t, host.Secret, removed.Secret)

	_, err = store.Unauthorize(ctx, "svc")
	assert.ErrorIs(t, err, errs.ErrServiceHostNotFound)
}

func TestBlobsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryBlobs()

	require.NoError(t, store.Put(ctx, "key", []byte("<code/>")))
	data, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("<code/>"), data)

	_, err = store.Get(ctx, "missing")
	assert.Error(t, err)
	assert.False(t, errs.IsUserError(err))
}
