package reaper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netsblox/cloud/internal/api"
	"github.com/netsblox/cloud/internal/errs"
	"github.com/netsblox/cloud/internal/storage"
)

func TestSweepDeletesOnlyExpired(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryProjects()

	expired := api.NewProjectMetadata("brian", "old", []api.RoleMetadata{{Name: "myRole"}}, api.SaveStateBroken)
	pending := api.NewProjectMetadata("brian", "new", []api.RoleMetadata{{Name: "myRole"}}, api.SaveStateBroken)
	safe := api.NewProjectMetadata("brian", "safe", []api.RoleMetadata{{Name: "myRole"}}, api.SaveStateSaved)
	for _, md := range []api.ProjectMetadata{expired, pending, safe} {
		require.NoError(t, store.Insert(ctx, md))
	}

	base := time.Now()
	require.NoError(t, store.ScheduleDeletion(ctx, expired.ID, base.Add(-time.Minute)))
	require.NoError(t, store.ScheduleDeletion(ctx, pending.ID, base.Add(5*time.Minute)))

	r := New(store, 0)
	r.now = func() time.Time { return base }
	r.Sweep(ctx)

	_, err := store.ByID(ctx, expired.ID)
	assert.ErrorIs(t, err, errs.ErrProjectNotFound)
	_, err = store.ByID(ctx, pending.ID)
	assert.NoError(t, err)
	_, err = store.ByID(ctx, safe.ID)
	assert.NoError(t, err)

	// Ten simulated minutes later the cool-down has elapsed.
	r.now = func() time.Time { return base.Add(10 * time.Minute) }
	r.Sweep(ctx)
	_, err = store.ByID(ctx, pending.ID)
	assert.ErrorIs(t, err, errs.ErrProjectNotFound)
}

func TestCancelledScheduleSurvivesSweep(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryProjects()
	md := api.NewProjectMetadata("brian", "resurrected", []api.RoleMetadata{{Name: "myRole"}}, api.SaveStateBroken)
	require.NoError(t, store.Insert(ctx, md))
	require.NoError(t, store.ScheduleDeletion(ctx, md.ID, time.Now().Add(-time.Minute)))
	require.NoError(t, store.CancelDeletion(ctx, md.ID))

	New(store, 0).Sweep(ctx)
	_, err := store.ByID(ctx, md.ID)
	assert.NoError(t, err)
}
