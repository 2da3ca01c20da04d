package profiles

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dressinghq/dressinghub/state"
	"github.com/dressinghq/dressinghub/storage"
)

func TestSyncPendingSwitches_UploadsAndClears(t *testing.T) {
	t.Parallel()

	setup := newTestSetup(t, true)
	ctx := context.TODO()

	setup.profileState.Update(ctx, func(profileState *state.ProfileState) {
		profileState.ActiveProfileID = "profile-2"
		profileState.PendingSwitches = []state.PendingSwitch{
			{ProfileID: "profile-1", RequestedAt: 1700000000000},
			{ProfileID: "profile-2", RequestedAt: 1700000001000},
		}
	})

	setup.svc.syncPendingSwitches(ctx)

	assert.Empty(t, setup.profileState.Get().PendingSwitches)
	assert.Equal(t, "profile-2", setup.profileState.Get().ActiveProfileID)

	calls := setup.backendCalls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0], 2)
	assert.Equal(t, "profile-1", calls[0][0].ProfileID)

	lastSync, err := storage.GetJSON[int64](ctx, setup.store, storage.KeyLastSync)
	require.NoError(t, err)
	require.NotNil(t, lastSync)
	assert.Greater(t, *lastSync, int64(0))

	assert.Eventually(t, func() bool {
		return setup.subscriber.find("profile_switches_synced") != nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSyncPendingSwitches_KeepsMarkersWhenOffline(t *testing.T) {
	t.Parallel()

	setup := newTestSetup(t, false)
	ctx := context.TODO()

	setup.profileState.Update(ctx, func(profileState *state.ProfileState) {
		profileState.PendingSwitches = []state.PendingSwitch{
			{ProfileID: "profile-1", RequestedAt: 1700000000000},
		}
	})

	setup.svc.syncPendingSwitches(ctx)

	require.Len(t, setup.profileState.Get().PendingSwitches, 1)

	lastSync, err := storage.GetJSON[int64](ctx, setup.store, storage.KeyLastSync)
	require.NoError(t, err)
	assert.Nil(t, lastSync)
}

func TestSyncPendingSwitches_NoopWithoutMarkers(t *testing.T) {
	t.Parallel()

	setup := newTestSetup(t, true)

	setup.svc.syncPendingSwitches(context.TODO())

	assert.Empty(t, setup.backendCalls())
}
