package profiles

import (
	"context"
	"time"

	"github.com/dressinghq/dressinghub/constants"
	"github.com/dressinghq/dressinghub/events"
	"github.com/dressinghq/dressinghub/logger"
	"github.com/dressinghq/dressinghub/pkg/remote"
	"github.com/dressinghq/dressinghub/state"
	"github.com/dressinghq/dressinghub/storage"
)

// StartSyncService starts the background upload loop for pending profile
// switches.
func (svc *profilesService) StartSyncService(ctx context.Context) {
	// Run immediately once
	svc.syncPendingSwitches(ctx)

	go func() {
		ticker := time.NewTicker(constants.PROFILE_SYNC_INTERVAL)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				svc.syncPendingSwitches(ctx)
			}
		}
	}()
}

func (svc *profilesService) syncPendingSwitches(ctx context.Context) {
	pending := svc.profileState.Get().PendingSwitches
	if len(pending) == 0 {
		return
	}

	if err := svc.remoteClient.Ping(ctx); err != nil {
		logger.Logger.Debug().Err(err).Msg("Backend unreachable, keeping profile switches pending")
		return
	}

	switches := make([]remote.ProfileSwitch, 0, len(pending))
	for _, pendingSwitch := range pending {
		switches = append(switches, remote.ProfileSwitch{
			ProfileID:   pendingSwitch.ProfileID,
			RequestedAt: pendingSwitch.RequestedAt,
		})
	}

	if err := svc.remoteClient.PushProfileSwitches(ctx, switches); err != nil {
		logger.Logger.Debug().Err(err).Msg("Failed to push pending profile switches")
		return
	}

	// Drop the acknowledged prefix. Switches recorded while the push was in
	// flight stay pending for the next run.
	acknowledged := len(switches)
	svc.profileState.Update(ctx, func(profileState *state.ProfileState) {
		if acknowledged >= len(profileState.PendingSwitches) {
			profileState.PendingSwitches = nil
			return
		}
		profileState.PendingSwitches = profileState.PendingSwitches[acknowledged:]
	})

	if err := storage.SetJSON(ctx, svc.store, storage.KeyLastSync, time.Now().UnixMilli()); err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to record last sync time")
	}

	svc.eventPublisher.Publish(&events.Event{
		Event: "profile_switches_synced",
		Properties: map[string]interface{}{
			"count": acknowledged,
		},
	})
	logger.Logger.Info().Int("count", acknowledged).Msg("Pending profile switches synced")
}
