package service

import (
	"time"

	"github.com/dressinghq/dressinghub/constants"
	"github.com/dressinghq/dressinghub/db"
	"github.com/dressinghq/dressinghub/logger"
	"github.com/dressinghq/dressinghub/storage"
)

func (svc *service) removeExcessTelemetryEvents() {
	logger.Logger.Debug().Msg("Cleaning up excess telemetry events")

	maxEvents := 1000
	// estimated less than 1 second to delete, it should not lock the DB
	maxEventsToDelete := 5000
	// if we only have a few excess events, don't run the task
	minEventsToDelete := 100

	var telemetryEvents []db.TelemetryEvent
	err := svc.db.Select("id").Order("id asc").Limit(maxEvents + maxEventsToDelete).Find(&telemetryEvents).Error
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to fetch telemetry events")
	}

	numEventsToDelete := len(telemetryEvents) - maxEvents

	if numEventsToDelete < minEventsToDelete {
		return
	}
	deleteEventsBelowId := telemetryEvents[numEventsToDelete].ID

	logger.Logger.Debug().
		Int("amount", numEventsToDelete).
		Uint("below_id", deleteEventsBelowId).
		Msg("Removing excess telemetry events")

	startTime := time.Now()
	err = svc.db.Exec("delete from telemetry_events where id < ?", deleteEventsBelowId).Error
	if err != nil {
		logger.Logger.Error().Err(err).
			Int("amount", numEventsToDelete).
			Uint("below_id", deleteEventsBelowId).
			Msg("Failed to delete excess telemetry events")
		return
	}
	logger.Logger.Info().
		Int("amount", numEventsToDelete).
		Uint("below_id", deleteEventsBelowId).
		Float64("duration_seconds", time.Since(startTime).Seconds()).
		Msg("Removed excess telemetry events")
}

// checkStaleActivity flags hubs nobody has touched in a long time. The cache
// itself never expires entries, this only logs so the user can find out why
// their data looks old.
func (svc *service) checkStaleActivity() {
	lastActivity, ok, err := storage.LastActivity(svc.ctx, svc.store)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to read last activity")
		return
	}
	if !ok {
		return
	}

	age := time.Since(lastActivity)
	if age > constants.LAST_ACTIVITY_MAX_AGE {
		logger.Logger.Warn().
			Time("last_activity", lastActivity).
			Float64("age_days", age.Hours()/24).
			Msg("Hub has not been used for a long time, cached data may be stale")
	}
}
