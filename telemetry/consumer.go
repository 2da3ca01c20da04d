package telemetry

import (
	"context"
	"encoding/json"

	"github.com/dressinghq/dressinghub/db"
	"github.com/dressinghq/dressinghub/events"
	"github.com/dressinghq/dressinghub/logger"
	"gorm.io/gorm"
)

// eventConsumer persists reported errors so they show up in diagnostics
// even after the process restarts.
type eventConsumer struct {
	db *gorm.DB
}

func NewEventConsumer(gormDB *gorm.DB) *eventConsumer {
	return &eventConsumer{db: gormDB}
}

func (c *eventConsumer) ConsumeEvent(ctx context.Context, event *events.Event, globalProperties map[string]interface{}) {
	if event.Event != ErrorReportedEvent {
		return
	}

	properties, _ := event.Properties.(map[string]interface{})

	row := db.TelemetryEvent{
		Feature:   stringProperty(properties, "feature"),
		Operation: stringProperty(properties, "operation"),
		Key:       stringProperty(properties, "key"),
		Error:     stringProperty(properties, "error"),
	}
	if tags, err := json.Marshal(properties); err == nil {
		row.Tags = tags
	}

	err := c.db.WithContext(ctx).Create(&row).Error
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to persist telemetry event")
	}
}

func stringProperty(properties map[string]interface{}, key string) string {
	value, _ := properties[key].(string)
	return value
}
