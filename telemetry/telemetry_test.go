package telemetry

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dressinghq/dressinghub/db"
	"github.com/dressinghq/dressinghub/db/migrations"
	"github.com/dressinghq/dressinghub/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEventSubscriber struct {
	eventChan chan *events.Event
}

func (s *testEventSubscriber) ConsumeEvent(ctx context.Context, event *events.Event, globalProperties map[string]interface{}) {
	s.eventChan <- event
}

func waitForEvent(eventChan chan *events.Event, timeout time.Duration) *events.Event {
	select {
	case ev := <-eventChan:
		return ev
	case <-time.After(timeout):
		return nil
	}
}

func TestReporter_PublishesErrorEvent(t *testing.T) {
	publisher := events.NewEventPublisher()
	eventChan := make(chan *events.Event, 10)
	publisher.RegisterSubscriber(&testEventSubscriber{eventChan: eventChan})

	reporter := NewReporter(publisher)
	reporter.Report(errors.New("disk full"), map[string]string{
		"feature":   "storage",
		"operation": "set",
		"key":       "wardrobe-cache",
	})

	event := waitForEvent(eventChan, time.Second)
	require.NotNil(t, event)
	assert.Equal(t, ErrorReportedEvent, event.Event)

	properties, ok := event.Properties.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "disk full", properties["error"])
	assert.Equal(t, "storage", properties["feature"])
	assert.Equal(t, "set", properties["operation"])
	assert.Equal(t, "wardrobe-cache", properties["key"])
}

func TestReporter_IgnoresNilError(t *testing.T) {
	publisher := events.NewEventPublisher()
	eventChan := make(chan *events.Event, 10)
	publisher.RegisterSubscriber(&testEventSubscriber{eventChan: eventChan})

	reporter := NewReporter(publisher)
	reporter.Report(nil, map[string]string{"feature": "storage"})

	assert.Nil(t, waitForEvent(eventChan, 100*time.Millisecond))
}

func TestReporter_NilReceiver(t *testing.T) {
	var reporter *publisherReporter
	assert.NotPanics(t, func() {
		reporter.Report(errors.New("ignored"), nil)
	})
}

func TestEventConsumer_PersistsReportedErrors(t *testing.T) {
	gormDB, err := db.NewDB(filepath.Join(t.TempDir(), "test.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { db.Stop(gormDB) })
	require.NoError(t, migrations.Migrate(gormDB))

	consumer := NewEventConsumer(gormDB)
	consumer.ConsumeEvent(context.Background(), &events.Event{
		Event: ErrorReportedEvent,
		Properties: map[string]interface{}{
			"error":     "disk full",
			"feature":   "storage",
			"operation": "set",
			"key":       "wardrobe-cache",
		},
	}, nil)

	var rows []db.TelemetryEvent
	require.NoError(t, gormDB.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "storage", rows[0].Feature)
	assert.Equal(t, "set", rows[0].Operation)
	assert.Equal(t, "wardrobe-cache", rows[0].Key)
	assert.Equal(t, "disk full", rows[0].Error)
}

func TestEventConsumer_IgnoresOtherEvents(t *testing.T) {
	gormDB, err := db.NewDB(filepath.Join(t.TempDir(), "test.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { db.Stop(gormDB) })
	require.NoError(t, migrations.Migrate(gormDB))

	consumer := NewEventConsumer(gormDB)
	consumer.ConsumeEvent(context.Background(), &events.Event{
		Event:      "hub_started",
		Properties: map[string]interface{}{"version": "v0.3.0"},
	}, nil)

	var count int64
	require.NoError(t, gormDB.Model(&db.TelemetryEvent{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}
