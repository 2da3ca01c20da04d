package telemetry

import (
	"github.com/dressinghq/dressinghub/events"
	"github.com/dressinghq/dressinghub/logger"
)

const ErrorReportedEvent = "hub_error_reported"

// Reporter is the failure sink for best-effort code paths. Report must
// return quickly and must not panic; callers fire and forget.
type Reporter interface {
	Report(err error, tags map[string]string)
}

type publisherReporter struct {
	eventPublisher events.EventPublisher
}

func NewReporter(eventPublisher events.EventPublisher) *publisherReporter {
	return &publisherReporter{eventPublisher: eventPublisher}
}

func (r *publisherReporter) Report(err error, tags map[string]string) {
	if r == nil || r.eventPublisher == nil || err == nil {
		return
	}

	logger.Logger.Debug().Err(err).Interface("tags", tags).Msg("Reporting error")

	properties := map[string]interface{}{
		"error": err.Error(),
	}
	for key, value := range tags {
		properties[key] = value
	}

	r.eventPublisher.Publish(&events.Event{
		Event:      ErrorReportedEvent,
		Properties: properties,
	})
}
