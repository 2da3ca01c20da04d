package events

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSubscriber struct {
	mu       sync.Mutex
	consumed []*Event
	globals  map[string]interface{}
}

func (s *testSubscriber) ConsumeEvent(ctx context.Context, event *Event, globalProperties map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consumed = append(s.consumed, event)
	s.globals = globalProperties
}

func (s *testSubscriber) events() []*Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consumed
}

func TestEventPublisher_PublishSync(t *testing.T) {
	publisher := NewEventPublisher()
	subscriber := &testSubscriber{}
	publisher.RegisterSubscriber(subscriber)
	publisher.SetGlobalProperty("hub_version", "test")

	publisher.PublishSync(&Event{
		Event: "hub_started",
	})

	consumed := subscriber.events()
	require.Len(t, consumed, 1)
	assert.Equal(t, "hub_started", consumed[0].Event)
	assert.Equal(t, "test", subscriber.globals["hub_version"])
}

func TestEventPublisher_FansOutToAllSubscribers(t *testing.T) {
	publisher := NewEventPublisher()
	first := &testSubscriber{}
	second := &testSubscriber{}
	publisher.RegisterSubscriber(first)
	publisher.RegisterSubscriber(second)

	publisher.PublishSync(&Event{Event: "profile_switched"})

	assert.Len(t, first.events(), 1)
	assert.Len(t, second.events(), 1)
}

func TestEventPublisher_RemoveSubscriber(t *testing.T) {
	publisher := NewEventPublisher()
	subscriber := &testSubscriber{}
	publisher.RegisterSubscriber(subscriber)
	publisher.RemoveSubscriber(subscriber)

	publisher.PublishSync(&Event{Event: "profile_switched"})

	assert.Empty(t, subscriber.events())
}
