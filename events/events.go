package events

import (
	"context"
	"slices"
	"sync"

	"github.com/dressinghq/dressinghub/logger"
)

type Event struct {
	Event      string      `json:"event"`
	Properties interface{} `json:"properties,omitempty"`
}

// EventSubscriber consumes published events. ConsumeEvent must not block for
// long periods; slow consumers delay PublishSync callers.
type EventSubscriber interface {
	ConsumeEvent(ctx context.Context, event *Event, globalProperties map[string]interface{})
}

type EventPublisher interface {
	RegisterSubscriber(subscriber EventSubscriber)
	RemoveSubscriber(subscriber EventSubscriber)
	SetGlobalProperty(key string, value interface{})
	Publish(event *Event)
	PublishSync(event *Event)
}

type eventPublisher struct {
	listeners        []EventSubscriber
	subscriberMtx    sync.Mutex
	globalProperties map[string]interface{}
}

func NewEventPublisher() *eventPublisher {
	return &eventPublisher{
		listeners:        []EventSubscriber{},
		globalProperties: map[string]interface{}{},
	}
}

func (ep *eventPublisher) RegisterSubscriber(subscriber EventSubscriber) {
	ep.subscriberMtx.Lock()
	defer ep.subscriberMtx.Unlock()
	ep.listeners = append(ep.listeners, subscriber)
}

func (ep *eventPublisher) RemoveSubscriber(subscriber EventSubscriber) {
	ep.subscriberMtx.Lock()
	defer ep.subscriberMtx.Unlock()

	for i, listener := range ep.listeners {
		if listener == subscriber {
			ep.listeners = slices.Delete(ep.listeners, i, i+1)
			break
		}
	}
}

func (ep *eventPublisher) SetGlobalProperty(key string, value interface{}) {
	ep.subscriberMtx.Lock()
	defer ep.subscriberMtx.Unlock()
	ep.globalProperties[key] = value
}

// Publish fans the event out to all subscribers without blocking the caller.
func (ep *eventPublisher) Publish(event *Event) {
	go ep.publish(event)
}

// PublishSync returns once every subscriber has consumed the event.
func (ep *eventPublisher) PublishSync(event *Event) {
	ep.publish(event)
}

func (ep *eventPublisher) publish(event *Event) {
	ep.subscriberMtx.Lock()
	listeners := slices.Clone(ep.listeners)
	globalProperties := ep.globalProperties
	ep.subscriberMtx.Unlock()

	logger.Logger.Debug().Str("event", event.Event).Msg("Publishing event")

	var wg sync.WaitGroup
	for _, listener := range listeners {
		wg.Add(1)
		go func(listener EventSubscriber) {
			defer wg.Done()
			listener.ConsumeEvent(context.Background(), event, globalProperties)
		}(listener)
	}
	wg.Wait()
}
