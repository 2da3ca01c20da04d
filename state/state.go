package state

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dressinghq/dressinghub/logger"
	"github.com/dressinghq/dressinghub/storage"
	"github.com/dressinghq/dressinghub/telemetry"
)

// Container keeps one named snapshot in memory and mirrors every change
// through the persistence adapter. Reads are served from memory, so state
// keeps working when the cache layer is degraded; persistence failures are
// reported, never returned.
type Container[T any] struct {
	name         string
	stateStorage storage.StateStorage
	reporter     telemetry.Reporter

	mtx   sync.RWMutex
	value T
}

func NewContainer[T any](name string, stateStorage storage.StateStorage, reporter telemetry.Reporter) *Container[T] {
	return &Container[T]{
		name:         name,
		stateStorage: stateStorage,
		reporter:     reporter,
	}
}

// Rehydrate loads the stored snapshot into memory. An absent snapshot
// leaves the zero value in place; an unreadable one is discarded and
// reported, also leaving the zero value.
func (c *Container[T]) Rehydrate(ctx context.Context) error {
	raw, err := c.stateStorage.GetItem(ctx, c.name)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", c.name, err)
	}
	if raw == "" {
		return nil
	}

	var value T
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		logger.Logger.Debug().Str("state", c.name).Err(err).Msg("Discarding unreadable state snapshot")
		c.report(err, "rehydrate")
		return nil
	}

	c.mtx.Lock()
	c.value = value
	c.mtx.Unlock()
	return nil
}

func (c *Container[T]) Get() T {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return c.value
}

// Update applies fn to the snapshot under the lock, persists the result and
// returns it.
func (c *Container[T]) Update(ctx context.Context, fn func(*T)) T {
	c.mtx.Lock()
	fn(&c.value)
	value := c.value
	c.mtx.Unlock()

	c.persist(ctx, value)
	return value
}

func (c *Container[T]) Set(ctx context.Context, value T) {
	c.mtx.Lock()
	c.value = value
	c.mtx.Unlock()

	c.persist(ctx, value)
}

// Reset clears the snapshot in memory and removes it from storage.
func (c *Container[T]) Reset(ctx context.Context) {
	var zero T
	c.mtx.Lock()
	c.value = zero
	c.mtx.Unlock()

	if err := c.stateStorage.RemoveItem(ctx, c.name); err != nil {
		c.report(err, "reset")
	}
}

func (c *Container[T]) persist(ctx context.Context, value T) {
	encoded, err := json.Marshal(value)
	if err != nil {
		c.report(err, "persist")
		return
	}
	if err := c.stateStorage.SetItem(ctx, c.name, string(encoded)); err != nil {
		c.report(err, "persist")
	}
}

func (c *Container[T]) report(err error, operation string) {
	if c.reporter == nil {
		return
	}
	c.reporter.Report(err, map[string]string{
		"feature":   "state",
		"operation": operation,
		"key":       c.name,
	})
}
