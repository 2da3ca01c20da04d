package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dressinghq/dressinghub/logger"
)

// GetJSON reads and decodes the value under key. Absent keys, empty values
// and values that fail to decode all return (nil, nil): a corrupt cache
// entry is a cache miss, not an error.
func GetJSON[T any](ctx context.Context, store *Store, key string) (*T, error) {
	raw, err := store.GetStringContext(ctx, key)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}

	var value T
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		logger.Logger.Debug().Str("key", key).Err(err).Msg("Treating undecodable cache value as absent")
		return nil, nil
	}
	return &value, nil
}

// SetJSON encodes value and stores it under key.
func SetJSON[T any](ctx context.Context, store *Store, key string, value T) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for key %s: %w", key, err)
	}
	return store.SetContext(ctx, key, string(encoded))
}

// Has reports whether key holds a value.
func Has(ctx context.Context, store *Store, key string) (bool, error) {
	return store.ContainsContext(ctx, key)
}
