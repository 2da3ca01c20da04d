package storage

import (
	"context"
)

// StateStorage is the persistence contract consumed by the state
// containers. Values pass through as-is; the adapter never re-serializes.
type StateStorage interface {
	GetItem(ctx context.Context, name string) (string, error)
	SetItem(ctx context.Context, name string, value string) error
	RemoveItem(ctx context.Context, name string) error
}

// GetItem returns the stored value for name, or "" when absent.
func (s *Store) GetItem(ctx context.Context, name string) (string, error) {
	return s.GetStringContext(ctx, name)
}

func (s *Store) SetItem(ctx context.Context, name string, value string) error {
	return s.SetContext(ctx, name, value)
}

func (s *Store) RemoveItem(ctx context.Context, name string) error {
	return s.DeleteContext(ctx, name)
}
