package storage

import (
	"context"
)

type BackendKind string

const (
	BackendPrimary  BackendKind = "primary"
	BackendFallback BackendKind = "fallback"
)

// Backend is the engine contract behind the Store. Both engines complete
// every call before returning; the fire-and-forget behavior of the fallback
// path lives in the Store, not here.
type Backend interface {
	Kind() BackendKind
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) error
	Close() error
}
