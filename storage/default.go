package storage

import (
	"sync"

	"github.com/dressinghq/dressinghub/telemetry"
)

var (
	defaultStore *Store
	defaultMtx   sync.RWMutex
	initOnce     sync.Once
)

// Initialize builds the process-wide store on first call and returns it.
// Later calls ignore their arguments; the backend selected here holds for
// the process lifetime.
func Initialize(cfg Config, reporter telemetry.Reporter) *Store {
	initOnce.Do(func() {
		store := Open(cfg, reporter)
		defaultMtx.Lock()
		defaultStore = store
		defaultMtx.Unlock()
	})
	return Default()
}

// Default returns the process-wide store, or nil before Initialize.
// Constructing stores explicitly and passing them around is preferred;
// this exists for code without access to the service wiring.
func Default() *Store {
	defaultMtx.RLock()
	defer defaultMtx.RUnlock()
	return defaultStore
}

// SetDefault replaces the process-wide store. The service wiring installs
// its store here at startup; tests swap in their own.
func SetDefault(store *Store) {
	defaultMtx.Lock()
	defer defaultMtx.Unlock()
	defaultStore = store
}
