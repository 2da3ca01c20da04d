package storage

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dressinghq/dressinghub/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type reportedError struct {
	err  error
	tags map[string]string
}

type testReporter struct {
	mtx     sync.Mutex
	reports []reportedError
}

func (r *testReporter) Report(err error, tags map[string]string) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.reports = append(r.reports, reportedError{err: err, tags: tags})
}

func (r *testReporter) count() int {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return len(r.reports)
}

func (r *testReporter) last() reportedError {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return r.reports[len(r.reports)-1]
}

func newTestPrimary(t *testing.T) *Store {
	backend, err := NewBoltBackend(t.TempDir(), "", nil)
	require.NoError(t, err)
	store := NewStore(backend, nil)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestGormDB(t *testing.T) *gorm.DB {
	gormDB, err := db.NewDB(filepath.Join(t.TempDir(), "test.db"), false)
	require.NoError(t, err)
	require.NoError(t, gormDB.AutoMigrate(&db.CacheEntry{}))
	t.Cleanup(func() { db.Stop(gormDB) })
	return gormDB
}

func newTestFallback(t *testing.T, reporter *testReporter) *Store {
	store := NewStore(NewGormBackend(newTestGormDB(t)), reporter)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_PrimaryRoundTrip(t *testing.T) {
	t.Parallel()
	store := newTestPrimary(t)

	store.Set("greeting", "hello")
	assert.Equal(t, "hello", store.GetString("greeting"))
	assert.True(t, store.Contains("greeting"))

	store.Delete("greeting")
	assert.Equal(t, "", store.GetString("greeting"))
	assert.False(t, store.Contains("greeting"))
}

func TestStore_PrimaryOverwriteLastWins(t *testing.T) {
	t.Parallel()
	store := newTestPrimary(t)

	store.Set("key", "first")
	store.Set("key", "second")
	store.Set("key", "third")
	assert.Equal(t, "third", store.GetString("key"))
}

func TestStore_PrimaryGetAllKeys(t *testing.T) {
	t.Parallel()
	store := newTestPrimary(t)

	store.Set("alpha", "1")
	store.Set("beta", "2")

	keys := store.GetAllKeys()
	assert.Contains(t, keys, "alpha")
	assert.Contains(t, keys, "beta")
	assert.Len(t, keys, 2)
}

func TestStore_PrimaryClearAll(t *testing.T) {
	t.Parallel()
	store := newTestPrimary(t)

	store.Set("alpha", "1")
	store.Set("beta", "2")
	store.ClearAll()

	assert.False(t, store.Contains("alpha"))
	assert.False(t, store.Contains("beta"))
	assert.Empty(t, store.GetAllKeys())

	// clearing an already empty store is fine
	store.ClearAll()
	assert.Empty(t, store.GetAllKeys())
}

func TestStore_PrimaryMissingKey(t *testing.T) {
	t.Parallel()
	store := newTestPrimary(t)

	assert.Equal(t, "", store.GetString("never-written"))
	assert.False(t, store.Contains("never-written"))
}

func TestStore_FallbackSyncReadsDegrade(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestFallback(t, nil)

	require.NoError(t, store.SetContext(ctx, "key", "value"))

	// The sync-shaped read surface cannot answer on the fallback backend
	// and degrades to empty results by contract.
	assert.Equal(t, "", store.GetString("key"))
	assert.False(t, store.Contains("key"))
	assert.Empty(t, store.GetAllKeys())

	// The context surface is correct.
	value, err := store.GetStringContext(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, "value", value)
}

func TestStore_FallbackFireAndForgetSet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestFallback(t, nil)

	store.Set("key", "value")

	assert.Eventually(t, func() bool {
		value, err := store.GetStringContext(ctx, "key")
		return err == nil && value == "value"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStore_FallbackFireAndForgetDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestFallback(t, nil)

	require.NoError(t, store.SetContext(ctx, "key", "value"))
	store.Delete("key")

	assert.Eventually(t, func() bool {
		found, err := store.ContainsContext(ctx, "key")
		return err == nil && !found
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStore_FallbackFireAndForgetClearAll(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestFallback(t, nil)

	require.NoError(t, store.SetContext(ctx, "alpha", "1"))
	require.NoError(t, store.SetContext(ctx, "beta", "2"))
	store.ClearAll()

	assert.Eventually(t, func() bool {
		keys, err := store.GetAllKeysContext(ctx)
		return err == nil && len(keys) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStore_FallbackContextRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestFallback(t, nil)

	require.NoError(t, store.SetContext(ctx, "alpha", "1"))
	require.NoError(t, store.SetContext(ctx, "beta", "2"))

	found, err := store.ContainsContext(ctx, "alpha")
	require.NoError(t, err)
	assert.True(t, found)

	keys, err := store.GetAllKeysContext(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alpha", "beta"}, keys)

	require.NoError(t, store.DeleteContext(ctx, "alpha"))
	found, err = store.ContainsContext(ctx, "alpha")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.ClearAllContext(ctx))
	keys, err = store.GetAllKeysContext(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestStore_FallbackOverwriteLastWins(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestFallback(t, nil)

	require.NoError(t, store.SetContext(ctx, "key", "first"))
	require.NoError(t, store.SetContext(ctx, "key", "second"))

	value, err := store.GetStringContext(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, "second", value)
}

func TestStore_FallbackCloseDrainsQueue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestFallback(t, nil)

	for _, key := range []string{"one", "two", "three", "four"} {
		store.Set(key, "value-"+key)
	}
	require.NoError(t, store.Close())

	for _, key := range []string{"one", "two", "three", "four"} {
		value, err := store.GetStringContext(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "value-"+key, value)
	}
}

func TestStore_SetAfterCloseIsIgnored(t *testing.T) {
	t.Parallel()
	store := newTestFallback(t, nil)

	require.NoError(t, store.Close())
	assert.NotPanics(t, func() {
		store.Set("key", "value")
		store.Delete("key")
		store.ClearAll()
	})
	require.NoError(t, store.Close())
}

func TestStore_FallbackWriteFailureReported(t *testing.T) {
	t.Parallel()
	reporter := &testReporter{}
	gormDB, err := db.NewDB(filepath.Join(t.TempDir(), "test.db"), false)
	require.NoError(t, err)
	require.NoError(t, gormDB.AutoMigrate(&db.CacheEntry{}))

	store := NewStore(NewGormBackend(gormDB), reporter)
	t.Cleanup(func() { store.Close() })

	// Kill the database underneath the writer. The queued write must fail
	// into telemetry instead of reaching any caller.
	require.NoError(t, db.Stop(gormDB))
	store.Set("key", "value")

	assert.Eventually(t, func() bool {
		return reporter.count() > 0
	}, 2*time.Second, 10*time.Millisecond)

	report := reporter.last()
	assert.Error(t, report.err)
	assert.Equal(t, "storage", report.tags["feature"])
	assert.Equal(t, "set", report.tags["operation"])
	assert.Equal(t, "key", report.tags["key"])
}

func TestOpen_SelectsPrimary(t *testing.T) {
	t.Parallel()
	store := Open(Config{Dir: t.TempDir()}, nil)
	t.Cleanup(func() { store.Close() })

	assert.Equal(t, BackendPrimary, store.Kind())
}

func TestOpen_FallsBackWhenPrimaryUnavailable(t *testing.T) {
	t.Parallel()
	reporter := &testReporter{}

	// A missing directory makes the primary engine unopenable.
	cfg := Config{
		Dir: filepath.Join(t.TempDir(), "does", "not", "exist"),
		DB:  newTestGormDB(t),
	}
	store := Open(cfg, reporter)
	t.Cleanup(func() { store.Close() })

	assert.Equal(t, BackendFallback, store.Kind())
	require.Greater(t, reporter.count(), 0)
	assert.Equal(t, "open", reporter.last().tags["operation"])

	// The degraded store still works through the context surface.
	ctx := context.Background()
	require.NoError(t, store.SetContext(ctx, "key", "value"))
	value, err := store.GetStringContext(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, "value", value)
}
