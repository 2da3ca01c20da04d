package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/dressinghq/dressinghub/logger"
	"github.com/dressinghq/dressinghub/telemetry"
	"gorm.io/gorm"
)

const writeQueueSize = 256

var errWriteQueueFull = errors.New("cache write queue is full")

type Config struct {
	// Dir is the directory holding the primary engine's database file.
	Dir string
	// EncryptionKey encrypts primary values at rest. Empty runs the
	// primary engine in plaintext mode with a startup warning.
	EncryptionKey string
	// DB backs the fallback engine.
	DB *gorm.DB
}

type writeJob struct {
	operation string
	key       string
	value     string
}

// Store is the process-wide cache. It selects a backend once at
// construction: the primary bbolt engine, or the database fallback when the
// primary cannot be opened. The choice is never re-probed.
//
// The plain methods are shaped for callers that cannot wait: on the primary
// backend they are synchronous and correct, on the fallback backend reads
// degrade to empty results and writes are queued fire-and-forget. The
// Context variants are correct on both backends.
type Store struct {
	backend  Backend
	reporter telemetry.Reporter

	jobs      chan writeJob
	writerWg  sync.WaitGroup
	queueMtx  sync.Mutex
	closeOnce sync.Once
	closed    bool
}

// Open builds a store for the configured directory. A primary engine
// failure is not fatal: the store falls back to the database engine and the
// process keeps running with degraded cache semantics.
func Open(cfg Config, reporter telemetry.Reporter) *Store {
	backend, err := NewBoltBackend(cfg.Dir, cfg.EncryptionKey, reporter)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to open primary cache engine, using database fallback")
		report(reporter, err, "open", "")
		return NewStore(NewGormBackend(cfg.DB), reporter)
	}
	if cfg.EncryptionKey == "" {
		logger.Logger.Warn().Msg("No cache encryption key configured, primary cache values are stored in plaintext")
	}
	return NewStore(backend, reporter)
}

func NewStore(backend Backend, reporter telemetry.Reporter) *Store {
	store := &Store{
		backend:  backend,
		reporter: reporter,
	}
	if backend.Kind() == BackendFallback {
		store.jobs = make(chan writeJob, writeQueueSize)
		store.writerWg.Add(1)
		go store.runWriter()
	}
	return store
}

func (s *Store) Kind() BackendKind {
	return s.backend.Kind()
}

// GetString returns the value for key, or "" when absent. Always "" on the
// fallback backend.
func (s *Store) GetString(key string) string {
	if s.backend.Kind() != BackendPrimary {
		return ""
	}
	value, _, err := s.backend.Get(context.Background(), key)
	observe(BackendPrimary, "get", err)
	if err != nil {
		s.reportOp(err, "get", key)
		return ""
	}
	return value
}

// Set writes without blocking the caller beyond the primary engine's
// synchronous write. On the fallback backend the write is queued and any
// failure goes to telemetry instead of the caller.
func (s *Store) Set(key string, value string) {
	if s.backend.Kind() == BackendPrimary {
		err := s.backend.Set(context.Background(), key, value)
		observe(BackendPrimary, "set", err)
		if err != nil {
			s.reportOp(err, "set", key)
		}
		return
	}
	s.enqueue(writeJob{operation: "set", key: key, value: value})
}

// Delete removes key, with the same dual-path semantics as Set.
func (s *Store) Delete(key string) {
	if s.backend.Kind() == BackendPrimary {
		err := s.backend.Delete(context.Background(), key)
		observe(BackendPrimary, "delete", err)
		if err != nil {
			s.reportOp(err, "delete", key)
		}
		return
	}
	s.enqueue(writeJob{operation: "delete", key: key})
}

// Contains reports whether key is present. Always false on the fallback
// backend.
func (s *Store) Contains(key string) bool {
	if s.backend.Kind() != BackendPrimary {
		return false
	}
	_, found, err := s.backend.Get(context.Background(), key)
	observe(BackendPrimary, "contains", err)
	if err != nil {
		s.reportOp(err, "contains", key)
		return false
	}
	return found
}

// ClearAll wipes the namespace, with the same dual-path semantics as Set.
func (s *Store) ClearAll() {
	if s.backend.Kind() == BackendPrimary {
		err := s.backend.Clear(context.Background())
		observe(BackendPrimary, "clear_all", err)
		if err != nil {
			s.reportOp(err, "clear_all", "")
		}
		return
	}
	s.enqueue(writeJob{operation: "clear_all"})
}

// GetAllKeys returns all stored keys. Always empty on the fallback backend.
func (s *Store) GetAllKeys() []string {
	if s.backend.Kind() != BackendPrimary {
		return []string{}
	}
	keys, err := s.backend.Keys(context.Background())
	observe(BackendPrimary, "get_all_keys", err)
	if err != nil {
		s.reportOp(err, "get_all_keys", "")
		return []string{}
	}
	return keys
}

// Context variants complete against the active backend before returning and
// are correct on both backends. Absent keys read as ("", nil).

func (s *Store) GetStringContext(ctx context.Context, key string) (string, error) {
	value, _, err := s.backend.Get(ctx, key)
	observe(s.backend.Kind(), "get", err)
	return value, err
}

func (s *Store) SetContext(ctx context.Context, key string, value string) error {
	err := s.backend.Set(ctx, key, value)
	observe(s.backend.Kind(), "set", err)
	return err
}

func (s *Store) DeleteContext(ctx context.Context, key string) error {
	err := s.backend.Delete(ctx, key)
	observe(s.backend.Kind(), "delete", err)
	return err
}

func (s *Store) ContainsContext(ctx context.Context, key string) (bool, error) {
	_, found, err := s.backend.Get(ctx, key)
	observe(s.backend.Kind(), "contains", err)
	return found, err
}

func (s *Store) ClearAllContext(ctx context.Context) error {
	err := s.backend.Clear(ctx)
	observe(s.backend.Kind(), "clear_all", err)
	return err
}

func (s *Store) GetAllKeysContext(ctx context.Context) ([]string, error) {
	keys, err := s.backend.Keys(ctx)
	observe(s.backend.Kind(), "get_all_keys", err)
	return keys, err
}

func (s *Store) enqueue(job writeJob) {
	s.queueMtx.Lock()
	defer s.queueMtx.Unlock()

	if s.closed {
		return
	}

	select {
	case s.jobs <- job:
		writeQueueDepth.Set(float64(len(s.jobs)))
	default:
		droppedWritesTotal.Inc()
		s.reportOp(errWriteQueueFull, job.operation, job.key)
	}
}

func (s *Store) runWriter() {
	defer s.writerWg.Done()
	for job := range s.jobs {
		var err error
		switch job.operation {
		case "set":
			err = s.backend.Set(context.Background(), job.key, job.value)
		case "delete":
			err = s.backend.Delete(context.Background(), job.key)
		case "clear_all":
			err = s.backend.Clear(context.Background())
		}
		observe(BackendFallback, job.operation, err)
		writeQueueDepth.Set(float64(len(s.jobs)))
		if err != nil {
			s.reportOp(err, job.operation, job.key)
		}
	}
}

// Close drains queued writes, stops the background writer and closes the
// backend. Safe to call more than once.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.jobs != nil {
			s.queueMtx.Lock()
			s.closed = true
			close(s.jobs)
			s.queueMtx.Unlock()
			s.writerWg.Wait()
		}
		err = s.backend.Close()
	})
	return err
}

func (s *Store) reportOp(err error, operation string, key string) {
	report(s.reporter, err, operation, key)
}

func report(reporter telemetry.Reporter, err error, operation string, key string) {
	if reporter == nil {
		return
	}
	tags := map[string]string{
		"feature":   "storage",
		"operation": operation,
	}
	if key != "" {
		tags["key"] = key
	}
	reporter.Report(err, tags)
}
