package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dressinghq/dressinghub/logger"
	"github.com/dressinghq/dressinghub/telemetry"
	"go.etcd.io/bbolt"
)

const (
	boltFilename = "cache.db"

	cacheBucket = "cache"
	metaBucket  = "meta"
	saltMetaKey = "encryption-salt"
)

// BoltBackend is the primary engine: a file-backed bbolt database with
// optional AES-GCM encryption of values.
type BoltBackend struct {
	db       *bbolt.DB
	cipher   *valueCipher
	reporter telemetry.Reporter
}

func NewBoltBackend(dir string, encryptionKey string, reporter telemetry.Reporter) (*BoltBackend, error) {
	path := filepath.Join(dir, boltFilename)
	boltDB, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	backend := &BoltBackend{db: boltDB, reporter: reporter}

	err = boltDB.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(cacheBucket)); err != nil {
			return err
		}
		meta, err := tx.CreateBucketIfNotExists([]byte(metaBucket))
		if err != nil {
			return err
		}
		if encryptionKey == "" {
			return nil
		}
		salt := meta.Get([]byte(saltMetaKey))
		if salt == nil {
			salt, err = newSalt()
			if err != nil {
				return err
			}
			if err := meta.Put([]byte(saltMetaKey), salt); err != nil {
				return err
			}
		}
		backend.cipher, err = newValueCipher(encryptionKey, salt)
		return err
	})
	if err != nil {
		_ = boltDB.Close()
		return nil, fmt.Errorf("failed to initialize cache database: %w", err)
	}

	return backend, nil
}

func (b *BoltBackend) Kind() BackendKind {
	return BackendPrimary
}

func (b *BoltBackend) Encrypted() bool {
	return b.cipher != nil
}

func (b *BoltBackend) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	var value string
	var found bool
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(cacheBucket)).Get([]byte(key))
		if data == nil {
			return nil
		}
		if b.cipher != nil {
			plaintext, err := b.cipher.open(data)
			if err != nil {
				// An entry we cannot decrypt is useless no matter what
				// produced it, so it reads as absent.
				logger.Logger.Debug().Str("key", key).Msg("Treating undecryptable cache value as absent")
				report(b.reporter, fmt.Errorf("failed to decrypt value for key %s: %w", key, err), "get", key)
				return nil
			}
			data = plaintext
		}
		value = string(data)
		found = true
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return value, found, nil
}

func (b *BoltBackend) Set(ctx context.Context, key string, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data := []byte(value)
	if b.cipher != nil {
		var err error
		data, err = b.cipher.seal(data)
		if err != nil {
			return fmt.Errorf("failed to encrypt value for key %s: %w", key, err)
		}
	}

	err := b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(cacheBucket)).Put([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}

func (b *BoltBackend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(cacheBucket)).Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

func (b *BoltBackend) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	keys := []string{}
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(cacheBucket)).ForEach(func(k, v []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	return keys, nil
}

func (b *BoltBackend) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// The meta bucket survives so the encryption salt is kept.
	err := b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(cacheBucket)); err != nil {
			return err
		}
		_, err := tx.CreateBucket([]byte(cacheBucket))
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

func (b *BoltBackend) Close() error {
	return b.db.Close()
}
