package storage

import (
	"context"
	"fmt"

	"github.com/dressinghq/dressinghub/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBackend is the fallback engine. It stores entries in the relational
// database so the cache keeps working when the primary file cannot be opened.
type GormBackend struct {
	db *gorm.DB
}

func NewGormBackend(gormDB *gorm.DB) *GormBackend {
	return &GormBackend{db: gormDB}
}

func (b *GormBackend) Kind() BackendKind {
	return BackendFallback
}

func (b *GormBackend) Get(ctx context.Context, key string) (string, bool, error) {
	var entry db.CacheEntry
	// Use Find instead of First to avoid "record not found" logs which are annoying for a KV store
	result := b.db.WithContext(ctx).Where("key = ?", key).Find(&entry)
	if result.Error != nil {
		return "", false, fmt.Errorf("failed to read key %s: %w", key, result.Error)
	}
	if result.RowsAffected == 0 {
		return "", false, nil
	}
	return entry.Value, true, nil
}

func (b *GormBackend) Set(ctx context.Context, key string, value string) error {
	entry := db.CacheEntry{
		Key:   key,
		Value: value,
	}
	// Upsert
	result := b.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry)
	if result.Error != nil {
		return fmt.Errorf("failed to write key %s: %w", key, result.Error)
	}
	return nil
}

func (b *GormBackend) Delete(ctx context.Context, key string) error {
	err := b.db.WithContext(ctx).Where("key = ?", key).Delete(&db.CacheEntry{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

func (b *GormBackend) Keys(ctx context.Context) ([]string, error) {
	keys := []string{}
	err := b.db.WithContext(ctx).Model(&db.CacheEntry{}).Pluck("key", &keys).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	return keys, nil
}

func (b *GormBackend) Clear(ctx context.Context) error {
	err := b.db.WithContext(ctx).Exec("delete from cache_entries").Error
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

func (b *GormBackend) Close() error {
	// The gorm handle is shared with the rest of the app and closed by its owner.
	return nil
}
