package migrations

import (
	"github.com/dressinghq/dressinghub/db"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func Migrate(gormDB *gorm.DB) error {
	// Run manual migrations first (for schema changes AutoMigrate can't handle)
	if err := MigrateNormalizeColors(gormDB); err != nil {
		return err
	}

	m := gormigrate.New(gormDB, gormigrate.DefaultOptions, []*gormigrate.Migration{
		_202606151200_add_cache_entries_table,
	})
	if err := m.Migrate(); err != nil {
		return err
	}

	// AutoMigrate all core models
	return gormDB.AutoMigrate(
		&db.UserConfig{},
		&db.CacheEntry{},
		&db.Profile{},
		&db.WardrobeItem{},
		&db.TelemetryEvent{},
	)
}
