package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

type CacheEntry struct {
	Key   string `gorm:"primaryKey"`
	Value string
}

var _202606151200_add_cache_entries_table = &gormigrate.Migration{
	ID: "202606151200_add_cache_entries_table",
	Migrate: func(tx *gorm.DB) error {
		return tx.AutoMigrate(&CacheEntry{})
	},
	Rollback: func(tx *gorm.DB) error {
		return tx.Migrator().DropTable(&CacheEntry{})
	},
}
