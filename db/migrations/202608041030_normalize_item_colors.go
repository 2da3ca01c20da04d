package migrations

import (
	"gorm.io/gorm"
)

// MigrateNormalizeColors lowercases stored wardrobe item colors.
// Color lookups compare lowercased values, so mixed-case rows written by
// older versions would never match.
func MigrateNormalizeColors(db *gorm.DB) error {
	// Check if the table exists. If not (fresh DB), AutoMigrate will create it correctly.
	if !db.Migrator().HasTable("wardrobe_items") {
		return nil
	}

	return db.Exec("UPDATE wardrobe_items SET color = LOWER(color) WHERE color != LOWER(color)").Error
}
