package db

import (
	"time"

	"gorm.io/datatypes"
)

type UserConfig struct {
	ID        uint
	Key       string `gorm:"unique;not null"`
	Value     string
	Encrypted bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CacheEntry backs the fallback cache engine. Values are stored as opaque
// strings keyed by the same key space the primary engine uses.
type CacheEntry struct {
	Key       string `gorm:"primaryKey"`
	Value     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Profile struct {
	ID        string `validate:"required" gorm:"primaryKey"`
	Name      string `validate:"required"`
	State     string
	AvatarRef string
	Metadata  datatypes.JSON
	CreatedAt time.Time
	UpdatedAt time.Time
}

type WardrobeItem struct {
	ID        string `validate:"required" gorm:"primaryKey"`
	ProfileID string `gorm:"index"`
	Name      string `validate:"required"`
	Category  string
	Color     string
	ImageRef  string
	Tags      datatypes.JSON
	SyncState string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type TelemetryEvent struct {
	ID        uint
	Feature   string
	Operation string
	Key       string
	Error     string
	Tags      datatypes.JSON
	CreatedAt time.Time
}
