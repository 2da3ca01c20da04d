package constants

import "time"

// shared constants used by multiple packages

const (
	// MAX_PROFILES caps how many wardrobe profiles a single hub can hold.
	MAX_PROFILES = 5

	PROFILE_STATE_ACTIVE   = "active"
	PROFILE_STATE_ARCHIVED = "archived"
)

const (
	CATEGORY_TOP       = "top"
	CATEGORY_BOTTOM    = "bottom"
	CATEGORY_DRESS     = "dress"
	CATEGORY_OUTERWEAR = "outerwear"
	CATEGORY_SHOES     = "shoes"
	CATEGORY_ACCESSORY = "accessory"
)

func GetCategories() []string {
	return []string{
		CATEGORY_TOP,
		CATEGORY_BOTTOM,
		CATEGORY_DRESS,
		CATEGORY_OUTERWEAR,
		CATEGORY_SHOES,
		CATEGORY_ACCESSORY,
	}
}

const (
	ITEM_SYNC_STATE_PENDING = "PENDING"
	ITEM_SYNC_STATE_SYNCED  = "SYNCED"
	ITEM_SYNC_STATE_FAILED  = "FAILED"
)

const (
	THEME_SYSTEM = "system"
	THEME_LIGHT  = "light"
	THEME_DARK   = "dark"

	DEFAULT_THEME    = THEME_SYSTEM
	DEFAULT_LANGUAGE = "en"
)

func GetThemes() []string {
	return []string{
		THEME_SYSTEM,
		THEME_LIGHT,
		THEME_DARK,
	}
}

const CATALOG_SYNC_INTERVAL = 6 * time.Hour
const CATALOG_CACHE_DIR = "catalog-cache"

const PROFILE_SYNC_INTERVAL = 1 * time.Minute

// MAX_RECOMMENDATIONS caps how many outfit pairings a refresh produces.
const MAX_RECOMMENDATIONS = 10

// Entries under the last-activity key older than this are considered stale by
// the maintenance sweep; storage itself never expires anything.
const LAST_ACTIVITY_MAX_AGE = 30 * 24 * time.Hour

// limit stored profile and item names, the frontend enforces the same bound
const MAX_NAME_LENGTH = 64
