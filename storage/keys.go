package storage

// Core persisted state lives under these keys. The strings are a stable
// contract shared with the frontend and must not change between releases.
const (
	KeyAuthState            = "auth-state"
	KeyProfileState         = "profile-state"
	KeySettingsState        = "settings-state"
	KeyWardrobeCache        = "wardrobe-cache"
	KeyRecommendationsCache = "recommendations-cache"
	KeyLastSync             = "last-sync"
	KeyLastActivity         = "last-activity"
)
