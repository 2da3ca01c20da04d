package api

import (
	"context"
	"time"
)

type API interface {
	Setup(ctx context.Context, setupRequest *SetupRequest) error
	ChangeUnlockPassword(changeUnlockPasswordRequest *ChangeUnlockPasswordRequest) error
	SetAutoUnlockPassword(unlockPassword string) error
	GetInfo(ctx context.Context) (*InfoResponse, error)
	Health(ctx context.Context) (*HealthResponse, error)

	ListProfiles(ctx context.Context) (*ListProfilesResponse, error)
	CreateProfile(ctx context.Context, createProfileRequest *CreateProfileRequest) (*Profile, error)
	RenameProfile(ctx context.Context, profileId string, renameProfileRequest *RenameProfileRequest) (*Profile, error)
	DeleteProfile(ctx context.Context, profileId string) error
	SwitchProfile(ctx context.Context, profileId string) (*SwitchProfileResponse, error)

	ListWardrobeItems(ctx context.Context, profileId string) (*ListWardrobeItemsResponse, error)
	AddWardrobeItem(ctx context.Context, addWardrobeItemRequest *AddWardrobeItemRequest) (*WardrobeItem, error)
	DeleteWardrobeItem(ctx context.Context, itemId string) error

	GetRecommendations(ctx context.Context) (*RecommendationsResponse, error)
	RefreshRecommendations(ctx context.Context) (*RecommendationsResponse, error)

	GetSettings() *SettingsResponse
	UpdateSettings(ctx context.Context, updateSettingsRequest *UpdateSettingsRequest) (*SettingsResponse, error)

	GetDiagnostics(ctx context.Context, limit uint64) (*DiagnosticsResponse, error)
	GetLogOutput(ctx context.Context, getLogRequest *GetLogOutputRequest) (*GetLogOutputResponse, error)
	SendEvent(event string, properties interface{})
	Logout(ctx context.Context) error
}

type SetupRequest struct {
	UnlockPassword string `json:"unlockPassword"`
}

type UnlockRequest struct {
	UnlockPassword string `json:"unlockPassword"`
}

type ChangeUnlockPasswordRequest struct {
	CurrentUnlockPassword string `json:"currentUnlockPassword"`
	NewUnlockPassword     string `json:"newUnlockPassword"`
}

type AutoUnlockRequest struct {
	UnlockPassword string `json:"unlockPassword"`
}

type InfoResponse struct {
	SetupCompleted              bool   `json:"setupCompleted"`
	Unlocked                    bool   `json:"unlocked"`
	Version                     string `json:"version"`
	CacheBackend                string `json:"cacheBackend"`
	AutoUnlockPasswordSupported bool   `json:"autoUnlockPasswordSupported"`
	AutoUnlockPasswordEnabled   bool   `json:"autoUnlockPasswordEnabled"`
	WorkDir                     string `json:"workDir"`
	CatalogVersion              string `json:"catalogVersion"`
	BackendConfigured           bool   `json:"backendConfigured"`
	ActiveProfileId             string `json:"activeProfileId,omitempty"`
	LastSyncAt                  int64  `json:"lastSyncAt,omitempty"`
	LastActivityAt              int64  `json:"lastActivityAt,omitempty"`
}

type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	State     string    `json:"state"`
	AvatarRef string    `json:"avatarRef,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CreateProfileRequest struct {
	Name string `json:"name"`
}

type RenameProfileRequest struct {
	Name string `json:"name"`
}

type ListProfilesResponse struct {
	Profiles        []Profile `json:"profiles"`
	ActiveProfileId string    `json:"activeProfileId,omitempty"`
}

type SwitchProfileResponse struct {
	ActiveProfileId string `json:"activeProfileId"`
	PendingSwitches int    `json:"pendingSwitches"`
}

type WardrobeItem struct {
	ID        string    `json:"id"`
	ProfileID string    `json:"profileId"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Color     string    `json:"color"`
	ImageRef  string    `json:"imageRef,omitempty"`
	Tags      []string  `json:"tags"`
	SyncState string    `json:"syncState"`
	CreatedAt time.Time `json:"createdAt"`
}

type AddWardrobeItemRequest struct {
	ProfileId string   `json:"profileId,omitempty"`
	Name      string   `json:"name"`
	Color     string   `json:"color"`
	ImageRef  string   `json:"imageRef,omitempty"`
	Tags      []string `json:"tags"`
}

type ListWardrobeItemsResponse struct {
	Items []WardrobeItem `json:"items"`
}

type Outfit struct {
	TopID    string `json:"topId"`
	BottomID string `json:"bottomId"`
	ShoesID  string `json:"shoesId,omitempty"`
}

type RecommendationsResponse struct {
	ProfileId string   `json:"profileId"`
	Outfits   []Outfit `json:"outfits"`
	UpdatedAt int64    `json:"updatedAt"`
}

type SettingsResponse struct {
	Theme                string `json:"theme"`
	Language             string `json:"language"`
	NotificationsEnabled bool   `json:"notificationsEnabled"`
}

type UpdateSettingsRequest struct {
	Theme                string `json:"theme"`
	Language             string `json:"language"`
	NotificationsEnabled *bool  `json:"notificationsEnabled"`
}

type DiagnosticsEntry struct {
	ID        uint      `json:"id"`
	Feature   string    `json:"feature"`
	Operation string    `json:"operation"`
	Key       string    `json:"key,omitempty"`
	Error     string    `json:"error"`
	CreatedAt time.Time `json:"createdAt"`
}

type DiagnosticsResponse struct {
	Entries []DiagnosticsEntry `json:"entries"`
}

type GetLogOutputRequest struct {
	MaxLen int `query:"maxLen"`
}

type GetLogOutputResponse struct {
	Log string `json:"logs"`
}

type SendEventRequest struct {
	Event      string      `json:"event"`
	Properties interface{} `json:"properties,omitempty"`
}

type HealthAlarmKind string

const (
	HealthAlarmKindCacheDegraded  HealthAlarmKind = "cache_degraded"
	HealthAlarmKindBackendOffline HealthAlarmKind = "backend_offline"
)

type HealthAlarm struct {
	Kind       HealthAlarmKind `json:"kind"`
	RawDetails any             `json:"rawDetails,omitempty"`
}

func NewHealthAlarm(kind HealthAlarmKind, rawDetails any) HealthAlarm {
	return HealthAlarm{
		Kind:       kind,
		RawDetails: rawDetails,
	}
}

type HealthResponse struct {
	Alarms []HealthAlarm `json:"alarms,omitempty"`
}
