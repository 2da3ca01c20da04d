package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"gorm.io/gorm"

	"github.com/dressinghq/dressinghub/config"
	"github.com/dressinghq/dressinghub/constants"
	"github.com/dressinghq/dressinghub/db"
	"github.com/dressinghq/dressinghub/events"
	"github.com/dressinghq/dressinghub/logger"
	"github.com/dressinghq/dressinghub/pkg/catalog"
	"github.com/dressinghq/dressinghub/pkg/remote"
	"github.com/dressinghq/dressinghub/pkg/version"
	"github.com/dressinghq/dressinghub/profiles"
	"github.com/dressinghq/dressinghub/recommendations"
	"github.com/dressinghq/dressinghub/service"
	"github.com/dressinghq/dressinghub/state"
	"github.com/dressinghq/dressinghub/storage"
	"github.com/dressinghq/dressinghub/utils"
	"github.com/dressinghq/dressinghub/wardrobe"
)

type api struct {
	db                 *gorm.DB
	cfg                config.Config
	svc                service.Service
	eventPublisher     events.EventPublisher
	store              *storage.Store
	profilesSvc        profiles.ProfilesService
	wardrobeSvc        wardrobe.WardrobeService
	recommendationsSvc recommendations.RecommendationsService
	catalogSvc         catalog.Service
	remoteClient       *remote.Client
	authState          *state.Container[state.AuthState]
	profileState       *state.Container[state.ProfileState]
	settingsState      *state.Container[state.SettingsState]
}

func NewAPI(svc service.Service, gormDB *gorm.DB, config config.Config, eventPublisher events.EventPublisher) *api {
	return &api{
		db:                 gormDB,
		cfg:                config,
		svc:                svc,
		eventPublisher:     eventPublisher,
		store:              svc.GetCacheStore(),
		profilesSvc:        svc.GetProfilesService(),
		wardrobeSvc:        svc.GetWardrobeService(),
		recommendationsSvc: svc.GetRecommendationsService(),
		catalogSvc:         svc.GetCatalogService(),
		remoteClient:       remote.NewClient(config),
		authState:          svc.GetAuthState(),
		profileState:       svc.GetProfileState(),
		settingsState:      svc.GetSettingsState(),
	}
}

var startMutex sync.Mutex

func (api *api) Setup(ctx context.Context, setupRequest *SetupRequest) error {
	if !startMutex.TryLock() {
		// do not allow to setup twice in case this is somehow called twice
		return errors.New("app is busy")
	}
	defer startMutex.Unlock()

	if api.cfg.SetupCompleted() {
		logger.Logger.Error().Msg("Cannot re-setup an already configured hub")
		return errors.New("setup already completed")
	}

	if setupRequest.UnlockPassword == "" {
		return errors.New("no unlock password provided")
	}

	err := api.cfg.SaveUnlockPasswordCheck(setupRequest.UnlockPassword)
	if err != nil {
		return err
	}

	return nil
}

func (api *api) ChangeUnlockPassword(changeUnlockPasswordRequest *ChangeUnlockPasswordRequest) error {
	autoUnlockPassword, err := api.cfg.Get("AutoUnlockPassword", "")
	if err != nil {
		return err
	}
	if autoUnlockPassword != "" {
		return errors.New("please disable auto-unlock before using this feature")
	}

	err = api.cfg.ChangeUnlockPassword(changeUnlockPasswordRequest.CurrentUnlockPassword, changeUnlockPasswordRequest.NewUnlockPassword)

	if err != nil {
		logger.Logger.Error().Err(err).Msg("failed to change unlock password")
		return err
	}

	return nil
}

func (api *api) SetAutoUnlockPassword(unlockPassword string) error {
	err := api.cfg.SetAutoUnlockPassword(unlockPassword)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("failed to set auto unlock password")
		return err
	}

	return nil
}

func (api *api) GetInfo(ctx context.Context) (*InfoResponse, error) {
	info := InfoResponse{}
	autoUnlockPassword, err := api.cfg.Get("AutoUnlockPassword", "")
	if err != nil {
		return nil, err
	}
	info.SetupCompleted = api.cfg.SetupCompleted()
	info.Version = version.Tag
	info.CacheBackend = string(api.store.Kind())
	info.AutoUnlockPasswordSupported = true
	info.AutoUnlockPasswordEnabled = autoUnlockPassword != ""
	info.WorkDir = api.cfg.GetEnv().Workdir
	info.CatalogVersion = api.catalogSvc.Version()
	info.BackendConfigured = api.cfg.GetBackendURL() != ""
	info.ActiveProfileId = api.profilesSvc.ActiveProfileID()

	if lastSync, err := storage.GetJSON[int64](ctx, api.store, storage.KeyLastSync); err == nil && lastSync != nil {
		info.LastSyncAt = *lastSync
	}
	if lastActivity, ok, err := storage.LastActivity(ctx, api.store); err == nil && ok {
		info.LastActivityAt = lastActivity.UnixMilli()
	}

	return &info, nil
}

func (api *api) Health(ctx context.Context) (*HealthResponse, error) {
	var alarms []HealthAlarm

	if api.store.Kind() == storage.BackendFallback {
		alarms = append(alarms, NewHealthAlarm(HealthAlarmKindCacheDegraded, map[string]interface{}{
			"backend": string(api.store.Kind()),
		}))
	}

	if api.cfg.GetBackendURL() != "" {
		if err := api.remoteClient.Ping(ctx); err != nil {
			alarms = append(alarms, NewHealthAlarm(HealthAlarmKindBackendOffline, err.Error()))
		}
	}

	return &HealthResponse{Alarms: alarms}, nil
}

func (api *api) ListProfiles(ctx context.Context) (*ListProfilesResponse, error) {
	dbProfiles, err := api.profilesSvc.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}

	apiProfiles := make([]Profile, 0, len(dbProfiles))
	for i := range dbProfiles {
		apiProfiles = append(apiProfiles, *toApiProfile(&dbProfiles[i]))
	}

	return &ListProfilesResponse{
		Profiles:        apiProfiles,
		ActiveProfileId: api.profilesSvc.ActiveProfileID(),
	}, nil
}

func (api *api) CreateProfile(ctx context.Context, createProfileRequest *CreateProfileRequest) (*Profile, error) {
	dbProfile, err := api.profilesSvc.CreateProfile(ctx, createProfileRequest.Name)
	if err != nil {
		return nil, err
	}
	return toApiProfile(dbProfile), nil
}

func (api *api) RenameProfile(ctx context.Context, profileId string, renameProfileRequest *RenameProfileRequest) (*Profile, error) {
	dbProfile, err := api.profilesSvc.RenameProfile(ctx, profileId, renameProfileRequest.Name)
	if err != nil {
		return nil, err
	}
	return toApiProfile(dbProfile), nil
}

func (api *api) DeleteProfile(ctx context.Context, profileId string) error {
	return api.profilesSvc.DeleteProfile(ctx, profileId)
}

func (api *api) SwitchProfile(ctx context.Context, profileId string) (*SwitchProfileResponse, error) {
	profileState, err := api.profilesSvc.SwitchProfile(ctx, profileId)
	if err != nil {
		return nil, err
	}

	return &SwitchProfileResponse{
		ActiveProfileId: profileState.ActiveProfileID,
		PendingSwitches: len(profileState.PendingSwitches),
	}, nil
}

func (api *api) ListWardrobeItems(ctx context.Context, profileId string) (*ListWardrobeItemsResponse, error) {
	profileId, err := api.resolveProfileId(profileId)
	if err != nil {
		return nil, err
	}

	dbItems, err := api.wardrobeSvc.ListItems(ctx, profileId)
	if err != nil {
		return nil, err
	}

	items := make([]WardrobeItem, 0, len(dbItems))
	for i := range dbItems {
		items = append(items, *toApiWardrobeItem(&dbItems[i]))
	}

	return &ListWardrobeItemsResponse{Items: items}, nil
}

func (api *api) AddWardrobeItem(ctx context.Context, addWardrobeItemRequest *AddWardrobeItemRequest) (*WardrobeItem, error) {
	profileId, err := api.resolveProfileId(addWardrobeItemRequest.ProfileId)
	if err != nil {
		return nil, err
	}

	if _, err := api.profilesSvc.GetProfile(ctx, profileId); err != nil {
		return nil, err
	}

	dbItem, err := api.wardrobeSvc.AddItem(
		ctx,
		profileId,
		addWardrobeItemRequest.Name,
		addWardrobeItemRequest.Color,
		addWardrobeItemRequest.ImageRef,
		addWardrobeItemRequest.Tags,
	)
	if err != nil {
		return nil, err
	}

	return toApiWardrobeItem(dbItem), nil
}

func (api *api) DeleteWardrobeItem(ctx context.Context, itemId string) error {
	profileId, err := api.resolveProfileId("")
	if err != nil {
		return err
	}

	return api.wardrobeSvc.DeleteItem(ctx, profileId, itemId)
}

func (api *api) GetRecommendations(ctx context.Context) (*RecommendationsResponse, error) {
	profileId, err := api.resolveProfileId("")
	if err != nil {
		return nil, err
	}

	snapshot, err := api.recommendationsSvc.Get(ctx, profileId)
	if err != nil {
		return nil, err
	}

	return toRecommendationsResponse(snapshot), nil
}

func (api *api) RefreshRecommendations(ctx context.Context) (*RecommendationsResponse, error) {
	profileId, err := api.resolveProfileId("")
	if err != nil {
		return nil, err
	}

	snapshot, err := api.recommendationsSvc.Refresh(ctx, profileId)
	if err != nil {
		return nil, err
	}

	return toRecommendationsResponse(snapshot), nil
}

func (api *api) GetSettings() *SettingsResponse {
	settings := api.settingsState.Get()

	theme := settings.Theme
	if theme == "" {
		theme = constants.DEFAULT_THEME
	}
	language := settings.Language
	if language == "" {
		language = constants.DEFAULT_LANGUAGE
	}

	return &SettingsResponse{
		Theme:                theme,
		Language:             language,
		NotificationsEnabled: settings.NotificationsEnabled,
	}
}

func (api *api) UpdateSettings(ctx context.Context, updateSettingsRequest *UpdateSettingsRequest) (*SettingsResponse, error) {
	if updateSettingsRequest.Theme != "" && !slices.Contains(constants.GetThemes(), updateSettingsRequest.Theme) {
		return nil, fmt.Errorf("unknown theme: %s", updateSettingsRequest.Theme)
	}

	api.settingsState.Update(ctx, func(settings *state.SettingsState) {
		if updateSettingsRequest.Theme != "" {
			settings.Theme = updateSettingsRequest.Theme
		}
		if updateSettingsRequest.Language != "" {
			settings.Language = updateSettingsRequest.Language
		}
		if updateSettingsRequest.NotificationsEnabled != nil {
			settings.NotificationsEnabled = *updateSettingsRequest.NotificationsEnabled
		}
	})

	return api.GetSettings(), nil
}

func (api *api) GetDiagnostics(ctx context.Context, limit uint64) (*DiagnosticsResponse, error) {
	if limit == 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	var telemetryEvents []db.TelemetryEvent
	err := api.db.WithContext(ctx).Order("id desc").Limit(int(limit)).Find(&telemetryEvents).Error
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to fetch telemetry events")
		return nil, err
	}

	entries := make([]DiagnosticsEntry, 0, len(telemetryEvents))
	for _, telemetryEvent := range telemetryEvents {
		entries = append(entries, DiagnosticsEntry{
			ID:        telemetryEvent.ID,
			Feature:   telemetryEvent.Feature,
			Operation: telemetryEvent.Operation,
			Key:       telemetryEvent.Key,
			Error:     telemetryEvent.Error,
			CreatedAt: telemetryEvent.CreatedAt,
		})
	}

	return &DiagnosticsResponse{Entries: entries}, nil
}

func (api *api) GetLogOutput(ctx context.Context, getLogRequest *GetLogOutputRequest) (*GetLogOutputResponse, error) {
	var logData []byte

	logFileName := logger.GetLogFilePath()
	if logFileName == "" {
		logData = []byte("file log is disabled")
	} else {
		var err error
		logData, err = utils.ReadFileTail(logFileName, getLogRequest.MaxLen)
		if err != nil {
			return nil, err
		}
	}

	return &GetLogOutputResponse{Log: string(logData)}, nil
}

func (api *api) SendEvent(event string, properties interface{}) {
	api.eventPublisher.Publish(&events.Event{
		Event:      event,
		Properties: properties,
	})
}

// Logout wipes every cached key and resets the in-memory state snapshots.
// The relational wardrobe data is left untouched.
func (api *api) Logout(ctx context.Context) error {
	logger.Logger.Info().Msg("Clearing cached state for logout")

	if err := api.store.ClearAllContext(ctx); err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to clear cache store")
		return err
	}

	api.authState.Reset(ctx)
	api.profileState.Reset(ctx)
	api.settingsState.Reset(ctx)

	api.eventPublisher.Publish(&events.Event{
		Event: "hub_logged_out",
	})

	return nil
}

// resolveProfileId falls back to the active profile when no explicit id was
// given.
func (api *api) resolveProfileId(profileId string) (string, error) {
	if profileId == "" {
		profileId = api.profilesSvc.ActiveProfileID()
	}
	if profileId == "" {
		return "", errors.New("no active profile")
	}
	return profileId, nil
}

func toApiProfile(dbProfile *db.Profile) *Profile {
	return &Profile{
		ID:        dbProfile.ID,
		Name:      dbProfile.Name,
		State:     dbProfile.State,
		AvatarRef: dbProfile.AvatarRef,
		CreatedAt: dbProfile.CreatedAt,
		UpdatedAt: dbProfile.UpdatedAt,
	}
}

func toApiWardrobeItem(dbItem *db.WardrobeItem) *WardrobeItem {
	tags := []string{}
	if len(dbItem.Tags) > 0 {
		if err := json.Unmarshal(dbItem.Tags, &tags); err != nil {
			logger.Logger.Error().Err(err).Str("item_id", dbItem.ID).Msg("Failed to deserialize item tags")
			tags = []string{}
		}
	}

	return &WardrobeItem{
		ID:        dbItem.ID,
		ProfileID: dbItem.ProfileID,
		Name:      dbItem.Name,
		Category:  dbItem.Category,
		Color:     dbItem.Color,
		ImageRef:  dbItem.ImageRef,
		Tags:      tags,
		SyncState: dbItem.SyncState,
		CreatedAt: dbItem.CreatedAt,
	}
}

func toRecommendationsResponse(snapshot *recommendations.CacheSnapshot) *RecommendationsResponse {
	outfits := make([]Outfit, 0, len(snapshot.Outfits))
	for _, outfit := range snapshot.Outfits {
		outfits = append(outfits, Outfit{
			TopID:    outfit.TopID,
			BottomID: outfit.BottomID,
			ShoesID:  outfit.ShoesID,
		})
	}

	return &RecommendationsResponse{
		ProfileId: snapshot.ProfileID,
		Outfits:   outfits,
		UpdatedAt: snapshot.UpdatedAt,
	}
}
