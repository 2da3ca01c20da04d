package service

import (
	"gorm.io/gorm"

	"github.com/dressinghq/dressinghub/config"
	"github.com/dressinghq/dressinghub/events"
	"github.com/dressinghq/dressinghub/pkg/catalog"
	"github.com/dressinghq/dressinghub/profiles"
	"github.com/dressinghq/dressinghub/recommendations"
	"github.com/dressinghq/dressinghub/state"
	"github.com/dressinghq/dressinghub/storage"
	"github.com/dressinghq/dressinghub/telemetry"
	"github.com/dressinghq/dressinghub/wardrobe"
)

type Service interface {
	Shutdown()

	// TODO: remove getters (currently used by the http service)
	GetDB() *gorm.DB
	GetConfig() config.Config
	GetEventPublisher() events.EventPublisher
	GetReporter() telemetry.Reporter
	GetCacheStore() *storage.Store
	GetProfilesService() profiles.ProfilesService
	GetWardrobeService() wardrobe.WardrobeService
	GetRecommendationsService() recommendations.RecommendationsService
	GetCatalogService() catalog.Service
	GetAuthState() *state.Container[state.AuthState]
	GetProfileState() *state.Container[state.ProfileState]
	GetSettingsState() *state.Container[state.SettingsState]
}
