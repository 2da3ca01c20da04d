package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gorm.io/gorm"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/dressinghq/dressinghub/config"
	"github.com/dressinghq/dressinghub/db"
	"github.com/dressinghq/dressinghub/db/migrations"
	"github.com/dressinghq/dressinghub/events"
	"github.com/dressinghq/dressinghub/logger"
	"github.com/dressinghq/dressinghub/pkg/catalog"
	"github.com/dressinghq/dressinghub/pkg/remote"
	"github.com/dressinghq/dressinghub/pkg/version"
	"github.com/dressinghq/dressinghub/profiles"
	"github.com/dressinghq/dressinghub/recommendations"
	"github.com/dressinghq/dressinghub/state"
	"github.com/dressinghq/dressinghub/storage"
	"github.com/dressinghq/dressinghub/telemetry"
	"github.com/dressinghq/dressinghub/wardrobe"
)

type service struct {
	cfg config.Config

	db                     *gorm.DB
	store                  *storage.Store
	eventPublisher         events.EventPublisher
	reporter               telemetry.Reporter
	profilesService        profiles.ProfilesService
	wardrobeService        wardrobe.WardrobeService
	recommendationsService recommendations.RecommendationsService
	catalogService         catalog.Service
	authState              *state.Container[state.AuthState]
	profileState           *state.Container[state.ProfileState]
	settingsState          *state.Container[state.SettingsState]
	ctx                    context.Context
}

func NewService(ctx context.Context) (*service, error) {
	// Load config from environment variables / .env file
	godotenv.Load(".env")
	appConfig := &config.AppConfig{}
	err := envconfig.Process("", appConfig)
	if err != nil {
		return nil, err
	}

	logger.Init(appConfig.LogLevel)
	logger.Logger.Info().Msg("DressingHub " + version.Tag)

	if appConfig.Workdir == "" {
		appConfig.Workdir = filepath.Join(xdg.DataHome, "/dressinghub")
		logger.Logger.Info().Interface("workdir", appConfig.Workdir).Msg("No workdir specified, using default")
	}
	// make sure workdir exists
	os.MkdirAll(appConfig.Workdir, os.ModePerm)

	if appConfig.LogToFile {
		err = logger.AddFileLogger(appConfig.Workdir)
		if err != nil {
			return nil, err
		}
	}

	// If DATABASE_URI is a URI or a path, leave it unchanged.
	// If it only contains a filename, prepend the workdir.
	if !strings.HasPrefix(appConfig.DatabaseUri, "file:") {
		databasePath, _ := filepath.Split(appConfig.DatabaseUri)
		if databasePath == "" {
			appConfig.DatabaseUri = filepath.Join(appConfig.Workdir, appConfig.DatabaseUri)
		}
	}

	gormDB, err := db.NewDB(appConfig.DatabaseUri, appConfig.LogDBQueries)
	if err != nil {
		return nil, err
	}
	err = migrations.Migrate(gormDB)
	if err != nil {
		return nil, err
	}

	cfg, err := config.NewConfig(appConfig, gormDB)
	if err != nil {
		return nil, err
	}

	// write auto unlock password from env to user config
	if appConfig.AutoUnlockPassword != "" {
		err = cfg.SetUpdate("AutoUnlockPassword", appConfig.AutoUnlockPassword, "")
		if err != nil {
			return nil, err
		}
	}
	autoUnlockPassword, err := cfg.Get("AutoUnlockPassword", "")
	if err != nil {
		return nil, err
	}

	eventPublisher := events.NewEventPublisher()
	reporter := telemetry.NewReporter(eventPublisher)
	eventPublisher.RegisterSubscriber(telemetry.NewEventConsumer(gormDB))

	store := storage.Open(storage.Config{
		Dir:           appConfig.Workdir,
		EncryptionKey: appConfig.StorageEncryptionKey,
		DB:            gormDB,
	}, reporter)
	storage.SetDefault(store)

	authState := state.NewAuthContainer(store, reporter)
	profileState := state.NewProfileContainer(store, reporter)
	settingsState := state.NewSettingsContainer(store, reporter)
	if err := authState.Rehydrate(ctx); err != nil {
		logger.Logger.Error().Err(err).Str("state", storage.KeyAuthState).Msg("Failed to rehydrate state snapshot")
	}
	if err := profileState.Rehydrate(ctx); err != nil {
		logger.Logger.Error().Err(err).Str("state", storage.KeyProfileState).Msg("Failed to rehydrate state snapshot")
	}
	if err := settingsState.Rehydrate(ctx); err != nil {
		logger.Logger.Error().Err(err).Str("state", storage.KeySettingsState).Msg("Failed to rehydrate state snapshot")
	}

	remoteClient := remote.NewClient(cfg)

	svc := &service{
		cfg:            cfg,
		ctx:            ctx,
		eventPublisher: eventPublisher,
		reporter:       reporter,
		db:             gormDB,
		store:          store,
		authState:      authState,
		profileState:   profileState,
		settingsState:  settingsState,
	}

	svc.catalogService = catalog.NewCatalogService(cfg)
	svc.catalogService.Start(ctx)

	svc.profilesService = profiles.NewProfilesService(gormDB, store, profileState, remoteClient, eventPublisher)
	svc.profilesService.StartSyncService(ctx)

	svc.wardrobeService = wardrobe.NewWardrobeService(gormDB, store, svc.catalogService, eventPublisher, reporter)
	svc.recommendationsService = recommendations.NewRecommendationsService(gormDB, store, eventPublisher, reporter)

	eventPublisher.Publish(&events.Event{
		Event: "hub_started",
		Properties: map[string]interface{}{
			"version":      version.Tag,
			"cacheBackend": string(store.Kind()),
		},
	})

	if appConfig.GoProfilerAddr != "" {
		startProfiler(ctx, appConfig.GoProfilerAddr)
	}

	// unlock the config on startup so sessions survive a restart
	if autoUnlockPassword != "" && cfg.SetupCompleted() {
		err = cfg.Unlock(autoUnlockPassword)
		if err != nil {
			logger.Logger.Error().Err(err).Msg("Failed to unlock config with auto unlock password")
		}
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
				time.Sleep(10 * time.Minute)
				svc.removeExcessTelemetryEvents()
				svc.checkStaleActivity()
			}
		}
	}()

	return svc, nil
}

func startProfiler(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	go func() {
		logger.Logger.Info().Str("addr", addr).Msg("Starting pprof server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Error().Err(err).Msg("pprof server exited")
		}
	}()
}

func (svc *service) Shutdown() {
	svc.eventPublisher.PublishSync(&events.Event{
		Event: "hub_stopped",
	})
	err := svc.store.Close()
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to close cache store")
	}
	db.Stop(svc.db)
}

func (svc *service) GetDB() *gorm.DB {
	return svc.db
}

func (svc *service) GetConfig() config.Config {
	return svc.cfg
}

func (svc *service) GetEventPublisher() events.EventPublisher {
	return svc.eventPublisher
}

func (svc *service) GetReporter() telemetry.Reporter {
	return svc.reporter
}

func (svc *service) GetCacheStore() *storage.Store {
	return svc.store
}

func (svc *service) GetProfilesService() profiles.ProfilesService {
	return svc.profilesService
}

func (svc *service) GetWardrobeService() wardrobe.WardrobeService {
	return svc.wardrobeService
}

func (svc *service) GetRecommendationsService() recommendations.RecommendationsService {
	return svc.recommendationsService
}

func (svc *service) GetCatalogService() catalog.Service {
	return svc.catalogService
}

func (svc *service) GetAuthState() *state.Container[state.AuthState] {
	return svc.authState
}

func (svc *service) GetProfileState() *state.Container[state.ProfileState] {
	return svc.profileState
}

func (svc *service) GetSettingsState() *state.Container[state.SettingsState] {
	return svc.settingsState
}
