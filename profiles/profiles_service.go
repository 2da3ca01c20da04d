package profiles

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dressinghq/dressinghub/constants"
	"github.com/dressinghq/dressinghub/db"
	"github.com/dressinghq/dressinghub/events"
	"github.com/dressinghq/dressinghub/logger"
	"github.com/dressinghq/dressinghub/pkg/remote"
	"github.com/dressinghq/dressinghub/state"
	"github.com/dressinghq/dressinghub/storage"
	"github.com/dressinghq/dressinghub/utils"
)

var (
	ErrProfileLimitReached = errors.New("profile limit reached")
	ErrProfileNotFound     = errors.New("profile not found")
	ErrProfileActive       = errors.New("cannot delete the active profile")
)

type ProfilesService interface {
	StartSyncService(ctx context.Context)
	CreateProfile(ctx context.Context, name string) (*db.Profile, error)
	ListProfiles(ctx context.Context) ([]db.Profile, error)
	GetProfile(ctx context.Context, profileId string) (*db.Profile, error)
	RenameProfile(ctx context.Context, profileId string, name string) (*db.Profile, error)
	DeleteProfile(ctx context.Context, profileId string) error
	SwitchProfile(ctx context.Context, profileId string) (state.ProfileState, error)
	ActiveProfileID() string
}

// profilesService handles the business logic for profile persistence and the
// active-profile switch flow.
type profilesService struct {
	db             *gorm.DB
	store          *storage.Store
	profileState   *state.Container[state.ProfileState]
	remoteClient   *remote.Client
	eventPublisher events.EventPublisher
}

func NewProfilesService(gormDB *gorm.DB, store *storage.Store, profileState *state.Container[state.ProfileState], remoteClient *remote.Client, eventPublisher events.EventPublisher) *profilesService {
	return &profilesService{
		db:             gormDB,
		store:          store,
		profileState:   profileState,
		remoteClient:   remoteClient,
		eventPublisher: eventPublisher,
	}
}

func (svc *profilesService) CreateProfile(ctx context.Context, name string) (*db.Profile, error) {
	if err := utils.ValidateName(name, constants.MAX_NAME_LENGTH); err != nil {
		return nil, err
	}

	var count int64
	if err := svc.db.WithContext(ctx).Model(&db.Profile{}).Count(&count).Error; err != nil {
		return nil, err
	}
	if count >= constants.MAX_PROFILES {
		return nil, ErrProfileLimitReached
	}

	profile := db.Profile{
		ID:        uuid.New().String(),
		Name:      name,
		State:     constants.PROFILE_STATE_ACTIVE,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := svc.db.WithContext(ctx).Create(&profile).Error; err != nil {
		return nil, err
	}

	svc.eventPublisher.Publish(&events.Event{
		Event: "profile_created",
		Properties: map[string]interface{}{
			"id":   profile.ID,
			"name": profile.Name,
		},
	})
	return &profile, nil
}

func (svc *profilesService) ListProfiles(ctx context.Context) ([]db.Profile, error) {
	var profiles []db.Profile
	if err := svc.db.WithContext(ctx).Order("created_at asc").Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

func (svc *profilesService) GetProfile(ctx context.Context, profileId string) (*db.Profile, error) {
	var profile db.Profile
	err := svc.db.WithContext(ctx).First(&profile, "id = ?", profileId).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (svc *profilesService) RenameProfile(ctx context.Context, profileId string, name string) (*db.Profile, error) {
	if err := utils.ValidateName(name, constants.MAX_NAME_LENGTH); err != nil {
		return nil, err
	}

	profile, err := svc.GetProfile(ctx, profileId)
	if err != nil {
		return nil, err
	}

	if err := svc.db.WithContext(ctx).Model(profile).Where("id = ?", profile.ID).Updates(map[string]interface{}{
		"name":       name,
		"updated_at": time.Now(),
	}).Error; err != nil {
		return nil, err
	}

	profile.Name = name
	return profile, nil
}

// DeleteProfile removes a profile and everything hanging off it. The active
// profile cannot be deleted.
func (svc *profilesService) DeleteProfile(ctx context.Context, profileId string) error {
	if svc.ActiveProfileID() == profileId {
		return ErrProfileActive
	}

	profile, err := svc.GetProfile(ctx, profileId)
	if err != nil {
		return err
	}

	err = svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("profile_id = ?", profile.ID).Delete(&db.WardrobeItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(profile).Error
	})
	if err != nil {
		return err
	}

	svc.clearProfileCaches(ctx, profile.ID)
	svc.profileState.Update(ctx, func(profileState *state.ProfileState) {
		profileState.PendingSwitches = utils.Filter(profileState.PendingSwitches, func(pendingSwitch state.PendingSwitch) bool {
			return pendingSwitch.ProfileID != profile.ID
		})
	})

	svc.eventPublisher.Publish(&events.Event{
		Event: "profile_deleted",
		Properties: map[string]interface{}{
			"id": profile.ID,
		},
	})
	return nil
}

// SwitchProfile makes the profile active. The switch is pushed to the backend
// right away when it is reachable; otherwise a pending marker is recorded and
// the sync loop uploads it later.
func (svc *profilesService) SwitchProfile(ctx context.Context, profileId string) (state.ProfileState, error) {
	profile, err := svc.GetProfile(ctx, profileId)
	if err != nil {
		return state.ProfileState{}, err
	}

	requestedAt := time.Now().UnixMilli()
	pushed := false
	err = svc.remoteClient.PushProfileSwitches(ctx, []remote.ProfileSwitch{
		{ProfileID: profile.ID, RequestedAt: requestedAt},
	})
	if err != nil {
		logger.Logger.Debug().Err(err).Str("profileId", profile.ID).Msg("Backend unreachable, recording pending profile switch")
	} else {
		pushed = true
	}

	profileState := svc.profileState.Update(ctx, func(profileState *state.ProfileState) {
		profileState.ActiveProfileID = profile.ID
		if !pushed {
			profileState.PendingSwitches = append(profileState.PendingSwitches, state.PendingSwitch{
				ProfileID:   profile.ID,
				RequestedAt: requestedAt,
			})
		}
	})

	svc.eventPublisher.Publish(&events.Event{
		Event: "profile_switched",
		Properties: map[string]interface{}{
			"id":     profile.ID,
			"pushed": pushed,
		},
	})
	return profileState, nil
}

func (svc *profilesService) ActiveProfileID() string {
	return svc.profileState.Get().ActiveProfileID
}

// clearProfileCaches drops cached snapshots that belong to the given profile.
// The snapshots only ever describe one profile, so a mismatch means there is
// nothing to clear.
func (svc *profilesService) clearProfileCaches(ctx context.Context, profileId string) {
	type profileScoped struct {
		ProfileID string `json:"profileId"`
	}

	for _, key := range []string{storage.KeyWardrobeCache, storage.KeyRecommendationsCache} {
		snapshot, err := storage.GetJSON[profileScoped](ctx, svc.store, key)
		if err != nil || snapshot == nil {
			continue
		}
		if snapshot.ProfileID != profileId {
			continue
		}
		if err := svc.store.DeleteContext(ctx, key); err != nil {
			logger.Logger.Error().Err(err).Str("key", key).Msg("Failed to clear profile cache")
		}
	}
}
