package wardrobe

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dressinghq/dressinghub/constants"
	"github.com/dressinghq/dressinghub/db"
	"github.com/dressinghq/dressinghub/db/queries"
	"github.com/dressinghq/dressinghub/events"
	"github.com/dressinghq/dressinghub/logger"
	"github.com/dressinghq/dressinghub/storage"
	"github.com/dressinghq/dressinghub/telemetry"
	"github.com/dressinghq/dressinghub/utils"
)

var (
	ErrItemNotFound = errors.New("wardrobe item not found")
	ErrInvalidColor = errors.New("color must be a catalog color or a hex value")
)

// ColorCatalog provides the recognized color names.
type ColorCatalog interface {
	Colors() []string
}

type WardrobeService interface {
	AddItem(ctx context.Context, profileId string, name string, color string, imageRef string, tags []string) (*db.WardrobeItem, error)
	ListItems(ctx context.Context, profileId string) ([]db.WardrobeItem, error)
	DeleteItem(ctx context.Context, profileId string, itemId string) error
	RefreshCacheSnapshot(ctx context.Context, profileId string)
}

// CacheSnapshot is the wardrobe summary cached under the wardrobe-cache key
// for the active profile.
type CacheSnapshot struct {
	ProfileID  string           `json:"profileId"`
	Total      int64            `json:"total"`
	ByCategory map[string]int64 `json:"byCategory"`
	Pending    int64            `json:"pending"`
	UpdatedAt  int64            `json:"updatedAt"`
}

type wardrobeService struct {
	db             *gorm.DB
	store          *storage.Store
	catalog        ColorCatalog
	eventPublisher events.EventPublisher
	reporter       telemetry.Reporter
}

func NewWardrobeService(gormDB *gorm.DB, store *storage.Store, catalog ColorCatalog, eventPublisher events.EventPublisher, reporter telemetry.Reporter) *wardrobeService {
	return &wardrobeService{
		db:             gormDB,
		store:          store,
		catalog:        catalog,
		eventPublisher: eventPublisher,
		reporter:       reporter,
	}
}

// AddItem stores a new item. The category is derived from the tags and the
// image reference arrives as an opaque string produced by the capture
// pipeline.
func (svc *wardrobeService) AddItem(ctx context.Context, profileId string, name string, color string, imageRef string, tags []string) (*db.WardrobeItem, error) {
	if err := utils.ValidateName(name, constants.MAX_NAME_LENGTH); err != nil {
		return nil, err
	}

	color = strings.ToLower(strings.TrimSpace(color))
	if err := svc.validateColor(color); err != nil {
		return nil, err
	}

	tags = normalizeTags(tags)
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, err
	}

	item := db.WardrobeItem{
		ID:        uuid.New().String(),
		ProfileID: profileId,
		Name:      name,
		Category:  CategoryForTags(tags),
		Color:     color,
		ImageRef:  imageRef,
		Tags:      tagsJSON,
		SyncState: constants.ITEM_SYNC_STATE_PENDING,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := svc.db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, err
	}

	svc.RefreshCacheSnapshot(ctx, profileId)
	svc.eventPublisher.Publish(&events.Event{
		Event: "wardrobe_item_added",
		Properties: map[string]interface{}{
			"id":       item.ID,
			"category": item.Category,
		},
	})
	return &item, nil
}

func (svc *wardrobeService) ListItems(ctx context.Context, profileId string) ([]db.WardrobeItem, error) {
	var items []db.WardrobeItem
	if err := svc.db.WithContext(ctx).Where("profile_id = ?", profileId).Order("created_at desc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (svc *wardrobeService) DeleteItem(ctx context.Context, profileId string, itemId string) error {
	result := svc.db.WithContext(ctx).Where("id = ? AND profile_id = ?", itemId, profileId).Delete(&db.WardrobeItem{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrItemNotFound
	}

	svc.RefreshCacheSnapshot(ctx, profileId)
	svc.eventPublisher.Publish(&events.Event{
		Event: "wardrobe_item_deleted",
		Properties: map[string]interface{}{
			"id": itemId,
		},
	})
	return nil
}

// RefreshCacheSnapshot rewrites the cached wardrobe summary for the profile.
// Failures are reported, never returned; the database stays the source of
// truth.
func (svc *wardrobeService) RefreshCacheSnapshot(ctx context.Context, profileId string) {
	counts := queries.GetWardrobeCounts(svc.db.WithContext(ctx), profileId)

	snapshot := CacheSnapshot{
		ProfileID:  profileId,
		Total:      counts.Total,
		ByCategory: counts.ByCategory,
		Pending:    counts.Pending,
		UpdatedAt:  time.Now().UnixMilli(),
	}

	if err := storage.SetJSON(ctx, svc.store, storage.KeyWardrobeCache, snapshot); err != nil {
		logger.Logger.Error().Err(err).Str("profileId", profileId).Msg("Failed to refresh wardrobe cache snapshot")
		if svc.reporter != nil {
			svc.reporter.Report(err, map[string]string{
				"feature":   "wardrobe",
				"operation": "refresh_cache",
				"key":       storage.KeyWardrobeCache,
			})
		}
	}
}

func (svc *wardrobeService) validateColor(color string) error {
	if color == "" {
		return ErrInvalidColor
	}
	for _, catalogColor := range svc.catalog.Colors() {
		if color == strings.ToLower(catalogColor) {
			return nil
		}
	}
	if err := utils.ValidateHexColor(color); err != nil {
		return ErrInvalidColor
	}
	return nil
}

func normalizeTags(tags []string) []string {
	normalized := []string{}
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		normalized = append(normalized, tag)
	}
	return normalized
}
