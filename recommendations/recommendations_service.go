package recommendations

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dressinghq/dressinghub/constants"
	"github.com/dressinghq/dressinghub/db"
	"github.com/dressinghq/dressinghub/events"
	"github.com/dressinghq/dressinghub/logger"
	"github.com/dressinghq/dressinghub/storage"
	"github.com/dressinghq/dressinghub/telemetry"
)

// neutralColors pair with any other color.
var neutralColors = map[string]bool{
	"black": true,
	"white": true,
	"gray":  true,
	"grey":  true,
	"beige": true,
	"cream": true,
	"navy":  true,
	"denim": true,
}

type Outfit struct {
	TopID    string `json:"topId"`
	BottomID string `json:"bottomId"`
	ShoesID  string `json:"shoesId,omitempty"`
}

// CacheSnapshot is the outfit list cached under the recommendations-cache
// key for the active profile.
type CacheSnapshot struct {
	ProfileID string   `json:"profileId"`
	Outfits   []Outfit `json:"outfits"`
	UpdatedAt int64    `json:"updatedAt"`
}

type RecommendationsService interface {
	Refresh(ctx context.Context, profileId string) (*CacheSnapshot, error)
	Get(ctx context.Context, profileId string) (*CacheSnapshot, error)
}

type recommendationsService struct {
	db             *gorm.DB
	store          *storage.Store
	eventPublisher events.EventPublisher
	reporter       telemetry.Reporter
}

func NewRecommendationsService(gormDB *gorm.DB, store *storage.Store, eventPublisher events.EventPublisher, reporter telemetry.Reporter) *recommendationsService {
	return &recommendationsService{
		db:             gormDB,
		store:          store,
		eventPublisher: eventPublisher,
		reporter:       reporter,
	}
}

// Refresh recomputes outfit pairings from the wardrobe and rewrites the
// cache. A cache write failure is reported but the computed snapshot is
// still returned.
func (svc *recommendationsService) Refresh(ctx context.Context, profileId string) (*CacheSnapshot, error) {
	var items []db.WardrobeItem
	if err := svc.db.WithContext(ctx).Where("profile_id = ?", profileId).Order("created_at asc").Find(&items).Error; err != nil {
		return nil, err
	}

	snapshot := &CacheSnapshot{
		ProfileID: profileId,
		Outfits:   pairOutfits(items),
		UpdatedAt: time.Now().UnixMilli(),
	}

	if err := storage.SetJSON(ctx, svc.store, storage.KeyRecommendationsCache, *snapshot); err != nil {
		logger.Logger.Error().Err(err).Str("profileId", profileId).Msg("Failed to cache recommendations")
		if svc.reporter != nil {
			svc.reporter.Report(err, map[string]string{
				"feature":   "recommendations",
				"operation": "refresh",
				"key":       storage.KeyRecommendationsCache,
			})
		}
	}

	svc.eventPublisher.Publish(&events.Event{
		Event: "recommendations_refreshed",
		Properties: map[string]interface{}{
			"profileId": profileId,
			"outfits":   len(snapshot.Outfits),
		},
	})
	return snapshot, nil
}

// Get serves the cached snapshot and recomputes when it is absent or belongs
// to another profile.
func (svc *recommendationsService) Get(ctx context.Context, profileId string) (*CacheSnapshot, error) {
	snapshot, err := storage.GetJSON[CacheSnapshot](ctx, svc.store, storage.KeyRecommendationsCache)
	if err != nil {
		return nil, err
	}
	if snapshot != nil && snapshot.ProfileID == profileId {
		return snapshot, nil
	}
	return svc.Refresh(ctx, profileId)
}

// pairOutfits combines compatible tops and bottoms and attaches matching
// shoes when available.
func pairOutfits(items []db.WardrobeItem) []Outfit {
	var tops, bottoms, shoes []db.WardrobeItem
	for _, item := range items {
		switch item.Category {
		case constants.CATEGORY_TOP:
			tops = append(tops, item)
		case constants.CATEGORY_BOTTOM:
			bottoms = append(bottoms, item)
		case constants.CATEGORY_SHOES:
			shoes = append(shoes, item)
		}
	}

	outfits := []Outfit{}
	for _, top := range tops {
		for _, bottom := range bottoms {
			if len(outfits) >= constants.MAX_RECOMMENDATIONS {
				return outfits
			}
			if !colorsCompatible(top.Color, bottom.Color) {
				continue
			}

			outfit := Outfit{TopID: top.ID, BottomID: bottom.ID}
			for _, shoe := range shoes {
				if colorsCompatible(shoe.Color, top.Color) && colorsCompatible(shoe.Color, bottom.Color) {
					outfit.ShoesID = shoe.ID
					break
				}
			}
			outfits = append(outfits, outfit)
		}
	}
	return outfits
}

func colorsCompatible(a, b string) bool {
	if a == b {
		return true
	}
	return neutralColors[a] || neutralColors[b]
}
