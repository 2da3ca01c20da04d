package queries

import (
	"github.com/dressinghq/dressinghub/constants"
	"gorm.io/gorm"
)

type WardrobeCounts struct {
	Total      int64
	ByCategory map[string]int64
	Pending    int64
}

func GetWardrobeCounts(tx *gorm.DB, profileID string) WardrobeCounts {
	counts := WardrobeCounts{
		ByCategory: map[string]int64{},
	}

	tx.
		Table("wardrobe_items").
		Where("profile_id = ?", profileID).
		Count(&counts.Total)

	var rows []struct {
		Category string
		Num      int64
	}
	tx.
		Table("wardrobe_items").
		Select("category, COUNT(*) as num").
		Where("profile_id = ?", profileID).
		Group("category").
		Scan(&rows)
	for _, row := range rows {
		counts.ByCategory[row.Category] = row.Num
	}

	tx.
		Table("wardrobe_items").
		Where("profile_id = ? AND sync_state = ?", profileID, constants.ITEM_SYNC_STATE_PENDING).
		Count(&counts.Pending)

	return counts
}
