package wardrobe

import (
	"strings"

	"github.com/dressinghq/dressinghub/constants"
)

// categoryRules maps tag keywords to a category. Rules are ordered so the
// more specific garments come before the generic ones.
var categoryRules = []struct {
	tag      string
	category string
}{
	{"dress", constants.CATEGORY_DRESS},
	{"gown", constants.CATEGORY_DRESS},
	{"jacket", constants.CATEGORY_OUTERWEAR},
	{"coat", constants.CATEGORY_OUTERWEAR},
	{"blazer", constants.CATEGORY_OUTERWEAR},
	{"cardigan", constants.CATEGORY_OUTERWEAR},
	{"shirt", constants.CATEGORY_TOP},
	{"t-shirt", constants.CATEGORY_TOP},
	{"tshirt", constants.CATEGORY_TOP},
	{"blouse", constants.CATEGORY_TOP},
	{"sweater", constants.CATEGORY_TOP},
	{"hoodie", constants.CATEGORY_TOP},
	{"top", constants.CATEGORY_TOP},
	{"jeans", constants.CATEGORY_BOTTOM},
	{"pants", constants.CATEGORY_BOTTOM},
	{"trousers", constants.CATEGORY_BOTTOM},
	{"shorts", constants.CATEGORY_BOTTOM},
	{"skirt", constants.CATEGORY_BOTTOM},
	{"leggings", constants.CATEGORY_BOTTOM},
	{"sneakers", constants.CATEGORY_SHOES},
	{"boots", constants.CATEGORY_SHOES},
	{"heels", constants.CATEGORY_SHOES},
	{"sandals", constants.CATEGORY_SHOES},
	{"shoes", constants.CATEGORY_SHOES},
}

// CategoryForTags picks a category from item tags. The first matching rule
// wins; items without a matching tag land in accessory.
func CategoryForTags(tags []string) string {
	for _, rule := range categoryRules {
		for _, tag := range tags {
			if strings.EqualFold(strings.TrimSpace(tag), rule.tag) {
				return rule.category
			}
		}
	}
	return constants.CATEGORY_ACCESSORY
}
