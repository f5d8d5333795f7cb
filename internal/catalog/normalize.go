package catalog

import (
	"strconv"
	"strings"

	"github.com/angelmondragon/giftbox-backend/pkg/db/models"
	"github.com/shopspring/decimal"
)

// imageAliases is the priority order used when collapsing image fields.
var imageAliases = []string{"image", "imageUrl", "img", "photo", "thumbnail", "image_url"}

var idAliases = []string{"id", "experience_id", "experienceId", "product_id"}

// Normalize turns an arbitrary listing payload into a display-ready item.
// Missing text fields fall back to the display defaults, and every image
// alias is folded into one ordered, de-duplicated list that is never empty.
func Normalize(raw map[string]any) Item {
	item := Item{
		ID:           firstString(raw, idAliases...),
		Title:        orDefault(firstString(raw, "title", "name"), DefaultTitle),
		Description:  firstString(raw, "description", "summary"),
		Category:     firstString(raw, "category"),
		Location:     orDefault(firstString(raw, "location", "city"), DefaultLocation),
		Duration:     orDefault(firstString(raw, "duration"), DefaultDuration),
		Participants: orDefault(firstString(raw, "participants"), DefaultParticipants),
		Date:         orDefault(firstString(raw, "date"), DefaultDate),
		ImageURLs:    collectImages(raw),
		Source:       SourceSuggestion,
	}
	if price, ok := parsePrice(raw["price"]); ok {
		item.Price = price
	} else {
		item.PricePending = true
	}
	item.Latitude = floatField(raw, "latitude", "lat")
	item.Longitude = floatField(raw, "longitude", "lng")
	return item
}

// FromModel maps a stored listing, applying the same display defaults.
func FromModel(m models.Experience) Item {
	return Item{
		ID:           m.ID,
		Title:        orDefault(m.Title, DefaultTitle),
		Description:  m.Description,
		Category:     m.Category,
		Price:        m.Price,
		ImageURLs:    withPlaceholder(dedupe([]string(m.ImageURLs))),
		Location:     orDefault(m.Location, DefaultLocation),
		Latitude:     m.Latitude,
		Longitude:    m.Longitude,
		Duration:     orDefault(m.Duration, DefaultDuration),
		Participants: orDefault(m.Participants, DefaultParticipants),
		Date:         orDefault(m.Date, DefaultDate),
		Source:       SourceCatalog,
	}
}

func collectImages(raw map[string]any) []string {
	var urls []string
	for _, key := range imageAliases {
		switch v := raw[key].(type) {
		case string:
			urls = append(urls, v)
		case []any:
			for _, elem := range v {
				if s, ok := elem.(string); ok {
					urls = append(urls, s)
				}
			}
		case []string:
			urls = append(urls, v...)
		}
	}
	return withPlaceholder(dedupe(urls))
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func withPlaceholder(urls []string) []string {
	if len(urls) == 0 {
		return []string{PlaceholderImage}
	}
	return urls
}

func firstString(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := raw[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// parsePrice accepts numbers and strings such as "₹1,499" or "1499.00",
// rounding to whole rupees.
func parsePrice(v any) (int64, bool) {
	switch p := v.(type) {
	case float64:
		if p < 0 {
			return 0, false
		}
		return decimal.NewFromFloat(p).Round(0).IntPart(), true
	case string:
		cleaned := strings.Map(func(r rune) rune {
			if (r >= '0' && r <= '9') || r == '.' {
				return r
			}
			return -1
		}, p)
		if cleaned == "" {
			return 0, false
		}
		d, err := decimal.NewFromString(cleaned)
		if err != nil {
			return 0, false
		}
		return d.Round(0).IntPart(), true
	default:
		return 0, false
	}
}

func floatField(raw map[string]any, keys ...string) *float64 {
	for _, key := range keys {
		switch v := raw[key].(type) {
		case float64:
			f := v
			return &f
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return &f
			}
		}
	}
	return nil
}
