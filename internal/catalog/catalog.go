// Package catalog serves furniture products from the hosted database or from fixture data
package catalog

import (
	"context"
	"errors"
	"time"
)

// DefaultLimit caps recommendation queries when the caller passes no limit
const DefaultLimit = 6

// DefaultRecommendedStyles are the style tags used when no analysis style is known
var DefaultRecommendedStyles = []string{"모던", "미니멀"}

var (
	// ErrNotFound is returned when a furniture id has no row
	ErrNotFound = errors.New("furniture not found")

	// ErrNoLiveSource is returned by Status when no database is configured
	ErrNoLiveSource = errors.New("no live catalog configured")
)

// Category groups furniture items
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Item is one purchasable product
type Item struct {
	ID           string    `json:"id"`
	CategoryID   int64     `json:"category_id"`
	ProductName  string    `json:"product_name"`
	Brand        *string   `json:"brand"`
	Price        *int64    `json:"price"`
	URL          *string   `json:"url"`
	ImageURL     *string   `json:"image_url"`
	Size         *string   `json:"size"`
	Description  *string   `json:"description"`
	StyleTags    []string  `json:"style_tags"`
	ColorTags    []string  `json:"color_tags"`
	MaterialTags []string  `json:"material_tags"`
	CreatedAt    time.Time `json:"created_at"`
	Category     *Category `json:"category,omitempty"`
}

// HasStyle reports whether the item is tagged with style
func (i Item) HasStyle(style string) bool {
	for _, t := range i.StyleTags {
		if t == style {
			return true
		}
	}
	return false
}

// Attributes holds the descriptive keywords of one item
type Attributes struct {
	ID           int64     `json:"id"`
	FurnitureID  string    `json:"furniture_id"`
	MoodKeywords []string  `json:"mood_keywords"`
	Colors       []string  `json:"colors"`
	Materials    []string  `json:"materials"`
	Forms        []string  `json:"forms"`
	Patterns     []string  `json:"patterns"`
	CreatedAt    time.Time `json:"created_at"`
}

// ConnectionStatus reports whether the live catalog is reachable
type ConnectionStatus struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Count   int    `json:"count,omitempty"`
}

// Source is a furniture catalog
type Source interface {
	// All returns every item with its category, ordered by id
	All(ctx context.Context) ([]Item, error)
	// ByStyle returns up to limit items tagged with style, cheapest first
	ByStyle(ctx context.Context, style string, limit int) ([]Item, error)
	// Recommended returns up to limit items tagged with any of styles, cheapest first
	Recommended(ctx context.Context, styles []string, limit int) ([]Item, error)
	// Attributes returns the keywords of one item or ErrNotFound
	Attributes(ctx context.Context, furnitureID string) (*Attributes, error)
	// Count returns the number of items
	Count(ctx context.Context) (int, error)
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}

func normalizeStyles(styles []string) []string {
	out := make([]string, 0, len(styles))
	for _, s := range styles {
		if s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), DefaultRecommendedStyles...)
	}
	return out
}
