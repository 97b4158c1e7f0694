package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"
)

// Snapshot is the serialized form of a catalog, written by catalog-snapshot
type Snapshot struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Items       []Item       `json:"items"`
	Attributes  []Attributes `json:"attributes,omitempty"`
}

// BlobReader fetches a stored object
type BlobReader interface {
	Retrieve(ctx context.Context, id string) (io.ReadCloser, map[string]string, error)
}

// FixtureSource serves a fixed in-memory catalog
type FixtureSource struct {
	items []Item
	attrs map[string]Attributes
}

// NewFixtureSource creates a fixture over items. Items without attributes get
// attributes derived from their tags.
func NewFixtureSource(items []Item, attrs []Attributes) *FixtureSource {
	f := &FixtureSource{
		items: append([]Item(nil), items...),
		attrs: make(map[string]Attributes, len(items)),
	}
	sort.SliceStable(f.items, func(i, j int) bool { return lessID(f.items[i].ID, f.items[j].ID) })

	for _, a := range attrs {
		f.attrs[a.FurnitureID] = a
	}
	for n, it := range f.items {
		if _, ok := f.attrs[it.ID]; !ok {
			f.attrs[it.ID] = Attributes{
				ID:           int64(n + 1),
				FurnitureID:  it.ID,
				MoodKeywords: it.StyleTags,
				Colors:       it.ColorTags,
				Materials:    it.MaterialTags,
				CreatedAt:    it.CreatedAt,
			}
		}
	}
	return f
}

// NewMockSource returns the built-in fixture
func NewMockSource() *FixtureSource {
	return NewFixtureSource(MockItems(time.Now()), nil)
}

// LoadFixture reads a JSON Snapshot stored under key
func LoadFixture(ctx context.Context, blobs BlobReader, key string) (*FixtureSource, error) {
	rc, _, err := blobs.Retrieve(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve catalog snapshot %q: %w", key, err)
	}
	defer rc.Close()

	var snap Snapshot
	if err := json.NewDecoder(rc).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode catalog snapshot %q: %w", key, err)
	}
	if len(snap.Items) == 0 {
		return nil, fmt.Errorf("catalog snapshot %q has no items", key)
	}
	return NewFixtureSource(snap.Items, snap.Attributes), nil
}

func (f *FixtureSource) All(ctx context.Context) ([]Item, error) {
	return append([]Item(nil), f.items...), nil
}

func (f *FixtureSource) ByStyle(ctx context.Context, style string, limit int) ([]Item, error) {
	return f.Recommended(ctx, []string{style}, limit)
}

func (f *FixtureSource) Recommended(ctx context.Context, styles []string, limit int) ([]Item, error) {
	styles = normalizeStyles(styles)
	var out []Item
	for _, it := range f.items {
		for _, s := range styles {
			if it.HasStyle(s) {
				out = append(out, it)
				break
			}
		}
	}
	sortByPrice(out)
	return truncate(out, normalizeLimit(limit)), nil
}

func (f *FixtureSource) Attributes(ctx context.Context, furnitureID string) (*Attributes, error) {
	a, ok := f.attrs[furnitureID]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (f *FixtureSource) Count(ctx context.Context) (int, error) {
	return len(f.items), nil
}

// sortByPrice orders cheapest first with unpriced items last
func sortByPrice(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		pi, pj := items[i].Price, items[j].Price
		switch {
		case pi == nil:
			return false
		case pj == nil:
			return true
		default:
			return *pi < *pj
		}
	})
}

func truncate(items []Item, limit int) []Item {
	if len(items) > limit {
		return items[:limit]
	}
	return items
}

// lessID orders numeric ids numerically and everything else lexically
func lessID(a, b string) bool {
	if len(a) != len(b) && isDigits(a) && isDigits(b) {
		return len(a) < len(b)
	}
	return a < b
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func strPtr(s string) *string { return &s }
func intPtr(n int64) *int64   { return &n }

// MockItems is the built-in catalog used when no database is reachable
func MockItems(now time.Time) []Item {
	return []Item{
		{
			ID:           "1",
			CategoryID:   1,
			ProductName:  "모던 3인용 소파",
			Brand:        strPtr("이케아"),
			Price:        intPtr(299000),
			URL:          strPtr("https://www.ikea.com/kr/ko/"),
			ImageURL:     strPtr("https://images.unsplash.com/photo-1586023492125-27b2c045efd7?w=400"),
			Size:         strPtr("180 x 88 x 66 cm"),
			Description:  strPtr("심플하고 모던한 디자인의 3인용 소파"),
			StyleTags:    []string{"모던", "미니멀"},
			ColorTags:    []string{"베이지", "그레이"},
			MaterialTags: []string{"패브릭"},
			CreatedAt:    now,
			Category: &Category{
				ID: 1, Name: "소파", Description: strPtr("거실용 소파 및 의자"), CreatedAt: now,
			},
		},
		{
			ID:           "2",
			CategoryID:   2,
			ProductName:  "원목 커피테이블",
			Brand:        strPtr("한샘"),
			Price:        intPtr(149000),
			URL:          strPtr("https://www.hanssem.com"),
			ImageURL:     strPtr("https://images.unsplash.com/photo-1549497538-303791108f95?w=400"),
			Size:         strPtr("120 x 60 x 45 cm"),
			Description:  strPtr("천연 원목으로 제작된 커피테이블"),
			StyleTags:    []string{"내추럴", "빈티지"},
			ColorTags:    []string{"브라운", "우드"},
			MaterialTags: []string{"원목"},
			CreatedAt:    now,
			Category: &Category{
				ID: 2, Name: "테이블", Description: strPtr("커피테이블, 사이드테이블, 다이닝테이블"), CreatedAt: now,
			},
		},
		{
			ID:           "3",
			CategoryID:   5,
			ProductName:  "북유럽 스타일 플로어 스탠드",
			Brand:        strPtr("일룸"),
			Price:        intPtr(129000),
			URL:          strPtr("https://www.iloom.co.kr"),
			ImageURL:     strPtr("https://images.unsplash.com/photo-1524484485831-a92ffc0de03f?w=400"),
			Size:         strPtr("높이 150 cm"),
			Description:  strPtr("따뜻한 조명의 북유럽 스타일 스탠드"),
			StyleTags:    []string{"북유럽", "내추럴"},
			ColorTags:    []string{"우드", "화이트"},
			MaterialTags: []string{"원목", "패브릭"},
			CreatedAt:    now,
			Category: &Category{
				ID: 5, Name: "조명", Description: strPtr("스탠드, 펜던트, 천장조명"), CreatedAt: now,
			},
		},
	}
}
