package recommend

import (
	"hash/fnv"
	"math"
	"sort"

	"github.com/example/b2room/internal/catalog"
)

// Rating bounds
const (
	MinRating = 3.5
	MaxRating = 5.0
)

// Rating returns a stable display rating in [MinRating, MaxRating] with one decimal
func Rating(itemID string) float64 {
	h := fnv.New32a()
	h.Write([]byte(itemID))
	steps := int(math.Round((MaxRating - MinRating) * 10))
	return MinRating + float64(h.Sum32()%uint32(steps+1))/10
}

// Ranked is a catalog item prepared for display
type Ranked struct {
	catalog.Item
	Rating         float64 `json:"rating"`
	Score          float64 `json:"score"`
	FormattedPrice string  `json:"formatted_price"`
}

// Annotate adds rating and formatted price while keeping catalog order
func Annotate(items []catalog.Item) []Ranked {
	out := make([]Ranked, 0, len(items))
	for _, it := range items {
		out = append(out, Ranked{
			Item:           it,
			Rating:         Rating(it.ID),
			FormattedPrice: catalog.FormatPrice(it.Price),
		})
	}
	return out
}

// Rank scores items by style match first and rating second; ties keep catalog order
func Rank(items []catalog.Item, style *StyleOption) []Ranked {
	out := Annotate(items)
	for i := range out {
		r := &out[i]
		r.Score = r.Rating / MaxRating
		if style != nil && r.HasStyle(style.Tag) {
			r.Score += 1
		}
		r.Score = math.Round(r.Score*1000) / 1000
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
