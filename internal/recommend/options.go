// Package recommend turns an analysis result and user preferences into ranked furniture
package recommend

import "strings"

// Style identifies an interior style
type Style string

const (
	StyleModern  Style = "modern"
	StyleMinimal Style = "minimal"
	StyleNatural Style = "natural"
	StyleVintage Style = "vintage"
	StyleNordic  Style = "nordic"
	StyleClassic Style = "classic"
)

// Space identifies the room being furnished
type Space string

const (
	SpaceLiving  Space = "living"
	SpaceBedroom Space = "bedroom"
	SpaceKitchen Space = "kitchen"
	SpaceStudy   Space = "study"
)

// StyleOption describes one selectable style. Tag is the catalog style_tags value.
type StyleOption struct {
	ID          Style  `json:"id"`
	Label       string `json:"label"`
	Description string `json:"desc"`
	Tag         string `json:"tag"`
	// Selectable styles are offered on the preference screen
	Selectable bool `json:"-"`
}

// SpaceOption describes one selectable room
type SpaceOption struct {
	ID          Space  `json:"id"`
	Label       string `json:"label"`
	Description string `json:"desc"`
}

var styleOptions = []StyleOption{
	{ID: StyleModern, Label: "모던", Description: "깔끔하고 세련된", Tag: "모던", Selectable: true},
	{ID: StyleMinimal, Label: "미니멀", Description: "단순하고 기능적인", Tag: "미니멀", Selectable: true},
	{ID: StyleNatural, Label: "내추럴", Description: "자연스럽고 따뜻한", Tag: "내추럴", Selectable: true},
	{ID: StyleVintage, Label: "빈티지", Description: "고전적이고 개성있는", Tag: "빈티지", Selectable: true},
	{ID: StyleNordic, Label: "북유럽", Description: "밝고 아늑한", Tag: "북유럽"},
	{ID: StyleClassic, Label: "클래식", Description: "우아하고 격식있는", Tag: "클래식"},
}

var spaceOptions = []SpaceOption{
	{ID: SpaceLiving, Label: "거실", Description: "휴식과 소통의 공간"},
	{ID: SpaceBedroom, Label: "침실", Description: "편안한 휴식 공간"},
	{ID: SpaceKitchen, Label: "주방", Description: "요리와 식사 공간"},
	{ID: SpaceStudy, Label: "서재", Description: "집중과 학습 공간"},
}

// extra spellings seen in analysis results
var styleAliases = map[string]Style{
	"minimalist":   StyleMinimal,
	"minimalism":   StyleMinimal,
	"scandinavian": StyleNordic,
	"scandi":       StyleNordic,
	"nordic_style": StyleNordic,
	"retro":        StyleVintage,
	"contemporary": StyleModern,
	"traditional":  StyleClassic,
}

var spaceAliases = map[string]Space{
	"living_room": SpaceLiving,
	"livingroom":  SpaceLiving,
	"bed_room":    SpaceBedroom,
	"dining":      SpaceKitchen,
	"office":      SpaceStudy,
	"home_office": SpaceStudy,
}

// Options is the preference screen payload
type Options struct {
	Styles []StyleOption `json:"styles"`
	Spaces []SpaceOption `json:"spaces"`
}

// PreferenceOptions returns the styles and spaces offered to the user
func PreferenceOptions() Options {
	var styles []StyleOption
	for _, s := range styleOptions {
		if s.Selectable {
			styles = append(styles, s)
		}
	}
	return Options{Styles: styles, Spaces: append([]SpaceOption(nil), spaceOptions...)}
}

// LookupStyle finds a style by id, Korean label or known alias
func LookupStyle(raw string) (StyleOption, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return StyleOption{}, false
	}
	if alias, ok := styleAliases[key]; ok {
		key = string(alias)
	}
	for _, s := range styleOptions {
		if string(s.ID) == key || s.Label == key {
			return s, true
		}
	}
	return StyleOption{}, false
}

// LookupSpace finds a space by id, Korean label or known alias
func LookupSpace(raw string) (SpaceOption, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if alias, ok := spaceAliases[key]; ok {
		key = string(alias)
	}
	for _, s := range spaceOptions {
		if string(s.ID) == key || s.Label == key {
			return s, true
		}
	}
	return SpaceOption{}, false
}
