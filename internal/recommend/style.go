package recommend

import (
	"encoding/json"

	"github.com/buger/jsonparser"

	"github.com/example/b2room/internal/models"
)

// Paths probed for a style label, most specific first. The prediction service
// owns its response shape, so this list is the only place that knows it.
var stylePaths = [][]string{
	{"style"},
	{"result"},
	{"style_detected"},
	{"room_analysis", "style_detected"},
	{"analysis", "style"},
	{"prediction", "style"},
	// a bare JSON string
	nil,
}

var spacePaths = [][]string{
	{"space"},
	{"room_type"},
	{"room_analysis", "room_type"},
	{"analysis", "room_type"},
}

// ExtractStyle reads the detected style from an opaque analysis result
func ExtractStyle(analysis json.RawMessage) (StyleOption, bool) {
	for _, path := range stylePaths {
		if s, ok := LookupStyle(probeString(analysis, path)); ok {
			return s, true
		}
	}
	return StyleOption{}, false
}

// ExtractSpace reads the detected room type from an opaque analysis result
func ExtractSpace(analysis json.RawMessage) (SpaceOption, bool) {
	for _, path := range spacePaths {
		if s, ok := LookupSpace(probeString(analysis, path)); ok {
			return s, true
		}
	}
	return SpaceOption{}, false
}

func probeString(data []byte, path []string) string {
	if len(data) == 0 {
		return ""
	}
	v, err := jsonparser.GetString(data, path...)
	if err != nil {
		return ""
	}
	return v
}

// offlineAnalysis is substituted whenever the analyze call did not succeed
var offlineAnalysis = json.RawMessage(`{
  "offline": true,
  "room_analysis": {
    "room_type": "living_room",
    "furniture_detected": [],
    "color_scheme": "warm_brown",
    "lighting": "natural",
    "style_detected": "modern"
  },
  "recommendations": [
    {"furniture_type": "chair", "reason": "소파와 조화를 이루는 의자 추천", "priority": "high"},
    {"furniture_type": "lamp", "reason": "조명 개선을 위한 스탠드 조명", "priority": "medium"}
  ]
}`)

// OfflineAnalysis returns the canned analysis used when the service is unavailable
func OfflineAnalysis() json.RawMessage {
	return append(json.RawMessage(nil), offlineAnalysis...)
}

// Resolve picks the analysis to continue with. Any failed envelope degrades to
// the offline analysis instead of ending the flow.
func Resolve(env *models.AnalysisEnvelope) (analysis json.RawMessage, offline bool) {
	if env == nil || !env.Success || env.Data == nil || len(env.Data.Analysis) == 0 {
		return OfflineAnalysis(), true
	}
	return env.Data.Analysis, false
}
