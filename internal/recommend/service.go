package recommend

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/example/b2room/internal/catalog"
	"github.com/example/b2room/internal/models"
)

// Request is one recommendation query. Explicit preferences win over what the analysis detected.
type Request struct {
	Style    string                   `json:"style,omitempty"`
	Space    string                   `json:"space,omitempty"`
	Analysis json.RawMessage          `json:"analysis,omitempty"`
	Envelope *models.AnalysisEnvelope `json:"envelope,omitempty"`
	Limit    int                      `json:"limit,omitempty"`
}

// Result is the ranked recommendation list
type Result struct {
	Style   *StyleOption `json:"style,omitempty"`
	Space   *SpaceOption `json:"space,omitempty"`
	Tags    []string     `json:"tags"`
	Offline bool         `json:"offline"`
	Items   []Ranked     `json:"items"`
}

// Service produces recommendations from a catalog
type Service struct {
	catalog catalog.Source
}

// NewService creates a recommendation service over src
func NewService(src catalog.Source) *Service {
	return &Service{catalog: src}
}

// Recommend resolves the style and space, queries the catalog and ranks the answer
func (s *Service) Recommend(ctx context.Context, req Request) (*Result, error) {
	res := &Result{}

	analysis := req.Analysis
	if req.Envelope != nil {
		analysis, res.Offline = Resolve(req.Envelope)
	}

	if opt, ok := LookupStyle(req.Style); ok {
		res.Style = &opt
	} else if opt, ok := ExtractStyle(analysis); ok {
		res.Style = &opt
	}
	if opt, ok := LookupSpace(req.Space); ok {
		res.Space = &opt
	} else if opt, ok := ExtractSpace(analysis); ok {
		res.Space = &opt
	}

	res.Tags = append([]string(nil), catalog.DefaultRecommendedStyles...)
	if res.Style != nil {
		res.Tags = []string{res.Style.Tag}
	}

	items, err := s.catalog.Recommended(ctx, res.Tags, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recommendations: %w", err)
	}
	if len(items) == 0 && res.Style != nil {
		log.Info().Str("style", string(res.Style.ID)).Msg("no furniture for style, using default styles")
		res.Tags = append([]string(nil), catalog.DefaultRecommendedStyles...)
		if items, err = s.catalog.Recommended(ctx, res.Tags, req.Limit); err != nil {
			return nil, fmt.Errorf("failed to load recommendations: %w", err)
		}
	}

	res.Items = Rank(items, res.Style)
	return res, nil
}
