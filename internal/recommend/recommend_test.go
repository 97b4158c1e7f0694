package recommend

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/b2room/internal/catalog"
	"github.com/example/b2room/internal/models"
)

func TestExtractStyle(t *testing.T) {
	tests := []struct {
		name     string
		analysis string
		want     Style
		ok       bool
	}{
		{"result field", `{"result":"modern"}`, StyleModern, true},
		{"style field wins", `{"style":"vintage","result":"modern"}`, StyleVintage, true},
		{"nested room analysis", `{"room_analysis":{"style_detected":"Scandinavian"}}`, StyleNordic, true},
		{"korean label", `{"analysis":{"style":"내추럴"}}`, StyleNatural, true},
		{"prediction", `{"prediction":{"style":" Minimal "}}`, StyleMinimal, true},
		{"unknown label falls through", `{"style":"gothic","result":"classic"}`, StyleClassic, true},
		{"bare string", `"minimalist"`, StyleMinimal, true},
		{"numbers ignored", `{"style":42}`, "", false},
		{"no style", `{"room_type":"bedroom"}`, "", false},
		{"empty", ``, "", false},
		{"garbage", `not json`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractStyle(json.RawMessage(tt.analysis))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got.ID)
		})
	}
}

func TestExtractSpace(t *testing.T) {
	s, ok := ExtractSpace(json.RawMessage(`{"room_analysis":{"room_type":"living_room"}}`))
	require.True(t, ok)
	assert.Equal(t, SpaceLiving, s.ID)

	s, ok = ExtractSpace(json.RawMessage(`{"space":"서재"}`))
	require.True(t, ok)
	assert.Equal(t, SpaceStudy, s.ID)

	_, ok = ExtractSpace(json.RawMessage(`{"space":"garage"}`))
	assert.False(t, ok)
}

func TestPreferenceOptions(t *testing.T) {
	opts := PreferenceOptions()
	var styles []Style
	for _, s := range opts.Styles {
		styles = append(styles, s.ID)
	}
	assert.Equal(t, []Style{StyleModern, StyleMinimal, StyleNatural, StyleVintage}, styles)
	assert.Len(t, opts.Spaces, 4)
	assert.Equal(t, "거실", opts.Spaces[0].Label)

	// nordic is not offered but still understood
	_, ok := LookupStyle("nordic")
	assert.True(t, ok)
}

func TestResolve(t *testing.T) {
	ok := models.Succeeded(json.RawMessage(`{"result":"modern"}`), models.ImageInfo{}, time.Millisecond, time.Now())
	analysis, offline := Resolve(ok)
	assert.False(t, offline)
	assert.JSONEq(t, `{"result":"modern"}`, string(analysis))

	for _, env := range []*models.AnalysisEnvelope{
		nil,
		models.Failed(models.CodeTimeout, "timeout", ""),
		models.Failed(models.CodeServerError, "down", ""),
	} {
		analysis, offline = Resolve(env)
		assert.True(t, offline)
		assert.JSONEq(t, string(OfflineAnalysis()), string(analysis))
	}

	style, found := ExtractStyle(OfflineAnalysis())
	require.True(t, found)
	assert.Equal(t, StyleModern, style.ID)
}

func TestRating(t *testing.T) {
	seen := map[float64]bool{}
	for i := 0; i < 500; i++ {
		id := strconv.Itoa(i)
		r := Rating(id)
		assert.GreaterOrEqual(t, r, MinRating)
		assert.LessOrEqual(t, r, MaxRating)
		assert.Equal(t, r, Rating(id), "stable")
		seen[r] = true
	}
	assert.Greater(t, len(seen), 5)
}

func TestRank(t *testing.T) {
	items := catalog.MockItems(time.Now())
	natural, _ := LookupStyle("natural")

	ranked := Rank(items, &natural)
	require.Len(t, ranked, 3)
	// the sofa is the only item without the natural tag
	assert.Equal(t, "1", ranked[2].ID)
	for _, r := range ranked[:2] {
		assert.Greater(t, r.Score, 1.0)
	}
	assert.Equal(t, "₩299,000", ranked[2].FormattedPrice)

	// input untouched
	assert.Equal(t, "1", items[0].ID)

	plain := Rank(items, nil)
	for i := 1; i < len(plain); i++ {
		assert.GreaterOrEqual(t, plain[i-1].Score, plain[i].Score)
	}
}

func TestAnnotateKeepsOrder(t *testing.T) {
	items := catalog.MockItems(time.Now())
	out := Annotate(items)
	require.Len(t, out, 3)
	for i, r := range out {
		assert.Equal(t, items[i].ID, r.ID)
		assert.Zero(t, r.Score)
		assert.NotEmpty(t, r.FormattedPrice)
	}
}

func TestServiceRecommend(t *testing.T) {
	svc := NewService(catalog.NewMockSource())
	ctx := context.Background()

	t.Run("explicit style", func(t *testing.T) {
		res, err := svc.Recommend(ctx, Request{Style: "natural", Space: "living"})
		require.NoError(t, err)
		assert.Equal(t, StyleNatural, res.Style.ID)
		assert.Equal(t, SpaceLiving, res.Space.ID)
		assert.Equal(t, []string{"내추럴"}, res.Tags)
		assert.Len(t, res.Items, 2)
		assert.False(t, res.Offline)
	})

	t.Run("style from analysis", func(t *testing.T) {
		res, err := svc.Recommend(ctx, Request{Analysis: json.RawMessage(`{"result":"modern"}`)})
		require.NoError(t, err)
		assert.Equal(t, StyleModern, res.Style.ID)
		require.Len(t, res.Items, 1)
		assert.Equal(t, "1", res.Items[0].ID)
	})

	t.Run("failed envelope goes offline", func(t *testing.T) {
		res, err := svc.Recommend(ctx, Request{Envelope: models.Failed(models.CodeTimeout, "timeout", "")})
		require.NoError(t, err)
		assert.True(t, res.Offline)
		assert.Equal(t, StyleModern, res.Style.ID)
		assert.Equal(t, SpaceLiving, res.Space.ID)
	})

	t.Run("no style uses defaults", func(t *testing.T) {
		res, err := svc.Recommend(ctx, Request{})
		require.NoError(t, err)
		assert.Nil(t, res.Style)
		assert.Equal(t, catalog.DefaultRecommendedStyles, res.Tags)
	})

	t.Run("empty style widens to defaults", func(t *testing.T) {
		res, err := svc.Recommend(ctx, Request{Style: "classic"})
		require.NoError(t, err)
		assert.Equal(t, catalog.DefaultRecommendedStyles, res.Tags)
		assert.NotEmpty(t, res.Items)
	})

	t.Run("tags are owned by the result", func(t *testing.T) {
		res, err := svc.Recommend(ctx, Request{})
		require.NoError(t, err)
		res.Tags[0] = "changed"
		assert.Equal(t, []string{"모던", "미니멀"}, catalog.DefaultRecommendedStyles)

		res, err = svc.Recommend(ctx, Request{Style: "classic"})
		require.NoError(t, err)
		res.Tags = append(res.Tags[:0], "changed")
		assert.Equal(t, []string{"모던", "미니멀"}, catalog.DefaultRecommendedStyles)
	})
}
