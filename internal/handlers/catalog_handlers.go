package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/example/b2room/internal/catalog"
	"github.com/example/b2room/internal/models"
	"github.com/example/b2room/internal/recommend"
)

const (
	maxLimit       = 50
	maxRequestBody = 1 << 20
)

// CatalogHandler serves the furniture catalog and recommendations
type CatalogHandler struct {
	source      catalog.Source
	live        catalog.Source
	recommender *recommend.Service
}

// NewCatalogHandler creates a catalog handler. live may be nil when no database is configured.
func NewCatalogHandler(source, live catalog.Source) *CatalogHandler {
	return &CatalogHandler{
		source:      source,
		live:        live,
		recommender: recommend.NewService(source),
	}
}

// GetOptions handles GET /api/options
func (h *CatalogHandler) GetOptions(w http.ResponseWriter, r *http.Request) {
	sendJSONResponse(w, models.APIResponse{Success: true, Data: recommend.PreferenceOptions()}, http.StatusOK)
}

// ListFurniture handles GET /api/furniture with optional style and limit
func (h *CatalogHandler) ListFurniture(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var items []catalog.Item
	style := r.URL.Query().Get("style")
	if style == "" {
		items, err = h.source.All(r.Context())
		if err == nil && limit > 0 && len(items) > limit {
			items = items[:limit]
		}
	} else {
		// accept style ids and aliases as well as raw catalog tags
		if opt, ok := recommend.LookupStyle(style); ok {
			style = opt.Tag
		}
		items, err = h.source.ByStyle(r.Context(), style, limit)
	}
	if err != nil {
		log.Error().Err(err).Str("style", style).Msg("failed to list furniture")
		sendJSONError(w, "Failed to load furniture", http.StatusInternalServerError)
		return
	}

	sendJSONResponse(w, models.APIResponse{Success: true, Data: recommend.Annotate(items)}, http.StatusOK)
}

// GetStatus handles GET /api/furniture/status
func (h *CatalogHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	sendJSONResponse(w, catalog.Status(r.Context(), h.live), http.StatusOK)
}

// GetAttributes handles GET /api/furniture/{id}/attributes
func (h *CatalogHandler) GetAttributes(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	attrs, err := h.source.Attributes(r.Context(), id)
	if errors.Is(err, catalog.ErrNotFound) {
		sendJSONError(w, "Furniture attributes not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("furniture_id", id).Msg("failed to load attributes")
		sendJSONError(w, "Failed to load furniture attributes", http.StatusInternalServerError)
		return
	}
	sendJSONResponse(w, models.APIResponse{Success: true, Data: attrs}, http.StatusOK)
}

// Recommend handles POST /api/recommendations
func (h *CatalogHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req recommend.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Limit < 0 || req.Limit > maxLimit {
		sendJSONError(w, "limit must be between 1 and 50", http.StatusBadRequest)
		return
	}

	res, err := h.recommender.Recommend(r.Context(), req)
	if err != nil {
		log.Error().Err(err).Msg("recommendation failed")
		sendJSONError(w, "Failed to build recommendations", http.StatusInternalServerError)
		return
	}

	message := ""
	if res.Offline {
		message = "Analysis unavailable, showing offline recommendations."
	}
	sendJSONResponse(w, models.APIResponse{Success: true, Message: message, Data: res}, http.StatusOK)
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxLimit {
		return 0, errors.New("limit must be between 1 and 50")
	}
	return n, nil
}
