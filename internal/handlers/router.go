package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/example/b2room/internal/middleware"
)

const healthTimeout = 2 * time.Second

// HealthChecker reports whether a dependency is reachable
type HealthChecker interface {
	Health(ctx context.Context) error
}

// RouterConfig holds everything the router mounts
type RouterConfig struct {
	Analyze        *AnalyzeHandler
	Catalog        *CatalogHandler
	Hub            *ProgressHub
	Predict        HealthChecker
	AllowedOrigins []string
	Version        string
}

// NewRouter builds the API router wrapped in the middleware chain
func NewRouter(cfg RouterConfig) http.Handler {
	// routes sit on the root router so a method mismatch is never masked
	// by a sibling route's path mismatch inside a subrouter
	r := mux.NewRouter()

	if cfg.Analyze != nil {
		r.HandleFunc("/api/upload-image", cfg.Analyze.UploadImage).Methods(http.MethodPost)
	}
	if cfg.Catalog != nil {
		r.HandleFunc("/api/options", cfg.Catalog.GetOptions).Methods(http.MethodGet)
		r.HandleFunc("/api/furniture", cfg.Catalog.ListFurniture).Methods(http.MethodGet)
		r.HandleFunc("/api/furniture/status", cfg.Catalog.GetStatus).Methods(http.MethodGet)
		r.HandleFunc("/api/furniture/{id}/attributes", cfg.Catalog.GetAttributes).Methods(http.MethodGet)
		r.HandleFunc("/api/recommendations", cfg.Catalog.Recommend).Methods(http.MethodPost)
	}
	if cfg.Hub != nil {
		r.HandleFunc("/ws", cfg.Hub.ServeWs).Methods(http.MethodGet)
	}
	r.HandleFunc("/health", health(cfg)).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	return middleware.Chain(
		r,
		middleware.Recover(),
		middleware.Logger(),
		middleware.CORS(cfg.AllowedOrigins),
		middleware.RequestID(),
	)
}

func health(cfg RouterConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"status":  "ok",
			"version": cfg.Version,
		}

		if cfg.Predict != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			defer cancel()
			if err := cfg.Predict.Health(ctx); err != nil {
				resp["status"] = "degraded"
				resp["predict"] = err.Error()
			} else {
				resp["predict"] = "ok"
			}
		}
		if cfg.Hub != nil {
			resp["progress"] = cfg.Hub.GetStats()
		}

		sendJSONResponse(w, resp, http.StatusOK)
	}
}
