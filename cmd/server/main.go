// Package main is the entry point for the b2room analyze proxy server
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/example/b2room/internal/catalog"
	"github.com/example/b2room/internal/config"
	"github.com/example/b2room/internal/handlers"
	"github.com/example/b2room/internal/logging"
	"github.com/example/b2room/internal/predict"
	"github.com/example/b2room/internal/storage"
)

var (
	configFile = flag.String("config", "b2room.json", "Configuration file path")
	testConfig = flag.Bool("test-config", false, "Test configuration and exit")
	verbose    = flag.Bool("verbose", false, "Enable debug logging")
	autoPort   = flag.Bool("auto-port", false, "Move to the next free port when the configured one is taken")
	version    = "0.4.0"
)

// isPortInUse checks if the given port is already in use
func isPortInUse(host string, port int) bool {
	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return true
	}
	listener.Close()
	return false
}

// findFreePort tries up to 100 ports upward from startPort
func findFreePort(host string, startPort int) int {
	maxPortToTry := startPort + 100
	if maxPortToTry > 65535 {
		maxPortToTry = 65535
	}
	for port := startPort; port <= maxPortToTry; port++ {
		if !isPortInUse(host, port) {
			return port
		}
	}
	return startPort
}

func main() {
	flag.Parse()

	settings, err := config.LoadConfig(*configFile)
	if err != nil {
		logging.Setup("info", true)
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	level := settings.Logging.Level
	if *verbose {
		level = "debug"
	}
	logging.Setup(level, settings.Logging.Pretty)

	if *testConfig {
		fmt.Println("Configuration test successful")
		return
	}

	log.Info().
		Str("version", version).
		Str("environment", settings.Server.Environment).
		Str("predict_url", settings.Predict.URL).
		Bool("basic_auth", settings.Predict.HasBasicAuth()).
		Msg("b2room server starting")

	if settings.ClientTimeout() < settings.PredictTimeout() {
		log.Warn().
			Dur("client_timeout", settings.ClientTimeout()).
			Dur("predict_timeout", settings.PredictTimeout()).
			Msg("Client timeout is shorter than the predict timeout; clients may give up before the proxy answers")
	}

	ctx := context.Background()

	src, live, closeCatalog := buildCatalog(ctx, settings)
	defer closeCatalog()

	hub := handlers.NewProgressHub(settings.Server.AllowedOrigins)
	go hub.Run()

	predictor := predict.NewClient(settings.Predict)
	analyze := handlers.NewAnalyzeHandler(predictor, handlers.AnalyzeOptions{
		Timeout:    settings.PredictTimeout(),
		Production: settings.IsProduction(),
		Progress:   hub,
	})

	handler := handlers.NewRouter(handlers.RouterConfig{
		Analyze:        analyze,
		Catalog:        handlers.NewCatalogHandler(src, live),
		Hub:            hub,
		Predict:        predictor,
		AllowedOrigins: settings.Server.AllowedOrigins,
		Version:        version,
	})

	addr := listenAddress(settings, *autoPort, isPortInUse, findFreePort)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// uploads and the predict call both fit inside the write budget
		WriteTimeout: settings.PredictTimeout() + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", addr).Msg("Starting server")

		var err error
		if settings.Server.CertFile != "" && settings.Server.KeyFile != "" {
			log.Info().Str("cert", settings.Server.CertFile).Str("key", settings.Server.KeyFile).Msg("Using TLS")
			err = server.ListenAndServeTLS(settings.Server.CertFile, settings.Server.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-stop
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(settings.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	hub.Shutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server shutdown complete")
}

// listenAddress picks the address to bind. Settings stay untouched when the
// configured port is taken and another one is chosen.
func listenAddress(settings *config.Settings, auto bool, inUse func(string, int) bool, free func(string, int) int) string {
	host, port := settings.Server.Host, settings.Server.Port
	if auto && inUse(host, port) {
		if p := free(host, port); p != port {
			log.Warn().Int("port", port).Int("new_port", p).Msg("Port is already in use, switching")
			port = p
		}
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// buildCatalog wires the live database, the fixture and the cache. live is nil
// when no database is configured or reachable.
func buildCatalog(ctx context.Context, settings *config.Settings) (src, live catalog.Source, closeFn func()) {
	var closers []func()
	closeFn = func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	fixture := loadFixture(ctx, settings.Catalog)

	if url := settings.Catalog.DatabaseURL; url != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		pool, err := catalog.Connect(connectCtx, url)
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("Catalog database unavailable, serving fixture data")
		} else {
			closers = append(closers, pool.Close)
			live = catalog.NewPostgresSource(pool)

			if ttl := settings.CatalogCacheTTL(); ttl > 0 {
				cached := catalog.NewCachedSource(live, ttl)
				closers = append(closers, cached.Close)
				live = cached
			}
			log.Info().Dur("cache_ttl", settings.CatalogCacheTTL()).Msg("Catalog database connected")
		}
	}

	return catalog.Select(live, fixture), live, closeFn
}

func loadFixture(ctx context.Context, cfg config.CatalogConfig) catalog.Source {
	if cfg.FixtureProvider == "" || cfg.FixtureKey == "" {
		return catalog.NewMockSource()
	}

	provider, err := storage.CreateProvider(cfg.FixtureProvider, cfg.FixtureOptions)
	if err != nil {
		log.Warn().Err(err).Msg("Fixture storage unavailable, using built-in catalog")
		return catalog.NewMockSource()
	}

	fixture, err := catalog.LoadFixture(ctx, provider, cfg.FixtureKey)
	if err != nil {
		log.Warn().Err(err).Msg("Catalog snapshot unreadable, using built-in catalog")
		return catalog.NewMockSource()
	}
	log.Info().Str("provider", cfg.FixtureProvider).Str("key", cfg.FixtureKey).Msg("Catalog snapshot loaded")
	return fixture
}
