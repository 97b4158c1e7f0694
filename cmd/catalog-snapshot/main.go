// Package main exports the furniture catalog to a storage provider so the
// server can fall back to it when the database is down
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/example/b2room/internal/catalog"
	"github.com/example/b2room/internal/config"
	"github.com/example/b2room/internal/logging"
	"github.com/example/b2room/internal/storage"
)

var (
	configFile = flag.String("config", "b2room.json", "Configuration file path")
	provider   = flag.String("provider", "", "Storage provider (overrides config): local, s3 or gcs")
	key        = flag.String("key", "", "Object key (overrides config)")
	fromMock   = flag.Bool("mock", false, "Export the built-in catalog instead of the database")
)

func main() {
	flag.Parse()

	settings, err := config.LoadConfig(*configFile)
	if err != nil {
		logging.Setup("info", true)
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Setup(settings.Logging.Level, settings.Logging.Pretty)

	cfg := settings.Catalog
	if *provider != "" {
		cfg.FixtureProvider = *provider
	}
	if *key != "" {
		cfg.FixtureKey = *key
	}
	if cfg.FixtureProvider == "" {
		cfg.FixtureProvider = "local"
	}
	if cfg.FixtureKey == "" {
		cfg.FixtureKey = "catalog/snapshot.json"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("Snapshot failed")
	}
}

func run(ctx context.Context, cfg config.CatalogConfig) error {
	var src catalog.Source
	if *fromMock {
		src = catalog.NewMockSource()
	} else {
		if cfg.DatabaseURL == "" {
			return errors.New("no database configured, set DATABASE_URL or use -mock")
		}
		pool, err := catalog.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		src = catalog.NewPostgresSource(pool)
	}

	snap, err := buildSnapshot(ctx, src)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	blobs, err := storage.CreateProvider(cfg.FixtureProvider, cfg.FixtureOptions)
	if err != nil {
		return err
	}
	name, err := blobs.Store(ctx, cfg.FixtureKey, bytes.NewReader(data), map[string]string{
		"contentType": "application/json",
		"items":       fmt.Sprint(len(snap.Items)),
		"generatedAt": snap.GeneratedAt.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("provider", cfg.FixtureProvider).
		Str("object", name).
		Int("items", len(snap.Items)).
		Int("attributes", len(snap.Attributes)).
		Int("bytes", len(data)).
		Msg("Catalog snapshot stored")
	return nil
}

func buildSnapshot(ctx context.Context, src catalog.Source) (*catalog.Snapshot, error) {
	items, err := src.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	if len(items) == 0 {
		return nil, errors.New("catalog is empty")
	}

	snap := &catalog.Snapshot{GeneratedAt: time.Now().UTC(), Items: items}
	for _, it := range items {
		attrs, err := src.Attributes(ctx, it.ID)
		if errors.Is(err, catalog.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read attributes of %s: %w", it.ID, err)
		}
		snap.Attributes = append(snap.Attributes, *attrs)
	}
	return snap, nil
}
