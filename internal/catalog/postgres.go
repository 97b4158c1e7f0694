package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const itemSelect = `
SELECT i.id::text, i.category_id, i.product_name, i.brand, i.price::bigint, i.url, i.image_url,
       i.size, i.description, i.style_tags, i.color_tags, i.material_tags, i.created_at,
       c.id, c.name, c.description, c.created_at
  FROM furniture_items i
  LEFT JOIN furniture_categories c ON c.id = i.category_id`

// DB is the subset of *pgxpool.Pool the catalog queries through
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Connect opens a connection pool for the catalog database and checks it is reachable
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("catalog database unreachable: %w", err)
	}
	return pool, nil
}

// PostgresSource reads the catalog from the furniture_* tables
type PostgresSource struct {
	db DB
}

// NewPostgresSource creates a live catalog over db
func NewPostgresSource(db DB) *PostgresSource {
	return &PostgresSource{db: db}
}

func (s *PostgresSource) All(ctx context.Context) ([]Item, error) {
	return s.queryItems(ctx, itemSelect+` ORDER BY i.id`)
}

func (s *PostgresSource) ByStyle(ctx context.Context, style string, limit int) ([]Item, error) {
	return s.queryItems(ctx, itemSelect+`
 WHERE i.style_tags @> ARRAY[$1]::text[]
 ORDER BY i.price ASC NULLS LAST
 LIMIT $2`, style, normalizeLimit(limit))
}

func (s *PostgresSource) Recommended(ctx context.Context, styles []string, limit int) ([]Item, error) {
	return s.queryItems(ctx, itemSelect+`
 WHERE i.style_tags && $1::text[]
 ORDER BY i.price ASC NULLS LAST
 LIMIT $2`, normalizeStyles(styles), normalizeLimit(limit))
}

func (s *PostgresSource) Attributes(ctx context.Context, furnitureID string) (*Attributes, error) {
	var a Attributes
	err := s.db.QueryRow(ctx, `
SELECT id, furniture_id::text, mood_keywords, colors, materials, forms, patterns, created_at
  FROM furniture_attributes
 WHERE furniture_id::text = $1
 ORDER BY id
 LIMIT 1`, furnitureID).Scan(
		&a.ID, &a.FurnitureID, &a.MoodKeywords, &a.Colors, &a.Materials, &a.Forms, &a.Patterns, &a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query furniture attributes: %w", err)
	}
	return &a, nil
}

func (s *PostgresSource) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM furniture_items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count furniture: %w", err)
	}
	return n, nil
}

func (s *PostgresSource) queryItems(ctx context.Context, sql string, args ...any) ([]Item, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query furniture: %w", err)
	}

	items, err := pgx.CollectRows(rows, scanItem)
	if err != nil {
		return nil, fmt.Errorf("failed to read furniture rows: %w", err)
	}
	return items, nil
}

func scanItem(row pgx.CollectableRow) (Item, error) {
	var (
		it      Item
		catID   *int64
		catName *string
		catDesc *string
		catAt   *time.Time
	)
	err := row.Scan(
		&it.ID, &it.CategoryID, &it.ProductName, &it.Brand, &it.Price, &it.URL, &it.ImageURL,
		&it.Size, &it.Description, &it.StyleTags, &it.ColorTags, &it.MaterialTags, &it.CreatedAt,
		&catID, &catName, &catDesc, &catAt,
	)
	if err != nil {
		return Item{}, err
	}

	if catID != nil && catName != nil {
		it.Category = &Category{ID: *catID, Name: *catName, Description: catDesc}
		if catAt != nil {
			it.Category.CreatedAt = *catAt
		}
	}
	return it, nil
}
