package catalog

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a scratch database when CATALOG_TEST_DATABASE_URL is set.
func TestPostgresSourceIntegration(t *testing.T) {
	url := os.Getenv("CATALOG_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("CATALOG_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := Connect(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	// temp tables live on one connection
	conn, err := pool.Acquire(ctx)
	require.NoError(t, err)
	defer conn.Release()

	_, err = conn.Exec(ctx, `
CREATE TEMP TABLE furniture_categories (
  id bigint PRIMARY KEY, name text NOT NULL, description text, created_at timestamptz NOT NULL DEFAULT now());
CREATE TEMP TABLE furniture_items (
  id bigint PRIMARY KEY, category_id bigint NOT NULL, product_name text NOT NULL,
  brand text, price bigint, url text, image_url text, size text, description text,
  style_tags text[], color_tags text[], material_tags text[], created_at timestamptz NOT NULL DEFAULT now());
CREATE TEMP TABLE furniture_attributes (
  id bigint PRIMARY KEY, furniture_id bigint NOT NULL, mood_keywords text[], colors text[],
  materials text[], forms text[], patterns text[], created_at timestamptz NOT NULL DEFAULT now());
INSERT INTO furniture_categories (id, name) VALUES (1, '소파');
INSERT INTO furniture_items (id, category_id, product_name, price, style_tags) VALUES
  (1, 1, 'a', 300, '{모던}'), (2, 1, 'b', 100, '{미니멀}'), (3, 1, 'c', NULL, '{모던}'), (4, 1, 'd', 50, '{빈티지}');
INSERT INTO furniture_attributes (id, furniture_id, forms) VALUES (1, 2, '{직선}');`)
	require.NoError(t, err)

	src := NewPostgresSource(conn)

	all, err := src.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3", "4"}, ids(all))
	require.NotNil(t, all[0].Category)
	assert.Equal(t, "소파", all[0].Category.Name)

	rec, err := src.Recommended(ctx, nil, 6)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "1", "3"}, ids(rec))

	byStyle, err := src.ByStyle(ctx, "모던", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids(byStyle))

	attrs, err := src.Attributes(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, []string{"직선"}, attrs.Forms)

	_, err = src.Attributes(ctx, "99")
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := src.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
