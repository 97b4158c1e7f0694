package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	p, err := CreateProvider("local", map[string]string{"basePath": dir})
	require.NoError(t, err)

	key, err := p.Store(ctx, "catalog/snapshot.json", strings.NewReader(`{"items":[]}`),
		map[string]string{"contentType": "application/json"})
	require.NoError(t, err)
	assert.Equal(t, "catalog/snapshot.json", key)

	rc, meta, err := p.Retrieve(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, `{"items":[]}`, string(data))
	assert.Equal(t, "application/json", meta["contentType"])

	// overwrite in place, metadata dropped
	_, err = p.Store(ctx, key, strings.NewReader("v2"), nil)
	require.NoError(t, err)
	rc, meta, err = p.Retrieve(ctx, key)
	require.NoError(t, err)
	data, _ = io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "v2", string(data))
	assert.Empty(t, meta)

	require.NoError(t, p.Delete(ctx, key))
	_, _, err = p.Retrieve(ctx, key)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(p.Delete(ctx, key), ErrNotFound))

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Join(dir, "catalog"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocalStorageKeysStayInBase(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	base := filepath.Join(dir, "base")

	p := NewLocalStorage()
	require.NoError(t, p.Initialize(map[string]string{"basePath": base}))

	_, err := p.Store(ctx, "../escape.json", strings.NewReader("x"), nil)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(base, "escape.json"))
	assert.NoFileExists(t, filepath.Join(dir, "escape.json"))

	_, err = p.Store(ctx, "/", strings.NewReader("x"), nil)
	assert.Error(t, err)
}

func TestFactory(t *testing.T) {
	f := NewStorageFactory()

	_, err := f.CreateProvider("ftp", nil)
	assert.ErrorContains(t, err, "unsupported")

	// s3 without a region fails and is remembered
	_, err = f.CreateProvider("s3", map[string]string{"bucket": "b"})
	require.Error(t, err)
	ok, reason := f.IsProviderAvailable("s3")
	assert.False(t, ok)
	assert.Contains(t, reason, "region")

	_, err = f.CreateProvider("s3", map[string]string{"bucket": "b", "region": "us-east-1"})
	assert.ErrorContains(t, err, "unavailable")

	_, err = f.CreateProvider("gcs", map[string]string{})
	assert.ErrorContains(t, err, "bucket is required")

	f.RegisterProvider("memory", func() Provider { return NewLocalStorage() })
	p, err := f.CreateProvider("memory", map[string]string{"basePath": t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, p)
}
