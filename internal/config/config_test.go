package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefaults(t *testing.T) {
	s := Defaults()
	require.NoError(t, s.Validate())
	assert.Equal(t, 30*time.Second, s.PredictTimeout())
	assert.Equal(t, 5*time.Second, s.ClientTimeout())
	assert.True(t, s.Predict.HasBasicAuth())
	assert.True(t, s.IsProduction())
	assert.Equal(t, "0.0.0.0:8080", s.GetAddressString())
}

func TestOverrideWithEnv(t *testing.T) {
	s := Defaults()
	overrideWithEnv(s, envMap(map[string]string{
		"FASTAPI_SERVER_URL":    "http://predict.internal:9000",
		"FASTAPI_USERNAME":      "svc",
		"FASTAPI_PASSWORD":      "secret",
		"B2R_PREDICT_TIMEOUT":   "45",
		"B2R_PORT":              "9090",
		"B2R_ENV":               "development",
		"B2R_ALLOWED_ORIGINS":   "https://a.example, https://b.example",
		"B2R_CLIENT_TIMEOUT":    "40",
		"DATABASE_URL":          "postgres://u:p@db:5432/app",
		"B2R_CATALOG_CACHE_TTL": "0",
		"B2R_FIXTURE_PROVIDER":  "s3",
		"B2R_FIXTURE_BUCKET":    "fixtures",
		"B2R_FIXTURE_REGION":    "ap-northeast-2",
		"B2R_LOG_PRETTY":        "1",
	}))

	assert.Equal(t, "http://predict.internal:9000", s.Predict.URL)
	assert.Equal(t, "svc", s.Predict.Username)
	assert.Equal(t, "secret", s.Predict.Password)
	assert.Equal(t, 45*time.Second, s.PredictTimeout())
	assert.Equal(t, 9090, s.Server.Port)
	assert.False(t, s.IsProduction())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, s.Server.AllowedOrigins)
	assert.Equal(t, 40*time.Second, s.ClientTimeout())
	assert.Equal(t, "postgres://u:p@db:5432/app", s.Catalog.DatabaseURL)
	assert.Equal(t, time.Duration(0), s.CatalogCacheTTL())
	assert.Equal(t, "s3", s.Catalog.FixtureProvider)
	assert.Equal(t, "fixtures", s.Catalog.FixtureOptions["bucket"])
	assert.Equal(t, "ap-northeast-2", s.Catalog.FixtureOptions["region"])
	assert.True(t, s.Logging.Pretty)
}

func TestOverrideIgnoresGarbageNumbers(t *testing.T) {
	s := Defaults()
	overrideWithEnv(s, envMap(map[string]string{"B2R_PORT": "eighty", "B2R_PREDICT_TIMEOUT": "soon"}))
	assert.Equal(t, 8080, s.Server.Port)
	assert.Equal(t, 30, s.Predict.Timeout)
}

func TestValidate(t *testing.T) {
	s := Defaults()
	s.Server.Port = 0
	s.Predict.URL = "not a url"
	s.Predict.Timeout = 0
	s.Client.Timeout = -1

	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port")
	assert.Contains(t, err.Error(), "prediction service url")
	assert.Contains(t, err.Error(), "predict timeout")
	assert.Contains(t, err.Error(), "client timeout")
}

func TestHasBasicAuthNeedsBoth(t *testing.T) {
	assert.False(t, PredictConfig{Username: "admin"}.HasBasicAuth())
	assert.False(t, PredictConfig{Password: "pw"}.HasBasicAuth())
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "b2room.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"server": {"port": 7070, "environment": "development"},
		"predict": {"url": "http://file.example:8000", "timeout": 10}
	}`), 0o644))

	t.Setenv("FASTAPI_SERVER_URL", "")
	t.Setenv("B2R_PORT", "")

	s, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, s.Server.Port)
	assert.Equal(t, "http://file.example:8000", s.Predict.URL)
	assert.Equal(t, 10*time.Second, s.PredictTimeout())
	// untouched fields keep their defaults
	assert.Equal(t, "admin", s.Predict.Username)
	assert.Equal(t, 5, s.Client.Timeout)
}

func TestLoadConfigRejectsBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"server":`), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error parsing config file")
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("FASTAPI_SERVER_URL", "")
	s, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", s.Predict.URL)
}
