// Package config provides configuration management for the b2room server and tools
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Settings holds the application configuration.
// It is loaded once at startup and passed by pointer; nothing mutates it afterwards.
type Settings struct {
	Server  ServerConfig  `json:"server"`
	Predict PredictConfig `json:"predict"`
	Client  ClientConfig  `json:"client"`
	Catalog CatalogConfig `json:"catalog"`
	Logging LoggingConfig `json:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Port            int      `json:"port"`
	Host            string   `json:"host"`
	Environment     string   `json:"environment"`
	ShutdownTimeout int      `json:"shutdownTimeout"`
	AllowedOrigins  []string `json:"allowedOrigins"`
	CertFile        string   `json:"certFile"`
	KeyFile         string   `json:"keyFile"`
}

// PredictConfig points at the external prediction service
type PredictConfig struct {
	URL      string `json:"url"`
	Username string `json:"username"`
	Password string `json:"password"`
	// Timeout in seconds for one outbound call
	Timeout int `json:"timeout"`
}

// ClientConfig configures the client wrapper used by cmd/analyze
type ClientConfig struct {
	ProxyURL string `json:"proxyURL"`
	// Timeout in seconds
	Timeout int `json:"timeout"`
}

// CatalogConfig configures the furniture catalog sources
type CatalogConfig struct {
	DatabaseURL string `json:"databaseURL"`
	// CacheTTL in seconds, 0 disables caching
	CacheTTL        int               `json:"cacheTTL"`
	FixtureProvider string            `json:"fixtureProvider"`
	FixtureKey      string            `json:"fixtureKey"`
	FixtureOptions  map[string]string `json:"fixtureOptions"`
}

// LoggingConfig contains logger settings
type LoggingConfig struct {
	Level  string `json:"level"`
	Pretty bool   `json:"pretty"`
}

// Defaults returns the built-in configuration
func Defaults() *Settings {
	return &Settings{
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			Environment:     "production",
			ShutdownTimeout: 30,
			AllowedOrigins:  []string{"*"},
		},
		Predict: PredictConfig{
			URL:      "http://localhost:8000",
			Username: "admin",
			Password: "admin",
			Timeout:  30,
		},
		Client: ClientConfig{
			ProxyURL: "http://localhost:8080",
			Timeout:  5,
		},
		Catalog: CatalogConfig{
			CacheTTL:       60,
			FixtureOptions: map[string]string{},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from defaults, a .env file, a JSON file and environment variables
func LoadConfig(configFile string) (*Settings, error) {
	// .env is optional
	_ = godotenv.Load()

	settings := Defaults()

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			data, err := os.ReadFile(configFile)
			if err != nil {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}

			if err := json.Unmarshal(data, settings); err != nil {
				return nil, fmt.Errorf("error parsing config file: %w", err)
			}
		}
	}

	overrideWithEnv(settings, os.Getenv)

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return settings, nil
}

// overrideWithEnv overrides configuration with environment variables
func overrideWithEnv(s *Settings, getenv func(string) string) {
	// Prediction service; names match the original deployment
	if v := getenv("FASTAPI_SERVER_URL"); v != "" {
		s.Predict.URL = v
	}
	if v := getenv("FASTAPI_USERNAME"); v != "" {
		s.Predict.Username = v
	}
	if v := getenv("FASTAPI_PASSWORD"); v != "" {
		s.Predict.Password = v
	}
	if v := getenv("B2R_PREDICT_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.Predict.Timeout = n
		}
	}

	// Server config
	if v := getenv("B2R_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			s.Server.Port = p
		}
	}
	if v := getenv("B2R_HOST"); v != "" {
		s.Server.Host = v
	}
	if v := getenv("B2R_ENV"); v != "" {
		s.Server.Environment = v
	}
	if v := getenv("B2R_ALLOWED_ORIGINS"); v != "" {
		s.Server.AllowedOrigins = splitList(v)
	}
	if v := getenv("B2R_CERT_FILE"); v != "" {
		s.Server.CertFile = v
	}
	if v := getenv("B2R_KEY_FILE"); v != "" {
		s.Server.KeyFile = v
	}

	// Client config
	if v := getenv("B2R_PROXY_URL"); v != "" {
		s.Client.ProxyURL = v
	}
	if v := getenv("B2R_CLIENT_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.Client.Timeout = n
		}
	}

	// Catalog config
	if v := getenv("DATABASE_URL"); v != "" {
		s.Catalog.DatabaseURL = v
	}
	if v := getenv("B2R_CATALOG_CACHE_TTL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.Catalog.CacheTTL = n
		}
	}
	if v := getenv("B2R_FIXTURE_PROVIDER"); v != "" {
		s.Catalog.FixtureProvider = v
	}
	if v := getenv("B2R_FIXTURE_KEY"); v != "" {
		s.Catalog.FixtureKey = v
	}
	if s.Catalog.FixtureOptions == nil {
		s.Catalog.FixtureOptions = map[string]string{}
	}
	for env, opt := range map[string]string{
		"B2R_FIXTURE_BASE_PATH":       "basePath",
		"B2R_FIXTURE_BUCKET":          "bucket",
		"B2R_FIXTURE_REGION":          "region",
		"B2R_FIXTURE_PREFIX":          "prefix",
		"B2R_FIXTURE_CREDENTIAL_FILE": "credentialFile",
		"B2R_FIXTURE_ENDPOINT":        "endpoint",
	} {
		if v := getenv(env); v != "" {
			s.Catalog.FixtureOptions[opt] = v
		}
	}

	// Logging
	if v := getenv("B2R_LOG_LEVEL"); v != "" {
		s.Logging.Level = v
	}
	if v := getenv("B2R_LOG_PRETTY"); v != "" {
		s.Logging.Pretty = v == "true" || v == "1"
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate rejects settings the server cannot run with
func (s *Settings) Validate() error {
	var errs []error

	if s.Server.Port <= 0 || s.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server port out of range: %d", s.Server.Port))
	}

	u, err := url.Parse(s.Predict.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("invalid prediction service url: %q", s.Predict.URL))
	}

	if s.Predict.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("predict timeout must be positive: %d", s.Predict.Timeout))
	}
	if s.Client.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("client timeout must be positive: %d", s.Client.Timeout))
	}
	if s.Catalog.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("catalog cache ttl must not be negative: %d", s.Catalog.CacheTTL))
	}

	return errors.Join(errs...)
}

// IsProduction reports whether diagnostic details must be withheld from responses
func (s *Settings) IsProduction() bool {
	return !strings.EqualFold(s.Server.Environment, "development") &&
		!strings.EqualFold(s.Server.Environment, "dev") &&
		!strings.EqualFold(s.Server.Environment, "test")
}

// HasBasicAuth reports whether both prediction credentials are set
func (p PredictConfig) HasBasicAuth() bool {
	return p.Username != "" && p.Password != ""
}

// PredictTimeout returns the outbound call budget
func (s *Settings) PredictTimeout() time.Duration {
	return time.Duration(s.Predict.Timeout) * time.Second
}

// ClientTimeout returns the client wrapper budget
func (s *Settings) ClientTimeout() time.Duration {
	return time.Duration(s.Client.Timeout) * time.Second
}

// CatalogCacheTTL returns how long live catalog reads are memoised
func (s *Settings) CatalogCacheTTL() time.Duration {
	return time.Duration(s.Catalog.CacheTTL) * time.Second
}

// GetAddressString returns the address string for the server to listen on
func (s *Settings) GetAddressString() string {
	return fmt.Sprintf("%s:%d", s.Server.Host, s.Server.Port)
}
