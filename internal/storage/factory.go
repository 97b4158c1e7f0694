package storage

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Factory creates providers by name and remembers the ones that failed to initialize
type Factory struct {
	providers map[string]func() Provider
	mu        sync.RWMutex
	// Track unavailable providers
	unavailableProviders map[string]string
}

// NewStorageFactory creates a factory that knows the built-in providers
func NewStorageFactory() *Factory {
	f := &Factory{
		providers:            make(map[string]func() Provider),
		unavailableProviders: make(map[string]string),
	}
	f.RegisterProvider("local", func() Provider { return NewLocalStorage() })
	for _, name := range []string{"s3", "amazon", "aws"} {
		f.RegisterProvider(name, func() Provider { return NewAmazonS3Storage() })
	}
	for _, name := range []string{"gcs", "google"} {
		f.RegisterProvider(name, func() Provider { return NewGoogleCloudStorage() })
	}
	return f
}

// RegisterProvider adds or replaces a provider constructor
func (f *Factory) RegisterProvider(name string, ctor func() Provider) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.providers[name] = ctor
}

// MarkProviderUnavailable marks a provider type as unavailable with a reason
func (f *Factory) MarkProviderUnavailable(providerType, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unavailableProviders[providerType] = reason
	log.Warn().Str("provider", providerType).Str("reason", reason).Msg("Storage provider marked as unavailable")
}

// IsProviderAvailable checks if a provider type is available
func (f *Factory) IsProviderAvailable(providerType string) (bool, string) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	reason, unavailable := f.unavailableProviders[providerType]
	return !unavailable, reason
}

// CreateProvider creates and initializes a provider instance
func (f *Factory) CreateProvider(providerType string, config map[string]string) (Provider, error) {
	f.mu.RLock()
	if reason, unavailable := f.unavailableProviders[providerType]; unavailable {
		f.mu.RUnlock()
		return nil, fmt.Errorf("%s provider is currently unavailable: %s", providerType, reason)
	}
	ctor, ok := f.providers[providerType]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage provider type: %s", providerType)
	}

	provider := ctor()
	if err := provider.Initialize(config); err != nil {
		f.MarkProviderUnavailable(providerType, err.Error())
		return nil, fmt.Errorf("failed to initialize %s storage provider: %w", providerType, err)
	}
	return provider, nil
}

// DefaultFactory is the default storage factory instance
var DefaultFactory = NewStorageFactory()

// CreateProvider creates a storage provider using the default factory
func CreateProvider(providerType string, config map[string]string) (Provider, error) {
	return DefaultFactory.CreateProvider(providerType, config)
}
