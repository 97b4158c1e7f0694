// Package storage provides blob providers for catalog snapshots
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a key does not exist
var ErrNotFound = errors.New("object not found")

// Provider is a keyed blob store. Keys are caller-chosen and overwritten on Store.
type Provider interface {
	// Initialize sets up the provider from string options
	Initialize(config map[string]string) error

	// Store writes content under key and returns the full object name
	Store(ctx context.Context, key string, content io.Reader, metadata map[string]string) (string, error)

	// Retrieve opens the object stored under key
	Retrieve(ctx context.Context, key string) (io.ReadCloser, map[string]string, error)

	Delete(ctx context.Context, key string) error
}
