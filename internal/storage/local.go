package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const metaSuffix = ".meta"

// LocalStorage keeps objects as files under a base directory
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new local storage provider
func NewLocalStorage() *LocalStorage {
	return &LocalStorage{}
}

// Initialize sets up the local storage with configuration
func (l *LocalStorage) Initialize(config map[string]string) error {
	l.basePath = config["basePath"]
	if l.basePath == "" {
		l.basePath = "./storage"
	}
	if err := os.MkdirAll(l.basePath, 0755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}
	return nil
}

// path keeps keys inside the base directory
func (l *LocalStorage) path(key string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(key))
	if clean == string(filepath.Separator) {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(l.basePath, clean), nil
}

// Store writes the object atomically through a temp file
func (l *LocalStorage) Store(ctx context.Context, key string, content io.Reader, metadata map[string]string) (string, error) {
	filePath, err := l.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(filePath), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, content); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write file content: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write file content: %w", err)
	}
	if err := os.Rename(tmp.Name(), filePath); err != nil {
		return "", fmt.Errorf("failed to move file into place: %w", err)
	}

	if err := writeMeta(filePath+metaSuffix, metadata); err != nil {
		return "", err
	}
	return key, nil
}

// Retrieve gets a file from local storage
func (l *LocalStorage) Retrieve(ctx context.Context, key string) (io.ReadCloser, map[string]string, error) {
	filePath, err := l.path(key)
	if err != nil {
		return nil, nil, err
	}
	file, err := os.Open(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, readMeta(filePath + metaSuffix), nil
}

// Delete removes a file and its metadata
func (l *LocalStorage) Delete(ctx context.Context, key string) error {
	filePath, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	} else if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	os.Remove(filePath + metaSuffix)
	return nil
}

// GetBasePath returns the base path of this storage provider
func (l *LocalStorage) GetBasePath() string {
	return l.basePath
}

func writeMeta(path string, metadata map[string]string) error {
	if len(metadata) == 0 {
		os.Remove(path)
		return nil
	}
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s\n", k, metadata[k])
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

func readMeta(path string) map[string]string {
	metadata := make(map[string]string)
	f, err := os.Open(path)
	if err != nil {
		return metadata
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if k, v, ok := strings.Cut(sc.Text(), "="); ok {
			metadata[k] = v
		}
	}
	return metadata
}
