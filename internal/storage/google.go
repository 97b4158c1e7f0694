package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GoogleCloudStorage stores objects in a GCS bucket under an optional prefix
type GoogleCloudStorage struct {
	client     *storage.Client
	bucketName string
	prefix     string
}

// NewGoogleCloudStorage creates a new Google Cloud Storage provider
func NewGoogleCloudStorage() *GoogleCloudStorage {
	return &GoogleCloudStorage{}
}

// Initialize reads bucket, prefix and an optional credential file
func (g *GoogleCloudStorage) Initialize(config map[string]string) error {
	g.bucketName = config["bucket"]
	if g.bucketName == "" {
		return fmt.Errorf("bucket is required for Google Cloud Storage")
	}
	g.prefix = config["prefix"]

	var opts []option.ClientOption
	if credFile := config["credentialFile"]; credFile != "" {
		opts = append(opts, option.WithCredentialsFile(credFile))
	}
	if endpoint := config["endpoint"]; endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint), option.WithoutAuthentication())
	}

	client, err := storage.NewClient(context.Background(), opts...)
	if err != nil {
		return fmt.Errorf("failed to create Google Cloud Storage client: %w", err)
	}
	g.client = client
	return nil
}

// Store writes content to prefix+key
func (g *GoogleCloudStorage) Store(ctx context.Context, key string, content io.Reader, metadata map[string]string) (string, error) {
	objectName := g.prefix + key
	writer := g.client.Bucket(g.bucketName).Object(objectName).NewWriter(ctx)
	writer.Metadata = metadata
	if ct := metadata["contentType"]; ct != "" {
		writer.ContentType = ct
	}

	if _, err := io.Copy(writer, content); err != nil {
		writer.Close()
		return "", fmt.Errorf("failed to write file content to GCS: %w", err)
	}
	// Close finalizes the upload
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize file upload to GCS: %w", err)
	}
	return objectName, nil
}

// Retrieve opens prefix+key for reading
func (g *GoogleCloudStorage) Retrieve(ctx context.Context, key string) (io.ReadCloser, map[string]string, error) {
	obj := g.client.Bucket(g.bucketName).Object(g.prefix + key)

	attrs, err := obj.Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get object attributes from GCS: %w", err)
	}

	reader, err := obj.NewReader(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file from GCS: %w", err)
	}
	return reader, attrs.Metadata, nil
}

// Delete removes an object from Google Cloud Storage
func (g *GoogleCloudStorage) Delete(ctx context.Context, key string) error {
	if err := g.client.Bucket(g.bucketName).Object(g.prefix + key).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete file from GCS: %w", err)
	}
	return nil
}
