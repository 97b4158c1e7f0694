package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// AmazonS3Storage stores objects in an S3 bucket under an optional prefix
type AmazonS3Storage struct {
	bucket   string
	prefix   string
	s3Client *s3.S3
	uploader *s3manager.Uploader
}

// NewAmazonS3Storage creates a new Amazon S3 storage provider
func NewAmazonS3Storage() *AmazonS3Storage {
	return &AmazonS3Storage{}
}

// Initialize reads region, bucket, prefix, endpoint and optional static keys
func (a *AmazonS3Storage) Initialize(config map[string]string) error {
	region := config["region"]
	if region == "" {
		return fmt.Errorf("region is required for Amazon S3 storage")
	}
	a.bucket = config["bucket"]
	if a.bucket == "" {
		return fmt.Errorf("bucket is required for Amazon S3 storage")
	}
	a.prefix = config["prefix"]

	awsCfg := &aws.Config{Region: aws.String(region)}
	if endpoint := config["endpoint"]; endpoint != "" {
		awsCfg.Endpoint = aws.String(endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	// Fall back to the environment or instance profile without static keys
	if accessKey, secretKey := config["accessKey"], config["secretKey"]; accessKey != "" && secretKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(accessKey, secretKey, "")
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return fmt.Errorf("failed to create AWS session: %w", err)
	}
	a.s3Client = s3.New(sess)
	a.uploader = s3manager.NewUploader(sess)
	return nil
}

// Store uploads content to prefix+key
func (a *AmazonS3Storage) Store(ctx context.Context, key string, content io.Reader, metadata map[string]string) (string, error) {
	objectKey := a.prefix + key

	s3Metadata := make(map[string]*string, len(metadata))
	for k, v := range metadata {
		s3Metadata[k] = aws.String(v)
	}

	input := &s3manager.UploadInput{
		Bucket:   aws.String(a.bucket),
		Key:      aws.String(objectKey),
		Body:     content,
		Metadata: s3Metadata,
	}
	if ct := metadata["contentType"]; ct != "" {
		input.ContentType = aws.String(ct)
	}
	if _, err := a.uploader.UploadWithContext(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload file to S3: %w", err)
	}
	return objectKey, nil
}

// Retrieve gets an object from prefix+key
func (a *AmazonS3Storage) Retrieve(ctx context.Context, key string) (io.ReadCloser, map[string]string, error) {
	output, err := a.s3Client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.prefix + key),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, nil, fmt.Errorf("failed to retrieve file from S3: %w", err)
	}

	metadata := make(map[string]string, len(output.Metadata))
	for k, v := range output.Metadata {
		if v != nil {
			metadata[k] = *v
		}
	}
	return output.Body, metadata, nil
}

// Delete removes an object from Amazon S3
func (a *AmazonS3Storage) Delete(ctx context.Context, key string) error {
	_, err := a.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.prefix + key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file from S3: %w", err)
	}
	return nil
}
