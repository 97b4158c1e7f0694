// Package upload holds the image payload type and the validation rules shared by
// the analyze proxy and the client wrapper.
package upload

import (
	"fmt"

	"github.com/example/b2room/internal/models"
)

// MaxFileSize is the largest accepted upload in bytes (10MB)
const MaxFileSize int64 = 10 * 1024 * 1024

// AllowedTypes lists the accepted MIME types
var AllowedTypes = []string{"image/jpeg", "image/jpg", "image/png", "image/webp"}

// Image is a captured or uploaded image ready for analysis
type Image struct {
	Data     []byte
	MimeType string
	Size     int64
	FileName string
}

// NewImage wraps raw bytes as an Image
func NewImage(fileName, mimeType string, data []byte) *Image {
	return &Image{
		Data:     data,
		MimeType: mimeType,
		Size:     int64(len(data)),
		FileName: fileName,
	}
}

// Info returns the metadata reported back to callers
func (img *Image) Info() models.ImageInfo {
	return models.ImageInfo{
		Name:     img.FileName,
		Size:     img.Size,
		MimeType: img.MimeType,
	}
}

// ValidationError is returned when an image is rejected before any network call
type ValidationError struct {
	Code    models.ErrorCode
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsAllowedType reports whether mimeType is one of AllowedTypes
func IsAllowedType(mimeType string) bool {
	for _, t := range AllowedTypes {
		if t == mimeType {
			return true
		}
	}
	return false
}

// Validate checks presence, size and type, in that order
func Validate(img *Image) error {
	if img == nil {
		return &ValidationError{
			Code:    models.CodeNoFile,
			Message: "No image file was provided.",
		}
	}

	if img.Size > MaxFileSize {
		return &ValidationError{
			Code:    models.CodeFileTooLarge,
			Message: fmt.Sprintf("File is too large. Up to %dMB is allowed.", MaxFileSize/1024/1024),
		}
	}

	if !IsAllowedType(img.MimeType) {
		return &ValidationError{
			Code:    models.CodeInvalidFileType,
			Message: "Unsupported file type. Only JPEG, PNG and WebP are accepted.",
		}
	}

	return nil
}

// Envelope converts a validation failure into the normalized failure envelope
func (e *ValidationError) Envelope() *models.AnalysisEnvelope {
	env := models.Failed(e.Code, e.Message, e.Message)
	switch e.Code {
	case models.CodeFileTooLarge:
		env.MaxSize = MaxFileSize
	case models.CodeInvalidFileType:
		env.AllowedTypes = append([]string(nil), AllowedTypes...)
	}
	return env
}
