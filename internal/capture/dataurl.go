// Package capture turns camera captures and picked files into upload.Image values
package capture

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/example/b2room/internal/upload"
)

const (
	// DefaultFileName names images decoded from a data URL when no name is given
	DefaultFileName = "captured-image.jpg"

	// CapturedMimeType is the type every decoded capture is labelled with
	CapturedMimeType = "image/jpeg"
)

// EncodeDataURL renders data as a base64 data URL, like a canvas capture produces
func EncodeDataURL(data []byte, mimeType string) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Base64ToFile decodes a data URL into an image named fileName.
// Everything up to the first comma is dropped; input without a comma is decoded whole.
// The result is always labelled image/jpeg regardless of the prefix.
func Base64ToFile(dataURL, fileName string) (*upload.Image, error) {
	payload := dataURL
	if i := strings.IndexByte(dataURL, ','); i >= 0 {
		payload = dataURL[i+1:]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode captured image: %w", err)
	}

	if fileName == "" {
		fileName = DefaultFileName
	}
	return upload.NewImage(fileName, CapturedMimeType, data), nil
}
