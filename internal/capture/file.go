package capture

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/b2room/internal/upload"
)

// LoadFile reads an image from disk the way a file picker hands it over.
// The type comes from the extension and falls back to content sniffing.
func LoadFile(path string) (*upload.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}

	return upload.NewImage(filepath.Base(path), DetectType(path, data), data), nil
}

// DetectType guesses the MIME type of an image file
func DetectType(path string, data []byte) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); t != "" {
		if mediaType, _, err := mime.ParseMediaType(t); err == nil {
			return mediaType
		}
	}

	mediaType, _, err := mime.ParseMediaType(http.DetectContentType(data))
	if err != nil {
		return "application/octet-stream"
	}
	return mediaType
}
