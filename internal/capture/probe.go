package capture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/example/b2room/internal/upload"
)

// Dimensions is what Probe reads from an image header
type Dimensions struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
}

// Probe decodes only the image header. It is informational and never gates validation.
func Probe(img *upload.Image) (Dimensions, error) {
	if img == nil || len(img.Data) == 0 {
		return Dimensions{}, errors.New("empty image")
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(img.Data))
	if err != nil {
		return Dimensions{}, fmt.Errorf("failed to read image header: %w", err)
	}

	return Dimensions{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}
