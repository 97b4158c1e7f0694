// Package main uploads a room photo to the analyze proxy and prints the result
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/example/b2room/internal/capture"
	"github.com/example/b2room/internal/catalog"
	"github.com/example/b2room/internal/client"
	"github.com/example/b2room/internal/config"
	"github.com/example/b2room/internal/logging"
	"github.com/example/b2room/internal/recommend"
	"github.com/example/b2room/internal/upload"
)

var (
	configFile = flag.String("config", "b2room.json", "Configuration file path")
	filePath   = flag.String("file", "", "Image file to analyze")
	dataURL    = flag.String("dataurl", "", "File holding a base64 data URL from the camera, or - for stdin")
	proxyURL   = flag.String("proxy", "", "Proxy base URL (overrides config)")
	timeout    = flag.Duration("timeout", 0, "Request timeout (overrides config)")
	withRecs   = flag.Bool("recommend", false, "Also print furniture recommendations from the built-in catalog")
	style      = flag.String("style", "", "Preferred style for -recommend")
	space      = flag.String("space", "", "Preferred space for -recommend")
)

func main() {
	flag.Parse()

	settings, err := config.LoadConfig(*configFile)
	if err != nil {
		logging.Setup("info", true)
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Setup(settings.Logging.Level, true)

	img, err := readImage(*filePath, *dataURL, os.Stdin)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read image")
	}

	base := settings.Client.ProxyURL
	if *proxyURL != "" {
		base = *proxyURL
	}
	budget := settings.ClientTimeout()
	if *timeout > 0 {
		budget = *timeout
	}

	c := client.New(base, client.Options{Timeout: budget})
	env := c.UploadImageToAnalyze(context.Background(), img)

	out := map[string]interface{}{"analysis": env}
	if *withRecs {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		res, err := recommend.NewService(catalog.NewMockSource()).Recommend(ctx, recommend.Request{
			Style:    *style,
			Space:    *space,
			Envelope: env,
		})
		if err != nil {
			log.Error().Err(err).Msg("Recommendation failed")
		} else {
			out["recommendations"] = res
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatal().Err(err).Msg("Failed to write result")
	}
	if !env.Success {
		os.Exit(1)
	}
}

// readImage loads the photo from a file or from a data URL. dataURL names a
// file holding the URL, or "-" to read it from stdin.
func readImage(file, dataURL string, stdin io.Reader) (*upload.Image, error) {
	switch {
	case file != "" && dataURL != "":
		return nil, fmt.Errorf("use either -file or -dataurl")
	case file != "":
		return capture.LoadFile(file)
	case dataURL != "":
		r := stdin
		if dataURL != "-" {
			f, err := os.Open(dataURL)
			if err != nil {
				return nil, err
			}
			defer f.Close()
			r = f
		}
		raw, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		return capture.Base64ToFile(strings.TrimSpace(string(raw)), "")
	default:
		return nil, fmt.Errorf("one of -file or -dataurl is required")
	}
}
