// Package client calls the analyze proxy on behalf of the capture flow
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/example/b2room/internal/models"
	"github.com/example/b2room/internal/transport"
	"github.com/example/b2room/internal/upload"
)

const (
	uploadPath = "/api/upload-image"

	DefaultTimeout = 5 * time.Second

	fallbackErrorText = "An error occurred while analyzing the image."
)

// ProxyError is returned when the proxy answers with a non-2xx status
type ProxyError struct {
	StatusCode int
	Code       models.ErrorCode
	Message    string
}

func (e *ProxyError) Error() string {
	return e.Message
}

// Options configures a Client
type Options struct {
	// Timeout bounds one proxy call, independent of the proxy's own budget
	Timeout time.Duration
}

// Client uploads images to the analyze proxy
type Client struct {
	http    *resty.Client
	timeout time.Duration
}

// New creates a client for the proxy at baseURL
func New(baseURL string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetHeader("Accept", "application/json"),
		timeout: opts.Timeout,
	}
}

// Analyze validates img and posts it to the proxy.
// A non-2xx answer becomes a *ProxyError carrying the proxy's error text.
func (c *Client) Analyze(ctx context.Context, img *upload.Image) (*models.AnalysisEnvelope, error) {
	if err := upload.Validate(img); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	var env models.AnalysisEnvelope
	res, err := c.http.R().
		SetContext(ctx).
		SetMultipartField("image", img.FileName, img.MimeType, bytes.NewReader(img.Data)).
		Post(uploadPath)
	if err != nil {
		return nil, err
	}

	if jsonErr := json.Unmarshal(res.Body(), &env); jsonErr != nil && res.IsSuccess() {
		return nil, fmt.Errorf("failed to decode proxy response: %w", jsonErr)
	}

	if !res.IsSuccess() {
		msg := env.Error
		if msg == "" {
			msg = fallbackErrorText
		}
		log.Error().Int("status", res.StatusCode()).Str("code", string(env.Code)).Msg("analyze proxy returned an error")
		return nil, &ProxyError{StatusCode: res.StatusCode(), Code: env.Code, Message: msg}
	}

	event := log.Info().Bool("success", env.Success).Int64("client_ms", time.Since(start).Milliseconds())
	if env.Data != nil {
		event = event.Int64("server_ms", env.Data.Metadata.ProcessingTime)
	}
	event.Msg("image analysis finished")

	return &env, nil
}

// UploadImageToAnalyze never fails: every error is folded into a failure envelope
func (c *Client) UploadImageToAnalyze(ctx context.Context, img *upload.Image) *models.AnalysisEnvelope {
	if img != nil {
		log.Info().Str("name", img.FileName).Str("size", fmt.Sprintf("%.1fKB", float64(img.Size)/1024)).
			Str("type", img.MimeType).Msg("image analysis started")
	}

	env, err := c.Analyze(ctx, img)
	if err == nil {
		return env
	}
	return c.failure(err)
}

func (c *Client) failure(err error) *models.AnalysisEnvelope {
	var vErr *upload.ValidationError
	if errors.As(err, &vErr) {
		return models.Failed(vErr.Code, vErr.Message, vErr.Message)
	}

	log.Error().Err(err).Msg("image analysis failed")

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.Failed(models.CodeTimeout, "Timeout", "The server did not respond in time.")
	case transport.IsConnectivity(err):
		return models.Failed(models.CodeNetworkError, "Network error", "Please check your network connection.")
	default:
		return models.Failed(models.CodeClientError, err.Error(), err.Error())
	}
}
