// Package predict talks to the external prediction service
package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/example/b2room/internal/config"
	"github.com/example/b2room/internal/upload"
)

const (
	predictPath = "/predict"
	healthPath  = "/health"

	// FileField is the multipart field the prediction service reads
	FileField = "file"
)

// ErrInvalidResponse is returned when a 2xx body is not JSON
var ErrInvalidResponse = errors.New("prediction service returned a non-JSON body")

// RemoteError is a non-2xx answer from the prediction service
type RemoteError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("prediction service responded %d %s", e.StatusCode, e.Status)
}

// Client forwards images to {baseURL}/predict.
// It holds no per-call state and is safe for concurrent use.
type Client struct {
	httpClient *resty.Client
	baseURL    string
}

// NewClient builds a client from the prediction service settings
func NewClient(cfg config.PredictConfig) *Client {
	baseURL := strings.TrimRight(cfg.URL, "/")

	httpClient := resty.New().
		SetDebug(false).
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json")

	if cfg.HasBasicAuth() {
		httpClient.SetBasicAuth(cfg.Username, cfg.Password)
	}

	return &Client{httpClient: httpClient, baseURL: baseURL}
}

// BaseURL returns the configured service address
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Predict posts img as multipart field "file" and returns the remote JSON untouched.
// ctx bounds the whole call; no retry is attempted.
func (c *Client) Predict(ctx context.Context, img *upload.Image) (json.RawMessage, error) {
	res, err := c.httpClient.R().
		SetContext(ctx).
		SetMultipartField(FileField, img.FileName, img.MimeType, bytes.NewReader(img.Data)).
		Post(predictPath)
	if err != nil {
		return nil, err
	}

	if !res.IsSuccess() {
		return nil, &RemoteError{
			StatusCode: res.StatusCode(),
			Status:     http.StatusText(res.StatusCode()),
			Body:       res.String(),
		}
	}

	body := res.Body()
	if !json.Valid(body) {
		return nil, ErrInvalidResponse
	}

	return json.RawMessage(body), nil
}

// Health calls the service's health endpoint
func (c *Client) Health(ctx context.Context) error {
	res, err := c.httpClient.R().
		SetContext(ctx).
		Get(healthPath)
	if err != nil {
		return fmt.Errorf("prediction service unreachable: %w", err)
	}
	if !res.IsSuccess() {
		return &RemoteError{StatusCode: res.StatusCode(), Status: http.StatusText(res.StatusCode()), Body: res.String()}
	}
	return nil
}
