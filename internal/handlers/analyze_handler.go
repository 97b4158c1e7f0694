// Package handlers provides the HTTP handlers of the b2room server
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/example/b2room/internal/capture"
	"github.com/example/b2room/internal/models"
	"github.com/example/b2room/internal/predict"
	"github.com/example/b2room/internal/transport"
	"github.com/example/b2room/internal/upload"
)

const (
	// ImageField is the multipart field the proxy reads
	ImageField = "image"

	// room for multipart framing on top of the largest accepted image
	formOverhead = 1 << 20
	formMemory   = 32 << 20

	DefaultPredictTimeout = 30 * time.Second
)

// Progress event types published for every analysis
const (
	EventAnalysisStarted   = "analysis_started"
	EventAnalysisValidated = "analysis_validated"
	EventAnalysisForwarded = "analysis_forwarded"
	EventAnalysisCompleted = "analysis_completed"
	EventAnalysisFailed    = "analysis_failed"
)

// Predictor sends an image to the prediction service
type Predictor interface {
	Predict(ctx context.Context, img *upload.Image) (json.RawMessage, error)
}

// ProgressNotifier receives analysis lifecycle events. Implementations must not block.
type ProgressNotifier interface {
	SendTaskUpdate(taskID string, updateType string, content interface{})
}

// AnalyzeOptions configures the analyze proxy
type AnalyzeOptions struct {
	// Timeout bounds the outbound prediction call
	Timeout time.Duration
	// Production hides internal error text and remote bodies
	Production bool
	Progress   ProgressNotifier
}

// AnalyzeHandler validates uploaded room photos and proxies them to the prediction service
type AnalyzeHandler struct {
	predictor Predictor
	opts      AnalyzeOptions
}

// NewAnalyzeHandler creates a new analyze handler
func NewAnalyzeHandler(predictor Predictor, opts AnalyzeOptions) *AnalyzeHandler {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultPredictTimeout
	}
	return &AnalyzeHandler{predictor: predictor, opts: opts}
}

// UploadImage handles POST /api/upload-image
func (h *AnalyzeHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	analysisID := requestID(r)
	w.Header().Set("X-Analysis-ID", analysisID)
	logger := log.With().Str("analysis_id", analysisID).Logger()

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error().Interface("panic", rec).Bytes("stack", debug.Stack()).Msg("analyze handler panicked")
			env := models.Failed(models.CodeInternalError, "An internal server error occurred.", "").
				WithProcessingTime(time.Since(start))
			if !h.opts.Production {
				env.WithDetails(fmt.Sprint(rec))
			}
			h.finish(w, analysisID, env, http.StatusInternalServerError)
		}
	}()

	if r.Method != http.MethodPost {
		methodNotAllowed(w, r)
		return
	}

	logger.Info().Msg("image analysis request started")
	h.notify(analysisID, EventAnalysisStarted, nil)

	img, env := h.readImage(w, r)
	if env != nil {
		logger.Warn().Str("code", string(env.Code)).Msg("upload rejected")
		h.finish(w, analysisID, env, http.StatusBadRequest)
		return
	}

	if err := upload.Validate(img); err != nil {
		var vErr *upload.ValidationError
		if !errors.As(err, &vErr) {
			vErr = &upload.ValidationError{Code: models.CodeNoFile, Message: err.Error()}
		}
		logger.Warn().Str("code", string(vErr.Code)).Str("name", img.FileName).
			Int64("size", img.Size).Str("type", img.MimeType).Msg("upload rejected")
		h.finish(w, analysisID, vErr.Envelope(), http.StatusBadRequest)
		return
	}

	event := logger.Info().Str("name", img.FileName).Str("size", fmt.Sprintf("%.1fKB", float64(img.Size)/1024)).Str("type", img.MimeType)
	if dims, err := capture.Probe(img); err == nil {
		event = event.Int("width", dims.Width).Int("height", dims.Height)
	}
	event.Msg("upload validated")
	h.notify(analysisID, EventAnalysisValidated, img.Info())

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.Timeout)
	defer cancel()

	h.notify(analysisID, EventAnalysisForwarded, nil)
	analysis, err := h.predictor.Predict(ctx, img)
	if err != nil {
		env, status := h.classify(ctx, err, &logger)
		h.finish(w, analysisID, env.WithProcessingTime(time.Since(start)), status)
		return
	}

	elapsed := time.Since(start)
	logger.Info().Int64("processing_ms", elapsed.Milliseconds()).Msg("image analysis completed")
	h.finish(w, analysisID, models.Succeeded(analysis, img.Info(), elapsed, time.Now()), http.StatusOK)
}

// readImage extracts the "image" part. A non-nil envelope means the request carried no usable file.
func (h *AnalyzeHandler) readImage(w http.ResponseWriter, r *http.Request) (*upload.Image, *models.AnalysisEnvelope) {
	r.Body = http.MaxBytesReader(w, r.Body, upload.MaxFileSize+formOverhead)

	if err := r.ParseMultipartForm(formMemory); err != nil {
		if isBodyTooLarge(err) {
			return nil, (&upload.ValidationError{
				Code:    models.CodeFileTooLarge,
				Message: fmt.Sprintf("File is too large. Up to %dMB is allowed.", upload.MaxFileSize/1024/1024),
			}).Envelope()
		}
		return nil, noFile()
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(ImageField)
	if err != nil {
		return nil, noFile()
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, noFile()
	}

	return upload.NewImage(header.Filename, partType(header.Header.Get("Content-Type")), data), nil
}

// classify turns a failed prediction call into an envelope and the status to answer with
func (h *AnalyzeHandler) classify(ctx context.Context, err error, logger *zerolog.Logger) (*models.AnalysisEnvelope, int) {
	var remote *predict.RemoteError
	switch {
	case errors.As(err, &remote):
		logger.Error().Int("status", remote.StatusCode).Str("body", remote.Body).Msg("prediction service returned an error")
		env := models.Failed(models.CodeForRemoteStatus(remote.StatusCode), "The analysis server returned an error.", "")
		env.Status = remote.StatusCode
		if !h.opts.Production {
			env.WithDetails(remote.Body)
		}
		return env, models.ProxyStatusForRemote(remote.StatusCode)

	case transport.IsTimeout(ctx, err):
		logger.Error().Dur("timeout", h.opts.Timeout).Msg("prediction request timed out")
		return models.Failed(models.CodeTimeout, "The analysis request timed out.", ""), http.StatusRequestTimeout

	case transport.IsConnectivity(err):
		logger.Error().Err(err).Msg("prediction service unreachable")
		return models.Failed(models.CodeNetworkError, "Cannot connect to the analysis server.", ""), http.StatusServiceUnavailable

	default:
		logger.Error().Err(err).Msg("unexpected analysis failure")
		env := models.Failed(models.CodeInternalError, "An internal server error occurred.", "")
		if !h.opts.Production {
			env.WithDetails(err.Error())
		}
		return env, http.StatusInternalServerError
	}
}

func (h *AnalyzeHandler) finish(w http.ResponseWriter, analysisID string, env *models.AnalysisEnvelope, status int) {
	if env.Success {
		h.notify(analysisID, EventAnalysisCompleted, env.Data.Metadata)
	} else {
		h.notify(analysisID, EventAnalysisFailed, map[string]interface{}{"code": env.Code, "status": status})
	}
	sendJSONResponse(w, env, status)
}

func (h *AnalyzeHandler) notify(analysisID, event string, content interface{}) {
	if h.opts.Progress == nil {
		return
	}
	h.opts.Progress.SendTaskUpdate(analysisID, event, content)
}

func noFile() *models.AnalysisEnvelope {
	var vErr *upload.ValidationError
	errors.As(upload.Validate(nil), &vErr)
	return vErr.Envelope()
}

func isBodyTooLarge(err error) bool {
	var mbErr *http.MaxBytesError
	if errors.As(err, &mbErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}

// partType normalizes a part's Content-Type to its bare media type
func partType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType
}
