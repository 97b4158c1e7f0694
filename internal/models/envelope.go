// Package models provides data structures shared by the proxy, the client and the catalog API
package models

import (
	"encoding/json"
	"net/http"
	"time"
)

// ErrorCode tags the point where an analysis request failed
type ErrorCode string

// Error codes carried in failed envelopes
const (
	CodeNoFile          ErrorCode = "NO_FILE"
	CodeFileTooLarge    ErrorCode = "FILE_TOO_LARGE"
	CodeInvalidFileType ErrorCode = "INVALID_FILE_TYPE"
	CodeUnauthorized    ErrorCode = "UNAUTHORIZED"
	CodeForbidden       ErrorCode = "FORBIDDEN"
	CodePayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE"
	CodeTooManyRequests ErrorCode = "TOO_MANY_REQUESTS"
	CodeServerError     ErrorCode = "SERVER_ERROR"
	CodeTimeout         ErrorCode = "TIMEOUT"
	CodeNetworkError    ErrorCode = "NETWORK_ERROR"
	CodeInternalError   ErrorCode = "INTERNAL_ERROR"
	CodeClientError     ErrorCode = "CLIENT_ERROR"

	// Routing failures, answered before any handler runs
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeMethodNotAllowed ErrorCode = "METHOD_NOT_ALLOWED"
)

// CodeForRemoteStatus maps a non-2xx status of the prediction service to a local code
func CodeForRemoteStatus(status int) ErrorCode {
	switch status {
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusRequestEntityTooLarge:
		return CodePayloadTooLarge
	case http.StatusTooManyRequests:
		return CodeTooManyRequests
	default:
		return CodeServerError
	}
}

// ProxyStatusForRemote returns the status the proxy answers with for a failed remote call.
// Remote 5xx responses become 502, everything else is passed through.
func ProxyStatusForRemote(status int) int {
	if status >= 500 {
		return http.StatusBadGateway
	}
	return status
}

// ImageInfo describes the uploaded file
type ImageInfo struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"type"`
}

// AnalysisMetadata is attached to every successful analysis
type AnalysisMetadata struct {
	ProcessingTime int64     `json:"processingTime"`
	Timestamp      string    `json:"timestamp"`
	ImageInfo      ImageInfo `json:"imageInfo"`
}

// AnalysisData wraps the opaque remote result
type AnalysisData struct {
	Analysis json.RawMessage  `json:"analysis"`
	Metadata AnalysisMetadata `json:"metadata"`
}

// AnalysisEnvelope is the normalized response for both success and failure.
// Exactly one of Data (Success=true) or Error/Code (Success=false) is set.
type AnalysisEnvelope struct {
	Success        bool          `json:"success"`
	Data           *AnalysisData `json:"data,omitempty"`
	Message        string        `json:"message"`
	Error          string        `json:"error,omitempty"`
	Code           ErrorCode     `json:"code,omitempty"`
	Details        string        `json:"details,omitempty"`
	ProcessingTime *int64        `json:"processingTime,omitempty"`
	Status         int           `json:"status,omitempty"`
	MaxSize        int64         `json:"maxSize,omitempty"`
	AllowedTypes   []string      `json:"allowedTypes,omitempty"`
}

// Succeeded builds a success envelope
func Succeeded(analysis json.RawMessage, info ImageInfo, elapsed time.Duration, at time.Time) *AnalysisEnvelope {
	return &AnalysisEnvelope{
		Success: true,
		Data: &AnalysisData{
			Analysis: analysis,
			Metadata: AnalysisMetadata{
				ProcessingTime: elapsed.Milliseconds(),
				Timestamp:      at.UTC().Format(time.RFC3339Nano),
				ImageInfo:      info,
			},
		},
		Message: "Image analysis completed.",
	}
}

// Failed builds a failure envelope
func Failed(code ErrorCode, errMsg, message string) *AnalysisEnvelope {
	if message == "" {
		message = errMsg
	}
	return &AnalysisEnvelope{
		Success: false,
		Message: message,
		Error:   errMsg,
		Code:    code,
	}
}

// WithProcessingTime records elapsed time on a failure envelope
func (e *AnalysisEnvelope) WithProcessingTime(elapsed time.Duration) *AnalysisEnvelope {
	ms := elapsed.Milliseconds()
	e.ProcessingTime = &ms
	return e
}

// WithDetails attaches diagnostic text
func (e *AnalysisEnvelope) WithDetails(details string) *AnalysisEnvelope {
	e.Details = details
	return e
}

// Valid reports whether the envelope honours the success/failure invariant
func (e *AnalysisEnvelope) Valid() bool {
	if e == nil {
		return false
	}
	if e.Success {
		return e.Data != nil && e.Error == "" && e.Code == ""
	}
	return e.Data == nil && e.Error != "" && e.Code != ""
}

// APIResponse is a generic API response structure
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}
