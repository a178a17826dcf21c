package model

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// Request body limits. These cap the interpreter's parse workload and keep
// a single oversized submission from filling the saved-code directory.
const (
	MaxCodeBytes   = 64 * 1024 // 64 KB
	MaxFilenameLen = 128
)

// AnalyzeRequest is the request body for POST /v1/analyze.
type AnalyzeRequest struct {
	Code string `json:"code"`
}

// Validate checks the submission against body limits.
func (r AnalyzeRequest) Validate() error {
	if strings.TrimSpace(r.Code) == "" {
		return fmt.Errorf("code must not be empty")
	}
	if len(r.Code) > MaxCodeBytes {
		return fmt.Errorf("code exceeds maximum size of %d bytes", MaxCodeBytes)
	}
	return nil
}

// SaveCodeRequest is the request body for POST /v1/snippets.
type SaveCodeRequest struct {
	Code     string `json:"code"`
	Filename string `json:"filename,omitempty"`
}

func (r SaveCodeRequest) Validate() error {
	if strings.TrimSpace(r.Code) == "" {
		return fmt.Errorf("code must not be empty")
	}
	if len(r.Code) > MaxCodeBytes {
		return fmt.Errorf("code exceeds maximum size of %d bytes", MaxCodeBytes)
	}
	return ValidateFilename(r.Filename)
}

// SaveReportRequest is the request body for POST /v1/reports.
type SaveReportRequest struct {
	Code     string   `json:"code"`
	Filename string   `json:"filename,omitempty"`
	Analysis Analysis `json:"analysis_data"`
}

func (r SaveReportRequest) Validate() error {
	if len(r.Code) > MaxCodeBytes {
		return fmt.Errorf("code exceeds maximum size of %d bytes", MaxCodeBytes)
	}
	return ValidateFilename(r.Filename)
}

// ValidateFilename rejects names that would escape the saved-code directory
// or exceed the length limit. An empty name is valid; storage generates a
// timestamped default.
func ValidateFilename(name string) error {
	if name == "" {
		return nil
	}
	if len(name) > MaxFilenameLen {
		return fmt.Errorf("filename exceeds maximum length of %d characters", MaxFilenameLen)
	}
	if strings.ContainsAny(name, "/\\") || name != path.Base(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("filename must be a plain name without path separators")
	}
	return nil
}

// SaveResponse is the response for the save endpoints.
type SaveResponse struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
}

// ListSnippetsResponse is the response for GET /v1/snippets.
type ListSnippetsResponse struct {
	Snippets []SavedSnippet `json:"snippets"`
}

// ListAnalysesResponse is the response for GET /v1/analyses.
type ListAnalysesResponse struct {
	Analyses []AnalysisRecord `json:"analyses"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Storage string `json:"storage"`
	Uptime  int64  `json:"uptime_seconds"`
}

// APIResponse is the standard response envelope for all HTTP API responses.
type APIResponse struct {
	Data any          `json:"data,omitempty"`
	Meta ResponseMeta `json:"meta"`
}

// APIError is the standard error response envelope.
type APIError struct {
	Error ErrorDetail  `json:"error"`
	Meta  ResponseMeta `json:"meta"`
}

// ResponseMeta contains request metadata included in every response.
type ResponseMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorDetail describes an API error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorCode constants for standard API error codes.
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeRateLimited   = "RATE_LIMITED"
)
