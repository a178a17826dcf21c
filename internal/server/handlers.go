package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ashita-ai/kaiseki/internal/model"
	"github.com/ashita-ai/kaiseki/internal/report"
	"github.com/ashita-ai/kaiseki/internal/runner"
	"github.com/ashita-ai/kaiseki/internal/storage"
)

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	store               *storage.Store
	runner              *runner.Runner
	logger              *slog.Logger
	startedAt           time.Time
	version             string
	maxRequestBodyBytes int64
	openapiSpec         []byte
}

// HandlersDeps holds all dependencies for constructing Handlers.
type HandlersDeps struct {
	Store               *storage.Store
	Runner              *runner.Runner
	Logger              *slog.Logger
	Version             string
	MaxRequestBodyBytes int64
	OpenAPISpec         []byte
}

// NewHandlers creates a new Handlers with all dependencies.
func NewHandlers(d HandlersDeps) *Handlers {
	return &Handlers{
		store:               d.Store,
		runner:              d.Runner,
		logger:              d.Logger,
		startedAt:           time.Now(),
		version:             d.Version,
		maxRequestBodyBytes: d.MaxRequestBodyBytes,
		openapiSpec:         d.OpenAPISpec,
	}
}

// HandleOpenAPISpec serves the embedded OpenAPI specification.
func (h *Handlers) HandleOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	if len(h.openapiSpec) == 0 {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.openapiSpec)
}

// HandleAnalyze handles POST /v1/analyze. Execution failure is still a 200:
// the result carries success=false and the error, so the UI can render the
// failure the same way it renders a report.
func (h *Handlers) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req model.AnalyzeRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	result := h.runner.Analyze(r.Context(), req.Code)

	// History is best-effort; a full result still goes back to the client.
	if _, err := h.store.RecordAnalysis(r.Context(), len(req.Code), result); err != nil {
		h.logger.Warn("failed to record analysis", "error", err,
			"request_id", RequestIDFromContext(r.Context()))
	}

	writeJSON(w, r, http.StatusOK, result)
}

// HandleListAnalyses handles GET /v1/analyses.
func (h *Handlers) HandleListAnalyses(w http.ResponseWriter, r *http.Request) {
	analyses, err := h.store.ListAnalyses(r.Context(), queryLimit(r, 100))
	if err != nil {
		h.writeInternalError(w, r, "failed to list analyses", err)
		return
	}
	writeJSON(w, r, http.StatusOK, model.ListAnalysesResponse{Analyses: analyses})
}

// HandleSaveCode handles POST /v1/snippets.
func (h *Handlers) HandleSaveCode(w http.ResponseWriter, r *http.Request) {
	var req model.SaveCodeRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	snip, err := h.store.SaveCode(r.Context(), req.Code, req.Filename)
	if err != nil {
		h.writeInternalError(w, r, "failed to save code", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, model.SaveResponse{
		Message:  "Code saved successfully as " + snip.Filename,
		Filename: snip.Filename,
	})
}

// HandleSaveReport handles POST /v1/reports. The report text is rendered
// server-side from the submitted analysis payload.
func (h *Handlers) HandleSaveReport(w http.ResponseWriter, r *http.Request) {
	var req model.SaveReportRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	text := report.Render(req.Code, req.Analysis, time.Now())
	snip, err := h.store.SaveReport(r.Context(), text, req.Filename)
	if err != nil {
		h.writeInternalError(w, r, "failed to save report", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, model.SaveResponse{
		Message:  "Report saved successfully as " + snip.Filename,
		Filename: snip.Filename,
	})
}

// HandleListSnippets handles GET /v1/snippets.
func (h *Handlers) HandleListSnippets(w http.ResponseWriter, r *http.Request) {
	snippets, err := h.store.List(r.Context(), queryLimit(r, 100))
	if err != nil {
		h.writeInternalError(w, r, "failed to list snippets", err)
		return
	}
	writeJSON(w, r, http.StatusOK, model.ListSnippetsResponse{Snippets: snippets})
}

// HandleGetSnippet handles GET /v1/snippets/{filename}, returning the raw
// saved body.
func (h *Handlers) HandleGetSnippet(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")
	if err := model.ValidateFilename(filename); err != nil || filename == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid filename")
		return
	}

	body, err := h.store.Read(r.Context(), filename)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "snippet not found")
		return
	}
	if err != nil {
		h.writeInternalError(w, r, "failed to read snippet", err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	storageStatus := "connected"
	status := "healthy"
	httpStatus := http.StatusOK

	if err := h.store.Ping(r.Context()); err != nil {
		storageStatus = "disconnected"
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, r, httpStatus, model.HealthResponse{
		Status:  status,
		Version: h.version,
		Storage: storageStatus,
		Uptime:  int64(time.Since(h.startedAt).Seconds()),
	})
}

func (h *Handlers) writeInternalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.Error(msg, "error", err, "request_id", RequestIDFromContext(r.Context()))
	writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, msg)
}

// maxQueryLimit is the maximum allowed value for limit query parameters.
const maxQueryLimit = 1000

func queryInt(r *http.Request, key string, defaultVal int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

// queryLimit returns a bounded limit value from query params.
// Values are clamped to [1, maxQueryLimit].
func queryLimit(r *http.Request, defaultVal int) int {
	limit := queryInt(r, "limit", defaultVal)
	if limit < 1 {
		return 1
	}
	if limit > maxQueryLimit {
		return maxQueryLimit
	}
	return limit
}
