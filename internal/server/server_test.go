package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/ashita-ai/kaiseki/internal/model"
	"github.com/ashita-ai/kaiseki/internal/ratelimit"
	"github.com/ashita-ai/kaiseki/internal/runner"
	"github.com/ashita-ai/kaiseki/internal/storage"
)

var testUI = fstest.MapFS{
	"index.html": &fstest.MapFile{Data: []byte("<!doctype html><title>kaiseki</title>")},
	"app.js":     &fstest.MapFile{Data: []byte("console.log('kaiseki')")},
}

func newTestServer(t *testing.T, mutate func(*ServerConfig)) *Server {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.Open(filepath.Join(dir, "saved"), filepath.Join(dir, "index.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := ServerConfig{
		Store:               store,
		Runner:              runner.New(5*time.Second, 100_000, logger),
		Logger:              logger,
		UIFS:                testUI,
		OpenAPISpec:         []byte("openapi: 3.1.0\n"),
		Version:             "test",
		MaxRequestBodyBytes: 1 << 20,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg)
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, target any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage    `json:"data"`
		Meta model.ResponseMeta `json:"meta"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v\nbody: %s", err, rec.Body.String())
	}
	if envelope.Meta.RequestID == "" {
		t.Error("envelope meta missing request_id")
	}
	if err := json.Unmarshal(envelope.Data, target); err != nil {
		t.Fatalf("decode data: %v\nbody: %s", err, rec.Body.String())
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) model.ErrorDetail {
	t.Helper()
	var envelope model.APIError
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error envelope: %v\nbody: %s", err, rec.Body.String())
	}
	return envelope.Error
}

func TestAnalyzeEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doJSON(t, srv, http.MethodPost, "/v1/analyze",
		model.AnalyzeRequest{Code: "x := 40 + 2\nfmt.Println(x)"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
	var result model.Analysis
	decodeData(t, rec, &result)
	if !result.Success {
		t.Errorf("analysis failed: %s", result.Error)
	}
	if result.Output != "42\n" {
		t.Errorf("output = %q", result.Output)
	}
	if result.TimeComplexity != "O(1)" {
		t.Errorf("time complexity = %q", result.TimeComplexity)
	}
}

func TestAnalyzeExecutionFailureIsStill200(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doJSON(t, srv, http.MethodPost, "/v1/analyze",
		model.AnalyzeRequest{Code: "fmt.Println(undefined)"})

	if rec.Code != http.StatusOK {
		t.Fatalf("execution failure should be a 200 result, got %d", rec.Code)
	}
	var result model.Analysis
	decodeData(t, rec, &result)
	if result.Success {
		t.Error("expected success=false")
	}
	if result.Error == "" {
		t.Error("error message missing from result")
	}
}

func TestAnalyzeRejectsEmptyCode(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doJSON(t, srv, http.MethodPost, "/v1/analyze", model.AnalyzeRequest{Code: "   "})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if detail := decodeError(t, rec); detail.Code != model.ErrCodeInvalidInput {
		t.Errorf("error code = %q", detail.Code)
	}
}

func TestAnalyzeRejectsUnknownFields(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doJSON(t, srv, http.MethodPost, "/v1/analyze",
		map[string]any{"code": "x := 1", "mystery": true})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAnalyzeRejectsOversizedBody(t *testing.T) {
	srv := newTestServer(t, func(cfg *ServerConfig) {
		cfg.MaxRequestBodyBytes = 64
	})
	rec := doJSON(t, srv, http.MethodPost, "/v1/analyze",
		model.AnalyzeRequest{Code: strings.Repeat("x := 1\n", 100)})

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d", rec.Code)
	}
	if detail := decodeError(t, rec); detail.Message != "request body too large" {
		t.Errorf("message = %q", detail.Message)
	}
}

func TestSaveCodeEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doJSON(t, srv, http.MethodPost, "/v1/snippets",
		model.SaveCodeRequest{Code: "x := 1", Filename: "my"})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
	var resp model.SaveResponse
	decodeData(t, rec, &resp)
	if resp.Message != "Code saved successfully as my.go" {
		t.Errorf("message = %q", resp.Message)
	}
	if resp.Filename != "my.go" {
		t.Errorf("filename = %q", resp.Filename)
	}
}

func TestSaveReportEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doJSON(t, srv, http.MethodPost, "/v1/reports", model.SaveReportRequest{
		Code:     "x := 1",
		Filename: "session1",
		Analysis: model.Analysis{Success: true, TimeComplexity: "O(1)"},
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
	var resp model.SaveResponse
	decodeData(t, rec, &resp)
	if resp.Message != "Report saved successfully as session1.txt" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestListSnippetsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	doJSON(t, srv, http.MethodPost, "/v1/snippets", model.SaveCodeRequest{Code: "x := 1", Filename: "a"})
	doJSON(t, srv, http.MethodPost, "/v1/snippets", model.SaveCodeRequest{Code: "y := 2", Filename: "b"})

	rec := doJSON(t, srv, http.MethodGet, "/v1/snippets?limit=10", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp model.ListSnippetsResponse
	decodeData(t, rec, &resp)
	if len(resp.Snippets) != 2 {
		t.Fatalf("got %d snippets", len(resp.Snippets))
	}
	for _, s := range resp.Snippets {
		if s.ContentHash == "" {
			t.Errorf("snippet %s missing content hash", s.Filename)
		}
	}
}

func TestAnalyzeRecordsHistory(t *testing.T) {
	srv := newTestServer(t, nil)
	doJSON(t, srv, http.MethodPost, "/v1/analyze", model.AnalyzeRequest{Code: "x := 1"})
	doJSON(t, srv, http.MethodPost, "/v1/analyze", model.AnalyzeRequest{Code: "fmt.Println(undefined)"})

	rec := doJSON(t, srv, http.MethodGet, "/v1/analyses", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp model.ListAnalysesResponse
	decodeData(t, rec, &resp)
	if len(resp.Analyses) != 2 {
		t.Fatalf("got %d history rows", len(resp.Analyses))
	}
	// One succeeded and one failed; both runs must be recorded.
	var succeeded, failed int
	for _, a := range resp.Analyses {
		if a.Success {
			succeeded++
		} else {
			failed++
		}
	}
	if succeeded != 1 || failed != 1 {
		t.Errorf("history = %+v", resp.Analyses)
	}
}

func TestGetSnippetReturnsRawBody(t *testing.T) {
	srv := newTestServer(t, nil)
	doJSON(t, srv, http.MethodPost, "/v1/snippets", model.SaveCodeRequest{Code: "x := 1", Filename: "a"})

	rec := doJSON(t, srv, http.MethodGet, "/v1/snippets/a.go", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type = %q", ct)
	}
	if rec.Body.String() != "x := 1" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestGetSnippetNotFound(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doJSON(t, srv, http.MethodGet, "/v1/snippets/missing.go", nil)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if detail := decodeError(t, rec); detail.Code != model.ErrCodeNotFound {
		t.Errorf("error code = %q", detail.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doJSON(t, srv, http.MethodGet, "/health", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp model.HealthResponse
	decodeData(t, rec, &resp)
	if resp.Status != "healthy" || resp.Storage != "connected" {
		t.Errorf("health = %+v", resp)
	}
	if resp.Version != "test" {
		t.Errorf("version = %q", resp.Version)
	}
}

func TestOpenAPISpecEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doJSON(t, srv, http.MethodGet, "/openapi.yaml", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/yaml" {
		t.Errorf("content type = %q", ct)
	}
	if !strings.HasPrefix(rec.Body.String(), "openapi:") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "fixed-id" {
		t.Errorf("request id not echoed: %q", got)
	}

	rec = doJSON(t, srv, http.MethodGet, "/health", nil)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("request id not generated")
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doJSON(t, srv, http.MethodGet, "/health", nil)

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
}

func TestSPAIndexAndFallback(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doJSON(t, srv, http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "kaiseki") {
		t.Errorf("index not served: %d %q", rec.Code, rec.Body.String())
	}

	// Unknown client-side routes fall back to index.html.
	rec = doJSON(t, srv, http.MethodGet, "/some/client/route", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<!doctype html>") {
		t.Errorf("fallback not served: %d", rec.Code)
	}
	if cc := rec.Header().Get("Cache-Control"); !strings.Contains(cc, "no-cache") {
		t.Errorf("index fallback cache control = %q", cc)
	}

	rec = doJSON(t, srv, http.MethodGet, "/app.js", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "console.log") {
		t.Errorf("asset not served: %d", rec.Code)
	}
	if cc := rec.Header().Get("Cache-Control"); !strings.Contains(cc, "max-age") {
		t.Errorf("asset cache control = %q", cc)
	}
}

func TestUnmatchedAPIRouteIsJSON404(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doJSON(t, srv, http.MethodGet, "/v1/nope", nil)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), `"NOT_FOUND"`) {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestAnalyzeRateLimited(t *testing.T) {
	srv := newTestServer(t, func(cfg *ServerConfig) {
		cfg.Limiter = ratelimit.NewMemoryLimiter(0.001, 1)
	})

	first := doJSON(t, srv, http.MethodPost, "/v1/analyze", model.AnalyzeRequest{Code: "x := 1"})
	if first.Code != http.StatusOK {
		t.Fatalf("first request status = %d", first.Code)
	}
	second := doJSON(t, srv, http.MethodPost, "/v1/analyze", model.AnalyzeRequest{Code: "x := 1"})
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", second.Code)
	}
	if detail := decodeError(t, second); detail.Code != model.ErrCodeRateLimited {
		t.Errorf("error code = %q", detail.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}
}

func TestExtraRoutesAndMiddleware(t *testing.T) {
	var sawMiddleware bool
	srv := newTestServer(t, func(cfg *ServerConfig) {
		cfg.ExtraRoutes = []func(mux *http.ServeMux){
			func(mux *http.ServeMux) {
				mux.HandleFunc("GET /custom", func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusTeapot)
				})
			},
		}
		cfg.ExtraMiddlewares = []func(http.Handler) http.Handler{
			func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					sawMiddleware = true
					next.ServeHTTP(w, r)
				})
			},
		}
	})

	rec := doJSON(t, srv, http.MethodGet, "/custom", nil)
	if rec.Code != http.StatusTeapot {
		t.Errorf("extra route status = %d", rec.Code)
	}
	if !sawMiddleware {
		t.Error("extra middleware not invoked")
	}
}
