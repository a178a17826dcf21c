package kaiseki

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

// mockServer creates an httptest server that mimics the Kaiseki API.
func mockServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, handler := range handlers {
		mux.HandleFunc(pattern, handler)
	}
	return httptest.NewServer(mux)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	c, err := NewClient(Config{
		BaseURL: serverURL,
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error for empty BaseURL")
	}
}

func TestAnalyzeUnwrapsEnvelope(t *testing.T) {
	srv := mockServer(t, map[string]http.HandlerFunc{
		"POST /v1/analyze": func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Code string `json:"code"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			if req.Code != "x := 1" {
				t.Errorf("code = %q, want %q", req.Code, "x := 1")
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"data": map[string]any{
					"success":         true,
					"execution_time":  0.0012,
					"memory_used":     0.05,
					"time_complexity": "O(1)",
					"output":          "",
				},
				"meta": map[string]any{"request_id": "r1"},
			})
		},
	})
	defer srv.Close()

	analysis, err := newTestClient(t, srv.URL).Analyze(context.Background(), "x := 1")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if !analysis.Success {
		t.Error("expected success")
	}
	if analysis.TimeComplexity != "O(1)" {
		t.Errorf("time_complexity = %q", analysis.TimeComplexity)
	}
	if analysis.ExecutionTime != 0.0012 {
		t.Errorf("execution_time = %v", analysis.ExecutionTime)
	}
}

func TestAnalyzeSurfacesExecutionFailureAsResult(t *testing.T) {
	srv := mockServer(t, map[string]http.HandlerFunc{
		"POST /v1/analyze": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"data": map[string]any{
					"success": false,
					"error":   "Execution error: undefined: y",
				},
			})
		},
	})
	defer srv.Close()

	analysis, err := newTestClient(t, srv.URL).Analyze(context.Background(), "x := y")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if analysis.Success {
		t.Error("expected success=false")
	}
	if analysis.Error == "" {
		t.Error("expected error message")
	}
}

func TestSaveCodeSendsOptionalFilename(t *testing.T) {
	srv := mockServer(t, map[string]http.HandlerFunc{
		"POST /v1/snippets": func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			if _, ok := body["filename"]; ok {
				t.Error("filename should be omitted when empty")
			}
			writeJSON(w, http.StatusCreated, map[string]any{
				"data": map[string]any{
					"message":  "Code saved successfully as go_code_20240101_120000.go",
					"filename": "go_code_20240101_120000.go",
				},
			})
		},
	})
	defer srv.Close()

	saved, err := newTestClient(t, srv.URL).SaveCode(context.Background(), "x := 1", "")
	if err != nil {
		t.Fatalf("SaveCode failed: %v", err)
	}
	if saved.Filename != "go_code_20240101_120000.go" {
		t.Errorf("filename = %q", saved.Filename)
	}
}

func TestSnippetsPassesLimit(t *testing.T) {
	id := uuid.New()
	srv := mockServer(t, map[string]http.HandlerFunc{
		"GET /v1/snippets": func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("limit"); got != "5" {
				t.Errorf("limit = %q, want 5", got)
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"data": map[string]any{
					"snippets": []map[string]any{{
						"id":         id.String(),
						"filename":   "go_code_20240101_120000.go",
						"kind":       "code",
						"size_bytes": 7,
						"created_at": time.Now().UTC().Format(time.RFC3339Nano),
					}},
				},
			})
		},
	})
	defer srv.Close()

	snippets, err := newTestClient(t, srv.URL).Snippets(context.Background(), 5)
	if err != nil {
		t.Fatalf("Snippets failed: %v", err)
	}
	if len(snippets) != 1 {
		t.Fatalf("got %d snippets, want 1", len(snippets))
	}
	if snippets[0].ID != id {
		t.Errorf("id = %v, want %v", snippets[0].ID, id)
	}
}

func TestAnalysesUnwrapsHistory(t *testing.T) {
	id := uuid.New()
	srv := mockServer(t, map[string]http.HandlerFunc{
		"GET /v1/analyses": func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("limit"); got != "3" {
				t.Errorf("limit = %q, want 3", got)
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"data": map[string]any{
					"analyses": []map[string]any{{
						"id":              id.String(),
						"success":         true,
						"execution_time":  0.0012,
						"time_complexity": "O(1)",
						"code_size_bytes": 7,
						"created_at":      time.Now().UTC().Format(time.RFC3339Nano),
					}},
				},
			})
		},
	})
	defer srv.Close()

	analyses, err := newTestClient(t, srv.URL).Analyses(context.Background(), 3)
	if err != nil {
		t.Fatalf("Analyses failed: %v", err)
	}
	if len(analyses) != 1 {
		t.Fatalf("got %d rows, want 1", len(analyses))
	}
	if analyses[0].ID != id || !analyses[0].Success {
		t.Errorf("row = %+v", analyses[0])
	}
}

func TestSnippetReturnsRawBody(t *testing.T) {
	srv := mockServer(t, map[string]http.HandlerFunc{
		"GET /v1/snippets/{filename}": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte("x := 1\n"))
		},
	})
	defer srv.Close()

	body, err := newTestClient(t, srv.URL).Snippet(context.Background(), "go_code_20240101_120000.go")
	if err != nil {
		t.Fatalf("Snippet failed: %v", err)
	}
	if body != "x := 1\n" {
		t.Errorf("body = %q", body)
	}
}

func TestErrorTypesMapCorrectly(t *testing.T) {
	srv := mockServer(t, map[string]http.HandlerFunc{
		"GET /v1/snippets/{filename}": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]any{
				"error": map[string]any{"code": "NOT_FOUND", "message": "snippet not found"},
			})
		},
		"POST /v1/analyze": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusTooManyRequests, map[string]any{
				"error": map[string]any{"code": "RATE_LIMITED", "message": "rate limit exceeded"},
			})
		},
	})
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	_, err := c.Snippet(context.Background(), "nope.go")
	if !IsNotFound(err) {
		t.Errorf("expected IsNotFound, got %v", err)
	}

	_, err = c.Analyze(context.Background(), "x := 1")
	if !IsRateLimited(err) {
		t.Errorf("expected IsRateLimited, got %v", err)
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Code != "RATE_LIMITED" {
		t.Errorf("code = %v", err)
	}
}

func TestHealthDecodes503Body(t *testing.T) {
	srv := mockServer(t, map[string]http.HandlerFunc{
		"GET /health": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"data": map[string]any{
					"status": "unhealthy", "version": "dev", "storage": "unhealthy",
				},
			})
		},
	})
	defer srv.Close()

	health, err := newTestClient(t, srv.URL).Health(context.Background())
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Status != "unhealthy" {
		t.Errorf("status = %q", health.Status)
	}
}
