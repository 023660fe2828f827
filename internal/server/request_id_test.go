package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"mediabay/internal/observability/logging"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRequestIDGeneratedWhenMissing(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = logging.RequestIDFromContext(r.Context())
	})
	handler := requestIDMiddlewareWithGenerator(discardLogger(), func() string { return "generated-id" }, next)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/content", nil))

	if seen != "generated-id" {
		t.Fatalf("handler saw request ID %q", seen)
	}
	if header := recorder.Header().Get("X-Request-Id"); header != "generated-id" {
		t.Fatalf("response header carries %q", header)
	}
}

func TestRequestIDEchoedFromHeader(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = logging.RequestIDFromContext(r.Context())
	})
	handler := requestIDMiddleware(discardLogger(), next)

	req := httptest.NewRequest(http.MethodGet, "/api/content", nil)
	req.Header.Set("X-Request-Id", "client-supplied")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if seen != "client-supplied" {
		t.Fatalf("handler saw request ID %q", seen)
	}
	if header := recorder.Header().Get("X-Request-Id"); header != "client-supplied" {
		t.Fatalf("response header carries %q", header)
	}
}

func TestNewRequestIDShape(t *testing.T) {
	first, second := newRequestID(), newRequestID()
	if len(first) != 32 || first == second {
		t.Fatalf("expected unique 32-char hex IDs, got %q and %q", first, second)
	}
}
