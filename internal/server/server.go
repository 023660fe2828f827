// Package server assembles the HTTP routing table and middleware chain around
// the API handlers. The caller owns the server lifecycle through
// serverutil.Run; this package only builds the http.Server.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"mediabay/internal/api"
)

// Config carries the listen address and the logger injected into the
// middleware chain.
type Config struct {
	Addr   string
	Logger *slog.Logger
}

// New builds the fully wired http.Server: routes, CORS, request IDs, panic
// recovery and request logging.
func New(handler *api.Handler, cfg Config) *http.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", handler.Health)
	mux.HandleFunc("/api/auth", handler.Auth)
	mux.HandleFunc("/api/content", handler.Content)

	chain := http.Handler(mux)
	chain = recoverMiddleware(logger, chain)
	chain = loggingMiddleware(logger, chain)
	chain = requestIDMiddleware(logger, chain)
	chain = corsMiddleware(newCORSPolicy(), chain)

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           chain,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	if logger == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := newStatusRecorder(w)
		start := time.Now()
		next.ServeHTTP(recorder, r)
		logger.Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote_addr", r.RemoteAddr)
	})
}

// recoverMiddleware converts handler panics into a JSON 500 so one bad
// request cannot take the process down.
func recoverMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if recovered := recover(); recovered != nil {
				if logger != nil {
					logger.Error("handler panic", "panic", recovered, "path", r.URL.Path)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
