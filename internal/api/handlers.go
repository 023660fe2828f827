// Package api implements the HTTP handlers for the public auth and content
// endpoints. Handlers validate input explicitly, translate known failures to
// their status codes and let everything else surface as a 500 with the error
// message passed through.
package api

import (
	"log/slog"
	"net/http"
	"strings"

	"mediabay/internal/auth"
	"mediabay/internal/objectstore"
	"mediabay/internal/storage"
)

// Handler carries the collaborators shared by every endpoint. The session
// manager is the same instance behind the auth and content handlers, so a
// token issued by register/login authorises uploads with no direct call
// between the two paths.
type Handler struct {
	Store    storage.Repository
	Sessions *auth.SessionManager
	Objects  objectstore.Storage
	Logger   *slog.Logger
}

// NewHandler wires the API handler. A nil session manager falls back to an
// in-memory store with the default 30-day TTL.
func NewHandler(store storage.Repository, sessions *auth.SessionManager, objects objectstore.Storage, logger *slog.Logger) *Handler {
	if sessions == nil {
		sessions = auth.NewSessionManager(auth.DefaultSessionTTL)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Store: store, Sessions: sessions, Objects: objects, Logger: logger}
}

// Health reports whether the backing stores are reachable. Degraded
// deployments still answer 200 so load balancers can read the payload.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	checks := map[string]string{}
	status := "ok"

	if h.Store != nil {
		if err := h.Store.Ping(ctx); err != nil {
			checks["storage"] = err.Error()
			status = "degraded"
		} else {
			checks["storage"] = "ok"
		}
	}
	if err := h.Sessions.Ping(ctx); err != nil {
		checks["sessions"] = err.Error()
		status = "degraded"
	} else {
		checks["sessions"] = "ok"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": status,
		"checks": checks,
	})
}

// extractBearerToken pulls the opaque session token from the Authorization
// header. The "Bearer " prefix is optional and matched case-insensitively; a
// bare token is accepted as-is.
func extractBearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	const prefix = "bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return header
}

func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	writeErrorMessage(w, http.StatusMethodNotAllowed, "method not allowed")
}

// userSummary is the public projection of a user returned by every auth
// action. AvatarURL serialises as null until the user sets one.
type userSummary struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	Username  string  `json:"username"`
	AvatarURL *string `json:"avatar_url"`
}

type sessionEnvelope struct {
	Token string      `json:"token"`
	User  userSummary `json:"user"`
}
