package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mediabay/internal/auth"
	"mediabay/internal/objectstore"
	"mediabay/internal/storage"
)

func newTestHandler(t *testing.T) (*Handler, *objectstore.MemoryStorage) {
	t.Helper()
	objects := objectstore.NewMemoryStorage("https://cdn.test")
	handler := NewHandler(
		storage.NewMemoryRepository(),
		auth.NewSessionManager(time.Hour),
		objects,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return handler, objects
}

func postAuth(t *testing.T, handler *Handler, payload map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/auth", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	handler.Auth(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var decoded map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decode response %q: %v", recorder.Body.String(), err)
	}
	return decoded
}

func registerUser(t *testing.T, handler *Handler, email, username string) (token, userID string) {
	t.Helper()
	recorder := postAuth(t, handler, map[string]any{
		"action":   "register",
		"email":    email,
		"username": username,
		"password": "swordfish",
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("register returned %d: %s", recorder.Code, recorder.Body.String())
	}
	decoded := decodeBody(t, recorder)
	token, _ = decoded["token"].(string)
	user, _ := decoded["user"].(map[string]any)
	userID, _ = user["id"].(string)
	if token == "" || userID == "" {
		t.Fatalf("register response missing token or user id: %v", decoded)
	}
	return token, userID
}

func TestRegisterIssuesSession(t *testing.T) {
	handler, _ := newTestHandler(t)
	recorder := postAuth(t, handler, map[string]any{
		"action":   "register",
		"email":    "alice@example.com",
		"username": "alice",
		"password": "swordfish",
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	decoded := decodeBody(t, recorder)
	if len(decoded) != 2 {
		t.Fatalf("response must carry exactly token and user, got %v", decoded)
	}
	token, _ := decoded["token"].(string)
	if len(token) != 43 {
		t.Fatalf("expected 43-char token, got %q", token)
	}
	user, ok := decoded["user"].(map[string]any)
	if !ok {
		t.Fatalf("expected user object, got %v", decoded["user"])
	}
	if user["email"] != "alice@example.com" || user["username"] != "alice" {
		t.Fatalf("unexpected user summary: %v", user)
	}
	if avatar, present := user["avatar_url"]; !present || avatar != nil {
		t.Fatalf("expected avatar_url null, got %v (present=%v)", avatar, present)
	}
	if _, present := user["password_hash"]; present {
		t.Fatal("password hash must never be serialised")
	}
}

func TestRegisterMissingFields(t *testing.T) {
	handler, _ := newTestHandler(t)
	recorder := postAuth(t, handler, map[string]any{
		"action": "register",
		"email":  "alice@example.com",
	})
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
	if msg, _ := decodeBody(t, recorder)["error"].(string); !strings.Contains(msg, "required") {
		t.Fatalf("expected required-fields message, got %q", msg)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	handler, _ := newTestHandler(t)
	registerUser(t, handler, "alice@example.com", "alice")
	recorder := postAuth(t, handler, map[string]any{
		"action":   "register",
		"email":    "alice@example.com",
		"username": "alice2",
		"password": "swordfish",
	})
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on duplicate email, got %d", recorder.Code)
	}
	if msg, _ := decodeBody(t, recorder)["error"].(string); !strings.Contains(msg, "already exists") {
		t.Fatalf("unexpected conflict message %q", msg)
	}
}

func TestLoginSuccessAndFailureShapes(t *testing.T) {
	handler, _ := newTestHandler(t)
	registerUser(t, handler, "alice@example.com", "alice")

	success := postAuth(t, handler, map[string]any{
		"action":   "login",
		"email":    "alice@example.com",
		"password": "swordfish",
	})
	if success.Code != http.StatusOK {
		t.Fatalf("expected login 200, got %d: %s", success.Code, success.Body.String())
	}
	if token, _ := decodeBody(t, success)["token"].(string); token == "" {
		t.Fatal("login response missing token")
	}

	wrongPassword := postAuth(t, handler, map[string]any{
		"action":   "login",
		"email":    "alice@example.com",
		"password": "nope",
	})
	unknownEmail := postAuth(t, handler, map[string]any{
		"action":   "login",
		"email":    "nobody@example.com",
		"password": "swordfish",
	})
	if wrongPassword.Code != http.StatusUnauthorized || unknownEmail.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", wrongPassword.Code, unknownEmail.Code)
	}
	if wrongPassword.Body.String() != unknownEmail.Body.String() {
		t.Fatalf("failure responses must be indistinguishable: %q vs %q",
			wrongPassword.Body.String(), unknownEmail.Body.String())
	}
}

func TestVerifyRoundTrip(t *testing.T) {
	handler, _ := newTestHandler(t)
	token, userID := registerUser(t, handler, "alice@example.com", "alice")

	recorder := postAuth(t, handler, map[string]any{
		"action": "verify",
		"token":  token,
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected verify 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	decoded := decodeBody(t, recorder)
	user, _ := decoded["user"].(map[string]any)
	if user["id"] != userID {
		t.Fatalf("verify returned wrong user: %v", decoded)
	}
	if _, present := decoded["token"]; present {
		t.Fatal("verify must not issue a new token")
	}
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	handler, _ := newTestHandler(t)
	registerUser(t, handler, "alice@example.com", "alice")

	missing := postAuth(t, handler, map[string]any{"action": "verify"})
	if missing.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing token, got %d", missing.Code)
	}
	unknown := postAuth(t, handler, map[string]any{
		"action": "verify",
		"token":  "definitely-not-issued",
	})
	if unknown.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown token, got %d", unknown.Code)
	}
}

func TestVerifyExpiredTokenMatchesUnknown(t *testing.T) {
	repo := storage.NewMemoryRepository()
	sessions := auth.NewSessionManager(time.Nanosecond)
	handler := NewHandler(repo, sessions, objectstore.NewMemoryStorage("https://cdn.test"), slog.New(slog.NewTextHandler(io.Discard, nil)))

	user, err := repo.CreateUser(context.Background(), storage.CreateUserParams{
		Email: "alice@example.com", Username: "alice", Password: "swordfish",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	token, _, err := sessions.Create(user.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	expired := postAuth(t, handler, map[string]any{"action": "verify", "token": token})
	unknown := postAuth(t, handler, map[string]any{"action": "verify", "token": "never-issued"})
	if expired.Code != http.StatusUnauthorized || unknown.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", expired.Code, unknown.Code)
	}
	if expired.Body.String() != unknown.Body.String() {
		t.Fatalf("expired and unknown tokens must look identical: %q vs %q",
			expired.Body.String(), unknown.Body.String())
	}
}

func TestAuthUnknownAction(t *testing.T) {
	handler, _ := newTestHandler(t)
	recorder := postAuth(t, handler, map[string]any{"action": "logout"})
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
	msg, _ := decodeBody(t, recorder)["error"].(string)
	for _, action := range []string{"register", "login", "verify"} {
		if !strings.Contains(msg, action) {
			t.Fatalf("error should name action %q, got %q", action, msg)
		}
	}
}

func TestAuthRejectsNonPost(t *testing.T) {
	handler, _ := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/auth", nil)
	recorder := httptest.NewRecorder()
	handler.Auth(recorder, req)
	if recorder.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", recorder.Code)
	}
	if allow := recorder.Header().Get("Allow"); allow != "POST, OPTIONS" {
		t.Fatalf("unexpected Allow header %q", allow)
	}
}

func TestAuthMalformedJSON(t *testing.T) {
	handler, _ := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/api/auth", strings.NewReader("{not json"))
	recorder := httptest.NewRecorder()
	handler.Auth(recorder, req)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
}

func TestHealthReportsOK(t *testing.T) {
	handler, _ := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	recorder := httptest.NewRecorder()
	handler.Health(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if status, _ := decodeBody(t, recorder)["status"].(string); status != "ok" {
		t.Fatalf("expected ok status, got %q", status)
	}
}
