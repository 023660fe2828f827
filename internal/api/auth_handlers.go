package api

import (
	"errors"
	"net/http"

	"mediabay/internal/models"
	"mediabay/internal/storage"
)

// authRequest is the single envelope accepted by the auth endpoint. The action
// field selects the operation; the remaining fields are read per action and
// ignored otherwise.
type authRequest struct {
	Action   string `json:"action"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	Token    string `json:"token"`
}

type verifyResponse struct {
	User userSummary `json:"user"`
}

// Auth dispatches the register, login and verify actions. All three share one
// POST endpoint; the response for register and login carries a fresh session
// token alongside the user summary.
func (h *Handler) Auth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST, OPTIONS")
		return
	}
	var req authRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	switch req.Action {
	case "register":
		h.register(w, r, req)
	case "login":
		h.login(w, r, req)
	case "verify":
		h.verify(w, r, req)
	default:
		writeErrorMessage(w, http.StatusBadRequest, "unknown action: expected register, login or verify")
	}
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request, req authRequest) {
	if req.Email == "" || req.Username == "" || req.Password == "" {
		writeErrorMessage(w, http.StatusBadRequest, "email, username and password are required")
		return
	}
	user, err := h.Store.CreateUser(r.Context(), storage.CreateUserParams{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		h.Logger.Error("register user", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.issueSession(w, user)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request, req authRequest) {
	if req.Email == "" || req.Password == "" {
		writeErrorMessage(w, http.StatusBadRequest, "email and password are required")
		return
	}
	user, err := h.Store.AuthenticateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidCredentials) {
			writeErrorMessage(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		h.Logger.Error("authenticate user", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.issueSession(w, user)
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request, req authRequest) {
	if req.Token == "" {
		writeErrorMessage(w, http.StatusBadRequest, "token is required")
		return
	}
	userID, _, ok, err := h.Sessions.Validate(req.Token)
	if err != nil {
		h.Logger.Error("validate session", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}
	user, found, err := h.Store.GetUser(r.Context(), userID)
	if err != nil {
		h.Logger.Error("load user", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !found {
		// The user row is gone but the session outlived it.
		writeErrorMessage(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{User: summarize(user)})
}

func (h *Handler) issueSession(w http.ResponseWriter, user models.User) {
	token, _, err := h.Sessions.Create(user.ID)
	if err != nil {
		h.Logger.Error("create session", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionEnvelope{
		Token: token,
		User:  summarize(user),
	})
}

func summarize(user models.User) userSummary {
	return userSummary{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		AvatarURL: user.AvatarURL,
	}
}
