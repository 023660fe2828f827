package api

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"mediabay/internal/models"
	"mediabay/internal/storage"
)

// uploadRequest is the authenticated upload payload. The file travels inline
// as standard base64; price accepts either a JSON number or a quoted decimal.
type uploadRequest struct {
	Type        string       `json:"type"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Category    string       `json:"category"`
	Price       models.Money `json:"price"`
	FileData    string       `json:"file_data"`
	FileName    string       `json:"file_name"`
}

// Content serves the public listing on GET and the authenticated upload on
// POST.
func (h *Handler) Content(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listContent(w, r)
	case http.MethodPost:
		h.uploadContent(w, r)
	default:
		methodNotAllowed(w, "GET, POST, OPTIONS")
	}
}

func (h *Handler) listContent(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := storage.ContentFilter{
		Type:   strings.TrimSpace(query.Get("type")),
		UserID: strings.TrimSpace(query.Get("user_id")),
	}
	rows, err := h.Store.ListContent(r.Context(), filter)
	if err != nil {
		h.Logger.Error("list content", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if rows == nil {
		rows = []storage.ContentWithAuthor{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *Handler) uploadContent(w http.ResponseWriter, r *http.Request) {
	token := extractBearerToken(r)
	if token == "" {
		writeErrorMessage(w, http.StatusUnauthorized, "authorization required")
		return
	}
	userID, _, ok, err := h.Sessions.Validate(token)
	if err != nil {
		h.Logger.Error("validate session", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}

	var req uploadRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Type == "" || req.Title == "" || req.FileData == "" || req.FileName == "" {
		writeErrorMessage(w, http.StatusBadRequest, "type, title, file_data and file_name are required")
		return
	}
	contentType := models.ContentType(req.Type)
	if !contentType.IsValid() {
		writeErrorMessage(w, http.StatusBadRequest, fmt.Sprintf("invalid content type %q: expected one of %s", req.Type, contentTypeList()))
		return
	}
	payload, err := base64.StdEncoding.DecodeString(req.FileData)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "file_data must be base64 encoded")
		return
	}

	// Object key: plural type prefix plus a random component so identical
	// file names never collide.
	key := fmt.Sprintf("%ss/%s_%s", contentType, uuid.NewString(), sanitizeFileName(req.FileName))
	ref, err := h.Objects.Upload(r.Context(), key, contentType.MIME(), payload)
	if err != nil {
		h.Logger.Error("upload object", "key", key, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	// The object write and the metadata insert are not atomic. If the insert
	// fails the object stays behind unreferenced rather than risking a row
	// that points at nothing.
	content, err := h.Store.CreateContent(r.Context(), storage.CreateContentParams{
		UserID:      userID,
		Type:        contentType,
		Title:       req.Title,
		Description: req.Description,
		FileURL:     ref.URL,
		Category:    req.Category,
		Price:       req.Price,
	})
	if err != nil {
		h.Logger.Error("record content", "key", key, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, content)
}

func contentTypeList() string {
	types := models.ContentTypes()
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}

// sanitizeFileName strips any path components from a client-supplied name so
// the object key stays inside its type prefix.
func sanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	if name == "" {
		return "upload"
	}
	return name
}
