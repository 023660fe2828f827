package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"mediabay/internal/models"
)

// MemoryRepository keeps users and content in process memory. It is safe for
// concurrent use and intended for development and tests; uniqueness races are
// resolved under its mutex the same way the Postgres constraints resolve them.
type MemoryRepository struct {
	mu      sync.RWMutex
	users   map[string]models.User
	content map[string]models.Content
}

// NewMemoryRepository constructs an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:   make(map[string]models.User),
		content: make(map[string]models.Content),
	}
}

// CreateUser registers a user, enforcing email and username uniqueness.
func (r *MemoryRepository) CreateUser(_ context.Context, params CreateUserParams) (models.User, error) {
	params, err := normalizeCreateUserParams(params)
	if err != nil {
		return models.User{}, err
	}
	hashed, err := hashPassword(params.Password)
	if err != nil {
		return models.User{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, params.Email) || existing.Username == params.Username {
			return models.User{}, ErrConflict
		}
	}
	user := models.User{
		ID:           uuid.NewString(),
		Email:        params.Email,
		Username:     params.Username,
		PasswordHash: hashed,
		CreatedAt:    time.Now().UTC(),
	}
	r.users[user.ID] = user
	return user, nil
}

// AuthenticateUser verifies credentials and returns the matching user. An
// unknown email and a wrong password produce the same error.
func (r *MemoryRepository) AuthenticateUser(_ context.Context, email, password string) (models.User, error) {
	r.mu.RLock()
	var user models.User
	found := false
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, strings.TrimSpace(email)) {
			user = existing
			found = true
			break
		}
	}
	r.mu.RUnlock()
	if !found {
		return models.User{}, ErrInvalidCredentials
	}
	if err := checkPassword(user.PasswordHash, password); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// GetUser returns the user with the provided id.
func (r *MemoryRepository) GetUser(_ context.Context, id string) (models.User, bool, error) {
	r.mu.RLock()
	user, ok := r.users[id]
	r.mu.RUnlock()
	return user, ok, nil
}

// CreateContent records an uploaded asset's metadata.
func (r *MemoryRepository) CreateContent(_ context.Context, params CreateContentParams) (models.Content, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[params.UserID]; !ok {
		return models.Content{}, ErrUserNotFound
	}
	content := models.Content{
		ID:          uuid.NewString(),
		UserID:      params.UserID,
		Type:        params.Type,
		Title:       params.Title,
		Description: params.Description,
		FileURL:     params.FileURL,
		Category:    params.Category,
		Price:       params.Price,
		CreatedAt:   time.Now().UTC(),
	}
	r.content[content.ID] = content
	return content, nil
}

// ListContent returns content rows joined to their owner's username, newest
// first, capped at the filter limit.
func (r *MemoryRepository) ListContent(_ context.Context, filter ContentFilter) ([]ContentWithAuthor, error) {
	r.mu.RLock()
	rows := make([]ContentWithAuthor, 0, len(r.content))
	for _, content := range r.content {
		if filter.Type != "" && string(content.Type) != filter.Type {
			continue
		}
		if filter.UserID != "" && content.UserID != filter.UserID {
			continue
		}
		author := ""
		if owner, ok := r.users[content.UserID]; ok {
			author = owner.Username
		}
		rows = append(rows, ContentWithAuthor{Content: content, Author: author})
	}
	r.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].ID > rows[j].ID
		}
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})
	if limit := filter.limit(); len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// Ping always reports success for the in-memory repository.
func (r *MemoryRepository) Ping(context.Context) error {
	return nil
}

// Close is a no-op for the in-memory repository.
func (r *MemoryRepository) Close(context.Context) error {
	return nil
}
