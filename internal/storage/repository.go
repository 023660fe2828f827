package storage

import (
	"context"
	"errors"
	"strings"

	"mediabay/internal/models"
)

const (
	passwordHashSaltLength = 16
	passwordHashKeyLength  = 32
	passwordHashIterations = 120000

	// DefaultListLimit caps content listings. There is no pagination cursor;
	// callers cannot page past this window.
	DefaultListLimit = 100
)

var (
	// ErrConflict is returned when a registration collides with an existing
	// email or username. Concurrent registrations race on the database
	// uniqueness constraints; the loser receives this error.
	ErrConflict = errors.New("user with this email or username already exists")

	// ErrInvalidCredentials is returned for an unknown email or a wrong
	// password. Callers must not be able to tell the two apart.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserNotFound is returned when a referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// CreateUserParams carries the fields required to register a user. The
// password arrives in plaintext and is hashed before it is stored.
type CreateUserParams struct {
	Email    string
	Username string
	Password string
}

// CreateContentParams carries the metadata recorded for an uploaded asset.
type CreateContentParams struct {
	UserID      string
	Type        models.ContentType
	Title       string
	Description string
	FileURL     string
	Category    string
	Price       models.Money
}

// ContentFilter narrows a content listing. Zero values mean no filtering;
// Limit is capped at DefaultListLimit.
type ContentFilter struct {
	Type   string
	UserID string
	Limit  int
}

func (f ContentFilter) limit() int {
	if f.Limit <= 0 || f.Limit > DefaultListLimit {
		return DefaultListLimit
	}
	return f.Limit
}

// ContentWithAuthor is a content row joined to its owner's username for
// display.
type ContentWithAuthor struct {
	models.Content
	Author string `json:"author"`
}

// Repository is the persistence contract shared by the auth and content
// handlers. Implementations own their connection lifecycle: one managed pool
// per process, released on Close.
type Repository interface {
	CreateUser(ctx context.Context, params CreateUserParams) (models.User, error)
	AuthenticateUser(ctx context.Context, email, password string) (models.User, error)
	GetUser(ctx context.Context, id string) (models.User, bool, error)
	CreateContent(ctx context.Context, params CreateContentParams) (models.Content, error)
	ListContent(ctx context.Context, filter ContentFilter) ([]ContentWithAuthor, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

func normalizeCreateUserParams(params CreateUserParams) (CreateUserParams, error) {
	params.Email = strings.TrimSpace(params.Email)
	params.Username = strings.TrimSpace(params.Username)
	if params.Email == "" || params.Username == "" || params.Password == "" {
		return CreateUserParams{}, errors.New("email, username and password are required")
	}
	return params, nil
}
