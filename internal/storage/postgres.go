package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"mediabay/internal/models"
)

const uniqueViolationCode = "23505"

// PostgresConfig tunes the connection pool owned by the repository.
type PostgresConfig struct {
	DSN                 string
	MaxConnections      int32
	MinConnections      int32
	MaxConnLifetime     time.Duration
	MaxConnIdleTime     time.Duration
	HealthCheckInterval time.Duration
	ApplicationName     string
}

// Option adjusts the Postgres repository configuration.
type Option func(*PostgresConfig)

// WithMaxConnections bounds the pool size.
func WithMaxConnections(max int32) Option {
	return func(cfg *PostgresConfig) {
		cfg.MaxConnections = max
	}
}

// WithMinConnections keeps a floor of idle connections warm.
func WithMinConnections(min int32) Option {
	return func(cfg *PostgresConfig) {
		cfg.MinConnections = min
	}
}

// WithConnLifetimes bounds how long pooled connections live and idle.
func WithConnLifetimes(lifetime, idle time.Duration) Option {
	return func(cfg *PostgresConfig) {
		cfg.MaxConnLifetime = lifetime
		cfg.MaxConnIdleTime = idle
	}
}

// WithApplicationName labels pool connections in pg_stat_activity.
func WithApplicationName(name string) Option {
	return func(cfg *PostgresConfig) {
		cfg.ApplicationName = name
	}
}

// PostgresRepository persists users and content to Postgres through a single
// managed pgx pool. Requests acquire and release connections through the
// pool; nothing opens per-request connections.
type PostgresRepository struct {
	pool *pgxpool.Pool
	cfg  PostgresConfig
}

// NewPostgresRepository opens a Postgres-backed repository and applies the
// schema migration before returning.
func NewPostgresRepository(ctx context.Context, dsn string, opts ...Option) (*PostgresRepository, error) {
	cfg := PostgresConfig{DSN: strings.TrimSpace(dsn)}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = cfg.MaxConnections
	}
	if cfg.MinConnections > 0 {
		poolCfg.MinConns = cfg.MinConnections
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.HealthCheckInterval > 0 {
		poolCfg.HealthCheckPeriod = cfg.HealthCheckInterval
	}
	if cfg.ApplicationName != "" {
		if poolCfg.ConnConfig.RuntimeParams == nil {
			poolCfg.ConnConfig.RuntimeParams = make(map[string]string)
		}
		poolCfg.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	repo := &PostgresRepository{pool: pool, cfg: cfg}
	if err := repo.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return repo, nil
}

// Pool exposes the underlying pool so the session store can share it.
func (r *PostgresRepository) Pool() *pgxpool.Pool {
	return r.pool
}

// Close releases the connection pool, waiting for the context at most.
func (r *PostgresRepository) Close(ctx context.Context) error {
	if r == nil || r.pool == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		r.pool.Close()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Ping verifies the database is reachable.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("postgres pool not configured")
	}
	return r.pool.Ping(ctx)
}

// CreateUser registers a user. Uniqueness races between concurrent
// registrations are settled by the email/username constraints; the losing
// insert surfaces as ErrConflict with no partial state left behind.
func (r *PostgresRepository) CreateUser(ctx context.Context, params CreateUserParams) (models.User, error) {
	params, err := normalizeCreateUserParams(params)
	if err != nil {
		return models.User{}, err
	}
	hashed, err := hashPassword(params.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		ID:           uuid.NewString(),
		Email:        params.Email,
		Username:     params.Username,
		PasswordHash: hashed,
	}
	row := r.pool.QueryRow(ctx, `
INSERT INTO users (id, email, username, password_hash, created_at)
VALUES ($1, $2, $3, $4, now())
RETURNING created_at
`, user.ID, user.Email, user.Username, user.PasswordHash)
	if err := row.Scan(&user.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return models.User{}, ErrConflict
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// AuthenticateUser verifies credentials and returns the matching user. The
// caller cannot distinguish an unknown email from a wrong password.
func (r *PostgresRepository) AuthenticateUser(ctx context.Context, email, password string) (models.User, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, email, username, password_hash, avatar_url, created_at
FROM users
WHERE lower(email) = lower($1)
`, strings.TrimSpace(email))
	var user models.User
	if err := row.Scan(&user.ID, &user.Email, &user.Username, &user.PasswordHash, &user.AvatarURL, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, fmt.Errorf("select user by email: %w", err)
	}
	if err := checkPassword(user.PasswordHash, password); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// GetUser returns the user with the provided id.
func (r *PostgresRepository) GetUser(ctx context.Context, id string) (models.User, bool, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, email, username, password_hash, avatar_url, created_at
FROM users
WHERE id = $1
`, id)
	var user models.User
	if err := row.Scan(&user.ID, &user.Email, &user.Username, &user.PasswordHash, &user.AvatarURL, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, false, nil
		}
		return models.User{}, false, fmt.Errorf("select user: %w", err)
	}
	return user, true, nil
}

// CreateContent records an uploaded asset's metadata.
func (r *PostgresRepository) CreateContent(ctx context.Context, params CreateContentParams) (models.Content, error) {
	content := models.Content{
		ID:          uuid.NewString(),
		UserID:      params.UserID,
		Type:        params.Type,
		Title:       params.Title,
		Description: params.Description,
		FileURL:     params.FileURL,
		Category:    params.Category,
		Price:       params.Price,
	}
	row := r.pool.QueryRow(ctx, `
INSERT INTO content (id, user_id, type, title, description, file_url, category, price, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric, now())
RETURNING created_at
`, content.ID, content.UserID, string(content.Type), content.Title, content.Description, content.FileURL, content.Category, content.Price.DecimalString())
	if err := row.Scan(&content.CreatedAt); err != nil {
		return models.Content{}, fmt.Errorf("insert content: %w", err)
	}
	return content, nil
}

// ListContent returns content rows joined to their owner's username, newest
// first, capped at the filter limit. Filters are equality-only.
func (r *PostgresRepository) ListContent(ctx context.Context, filter ContentFilter) ([]ContentWithAuthor, error) {
	query := strings.Builder{}
	query.WriteString(`
SELECT c.id, c.user_id, c.type, c.title, c.description, c.file_url, c.category, c.price::text, c.created_at, u.username
FROM content c
JOIN users u ON c.user_id = u.id
`)
	args := make([]any, 0, 3)
	conditions := make([]string, 0, 2)
	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("c.type = $%d", len(args)))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conditions = append(conditions, fmt.Sprintf("c.user_id = $%d", len(args)))
	}
	if len(conditions) > 0 {
		query.WriteString("WHERE " + strings.Join(conditions, " AND ") + "\n")
	}
	args = append(args, filter.limit())
	query.WriteString(fmt.Sprintf("ORDER BY c.created_at DESC LIMIT $%d", len(args)))

	rows, err := r.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}
	defer rows.Close()

	results := make([]ContentWithAuthor, 0, filter.limit())
	for rows.Next() {
		var item ContentWithAuthor
		var contentType, price string
		if err := rows.Scan(&item.ID, &item.UserID, &contentType, &item.Title, &item.Description, &item.FileURL, &item.Category, &price, &item.CreatedAt, &item.Author); err != nil {
			return nil, fmt.Errorf("scan content row: %w", err)
		}
		item.Type = models.ContentType(contentType)
		parsed, err := models.ParseMoney(price)
		if err != nil {
			return nil, fmt.Errorf("parse content price: %w", err)
		}
		item.Price = parsed
		results = append(results, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate content rows: %w", err)
	}
	return results, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
