// Command server starts the MediaBay API HTTP service.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"mediabay/internal/api"
	"mediabay/internal/auth"
	"mediabay/internal/config"
	"mediabay/internal/objectstore"
	"mediabay/internal/observability/logging"
	"mediabay/internal/server"
	"mediabay/internal/serverutil"
	"mediabay/internal/storage"
)

func main() {
	envFile := flag.String("env-file", "", "path to an optional .env file")
	addr := flag.String("addr", "", "HTTP listen address")
	logLevel := flag.String("log-level", "", "log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "log format (json or text)")
	postgresDSN := flag.String("postgres-dsn", "", "Postgres connection string")
	sessionStore := flag.String("session-store", "", "session store driver (memory, postgres or redis)")
	sessionTTL := flag.Duration("session-ttl", 0, "session validity window")
	purgeInterval := flag.Duration("purge-interval", 0, "interval between expired session sweeps")
	s3Endpoint := flag.String("s3-endpoint", "", "S3-compatible endpoint URL (empty for AWS)")
	s3Bucket := flag.String("s3-bucket", "", "object storage bucket for uploads")
	s3PublicURL := flag.String("s3-public-url", "", "public base URL for uploaded files (e.g. a CDN)")
	tlsCert := flag.String("tls-cert", "", "path to TLS certificate file")
	tlsKey := flag.String("tls-key", "", "path to TLS private key file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	applyFlagOverrides(&cfg, flagOverrides{
		addr:          *addr,
		logLevel:      *logLevel,
		logFormat:     *logFormat,
		postgresDSN:   *postgresDSN,
		sessionStore:  *sessionStore,
		sessionTTL:    *sessionTTL,
		purgeInterval: *purgeInterval,
		s3Endpoint:    *s3Endpoint,
		s3Bucket:      *s3Bucket,
		s3PublicURL:   *s3PublicURL,
	})

	logger := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repository, err := buildRepository(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialise storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := repository.Close(closeCtx); err != nil {
			logger.Error("failed to close storage", "error", err)
		}
	}()

	sessions, err := buildSessionManager(cfg, repository)
	if err != nil {
		logger.Error("failed to initialise session store", "error", err)
		os.Exit(1)
	}

	objects, err := buildObjectStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialise object storage", "error", err)
		os.Exit(1)
	}

	handler := api.NewHandler(repository, sessions, objects, logging.WithComponent(logger, "api"))
	httpServer := server.New(handler, server.Config{
		Addr:   cfg.Addr,
		Logger: logging.WithComponent(logger, "http"),
	})

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting server", "addr", cfg.Addr, "session_store", cfg.SessionStoreDriver)
		return serverutil.Run(groupCtx, serverutil.Config{
			Server:          httpServer,
			TLS:             serverutil.TLSConfig{CertFile: *tlsCert, KeyFile: *tlsKey},
			ShutdownTimeout: cfg.ShutdownTimeout,
		})
	})
	group.Go(func() error {
		return runSessionPurgeWorker(groupCtx, logging.WithComponent(logger, "session-purger"), sessions, cfg.PurgeInterval)
	})

	if err := group.Wait(); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

type flagOverrides struct {
	addr          string
	logLevel      string
	logFormat     string
	postgresDSN   string
	sessionStore  string
	sessionTTL    time.Duration
	purgeInterval time.Duration
	s3Endpoint    string
	s3Bucket      string
	s3PublicURL   string
}

func applyFlagOverrides(cfg *config.Config, overrides flagOverrides) {
	if v := strings.TrimSpace(overrides.addr); v != "" {
		cfg.Addr = v
	}
	if v := strings.TrimSpace(overrides.logLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(overrides.logFormat); v != "" {
		cfg.LogFormat = v
	}
	if v := strings.TrimSpace(overrides.postgresDSN); v != "" {
		cfg.PostgresDSN = v
	}
	if v := strings.ToLower(strings.TrimSpace(overrides.sessionStore)); v != "" {
		cfg.SessionStoreDriver = v
	}
	if overrides.sessionTTL > 0 {
		cfg.SessionTTL = overrides.sessionTTL
	}
	if overrides.purgeInterval > 0 {
		cfg.PurgeInterval = overrides.purgeInterval
	}
	if v := strings.TrimSpace(overrides.s3Endpoint); v != "" {
		cfg.ObjectStore.Endpoint = v
	}
	if v := strings.TrimSpace(overrides.s3Bucket); v != "" {
		cfg.ObjectStore.Bucket = v
	}
	if v := strings.TrimSpace(overrides.s3PublicURL); v != "" {
		cfg.ObjectStore.PublicBaseURL = v
	}
}

func buildRepository(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage.Repository, error) {
	if cfg.PostgresDSN == "" {
		logger.Warn("no Postgres DSN configured, using in-memory storage; data will not survive restarts")
		return storage.NewMemoryRepository(), nil
	}
	return storage.NewPostgresRepository(ctx, cfg.PostgresDSN)
}

func buildSessionManager(cfg config.Config, repository storage.Repository) (*auth.SessionManager, error) {
	var store auth.SessionStore
	switch cfg.SessionStoreDriver {
	case config.SessionStorePostgres:
		if pg, ok := repository.(*storage.PostgresRepository); ok {
			store = auth.NewPostgresSessionStoreWithPool(pg.Pool())
		} else {
			pgStore, err := auth.NewPostgresSessionStore(cfg.PostgresDSN)
			if err != nil {
				return nil, err
			}
			store = pgStore
		}
	case config.SessionStoreRedis:
		redisStore, err := auth.NewRedisSessionStore(auth.RedisSessionConfig{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		store = auth.NewMemorySessionStore()
	}
	return auth.NewSessionManager(cfg.SessionTTL, auth.WithStore(store)), nil
}

func buildObjectStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (objectstore.Storage, error) {
	if cfg.ObjectStore.Bucket == "" {
		logger.Warn("no object storage bucket configured, using in-memory objects; uploads will not survive restarts")
		return objectstore.NewMemoryStorage(cfg.ObjectStore.PublicBaseURL), nil
	}
	return objectstore.NewS3Storage(ctx, objectstore.S3Config{
		Region:        cfg.ObjectStore.Region,
		Bucket:        cfg.ObjectStore.Bucket,
		AccessKey:     cfg.ObjectStore.AccessKey,
		SecretKey:     cfg.ObjectStore.SecretKey,
		Endpoint:      cfg.ObjectStore.Endpoint,
		PublicBaseURL: cfg.ObjectStore.PublicBaseURL,
	})
}
