package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/target/exam-portal/config"
	"github.com/target/exam-portal/internal/adapters/kvstore"
	redisadapter "github.com/target/exam-portal/internal/adapters/redis"
	"github.com/target/exam-portal/internal/adapters/reaper"
	"github.com/target/exam-portal/internal/data"
	"github.com/target/exam-portal/internal/observability/statsd"
	"github.com/target/exam-portal/internal/ports"
	"github.com/target/exam-portal/internal/service"
)

// StorageConfig contains the dependencies of the session storage backends.
type StorageConfig struct {
	Storage     config.StorageConfig
	DB          *sql.DB               // Required for the postgres backend
	RedisClient redis.UniversalClient // Required for the redis backend
	Logger      *slog.Logger
}

// SessionStorage hands each device its own view of the configured backend.
type SessionStorage struct {
	Backend config.StorageBackend
	// For returns the storage owned by device.
	For func(device string) ports.Storage
	// Purger deletes expired rows; only set for the postgres backend.
	Purger service.StoragePurger
}

// BuildSessionStorage creates the backend selected by STORAGE_BACKEND and wraps it
// with AES-GCM sealing when an encryption key is configured.
func BuildSessionStorage(cfg StorageConfig) (SessionStorage, error) {
	out := SessionStorage{Backend: cfg.Storage.Backend}
	var scoped func(device string) ports.Storage

	switch cfg.Storage.Backend {
	case config.StorageMemory, "":
		base := kvstore.NewMemory()
		scoped = prefixed(base)

	case config.StorageFile:
		base, err := kvstore.NewFile(cfg.Storage.FilePath)
		if err != nil {
			return out, fmt.Errorf("open session file: %w", err)
		}
		scoped = prefixed(base)

	case config.StorageRedis:
		if cfg.RedisClient == nil {
			return out, errors.New("redis storage backend requires a redis client")
		}
		base := redisadapter.NewStorageWithOptions(cfg.RedisClient, cfg.Storage.KeyPrefix+":", cfg.Storage.TTL)
		scoped = prefixed(base)

	case config.StoragePostgres:
		if cfg.DB == nil {
			return out, errors.New("postgres storage backend requires a database")
		}
		repo := data.NewStorageRepo(cfg.DB, data.StorageRepoOptions{TTL: cfg.Storage.TTL})
		scoped = func(device string) ports.Storage { return repo.ForNamespace(device) }
		out.Purger = repo

	default:
		return out, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}

	if cfg.Storage.Encrypted() {
		sealer, err := NewSealer(cfg.Storage.EncryptionKey, cfg.Logger)
		if err != nil {
			return out, err
		}
		inner := scoped
		scoped = func(device string) ports.Storage { return kvstore.NewScopedSealed(inner(device), sealer, device) }
	}

	out.For = scoped
	if cfg.Logger != nil {
		cfg.Logger.Info("session storage ready", "backend", out.Backend, "encrypted", cfg.Storage.Encrypted())
	}
	return out, nil
}

func prefixed(base ports.Storage) func(device string) ports.Storage {
	return func(device string) ports.Storage {
		return kvstore.NewNamespaced(base, device)
	}
}

// ReaperConfig contains configuration for reaper.
type ReaperConfig struct {
	Sessions service.SessionPruner
	Storage  service.StoragePurger
	Config   config.SessionsConfig
	Logger   *slog.Logger
	Metrics  statsd.Sink
}

// RunReaper starts the reaper service.
func RunReaper(ctx context.Context, cfg ReaperConfig) error {
	runner, err := reaper.NewRunner(reaper.RunnerOptions{
		Sessions: cfg.Sessions,
		Storage:  cfg.Storage,
		Config:   cfg.Config,
		Logger:   cfg.Logger,
		Metrics:  cfg.Metrics,
	})
	if err != nil {
		return fmt.Errorf("create reaper runner: %w", err)
	}

	return runner.Run(ctx)
}
