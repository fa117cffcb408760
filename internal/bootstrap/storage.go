package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jobmatcher/jm-portal/config"
	"github.com/jobmatcher/jm-portal/internal/adapters/filestore"
	"github.com/jobmatcher/jm-portal/internal/adapters/postgres"
	redisadapter "github.com/jobmatcher/jm-portal/internal/adapters/redis"
	"github.com/jobmatcher/jm-portal/internal/ports"
)

// SlotStoreConfig contains configuration for the persisted session slot.
type SlotStoreConfig struct {
	Storage config.StorageConfig
	Logger  *slog.Logger
}

// SlotStore is the built slot backend plus whatever connection it owns.
type SlotStore struct {
	Slots ports.SlotStore
	Kind  config.StoreKind
	close func() error
}

// Close releases the backend connection, if any.
func (s *SlotStore) Close() error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close()
}

// BuildSlotStore connects the slot backend selected by SESSION_STORE.
func BuildSlotStore(ctx context.Context, cfg SlotStoreConfig) (*SlotStore, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dbCfg := DatabaseConfig{
		DBConfig:    cfg.Storage.Postgres,
		RedisConfig: cfg.Storage.Redis,
		Logger:      logger,
	}

	switch cfg.Storage.Kind {
	case config.StoreRedis:
		client, err := ConnectRedis(ctx, dbCfg)
		if err != nil {
			return nil, fmt.Errorf("session store: %w", err)
		}
		slots := redisadapter.NewSlotStore(redisadapter.SlotStoreOptions{
			Client: client,
			Prefix: cfg.Storage.RedisPrefix,
			TTL:    cfg.Storage.RedisTTL,
		})
		return &SlotStore{Slots: slots, Kind: config.StoreRedis, close: client.Close}, nil

	case config.StorePostgres:
		db, err := ConnectDB(ctx, dbCfg)
		if err != nil {
			return nil, fmt.Errorf("session store: %w", err)
		}
		slots := postgres.NewSlotStore(db)
		if err := slots.EnsureSchema(ctx); err != nil {
			if closeErr := db.Close(); closeErr != nil {
				err = errors.Join(err, closeErr)
			}
			return nil, fmt.Errorf("session store: %w", err)
		}
		return &SlotStore{Slots: slots, Kind: config.StorePostgres, close: db.Close}, nil

	case config.StoreFile, "":
		path := cfg.Storage.File
		if path == "" {
			var err error
			if path, err = DefaultSessionFile(); err != nil {
				return nil, fmt.Errorf("session store: %w", err)
			}
		}
		logger.Info("session store ready", "kind", config.StoreFile, "path", path)
		return &SlotStore{Slots: filestore.New(path), Kind: config.StoreFile}, nil

	default:
		return nil, fmt.Errorf("session store: unsupported kind %q", cfg.Storage.Kind)
	}
}

// DefaultSessionFile returns jm-portal/session.json under the user config directory.
func DefaultSessionFile() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate user config dir: %w", err)
	}
	return filepath.Join(dir, "jm-portal", "session.json"), nil
}
