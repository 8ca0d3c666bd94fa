/*
Package backend builds the configured TaskStore. The hosting command passes
the result to the task manager; no backend is discovered at runtime.
*/
package backend

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/theapemachine/a2a-server/pkg/stores"
	"github.com/theapemachine/a2a-server/pkg/stores/database"
	"github.com/theapemachine/a2a-server/pkg/stores/redis"
	"github.com/theapemachine/a2a-server/pkg/stores/s3"
)

const (
	Memory   = "memory"
	Redis    = "redis"
	S3       = "s3"
	Database = "database"
)

type Config struct {
	Backend  string         `mapstructure:"backend"`
	Redis    redis.Config   `mapstructure:"redis"`
	S3       s3.Config      `mapstructure:"s3"`
	Database DatabaseConfig `mapstructure:"database"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

/*
New returns the store named by cfg.Backend. An empty name selects the
in-memory store.
*/
func New(ctx context.Context, cfg Config) (stores.TaskStore, error) {
	log.Info("initializing task store", "backend", cfg.Backend)

	switch cfg.Backend {
	case "", Memory:
		return stores.NewInMemoryTaskStore(), nil
	case Redis:
		store, err := redis.Connect(ctx, cfg.Redis)

		if err != nil {
			return nil, err
		}

		return store, nil
	case S3:
		conn, err := s3.NewConn(ctx, cfg.S3)

		if err != nil {
			return nil, err
		}

		return s3.NewStore(conn), nil
	case Database:
		if cfg.Database.DSN == "" {
			return nil, fmt.Errorf("storage.database.dsn is required")
		}

		store, err := database.OpenSQLite(cfg.Database.DSN)

		if err != nil {
			return nil, err
		}

		return store, nil
	}

	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}
