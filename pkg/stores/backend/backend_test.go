package backend

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theapemachine/a2a-server/pkg/stores"
	"github.com/theapemachine/a2a-server/pkg/stores/database"
	"github.com/theapemachine/a2a-server/pkg/stores/redis"
)

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults to memory", func(t *testing.T) {
		store, err := New(ctx, Config{})
		require.NoError(t, err)
		assert.IsType(t, &stores.InMemoryTaskStore{}, store)
	})

	t.Run("redis", func(t *testing.T) {
		server := miniredis.RunT(t)

		store, err := New(ctx, Config{
			Backend: Redis,
			Redis:   redis.Config{Host: server.Host(), Port: mustPort(t, server.Port())},
		})
		require.NoError(t, err)
		assert.IsType(t, &redis.Store{}, store)
		require.NoError(t, store.(*redis.Store).Close())
	})

	t.Run("redis unreachable", func(t *testing.T) {
		_, err := New(ctx, Config{Backend: Redis, Redis: redis.Config{Host: "127.0.0.1", Port: 1}})
		assert.Error(t, err)
	})

	t.Run("database", func(t *testing.T) {
		store, err := New(ctx, Config{
			Backend:  Database,
			Database: DatabaseConfig{DSN: filepath.Join(t.TempDir(), "tasks.db")},
		})
		require.NoError(t, err)
		assert.IsType(t, &database.Store{}, store)
	})

	t.Run("database without dsn", func(t *testing.T) {
		_, err := New(ctx, Config{Backend: Database})
		assert.Error(t, err)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := New(ctx, Config{Backend: "etcd"})
		assert.ErrorContains(t, err, "etcd")
	})
}

func mustPort(t *testing.T, port string) int {
	t.Helper()

	out, err := strconv.Atoi(port)
	require.NoError(t, err)

	return out
}
