package s3

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theapemachine/a2a-server/pkg/stores"
	"github.com/theapemachine/a2a-server/pkg/stores/storetest"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "tasks/task-1.json", taskKey("task-1"))
	assert.Equal(t, "notifications/task-1.json", notificationKey("task-1"))
}

func TestNewConnRequiresBucket(t *testing.T) {
	_, err := NewConn(context.Background(), Config{Endpoint: "localhost:9000"})
	assert.Error(t, err)
}

/*
TestStoreConformance runs against a live MinIO when A2A_TEST_S3_ENDPOINT is
set, for example with `docker run -p 9000:9000 minio/minio server /data`.
*/
func TestStoreConformance(t *testing.T) {
	endpoint := os.Getenv("A2A_TEST_S3_ENDPOINT")

	if endpoint == "" {
		t.Skip("A2A_TEST_S3_ENDPOINT not set; skipping object store test")
	}

	storetest.Run(t, func(t *testing.T) stores.TaskStore {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		conn, err := NewConn(ctx, Config{
			Endpoint:  endpoint,
			AccessKey: envOr("A2A_TEST_S3_ACCESS_KEY", "minioadmin"),
			SecretKey: envOr("A2A_TEST_S3_SECRET_KEY", "minioadmin"),
			Bucket:    fmt.Sprintf("a2a-test-%d", time.Now().UnixNano()),
		})
		require.NoError(t, err)

		return NewStore(conn)
	})
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return fallback
}
