/*
Package storetest holds the behaviour every TaskStore backend must share.
Backend tests call Run with a constructor for a fresh, empty store.
*/
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theapemachine/a2a-server/pkg/a2a"
	"github.com/theapemachine/a2a-server/pkg/stores"
)

func Run(t *testing.T, newStore func(t *testing.T) stores.TaskStore) {
	t.Helper()

	t.Run("fetch of an unknown id is absent", func(t *testing.T) {
		store := newStore(t)

		task, err := store.Fetch(context.Background(), "missing")
		require.NoError(t, err)
		assert.Nil(t, task)

		config, err := store.FetchNotificationConfig(context.Background(), "missing")
		require.NoError(t, err)
		assert.Nil(t, config)
	})

	t.Run("store then fetch round trips", func(t *testing.T) {
		store := newStore(t)
		task := sampleTask("task-1")

		require.NoError(t, store.Store(context.Background(), task))

		got, err := store.Fetch(context.Background(), "task-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, task.ID, got.ID)
		assert.Equal(t, task.SessionID, got.SessionID)
		assert.Equal(t, task.Status.State, got.Status.State)
		assert.True(t, task.Status.Timestamp.Equal(got.Status.Timestamp))
		require.Len(t, got.History, 2)
		assert.Equal(t, "first", got.History[0].String())
		assert.Equal(t, "second", got.History[1].String())
		require.Len(t, got.Artifacts, 1)
		assert.Equal(t, "answer", *got.Artifacts[0].Name)
		assert.Equal(t, "v", got.Metadata["k"])
	})

	t.Run("store is last write wins", func(t *testing.T) {
		store := newStore(t)
		task := sampleTask("task-1")

		require.NoError(t, store.Store(context.Background(), task))
		task.ToStatus(a2a.TaskStateCompleted, nil)
		require.NoError(t, store.Store(context.Background(), task))

		got, err := store.Fetch(context.Background(), "task-1")
		require.NoError(t, err)
		assert.Equal(t, a2a.TaskStateCompleted, got.Status.State)
	})

	t.Run("fetched tasks are copies", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Store(context.Background(), sampleTask("task-1")))

		got, err := store.Fetch(context.Background(), "task-1")
		require.NoError(t, err)
		got.AppendMessage(*a2a.NewTextMessage(a2a.RoleUser, "local only"))

		again, err := store.Fetch(context.Background(), "task-1")
		require.NoError(t, err)
		assert.Len(t, again.History, 2)
	})

	t.Run("notification config requires the task", func(t *testing.T) {
		store := newStore(t)

		err := store.StoreNotificationConfig(context.Background(), "missing", sampleConfig("https://hook.example/a"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, stores.ErrTaskNotFound))
	})

	t.Run("notification config round trips and overwrites", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Store(context.Background(), sampleTask("task-1")))

		require.NoError(t, store.StoreNotificationConfig(context.Background(), "task-1", sampleConfig("https://hook.example/a")))
		replacement := sampleConfig("https://hook.example/b")
		require.NoError(t, store.StoreNotificationConfig(context.Background(), "task-1", replacement))

		got, err := store.FetchNotificationConfig(context.Background(), "task-1")
		require.NoError(t, err)
		assert.Equal(t, replacement, got)
	})

	t.Run("concurrent writes to distinct ids", func(t *testing.T) {
		store := newStore(t)

		var wg sync.WaitGroup

		for i := range 16 {
			wg.Add(1)

			go func() {
				defer wg.Done()
				assert.NoError(t, store.Store(context.Background(), sampleTask(fmt.Sprintf("task-%d", i))))
			}()
		}

		wg.Wait()

		for i := range 16 {
			got, err := store.Fetch(context.Background(), fmt.Sprintf("task-%d", i))
			require.NoError(t, err)
			assert.NotNil(t, got)
		}
	})
}

func sampleTask(id string) *a2a.Task {
	task := a2a.NewTask(id, "sess-1", *a2a.NewTextMessage(a2a.RoleUser, "first"), map[string]string{"k": "v"})
	task.AppendMessage(*a2a.NewTextMessage(a2a.RoleUser, "second"))
	task.AddArtifact(a2a.NewTextArtifact("answer", "42"))
	task.ToStatus(a2a.TaskStateWorking, nil)

	return task
}

func sampleConfig(url string) *a2a.PushNotificationConfig {
	token := "secret"
	credentials := "creds"

	return &a2a.PushNotificationConfig{
		URL:   url,
		Token: &token,
		Authentication: &a2a.AgentAuthentication{
			Schemes:     []string{"bearer"},
			Credentials: &credentials,
		},
	}
}
