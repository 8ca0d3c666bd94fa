package s3

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/theapemachine/a2a-server/pkg/a2a"
	"github.com/theapemachine/a2a-server/pkg/stores"
)

/*
Store provides an S3 implementation of the TaskStore interface. Every task
and notification config is a single JSON object in the connection's bucket.
*/
type Store struct {
	conn *Conn
}

/*
NewStore creates a new S3-based task store with the given connection.
*/
func NewStore(conn *Conn) *Store {
	return &Store{conn: conn}
}

func taskKey(id string) string {
	return "tasks/" + id + ".json"
}

func notificationKey(id string) string {
	return "notifications/" + id + ".json"
}

func (store *Store) Store(ctx context.Context, task *a2a.Task) error {
	if task == nil || task.ID == "" {
		return fmt.Errorf("cannot store a task without an id")
	}

	data, err := json.Marshal(task)

	if err != nil {
		return fmt.Errorf("failed to marshal task %s: %w", task.ID, err)
	}

	if err := store.conn.Put(ctx, taskKey(task.ID), data); err != nil {
		log.Error("failed to put task", "taskID", task.ID, "error", err)
		return fmt.Errorf("failed to put task %s: %w", task.ID, err)
	}

	return nil
}

func (store *Store) Fetch(ctx context.Context, id string) (*a2a.Task, error) {
	data, found, err := store.conn.Get(ctx, taskKey(id))

	if err != nil {
		return nil, fmt.Errorf("failed to get task %s: %w", id, err)
	}

	if !found {
		return nil, nil
	}

	var task a2a.Task

	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task %s: %w", id, err)
	}

	if task.Status.State == "" {
		task.Status.State = a2a.TaskStateUnknown
	}

	return &task, nil
}

func (store *Store) StoreNotificationConfig(
	ctx context.Context, id string, config *a2a.PushNotificationConfig,
) error {
	exists, err := store.conn.Exists(ctx, taskKey(id))

	if err != nil {
		return fmt.Errorf("failed to look up task %s: %w", id, err)
	}

	if !exists {
		return fmt.Errorf("store notification config for %q: %w", id, stores.ErrTaskNotFound)
	}

	data, err := json.Marshal(config)

	if err != nil {
		return fmt.Errorf("failed to marshal notification config for %s: %w", id, err)
	}

	return store.conn.Put(ctx, notificationKey(id), data)
}

func (store *Store) FetchNotificationConfig(
	ctx context.Context, id string,
) (*a2a.PushNotificationConfig, error) {
	data, found, err := store.conn.Get(ctx, notificationKey(id))

	if err != nil {
		return nil, fmt.Errorf("failed to get notification config for %s: %w", id, err)
	}

	if !found {
		return nil, nil
	}

	var config a2a.PushNotificationConfig

	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal notification config for %s: %w", id, err)
	}

	return &config, nil
}
