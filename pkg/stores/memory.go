package stores

import (
	"context"
	"fmt"
	"sync"

	"github.com/theapemachine/a2a-server/pkg/a2a"
)

/*
InMemoryTaskStore keeps tasks in process memory. Nothing survives a restart.
Entries are held in sync.Maps, so operations on different ids never contend.
*/
type InMemoryTaskStore struct {
	tasks   sync.Map // id -> *a2a.Task
	configs sync.Map // id -> *a2a.PushNotificationConfig
}

func NewInMemoryTaskStore() *InMemoryTaskStore {
	return &InMemoryTaskStore{}
}

func (store *InMemoryTaskStore) Store(ctx context.Context, task *a2a.Task) error {
	if task == nil || task.ID == "" {
		return fmt.Errorf("cannot store a task without an id")
	}

	store.tasks.Store(task.ID, task.Clone())
	return nil
}

func (store *InMemoryTaskStore) Fetch(ctx context.Context, id string) (*a2a.Task, error) {
	value, ok := store.tasks.Load(id)

	if !ok {
		return nil, nil
	}

	return value.(*a2a.Task).Clone(), nil
}

func (store *InMemoryTaskStore) StoreNotificationConfig(
	ctx context.Context, id string, config *a2a.PushNotificationConfig,
) error {
	if _, ok := store.tasks.Load(id); !ok {
		return fmt.Errorf("store notification config for %q: %w", id, ErrTaskNotFound)
	}

	store.configs.Store(id, config.Clone())
	return nil
}

func (store *InMemoryTaskStore) FetchNotificationConfig(
	ctx context.Context, id string,
) (*a2a.PushNotificationConfig, error) {
	value, ok := store.configs.Load(id)

	if !ok {
		return nil, nil
	}

	return value.(*a2a.PushNotificationConfig).Clone(), nil
}
