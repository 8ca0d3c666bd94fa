package stores

import (
	"context"
	"errors"

	"github.com/theapemachine/a2a-server/pkg/a2a"
)

// ErrTaskNotFound is wrapped by StoreNotificationConfig for unknown task ids.
var ErrTaskNotFound = errors.New("task not found")

/*
TaskStore persists tasks and their push notification configuration. Each
operation is atomic for its key. Callers always receive copies, so a
returned task may be mutated freely.

Fetch and FetchNotificationConfig return nil without an error when nothing
is stored under the id.
*/
type TaskStore interface {
	Store(ctx context.Context, task *a2a.Task) error
	Fetch(ctx context.Context, id string) (*a2a.Task, error)
	StoreNotificationConfig(ctx context.Context, id string, config *a2a.PushNotificationConfig) error
	FetchNotificationConfig(ctx context.Context, id string) (*a2a.PushNotificationConfig, error)
}
