package service

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/theapemachine/a2a-server/pkg/a2a"
	"github.com/theapemachine/a2a-server/pkg/errors"
	"github.com/theapemachine/a2a-server/pkg/metrics"
	"github.com/theapemachine/a2a-server/pkg/push"
	"github.com/theapemachine/a2a-server/pkg/service/sse"
	"github.com/theapemachine/a2a-server/pkg/stores"
)

/*
TaskManager owns the task lifecycle. It answers the seven protocol methods,
drives the TaskHandler, persists state in the TaskStore, fans events out
through the subscriber registry and triggers push notifications.

Sends for the same task id run one at a time; sends for different ids run
fully in parallel. Every method returns a typed result or a protocol error
and never panics across its boundary.
*/
type TaskManager struct {
	store       stores.TaskStore
	handler     a2a.TaskHandler
	publisher   push.Publisher
	subscribers *sse.Registry[a2a.StreamEvent]
	metrics     *metrics.Metrics
	locks       *keyedMutex
}

type TaskManagerOption func(*TaskManager)

func WithPublisher(publisher push.Publisher) TaskManagerOption {
	return func(manager *TaskManager) { manager.publisher = publisher }
}

func WithRegistry(registry *sse.Registry[a2a.StreamEvent]) TaskManagerOption {
	return func(manager *TaskManager) { manager.subscribers = registry }
}

func WithMetrics(m *metrics.Metrics) TaskManagerOption {
	return func(manager *TaskManager) { manager.metrics = m }
}

/*
NewTaskManager wires a manager around store and handler. Without options it
sends no notifications, buffers subscriber events without bound and records
no metrics.
*/
func NewTaskManager(store stores.TaskStore, handler a2a.TaskHandler, opts ...TaskManagerOption) *TaskManager {
	manager := &TaskManager{
		store:       store,
		handler:     handler,
		publisher:   push.NoopPublisher{},
		subscribers: NewEventRegistry(),
		metrics:     metrics.Noop(),
		locks:       newKeyedMutex(),
	}

	for _, opt := range opts {
		opt(manager)
	}

	return manager
}

/*
NewEventRegistry creates a subscriber registry whose subscriptions end on a
final status or an error event.
*/
func NewEventRegistry(opts ...sse.Option[a2a.StreamEvent]) *sse.Registry[a2a.StreamEvent] {
	return sse.NewRegistry(a2a.StreamEvent.Terminal, opts...)
}

/*
GetTask returns the stored task with its history cut to the requested
length. The stored history is never modified.
*/
func (manager *TaskManager) GetTask(ctx context.Context, params a2a.TaskQueryParams) (*a2a.Task, *errors.RpcError) {
	task, err := manager.store.Fetch(ctx, params.ID)

	if err != nil {
		log.Error("failed to fetch task", "taskID", params.ID, "error", err)
		return nil, errors.Internal(err)
	}

	if task == nil {
		return nil, errors.ErrTaskNotFound
	}

	return task.WithHistoryLength(params.HistoryLength), nil
}

/*
CancelTask only reports: dispatched tasks always run to completion, so an
existing task is never cancelable.
*/
func (manager *TaskManager) CancelTask(ctx context.Context, params a2a.TaskIDParams) (*a2a.Task, *errors.RpcError) {
	task, err := manager.store.Fetch(ctx, params.ID)

	if err != nil {
		log.Error("failed to fetch task", "taskID", params.ID, "error", err)
		return nil, errors.Internal(err)
	}

	if task == nil {
		return nil, errors.ErrTaskNotFound
	}

	return nil, errors.ErrTaskNotCancelable
}

func (manager *TaskManager) SetTaskPushNotification(
	ctx context.Context, params a2a.TaskPushNotificationConfig,
) (*a2a.TaskPushNotificationConfig, *errors.RpcError) {
	if err := manager.store.StoreNotificationConfig(ctx, params.ID, &params.PushNotificationConfig); err != nil {
		log.Error("failed to store notification config", "taskID", params.ID, "error", err)
		return nil, errors.Internal(err)
	}

	return &params, nil
}

/*
GetTaskPushNotification reports a missing config as an internal error, not
as task-not-found.
*/
func (manager *TaskManager) GetTaskPushNotification(
	ctx context.Context, params a2a.TaskIDParams,
) (*a2a.TaskPushNotificationConfig, *errors.RpcError) {
	config, err := manager.store.FetchNotificationConfig(ctx, params.ID)

	if err != nil {
		log.Error("failed to fetch notification config", "taskID", params.ID, "error", err)
		return nil, errors.Internal(err)
	}

	if config == nil {
		return nil, errors.ErrInternal.WithMessagef("no push notification config for task %s", params.ID)
	}

	return &a2a.TaskPushNotificationConfig{ID: params.ID, PushNotificationConfig: *config}, nil
}
