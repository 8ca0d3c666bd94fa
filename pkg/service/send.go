package service

import (
	"context"
	"fmt"
	"iter"
	"maps"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/theapemachine/a2a-server/pkg/a2a"
	"github.com/theapemachine/a2a-server/pkg/errors"
	"github.com/theapemachine/a2a-server/pkg/service/sse"
)

const missingFinalStatus = "task handler finished without a final status"

// dispatch is one accepted send: the upserted task and its resolved config.
type dispatch struct {
	task    *a2a.Task
	config  *a2a.PushNotificationConfig
	started time.Time
}

/*
SendTask upserts the task, runs the handler over it and returns the final
state. Handler and store failures come back as InternalError, with the
store holding the last state that was written.
*/
func (manager *TaskManager) SendTask(ctx context.Context, params a2a.TaskSendParams) (*a2a.Task, *errors.RpcError) {
	unlock, err := manager.locks.Lock(ctx, params.ID)

	if err != nil {
		return nil, errors.Internal(err)
	}

	defer unlock()

	job, rpcErr := manager.prepare(ctx, params)

	if rpcErr != nil {
		return nil, rpcErr
	}

	task, rpcErr := manager.process(context.WithoutCancel(ctx), job)

	if rpcErr != nil {
		manager.publish(params.ID, a2a.NewErrorEvent(rpcErr))
		return nil, rpcErr
	}

	return task.WithHistoryLength(params.HistoryLength), nil
}

/*
SendTaskSubscribe does what SendTask does, but streams the task's events.
The subscription exists before the handler starts, and the handler runs on
its own goroutine, detached from ctx cancellation. The returned sequence is
single-pass and must be ranged over: leaving it by any path releases the
subscription.
*/
func (manager *TaskManager) SendTaskSubscribe(ctx context.Context, params a2a.TaskSendParams) iter.Seq[a2a.StreamEvent] {
	unlock, err := manager.locks.Lock(ctx, params.ID)

	if err != nil {
		return single(a2a.NewErrorEvent(errors.Internal(err)))
	}

	job, rpcErr := manager.prepare(ctx, params)

	if rpcErr != nil {
		unlock()
		return single(a2a.NewErrorEvent(rpcErr))
	}

	sub := manager.subscribers.Subscribe(params.ID)

	go func() {
		defer unlock()

		if _, rpcErr := manager.process(context.WithoutCancel(ctx), job); rpcErr != nil {
			manager.publish(params.ID, a2a.NewErrorEvent(rpcErr))
		}
	}()

	return manager.stream(ctx, sub)
}

/*
ResubscribeToTask attaches a new subscription to a task and starts it with
the task's current status, marked non-final. An unknown task yields a single
TaskNotFound event.
*/
func (manager *TaskManager) ResubscribeToTask(ctx context.Context, params a2a.TaskQueryParams) iter.Seq[a2a.StreamEvent] {
	sub := manager.subscribers.Subscribe(params.ID)

	task, err := manager.store.Fetch(ctx, params.ID)

	if err != nil || task == nil {
		manager.subscribers.Unsubscribe(sub)

		if err != nil {
			log.Error("failed to fetch task for resubscribe", "taskID", params.ID, "error", err)
			return single(a2a.NewErrorEvent(errors.Internal(err)))
		}

		return single(a2a.NewErrorEvent(errors.ErrTaskNotFound))
	}

	manager.publish(params.ID, a2a.NewStatusEvent(task, false))

	return manager.stream(ctx, sub)
}

/*
prepare upserts the task and resolves the push config. A supplied config
replaces the stored one; otherwise the stored one, if any, is reused.
*/
func (manager *TaskManager) prepare(ctx context.Context, params a2a.TaskSendParams) (*dispatch, *errors.RpcError) {
	task, err := manager.store.Fetch(ctx, params.ID)

	if err != nil {
		log.Error("failed to fetch task", "taskID", params.ID, "error", err)
		return nil, errors.Internal(err)
	}

	if task == nil {
		sessionID := params.SessionID

		if sessionID == "" {
			sessionID = uuid.NewString()
		}

		task = a2a.NewTask(params.ID, sessionID, params.Message, params.Metadata)
	} else {
		task.AppendMessage(params.Message)

		if len(params.Metadata) > 0 {
			if task.Metadata == nil {
				task.Metadata = make(map[string]string, len(params.Metadata))
			}

			maps.Copy(task.Metadata, params.Metadata)
		}
	}

	if err := manager.store.Store(ctx, task); err != nil {
		log.Error("failed to store task", "taskID", params.ID, "error", err)
		return nil, errors.Internal(err)
	}

	config := params.PushNotification

	if config != nil {
		err = manager.store.StoreNotificationConfig(ctx, params.ID, config)
	} else {
		config, err = manager.store.FetchNotificationConfig(ctx, params.ID)
	}

	if err != nil {
		log.Error("failed to resolve notification config", "taskID", params.ID, "error", err)
		return nil, errors.Internal(err)
	}

	log.Info("task dispatched", "taskID", task.ID, "sessionID", task.SessionID, "history", len(task.History))

	return &dispatch{task: task, config: config, started: time.Now()}, nil
}

/*
process moves the task to WORKING, drains the handler and commits the
outcome. The final status event and the completion notification go out only
after the final state is stored.
*/
func (manager *TaskManager) process(ctx context.Context, job *dispatch) (*a2a.Task, *errors.RpcError) {
	task := job.task
	task.ToStatus(a2a.TaskStateWorking, nil)

	if err := manager.store.Store(ctx, task); err != nil {
		return nil, manager.fail(ctx, job, "failed to store working state", err)
	}

	manager.publish(task.ID, a2a.NewStatusEvent(task, false))
	manager.notify(ctx, task, job.config)

	final, err := manager.drain(ctx, task)

	if err != nil {
		return nil, manager.fail(ctx, job, "task handler failed", err)
	}

	if !final {
		log.Warn(missingFinalStatus, "taskID", task.ID)
		task.ToStatus(a2a.TaskStateFailed, a2a.NewTextMessage(a2a.RoleAgent, missingFinalStatus))
	}

	if err := manager.store.Store(ctx, task); err != nil {
		return nil, manager.fail(ctx, job, "failed to store final state", err)
	}

	manager.publish(task.ID, a2a.NewStatusEvent(task, true))
	manager.notify(ctx, task, job.config)
	manager.metrics.RecordTask(ctx, string(task.Status.State), job.started)

	log.Info("task finished", "taskID", task.ID, "state", task.Status.State)

	return task, nil
}

/*
drain applies the handler's updates to task in order. Artifact updates and
non-final status updates are published as they arrive. It stops at the
first final status, which it applies but leaves for the caller to publish.
*/
func (manager *TaskManager) drain(ctx context.Context, task *a2a.Task) (final bool, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			final, err = false, fmt.Errorf("task handler panicked: %v", recovered)
		}
	}()

	for update, handlerErr := range manager.handler.Handle(ctx, task.Clone()) {
		if handlerErr != nil {
			return false, handlerErr
		}

		switch update := update.(type) {
		case a2a.ArtifactUpdate:
			for _, artifact := range update.Artifacts {
				task.AddArtifact(artifact)
				manager.publish(task.ID, a2a.NewArtifactEvent(task, artifact))
			}
		case a2a.StatusUpdate:
			task.Status = update.Status

			if task.Status.Timestamp.IsZero() {
				task.Status.Timestamp = time.Now().UTC()
			}

			if update.Final {
				return true, nil
			}

			manager.publish(task.ID, a2a.NewStatusEvent(task, false))
		default:
			return false, fmt.Errorf("unsupported task update %T", update)
		}
	}

	return false, nil
}

func (manager *TaskManager) fail(ctx context.Context, job *dispatch, msg string, err error) *errors.RpcError {
	log.Error(msg, "taskID", job.task.ID, "error", err)
	manager.metrics.RecordTask(ctx, "error", job.started)

	return errors.Internal(err)
}

func (manager *TaskManager) publish(taskID string, event a2a.StreamEvent) {
	kind := "error"

	switch {
	case event.Status != nil:
		kind = "status"
	case event.Artifact != nil:
		kind = "artifact"
	}

	if delivered := manager.subscribers.Publish(taskID, event); delivered > 0 {
		manager.metrics.RecordEvent(context.Background(), kind)
	}
}

func (manager *TaskManager) notify(ctx context.Context, task *a2a.Task, config *a2a.PushNotificationConfig) {
	if config == nil {
		return
	}

	manager.publisher.Publish(ctx, task.Clone(), config)
}

/*
stream turns a subscription into a sequence that ends after a terminal
event, when the subscriber is disconnected for falling behind, or when ctx
is done.
*/
func (manager *TaskManager) stream(ctx context.Context, sub *sse.Subscription[a2a.StreamEvent]) iter.Seq[a2a.StreamEvent] {
	return func(yield func(a2a.StreamEvent) bool) {
		manager.metrics.StreamOpened(ctx)
		defer manager.metrics.StreamClosed(ctx)
		defer manager.subscribers.Unsubscribe(sub)

		for {
			event, ok := sub.Next(ctx)

			if !ok {
				if sub.Overflowed() {
					log.Warn("subscriber disconnected for falling behind", "taskID", sub.TaskID())
					yield(a2a.NewErrorEvent(errors.ErrInternal.WithMessagef(
						"subscriber for task %s fell behind and was disconnected", sub.TaskID(),
					)))
				}

				return
			}

			if !yield(event) || event.Terminal() {
				return
			}
		}
	}
}

func single(event a2a.StreamEvent) iter.Seq[a2a.StreamEvent] {
	return func(yield func(a2a.StreamEvent) bool) {
		yield(event)
	}
}
