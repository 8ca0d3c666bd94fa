package a2a

import (
	"maps"

	"github.com/theapemachine/a2a-server/pkg/errors"
)

/*
TaskStatusUpdateEvent is sent when the agent wishes to inform the client of
a status transition.
*/
type TaskStatusUpdateEvent struct {
	ID       string            `json:"id"`
	Status   TaskStatus        `json:"status"`
	Final    bool              `json:"final"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

/*
TaskArtifactUpdateEvent is emitted when a new or updated artefact is
available for a task.
*/
type TaskArtifactUpdateEvent struct {
	ID       string            `json:"id"`
	Artifact Artifact          `json:"artifact"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

/*
StreamEvent is one element of a task's event stream. Exactly one field is
set. Err carries a terminal protocol error for the stream.
*/
type StreamEvent struct {
	Status   *TaskStatusUpdateEvent
	Artifact *TaskArtifactUpdateEvent
	Err      *errors.RpcError
}

func NewStatusEvent(task *Task, final bool) StreamEvent {
	return StreamEvent{
		Status: &TaskStatusUpdateEvent{
			ID:       task.ID,
			Status:   task.Status.clone(),
			Final:    final,
			Metadata: maps.Clone(task.Metadata),
		},
	}
}

func NewArtifactEvent(task *Task, artifact Artifact) StreamEvent {
	return StreamEvent{
		Artifact: &TaskArtifactUpdateEvent{
			ID:       task.ID,
			Artifact: artifact.Clone(),
			Metadata: maps.Clone(task.Metadata),
		},
	}
}

func NewErrorEvent(err *errors.RpcError) StreamEvent {
	return StreamEvent{Err: err}
}

/*
Terminal reports whether the event closes the stream: a final status or an
error.
*/
func (event StreamEvent) Terminal() bool {
	return event.Err != nil || (event.Status != nil && event.Status.Final)
}

/*
Result returns the value carried in the response envelope's result field,
or nil for an error event.
*/
func (event StreamEvent) Result() any {
	switch {
	case event.Status != nil:
		return event.Status
	case event.Artifact != nil:
		return event.Artifact
	}

	return nil
}
