package a2a

import "time"

/*
TaskState enumerates the mutually‑exclusive states a task may be in.
*/
type TaskState string

const (
	TaskStateSubmitted TaskState = "submitted"
	TaskStateWorking   TaskState = "working"
	TaskStateInputReq  TaskState = "input-required"
	TaskStateCompleted TaskState = "completed"
	TaskStateCanceled  TaskState = "canceled"
	TaskStateFailed    TaskState = "failed"
	TaskStateUnknown   TaskState = "unknown"
)

// Terminal reports whether no further transition is expected from state.
func (state TaskState) Terminal() bool {
	switch state {
	case TaskStateCompleted, TaskStateCanceled, TaskStateFailed:
		return true
	}

	return false
}

type TaskStatus struct {
	State     TaskState `json:"state"`
	Message   *Message  `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

/*
NewTaskStatus stamps a status snapshot with the current time.
*/
func NewTaskStatus(state TaskState, message *Message) TaskStatus {
	return TaskStatus{
		State:     state,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

func (status TaskStatus) clone() TaskStatus {
	out := status

	if status.Message != nil {
		msg := status.Message.Clone()
		out.Message = &msg
	}

	return out
}
