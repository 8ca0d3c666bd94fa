package a2a

import (
	"context"
	"iter"
)

/*
TaskHandler performs the agent's work for a task. The returned sequence is
lazy, finite and single-pass. Exactly one element must be a StatusUpdate
with Final set, and it must be the last one. Yielding a non-nil error aborts
processing of the task.
*/
type TaskHandler interface {
	Handle(ctx context.Context, task *Task) iter.Seq2[TaskUpdate, error]
}

/*
TaskHandlerFunc adapts an ordinary function to a TaskHandler.
*/
type TaskHandlerFunc func(ctx context.Context, task *Task) iter.Seq2[TaskUpdate, error]

func (fn TaskHandlerFunc) Handle(ctx context.Context, task *Task) iter.Seq2[TaskUpdate, error] {
	return fn(ctx, task)
}

/*
TaskUpdate is produced by a TaskHandler: either an ArtifactUpdate or a
StatusUpdate.
*/
type TaskUpdate interface {
	taskUpdate()
}

// ArtifactUpdate appends artifacts to the task.
type ArtifactUpdate struct {
	Artifacts []Artifact
}

// StatusUpdate replaces the task's status.
type StatusUpdate struct {
	Status TaskStatus
	Final  bool
}

func (ArtifactUpdate) taskUpdate() {}
func (StatusUpdate) taskUpdate()   {}

/*
Complete is shorthand for the final StatusUpdate of a successful run, with
an optional agent reply.
*/
func Complete(reply *Message) StatusUpdate {
	return StatusUpdate{Status: NewTaskStatus(TaskStateCompleted, reply), Final: true}
}

// Fail is shorthand for a final FAILED StatusUpdate explaining reason.
func Fail(reason string) StatusUpdate {
	return StatusUpdate{Status: NewTaskStatus(TaskStateFailed, NewTextMessage(RoleAgent, reason)), Final: true}
}
