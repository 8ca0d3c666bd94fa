package provider

import (
	"context"
	"iter"

	"github.com/theapemachine/a2a-server/pkg/a2a"
)

/*
EchoHandler answers every task with the text of its last message. The reply
is emitted once as an artifact and again as the final status message.
*/
type EchoHandler struct{}

func NewEchoHandler() *EchoHandler {
	return &EchoHandler{}
}

func (handler *EchoHandler) Handle(ctx context.Context, task *a2a.Task) iter.Seq2[a2a.TaskUpdate, error] {
	return func(yield func(a2a.TaskUpdate, error) bool) {
		var text string

		if last := task.LastMessage(); last != nil {
			text = last.String()
		}

		if !yield(a2a.ArtifactUpdate{Artifacts: []a2a.Artifact{a2a.NewTextArtifact("echo", text)}}, nil) {
			return
		}

		yield(a2a.Complete(a2a.NewTextMessage(a2a.RoleAgent, text)), nil)
	}
}
