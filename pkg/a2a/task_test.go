package a2a

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestNewTaskIsSubmitted(t *testing.T) {
	task := NewTask("task-1", "sess-1", *NewTextMessage(RoleUser, "hi"), map[string]string{"k": "v"})

	assert.Equal(t, TaskStateSubmitted, task.Status.State)
	assert.False(t, task.Status.Timestamp.IsZero())
	require.Len(t, task.History, 1)
	assert.Equal(t, "hi", task.History[0].String())
	assert.Equal(t, "v", task.Metadata["k"])
}

func TestWithHistoryLength(t *testing.T) {
	task := NewTask("task-1", "", *NewTextMessage(RoleUser, "one"), nil)
	task.AppendMessage(*NewTextMessage(RoleUser, "two"))
	task.AppendMessage(*NewTextMessage(RoleUser, "three"))

	tests := []struct {
		name   string
		length *int
		want   []string
	}{
		{name: "absent", length: nil, want: nil},
		{name: "zero", length: intPtr(0), want: nil},
		{name: "negative", length: intPtr(-2), want: nil},
		{name: "one", length: intPtr(1), want: []string{"three"}},
		{name: "two", length: intPtr(2), want: []string{"two", "three"}},
		{name: "more than stored", length: intPtr(10), want: []string{"one", "two", "three"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := task.WithHistoryLength(tt.length)

			var got []string
			for _, message := range out.History {
				got = append(got, message.String())
			}

			assert.Equal(t, tt.want, got)
			assert.Len(t, task.History, 3, "stored history must not be truncated")
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	task := NewTask("task-1", "", Message{
		Role:  RoleUser,
		Parts: []Part{NewDataPart(map[string]any{"nested": map[string]any{"a": 1.0}})},
	}, map[string]string{"k": "v"})
	task.AddArtifact(NewTextArtifact("answer", "42"))
	task.ToStatus(TaskStateWorking, NewTextMessage(RoleAgent, "thinking"))

	clone := task.Clone()
	clone.History[0].Parts[0].Data["nested"].(map[string]any)["a"] = 2.0
	clone.Artifacts[0].Parts[0].Text = "changed"
	*clone.Artifacts[0].Name = "renamed"
	clone.Status.Message.Parts[0].Text = "changed"
	clone.Metadata["k"] = "changed"

	assert.Equal(t, 1.0, task.History[0].Parts[0].Data["nested"].(map[string]any)["a"])
	assert.Equal(t, "42", task.Artifacts[0].Parts[0].Text)
	assert.Equal(t, "answer", *task.Artifacts[0].Name)
	assert.Equal(t, "thinking", task.Status.Message.String())
	assert.Equal(t, "v", task.Metadata["k"])
	assert.Nil(t, (*Task)(nil).Clone())
}

func TestTerminalStates(t *testing.T) {
	for _, state := range []TaskState{TaskStateCompleted, TaskStateCanceled, TaskStateFailed} {
		assert.True(t, state.Terminal(), state)
	}

	for _, state := range []TaskState{TaskStateSubmitted, TaskStateWorking, TaskStateInputReq, TaskStateUnknown} {
		assert.False(t, state.Terminal(), state)
	}
}

func TestStreamEventTerminal(t *testing.T) {
	task := NewTask("task-1", "", *NewTextMessage(RoleUser, "hi"), nil)

	assert.False(t, NewStatusEvent(task, false).Terminal())
	assert.True(t, NewStatusEvent(task, true).Terminal())
	assert.False(t, NewArtifactEvent(task, NewTextArtifact("a", "b")).Terminal())
	assert.Nil(t, NewErrorEvent(nil).Result())
}

func TestTaskString(t *testing.T) {
	task := NewTask("task-1", "sess-1", *NewTextMessage(RoleUser, "hi"), nil)
	out := task.String()

	assert.Contains(t, out, "task-1")
	assert.Contains(t, out, "sess-1")
	assert.Contains(t, out, "submitted")
}

func TestAddArtifactMergesAppendedChunks(t *testing.T) {
	task := NewTask("task-1", "", *NewTextMessage(RoleUser, "hi"), nil)

	first := NewTextArtifact("response", "Hel")
	first.Append = new(bool)
	first.LastChunk = new(bool)
	task.AddArtifact(first)

	second := NewTextArtifact("response", "lo")
	second.Append = boolPtr(true)
	second.LastChunk = boolPtr(false)
	second.Metadata = map[string]string{"model": "gpt"}
	task.AddArtifact(second)

	third := NewTextArtifact("response", "!")
	third.Append = boolPtr(true)
	third.LastChunk = boolPtr(true)
	task.AddArtifact(third)

	require.Len(t, task.Artifacts, 1)

	merged := task.Artifacts[0]
	require.Len(t, merged.Parts, 3)
	assert.Equal(t, "Hello!", merged.Parts[0].Text+merged.Parts[1].Text+merged.Parts[2].Text)
	assert.True(t, *merged.LastChunk)
	assert.False(t, *merged.Append)
	assert.Equal(t, "gpt", merged.Metadata["model"])

	third.Parts[0].Text = "changed"
	assert.Equal(t, "!", task.Artifacts[0].Parts[2].Text)
}

func TestAddArtifactKeepsSeparateArtifacts(t *testing.T) {
	task := NewTask("task-1", "", *NewTextMessage(RoleUser, "hi"), nil)

	task.AddArtifact(NewTextArtifact("a", "1"))
	task.AddArtifact(NewTextArtifact("b", "2"))

	other := NewTextArtifact("c", "3")
	other.Index = 1
	other.Append = boolPtr(true)
	task.AddArtifact(other)

	require.Len(t, task.Artifacts, 3)
	assert.Equal(t, 1, task.Artifacts[2].Index)
}

func boolPtr(v bool) *bool { return &v }
