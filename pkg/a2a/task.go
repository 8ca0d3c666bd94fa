package a2a

import (
	"fmt"
	"maps"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

type Task struct {
	ID        string            `json:"id"`
	SessionID string            `json:"sessionId,omitempty"`
	Status    TaskStatus        `json:"status"`
	History   []Message         `json:"history,omitempty"`
	Artifacts []Artifact        `json:"artifacts,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

/*
NewTask creates a freshly submitted task whose history holds the initial
message.
*/
func NewTask(id, sessionID string, message Message, metadata map[string]string) *Task {
	return &Task{
		ID:        id,
		SessionID: sessionID,
		Status:    NewTaskStatus(TaskStateSubmitted, nil),
		History:   []Message{message.Clone()},
		Metadata:  maps.Clone(metadata),
	}
}

func (task *Task) ToStatus(state TaskState, message *Message) {
	task.Status = NewTaskStatus(state, message)
}

func (task *Task) LastMessage() *Message {
	if len(task.History) == 0 {
		return nil
	}

	return &task.History[len(task.History)-1]
}

// AppendMessage adds message to the end of the history.
func (task *Task) AppendMessage(message Message) {
	task.History = append(task.History, message.Clone())
}

/*
AddArtifact stores artifact on the task. A chunk with Append set is merged
into the latest artifact with the same Index: its parts are appended, its
metadata merged and LastChunk taken from the chunk. Any other artifact is
added as a new one.
*/
func (task *Task) AddArtifact(artifact Artifact) {
	chunk := artifact.Clone()

	if chunk.Append != nil && *chunk.Append {
		for i := len(task.Artifacts) - 1; i >= 0; i-- {
			existing := &task.Artifacts[i]

			if existing.Index != chunk.Index {
				continue
			}

			existing.Parts = append(existing.Parts, chunk.Parts...)
			existing.LastChunk = chunk.LastChunk

			if len(chunk.Metadata) > 0 {
				if existing.Metadata == nil {
					existing.Metadata = make(map[string]string, len(chunk.Metadata))
				}

				maps.Copy(existing.Metadata, chunk.Metadata)
			}

			return
		}
	}

	task.Artifacts = append(task.Artifacts, chunk)
}

/*
Clone returns a deep copy, so stores and callers never share mutable state.
*/
func (task *Task) Clone() *Task {
	if task == nil {
		return nil
	}

	out := *task
	out.Status = task.Status.clone()
	out.Metadata = maps.Clone(task.Metadata)

	if task.History != nil {
		out.History = make([]Message, len(task.History))
		for i, message := range task.History {
			out.History[i] = message.Clone()
		}
	}

	if task.Artifacts != nil {
		out.Artifacts = make([]Artifact, len(task.Artifacts))
		for i, artifact := range task.Artifacts {
			out.Artifacts[i] = artifact.Clone()
		}
	}

	return &out
}

/*
WithHistoryLength returns a copy carrying only the last length entries of
the history. A nil or non-positive length yields an empty history. The
receiver is left untouched.
*/
func (task *Task) WithHistoryLength(length *int) *Task {
	out := task.Clone()

	if length == nil || *length <= 0 {
		out.History = nil
		return out
	}

	if *length < len(out.History) {
		out.History = out.History[len(out.History)-*length:]
	}

	return out
}

func (task *Task) String() string {
	var sb strings.Builder

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("212")).
		Bold(true)

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("39")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("252"))

	sectionStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("99")).
		Bold(true)

	indent := "   "
	bullet := "│ "

	sb.WriteString(headerStyle.Render("Task") + "\n")
	sb.WriteString(bullet + labelStyle.Render("ID: ") + valueStyle.Render(task.ID) + "\n")

	if task.SessionID != "" {
		sb.WriteString(bullet + labelStyle.Render("Session: ") + valueStyle.Render(task.SessionID) + "\n")
	}

	sb.WriteString("\n" + sectionStyle.Render("Status") + "\n")
	sb.WriteString(bullet + labelStyle.Render("State: ") + valueStyle.Render(string(task.Status.State)) + "\n")

	if task.Status.Message != nil {
		sb.WriteString(bullet + labelStyle.Render("Message: ") + valueStyle.Render(task.Status.Message.String()) + "\n")
	}

	sb.WriteString(bullet + labelStyle.Render("Timestamp: ") + valueStyle.Render(task.Status.Timestamp.Format(time.RFC3339)) + "\n")

	if len(task.History) > 0 {
		sb.WriteString("\n" + sectionStyle.Render("History") + "\n")

		for i, message := range task.History {
			sb.WriteString(bullet + labelStyle.Render(fmt.Sprintf("Message %d", i+1)) + "\n")
			sb.WriteString(bullet + indent + labelStyle.Render("Role: ") + valueStyle.Render(message.Role) + "\n")

			for _, part := range message.Parts {
				sb.WriteString(bullet + indent + labelStyle.Render(string(part.Type)+": ") + valueStyle.Render(part.summary()) + "\n")
			}
		}
	}

	if len(task.Artifacts) > 0 {
		sb.WriteString("\n" + sectionStyle.Render("Artifacts") + "\n")

		for i, artifact := range task.Artifacts {
			sb.WriteString(bullet + labelStyle.Render(fmt.Sprintf("Artifact %d", i+1)) + "\n")

			if artifact.Name != nil {
				sb.WriteString(bullet + indent + labelStyle.Render("Name: ") + valueStyle.Render(*artifact.Name) + "\n")
			}

			for j, part := range artifact.Parts {
				sb.WriteString(bullet + indent + labelStyle.Render(fmt.Sprintf("Part %d: ", j+1)) + valueStyle.Render(part.summary()) + "\n")
			}
		}
	}

	if len(task.Metadata) > 0 {
		sb.WriteString("\n" + sectionStyle.Render("Metadata") + "\n")

		keys := make([]string, 0, len(task.Metadata))
		for k := range task.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			sb.WriteString(bullet + labelStyle.Render(k+": ") + valueStyle.Render(task.Metadata[k]) + "\n")
		}
	}

	return sb.String()
}

func (part Part) summary() string {
	switch part.Type {
	case PartTypeFile:
		if part.File == nil {
			return ""
		}
		if part.File.Name != nil {
			return *part.File.Name
		}
		return part.File.URI
	case PartTypeData:
		return fmt.Sprintf("%v", part.Data)
	default:
		return part.Text
	}
}
