package a2a

import (
	"maps"
	"strings"
)

const (
	RoleUser  = "user"
	RoleAgent = "agent"
)

/*
Message represents all non‑artifact communication between client & agent.
*/
type Message struct {
	Role     string            `json:"role"` // "user" or "agent"
	Parts    []Part            `json:"parts"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func NewTextMessage(role string, text string) *Message {
	return &Message{
		Role: role,
		Parts: []Part{
			{Type: PartTypeText, Text: text},
		},
	}
}

func NewFileMessage(role string, file *FilePart) *Message {
	return &Message{
		Role: role,
		Parts: []Part{
			{Type: PartTypeFile, File: file},
		},
	}
}

func NewDataMessage(role string, data map[string]any) *Message {
	return &Message{
		Role: role,
		Parts: []Part{
			{Type: PartTypeData, Data: data},
		},
	}
}

// String concatenates the text parts of the message.
func (msg *Message) String() string {
	var sb strings.Builder

	for _, part := range msg.Parts {
		sb.WriteString(part.Text)
	}

	return sb.String()
}

/*
Clone returns a deep copy of the message.
*/
func (msg Message) Clone() Message {
	out := msg
	out.Parts = cloneParts(msg.Parts)
	out.Metadata = maps.Clone(msg.Metadata)

	return out
}
