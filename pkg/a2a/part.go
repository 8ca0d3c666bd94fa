package a2a

import (
	"encoding/base64"
	"maps"
)

/*
Part is a discriminated union over Text, File and Data parts.  We keep it
simple by embedding all optional fields in a single struct – this avoids
heavy custom JSON marshalling logic while keeping the wire format intact.

Exactly ONE of Text, File, or Data is populated according to the Type field.
The request decoder rejects parts that break this rule.
*/
type Part struct {
	Type PartType `json:"type"`

	// Exactly one of the following should be populated depending on Type.
	Text string         `json:"text,omitempty"`
	File *FilePart      `json:"file,omitempty"`
	Data map[string]any `json:"data,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// PartType is the discriminator for a Part union.
type PartType string

const (
	PartTypeText PartType = "text"
	PartTypeFile PartType = "file"
	PartTypeData PartType = "data"
)

type FilePart struct {
	Name     *string `json:"name,omitempty"`
	MimeType *string `json:"mimeType,omitempty"`
	Data     string  `json:"bytes,omitempty"`
	URI      string  `json:"uri,omitempty"`
}

func NewTextPart(text string) Part {
	return Part{
		Type: PartTypeText,
		Text: text,
	}
}

func NewFilePart(name string, mimeType string, data []byte) Part {
	return Part{
		Type: PartTypeFile,
		File: &FilePart{
			Name:     &name,
			MimeType: &mimeType,
			Data:     base64.StdEncoding.EncodeToString(data),
		},
	}
}

func NewDataPart(data map[string]any) Part {
	return Part{
		Type: PartTypeData,
		Data: data,
	}
}

func cloneParts(parts []Part) []Part {
	if parts == nil {
		return nil
	}

	out := make([]Part, len(parts))

	for i, part := range parts {
		out[i] = part
		out[i].Metadata = maps.Clone(part.Metadata)
		out[i].Data = cloneData(part.Data)

		if part.File != nil {
			file := *part.File
			out[i].File = &file
		}
	}

	return out
}

// cloneData copies nested maps and slices; scalars are shared.
func cloneData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}

	out := make(map[string]any, len(data))

	for key, value := range data {
		out[key] = cloneValue(value)
	}

	return out
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return cloneData(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
