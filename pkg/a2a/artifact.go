package a2a

import "maps"

/*
Artifact is the output of a task.
*/
type Artifact struct {
	Name        *string           `json:"name,omitempty"`
	Description *string           `json:"description,omitempty"`
	Parts       []Part            `json:"parts"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Index       int               `json:"index"`
	Append      *bool             `json:"append,omitempty"`
	LastChunk   *bool             `json:"lastChunk,omitempty"`
}

func NewTextArtifact(name string, text string) Artifact {
	return Artifact{
		Name:  &name,
		Parts: []Part{NewTextPart(text)},
	}
}

func NewFileArtifact(name string, mimeType string, data string) Artifact {
	return Artifact{
		Name: &name,
		Parts: []Part{
			{
				Type: PartTypeFile,
				File: &FilePart{
					MimeType: &mimeType,
					Data:     data,
				},
			},
		},
	}
}

func (artifact Artifact) Clone() Artifact {
	out := artifact
	out.Parts = cloneParts(artifact.Parts)
	out.Metadata = maps.Clone(artifact.Metadata)

	if artifact.Name != nil {
		name := *artifact.Name
		out.Name = &name
	}

	if artifact.Description != nil {
		description := *artifact.Description
		out.Description = &description
	}

	if artifact.Append != nil {
		appendFlag := *artifact.Append
		out.Append = &appendFlag
	}

	if artifact.LastChunk != nil {
		lastChunk := *artifact.LastChunk
		out.LastChunk = &lastChunk
	}

	return out
}
