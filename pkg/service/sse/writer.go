package sse

import (
	"encoding/json"
	"fmt"
	"io"
)

type flusher interface {
	Flush() error
}

/*
Writer frames values as Server-Sent Events. Each event is a single data line
holding the JSON encoding of the value:

data: {json}\n\n
*/
type Writer struct {
	w io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

/*
WriteEvent marshals v and writes it as one event, preceded by an id line
when id is not empty. The underlying writer is flushed when it supports it.
*/
func (writer *Writer) WriteEvent(id string, v any) error {
	data, err := json.Marshal(v)

	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if id != "" {
		if _, err := fmt.Fprintf(writer.w, "id: %s\n", id); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(writer.w, "data: %s\n\n", data); err != nil {
		return err
	}

	return writer.flush()
}

// Heartbeat writes a comment line that keeps proxies from idling out.
func (writer *Writer) Heartbeat() error {
	if _, err := io.WriteString(writer.w, ": heartbeat\n\n"); err != nil {
		return err
	}

	return writer.flush()
}

func (writer *Writer) flush() error {
	if f, ok := writer.w.(flusher); ok {
		return f.Flush()
	}

	return nil
}
