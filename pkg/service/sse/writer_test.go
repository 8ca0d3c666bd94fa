package sse

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterFramesEvents(t *testing.T) {
	var buf bytes.Buffer
	writer := NewWriter(&buf)

	require.NoError(t, writer.WriteEvent("", map[string]string{"id": "abc"}))
	require.NoError(t, writer.WriteEvent("7", map[string]bool{"final": true}))
	require.NoError(t, writer.Heartbeat())

	assert.Equal(t,
		"data: {\"id\":\"abc\"}\n\n"+
			"id: 7\ndata: {\"final\":true}\n\n"+
			": heartbeat\n\n",
		buf.String(),
	)
}

func TestWriterFlushesBufferedOutput(t *testing.T) {
	var buf bytes.Buffer
	buffered := bufio.NewWriter(&buf)

	require.NoError(t, NewWriter(buffered).WriteEvent("", 1))
	assert.Equal(t, "data: 1\n\n", buf.String())
}

func TestWriterRejectsUnencodable(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, NewWriter(&buf).WriteEvent("", make(chan int)))
	assert.Empty(t, buf.String())
}
