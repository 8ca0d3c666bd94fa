package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theapemachine/a2a-server/pkg/a2a"
)

func drain(t *testing.T, handler a2a.TaskHandler, task *a2a.Task) []a2a.TaskUpdate {
	t.Helper()

	var updates []a2a.TaskUpdate

	for update, err := range handler.Handle(context.Background(), task) {
		require.NoError(t, err)
		updates = append(updates, update)
	}

	return updates
}

func TestEchoHandler(t *testing.T) {
	task := a2a.NewTask("task-1", "sess-1", *a2a.NewTextMessage(a2a.RoleUser, "hello"), nil)

	updates := drain(t, NewEchoHandler(), task)
	require.Len(t, updates, 2)

	artifact, ok := updates[0].(a2a.ArtifactUpdate)
	require.True(t, ok)
	assert.Equal(t, "hello", artifact.Artifacts[0].Parts[0].Text)

	final, ok := updates[1].(a2a.StatusUpdate)
	require.True(t, ok)
	assert.True(t, final.Final)
	assert.Equal(t, a2a.TaskStateCompleted, final.Status.State)
	assert.Equal(t, a2a.RoleAgent, final.Status.Message.Role)
	assert.Equal(t, "hello", final.Status.Message.String())
}

func chatServer(t *testing.T, deltas ...string) (*httptest.Server, *[]map[string]any) {
	t.Helper()

	var requests []map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		var request map[string]any
		_ = json.Unmarshal(body, &request)
		requests = append(requests, request)

		w.Header().Set("Content-Type", "text/event-stream")

		for i, delta := range deltas {
			chunk := map[string]any{
				"id":      "chatcmpl-1",
				"object":  "chat.completion.chunk",
				"created": 1,
				"model":   DefaultModel,
				"choices": []map[string]any{{
					"index": 0,
					"delta": map[string]any{"role": "assistant", "content": delta},
				}},
			}

			if i == len(deltas)-1 {
				chunk["choices"].([]map[string]any)[0]["finish_reason"] = "stop"
			}

			data, _ := json.Marshal(chunk)
			fmt.Fprintf(w, "data: %s\n\n", data)
		}

		fmt.Fprint(w, "data: [DONE]\n\n")
	}))

	t.Cleanup(server.Close)

	return server, &requests
}

func TestOpenAIHandlerStreamsChunks(t *testing.T) {
	server, requests := chatServer(t, "Hel", "lo", "!")

	handler := NewOpenAIHandler(OpenAIConfig{
		APIKey:  "test",
		BaseURL: server.URL + "/",
		System:  "be brief",
	}, option.WithMaxRetries(0))

	task := a2a.NewTask("task-1", "sess-1", *a2a.NewTextMessage(a2a.RoleUser, "greet"), nil)
	task.AppendMessage(*a2a.NewTextMessage(a2a.RoleAgent, "hi"))
	task.AppendMessage(*a2a.NewTextMessage(a2a.RoleUser, "again"))

	updates := drain(t, handler, task)
	require.Len(t, updates, 4)

	for i, want := range []string{"Hel", "lo", "!"} {
		artifact := updates[i].(a2a.ArtifactUpdate).Artifacts[0]
		assert.Equal(t, want, artifact.Parts[0].Text)
		assert.Equal(t, i > 0, *artifact.Append)
		assert.Equal(t, i == 2, *artifact.LastChunk)
	}

	final := updates[3].(a2a.StatusUpdate)
	assert.True(t, final.Final)
	assert.Equal(t, a2a.TaskStateCompleted, final.Status.State)
	assert.Equal(t, "Hello!", final.Status.Message.String())

	require.Len(t, *requests, 1)
	messages := (*requests)[0]["messages"].([]any)
	require.Len(t, messages, 4)

	roles := make([]string, 0, len(messages))

	for _, message := range messages {
		roles = append(roles, message.(map[string]any)["role"].(string))
	}

	assert.Equal(t, []string{"system", "user", "assistant", "user"}, roles)
	assert.Equal(t, DefaultModel, (*requests)[0]["model"])
}

func TestOpenAIHandlerFailsTaskOnAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer server.Close()

	handler := NewOpenAIHandler(OpenAIConfig{APIKey: "bad", BaseURL: server.URL + "/"}, option.WithMaxRetries(0))
	task := a2a.NewTask("task-1", "sess-1", *a2a.NewTextMessage(a2a.RoleUser, "greet"), nil)

	updates := drain(t, handler, task)
	require.Len(t, updates, 1)

	final := updates[0].(a2a.StatusUpdate)
	assert.True(t, final.Final)
	assert.Equal(t, a2a.TaskStateFailed, final.Status.State)
	assert.Contains(t, final.Status.Message.String(), "chat completion failed")
}
