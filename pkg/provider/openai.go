package provider

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/charmbracelet/log"
	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/theapemachine/a2a-server/pkg/a2a"
	"github.com/theapemachine/a2a-server/pkg/utils"
)

// DefaultModel is used when the config does not name one.
const DefaultModel = "gpt-4o-mini"

const responseArtifact = "response"

/*
roleMap maps history roles onto chat messages. Unknown roles are sent as
user messages.
*/
var roleMap = map[string]func(string) openai.ChatCompletionMessageParamUnion{
	"system":      openai.SystemMessage[string],
	a2a.RoleUser:  openai.UserMessage[string],
	a2a.RoleAgent: openai.AssistantMessage[string],
	"assistant":   openai.AssistantMessage[string],
}

type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	System      string  `mapstructure:"system"`
	Temperature float64 `mapstructure:"temperature"`
}

/*
OpenAIHandler answers tasks with a streamed chat completion over the task
history. Each content delta becomes an appended chunk of one artifact, and
the whole reply becomes the final status message. API failures end the task
as FAILED rather than aborting it.
*/
type OpenAIHandler struct {
	client openai.Client
	config OpenAIConfig
}

func NewOpenAIHandler(config OpenAIConfig, opts ...option.RequestOption) *OpenAIHandler {
	if config.Model == "" {
		config.Model = DefaultModel
	}

	requestOptions := make([]option.RequestOption, 0, len(opts)+2)

	if config.APIKey != "" {
		requestOptions = append(requestOptions, option.WithAPIKey(config.APIKey))
	}

	if config.BaseURL != "" {
		requestOptions = append(requestOptions, option.WithBaseURL(config.BaseURL))
	}

	return &OpenAIHandler{
		client: openai.NewClient(append(requestOptions, opts...)...),
		config: config,
	}
}

func (handler *OpenAIHandler) Handle(ctx context.Context, task *a2a.Task) iter.Seq2[a2a.TaskUpdate, error] {
	return func(yield func(a2a.TaskUpdate, error) bool) {
		stream := handler.client.Chat.Completions.NewStreaming(ctx, handler.params(task))
		defer stream.Close()

		var (
			reply   strings.Builder
			pending *a2a.Artifact
		)

		// A chunk is held back until the next one arrives so the last can be flagged.
		flush := func(last bool) bool {
			if pending == nil {
				return true
			}

			pending.LastChunk = utils.Ptr(last)
			update := a2a.ArtifactUpdate{Artifacts: []a2a.Artifact{*pending}}
			pending = nil

			return yield(update, nil)
		}

		for stream.Next() {
			chunk := stream.Current()

			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}

			if !flush(false) {
				return
			}

			delta := chunk.Choices[0].Delta.Content
			artifact := a2a.NewTextArtifact(responseArtifact, delta)
			artifact.Append = utils.Ptr(reply.Len() > 0)
			pending = &artifact

			reply.WriteString(delta)
		}

		if err := stream.Err(); err != nil {
			log.Error("chat completion failed", "taskID", task.ID, "model", handler.config.Model, "error", err)
			yield(a2a.Fail(fmt.Sprintf("chat completion failed: %v", err)), nil)
			return
		}

		if !flush(true) {
			return
		}

		yield(a2a.Complete(a2a.NewTextMessage(a2a.RoleAgent, reply.String())), nil)
	}
}

func (handler *OpenAIHandler) params(task *a2a.Task) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(task.History)+1)

	if handler.config.System != "" {
		messages = append(messages, openai.SystemMessage(handler.config.System))
	}

	for _, message := range task.History {
		toParam, ok := roleMap[message.Role]

		if !ok {
			toParam = openai.UserMessage[string]
		}

		messages = append(messages, toParam(message.String()))
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(handler.config.Model),
		Messages: messages,
	}

	if handler.config.Temperature > 0 {
		params.Temperature = openai.Float(handler.config.Temperature)
	}

	return params
}
