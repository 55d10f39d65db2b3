// Package openai implements the provider client for the OpenAI Chat
// Completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/gitdojo/gitdojo/pkg/chat"
	"github.com/gitdojo/gitdojo/pkg/config"
	"github.com/gitdojo/gitdojo/pkg/environment"
	"github.com/gitdojo/gitdojo/pkg/tools"
)

// Client wraps the OpenAI SDK client behind the provider interface.
type Client struct {
	client    openai.Client
	model     string
	maxTokens int64
}

// NewClient creates an OpenAI client from the provided configuration.
// OPENAI_API_KEY must be resolvable through the environment provider.
func NewClient(ctx context.Context, cfg *config.Config, env environment.Provider) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("model configuration is required")
	}
	if env == nil {
		return nil, errors.New("environment provider is required")
	}

	apiKey, _ := env.Get(ctx, "OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable is required")
	}

	slog.Debug("OpenAI client created", "model", cfg.Model)
	return &Client{
		client:    openai.NewClient(option.WithAPIKey(apiKey)),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}, nil
}

// CreateChatCompletionStream creates a streaming chat completion request.
func (c *Client) CreateChatCompletionStream(
	ctx context.Context,
	messages []chat.Message,
	requestTools []tools.Tool,
) (chat.MessageStream, error) {
	slog.Debug("Creating OpenAI chat completion stream",
		"model", c.model,
		"message_count", len(messages),
		"tool_count", len(requestTools))

	converted, err := convertMessages(messages)
	if err != nil {
		return nil, fmt.Errorf("converting messages: %w", err)
	}

	allTools, err := convertTools(requestTools)
	if err != nil {
		return nil, fmt.Errorf("converting tools: %w", err)
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.model),
		Messages: converted,
		Tools:    allTools,
	}
	if c.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(c.maxTokens)
	}

	stream := c.client.Chat.Completions.NewStreaming(ctx, params)
	return &streamAdapter{stream: stream}, nil
}

func convertMessages(messages []chat.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))

	for i := range messages {
		msg := &messages[i]
		switch msg.Role {
		case chat.MessageRoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))

		case chat.MessageRoleUser:
			if txt := strings.TrimSpace(msg.Content); txt != "" {
				out = append(out, openai.UserMessage(txt))
			}

		case chat.MessageRoleAssistant:
			if len(msg.ToolCalls) == 0 {
				if txt := strings.TrimSpace(msg.Content); txt != "" {
					out = append(out, openai.AssistantMessage(txt))
				}
				continue
			}
			assistant := openai.ChatCompletionAssistantMessageParam{}
			if txt := strings.TrimSpace(msg.Content); txt != "" {
				assistant.Content.OfString = openai.String(txt)
			}
			for _, toolCall := range msg.ToolCalls {
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: toolCall.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      toolCall.Function.Name,
							Arguments: toolCall.Function.Arguments,
						},
					},
				})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})

		case chat.MessageRoleTool:
			if msg.ToolCallID == "" {
				return nil, errors.New("tool result is missing tool_call_id")
			}
			out = append(out, openai.ToolMessage(msg.Content, msg.ToolCallID))
		}
	}

	return out, nil
}

func convertTools(requestTools []tools.Tool) ([]openai.ChatCompletionToolUnionParam, error) {
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(requestTools))
	for _, tool := range requestTools {
		schema, err := tools.SchemaToMap(tool.Parameters)
		if err != nil {
			return nil, err
		}
		out = append(out, openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        tool.Name,
			Description: openai.String(tool.Description),
			Parameters:  shared.FunctionParameters(schema),
		}))
	}
	return out, nil
}
