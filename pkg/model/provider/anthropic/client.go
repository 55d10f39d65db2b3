// Package anthropic implements the provider client for the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/gitdojo/gitdojo/pkg/chat"
	"github.com/gitdojo/gitdojo/pkg/config"
	"github.com/gitdojo/gitdojo/pkg/environment"
	"github.com/gitdojo/gitdojo/pkg/tools"
)

// Client wraps the Anthropic SDK client behind the provider interface.
type Client struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewClient creates an Anthropic client from the provided configuration.
// ANTHROPIC_API_KEY must be resolvable through the environment provider.
func NewClient(ctx context.Context, cfg *config.Config, env environment.Provider) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("model configuration is required")
	}
	if env == nil {
		return nil, errors.New("environment provider is required")
	}

	apiKey, _ := env.Get(ctx, "ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY environment variable is required")
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 8192
	}

	slog.Debug("Anthropic client created", "model", cfg.Model)
	return &Client{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     cfg.Model,
		maxTokens: maxTokens,
	}, nil
}

// CreateChatCompletionStream creates a streaming chat completion request.
func (c *Client) CreateChatCompletionStream(
	ctx context.Context,
	messages []chat.Message,
	requestTools []tools.Tool,
) (chat.MessageStream, error) {
	slog.Debug("Creating Anthropic chat completion stream",
		"model", c.model,
		"message_count", len(messages),
		"tool_count", len(requestTools))

	converted, err := convertMessages(messages)
	if err != nil {
		return nil, fmt.Errorf("converting messages: %w", err)
	}
	if len(converted) == 0 {
		return nil, errors.New("no messages to send after conversion")
	}

	allTools, err := convertTools(requestTools)
	if err != nil {
		return nil, fmt.Errorf("converting tools: %w", err)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System:    extractSystemBlocks(messages),
		Messages:  converted,
		Tools:     allTools,
	}

	stream := c.client.Messages.NewStreaming(ctx, params)
	return newStreamAdapter(stream), nil
}

// convertMessages maps the neutral conversation onto Anthropic's message
// shape. Anthropic requires that an assistant tool_use message is immediately
// followed by a single user message holding all matching tool_result blocks.
func convertMessages(messages []chat.Message) ([]anthropic.MessageParam, error) {
	var out []anthropic.MessageParam
	var pendingToolUseIDs map[string]struct{}

	for i := 0; i < len(messages); i++ {
		msg := &messages[i]
		switch msg.Role {
		case chat.MessageRoleSystem:
			// Handled via the top-level System field.

		case chat.MessageRoleUser:
			if pendingToolUseIDs != nil {
				return nil, errors.New("assistant tool_use must be immediately followed by tool results")
			}
			if txt := strings.TrimSpace(msg.Content); txt != "" {
				out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(txt)))
			}

		case chat.MessageRoleAssistant:
			if pendingToolUseIDs != nil {
				return nil, errors.New("assistant tool_use must be immediately followed by tool results")
			}
			var blocks []anthropic.ContentBlockParamUnion
			if txt := strings.TrimSpace(msg.Content); txt != "" {
				blocks = append(blocks, anthropic.NewTextBlock(txt))
			}
			if len(msg.ToolCalls) > 0 {
				pendingToolUseIDs = make(map[string]struct{}, len(msg.ToolCalls))
				for _, toolCall := range msg.ToolCalls {
					var input map[string]any
					if err := json.Unmarshal([]byte(toolCall.Function.Arguments), &input); err != nil {
						input = map[string]any{}
					}
					pendingToolUseIDs[toolCall.ID] = struct{}{}
					blocks = append(blocks, anthropic.ContentBlockParamUnion{
						OfToolUse: &anthropic.ToolUseBlockParam{
							ID:    toolCall.ID,
							Input: input,
							Name:  toolCall.Function.Name,
						},
					})
				}
			}
			if len(blocks) > 0 {
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			}

		case chat.MessageRoleTool:
			if pendingToolUseIDs == nil {
				return nil, fmt.Errorf("unexpected tool result without preceding tool_use (tool_use_id=%q)", msg.ToolCallID)
			}
			// Group consecutive tool results into a single user message.
			var blocks []anthropic.ContentBlockParamUnion
			j := i
			for j < len(messages) && messages[j].Role == chat.MessageRoleTool {
				id := messages[j].ToolCallID
				if strings.TrimSpace(id) == "" {
					return nil, errors.New("tool result is missing tool_use_id")
				}
				if _, ok := pendingToolUseIDs[id]; !ok {
					return nil, fmt.Errorf("unexpected tool_result tool_use_id=%q", id)
				}
				blocks = append(blocks, anthropic.NewToolResultBlock(id, strings.TrimSpace(messages[j].Content), messages[j].IsError))
				delete(pendingToolUseIDs, id)
				j++
			}
			if len(pendingToolUseIDs) > 0 {
				return nil, fmt.Errorf("missing tool_result for %d pending tool_use ids", len(pendingToolUseIDs))
			}
			out = append(out, anthropic.NewUserMessage(blocks...))
			pendingToolUseIDs = nil
			i = j - 1
		}
	}

	if pendingToolUseIDs != nil {
		return nil, errors.New("assistant tool_use present but no subsequent tool results")
	}

	return out, nil
}

func extractSystemBlocks(messages []chat.Message) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam
	for i := range messages {
		msg := &messages[i]
		if msg.Role != chat.MessageRoleSystem {
			continue
		}
		if txt := strings.TrimSpace(msg.Content); txt != "" {
			blocks = append(blocks, anthropic.TextBlockParam{Text: txt})
		}
	}
	return blocks
}

func convertTools(requestTools []tools.Tool) ([]anthropic.ToolUnionParam, error) {
	toolParams := make([]anthropic.ToolParam, len(requestTools))
	for i, tool := range requestTools {
		var inputSchema anthropic.ToolInputSchemaParam
		if err := tools.ConvertSchema(tool.Parameters, &inputSchema); err != nil {
			return nil, err
		}
		toolParams[i] = anthropic.ToolParam{
			Name:        tool.Name,
			Description: anthropic.String(tool.Description),
			InputSchema: inputSchema,
		}
	}

	anthropicTools := make([]anthropic.ToolUnionParam, len(toolParams))
	for i := range toolParams {
		anthropicTools[i] = anthropic.ToolUnionParam{OfTool: &toolParams[i]}
	}
	return anthropicTools, nil
}
