// Package chat defines the provider-neutral conversation model exchanged
// between the runtime and the AI providers.
package chat

import "github.com/gitdojo/gitdojo/pkg/tools"

type MessageRole string

const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleTool      MessageRole = "tool"
)

// Message is one entry in a conversation.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`

	// ToolCalls are set on assistant messages that request tool invocations.
	ToolCalls []tools.ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID links a tool-role message back to the assistant's request.
	ToolCallID string `json:"tool_call_id,omitempty"`
	// IsError marks a tool result that represents a failed invocation.
	IsError bool `json:"is_error,omitempty"`
}

func SystemMessage(content string) Message {
	return Message{Role: MessageRoleSystem, Content: content}
}

func UserMessage(content string) Message {
	return Message{Role: MessageRoleUser, Content: content}
}

func AssistantMessage(content string, toolCalls []tools.ToolCall) Message {
	return Message{Role: MessageRoleAssistant, Content: content, ToolCalls: toolCalls}
}

func ToolMessage(toolCallID, content string, isError bool) Message {
	return Message{Role: MessageRoleTool, ToolCallID: toolCallID, Content: content, IsError: isError}
}
