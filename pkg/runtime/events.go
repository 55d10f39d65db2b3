package runtime

import "github.com/gitdojo/gitdojo/pkg/tools"

// Event is one element of the ordered stream a runtime run produces:
// text deltas, tool-call notifications, and a terminal marker.
type Event any

// AgentChoiceEvent carries an incremental piece of the assistant's reply.
type AgentChoiceEvent struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

func AgentChoice(content string) *AgentChoiceEvent {
	return &AgentChoiceEvent{Type: "agent_choice", Content: content}
}

// PartialToolCallEvent reports a tool call still being streamed; Arguments
// may be incomplete JSON.
type PartialToolCallEvent struct {
	Type     string         `json:"type"`
	ToolCall tools.ToolCall `json:"tool_call"`
}

func PartialToolCall(toolCall tools.ToolCall) *PartialToolCallEvent {
	return &PartialToolCallEvent{Type: "partial_tool_call", ToolCall: toolCall}
}

// ToolCallEvent reports a fully received tool call about to be dispatched.
type ToolCallEvent struct {
	Type     string         `json:"type"`
	ToolCall tools.ToolCall `json:"tool_call"`
}

func NewToolCall(toolCall tools.ToolCall) *ToolCallEvent {
	return &ToolCallEvent{Type: "tool_call", ToolCall: toolCall}
}

// ToolCallResponseEvent reports the result of a dispatched tool call.
type ToolCallResponseEvent struct {
	Type     string         `json:"type"`
	ToolCall tools.ToolCall `json:"tool_call"`
	Response string         `json:"response"`
	IsError  bool           `json:"is_error,omitempty"`
}

func ToolCallResponse(toolCall tools.ToolCall, response string, isError bool) *ToolCallResponseEvent {
	return &ToolCallResponseEvent{Type: "tool_call_response", ToolCall: toolCall, Response: response, IsError: isError}
}

// StreamStoppedEvent marks the normal end of the assistant's turn.
type StreamStoppedEvent struct {
	Type string `json:"type"`
}

func StreamStopped() *StreamStoppedEvent {
	return &StreamStoppedEvent{Type: "stream_stopped"}
}

// ErrorEvent reports a failure that aborted the turn.
type ErrorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func Error(err error) *ErrorEvent {
	return &ErrorEvent{Type: "error", Error: err.Error()}
}

// MaxIterationsReachedEvent reports that the tool-calling loop hit its bound
// before the assistant finished its turn.
type MaxIterationsReachedEvent struct {
	Type          string `json:"type"`
	MaxIterations int    `json:"max_iterations"`
}

func MaxIterationsReached(maxIterations int) *MaxIterationsReachedEvent {
	return &MaxIterationsReachedEvent{Type: "max_iterations_reached", MaxIterations: maxIterations}
}
