package chat

// MessageStream is an ordered stream of completion deltas produced by a
// provider. Recv returns io.EOF when the assistant's turn is complete.
type MessageStream interface {
	Recv() (MessageStreamResponse, error)
	Close() error
}

type MessageStreamResponse struct {
	Choices []MessageStreamChoice `json:"choices"`
}

type MessageStreamChoice struct {
	Delta        MessageDelta `json:"delta"`
	FinishReason string       `json:"finish_reason,omitempty"`
}

// MessageDelta is an incremental piece of the assistant's response: a text
// fragment, a partial tool call, or both.
type MessageDelta struct {
	Content   string          `json:"content,omitempty"`
	ToolCalls []ToolCallDelta `json:"tool_calls,omitempty"`
}

// ToolCallDelta is a partial tool invocation. The first delta for a call
// carries its ID and function name; subsequent deltas with the same Index
// append to the JSON arguments.
type ToolCallDelta struct {
	Index     int    `json:"index"`
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}
