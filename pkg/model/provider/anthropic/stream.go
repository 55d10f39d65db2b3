package anthropic

import (
	"io"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/gitdojo/gitdojo/pkg/chat"
)

// streamAdapter maps the Anthropic SSE event stream onto the neutral
// chat.MessageStream contract.
type streamAdapter struct {
	stream *ssestream.Stream[anthropic.MessageStreamEventUnion]

	// toolIndex maps Anthropic content-block indices to tool-call delta
	// indices: text blocks and tool_use blocks share the same index space
	// on the wire, tool calls get their own on ours.
	toolIndex     map[int64]int
	nextToolIndex int
	finishReason  string
	done          bool
}

var _ chat.MessageStream = (*streamAdapter)(nil)

func newStreamAdapter(stream *ssestream.Stream[anthropic.MessageStreamEventUnion]) *streamAdapter {
	return &streamAdapter{
		stream:    stream,
		toolIndex: make(map[int64]int),
	}
}

func (a *streamAdapter) Recv() (chat.MessageStreamResponse, error) {
	if a.done {
		return chat.MessageStreamResponse{}, io.EOF
	}

	for a.stream.Next() {
		event := a.stream.Current()

		switch ev := event.AsAny().(type) {
		case anthropic.ContentBlockStartEvent:
			if block, ok := ev.ContentBlock.AsAny().(anthropic.ToolUseBlock); ok {
				idx := a.nextToolIndex
				a.nextToolIndex++
				a.toolIndex[ev.Index] = idx
				return response(chat.MessageDelta{
					ToolCalls: []chat.ToolCallDelta{{
						Index: idx,
						ID:    block.ID,
						Name:  block.Name,
					}},
				}), nil
			}

		case anthropic.ContentBlockDeltaEvent:
			switch delta := ev.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if delta.Text != "" {
					return response(chat.MessageDelta{Content: delta.Text}), nil
				}
			case anthropic.InputJSONDelta:
				if idx, ok := a.toolIndex[ev.Index]; ok && delta.PartialJSON != "" {
					return response(chat.MessageDelta{
						ToolCalls: []chat.ToolCallDelta{{
							Index:     idx,
							Arguments: delta.PartialJSON,
						}},
					}), nil
				}
			}

		case anthropic.MessageDeltaEvent:
			a.finishReason = string(ev.Delta.StopReason)

		case anthropic.MessageStopEvent:
			a.done = true
			return chat.MessageStreamResponse{
				Choices: []chat.MessageStreamChoice{{FinishReason: a.finishReason}},
			}, nil
		}
	}

	a.done = true
	if err := a.stream.Err(); err != nil {
		return chat.MessageStreamResponse{}, err
	}
	return chat.MessageStreamResponse{}, io.EOF
}

func (a *streamAdapter) Close() error {
	return a.stream.Close()
}

func response(delta chat.MessageDelta) chat.MessageStreamResponse {
	return chat.MessageStreamResponse{
		Choices: []chat.MessageStreamChoice{{Delta: delta}},
	}
}
