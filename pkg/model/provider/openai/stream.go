package openai

import (
	"io"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/packages/ssestream"

	"github.com/gitdojo/gitdojo/pkg/chat"
)

// streamAdapter maps OpenAI completion chunks onto the neutral
// chat.MessageStream contract. OpenAI's chunk shape already matches it
// closely, so the mapping is mostly field-by-field.
type streamAdapter struct {
	stream *ssestream.Stream[openai.ChatCompletionChunk]
	done   bool
}

var _ chat.MessageStream = (*streamAdapter)(nil)

func (a *streamAdapter) Recv() (chat.MessageStreamResponse, error) {
	if a.done {
		return chat.MessageStreamResponse{}, io.EOF
	}

	for a.stream.Next() {
		chunk := a.stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}

		choice := chunk.Choices[0]
		delta := chat.MessageDelta{Content: choice.Delta.Content}
		for _, toolCall := range choice.Delta.ToolCalls {
			delta.ToolCalls = append(delta.ToolCalls, chat.ToolCallDelta{
				Index:     int(toolCall.Index),
				ID:        toolCall.ID,
				Name:      toolCall.Function.Name,
				Arguments: toolCall.Function.Arguments,
			})
		}

		if delta.Content == "" && len(delta.ToolCalls) == 0 && choice.FinishReason == "" {
			continue
		}

		return chat.MessageStreamResponse{
			Choices: []chat.MessageStreamChoice{{
				Delta:        delta,
				FinishReason: choice.FinishReason,
			}},
		}, nil
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
