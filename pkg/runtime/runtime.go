// Package runtime drives the tool-calling loop: it streams the assistant's
// turn from a provider, dispatches requested tool calls against the
// registered tool set, and loops until the assistant answers without tools.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/gitdojo/gitdojo/pkg/chat"
	"github.com/gitdojo/gitdojo/pkg/model/provider"
	"github.com/gitdojo/gitdojo/pkg/session"
	"github.com/gitdojo/gitdojo/pkg/tools"
)

const defaultMaxIterations = 20

const defaultSystemPrompt = `You are a patient, hands-on git tutor. The learner practices inside a
disposable sandbox repository that you fully control through tools.

Teaching policy:
- Improvise short, concrete exercises; set up files with tools, then let the
  learner drive.
- When the learner runs into an error, inspect the sandbox state before
  explaining, and teach from the actual output.
- Prefer showing one command at a time over long lectures.
- Never pretend a command succeeded or failed: check with the tools.`

// Runtime runs assistant turns against a provider and a tool set.
type Runtime struct {
	provider      provider.Provider
	toolset       tools.ToolSet
	systemPrompt  string
	maxIterations int
}

type Opt func(*Runtime)

// WithSystemPrompt replaces the default tutoring policy prompt.
func WithSystemPrompt(prompt string) Opt {
	return func(rt *Runtime) {
		rt.systemPrompt = prompt
	}
}

// WithMaxIterations bounds tool-calling rounds per user turn; <= 0 keeps the
// default.
func WithMaxIterations(n int) Opt {
	return func(rt *Runtime) {
		if n > 0 {
			rt.maxIterations = n
		}
	}
}

func New(p provider.Provider, toolset tools.ToolSet, opts ...Opt) *Runtime {
	rt := &Runtime{
		provider:      p,
		toolset:       toolset,
		systemPrompt:  defaultSystemPrompt,
		maxIterations: defaultMaxIterations,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// RunStream runs one assistant turn for the session's current transcript and
// returns its events as an ordered stream. The channel is closed when the
// turn completes, fails, or the context is cancelled.
func (rt *Runtime) RunStream(ctx context.Context, sess *session.Session) <-chan Event {
	events := make(chan Event, 128)

	go func() {
		defer close(events)

		emit := func(ev Event) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		toolList, err := rt.toolset.Tools(ctx)
		if err != nil {
			emit(Error(fmt.Errorf("listing tools: %w", err)))
			return
		}

		for iteration := 0; ; iteration++ {
			if iteration >= rt.maxIterations {
				emit(MaxIterationsReached(rt.maxIterations))
				return
			}

			messages := append([]chat.Message{chat.SystemMessage(rt.fullSystemPrompt())}, sess.Messages()...)

			stream, err := rt.provider.CreateChatCompletionStream(ctx, messages, toolList)
			if err != nil {
				emit(Error(err))
				return
			}

			content, toolCalls, err := consumeStream(stream, emit)
			_ = stream.Close()
			if err != nil {
				emit(Error(err))
				return
			}

			sess.AddMessage(chat.AssistantMessage(content, toolCalls))

			if len(toolCalls) == 0 {
				emit(StreamStopped())
				return
			}

			for _, toolCall := range toolCalls {
				if !emit(NewToolCall(toolCall)) {
					return
				}

				result := rt.dispatch(ctx, toolList, toolCall)
				emit(ToolCallResponse(toolCall, result.Output, result.IsError))
				sess.AddMessage(chat.ToolMessage(toolCall.ID, result.Output, result.IsError))
			}
		}
	}()

	return events
}

// consumeStream drains one model turn, emitting text deltas and partial tool
// calls as they arrive, and returns the accumulated content and tool calls.
func consumeStream(stream chat.MessageStream, emit func(Event) bool) (string, []tools.ToolCall, error) {
	var content strings.Builder
	calls := map[int]*tools.ToolCall{}

	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", nil, err
		}
		if len(response.Choices) == 0 {
			continue
		}

		delta := response.Choices[0].Delta
		if delta.Content != "" {
			content.WriteString(delta.Content)
			if !emit(AgentChoice(delta.Content)) {
				return "", nil, context.Canceled
			}
		}

		for _, d := range delta.ToolCalls {
			call, ok := calls[d.Index]
			if !ok {
				call = &tools.ToolCall{}
				calls[d.Index] = call
			}
			if d.ID != "" {
				call.ID = d.ID
			}
			if d.Name != "" {
				call.Function.Name = d.Name
			}
			call.Function.Arguments += d.Arguments

			if !emit(PartialToolCall(*call)) {
				return "", nil, context.Canceled
			}
		}
	}

	indices := make([]int, 0, len(calls))
	for idx := range calls {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	toolCalls := make([]tools.ToolCall, 0, len(calls))
	for _, idx := range indices {
		toolCalls = append(toolCalls, *calls[idx])
	}

	return content.String(), toolCalls, nil
}

// dispatch routes a tool call to its handler. Unknown tool names and handler
// failures become error results fed back to the model, never process faults.
func (rt *Runtime) dispatch(ctx context.Context, toolList []tools.Tool, toolCall tools.ToolCall) *tools.ToolCallResult {
	name := toolCall.Function.Name

	for _, tool := range toolList {
		if tool.Name != name {
			continue
		}

		result, err := tool.Handler(ctx, toolCall)
		if err != nil {
			slog.Error("Tool call failed", "tool", name, "error", err)
			return tools.ResultError(fmt.Sprintf("tool %s failed: %v", name, err))
		}
		return result
	}

	slog.Warn("Unknown tool requested", "tool", name)
	return tools.ResultError(fmt.Sprintf("unknown tool: %s", name))
}

func (rt *Runtime) fullSystemPrompt() string {
	instructions := rt.toolset.Instructions()
	if instructions == "" {
		return rt.systemPrompt
	}
	return rt.systemPrompt + "\n\n" + instructions
}
