package runtime

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitdojo/gitdojo/pkg/chat"
	"github.com/gitdojo/gitdojo/pkg/session"
	"github.com/gitdojo/gitdojo/pkg/tools"
)

type scriptedStream struct {
	responses []chat.MessageStreamResponse
	pos       int
}

func (s *scriptedStream) Recv() (chat.MessageStreamResponse, error) {
	if s.pos >= len(s.responses) {
		return chat.MessageStreamResponse{}, io.EOF
	}
	response := s.responses[s.pos]
	s.pos++
	return response, nil
}

func (s *scriptedStream) Close() error { return nil }

type fakeProvider struct {
	turns []*scriptedStream
	err   error
	calls int
}

func (p *fakeProvider) CreateChatCompletionStream(_ context.Context, _ []chat.Message, _ []tools.Tool) (chat.MessageStream, error) {
	if p.err != nil {
		return nil, p.err
	}
	if p.calls >= len(p.turns) {
		return &scriptedStream{}, nil
	}
	stream := p.turns[p.calls]
	p.calls++
	return stream, nil
}

type fakeToolSet struct {
	tools.BaseToolSet
	list []tools.Tool
}

func (ts *fakeToolSet) Tools(context.Context) ([]tools.Tool, error) { return ts.list, nil }

func textTurn(parts ...string) *scriptedStream {
	var responses []chat.MessageStreamResponse
	for _, part := range parts {
		responses = append(responses, chat.MessageStreamResponse{
			Choices: []chat.MessageStreamChoice{{Delta: chat.MessageDelta{Content: part}}},
		})
	}
	return &scriptedStream{responses: responses}
}

func toolCallTurn(id, name, args string) *scriptedStream {
	return &scriptedStream{responses: []chat.MessageStreamResponse{
		{Choices: []chat.MessageStreamChoice{{Delta: chat.MessageDelta{
			ToolCalls: []chat.ToolCallDelta{{Index: 0, ID: id, Name: name}},
		}}}},
		{Choices: []chat.MessageStreamChoice{{Delta: chat.MessageDelta{
			ToolCalls: []chat.ToolCallDelta{{Index: 0, Arguments: args}},
		}}}},
	}}
}

func collect(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var out []Event
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func TestRunStreamTextOnlyTurn(t *testing.T) {
	provider := &fakeProvider{turns: []*scriptedStream{textTurn("Hello, ", "learner!")}}
	rt := New(provider, &fakeToolSet{})

	sess := session.New()
	sess.AddMessage(chat.UserMessage("hi"))

	events := collect(t, rt.RunStream(context.Background(), sess))

	require.Len(t, events, 3)
	assert.Equal(t, "Hello, ", events[0].(*AgentChoiceEvent).Content)
	assert.Equal(t, "learner!", events[1].(*AgentChoiceEvent).Content)
	assert.IsType(t, &StreamStoppedEvent{}, events[2])

	messages := sess.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, chat.MessageRoleAssistant, messages[1].Role)
	assert.Equal(t, "Hello, learner!", messages[1].Content)
}

func TestRunStreamToolCallThenAnswer(t *testing.T) {
	var gotArgs string
	toolset := &fakeToolSet{list: []tools.Tool{{
		Name: "get_git_status",
		Handler: func(_ context.Context, toolCall tools.ToolCall) (*tools.ToolCallResult, error) {
			gotArgs = toolCall.Function.Arguments
			return tools.ResultSuccess("?? notes.txt"), nil
		},
	}}}

	provider := &fakeProvider{turns: []*scriptedStream{
		toolCallTurn("call_1", "get_git_status", "{}"),
		textTurn("You have one untracked file."),
	}}
	rt := New(provider, toolset)

	sess := session.New()
	sess.AddMessage(chat.UserMessage("what changed?"))

	events := collect(t, rt.RunStream(context.Background(), sess))

	var toolEvents []*ToolCallEvent
	var responses []*ToolCallResponseEvent
	for _, ev := range events {
		switch e := ev.(type) {
		case *ToolCallEvent:
			toolEvents = append(toolEvents, e)
		case *ToolCallResponseEvent:
			responses = append(responses, e)
		}
	}

	require.Len(t, toolEvents, 1)
	assert.Equal(t, "get_git_status", toolEvents[0].ToolCall.Function.Name)
	assert.Equal(t, "call_1", toolEvents[0].ToolCall.ID)
	assert.Equal(t, "{}", gotArgs)

	require.Len(t, responses, 1)
	assert.Equal(t, "?? notes.txt", responses[0].Response)
	assert.False(t, responses[0].IsError)

	assert.IsType(t, &StreamStoppedEvent{}, events[len(events)-1])

	// user, assistant tool call, tool result, final assistant answer
	messages := sess.Messages()
	require.Len(t, messages, 4)
	assert.Equal(t, chat.MessageRoleTool, messages[2].Role)
	assert.Equal(t, "call_1", messages[2].ToolCallID)
	assert.Equal(t, "You have one untracked file.", messages[3].Content)
}

func TestRunStreamEmitsPartialToolCalls(t *testing.T) {
	toolset := &fakeToolSet{list: []tools.Tool{{
		Name: "create_file",
		Handler: func(context.Context, tools.ToolCall) (*tools.ToolCallResult, error) {
			return tools.ResultSuccess("ok"), nil
		},
	}}}
	provider := &fakeProvider{turns: []*scriptedStream{
		toolCallTurn("call_1", "create_file", `{"file_name":"a.txt"}`),
		textTurn("done"),
	}}
	rt := New(provider, toolset)

	sess := session.New()
	sess.AddMessage(chat.UserMessage("make a file"))

	events := collect(t, rt.RunStream(context.Background(), sess))

	var partials []*PartialToolCallEvent
	for _, ev := range events {
		if p, ok := ev.(*PartialToolCallEvent); ok {
			partials = append(partials, p)
		}
	}
	require.Len(t, partials, 2)
	assert.Equal(t, "create_file", partials[0].ToolCall.Function.Name)
	assert.Empty(t, partials[0].ToolCall.Function.Arguments)
	assert.Equal(t, `{"file_name":"a.txt"}`, partials[1].ToolCall.Function.Arguments)
}

func TestRunStreamUnknownToolBecomesErrorResult(t *testing.T) {
	provider := &fakeProvider{turns: []*scriptedStream{
		toolCallTurn("call_1", "no_such_tool", "{}"),
		textTurn("sorry, wrong tool"),
	}}
	rt := New(provider, &fakeToolSet{})

	sess := session.New()
	sess.AddMessage(chat.UserMessage("go"))

	events := collect(t, rt.RunStream(context.Background(), sess))

	var response *ToolCallResponseEvent
	for _, ev := range events {
		if r, ok := ev.(*ToolCallResponseEvent); ok {
			response = r
		}
	}
	require.NotNil(t, response)
	assert.True(t, response.IsError)
	assert.Contains(t, response.Response, "unknown tool: no_such_tool")
	assert.IsType(t, &StreamStoppedEvent{}, events[len(events)-1])

	// The error travels back to the model as a tool message, not a crash.
	messages := sess.Messages()
	require.Len(t, messages, 4)
	assert.True(t, messages[2].IsError)
}

func TestRunStreamHandlerErrorBecomesErrorResult(t *testing.T) {
	toolset := &fakeToolSet{list: []tools.Tool{{
		Name: "run_git_command",
		Handler: func(context.Context, tools.ToolCall) (*tools.ToolCallResult, error) {
			return nil, errors.New("boom")
		},
	}}}
	provider := &fakeProvider{turns: []*scriptedStream{
		toolCallTurn("call_1", "run_git_command", "{}"),
		textTurn("that failed"),
	}}
	rt := New(provider, toolset)

	sess := session.New()
	sess.AddMessage(chat.UserMessage("go"))

	events := collect(t, rt.RunStream(context.Background(), sess))

	var response *ToolCallResponseEvent
	for _, ev := range events {
		if r, ok := ev.(*ToolCallResponseEvent); ok {
			response = r
		}
	}
	require.NotNil(t, response)
	assert.True(t, response.IsError)
	assert.Contains(t, response.Response, "run_git_command failed")
}

func TestRunStreamProviderError(t *testing.T) {
	provider := &fakeProvider{err: errors.New("connection refused")}
	rt := New(provider, &fakeToolSet{})

	sess := session.New()
	sess.AddMessage(chat.UserMessage("hi"))

	events := collect(t, rt.RunStream(context.Background(), sess))

	require.Len(t, events, 1)
	errorEvent, ok := events[0].(*ErrorEvent)
	require.True(t, ok)
	assert.Contains(t, errorEvent.Error, "connection refused")
}

func TestRunStreamMaxIterations(t *testing.T) {
	toolset := &fakeToolSet{list: []tools.Tool{{
		Name: "get_git_status",
		Handler: func(context.Context, tools.ToolCall) (*tools.ToolCallResult, error) {
			return tools.ResultSuccess(""), nil
		},
	}}}

	// Every turn asks for another tool call, so the loop never converges.
	turns := make([]*scriptedStream, 5)
	for i := range turns {
		turns[i] = toolCallTurn("call_1", "get_git_status", "{}")
	}
	provider := &fakeProvider{turns: turns}
	rt := New(provider, toolset, WithMaxIterations(3))

	sess := session.New()
	sess.AddMessage(chat.UserMessage("loop"))

	events := collect(t, rt.RunStream(context.Background(), sess))

	last, ok := events[len(events)-1].(*MaxIterationsReachedEvent)
	require.True(t, ok)
	assert.Equal(t, 3, last.MaxIterations)
	assert.Equal(t, 3, provider.calls)
}

func TestRunStreamSystemPromptIncludesInstructions(t *testing.T) {
	var seen []chat.Message
	recorder := providerFunc(func(_ context.Context, messages []chat.Message, _ []tools.Tool) (chat.MessageStream, error) {
		seen = messages
		return textTurn("ok"), nil
	})

	toolset := &instructedToolSet{instructions: "Reset the sandbox between exercises."}
	rt := New(recorder, toolset, WithSystemPrompt("Teach git."))

	sess := session.New()
	sess.AddMessage(chat.UserMessage("hi"))
	collect(t, rt.RunStream(context.Background(), sess))

	require.NotEmpty(t, seen)
	assert.Equal(t, chat.MessageRoleSystem, seen[0].Role)
	assert.Contains(t, seen[0].Content, "Teach git.")
	assert.Contains(t, seen[0].Content, "Reset the sandbox between exercises.")
}

type providerFunc func(ctx context.Context, messages []chat.Message, requestTools []tools.Tool) (chat.MessageStream, error)

func (f providerFunc) CreateChatCompletionStream(ctx context.Context, messages []chat.Message, requestTools []tools.Tool) (chat.MessageStream, error) {
	return f(ctx, messages, requestTools)
}

type instructedToolSet struct {
	fakeToolSet
	instructions string
}

func (ts *instructedToolSet) Instructions() string { return ts.instructions }
