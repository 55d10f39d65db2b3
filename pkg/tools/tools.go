// Package tools defines the callable tool surface handed to AI providers and
// the plumbing to dispatch tool calls back to their handlers.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// ToolHandler executes a single tool call. A failed tool invocation is
// reported through ToolCallResult.IsError, not through the error return;
// the error return is reserved for malformed calls.
type ToolHandler func(ctx context.Context, toolCall ToolCall) (*ToolCallResult, error)

// Tool is one callable operation exposed to the model.
type Tool struct {
	Name        string
	Category    string
	Description string
	// Parameters is the JSON Schema of the arguments object.
	Parameters  any
	Handler     ToolHandler
	Annotations ToolAnnotations
}

type ToolAnnotations struct {
	Title        string
	ReadOnlyHint bool
	// DestructiveHint marks tools that discard state (e.g. a sandbox reset).
	DestructiveHint bool
}

type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID       string       `json:"id"`
	Function FunctionCall `json:"function"`
}

type ToolCallResult struct {
	Output  string `json:"output"`
	IsError bool   `json:"is_error,omitempty"`
}

func ResultSuccess(output string) *ToolCallResult {
	return &ToolCallResult{Output: output}
}

func ResultError(output string) *ToolCallResult {
	return &ToolCallResult{Output: output, IsError: true}
}

// ToolSet groups related tools behind a lifecycle.
type ToolSet interface {
	// Instructions returns usage guidance injected into the system prompt.
	Instructions() string
	Tools(ctx context.Context) ([]Tool, error)
	Start(ctx context.Context) error
	Stop() error
}

// BaseToolSet provides no-op lifecycle methods for embedding.
type BaseToolSet struct{}

func (BaseToolSet) Instructions() string        { return "" }
func (BaseToolSet) Start(context.Context) error { return nil }
func (BaseToolSet) Stop() error                 { return nil }

// NewHandler adapts a typed handler into a ToolHandler by decoding the call's
// JSON arguments into T.
func NewHandler[T any](fn func(ctx context.Context, args T) (*ToolCallResult, error)) ToolHandler {
	return func(ctx context.Context, toolCall ToolCall) (*ToolCallResult, error) {
		var args T
		if raw := toolCall.Function.Arguments; raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				return nil, fmt.Errorf("invalid arguments for %s: %w", toolCall.Function.Name, err)
			}
		}
		return fn(ctx, args)
	}
}
