// Package provider selects and constructs the AI backend client.
package provider

import (
	"context"
	"fmt"

	"github.com/gitdojo/gitdojo/pkg/chat"
	"github.com/gitdojo/gitdojo/pkg/config"
	"github.com/gitdojo/gitdojo/pkg/environment"
	"github.com/gitdojo/gitdojo/pkg/model/provider/anthropic"
	"github.com/gitdojo/gitdojo/pkg/model/provider/openai"
	"github.com/gitdojo/gitdojo/pkg/tools"
)

// Provider is a streaming chat-completion backend.
type Provider interface {
	// CreateChatCompletionStream submits the conversation plus the tool
	// definitions and returns the assistant's turn as an ordered stream of
	// text deltas and tool-call deltas.
	CreateChatCompletionStream(ctx context.Context, messages []chat.Message, requestTools []tools.Tool) (chat.MessageStream, error)
}

// New constructs the provider selected by the configuration.
func New(ctx context.Context, cfg *config.Config, env environment.Provider) (Provider, error) {
	switch cfg.Provider {
	case "anthropic":
		return anthropic.NewClient(ctx, cfg, env)
	case "openai":
		return openai.NewClient(ctx, cfg, env)
	default:
		return nil, fmt.Errorf("unknown provider %q (supported: anthropic, openai)", cfg.Provider)
	}
}
