// Package config holds the runtime configuration for gitdojo.
//
// Configuration is resolved from the environment (through an
// environment.Provider so tests can inject values) with an optional YAML
// overrides file pointed at by GITDOJO_CONFIG.
package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/gitdojo/gitdojo/pkg/environment"
)

const (
	DefaultProvider       = "anthropic"
	DefaultAnthropicModel = "claude-sonnet-4-5"
	DefaultOpenAIModel    = "gpt-4o"
	DefaultMaxTokens      = 4096
	DefaultMaxIterations  = 20
	DefaultCommandTimeout = 30 * time.Second
	DefaultGitBinary      = "git"
)

// Config is the fully resolved runtime configuration.
type Config struct {
	// Provider selects the AI backend: "anthropic" or "openai".
	Provider string `yaml:"provider"`
	// Model is the model identifier sent to the provider.
	Model string `yaml:"model"`
	// MaxTokens caps the provider's response length.
	MaxTokens int64 `yaml:"max_tokens"`
	// MaxIterations bounds tool-calling rounds per user turn.
	MaxIterations int `yaml:"max_iterations"`
	// GitBinary is the version-control executable run inside the sandbox.
	GitBinary string `yaml:"git_binary"`
	// CommandTimeout bounds a single sandbox command execution.
	CommandTimeout time.Duration `yaml:"command_timeout"`
	// SessionDB is the path of the SQLite transcript store. Empty disables
	// persistence.
	SessionDB string `yaml:"session_db"`
}

// Load resolves the configuration from env, then applies YAML overrides from
// the file named by GITDOJO_CONFIG when set.
func Load(ctx context.Context, env environment.Provider) (*Config, error) {
	cfg := &Config{
		Provider:       DefaultProvider,
		MaxTokens:      DefaultMaxTokens,
		MaxIterations:  DefaultMaxIterations,
		GitBinary:      DefaultGitBinary,
		CommandTimeout: DefaultCommandTimeout,
	}

	if v, ok := env.Get(ctx, "GITDOJO_PROVIDER"); ok && v != "" {
		cfg.Provider = v
	}
	if v, ok := env.Get(ctx, "GITDOJO_MODEL"); ok && v != "" {
		cfg.Model = v
	}
	if v, ok := env.Get(ctx, "GITDOJO_GIT_BINARY"); ok && v != "" {
		cfg.GitBinary = v
	}
	if v, ok := env.Get(ctx, "GITDOJO_SESSION_DB"); ok {
		cfg.SessionDB = v
	}
	if v, ok := env.Get(ctx, "GITDOJO_COMMAND_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid GITDOJO_COMMAND_TIMEOUT %q: %w", v, err)
		}
		cfg.CommandTimeout = d
	}
	if v, ok := env.Get(ctx, "GITDOJO_MAX_ITERATIONS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid GITDOJO_MAX_ITERATIONS %q: %w", v, err)
		}
		cfg.MaxIterations = n
	}

	if path, ok := env.Get(ctx, "GITDOJO_CONFIG"); ok && path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if cfg.Model == "" {
		cfg.Model = DefaultModelFor(cfg.Provider)
	}

	return cfg, nil
}

// DefaultModelFor returns the model used when none is configured for the
// given provider.
func DefaultModelFor(provider string) string {
	if provider == "openai" {
		return DefaultOpenAIModel
	}
	return DefaultAnthropicModel
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}
