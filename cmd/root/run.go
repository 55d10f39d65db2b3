package root

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gitdojo/gitdojo/pkg/cli"
	"github.com/gitdojo/gitdojo/pkg/config"
	"github.com/gitdojo/gitdojo/pkg/environment"
	"github.com/gitdojo/gitdojo/pkg/lesson"
	"github.com/gitdojo/gitdojo/pkg/model/provider"
	"github.com/gitdojo/gitdojo/pkg/runtime"
	"github.com/gitdojo/gitdojo/pkg/sandbox"
	"github.com/gitdojo/gitdojo/pkg/session"
	"github.com/gitdojo/gitdojo/pkg/tools/builtin"
)

var (
	providerFlag string
	modelFlag    string
	sessionDB    string
)

func addRunFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&providerFlag, "provider", "", "AI provider: anthropic or openai (default from GITDOJO_PROVIDER)")
	cmd.PersistentFlags().StringVar(&modelFlag, "model", "", "Model identifier (default from GITDOJO_MODEL)")
	cmd.PersistentFlags().StringVar(&sessionDB, "session-db", "", "SQLite file for transcript persistence (default from GITDOJO_SESSION_DB)")
}

func NewRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the interactive tutoring console",
		Args:  cobra.NoArgs,
		RunE:  runTutor,
	}
}

// runTutor is the composition root: config, sandbox, toolset, provider,
// runtime, console — with cleanup deferred on every exit path.
func runTutor(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	env := environment.NewOSProvider()

	cfg, err := config.Load(ctx, env)
	if err != nil {
		return err
	}
	if providerFlag != "" {
		cfg.Provider = providerFlag
		cfg.Model = config.DefaultModelFor(cfg.Provider)
	}
	if modelFlag != "" {
		cfg.Model = modelFlag
	}
	if sessionDB != "" {
		cfg.SessionDB = sessionDB
	}

	sb := sandbox.New(
		sandbox.WithGitBinary(cfg.GitBinary),
		sandbox.WithCommandTimeout(cfg.CommandTimeout),
	)
	toolset := builtin.NewSandboxTool(sb)
	if err := toolset.Start(ctx); err != nil {
		return fmt.Errorf("preparing sandbox: %w", err)
	}
	defer func() {
		if err := toolset.Stop(); err != nil {
			slog.Warn("Sandbox cleanup failed", "error", err)
		}
	}()

	aiProvider, err := provider.New(ctx, cfg, env)
	if err != nil {
		return err
	}

	var store session.Store
	if cfg.SessionDB != "" {
		sqlStore, err := session.NewSQLiteStore(cfg.SessionDB)
		if err != nil {
			slog.Warn("Session store unavailable, continuing without persistence", "path", cfg.SessionDB, "error", err)
		} else {
			store = sqlStore
			defer sqlStore.Close()
		}
	}

	lessons, err := lesson.Catalog()
	if err != nil {
		return err
	}

	rt := runtime.New(aiProvider, toolset, runtime.WithMaxIterations(cfg.MaxIterations))

	out := cli.NewPrinter(os.Stdout)
	out.Info("Sandbox repository: %s", sb.Root())

	runner := cli.NewRunner(rt, out, os.Stdin,
		cli.WithSandbox(sb),
		cli.WithStore(store),
		cli.WithLessons(lessons),
	)
	return runner.Run(ctx)
}
