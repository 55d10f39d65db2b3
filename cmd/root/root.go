// Package root wires the gitdojo commands.
package root

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var debugMode bool

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gitdojo",
		Short: "Practice git in a disposable sandbox with an AI tutor",
		Long: `gitdojo opens an interactive console where an AI tutor improvises git
exercises inside a throwaway repository. The tutor inspects and modifies the
sandbox through tools, so nothing it teaches touches your real repositories.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			level := slog.LevelWarn
			if debugMode {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTutor(cmd, args)
		},
	}

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	addRunFlags(cmd)

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewSessionsCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}
