package root

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitdojo/gitdojo/pkg/config"
	"github.com/gitdojo/gitdojo/pkg/environment"
	"github.com/gitdojo/gitdojo/pkg/session"
)

func NewSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List persisted tutoring sessions",
		Args:  cobra.NoArgs,
		RunE:  listSessions,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a persisted session",
		Args:  cobra.ExactArgs(1),
		RunE:  deleteSession,
	})
	return cmd
}

func openStore(cmd *cobra.Command) (session.Store, error) {
	cfg, err := config.Load(cmd.Context(), environment.NewOSProvider())
	if err != nil {
		return nil, err
	}
	if sessionDB != "" {
		cfg.SessionDB = sessionDB
	}
	if cfg.SessionDB == "" {
		return nil, fmt.Errorf("no session database configured (set GITDOJO_SESSION_DB or --session-db)")
	}
	return session.NewSQLiteStore(cfg.SessionDB)
}

func listSessions(cmd *cobra.Command, _ []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	sessions, err := store.GetSessions(cmd.Context())
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		cmd.Println("No sessions recorded.")
		return nil
	}
	for _, sess := range sessions {
		title := sess.Title
		if title == "" {
			title = "(untitled)"
		}
		cmd.Printf("%s  %s  %s\n", sess.ID, sess.CreatedAt.Format("2006-01-02 15:04"), title)
	}
	return nil
}

func deleteSession(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.DeleteSession(cmd.Context(), args[0]); err != nil {
		return err
	}
	cmd.Printf("Deleted session %s\n", args[0])
	return nil
}
