package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"saldo/internal/storage"
)

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := storage.Open(cmd.Context(), a.cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open database %s: %w", a.cfg.DBPath, err)
			}
			defer repo.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "%s at schema version %d\n", a.cfg.DBPath, repo.SchemaVersion())
			return nil
		},
	}
}
