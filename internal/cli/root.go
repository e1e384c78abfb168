// Package cli wires configuration, storage and transport into the saldo
// command tree.
package cli

import (
	"github.com/spf13/cobra"

	"saldo/internal/config"
	"saldo/internal/log"
)

// app is the state shared by every subcommand once the root pre-run has
// loaded and validated the configuration.
type app struct {
	cfg    *config.Config
	logger *log.Logger
	dbPath string // --db override
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "saldo",
		Short: "Personal expense tracker",
		Long:  "Personal expense tracker. Without a subcommand saldo runs the HTTP server, like saldo serve.",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
		RunE: a.runServe,
	}

	rootCmd.PersistentFlags().StringVar(&a.dbPath, "db", "", "path to the SQLite database (overrides DB_PATH)")

	rootCmd.AddCommand(
		newServeCommand(a),
		newMigrateCommand(a),
		newExportCommand(a),
		newSalaryCommand(a),
	)

	return rootCmd
}
