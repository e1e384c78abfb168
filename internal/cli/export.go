package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"saldo/internal/services"
)

func newExportCommand(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every expense as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if out == "" {
				if _, err := svc.ExportCSV(cmd.Context(), cmd.OutOrStdout()); err != nil {
					return fmt.Errorf("export: %w", err)
				}
				return nil
			}

			n, err := exportToFile(cmd.Context(), svc, out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d expenses to %s\n", n, out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "write to file instead of stdout")

	return cmd
}

// exportToFile writes the export to a temporary file next to path and
// renames it into place, so a failed export never leaves a partial file.
func exportToFile(ctx context.Context, svc *services.ExpenseService, path string) (n int, err error) {
	f, err := os.CreateTemp(filepath.Dir(path), ".saldo-export-*.csv")
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", path, err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	n, err = svc.ExportCSV(ctx, f)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	if err != nil {
		return 0, fmt.Errorf("export: %w", err)
	}
	if err = os.Chmod(tmp, 0o644); err != nil {
		return 0, fmt.Errorf("writing %s: %w", path, err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return 0, fmt.Errorf("writing %s: %w", path, err)
	}
	return n, nil
}
