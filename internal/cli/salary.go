package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"saldo/internal/core"
)

func newSalaryCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "salary",
		Short: "Show or set the monthly salary",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get",
			Short: "Print salary, total expenses and what remains",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				svc, cleanup, err := a.openService(cmd.Context())
				if err != nil {
					return err
				}
				defer cleanup()

				ov, err := svc.SalaryOverview(cmd.Context())
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "salary: %s\n", core.FormatAmount(ov.Salary))
				fmt.Fprintf(w, "total_expenses: %s\n", core.FormatAmount(ov.TotalExpenses))
				fmt.Fprintf(w, "remaining: %s\n", core.FormatAmount(ov.Remaining))
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <amount>",
			Short: "Set the monthly salary",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				amount, err := core.ParseAmount(args[0])
				if err != nil {
					return err
				}

				svc, cleanup, err := a.openService(cmd.Context())
				if err != nil {
					return err
				}
				defer cleanup()

				if err := svc.SetSalary(cmd.Context(), amount); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Salary updated: %s\n", core.FormatAmount(amount))
				return nil
			},
		},
	)

	return cmd
}
