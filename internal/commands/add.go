package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ledger/internal/backend"
	"ledger/internal/core"
)

func newAddCommand(e *env) *cobra.Command {
	var title, amount, date string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record an expense",
		Example: `  ledgerctl add --title Coffee --amount 3.75
  ledgerctl add --title Rent --amount 950 --date 2025-06-01`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := core.ParseDate(date, e.loc)
			if err != nil {
				return err
			}
			ne, err := core.ParseNewExpense(title, amount, d)
			if err != nil {
				return err
			}
			return withLedger(cmd.Context(), e, func(res *backend.BackendResult) error {
				saved, err := res.Ledger.Create(cmd.Context(), ne)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s  %s  %s  %s\n",
					saved.ID, saved.Date.In(e.loc).Format(time.RFC3339), saved.Title, core.FormatAmount(saved.Amount))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "expense title (required)")
	cmd.Flags().StringVar(&amount, "amount", "", "amount, e.g. 3.75 or 3,75 (required)")
	cmd.Flags().StringVar(&date, "date", "", "RFC 3339 timestamp or YYYY-MM-DD (default now)")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}
