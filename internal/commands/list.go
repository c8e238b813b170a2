package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"ledger/internal/backend"
	"ledger/internal/core"
)

func newListCommand(e *env) *cobra.Command {
	var asc bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List expenses, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			order := core.Descending
			if asc {
				order = core.Ascending
			}
			return withLedger(cmd.Context(), e, func(res *backend.BackendResult) error {
				items, err := res.Ledger.ListAll(cmd.Context(), order)
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No expenses recorded.")
					return nil
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "DATE\tTITLE\tAMOUNT\tID")
				for _, it := range items {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
						it.Date.In(e.loc).Format(time.DateTime), it.Title, core.FormatAmount(it.Amount), it.ID)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().BoolVar(&asc, "asc", false, "oldest first")
	return cmd
}
