package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"ledger/internal/backend"
	"ledger/internal/core"
	"ledger/internal/services"
)

func newSeedCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the demo record when the ledger is empty",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(cmd.Context(), e, func(res *backend.BackendResult) error {
				saved, inserted, err := res.Ledger.SeedIfEmpty(cmd.Context(), services.DefaultSeed)
				if err != nil {
					return err
				}
				if !inserted {
					fmt.Fprintln(cmd.OutOrStdout(), "Ledger not empty, nothing seeded.")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Seeded %s  %s  %s\n", saved.ID, saved.Title, core.FormatAmount(saved.Amount))
				return nil
			})
		},
	}
}
