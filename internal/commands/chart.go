package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"ledger/internal/backend"
	"ledger/internal/core"
)

const barWidth = 40

func newChartCommand(e *env) *cobra.Command {
	var (
		days int
		now  string
	)

	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Show spend per day over the trailing window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("days") {
				days = e.cfg.ChartWindowDays
			}
			return withLedger(cmd.Context(), e, func(res *backend.BackendResult) error {
				ref := res.Ledger.Now()
				if now != "" {
					t, err := time.Parse(time.RFC3339, now)
					if err != nil {
						return fmt.Errorf("%w: --now must be RFC 3339", core.ErrInvalidArgument)
					}
					ref = t
				}
				totals, err := res.Ledger.DailyTotals(cmd.Context(), ref.In(e.loc), days)
				if err != nil {
					return err
				}
				renderChart(cmd.OutOrStdout(), totals)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&days, "days", core.DefaultWindowDays, "window length in days")
	cmd.Flags().StringVar(&now, "now", "", "reference time, RFC 3339 (default now)")
	return cmd
}

// renderChart prints one line per day with a bar scaled to the largest total.
func renderChart(w io.Writer, totals []core.DailyTotal) {
	peak := decimal.Zero
	for _, t := range totals {
		if t.Total.GreaterThan(peak) {
			peak = t.Total
		}
	}
	for _, t := range totals {
		bar := 0
		if peak.IsPositive() && t.Total.IsPositive() {
			bar = int(t.Total.Mul(decimal.NewFromInt(barWidth)).Div(peak).Ceil().IntPart())
		}
		fmt.Fprintf(w, "%s %10s %s\n", t.Day.Format(time.DateOnly), core.FormatAmount(t.Total), strings.Repeat("#", bar))
	}
}
