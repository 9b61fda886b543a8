package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tradebot/journal"
	"tradebot/metrics"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize trades recorded in a SQLite journal",
	Long: `Report reads a SQLite journal written by a backtest or trading session
and prints the trade list plus performance metrics.`,
	RunE: runReport,
}

var (
	reportDB     string
	reportTrades bool
)

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVarP(&reportDB, "db", "d", "tradebot.sqlite", "path to SQLite journal")
	reportCmd.Flags().BoolVar(&reportTrades, "trades", false, "also list every trade")
}

func runReport(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(reportDB)
	if err != nil {
		return err
	}
	defer j.Close()

	trades, err := j.ListTrades()
	if err != nil {
		return fmt.Errorf("list trades: %w", err)
	}
	if len(trades) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No trades recorded.")
		return nil
	}

	equity, err := j.ListEquityBetween(time.Time{}, time.Now().UTC().Add(time.Hour))
	if err != nil {
		return fmt.Errorf("list equity: %w", err)
	}

	var initial, final float64
	if len(equity) > 0 {
		initial = equity[0].Equity
		final = equity[len(equity)-1].Equity
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Journal: %s (%d trades, %d equity samples)\n\n",
		reportDB, len(trades), len(equity))

	printSummary(out, metrics.Compute(trades, equity, initial, final))

	if reportTrades {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "%-28s %-10s %-6s %12s %12s %12s %-14s\n",
			"ID", "SYMBOL", "SIDE", "ENTRY", "EXIT", "PNL", "REASON")
		for _, t := range trades {
			fmt.Fprintf(out, "%-28s %-10s %-6s %12.4f %12.4f %12.2f %-14s\n",
				t.ID, t.Symbol, t.Side, t.EntryPrice, t.ExitPrice, t.PnL, t.ExitReason)
		}
	}
	return nil
}
