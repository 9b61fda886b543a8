package cmd

import (
	"fmt"
	"io"
	"math"

	"tradebot/metrics"
)

// printSummary renders a performance summary as an aligned text table.
func printSummary(w io.Writer, s metrics.Summary) {
	fmt.Fprintln(w, "Performance")
	fmt.Fprintf(w, "  Total Return:        %10.2f%%\n", s.TotalReturnPct)
	fmt.Fprintf(w, "  Annualized Return:   %10.2f%%\n", s.AnnualizedReturnPct)
	fmt.Fprintf(w, "  Max Drawdown:        %10.2f%%\n", s.MaxDrawdown*100)
	fmt.Fprintf(w, "  Sharpe Ratio:        %11.2f\n", s.SharpeRatio)
	fmt.Fprintf(w, "  Sortino Ratio:       %11s\n", ratio(s.SortinoRatio))
	fmt.Fprintf(w, "  RoMaD:               %11s\n", ratio(s.RoMaD))
	fmt.Fprintf(w, "  Calmar Ratio:        %11s\n", ratio(s.CalmarRatio))
	fmt.Fprintln(w, "Trades")
	fmt.Fprintf(w, "  Total:               %11d\n", s.TotalTrades)
	fmt.Fprintf(w, "  Win / Loss:          %6d / %d\n", s.WinningTrades, s.LosingTrades)
	fmt.Fprintf(w, "  Win Rate:            %10.2f%%\n", s.WinRatePct)
	fmt.Fprintf(w, "  Profit Factor:       %11s\n", ratio(s.ProfitFactor))
	fmt.Fprintf(w, "  Avg Win / Avg Loss:  %.2f / %.2f\n", s.AvgWin, s.AvgLoss)
	fmt.Fprintf(w, "  Expectancy:          %11.2f\n", s.Expectancy)
	fmt.Fprintf(w, "  Max Streak (W/L):    %6d / %d\n", s.MaxConsecutiveWins, s.MaxConsecutiveLosses)
	fmt.Fprintf(w, "  Avg Holding:         %10.1fh\n", s.AvgHoldingHours)
	fmt.Fprintf(w, "  Total Fees:          %11.2f\n", s.TotalFees)
}

func ratio(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.2f", v)
}
