package live

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tradebot/sim"
)

const clearScreen = "\033c"

// renderDashboard writes a console status screen: mode, price, balance,
// open position and the last few signals.
func (l *Loop) renderDashboard(ctx context.Context, price float64) {
	balance, err := l.Exchange.Balance(ctx, l.QuoteAsset)
	if err != nil {
		slog.Debug("dashboard balance unavailable", "err", err)
	}

	var b strings.Builder
	rule := strings.Repeat("=", 80)
	thin := strings.Repeat("-", 80)

	b.WriteString(clearScreen)
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Trading Dashboard - %s - %s\n",
		l.Symbol, l.now().UTC().Format("2006-01-02 15:04:05"))
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Mode: %s\n", l.mode())
	fmt.Fprintf(&b, "Strategy: %s\n", l.Strategy.Name())
	fmt.Fprintf(&b, "Timeframe: %s\n", l.Timeframe)
	fmt.Fprintf(&b, "Current Price: %.6g\n", price)
	fmt.Fprintf(&b, "Account Balance: %.2f %s\n", balance, l.QuoteAsset)
	b.WriteString(thin + "\n")

	p := &l.position
	if !p.Open() {
		b.WriteString("Position: none\n")
	} else {
		upnl := sim.UnrealizedPnL(p, price, p.Size)
		fmt.Fprintf(&b, "Position: %s\n", p.State)
		fmt.Fprintf(&b, "Entry Price: %.6g\n", p.EntryPrice)
		fmt.Fprintf(&b, "Stop Loss: %.6g\n", p.StopLoss)
		fmt.Fprintf(&b, "Take Profit: %.6g\n", p.TakeProfit)
		fmt.Fprintf(&b, "Position Size: %.2f\n", p.Size)
		fmt.Fprintf(&b, "Unrealized P&L: %.2f (%.2f%%)\n",
			upnl, p.Direction()*(price-p.EntryPrice)/p.EntryPrice*100)
	}
	b.WriteString(thin + "\n")

	b.WriteString("Recent Signals:\n")
	rows := l.lastRows
	if len(rows) > 5 {
		rows = rows[len(rows)-5:]
	}
	for _, row := range rows {
		signal := "NONE"
		if row.Buy {
			signal = "BUY"
		} else if row.Sell {
			signal = "SELL"
		}
		fmt.Fprintf(&b, "%s: %-4s O=%.6g H=%.6g L=%.6g C=%.6g\n",
			row.Time.UTC().Format(time.RFC3339), signal,
			row.Open, row.High, row.Low, row.Close)
	}
	b.WriteString(rule + "\n")

	if _, err := l.Dashboard.Write([]byte(b.String())); err != nil {
		slog.Debug("dashboard write failed", "err", err)
	}
}
