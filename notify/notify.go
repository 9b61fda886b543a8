// Package notify delivers trading events to external channels. Delivery is
// best effort: a channel failure is logged and never interrupts trading.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tradebot/journal"
	"tradebot/metrics"
)

// Priority grades how urgently a message should be surfaced.
type Priority string

const (
	Low      Priority = "low"
	Normal   Priority = "normal"
	High     Priority = "high"
	Critical Priority = "critical"
)

// Notifier is a single delivery channel.
type Notifier interface {
	Name() string
	Send(ctx context.Context, title, message string, priority Priority) error
}

// Manager fans one message out to every configured channel.
type Manager struct {
	channels []Notifier
}

func NewManager(channels ...Notifier) *Manager {
	return &Manager{channels: channels}
}

// Enabled reports whether any channel is configured.
func (m *Manager) Enabled() bool { return len(m.channels) > 0 }

// Notify sends to all channels. Failures are logged per channel and the
// rest still go out.
func (m *Manager) Notify(ctx context.Context, title, message string, priority Priority) {
	for _, ch := range m.channels {
		if err := ch.Send(ctx, title, message, priority); err != nil {
			slog.Error("notification failed",
				"channel", ch.Name(), "title", title, "err", err)
			continue
		}
		slog.Debug("notification sent", "channel", ch.Name(), "title", title)
	}
}

// NotifyTrade announces an executed entry or exit. Stop and target exits go
// out at high priority.
func (m *Manager) NotifyTrade(ctx context.Context, action, symbol string, price, quantity float64, reason string) {
	title := fmt.Sprintf("%s Order Executed - %s", strings.ToUpper(action), symbol)

	var b strings.Builder
	fmt.Fprintf(&b, "Symbol: %s\n", symbol)
	fmt.Fprintf(&b, "Action: %s\n", strings.ToUpper(action))
	fmt.Fprintf(&b, "Price: %.6g\n", price)
	fmt.Fprintf(&b, "Quantity: %.6g\n", quantity)
	if reason != "" {
		fmt.Fprintf(&b, "Reason: %s\n", reason)
	}

	priority := Normal
	if reason == journal.ReasonStopLoss || reason == journal.ReasonTakeProfit {
		priority = High
	}
	m.Notify(ctx, title, b.String(), priority)
}

// NotifyError reports a trading error at critical priority.
func (m *Manager) NotifyError(ctx context.Context, errType string, err error, detail string) {
	title := "Trading Error - " + errType

	var b strings.Builder
	fmt.Fprintf(&b, "Type: %s\n", errType)
	fmt.Fprintf(&b, "Message: %v\n", err)
	if detail != "" {
		fmt.Fprintf(&b, "Context: %s\n", detail)
	}
	m.Notify(ctx, title, b.String(), Critical)
}

// NotifySystem reports lifecycle events like startup and shutdown.
func (m *Manager) NotifySystem(ctx context.Context, event, details string) {
	title := "System - " + event

	var b strings.Builder
	fmt.Fprintf(&b, "Event: %s\n", event)
	fmt.Fprintf(&b, "Time: %s\n", time.Now().UTC().Format(time.RFC3339))
	if details != "" {
		fmt.Fprintf(&b, "Details: %s\n", details)
	}
	m.Notify(ctx, title, b.String(), Normal)
}

// NotifyPerformance sends a run summary.
func (m *Manager) NotifyPerformance(ctx context.Context, period string, s metrics.Summary) {
	title := "Performance Summary - " + period

	var b strings.Builder
	fmt.Fprintf(&b, "Total Return: %.2f%%\n", s.TotalReturnPct)
	fmt.Fprintf(&b, "Win Rate: %.2f%%\n", s.WinRatePct)
	fmt.Fprintf(&b, "Profit Factor: %.2f\n", s.ProfitFactor)
	fmt.Fprintf(&b, "Max Drawdown: %.2f%%\n", s.MaxDrawdown*100)
	fmt.Fprintf(&b, "Sharpe Ratio: %.2f\n", s.SharpeRatio)
	fmt.Fprintf(&b, "Trades: %d (%d W / %d L)\n", s.TotalTrades, s.WinningTrades, s.LosingTrades)
	m.Notify(ctx, title, b.String(), Normal)
}
