// Package journal accumulates closed trades and equity samples, in memory
// for the metrics engine and optionally persisted to CSV or SQLite.
package journal

import "time"

// Exit reasons recorded on every closed trade.
const (
	ReasonSignal      = "signal"
	ReasonStopLoss    = "stop_loss"
	ReasonTakeProfit  = "take_profit"
	ReasonEndOfPeriod = "end_of_period"
)

// Trade is created exactly once, at position close, and never mutated.
type Trade struct {
	ID         string
	Symbol     string
	Side       string // "long" or "short"
	EntryTime  time.Time
	ExitTime   time.Time
	EntryPrice float64
	ExitPrice  float64
	Size       float64
	PnL        float64
	Fee        float64
	ExitReason string
}

// EquityPoint is one mark-to-market sample: realized balance plus the
// unrealized P&L of any open position.
type EquityPoint struct {
	Time     time.Time
	Equity   float64
	Drawdown float64 // fraction of the running peak given back, in [0, 1]
}

// Journal persists trade and equity records as they are produced.
type Journal interface {
	RecordTrade(Trade) error
	RecordEquity(EquityPoint) error
	Close() error
}

// Discard is a Journal that drops everything, for runs that only need the
// in-memory ledger.
type Discard struct{}

func (Discard) RecordTrade(Trade) error        { return nil }
func (Discard) RecordEquity(EquityPoint) error { return nil }
func (Discard) Close() error                   { return nil }
