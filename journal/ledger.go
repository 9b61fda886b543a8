package journal

import "time"

// Ledger is the append-only in-memory trade list and equity curve for a
// single run. The running peak is seeded with the initial balance, so
// drawdown stays zero until equity falls below a prior peak.
type Ledger struct {
	trades []Trade
	equity []EquityPoint
	peak   float64
}

func NewLedger(initialBalance float64) *Ledger {
	return &Ledger{peak: initialBalance}
}

// AppendTrade records a closed trade.
func (l *Ledger) AppendTrade(t Trade) {
	l.trades = append(l.trades, t)
}

// MarkEquity appends an equity sample, updating the running peak and
// deriving the drawdown from it.
func (l *Ledger) MarkEquity(ts time.Time, equity float64) EquityPoint {
	if equity > l.peak {
		l.peak = equity
	}

	dd := 0.0
	if l.peak > 0 {
		dd = (l.peak - equity) / l.peak
	}

	p := EquityPoint{Time: ts, Equity: equity, Drawdown: dd}
	l.equity = append(l.equity, p)
	return p
}

// Trades returns the closed trades in close order. The slice is shared;
// callers must not mutate it.
func (l *Ledger) Trades() []Trade { return l.trades }

// Equity returns the equity curve in sample order. The slice is shared;
// callers must not mutate it.
func (l *Ledger) Equity() []EquityPoint { return l.equity }
