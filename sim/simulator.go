package sim

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tradebot/journal"
	"tradebot/risk"
	"tradebot/strategy"
)

// ErrNoData is returned when a run is asked to replay an empty signal series.
var ErrNoData = errors.New("no signal rows to simulate")

// Result is everything a completed backtest produced.
type Result struct {
	Symbol         string
	InitialBalance float64
	FinalBalance   float64
	Trades         []journal.Trade
	Equity         []journal.EquityPoint
	Start, End     time.Time
}

// Simulator replays a signal series through the position state machine.
// Runs are deterministic: the same rows and parameters always produce the
// same trades and equity curve.
type Simulator struct {
	Symbol         string
	InitialBalance float64
	Params         risk.Parameters
	Strategy       strategy.Strategy

	// Journal, when set, receives every trade and equity sample as it is
	// produced. The in-memory result is kept either way.
	Journal journal.Journal

	// NewID generates trade identifiers. Defaults to sequential ids so
	// bare simulators stay deterministic without wiring.
	NewID func() string

	balance  float64
	position Position
	ledger   *journal.Ledger
	seq      int
}

// Run executes the backtest over rows produced by Strategy.Analyze.
//
// Each row is processed in a fixed order: protective exits first, then the
// row's buy/sell signals against the post-exit state, then the trailing
// stop. Equity is marked to the row's close once per row. A position still
// open after the final row is force-closed at that row's close.
func (s *Simulator) Run(rows []strategy.SignalRow) (*Result, error) {
	if len(rows) == 0 {
		return nil, ErrNoData
	}
	if s.Strategy == nil {
		return nil, errors.New("simulator needs a strategy")
	}

	s.balance = s.InitialBalance
	s.position.Reset()
	s.ledger = journal.NewLedger(s.InitialBalance)
	s.seq = 0

	slog.Info("backtest start",
		"symbol", s.Symbol,
		"strategy", s.Strategy.Name(),
		"rows", len(rows),
		"balance", s.balance)

	for i, row := range rows {
		s.step(rows[:i+1], row)
	}

	// A run never ends with an open position.
	last := rows[len(rows)-1]
	if s.position.Open() {
		price := last.Close
		if s.position.State == Long {
			price *= 1 - s.Params.Slippage
		} else {
			price *= 1 + s.Params.Slippage
		}
		if err := s.close(price, last.Time, journal.ReasonEndOfPeriod); err != nil {
			return nil, err
		}
	}

	res := &Result{
		Symbol:         s.Symbol,
		InitialBalance: s.InitialBalance,
		FinalBalance:   s.balance,
		Trades:         s.ledger.Trades(),
		Equity:         s.ledger.Equity(),
		Start:          rows[0].Time,
		End:            last.Time,
	}

	slog.Info("backtest done",
		"symbol", s.Symbol,
		"trades", len(res.Trades),
		"final_balance", res.FinalBalance)
	return res, nil
}

// step processes one row. history includes the row itself.
func (s *Simulator) step(history []strategy.SignalRow, row strategy.SignalRow) {
	// Mark to market before any transition so the first sample sits at the
	// initial balance and entry fees show up on the next bar.
	equity := s.balance + UnrealizedPnL(&s.position, row.Close, s.balance)
	point := s.ledger.MarkEquity(row.Time, equity)
	if s.Journal != nil {
		if err := s.Journal.RecordEquity(point); err != nil {
			slog.Error("record equity", "err", err)
		}
	}

	if exit, ok := EvaluateExits(&s.position, row.Close, s.Params.Slippage); ok {
		if err := s.close(exit.Price, row.Time, exit.Reason); err != nil {
			slog.Error("close position", "err", err)
			return
		}
	}

	tr := EvaluateSignal(s.position.State, row.Close, row.Buy, row.Sell, s.Params.Slippage)
	switch tr.Action {
	case OpenLong:
		s.open(Long, tr.Price, row.Time, history)
	case OpenShort:
		s.open(Short, tr.Price, row.Time, history)
	case Close:
		if err := s.close(tr.Price, row.Time, tr.Reason); err != nil {
			slog.Error("close position", "err", err)
			return
		}
	}

	if UpdateTrailingStop(&s.position, row.Close, s.Params) {
		slog.Debug("trailing stop moved",
			"symbol", s.Symbol, "stop", s.position.StopLoss, "price", row.Close)
	}
}

func (s *Simulator) open(state State, entryPrice float64, ts time.Time, history []strategy.SignalRow) {
	side := strategy.Long
	if state == Short {
		side = strategy.Short
	}

	stop := s.Strategy.StopLoss(history, side, entryPrice)
	target := s.Strategy.TakeProfit(entryPrice, stop, s.Params.RiskRewardRatio)
	size := risk.Size(s.balance, s.Params, entryPrice, stop)
	if size <= 0 {
		slog.Warn("skip entry, sizing returned zero",
			"symbol", s.Symbol, "entry", entryPrice, "stop", stop)
		return
	}

	s.position = Position{
		State:      state,
		EntryPrice: entryPrice,
		EntryTime:  ts,
		StopLoss:   stop,
		TakeProfit: target,
		Size:       size,
	}
	s.balance -= entryPrice * s.Params.FeeRate

	slog.Info("open position",
		"symbol", s.Symbol,
		"side", state.String(),
		"entry", entryPrice,
		"stop", stop,
		"target", target,
		"size", size)
}

func (s *Simulator) close(exitPrice float64, ts time.Time, reason string) error {
	p := &s.position
	if !p.Open() {
		return fmt.Errorf("close with no open position")
	}

	pnl := p.Direction() * (exitPrice - p.EntryPrice) / p.EntryPrice * s.balance
	fee := exitPrice * s.Params.FeeRate * s.balance / p.EntryPrice
	s.balance += pnl - fee

	trade := journal.Trade{
		ID:         s.nextID(),
		Symbol:     s.Symbol,
		Side:       p.State.String(),
		EntryTime:  p.EntryTime,
		ExitTime:   ts,
		EntryPrice: p.EntryPrice,
		ExitPrice:  exitPrice,
		Size:       p.Size,
		PnL:        pnl,
		Fee:        fee,
		ExitReason: reason,
	}
	s.ledger.AppendTrade(trade)
	if s.Journal != nil {
		if err := s.Journal.RecordTrade(trade); err != nil {
			slog.Error("record trade", "err", err)
		}
	}

	slog.Info("close position",
		"symbol", s.Symbol,
		"side", trade.Side,
		"exit", exitPrice,
		"pnl", pnl,
		"reason", reason,
		"balance", s.balance)

	p.Reset()
	return nil
}

func (s *Simulator) nextID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	s.seq++
	return fmt.Sprintf("T%04d", s.seq)
}
