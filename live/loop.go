// Package live runs the online trading loop: wake on each bar close, fetch
// the latest window, evaluate the strategy and route orders to an exchange.
package live

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"tradebot/exchange"
	"tradebot/journal"
	"tradebot/market"
	"tradebot/notify"
	"tradebot/risk"
	"tradebot/sim"
	"tradebot/strategy"
)

const fetchRetries = 3

// Loop drives one symbol on one timeframe. The position state machine is
// shared with the backtest simulator; the difference is that transitions
// place real orders and fire notifications.
type Loop struct {
	Symbol     string
	Timeframe  market.Timeframe
	WindowSize int
	QuoteAsset string
	Params     risk.Parameters
	Strategy   strategy.Strategy
	Exchange   exchange.Exchange
	Notify     *notify.Manager

	// Journal, when set, receives closed trades and per-iteration equity.
	Journal journal.Journal

	// Dashboard, when set, gets a status screen after every iteration.
	Dashboard io.Writer

	// Live marks real-money mode; it only changes labels, the loop itself
	// is identical for paper and live.
	Live bool

	NewID func() string

	// Clock hooks, swapped out in tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	position sim.Position
	ledger   *journal.Ledger
	lastRows []strategy.SignalRow
	seq      int
}

func (l *Loop) mode() string {
	if l.Live {
		return "live"
	}
	return "paper"
}

// Run blocks until ctx is cancelled. Each iteration happens just after a
// bar closes; transient errors skip the iteration rather than stopping the
// loop.
func (l *Loop) Run(ctx context.Context) error {
	if l.Strategy == nil || l.Exchange == nil {
		return errors.New("loop needs a strategy and an exchange")
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.sleep == nil {
		l.sleep = sleepCtx
	}
	if l.WindowSize <= 0 {
		l.WindowSize = 100
	}

	balance, err := l.Exchange.Balance(ctx, l.QuoteAsset)
	if err != nil {
		return fmt.Errorf("initial balance: %w", err)
	}
	l.ledger = journal.NewLedger(balance)

	slog.Info("trading loop starting",
		"mode", l.mode(),
		"symbol", l.Symbol,
		"timeframe", l.Timeframe,
		"strategy", l.Strategy.Name(),
		"balance", balance)

	if l.Notify != nil {
		l.Notify.NotifySystem(ctx, "startup",
			fmt.Sprintf("%s trading started for %s (%s, %s)",
				l.mode(), l.Symbol, l.Strategy.Name(), l.Timeframe))
	}

	for {
		l.iterate(ctx)

		// Wake one second after the next bar closes so the final kline is
		// available on the venue.
		wait := l.Timeframe.NextBoundary(l.now()).Add(time.Second).Sub(l.now())
		if err := l.sleep(ctx, wait); err != nil {
			break
		}
	}

	slog.Info("trading loop stopped", "mode", l.mode(), "symbol", l.Symbol)
	if l.Notify != nil {
		// Use a fresh context: the loop's own one is already cancelled.
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		l.Notify.NotifySystem(sctx, "shutdown",
			fmt.Sprintf("%s trading stopped for %s", l.mode(), l.Symbol))
	}
	return nil
}

// iterate runs one bar-close cycle.
func (l *Loop) iterate(ctx context.Context) {
	bars, err := l.fetchWithRetry(ctx)
	if err != nil {
		slog.Error("market data unavailable, skipping iteration", "err", err)
		if l.Notify != nil {
			l.Notify.NotifyError(ctx, "market data", err, l.Symbol)
		}
		return
	}

	rows, err := l.Strategy.Analyze(bars)
	if err != nil {
		slog.Error("strategy analysis failed, skipping iteration", "err", err)
		return
	}
	if len(rows) == 0 {
		slog.Warn("no signal rows after warmup, skipping iteration",
			"bars", len(bars))
		return
	}
	l.lastRows = rows

	latest := rows[len(rows)-1]
	price := latest.Close

	if exit, ok := sim.EvaluateExits(&l.position, price, l.Params.Slippage); ok {
		l.exitPosition(ctx, exit.Price, exit.Reason)
	}

	tr := sim.EvaluateSignal(l.position.State, price, latest.Buy, latest.Sell, l.Params.Slippage)
	switch tr.Action {
	case sim.OpenLong:
		l.enterPosition(ctx, sim.Long, tr.Price, rows)
	case sim.OpenShort:
		l.enterPosition(ctx, sim.Short, tr.Price, rows)
	case sim.Close:
		l.exitPosition(ctx, tr.Price, tr.Reason)
	}

	if sim.UpdateTrailingStop(&l.position, price, l.Params) {
		slog.Info("trailing stop updated",
			"symbol", l.Symbol, "stop", l.position.StopLoss, "price", price)
	}

	l.markEquity(ctx, latest.Time, price)

	if l.Dashboard != nil {
		l.renderDashboard(ctx, price)
	}
}

// fetchWithRetry fetches the bar window, retrying transient failures with
// exponential backoff (1s, 2s, 4s) before giving up on this iteration.
func (l *Loop) fetchWithRetry(ctx context.Context) ([]market.Bar, error) {
	bars, err := l.Exchange.FetchBars(ctx, l.Symbol, l.Timeframe, l.WindowSize)
	if err == nil {
		return bars, nil
	}

	for attempt := 1; attempt <= fetchRetries; attempt++ {
		backoff := time.Duration(1<<(attempt-1)) * time.Second
		slog.Warn("market data fetch failed, retrying",
			"attempt", attempt, "backoff", backoff, "err", err)
		if serr := l.sleep(ctx, backoff); serr != nil {
			return nil, serr
		}

		bars, err = l.Exchange.FetchBars(ctx, l.Symbol, l.Timeframe, l.WindowSize)
		if err == nil {
			return bars, nil
		}
	}
	return nil, fmt.Errorf("fetch bars after %d retries: %w", fetchRetries, err)
}

func (l *Loop) enterPosition(ctx context.Context, state sim.State, entryPrice float64, rows []strategy.SignalRow) {
	balance, err := l.Exchange.Balance(ctx, l.QuoteAsset)
	if err != nil {
		slog.Error("balance unavailable, skipping entry", "err", err)
		return
	}

	side := strategy.Long
	orderSide := exchange.Buy
	if state == sim.Short {
		side = strategy.Short
		orderSide = exchange.Sell
	}

	stop := l.Strategy.StopLoss(rows, side, entryPrice)
	target := l.Strategy.TakeProfit(entryPrice, stop, l.Params.RiskRewardRatio)
	size := risk.Size(balance, l.Params, entryPrice, stop)
	if size <= 0 {
		slog.Warn("skip entry, sizing returned zero",
			"symbol", l.Symbol, "entry", entryPrice, "stop", stop)
		return
	}

	order, err := l.Exchange.PlaceMarketOrder(ctx, l.Symbol, orderSide, size/entryPrice)
	if err != nil {
		slog.Error("entry order failed", "symbol", l.Symbol, "side", side, "err", err)
		if l.Notify != nil {
			l.Notify.NotifyError(ctx, "entry order", err, l.Symbol)
		}
		return
	}

	l.position = sim.Position{
		State:      state,
		EntryPrice: entryPrice,
		EntryTime:  l.now().UTC(),
		StopLoss:   stop,
		TakeProfit: target,
		Size:       size,
	}

	slog.Info("entered position",
		"symbol", l.Symbol,
		"side", state.String(),
		"entry", entryPrice,
		"stop", stop,
		"target", target,
		"size", size,
		"order_id", order.ID)

	if l.Notify != nil {
		l.Notify.NotifyTrade(ctx, string(orderSide), l.Symbol, entryPrice, size/entryPrice, "")
	}
}

func (l *Loop) exitPosition(ctx context.Context, exitPrice float64, reason string) {
	p := &l.position
	if !p.Open() {
		return
	}

	orderSide := exchange.Sell
	if p.State == sim.Short {
		orderSide = exchange.Buy
	}

	order, err := l.Exchange.PlaceMarketOrder(ctx, l.Symbol, orderSide, p.Size/p.EntryPrice)
	if err != nil {
		// The position stays open; the next iteration will try again.
		slog.Error("exit order failed", "symbol", l.Symbol, "reason", reason, "err", err)
		if l.Notify != nil {
			l.Notify.NotifyError(ctx, "exit order", err, l.Symbol)
		}
		return
	}

	pnl := p.Direction() * (exitPrice - p.EntryPrice) / p.EntryPrice * p.Size
	trade := journal.Trade{
		ID:         l.nextID(),
		Symbol:     l.Symbol,
		Side:       p.State.String(),
		EntryTime:  p.EntryTime,
		ExitTime:   l.now().UTC(),
		EntryPrice: p.EntryPrice,
		ExitPrice:  exitPrice,
		Size:       p.Size,
		PnL:        pnl,
		ExitReason: reason,
	}
	l.ledger.AppendTrade(trade)
	if l.Journal != nil {
		if err := l.Journal.RecordTrade(trade); err != nil {
			slog.Error("record trade", "err", err)
		}
	}

	slog.Info("exited position",
		"symbol", l.Symbol,
		"side", trade.Side,
		"exit", exitPrice,
		"pnl", pnl,
		"reason", reason,
		"order_id", order.ID)

	if l.Notify != nil {
		l.Notify.NotifyTrade(ctx, string(orderSide), l.Symbol, exitPrice, p.Size/p.EntryPrice, reason)
	}

	p.Reset()
}

// markEquity samples balance plus unrealized P&L once per iteration.
func (l *Loop) markEquity(ctx context.Context, ts time.Time, price float64) {
	balance, err := l.Exchange.Balance(ctx, l.QuoteAsset)
	if err != nil {
		slog.Error("balance unavailable, skipping equity sample", "err", err)
		return
	}

	equity := balance + sim.UnrealizedPnL(&l.position, price, l.position.Size)
	point := l.ledger.MarkEquity(ts, equity)
	if l.Journal != nil {
		if err := l.Journal.RecordEquity(point); err != nil {
			slog.Error("record equity", "err", err)
		}
	}
}

// Trades returns the trades closed so far in this session.
func (l *Loop) Trades() []journal.Trade {
	if l.ledger == nil {
		return nil
	}
	return l.ledger.Trades()
}

func (l *Loop) nextID() string {
	if l.NewID != nil {
		return l.NewID()
	}
	l.seq++
	return fmt.Sprintf("L%04d", l.seq)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		// Still honor cancellation between iterations.
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
