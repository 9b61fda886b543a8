package live

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradebot/exchange"
	"tradebot/journal"
	"tradebot/market"
	"tradebot/notify"
	"tradebot/risk"
	"tradebot/strategy"
)

// scriptedExchange serves one bar window per iteration and records orders.
type scriptedExchange struct {
	mu        sync.Mutex
	windows   [][]market.Bar
	fetchIdx  int
	failFirst int // how many initial fetches fail
	orderErr  error
	balance   float64
	orders    []exchange.Order
}

func (e *scriptedExchange) FetchBars(context.Context, string, market.Timeframe, int) ([]market.Bar, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.failFirst > 0 {
		e.failFirst--
		return nil, errors.New("venue unavailable")
	}
	if e.fetchIdx >= len(e.windows) {
		return e.windows[len(e.windows)-1], nil
	}
	w := e.windows[e.fetchIdx]
	e.fetchIdx++
	return w, nil
}

func (e *scriptedExchange) TickerPrice(context.Context, string) (float64, error) {
	return 0, errors.New("not used")
}

func (e *scriptedExchange) PlaceMarketOrder(_ context.Context, symbol string, side exchange.OrderSide, qty float64) (exchange.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.orderErr != nil {
		return exchange.Order{}, e.orderErr
	}
	o := exchange.Order{
		ID:       fmt.Sprintf("o%d", len(e.orders)+1),
		Symbol:   symbol,
		Side:     side,
		Quantity: qty,
	}
	e.orders = append(e.orders, o)
	return o, nil
}

func (e *scriptedExchange) Balance(context.Context, string) (float64, error) {
	return e.balance, nil
}

// scriptedStrategy marks the latest row with a scripted signal per call.
type scriptedStrategy struct {
	stopOffset float64
	calls      int
	buys       []bool
	sells      []bool
}

func (*scriptedStrategy) Name() string { return "scripted" }

func (s *scriptedStrategy) Analyze(bars []market.Bar) ([]strategy.SignalRow, error) {
	rows := make([]strategy.SignalRow, len(bars))
	for i, b := range bars {
		rows[i] = strategy.SignalRow{Bar: b}
	}
	if len(rows) > 0 && s.calls < len(s.buys) {
		rows[len(rows)-1].Buy = s.buys[s.calls]
		rows[len(rows)-1].Sell = s.sells[s.calls]
	}
	s.calls++
	return rows, nil
}

func (s *scriptedStrategy) StopLoss(_ []strategy.SignalRow, side strategy.Side, entry float64) float64 {
	if side == strategy.Short {
		return entry + s.stopOffset
	}
	return entry - s.stopOffset
}

func (s *scriptedStrategy) TakeProfit(entry, stop, rr float64) float64 {
	if stop < entry {
		return entry + (entry-stop)*rr
	}
	return entry - (stop-entry)*rr
}

func (*scriptedStrategy) CurrentPosition([]strategy.SignalRow) (strategy.Side, float64) {
	return strategy.Flat, 0
}

type capturedNote struct {
	title    string
	priority notify.Priority
}

type captureNotifier struct {
	mu    sync.Mutex
	notes []capturedNote
}

func (*captureNotifier) Name() string { return "capture" }

func (c *captureNotifier) Send(_ context.Context, title, _ string, p notify.Priority) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notes = append(c.notes, capturedNote{title: title, priority: p})
	return nil
}

func (c *captureNotifier) titles() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.notes))
	for i, n := range c.notes {
		out[i] = n.title
	}
	return out
}

func window(t0 time.Time, closes ...float64) []market.Bar {
	bars := make([]market.Bar, len(closes))
	for i, c := range closes {
		bars[i] = market.Bar{
			Time: t0.Add(time.Duration(i) * time.Hour),
			Open: c, High: c, Low: c, Close: c,
		}
	}
	return bars
}

func testLoopParams() risk.Parameters {
	p := risk.Defaults()
	p.FeeRate = 0.001
	p.Slippage = 0.0005
	return p
}

// newTestLoop wires a loop that cancels itself after iterations bar waits.
func newTestLoop(ex *scriptedExchange, strat strategy.Strategy, notes *captureNotifier, iterations int) *Loop {
	l := &Loop{
		Symbol:     "BTC/USDT",
		Timeframe:  market.H1,
		WindowSize: 10,
		QuoteAsset: "USDT",
		Params:     testLoopParams(),
		Strategy:   strat,
		Exchange:   ex,
		Notify:     notify.NewManager(notes),
		now:        func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) },
	}

	waits := 0
	l.sleep = func(ctx context.Context, d time.Duration) error {
		// Bar waits are about an hour; retry backoffs are a few seconds.
		if d > time.Minute {
			waits++
			if waits >= iterations {
				return context.Canceled
			}
		}
		return nil
	}
	return l
}

func TestLoopEntryAndStopLossExit(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	ex := &scriptedExchange{
		balance: 10000,
		windows: [][]market.Bar{
			window(t0, 99, 100),
			window(t0, 100, 94),
		},
	}
	strat := &scriptedStrategy{
		stopOffset: 5.05,
		buys:       []bool{true, false},
		sells:      []bool{false, false},
	}
	notes := &captureNotifier{}

	l := newTestLoop(ex, strat, notes, 2)
	require.NoError(t, l.Run(context.Background()))

	// One buy to open, one sell when the stop at 95 is breached.
	require.Len(t, ex.orders, 2)
	assert.Equal(t, exchange.Buy, ex.orders[0].Side)
	assert.Equal(t, exchange.Sell, ex.orders[1].Side)

	trades := l.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, "long", trades[0].Side)
	assert.InDelta(t, 100.05, trades[0].EntryPrice, 1e-9)
	assert.InDelta(t, 95*(1-0.0005), trades[0].ExitPrice, 1e-9)
	assert.Equal(t, journal.ReasonStopLoss, trades[0].ExitReason)
	assert.Less(t, trades[0].PnL, 0.0)

	titles := notes.titles()
	require.GreaterOrEqual(t, len(titles), 4)
	assert.Contains(t, titles[0], "startup")
	assert.Contains(t, titles[len(titles)-1], "shutdown")
}

func TestLoopFetchFailureSkipsIteration(t *testing.T) {
	t.Parallel()

	ex := &scriptedExchange{
		balance:   10000,
		failFirst: 100, // every fetch fails
		windows:   [][]market.Bar{nil},
	}
	notes := &captureNotifier{}

	l := newTestLoop(ex, &scriptedStrategy{stopOffset: 5}, notes, 1)
	require.NoError(t, l.Run(context.Background()))

	assert.Empty(t, ex.orders)
	assert.Empty(t, l.Trades())

	var sawError bool
	for _, n := range notes.notes {
		if n.priority == notify.Critical {
			sawError = true
		}
	}
	assert.True(t, sawError, "fetch failure should raise an error notification")
}

func TestLoopFetchRetrySucceeds(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	ex := &scriptedExchange{
		balance:   10000,
		failFirst: 2, // first two attempts fail, third succeeds
		windows:   [][]market.Bar{window(t0, 99, 100)},
	}
	strat := &scriptedStrategy{
		stopOffset: 5,
		buys:       []bool{true},
		sells:      []bool{false},
	}

	l := newTestLoop(ex, strat, &captureNotifier{}, 1)
	require.NoError(t, l.Run(context.Background()))

	// The retried fetch delivered data and the entry went through.
	require.Len(t, ex.orders, 1)
	assert.Equal(t, exchange.Buy, ex.orders[0].Side)
}

func TestLoopEntryOrderFailureStaysFlat(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	ex := &scriptedExchange{
		balance:  10000,
		orderErr: errors.New("insufficient margin"),
		windows:  [][]market.Bar{window(t0, 99, 100)},
	}
	strat := &scriptedStrategy{
		stopOffset: 5,
		buys:       []bool{true},
		sells:      []bool{false},
	}
	notes := &captureNotifier{}

	l := newTestLoop(ex, strat, notes, 1)
	require.NoError(t, l.Run(context.Background()))

	assert.Empty(t, ex.orders)
	assert.Empty(t, l.Trades())
	assert.False(t, l.position.Open())
}

func TestLoopSignalExit(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	ex := &scriptedExchange{
		balance: 10000,
		windows: [][]market.Bar{
			window(t0, 99, 100),
			window(t0, 100, 101),
		},
	}
	strat := &scriptedStrategy{
		stopOffset: 50,
		buys:       []bool{true, false},
		sells:      []bool{false, true},
	}

	l := newTestLoop(ex, strat, &captureNotifier{}, 2)
	require.NoError(t, l.Run(context.Background()))

	trades := l.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, journal.ReasonSignal, trades[0].ExitReason)
	assert.InDelta(t, 101*(1-0.0005), trades[0].ExitPrice, 1e-9)
}

func TestLoopDashboardRenders(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	ex := &scriptedExchange{
		balance: 10000,
		windows: [][]market.Bar{window(t0, 99, 100)},
	}
	strat := &scriptedStrategy{
		stopOffset: 5,
		buys:       []bool{true},
		sells:      []bool{false},
	}

	var buf strings.Builder
	l := newTestLoop(ex, strat, &captureNotifier{}, 1)
	l.Dashboard = &buf
	require.NoError(t, l.Run(context.Background()))

	out := buf.String()
	assert.Contains(t, out, "Trading Dashboard - BTC/USDT")
	assert.Contains(t, out, "Position: long")
	assert.Contains(t, out, "Recent Signals:")
	assert.Contains(t, out, "BUY")
}
