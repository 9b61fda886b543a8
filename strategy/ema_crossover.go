package strategy

import (
	"fmt"
	"log/slog"
	"math"

	"tradebot/indicators"
	"tradebot/market"
)

const (
	defaultFastEMA = 9
	defaultSlowEMA = 21

	// atrPeriod and atrMultiple control the volatility stop: the stop sits
	// atrMultiple ATRs away from the entry.
	atrPeriod   = 14
	atrMultiple = 2.0
)

func init() {
	Register("ema_crossover", func(params map[string]float64, tf market.Timeframe) (Strategy, error) {
		return NewEMACrossover(params, tf)
	})
}

// EMACrossover signals on fast/slow EMA crosses: buy when the fast EMA
// crosses above the slow one, sell when it crosses below.
type EMACrossover struct {
	fastPeriod int
	slowPeriod int
	timeframe  market.Timeframe
}

// NewEMACrossover builds the strategy from its parameter map. Recognized
// keys: fast_ema, slow_ema.
func NewEMACrossover(params map[string]float64, tf market.Timeframe) (*EMACrossover, error) {
	fast := defaultFastEMA
	if v, ok := params["fast_ema"]; ok {
		fast = int(v)
	}
	slow := defaultSlowEMA
	if v, ok := params["slow_ema"]; ok {
		slow = int(v)
	}

	if fast <= 0 || slow <= 0 {
		return nil, fmt.Errorf("ema periods must be positive (fast=%d slow=%d)", fast, slow)
	}
	if fast >= slow {
		slog.Warn("fast EMA period should be less than slow EMA period",
			"fast", fast, "slow", slow)
	}

	return &EMACrossover{
		fastPeriod: fast,
		slowPeriod: slow,
		timeframe:  tf,
	}, nil
}

func (s *EMACrossover) Name() string { return "EMA_Crossover" }

// Analyze computes both EMAs and flags crossovers. Rows before the slow EMA
// has warmed up (and before a previous diff exists to detect a cross) are
// dropped, so the output may be shorter than the input.
func (s *EMACrossover) Analyze(bars []market.Bar) ([]SignalRow, error) {
	if err := market.ValidateSeries(bars); err != nil {
		return nil, err
	}

	fast, _, err := indicators.EMASeries(bars, s.fastPeriod)
	if err != nil {
		return nil, fmt.Errorf("fast ema: %w", err)
	}
	slow, slowWarm, err := indicators.EMASeries(bars, s.slowPeriod)
	if err != nil {
		return nil, fmt.Errorf("slow ema: %w", err)
	}

	// First row needs a previous diff, so start one past the warmup index.
	start := slowWarm + 1
	if start >= len(bars) {
		return nil, nil
	}

	rows := make([]SignalRow, 0, len(bars)-start)
	for i := start; i < len(bars); i++ {
		diff := fast[i] - slow[i]
		prevDiff := fast[i-1] - slow[i-1]

		rows = append(rows, SignalRow{
			Bar:  bars[i],
			Buy:  prevDiff < 0 && diff > 0,
			Sell: prevDiff > 0 && diff < 0,
		})
	}
	return rows, nil
}

// StopLoss places the stop atrMultiple ATRs from the entry, on the losing
// side of the position.
func (s *EMACrossover) StopLoss(history []SignalRow, side Side, entryPrice float64) float64 {
	bars := make([]market.Bar, len(history))
	for i, row := range history {
		bars[i] = row.Bar
	}

	atr, err := indicators.ATR(bars, atrPeriod)
	if err != nil {
		slog.Warn("atr unavailable for stop loss, using entry price", "err", err)
		atr = 0
	}

	if side == Short {
		return entryPrice + atrMultiple*atr
	}
	return entryPrice - atrMultiple*atr
}

// TakeProfit mirrors the stop distance scaled by the risk-reward ratio.
// The side is inferred from where the stop sits relative to the entry.
func (s *EMACrossover) TakeProfit(entryPrice, stopLoss, riskRewardRatio float64) float64 {
	reward := math.Abs(entryPrice-stopLoss) * riskRewardRatio
	if entryPrice > stopLoss {
		return entryPrice + reward
	}
	return entryPrice - reward
}

// CurrentPosition reads the latest row's signals.
func (s *EMACrossover) CurrentPosition(rows []SignalRow) (Side, float64) {
	if len(rows) == 0 {
		return Flat, 0
	}
	latest := rows[len(rows)-1]
	switch {
	case latest.Buy:
		return Long, 1.0
	case latest.Sell:
		return Short, 1.0
	default:
		return Flat, 0
	}
}
