// Package strategy defines the contract between the execution engines and
// the signal-producing strategies, plus a registry of the built-in ones.
package strategy

import (
	"fmt"
	"sort"
	"strings"

	"tradebot/market"
)

// Side labels the direction a strategy currently favors.
type Side string

const (
	Long  Side = "long"
	Short Side = "short"
	Flat  Side = "flat"
)

// SignalRow is a bar annotated with the strategy's buy/sell decisions.
// Rows are consumed one at a time, in sequence order.
type SignalRow struct {
	market.Bar
	Buy  bool
	Sell bool
}

// Strategy is the capability the simulator and the live loop consume.
// Implementations attach buy/sell signals to a bar series and price the
// protective stop and target for new positions.
type Strategy interface {
	Name() string

	// Analyze attaches Buy/Sell signals to the series. Implementations may
	// drop leading rows where indicators are not warmed up yet.
	Analyze(bars []market.Bar) ([]SignalRow, error)

	// StopLoss prices the protective stop for a position entered at
	// entryPrice, given the signal history up to that point.
	StopLoss(history []SignalRow, side Side, entryPrice float64) float64

	// TakeProfit prices the target from the entry/stop distance and the
	// configured risk-reward ratio.
	TakeProfit(entryPrice, stopLoss, riskRewardRatio float64) float64

	// CurrentPosition reports the side the latest signals favor and a
	// confidence in [0, 1].
	CurrentPosition(rows []SignalRow) (Side, float64)
}

// Constructor builds a strategy from its parameter map and timeframe.
type Constructor func(params map[string]float64, tf market.Timeframe) (Strategy, error)

var registry = map[string]Constructor{}

// Register adds a strategy constructor under the given name. Names are
// case-insensitive.
func Register(name string, ctor Constructor) {
	registry[strings.ToLower(name)] = ctor
}

// New builds a registered strategy by name.
func New(name string, params map[string]float64, tf market.Timeframe) (Strategy, error) {
	ctor, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (available: %s)", name, strings.Join(Available(), ", "))
	}
	return ctor(params, tf)
}

// Available lists the registered strategy names, sorted.
func Available() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
