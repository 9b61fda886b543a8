// Package risk holds the per-run risk parameters and position sizing.
package risk

import (
	"log/slog"
	"math"
)

// Parameters are immutable for the duration of a run.
type Parameters struct {
	RiskPerTrade           float64 `yaml:"risk_per_trade"`           // fraction of balance risked per trade
	MaxPositionSize        float64 `yaml:"max_position_size"`        // fraction of balance
	RiskRewardRatio        float64 `yaml:"risk_reward_ratio"`        // take-profit multiple of risk
	TrailingStopEnabled    bool    `yaml:"trailing_stop"`            //
	TrailingStopActivation float64 `yaml:"trailing_stop_activation"` // fractional favorable move before trailing
	TrailingStopDistance   float64 `yaml:"trailing_stop_distance"`   // fractional retracement allowed
	FeeRate                float64 `yaml:"fee_rate"`                 //
	Slippage               float64 `yaml:"slippage"`                 //
}

// Defaults returns the parameter set used when the config leaves the
// risk section empty.
func Defaults() Parameters {
	return Parameters{
		RiskPerTrade:           0.01,
		MaxPositionSize:        0.5,
		RiskRewardRatio:        2.0,
		TrailingStopEnabled:    false,
		TrailingStopActivation: 0.01,
		TrailingStopDistance:   0.005,
		FeeRate:                0.001,
		Slippage:               0.0005,
	}
}

// Size converts risk parameters plus entry/stop prices into a position size
// in quote currency.
//
// riskAmount = balance * RiskPerTrade, riskPerUnit = |entry-stop| / entry,
// size = riskAmount / riskPerUnit, clamped to balance * MaxPositionSize.
// Degenerate inputs (non-positive prices, zero risk per unit) return 0,
// never an error or panic.
func Size(balance float64, p Parameters, entryPrice, stopLoss float64) float64 {
	if entryPrice <= 0 || stopLoss <= 0 || balance <= 0 {
		slog.Warn("position size degenerate input",
			"balance", balance, "entry", entryPrice, "stop", stopLoss)
		return 0
	}

	riskAmount := balance * p.RiskPerTrade
	riskPerUnit := math.Abs(entryPrice-stopLoss) / entryPrice
	if riskPerUnit == 0 {
		slog.Warn("position size risk per unit is zero", "entry", entryPrice)
		return 0
	}

	size := riskAmount / riskPerUnit
	return math.Min(size, balance*p.MaxPositionSize)
}
