// Package sim contains the position state machine shared by the backtest
// simulator and the live trading loop, plus the offline simulator itself.
package sim

import (
	"time"

	"tradebot/journal"
	"tradebot/risk"
)

// State is the position state. Exactly one position exists per run and it
// is always in exactly one state.
type State int8

const (
	Flat State = iota
	Long
	Short
)

func (s State) String() string {
	switch s {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "flat"
	}
}

// Position is the single mutable position owned by whichever engine is
// driving the run. When not Flat, all price fields and Size are set.
type Position struct {
	State      State
	EntryPrice float64
	EntryTime  time.Time
	StopLoss   float64
	TakeProfit float64
	Size       float64
}

// Open returns true when a position is held.
func (p *Position) Open() bool { return p.State != Flat }

// Direction is +1 for long, -1 for short, 0 for flat.
func (p *Position) Direction() float64 {
	switch p.State {
	case Long:
		return 1
	case Short:
		return -1
	default:
		return 0
	}
}

// Reset returns the position to Flat and clears all entry fields.
func (p *Position) Reset() {
	*p = Position{}
}

// ExitEvent describes a stop or target being hit.
type ExitEvent struct {
	Price  float64 // execution price, slippage already applied
	Reason string
}

// EvaluateExits checks the protective stop and the target against the
// current price. The stop is checked first; both cannot trigger on a single
// threshold crossing, but the order is fixed regardless.
//
// The execution price is derived from the stop/target level itself, not from
// the observed price, so slippage models the fill around the triggering
// threshold.
func EvaluateExits(p *Position, price, slippage float64) (ExitEvent, bool) {
	switch p.State {
	case Long:
		if price <= p.StopLoss {
			return ExitEvent{Price: p.StopLoss * (1 - slippage), Reason: journal.ReasonStopLoss}, true
		}
		if price >= p.TakeProfit {
			return ExitEvent{Price: p.TakeProfit * (1 - slippage), Reason: journal.ReasonTakeProfit}, true
		}
	case Short:
		if price >= p.StopLoss {
			return ExitEvent{Price: p.StopLoss * (1 + slippage), Reason: journal.ReasonStopLoss}, true
		}
		if price <= p.TakeProfit {
			return ExitEvent{Price: p.TakeProfit * (1 + slippage), Reason: journal.ReasonTakeProfit}, true
		}
	}
	return ExitEvent{}, false
}

// Action is what a signal asks the host to do.
type Action int8

const (
	None Action = iota
	OpenLong
	OpenShort
	Close
)

// Transition is the outcome of evaluating the latest signals against the
// current state. Price has slippage applied already.
type Transition struct {
	Action Action
	Price  float64
	Reason string
}

// EvaluateSignal maps (state, buy, sell) to a transition.
//
// A flat position with both flags raised is ambiguous and produces no
// transition. While in a position only the opposing flag matters.
func EvaluateSignal(state State, price float64, buy, sell bool, slippage float64) Transition {
	switch state {
	case Flat:
		if buy && sell {
			return Transition{Action: None}
		}
		if buy {
			return Transition{Action: OpenLong, Price: price * (1 + slippage)}
		}
		if sell {
			return Transition{Action: OpenShort, Price: price * (1 - slippage)}
		}
	case Long:
		if sell {
			return Transition{Action: Close, Price: price * (1 - slippage), Reason: journal.ReasonSignal}
		}
	case Short:
		if buy {
			return Transition{Action: Close, Price: price * (1 + slippage), Reason: journal.ReasonSignal}
		}
	}
	return Transition{Action: None}
}

// UpdateTrailingStop tightens the stop once price has moved favorably past
// the activation threshold. The stop only ever tightens: a long stop is
// raised, a short stop is lowered, never the reverse. Returns true when the
// stop moved.
func UpdateTrailingStop(p *Position, price float64, params risk.Parameters) bool {
	if !params.TrailingStopEnabled {
		return false
	}

	switch p.State {
	case Long:
		if price > p.EntryPrice*(1+params.TrailingStopActivation) {
			candidate := price * (1 - params.TrailingStopDistance)
			if candidate > p.StopLoss {
				p.StopLoss = candidate
				return true
			}
		}
	case Short:
		if price < p.EntryPrice*(1-params.TrailingStopActivation) {
			candidate := price * (1 + params.TrailingStopDistance)
			if candidate < p.StopLoss {
				p.StopLoss = candidate
				return true
			}
		}
	}
	return false
}

// UnrealizedPnL marks the open position to the given price, scaled as a
// fraction of the reference balance the same way realized P&L is.
func UnrealizedPnL(p *Position, price, balance float64) float64 {
	if !p.Open() || p.EntryPrice == 0 {
		return 0
	}
	return p.Direction() * (price - p.EntryPrice) / p.EntryPrice * balance
}
