// Package indicators provides the small set of technical indicators used by
// the built-in strategies. Functions operate on full bar slices.
package indicators

import (
	"fmt"
	"math"

	"tradebot/market"
)

// EMASeries calculates the Exponential Moving Average of closing prices,
// one value per input bar.
//
// The EMA is seeded with the first close and computed recursively with
// multiplier 2/(period+1). Values before index period-1 are not warmed up;
// the second return value is the index of the first usable element.
func EMASeries(bars []market.Bar, period int) ([]float64, int, error) {
	if period <= 0 {
		return nil, 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(bars) == 0 {
		return nil, 0, fmt.Errorf("no bars")
	}

	multiplier := 2.0 / float64(period+1)

	out := make([]float64, len(bars))
	out[0] = bars[0].Close
	for i := 1; i < len(bars); i++ {
		out[i] = (bars[i].Close-out[i-1])*multiplier + out[i-1]
	}

	warm := period - 1
	if warm > len(bars) {
		warm = len(bars)
	}
	return out, warm, nil
}

// ATR calculates the Average True Range as the plain mean of true ranges
// over the last period bars. The first bar of the window has no previous
// close, so its true range is just high minus low.
func ATR(bars []market.Bar, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(bars) == 0 {
		return 0, fmt.Errorf("no bars")
	}

	window := bars
	if len(window) > period {
		window = window[len(window)-period:]
	}

	sum := 0.0
	for i, b := range window {
		tr := b.High - b.Low
		if i > 0 {
			prevClose := window[i-1].Close
			tr = math.Max(tr, math.Max(math.Abs(b.High-prevClose), math.Abs(b.Low-prevClose)))
		}
		sum += tr
	}
	return sum / float64(len(window)), nil
}
