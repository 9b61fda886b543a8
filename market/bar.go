package market

import (
	"fmt"
	"time"
)

// Bar represents one OHLCV sample for a fixed time interval.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// ValidateSeries checks that bars form a non-empty, strictly
// timestamp-increasing sequence. Duplicates and out-of-order timestamps are
// not supported anywhere downstream.
func ValidateSeries(bars []Bar) error {
	if len(bars) == 0 {
		return fmt.Errorf("empty bar series")
	}
	for i := 1; i < len(bars); i++ {
		if !bars[i].Time.After(bars[i-1].Time) {
			return fmt.Errorf("bar series not strictly increasing at index %d (%s -> %s)",
				i, bars[i-1].Time.Format(time.RFC3339), bars[i].Time.Format(time.RFC3339))
		}
	}
	return nil
}
