package market

import (
	"fmt"
	"time"
)

// Timeframe identifies the bar interval using exchange-style shorthand.
type Timeframe string

const (
	M1  Timeframe = "1m"
	M5  Timeframe = "5m"
	M15 Timeframe = "15m"
	M30 Timeframe = "30m"
	H1  Timeframe = "1h"
	H4  Timeframe = "4h"
	D1  Timeframe = "1d"
)

var timeframeDurations = map[Timeframe]time.Duration{
	M1:  time.Minute,
	M5:  5 * time.Minute,
	M15: 15 * time.Minute,
	M30: 30 * time.Minute,
	H1:  time.Hour,
	H4:  4 * time.Hour,
	D1:  24 * time.Hour,
}

// ParseTimeframe validates a timeframe string.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if _, ok := timeframeDurations[tf]; !ok {
		return "", fmt.Errorf("unknown timeframe %q (supported: 1m, 5m, 15m, 30m, 1h, 4h, 1d)", s)
	}
	return tf, nil
}

// Duration returns the bar interval length. Unknown timeframes fall back to
// one minute, matching the loop's default cadence.
func (tf Timeframe) Duration() time.Duration {
	if d, ok := timeframeDurations[tf]; ok {
		return d
	}
	return time.Minute
}

// NextBoundary returns the first interval boundary strictly after t, in UTC.
// Boundaries are aligned to the Unix epoch, so 4h boundaries land on
// 00:00/04:00/... and daily boundaries on midnight UTC.
func (tf Timeframe) NextBoundary(t time.Time) time.Time {
	d := tf.Duration()
	return t.UTC().Truncate(d).Add(d)
}
