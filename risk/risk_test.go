package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSize(t *testing.T) {
	t.Parallel()

	params := Parameters{
		RiskPerTrade:    0.01,
		MaxPositionSize: 0.5,
	}

	tests := []struct {
		name    string
		balance float64
		entry   float64
		stop    float64
		want    float64
	}{
		// risk 100, riskPerUnit (100-95)/100 = 0.05 -> 2000
		{"long stop below entry", 10000, 100, 95, 2000},
		// symmetric short
		{"short stop above entry", 10000, 100, 105, 2000},
		// tiny stop distance blows up raw size, clamp to 50% of balance
		{"clamped to max position", 10000, 100, 99.99, 5000},
		{"zero risk per unit", 10000, 100, 100, 0},
		{"non-positive entry", 10000, 0, 95, 0},
		{"non-positive stop", 10000, 100, -1, 0},
		{"zero balance", 0, 100, 95, 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Size(tt.balance, params, tt.entry, tt.stop)
			assert.InDelta(t, tt.want, got, 1e-6)
		})
	}
}

func TestDefaultsAreSane(t *testing.T) {
	t.Parallel()

	p := Defaults()
	assert.Greater(t, p.RiskPerTrade, 0.0)
	assert.LessOrEqual(t, p.RiskPerTrade, 1.0)
	assert.Greater(t, p.MaxPositionSize, 0.0)
	assert.Greater(t, p.RiskRewardRatio, 0.0)
}
