package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPositionSize(t *testing.T) {
	tests := []struct {
		name        string
		balance     float64
		risk        float64
		entry       float64
		stop        float64
		maxFraction float64
		expected    float64
	}{
		{"risk bound", 10000, 0.02, 100, 95, 0.5, 40},
		{"cap bound", 10000, 0.02, 100, 95, 0.2, 20},
		{"bearish stop above entry", 10000, 0.02, 100, 105, 0.5, 40},
		{"zero stop distance", 10000, 0.02, 100, 100, 0.5, 0},
		{"zero balance", 0, 0.02, 100, 95, 0.5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, PositionSize(tt.balance, tt.risk, tt.entry, tt.stop, tt.maxFraction), 1e-9)
		})
	}
}

func TestPositionSize_NeverExceedsCap(t *testing.T) {
	for _, balance := range []float64{100, 5000, 50000, 1e6} {
		for _, entry := range []float64{0.01, 1, 250, 60000} {
			for _, stopPct := range []float64{0.0001, 0.01, 0.1, 0.5} {
				for _, fraction := range []float64{0.1, 0.5, 1} {
					stop := entry * (1 - stopPct)
					size := PositionSize(balance, 0.02, entry, stop, fraction)
					assert.LessOrEqual(t, size, balance/entry*fraction+1e-9)
					assert.GreaterOrEqual(t, size, 0.0)
				}
			}
		}
	}
}

func TestDirection(t *testing.T) {
	assert.Equal(t, "BUY", Bullish.Side())
	assert.Equal(t, "SELL", Bullish.ExitSide())
	assert.Equal(t, "SELL", Bearish.Side())
	assert.Equal(t, -1.0, Bearish.Sign())
}
