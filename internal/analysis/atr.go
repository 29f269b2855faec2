package analysis

import "roostoo-trading-bot/internal/market"

// DefaultATRPeriod is the number of bars averaged for ATR
const DefaultATRPeriod = 14

// ATR returns the simple average true range over the last period bars, or 0
// when fewer than period candles are available.
func ATR(candles []market.Candle, period int) float64 {
	if period <= 0 {
		period = DefaultATRPeriod
	}
	if len(candles) < period {
		return 0
	}

	sum := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		sum += trueRange(candles, i)
	}
	return sum / float64(period)
}

func trueRange(candles []market.Candle, i int) float64 {
	c := candles[i]
	tr := c.High - c.Low
	if i == 0 {
		return tr
	}
	prevClose := candles[i-1].Close
	return max(tr, abs(c.High-prevClose), abs(c.Low-prevClose))
}
