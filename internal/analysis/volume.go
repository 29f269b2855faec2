package analysis

import "roostoo-trading-bot/internal/market"

// AverageVolume calculates the mean base volume over the last period candles
func AverageVolume(candles []market.Candle, period int) float64 {
	if len(candles) == 0 {
		return 0
	}
	if period <= 0 || len(candles) < period {
		period = len(candles)
	}

	sum := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		sum += candles[i].Volume
	}
	return sum / float64(period)
}

// QuoteVolume sums the traded value (volume × close) across the candles
func QuoteVolume(candles []market.Candle) float64 {
	total := 0.0
	for _, c := range candles {
		total += c.QuoteVolume()
	}
	return total
}
