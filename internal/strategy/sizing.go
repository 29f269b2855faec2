package strategy

import "math"

// PositionSize returns the quantity that risks riskPerTrade of balance between
// entry and stop, capped at maxFraction of the balance's buying power.
// Returns 0 when the stop distance is zero or inputs are non-positive.
func PositionSize(balance, riskPerTrade, entry, stop, maxFraction float64) float64 {
	stopDistance := math.Abs(entry - stop)
	if stopDistance == 0 || entry <= 0 || balance <= 0 {
		return 0
	}

	riskAmount := balance * riskPerTrade
	size := riskAmount / stopDistance
	maxSize := balance / entry * maxFraction

	return math.Max(0, math.Min(size, maxSize))
}
