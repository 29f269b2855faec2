package analysis

import (
	"roostoo-trading-bot/internal/market"
)

// FVGType represents the direction of a Fair Value Gap
type FVGType string

const (
	BullishFVG FVGType = "bullish"
	BearishFVG FVGType = "bearish"
)

// FVG is a three-candle body imbalance. High and Low bound the untouched band.
type FVG struct {
	Type       FVGType `json:"type"`
	StartIndex int     `json:"start_index"`
	High       float64 `json:"gap_high"`
	Low        float64 `json:"gap_low"`
	Midpoint   float64 `json:"midpoint"`
	Timestamp  int64   `json:"timestamp"`
}

// Span returns the height of the gap band
func (g FVG) Span() float64 {
	return g.High - g.Low
}

// Contains reports whether price sits inside the gap band
func (g FVG) Contains(price float64) bool {
	return price >= g.Low && price <= g.High
}

// DetectFVGs scans every 3-candle window left to right and returns all gaps,
// most recent last.
//
// Bullish: three net-positive bodies where the first body's low sits above the
// third body's high. Bearish is the mirror with net-negative bodies.
func DetectFVGs(candles []market.Candle) []FVG {
	if len(candles) < 3 {
		return nil
	}

	var fvgs []FVG

	for i := 0; i < len(candles)-2; i++ {
		c1 := candles[i]
		c2 := candles[i+1]
		c3 := candles[i+2]

		if c1.IsBullish() && c2.IsBullish() && c3.IsBullish() && c1.BodyLow() > c3.BodyHigh() {
			fvgs = append(fvgs, newFVG(BullishFVG, i, c1.BodyLow(), c3.BodyHigh(), c1.Timestamp))
		}

		if c1.IsBearish() && c2.IsBearish() && c3.IsBearish() && c1.BodyHigh() < c3.BodyLow() {
			fvgs = append(fvgs, newFVG(BearishFVG, i, c3.BodyLow(), c1.BodyHigh(), c1.Timestamp))
		}
	}

	return fvgs
}

// LatestFVG returns the most recent gap of the given type
func LatestFVG(fvgs []FVG, fvgType FVGType) (FVG, bool) {
	for i := len(fvgs) - 1; i >= 0; i-- {
		if fvgs[i].Type == fvgType {
			return fvgs[i], true
		}
	}
	return FVG{}, false
}

// FilterFVGs returns only the gaps of the given type, preserving order
func FilterFVGs(fvgs []FVG, fvgType FVGType) []FVG {
	var out []FVG
	for _, g := range fvgs {
		if g.Type == fvgType {
			out = append(out, g)
		}
	}
	return out
}

func newFVG(t FVGType, index int, high, low float64, ts int64) FVG {
	return FVG{
		Type:       t,
		StartIndex: index,
		High:       high,
		Low:        low,
		Midpoint:   (high + low) / 2,
		Timestamp:  ts,
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
