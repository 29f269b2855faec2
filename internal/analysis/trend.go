package analysis

import (
	"sort"

	"roostoo-trading-bot/internal/market"
)

// TrendDirection represents the short-term market trend
type TrendDirection string

const (
	TrendUp      TrendDirection = "uptrend"
	TrendDown    TrendDirection = "downtrend"
	TrendRange   TrendDirection = "range"
	TrendUnknown TrendDirection = "unknown"
)

// DefaultTrendLookback is the number of candles analysed for structure
const DefaultTrendLookback = 20

// maxLevels caps how many support/resistance levels are reported
const maxLevels = 3

// TrendSnapshot is the trend and support/resistance view of a candle window
type TrendSnapshot struct {
	Trend            TrendDirection `json:"trend"`
	SupportLevels    []float64      `json:"support_levels"`
	ResistanceLevels []float64      `json:"resistance_levels"`
	CurrentHigh      float64        `json:"current_high"`
	CurrentLow       float64        `json:"current_low"`
}

// SwingPoint represents a pivot high or low
type SwingPoint struct {
	Price       float64
	CandleIndex int
	Type        string // "high" or "low"
}

// TrendAnalyzer extracts trend and pivot levels from candles
type TrendAnalyzer struct {
	lookback int
}

// NewTrendAnalyzer creates a new trend analyzer
func NewTrendAnalyzer(lookback int) *TrendAnalyzer {
	if lookback <= 0 {
		lookback = DefaultTrendLookback
	}
	return &TrendAnalyzer{
		lookback: lookback,
	}
}

// Analyze returns the trend snapshot for the most recent lookback candles.
// With fewer candles than the lookback the trend is unknown and no levels are reported.
func (ta *TrendAnalyzer) Analyze(candles []market.Candle) TrendSnapshot {
	snapshot := TrendSnapshot{
		Trend:            TrendUnknown,
		SupportLevels:    []float64{},
		ResistanceLevels: []float64{},
	}
	if len(candles) < ta.lookback || len(candles) < 2 {
		return snapshot
	}

	window := candles[len(candles)-ta.lookback:]

	// 1. Pivot levels
	snapshot.SupportLevels = topLevels(ta.FindSwingLows(window))
	snapshot.ResistanceLevels = topLevels(ta.FindSwingHighs(window))

	// 2. Trend from the last two bars
	snapshot.Trend = DetermineTrend(window)

	last := window[len(window)-1]
	snapshot.CurrentHigh = last.High
	snapshot.CurrentLow = last.Low

	return snapshot
}

// FindSwingHighs returns interior bars whose high is strictly above both neighbours
func (ta *TrendAnalyzer) FindSwingHighs(candles []market.Candle) []SwingPoint {
	var swingHighs []SwingPoint

	for i := 1; i < len(candles)-1; i++ {
		if candles[i].High > candles[i-1].High && candles[i].High > candles[i+1].High {
			swingHighs = append(swingHighs, SwingPoint{
				Price:       candles[i].High,
				CandleIndex: i,
				Type:        "high",
			})
		}
	}

	return swingHighs
}

// FindSwingLows returns interior bars whose low is strictly below both neighbours
func (ta *TrendAnalyzer) FindSwingLows(candles []market.Candle) []SwingPoint {
	var swingLows []SwingPoint

	for i := 1; i < len(candles)-1; i++ {
		if candles[i].Low < candles[i-1].Low && candles[i].Low < candles[i+1].Low {
			swingLows = append(swingLows, SwingPoint{
				Price:       candles[i].Low,
				CandleIndex: i,
				Type:        "low",
			})
		}
	}

	return swingLows
}

// DetermineTrend classifies the trend by comparing the last two bars
func DetermineTrend(candles []market.Candle) TrendDirection {
	if len(candles) < 2 {
		return TrendUnknown
	}

	prev := candles[len(candles)-2]
	last := candles[len(candles)-1]

	switch {
	case last.High > prev.High && last.Low > prev.Low:
		return TrendUp
	case last.High < prev.High && last.Low < prev.Low:
		return TrendDown
	default:
		return TrendRange
	}
}

// IsPriceAtLevel checks whether price is within tolerance percent of any level
func IsPriceAtLevel(price float64, levels []float64, tolerance float64) bool {
	for _, level := range levels {
		if level > 0 && abs(price-level)/level*100 <= tolerance {
			return true
		}
	}
	return false
}

// topLevels deduplicates pivot prices, sorts them descending and keeps the top few
func topLevels(points []SwingPoint) []float64 {
	seen := make(map[float64]bool)
	levels := make([]float64, 0, len(points))
	for _, p := range points {
		if !seen[p.Price] {
			seen[p.Price] = true
			levels = append(levels, p.Price)
		}
	}

	sort.Sort(sort.Reverse(sort.Float64Slice(levels)))

	if len(levels) > maxLevels {
		levels = levels[:maxLevels]
	}
	return levels
}
