package analysis

import "roostoo-trading-bot/internal/market"

// CharacterChangeKind labels the structure break
type CharacterChangeKind string

const (
	HigherHigh CharacterChangeKind = "higher_high"
	LowerLow   CharacterChangeKind = "lower_low"
)

// DefaultCHOCHLookback is the high/low-water window length
const DefaultCHOCHLookback = 10

// CharacterChange records a break of recent structure on the latest bar
type CharacterChange struct {
	Level float64             `json:"level"`
	Index int                 `json:"index"`
	Kind  CharacterChangeKind `json:"kind"`
}

// DetectCharacterChange evaluates only the most recent bar. A bullish change
// is flagged when the latest high-water mark exceeds the previous two; bearish
// mirrors with low-water marks. Returns nil for a direction without a break,
// and nil/nil when fewer than lookback+2 candles are available.
func DetectCharacterChange(candles []market.Candle, lookback int) (bullish, bearish *CharacterChange) {
	if lookback <= 0 {
		lookback = DefaultCHOCHLookback
	}
	n := len(candles)
	if n < lookback+2 {
		return nil, nil
	}

	last := n - 1
	hwm := func(end int) float64 { return highWater(candles[end-lookback+1 : end+1]) }
	lwm := func(end int) float64 { return lowWater(candles[end-lookback+1 : end+1]) }

	if current := hwm(last); current > max(hwm(last-1), hwm(last-2)) {
		bullish = &CharacterChange{Level: current, Index: last, Kind: HigherHigh}
	}
	if current := lwm(last); current < min(lwm(last-1), lwm(last-2)) {
		bearish = &CharacterChange{Level: current, Index: last, Kind: LowerLow}
	}

	return bullish, bearish
}

func highWater(candles []market.Candle) float64 {
	h := candles[0].High
	for _, c := range candles[1:] {
		h = max(h, c.High)
	}
	return h
}

func lowWater(candles []market.Candle) float64 {
	l := candles[0].Low
	for _, c := range candles[1:] {
		l = min(l, c.Low)
	}
	return l
}
