package market

import "math"

// Candle is a single OHLCV bar. Timestamp is in unix seconds.
type Candle struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// BodyHigh returns the upper edge of the candle body
func (c Candle) BodyHigh() float64 {
	return math.Max(c.Open, c.Close)
}

// BodyLow returns the lower edge of the candle body
func (c Candle) BodyLow() float64 {
	return math.Min(c.Open, c.Close)
}

// IsBullish reports a net-positive candle (close above open)
func (c Candle) IsBullish() bool {
	return c.Close > c.Open
}

// IsBearish reports a net-negative candle (close below open)
func (c Candle) IsBearish() bool {
	return c.Close < c.Open
}

// QuoteVolume approximates traded value in the quote currency
func (c Candle) QuoteVolume() float64 {
	return c.Volume * c.Close
}
