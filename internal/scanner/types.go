package scanner

import (
	"context"
	"time"

	"roostoo-trading-bot/internal/market"
	"roostoo-trading-bot/internal/strategy"
)

// MarketData supplies candles and prices for scanning
type MarketData interface {
	FetchCandles(ctx context.Context, instrument, timeframe string, limit int) ([]market.Candle, error)
	FetchPrice(ctx context.Context, instrument string) (float64, error)
}

// Opportunity is a scored instrument ready for selection
type Opportunity struct {
	Instrument   string             `json:"instrument"`
	CurrentPrice float64            `json:"current_price"`
	Direction    strategy.Direction `json:"direction"`
	BullishSetup strategy.Setup     `json:"bullish_setup"`
	BearishSetup strategy.Setup     `json:"bearish_setup"`
	BullishScore float64            `json:"bullish_score"`
	BearishScore float64            `json:"bearish_score"`
	BestScore    float64            `json:"best_score"`
	Candles      int                `json:"candles"`
	Notes        []string           `json:"notes,omitempty"`
	Timestamp    time.Time          `json:"timestamp"`
}

// Setup returns the setup for the opportunity's chosen direction
func (o *Opportunity) Setup() strategy.Setup {
	if o.Direction == strategy.Bearish {
		return o.BearishSetup
	}
	return o.BullishSetup
}

// Skip records why an instrument was not evaluated
type Skip struct {
	Instrument string `json:"instrument"`
	Reason     string `json:"reason"`
}

// ScanResult aggregates all opportunities from a scan
type ScanResult struct {
	ScanID             string        `json:"scan_id"`
	StartTime          time.Time     `json:"start_time"`
	EndTime            time.Time     `json:"end_time"`
	Duration           time.Duration `json:"duration"`
	InstrumentsScanned int           `json:"instruments_scanned"`
	Results            []Opportunity `json:"results"`
	Skipped            []Skip        `json:"skipped,omitempty"`
}

// Config holds scanner configuration
type Config struct {
	Timeframe             string
	ConfirmationTimeframe string
	CandleLimit           int
	MinCandles            int
	MinConfidence         float64
	MinPrice              float64
	MinVolume             float64
}

// DefaultMinCandles is the smallest window worth evaluating
const DefaultMinCandles = 30
