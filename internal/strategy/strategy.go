package strategy

import (
	"roostoo-trading-bot/internal/analysis"
	"roostoo-trading-bot/internal/market"
)

// Direction is the side a setup trades
type Direction string

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
)

// Side returns the exchange order side that opens a position in this direction
func (d Direction) Side() string {
	if d == Bearish {
		return "SELL"
	}
	return "BUY"
}

// ExitSide returns the order side that closes a position in this direction
func (d Direction) ExitSide() string {
	if d == Bearish {
		return "BUY"
	}
	return "SELL"
}

// Sign is +1 for bullish and -1 for bearish PnL
func (d Direction) Sign() float64 {
	if d == Bearish {
		return -1
	}
	return 1
}

// Setup is a directional trade proposal derived from pattern analysis
type Setup struct {
	Valid           bool      `json:"valid"`
	Direction       Direction `json:"direction"`
	EntryPrice      float64   `json:"entry_price"`
	StopLoss        float64   `json:"stop_loss"`
	Target          float64   `json:"target"`
	RiskRewardRatio float64   `json:"risk_reward_ratio"`
	Confidence      float64   `json:"confidence"`
	Reasons         []string  `json:"reasons"`
}

// Detector produces pattern facts from a candle window
type Detector interface {
	Gaps(candles []market.Candle) []analysis.FVG
	CharacterChange(candles []market.Candle) (bullish, bearish *analysis.CharacterChange)
	Trend(candles []market.Candle) analysis.TrendSnapshot
	ATR(candles []market.Candle) float64
	Fibonacci(high, low float64, mode analysis.FibMode) map[string]float64
}

// Evaluator turns candles into a scored directional setup
type Evaluator interface {
	Evaluate(candles []market.Candle, direction Direction) Setup
	Score(setup Setup) float64
}

// Config holds the setup evaluation parameters
type Config struct {
	MinRiskReward     float64
	CHOCHLookback     int
	TrendLookback     int
	ATRPeriod         int
	ATRStopMultiplier float64
}

// DefaultConfig returns the standard evaluation parameters
func DefaultConfig() Config {
	return Config{
		MinRiskReward:     2.0,
		CHOCHLookback:     analysis.DefaultCHOCHLookback,
		TrendLookback:     analysis.DefaultTrendLookback,
		ATRPeriod:         analysis.DefaultATRPeriod,
		ATRStopMultiplier: 0.5,
	}
}

// PatternDetector is the Detector backed by the analysis package
type PatternDetector struct {
	chochLookback int
	atrPeriod     int
	trend         *analysis.TrendAnalyzer
}

var _ Detector = (*PatternDetector)(nil)

// NewPatternDetector creates a detector using the lookbacks in cfg
func NewPatternDetector(cfg Config) *PatternDetector {
	return &PatternDetector{
		chochLookback: cfg.CHOCHLookback,
		atrPeriod:     cfg.ATRPeriod,
		trend:         analysis.NewTrendAnalyzer(cfg.TrendLookback),
	}
}

func (d *PatternDetector) Gaps(candles []market.Candle) []analysis.FVG {
	return analysis.DetectFVGs(candles)
}

func (d *PatternDetector) CharacterChange(candles []market.Candle) (*analysis.CharacterChange, *analysis.CharacterChange) {
	return analysis.DetectCharacterChange(candles, d.chochLookback)
}

func (d *PatternDetector) Trend(candles []market.Candle) analysis.TrendSnapshot {
	return d.trend.Analyze(candles)
}

func (d *PatternDetector) ATR(candles []market.Candle) float64 {
	return analysis.ATR(candles, d.atrPeriod)
}

func (d *PatternDetector) Fibonacci(high, low float64, mode analysis.FibMode) map[string]float64 {
	return analysis.FibonacciLevels(high, low, mode)
}
