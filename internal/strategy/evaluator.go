package strategy

import (
	"fmt"

	"roostoo-trading-bot/internal/analysis"
	"roostoo-trading-bot/internal/market"
)

const (
	baseConfidence    = 70.0
	rrBonus           = 10.0
	trendBonus        = 10.0
	maxConfidence     = 100.0
	targetFallbackPct = 0.05
)

// SetupEvaluator combines gap, character change and trend facts into a Setup
type SetupEvaluator struct {
	detector Detector
	cfg      Config
}

var _ Evaluator = (*SetupEvaluator)(nil)

// NewSetupEvaluator creates an evaluator over the given detector
func NewSetupEvaluator(detector Detector, cfg Config) *SetupEvaluator {
	if cfg.ATRStopMultiplier <= 0 {
		cfg.ATRStopMultiplier = DefaultConfig().ATRStopMultiplier
	}
	return &SetupEvaluator{
		detector: detector,
		cfg:      cfg,
	}
}

// Evaluate builds a setup in the requested direction. Missing preconditions
// yield an invalid setup with zero confidence and the reasons it failed.
func (e *SetupEvaluator) Evaluate(candles []market.Candle, direction Direction) Setup {
	setup := Setup{Direction: direction, Reasons: []string{}}

	gapType := analysis.BullishFVG
	if direction == Bearish {
		gapType = analysis.BearishFVG
	}

	// 1. Preconditions
	gap, hasGap := analysis.LatestFVG(e.detector.Gaps(candles), gapType)
	bullChange, bearChange := e.detector.CharacterChange(candles)
	change := bullChange
	if direction == Bearish {
		change = bearChange
	}
	trend := e.detector.Trend(candles)

	if !hasGap {
		setup.Reasons = append(setup.Reasons, fmt.Sprintf("no %s gap", direction))
	}
	if change == nil {
		setup.Reasons = append(setup.Reasons, fmt.Sprintf("no %s character change", direction))
	}
	if !trendAllows(direction, trend.Trend) {
		setup.Reasons = append(setup.Reasons, fmt.Sprintf("trend %s opposes %s setup", trend.Trend, direction))
	}
	if len(setup.Reasons) > 0 {
		return setup
	}

	setup.Reasons = append(setup.Reasons,
		fmt.Sprintf("%s gap %.6g-%.6g", direction, gap.Low, gap.High),
		fmt.Sprintf("%s at %.6g", change.Kind, change.Level),
		fmt.Sprintf("trend %s", trend.Trend),
	)

	// 2. Levels
	atr := e.detector.ATR(candles)
	var risk, reward float64
	setup.EntryPrice = gap.Midpoint

	switch direction {
	case Bearish:
		setup.StopLoss = gap.High + e.cfg.ATRStopMultiplier*atr
		target, ok := e.detector.Fibonacci(gap.High, gap.Low, analysis.FibExtension)[analysis.Fib1618]
		if !ok || target >= setup.EntryPrice {
			target = gap.Low * (1 - targetFallbackPct)
		}
		setup.Target = target
		risk = setup.StopLoss - setup.EntryPrice
		reward = setup.EntryPrice - setup.Target
	default:
		setup.StopLoss = gap.Low - e.cfg.ATRStopMultiplier*atr
		// Swapped swing projects the extension above the gap
		target, ok := e.detector.Fibonacci(gap.Low, gap.High, analysis.FibExtension)[analysis.Fib1618]
		if !ok || target <= setup.EntryPrice {
			target = gap.High * (1 + targetFallbackPct)
		}
		setup.Target = target
		risk = setup.EntryPrice - setup.StopLoss
		reward = setup.Target - setup.EntryPrice
	}

	if risk > 0 {
		setup.RiskRewardRatio = reward / risk
	}

	// 3. Confidence
	confidence := baseConfidence
	if setup.RiskRewardRatio >= e.cfg.MinRiskReward {
		confidence += rrBonus
	}
	if trendMatches(direction, trend.Trend) {
		confidence += trendBonus
	}
	setup.Confidence = min(confidence, maxConfidence)

	setup.Valid = setup.RiskRewardRatio >= e.cfg.MinRiskReward
	if !setup.Valid {
		setup.Reasons = append(setup.Reasons,
			fmt.Sprintf("risk/reward %.2f below minimum %.2f", setup.RiskRewardRatio, e.cfg.MinRiskReward))
	}

	return setup
}

// Score ranks a setup: its confidence plus a risk/reward bonus, capped at 100.
// Invalid setups score 0.
func (e *SetupEvaluator) Score(setup Setup) float64 {
	if !setup.Valid {
		return 0
	}

	score := setup.Confidence
	switch {
	case setup.RiskRewardRatio > 3:
		score += 10
	case setup.RiskRewardRatio > 2:
		score += 5
	}
	return min(score, maxConfidence)
}

func trendAllows(direction Direction, trend analysis.TrendDirection) bool {
	if direction == Bearish {
		return trend == analysis.TrendDown || trend == analysis.TrendRange
	}
	return trend == analysis.TrendUp || trend == analysis.TrendRange
}

func trendMatches(direction Direction, trend analysis.TrendDirection) bool {
	if direction == Bearish {
		return trend == analysis.TrendDown
	}
	return trend == analysis.TrendUp
}
