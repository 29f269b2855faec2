package scanner

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"roostoo-trading-bot/internal/analysis"
	"roostoo-trading-bot/internal/strategy"
)

// confirmationPenalty is subtracted when the higher timeframe trend opposes the setup
const confirmationPenalty = 10.0

// Scanner ranks the instrument universe by setup score
type Scanner struct {
	data       MarketData
	detector   strategy.Detector
	evaluator  strategy.Evaluator
	config     Config
	logger     zerolog.Logger
	mu         sync.RWMutex
	lastResult *ScanResult
}

// NewScanner creates a new scanner instance. detector is only used for the
// optional confirmation timeframe and may be nil.
func NewScanner(
	data MarketData,
	detector strategy.Detector,
	evaluator strategy.Evaluator,
	config Config,
	logger zerolog.Logger,
) *Scanner {
	if config.MinCandles <= 0 {
		config.MinCandles = DefaultMinCandles
	}
	if config.CandleLimit < config.MinCandles {
		config.CandleLimit = 100
	}
	return &Scanner{
		data:      data,
		detector:  detector,
		evaluator: evaluator,
		config:    config,
		logger:    logger.With().Str("component", "scanner").Logger(),
	}
}

// Scan evaluates every eligible instrument in order and returns the retained
// opportunities ranked by best score. Fetch failures and short windows are
// recorded as skips.
func (sc *Scanner) Scan(ctx context.Context, universe []string, eligible func(instrument string) bool) *ScanResult {
	startTime := time.Now()
	result := &ScanResult{
		ScanID:    uuid.New().String(),
		StartTime: startTime,
		Results:   []Opportunity{},
	}

	sc.logger.Debug().Str("scan_id", result.ScanID).Int("universe", len(universe)).Msg("Starting scan")

	for _, instrument := range universe {
		if eligible != nil && !eligible(instrument) {
			continue
		}
		result.InstrumentsScanned++

		opp, reason := sc.scanInstrument(ctx, instrument)
		if opp == nil {
			result.Skipped = append(result.Skipped, Skip{Instrument: instrument, Reason: reason})
			continue
		}

		if opp.BestScore > sc.config.MinConfidence {
			result.Results = append(result.Results, *opp)
		}
	}

	// Stable so equal scores keep universe order
	sort.SliceStable(result.Results, func(i, j int) bool {
		return result.Results[i].BestScore > result.Results[j].BestScore
	})

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	sc.mu.Lock()
	sc.lastResult = result
	sc.mu.Unlock()

	sc.logger.Info().
		Str("scan_id", result.ScanID).
		Int("scanned", result.InstrumentsScanned).
		Int("opportunities", len(result.Results)).
		Int("skipped", len(result.Skipped)).
		Dur("duration", result.Duration).
		Msg("Scan completed")

	return result
}

// scanInstrument evaluates a single instrument. A nil opportunity comes with the skip reason.
func (sc *Scanner) scanInstrument(ctx context.Context, instrument string) (*Opportunity, string) {
	candles, err := sc.data.FetchCandles(ctx, instrument, sc.config.Timeframe, sc.config.CandleLimit)
	if err != nil {
		sc.logger.Warn().Err(err).Str("instrument", instrument).Msg("Candle fetch failed, skipping")
		return nil, fmt.Sprintf("candles unavailable: %v", err)
	}
	if len(candles) < sc.config.MinCandles {
		return nil, fmt.Sprintf("insufficient data: %d candles", len(candles))
	}

	price, err := sc.data.FetchPrice(ctx, instrument)
	if err != nil {
		sc.logger.Warn().Err(err).Str("instrument", instrument).Msg("Price fetch failed, skipping")
		return nil, fmt.Sprintf("price unavailable: %v", err)
	}

	if sc.config.MinPrice > 0 && price < sc.config.MinPrice {
		return nil, fmt.Sprintf("price %.8g below minimum", price)
	}
	// Providers without volume report zero, which leaves the filter open
	if sc.config.MinVolume > 0 {
		if vol := analysis.QuoteVolume(candles); vol > 0 && vol < sc.config.MinVolume {
			return nil, fmt.Sprintf("volume %.0f below minimum", vol)
		}
	}

	opp := &Opportunity{
		Instrument:   instrument,
		CurrentPrice: price,
		Candles:      len(candles),
		Timestamp:    time.Now(),
	}

	opp.BullishSetup = sc.evaluator.Evaluate(candles, strategy.Bullish)
	opp.BearishSetup = sc.evaluator.Evaluate(candles, strategy.Bearish)
	opp.BullishScore = sc.evaluator.Score(opp.BullishSetup)
	opp.BearishScore = sc.evaluator.Score(opp.BearishSetup)

	opp.Direction = strategy.Bullish
	opp.BestScore = opp.BullishScore
	if opp.BearishScore > opp.BullishScore {
		opp.Direction = strategy.Bearish
		opp.BestScore = opp.BearishScore
	}

	if opp.BestScore > 0 {
		sc.applyConfirmation(ctx, opp)
	}

	return opp, ""
}

// applyConfirmation penalises setups whose higher timeframe trend points the other way
func (sc *Scanner) applyConfirmation(ctx context.Context, opp *Opportunity) {
	if sc.detector == nil || sc.config.ConfirmationTimeframe == "" {
		return
	}

	candles, err := sc.data.FetchCandles(ctx, opp.Instrument, sc.config.ConfirmationTimeframe, sc.config.CandleLimit)
	if err != nil {
		return
	}

	trend := sc.detector.Trend(candles).Trend
	opposed := (opp.Direction == strategy.Bullish && trend == analysis.TrendDown) ||
		(opp.Direction == strategy.Bearish && trend == analysis.TrendUp)
	if opposed {
		opp.BestScore = max(0, opp.BestScore-confirmationPenalty)
		opp.Notes = append(opp.Notes, fmt.Sprintf("%s trend on %s", trend, sc.config.ConfirmationTimeframe))
	}
}

// Select returns the top-ranked opportunity, or nil when there is none
func Select(result *ScanResult) *Opportunity {
	if result == nil || len(result.Results) == 0 {
		return nil
	}
	top := result.Results[0]
	return &top
}

// GetLastResult returns the most recent scan result
func (sc *Scanner) GetLastResult() *ScanResult {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.lastResult
}
