package marketdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"roostoo-trading-bot/internal/market"
)

// Chain tries providers in order. The first result holding at least
// minCandles candles wins; otherwise the longest partial result is returned.
type Chain struct {
	providers  []CandleProvider
	minCandles int
	logger     zerolog.Logger
}

// NewChain creates a provider chain
func NewChain(minCandles int, logger zerolog.Logger, providers ...CandleProvider) *Chain {
	return &Chain{
		providers:  providers,
		minCandles: minCandles,
		logger:     logger.With().Str("component", "marketdata").Logger(),
	}
}

// Name identifies the chain in logs
func (c *Chain) Name() string { return "chain" }

// FetchCandles returns candles from the first sufficient provider
func (c *Chain) FetchCandles(ctx context.Context, instrument, timeframe string, limit int) ([]market.Candle, error) {
	var (
		best []market.Candle
		errs []error
	)

	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		candles, err := p.FetchCandles(ctx, instrument, timeframe, limit)
		if err != nil {
			c.logger.Warn().Err(err).Str("provider", p.Name()).Str("instrument", instrument).Msg("Provider failed, trying next")
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		if len(candles) >= c.minCandles {
			return candles, nil
		}

		c.logger.Debug().
			Str("provider", p.Name()).
			Str("instrument", instrument).
			Int("candles", len(candles)).
			Int("required", c.minCandles).
			Msg("Insufficient candles, trying next")
		if len(candles) > len(best) {
			best = candles
		}
	}

	if len(best) > 0 {
		return best, nil
	}
	return nil, fmt.Errorf("%w: %s %s: %v", ErrUnavailable, instrument, timeframe, errors.Join(errs...))
}
