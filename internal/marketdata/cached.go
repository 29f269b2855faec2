package marketdata

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"roostoo-trading-bot/internal/cache"
	"roostoo-trading-bot/internal/market"
)

// JSONCache is the subset of the cache service used for candles
type JSONCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// CachedProvider serves repeated candle requests from a cache for ttl
type CachedProvider struct {
	next   CandleProvider
	cache  JSONCache
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedProvider wraps next with a cache
func NewCachedProvider(next CandleProvider, c JSONCache, ttl time.Duration, logger zerolog.Logger) *CachedProvider {
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	return &CachedProvider{
		next:   next,
		cache:  c,
		ttl:    ttl,
		logger: logger.With().Str("component", "candle_cache").Logger(),
	}
}

// Name reports the wrapped provider
func (p *CachedProvider) Name() string { return "cached:" + p.next.Name() }

// FetchCandles returns cached candles when fresh, otherwise fetches and stores them
func (p *CachedProvider) FetchCandles(ctx context.Context, instrument, timeframe string, limit int) ([]market.Candle, error) {
	key := cache.CandlesKey(instrument, timeframe, limit)

	var cached []market.Candle
	if err := p.cache.GetJSON(ctx, key, &cached); err == nil && len(cached) > 0 {
		return cached, nil
	}

	candles, err := p.next.FetchCandles(ctx, instrument, timeframe, limit)
	if err != nil {
		return nil, err
	}

	if err := p.cache.SetJSON(ctx, key, candles, p.ttl); err != nil {
		p.logger.Debug().Err(err).Str("key", key).Msg("Failed to cache candles")
	}
	return candles, nil
}
