package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"roostoo-trading-bot/internal/market"
	"roostoo-trading-bot/internal/roostoo"
)

// PriceSource supplies last traded prices
type PriceSource interface {
	GetTicker(ctx context.Context, pair string) (*roostoo.Ticker, error)
}

// Feed merges provider candles into the rolling store and quotes prices from
// the exchange ticker
type Feed struct {
	candles CandleProvider
	prices  PriceSource
	store   *market.CandleStore
	logger  zerolog.Logger
	now     func() time.Time
}

// NewFeed creates a market data feed
func NewFeed(candles CandleProvider, prices PriceSource, store *market.CandleStore, logger zerolog.Logger) *Feed {
	return &Feed{
		candles: candles,
		prices:  prices,
		store:   store,
		logger:  logger.With().Str("component", "feed").Logger(),
		now:     time.Now,
	}
}

// Store returns the backing candle store
func (f *Feed) Store() *market.CandleStore {
	return f.store
}

// FetchCandles refreshes the stored window and returns its trailing limit candles
func (f *Feed) FetchCandles(ctx context.Context, instrument, timeframe string, limit int) ([]market.Candle, error) {
	fresh, err := f.candles.FetchCandles(ctx, instrument, timeframe, limit)
	if err != nil {
		return nil, err
	}

	closed := closedCandles(fresh, timeframe, f.now())
	added := f.store.Merge(instrument, timeframe, closed)
	f.logger.Debug().
		Str("instrument", instrument).
		Str("timeframe", timeframe).
		Int("fetched", len(fresh)).
		Int("forming", len(fresh)-len(closed)).
		Int("added", added).
		Msg("Candles merged")

	return lastN(f.store.Window(instrument, timeframe), limit), nil
}

// closedCandles drops trailing bars still forming at now. Stored bars are
// immutable, so a forming bar would stay at its first-seen OHLC.
func closedCandles(candles []market.Candle, timeframe string, now time.Time) []market.Candle {
	d, err := TimeframeDuration(timeframe)
	if err != nil {
		return candles
	}
	end := len(candles)
	for end > 0 && time.Unix(candles[end-1].Timestamp, 0).Add(d).After(now) {
		end--
	}
	return candles[:end]
}

// FetchPrice returns the last traded price
func (f *Feed) FetchPrice(ctx context.Context, instrument string) (float64, error) {
	ticker, err := f.prices.GetTicker(ctx, instrument)
	if err != nil {
		return 0, err
	}
	if ticker.LastPrice <= 0 {
		return 0, fmt.Errorf("%w: no last price for %s", ErrUnavailable, instrument)
	}
	return ticker.LastPrice, nil
}

// PriceMarker accepts externally marked prices, such as the paper exchange
type PriceMarker interface {
	SetPrice(pair string, price float64)
}

// CloseQuotes quotes the latest stored close of one timeframe and marks it on
// the paper exchange. It stands in for the exchange ticker when dry running
// without exchange credentials.
type CloseQuotes struct {
	store     *market.CandleStore
	timeframe string
	marker    PriceMarker
}

// NewCloseQuotes creates a PriceSource backed by the candle store. marker may be nil.
func NewCloseQuotes(store *market.CandleStore, timeframe string, marker PriceMarker) *CloseQuotes {
	return &CloseQuotes{store: store, timeframe: timeframe, marker: marker}
}

// GetTicker returns the latest close as bid, ask and last price
func (q *CloseQuotes) GetTicker(ctx context.Context, pair string) (*roostoo.Ticker, error) {
	window := q.store.Window(pair, q.timeframe)
	if len(window) == 0 {
		return nil, fmt.Errorf("%w: no %s candles for %s", ErrUnavailable, q.timeframe, pair)
	}
	price := window[len(window)-1].Close
	if q.marker != nil {
		q.marker.SetPrice(pair, price)
	}
	return &roostoo.Ticker{MaxBid: price, MinAsk: price, LastPrice: price}, nil
}
