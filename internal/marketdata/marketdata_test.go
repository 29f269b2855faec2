package marketdata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roostoo-trading-bot/config"
	"roostoo-trading-bot/internal/cache"
	"roostoo-trading-bot/internal/market"
	"roostoo-trading-bot/internal/roostoo"
	"roostoo-trading-bot/internal/scanner"
)

var _ scanner.MarketData = (*Feed)(nil)

// fakeProvider returns n candles or an error and counts calls
type fakeProvider struct {
	name  string
	n     int
	err   error
	calls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) FetchCandles(ctx context.Context, instrument, timeframe string, limit int) ([]market.Candle, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return series(1, f.n), nil
}

func series(start, n int) []market.Candle {
	out := make([]market.Candle, n)
	for i := range out {
		ts := int64(start+i) * 900
		out[i] = market.Candle{Timestamp: ts, Open: 10, High: 11, Low: 9, Close: 10, Volume: 1}
	}
	return out
}

// ==================== Timeframes ====================

func TestTimeframeDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"15m", 15 * time.Minute, true},
		{"1h", time.Hour, true},
		{"4H", 4 * time.Hour, true},
		{"1d", 24 * time.Hour, true},
		{"0m", 0, false},
		{"m", 0, false},
		{"15x", 0, false},
	}
	for _, tt := range tests {
		got, err := TimeframeDuration(tt.in)
		if tt.ok {
			require.NoError(t, err, tt.in)
			assert.Equal(t, tt.want, got, tt.in)
		} else {
			assert.Error(t, err, tt.in)
		}
	}
}

// ==================== Chain ====================

func TestChain_FirstSufficientWins(t *testing.T) {
	primary := &fakeProvider{name: "horus", n: 40}
	fallback := &fakeProvider{name: "coingecko", n: 100}
	chain := NewChain(30, zerolog.Nop(), primary, fallback)

	candles, err := chain.FetchCandles(context.Background(), "BTC/USD", "15m", 100)
	require.NoError(t, err)
	assert.Len(t, candles, 40)
	assert.Equal(t, 0, fallback.calls)
}

func TestChain_FallsBackOnErrorAndShortResult(t *testing.T) {
	failing := &fakeProvider{name: "horus", err: errors.New("timeout")}
	short := &fakeProvider{name: "short", n: 10}
	full := &fakeProvider{name: "coingecko", n: 35}
	chain := NewChain(30, zerolog.Nop(), failing, short, full)

	candles, err := chain.FetchCandles(context.Background(), "BTC/USD", "15m", 100)
	require.NoError(t, err)
	assert.Len(t, candles, 35)
}

func TestChain_LongestPartial(t *testing.T) {
	chain := NewChain(30, zerolog.Nop(), &fakeProvider{name: "a", n: 5}, &fakeProvider{name: "b", n: 12})

	candles, err := chain.FetchCandles(context.Background(), "BTC/USD", "15m", 100)
	require.NoError(t, err)
	assert.Len(t, candles, 12)
}

func TestChain_AllFail(t *testing.T) {
	chain := NewChain(30, zerolog.Nop(),
		&fakeProvider{name: "a", err: errors.New("down")},
		&fakeProvider{name: "b", err: errors.New("rate limited")})

	_, err := chain.FetchCandles(context.Background(), "BTC/USD", "15m", 100)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "rate limited")
}

// ==================== Horus ====================

func newHorus(t *testing.T, handler http.HandlerFunc, retries int) *HorusProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	h := NewHorusProvider("hk", srv.URL, time.Second, retries, zerolog.Nop())
	h.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return h
}

func TestHorus_ParsesAndSorts(t *testing.T) {
	h := newHorus(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/market/candles", r.URL.Path)
		assert.Equal(t, "BTC", r.URL.Query().Get("asset"))
		assert.Equal(t, "15m", r.URL.Query().Get("interval"))
		assert.Equal(t, "hk", r.Header.Get("X-API-Key"))
		io.WriteString(w, `{"data":[
			{"timestamp":1700000900000,"open":2,"high":3,"low":1,"close":2.5,"volume":7},
			{"timestamp":1700000000,"open":1,"high":2,"low":0.5,"close":1.5,"volume":5}]}`)
	}, 0)

	candles, err := h.FetchCandles(context.Background(), "BTC/USD", "15m", 100)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, int64(1700000000), candles[0].Timestamp)
	assert.Equal(t, int64(1700000900), candles[1].Timestamp)
	assert.Equal(t, 7.0, candles[1].Volume)
}

func TestHorus_RetriesServerErrors(t *testing.T) {
	var hits int32
	h := newHorus(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, `{"data":[{"timestamp":1700000000,"open":1,"high":1,"low":1,"close":1}]}`)
	}, 3)

	candles, err := h.FetchCandles(context.Background(), "ETH/USD", "1h", 10)
	require.NoError(t, err)
	assert.Len(t, candles, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestHorus_GivesUpAfterRetryLimit(t *testing.T) {
	var hits int32
	h := newHorus(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}, 2)

	_, err := h.FetchCandles(context.Background(), "ETH/USD", "1h", 10)
	assert.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits), "one attempt plus two retries")
}

func TestHorus_ClientErrorIsPermanent(t *testing.T) {
	var hits int32
	h := newHorus(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}, 3)

	_, err := h.FetchCandles(context.Background(), "ETH/USD", "1h", 10)
	assert.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

// ==================== CoinGecko ====================

func TestCoinGecko_ParsesRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/bitcoin/ohlc", r.URL.Path)
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currency"))
		assert.Equal(t, "7", r.URL.Query().Get("days"), "15m x 100 spans just over a day")
		io.WriteString(w, `[[1700000000000,1,2,0.5,1.5],[1700001800000,1.5,2.5,1,2],[1]]`)
	}))
	defer srv.Close()

	g := NewCoinGeckoProvider(srv.URL, time.Second, zerolog.Nop())
	candles, err := g.FetchCandles(context.Background(), "BTC/USD", "15m", 100)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, int64(1700000000), candles[0].Timestamp)
	assert.Equal(t, 2.0, candles[1].Close)
	assert.Zero(t, candles[1].Volume)
}

func TestCoinID(t *testing.T) {
	assert.Equal(t, "bitcoin", CoinID("BTC/USD"))
	assert.Equal(t, "avalanche-2", CoinID("avax/USD"))
	assert.Equal(t, "foo", CoinID("FOO/USD"))
}

func TestOHLCDays(t *testing.T) {
	assert.Equal(t, 1, ohlcDays("15m", 96))
	assert.Equal(t, 7, ohlcDays("1h", 100))
	assert.Equal(t, 30, ohlcDays("4h", 100))
	assert.Equal(t, 1, ohlcDays("bogus", 100))
}

// ==================== Cache and feed ====================

func TestCachedProvider_ServesRepeatFromCache(t *testing.T) {
	inner := &fakeProvider{name: "horus", n: 40}
	cs := cache.NewCacheService(config.RedisConfig{})
	p := NewCachedProvider(inner, cs, time.Minute, zerolog.Nop())

	for i := 0; i < 3; i++ {
		candles, err := p.FetchCandles(context.Background(), "BTC/USD", "15m", 100)
		require.NoError(t, err)
		assert.Len(t, candles, 40)
	}
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, "cached:horus", p.Name())
}

type fixedPrices map[string]float64

func (f fixedPrices) GetTicker(ctx context.Context, pair string) (*roostoo.Ticker, error) {
	p, ok := f[pair]
	if !ok {
		return nil, fmt.Errorf("no ticker for %s", pair)
	}
	return &roostoo.Ticker{LastPrice: p}, nil
}

func TestFeed_MergesIntoStoreAndTrims(t *testing.T) {
	store := market.NewCandleStore(50)
	feed := NewFeed(&fakeProvider{name: "p", n: 80}, fixedPrices{"BTC/USD": 101}, store, zerolog.Nop())

	candles, err := feed.FetchCandles(context.Background(), "BTC/USD", "15m", 30)
	require.NoError(t, err)
	assert.Len(t, candles, 30)
	assert.Equal(t, 50, store.Len("BTC/USD", "15m"))
	assert.Equal(t, store, feed.Store())

	price, err := feed.FetchPrice(context.Background(), "BTC/USD")
	require.NoError(t, err)
	assert.Equal(t, 101.0, price)

	_, err = feed.FetchPrice(context.Background(), "ETH/USD")
	assert.Error(t, err)
}

// scriptedProvider returns the next batch on every call
type scriptedProvider struct {
	batches [][]market.Candle
}

func (s *scriptedProvider) Name() string { return "scripted" }

func (s *scriptedProvider) FetchCandles(context.Context, string, string, int) ([]market.Candle, error) {
	batch := s.batches[0]
	if len(s.batches) > 1 {
		s.batches = s.batches[1:]
	}
	return batch, nil
}

func TestFeed_SkipsFormingBar(t *testing.T) {
	bar := func(ts int64, high, close float64) market.Candle {
		return market.Candle{Timestamp: ts, Open: 100, High: high, Low: 99, Close: close, Volume: 1}
	}
	provider := &scriptedProvider{batches: [][]market.Candle{
		{bar(0, 101, 100), bar(900, 101, 100)},
		{bar(0, 101, 100), bar(900, 115, 112), bar(1800, 113, 113)},
	}}
	store := market.NewCandleStore(50)
	feed := NewFeed(provider, fixedPrices{}, store, zerolog.Nop())

	// 15m bar at 900 is still forming until 1800
	feed.now = func() time.Time { return time.Unix(1000, 0) }
	candles, err := feed.FetchCandles(context.Background(), "BTC/USD", "15m", 10)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, int64(0), candles[0].Timestamp)

	feed.now = func() time.Time { return time.Unix(1800, 0) }
	candles, err = feed.FetchCandles(context.Background(), "BTC/USD", "15m", 10)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	last := candles[len(candles)-1]
	assert.Equal(t, int64(900), last.Timestamp)
	assert.Equal(t, 112.0, last.Close)
	assert.Equal(t, 115.0, last.High)
}

func TestFeed_ZeroPriceUnavailable(t *testing.T) {
	feed := NewFeed(&fakeProvider{name: "p"}, fixedPrices{"BTC/USD": 0}, market.NewCandleStore(10), zerolog.Nop())
	_, err := feed.FetchPrice(context.Background(), "BTC/USD")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCloseQuotes_MarksLatestClose(t *testing.T) {
	store := market.NewCandleStore(50)
	paper := roostoo.NewMockClient(nil, "USD", 1000)
	feed := NewFeed(&fakeProvider{name: "p", n: 40}, NewCloseQuotes(store, "15m", paper), store, zerolog.Nop())

	_, err := feed.FetchPrice(context.Background(), "BTC/USD")
	assert.ErrorIs(t, err, ErrUnavailable)

	candles, err := feed.FetchCandles(context.Background(), "BTC/USD", "15m", 40)
	require.NoError(t, err)

	price, err := feed.FetchPrice(context.Background(), "BTC/USD")
	require.NoError(t, err)
	assert.Equal(t, candles[len(candles)-1].Close, price)

	ticker, err := paper.GetTicker(context.Background(), "BTC/USD")
	require.NoError(t, err)
	assert.Equal(t, price, ticker.LastPrice)
}
