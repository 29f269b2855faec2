// Package marketdata fetches OHLC candles from external providers and feeds
// them into the rolling candle store.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"roostoo-trading-bot/internal/market"
)

// ErrUnavailable is returned when no provider produced usable candles
var ErrUnavailable = errors.New("market data unavailable")

// CandleProvider fetches the most recent candles for an instrument
type CandleProvider interface {
	Name() string
	FetchCandles(ctx context.Context, instrument, timeframe string, limit int) ([]market.Candle, error)
}

// TimeframeDuration parses timeframes such as 5m, 15m, 1h, 4h and 1d
func TimeframeDuration(timeframe string) (time.Duration, error) {
	tf := strings.TrimSpace(strings.ToLower(timeframe))
	if len(tf) < 2 {
		return 0, fmt.Errorf("invalid timeframe %q", timeframe)
	}

	n, err := strconv.Atoi(tf[:len(tf)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid timeframe %q", timeframe)
	}

	switch tf[len(tf)-1] {
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	}
	return 0, fmt.Errorf("invalid timeframe %q", timeframe)
}

// lastN returns the trailing n candles
func lastN(candles []market.Candle, n int) []market.Candle {
	if n > 0 && len(candles) > n {
		return candles[len(candles)-n:]
	}
	return candles
}
