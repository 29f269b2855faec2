package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"roostoo-trading-bot/internal/market"
	"roostoo-trading-bot/internal/roostoo"
)

// HorusProvider fetches candles from the Horus market data API
type HorusProvider struct {
	apiKey     string
	baseURL    string
	retries    int
	httpClient *http.Client
	newBackOff func() backoff.BackOff
	logger     zerolog.Logger
}

// NewHorusProvider creates a Horus client that retries transient failures
// up to retries times
func NewHorusProvider(apiKey, baseURL string, timeout time.Duration, retries int, logger zerolog.Logger) *HorusProvider {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HorusProvider{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		retries:    retries,
		httpClient: &http.Client{Timeout: timeout},
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxElapsedTime = 30 * time.Second
			return b
		},
		logger: logger.With().Str("component", "horus").Logger(),
	}
}

// Name identifies the provider in logs
func (h *HorusProvider) Name() string { return "horus" }

type horusCandle struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

type horusResponse struct {
	Data  []horusCandle `json:"data"`
	Error string        `json:"error"`
}

// FetchCandles returns up to limit candles in chronological order
func (h *HorusProvider) FetchCandles(ctx context.Context, instrument, timeframe string, limit int) ([]market.Candle, error) {
	params := url.Values{}
	params.Set("asset", roostoo.BaseAsset(instrument))
	params.Set("interval", timeframe)
	params.Set("limit", strconv.Itoa(limit))
	endpoint := h.baseURL + "/market/candles?" + params.Encode()

	var b backoff.BackOff = h.newBackOff()
	if h.retries >= 0 {
		b = backoff.WithMaxRetries(b, uint64(h.retries))
	}

	attempt := 0
	candles, err := backoff.RetryWithData(func() ([]market.Candle, error) {
		attempt++
		candles, err := h.fetch(ctx, endpoint)
		if err != nil {
			h.logger.Debug().Err(err).Int("attempt", attempt).Str("instrument", instrument).Msg("Horus request failed")
		}
		return candles, err
	}, backoff.WithContext(b, ctx))
	if err != nil {
		return nil, fmt.Errorf("horus candles for %s %s: %w", instrument, timeframe, err)
	}

	return lastN(candles, limit), nil
}

func (h *HorusProvider) fetch(ctx context.Context, endpoint string) ([]market.Candle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("X-API-Key", h.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	case resp.StatusCode != http.StatusOK:
		// Client errors will not succeed on retry
		return nil, backoff.Permanent(fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body)))
	}

	var parsed horusResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("error parsing candles: %w", err))
	}
	if parsed.Error != "" {
		return nil, backoff.Permanent(fmt.Errorf("API error: %s", parsed.Error))
	}

	candles := make([]market.Candle, 0, len(parsed.Data))
	for _, c := range parsed.Data {
		ts := c.Timestamp
		if ts > 1e12 {
			ts /= 1000 // milliseconds
		}
		candles = append(candles, market.Candle{
			Timestamp: ts,
			Open:      c.Open,
			High:      c.High,
			Low:       c.Low,
			Close:     c.Close,
			Volume:    c.Volume,
		})
	}
	sort.Slice(candles, func(i, j int) bool { return candles[i].Timestamp < candles[j].Timestamp })
	return candles, nil
}
