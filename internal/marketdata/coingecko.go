package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"roostoo-trading-bot/internal/market"
	"roostoo-trading-bot/internal/roostoo"
)

// coinGeckoIDs maps exchange symbols to CoinGecko coin IDs where they differ
var coinGeckoIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"SOL":   "solana",
	"BNB":   "binancecoin",
	"XRP":   "ripple",
	"ADA":   "cardano",
	"DOGE":  "dogecoin",
	"AVAX":  "avalanche-2",
	"DOT":   "polkadot",
	"LINK":  "chainlink",
	"LTC":   "litecoin",
	"TRX":   "tron",
	"TON":   "the-open-network",
	"SHIB":  "shiba-inu",
	"UNI":   "uniswap",
	"NEAR":  "near",
	"APT":   "aptos",
	"ARB":   "arbitrum",
	"SUI":   "sui",
	"PEPE":  "pepe",
	"ICP":   "internet-computer",
	"FIL":   "filecoin",
	"HBAR":  "hedera-hashgraph",
	"AAVE":  "aave",
	"XLM":   "stellar",
	"BCH":   "bitcoin-cash",
	"POL":   "polygon-ecosystem-token",
	"WLD":   "worldcoin-wld",
	"TAO":   "bittensor",
	"ENA":   "ethena",
	"ONDO":  "ondo-finance",
	"CRV":   "curve-dao-token",
	"PENGU": "pudgy-penguins",
}

// CoinGeckoProvider fetches OHLC candles from the public CoinGecko API. The
// endpoint carries no volume, so candles report zero volume.
type CoinGeckoProvider struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewCoinGeckoProvider creates a CoinGecko client
func NewCoinGeckoProvider(baseURL string, timeout time.Duration, logger zerolog.Logger) *CoinGeckoProvider {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &CoinGeckoProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "coingecko").Logger(),
	}
}

// Name identifies the provider in logs
func (g *CoinGeckoProvider) Name() string { return "coingecko" }

// CoinID resolves the CoinGecko ID for an instrument such as BTC/USD
func CoinID(instrument string) string {
	symbol := strings.ToUpper(roostoo.BaseAsset(instrument))
	if id, ok := coinGeckoIDs[symbol]; ok {
		return id
	}
	return strings.ToLower(symbol)
}

// ohlcDays picks the smallest CoinGecko day range that covers the window.
// CoinGecko chooses the granularity from the range.
func ohlcDays(timeframe string, limit int) int {
	tf, err := TimeframeDuration(timeframe)
	if err != nil || limit <= 0 {
		return 1
	}
	span := tf * time.Duration(limit)
	for _, days := range []int{1, 7, 14, 30, 90, 180, 365} {
		if span <= time.Duration(days)*24*time.Hour {
			return days
		}
	}
	return 365
}

// FetchCandles returns up to limit candles in chronological order
func (g *CoinGeckoProvider) FetchCandles(ctx context.Context, instrument, timeframe string, limit int) ([]market.Candle, error) {
	quote := strings.ToLower(roostoo.QuoteAsset(instrument))
	if quote == "" || quote == "usdt" {
		quote = "usd"
	}

	params := url.Values{}
	params.Set("vs_currency", quote)
	params.Set("days", strconv.Itoa(ohlcDays(timeframe, limit)))
	endpoint := fmt.Sprintf("%s/coins/%s/ohlc?%s", g.baseURL, CoinID(instrument), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching coingecko ohlc: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	// Rows are [timestamp_ms, open, high, low, close]
	var rows [][]float64
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("error parsing coingecko ohlc: %w", err)
	}

	candles := make([]market.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 5 {
			continue
		}
		candles = append(candles, market.Candle{
			Timestamp: int64(row[0]) / 1000,
			Open:      row[1],
			High:      row[2],
			Low:       row[3],
			Close:     row[4],
		})
	}

	g.logger.Debug().Str("instrument", instrument).Int("candles", len(candles)).Msg("CoinGecko candles fetched")
	return lastN(candles, limit), nil
}
