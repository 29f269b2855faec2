package roostoo

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrInvalidOrder is returned before submission when an order is malformed
	ErrInvalidOrder = errors.New("invalid order")
	// ErrRejected is returned when the exchange answers Success=false
	ErrRejected = errors.New("request rejected by exchange")
)

// Client talks to the Roostoo mock exchange REST API
type Client struct {
	apiKey     string
	secretKey  string
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
	now        func() time.Time
}

// NewClient creates a signed client. A zero timeout defaults to 15 seconds.
func NewClient(apiKey, secretKey, baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		apiKey:     apiKey,
		secretKey:  secretKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "roostoo").Logger(),
		now:        time.Now,
	}
}

// GetServerTime returns the exchange clock in milliseconds
func (c *Client) GetServerTime(ctx context.Context) (int64, error) {
	var resp struct {
		ServerTime int64 `json:"ServerTime"`
	}
	if err := c.get(ctx, "/v3/server_time", nil, &resp); err != nil {
		return 0, fmt.Errorf("error fetching server time: %w", err)
	}
	return resp.ServerTime, nil
}

// GetExchangeInfo fetches the tradeable pairs
func (c *Client) GetExchangeInfo(ctx context.Context) (*ExchangeInfo, error) {
	var info ExchangeInfo
	if err := c.get(ctx, "/v3/exchangeInfo", nil, &info); err != nil {
		return nil, fmt.Errorf("error fetching exchange info: %w", err)
	}
	return &info, nil
}

// GetTicker fetches the latest ticker for a pair
func (c *Client) GetTicker(ctx context.Context, pair string) (*Ticker, error) {
	params := url.Values{}
	params.Set("pair", pair)
	params.Set("timestamp", c.timestamp())

	var resp tickerResponse
	if err := c.get(ctx, "/v3/ticker", params, &resp); err != nil {
		return nil, fmt.Errorf("error fetching ticker for %s: %w", pair, err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("%w: ticker %s: %s", ErrRejected, pair, resp.ErrMsg)
	}

	ticker, ok := resp.Data[pair]
	if !ok {
		return nil, fmt.Errorf("%w: no ticker data for %s", ErrRejected, pair)
	}
	return &ticker, nil
}

// GetBalance fetches the wallet keyed by asset
func (c *Client) GetBalance(ctx context.Context) (map[string]Balance, error) {
	var resp balanceResponse
	if err := c.signedPost(ctx, "/v3/balance", map[string]string{}, &resp); err != nil {
		return nil, fmt.Errorf("error fetching balance: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("%w: balance: %s", ErrRejected, resp.ErrMsg)
	}

	balances := make(map[string]Balance)
	for _, wallet := range []map[string]walletEntry{resp.Wallet, resp.SpotWallet, resp.Balance} {
		for asset, w := range wallet {
			balances[asset] = Balance{
				Available: w.Free + w.Available,
				Locked:    w.Lock + w.Locked,
			}
		}
	}
	return balances, nil
}

// PlaceOrder submits a new order
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (*OrderDetail, error) {
	params, err := orderParams(req)
	if err != nil {
		return nil, err
	}

	var resp placeOrderResponse
	if err := c.signedPost(ctx, "/v3/place_order", params, &resp); err != nil {
		return nil, fmt.Errorf("error placing order: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("%w: place order %s %s: %s", ErrRejected, req.Side, req.Pair, resp.ErrMsg)
	}

	c.logger.Info().
		Int64("order_id", resp.OrderDetail.OrderID).
		Str("pair", req.Pair).
		Str("side", params["side"]).
		Str("type", params["type"]).
		Float64("quantity", req.Quantity).
		Str("status", resp.OrderDetail.Status).
		Msg("Order placed")

	return &resp.OrderDetail, nil
}

// QueryOrders lists orders for a pair. pendingOnly restricts to open orders.
func (c *Client) QueryOrders(ctx context.Context, pair string, pendingOnly bool) ([]OrderDetail, error) {
	params := map[string]string{"pair": pair, "pending_only": "FALSE"}
	if pendingOnly {
		params["pending_only"] = "TRUE"
	}

	var resp queryOrderResponse
	if err := c.signedPost(ctx, "/v3/query_order", params, &resp); err != nil {
		return nil, fmt.Errorf("error querying orders: %w", err)
	}
	if !resp.Success {
		// The exchange reports "no order matched" as a failure
		if resp.OrderMatched == nil && strings.Contains(strings.ToLower(resp.ErrMsg), "no order") {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: query orders %s: %s", ErrRejected, pair, resp.ErrMsg)
	}
	return resp.OrderMatched, nil
}

// QueryOrder fetches a single order by ID
func (c *Client) QueryOrder(ctx context.Context, orderID int64) (*OrderDetail, error) {
	params := map[string]string{"order_id": strconv.FormatInt(orderID, 10)}

	var resp queryOrderResponse
	if err := c.signedPost(ctx, "/v3/query_order", params, &resp); err != nil {
		return nil, fmt.Errorf("error querying order %d: %w", orderID, err)
	}
	if !resp.Success || len(resp.OrderMatched) == 0 {
		return nil, fmt.Errorf("%w: query order %d: %s", ErrRejected, orderID, resp.ErrMsg)
	}
	return &resp.OrderMatched[0], nil
}

// CancelOrder cancels a pending order
func (c *Client) CancelOrder(ctx context.Context, orderID int64) error {
	params := map[string]string{"order_id": strconv.FormatInt(orderID, 10)}

	var resp cancelOrderResponse
	if err := c.signedPost(ctx, "/v3/cancel_order", params, &resp); err != nil {
		return fmt.Errorf("error canceling order %d: %w", orderID, err)
	}
	if !resp.Success {
		return fmt.Errorf("%w: cancel order %d: %s", ErrRejected, orderID, resp.ErrMsg)
	}

	c.logger.Info().Int64("order_id", orderID).Ints64("canceled", resp.CanceledList).Msg("Order canceled")
	return nil
}

// orderParams validates an order and renders its form fields
func orderParams(req OrderRequest) (map[string]string, error) {
	side := strings.ToUpper(req.Side)
	orderType := strings.ToUpper(req.Type)
	if orderType == "" {
		orderType = OrderTypeMarket
	}

	if req.Pair == "" {
		return nil, fmt.Errorf("%w: pair is required", ErrInvalidOrder)
	}
	if side != SideBuy && side != SideSell {
		return nil, fmt.Errorf("%w: side must be BUY or SELL, got %q", ErrInvalidOrder, req.Side)
	}
	if orderType != OrderTypeMarket && orderType != OrderTypeLimit {
		return nil, fmt.Errorf("%w: type must be MARKET or LIMIT, got %q", ErrInvalidOrder, req.Type)
	}
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidOrder)
	}

	params := map[string]string{
		"pair":     req.Pair,
		"side":     side,
		"type":     orderType,
		"quantity": formatFloat(req.Quantity),
	}
	if orderType == OrderTypeLimit {
		if req.Price <= 0 {
			return nil, fmt.Errorf("%w: LIMIT order requires price", ErrInvalidOrder)
		}
		params["price"] = formatFloat(req.Price)
	}
	return params, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

// signedPost adds a timestamp, signs the sorted payload and posts it as a form
func (c *Client) signedPost(ctx context.Context, path string, params map[string]string, out interface{}) error {
	params["timestamp"] = c.timestamp()
	payload := encodeSorted(params)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("RST-API-KEY", c.apiKey)
	req.Header.Set("MSG-SIGNATURE", Sign(c.secretKey, payload))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("error parsing response: %w", err)
	}
	return nil
}

func (c *Client) timestamp() string {
	return strconv.FormatInt(c.now().UnixMilli(), 10)
}

// Sign returns the hex HMAC-SHA256 of payload under secret
func Sign(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// encodeSorted joins params as k=v pairs in key order
func encodeSorted(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}
	return strings.Join(parts, "&")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
