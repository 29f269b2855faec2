package roostoo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// DefaultPaperCommission is the taker fee charged on paper fills
const DefaultPaperCommission = 0.001

// MockClient is a paper exchange. Public data comes from an optional
// upstream exchange or from prices set with SetPrice. Market orders fill
// locally against the last known price. Limit orders fill once the price
// reaches their limit.
type MockClient struct {
	upstream   Exchange
	quote      string
	commission float64
	autoFill   bool

	prices   map[string]float64
	balances map[string]Balance
	orders   map[int64]*OrderDetail
	nextID   int64
	now      func() time.Time
	mu       sync.RWMutex
}

// NewMockClient creates a paper exchange funded with initial units of quote
func NewMockClient(upstream Exchange, quote string, initial float64) *MockClient {
	if quote == "" {
		quote = "USD"
	}
	return &MockClient{
		upstream:   upstream,
		quote:      quote,
		commission: DefaultPaperCommission,
		autoFill:   true,
		prices:     make(map[string]float64),
		balances:   map[string]Balance{quote: {Available: initial}},
		orders:     make(map[int64]*OrderDetail),
		nextID:     1,
		now:        time.Now,
	}
}

// SetPrice sets the last price of a pair and, with auto-fill on, fills the
// resting limit orders it reaches at their limit price
func (mc *MockClient) SetPrice(pair string, price float64) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.prices[pair] = price

	if !mc.autoFill {
		return
	}
	for _, o := range mc.orders {
		if o.Pair == pair && o.Status == OrderStatusPending && o.Type == OrderTypeLimit && limitReached(o, price) {
			mc.fillLocked(o, o.Price)
		}
	}
}

// SetAutoFill controls whether new orders fill immediately or stay pending
func (mc *MockClient) SetAutoFill(enabled bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.autoFill = enabled
}

// Fill executes a pending order, market orders at the current price and
// limit orders at their limit
func (mc *MockClient) Fill(orderID int64) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	order, ok := mc.orders[orderID]
	if !ok || order.Status != OrderStatusPending {
		return fmt.Errorf("%w: order %d is not pending", ErrRejected, orderID)
	}
	price := order.Price
	if last, ok := mc.prices[order.Pair]; ok && order.Type == OrderTypeMarket {
		price = last
	}
	mc.fillLocked(order, price)
	return nil
}

// GetServerTime returns the local clock
func (mc *MockClient) GetServerTime(ctx context.Context) (int64, error) {
	if mc.upstream != nil {
		return mc.upstream.GetServerTime(ctx)
	}
	return mc.now().UnixMilli(), nil
}

// GetExchangeInfo lists the upstream pairs, or every priced pair
func (mc *MockClient) GetExchangeInfo(ctx context.Context) (*ExchangeInfo, error) {
	if mc.upstream != nil {
		return mc.upstream.GetExchangeInfo(ctx)
	}

	mc.mu.RLock()
	defer mc.mu.RUnlock()

	info := &ExchangeInfo{
		IsRunning:     true,
		InitialWallet: map[string]float64{mc.quote: mc.balances[mc.quote].Total()},
		TradePairs:    make(map[string]PairInfo),
	}
	for pair := range mc.prices {
		info.TradePairs[pair] = PairInfo{
			Coin:     BaseAsset(pair),
			Unit:     QuoteAsset(pair),
			CanTrade: true,
		}
	}
	return info, nil
}

// GetTicker returns the upstream ticker, caching its price, or the set price
func (mc *MockClient) GetTicker(ctx context.Context, pair string) (*Ticker, error) {
	if mc.upstream != nil {
		t, err := mc.upstream.GetTicker(ctx, pair)
		if err != nil {
			return nil, err
		}
		mc.SetPrice(pair, t.LastPrice)
		return t, nil
	}

	mc.mu.RLock()
	defer mc.mu.RUnlock()

	price, ok := mc.prices[pair]
	if !ok {
		return nil, fmt.Errorf("%w: no ticker data for %s", ErrRejected, pair)
	}
	return &Ticker{MaxBid: price, MinAsk: price, LastPrice: price}, nil
}

// GetBalance returns a copy of the paper wallet
func (mc *MockClient) GetBalance(ctx context.Context) (map[string]Balance, error) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	out := make(map[string]Balance, len(mc.balances))
	for asset, b := range mc.balances {
		out[asset] = b
	}
	return out, nil
}

// PlaceOrder records an order and fills it when auto-fill is on
func (mc *MockClient) PlaceOrder(ctx context.Context, req OrderRequest) (*OrderDetail, error) {
	params, err := orderParams(req)
	if err != nil {
		return nil, err
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	last, known := mc.prices[req.Pair]
	if !known && params["type"] == OrderTypeMarket {
		return nil, fmt.Errorf("%w: no price for %s", ErrRejected, req.Pair)
	}
	price := last
	if params["type"] == OrderTypeLimit {
		price = req.Price
	}

	order := &OrderDetail{
		Pair:            req.Pair,
		OrderID:         mc.nextID,
		Status:          OrderStatusPending,
		Role:            "TAKER",
		CreateTimestamp: mc.now().UnixMilli(),
		Side:            params["side"],
		Type:            params["type"],
		Price:           price,
		Quantity:        req.Quantity,
	}
	mc.nextID++

	if order.Side == SideBuy {
		cost := price * req.Quantity * (1 + mc.commission)
		if mc.balances[mc.quote].Available < cost {
			return nil, fmt.Errorf("%w: insufficient %s balance", ErrRejected, mc.quote)
		}
	}

	mc.orders[order.OrderID] = order
	switch {
	case !mc.autoFill:
	case order.Type == OrderTypeMarket:
		mc.fillLocked(order, last)
	case known && limitReached(order, last):
		// a marketable limit takes the better market price
		mc.fillLocked(order, last)
	}

	out := *order
	return &out, nil
}

// QueryOrders lists orders for a pair, newest first
func (mc *MockClient) QueryOrders(ctx context.Context, pair string, pendingOnly bool) ([]OrderDetail, error) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	var out []OrderDetail
	for _, o := range mc.orders {
		if o.Pair != pair {
			continue
		}
		if pendingOnly && o.Status != OrderStatusPending {
			continue
		}
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID > out[j].OrderID })
	return out, nil
}

// QueryOrder fetches one order
func (mc *MockClient) QueryOrder(ctx context.Context, orderID int64) (*OrderDetail, error) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	o, ok := mc.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: order %d not found", ErrRejected, orderID)
	}
	out := *o
	return &out, nil
}

// CancelOrder cancels a pending order
func (mc *MockClient) CancelOrder(ctx context.Context, orderID int64) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	o, ok := mc.orders[orderID]
	if !ok || o.Status != OrderStatusPending {
		return fmt.Errorf("%w: order %d is not pending", ErrRejected, orderID)
	}
	o.Status = OrderStatusCanceled
	o.FinishTimestamp = mc.now().UnixMilli()
	return nil
}

// limitReached reports whether price is at or through the limit of o
func limitReached(o *OrderDetail, price float64) bool {
	if o.Side == SideBuy {
		return price <= o.Price
	}
	return price >= o.Price
}

// fillLocked settles an order at price against the wallet. Paper sells may
// take the coin balance negative so bearish entries can be simulated.
func (mc *MockClient) fillLocked(o *OrderDetail, price float64) {
	if o.Type == OrderTypeMarket {
		o.Price = price
	}

	notional := price * o.Quantity
	fee := notional * mc.commission
	coin := BaseAsset(o.Pair)

	quote := mc.balances[mc.quote]
	base := mc.balances[coin]
	switch o.Side {
	case SideBuy:
		quote.Available -= notional + fee
		base.Available += o.Quantity
	case SideSell:
		quote.Available += notional - fee
		base.Available -= o.Quantity
	}
	mc.balances[mc.quote] = quote
	mc.balances[coin] = base

	o.Status = OrderStatusFilled
	o.FilledQuantity = o.Quantity
	o.FilledAverPrice = price
	o.CommissionCoin = mc.quote
	o.CommissionCharge = fee
	o.CommissionPercent = mc.commission
	o.FinishTimestamp = mc.now().UnixMilli()
}
