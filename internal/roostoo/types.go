package roostoo

import "strings"

// Order sides and types accepted by the exchange
const (
	SideBuy  = "BUY"
	SideSell = "SELL"

	OrderTypeMarket = "MARKET"
	OrderTypeLimit  = "LIMIT"
)

// Order statuses reported by the exchange
const (
	OrderStatusPending  = "PENDING"
	OrderStatusFilled   = "FILLED"
	OrderStatusCanceled = "CANCELED"
)

// ExchangeInfo lists the pairs the exchange trades
type ExchangeInfo struct {
	IsRunning     bool                `json:"IsRunning"`
	InitialWallet map[string]float64  `json:"InitialWallet"`
	TradePairs    map[string]PairInfo `json:"TradePairs"`
}

// PairInfo describes one trading pair
type PairInfo struct {
	Coin            string  `json:"Coin"`
	CoinFullName    string  `json:"CoinFullName"`
	Unit            string  `json:"Unit"`
	UnitFullName    string  `json:"UnitFullName"`
	CanTrade        bool    `json:"CanTrade"`
	PricePrecision  int     `json:"PricePrecision"`
	AmountPrecision int     `json:"AmountPrecision"`
	MiniOrder       float64 `json:"MiniOrder"`
}

// Ticker is the last market snapshot for a pair
type Ticker struct {
	MaxBid         float64 `json:"MaxBid"`
	MinAsk         float64 `json:"MinAsk"`
	LastPrice      float64 `json:"LastPrice"`
	Change         float64 `json:"Change"`
	CoinTradeValue float64 `json:"CoinTradeValue"`
	UnitTradeValue float64 `json:"UnitTradeValue"`
}

// Balance is the wallet entry for one asset
type Balance struct {
	Available float64 `json:"available"`
	Locked    float64 `json:"locked"`
}

// Total returns available plus locked funds
func (b Balance) Total() float64 {
	return b.Available + b.Locked
}

// OrderRequest is a new order submission
type OrderRequest struct {
	Pair     string
	Side     string // BUY or SELL
	Type     string // MARKET or LIMIT
	Quantity float64
	Price    float64 // Required for LIMIT
}

// OrderDetail is the exchange view of an order
type OrderDetail struct {
	Pair              string  `json:"Pair"`
	OrderID           int64   `json:"OrderID"`
	Status            string  `json:"Status"`
	Role              string  `json:"Role"`
	CreateTimestamp   int64   `json:"CreateTimestamp"`
	FinishTimestamp   int64   `json:"FinishTimestamp"`
	Side              string  `json:"Side"`
	Type              string  `json:"Type"`
	Price             float64 `json:"Price"`
	Quantity          float64 `json:"Quantity"`
	FilledQuantity    float64 `json:"FilledQuantity"`
	FilledAverPrice   float64 `json:"FilledAverPrice"`
	CommissionCoin    string  `json:"CommissionCoin"`
	CommissionCharge  float64 `json:"CommissionChargeValue"`
	CommissionPercent float64 `json:"CommissionPercent"`
}

// IsFilled reports whether any quantity of the order executed
func (o OrderDetail) IsFilled() bool {
	return o.FilledQuantity > 0 || strings.EqualFold(o.Status, OrderStatusFilled)
}

// FillPrice returns the average fill price, falling back to the order price
func (o OrderDetail) FillPrice() float64 {
	if o.FilledAverPrice > 0 {
		return o.FilledAverPrice
	}
	return o.Price
}

// Fills returns the orders that executed at least partially
func Fills(orders []OrderDetail) []OrderDetail {
	var out []OrderDetail
	for _, o := range orders {
		if o.IsFilled() {
			out = append(out, o)
		}
	}
	return out
}

// TradeablePairs returns the pairs that accept orders, quoted in quote
// (all quotes when empty)
func TradeablePairs(info *ExchangeInfo, quote string) []string {
	if info == nil {
		return nil
	}
	var pairs []string
	for name, p := range info.TradePairs {
		if !p.CanTrade {
			continue
		}
		if quote != "" && !strings.EqualFold(p.Unit, quote) && !strings.HasSuffix(name, "/"+quote) {
			continue
		}
		pairs = append(pairs, name)
	}
	return pairs
}

// BaseAsset returns the coin part of a pair such as BTC/USD
func BaseAsset(pair string) string {
	if i := strings.IndexByte(pair, '/'); i > 0 {
		return pair[:i]
	}
	return pair
}

// QuoteAsset returns the unit part of a pair such as BTC/USD
func QuoteAsset(pair string) string {
	if i := strings.IndexByte(pair, '/'); i >= 0 {
		return pair[i+1:]
	}
	return ""
}

// response envelopes

type envelope struct {
	Success bool   `json:"Success"`
	ErrMsg  string `json:"ErrMsg"`
}

type tickerResponse struct {
	envelope
	ServerTime int64             `json:"ServerTime"`
	Data       map[string]Ticker `json:"Data"`
}

type walletEntry struct {
	Free      float64 `json:"Free"`
	Lock      float64 `json:"Lock"`
	Available float64 `json:"Available"`
	Locked    float64 `json:"Locked"`
}

type balanceResponse struct {
	envelope
	Wallet     map[string]walletEntry `json:"Wallet"`
	SpotWallet map[string]walletEntry `json:"SpotWallet"`
	Balance    map[string]walletEntry `json:"Balance"`
}

type placeOrderResponse struct {
	envelope
	OrderDetail OrderDetail `json:"OrderDetail"`
}

type queryOrderResponse struct {
	envelope
	OrderMatched []OrderDetail `json:"OrderMatched"`
}

type cancelOrderResponse struct {
	envelope
	CanceledList []int64 `json:"CanceledList"`
}
