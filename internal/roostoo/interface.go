package roostoo

import "context"

// Exchange defines the Roostoo operations the bot depends on
type Exchange interface {
	GetServerTime(ctx context.Context) (int64, error)
	GetExchangeInfo(ctx context.Context) (*ExchangeInfo, error)
	GetTicker(ctx context.Context, pair string) (*Ticker, error)
	GetBalance(ctx context.Context) (map[string]Balance, error)
	PlaceOrder(ctx context.Context, req OrderRequest) (*OrderDetail, error)
	QueryOrders(ctx context.Context, pair string, pendingOnly bool) ([]OrderDetail, error)
	QueryOrder(ctx context.Context, orderID int64) (*OrderDetail, error)
	CancelOrder(ctx context.Context, orderID int64) error
}

// Ensure both Client and MockClient implement Exchange
var _ Exchange = (*Client)(nil)
var _ Exchange = (*MockClient)(nil)
