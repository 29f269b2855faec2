package roostoo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockClientMarketBuySettles(t *testing.T) {
	mc := NewMockClient(nil, "USD", 10000)
	mc.SetPrice("BTC/USD", 100)
	ctx := context.Background()

	order, err := mc.PlaceOrder(ctx, OrderRequest{Pair: "BTC/USD", Side: SideBuy, Type: OrderTypeMarket, Quantity: 10})
	require.NoError(t, err)
	assert.Equal(t, OrderStatusFilled, order.Status)
	assert.Equal(t, 10.0, order.FilledQuantity)

	balances, err := mc.GetBalance(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 10000-1000-1, balances["USD"].Available, 1e-9)
	assert.Equal(t, 10.0, balances["BTC"].Available)
}

func TestMockClientInsufficientFunds(t *testing.T) {
	mc := NewMockClient(nil, "USD", 100)
	mc.SetPrice("BTC/USD", 100)

	_, err := mc.PlaceOrder(context.Background(), OrderRequest{Pair: "BTC/USD", Side: SideBuy, Quantity: 2})
	assert.ErrorIs(t, err, ErrRejected)
}

func TestMockClientPendingFillAndCancel(t *testing.T) {
	mc := NewMockClient(nil, "USD", 10000)
	mc.SetPrice("ETH/USD", 50)
	mc.SetAutoFill(false)
	ctx := context.Background()

	first, err := mc.PlaceOrder(ctx, OrderRequest{Pair: "ETH/USD", Side: SideBuy, Quantity: 1})
	require.NoError(t, err)
	second, err := mc.PlaceOrder(ctx, OrderRequest{Pair: "ETH/USD", Side: SideSell, Type: OrderTypeLimit, Quantity: 1, Price: 60})
	require.NoError(t, err)

	pending, err := mc.QueryOrders(ctx, "ETH/USD", true)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
	assert.Empty(t, Fills(pending))

	require.NoError(t, mc.Fill(first.OrderID))
	require.NoError(t, mc.CancelOrder(ctx, second.OrderID))
	assert.Error(t, mc.CancelOrder(ctx, second.OrderID))

	all, err := mc.QueryOrders(ctx, "ETH/USD", false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.OrderID, all[0].OrderID, "newest first")
	assert.Equal(t, OrderStatusCanceled, all[0].Status)
	assert.Equal(t, OrderStatusFilled, all[1].Status)

	got, err := mc.QueryOrder(ctx, first.OrderID)
	require.NoError(t, err)
	assert.True(t, got.IsFilled())
}

func TestMockClientLimitRestsUntilReached(t *testing.T) {
	mc := NewMockClient(nil, "USD", 10000)
	mc.SetPrice("BTC/USD", 108)
	ctx := context.Background()

	buy, err := mc.PlaceOrder(ctx, OrderRequest{Pair: "BTC/USD", Side: SideBuy, Type: OrderTypeLimit, Quantity: 10, Price: 100})
	require.NoError(t, err)
	assert.Equal(t, OrderStatusPending, buy.Status)
	assert.Equal(t, 100.0, buy.FillPrice())

	mc.SetPrice("BTC/USD", 101)
	got, err := mc.QueryOrder(ctx, buy.OrderID)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusPending, got.Status)

	mc.SetPrice("BTC/USD", 99)
	got, err = mc.QueryOrder(ctx, buy.OrderID)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusFilled, got.Status)
	assert.Equal(t, 100.0, got.FilledAverPrice)

	// Marketable limits take the market price
	sell, err := mc.PlaceOrder(ctx, OrderRequest{Pair: "BTC/USD", Side: SideSell, Type: OrderTypeLimit, Quantity: 10, Price: 95})
	require.NoError(t, err)
	assert.Equal(t, OrderStatusFilled, sell.Status)
	assert.Equal(t, 99.0, sell.FilledAverPrice)
}

func TestMockClientExchangeInfoFromPrices(t *testing.T) {
	mc := NewMockClient(nil, "USD", 500)
	mc.SetPrice("BTC/USD", 100)
	mc.SetPrice("SOL/USD", 20)

	info, err := mc.GetExchangeInfo(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"BTC/USD", "SOL/USD"}, TradeablePairs(info, "USD"))
	assert.Equal(t, 500.0, info.InitialWallet["USD"])

	_, err = mc.GetTicker(context.Background(), "DOGE/USD")
	assert.ErrorIs(t, err, ErrRejected)
}
