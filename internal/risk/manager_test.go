package risk

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(values ...float64) *PortfolioManager {
	pm := NewPortfolioManager(Config{
		InitialCapital:   values[0],
		MaxOpenPositions: 1,
		MaxDrawdown:      0.15,
		CommissionRate:   0.001,
	}, zerolog.Nop())
	for _, v := range values[1:] {
		pm.RecordValue(v, time.Now())
	}
	return pm
}

// =============================================================================
// Drawdown
// =============================================================================

func TestDrawdowns_TroughAfterPeak(t *testing.T) {
	maxDD, current := Drawdowns([]float64{10000, 10500, 9800, 11000})

	assert.InDelta(t, (10500.0-9800.0)/10500.0, maxDD, 1e-12)
	assert.Zero(t, current)
}

func TestDrawdowns_LaterTroughDominates(t *testing.T) {
	// The 11000 -> 10200 decline (7.27%) is deeper than 10500 -> 9800 (6.67%)
	maxDD, current := Drawdowns([]float64{10000, 10500, 9800, 11000, 10200})

	assert.InDelta(t, 800.0/11000.0, maxDD, 1e-12)
	assert.InDelta(t, 800.0/11000.0, current, 1e-12)
	assert.GreaterOrEqual(t, maxDD, current)
}

func TestDrawdowns_MaxNeverBelowCurrent(t *testing.T) {
	series := [][]float64{
		{100},
		{100, 90, 95, 80, 120, 110},
		{50, 60, 70, 80},
		{100, 50, 25, 100, 99},
	}
	for _, values := range series {
		maxDD, current := Drawdowns(values)
		assert.GreaterOrEqual(t, maxDD, current, "%v", values)
	}
}

// =============================================================================
// Ratios
// =============================================================================

func TestComputeMetrics(t *testing.T) {
	// Returns: +20%, -10%, +20%, -20%
	m := ComputeMetrics([]float64{100, 120, 108, 129.6, 103.68})

	assert.InDelta(t, 0.025, m.MeanReturn, 1e-9)
	assert.InDelta(t, math.Sqrt(0.031875), m.ReturnStdDev, 1e-9)
	assert.InDelta(t, 0.025/math.Sqrt(0.031875), m.SharpeRatio, 1e-9)
	assert.InDelta(t, 0.5, m.SortinoRatio, 1e-9)
	assert.InDelta(t, 0.2, m.MaxDrawdown, 1e-9)
	assert.InDelta(t, 0.2, m.CurrentDrawdown, 1e-9)
	assert.InDelta(t, 0.025*252/0.2, m.CalmarRatio, 1e-9)

	composite := 0.4*m.SortinoRatio + 0.3*m.SharpeRatio + 0.3*m.CalmarRatio
	assert.InDelta(t, composite, m.CompositeScore, 1e-12)
	assert.InDelta(t, 129.6, m.PeakValue, 1e-9)
	assert.InDelta(t, 0.0368, m.TotalReturn, 1e-9)
}

func TestComputeMetrics_ZeroDenominators(t *testing.T) {
	// Flat series: no volatility, no drawdown
	flat := ComputeMetrics([]float64{100, 100, 100})
	assert.Zero(t, flat.SharpeRatio)
	assert.Zero(t, flat.SortinoRatio)
	assert.Zero(t, flat.CalmarRatio)

	// Only gains: no negative returns
	rising := ComputeMetrics([]float64{100, 110, 130})
	assert.Positive(t, rising.SharpeRatio)
	assert.Zero(t, rising.SortinoRatio)
	assert.Zero(t, rising.CalmarRatio)

	seed := ComputeMetrics([]float64{50000})
	assert.Equal(t, 1, seed.Samples)
	assert.Equal(t, 50000.0, seed.CurrentValue)
}

// =============================================================================
// Portfolio manager
// =============================================================================

func TestPortfolioManager_SeededHistory(t *testing.T) {
	pm := newManager(50000)

	history := pm.History()
	require.Len(t, history, 1)
	assert.Equal(t, 50000.0, history[0].Value)

	pm.RecordValue(51000, time.Now())
	assert.Len(t, pm.History(), 2)
	assert.Equal(t, 50000.0, pm.History()[0].Value, "history is append-only")
}

func TestPortfolioManager_TradeLog(t *testing.T) {
	pm := newManager(10000)

	pm.RecordTrade(TradeRecord{Instrument: "BTC/USD", Side: "BUY", Action: ActionEntry, Quantity: 1, Price: 100, Commission: pm.Commission(100, 1)})
	pm.RecordTrade(TradeRecord{Instrument: "BTC/USD", Side: "SELL", Action: ActionExit, Quantity: 1, Price: 110, PnL: 10, Commission: pm.Commission(110, 1)})

	assert.Len(t, pm.TradeLog(), 2)
	assert.InDelta(t, 10-0.1-0.11, pm.RealizedPnL(), 1e-9)

	m := pm.Metrics()
	assert.Equal(t, 2, m.TotalTrades)
	assert.Equal(t, 1, m.ClosedTrades)
	assert.Equal(t, 1, m.WinningTrades)
}

func TestCanOpenPosition_CapRefusesRegardlessOfDrawdown(t *testing.T) {
	pm := newManager(10000, 12000)

	ok, reason := pm.CanOpenPosition(1)
	assert.False(t, ok)
	assert.Contains(t, reason, "max positions")

	ok, _ = pm.CanOpenPosition(0)
	assert.True(t, ok)
}

func TestCanOpenPosition_Drawdown(t *testing.T) {
	atLimit := newManager(10000, 8500)
	ok, _ := atLimit.CanOpenPosition(0)
	assert.True(t, ok, "drawdown equal to the maximum is allowed")

	beyond := newManager(10000, 8000)
	ok, reason := beyond.CanOpenPosition(0)
	assert.False(t, ok)
	assert.Contains(t, reason, "drawdown")

	recovered := newManager(10000, 8000, 10001)
	ok, _ = recovered.CanOpenPosition(0)
	assert.True(t, ok)
}

func TestReplayTradeLog(t *testing.T) {
	at := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	trades := []TradeRecord{
		{Timestamp: at, Instrument: "BTC/USD", Action: ActionEntry, Commission: 10},
		{Timestamp: at.Add(time.Hour), Instrument: "BTC/USD", Action: ActionExit, PnL: 500, Commission: 10},
		{Timestamp: at.Add(2 * time.Hour), Instrument: "ETH/USD", Action: ActionEntry, Commission: 5},
		{Timestamp: at.Add(3 * time.Hour), Instrument: "ETH/USD", Action: ActionExit, PnL: -200, Commission: 5},
	}

	m := ReplayTradeLog(10000, trades)

	assert.Equal(t, 5, m.Samples)
	assert.Equal(t, 10000.0, m.InitialValue)
	assert.InDelta(t, 10270, m.CurrentValue, 1e-9)
	assert.InDelta(t, 10480, m.PeakValue, 1e-9)
	assert.InDelta(t, 270, m.RealizedPnL, 1e-9)
	assert.Equal(t, 2, m.ClosedTrades)
	assert.Equal(t, 1, m.WinningTrades)
	assert.Greater(t, m.MaxDrawdown, 0.0)
}

func TestReplayTradeLog_Empty(t *testing.T) {
	m := ReplayTradeLog(50000, nil)
	assert.Equal(t, 1, m.Samples)
	assert.Equal(t, 50000.0, m.CurrentValue)
	assert.Zero(t, m.MaxDrawdown)
}
