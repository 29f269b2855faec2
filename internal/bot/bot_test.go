package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roostoo-trading-bot/internal/circuit"
	"roostoo-trading-bot/internal/lifecycle"
	"roostoo-trading-bot/internal/risk"
	"roostoo-trading-bot/internal/roostoo"
	"roostoo-trading-bot/internal/scanner"
	"roostoo-trading-bot/internal/strategy"
)

type tickerFeed struct {
	ex roostoo.Exchange
}

func (f tickerFeed) FetchPrice(ctx context.Context, instrument string) (float64, error) {
	t, err := f.ex.GetTicker(ctx, instrument)
	if err != nil {
		return 0, err
	}
	return t.LastPrice, nil
}

// stubScanner returns one bullish opportunity for every eligible instrument
type stubScanner struct {
	mu        sync.Mutex
	calls     int
	universes [][]string
	setup     strategy.Setup
	last      *scanner.ScanResult
}

func (s *stubScanner) Scan(ctx context.Context, universe []string, eligible func(string) bool) *scanner.ScanResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.universes = append(s.universes, universe)

	result := &scanner.ScanResult{ScanID: "scan"}
	for _, inst := range universe {
		if eligible != nil && !eligible(inst) {
			continue
		}
		result.InstrumentsScanned++
		result.Results = append(result.Results, scanner.Opportunity{
			Instrument:   inst,
			Direction:    s.setup.Direction,
			BullishSetup: s.setup,
			BearishSetup: s.setup,
			BestScore:    90,
		})
	}
	s.last = result
	return result
}

func (s *stubScanner) GetLastResult() *scanner.ScanResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

type failingExits struct {
	*roostoo.MockClient
}

func (f failingExits) PlaceOrder(ctx context.Context, req roostoo.OrderRequest) (*roostoo.OrderDetail, error) {
	if req.Side == roostoo.SideSell {
		return nil, errors.New("exchange unavailable")
	}
	return f.MockClient.PlaceOrder(ctx, req)
}

type harness struct {
	orch      *Orchestrator
	mock      *roostoo.MockClient
	scanner   *stubScanner
	lifecycle *lifecycle.Controller
	portfolio *risk.PortfolioManager
}

func bullishSetup() strategy.Setup {
	return strategy.Setup{
		Valid:           true,
		Direction:       strategy.Bullish,
		EntryPrice:      100,
		StopLoss:        95,
		Target:          110,
		RiskRewardRatio: 2,
		Confidence:      90,
	}
}

func newHarness(t *testing.T, cfg Config, wrap func(*roostoo.MockClient) roostoo.Exchange, breaker *circuit.CircuitBreaker) *harness {
	t.Helper()
	mock := roostoo.NewMockClient(nil, "USD", 10000)
	mock.SetPrice("BTC/USD", 100)

	var ex roostoo.Exchange = mock
	if wrap != nil {
		ex = wrap(mock)
	}

	h := &harness{
		mock:      mock,
		scanner:   &stubScanner{setup: bullishSetup()},
		lifecycle: lifecycle.NewController(zerolog.Nop()),
		portfolio: risk.NewPortfolioManager(risk.Config{
			InitialCapital:      10000,
			RiskPerTrade:        0.02,
			MaxPositionFraction: 0.5,
			MaxOpenPositions:    1,
			MaxDrawdown:         0.15,
			CommissionRate:      0.001,
		}, zerolog.Nop()),
	}

	orch, err := NewOrchestrator(Deps{
		Exchange:  ex,
		Prices:    tickerFeed{ex: ex},
		Scanner:   h.scanner,
		Lifecycle: h.lifecycle,
		Portfolio: h.portfolio,
		Breaker:   breaker,
	}, cfg, zerolog.Nop())
	require.NoError(t, err)
	h.orch = orch
	return h
}

func defaultConfig() Config {
	return Config{
		Pairs:                 []string{"BTC/USD"},
		QuoteCurrency:         "USD",
		ScanInterval:          5 * time.Minute,
		PositionCheckInterval: time.Minute,
		PollInterval:          10 * time.Second,
	}
}

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNewOrchestratorRequiresDeps(t *testing.T) {
	_, err := NewOrchestrator(Deps{}, Config{}, zerolog.Nop())
	assert.Error(t, err)
}

func TestRunCycle_EntersTopOpportunity(t *testing.T) {
	h := newHarness(t, defaultConfig(), nil, nil)

	h.orch.RunCycle(context.Background(), t0)

	p := h.lifecycle.Get("BTC/USD")
	assert.Equal(t, lifecycle.StatusPendingBuy, p.Status)
	// 2% of 10000 over a 5 stop distance, under the 50% notional cap
	assert.InDelta(t, 40, p.Size, 1e-9)
	assert.Equal(t, int64(1), p.OrderID)

	trades := h.portfolio.TradeLog()
	require.Len(t, trades, 1)
	assert.Equal(t, risk.ActionEntry, trades[0].Action)
	assert.Equal(t, "BUY", trades[0].Side)
	assert.InDelta(t, 4.0, trades[0].Commission, 1e-9)

	assert.Equal(t, Stats{TotalOrders: 1, SuccessfulOrders: 1}, h.orch.Stats())
	assert.Len(t, h.portfolio.History(), 2)
}

func TestRunCycle_EntryRestsAsLimitAboveEntry(t *testing.T) {
	h := newHarness(t, defaultConfig(), nil, nil)
	h.mock.SetPrice("BTC/USD", 108)

	h.orch.RunCycle(context.Background(), t0)

	p := h.lifecycle.Get("BTC/USD")
	require.Equal(t, lifecycle.StatusPendingBuy, p.Status)
	assert.Equal(t, 100.0, p.EntryPrice)
	assert.InDelta(t, 40, p.Size, 1e-9)

	order, err := h.mock.QueryOrder(context.Background(), p.OrderID)
	require.NoError(t, err)
	assert.Equal(t, roostoo.OrderTypeLimit, order.Type)
	assert.Equal(t, 100.0, order.Price)
	assert.Equal(t, roostoo.OrderStatusPending, order.Status)

	// Still above the limit, nothing fills
	h.orch.RunCycle(context.Background(), t0.Add(time.Minute))
	assert.Equal(t, lifecycle.StatusPendingBuy, h.lifecycle.Get("BTC/USD").Status)

	h.mock.SetPrice("BTC/USD", 100)
	h.orch.RunCycle(context.Background(), t0.Add(2*time.Minute))

	p = h.lifecycle.Get("BTC/USD")
	assert.Equal(t, lifecycle.StatusOpen, p.Status)
	// Loss at the stop stays within 2% of 10000
	assert.InDelta(t, 200, (p.EntryPrice-p.StopLoss)*p.Size, 1e-9)
}

func TestRunCycle_MarketableLimitFillsAtBetterPrice(t *testing.T) {
	h := newHarness(t, defaultConfig(), nil, nil)
	h.mock.SetPrice("BTC/USD", 97)

	h.orch.RunCycle(context.Background(), t0)

	p := h.lifecycle.Get("BTC/USD")
	assert.Equal(t, 97.0, p.EntryPrice)
	assert.InDelta(t, 40, p.Size, 1e-9)
	assert.LessOrEqual(t, (p.EntryPrice-p.StopLoss)*p.Size, 200.0)

	h.orch.RunCycle(context.Background(), t0.Add(time.Minute))
	assert.Equal(t, lifecycle.StatusOpen, h.lifecycle.Get("BTC/USD").Status)
}

func TestRunCycle_StaleSetupSkipsEntry(t *testing.T) {
	for _, price := range []float64{94, 95, 110, 120} {
		h := newHarness(t, defaultConfig(), nil, nil)
		h.mock.SetPrice("BTC/USD", price)

		h.orch.RunCycle(context.Background(), t0)

		assert.True(t, h.lifecycle.IsClosed("BTC/USD"), "price %.0f", price)
		assert.Zero(t, h.orch.Stats().TotalOrders, "price %.0f", price)
		assert.Empty(t, h.portfolio.TradeLog(), "price %.0f", price)
	}
}

func TestStaleSetupBearish(t *testing.T) {
	setup := strategy.Setup{Direction: strategy.Bearish, EntryPrice: 100, StopLoss: 105, Target: 90}

	assert.Empty(t, staleSetup(setup, 100))
	assert.Empty(t, staleSetup(setup, 92))
	assert.NotEmpty(t, staleSetup(setup, 105))
	assert.NotEmpty(t, staleSetup(setup, 89))
}

func TestRunCycle_TargetExitRealizesPnL(t *testing.T) {
	h := newHarness(t, defaultConfig(), nil, nil)
	h.orch.RunCycle(context.Background(), t0)

	h.mock.SetPrice("BTC/USD", 111)
	h.orch.RunCycle(context.Background(), t0.Add(time.Minute))

	p := h.lifecycle.Get("BTC/USD")
	assert.Equal(t, lifecycle.StatusClosed, p.Status)
	assert.Equal(t, lifecycle.ExitTarget, p.ExitReason)
	assert.InDelta(t, 440, p.PnL, 1e-9)

	trades := h.portfolio.TradeLog()
	require.Len(t, trades, 2)
	assert.Equal(t, risk.ActionExit, trades[1].Action)
	assert.Equal(t, "SELL", trades[1].Side)
	assert.Equal(t, string(lifecycle.ExitTarget), trades[1].Reason)

	// 440 gross less 4.00 entry and 4.44 exit commission
	assert.InDelta(t, 431.56, h.portfolio.RealizedPnL(), 1e-9)
	history := h.portfolio.History()
	assert.InDelta(t, 10431.56, history[len(history)-1].Value, 1e-9)
	assert.Equal(t, 1, h.scanner.calls, "scan cadence not yet due")
}

func TestRunCycle_PendingEntryCancelledOnLevelHit(t *testing.T) {
	h := newHarness(t, defaultConfig(), nil, nil)
	h.mock.SetAutoFill(false)
	h.orch.RunCycle(context.Background(), t0)
	require.Equal(t, lifecycle.StatusPendingBuy, h.lifecycle.Get("BTC/USD").Status)

	h.mock.SetPrice("BTC/USD", 94)
	h.orch.RunCycle(context.Background(), t0.Add(time.Minute))

	p := h.lifecycle.Get("BTC/USD")
	assert.Equal(t, lifecycle.StatusClosed, p.Status)
	assert.Equal(t, lifecycle.ExitCancelled, p.ExitReason)
	assert.Zero(t, p.PnL)

	order, err := h.mock.QueryOrder(context.Background(), p.OrderID)
	require.NoError(t, err)
	assert.Equal(t, roostoo.OrderStatusCanceled, order.Status)
	assert.Len(t, h.portfolio.TradeLog(), 1)
}

func TestRunCycle_PendingEntryStaysPendingUntilFilled(t *testing.T) {
	h := newHarness(t, defaultConfig(), nil, nil)
	h.mock.SetAutoFill(false)
	h.orch.RunCycle(context.Background(), t0)

	h.orch.RunCycle(context.Background(), t0.Add(time.Minute))
	assert.Equal(t, lifecycle.StatusPendingBuy, h.lifecycle.Get("BTC/USD").Status)

	require.NoError(t, h.mock.Fill(1))
	h.orch.RunCycle(context.Background(), t0.Add(2*time.Minute))
	assert.Equal(t, lifecycle.StatusOpen, h.lifecycle.Get("BTC/USD").Status)
}

func TestRunCycle_FailedExitStaysOpen(t *testing.T) {
	wrap := func(m *roostoo.MockClient) roostoo.Exchange { return failingExits{m} }
	h := newHarness(t, defaultConfig(), wrap, nil)
	h.orch.RunCycle(context.Background(), t0)

	h.mock.SetPrice("BTC/USD", 90)
	h.orch.RunCycle(context.Background(), t0.Add(time.Minute))

	p := h.lifecycle.Get("BTC/USD")
	assert.Equal(t, lifecycle.StatusOpen, p.Status)
	assert.Equal(t, Stats{TotalOrders: 2, SuccessfulOrders: 1, FailedOrders: 1}, h.orch.Stats())

	// Unrealized loss is carried into the value sample
	history := h.portfolio.History()
	assert.InDelta(t, 10000-4-400, history[len(history)-1].Value, 1e-9)
}

func TestRunCycle_StopLossFeedsCircuitBreaker(t *testing.T) {
	breaker := circuit.NewCircuitBreaker(circuit.Config{Enabled: true, MaxConsecutiveLosses: 1, CooldownMinutes: 60})
	h := newHarness(t, defaultConfig(), nil, breaker)
	h.orch.RunCycle(context.Background(), t0)

	h.mock.SetPrice("BTC/USD", 95)
	h.orch.RunCycle(context.Background(), t0.Add(time.Minute))
	assert.Equal(t, lifecycle.ExitStopLoss, h.lifecycle.Get("BTC/USD").ExitReason)
	assert.Equal(t, circuit.StateOpen, breaker.GetState())

	h.orch.RunCycle(context.Background(), t0.Add(5*time.Minute))
	assert.Equal(t, 1, h.scanner.calls, "open circuit blocks scanning")
	assert.Equal(t, lifecycle.StatusClosed, h.lifecycle.Get("BTC/USD").Status)
}

func TestRunCycle_AdmissionBlocksScanWhilePositionActive(t *testing.T) {
	h := newHarness(t, defaultConfig(), nil, nil)
	h.orch.RunCycle(context.Background(), t0)
	h.orch.RunCycle(context.Background(), t0.Add(5*time.Minute))

	assert.Equal(t, 1, h.scanner.calls)
	assert.Equal(t, lifecycle.StatusOpen, h.lifecycle.Get("BTC/USD").Status)
}

func TestRunCycle_CadencesRespectIntervals(t *testing.T) {
	h := newHarness(t, defaultConfig(), nil, nil)
	h.orch.RunCycle(context.Background(), t0)
	h.orch.RunCycle(context.Background(), t0.Add(30*time.Second))

	assert.Len(t, h.portfolio.History(), 2, "second check not due")

	h.orch.RunCycle(context.Background(), t0.Add(time.Minute))
	assert.Len(t, h.portfolio.History(), 3)
	assert.Equal(t, uint64(3), h.orch.Status().Cycles)
}

func TestRunCycle_DiscoversUniverse(t *testing.T) {
	cfg := defaultConfig()
	cfg.Pairs = nil
	h := newHarness(t, cfg, nil, nil)
	h.mock.SetPrice("ETH/USD", 50)
	h.mock.SetPrice("ETH/BTC", 0.05)

	h.orch.RunCycle(context.Background(), t0)

	require.Len(t, h.scanner.universes, 1)
	assert.Equal(t, []string{"BTC/USD", "ETH/USD"}, h.scanner.universes[0])
	assert.Equal(t, []string{"BTC/USD", "ETH/USD"}, h.orch.Status().Universe)
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := defaultConfig()
	cfg.PollInterval = time.Millisecond
	h := newHarness(t, cfg, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.orch.Run(ctx) }()

	require.Eventually(t, func() bool { return h.orch.Status().Running }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, h.orch.Status().Running)
	assert.NotNil(t, h.orch.LastScan())
}
