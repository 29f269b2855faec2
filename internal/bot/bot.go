package bot

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"roostoo-trading-bot/internal/circuit"
	"roostoo-trading-bot/internal/database"
	"roostoo-trading-bot/internal/events"
	"roostoo-trading-bot/internal/lifecycle"
	"roostoo-trading-bot/internal/logging"
	"roostoo-trading-bot/internal/risk"
	"roostoo-trading-bot/internal/roostoo"
	"roostoo-trading-bot/internal/scanner"
	"roostoo-trading-bot/internal/strategy"
)

// Config holds orchestrator cadence and universe settings
type Config struct {
	Pairs                 []string // empty means every tradeable pair in QuoteCurrency
	QuoteCurrency         string
	ScanInterval          time.Duration
	PositionCheckInterval time.Duration
	PollInterval          time.Duration
	DryRun                bool
}

// PriceFeed quotes the last traded price of an instrument
type PriceFeed interface {
	FetchPrice(ctx context.Context, instrument string) (float64, error)
}

// OpportunityScanner ranks the universe
type OpportunityScanner interface {
	Scan(ctx context.Context, universe []string, eligible func(instrument string) bool) *scanner.ScanResult
	GetLastResult() *scanner.ScanResult
}

// Deps are the collaborators of the orchestrator. Breaker, Journal and
// Events are optional.
type Deps struct {
	Exchange  roostoo.Exchange
	Prices    PriceFeed
	Scanner   OpportunityScanner
	Lifecycle *lifecycle.Controller
	Portfolio *risk.PortfolioManager
	Breaker   *circuit.CircuitBreaker
	Journal   database.Journal
	Events    *events.EventBus
}

// Stats counts order submissions
type Stats struct {
	TotalOrders      int `json:"total_orders"`
	SuccessfulOrders int `json:"successful_orders"`
	FailedOrders     int `json:"failed_orders"`
}

// Status is the orchestrator snapshot served by the reporting API
type Status struct {
	Running         bool          `json:"running"`
	DryRun          bool          `json:"dry_run"`
	StartedAt       *time.Time    `json:"started_at,omitempty"`
	Cycles          uint64        `json:"cycles"`
	LastScan        *time.Time    `json:"last_scan,omitempty"`
	LastCheck       *time.Time    `json:"last_position_check,omitempty"`
	Universe        []string      `json:"universe"`
	ActivePositions int           `json:"active_positions"`
	Orders          Stats         `json:"orders"`
	Circuit         circuit.Stats `json:"circuit"`
}

// Orchestrator runs the position check and scan cadences in one cooperative
// cycle. Cycles never overlap.
type Orchestrator struct {
	deps   Deps
	config Config
	logger zerolog.Logger

	cycleMu sync.Mutex     // serializes RunCycle
	clog    zerolog.Logger // logger of the running cycle

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
	cycles    uint64
	lastScan  time.Time
	lastCheck time.Time
	stats     Stats
	universe  []string
	pairs     map[string]roostoo.PairInfo
}

// NewOrchestrator creates the orchestrator
func NewOrchestrator(deps Deps, config Config, logger zerolog.Logger) (*Orchestrator, error) {
	if deps.Exchange == nil || deps.Prices == nil || deps.Scanner == nil || deps.Lifecycle == nil || deps.Portfolio == nil {
		return nil, fmt.Errorf("orchestrator: exchange, prices, scanner, lifecycle and portfolio are required")
	}
	if config.QuoteCurrency == "" {
		config.QuoteCurrency = "USD"
	}
	if config.ScanInterval <= 0 {
		config.ScanInterval = 5 * time.Minute
	}
	if config.PositionCheckInterval <= 0 {
		config.PositionCheckInterval = time.Minute
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 10 * time.Second
	}

	return &Orchestrator{
		deps:   deps,
		config: config,
		logger: logger.With().Str("component", "bot").Logger(),
		clog:   logger.With().Str("component", "bot").Logger(),
	}, nil
}

// Run drives RunCycle every PollInterval until ctx is cancelled. A cycle in
// progress completes before Run returns.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.mu.Lock()
	o.running = true
	o.startedAt = time.Now()
	o.mu.Unlock()

	o.logger.Info().
		Bool("dry_run", o.config.DryRun).
		Dur("scan_interval", o.config.ScanInterval).
		Dur("check_interval", o.config.PositionCheckInterval).
		Dur("poll_interval", o.config.PollInterval).
		Msg("Trading bot started")
	o.publish(func(bus *events.EventBus) { bus.PublishBotStatus(true) })

	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
		o.publish(func(bus *events.EventBus) { bus.PublishBotStatus(false) })
		o.logger.Info().Msg("Trading bot stopped")
	}()

	ticker := time.NewTicker(o.config.PollInterval)
	defer ticker.Stop()

	cycleCtx := context.WithoutCancel(ctx)
	o.RunCycle(cycleCtx, time.Now())

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			o.RunCycle(cycleCtx, now)
		}
	}
}

// RunCycle runs each cadence whose interval has elapsed. Positions are
// checked before the scan so exits free capacity first.
func (o *Orchestrator) RunCycle(ctx context.Context, now time.Time) {
	o.cycleMu.Lock()
	defer o.cycleMu.Unlock()

	o.mu.Lock()
	o.cycles++
	o.clog = logging.CycleContext(o.logger, o.cycles)
	checkDue := o.lastCheck.IsZero() || now.Sub(o.lastCheck) >= o.config.PositionCheckInterval
	scanDue := o.lastScan.IsZero() || now.Sub(o.lastScan) >= o.config.ScanInterval
	o.mu.Unlock()

	if checkDue {
		o.checkPositions(ctx, now)
		o.mu.Lock()
		o.lastCheck = now
		o.mu.Unlock()
	}
	if scanDue {
		o.scanAndEnter(ctx, now)
		o.mu.Lock()
		o.lastScan = now
		o.mu.Unlock()
	}
}

// checkPositions confirms fills, applies stop and target exits, and appends
// a portfolio value sample
func (o *Orchestrator) checkPositions(ctx context.Context, now time.Time) {
	unrealized := 0.0

	for _, p := range o.deps.Lifecycle.Active() {
		log := logging.PositionContext(o.clog, p.Instrument, string(p.Direction), p.EntryPrice, p.Size).
			With().Str("status", string(p.Status)).Logger()

		price, err := o.deps.Prices.FetchPrice(ctx, p.Instrument)
		if err != nil {
			log.Warn().Err(err).Msg("Price unavailable, skipping position check")
			continue
		}

		if p.Status.IsPending() {
			p = o.confirmFill(ctx, p, now)
		}

		hit := o.deps.Lifecycle.CheckLevels(p.Instrument, price)
		if hit == lifecycle.HitNone {
			unrealized += p.UnrealizedPnL(price)
			continue
		}

		log.Info().Str("level", hit.String()).Float64("price", price).Msg("Level hit")

		if p.Status.IsPending() {
			o.cancelEntry(ctx, p, hit, now)
			continue
		}
		if !o.exitPosition(ctx, p, price, hit, now) {
			unrealized += p.UnrealizedPnL(price)
		}
	}

	value := o.deps.Portfolio.Config().InitialCapital + o.deps.Portfolio.RealizedPnL() + unrealized
	o.deps.Portfolio.RecordValue(value, now)

	m := o.deps.Portfolio.Metrics()
	o.publish(func(bus *events.EventBus) {
		bus.PublishPortfolioUpdate(value, m.CurrentDrawdown, m.CompositeScore)
	})
}

// confirmFill queries the entry order and moves the position to OPEN once it executed
func (o *Orchestrator) confirmFill(ctx context.Context, p lifecycle.PositionState, now time.Time) lifecycle.PositionState {
	orders, err := o.deps.Exchange.QueryOrders(ctx, p.Instrument, false)
	if err != nil {
		o.clog.Warn().Err(err).Str("instrument", p.Instrument).Msg("Order status unavailable")
		return p
	}

	var fills []roostoo.OrderDetail
	for _, order := range roostoo.Fills(orders) {
		if p.OrderID == 0 || order.OrderID == p.OrderID {
			fills = append(fills, order)
		}
	}
	if len(fills) == 0 {
		return p
	}

	updated, err := o.deps.Lifecycle.ConfirmFill(p.Instrument, len(fills), now)
	if err != nil {
		o.clog.Error().Err(err).Str("instrument", p.Instrument).Msg("Failed to confirm fill")
		return p
	}

	fill := fills[0]
	o.publish(func(bus *events.EventBus) {
		bus.PublishOrderFilled(fill.OrderID, p.Instrument, fill.FillPrice(), fill.FilledQuantity)
	})
	return updated
}

// cancelEntry withdraws an unfilled entry whose stop or target was reached
// first. A failed cancel leaves the position pending for the next check.
func (o *Orchestrator) cancelEntry(ctx context.Context, p lifecycle.PositionState, hit lifecycle.LevelHit, now time.Time) {
	if p.OrderID != 0 {
		if err := o.deps.Exchange.CancelOrder(ctx, p.OrderID); err != nil {
			o.clog.Warn().Err(err).Str("instrument", p.Instrument).Int64("order_id", p.OrderID).Msg("Cancel failed, position stays pending")
			return
		}
	}

	reason := fmt.Sprintf("%s reached before entry filled", hit)
	if _, err := o.deps.Lifecycle.Cancel(p.Instrument, reason, now); err != nil {
		o.clog.Error().Err(err).Str("instrument", p.Instrument).Msg("Failed to cancel position")
		return
	}
	o.publish(func(bus *events.EventBus) { bus.PublishOrderCancelled(p.OrderID, p.Instrument, reason) })
}

// exitPosition submits the closing market order and settles the position.
// Returns false when the order failed and the position stays OPEN.
func (o *Orchestrator) exitPosition(ctx context.Context, p lifecycle.PositionState, price float64, hit lifecycle.LevelHit, now time.Time) bool {
	side := p.Direction.ExitSide()
	order, err := o.submitOrder(ctx, roostoo.OrderRequest{
		Pair:     p.Instrument,
		Side:     side,
		Type:     roostoo.OrderTypeMarket,
		Quantity: p.Size,
	})
	if err != nil {
		return false
	}

	exitPrice := price
	if fp := order.FillPrice(); fp > 0 {
		exitPrice = fp
	}

	closed, err := o.deps.Lifecycle.Close(p.Instrument, exitPrice, hit, now)
	if err != nil {
		o.clog.Error().Err(err).Str("instrument", p.Instrument).Msg("Failed to close position")
		return false
	}

	commission := o.deps.Portfolio.Commission(exitPrice, closed.Size)
	o.recordTrade(ctx, risk.TradeRecord{
		Timestamp:  now,
		Instrument: p.Instrument,
		Side:       side,
		Action:     risk.ActionExit,
		Quantity:   closed.Size,
		Price:      exitPrice,
		OrderID:    strconv.FormatInt(order.OrderID, 10),
		StopLoss:   closed.StopLoss,
		Target:     closed.Target,
		Commission: commission,
		PnL:        closed.PnL,
		Reason:     string(closed.ExitReason),
	})

	if o.deps.Breaker != nil {
		o.deps.Breaker.RecordTrade(closed.PnL-commission, now)
	}
	o.publish(func(bus *events.EventBus) {
		bus.PublishTradeClosed(p.Instrument, string(closed.ExitReason), closed.EntryPrice, exitPrice, closed.Size, closed.PnL)
	})
	return true
}

// scanAndEnter runs admission, scans the universe and enters the top opportunity
func (o *Orchestrator) scanAndEnter(ctx context.Context, now time.Time) {
	if ok, reason := o.deps.Portfolio.CanOpenPosition(o.deps.Lifecycle.ActiveCount()); !ok {
		o.clog.Debug().Str("reason", reason).Msg("Scan skipped")
		return
	}
	if o.deps.Breaker != nil {
		if ok, reason := o.deps.Breaker.CanTrade(now); !ok {
			o.clog.Info().Str("reason", reason).Msg("Scan skipped, circuit open")
			return
		}
	}

	universe := o.resolveUniverse(ctx)
	if len(universe) == 0 {
		o.clog.Warn().Msg("Empty trading universe, nothing to scan")
		return
	}

	result := o.deps.Scanner.Scan(ctx, universe, o.deps.Lifecycle.IsClosed)
	o.publish(func(bus *events.EventBus) {
		bus.Publish(events.Event{
			Type: events.EventScanCompleted,
			Data: map[string]interface{}{
				"scan_id":       result.ScanID,
				"scanned":       result.InstrumentsScanned,
				"opportunities": len(result.Results),
				"skipped":       len(result.Skipped),
			},
		})
	})

	opp := scanner.Select(result)
	if opp == nil {
		o.clog.Info().Msg("No opportunity above confidence threshold")
		return
	}

	setup := opp.Setup()
	o.publish(func(bus *events.EventBus) {
		bus.PublishSignal(opp.Instrument, string(setup.Direction), setup.EntryPrice, setup.StopLoss, setup.Target, opp.BestScore)
	})

	price, err := o.deps.Prices.FetchPrice(ctx, opp.Instrument)
	if err != nil {
		if opp.CurrentPrice <= 0 {
			o.clog.Warn().Err(err).Str("instrument", opp.Instrument).Msg("Price unavailable, entry skipped")
			return
		}
		price = opp.CurrentPrice
	}
	if reason := staleSetup(setup, price); reason != "" {
		o.clog.Info().
			Str("instrument", opp.Instrument).
			Float64("price", price).
			Float64("stop", setup.StopLoss).
			Float64("target", setup.Target).
			Msgf("Setup stale, %s, entry skipped", reason)
		return
	}

	balances, err := o.deps.Exchange.GetBalance(ctx)
	if err != nil {
		o.clog.Warn().Err(err).Msg("Balance unavailable, entry skipped")
		return
	}
	available := balances[o.config.QuoteCurrency].Available

	rc := o.deps.Portfolio.Config()
	size := strategy.PositionSize(available, rc.RiskPerTrade, setup.EntryPrice, setup.StopLoss, rc.MaxPositionFraction)
	size = o.roundQuantity(opp.Instrument, size)
	if size <= 0 {
		o.clog.Info().Str("instrument", opp.Instrument).Float64("balance", available).Msg("Position size is zero, entry skipped")
		return
	}
	if info, ok := o.pairInfo(opp.Instrument); ok && info.MiniOrder > 0 && size*setup.EntryPrice < info.MiniOrder {
		o.clog.Info().Str("instrument", opp.Instrument).Float64("notional", size*setup.EntryPrice).Msg("Order below exchange minimum, entry skipped")
		return
	}

	// The entry rests as a limit at the sized price, so a fill is never
	// worse than the risk budget assumed
	side := setup.Direction.Side()
	limit := o.roundPrice(opp.Instrument, setup.EntryPrice)
	order, err := o.submitOrder(ctx, roostoo.OrderRequest{
		Pair:     opp.Instrument,
		Side:     side,
		Type:     roostoo.OrderTypeLimit,
		Quantity: size,
		Price:    limit,
	})
	if err != nil {
		return
	}

	entryPrice := limit
	if fp := order.FillPrice(); fp > 0 {
		entryPrice = fp
	}

	if _, err := o.deps.Lifecycle.Open(lifecycle.OpenRequest{
		Instrument: opp.Instrument,
		Direction:  setup.Direction,
		Size:       size,
		EntryPrice: entryPrice,
		StopLoss:   setup.StopLoss,
		Target:     setup.Target,
		OrderID:    order.OrderID,
		At:         now,
	}); err != nil {
		o.clog.Error().Err(err).Str("instrument", opp.Instrument).Msg("Failed to arm position")
		return
	}

	o.recordTrade(ctx, risk.TradeRecord{
		Timestamp:       now,
		Instrument:      opp.Instrument,
		Side:            side,
		Action:          risk.ActionEntry,
		Quantity:        size,
		Price:           entryPrice,
		OrderID:         strconv.FormatInt(order.OrderID, 10),
		StopLoss:        setup.StopLoss,
		Target:          setup.Target,
		Commission:      o.deps.Portfolio.Commission(entryPrice, size),
		RiskRewardRatio: setup.RiskRewardRatio,
		Reason:          fmt.Sprintf("score %.1f", opp.BestScore),
	})

	o.publish(func(bus *events.EventBus) {
		bus.PublishTradeOpened(opp.Instrument, string(setup.Direction), entryPrice, size, setup.StopLoss, setup.Target)
	})
}

// submitOrder places an order and keeps the order statistics
func (o *Orchestrator) submitOrder(ctx context.Context, req roostoo.OrderRequest) (*roostoo.OrderDetail, error) {
	order, err := o.deps.Exchange.PlaceOrder(ctx, req)

	o.mu.Lock()
	o.stats.TotalOrders++
	if err != nil {
		o.stats.FailedOrders++
	} else {
		o.stats.SuccessfulOrders++
	}
	o.mu.Unlock()

	if err != nil {
		o.clog.Error().Err(err).
			Str("instrument", req.Pair).
			Str("side", req.Side).
			Float64("quantity", req.Quantity).
			Msg("Order failed")
		o.publish(func(bus *events.EventBus) { bus.PublishOrderFailed(req.Pair, req.Side, req.Quantity, err) })
		return nil, err
	}

	olog := logging.OrderContext(o.clog, order.OrderID, req.Pair, req.Side, req.Type)
	olog.Info().
		Float64("quantity", req.Quantity).
		Str("status", order.Status).
		Msg("Order placed")
	o.publish(func(bus *events.EventBus) {
		bus.PublishOrderPlaced(order.OrderID, req.Pair, req.Type, req.Side, order.FillPrice(), req.Quantity)
	})
	return order, nil
}

// recordTrade appends to the portfolio trade log and the journal
func (o *Orchestrator) recordTrade(ctx context.Context, record risk.TradeRecord) {
	o.deps.Portfolio.RecordTrade(record)
	if o.deps.Journal == nil {
		return
	}
	if err := o.deps.Journal.RecordTrade(ctx, record); err != nil {
		o.clog.Warn().Err(err).Str("instrument", record.Instrument).Msg("Journal write failed")
	}
}

// resolveUniverse returns the configured pairs, or discovers the tradeable
// pairs from exchange info on first use
func (o *Orchestrator) resolveUniverse(ctx context.Context) []string {
	o.mu.RLock()
	universe, loaded := o.universe, o.pairs != nil
	o.mu.RUnlock()
	if universe != nil && loaded {
		return universe
	}

	info, err := o.deps.Exchange.GetExchangeInfo(ctx)
	if err != nil {
		o.clog.Warn().Err(err).Msg("Exchange info unavailable")
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if info != nil {
		o.pairs = info.TradePairs
		if o.pairs == nil {
			o.pairs = map[string]roostoo.PairInfo{}
		}
	}
	switch {
	case len(o.config.Pairs) > 0:
		o.universe = append([]string(nil), o.config.Pairs...)
	case info != nil:
		o.universe = roostoo.TradeablePairs(info, o.config.QuoteCurrency)
		sort.Strings(o.universe)
		o.clog.Info().Int("pairs", len(o.universe)).Msg("Trading universe discovered")
	}
	return o.universe
}

func (o *Orchestrator) pairInfo(pair string) (roostoo.PairInfo, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	info, ok := o.pairs[pair]
	return info, ok
}

// roundQuantity floors size to the pair's amount precision when known
func (o *Orchestrator) roundQuantity(pair string, size float64) float64 {
	info, ok := o.pairInfo(pair)
	if !ok || info.AmountPrecision <= 0 {
		return size
	}
	scale := math.Pow10(info.AmountPrecision)
	return math.Floor(size*scale) / scale
}

func (o *Orchestrator) roundPrice(pair string, price float64) float64 {
	info, ok := o.pairInfo(pair)
	if !ok || info.PricePrecision <= 0 {
		return price
	}
	scale := math.Pow10(info.PricePrecision)
	return math.Round(price*scale) / scale
}

// staleSetup reports why price has already moved through the stop or
// target of setup, or "" when the setup can still be entered
func staleSetup(setup strategy.Setup, price float64) string {
	if setup.Direction == strategy.Bearish {
		switch {
		case price >= setup.StopLoss:
			return "price at or above stop"
		case price <= setup.Target:
			return "price at or below target"
		}
		return ""
	}
	switch {
	case price <= setup.StopLoss:
		return "price at or below stop"
	case price >= setup.Target:
		return "price at or above target"
	}
	return ""
}

func (o *Orchestrator) publish(fn func(bus *events.EventBus)) {
	if o.deps.Events != nil {
		fn(o.deps.Events)
	}
}

// ---------------------------------------------------------------------------
// Read-only accessors for the reporting API and reporter
// ---------------------------------------------------------------------------

// Status returns the orchestrator snapshot
func (o *Orchestrator) Status() Status {
	o.mu.RLock()
	s := Status{
		Running:  o.running,
		DryRun:   o.config.DryRun,
		Cycles:   o.cycles,
		Universe: append([]string(nil), o.universe...),
		Orders:   o.stats,
	}
	if !o.startedAt.IsZero() {
		t := o.startedAt
		s.StartedAt = &t
	}
	if !o.lastScan.IsZero() {
		t := o.lastScan
		s.LastScan = &t
	}
	if !o.lastCheck.IsZero() {
		t := o.lastCheck
		s.LastCheck = &t
	}
	o.mu.RUnlock()

	s.ActivePositions = o.deps.Lifecycle.ActiveCount()
	if o.deps.Breaker != nil {
		s.Circuit = o.deps.Breaker.GetStats()
	}
	return s
}

// Stats returns the order statistics
func (o *Orchestrator) Stats() Stats {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.stats
}

// Metrics returns the portfolio performance snapshot
func (o *Orchestrator) Metrics() risk.Metrics {
	return o.deps.Portfolio.Metrics()
}

// History returns the portfolio value history
func (o *Orchestrator) History() []risk.ValueSample {
	return o.deps.Portfolio.History()
}

// Positions returns every instrument record known to the lifecycle store
func (o *Orchestrator) Positions() []lifecycle.PositionState {
	return o.deps.Lifecycle.Store().All()
}

// TradeLog returns the trade log
func (o *Orchestrator) TradeLog() []risk.TradeRecord {
	return o.deps.Portfolio.TradeLog()
}

// LastScan returns the most recent scan result, or nil before the first scan
func (o *Orchestrator) LastScan() *scanner.ScanResult {
	return o.deps.Scanner.GetLastResult()
}
