package risk

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config holds portfolio risk configuration
type Config struct {
	InitialCapital      float64 // Seed value of the portfolio history
	RiskPerTrade        float64 // Fraction of balance risked per trade
	MaxPositionFraction float64 // Max fraction of balance committed to one position
	MaxOpenPositions    int     // Maximum concurrent positions
	MaxDrawdown         float64 // Max drawdown from peak before new entries are refused
	CommissionRate      float64 // Fee charged per fill, as a fraction of notional
}

// TradeAction distinguishes entries from exits in the trade log
type TradeAction string

const (
	ActionEntry TradeAction = "entry"
	ActionExit  TradeAction = "exit"
)

// TradeRecord is one line of the append-only trade log
type TradeRecord struct {
	Timestamp       time.Time   `json:"timestamp"`
	Instrument      string      `json:"instrument"`
	Side            string      `json:"side"`
	Action          TradeAction `json:"action"`
	Quantity        float64     `json:"quantity"`
	Price           float64     `json:"price"`
	OrderID         string      `json:"order_id"`
	StopLoss        float64     `json:"stop_loss"`
	Target          float64     `json:"target"`
	Commission      float64     `json:"commission"`
	RiskRewardRatio float64     `json:"risk_reward_ratio"`
	PnL             float64     `json:"pnl,omitempty"`
	Reason          string      `json:"reason,omitempty"`
}

// ValueSample is one point of the portfolio value history
type ValueSample struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Metrics is the portfolio performance snapshot
type Metrics struct {
	SharpeRatio     float64   `json:"sharpe_ratio"`
	SortinoRatio    float64   `json:"sortino_ratio"`
	CalmarRatio     float64   `json:"calmar_ratio"`
	CompositeScore  float64   `json:"composite_score"`
	MaxDrawdown     float64   `json:"max_drawdown"`
	CurrentDrawdown float64   `json:"current_drawdown"`
	MeanReturn      float64   `json:"mean_return"`
	ReturnStdDev    float64   `json:"return_std_dev"`
	InitialValue    float64   `json:"initial_value"`
	CurrentValue    float64   `json:"current_value"`
	PeakValue       float64   `json:"peak_value"`
	TotalReturn     float64   `json:"total_return"`
	RealizedPnL     float64   `json:"realized_pnl"`
	TotalTrades     int       `json:"total_trades"`
	ClosedTrades    int       `json:"closed_trades"`
	WinningTrades   int       `json:"winning_trades"`
	Samples         int       `json:"samples"`
	Timestamp       time.Time `json:"timestamp"`
}

// PortfolioManager owns the portfolio value history and trade log and gates
// new position admission
type PortfolioManager struct {
	config      Config
	history     []ValueSample
	trades      []TradeRecord
	realizedPnL float64
	logger      zerolog.Logger
	mu          sync.RWMutex
}

// NewPortfolioManager creates a manager whose history is seeded with the initial capital
func NewPortfolioManager(config Config, logger zerolog.Logger) *PortfolioManager {
	return &PortfolioManager{
		config:  config,
		history: []ValueSample{{Timestamp: time.Now(), Value: config.InitialCapital}},
		logger:  logger.With().Str("component", "portfolio").Logger(),
	}
}

// Config returns the risk configuration
func (pm *PortfolioManager) Config() Config {
	return pm.config
}

// RecordValue appends a portfolio value sample
func (pm *PortfolioManager) RecordValue(value float64, at time.Time) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.history = append(pm.history, ValueSample{Timestamp: at, Value: value})
}

// RecordTrade appends to the trade log. Every fill's commission and every
// exit's PnL accumulate into realized PnL.
func (pm *PortfolioManager) RecordTrade(record TradeRecord) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.trades = append(pm.trades, record)
	pm.realizedPnL += record.PnL - record.Commission
}

// Commission returns the fee for a fill of quantity at price
func (pm *PortfolioManager) Commission(price, quantity float64) float64 {
	return price * quantity * pm.config.CommissionRate
}

// RealizedPnL returns the net realized profit after commissions
func (pm *PortfolioManager) RealizedPnL() float64 {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.realizedPnL
}

// History returns a copy of the value history
func (pm *PortfolioManager) History() []ValueSample {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	out := make([]ValueSample, len(pm.history))
	copy(out, pm.history)
	return out
}

// TradeLog returns a copy of the trade log
func (pm *PortfolioManager) TradeLog() []TradeRecord {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	out := make([]TradeRecord, len(pm.trades))
	copy(out, pm.trades)
	return out
}

// Metrics computes the current performance snapshot
func (pm *PortfolioManager) Metrics() Metrics {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	values := make([]float64, len(pm.history))
	for i, s := range pm.history {
		values[i] = s.Value
	}

	m := ComputeMetrics(values)
	m.RealizedPnL = pm.realizedPnL
	m.TotalTrades = len(pm.trades)
	for _, t := range pm.trades {
		if t.Action != ActionExit {
			continue
		}
		m.ClosedTrades++
		if t.PnL > 0 {
			m.WinningTrades++
		}
	}
	m.Timestamp = time.Now()
	return m
}

// CanOpenPosition checks whether a new position may be opened given the
// current number of open positions
func (pm *PortfolioManager) CanOpenPosition(openCount int) (bool, string) {
	if openCount >= pm.config.MaxOpenPositions {
		reason := fmt.Sprintf("max positions reached (%d/%d)", openCount, pm.config.MaxOpenPositions)
		pm.logger.Info().Str("reason", reason).Msg("Position admission refused")
		return false, reason
	}

	pm.mu.RLock()
	values := make([]float64, len(pm.history))
	for i, s := range pm.history {
		values[i] = s.Value
	}
	pm.mu.RUnlock()

	if _, current := Drawdowns(values); current > pm.config.MaxDrawdown {
		reason := fmt.Sprintf("drawdown limit reached (%.2f%% > %.2f%%)", current*100, pm.config.MaxDrawdown*100)
		pm.logger.Warn().Str("reason", reason).Msg("Position admission refused")
		return false, reason
	}

	return true, ""
}

// ReplayTradeLog rebuilds a portfolio from a persisted trade log. Each record
// yields one value sample of initial capital plus realized PnL.
func ReplayTradeLog(initialCapital float64, trades []TradeRecord) Metrics {
	pm := NewPortfolioManager(Config{InitialCapital: initialCapital}, zerolog.Nop())
	for _, t := range trades {
		pm.RecordTrade(t)
		pm.RecordValue(initialCapital+pm.RealizedPnL(), t.Timestamp)
	}
	return pm.Metrics()
}
