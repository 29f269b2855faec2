package report

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"roostoo-trading-bot/internal/notification"
	"roostoo-trading-bot/internal/risk"
)

// MetricsSource supplies the current portfolio snapshot
type MetricsSource interface {
	Metrics() risk.Metrics
}

// MetricsSink persists metrics snapshots
type MetricsSink interface {
	RecordMetrics(ctx context.Context, metrics risk.Metrics) error
}

// Notifier delivers the report text
type Notifier interface {
	Send(ctx context.Context, n *notification.Notification) error
}

// Reporter writes the metrics snapshot on a cron schedule
type Reporter struct {
	cron     *cron.Cron
	source   MetricsSource
	sink     MetricsSink
	notifier Notifier
	logger   zerolog.Logger

	mu      sync.Mutex
	runs    int
	lastRun time.Time
}

// New creates a reporter for schedule, a standard five field cron spec or a
// descriptor such as "@every 1h". sink and notifier may be nil.
func New(schedule string, source MetricsSource, sink MetricsSink, notifier Notifier, logger zerolog.Logger) (*Reporter, error) {
	r := &Reporter{
		cron:     cron.New(),
		source:   source,
		sink:     sink,
		notifier: notifier,
		logger:   logger.With().Str("component", "reporter").Logger(),
	}
	if _, err := r.cron.AddFunc(schedule, r.RunNow); err != nil {
		return nil, fmt.Errorf("register report schedule %q: %w", schedule, err)
	}
	return r, nil
}

// Start starts the cron scheduler
func (r *Reporter) Start() {
	r.cron.Start()
	r.logger.Info().Msg("Reporter started")
}

// Stop stops the scheduler and waits for a running report to finish
func (r *Reporter) Stop() {
	<-r.cron.Stop().Done()
	r.logger.Info().Msg("Reporter stopped")
}

// RunNow writes one report immediately
func (r *Reporter) RunNow() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	m := r.source.Metrics()

	if r.sink != nil {
		if err := r.sink.RecordMetrics(ctx, m); err != nil {
			r.logger.Warn().Err(err).Msg("Failed to persist metrics")
		}
	}

	r.logger.Info().
		Float64("value", m.CurrentValue).
		Float64("sharpe", m.SharpeRatio).
		Float64("sortino", m.SortinoRatio).
		Float64("calmar", m.CalmarRatio).
		Float64("composite", m.CompositeScore).
		Float64("max_drawdown", m.MaxDrawdown).
		Int("trades", m.TotalTrades).
		Msg("Portfolio report")

	if r.notifier != nil {
		n := &notification.Notification{
			Type:      notification.NotifyReport,
			Title:     "Portfolio report",
			Message:   Format(m),
			PnL:       m.RealizedPnL,
			Timestamp: m.Timestamp,
		}
		if err := r.notifier.Send(ctx, n); err != nil {
			r.logger.Warn().Err(err).Msg("Failed to send report")
		}
	}

	r.mu.Lock()
	r.runs++
	r.lastRun = time.Now()
	r.mu.Unlock()
}

// Runs returns how many reports were written
func (r *Reporter) Runs() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs
}

// Format renders metrics as a human-readable report
func Format(m risk.Metrics) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Portfolio value:   %.2f (initial %.2f, peak %.2f)\n", m.CurrentValue, m.InitialValue, m.PeakValue)
	fmt.Fprintf(&b, "Total return:      %.2f%%\n", m.TotalReturn*100)
	fmt.Fprintf(&b, "Realized PnL:      %.2f\n", m.RealizedPnL)
	fmt.Fprintf(&b, "Sharpe ratio:      %.4f\n", m.SharpeRatio)
	fmt.Fprintf(&b, "Sortino ratio:     %.4f\n", m.SortinoRatio)
	fmt.Fprintf(&b, "Calmar ratio:      %.4f\n", m.CalmarRatio)
	fmt.Fprintf(&b, "Composite score:   %.4f\n", m.CompositeScore)
	fmt.Fprintf(&b, "Max drawdown:      %.2f%%\n", m.MaxDrawdown*100)
	fmt.Fprintf(&b, "Current drawdown:  %.2f%%\n", m.CurrentDrawdown*100)

	winRate := 0.0
	if m.ClosedTrades > 0 {
		winRate = float64(m.WinningTrades) / float64(m.ClosedTrades) * 100
	}
	fmt.Fprintf(&b, "Trades:            %d (%d closed, %.1f%% winners)\n", m.TotalTrades, m.ClosedTrades, winRate)
	fmt.Fprintf(&b, "Samples:           %d", m.Samples)
	return b.String()
}
