package database

import (
	"context"
	"encoding/json"
	"fmt"

	"roostoo-trading-bot/internal/risk"
)

// PostgresJournal writes the trade log and metrics snapshots to PostgreSQL
type PostgresJournal struct {
	db *DB
}

// NewPostgresJournal creates a journal on an open database
func NewPostgresJournal(db *DB) *PostgresJournal {
	return &PostgresJournal{db: db}
}

// HealthCheck performs a database health check
func (r *PostgresJournal) HealthCheck(ctx context.Context) error {
	return r.db.Pool.Ping(ctx)
}

// RecordTrade inserts one trade log row
func (r *PostgresJournal) RecordTrade(ctx context.Context, trade risk.TradeRecord) error {
	query := `
		INSERT INTO trade_log (instrument, side, action, quantity, price, order_id, stop_loss, target,
			commission, risk_reward_ratio, pnl, reason, traded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.Pool.Exec(
		ctx, query,
		trade.Instrument, trade.Side, string(trade.Action), trade.Quantity, trade.Price, trade.OrderID,
		trade.StopLoss, trade.Target, trade.Commission, trade.RiskRewardRatio, trade.PnL, trade.Reason,
		trade.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert trade_log: %w", err)
	}
	return nil
}

// RecordMetrics inserts one metrics snapshot row
func (r *PostgresJournal) RecordMetrics(ctx context.Context, m risk.Metrics) error {
	snapshot, err := json.Marshal(m)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO portfolio_metrics (sharpe_ratio, sortino_ratio, calmar_ratio, composite_score,
			max_drawdown, current_drawdown, current_value, total_return, realized_pnl, total_trades,
			snapshot, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = r.db.Pool.Exec(
		ctx, query,
		m.SharpeRatio, m.SortinoRatio, m.CalmarRatio, m.CompositeScore,
		m.MaxDrawdown, m.CurrentDrawdown, m.CurrentValue, m.TotalReturn, m.RealizedPnL, m.TotalTrades,
		snapshot, m.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert portfolio_metrics: %w", err)
	}
	return nil
}

// Close releases the pool
func (r *PostgresJournal) Close() error {
	r.db.Close()
	return nil
}

// ReadTrades returns the trade log in trade order
func (r *PostgresJournal) ReadTrades(ctx context.Context) ([]risk.TradeRecord, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT instrument, side, action, quantity, price, COALESCE(order_id, ''),
			COALESCE(stop_loss, 0), COALESCE(target, 0), commission,
			COALESCE(risk_reward_ratio, 0), COALESCE(pnl, 0), COALESCE(reason, ''), traded_at
		FROM trade_log
		ORDER BY traded_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query trade_log: %w", err)
	}
	defer rows.Close()

	var trades []risk.TradeRecord
	for rows.Next() {
		var t risk.TradeRecord
		var action string
		if err := rows.Scan(
			&t.Instrument, &t.Side, &action, &t.Quantity, &t.Price, &t.OrderID,
			&t.StopLoss, &t.Target, &t.Commission, &t.RiskRewardRatio, &t.PnL, &t.Reason, &t.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan trade_log: %w", err)
		}
		t.Action = risk.TradeAction(action)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}
