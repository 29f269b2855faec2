package lifecycle

import (
	"time"

	"roostoo-trading-bot/internal/strategy"
)

// ExitReason explains how a position was closed
type ExitReason string

const (
	ExitStopLoss  ExitReason = "STOPPED_OUT"
	ExitTarget    ExitReason = "PROFIT_TAKEN"
	ExitCancelled ExitReason = "CANCELLED"
	ExitManual    ExitReason = "MANUAL"
)

// Transition is one entry in a position's audit trail
type Transition struct {
	From   Status    `json:"from"`
	To     Status    `json:"to"`
	At     time.Time `json:"at"`
	Reason string    `json:"reason,omitempty"`
}

// PositionState is the lifecycle record for one instrument. Exit data stays
// on the record after close until the instrument is re-armed by a new entry.
type PositionState struct {
	Instrument string             `json:"instrument"`
	Status     Status             `json:"status"`
	Direction  strategy.Direction `json:"direction,omitempty"`
	Size       float64            `json:"position_size"`
	EntryPrice float64            `json:"entry_price"`
	StopLoss   float64            `json:"stop_loss"`
	Target     float64            `json:"target"`
	PnL        float64            `json:"pnl"`
	OrderID    int64              `json:"order_id,omitempty"`
	EntryTime  time.Time          `json:"entry_time"`
	FilledAt   *time.Time         `json:"filled_at,omitempty"`
	ExitPrice  float64            `json:"exit_price,omitempty"`
	ExitTime   *time.Time         `json:"exit_time,omitempty"`
	ExitReason ExitReason         `json:"exit_reason,omitempty"`
	History    []Transition       `json:"history"`
}

// UnrealizedPnL marks an open position to price. Non-open positions return 0.
func (p PositionState) UnrealizedPnL(price float64) float64 {
	if p.Status != StatusOpen {
		return 0
	}
	return (price - p.EntryPrice) * p.Size * p.Direction.Sign()
}

func (p PositionState) clone() PositionState {
	p.History = append([]Transition(nil), p.History...)
	return p
}
