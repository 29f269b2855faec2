package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"roostoo-trading-bot/internal/strategy"
)

// Errors for lifecycle management
var (
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrPositionActive    = errors.New("instrument already has an active position")
	ErrPositionNotFound  = errors.New("no active position for instrument")
	ErrInvalidPosition   = errors.New("invalid position parameters")
)

// LevelHit is the outcome of comparing price against stop and target
type LevelHit int

const (
	HitNone LevelHit = iota
	HitStop
	HitTarget
)

func (h LevelHit) String() string {
	switch h {
	case HitStop:
		return "stop"
	case HitTarget:
		return "target"
	default:
		return "none"
	}
}

// OpenRequest describes a submitted entry order
type OpenRequest struct {
	Instrument string
	Direction  strategy.Direction
	Size       float64
	EntryPrice float64
	StopLoss   float64
	Target     float64
	OrderID    int64
	At         time.Time
}

// Controller drives each instrument through the trade lifecycle
type Controller struct {
	store  *Store
	logger zerolog.Logger
}

// NewController creates a controller over a fresh store
func NewController(logger zerolog.Logger) *Controller {
	return &Controller{
		store:  NewStore(),
		logger: logger.With().Str("component", "lifecycle").Logger(),
	}
}

// Store exposes the underlying state store
func (c *Controller) Store() *Store {
	return c.store
}

// Get returns the instrument's current record
func (c *Controller) Get(instrument string) PositionState {
	return c.store.Get(instrument)
}

// IsClosed reports whether the instrument can accept a new entry
func (c *Controller) IsClosed(instrument string) bool {
	return c.store.Get(instrument).Status == StatusClosed
}

// Active returns every pending or open position
func (c *Controller) Active() []PositionState {
	var active []PositionState
	c.store.Each(func(p PositionState) {
		if p.Status.IsActive() {
			active = append(active, p)
		}
	})
	return active
}

// ActiveCount returns the number of pending or open positions
func (c *Controller) ActiveCount() int {
	return len(c.Active())
}

// Open re-arms a CLOSED instrument with a submitted entry order
func (c *Controller) Open(req OpenRequest) (PositionState, error) {
	if req.Size <= 0 || req.EntryPrice <= 0 {
		return PositionState{}, fmt.Errorf("%w: size=%f entry=%f", ErrInvalidPosition, req.Size, req.EntryPrice)
	}

	current := c.store.Get(req.Instrument)
	if current.Status != StatusClosed {
		return current, fmt.Errorf("%w: %s is %s", ErrPositionActive, req.Instrument, current.Status)
	}

	to := StatusPendingBuy
	if req.Direction == strategy.Bearish {
		to = StatusPendingSell
	}

	// Previous exit data is discarded on re-arm
	next := PositionState{
		Instrument: req.Instrument,
		Status:     StatusClosed,
		Direction:  req.Direction,
		Size:       req.Size,
		EntryPrice: req.EntryPrice,
		StopLoss:   req.StopLoss,
		Target:     req.Target,
		OrderID:    req.OrderID,
		EntryTime:  req.At,
	}
	if err := transition(&next, to, "entry order submitted", req.At); err != nil {
		return current, err
	}
	c.store.Set(next)

	c.logger.Info().
		Str("instrument", req.Instrument).
		Str("status", string(to)).
		Float64("size", req.Size).
		Float64("entry", req.EntryPrice).
		Float64("stop", req.StopLoss).
		Float64("target", req.Target).
		Msg("Position armed")

	return next, nil
}

// ConfirmFill moves a pending position to OPEN once at least one fill is reported.
// Zero fills leave the position pending.
func (c *Controller) ConfirmFill(instrument string, fills int, at time.Time) (PositionState, error) {
	p := c.store.Get(instrument)
	if !p.Status.IsPending() {
		return p, fmt.Errorf("%w: confirm fill while %s", ErrIllegalTransition, p.Status)
	}
	if fills < 1 {
		return p, nil
	}

	if err := transition(&p, StatusOpen, fmt.Sprintf("%d fill(s) matched", fills), at); err != nil {
		return p, err
	}
	p.FilledAt = &at
	c.store.Set(p)

	c.logger.Info().Str("instrument", instrument).Msg("Entry filled, position open")
	return p, nil
}

// CheckLevels compares price against the stop and target of an active position.
// Bullish stops trigger at or below the stop and targets at or above the target;
// bearish comparisons are inverted.
func (c *Controller) CheckLevels(instrument string, price float64) LevelHit {
	p := c.store.Get(instrument)
	if !p.Status.IsActive() {
		return HitNone
	}

	if p.Direction == strategy.Bearish {
		switch {
		case price >= p.StopLoss:
			return HitStop
		case price <= p.Target:
			return HitTarget
		}
		return HitNone
	}

	switch {
	case price <= p.StopLoss:
		return HitStop
	case price >= p.Target:
		return HitTarget
	}
	return HitNone
}

// Close exits an open position at exitPrice and records realized PnL.
// Stop and target exits pass through their terminal status before CLOSED.
// Pending entries hold no fill and leave through Cancel.
func (c *Controller) Close(instrument string, exitPrice float64, hit LevelHit, at time.Time) (PositionState, error) {
	p := c.store.Get(instrument)
	switch {
	case p.Status.IsPending():
		return p, fmt.Errorf("%w: close while %s", ErrIllegalTransition, p.Status)
	case p.Status != StatusOpen:
		return p, fmt.Errorf("%w: %s is %s", ErrPositionNotFound, instrument, p.Status)
	}

	reason := ExitManual
	switch hit {
	case HitStop:
		reason = ExitStopLoss
		if err := transition(&p, StatusStoppedOut, "stop loss hit", at); err != nil {
			return p, err
		}
	case HitTarget:
		reason = ExitTarget
		if err := transition(&p, StatusProfitTaken, "target reached", at); err != nil {
			return p, err
		}
	}

	if err := transition(&p, StatusClosed, "exit order submitted", at); err != nil {
		return p, err
	}

	p.PnL = (exitPrice - p.EntryPrice) * p.Size * p.Direction.Sign()
	p.ExitPrice = exitPrice
	p.ExitTime = &at
	p.ExitReason = reason
	c.store.Set(p)

	c.logger.Info().
		Str("instrument", instrument).
		Str("reason", string(reason)).
		Float64("exit", exitPrice).
		Float64("pnl", p.PnL).
		Msg("Position closed")

	return p, nil
}

// Cancel returns a pending position to CLOSED without PnL
func (c *Controller) Cancel(instrument, why string, at time.Time) (PositionState, error) {
	p := c.store.Get(instrument)
	if !p.Status.IsPending() {
		return p, fmt.Errorf("%w: cancel while %s", ErrIllegalTransition, p.Status)
	}

	if err := transition(&p, StatusClosed, why, at); err != nil {
		return p, err
	}
	p.PnL = 0
	p.ExitTime = &at
	p.ExitReason = ExitCancelled
	c.store.Set(p)

	c.logger.Info().Str("instrument", instrument).Str("reason", why).Msg("Pending entry cancelled")
	return p, nil
}

// transition applies a status change after checking the transition table
func transition(p *PositionState, to Status, reason string, at time.Time) error {
	if !CanTransition(p.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, p.Status, to)
	}
	p.History = append(p.History, Transition{From: p.Status, To: to, At: at, Reason: reason})
	p.Status = to
	return nil
}
