package circuit

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// BreakerState represents the circuit breaker state
type BreakerState string

const (
	StateClosed   BreakerState = "closed"    // Normal operation
	StateOpen     BreakerState = "open"      // New entries halted
	StateHalfOpen BreakerState = "half_open" // Cooldown over, waiting for a winner
)

// Config holds circuit breaker configuration
type Config struct {
	Enabled              bool `json:"enabled"`
	MaxConsecutiveLosses int  `json:"max_consecutive_losses"` // Losing exits in a row before tripping
	CooldownMinutes      int  `json:"cooldown_minutes"`       // Halt duration after a trip
}

// DefaultConfig returns safe defaults
func DefaultConfig() Config {
	return Config{
		Enabled:              true,
		MaxConsecutiveLosses: 3,
		CooldownMinutes:      60,
	}
}

// CircuitBreaker halts new entries after a run of losing trades. Exits of
// open positions are never blocked.
type CircuitBreaker struct {
	config            Config
	state             BreakerState
	consecutiveLosses int
	totalTrips        int
	lastTripTime      time.Time
	tripReason        string
	onTrip            func(reason string, until time.Time)
	mu                sync.RWMutex
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(config Config) *CircuitBreaker {
	if config.MaxConsecutiveLosses <= 0 {
		config.MaxConsecutiveLosses = DefaultConfig().MaxConsecutiveLosses
	}
	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
	}
}

// OnTrip sets callback for when breaker trips
func (cb *CircuitBreaker) OnTrip(handler func(reason string, until time.Time)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onTrip = handler
}

func (cb *CircuitBreaker) cooldown() time.Duration {
	return time.Duration(cb.config.CooldownMinutes) * time.Minute
}

// CanTrade checks if a new entry is allowed at now
func (cb *CircuitBreaker) CanTrade(now time.Time) (bool, string) {
	if !cb.config.Enabled {
		return true, ""
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		elapsed := now.Sub(cb.lastTripTime)
		if elapsed < cb.cooldown() {
			remaining := cb.cooldown() - elapsed
			return false, fmt.Sprintf("circuit breaker open, cooldown remaining: %v (reason: %s)",
				remaining.Round(time.Second), cb.tripReason)
		}

		// Cooldown passed, allow a probing trade
		cb.state = StateHalfOpen
	}

	return true, ""
}

// RecordTrade records the realized PnL of a closed trade
func (cb *CircuitBreaker) RecordTrade(pnl float64, now time.Time) {
	if !cb.config.Enabled || math.IsNaN(pnl) || math.IsInf(pnl, 0) {
		return
	}

	cb.mu.Lock()

	if pnl < 0 {
		cb.consecutiveLosses++
	} else {
		cb.consecutiveLosses = 0
		if cb.state == StateHalfOpen {
			cb.state = StateClosed
		}
	}

	var (
		handler func(string, time.Time)
		reason  string
		until   time.Time
	)
	// A loss while half-open re-trips immediately
	if cb.consecutiveLosses >= cb.config.MaxConsecutiveLosses || (pnl < 0 && cb.state == StateHalfOpen) {
		reason = fmt.Sprintf("consecutive losses: %d", cb.consecutiveLosses)
		cb.trip(reason, now)
		handler = cb.onTrip
		until = now.Add(cb.cooldown())
	}
	cb.mu.Unlock()

	if handler != nil {
		handler(reason, until)
	}
}

// trip opens the circuit breaker
func (cb *CircuitBreaker) trip(reason string, now time.Time) {
	cb.state = StateOpen
	cb.lastTripTime = now
	cb.tripReason = reason
	cb.totalTrips++
}

// ForceReset manually resets the circuit breaker
func (cb *CircuitBreaker) ForceReset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.consecutiveLosses = 0
	cb.tripReason = ""
}

// GetState returns current breaker state
func (cb *CircuitBreaker) GetState() BreakerState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Stats is a snapshot of the breaker for reporting
type Stats struct {
	Enabled           bool         `json:"enabled"`
	State             BreakerState `json:"state"`
	ConsecutiveLosses int          `json:"consecutive_losses"`
	TotalTrips        int          `json:"total_trips"`
	TripReason        string       `json:"trip_reason,omitempty"`
	LastTripTime      time.Time    `json:"last_trip_time,omitempty"`
}

// GetStats returns current statistics
func (cb *CircuitBreaker) GetStats() Stats {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	return Stats{
		Enabled:           cb.config.Enabled,
		State:             cb.state,
		ConsecutiveLosses: cb.consecutiveLosses,
		TotalTrips:        cb.totalTrips,
		TripReason:        cb.tripReason,
		LastTripTime:      cb.lastTripTime,
	}
}
