package circuit

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestBreakerTripsAfterConsecutiveLosses(t *testing.T) {
	cb := NewCircuitBreaker(Config{Enabled: true, MaxConsecutiveLosses: 3, CooldownMinutes: 30})

	var tripped string
	cb.OnTrip(func(reason string, until time.Time) {
		tripped = reason
		assert.Equal(t, t0.Add(30*time.Minute), until)
	})

	cb.RecordTrade(-1, t0)
	cb.RecordTrade(-1, t0)
	ok, _ := cb.CanTrade(t0)
	assert.True(t, ok)

	cb.RecordTrade(-1, t0)
	assert.Equal(t, "consecutive losses: 3", tripped)
	assert.Equal(t, StateOpen, cb.GetState())

	ok, reason := cb.CanTrade(t0.Add(10 * time.Minute))
	assert.False(t, ok)
	assert.Contains(t, reason, "cooldown remaining: 20m0s")
}

func TestBreakerWinResetsStreak(t *testing.T) {
	cb := NewCircuitBreaker(Config{Enabled: true, MaxConsecutiveLosses: 2, CooldownMinutes: 30})

	cb.RecordTrade(-1, t0)
	cb.RecordTrade(5, t0)
	cb.RecordTrade(-1, t0)
	assert.Equal(t, StateClosed, cb.GetState())
	assert.Equal(t, 1, cb.GetStats().ConsecutiveLosses)
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	cb := NewCircuitBreaker(Config{Enabled: true, MaxConsecutiveLosses: 1, CooldownMinutes: 30})
	cb.RecordTrade(-1, t0)

	ok, _ := cb.CanTrade(t0.Add(31 * time.Minute))
	assert.True(t, ok)
	assert.Equal(t, StateHalfOpen, cb.GetState())

	cb.RecordTrade(2, t0.Add(40*time.Minute))
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestBreakerHalfOpenLossRetrips(t *testing.T) {
	cb := NewCircuitBreaker(Config{Enabled: true, MaxConsecutiveLosses: 3, CooldownMinutes: 30})
	cb.RecordTrade(-1, t0)
	cb.RecordTrade(-1, t0)
	cb.RecordTrade(-1, t0)

	cb.CanTrade(t0.Add(time.Hour))
	assert.Equal(t, StateHalfOpen, cb.GetState())

	cb.RecordTrade(-1, t0.Add(time.Hour))
	assert.Equal(t, StateOpen, cb.GetState())
	assert.Equal(t, 2, cb.GetStats().TotalTrips)

	ok, _ := cb.CanTrade(t0.Add(time.Hour + 10*time.Minute))
	assert.False(t, ok)
}

func TestBreakerDisabledAndInvalidInput(t *testing.T) {
	cb := NewCircuitBreaker(Config{Enabled: false, MaxConsecutiveLosses: 1})
	cb.RecordTrade(-1, t0)
	ok, _ := cb.CanTrade(t0)
	assert.True(t, ok)

	enabled := NewCircuitBreaker(Config{Enabled: true, MaxConsecutiveLosses: 1, CooldownMinutes: 1})
	enabled.RecordTrade(math.NaN(), t0)
	assert.Equal(t, StateClosed, enabled.GetState())

	enabled.RecordTrade(-1, t0)
	enabled.ForceReset()
	assert.Equal(t, StateClosed, enabled.GetState())
	assert.Zero(t, enabled.GetStats().ConsecutiveLosses)
}
