// Package cache provides Redis-based caching for market data with an
// in-memory fallback.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"roostoo-trading-bot/config"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned when a key is absent or expired
var ErrMiss = errors.New("cache miss")

// Key prefixes for market data
const (
	PrefixCandles = "candles:%s:%s:%d" // instrument, timeframe, limit
	PrefixTicker  = "ticker:%s"
)

// DefaultTTL matches the market data refresh window
const DefaultTTL = 60 * time.Second

// CacheService caches JSON values in Redis with graceful degradation. When
// Redis is disabled or unhealthy, values go to a local TTL map instead.
type CacheService struct {
	client       *redis.Client
	config       config.RedisConfig
	mu           sync.RWMutex
	healthy      bool
	failureCount int
	lastCheck    time.Time

	memory map[string]memoryEntry
	now    func() time.Time

	// Circuit breaker settings
	maxFailures   int
	checkInterval time.Duration
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewCacheService creates a CacheService. A disabled Redis config yields a
// memory-only cache; an unreachable server starts in degraded mode.
func NewCacheService(cfg config.RedisConfig) *CacheService {
	cs := &CacheService{
		config:        cfg,
		memory:        make(map[string]memoryEntry),
		now:           time.Now,
		maxFailures:   3,
		checkInterval: 30 * time.Second,
	}
	if !cfg.Enabled {
		return cs
	}

	cs.client = redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := cs.client.Ping(ctx).Err(); err != nil {
		log.Printf("[CACHE] Initial Redis connection failed, using memory fallback: %v", err)
		cs.lastCheck = time.Now()
		return cs
	}

	cs.healthy = true
	cs.lastCheck = time.Now()
	log.Printf("[CACHE] Redis connected successfully at %s", cfg.Address)
	return cs
}

// IsHealthy returns whether Redis is currently serving requests
func (cs *CacheService) IsHealthy() bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.client != nil && cs.healthy
}

// recordFailure tracks a Redis operation failure for circuit breaker.
func (cs *CacheService) recordFailure() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.failureCount++
	if cs.failureCount >= cs.maxFailures {
		if cs.healthy {
			log.Printf("[CACHE] Circuit breaker OPEN: Redis marked unhealthy after %d failures", cs.failureCount)
		}
		cs.healthy = false
		cs.lastCheck = cs.now()
	}
}

// recordSuccess resets the failure counter on successful operation.
func (cs *CacheService) recordSuccess() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if !cs.healthy {
		log.Printf("[CACHE] Circuit breaker CLOSED: Redis recovered")
	}
	cs.healthy = true
	cs.failureCount = 0
	cs.lastCheck = cs.now()
}

// checkHealth pings an unhealthy Redis once per check interval
func (cs *CacheService) checkHealth(ctx context.Context) {
	if cs.client == nil {
		return
	}

	cs.mu.Lock()
	shouldCheck := !cs.healthy && cs.now().Sub(cs.lastCheck) >= cs.checkInterval
	if shouldCheck {
		cs.lastCheck = cs.now()
	}
	cs.mu.Unlock()

	if !shouldCheck {
		return
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := cs.client.Ping(pingCtx).Err(); err == nil {
		cs.recordSuccess()
	}
}

// GetJSON loads key into dest, returning ErrMiss when absent
func (cs *CacheService) GetJSON(ctx context.Context, key string, dest interface{}) error {
	cs.checkHealth(ctx)

	var data []byte
	if cs.IsHealthy() {
		result, err := cs.client.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			return ErrMiss
		case err != nil:
			cs.recordFailure()
			return fmt.Errorf("redis get failed: %w", err)
		}
		cs.recordSuccess()
		data = result
	} else {
		var ok bool
		if data, ok = cs.memoryGet(key); !ok {
			return ErrMiss
		}
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cached value: %w", err)
	}
	return nil
}

// SetJSON stores value under key for ttl
func (cs *CacheService) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	cs.checkHealth(ctx)
	if !cs.IsHealthy() {
		cs.memorySet(key, data, ttl)
		return nil
	}

	if err := cs.client.Set(ctx, key, data, ttl).Err(); err != nil {
		cs.recordFailure()
		cs.memorySet(key, data, ttl)
		return fmt.Errorf("redis set failed: %w", err)
	}

	cs.recordSuccess()
	return nil
}

func (cs *CacheService) memoryGet(key string) ([]byte, bool) {
	cs.mu.RLock()
	entry, ok := cs.memory[key]
	cs.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if cs.now().After(entry.expiresAt) {
		cs.mu.Lock()
		delete(cs.memory, key)
		cs.mu.Unlock()
		return nil, false
	}
	return entry.data, true
}

func (cs *CacheService) memorySet(key string, data []byte, ttl time.Duration) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.memory[key] = memoryEntry{data: data, expiresAt: cs.now().Add(ttl)}
}

// Close closes the Redis connection.
func (cs *CacheService) Close() error {
	if cs.client != nil {
		return cs.client.Close()
	}
	return nil
}

// Stats returns cache statistics for monitoring.
type Stats struct {
	Healthy       bool   `json:"healthy"`
	FailureCount  int    `json:"failure_count"`
	Address       string `json:"address"`
	MemoryEntries int    `json:"memory_entries"`
}

// GetStats returns current cache statistics.
func (cs *CacheService) GetStats() Stats {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	return Stats{
		Healthy:       cs.client != nil && cs.healthy,
		FailureCount:  cs.failureCount,
		Address:       cs.config.Address,
		MemoryEntries: len(cs.memory),
	}
}

// CandlesKey generates a cache key for a candle window.
func CandlesKey(instrument, timeframe string, limit int) string {
	return fmt.Sprintf(PrefixCandles, instrument, timeframe, limit)
}

// TickerKey generates a cache key for a ticker price.
func TickerKey(instrument string) string {
	return fmt.Sprintf(PrefixTicker, instrument)
}
