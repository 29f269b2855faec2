package market

import "sync"

// DefaultCapacity is the number of candles kept per instrument/timeframe window
const DefaultCapacity = 100

// CandleStore keeps a bounded, chronological window of candles for every
// instrument/timeframe pair. The oldest candle is evicted when a window is full.
type CandleStore struct {
	capacity int
	windows  map[string][]Candle
	mu       sync.RWMutex
}

// NewCandleStore creates a store holding at most capacity candles per window
func NewCandleStore(capacity int) *CandleStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &CandleStore{
		capacity: capacity,
		windows:  make(map[string][]Candle),
	}
}

func windowKey(instrument, timeframe string) string {
	return instrument + "|" + timeframe
}

// Append adds a candle to the window. Candles that are not newer than the
// last stored candle are ignored, so stored bars never change.
func (s *CandleStore) Append(instrument, timeframe string, c Candle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(windowKey(instrument, timeframe), c)
}

// Merge appends every candle newer than the current tail and returns how many were added
func (s *CandleStore) Merge(instrument, timeframe string, candles []Candle) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := windowKey(instrument, timeframe)
	added := 0
	for _, c := range candles {
		if s.appendLocked(key, c) {
			added++
		}
	}
	return added
}

func (s *CandleStore) appendLocked(key string, c Candle) bool {
	w := s.windows[key]
	if n := len(w); n > 0 && c.Timestamp <= w[n-1].Timestamp {
		return false
	}
	w = append(w, c)
	if len(w) > s.capacity {
		// Copy into a fresh slice so the evicted prefix can be collected
		trimmed := make([]Candle, s.capacity)
		copy(trimmed, w[len(w)-s.capacity:])
		w = trimmed
	}
	s.windows[key] = w
	return true
}

// Window returns a copy of the stored candles, oldest first
func (s *CandleStore) Window(instrument, timeframe string) []Candle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w := s.windows[windowKey(instrument, timeframe)]
	out := make([]Candle, len(w))
	copy(out, w)
	return out
}

// Len returns the number of candles stored for the window
func (s *CandleStore) Len(instrument, timeframe string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.windows[windowKey(instrument, timeframe)])
}

// Capacity returns the maximum window length
func (s *CandleStore) Capacity() int {
	return s.capacity
}
