package lifecycle

import (
	"sort"
	"sync"
)

// Store holds the position record of every instrument. It is the only
// owner of lifecycle state; callers receive copies.
type Store struct {
	mu        sync.RWMutex
	positions map[string]PositionState
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{positions: make(map[string]PositionState)}
}

// Get returns the instrument's record. Unknown instruments are CLOSED.
func (s *Store) Get(instrument string) PositionState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.positions[instrument]
	if !ok {
		return PositionState{Instrument: instrument, Status: StatusClosed}
	}
	return p.clone()
}

// Set replaces the instrument's record
func (s *Store) Set(p PositionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[p.Instrument] = p.clone()
}

// Each calls fn for every record in instrument order. Records are copies.
func (s *Store) Each(fn func(PositionState)) {
	for _, p := range s.All() {
		fn(p)
	}
}

// All returns copies of every record sorted by instrument
func (s *Store) All() []PositionState {
	s.mu.RLock()
	out := make([]PositionState, 0, len(s.positions))
	for _, p := range s.positions {
		out = append(out, p.clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Instrument < out[j].Instrument })
	return out
}
