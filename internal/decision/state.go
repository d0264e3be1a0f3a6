package decision

import (
	"sync"
	"time"
)

type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Breach records one cycle in which a scaling threshold condition was met.
type Breach struct {
	At        time.Time
	Direction Direction
}

// State is the cooldown and breach bookkeeping threaded through Decide.
// It lives for the process lifetime, is owned by the caller, and is never
// persisted: a restart forgets cooldowns.
type State struct {
	LastScaleUpAt   time.Time
	LastScaleDownAt time.Time
	Breaches        []Breach
}

func (s State) clone() State {
	out := s
	out.Breaches = make([]Breach, len(s.Breaches))
	copy(out.Breaches, s.Breaches)
	return out
}

// pruneBreaches drops breach records older than the cutoff.
func (s *State) pruneBreaches(cutoff time.Time) {
	kept := s.Breaches[:0]
	for _, b := range s.Breaches {
		if b.At.After(cutoff) {
			kept = append(kept, b)
		}
	}
	s.Breaches = kept
}

// clearBreaches removes all breach records for one direction. Called after
// an action fires so stale pressure does not trigger a second move.
func (s *State) clearBreaches(dir Direction) {
	kept := s.Breaches[:0]
	for _, b := range s.Breaches {
		if b.Direction != dir {
			kept = append(kept, b)
		}
	}
	s.Breaches = kept
}

// Store holds the cooldown/history state between cycles. The decision
// engine is the single writer; Read returns an independent copy so the
// engine can mutate its working state freely before Commit.
type Store struct {
	mu    sync.Mutex
	state State
}

func NewStore() *Store {
	return &Store{}
}

func (st *Store) Read() State {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.state.clone()
}

func (st *Store) Commit(s State) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.state = s.clone()
}
