// Package tracker maintains the virtual cube state for one session by
// applying canonical moves and reconciling vendor state snapshots.
package tracker

import (
	"sync"

	"github.com/cubesense/smartcube/internal/cube"
)

// Tracker is safe for concurrent use. It starts solved and unseeded; the
// first snapshot adopts the device state without counting as a resync.
type Tracker struct {
	mu     sync.Mutex
	state  *cube.Cube
	seeded bool
	moves  uint64
}

// New returns a tracker holding the solved state.
func New() *Tracker {
	return &Tracker{state: cube.New()}
}

// Apply performs one canonical move on the virtual state.
func (t *Tracker) Apply(face cube.Face, turn int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Move(face, turn)
	t.moves++
	t.seeded = true
}

// OfferSnapshot reconciles a device snapshot against the virtual state.
// The first snapshot seeds the tracker. A later snapshot that disagrees
// with the tracked state replaces it and reports a resynchronization.
func (t *Tracker) OfferSnapshot(st *cube.Cube) (resynced bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.seeded {
		t.state = st.Clone()
		t.seeded = true
		return false
	}
	if t.state.Equal(st) {
		return false
	}
	t.state = st.Clone()
	return true
}

// State returns a copy of the tracked state.
func (t *Tracker) State() *cube.Cube {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Clone()
}

// IsSolved reports whether the tracked state is solved.
func (t *Tracker) IsSolved() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.IsSolved()
}

// MoveCount returns the number of moves applied since creation.
func (t *Tracker) MoveCount() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.moves
}
