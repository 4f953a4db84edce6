package protocol

// Normalizer assigns a monotonically increasing sequence number to each
// decoded move and detects notification gaps from the vendor's rolling
// move counter.
//
// The counter width comes from the vendor profile. Width 0 means the
// vendor has no wire counter; moves are then assumed consecutive and no
// gap detection is possible.
type Normalizer struct {
	width   uint
	last    int
	seq     uint64
	started bool
}

// NewNormalizer returns a normalizer for the given counter width in bits.
func NewNormalizer(width uint) *Normalizer {
	return &Normalizer{width: width}
}

// Normalize consumes the vendor counter of one move frame and returns the
// canonical sequence number plus the number of moves missed since the
// previous frame. A counter that wraps from max back to zero is a delta of
// one and reports no loss.
func (n *Normalizer) Normalize(counter int) (seq uint64, missed int) {
	n.seq++
	if n.width == 0 || counter < 0 {
		return n.seq, 0
	}
	if !n.started {
		n.started = true
		n.last = counter
		return n.seq, 0
	}
	mod := 1 << n.width
	delta := (counter - n.last + mod) % mod
	n.last = counter
	if delta > 1 {
		return n.seq, delta - 1
	}
	return n.seq, 0
}

// Reset clears the counter history, e.g. after a reconnect where the
// device may have restarted its counter.
func (n *Normalizer) Reset() {
	n.started = false
}
