package protocol

import "testing"

func TestNormalizerConsecutive(t *testing.T) {
	n := NewNormalizer(8)
	for i, counter := range []int{10, 11, 12, 13} {
		seq, missed := n.Normalize(counter)
		if seq != uint64(i+1) {
			t.Errorf("counter %d: seq = %d, want %d", counter, seq, i+1)
		}
		if missed != 0 {
			t.Errorf("counter %d: missed = %d, want 0", counter, missed)
		}
	}
}

func TestNormalizerRolloverIsNotALoss(t *testing.T) {
	n := NewNormalizer(8)
	n.Normalize(254)
	n.Normalize(255)
	seq, missed := n.Normalize(0)
	if missed != 0 {
		t.Errorf("255 -> 0 reported %d missed moves", missed)
	}
	if seq != 3 {
		t.Errorf("seq = %d, want 3", seq)
	}
}

func TestNormalizerGap(t *testing.T) {
	n := NewNormalizer(8)
	n.Normalize(5)
	_, missed := n.Normalize(7)
	if missed != 1 {
		t.Errorf("5 -> 7 missed = %d, want 1", missed)
	}
}

func TestNormalizerGapAcrossRollover(t *testing.T) {
	n := NewNormalizer(8)
	n.Normalize(254)
	_, missed := n.Normalize(2)
	if missed != 3 {
		t.Errorf("254 -> 2 missed = %d, want 3", missed)
	}
}

func TestNormalizerNoCounter(t *testing.T) {
	n := NewNormalizer(0)
	for i := 1; i <= 3; i++ {
		seq, missed := n.Normalize(-1)
		if seq != uint64(i) || missed != 0 {
			t.Errorf("seq = %d missed = %d, want %d and 0", seq, missed, i)
		}
	}
}

func TestNormalizerReset(t *testing.T) {
	n := NewNormalizer(8)
	before, _ := n.Normalize(40)
	n.Reset()
	seq, missed := n.Normalize(0)
	if missed != 0 {
		t.Errorf("first counter after reset reported %d missed moves", missed)
	}
	// Reset drops the counter baseline but not the numbering.
	if seq != before+1 {
		t.Errorf("sequence went %d then %d across a reset, want it to continue", before, seq)
	}
}
