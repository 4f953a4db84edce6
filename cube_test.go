package smartcube

import "testing"

func TestCubeSexyMoveOrder(t *testing.T) {
	c := NewCube()
	// The sexy move has order six.
	for i := 0; i < 6; i++ {
		if c.IsSolved() != (i == 0) {
			t.Fatalf("solved = %v after %d repetitions", c.IsSolved(), i)
		}
		c.ApplyMoves(SexyMove)
	}
	if !c.IsSolved() {
		t.Error("six sexy moves should restore the solved state")
	}
}

func TestCubeNotationAndFacelets(t *testing.T) {
	c := NewCube()
	if err := c.ApplyNotation("R U R' U'"); err != nil {
		t.Fatalf("ApplyNotation: %v", err)
	}
	if c.IsSolved() {
		t.Error("cube should be scrambled")
	}
	facelets := c.Facelets()
	if len(facelets) != 54 {
		t.Fatalf("facelets length = %d", len(facelets))
	}

	rebuilt, err := NewCubeFromFacelets(facelets)
	if err != nil {
		t.Fatalf("NewCubeFromFacelets: %v", err)
	}
	if rebuilt.Facelets() != facelets {
		t.Error("facelet round trip changed the state")
	}

	if err := c.ApplyNotation("U R U' R'"); err != nil {
		t.Fatalf("ApplyNotation: %v", err)
	}
	if !c.IsSolved() {
		t.Error("inverse sequence should solve the cube")
	}
}

func TestCubeReset(t *testing.T) {
	c := NewCube()
	c.Apply(R)
	c.Reset()
	if !c.IsSolved() {
		t.Error("Reset should restore the solved state")
	}
}
