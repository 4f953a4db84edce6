package smartcube

import (
	"github.com/cubesense/smartcube/internal/cube"
)

// Cube is a virtual 3x3 cube for simulation and offline move tracking.
// It is not safe for concurrent use; the hub sessions keep their own
// internally synchronized tracker.
type Cube struct {
	state *cube.Cube
}

// NewCube returns a solved cube.
func NewCube() *Cube {
	return &Cube{state: cube.New()}
}

// NewCubeFromFacelets builds a cube from a 54-character facelet string
// in URFDLB face order.
func NewCubeFromFacelets(facelets string) (*Cube, error) {
	st, err := cube.FromFacelets(facelets)
	if err != nil {
		return nil, err
	}
	return &Cube{state: st}, nil
}

// Apply performs one move.
func (c *Cube) Apply(m Move) {
	c.state.Move(faceToCube[m.Face], int(m.Turn))
}

// ApplyMoves performs a sequence of moves.
func (c *Cube) ApplyMoves(moves []Move) {
	for _, m := range moves {
		c.Apply(m)
	}
}

// ApplyNotation parses a notation string like "R U R' U'" and applies
// it. Invalid tokens are skipped, matching ParseMoves.
func (c *Cube) ApplyNotation(s string) error {
	moves, err := ParseMoves(s)
	if err != nil {
		return err
	}
	c.ApplyMoves(moves)
	return nil
}

// Facelets returns the 54-character facelet string in URFDLB order.
func (c *Cube) Facelets() string {
	return c.state.ToFacelets()
}

// IsSolved reports whether every face is uniform.
func (c *Cube) IsSolved() bool {
	return c.state.IsSolved()
}

// Reset returns the cube to the solved state.
func (c *Cube) Reset() {
	c.state = cube.New()
}
