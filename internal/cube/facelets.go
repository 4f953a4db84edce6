package cube

import "fmt"

// Facelet strings use the URFDLB convention: 54 letters, 9 per face in the
// order U, R, F, D, L, B, each face row-wise in the standard unfolded view.
// This matches the layout printed by Cube.String and the cubie tables.

// stringFaceOrder maps facelet-string face slots to Face values.
var stringFaceOrder = [6]Face{U, R, F, D, L, B}

// letterToColor maps a facelet letter to its color in the canonical
// orientation (white up, green front).
var letterToColor = map[byte]Color{
	'U': White,
	'R': Red,
	'F': Green,
	'D': Yellow,
	'L': Orange,
	'B': Blue,
}

var colorToLetter = [6]byte{
	White:  'U',
	Yellow: 'D',
	Green:  'F',
	Blue:   'B',
	Red:    'R',
	Orange: 'L',
}

// ToFacelets returns the 54-character facelet string for the cube.
func (c *Cube) ToFacelets() string {
	buf := make([]byte, 54)
	for slot, face := range stringFaceOrder {
		for i := 0; i < 9; i++ {
			buf[slot*9+i] = colorToLetter[c.Facelets[face][i]]
		}
	}
	return string(buf)
}

// FromFacelets builds a cube from a 54-character facelet string.
// The string is checked for length and letter validity only; use Valid to
// verify the result is a reachable cube configuration.
func FromFacelets(s string) (*Cube, error) {
	if len(s) != 54 {
		return nil, fmt.Errorf("facelet string must be 54 characters, got %d", len(s))
	}
	c := &Cube{}
	for slot, face := range stringFaceOrder {
		for i := 0; i < 9; i++ {
			color, ok := letterToColor[s[slot*9+i]]
			if !ok {
				return nil, fmt.Errorf("invalid facelet letter %q at position %d", s[slot*9+i], slot*9+i)
			}
			c.Facelets[face][i] = color
		}
	}
	return c, nil
}

// Valid reports whether the cube is a structurally reachable configuration:
// every color appears exactly nine times, centers are in canonical
// orientation, corner and edge orientations sum to zero, and the combined
// permutation parity is even.
func (c *Cube) Valid() bool {
	var counts [6]int
	for f := 0; f < 6; f++ {
		for i := 0; i < 9; i++ {
			counts[c.Facelets[f][i]]++
		}
	}
	for _, n := range counts {
		if n != 9 {
			return false
		}
	}

	for face := Face(0); face < 6; face++ {
		if c.Facelets[face][4] != faceToSolvedColor(face) {
			return false
		}
	}

	cc, err := CubieFromFacelets(c.ToFacelets())
	if err != nil {
		return false
	}
	return cc.Valid()
}
