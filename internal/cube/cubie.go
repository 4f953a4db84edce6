package cube

import "fmt"

// CubieCube models the cube at the cubie level: corner and edge
// permutations with orientations. Some vendors report state in this form
// packed into a few bytes, which is too compact to map straight onto
// facelets.
//
// ca[i] holds a corner as perm|ori<<3, ea[i] an edge as perm<<1|ori.
type CubieCube struct {
	ca [8]int
	ea [12]int
}

// Facelet-string positions of each corner cubie, in orientation order.
var cornerFacelets = [8][3]int{
	{8, 9, 20},   // URF
	{6, 18, 38},  // UFL
	{0, 36, 47},  // ULB
	{2, 45, 11},  // UBR
	{29, 26, 15}, // DFR
	{27, 44, 24}, // DLF
	{33, 53, 42}, // DBL
	{35, 17, 51}, // DRB
}

// Facelet-string positions of each edge cubie.
var edgeFacelets = [12][2]int{
	{5, 10},  // UR
	{7, 19},  // UF
	{3, 37},  // UL
	{1, 46},  // UB
	{32, 16}, // DR
	{28, 25}, // DF
	{30, 43}, // DL
	{34, 52}, // DB
	{23, 12}, // FR
	{21, 41}, // FL
	{50, 39}, // BL
	{48, 14}, // BR
}

// NewCubieCube returns a solved cubie cube.
func NewCubieCube() *CubieCube {
	c := &CubieCube{}
	for i := 0; i < 8; i++ {
		c.ca[i] = i
	}
	for i := 0; i < 12; i++ {
		c.ea[i] = i * 2
	}
	return c
}

// SetCorner sets corner slot i to the given permutation and orientation.
func (c *CubieCube) SetCorner(i, perm, ori int) {
	c.ca[i] = (ori << 3) | (perm & 7)
}

// SetEdge sets edge slot i to the given permutation and orientation.
func (c *CubieCube) SetEdge(i, perm, ori int) {
	c.ea[i] = (perm << 1) | (ori & 1)
}

// Corner returns the permutation and orientation of corner slot i.
func (c *CubieCube) Corner(i int) (perm, ori int) {
	return c.ca[i] & 7, c.ca[i] >> 3
}

// Edge returns the permutation and orientation of edge slot i.
func (c *CubieCube) Edge(i int) (perm, ori int) {
	return c.ea[i] >> 1, c.ea[i] & 1
}

func cornMult(a, b, prod *CubieCube) {
	for corn := 0; corn < 8; corn++ {
		ori := ((a.ca[b.ca[corn]&7] >> 3) + (b.ca[corn] >> 3)) % 3
		prod.ca[corn] = (a.ca[b.ca[corn]&7] & 7) | (ori << 3)
	}
}

func edgeMult(a, b, prod *CubieCube) {
	for ed := 0; ed < 12; ed++ {
		prod.ea[ed] = a.ea[b.ea[ed]>>1] ^ (b.ea[ed] & 1)
	}
}

func cubeMult(a, b, prod *CubieCube) {
	cornMult(a, b, prod)
	edgeMult(a, b, prod)
}

// moveCubes[axis*3+power] is the cubie permutation for a move on face
// "URFDLB"[axis], power 0 = CW, 1 = 180, 2 = CCW.
var moveCubes = initMoveCubes()

func initMoveCubes() [18]*CubieCube {
	var mc [18]*CubieCube
	for i := range mc {
		mc[i] = NewCubieCube()
	}
	base := [6]struct {
		ca [8]int
		ea [12]int
	}{
		{[8]int{3, 0, 1, 2, 4, 5, 6, 7}, [12]int{6, 0, 2, 4, 8, 10, 12, 14, 16, 18, 20, 22}},       // U
		{[8]int{20, 1, 2, 8, 15, 5, 6, 19}, [12]int{16, 2, 4, 6, 22, 10, 12, 14, 8, 18, 20, 0}},    // R
		{[8]int{9, 21, 2, 3, 16, 12, 6, 7}, [12]int{0, 19, 4, 6, 8, 17, 12, 14, 3, 11, 20, 22}},    // F
		{[8]int{0, 1, 2, 3, 5, 6, 7, 4}, [12]int{0, 2, 4, 6, 10, 12, 14, 8, 16, 18, 20, 22}},       // D
		{[8]int{0, 10, 22, 3, 4, 17, 13, 7}, [12]int{0, 2, 20, 6, 8, 10, 18, 14, 16, 4, 12, 22}},   // L
		{[8]int{0, 1, 11, 23, 4, 5, 18, 14}, [12]int{0, 2, 4, 23, 8, 10, 12, 21, 16, 18, 7, 15}},   // B
	}
	for axis := 0; axis < 6; axis++ {
		mc[axis*3].ca = base[axis].ca
		mc[axis*3].ea = base[axis].ea
		for power := 0; power < 2; power++ {
			cubeMult(mc[axis*3+power], mc[axis*3], mc[axis*3+power+1])
		}
	}
	return mc
}

// ApplyMoveIndex applies move index axis*3+power (power 0 = CW, 1 = 180,
// 2 = CCW, axis over URFDLB).
func (c *CubieCube) ApplyMoveIndex(idx int) {
	if idx < 0 || idx >= 18 {
		return
	}
	tmp := &CubieCube{}
	cubeMult(c, moveCubes[idx], tmp)
	*c = *tmp
}

// ToFacelets renders the cubie cube as a URFDLB facelet string.
func (c *CubieCube) ToFacelets() string {
	f := make([]int, 54)
	for i := range f {
		f[i] = i
	}
	for corn := 0; corn < 8; corn++ {
		perm := c.ca[corn] & 7
		ori := c.ca[corn] >> 3
		for n := 0; n < 3; n++ {
			f[cornerFacelets[corn][(n+ori)%3]] = cornerFacelets[perm][n]
		}
	}
	for ed := 0; ed < 12; ed++ {
		perm := c.ea[ed] >> 1
		ori := c.ea[ed] & 1
		for n := 0; n < 2; n++ {
			f[edgeFacelets[ed][(n+ori)%2]] = edgeFacelets[perm][n]
		}
	}
	buf := make([]byte, 54)
	for i := 0; i < 54; i++ {
		buf[i] = "URFDLB"[f[i]/9]
	}
	return string(buf)
}

// CubieFromFacelets parses a URFDLB facelet string into cubie form.
func CubieFromFacelets(s string) (*CubieCube, error) {
	if len(s) != 54 {
		return nil, fmt.Errorf("facelet string must be 54 characters, got %d", len(s))
	}
	centers := string([]byte{s[4], s[13], s[22], s[31], s[40], s[49]})
	f := make([]int, 54)
	count := 0
	for i := 0; i < 54; i++ {
		idx := -1
		for j := 0; j < 6; j++ {
			if centers[j] == s[i] {
				idx = j
				break
			}
		}
		if idx == -1 {
			return nil, fmt.Errorf("facelet %q not among centers", s[i])
		}
		f[i] = idx
		count += 1 << (idx << 2)
	}
	if count != 0x999999 {
		return nil, fmt.Errorf("facelet color counts are unbalanced")
	}

	c := &CubieCube{}
	for i := range c.ca {
		c.ca[i] = -1
	}
	for i := range c.ea {
		c.ea[i] = -1
	}
	for i := 0; i < 8; i++ {
		ori := 0
		for ori < 3 {
			// Orientation is defined by where the U/D facelet sits.
			if f[cornerFacelets[i][ori]] == 0 || f[cornerFacelets[i][ori]] == 3 {
				break
			}
			ori++
		}
		col1 := f[cornerFacelets[i][(ori+1)%3]]
		col2 := f[cornerFacelets[i][(ori+2)%3]]
		for j := 0; j < 8; j++ {
			if col1 == cornerFacelets[j][1]/9 && col2 == cornerFacelets[j][2]/9 {
				c.ca[i] = j | (ori%3)<<3
				break
			}
		}
		if c.ca[i] == -1 {
			return nil, fmt.Errorf("unrecognized corner cubie at slot %d", i)
		}
	}
	for i := 0; i < 12; i++ {
		for j := 0; j < 12; j++ {
			if f[edgeFacelets[i][0]] == edgeFacelets[j][0]/9 && f[edgeFacelets[i][1]] == edgeFacelets[j][1]/9 {
				c.ea[i] = j << 1
				break
			}
			if f[edgeFacelets[i][0]] == edgeFacelets[j][1]/9 && f[edgeFacelets[i][1]] == edgeFacelets[j][0]/9 {
				c.ea[i] = j<<1 | 1
				break
			}
		}
		if c.ea[i] == -1 {
			return nil, fmt.Errorf("unrecognized edge cubie at slot %d", i)
		}
	}
	return c, nil
}

// Valid reports whether the cubie cube is a reachable configuration:
// permutations are complete, orientations sum to zero and corner and edge
// permutation parities agree.
func (c *CubieCube) Valid() bool {
	var cseen, eseen [12]bool
	coriSum := 0
	for i := 0; i < 8; i++ {
		perm := c.ca[i] & 7
		ori := c.ca[i] >> 3
		if ori > 2 || cseen[perm] {
			return false
		}
		cseen[perm] = true
		coriSum += ori
	}
	if coriSum%3 != 0 {
		return false
	}

	eoriSum := 0
	for i := 0; i < 12; i++ {
		perm := c.ea[i] >> 1
		if perm > 11 || eseen[perm] {
			return false
		}
		eseen[perm] = true
		eoriSum += c.ea[i] & 1
	}
	if eoriSum%2 != 0 {
		return false
	}

	cperm := make([]int, 8)
	eperm := make([]int, 12)
	for i := 0; i < 8; i++ {
		cperm[i] = c.ca[i] & 7
	}
	for i := 0; i < 12; i++ {
		eperm[i] = c.ea[i] >> 1
	}
	return permParity(cperm) == permParity(eperm)
}

// permParity returns 0 for even permutations, 1 for odd.
func permParity(p []int) int {
	parity := 0
	for i := 0; i < len(p); i++ {
		for j := i + 1; j < len(p); j++ {
			if p[i] > p[j] {
				parity ^= 1
			}
		}
	}
	return parity
}
