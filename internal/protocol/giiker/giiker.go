// Package giiker decodes the Giiker i3 series protocol. Every notification
// on the data characteristic carries the complete cubie-packed state plus
// the most recent move; newer firmware additionally obfuscates the frame
// with an additive key table.
package giiker

import (
	"fmt"

	"github.com/cubesense/smartcube/internal/cube"
	"github.com/cubesense/smartcube/internal/protocol"
)

const frameLen = 20

// Additive obfuscation table used by i3s firmware. Frames are marked by
// byte 18 == 0xA7; the two key offsets ride in the nibbles of byte 19.
var cipherKey = [36]byte{
	176, 81, 104, 224, 86, 137, 237, 119, 38, 26, 193, 161,
	210, 126, 150, 81, 93, 13, 236, 249, 89, 235, 88, 24,
	113, 81, 214, 131, 130, 199, 2, 169, 39, 165, 171, 41,
}

// Wire face order. Face nibbles count from 1.
var wireFaces = [6]cube.Face{cube.B, cube.D, cube.L, cube.U, cube.R, cube.F}

// Facelet letter per wire color index (blue, yellow, orange, white, red,
// green in the canonical orientation).
const wireColors = "BDLURF"

// Sticker colors of each corner cubie, as wire color indices.
var cornerColors = [8][3]int{
	{1, 4, 5}, {4, 3, 5}, {3, 2, 5}, {2, 1, 5},
	{4, 1, 0}, {3, 4, 0}, {2, 3, 0}, {1, 2, 0},
}

// Sticker colors of each edge cubie.
var edgeColors = [12][2]int{
	{5, 1}, {5, 4}, {5, 3}, {5, 2},
	{1, 4}, {3, 4}, {3, 2}, {1, 2},
	{0, 1}, {0, 4}, {0, 3}, {0, 2},
}

// Facelet-string positions of each corner slot.
var cornerFaceIndices = [8][3]int{
	{29, 15, 26}, {9, 8, 20}, {6, 38, 18}, {44, 27, 24},
	{17, 35, 51}, {2, 11, 45}, {36, 0, 47}, {33, 42, 53},
}

// Facelet-string positions of each edge slot.
var edgeFaceIndices = [12][2]int{
	{25, 28}, {23, 12}, {19, 7}, {21, 41},
	{32, 16}, {5, 10}, {3, 37}, {30, 43},
	{52, 34}, {48, 14}, {46, 1}, {50, 39},
}

// Turn nibble to signed quarter turns. A double CCW is reported as its
// own code but lands on the same half turn.
var turnAmounts = map[byte]int{1: 1, 2: 2, 3: -1, 9: 2}

// Codec implements the Giiker decoder and encoder.
type Codec struct {
	profile *protocol.Profile
}

// New returns a Giiker codec.
func New() (*Codec, error) {
	p, err := protocol.Lookup(protocol.VendorGiiker)
	if err != nil {
		return nil, err
	}
	return &Codec{profile: p}, nil
}

// Decode parses one notification. Frames on the system characteristic are
// battery replies; everything else is a 20-byte state+move frame.
func (c *Codec) Decode(raw protocol.RawFrame) ([]protocol.Frame, []protocol.Write, error) {
	if raw.Characteristic == c.profile.SystemNotifyChar {
		if len(raw.Data) < 2 {
			return nil, nil, fmt.Errorf("giiker: system frame too short: %w", protocol.ErrFrameLength)
		}
		return []protocol.Frame{protocol.StatusFrame{
			Reply:   protocol.CommandBattery,
			Battery: int(raw.Data[1]),
		}}, nil, nil
	}

	if len(raw.Data) != frameLen {
		return nil, nil, fmt.Errorf("giiker: frame is %d bytes, want %d: %w", len(raw.Data), frameLen, protocol.ErrFrameLength)
	}
	data := make([]byte, frameLen)
	copy(data, raw.Data)
	if data[18] == 0xA7 {
		decrypt(data)
	}

	var frames []protocol.Frame
	move, err := parseMove(data[16])
	if err != nil {
		return nil, nil, err
	}
	frames = append(frames, move)

	state, err := parseState(data)
	if err != nil {
		return nil, nil, err
	}
	frames = append(frames, protocol.StateFrame{State: state})
	return frames, nil, nil
}

// Encode builds an outbound command. Only the battery request exists;
// it goes to the system write characteristic.
func (c *Codec) Encode(kind protocol.CommandKind) (protocol.Write, error) {
	if kind != protocol.CommandBattery {
		return protocol.Write{}, protocol.ErrUnsupportedCommand
	}
	return protocol.Write{
		Characteristic: c.profile.SystemWriteChar,
		Data:           []byte{0xB5},
	}, nil
}

// Hello requests the battery level once notifications are up. The cube
// pushes its state with every move, so no state request is needed.
func (c *Codec) Hello() []protocol.Write {
	w, err := c.Encode(protocol.CommandBattery)
	if err != nil {
		return nil
	}
	return []protocol.Write{w}
}

func decrypt(data []byte) {
	o1 := int(data[19] >> 4)
	o2 := int(data[19] & 0x0F)
	for i := 0; i < frameLen; i++ {
		data[i] += cipherKey[(o1+i)%36] + cipherKey[(o2+i)%36]
	}
}

func parseMove(b byte) (protocol.MoveFrame, error) {
	faceIdx := b >> 4
	if faceIdx < 1 || faceIdx > 6 {
		return protocol.MoveFrame{}, fmt.Errorf("giiker: move face nibble %d out of range: %w", faceIdx, protocol.ErrMalformed)
	}
	turn, ok := turnAmounts[b&0x0F]
	if !ok {
		return protocol.MoveFrame{}, fmt.Errorf("giiker: move turn nibble %d out of range: %w", b&0x0F, protocol.ErrMalformed)
	}
	return protocol.MoveFrame{
		Face:    wireFaces[faceIdx-1],
		Turn:    turn,
		Counter: -1,
	}, nil
}

func parseState(data []byte) (*cube.Cube, error) {
	var cornerPos, cornerOri [8]int
	for i := 0; i < 4; i++ {
		cornerPos[i*2] = int(data[i] >> 4)
		cornerPos[i*2+1] = int(data[i] & 0x0F)
		cornerOri[i*2] = int(data[4+i] >> 4)
		cornerOri[i*2+1] = int(data[4+i] & 0x0F)
	}
	var edgePos [12]int
	for i := 0; i < 6; i++ {
		edgePos[i*2] = int(data[8+i] >> 4)
		edgePos[i*2+1] = int(data[8+i] & 0x0F)
	}
	var edgeOri [12]bool
	for i := 0; i < 8; i++ {
		edgeOri[i] = data[14]&(0x80>>i) != 0
	}
	for i := 0; i < 4; i++ {
		edgeOri[8+i] = data[15]&(0x80>>i) != 0
	}

	facelets := make([]byte, 54)
	for slot := 0; slot < 8; slot++ {
		pos := cornerPos[slot]
		if pos < 1 || pos > 8 {
			return nil, fmt.Errorf("giiker: corner position %d out of range: %w", pos, protocol.ErrMalformed)
		}
		colors := mapCornerColors(cornerColors[pos-1], cornerOri[slot], slot)
		for n, idx := range cornerFaceIndices[slot] {
			facelets[idx] = wireColors[colors[n]]
		}
	}
	for slot := 0; slot < 12; slot++ {
		pos := edgePos[slot]
		if pos < 1 || pos > 12 {
			return nil, fmt.Errorf("giiker: edge position %d out of range: %w", pos, protocol.ErrMalformed)
		}
		colors := edgeColors[pos-1]
		if edgeOri[slot] {
			colors = [2]int{colors[1], colors[0]}
		}
		for n, idx := range edgeFaceIndices[slot] {
			facelets[idx] = wireColors[colors[n]]
		}
	}
	facelets[4], facelets[13], facelets[22] = 'U', 'R', 'F'
	facelets[31], facelets[40], facelets[49] = 'D', 'L', 'B'

	c, err := cube.FromFacelets(string(facelets))
	if err != nil {
		return nil, fmt.Errorf("giiker: %v: %w", err, protocol.ErrMalformed)
	}
	if !c.Valid() {
		return nil, fmt.Errorf("giiker: state fails structural validation: %w", protocol.ErrMalformed)
	}
	return c, nil
}

// mapCornerColors rotates a corner's sticker colors for its orientation
// nibble. Orientation 3 is untwisted; slots 0, 2, 5 and 7 twist in the
// opposite sense.
func mapCornerColors(colors [3]int, ori, slot int) [3]int {
	if ori != 3 && (slot == 0 || slot == 2 || slot == 5 || slot == 7) {
		ori = 3 - ori
	}
	switch ori {
	case 1:
		return [3]int{colors[1], colors[2], colors[0]}
	case 2:
		return [3]int{colors[2], colors[0], colors[1]}
	default:
		return colors
	}
}
