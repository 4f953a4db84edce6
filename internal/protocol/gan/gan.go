// Package gan decodes the GAN Gen2 smart cube protocol. Notifications are
// AES-128-ECB encrypted with an IV overlay applied to the first and last
// 16 bytes; key and IV are salted with the device MAC. Payloads are bit
// packed, with a 4-bit mode selector up front.
package gan

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/cubesense/smartcube/internal/cube"
	"github.com/cubesense/smartcube/internal/protocol"
)

// Base key material shared by all Gen2 cubes before MAC salting.
var (
	baseKey = []byte{1, 2, 66, 40, 49, 145, 22, 7, 32, 5, 24, 84, 66, 17, 18, 83}
	baseIV  = []byte{17, 3, 50, 40, 33, 1, 118, 39, 32, 149, 120, 20, 50, 18, 2, 67}
)

const (
	modeMove    = 2
	modeState   = 4
	modeBattery = 9

	reqState   = 4
	reqBattery = 9

	historySlots = 5 // bit width of one move history slot
)

var axisToFace = [6]cube.Face{cube.U, cube.R, cube.F, cube.D, cube.L, cube.B}

// Codec implements the GAN Gen2 decoder and encoder. It is stateful: the
// 8-bit move counter of the previous notification dedups the 7-slot move
// history.
type Codec struct {
	profile *protocol.Profile
	cipher  *ganCipher
	prevCnt int
}

// New returns a GAN codec keyed for one device. The MAC in the key
// material is required unless an explicit key and IV are given.
func New(km protocol.KeyMaterial) (*Codec, error) {
	p, err := protocol.Lookup(protocol.VendorGAN)
	if err != nil {
		return nil, err
	}
	key, iv := km.Key, km.IV
	if len(key) != 16 || len(iv) != 16 {
		mac, err := protocol.ParseMAC(km.MAC)
		if err != nil {
			return nil, fmt.Errorf("gan: key derivation needs the device MAC: %w", err)
		}
		key = append([]byte(nil), baseKey...)
		iv = append([]byte(nil), baseIV...)
		for i := 0; i < 6; i++ {
			key[i] = byte((int(key[i]) + int(mac[5-i])) % 255)
			iv[i] = byte((int(iv[i]) + int(mac[5-i])) % 255)
		}
	}
	c, err := newGanCipher(key, iv)
	if err != nil {
		return nil, err
	}
	return &Codec{profile: p, cipher: c, prevCnt: -1}, nil
}

// Decode parses one notification.
func (c *Codec) Decode(raw protocol.RawFrame) ([]protocol.Frame, []protocol.Write, error) {
	if len(raw.Data) < 16 {
		return nil, nil, fmt.Errorf("gan: frame is %d bytes, want at least 16: %w", len(raw.Data), protocol.ErrFrameLength)
	}
	data := make([]byte, len(raw.Data))
	copy(data, raw.Data)
	c.cipher.decrypt(data)

	switch bitField(data, 0, 4) {
	case modeMove:
		return c.decodeMoves(data), nil, nil
	case modeState:
		frames, err := decodeState(data)
		return frames, nil, err
	case modeBattery:
		return []protocol.Frame{protocol.StatusFrame{
			Reply:   protocol.CommandBattery,
			Battery: bitField(data, 8, 8),
		}}, nil, nil
	default:
		// Gyro and quaternion modes are not modeled.
		return nil, nil, nil
	}
}

// decodeMoves replays the delta against the previous counter from the
// 7-slot history, oldest first. The first move notification after connect
// only seeds the counter. Each emitted move carries its own raw counter so
// deltas beyond the history depth surface as a normalizer gap.
func (c *Codec) decodeMoves(data []byte) []protocol.Frame {
	counter := bitField(data, 4, 8)
	if c.prevCnt < 0 || counter == c.prevCnt {
		c.prevCnt = counter
		return nil
	}
	delta := (counter - c.prevCnt) & 0xFF
	c.prevCnt = counter
	n := delta
	if n > 7 {
		n = 7
	}
	var frames []protocol.Frame
	for i := n - 1; i >= 0; i-- {
		m := bitField(data, 12+i*historySlots, historySlots)
		if m >= 12 {
			continue
		}
		turn := 1
		if m&1 == 1 {
			turn = -1
		}
		frames = append(frames, protocol.MoveFrame{
			Face:    axisToFace[m>>1],
			Turn:    turn,
			Counter: (counter - i) & 0xFF,
		})
	}
	return frames
}

// decodeState unpacks the cubie-packed facelets. The eighth corner and
// twelfth edge are reconstructed from checksum completion.
func decodeState(data []byte) ([]protocol.Frame, error) {
	cc := cube.NewCubieCube()
	cchk := 0xF00
	for i := 0; i < 7; i++ {
		perm := bitField(data, 12+i*3, 3)
		ori := bitField(data, 33+i*2, 2)
		cchk -= ori << 3
		cchk ^= perm
		cc.SetCorner(i, perm, ori)
	}
	last := (cchk&0xFF8)%24 | (cchk & 0x7)
	cc.SetCorner(7, last&7, last>>3)

	echk := 0
	for i := 0; i < 11; i++ {
		perm := bitField(data, 47+i*4, 4)
		ori := bitField(data, 91+i, 1)
		echk ^= perm<<1 | ori
		cc.SetEdge(i, perm, ori)
	}
	cc.SetEdge(11, echk>>1, echk&1)

	if !cc.Valid() {
		return nil, fmt.Errorf("gan: state fails structural validation: %w", protocol.ErrMalformed)
	}
	st, err := cube.FromFacelets(cc.ToFacelets())
	if err != nil {
		return nil, fmt.Errorf("gan: %v: %w", err, protocol.ErrMalformed)
	}
	return []protocol.Frame{protocol.StateFrame{State: st}}, nil
}

// Encode builds an encrypted 20-byte request.
func (c *Codec) Encode(kind protocol.CommandKind) (protocol.Write, error) {
	req := make([]byte, 20)
	switch kind {
	case protocol.CommandState:
		req[0] = reqState
	case protocol.CommandBattery:
		req[0] = reqBattery
	default:
		return protocol.Write{}, protocol.ErrUnsupportedCommand
	}
	c.cipher.encrypt(req)
	return protocol.Write{Characteristic: c.profile.WriteChar, Data: req}, nil
}

// Hello requests the facelets and the battery level, in that order, so
// the tracker seeds before the first move arrives.
func (c *Codec) Hello() []protocol.Write {
	var writes []protocol.Write
	for _, kind := range []protocol.CommandKind{protocol.CommandState, protocol.CommandBattery} {
		if w, err := c.Encode(kind); err == nil {
			writes = append(writes, w)
		}
	}
	return writes
}

// ganCipher is AES-128-ECB on the first and last 16 bytes with an IV XOR
// overlay. On buffers longer than 16 bytes the two blocks overlap and
// must be processed in the documented order.
type ganCipher struct {
	block cipher.Block
	iv    []byte
}

func newGanCipher(key, iv []byte) (*ganCipher, error) {
	b, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("gan: %v: %w", err, protocol.ErrDecryption)
	}
	return &ganCipher{block: b, iv: iv}, nil
}

func (c *ganCipher) decrypt(data []byte) {
	if len(data) > 16 {
		off := len(data) - 16
		c.block.Decrypt(data[off:], data[off:])
		for i := 0; i < 16; i++ {
			data[off+i] ^= c.iv[i]
		}
	}
	c.block.Decrypt(data[:16], data[:16])
	for i := 0; i < 16; i++ {
		data[i] ^= c.iv[i]
	}
}

func (c *ganCipher) encrypt(data []byte) {
	for i := 0; i < 16; i++ {
		data[i] ^= c.iv[i]
	}
	c.block.Encrypt(data[:16], data[:16])
	if len(data) > 16 {
		off := len(data) - 16
		for i := 0; i < 16; i++ {
			data[off+i] ^= c.iv[i]
		}
		c.block.Encrypt(data[off:], data[off:])
	}
}

// bitField reads width bits starting at bit offset start, MSB first.
func bitField(data []byte, start, width int) int {
	v := 0
	for i := 0; i < width; i++ {
		bit := start + i
		v = v<<1 | int(data[bit>>3]>>(7-bit&7)&1)
	}
	return v
}
