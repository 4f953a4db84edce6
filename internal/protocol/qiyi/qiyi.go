// Package qiyi decodes the QiYi smart cube protocol. Whole notifications
// are AES-128-ECB encrypted; inside is a 0xFE-headed message with a length
// byte and a trailing CRC-16/MODBUS. State and move messages must be
// acknowledged or the cube retransmits and eventually drops the link.
package qiyi

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/cubesense/smartcube/internal/cube"
	"github.com/cubesense/smartcube/internal/protocol"
)

var cubeKey = []byte{87, 177, 249, 171, 205, 90, 232, 167, 156, 185, 140, 231, 87, 140, 81, 8}

const (
	msgHeader = 0xFE

	opStateSync = 0x02 // pushed after the hello, carries battery
	opMove      = 0x03
)

// Facelet letter per state nibble value.
const nibbleFaces = "LRDUFB"

// Move byte to canonical URFDLB axis.
var moveAxis = [6]int{4, 1, 3, 0, 2, 5}

var axisToFace = [6]cube.Face{cube.U, cube.R, cube.F, cube.D, cube.L, cube.B}

// Codec implements the QiYi decoder and encoder.
type Codec struct {
	profile *protocol.Profile
	block   cipher.Block
	mac     [6]byte
}

// New returns a QiYi codec for one device. The MAC is echoed reversed in
// the connection hello.
func New(km protocol.KeyMaterial) (*Codec, error) {
	p, err := protocol.Lookup(protocol.VendorQiYi)
	if err != nil {
		return nil, err
	}
	mac, err := protocol.ParseMAC(km.MAC)
	if err != nil {
		return nil, fmt.Errorf("qiyi: hello needs the device MAC: %w", err)
	}
	key := km.Key
	if len(key) != 16 {
		key = cubeKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("qiyi: %v: %w", err, protocol.ErrDecryption)
	}
	return &Codec{profile: p, block: block, mac: mac}, nil
}

// Decode parses one notification. State and move messages produce an
// acknowledgement write echoing the opcode and timestamp bytes.
func (c *Codec) Decode(raw protocol.RawFrame) ([]protocol.Frame, []protocol.Write, error) {
	if len(raw.Data) == 0 || len(raw.Data)%16 != 0 {
		return nil, nil, fmt.Errorf("qiyi: frame is %d bytes, want a multiple of 16: %w", len(raw.Data), protocol.ErrFrameLength)
	}
	msg := make([]byte, len(raw.Data))
	for i := 0; i < len(msg); i += 16 {
		c.block.Decrypt(msg[i:i+16], raw.Data[i:i+16])
	}
	if int(msg[1]) > len(msg) || msg[1] < 5 {
		return nil, nil, fmt.Errorf("qiyi: message length byte %d: %w", msg[1], protocol.ErrDecryption)
	}
	msg = msg[:msg[1]]
	if crc16(msg) != 0 {
		return nil, nil, fmt.Errorf("qiyi: message CRC does not fold to zero: %w", protocol.ErrChecksum)
	}
	if msg[0] != msgHeader {
		return nil, nil, fmt.Errorf("qiyi: header %#02x, want %#02x: %w", msg[0], msgHeader, protocol.ErrMalformed)
	}

	switch msg[2] {
	case opStateSync:
		if len(msg) < 36 {
			return nil, nil, fmt.Errorf("qiyi: state sync is %d bytes, want 36: %w", len(msg), protocol.ErrFrameLength)
		}
		st, err := parseFacelets(msg[7:34])
		if err != nil {
			return nil, nil, err
		}
		frames := []protocol.Frame{
			protocol.StateFrame{State: st},
			protocol.StatusFrame{Reply: protocol.CommandBattery, Battery: int(msg[35])},
		}
		return frames, c.ack(msg), nil
	case opMove:
		if len(msg) < 35 {
			return nil, nil, fmt.Errorf("qiyi: move message is %d bytes, want 35: %w", len(msg), protocol.ErrFrameLength)
		}
		var frames []protocol.Frame
		if move, ok := parseMove(msg[34]); ok {
			frames = append(frames, move)
		}
		st, err := parseFacelets(msg[7:34])
		if err != nil {
			return nil, nil, err
		}
		frames = append(frames, protocol.StateFrame{State: st})
		return frames, c.ack(msg), nil
	default:
		return nil, nil, nil
	}
}

// ack echoes the opcode and timestamp of the incoming message.
func (c *Codec) ack(msg []byte) []protocol.Write {
	return []protocol.Write{c.buildMessage(msg[2:7])}
}

// Encode has nothing to build: the cube pushes state and battery on its
// own after the hello, and there is no calibration opcode.
func (c *Codec) Encode(kind protocol.CommandKind) (protocol.Write, error) {
	return protocol.Write{}, protocol.ErrUnsupportedCommand
}

// Hello sends the app-hello carrying the reversed device MAC. The cube
// answers with a state sync.
func (c *Codec) Hello() []protocol.Write {
	content := []byte{0x00, 0x6B, 0x01, 0x00, 0x00, 0x22, 0x06, 0x00, 0x02, 0x08, 0x00}
	for i := 5; i >= 0; i-- {
		content = append(content, c.mac[i])
	}
	return []protocol.Write{c.buildMessage(content)}
}

// buildMessage frames, checksums, pads and encrypts an outbound message.
func (c *Codec) buildMessage(content []byte) protocol.Write {
	msg := make([]byte, 0, 2+len(content)+2)
	msg = append(msg, msgHeader, byte(4+len(content)))
	msg = append(msg, content...)
	crc := crc16(msg)
	msg = append(msg, byte(crc&0xFF), byte(crc>>8))
	for len(msg)%16 != 0 {
		msg = append(msg, 0)
	}
	out := make([]byte, len(msg))
	for i := 0; i < len(msg); i += 16 {
		c.block.Encrypt(out[i:i+16], msg[i:i+16])
	}
	return protocol.Write{Characteristic: c.profile.WriteChar, Data: out}
}

func parseFacelets(faceMsg []byte) (*cube.Cube, error) {
	facelets := make([]byte, 54)
	for i := 0; i < 54; i++ {
		v := faceMsg[i>>1] >> ((i % 2) * 4) & 0x0F
		if v >= 6 {
			return nil, fmt.Errorf("qiyi: facelet nibble %d out of range: %w", v, protocol.ErrMalformed)
		}
		facelets[i] = nibbleFaces[v]
	}
	st, err := cube.FromFacelets(string(facelets))
	if err != nil {
		return nil, fmt.Errorf("qiyi: %v: %w", err, protocol.ErrMalformed)
	}
	if !st.Valid() {
		return nil, fmt.Errorf("qiyi: state fails structural validation: %w", protocol.ErrMalformed)
	}
	return st, nil
}

func parseMove(raw byte) (protocol.MoveFrame, bool) {
	if raw < 1 || raw > 12 {
		return protocol.MoveFrame{}, false
	}
	turn := 1
	if raw&1 == 1 {
		turn = -1
	}
	return protocol.MoveFrame{
		Face:    axisToFace[moveAxis[(raw-1)>>1]],
		Turn:    turn,
		Counter: -1,
	}, true
}

// crc16 is CRC-16/MODBUS. A message with its CRC appended folds to zero.
func crc16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = crc>>1 ^ 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}
