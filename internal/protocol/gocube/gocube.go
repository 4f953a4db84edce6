// Package gocube decodes the GoCube and Rubik's Connected protocol.
// Messages ride a small serial-style framing on the Nordic UART service:
// a '*' header, length, message type, payload, additive checksum and CRLF.
package gocube

import (
	"fmt"

	"github.com/cubesense/smartcube/internal/cube"
	"github.com/cubesense/smartcube/internal/protocol"
)

const (
	header  = 0x2A
	trailCR = 0x0D
	trailLF = 0x0A

	msgRotation = 0x01
	msgState    = 0x02
	msgBattery  = 0x05

	cmdBattery     = 0x32
	cmdState       = 0x33
	cmdResetSolved = 0x35
)

// Wire axis order to the canonical URFDLB axis.
var axisPerm = [6]int{5, 2, 0, 3, 1, 4}

// Sticker reorder within one face of a state message.
var facePerm = [8]int{0, 1, 2, 5, 8, 7, 6, 3}

// Per-face rotation offset into facePerm.
var faceOffset = [6]int{0, 0, 6, 2, 0, 0}

// State messages name faces in their own order.
const stateFaces = "BFUDRL"

var axisToFace = [6]cube.Face{cube.U, cube.R, cube.F, cube.D, cube.L, cube.B}

// Codec implements the GoCube decoder and encoder.
type Codec struct {
	profile *protocol.Profile
}

// New returns a GoCube codec.
func New() (*Codec, error) {
	p, err := protocol.Lookup(protocol.VendorGoCube)
	if err != nil {
		return nil, err
	}
	return &Codec{profile: p}, nil
}

// Decode parses one framed message. Rotation messages may carry several
// move pairs; each becomes its own frame in arrival order.
func (c *Codec) Decode(raw protocol.RawFrame) ([]protocol.Frame, []protocol.Write, error) {
	data := raw.Data
	if len(data) < 6 {
		return nil, nil, fmt.Errorf("gocube: frame is %d bytes, want at least 6: %w", len(data), protocol.ErrFrameLength)
	}
	if data[0] != header || data[len(data)-2] != trailCR || data[len(data)-1] != trailLF {
		return nil, nil, fmt.Errorf("gocube: bad framing: %w", protocol.ErrMalformed)
	}
	var sum byte
	for _, b := range data[:len(data)-3] {
		sum += b
	}
	if sum != data[len(data)-3] {
		return nil, nil, fmt.Errorf("gocube: checksum %#02x, computed %#02x: %w", data[len(data)-3], sum, protocol.ErrChecksum)
	}

	payload := data[3 : len(data)-3]
	switch data[2] {
	case msgRotation:
		return c.decodeRotation(payload)
	case msgState:
		return c.decodeState(payload)
	case msgBattery:
		if len(payload) < 1 {
			return nil, nil, fmt.Errorf("gocube: empty battery payload: %w", protocol.ErrMalformed)
		}
		return []protocol.Frame{protocol.StatusFrame{
			Reply:   protocol.CommandBattery,
			Battery: int(payload[0]),
		}}, nil, nil
	default:
		// Orientation and offline-stats messages are not modeled.
		return nil, nil, nil
	}
}

// decodeRotation emits one move per pair. The second byte of each pair is
// the center orientation, which the move model does not need. Every
// rotation message answers with a state request so the tracker is
// re-checked against the device after each turn.
func (c *Codec) decodeRotation(payload []byte) ([]protocol.Frame, []protocol.Write, error) {
	var frames []protocol.Frame
	for i := 0; i+1 < len(payload); i += 2 {
		code := payload[i]
		if code>>1 >= 6 {
			return nil, nil, fmt.Errorf("gocube: move code %#02x out of range: %w", code, protocol.ErrMalformed)
		}
		turn := 1
		if code&1 == 1 {
			turn = -1
		}
		frames = append(frames, protocol.MoveFrame{
			Face:    axisToFace[axisPerm[code>>1]],
			Turn:    turn,
			Counter: -1,
		})
	}
	if len(frames) == 0 {
		return nil, nil, nil
	}
	resync, err := c.Encode(protocol.CommandState)
	if err != nil {
		return frames, nil, nil
	}
	return frames, []protocol.Write{resync}, nil
}

func (c *Codec) decodeState(payload []byte) ([]protocol.Frame, []protocol.Write, error) {
	if len(payload) < 54 {
		return nil, nil, fmt.Errorf("gocube: state payload is %d bytes, want 54: %w", len(payload), protocol.ErrFrameLength)
	}
	facelets := make([]byte, 54)
	for a := 0; a < 6; a++ {
		base := axisPerm[a] * 9
		off := faceOffset[a]
		center := payload[a*9]
		if center >= 6 {
			return nil, nil, fmt.Errorf("gocube: sticker value %d out of range: %w", center, protocol.ErrMalformed)
		}
		facelets[base+4] = stateFaces[center]
		for i := 0; i < 8; i++ {
			v := payload[a*9+i+1]
			if v >= 6 {
				return nil, nil, fmt.Errorf("gocube: sticker value %d out of range: %w", v, protocol.ErrMalformed)
			}
			facelets[base+facePerm[(i+off)%8]] = stateFaces[v]
		}
	}
	st, err := cube.FromFacelets(string(facelets))
	if err != nil {
		return nil, nil, fmt.Errorf("gocube: %v: %w", err, protocol.ErrMalformed)
	}
	if !st.Valid() {
		return nil, nil, fmt.Errorf("gocube: state fails structural validation: %w", protocol.ErrMalformed)
	}
	return []protocol.Frame{protocol.StateFrame{State: st}}, nil, nil
}

// Encode builds an outbound command. GoCube commands are bare single
// bytes without the notification framing.
func (c *Codec) Encode(kind protocol.CommandKind) (protocol.Write, error) {
	var b byte
	switch kind {
	case protocol.CommandBattery:
		b = cmdBattery
	case protocol.CommandState:
		b = cmdState
	case protocol.CommandCalibrate:
		b = cmdResetSolved
	default:
		return protocol.Write{}, protocol.ErrUnsupportedCommand
	}
	return protocol.Write{Characteristic: c.profile.WriteChar, Data: []byte{b}}, nil
}

// Hello requests the full state so the tracker can seed itself.
func (c *Codec) Hello() []protocol.Write {
	w, err := c.Encode(protocol.CommandState)
	if err != nil {
		return nil
	}
	return []protocol.Write{w}
}
