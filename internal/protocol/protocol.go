// Package protocol defines the vendor-neutral frame model shared by all
// smart cube codecs: raw notifications in, typed frames out, plus the
// vendor profile registry and the move sequence normalizer.
package protocol

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cubesense/smartcube/internal/cube"
)

// Decode and encode failure modes. Per-frame failures are diagnostic only;
// BLE notifications are not re-deliverable, so a bad frame is dropped.
var (
	ErrUnknownVendor      = errors.New("protocol: unknown vendor")
	ErrFrameLength        = errors.New("protocol: frame length mismatch")
	ErrChecksum           = errors.New("protocol: checksum mismatch")
	ErrDecryption         = errors.New("protocol: decryption failed")
	ErrMalformed          = errors.New("protocol: malformed frame")
	ErrUnsupportedCommand = errors.New("protocol: command not supported by vendor")
)

// RawFrame is one BLE notification as delivered by the transport.
type RawFrame struct {
	Device         string    // device address
	Characteristic string    // source characteristic UUID
	Data           []byte
	Time           time.Time
}

// Frame is a decoded vendor frame: a move, a full-state snapshot or a
// device status reply.
type Frame interface {
	frame()
}

// MoveFrame is a single face turn reported by the cube.
//
// Counter carries the vendor's rolling move counter unmodified, or -1 for
// vendors without one. Rollover correction belongs to the Normalizer.
type MoveFrame struct {
	Face    cube.Face
	Turn    int // 1 = CW, -1 = CCW, 2 = half turn
	Counter int
}

// StateFrame is a full facelet snapshot reported by the cube. The state is
// structurally validated by the decoder before it is returned.
type StateFrame struct {
	State *cube.Cube
}

// StatusFrame is a reply to an outbound command.
type StatusFrame struct {
	Reply   CommandKind
	Battery int // 0-100, valid when Reply == CommandBattery
}

func (MoveFrame) frame()   {}
func (StateFrame) frame()  {}
func (StatusFrame) frame() {}

// CommandKind identifies an outbound command.
type CommandKind int

const (
	CommandBattery CommandKind = iota // request battery level
	CommandState                      // request full state snapshot
	CommandCalibrate                  // calibrate / reset to solved
)

func (k CommandKind) String() string {
	switch k {
	case CommandBattery:
		return "battery"
	case CommandState:
		return "state"
	case CommandCalibrate:
		return "calibrate"
	default:
		return fmt.Sprintf("command_%d", int(k))
	}
}

// Write is an outbound payload bound for a characteristic.
type Write struct {
	Characteristic string
	Data           []byte
}

// Decoder converts raw notifications into typed frames.
//
// Decode returns the frames carried by the notification in arrival order
// (vendors may pack several moves into one notification) together with any
// protocol-mandated immediate replies (e.g. QiYi acknowledgements). A
// returned error means the whole notification was discarded.
type Decoder interface {
	Decode(raw RawFrame) (frames []Frame, acks []Write, err error)
}

// Encoder builds outbound command payloads for a vendor.
type Encoder interface {
	// Encode produces the wire payload for a command, mirroring the
	// vendor's framing and encryption rules.
	Encode(kind CommandKind) (Write, error)

	// Hello returns the writes to issue right after subscribing, or nil.
	// Vendors use this for key exchanges and initial state requests.
	Hello() []Write
}

// KeyMaterial is the per-device secret input some vendors need, supplied
// by the host configuration at session start.
type KeyMaterial struct {
	MAC string // device MAC, salts GAN keys and is echoed in the QiYi hello
	Key []byte // explicit key override, vendor-specific length
	IV  []byte
}

// ParseMAC parses a colon-separated MAC address into its 6 bytes.
func ParseMAC(s string) ([6]byte, error) {
	var mac [6]byte
	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return mac, fmt.Errorf("invalid MAC address %q", s)
	}
	for i, p := range parts {
		var b byte
		if _, err := fmt.Sscanf(p, "%02x", &b); err != nil {
			return mac, fmt.Errorf("invalid MAC address %q: %w", s, err)
		}
		mac[i] = b
	}
	return mac, nil
}
