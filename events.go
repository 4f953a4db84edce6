package smartcube

import (
	"time"

	"github.com/google/uuid"
)

// Event is one item on the hub event stream. All events name the device
// they came from.
type Event interface {
	Device() string
	event()
}

// MoveEvent is one canonical move applied to a device's virtual cube.
type MoveEvent struct {
	Addr string
	Move Move
}

// StateEvent is a verified full-state snapshot from the device.
type StateEvent struct {
	Addr     string
	Facelets string // 54-character URFDLB string
	Solved   bool
	Resynced bool // true when the snapshot replaced a divergent tracked state
	Time     time.Time
}

// SessionEvent is a session state transition.
type SessionEvent struct {
	Addr string
	From SessionState
	To   SessionState
	Err  error // cause, set on transitions into Disconnected
}

// BatteryEvent is a battery level report.
type BatteryEvent struct {
	Addr  string
	Level int // 0-100
}

// CommandReplyEvent closes out a command issued through SendCommand.
// Err is ErrCommandTimeout when no reply arrived in time.
type CommandReplyEvent struct {
	Addr    string
	Token   uuid.UUID
	Command Command
	Err     error
}

// WarningEvent is a non-fatal pipeline diagnostic: a dropped frame or a
// detected notification gap.
type WarningEvent struct {
	Addr        string
	Err         error
	MissedMoves int // number of moves lost to a counter gap, if any
}

func (e MoveEvent) Device() string         { return e.Addr }
func (e StateEvent) Device() string        { return e.Addr }
func (e SessionEvent) Device() string      { return e.Addr }
func (e BatteryEvent) Device() string      { return e.Addr }
func (e CommandReplyEvent) Device() string { return e.Addr }
func (e WarningEvent) Device() string      { return e.Addr }

func (MoveEvent) event()         {}
func (StateEvent) event()        {}
func (SessionEvent) event()      {}
func (BatteryEvent) event()      {}
func (CommandReplyEvent) event() {}
func (WarningEvent) event()      {}
