package smartcube

// SessionState is the lifecycle state of one device session.
type SessionState int

const (
	StateIdle SessionState = iota
	StateDiscovered
	StateConnecting
	StateConnected
	StateSubscribing
	StateActive
	StateDisconnected
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDiscovered:
		return "discovered"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateSubscribing:
		return "subscribing"
	case StateActive:
		return "active"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Command identifies an outbound device command.
type Command int

const (
	CommandBattery   Command = iota // request battery level
	CommandState                    // request full state snapshot
	CommandCalibrate                // calibrate / reset to solved
)

func (c Command) String() string {
	switch c {
	case CommandBattery:
		return "battery"
	case CommandState:
		return "state"
	case CommandCalibrate:
		return "calibrate"
	default:
		return "unknown"
	}
}
