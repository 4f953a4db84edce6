package smartcube

import (
	"errors"

	"github.com/cubesense/smartcube/internal/protocol"
)

// Sentinel errors for the smartcube package.
var (
	// Connection errors
	ErrNotConnected     = errors.New("smartcube: not connected to device")
	ErrAlreadyConnected = errors.New("smartcube: already connected")
	ErrDeviceNotFound   = errors.New("smartcube: device not found")
	ErrConnectionFailed = errors.New("smartcube: connection failed")
	ErrTimeout          = errors.New("smartcube: operation timed out")

	// Session errors
	ErrSessionClosed   = errors.New("smartcube: session closed")
	ErrUnknownDevice   = errors.New("smartcube: device not registered")
	ErrCommandTimeout  = errors.New("smartcube: command reply timed out")
	ErrCommandRejected = errors.New("smartcube: command not supported by vendor")
	ErrCommandPending  = errors.New("smartcube: a command of this kind is already in flight")

	// Parsing errors
	ErrInvalidNotation = errors.New("smartcube: invalid move notation")
)

// Decode failure sentinels, re-exported so callers can classify warning
// events with errors.Is without importing internal packages.
var (
	ErrUnknownVendor    = protocol.ErrUnknownVendor
	ErrFrameLength      = protocol.ErrFrameLength
	ErrChecksumMismatch = protocol.ErrChecksum
	ErrDecryptFailed    = protocol.ErrDecryption
	ErrMalformedFrame   = protocol.ErrMalformed
)
