package smartcube

import "context"

// Advertisement is one BLE advertisement seen during a scan.
type Advertisement struct {
	Address      string
	Name         string
	RSSI         int16
	ServiceUUIDs []string
}

// Conn is an established link to one device. Implementations deliver
// notifications from the callback registered with Subscribe until Close
// is called or the link drops.
type Conn interface {
	// Subscribe enables notifications on a characteristic.
	Subscribe(charUUID string, handler func(data []byte)) error

	// Write sends a payload to a characteristic.
	Write(charUUID string, data []byte) error

	// Done is closed when the link drops for any reason.
	Done() <-chan struct{}

	Close() error
}

// Transport abstracts the BLE stack. The library ships a tinygo-based
// implementation; tests substitute their own.
type Transport interface {
	// Scan reports advertisements until the context is cancelled.
	Scan(ctx context.Context, found func(Advertisement)) error

	// Connect establishes a link and discovers the given services.
	Connect(ctx context.Context, address string, serviceUUIDs []string) (Conn, error)
}
