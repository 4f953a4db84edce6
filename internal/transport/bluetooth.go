// Package transport implements the smartcube BLE transport on
// tinygo.org/x/bluetooth.
package transport

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"

	"github.com/cubesense/smartcube"
	"github.com/cubesense/smartcube/internal/protocol"
)

// findTimeout bounds the address scan inside Connect when the device was
// not seen by an earlier Scan.
const findTimeout = 10 * time.Second

// BLE is a smartcube.Transport backed by the platform Bluetooth adapter.
type BLE struct {
	adapter *bluetooth.Adapter
	log     *logrus.Entry

	mu    sync.Mutex
	seen  map[string]bluetooth.Address
	conns map[string]*conn

	scanMu sync.Mutex
}

// NewBLE enables the default adapter and returns a transport on it.
func NewBLE(log *logrus.Logger) (*BLE, error) {
	adapter := bluetooth.DefaultAdapter
	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("transport: enable adapter: %w", err)
	}
	b := &BLE{
		adapter: adapter,
		log:     log.WithField("component", "transport"),
		seen:    make(map[string]bluetooth.Address),
		conns:   make(map[string]*conn),
	}
	// One handler for the whole adapter; route drops to the right link.
	adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		if connected {
			return
		}
		addr := normalizeAddr(device.Address.String())
		b.mu.Lock()
		c := b.conns[addr]
		delete(b.conns, addr)
		b.mu.Unlock()
		if c != nil {
			b.log.WithField("device", addr).Debug("link dropped")
			c.drop()
		}
	})
	return b, nil
}

// Scan reports advertisements until the context ends. Service UUIDs are
// probed against the known vendor profiles because the advertisement
// payload only answers membership queries.
func (b *BLE) Scan(ctx context.Context, found func(smartcube.Advertisement)) error {
	b.scanMu.Lock()
	defer b.scanMu.Unlock()

	errc := make(chan error, 1)
	go func() {
		errc <- b.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			addr := normalizeAddr(result.Address.String())
			b.mu.Lock()
			b.seen[addr] = result.Address
			b.mu.Unlock()
			found(smartcube.Advertisement{
				Address:      addr,
				Name:         result.LocalName(),
				RSSI:         result.RSSI,
				ServiceUUIDs: advertisedServices(result),
			})
		})
	}()

	select {
	case <-ctx.Done():
		b.adapter.StopScan()
		<-errc
		return ctx.Err()
	case err := <-errc:
		return err
	}
}

// advertisedServices probes the payload for every known vendor service.
func advertisedServices(result bluetooth.ScanResult) []string {
	var uuids []string
	for _, p := range protocol.Profiles() {
		u, err := parseUUID(p.ServiceUUID)
		if err != nil {
			continue
		}
		if result.AdvertisementPayload.HasServiceUUID(u) {
			uuids = append(uuids, p.ServiceUUID)
		}
	}
	return uuids
}

// Connect establishes a link and discovers the requested services.
func (b *BLE) Connect(ctx context.Context, address string, serviceUUIDs []string) (smartcube.Conn, error) {
	address = normalizeAddr(address)
	target, err := b.findAddress(ctx, address)
	if err != nil {
		return nil, err
	}

	device, err := b.adapter.Connect(target, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, fmt.Errorf("transport: connect %s: %w", address, err)
	}

	var wanted []bluetooth.UUID
	for _, s := range serviceUUIDs {
		u, err := parseUUID(s)
		if err != nil {
			device.Disconnect()
			return nil, err
		}
		wanted = append(wanted, u)
	}
	services, err := device.DiscoverServices(wanted)
	if err != nil {
		device.Disconnect()
		return nil, fmt.Errorf("transport: discover services: %w", err)
	}
	if len(services) == 0 {
		device.Disconnect()
		return nil, fmt.Errorf("transport: %s exposes none of the requested services", address)
	}

	chars := make(map[string]bluetooth.DeviceCharacteristic)
	for _, svc := range services {
		discovered, err := svc.DiscoverCharacteristics(nil)
		if err != nil {
			device.Disconnect()
			return nil, fmt.Errorf("transport: discover characteristics: %w", err)
		}
		for _, ch := range discovered {
			chars[ch.UUID().String()] = ch
		}
	}

	c := &conn{device: device, chars: chars, done: make(chan struct{})}
	b.mu.Lock()
	b.conns[address] = c
	b.mu.Unlock()
	b.log.WithFields(logrus.Fields{"device": address, "characteristics": len(chars)}).Debug("connected")
	return c, nil
}

// findAddress resolves an address string to an adapter address, scanning
// when no earlier Scan has seen the device.
func (b *BLE) findAddress(ctx context.Context, address string) (bluetooth.Address, error) {
	b.mu.Lock()
	if addr, ok := b.seen[address]; ok {
		b.mu.Unlock()
		return addr, nil
	}
	b.mu.Unlock()

	b.scanMu.Lock()
	defer b.scanMu.Unlock()

	var target bluetooth.Address
	found := make(chan struct{})
	var once sync.Once
	go func() {
		b.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			if normalizeAddr(result.Address.String()) != address {
				return
			}
			target = result.Address
			once.Do(func() { close(found) })
		})
	}()

	select {
	case <-found:
		b.adapter.StopScan()
		b.mu.Lock()
		b.seen[address] = target
		b.mu.Unlock()
		return target, nil
	case <-time.After(findTimeout):
		b.adapter.StopScan()
		return bluetooth.Address{}, smartcube.ErrDeviceNotFound
	case <-ctx.Done():
		b.adapter.StopScan()
		return bluetooth.Address{}, ctx.Err()
	}
}

// conn is one established link.
type conn struct {
	device bluetooth.Device
	chars  map[string]bluetooth.DeviceCharacteristic
	done   chan struct{}
	once   sync.Once
}

func (c *conn) Subscribe(charUUID string, handler func(data []byte)) error {
	ch, ok := c.chars[charUUID]
	if !ok {
		return fmt.Errorf("transport: characteristic %s not discovered", charUUID)
	}
	return ch.EnableNotifications(handler)
}

// Write prefers write-without-response, which most cubes require, and
// falls back to a confirmed write.
func (c *conn) Write(charUUID string, data []byte) error {
	ch, ok := c.chars[charUUID]
	if !ok {
		return fmt.Errorf("transport: characteristic %s not discovered", charUUID)
	}
	if _, err := ch.WriteWithoutResponse(data); err != nil {
		_, err = ch.Write(data)
		return err
	}
	return nil
}

func (c *conn) Done() <-chan struct{} { return c.done }

func (c *conn) Close() error {
	err := c.device.Disconnect()
	c.drop()
	return err
}

func (c *conn) drop() {
	c.once.Do(func() { close(c.done) })
}

// normalizeAddr lowercases an address for map keys and comparisons. The
// adapter renders MAC addresses uppercase while callers usually pass the
// lowercase form.
func normalizeAddr(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// parseUUID converts a canonical UUID string to the adapter form.
func parseUUID(s string) (bluetooth.UUID, error) {
	clean := make([]byte, 0, 32)
	for i := 0; i < len(s); i++ {
		if s[i] != '-' {
			clean = append(clean, s[i])
		}
	}
	if len(clean) != 32 {
		return bluetooth.UUID{}, fmt.Errorf("transport: malformed UUID %q", s)
	}
	var raw [16]byte
	if _, err := hex.Decode(raw[:], clean); err != nil {
		return bluetooth.UUID{}, fmt.Errorf("transport: malformed UUID %q", s)
	}
	return bluetooth.NewUUID(raw), nil
}
