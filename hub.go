package smartcube

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/cubesense/smartcube/internal/protocol"
)

// Vendor identifies a supported smart cube protocol family.
type Vendor string

const (
	VendorGiiker Vendor = "giiker"
	VendorGoCube Vendor = "gocube"
	VendorGAN    Vendor = "gan"
	VendorQiYi   Vendor = "qiyi"
)

// DeviceConfig registers one device with the hub.
type DeviceConfig struct {
	Address     string // BLE address
	Vendor      Vendor
	MAC         string // key-derivation MAC, defaults to Address
	Key         []byte // explicit cipher key override
	IV          []byte
	AutoConnect bool
}

// DeviceStatus is a point-in-time snapshot of one session.
type DeviceStatus struct {
	Address  string
	Vendor   Vendor
	State    SessionState
	Battery  int    // -1 when unknown
	Facelets string // empty before the first connection
	Solved   bool
	Moves    uint64
}

// Hub owns one session per registered device and fans their events into a
// single ordered-per-device stream.
//
//	hub := smartcube.NewHub(transport)
//	defer hub.Close()
//	hub.Register(smartcube.DeviceConfig{Address: addr, Vendor: smartcube.VendorGAN, AutoConnect: true})
//	for ev := range hub.Events() {
//	    ...
//	}
type Hub struct {
	cfg       *config
	transport Transport
	ctx       context.Context
	cancel    context.CancelFunc
	events    chan Event

	mu       sync.RWMutex
	sessions map[string]*session
	closed   bool
}

// NewHub creates a hub on the given transport.
func NewHub(t Transport, opts ...Option) *Hub {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		cfg:       cfg,
		transport: t,
		ctx:       ctx,
		cancel:    cancel,
		events:    make(chan Event, cfg.eventBuffer),
		sessions:  make(map[string]*session),
	}
}

// Register adds a device. Auto-connect, when set, starts the connection
// ladder as soon as the device is discovered (or immediately retried
// after a drop).
func (h *Hub) Register(dc DeviceConfig) error {
	profile, err := protocol.Lookup(protocol.Vendor(dc.Vendor))
	if err != nil {
		return ErrUnknownVendor
	}
	dc.Address = normalizeAddr(dc.Address)
	if dc.Address == "" {
		return ErrDeviceNotFound
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrSessionClosed
	}
	if _, exists := h.sessions[dc.Address]; exists {
		return ErrAlreadyConnected
	}
	s := newSession(h, dc, profile)
	h.sessions[dc.Address] = s
	if dc.AutoConnect {
		s.post(msgSetAuto{enable: true})
	}
	return nil
}

// SetAutoConnect toggles automatic connection management for a device.
// Disabling tears down an established link and parks the session idle.
func (h *Hub) SetAutoConnect(address string, enable bool) error {
	s, err := h.session(address)
	if err != nil {
		return err
	}
	s.post(msgSetAuto{enable: enable})
	return nil
}

// SendCommand issues a command to an active device and returns a token
// identifying the eventual CommandReplyEvent.
func (h *Hub) SendCommand(address string, cmd Command) (uuid.UUID, error) {
	s, err := h.session(address)
	if err != nil {
		return uuid.Nil, err
	}
	token := uuid.New()
	reply := make(chan error, 1)
	select {
	case s.msgs <- msgSend{cmd: cmd, token: token, reply: reply}:
	case <-s.done:
		return uuid.Nil, ErrSessionClosed
	}
	select {
	case err := <-reply:
		if err != nil {
			return uuid.Nil, err
		}
		return token, nil
	case <-s.done:
		return uuid.Nil, ErrSessionClosed
	}
}

// Events returns the hub event stream. The channel closes after Close.
func (h *Hub) Events() <-chan Event {
	return h.events
}

// Status reports a snapshot of one session.
func (h *Hub) Status(address string) (DeviceStatus, error) {
	s, err := h.session(address)
	if err != nil {
		return DeviceStatus{}, err
	}
	reply := make(chan DeviceStatus, 1)
	select {
	case s.msgs <- msgSnapshot{reply: reply}:
	case <-s.done:
		return DeviceStatus{}, ErrSessionClosed
	}
	select {
	case st := <-reply:
		return st, nil
	case <-s.done:
		return DeviceStatus{}, ErrSessionClosed
	}
}

// Devices reports a snapshot of every registered session.
func (h *Hub) Devices() []DeviceStatus {
	h.mu.RLock()
	addrs := make([]string, 0, len(h.sessions))
	for addr := range h.sessions {
		addrs = append(addrs, addr)
	}
	h.mu.RUnlock()

	out := make([]DeviceStatus, 0, len(addrs))
	for _, addr := range addrs {
		if st, err := h.Status(addr); err == nil {
			out = append(out, st)
		}
	}
	return out
}

// Scan watches advertisements until the context ends. Recognized smart
// cubes are reported through found; advertisements from registered
// devices additionally feed their session's discovery transition.
func (h *Hub) Scan(ctx context.Context, found func(Advertisement, Vendor)) error {
	return h.transport.Scan(ctx, func(adv Advertisement) {
		addr := normalizeAddr(adv.Address)
		h.mu.RLock()
		s := h.sessions[addr]
		h.mu.RUnlock()
		if s != nil {
			s.post(msgAdvert{})
		}
		p, err := protocol.Match(adv.Name, adv.ServiceUUIDs)
		if err != nil {
			return
		}
		if found != nil {
			found(adv, Vendor(p.Vendor))
		}
	})
}

// Close tears down every session and closes the event stream.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	sessions := make([]*session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	h.cancel()
	for _, s := range sessions {
		s.post(msgClose{})
		<-s.done
	}
	close(h.events)
	return nil
}

// emit delivers an event, dropping the oldest when the consumer lags.
func (h *Hub) emit(ev Event) {
	for {
		select {
		case h.events <- ev:
			return
		default:
		}
		select {
		case <-h.events:
			h.cfg.logger.Warn("event buffer full, dropped oldest event")
		default:
		}
	}
}

func (h *Hub) session(address string) (*session, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[normalizeAddr(address)]
	if !ok {
		return nil, ErrUnknownDevice
	}
	return s, nil
}

func normalizeAddr(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
