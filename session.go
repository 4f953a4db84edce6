package smartcube

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cubesense/smartcube/internal/protocol"
	"github.com/cubesense/smartcube/internal/protocol/codec"
	"github.com/cubesense/smartcube/internal/tracker"
)

// Session messages. Everything that touches session state flows through
// the msgs channel and is handled by the run goroutine, which gives moves
// and snapshots a single total order per device.
type (
	msgSetAuto  struct{ enable bool }
	msgAdvert   struct{}
	msgRetry    struct{}
	msgConnLost struct {
		conn Conn
		err  error
	}
	msgNotify struct {
		char string
		data []byte
		at   time.Time
	}
	msgSend struct {
		cmd   Command
		token uuid.UUID
		reply chan error
	}
	msgCmdTimeout  struct{ token uuid.UUID }
	msgBatteryPoll struct{}
	msgSnapshot    struct{ reply chan DeviceStatus }
	msgClose       struct{}
)

// batteryPollInterval is how often an active session refreshes the
// battery level on its own. Vendors whose encoder cannot request it
// (QiYi reports battery with every state message) are skipped.
const batteryPollInterval = 5 * time.Minute

type pendingCmd struct {
	token uuid.UUID
	cmd   Command
	timer *time.Timer
}

// session drives the connection lifecycle for one registered device.
type session struct {
	hub     *Hub
	cfg     DeviceConfig
	profile *protocol.Profile
	log     *logrus.Entry

	msgs chan any
	done chan struct{}

	// Owned by the run goroutine.
	state   SessionState
	auto    bool
	conn    Conn
	codec   codec.Codec
	norm    *protocol.Normalizer
	track   *tracker.Tracker
	battery int
	backoff time.Duration
	pending map[Command]*pendingCmd
	poll    *time.Timer
}

func newSession(h *Hub, cfg DeviceConfig, profile *protocol.Profile) *session {
	s := &session{
		hub:     h,
		cfg:     cfg,
		profile: profile,
		log:     h.cfg.logger.WithFields(logrus.Fields{"device": cfg.Address, "vendor": profile.Vendor}),
		msgs:    make(chan any, 128),
		done:    make(chan struct{}),
		state:   StateIdle,
		norm:    protocol.NewNormalizer(profile.CounterWidth),
		battery: -1,
		backoff: h.cfg.backoffMin,
		pending: make(map[Command]*pendingCmd),
	}
	go s.run()
	return s
}

// post delivers a message unless the session is shutting down.
func (s *session) post(m any) {
	select {
	case s.msgs <- m:
	case <-s.done:
	}
}

func (s *session) run() {
	defer close(s.done)
	for m := range s.msgs {
		switch m := m.(type) {
		case msgSetAuto:
			s.handleSetAuto(m.enable)
		case msgAdvert:
			s.handleAdvert()
		case msgRetry:
			if s.auto && s.state == StateDisconnected {
				s.connect()
			}
		case msgConnLost:
			s.handleConnLost(m)
		case msgNotify:
			s.handleNotify(m)
		case msgSend:
			m.reply <- s.handleSend(m)
		case msgCmdTimeout:
			s.handleCmdTimeout(m.token)
		case msgBatteryPoll:
			s.handleBatteryPoll()
		case msgSnapshot:
			m.reply <- s.status()
		case msgClose:
			s.teardown(nil)
			return
		}
	}
}

func (s *session) transition(to SessionState, err error) {
	if s.state == to {
		return
	}
	from := s.state
	s.state = to
	fields := logrus.Fields{"from": from, "to": to}
	if err != nil {
		s.log.WithFields(fields).WithError(err).Info("session state changed")
	} else {
		s.log.WithFields(fields).Info("session state changed")
	}
	s.hub.emit(SessionEvent{Addr: s.cfg.Address, From: from, To: to, Err: err})
}

func (s *session) handleSetAuto(enable bool) {
	if s.auto == enable {
		return
	}
	s.auto = enable
	if enable {
		switch s.state {
		case StateDiscovered, StateDisconnected:
			s.connect()
		}
		return
	}
	// Disabling tears down an established link.
	if s.conn != nil {
		s.teardown(nil)
	}
	s.transition(StateIdle, nil)
}

func (s *session) handleAdvert() {
	switch s.state {
	case StateIdle:
		s.transition(StateDiscovered, nil)
		if s.auto {
			s.connect()
		}
	case StateDisconnected:
		// Seeing the device again does not bypass the retry backoff.
	}
}

// connect runs the whole Connecting -> Active ladder synchronously. The
// session cannot receive notifications while unconnected, so blocking the
// loop here is safe.
func (s *session) connect() {
	s.transition(StateConnecting, nil)

	ctx, cancel := context.WithTimeout(s.hub.ctx, s.hub.cfg.connectTimeout)
	defer cancel()

	services := []string{s.profile.ServiceUUID}
	if s.profile.SystemServiceUUID != "" {
		services = append(services, s.profile.SystemServiceUUID)
	}
	conn, err := s.hub.transport.Connect(ctx, s.cfg.Address, services)
	if err != nil {
		s.log.WithError(err).Warn("connection attempt failed")
		s.toDisconnected(fmt.Errorf("%w: %v", ErrConnectionFailed, err))
		return
	}
	s.conn = conn
	s.transition(StateConnected, nil)

	km := protocol.KeyMaterial{MAC: s.cfg.MAC, Key: s.cfg.Key, IV: s.cfg.IV}
	if km.MAC == "" {
		km.MAC = s.cfg.Address
	}
	cdc, err := codec.New(protocol.Vendor(s.cfg.Vendor), km)
	if err != nil {
		s.teardown(err)
		s.toDisconnected(err)
		return
	}
	s.codec = cdc
	// The sequence numbering outlives the link: only the wire counter
	// baseline is discarded, the device may have restarted it.
	s.norm.Reset()
	s.track = tracker.New()

	s.transition(StateSubscribing, nil)
	notifyChars := []string{s.profile.NotifyChar}
	if s.profile.SystemNotifyChar != "" {
		notifyChars = append(notifyChars, s.profile.SystemNotifyChar)
	}
	for _, char := range notifyChars {
		char := char
		if err := conn.Subscribe(char, func(data []byte) {
			buf := make([]byte, len(data))
			copy(buf, data)
			s.post(msgNotify{char: char, data: buf, at: time.Now()})
		}); err != nil {
			s.teardown(err)
			s.toDisconnected(fmt.Errorf("%w: subscribe: %v", ErrConnectionFailed, err))
			return
		}
	}

	// Watch for the link dropping underneath us. The watcher names its
	// own conn so a drop from a superseded link cannot tear down a
	// replacement.
	go func(c Conn) {
		<-c.Done()
		s.post(msgConnLost{conn: c, err: ErrNotConnected})
	}(conn)

	for _, w := range s.codec.Hello() {
		if err := conn.Write(w.Characteristic, w.Data); err != nil {
			s.log.WithError(err).Warn("hello write failed")
		}
	}

	s.backoff = s.hub.cfg.backoffMin
	s.transition(StateActive, nil)
	s.poll = time.AfterFunc(batteryPollInterval, func() { s.post(msgBatteryPoll{}) })
}

// handleBatteryPoll refreshes the battery level in the background. A
// reply already in flight suppresses the request.
func (s *session) handleBatteryPoll() {
	if s.state != StateActive {
		return
	}
	if _, busy := s.pending[CommandBattery]; !busy {
		if w, err := s.codec.Encode(protocol.CommandBattery); err == nil {
			if err := s.conn.Write(w.Characteristic, w.Data); err != nil {
				s.log.WithError(err).Debug("battery poll write failed")
			}
		}
	}
	s.poll = time.AfterFunc(batteryPollInterval, func() { s.post(msgBatteryPoll{}) })
}

func (s *session) handleConnLost(m msgConnLost) {
	if s.conn == nil || m.conn != s.conn {
		// Stale drop from a link that was already torn down.
		return
	}
	s.teardown(m.err)
	s.toDisconnected(m.err)
}

// toDisconnected enters Disconnected and schedules a retry when
// auto-connect is on.
func (s *session) toDisconnected(err error) {
	s.transition(StateDisconnected, err)
	if !s.auto {
		return
	}
	delay := s.backoff
	s.backoff *= 2
	if s.backoff > s.hub.cfg.backoffMax {
		s.backoff = s.hub.cfg.backoffMax
	}
	s.log.WithField("delay", delay).Debug("scheduling reconnect")
	time.AfterFunc(delay, func() { s.post(msgRetry{}) })
}

// teardown closes the link and fails outstanding commands.
func (s *session) teardown(cause error) {
	for kind, p := range s.pending {
		p.timer.Stop()
		delete(s.pending, kind)
		err := cause
		if err == nil {
			err = ErrSessionClosed
		}
		s.hub.emit(CommandReplyEvent{Addr: s.cfg.Address, Token: p.token, Command: p.cmd, Err: err})
	}
	if s.poll != nil {
		s.poll.Stop()
		s.poll = nil
	}
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.codec = nil
}

func (s *session) handleNotify(m msgNotify) {
	if s.state != StateActive && s.state != StateSubscribing {
		return
	}
	raw := protocol.RawFrame{
		Device:         s.cfg.Address,
		Characteristic: m.char,
		Data:           m.data,
		Time:           m.at,
	}
	frames, acks, err := s.codec.Decode(raw)
	if err != nil {
		// Notifications are not re-deliverable; drop and surface.
		s.log.WithError(err).Debug("dropped undecodable frame")
		s.hub.emit(WarningEvent{Addr: s.cfg.Address, Err: err})
		return
	}
	for _, w := range acks {
		if err := s.conn.Write(w.Characteristic, w.Data); err != nil {
			s.log.WithError(err).Warn("protocol ack write failed")
		}
	}
	for _, f := range frames {
		switch fr := f.(type) {
		case protocol.MoveFrame:
			s.handleMoveFrame(fr, m.at)
		case protocol.StateFrame:
			resynced := s.track.OfferSnapshot(fr.State)
			if resynced {
				s.log.Warn("tracked state diverged from device snapshot, resynchronized")
			}
			s.resolvePending(CommandState, nil)
			s.hub.emit(StateEvent{
				Addr:     s.cfg.Address,
				Facelets: fr.State.ToFacelets(),
				Solved:   fr.State.IsSolved(),
				Resynced: resynced,
				Time:     m.at,
			})
		case protocol.StatusFrame:
			if fr.Reply == protocol.CommandBattery {
				s.battery = fr.Battery
				s.resolvePending(CommandBattery, nil)
				s.hub.emit(BatteryEvent{Addr: s.cfg.Address, Level: fr.Battery})
			}
		}
	}
}

func (s *session) handleMoveFrame(fr protocol.MoveFrame, at time.Time) {
	seq, missed := s.norm.Normalize(fr.Counter)
	if missed > 0 {
		s.log.WithField("missed", missed).Warn("move counter gap detected")
		s.hub.emit(WarningEvent{
			Addr:        s.cfg.Address,
			Err:         fmt.Errorf("smartcube: %d move(s) lost to a notification gap", missed),
			MissedMoves: missed,
		})
	}
	s.track.Apply(fr.Face, fr.Turn)
	s.hub.emit(MoveEvent{
		Addr: s.cfg.Address,
		Move: Move{Face: cubeToFace[fr.Face], Turn: Turn(fr.Turn), Seq: seq, Time: at},
	})
}

func (s *session) handleSend(m msgSend) error {
	if s.state != StateActive {
		return ErrNotConnected
	}
	if _, busy := s.pending[m.cmd]; busy {
		return ErrCommandPending
	}
	w, err := s.codec.Encode(protocol.CommandKind(m.cmd))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrCommandRejected, m.cmd)
	}
	if err := s.conn.Write(w.Characteristic, w.Data); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	if m.cmd == CommandCalibrate {
		// No reply on the wire; report completion right away.
		s.hub.emit(CommandReplyEvent{Addr: s.cfg.Address, Token: m.token, Command: m.cmd})
		return nil
	}
	token := m.token
	p := &pendingCmd{token: token, cmd: m.cmd}
	p.timer = time.AfterFunc(s.hub.cfg.commandTimeout, func() {
		s.post(msgCmdTimeout{token: token})
	})
	s.pending[m.cmd] = p
	return nil
}

func (s *session) handleCmdTimeout(token uuid.UUID) {
	for kind, p := range s.pending {
		if p.token == token {
			delete(s.pending, kind)
			s.log.WithField("command", p.cmd).Warn("command reply timed out")
			s.hub.emit(CommandReplyEvent{Addr: s.cfg.Address, Token: p.token, Command: p.cmd, Err: ErrCommandTimeout})
			return
		}
	}
}

func (s *session) resolvePending(kind Command, err error) {
	p, ok := s.pending[kind]
	if !ok {
		return
	}
	p.timer.Stop()
	delete(s.pending, kind)
	s.hub.emit(CommandReplyEvent{Addr: s.cfg.Address, Token: p.token, Command: p.cmd, Err: err})
}

func (s *session) status() DeviceStatus {
	st := DeviceStatus{
		Address: s.cfg.Address,
		Vendor:  s.cfg.Vendor,
		State:   s.state,
		Battery: s.battery,
	}
	if s.track != nil {
		c := s.track.State()
		st.Facelets = c.ToFacelets()
		st.Solved = c.IsSolved()
		st.Moves = s.track.MoveCount()
	}
	return st
}
