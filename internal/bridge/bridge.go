// Package bridge publishes hub events to websocket clients as JSON.
package bridge

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/cubesense/smartcube"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second

	// sendBuffer frames per client before it is considered too slow.
	sendBuffer = 64
)

// Message is the JSON envelope sent to clients.
type Message struct {
	Type   string    `json:"type"`
	Device string    `json:"device"`
	Time   time.Time `json:"time"`
	Data   any       `json:"data,omitempty"`
}

// Server fans hub events out to websocket subscribers.
type Server struct {
	log      *logrus.Entry
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]bool
}

type client struct {
	conn *websocket.Conn
	send chan Message
}

// New returns a bridge server.
func New(log *logrus.Logger) *Server {
	return &Server{
		log: log.WithField("component", "bridge"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*client]bool),
	}
}

// Handler returns the websocket endpoint handler.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.handleConnection)
}

func (s *Server) handleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	c := &client{conn: conn, send: make(chan Message, sendBuffer)}
	s.mu.Lock()
	s.clients[c] = true
	n := len(s.clients)
	s.mu.Unlock()
	s.log.WithFields(logrus.Fields{"remote": r.RemoteAddr, "clients": n}).Info("websocket client connected")

	go s.writePump(c)
	go s.readPump(c)
}

// Publish sends an event to every connected client. Clients that cannot
// keep up are dropped.
func (s *Server) Publish(ev smartcube.Event) {
	msg := encode(ev)
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- msg:
		default:
			delete(s.clients, c)
			close(c.send)
			s.log.Warn("dropped slow websocket client")
		}
	}
}

// Close disconnects every client.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
	}
}

func (s *Server) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteControl(websocket.CloseMessage, nil, time.Now().Add(writeWait))
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				s.remove(c)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.remove(c)
				return
			}
		}
	}
}

// readPump discards inbound messages; it exists to notice closes.
func (s *Server) readPump(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			s.remove(c)
			c.conn.Close()
			return
		}
	}
}

func (s *Server) remove(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clients[c] {
		delete(s.clients, c)
		close(c.send)
	}
}

// encode maps a hub event to its wire envelope.
func encode(ev smartcube.Event) Message {
	msg := Message{Device: ev.Device(), Time: time.Now()}
	switch ev := ev.(type) {
	case smartcube.MoveEvent:
		msg.Type = "move"
		msg.Time = ev.Move.Time
		msg.Data = map[string]any{
			"notation": ev.Move.Notation(),
			"seq":      ev.Move.Seq,
		}
	case smartcube.StateEvent:
		msg.Type = "state"
		msg.Time = ev.Time
		msg.Data = map[string]any{
			"facelets": ev.Facelets,
			"solved":   ev.Solved,
			"resynced": ev.Resynced,
		}
	case smartcube.SessionEvent:
		msg.Type = "session"
		data := map[string]any{
			"from": ev.From.String(),
			"to":   ev.To.String(),
		}
		if ev.Err != nil {
			data["error"] = ev.Err.Error()
		}
		msg.Data = data
	case smartcube.BatteryEvent:
		msg.Type = "battery"
		msg.Data = map[string]any{"level": ev.Level}
	case smartcube.CommandReplyEvent:
		msg.Type = "command_reply"
		data := map[string]any{
			"token":   ev.Token.String(),
			"command": ev.Command.String(),
		}
		if ev.Err != nil {
			data["error"] = ev.Err.Error()
		}
		msg.Data = data
	case smartcube.WarningEvent:
		msg.Type = "warning"
		data := map[string]any{"missed_moves": ev.MissedMoves}
		if ev.Err != nil {
			data["error"] = ev.Err.Error()
		}
		msg.Data = data
	default:
		msg.Type = "unknown"
	}
	return msg
}
