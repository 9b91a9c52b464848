package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/remyhonig/obsidian-fitness-sub000/internal/event"
)

const (
	// eventBufferSize is how many events a client may fall behind before it
	// is dropped.
	eventBufferSize = 64
	wsWriteTimeout  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // tsnet handles access; origins are not a boundary here
	},
}

// eventEnvelope is the wire form of one engine event.
type eventEnvelope struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   event.Event `json:"payload"`
}

// handleEvents upgrades the connection and streams every engine event to
// the client until it disconnects or falls too far behind.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan eventEnvelope, eventBufferSize),
		done: make(chan struct{}),
	}
	unsubscribe := s.engine.OnAny(client.enqueue)
	defer unsubscribe()

	// Prime the stream with the current state, mirroring the engine's
	// subscribe contract of one immediate invocation.
	client.enqueue(event.NewSessionChangedEvent(s.engine.Now(), s.engine.ActiveSession()))

	s.log.Debug("event stream connected", "remote", r.RemoteAddr)
	go client.readLoop()
	client.writeLoop()
	s.log.Debug("event stream disconnected", "remote", r.RemoteAddr)
}

// wsClient is one connected event stream subscriber.
type wsClient struct {
	conn *websocket.Conn
	send chan eventEnvelope
	done chan struct{}
	once sync.Once
}

// enqueue hands an event to the write loop. The bus dispatches synchronously,
// so a full buffer drops the client rather than stalling the engine.
func (c *wsClient) enqueue(ev event.Event) {
	env := eventEnvelope{
		Type:      ev.EventType(),
		Timestamp: ev.Timestamp(),
		Payload:   ev,
	}
	select {
	case <-c.done:
	case c.send <- env:
	default:
		c.drop()
	}
}

func (c *wsClient) drop() {
	c.once.Do(func() { close(c.done) })
}

func (c *wsClient) writeLoop() {
	defer c.conn.Close()
	for {
		select {
		case env := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.conn.WriteJSON(env); err != nil {
				c.drop()
				return
			}
		case <-c.done:
			return
		}
	}
}

// readLoop discards inbound frames; it exists to notice the peer going away.
func (c *wsClient) readLoop() {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			c.drop()
			return
		}
	}
}
