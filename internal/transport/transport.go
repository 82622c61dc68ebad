// Package transport is the WebSocket acceptor: upgrade, read/write pumps,
// and a JSON frame codec. It is a thin I/O shell around internal/session —
// grounded on the teacher's apps/server/internal/gateway package, but
// framed with encoding/json instead of the teacher's protobuf envelope
// (spec.md §6 mandates a JSON wire format).
package transport

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 65536

	// CloseUnknownSession is sent when a frame names a game or player the
	// gateway has no record of.
	CloseUnknownSession = 4004
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Frame is the envelope every client/server message is wrapped in.
// Type selects how Payload is interpreted (spec.md §6).
type Frame struct {
	Type    string          `json:"type"`
	GameID  string          `json:"game_id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Handler is implemented by internal/session: it owns game/player identity
// resolution and all game-mutating logic. The transport layer never
// touches a Game directly.
type Handler interface {
	// OnConnect is called once a socket is up; it returns the session key
	// the handler will use to address Send calls at this connection.
	OnConnect(conn *Connection) string
	// OnMessage is called for every decoded frame from this connection.
	OnMessage(sessionKey string, frame Frame)
	// OnDisconnect is called once, when the read pump exits for any reason.
	OnDisconnect(sessionKey string)
}

// Connection wraps one upgraded WebSocket with a buffered outbound queue,
// mirroring the teacher's gateway.Connection.
type Connection struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	closed atomic.Bool
}

func (c *Connection) ID() string { return c.id }

// NewTestConnection builds a Connection with no underlying socket, for
// internal/session tests that only need to observe what gets sent.
func NewTestConnection(id string) *Connection {
	return &Connection{id: id, send: make(chan []byte, 256)}
}

// Outbox drains every frame queued for this connection so far, decoded.
func (c *Connection) Outbox() []Frame {
	var out []Frame
	for {
		select {
		case data := <-c.send:
			var f Frame
			if err := json.Unmarshal(data, &f); err == nil {
				out = append(out, f)
			}
		default:
			return out
		}
	}
}

// Send enqueues a frame for the write pump. Non-blocking: if the queue is
// full the connection is considered dead and closed.
func (c *Connection) Send(f Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		log.Printf("[Transport] marshal error for conn %s: %v", c.id, err)
		return
	}
	select {
	case c.send <- data:
	default:
		log.Printf("[Transport] send queue full for conn %s, closing", c.id)
		c.Close(websocket.CloseMessageTooBig, "send queue overflow")
	}
}

// Close sends a close frame with the given code/reason and stops the pumps.
func (c *Connection) Close(code int, reason string) {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	close(c.send)
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}

// Gateway accepts WebSocket upgrades and drives a Handler.
type Gateway struct {
	mu      sync.Mutex
	nextID  uint64
	conns   map[string]*Connection
	handler Handler
}

func New(handler Handler) *Gateway {
	return &Gateway{
		conns:   make(map[string]*Connection),
		handler: handler,
	}
}

func (gw *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Transport] upgrade error: %v", err)
		return
	}

	gw.mu.Lock()
	gw.nextID++
	id := fmt.Sprintf("conn_%d", gw.nextID)
	c := &Connection{id: id, conn: conn, send: make(chan []byte, 256)}
	gw.conns[id] = c
	gw.mu.Unlock()

	sessionKey := gw.handler.OnConnect(c)
	log.Printf("[Transport] client connected: %s session=%s, total=%d", id, sessionKey, len(gw.conns))

	go gw.writePump(c)
	gw.readPump(c, sessionKey)
}

func (gw *Gateway) readPump(c *Connection, sessionKey string) {
	defer func() {
		gw.mu.Lock()
		delete(gw.conns, c.id)
		gw.mu.Unlock()
		gw.handler.OnDisconnect(sessionKey)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[Transport] read error on %s: %v", c.id, err)
			}
			return
		}
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			log.Printf("[Transport] bad frame from %s: %v", c.id, err)
			c.Send(Frame{Type: "error", Payload: rawString(`"invalid frame"`)})
			continue
		}
		gw.handler.OnMessage(sessionKey, f)
	}
}

func (gw *Gateway) writePump(c *Connection) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func rawString(s string) json.RawMessage { return json.RawMessage(s) }
