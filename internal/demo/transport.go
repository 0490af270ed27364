package demo

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

const (
	writeDeadline = 5 * time.Second
	pongDeadline  = 60 * time.Second
)

// Transport is the outbound half of one streaming connection. Tests inject
// stalled or failing transports; production uses the websocket adapter below.
type Transport interface {
	WriteMessage(data []byte) error
	WritePing() error
	Close() error
}

// wsTransport adapts a gorilla websocket connection to Transport, applying
// write deadlines and refreshing the read deadline on pong frames.
type wsTransport struct {
	conn  *websocket.Conn
	clock clockwork.Clock
}

// NewWebsocketTransport wraps an upgraded websocket connection. The caller
// keeps running the read loop; the demo engine owns the write side.
func NewWebsocketTransport(conn *websocket.Conn, clock clockwork.Clock) Transport {
	t := &wsTransport{conn: conn, clock: clock}
	_ = conn.SetReadDeadline(clock.Now().Add(pongDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(t.clock.Now().Add(pongDeadline))
	})
	return t
}

func (t *wsTransport) WriteMessage(data []byte) error {
	_ = t.conn.SetWriteDeadline(t.clock.Now().Add(writeDeadline))
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *wsTransport) WritePing() error {
	_ = t.conn.SetWriteDeadline(t.clock.Now().Add(writeDeadline))
	return t.conn.WriteMessage(websocket.PingMessage, nil)
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}
