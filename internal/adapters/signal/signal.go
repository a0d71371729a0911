// Package signal is the local media transport: in-process rooms and a
// websocket relay for the room data channel. It stands in for the external
// media server in dev and tests.
package signal

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/dkeye/Classroom/internal/core"
)

var (
	ErrBackpressure        = errors.New("backpressure")
	ErrClosed              = errors.New("connection closed")
	ErrParticipantNotFound = errors.New("participant not in room")
)

// WsSignalConn is one websocket endpoint with a bounded send queue.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newConn(ws *websocket.Conn, queue int) *WsSignalConn {
	return &WsSignalConn{conn: ws, send: make(chan core.Frame, queue)}
}

// TrySend never blocks; a full queue is reported as backpressure.
func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
}
