package peer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

var ErrClosed = errors.New("data channel closed")

// Conn is the client end of the room data channel. Publish may be called
// from any goroutine; only Run reads.
type Conn struct {
	ws *websocket.Conn

	wmu    sync.Mutex
	closed bool
}

func Dial(ctx context.Context, dataURL string) (*Conn, error) {
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, dataURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial data channel: %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("dial data channel: %w", err)
	}
	return &Conn{ws: ws}, nil
}

// Publish sends one reliable message to every other member of the room.
func (c *Conn) Publish(ctx context.Context, data []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.closed {
		return ErrClosed
	}
	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.ws.SetWriteDeadline(deadline)
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Run hands every inbound message to handle until the channel drops or ctx
// is done.
func (c *Conn) Run(ctx context.Context, handle func([]byte)) error {
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return ErrClosed
			}
			return err
		}
		handle(data)
	}
}

func (c *Conn) Close() error {
	c.wmu.Lock()
	if c.closed {
		c.wmu.Unlock()
		return nil
	}
	c.closed = true
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.wmu.Unlock()
	return c.ws.Close()
}
