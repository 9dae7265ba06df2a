// Package wschannel is a narrow WebSocket-based implementation of the
// bidirectional data channel the pipeline expects: inbound binary frames
// carrying decoded video/audio, outbound JSON text messages carrying
// emitted events. It does not negotiate codecs, SDP, or ICE — those are
// explicitly out of scope for the pipeline core.
package wschannel

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/coder/websocket"
)

// Channel wraps one accepted WebSocket connection and satisfies both
// mmpipeline/internal/session.DataChannel and mmpipeline/internal/emit.Channel.
type Channel struct {
	conn   *websocket.Conn
	open   atomic.Bool
	sendMu sync.Mutex
}

// NewChannel wraps an already-accepted WebSocket connection, marked open.
func NewChannel(conn *websocket.Conn) *Channel {
	c := &Channel{conn: conn}
	c.open.Store(true)
	return c
}

// IsOpen reports whether the channel still accepts sends.
func (c *Channel) IsOpen() bool {
	return c.open.Load()
}

// Send writes text as a single WebSocket text message. Sends are
// serialized so concurrent emitters never interleave frames on the wire.
func (c *Channel) Send(text string) error {
	if !c.IsOpen() {
		return fmt.Errorf("wschannel: channel closed")
	}
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if err := c.conn.Write(context.Background(), websocket.MessageText, []byte(text)); err != nil {
		c.open.Store(false)
		return fmt.Errorf("wschannel: write: %w", err)
	}
	return nil
}

// Close marks the channel closed and closes the underlying connection
// with a normal closure status. Safe to call more than once.
func (c *Channel) Close() error {
	if !c.open.CompareAndSwap(true, false) {
		return nil
	}
	return c.conn.Close(websocket.StatusNormalClosure, "session ended")
}
