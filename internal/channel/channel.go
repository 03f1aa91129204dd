// Package channel maintains the WebSocket connection to the detection
// service: it ships encoded frames out, decodes detection batches coming
// back, and tracks how many frames are still unanswered.
package channel

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/susatyo441/shop-vision/internal/domain"
)

var ErrClosed = errors.New("detection channel is closed")

// BatchHandler consumes one decoded detection batch. The handler runs on
// the channel's read loop, so a batch is fully processed before the next
// one is decoded and before the in-flight counter is decremented for it.
type BatchHandler func(ctx context.Context, batch domain.DetectionBatch)

type outboundFrame struct {
	Frame string `json:"frame"`
}

// Channel is one logical connection to the detection service. It is owned
// exclusively by the capture controller and recreated, never reused, when a
// new detection pass is requested.
type Channel struct {
	conn    *websocket.Conn
	handler BatchHandler

	mu       sync.Mutex
	inFlight int
	avgFPS   float64
	closed   bool

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects to the detection service and starts the read loop.
func Dial(ctx context.Context, rawURL string, handler BatchHandler) (*Channel, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, rawURL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial detection service failed: %w", err)
	}

	c := &Channel{
		conn:    conn,
		handler: handler,
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Send transmits one JPEG frame. It does not wait for a matching response;
// responses arrive asynchronously and possibly out of send order.
func (c *Channel) Send(frame []byte) error {
	if !c.IsOpen() {
		return ErrClosed
	}

	msg := outboundFrame{Frame: base64.StdEncoding.EncodeToString(frame)}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("send frame failed: %w", err)
	}
	return nil
}

// AddInFlight records one frame sent but not yet answered.
func (c *Channel) AddInFlight() {
	c.mu.Lock()
	c.inFlight++
	c.mu.Unlock()
}

// ReleaseInFlight undoes AddInFlight for a frame that never left.
func (c *Channel) ReleaseInFlight() {
	c.mu.Lock()
	if c.inFlight > 0 {
		c.inFlight--
	}
	c.mu.Unlock()
}

func (c *Channel) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

func (c *Channel) AverageFPS() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.avgFPS
}

func (c *Channel) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// WaitIdle blocks until every in-flight frame has been answered, the
// context is cancelled, or the timeout elapses. A dropped connection leaves
// frames unanswered forever, so on timeout the counter is force-reset and
// WaitIdle returns false.
func (c *Channel) WaitIdle(ctx context.Context, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if c.InFlight() == 0 {
				return true
			}
		case <-deadline.C:
			c.mu.Lock()
			lost := c.inFlight
			c.inFlight = 0
			c.mu.Unlock()
			if lost > 0 {
				slog.Warn("in-flight frames presumed lost", "count", lost)
			}
			return false
		case <-ctx.Done():
			return c.InFlight() == 0
		}
	}
}

// Close terminates the connection. Idempotent.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		err = c.conn.Close()
		<-c.done
	})
	return err
}

func (c *Channel) readLoop() {
	defer close(c.done)
	ctx := context.Background()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			c.closed = true
			c.mu.Unlock()
			return
		}

		var batch domain.DetectionBatch
		if errUnmarshal := json.Unmarshal(data, &batch); errUnmarshal != nil {
			// Malformed messages are dropped, not fatal.
			slog.Warn("malformed detection message", "error", errUnmarshal)
			continue
		}

		if !batch.IsResult() {
			continue // heartbeat
		}

		c.mu.Lock()
		c.avgFPS = batch.AverageFPS
		c.mu.Unlock()

		if c.handler != nil {
			c.handler(ctx, batch)
		}

		// Exactly one decrement per handled batch, after its detections
		// have been resolved by the handler.
		c.ReleaseInFlight()
	}
}
