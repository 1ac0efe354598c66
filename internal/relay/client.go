package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"chatroom/internal/logger"
	"chatroom/internal/record"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ErrNotConnected is returned by Sync once the connection is gone.
var ErrNotConnected = errors.New("relay not connected")

// Client is a record.Store mirrored from a relay server. Set stages
// fields locally; Sync sends them as one patch. The local mirror only
// changes when the server pushes a snapshot, so a write becomes visible
// after its round trip.
type Client struct {
	id   string
	conn *websocket.Conn
	hub  *record.Hub
	log  *logger.LogEntry
	send chan []byte
	done chan struct{}

	mu        sync.Mutex
	mirror    record.Record
	pending   record.Record
	connected bool
	synced    bool
	readErr   error
	closeOnce sync.Once
}

var _ record.Store = (*Client)(nil)

// Dial connects to url and waits for the first snapshot. If the relay
// closes the connection first, Dial fails; if ctx expires first, the
// client is returned with an empty mirror and keeps listening.
func Dial(ctx context.Context, url string, log *logger.LogEntry) (*Client, error) {
	if log == nil {
		log = logger.Named("relay")
	}
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay %s: %w", url, err)
	}

	id := uuid.NewString()
	c := &Client{
		id:        id,
		conn:      conn,
		hub:       record.NewHub(),
		log:       log.WithField("client", id),
		send:      make(chan []byte, sendBufferSize),
		done:      make(chan struct{}),
		mirror:    record.Record{},
		pending:   record.Record{},
		connected: true,
	}
	ready := make(chan struct{})
	go c.readPump(ready)
	go c.writePump()

	select {
	case <-ready:
		c.mu.Lock()
		synced, readErr := c.synced, c.readErr
		c.mu.Unlock()
		if !synced {
			c.shutdown()
			if readErr == nil {
				readErr = ErrNotConnected
			}
			return nil, fmt.Errorf("relay %s closed before first snapshot: %w", url, readErr)
		}
	case <-ctx.Done():
		c.log.Warnf("no initial snapshot from %s: %v", url, ctx.Err())
	}
	return c, nil
}

func (c *Client) Snapshot() record.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mirror.Clone()
}

func (c *Client) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[key] = value
}

func (c *Client) Sync(ctx context.Context) error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return ErrNotConnected
	}
	if len(c.pending) == 0 {
		c.mu.Unlock()
		return nil
	}
	fields := c.pending
	c.pending = record.Record{}
	c.mu.Unlock()

	data, err := EncodeFrame(Frame{Type: FramePatch, Origin: c.id, Fields: fields})
	if err != nil {
		return err
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrNotConnected
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) Subscribe() (<-chan record.Record, func()) {
	return c.hub.Subscribe()
}

// Close sends a close frame and tears down the connection.
func (c *Client) Close() error {
	c.shutdown()
	return nil
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
		close(c.done)
		c.hub.Close()
	})
}

func (c *Client) readPump(ready chan struct{}) {
	var readyOnce sync.Once
	defer func() {
		c.shutdown()
		c.conn.Close()
		readyOnce.Do(func() { close(ready) })
	}()

	// Snapshots carry the whole record, so the client reads without a
	// size limit. maxFrameSize only bounds patches on the server side.
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPingHandler(func(appData string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		// Pong goes through WriteControl, which may run alongside writePump.
		return c.conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			c.readErr = err
			c.mu.Unlock()
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warnf("relay read error: %v", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		frame, err := DecodeFrame(data)
		if err != nil {
			c.log.Warnf("bad frame from relay: %v", err)
			continue
		}
		if frame.Type != FrameSnapshot {
			continue
		}
		c.mu.Lock()
		c.mirror = frame.Fields.Clone()
		c.synced = true
		c.mu.Unlock()
		c.hub.Publish(frame.Fields)
		readyOnce.Do(func() { close(ready) })
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.Warnf("relay write error: %v", err)
				c.shutdown()
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
