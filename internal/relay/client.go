package relay

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"pairchat/internal/services"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second

	maxFrameSize = 8192
)

// Client is one authenticated websocket connection.
type Client struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Identity services.Identity

	conn *websocket.Conn
	send chan []byte
	done chan struct{}

	closeOnce sync.Once
}

func NewClient(conn *websocket.Conn, identity services.Identity) *Client {
	return &Client{
		ID:       uuid.New(),
		UserID:   identity.UserID,
		Identity: identity,
		conn:     conn,
		send:     make(chan []byte, 256),
		done:     make(chan struct{}),
	}
}

// SendEvent marshals and queues an event for the client. A full queue
// drops the frame rather than blocking the sender.
func (c *Client) SendEvent(event string, data interface{}) {
	payload, err := json.Marshal(outEnvelope{Event: event, Data: data})
	if err != nil {
		return
	}
	c.SendRaw(payload)
}

// SendRaw queues an already-marshalled frame, non-blocking. Frames for a
// closed or saturated client are dropped; delivery is best-effort.
func (c *Client) SendRaw(payload []byte) {
	select {
	case <-c.done:
	case c.send <- payload:
	default:
	}
}

// Close signals the pumps to shut the connection down. Safe to call more
// than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// WritePump drains the send queue onto the connection and keeps the
// transport alive with pings.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump reads inbound frames and hands them to the relay dispatcher.
// Returns when the connection closes.
func (c *Client) ReadPump(ctx context.Context, r *Relay) {
	defer func() {
		r.Disconnect(ctx, c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		r.Dispatch(ctx, c, raw)
	}
}
