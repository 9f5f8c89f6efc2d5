package websocket

import (
	"context"
	"time"

	ws "github.com/coder/websocket"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
	writeTimeout   = 10 * time.Second
)

// Client is one page connection. It only receives; anything the page sends
// is ignored.
type Client struct {
	hub  *Hub
	conn *ws.Conn
	send chan []byte
}

func NewClient(hub *Hub, conn *ws.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
}

// enqueue evicts the oldest queued frame when the client is too slow to keep
// up, so the newest snapshot is always delivered. Callers hold the hub lock.
func (c *Client) enqueue(data []byte) {
	for {
		select {
		case c.send <- data:
			return
		default:
		}
		select {
		case <-c.send:
		default:
		}
	}
}

// Run registers the client and writes frames until the connection closes.
func (c *Client) Run(ctx context.Context) {
	// CloseRead discards incoming frames and cancels ctx when the peer goes away.
	ctx = c.conn.CloseRead(ctx)

	c.hub.Register(c)
	defer c.hub.Unregister(c)

	c.writeLoop(ctx)
}

func (c *Client) writeLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.write(ctx, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) write(ctx context.Context, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.conn.Write(ctx, ws.MessageText, msg)
}
