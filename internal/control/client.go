package control

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/whatchicken/slack-dm-scraper/internal"
	"nhooyr.io/websocket"
)

const (
	readLimit    = 4096
	pingInterval = 30 * time.Second
)

// Client is one websocket connection
type Client struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	server *Server
}

func newClient(conn *websocket.Conn, s *Server) *Client {
	return &Client{
		id:     uuid.NewString()[:8],
		conn:   conn,
		send:   make(chan []byte, 64),
		server: s,
	}
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.server.unregisterClient(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(readLimit)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure && ctx.Err() == nil {
				internal.LogDebug("control client %s read error: %v", c.id, err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			internal.LogDebug("control client %s invalid message: %v", c.id, err)
			c.server.reply(c, ErrorMessage{Type: "error", Message: "invalid message format"})
			continue
		}
		internal.LogDebug("control client %s: %s", c.id, msg.Action)
		c.server.reply(c, c.server.handle(msg))
	}
}

func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}
}
