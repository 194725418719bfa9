package ws

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"connectify-server/internal/domain/delivery"
)

const (
	// Events queued per connection before pushes start getting dropped.
	sendBuffer   = 32
	writeTimeout = 10 * time.Second
	pingInterval = 25 * time.Second
)

// eventConn is the slice of a websocket connection the client needs.
// Narrowed to an interface so the hub can be exercised without a network.
type eventConn interface {
	WriteEvent(ctx context.Context, event delivery.Event) error
	Ping(ctx context.Context) error
	Close(code websocket.StatusCode, reason string) error
}

type jsonConn struct {
	conn *websocket.Conn
}

func (c jsonConn) WriteEvent(ctx context.Context, event delivery.Event) error {
	return wsjson.Write(ctx, c.conn, event)
}

func (c jsonConn) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c jsonConn) Close(code websocket.StatusCode, reason string) error {
	return c.conn.Close(code, reason)
}

// Client is one live socket of one user. All writes go through the send
// channel and a single writer goroutine, since the underlying connection
// allows only one concurrent writer.
type Client struct {
	UserID string

	conn      eventConn
	send      chan delivery.Event
	done      chan struct{}
	closeOnce sync.Once
	log       zerolog.Logger
}

func newClient(userID string, conn eventConn, log zerolog.Logger) *Client {
	return &Client{
		UserID: userID,
		conn:   conn,
		send:   make(chan delivery.Event, sendBuffer),
		done:   make(chan struct{}),
		log:    log,
	}
}

// Done closes when the client's writer shuts down.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// close shuts the connection; the handler's read loop then errors out and
// unregisters the client.
func (c *Client) close(code websocket.StatusCode, reason string) {
	c.closeOnce.Do(func() {
		close(c.done)
		if err := c.conn.Close(code, reason); err != nil {
			c.log.Debug().Err(err).Str("user_id", c.UserID).Msg("socket close")
		}
	})
}

func (c *Client) writeLoop() {
	for {
		select {
		case event := <-c.send:
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err := c.conn.WriteEvent(ctx, event)
			cancel()
			if err != nil {
				c.log.Debug().Err(err).Str("user_id", c.UserID).Msg("socket write failed")
				c.close(websocket.StatusAbnormalClosure, "write failed")
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Client) keepAliveLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				c.log.Debug().Err(err).Str("user_id", c.UserID).Msg("socket ping failed")
				c.close(websocket.StatusAbnormalClosure, "ping failed")
				return
			}
		case <-c.done:
			return
		}
	}
}
