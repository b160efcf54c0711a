package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/victornm/satsquest/internal/presence"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
)

var (
	errClientClosed = stderrors.New("api: presence client closed")
	errClientSlow   = stderrors.New("api: presence client send queue full")
)

// ServePresence upgrades GET /ws to a websocket and attaches it to the relay until the connection ends.
func (a *API) ServePresence(c *gin.Context) {
	conn, err := a.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.WarnContext(c.Request.Context(), "api: websocket upgrade failed", "error", err)
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())

	cl := newWSClient(conn, a.sendBuffer)
	go cl.writeLoop()

	s := a.relay.Connect(ctx, cl)
	cl.readLoop(ctx, a.relay, s.ID)
}

// wsClient is a presence.Conn over a websocket. A single goroutine writes to the connection,
// Send only queues.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newWSClient(conn *websocket.Conn, buffer int) *wsClient {
	return &wsClient{
		conn: conn,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

func (c *wsClient) Send(m presence.Message) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return errClientClosed
	default:
	}

	select {
	case c.send <- b:
		return nil
	default:
		c.close()
		return errClientSlow
	}
}

func (c *wsClient) close() {
	c.once.Do(func() {
		close(c.done)
	})
}

func (c *wsClient) readLoop(ctx context.Context, relay *presence.Relay, id string) {
	defer func() {
		relay.Disconnect(ctx, id)
		c.close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, b, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.WarnContext(ctx, "api: presence connection lost", "session", id, "error", err)
			}
			return
		}

		mv, err := presence.DecodeClientMessage(b)
		if err != nil {
			slog.DebugContext(ctx, "api: dropping presence frame", "session", id, "error", err)
			continue
		}

		relay.Move(ctx, id, mv.X, mv.Y)
	}
}

func (c *wsClient) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case b := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				c.close()
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}

		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait),
			)
			return
		}
	}
}
