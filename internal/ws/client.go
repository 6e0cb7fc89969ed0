package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

// Dashboard viewers only ever send a small resubscribe message, and receive
// one state summary per sync phase change.
const (
	controlReadLimit  = 1 << 10
	viewerQueueLen    = 16
	stateWriteTimeout = 5 * time.Second
	keepaliveEvery    = 25 * time.Second
	keepaliveTimeout  = 5 * time.Second
	keepaliveMisses   = 2
	viewerSessionMax  = 4 * time.Hour
)

const resetReason = "missed state events are no longer buffered; fetch /api/v1/state"

// Client is one dashboard viewer connected to the Hub.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	log       *logrus.Entry
	closeOnce sync.Once
	expires   time.Time
}

// NewClient wraps conn as a viewer of hub's state stream.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, viewerQueueLen),
		log:     hub.log.WithField("component", "ws_viewer"),
		expires: time.Now().Add(viewerSessionMax),
	}
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

// ReadPump handles resubscribe requests until the viewer goes away, then
// unregisters it.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.CloseNow() //nolint:errcheck
	}()

	c.conn.SetReadLimit(controlReadLimit)

	for {
		_, raw, err := c.conn.Read(ctx)
		if err != nil {
			if status := websocket.CloseStatus(err); status != -1 {
				c.log.WithField("status", status).Debug("viewer closed stream")
			}
			return
		}

		if lastID, ok := parseResubscribe(raw); ok {
			c.resync(lastID)
		}
	}
}

// parseResubscribe extracts the last event ID a reconnecting viewer saw.
func parseResubscribe(raw []byte) (uint64, bool) {
	var msg SubscribeMsg
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Type != "subscribe" {
		return 0, false
	}

	return msg.LastEventID, true
}

// resync replays missed state events, or tells the viewer to reload the
// snapshot when they have aged out of the buffer.
func (c *Client) resync(lastID uint64) {
	if c.hub.ReplayEvents(c, lastID) {
		return
	}

	reset, err := json.Marshal(ResetMsg{Type: EventReset, Reason: resetReason})
	if err != nil {
		return
	}

	select {
	case c.send <- reset:
	default:
	}
}

// WritePump delivers queued state events and keeps the connection alive
// until ctx ends, the hub closes the queue, or the session expires.
func (c *Client) WritePump(ctx context.Context) {
	defer c.conn.CloseNow() //nolint:errcheck

	session := time.NewTimer(time.Until(c.expires))
	defer session.Stop()

	keepalive := time.NewTicker(keepaliveEvery)
	defer keepalive.Stop()

	misses := 0

	for {
		select {
		case <-ctx.Done():
			return

		case <-session.C:
			c.log.Info("ending dashboard stream session")
			c.conn.Close(websocket.StatusNormalClosure, "session expired, reconnect") //nolint:errcheck
			return

		case <-keepalive.C:
			if err := c.ping(ctx); err != nil {
				misses++
				if misses >= keepaliveMisses {
					c.log.WithError(err).Debug("viewer stopped answering pings")
					return
				}
				continue
			}
			misses = 0

		case msg, ok := <-c.send:
			if !ok {
				c.conn.Close(websocket.StatusGoingAway, "gateway stopping") //nolint:errcheck
				return
			}

			if err := c.write(ctx, msg); err != nil {
				c.log.WithError(err).Debug("state event write failed")
				return
			}
		}
	}
}

func (c *Client) ping(ctx context.Context) error {
	pctx, cancel := context.WithTimeout(ctx, keepaliveTimeout)
	defer cancel()

	return c.conn.Ping(pctx)
}

func (c *Client) write(ctx context.Context, msg []byte) error {
	wctx, cancel := context.WithTimeout(ctx, stateWriteTimeout)
	defer cancel()

	err := c.conn.Write(wctx, websocket.MessageText, msg)
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.New("viewer too slow to receive state event")
	}

	return err
}
