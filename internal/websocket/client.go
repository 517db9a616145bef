package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const authorizeTimeout = 5 * time.Second

// Client is one websocket connection. rooms is only touched by the hub goroutine.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID string
	role   string
	rooms  map[string]struct{}
}

func newClient(h *Hub, conn *websocket.Conn, userID, role string) *Client {
	return &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		userID: userID,
		role:   role,
		rooms:  make(map[string]struct{}),
	}
}

// readPump parses client commands until the connection closes.
func (c *Client) readPump() {
	defer func() {
		c.hub.submitUnregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("read error", zap.Error(err))
			}
			return
		}
		c.handle(data)
	}
}

func (c *Client) handle(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil || msg.OrderID == "" {
		c.hub.submitJoin(joinRequest{client: c, orderID: msg.OrderID, reason: "expected {\"event\", \"orderId\"}"})
		return
	}

	switch msg.Event {
	case EventJoinOrder:
		c.hub.submitJoin(joinRequest{client: c, orderID: msg.OrderID, allowed: c.mayJoin(msg.OrderID)})
	case EventLeaveOrder:
		c.hub.submitLeave(membership{client: c, orderID: msg.OrderID})
	default:
		c.hub.logger.Debug("unknown event", zap.String("event", msg.Event))
	}
}

func (c *Client) mayJoin(orderID string) bool {
	if c.hub.authorize == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), authorizeTimeout)
	defer cancel()
	return c.hub.authorize(ctx, c.userID, c.role, orderID)
}

// writePump forwards queued frames and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
