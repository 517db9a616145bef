package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"supplylink/internal/metrics"
	"supplylink/internal/token"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Event names on the wire
const (
	EventJoinOrder     = "join-order"
	EventLeaveOrder    = "leave-order"
	EventJoined        = "joined"
	EventLeft          = "left"
	EventStatusUpdated = "status-updated"
	EventError         = "error"
)

// Message is the JSON frame exchanged with clients.
type Message struct {
	Event   string `json:"event"`
	OrderID string `json:"orderId,omitempty"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// TokenParser verifies the access token passed on the upgrade request.
type TokenParser interface {
	ParseAccess(tokenString string) (token.Claims, error)
}

// JoinAuthorizer decides whether a user may subscribe to an order's room.
// A nil authorizer admits every authenticated client.
type JoinAuthorizer func(ctx context.Context, userID, role, orderID string) bool

type joinRequest struct {
	client  *Client
	orderID string
	allowed bool
	reason  string
}

type membership struct {
	client  *Client
	orderID string
}

type roomMessage struct {
	orderID string
	payload []byte
}

// Hub groups connected clients into per-order rooms and fans out status events.
// All room state is owned by the Run goroutine.
type Hub struct {
	clients    map[*Client]struct{}
	rooms      map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	join       chan joinRequest
	leave      chan membership
	broadcast  chan roomMessage
	done       chan struct{}

	tokens    TokenParser
	authorize JoinAuthorizer
	logger    *zap.Logger
}

func NewHub(tokens TokenParser, authorize JoinAuthorizer, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan joinRequest),
		leave:      make(chan membership),
		broadcast:  make(chan roomMessage, 64),
		done:       make(chan struct{}),
		tokens:     tokens,
		authorize:  authorize,
		logger:     logger.Named("ws"),
	}
}

// Run dispatches hub events until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.logger.Debug("client connected", zap.String("user_id", c.userID))
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
				h.logger.Debug("client disconnected", zap.String("user_id", c.userID))
			}
		case req := <-h.join:
			h.handleJoin(req)
		case m := <-h.leave:
			if _, ok := h.clients[m.client]; ok {
				h.removeFromRoom(m.client, m.orderID)
				h.deliver(m.client, Message{Event: EventLeft, OrderID: m.orderID})
			}
		case msg := <-h.broadcast:
			for c := range h.rooms[msg.orderID] {
				h.send(c, msg.payload)
			}
		}
	}
}

// EmitStatusUpdate notifies every client in the order's room of its new status.
func (h *Hub) EmitStatusUpdate(orderID, status string) {
	payload, err := json.Marshal(Message{Event: EventStatusUpdated, OrderID: orderID, Status: status})
	if err != nil {
		h.logger.Error("marshal status event", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- roomMessage{orderID: orderID, payload: payload}:
		metrics.WSBroadcasts.Inc()
	case <-h.done:
	}
}

func (h *Hub) handleJoin(req joinRequest) {
	c := req.client
	if _, ok := h.clients[c]; !ok {
		return
	}
	if !req.allowed {
		reason := req.reason
		if reason == "" {
			reason = "not allowed to follow this order"
		}
		h.deliver(c, Message{Event: EventError, OrderID: req.orderID, Message: reason})
		return
	}

	room, ok := h.rooms[req.orderID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[req.orderID] = room
	}
	room[c] = struct{}{}
	c.rooms[req.orderID] = struct{}{}
	h.deliver(c, Message{Event: EventJoined, OrderID: req.orderID})
}

func (h *Hub) removeFromRoom(c *Client, orderID string) {
	delete(c.rooms, orderID)
	if room, ok := h.rooms[orderID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, orderID)
		}
	}
}

func (h *Hub) deliver(c *Client, msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.send(c, payload)
}

// send never blocks the hub; a client that cannot keep up is disconnected.
func (h *Hub) send(c *Client, payload []byte) {
	select {
	case c.send <- payload:
	default:
		h.logger.Warn("dropping slow client", zap.String("user_id", c.userID))
		h.drop(c)
	}
}

func (h *Hub) drop(c *Client) {
	for orderID := range c.rooms {
		h.removeFromRoom(c, orderID)
	}
	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) submitJoin(req joinRequest) {
	select {
	case h.join <- req:
	case <-h.done:
	}
}

func (h *Hub) submitLeave(m membership) {
	select {
	case h.leave <- m:
	case <-h.done:
	}
}

func (h *Hub) submitRegister(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) submitUnregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ServeWs upgrades an authenticated request. The access token is passed as ?token=
// since browsers cannot set headers on websocket handshakes.
func (h *Hub) ServeWs(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		h.logger.Debug("connection rejected: missing token")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	claims, err := h.tokens.ParseAccess(tokenString)
	if err != nil {
		h.logger.Debug("connection rejected: invalid token", zap.Error(err))
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", zap.Error(err))
		return
	}

	client := newClient(h, conn, claims.UserID, claims.Role)
	if !h.submitRegister(client) {
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
