package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func testClient(h *Hub, userID string, buffer int) *Client {
	return &Client{hub: h, send: make(chan []byte, buffer), userID: userID, rooms: make(map[string]struct{})}
}

func next(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case b, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var m Message
		require.NoError(t, json.Unmarshal(b, &m))
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
		return Message{}
	}
}

func startHub(t *testing.T) (*Hub, context.CancelFunc, <-chan struct{}) {
	t.Helper()
	h := NewHub(nil, nil, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()
	return h, cancel, stopped
}

func TestHub_BroadcastsOnlyToRoom(t *testing.T) {
	defer goleak.VerifyNone(t)
	h, cancel, stopped := startHub(t)

	a := testClient(h, "factory", sendBuffer)
	b := testClient(h, "supplier", sendBuffer)
	require.True(t, h.submitRegister(a))
	require.True(t, h.submitRegister(b))

	h.submitJoin(joinRequest{client: a, orderID: "o1", allowed: true})
	assert.Equal(t, Message{Event: EventJoined, OrderID: "o1"}, next(t, a))
	h.submitJoin(joinRequest{client: b, orderID: "o2", allowed: true})
	assert.Equal(t, EventJoined, next(t, b).Event)

	h.EmitStatusUpdate("o1", "PREPARING")
	h.EmitStatusUpdate("o2", "IN_TRANSIT")

	assert.Equal(t, Message{Event: EventStatusUpdated, OrderID: "o1", Status: "PREPARING"}, next(t, a))
	assert.Equal(t, Message{Event: EventStatusUpdated, OrderID: "o2", Status: "IN_TRANSIT"}, next(t, b))

	cancel()
	<-stopped

	_, ok := <-a.send
	assert.False(t, ok, "clients are disconnected on shutdown")
}

func TestHub_LeaveAndDeniedJoin(t *testing.T) {
	defer goleak.VerifyNone(t)
	h, cancel, stopped := startHub(t)

	a := testClient(h, "factory", sendBuffer)
	require.True(t, h.submitRegister(a))

	h.submitJoin(joinRequest{client: a, orderID: "o1", allowed: true})
	require.Equal(t, EventJoined, next(t, a).Event)

	h.submitLeave(membership{client: a, orderID: "o1"})
	assert.Equal(t, Message{Event: EventLeft, OrderID: "o1"}, next(t, a))

	h.EmitStatusUpdate("o1", "DELIVERED")
	h.submitJoin(joinRequest{client: a, orderID: "o9", allowed: false})

	msg := next(t, a)
	assert.Equal(t, EventError, msg.Event, "left room receives no further updates")
	assert.Equal(t, "o9", msg.OrderID)
	assert.NotEmpty(t, msg.Message)

	cancel()
	<-stopped
}

func TestHub_DropsSlowClient(t *testing.T) {
	defer goleak.VerifyNone(t)
	h, cancel, stopped := startHub(t)

	fast := testClient(h, "fast", sendBuffer)
	slow := testClient(h, "slow", 1)
	require.True(t, h.submitRegister(fast))
	require.True(t, h.submitRegister(slow))
	h.submitJoin(joinRequest{client: fast, orderID: "o1", allowed: true})
	require.Equal(t, EventJoined, next(t, fast).Event)

	// the join ack fills the slow client's buffer so the broadcast cannot be queued
	h.submitJoin(joinRequest{client: slow, orderID: "o1", allowed: true})
	h.EmitStatusUpdate("o1", "PREPARING")
	require.Equal(t, EventStatusUpdated, next(t, fast).Event)

	// round trip through the hub so the broadcast has been fully handled
	h.submitJoin(joinRequest{client: fast, orderID: "sync", allowed: true})
	require.Equal(t, EventJoined, next(t, fast).Event)

	first, ok := <-slow.send
	require.True(t, ok)
	assert.Contains(t, string(first), EventJoined)

	_, ok = <-slow.send
	assert.False(t, ok, "slow client was dropped")

	cancel()
	<-stopped
}

func TestHub_SubmitAfterStopDoesNotBlock(t *testing.T) {
	defer goleak.VerifyNone(t)
	h, cancel, stopped := startHub(t)
	cancel()
	<-stopped

	c := testClient(h, "late", 1)
	assert.False(t, h.submitRegister(c))
	h.submitJoin(joinRequest{client: c, orderID: "o1", allowed: true})
	h.submitUnregister(c)
	h.EmitStatusUpdate("o1", "DELIVERED")
}
