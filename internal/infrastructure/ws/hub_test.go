package ws

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"connectify-server/internal/domain/delivery"
)

// fakeConn stands in for a websocket connection. Written events land on the
// wrote channel; setting blockWrites makes the writer goroutine stall inside
// WriteEvent until unblock is called.
type fakeConn struct {
	wrote       chan delivery.Event
	writeGate   chan struct{}
	writeInside chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{wrote: make(chan delivery.Event, 128)}
}

func newBlockingConn() *fakeConn {
	return &fakeConn{
		wrote:       make(chan delivery.Event, 128),
		writeGate:   make(chan struct{}),
		writeInside: make(chan struct{}, 1),
	}
}

func (f *fakeConn) WriteEvent(ctx context.Context, event delivery.Event) error {
	if f.writeGate != nil {
		f.writeInside <- struct{}{}
		<-f.writeGate
	}
	f.wrote <- event
	return nil
}

func (f *fakeConn) Ping(ctx context.Context) error { return nil }

func (f *fakeConn) Close(code websocket.StatusCode, reason string) error { return nil }

func (f *fakeConn) unblock() { close(f.writeGate) }

func (f *fakeConn) waitEvent(t *testing.T) delivery.Event {
	t.Helper()
	select {
	case ev := <-f.wrote:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an event")
		return delivery.Event{}
	}
}

func testHub() *Hub {
	return NewHub(zerolog.Nop())
}

func registerFake(h *Hub, userID string, conn *fakeConn) (*Client, bool) {
	return h.register(newClient(userID, conn, zerolog.Nop()))
}

func TestRegisterReportsFirstSocketOnly(t *testing.T) {
	h := testHub()

	c1, first := registerFake(h, "user_a", newFakeConn())
	assert.True(t, first)
	c2, first := registerFake(h, "user_a", newFakeConn())
	assert.False(t, first, "second tab is not a presence change")

	assert.False(t, h.Unregister(c1), "one socket still live")
	assert.True(t, h.Unregister(c2), "last socket gone")
}

func TestSendFansOutToEverySocketOfUser(t *testing.T) {
	h := testHub()
	connA1, connA2, connB := newFakeConn(), newFakeConn(), newFakeConn()
	c1, _ := registerFake(h, "user_a", connA1)
	c2, _ := registerFake(h, "user_a", connA2)
	c3, _ := registerFake(h, "user_b", connB)
	defer h.Unregister(c1)
	defer h.Unregister(c2)
	defer h.Unregister(c3)

	ev := delivery.NewEvent(delivery.EventMessageCreated, "hello")
	require.True(t, h.Send("user_a", ev))

	assert.Equal(t, ev, connA1.waitEvent(t))
	assert.Equal(t, ev, connA2.waitEvent(t))
	select {
	case <-connB.wrote:
		t.Fatal("user_b must not receive user_a's event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSendToOfflineUserReportsFalse(t *testing.T) {
	h := testHub()
	assert.False(t, h.Send("user_ghost", delivery.NewEvent(delivery.EventMessageCreated, "hi")))
}

func TestSendNeverBlocksOnSlowConsumer(t *testing.T) {
	h := testHub()
	conn := newBlockingConn()
	c, _ := registerFake(h, "user_a", conn)
	defer h.Unregister(c)

	// Park the writer inside WriteEvent so the queue fills deterministically.
	require.True(t, h.Send("user_a", delivery.NewEvent(delivery.EventMessageCreated, 0)))
	<-conn.writeInside

	for i := 1; i <= sendBuffer; i++ {
		require.True(t, h.Send("user_a", delivery.NewEvent(delivery.EventMessageCreated, i)))
	}
	assert.Len(t, c.send, sendBuffer, "queue is full")

	// The overflow push returns immediately instead of blocking.
	done := make(chan struct{})
	go func() {
		h.Send("user_a", delivery.NewEvent(delivery.EventMessageCreated, "overflow"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Send blocked on a full queue")
	}
	assert.Len(t, c.send, sendBuffer, "overflow event was dropped, not queued")

	conn.unblock()
}

func TestPresenceQueries(t *testing.T) {
	h := testHub()
	assert.False(t, h.IsOnline("user_a"))
	assert.Empty(t, h.OnlineUserIDs())

	c1, _ := registerFake(h, "user_a", newFakeConn())
	c2, _ := registerFake(h, "user_b", newFakeConn())

	assert.True(t, h.IsOnline("user_a"))
	assert.ElementsMatch(t, []string{"user_a", "user_b"}, h.OnlineUserIDs())
	assert.Equal(t, 1, h.ConnectionCount("user_a"))

	h.Unregister(c1)
	assert.False(t, h.IsOnline("user_a"))
	assert.ElementsMatch(t, []string{"user_b"}, h.OnlineUserIDs())

	h.Unregister(c2)
	assert.Empty(t, h.OnlineUserIDs())
}

func TestUnregisterClosesClient(t *testing.T) {
	h := testHub()
	c, _ := registerFake(h, "user_a", newFakeConn())

	h.Unregister(c)

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("client not closed after unregister")
	}
}
