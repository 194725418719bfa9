package reconciler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }

func TestTimelineApplyCreatedIsIdempotent(t *testing.T) {
	tl := NewTimeline()
	m := Message{ID: "msg_1", SenderID: "user_a", Text: strptr("hello"), CreatedAt: time.Now()}

	tl.ApplyCreated(m)
	tl.ApplyCreated(m)
	tl.ApplyCreated(m)

	assert.Equal(t, 1, tl.Len())
	got, ok := tl.Get("msg_1")
	require.True(t, ok)
	assert.Equal(t, "hello", *got.Text)
}

func TestTimelineApplyDeletedKeepsSlotAndReceipts(t *testing.T) {
	tl := NewTimeline()
	tl.ApplyCreated(Message{ID: "msg_1", Text: strptr("first")})
	tl.ApplyCreated(Message{ID: "msg_2", Text: strptr("second")})
	tl.ApplyReadReceipt("user_b", []string{"msg_1"})

	tl.ApplyDeleted(Message{ID: "msg_1"})

	msgs := tl.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "msg_1", msgs[0].ID)
	assert.True(t, msgs[0].IsDeleted)
	assert.Nil(t, msgs[0].Text)
	assert.Equal(t, []string{"user_b"}, msgs[0].ReadBy, "receipts survive deletion")
	assert.Equal(t, "msg_2", msgs[1].ID)
}

func TestTimelineDeleteBeforeCreateWins(t *testing.T) {
	tl := NewTimeline()
	tl.ApplyDeleted(Message{ID: "msg_1"})
	// The create arrives late, out of order.
	tl.ApplyCreated(Message{ID: "msg_1", Text: strptr("resurrected?")})

	got, ok := tl.Get("msg_1")
	require.True(t, ok)
	assert.True(t, got.IsDeleted)
	assert.Nil(t, got.Text)
	assert.Equal(t, 1, tl.Len())
}

func TestTimelineReadReceiptsGrowMonotonically(t *testing.T) {
	tl := NewTimeline()
	tl.ApplyCreated(Message{ID: "msg_1"})

	tl.ApplyReadReceipt("user_b", []string{"msg_1"})
	tl.ApplyReadReceipt("user_b", []string{"msg_1"})
	tl.ApplyReadReceipt("user_c", []string{"msg_1", "msg_unknown"})

	got, ok := tl.Get("msg_1")
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"user_b", "user_c"}, got.ReadBy)
}

func TestTimelineLoadReplacesState(t *testing.T) {
	tl := NewTimeline()
	tl.ApplyCreated(Message{ID: "msg_stale"})

	tl.Load([]Message{
		{ID: "msg_1"},
		{ID: "msg_2"},
	})

	assert.Equal(t, 2, tl.Len())
	_, ok := tl.Get("msg_stale")
	assert.False(t, ok)
	tl.ApplyCreated(Message{ID: "msg_1"})
	assert.Equal(t, 2, tl.Len())
}

func TestPresenceSetConverges(t *testing.T) {
	ps := NewPresenceSet()

	ps.Apply("user_a", true)
	ps.Apply("user_a", true)
	ps.Apply("user_b", true)
	ps.Apply("user_a", false)
	ps.Apply("user_a", false)

	assert.False(t, ps.IsOnline("user_a"))
	assert.True(t, ps.IsOnline("user_b"))
	assert.Equal(t, []string{"user_b"}, ps.Online())
}
