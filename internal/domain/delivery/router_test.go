package delivery

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockResolver struct {
	participantsFunc func(ctx context.Context, conversationID string) ([]string, error)
}

func (m *mockResolver) ParticipantPublicIDs(ctx context.Context, conversationID string) ([]string, error) {
	return m.participantsFunc(ctx, conversationID)
}

type recordingTransport struct {
	mu     sync.Mutex
	sent   map[string][]Event
	online map[string]bool
}

func newRecordingTransport(online ...string) *recordingTransport {
	t := &recordingTransport{sent: make(map[string][]Event), online: make(map[string]bool)}
	for _, id := range online {
		t.online[id] = true
	}
	return t
}

func (t *recordingTransport) Send(userID string, event Event) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.online[userID] {
		return false
	}
	t.sent[userID] = append(t.sent[userID], event)
	return true
}

func (t *recordingTransport) events(userID string) []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Event(nil), t.sent[userID]...)
}

func TestDispatchResolvesAudienceAtDispatchTime(t *testing.T) {
	participants := []string{"user_a", "user_b"}
	resolver := &mockResolver{
		participantsFunc: func(ctx context.Context, conversationID string) ([]string, error) {
			return participants, nil
		},
	}
	transport := newRecordingTransport("user_a", "user_b", "user_c")
	router := NewRouter(resolver, transport, zerolog.Nop())

	router.Dispatch(context.Background(), "conv_1", NewEvent(EventMessageCreated, "one"))

	// user_c joins, user_b leaves; the next dispatch must follow.
	participants = []string{"user_a", "user_c"}
	router.Dispatch(context.Background(), "conv_1", NewEvent(EventMessageCreated, "two"))

	assert.Len(t, transport.events("user_a"), 2)
	assert.Len(t, transport.events("user_b"), 1)
	assert.Len(t, transport.events("user_c"), 1)
}

func TestDispatchSkipsOfflineUsers(t *testing.T) {
	resolver := &mockResolver{
		participantsFunc: func(ctx context.Context, conversationID string) ([]string, error) {
			return []string{"user_a", "user_offline"}, nil
		},
	}
	transport := newRecordingTransport("user_a")
	router := NewRouter(resolver, transport, zerolog.Nop())

	router.Dispatch(context.Background(), "conv_1", NewEvent(EventMessageCreated, "hi"))

	assert.Len(t, transport.events("user_a"), 1)
	assert.Empty(t, transport.events("user_offline"))
}

func TestDispatchResolverFailureDropsEvent(t *testing.T) {
	resolver := &mockResolver{
		participantsFunc: func(ctx context.Context, conversationID string) ([]string, error) {
			return nil, fmt.Errorf("boom")
		},
	}
	transport := newRecordingTransport("user_a")
	router := NewRouter(resolver, transport, zerolog.Nop())

	router.Dispatch(context.Background(), "conv_1", NewEvent(EventMessageCreated, "hi"))

	assert.Empty(t, transport.events("user_a"))
}

func TestSequencedDispatchesArriveInCommitOrder(t *testing.T) {
	resolver := &mockResolver{
		participantsFunc: func(ctx context.Context, conversationID string) ([]string, error) {
			return []string{"user_a"}, nil
		},
	}
	transport := newRecordingTransport("user_a")
	router := NewRouter(resolver, transport, zerolog.Nop())

	commits := make([]int, 0, 20)
	var commitsMu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			unlock := router.Sequence("conv_1")
			defer unlock()

			// Commit and dispatch under the same lock.
			commitsMu.Lock()
			commits = append(commits, n)
			commitsMu.Unlock()
			router.Dispatch(context.Background(), "conv_1", NewEvent(EventMessageCreated, n))
		}(i)
	}
	wg.Wait()

	events := transport.events("user_a")
	require.Len(t, events, 20)
	for i, ev := range events {
		assert.Equal(t, commits[i], ev.Data, "delivery order must match commit order")
	}
}

func TestNotifyUsersTargetsExplicitAudience(t *testing.T) {
	resolver := &mockResolver{
		participantsFunc: func(ctx context.Context, conversationID string) ([]string, error) {
			t.Fatal("resolver must not be consulted")
			return nil, nil
		},
	}
	transport := newRecordingTransport("user_a", "user_b")
	router := NewRouter(resolver, transport, zerolog.Nop())

	router.NotifyUsers([]string{"user_b"}, NewEvent(EventPresenceChanged, PresencePayload{UserID: "user_a", Online: true}))

	assert.Empty(t, transport.events("user_a"))
	require.Len(t, transport.events("user_b"), 1)
	assert.Equal(t, EventPresenceChanged, transport.events("user_b")[0].Kind)
}
