package message

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"connectify-server/internal/domain/conversation"
	"connectify-server/internal/domain/delivery"
	"connectify-server/internal/domain/user"
	"connectify-server/internal/utils/platformerrors"
)

type mockRepository struct {
	createFunc             func(ctx context.Context, m *Message) error
	findByPublicIDFunc     func(ctx context.Context, publicID string) (*Message, error)
	listByConversationFunc func(ctx context.Context, conversationID uint) ([]*Message, error)
	softDeleteFunc         func(ctx context.Context, messageID uint) error
	markReadFunc           func(ctx context.Context, conversationID, readerID uint) ([]string, error)
}

func notFound() error {
	return platformerrors.NewError(context.Background(), platformerrors.LayerRepository,
		platformerrors.ErrorTypeNotFound, "not found", nil, "test-not-found")
}

func (m *mockRepository) Create(ctx context.Context, msg *Message) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, msg)
	}
	msg.ID = 1
	return nil
}

func (m *mockRepository) FindByPublicID(ctx context.Context, publicID string) (*Message, error) {
	if m.findByPublicIDFunc != nil {
		return m.findByPublicIDFunc(ctx, publicID)
	}
	return nil, notFound()
}

func (m *mockRepository) ListByConversation(ctx context.Context, conversationID uint) ([]*Message, error) {
	if m.listByConversationFunc != nil {
		return m.listByConversationFunc(ctx, conversationID)
	}
	return []*Message{}, nil
}

func (m *mockRepository) SoftDelete(ctx context.Context, messageID uint) error {
	if m.softDeleteFunc != nil {
		return m.softDeleteFunc(ctx, messageID)
	}
	return nil
}

func (m *mockRepository) MarkRead(ctx context.Context, conversationID, readerID uint) ([]string, error) {
	if m.markReadFunc != nil {
		return m.markReadFunc(ctx, conversationID, readerID)
	}
	return []string{}, nil
}

type mockGateway struct {
	membershipFunc       func(ctx context.Context, publicID string, userID uint) (*conversation.Conversation, bool, error)
	setLatestMessageFunc func(ctx context.Context, conversationID, messageID uint) error
}

func (m *mockGateway) Membership(ctx context.Context, publicID string, userID uint) (*conversation.Conversation, bool, error) {
	if m.membershipFunc != nil {
		return m.membershipFunc(ctx, publicID, userID)
	}
	return nil, false, notFound()
}

func (m *mockGateway) SetLatestMessage(ctx context.Context, conversationID, messageID uint) error {
	if m.setLatestMessageFunc != nil {
		return m.setLatestMessageFunc(ctx, conversationID, messageID)
	}
	return nil
}

type mockMedia struct {
	uploadFunc func(ctx context.Context, data string) (string, error)
}

func (m *mockMedia) Upload(ctx context.Context, data string) (string, error) {
	if m.uploadFunc != nil {
		return m.uploadFunc(ctx, data)
	}
	return "https://cdn.example.com/upload.png", nil
}

// mockDispatcher records the lock/dispatch interleaving so tests can assert
// ordering guarantees without a real transport.
type mockDispatcher struct {
	trace      []string
	dispatched []delivery.Event
}

func (m *mockDispatcher) Sequence(conversationID string) func() {
	m.trace = append(m.trace, "lock:"+conversationID)
	return func() { m.trace = append(m.trace, "unlock:"+conversationID) }
}

func (m *mockDispatcher) Dispatch(ctx context.Context, conversationID string, event delivery.Event) {
	m.trace = append(m.trace, "dispatch:"+conversationID)
	m.dispatched = append(m.dispatched, event)
}

func memberGateway(conv *conversation.Conversation) *mockGateway {
	return &mockGateway{
		membershipFunc: func(ctx context.Context, publicID string, userID uint) (*conversation.Conversation, bool, error) {
			return conv, conv.HasParticipant(userID), nil
		},
	}
}

func newTestService(repo *mockRepository, gateway *mockGateway, media *mockMedia) (*DefaultService, *mockDispatcher) {
	dispatcher := &mockDispatcher{}
	svc := NewService(repo, gateway, media, dispatcher, zerolog.Nop())
	return svc, dispatcher
}

func testConversation() *conversation.Conversation {
	return &conversation.Conversation{ID: 10, PublicID: "conv_1", ParticipantIDs: []uint{1, 2}}
}

func TestAppendRejectsEmptyMessage(t *testing.T) {
	svc, _ := newTestService(&mockRepository{}, memberGateway(testConversation()), &mockMedia{})
	sender := &user.User{ID: 1, PublicID: "user_a"}

	_, err := svc.Append(context.Background(), sender, "conv_1", AppendParams{Text: "   "})
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

func TestAppendRejectsNonParticipant(t *testing.T) {
	svc, dispatcher := newTestService(&mockRepository{}, memberGateway(testConversation()), &mockMedia{})
	outsider := &user.User{ID: 99, PublicID: "user_z"}

	_, err := svc.Append(context.Background(), outsider, "conv_1", AppendParams{Text: "hi"})
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeForbidden))
	assert.Empty(t, dispatcher.trace, "nothing may be locked or dispatched")
}

func TestAppendPersistsAndDispatchesUnderLock(t *testing.T) {
	var created *Message
	repo := &mockRepository{
		createFunc: func(ctx context.Context, m *Message) error {
			m.ID = 7
			created = m
			return nil
		},
	}
	svc, dispatcher := newTestService(repo, memberGateway(testConversation()), &mockMedia{})
	sender := &user.User{ID: 1, PublicID: "user_a", Username: "alice"}

	m, err := svc.Append(context.Background(), sender, "conv_1", AppendParams{Text: "  hello  "})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "hello", *m.Text, "text is trimmed")
	assert.Equal(t, "user_a", m.Sender.ID)
	assert.Equal(t, "conv_1", m.ConversationPublicID)
	assert.Regexp(t, `^msg_[0-9a-z]{20}$`, m.PublicID)

	require.Len(t, dispatcher.dispatched, 1)
	assert.Equal(t, delivery.EventMessageCreated, dispatcher.dispatched[0].Kind)
	assert.Equal(t, []string{"lock:conv_1", "dispatch:conv_1", "unlock:conv_1"}, dispatcher.trace,
		"dispatch happens while the ordering lock is held")
}

func TestAppendUploadFailureAbortsBeforePersist(t *testing.T) {
	repo := &mockRepository{
		createFunc: func(ctx context.Context, m *Message) error {
			t.Fatal("create must not run when the upload fails")
			return nil
		},
	}
	media := &mockMedia{
		uploadFunc: func(ctx context.Context, data string) (string, error) {
			return "", fmt.Errorf("cdn unavailable")
		},
	}
	svc, dispatcher := newTestService(repo, memberGateway(testConversation()), media)
	sender := &user.User{ID: 1, PublicID: "user_a"}

	_, err := svc.Append(context.Background(), sender, "conv_1", AppendParams{Image: "data:image/png;base64,xxx"})
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeExternal))
	assert.Empty(t, dispatcher.trace, "upload runs before the ordering lock")
}

func TestAppendToleratesLatestMessageFailure(t *testing.T) {
	gateway := memberGateway(testConversation())
	gateway.setLatestMessageFunc = func(ctx context.Context, conversationID, messageID uint) error {
		return fmt.Errorf("pointer update failed")
	}
	svc, dispatcher := newTestService(&mockRepository{}, gateway, &mockMedia{})
	sender := &user.User{ID: 1, PublicID: "user_a"}

	m, err := svc.Append(context.Background(), sender, "conv_1", AppendParams{Text: "hi"})
	require.NoError(t, err, "the message is durable, the sidebar pointer is best effort")
	require.Len(t, dispatcher.dispatched, 1)
	assert.Equal(t, m, dispatcher.dispatched[0].Data)
}

func TestSoftDeleteForeignMessageLooksNonexistent(t *testing.T) {
	text := "secret"
	repo := &mockRepository{
		findByPublicIDFunc: func(ctx context.Context, publicID string) (*Message, error) {
			return &Message{ID: 7, PublicID: publicID, ConversationPublicID: "conv_1",
				Sender: user.Summary{ID: "user_other"}, Text: &text}, nil
		},
	}
	svc, dispatcher := newTestService(repo, memberGateway(testConversation()), &mockMedia{})
	self := &user.User{ID: 1, PublicID: "user_a"}

	_, err := svc.SoftDelete(context.Background(), self, "msg_1")
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound),
		"foreign ids must be indistinguishable from unknown ids")
	assert.Empty(t, dispatcher.dispatched)
}

func TestSoftDeleteTombstonesAndDispatches(t *testing.T) {
	text := "bye"
	image := "https://cdn.example.com/x.png"
	repo := &mockRepository{
		findByPublicIDFunc: func(ctx context.Context, publicID string) (*Message, error) {
			return &Message{ID: 7, PublicID: publicID, ConversationPublicID: "conv_1",
				Sender: user.Summary{ID: "user_a"}, Text: &text, Image: &image}, nil
		},
	}
	svc, dispatcher := newTestService(repo, memberGateway(testConversation()), &mockMedia{})
	self := &user.User{ID: 1, PublicID: "user_a"}

	m, err := svc.SoftDelete(context.Background(), self, "msg_1")
	require.NoError(t, err)
	assert.True(t, m.IsDeleted)
	assert.Nil(t, m.Text)
	assert.Nil(t, m.Image)

	require.Len(t, dispatcher.dispatched, 1)
	assert.Equal(t, delivery.EventMessageDeleted, dispatcher.dispatched[0].Kind)
	assert.Equal(t, []string{"lock:conv_1", "dispatch:conv_1", "unlock:conv_1"}, dispatcher.trace)
}

func TestSoftDeleteAlreadyDeletedIsIdempotent(t *testing.T) {
	repo := &mockRepository{
		findByPublicIDFunc: func(ctx context.Context, publicID string) (*Message, error) {
			return &Message{ID: 7, PublicID: publicID, ConversationPublicID: "conv_1",
				Sender: user.Summary{ID: "user_a"}, IsDeleted: true}, nil
		},
		softDeleteFunc: func(ctx context.Context, messageID uint) error {
			t.Fatal("a second delete must not touch storage")
			return nil
		},
	}
	svc, dispatcher := newTestService(repo, memberGateway(testConversation()), &mockMedia{})
	self := &user.User{ID: 1, PublicID: "user_a"}

	m, err := svc.SoftDelete(context.Background(), self, "msg_1")
	require.NoError(t, err)
	assert.True(t, m.IsDeleted)
	assert.Empty(t, dispatcher.dispatched, "no event on replay")
}

func TestMarkReadDispatchesOnlyChangedMessages(t *testing.T) {
	repo := &mockRepository{
		markReadFunc: func(ctx context.Context, conversationID, readerID uint) ([]string, error) {
			return []string{"msg_1", "msg_2"}, nil
		},
	}
	svc, dispatcher := newTestService(repo, memberGateway(testConversation()), &mockMedia{})
	self := &user.User{ID: 2, PublicID: "user_b"}

	changed, err := svc.MarkRead(context.Background(), self, "conv_1")
	require.NoError(t, err)
	assert.Equal(t, []string{"msg_1", "msg_2"}, changed)

	require.Len(t, dispatcher.dispatched, 1)
	assert.Equal(t, delivery.EventReadReceiptUpdated, dispatcher.dispatched[0].Kind)
	payload, ok := dispatcher.dispatched[0].Data.(delivery.ReadReceiptPayload)
	require.True(t, ok)
	assert.Equal(t, "user_b", payload.ReaderID)
	assert.Equal(t, []string{"msg_1", "msg_2"}, payload.MessageIDs)
}

func TestMarkReadReplayDispatchesNothing(t *testing.T) {
	svc, dispatcher := newTestService(&mockRepository{}, memberGateway(testConversation()), &mockMedia{})
	self := &user.User{ID: 2, PublicID: "user_b"}

	changed, err := svc.MarkRead(context.Background(), self, "conv_1")
	require.NoError(t, err)
	assert.Empty(t, changed)
	assert.Empty(t, dispatcher.dispatched)
}

func TestListByConversationRequiresMembership(t *testing.T) {
	svc, _ := newTestService(&mockRepository{}, memberGateway(testConversation()), &mockMedia{})
	outsider := &user.User{ID: 99, PublicID: "user_z"}

	_, err := svc.ListByConversation(context.Background(), outsider, "conv_1")
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeForbidden))
}
