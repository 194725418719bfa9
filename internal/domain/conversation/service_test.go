package conversation

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"connectify-server/internal/domain/delivery"
	"connectify-server/internal/domain/user"
	"connectify-server/internal/utils/platformerrors"
)

type mockRepository struct {
	createWithParticipantsFunc func(ctx context.Context, c *Conversation, participantIDs []uint) error
	findByPublicIDFunc         func(ctx context.Context, publicID string) (*Conversation, error)
	findByDirectKeyFunc        func(ctx context.Context, key string) (*Conversation, error)
	listForUserFunc            func(ctx context.Context, userID uint) ([]*Conversation, error)
	updateGroupMetaFunc        func(ctx context.Context, conversationID uint, name, icon *string) error
	setAdminFunc               func(ctx context.Context, conversationID, userID uint) error
	setLatestMessageFunc       func(ctx context.Context, conversationID, messageID uint) error
	deleteFunc                 func(ctx context.Context, conversationID uint) error
	addParticipantFunc         func(ctx context.Context, conversationID, userID uint) error
	removeParticipantFunc      func(ctx context.Context, conversationID, userID uint) (bool, error)
	isParticipantFunc          func(ctx context.Context, conversationID, userID uint) (bool, error)
	participantIDsFunc         func(ctx context.Context, conversationID uint) ([]uint, error)
	participantPublicIDsFunc   func(ctx context.Context, conversationPublicID string) ([]string, error)
}

func notFound() error {
	return platformerrors.NewError(context.Background(), platformerrors.LayerRepository,
		platformerrors.ErrorTypeNotFound, "not found", nil, "test-not-found")
}

func conflict() error {
	return platformerrors.NewError(context.Background(), platformerrors.LayerRepository,
		platformerrors.ErrorTypeConflict, "duplicate", nil, "test-duplicate")
}

func (m *mockRepository) CreateWithParticipants(ctx context.Context, c *Conversation, participantIDs []uint) error {
	if m.createWithParticipantsFunc != nil {
		return m.createWithParticipantsFunc(ctx, c, participantIDs)
	}
	return nil
}

func (m *mockRepository) FindByPublicID(ctx context.Context, publicID string) (*Conversation, error) {
	if m.findByPublicIDFunc != nil {
		return m.findByPublicIDFunc(ctx, publicID)
	}
	return nil, notFound()
}

func (m *mockRepository) FindByDirectKey(ctx context.Context, key string) (*Conversation, error) {
	if m.findByDirectKeyFunc != nil {
		return m.findByDirectKeyFunc(ctx, key)
	}
	return nil, notFound()
}

func (m *mockRepository) ListForUser(ctx context.Context, userID uint) ([]*Conversation, error) {
	if m.listForUserFunc != nil {
		return m.listForUserFunc(ctx, userID)
	}
	return []*Conversation{}, nil
}

func (m *mockRepository) UpdateGroupMeta(ctx context.Context, conversationID uint, name, icon *string) error {
	if m.updateGroupMetaFunc != nil {
		return m.updateGroupMetaFunc(ctx, conversationID, name, icon)
	}
	return nil
}

func (m *mockRepository) SetAdmin(ctx context.Context, conversationID, userID uint) error {
	if m.setAdminFunc != nil {
		return m.setAdminFunc(ctx, conversationID, userID)
	}
	return nil
}

func (m *mockRepository) SetLatestMessage(ctx context.Context, conversationID, messageID uint) error {
	if m.setLatestMessageFunc != nil {
		return m.setLatestMessageFunc(ctx, conversationID, messageID)
	}
	return nil
}

func (m *mockRepository) Delete(ctx context.Context, conversationID uint) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, conversationID)
	}
	return nil
}

func (m *mockRepository) AddParticipant(ctx context.Context, conversationID, userID uint) error {
	if m.addParticipantFunc != nil {
		return m.addParticipantFunc(ctx, conversationID, userID)
	}
	return nil
}

func (m *mockRepository) RemoveParticipant(ctx context.Context, conversationID, userID uint) (bool, error) {
	if m.removeParticipantFunc != nil {
		return m.removeParticipantFunc(ctx, conversationID, userID)
	}
	return false, nil
}

func (m *mockRepository) IsParticipant(ctx context.Context, conversationID, userID uint) (bool, error) {
	if m.isParticipantFunc != nil {
		return m.isParticipantFunc(ctx, conversationID, userID)
	}
	return false, nil
}

func (m *mockRepository) ParticipantIDs(ctx context.Context, conversationID uint) ([]uint, error) {
	if m.participantIDsFunc != nil {
		return m.participantIDsFunc(ctx, conversationID)
	}
	return []uint{}, nil
}

func (m *mockRepository) ParticipantPublicIDs(ctx context.Context, conversationPublicID string) ([]string, error) {
	if m.participantPublicIDsFunc != nil {
		return m.participantPublicIDsFunc(ctx, conversationPublicID)
	}
	return []string{}, nil
}

type mockDirectory struct {
	users map[string]*user.User
}

func (m *mockDirectory) FindByPublicID(ctx context.Context, publicID string) (*user.User, error) {
	if u, ok := m.users[publicID]; ok {
		return u, nil
	}
	return nil, notFound()
}

type mockMedia struct{}

func (mockMedia) Upload(ctx context.Context, data string) (string, error) {
	return "https://cdn.example.com/icon.png", nil
}

type mockDispatcher struct {
	dispatched []delivery.Event
	notified   []delivery.Event
}

func (m *mockDispatcher) Dispatch(ctx context.Context, conversationID string, event delivery.Event) {
	m.dispatched = append(m.dispatched, event)
}

func (m *mockDispatcher) NotifyUsers(userIDs []string, event delivery.Event) {
	m.notified = append(m.notified, event)
}

func newTestService(repo *mockRepository, users map[string]*user.User) (*DefaultService, *mockDispatcher) {
	dispatcher := &mockDispatcher{}
	svc := NewService(repo, &mockDirectory{users: users}, mockMedia{}, dispatcher, zerolog.Nop())
	return svc, dispatcher
}

func TestDirectKeyIsOrderIndependent(t *testing.T) {
	assert.Equal(t, DirectKey(1, 2), DirectKey(2, 1))
	assert.Equal(t, "1:2", DirectKey(2, 1))
	assert.NotEqual(t, DirectKey(1, 2), DirectKey(1, 3))
}

func TestFindOrCreateDirectReturnsExisting(t *testing.T) {
	self := &user.User{ID: 1, PublicID: "user_a"}
	existing := &Conversation{
		ID: 10, PublicID: "conv_1",
		Participants:   []user.Summary{{ID: "user_a"}, {ID: "user_b"}},
		ParticipantIDs: []uint{1, 2},
	}
	repo := &mockRepository{
		findByDirectKeyFunc: func(ctx context.Context, key string) (*Conversation, error) {
			assert.Equal(t, "1:2", key)
			return existing, nil
		},
		createWithParticipantsFunc: func(ctx context.Context, c *Conversation, participantIDs []uint) error {
			t.Fatal("create must not run when the thread exists")
			return nil
		},
	}
	svc, _ := newTestService(repo, map[string]*user.User{"user_b": {ID: 2, PublicID: "user_b"}})

	conv, err := svc.FindOrCreateDirect(context.Background(), self, "user_b")
	require.NoError(t, err)
	assert.Equal(t, "conv_1", conv.PublicID)
	require.Len(t, conv.Participants, 1, "viewer filtered out")
	assert.Equal(t, "user_b", conv.Participants[0].ID)
}

func TestFindOrCreateDirectLosingRaceReadsWinner(t *testing.T) {
	self := &user.User{ID: 1, PublicID: "user_a"}
	winner := &Conversation{ID: 11, PublicID: "conv_winner", ParticipantIDs: []uint{1, 2}}

	calls := 0
	repo := &mockRepository{
		findByDirectKeyFunc: func(ctx context.Context, key string) (*Conversation, error) {
			calls++
			if calls == 1 {
				return nil, notFound() // nothing there yet
			}
			return winner, nil // the concurrent winner's row
		},
		createWithParticipantsFunc: func(ctx context.Context, c *Conversation, participantIDs []uint) error {
			return conflict()
		},
	}
	svc, _ := newTestService(repo, map[string]*user.User{"user_b": {ID: 2, PublicID: "user_b"}})

	conv, err := svc.FindOrCreateDirect(context.Background(), self, "user_b")
	require.NoError(t, err)
	assert.Equal(t, "conv_winner", conv.PublicID)
}

func TestFindOrCreateDirectRejectsSelf(t *testing.T) {
	self := &user.User{ID: 1, PublicID: "user_a"}
	svc, _ := newTestService(&mockRepository{}, map[string]*user.User{"user_a": self})

	_, err := svc.FindOrCreateDirect(context.Background(), self, "user_a")
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

func TestCreateGroupRequiresThreeParticipants(t *testing.T) {
	self := &user.User{ID: 1, PublicID: "user_a"}
	svc, _ := newTestService(&mockRepository{}, map[string]*user.User{
		"user_b": {ID: 2, PublicID: "user_b"},
	})

	_, err := svc.CreateGroup(context.Background(), self, "team", []string{"user_b"})
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))

	// Duplicates of the creator do not count twice.
	_, err = svc.CreateGroup(context.Background(), self, "team", []string{"user_b", "user_b"})
	require.Error(t, err)
}

func TestCreateGroupSetsCreatorAsAdmin(t *testing.T) {
	self := &user.User{ID: 1, PublicID: "user_a"}
	var created *Conversation
	repo := &mockRepository{
		createWithParticipantsFunc: func(ctx context.Context, c *Conversation, participantIDs []uint) error {
			c.ID = 20
			created = c
			assert.ElementsMatch(t, []uint{1, 2, 3}, participantIDs)
			return nil
		},
		findByPublicIDFunc: func(ctx context.Context, publicID string) (*Conversation, error) {
			out := *created
			out.ParticipantIDs = []uint{1, 2, 3}
			out.Participants = []user.Summary{{ID: "user_a"}, {ID: "user_b"}, {ID: "user_c"}}
			return &out, nil
		},
	}
	svc, _ := newTestService(repo, map[string]*user.User{
		"user_b": {ID: 2, PublicID: "user_b"},
		"user_c": {ID: 3, PublicID: "user_c"},
	})

	conv, err := svc.CreateGroup(context.Background(), self, "team", []string{"user_b", "user_c"})
	require.NoError(t, err)
	assert.Regexp(t, `^conv_[0-9a-z]{20}$`, created.PublicID)
	assert.True(t, created.IsGroupChat)
	require.NotNil(t, created.GroupAdminID)
	assert.Equal(t, uint(1), *created.GroupAdminID)
	assert.Len(t, conv.Participants, 2, "viewer filtered out")
}

func TestUpdateGroupRequiresAdmin(t *testing.T) {
	notAdmin := &user.User{ID: 2, PublicID: "user_b"}
	adminID := uint(1)
	repo := &mockRepository{
		findByPublicIDFunc: func(ctx context.Context, publicID string) (*Conversation, error) {
			return &Conversation{
				ID: 20, PublicID: publicID, IsGroupChat: true,
				GroupAdminID:   &adminID,
				ParticipantIDs: []uint{1, 2},
			}, nil
		},
	}
	svc, _ := newTestService(repo, nil)

	name := "renamed"
	_, err := svc.UpdateGroup(context.Background(), notAdmin, "conv_g", UpdateGroupParams{GroupName: &name})
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeForbidden))
}

func TestRemoveParticipantRejectsAdminTarget(t *testing.T) {
	admin := &user.User{ID: 1, PublicID: "user_a"}
	adminID := uint(1)
	repo := &mockRepository{
		findByPublicIDFunc: func(ctx context.Context, publicID string) (*Conversation, error) {
			return &Conversation{
				ID: 20, PublicID: publicID, IsGroupChat: true,
				GroupAdminID:   &adminID,
				ParticipantIDs: []uint{1, 2},
			}, nil
		},
	}
	svc, _ := newTestService(repo, map[string]*user.User{"user_a": admin})

	_, err := svc.RemoveParticipant(context.Background(), admin, "conv_g", "user_a")
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

func TestLeaveGroupReassignsAdminToSeniorMember(t *testing.T) {
	admin := &user.User{ID: 1, PublicID: "user_a"}
	adminID := uint(1)
	var newAdmin uint
	repo := &mockRepository{
		findByPublicIDFunc: func(ctx context.Context, publicID string) (*Conversation, error) {
			return &Conversation{
				ID: 20, PublicID: publicID, IsGroupChat: true,
				GroupAdminID:   &adminID,
				ParticipantIDs: []uint{1, 2, 3},
			}, nil
		},
		removeParticipantFunc: func(ctx context.Context, conversationID, userID uint) (bool, error) {
			return true, nil
		},
		participantIDsFunc: func(ctx context.Context, conversationID uint) ([]uint, error) {
			return []uint{2, 3}, nil // join order, oldest first
		},
		setAdminFunc: func(ctx context.Context, conversationID, userID uint) error {
			newAdmin = userID
			return nil
		},
	}
	svc, _ := newTestService(repo, nil)

	require.NoError(t, svc.LeaveGroup(context.Background(), admin, "conv_g"))
	assert.Equal(t, uint(2), newAdmin, "role moves to the longest-standing member")
}

func TestLeaveGroupDeletesEmptyConversation(t *testing.T) {
	last := &user.User{ID: 1, PublicID: "user_a"}
	adminID := uint(1)
	deleted := false
	repo := &mockRepository{
		findByPublicIDFunc: func(ctx context.Context, publicID string) (*Conversation, error) {
			return &Conversation{
				ID: 20, PublicID: publicID, IsGroupChat: true,
				GroupAdminID:   &adminID,
				ParticipantIDs: []uint{1},
			}, nil
		},
		removeParticipantFunc: func(ctx context.Context, conversationID, userID uint) (bool, error) {
			return true, nil
		},
		participantIDsFunc: func(ctx context.Context, conversationID uint) ([]uint, error) {
			return []uint{}, nil
		},
		deleteFunc: func(ctx context.Context, conversationID uint) error {
			deleted = true
			return nil
		},
	}
	svc, _ := newTestService(repo, nil)

	require.NoError(t, svc.LeaveGroup(context.Background(), last, "conv_g"))
	assert.True(t, deleted)
}

func TestLeaveDirectConversationRejected(t *testing.T) {
	self := &user.User{ID: 1, PublicID: "user_a"}
	repo := &mockRepository{
		findByPublicIDFunc: func(ctx context.Context, publicID string) (*Conversation, error) {
			return &Conversation{ID: 20, PublicID: publicID, ParticipantIDs: []uint{1, 2}}, nil
		},
	}
	svc, _ := newTestService(repo, nil)

	err := svc.LeaveGroup(context.Background(), self, "conv_d")
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

func TestForViewerFiltersSelf(t *testing.T) {
	conv := &Conversation{
		Participants: []user.Summary{{ID: "user_a"}, {ID: "user_b"}, {ID: "user_c"}},
	}
	view := conv.ForViewer("user_b")
	require.Len(t, view.Participants, 2)
	for _, p := range view.Participants {
		assert.NotEqual(t, "user_b", p.ID)
	}
	assert.Len(t, conv.Participants, 3, "original untouched")
}
