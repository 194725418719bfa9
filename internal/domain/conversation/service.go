package conversation

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"connectify-server/internal/domain/delivery"
	"connectify-server/internal/domain/user"
	"connectify-server/internal/utils/idgen"
	"connectify-server/internal/utils/platformerrors"
)

const (
	publicIDLength = 20
	// A group needs the creator plus at least two others.
	minGroupParticipants = 3
	maxGroupNameLen      = 60
)

// UserDirectory resolves users referenced by public id.
type UserDirectory interface {
	FindByPublicID(ctx context.Context, publicID string) (*user.User, error)
}

// MediaStore uploads base64 payloads and returns a hosted URL.
type MediaStore interface {
	Upload(ctx context.Context, data string) (string, error)
}

// Dispatcher fans conversation events out to their audience.
type Dispatcher interface {
	Dispatch(ctx context.Context, conversationID string, event delivery.Event)
	NotifyUsers(userIDs []string, event delivery.Event)
}

// UpdateGroupParams carries optional group mutations. GroupIcon is a base64
// data URL to upload.
type UpdateGroupParams struct {
	GroupName *string
	GroupIcon *string
}

// Service implements conversation lifecycle and membership operations.
type Service interface {
	FindOrCreateDirect(ctx context.Context, self *user.User, otherPublicID string) (*Conversation, error)
	CreateGroup(ctx context.Context, self *user.User, name string, participantPublicIDs []string) (*Conversation, error)
	ListForUser(ctx context.Context, self *user.User) ([]*Conversation, error)
	GetForUser(ctx context.Context, self *user.User, publicID string) (*Conversation, error)
	UpdateGroup(ctx context.Context, self *user.User, publicID string, params UpdateGroupParams) (*Conversation, error)
	AddParticipant(ctx context.Context, self *user.User, publicID, participantPublicID string) (*Conversation, error)
	RemoveParticipant(ctx context.Context, self *user.User, publicID, participantPublicID string) (*Conversation, error)
	LeaveGroup(ctx context.Context, self *user.User, publicID string) error

	// Membership resolves a conversation and checks the user belongs to it.
	Membership(ctx context.Context, publicID string, userID uint) (*Conversation, bool, error)
	ParticipantPublicIDs(ctx context.Context, conversationPublicID string) ([]string, error)
	SetLatestMessage(ctx context.Context, conversationID, messageID uint) error
}

// DefaultService is the production Service implementation.
type DefaultService struct {
	repo       Repository
	users      UserDirectory
	media      MediaStore
	dispatcher Dispatcher
	log        zerolog.Logger
}

// NewService wires a DefaultService.
func NewService(repo Repository, users UserDirectory, media MediaStore, dispatcher Dispatcher, log zerolog.Logger) *DefaultService {
	return &DefaultService{
		repo:       repo,
		users:      users,
		media:      media,
		dispatcher: dispatcher,
		log:        log.With().Str("component", "conversation-service").Logger(),
	}
}

// FindOrCreateDirect returns the direct thread between self and the other
// user, creating it when absent. Two clients racing here both end up with
// the same thread: the loser of the unique-key insert re-reads the winner's
// row.
func (s *DefaultService) FindOrCreateDirect(ctx context.Context, self *user.User, otherPublicID string) (*Conversation, error) {
	other, err := s.users.FindByPublicID(ctx, otherPublicID)
	if err != nil {
		return nil, err
	}
	if other.ID == self.ID {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"cannot start a conversation with yourself", nil, "direct-self")
	}

	key := DirectKey(self.ID, other.ID)
	if existing, err := s.repo.FindByDirectKey(ctx, key); err == nil {
		return existing.ForViewer(self.PublicID), nil
	} else if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		return nil, err
	}

	publicID, err := idgen.GenerateSecureID("conv", publicIDLength)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal,
			"failed to generate conversation id", err, "direct-id-failed")
	}

	conv := &Conversation{
		PublicID:  publicID,
		DirectKey: &key,
	}
	if err := s.repo.CreateWithParticipants(ctx, conv, []uint{self.ID, other.ID}); err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict) {
			// Lost the race; the winner's thread is the thread.
			winner, ferr := s.repo.FindByDirectKey(ctx, key)
			if ferr != nil {
				return nil, ferr
			}
			return winner.ForViewer(self.PublicID), nil
		}
		return nil, err
	}

	created, err := s.repo.FindByPublicID(ctx, conv.PublicID)
	if err != nil {
		return nil, err
	}
	return created.ForViewer(self.PublicID), nil
}

func (s *DefaultService) CreateGroup(ctx context.Context, self *user.User, name string, participantPublicIDs []string) (*Conversation, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxGroupNameLen {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"group name must be 1-60 characters", nil, "group-name-invalid")
	}

	memberIDs := []uint{self.ID}
	seen := map[uint]struct{}{self.ID: {}}
	for _, pid := range participantPublicIDs {
		member, err := s.users.FindByPublicID(ctx, pid)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[member.ID]; dup {
			continue
		}
		seen[member.ID] = struct{}{}
		memberIDs = append(memberIDs, member.ID)
	}
	if len(memberIDs) < minGroupParticipants {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"a group needs at least 2 other participants", nil, "group-too-small")
	}

	publicID, err := idgen.GenerateSecureID("conv", publicIDLength)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal,
			"failed to generate conversation id", err, "group-id-failed")
	}

	adminID := self.ID
	conv := &Conversation{
		PublicID:     publicID,
		IsGroupChat:  true,
		GroupName:    name,
		GroupAdminID: &adminID,
	}
	if err := s.repo.CreateWithParticipants(ctx, conv, memberIDs); err != nil {
		return nil, err
	}

	created, err := s.repo.FindByPublicID(ctx, conv.PublicID)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("conversation_id", created.PublicID).Int("participants", len(memberIDs)).Msg("group created")
	s.dispatchUpdate(ctx, created)
	return created.ForViewer(self.PublicID), nil
}

func (s *DefaultService) ListForUser(ctx context.Context, self *user.User) ([]*Conversation, error) {
	convs, err := s.repo.ListForUser(ctx, self.ID)
	if err != nil {
		return nil, err
	}
	out := make([]*Conversation, 0, len(convs))
	for _, c := range convs {
		out = append(out, c.ForViewer(self.PublicID))
	}
	return out, nil
}

func (s *DefaultService) GetForUser(ctx context.Context, self *user.User, publicID string) (*Conversation, error) {
	conv, ok, err := s.Membership(ctx, publicID, self.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notAParticipant(ctx)
	}
	return conv.ForViewer(self.PublicID), nil
}

func (s *DefaultService) UpdateGroup(ctx context.Context, self *user.User, publicID string, params UpdateGroupParams) (*Conversation, error) {
	conv, err := s.requireGroupAdmin(ctx, self, publicID)
	if err != nil {
		return nil, err
	}

	var name, icon *string
	if params.GroupName != nil {
		trimmed := strings.TrimSpace(*params.GroupName)
		if trimmed == "" || len(trimmed) > maxGroupNameLen {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
				"group name must be 1-60 characters", nil, "group-name-invalid")
		}
		name = &trimmed
	}
	if params.GroupIcon != nil && *params.GroupIcon != "" {
		url, uerr := s.media.Upload(ctx, *params.GroupIcon)
		if uerr != nil {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal,
				"group icon upload failed", uerr, "group-icon-upload-failed")
		}
		icon = &url
	}
	if name == nil && icon == nil {
		return conv.ForViewer(self.PublicID), nil
	}

	if err := s.repo.UpdateGroupMeta(ctx, conv.ID, name, icon); err != nil {
		return nil, err
	}

	updated, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	s.dispatchUpdate(ctx, updated)
	return updated.ForViewer(self.PublicID), nil
}

func (s *DefaultService) AddParticipant(ctx context.Context, self *user.User, publicID, participantPublicID string) (*Conversation, error) {
	conv, err := s.requireGroupAdmin(ctx, self, publicID)
	if err != nil {
		return nil, err
	}

	member, err := s.users.FindByPublicID(ctx, participantPublicID)
	if err != nil {
		return nil, err
	}
	if conv.HasParticipant(member.ID) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict,
			"user is already a participant", nil, "participant-already-present")
	}

	if err := s.repo.AddParticipant(ctx, conv.ID, member.ID); err != nil {
		return nil, err
	}

	updated, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	s.dispatchUpdate(ctx, updated)
	return updated.ForViewer(self.PublicID), nil
}

func (s *DefaultService) RemoveParticipant(ctx context.Context, self *user.User, publicID, participantPublicID string) (*Conversation, error) {
	conv, err := s.requireGroupAdmin(ctx, self, publicID)
	if err != nil {
		return nil, err
	}

	member, err := s.users.FindByPublicID(ctx, participantPublicID)
	if err != nil {
		return nil, err
	}
	if conv.GroupAdminID != nil && *conv.GroupAdminID == member.ID {
		// Admins leave via LeaveGroup, which reassigns the role first.
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"the group admin cannot be removed", nil, "participant-remove-admin")
	}

	removed, err := s.repo.RemoveParticipant(ctx, conv.ID, member.ID)
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound,
			"user is not a participant", nil, "participant-remove-missing")
	}

	updated, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	s.dispatchUpdate(ctx, updated)
	// The removed user no longer resolves as a participant, so tell them
	// directly.
	s.dispatcher.NotifyUsers([]string{member.PublicID},
		delivery.NewEvent(delivery.EventConversationUpdated, updated.ForViewer(member.PublicID)))
	return updated.ForViewer(self.PublicID), nil
}

// LeaveGroup removes the caller from a group. When the admin leaves, the
// role moves to the longest-standing remaining participant; when the last
// participant leaves, the conversation is deleted.
func (s *DefaultService) LeaveGroup(ctx context.Context, self *user.User, publicID string) error {
	conv, ok, err := s.Membership(ctx, publicID, self.ID)
	if err != nil {
		return err
	}
	if !ok {
		return notAParticipant(ctx)
	}
	if !conv.IsGroupChat {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"direct conversations cannot be left", nil, "leave-direct")
	}

	removed, err := s.repo.RemoveParticipant(ctx, conv.ID, self.ID)
	if err != nil {
		return err
	}
	if !removed {
		return notAParticipant(ctx)
	}

	remaining, err := s.repo.ParticipantIDs(ctx, conv.ID)
	if err != nil {
		return err
	}
	if len(remaining) == 0 {
		if derr := s.repo.Delete(ctx, conv.ID); derr != nil {
			return derr
		}
		s.log.Info().Str("conversation_id", conv.PublicID).Msg("empty group deleted")
		return nil
	}

	if conv.GroupAdminID != nil && *conv.GroupAdminID == self.ID {
		// ParticipantIDs is join-ordered, so index 0 is the senior member.
		if err := s.repo.SetAdmin(ctx, conv.ID, remaining[0]); err != nil {
			return err
		}
		s.log.Info().Str("conversation_id", conv.PublicID).Msg("group admin reassigned")
	}

	updated, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		return err
	}
	s.dispatchUpdate(ctx, updated)
	return nil
}

func (s *DefaultService) Membership(ctx context.Context, publicID string, userID uint) (*Conversation, bool, error) {
	conv, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, false, err
	}
	return conv, conv.HasParticipant(userID), nil
}

func (s *DefaultService) ParticipantPublicIDs(ctx context.Context, conversationPublicID string) ([]string, error) {
	return s.repo.ParticipantPublicIDs(ctx, conversationPublicID)
}

// SetLatestMessage refreshes the sidebar pointer. Best-effort by contract:
// callers may ignore the error after the message itself is durable.
func (s *DefaultService) SetLatestMessage(ctx context.Context, conversationID, messageID uint) error {
	return s.repo.SetLatestMessage(ctx, conversationID, messageID)
}

func (s *DefaultService) requireGroupAdmin(ctx context.Context, self *user.User, publicID string) (*Conversation, error) {
	conv, ok, err := s.Membership(ctx, publicID, self.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notAParticipant(ctx)
	}
	if !conv.IsGroupChat {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"not a group conversation", nil, "group-required")
	}
	if conv.GroupAdminID == nil || *conv.GroupAdminID != self.ID {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden,
			"only the group admin can do that", nil, "group-admin-required")
	}
	return conv, nil
}

func notAParticipant(ctx context.Context) *platformerrors.PlatformError {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden,
		"you are not a participant of this conversation", nil, "not-a-participant")
}

// dispatchUpdate pushes the refreshed conversation to everyone currently in
// it. Each recipient gets the view with themselves filtered out.
func (s *DefaultService) dispatchUpdate(ctx context.Context, conv *Conversation) {
	for _, p := range conv.Participants {
		s.dispatcher.NotifyUsers([]string{p.ID},
			delivery.NewEvent(delivery.EventConversationUpdated, conv.ForViewer(p.ID)))
	}
}
