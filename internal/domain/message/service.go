package message

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"connectify-server/internal/domain/conversation"
	"connectify-server/internal/domain/delivery"
	"connectify-server/internal/domain/user"
	"connectify-server/internal/utils/idgen"
	"connectify-server/internal/utils/platformerrors"
)

const (
	publicIDLength = 20
	maxTextLen     = 4096
)

// ConversationGateway is the slice of the conversation service the message
// flow needs: membership checks and the sidebar pointer.
type ConversationGateway interface {
	Membership(ctx context.Context, publicID string, userID uint) (*conversation.Conversation, bool, error)
	SetLatestMessage(ctx context.Context, conversationID, messageID uint) error
}

// MediaStore uploads base64 payloads and returns a hosted URL.
type MediaStore interface {
	Upload(ctx context.Context, data string) (string, error)
}

// Dispatcher orders and fans out conversation events.
type Dispatcher interface {
	Sequence(conversationID string) func()
	Dispatch(ctx context.Context, conversationID string, event delivery.Event)
}

// AppendParams carries new-message input. Image is a base64 data URL.
type AppendParams struct {
	Text  string
	Image string
}

// Service implements the message timeline operations.
type Service interface {
	Append(ctx context.Context, sender *user.User, conversationPublicID string, params AppendParams) (*Message, error)
	ListByConversation(ctx context.Context, self *user.User, conversationPublicID string) ([]*Message, error)
	SoftDelete(ctx context.Context, self *user.User, messagePublicID string) (*Message, error)
	MarkRead(ctx context.Context, self *user.User, conversationPublicID string) ([]string, error)
}

// DefaultService is the production Service implementation.
type DefaultService struct {
	repo          Repository
	conversations ConversationGateway
	media         MediaStore
	dispatcher    Dispatcher
	log           zerolog.Logger
}

// NewService wires a DefaultService.
func NewService(repo Repository, conversations ConversationGateway, media MediaStore, dispatcher Dispatcher, log zerolog.Logger) *DefaultService {
	return &DefaultService{
		repo:          repo,
		conversations: conversations,
		media:         media,
		dispatcher:    dispatcher,
		log:           log.With().Str("component", "message-service").Logger(),
	}
}

// Append validates, persists and fans out a new message. The media upload
// happens before the ordering lock is taken; the durable insert and the
// dispatch happen under it, so receivers observe messages in commit order.
func (s *DefaultService) Append(ctx context.Context, sender *user.User, conversationPublicID string, params AppendParams) (*Message, error) {
	text := strings.TrimSpace(params.Text)
	if text == "" && params.Image == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"message needs text or an image", nil, "message-empty")
	}
	if len(text) > maxTextLen {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"message text is too long", nil, "message-too-long")
	}

	conv, ok, err := s.conversations.Membership(ctx, conversationPublicID, sender.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notAParticipant(ctx)
	}

	var imageURL *string
	if params.Image != "" {
		url, uerr := s.media.Upload(ctx, params.Image)
		if uerr != nil {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal,
				"image upload failed", uerr, "message-image-upload-failed")
		}
		imageURL = &url
	}

	publicID, err := idgen.GenerateSecureID("msg", publicIDLength)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal,
			"failed to generate message id", err, "message-id-failed")
	}

	m := &Message{
		PublicID:             publicID,
		ConversationID:       conv.ID,
		ConversationPublicID: conv.PublicID,
		Sender:               sender.ToSummary(),
		ReadBy:               []string{},
	}
	if text != "" {
		m.Text = &text
	}
	m.Image = imageURL

	unlock := s.dispatcher.Sequence(conv.PublicID)
	defer unlock()

	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}

	// The message is durable; a stale sidebar pointer self-heals on the
	// next append, so failures here only get logged.
	if lerr := s.conversations.SetLatestMessage(ctx, conv.ID, m.ID); lerr != nil {
		s.log.Warn().Err(lerr).Str("conversation_id", conv.PublicID).Msg("failed to update latest message pointer")
	}

	s.dispatcher.Dispatch(ctx, conv.PublicID, delivery.NewEvent(delivery.EventMessageCreated, m))
	return m, nil
}

func (s *DefaultService) ListByConversation(ctx context.Context, self *user.User, conversationPublicID string) ([]*Message, error) {
	conv, ok, err := s.conversations.Membership(ctx, conversationPublicID, self.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notAParticipant(ctx)
	}
	return s.repo.ListByConversation(ctx, conv.ID)
}

// SoftDelete tombstones a message. Only the sender may delete; a foreign
// message id yields the same not-found as a nonexistent one, so the
// endpoint does not confirm other people's message ids.
func (s *DefaultService) SoftDelete(ctx context.Context, self *user.User, messagePublicID string) (*Message, error) {
	m, err := s.repo.FindByPublicID(ctx, messagePublicID)
	if err != nil {
		return nil, err
	}
	if m.Sender.ID != self.PublicID {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound,
			"message not found", nil, "message-delete-not-found")
	}
	if m.IsDeleted {
		return m, nil
	}

	unlock := s.dispatcher.Sequence(m.ConversationPublicID)
	defer unlock()

	if err := s.repo.SoftDelete(ctx, m.ID); err != nil {
		return nil, err
	}
	m.Text = nil
	m.Image = nil
	m.IsDeleted = true

	s.dispatcher.Dispatch(ctx, m.ConversationPublicID, delivery.NewEvent(delivery.EventMessageDeleted, m))
	return m, nil
}

// MarkRead is idempotent: replays find nothing unread and dispatch nothing.
func (s *DefaultService) MarkRead(ctx context.Context, self *user.User, conversationPublicID string) ([]string, error) {
	conv, ok, err := s.conversations.Membership(ctx, conversationPublicID, self.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notAParticipant(ctx)
	}

	unlock := s.dispatcher.Sequence(conv.PublicID)
	defer unlock()

	changed, err := s.repo.MarkRead(ctx, conv.ID, self.ID)
	if err != nil {
		return nil, err
	}
	if len(changed) == 0 {
		return []string{}, nil
	}

	s.dispatcher.Dispatch(ctx, conv.PublicID, delivery.NewEvent(delivery.EventReadReceiptUpdated, delivery.ReadReceiptPayload{
		ConversationID: conv.PublicID,
		ReaderID:       self.PublicID,
		MessageIDs:     changed,
	}))
	return changed, nil
}

func notAParticipant(ctx context.Context) *platformerrors.PlatformError {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden,
		"you are not a participant of this conversation", nil, "not-a-participant")
}
