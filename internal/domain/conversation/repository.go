package conversation

import "context"

// Repository persists conversations and their participant sets.
type Repository interface {
	// CreateWithParticipants inserts the conversation and its participant
	// rows in one transaction. A duplicate direct key surfaces as a
	// conflict error.
	CreateWithParticipants(ctx context.Context, c *Conversation, participantIDs []uint) error

	FindByPublicID(ctx context.Context, publicID string) (*Conversation, error)
	FindByDirectKey(ctx context.Context, key string) (*Conversation, error)
	// ListForUser returns the user's conversations newest-activity first,
	// with participants, latest message preview and the user's unread count
	// resolved.
	ListForUser(ctx context.Context, userID uint) ([]*Conversation, error)

	UpdateGroupMeta(ctx context.Context, conversationID uint, name, icon *string) error
	SetAdmin(ctx context.Context, conversationID, userID uint) error
	SetLatestMessage(ctx context.Context, conversationID, messageID uint) error
	Delete(ctx context.Context, conversationID uint) error

	AddParticipant(ctx context.Context, conversationID, userID uint) error
	// RemoveParticipant reports whether a row was actually removed.
	RemoveParticipant(ctx context.Context, conversationID, userID uint) (bool, error)
	IsParticipant(ctx context.Context, conversationID, userID uint) (bool, error)
	// ParticipantIDs returns internal ids in join order (oldest first).
	ParticipantIDs(ctx context.Context, conversationID uint) ([]uint, error)
	ParticipantPublicIDs(ctx context.Context, conversationPublicID string) ([]string, error)
}
