package message

import "context"

// Repository persists messages and per-user read receipts.
type Repository interface {
	Create(ctx context.Context, m *Message) error
	FindByPublicID(ctx context.Context, publicID string) (*Message, error)
	// ListByConversation returns the full timeline oldest first, deleted
	// tombstones included, with senders and read receipts resolved.
	ListByConversation(ctx context.Context, conversationID uint) ([]*Message, error)
	// SoftDelete blanks content and flags the message deleted.
	SoftDelete(ctx context.Context, messageID uint) error
	// MarkRead records the reader on every message of the conversation they
	// have not read yet (own messages excluded) and returns the public ids
	// of the messages that actually changed. Replays return an empty slice.
	MarkRead(ctx context.Context, conversationID, readerID uint) ([]string, error)
}
