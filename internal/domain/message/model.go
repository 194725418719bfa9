package message

import (
	"time"

	"connectify-server/internal/domain/user"
)

// Message is a chat message. A deleted message keeps its identity and slot
// in the timeline; only its content is blanked.
type Message struct {
	ID                   uint         `json:"-"`
	PublicID             string       `json:"id"`
	ConversationID       uint         `json:"-"`
	ConversationPublicID string       `json:"conversationId"`
	Sender               user.Summary `json:"sender"`
	Text                 *string      `json:"text"`
	Image                *string      `json:"image"`
	ReadBy               []string     `json:"readBy"`
	IsDeleted            bool         `json:"isDeleted"`
	CreatedAt            time.Time    `json:"createdAt"`
}
