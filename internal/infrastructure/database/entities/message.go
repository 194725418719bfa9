package entities

import (
	"time"

	domainmsg "connectify-server/internal/domain/message"
)

// Message is a timeline row. Deleted messages keep the row; content columns
// are nulled and IsDeleted flips.
type Message struct {
	ID             uint    `gorm:"primaryKey"`
	PublicID       string  `gorm:"size:32;uniqueIndex"`
	ConversationID uint    `gorm:"index:idx_message_conversation_created;not null"`
	SenderID       uint    `gorm:"index;not null"`
	Sender         User    `gorm:"foreignKey:SenderID"`
	Text           *string `gorm:"type:text"`
	Image          *string `gorm:"size:512"`
	IsDeleted      bool    `gorm:"not null;default:false"`
	CreatedAt      time.Time `gorm:"index:idx_message_conversation_created"`
	UpdatedAt      time.Time

	Reads []MessageRead `gorm:"foreignKey:MessageID"`
}

// MessageRead is one reader's receipt for one message. The unique pair
// index makes replays no-ops.
type MessageRead struct {
	ID        uint `gorm:"primaryKey"`
	MessageID uint `gorm:"uniqueIndex:idx_message_read_pair;not null"`
	UserID    uint `gorm:"uniqueIndex:idx_message_read_pair;not null"`
	User      User `gorm:"foreignKey:UserID"`
	CreatedAt time.Time
}

// ToDomain maps the row and its preloaded relations into the domain shape.
// ConversationPublicID is a join-time concern filled by the repository.
func (e *Message) ToDomain() *domainmsg.Message {
	m := &domainmsg.Message{
		ID:             e.ID,
		PublicID:       e.PublicID,
		ConversationID: e.ConversationID,
		Sender:         e.Sender.ToSummary(),
		Text:           e.Text,
		Image:          e.Image,
		IsDeleted:      e.IsDeleted,
		CreatedAt:      e.CreatedAt,
	}
	m.ReadBy = make([]string, 0, len(e.Reads))
	for _, r := range e.Reads {
		m.ReadBy = append(m.ReadBy, r.User.PublicID)
	}
	return m
}
