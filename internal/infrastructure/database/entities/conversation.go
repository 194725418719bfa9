package entities

import (
	"time"

	domainconv "connectify-server/internal/domain/conversation"
	domainuser "connectify-server/internal/domain/user"
)

// Conversation is a chat thread row. DirectKey is set only for direct
// threads; its unique index makes concurrent direct creates collapse into
// one row.
type Conversation struct {
	ID              uint    `gorm:"primaryKey"`
	PublicID        string  `gorm:"size:32;uniqueIndex"`
	IsGroupChat     bool    `gorm:"not null;default:false"`
	GroupName       string  `gorm:"size:60"`
	GroupIcon       string  `gorm:"size:512"`
	GroupAdminID    *uint   `gorm:"index"`
	GroupAdmin      *User   `gorm:"foreignKey:GroupAdminID"`
	DirectKey       *string `gorm:"size:64;uniqueIndex"`
	LatestMessageID *uint
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Participants []ConversationParticipant `gorm:"foreignKey:ConversationID"`
}

// ConversationParticipant is a membership row. CreatedAt order decides who
// inherits the admin role when the admin leaves.
type ConversationParticipant struct {
	ID             uint `gorm:"primaryKey"`
	ConversationID uint `gorm:"uniqueIndex:idx_conversation_participant;not null"`
	UserID         uint `gorm:"uniqueIndex:idx_conversation_participant;index;not null"`
	User           User `gorm:"foreignKey:UserID"`
	CreatedAt      time.Time
}

// ToDomain maps the row and its preloaded relations into the domain shape.
// The latest message preview and unread count are query-time concerns and
// are filled by the repository.
func (e *Conversation) ToDomain() *domainconv.Conversation {
	c := &domainconv.Conversation{
		ID:           e.ID,
		PublicID:     e.PublicID,
		IsGroupChat:  e.IsGroupChat,
		GroupName:    e.GroupName,
		GroupIcon:    e.GroupIcon,
		GroupAdminID: e.GroupAdminID,
		DirectKey:    e.DirectKey,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
	if e.GroupAdmin != nil {
		summary := e.GroupAdmin.ToSummary()
		c.GroupAdmin = &summary
	}
	c.Participants = make([]domainuser.Summary, 0, len(e.Participants))
	c.ParticipantIDs = make([]uint, 0, len(e.Participants))
	for _, p := range e.Participants {
		c.Participants = append(c.Participants, p.User.ToSummary())
		c.ParticipantIDs = append(c.ParticipantIDs, p.UserID)
	}
	return c
}
