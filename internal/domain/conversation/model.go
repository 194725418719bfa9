package conversation

import (
	"fmt"
	"time"

	"connectify-server/internal/domain/user"
)

// Conversation is a chat thread, either a direct channel between two users
// or a named group. Participants are resolved summaries; ParticipantIDs are
// the matching internal ids, kept for authorization checks.
type Conversation struct {
	ID             uint           `json:"-"`
	PublicID       string         `json:"id"`
	IsGroupChat    bool           `json:"isGroupChat"`
	GroupName      string         `json:"groupName,omitempty"`
	GroupIcon      string         `json:"groupIcon,omitempty"`
	GroupAdmin     *user.Summary  `json:"groupAdmin,omitempty"`
	GroupAdminID   *uint          `json:"-"`
	DirectKey      *string        `json:"-"`
	Participants   []user.Summary `json:"participants"`
	ParticipantIDs []uint         `json:"-"`
	LatestMessage  *LatestMessage `json:"latestMessage,omitempty"`
	UnreadCount    int64          `json:"unreadCount"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// LatestMessage is the sidebar preview of the newest message in a thread.
type LatestMessage struct {
	ID        string       `json:"id"`
	Sender    user.Summary `json:"sender"`
	Text      *string      `json:"text"`
	HasImage  bool         `json:"hasImage"`
	IsDeleted bool         `json:"isDeleted"`
	CreatedAt time.Time    `json:"createdAt"`
}

// HasParticipant reports whether the internal user id is a member.
func (c *Conversation) HasParticipant(userID uint) bool {
	for _, id := range c.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// ForViewer returns a copy with the viewer removed from the participant
// list, matching what chat clients render (the other side of a direct
// thread, everyone-but-me in a group).
func (c *Conversation) ForViewer(viewerPublicID string) *Conversation {
	out := *c
	out.Participants = make([]user.Summary, 0, len(c.Participants))
	for _, p := range c.Participants {
		if p.ID != viewerPublicID {
			out.Participants = append(out.Participants, p)
		}
	}
	return &out
}

// DirectKey is the canonical identity of a direct thread between two users.
// Ordering by internal id makes (a,b) and (b,a) collide on the same unique
// index, which is what turns concurrent creates into a single winner.
func DirectKey(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}
