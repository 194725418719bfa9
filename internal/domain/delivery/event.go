package delivery

// EventKind names a realtime event pushed over the socket layer.
type EventKind string

const (
	EventMessageCreated      EventKind = "message-created"
	EventMessageDeleted      EventKind = "message-deleted"
	EventReadReceiptUpdated  EventKind = "read-receipt-updated"
	EventPresenceChanged     EventKind = "presence-changed"
	EventConversationUpdated EventKind = "conversation-updated"

	EventFriendRequestReceived EventKind = "friend-request-received"
	EventFriendRequestAccepted EventKind = "friend-request-accepted"
	EventFriendRemoved         EventKind = "friend-removed"
)

// Event is the wire envelope for socket pushes.
type Event struct {
	Kind EventKind `json:"type"`
	Data any       `json:"data"`
}

// NewEvent builds an envelope.
func NewEvent(kind EventKind, data any) Event {
	return Event{Kind: kind, Data: data}
}

// PresencePayload is the body of a presence-changed event.
type PresencePayload struct {
	UserID string `json:"userId"`
	Online bool   `json:"online"`
}

// ReadReceiptPayload is the body of a read-receipt-updated event.
type ReadReceiptPayload struct {
	ConversationID string   `json:"conversationId"`
	ReaderID       string   `json:"readerId"`
	MessageIDs     []string `json:"messageIds"`
}
