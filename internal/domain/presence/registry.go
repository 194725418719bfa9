// Package presence exposes who currently holds a live socket.
package presence

// Registry answers online/offline queries. The socket hub implements it;
// handlers consume it.
type Registry interface {
	IsOnline(userID string) bool
	OnlineUserIDs() []string
}
