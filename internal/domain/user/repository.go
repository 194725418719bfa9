package user

import "context"

// Repository persists users, friendship edges and pending friend requests.
//
// Friendship is stored as a single canonical edge per pair (symmetry by
// construction) rather than mirrored per-user sets, so a crash can never
// leave a half-applied relationship.
type Repository interface {
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id uint) (*User, error)
	FindByPublicID(ctx context.Context, publicID string) (*User, error)
	// FindByLoginID matches either email or username.
	FindByLoginID(ctx context.Context, loginID string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByResetTokenHash(ctx context.Context, tokenHash string) (*User, error)

	// ListOthers returns every user except the given one (sidebar source).
	ListOthers(ctx context.Context, selfID uint) ([]*User, error)
	// SearchByUsername does a case-insensitive substring match, excluding self.
	SearchByUsername(ctx context.Context, query string, selfID uint) ([]*User, error)

	CreateFriendRequest(ctx context.Context, requesterID, recipientID uint) error
	HasFriendRequest(ctx context.Context, requesterID, recipientID uint) (bool, error)
	DeleteFriendRequest(ctx context.Context, requesterID, recipientID uint) (bool, error)
	ListPendingRequesters(ctx context.Context, recipientID uint) ([]*User, error)

	CreateFriendship(ctx context.Context, userA, userB uint) error
	DeleteFriendship(ctx context.Context, userA, userB uint) (bool, error)
	AreFriends(ctx context.Context, userA, userB uint) (bool, error)
	ListFriends(ctx context.Context, userID uint) ([]*User, error)
	FriendPublicIDs(ctx context.Context, userID uint) ([]string, error)
}
