package user

import "time"

// User is the persisted identity record. PasswordHash and the reset token
// never leave the domain layer.
type User struct {
	ID                    uint       `json:"-"`
	PublicID              string     `json:"id"`
	FullName              string     `json:"fullName"`
	Username              string     `json:"username"`
	Email                 string     `json:"email"`
	PasswordHash          string     `json:"-"`
	ProfilePic            string     `json:"profilePic"`
	UsernameLastUpdatedAt *time.Time `json:"usernameLastUpdatedAt,omitempty"`
	FailedLoginAttempts   int        `json:"-"`
	ResetTokenHash        *string    `json:"-"`
	ResetTokenExpiresAt   *time.Time `json:"-"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

// Summary is the compact identity shape embedded in conversations, messages
// and friend lists.
type Summary struct {
	ID         string `json:"id"`
	FullName   string `json:"fullName"`
	Username   string `json:"username"`
	ProfilePic string `json:"profilePic"`
}

// Summary projects the user into its embeddable shape.
func (u *User) ToSummary() Summary {
	return Summary{
		ID:         u.PublicID,
		FullName:   u.FullName,
		Username:   u.Username,
		ProfilePic: u.ProfilePic,
	}
}

// SearchResult augments a summary with the relationship of the result to the
// searching user, so the client can render the right call-to-action.
type SearchResult struct {
	Summary
	IsFriend        bool `json:"isFriend"`
	RequestSent     bool `json:"requestSent"`
	RequestReceived bool `json:"requestReceived"`
}
