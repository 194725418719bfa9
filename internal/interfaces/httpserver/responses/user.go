package responses

import (
	"time"

	"connectify-server/internal/domain/user"
)

// ProfileResponse is the authenticated user's own view of their account.
type ProfileResponse struct {
	ID                    string     `json:"id"`
	FullName              string     `json:"fullName"`
	Username              string     `json:"username"`
	Email                 string     `json:"email"`
	ProfilePic            string     `json:"profilePic"`
	UsernameLastUpdatedAt *time.Time `json:"usernameLastUpdatedAt,omitempty"`
	CreatedAt             time.Time  `json:"createdAt"`
}

// ProfileFromDomain maps a user to their profile payload.
func ProfileFromDomain(u *user.User) ProfileResponse {
	return ProfileResponse{
		ID:                    u.PublicID,
		FullName:              u.FullName,
		Username:              u.Username,
		Email:                 u.Email,
		ProfilePic:            u.ProfilePic,
		UsernameLastUpdatedAt: u.UsernameLastUpdatedAt,
		CreatedAt:             u.CreatedAt,
	}
}
