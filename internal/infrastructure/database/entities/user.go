package entities

import (
	"time"

	domainuser "connectify-server/internal/domain/user"
)

// User is the persisted identity row.
type User struct {
	ID                    uint   `gorm:"primaryKey"`
	PublicID              string `gorm:"size:32;uniqueIndex"`
	FullName              string `gorm:"size:120;not null"`
	Username              string `gorm:"size:30;uniqueIndex;not null"`
	Email                 string `gorm:"size:254;uniqueIndex;not null"`
	PasswordHash          string `gorm:"size:100;not null"`
	ProfilePic            string `gorm:"size:512"`
	UsernameLastUpdatedAt *time.Time
	FailedLoginAttempts   int `gorm:"not null;default:0"`
	ResetTokenHash        *string `gorm:"size:64;index"`
	ResetTokenExpiresAt   *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Friendship is one canonical edge per pair; UserLoID < UserHiID always.
type Friendship struct {
	ID        uint `gorm:"primaryKey"`
	UserLoID  uint `gorm:"uniqueIndex:idx_friendship_pair;not null"`
	UserHiID  uint `gorm:"uniqueIndex:idx_friendship_pair;not null"`
	CreatedAt time.Time
}

// FriendRequest is a pending, directed request.
type FriendRequest struct {
	ID          uint `gorm:"primaryKey"`
	RequesterID uint `gorm:"uniqueIndex:idx_friend_request_pair;not null"`
	RecipientID uint `gorm:"uniqueIndex:idx_friend_request_pair;index;not null"`
	CreatedAt   time.Time
}

// ToDomain maps the row into the domain shape.
func (e *User) ToDomain() *domainuser.User {
	return &domainuser.User{
		ID:                    e.ID,
		PublicID:              e.PublicID,
		FullName:              e.FullName,
		Username:              e.Username,
		Email:                 e.Email,
		PasswordHash:          e.PasswordHash,
		ProfilePic:            e.ProfilePic,
		UsernameLastUpdatedAt: e.UsernameLastUpdatedAt,
		FailedLoginAttempts:   e.FailedLoginAttempts,
		ResetTokenHash:        e.ResetTokenHash,
		ResetTokenExpiresAt:   e.ResetTokenExpiresAt,
		CreatedAt:             e.CreatedAt,
		UpdatedAt:             e.UpdatedAt,
	}
}

// UserFromDomain maps a domain user onto a row.
func UserFromDomain(u *domainuser.User) *User {
	return &User{
		ID:                    u.ID,
		PublicID:              u.PublicID,
		FullName:              u.FullName,
		Username:              u.Username,
		Email:                 u.Email,
		PasswordHash:          u.PasswordHash,
		ProfilePic:            u.ProfilePic,
		UsernameLastUpdatedAt: u.UsernameLastUpdatedAt,
		FailedLoginAttempts:   u.FailedLoginAttempts,
		ResetTokenHash:        u.ResetTokenHash,
		ResetTokenExpiresAt:   u.ResetTokenExpiresAt,
	}
}

// ToSummary maps the row into the embeddable identity shape.
func (e *User) ToSummary() domainuser.Summary {
	return domainuser.Summary{
		ID:         e.PublicID,
		FullName:   e.FullName,
		Username:   e.Username,
		ProfilePic: e.ProfilePic,
	}
}
