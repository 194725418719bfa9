package requests

// SignupRequest creates an account.
type SignupRequest struct {
	FullName string `json:"fullName" binding:"required"`
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest exchanges credentials for a session cookie. Login accepts
// an email or a username.
type LoginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest mutates the caller's profile. Absent fields stay
// untouched; ProfilePic is a base64 data URL.
type UpdateProfileRequest struct {
	FullName   *string `json:"fullName"`
	Username   *string `json:"username"`
	ProfilePic *string `json:"profilePic"`
}

// ForgotPasswordRequest starts the reset flow.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

// ResetPasswordRequest completes the reset flow.
type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

// FriendRequestRequest targets another user by id.
type FriendRequestRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// DirectConversationRequest opens (or finds) a direct thread.
type DirectConversationRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// CreateGroupRequest creates a group thread.
type CreateGroupRequest struct {
	GroupName    string   `json:"groupName" binding:"required"`
	Participants []string `json:"participants" binding:"required"`
}

// UpdateGroupRequest renames a group or swaps its icon. GroupIcon is a
// base64 data URL.
type UpdateGroupRequest struct {
	GroupName *string `json:"groupName"`
	GroupIcon *string `json:"groupIcon"`
}

// ParticipantRequest adds or removes a group member.
type ParticipantRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// SendMessageRequest appends a message. Image is a base64 data URL; at
// least one of Text/Image must be present (checked in the domain).
type SendMessageRequest struct {
	Text  string `json:"text"`
	Image string `json:"image"`
}
