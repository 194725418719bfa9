package user

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"connectify-server/internal/domain/delivery"
	"connectify-server/internal/utils/idgen"
	"connectify-server/internal/utils/platformerrors"
)

const (
	publicIDLength   = 20
	minPasswordLen   = 6
	usernameCooldown = 7 * 24 * time.Hour
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9._]{3,30}$`)

// CredentialHasher hashes and verifies passwords.
type CredentialHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) bool
}

// MediaStore uploads base64 payloads and returns a hosted URL.
type MediaStore interface {
	Upload(ctx context.Context, data string) (string, error)
}

// Mailer delivers password reset emails.
type Mailer interface {
	SendPasswordReset(to, resetURL string) error
}

// Notifier pushes relationship events to connected users.
type Notifier interface {
	NotifyUsers(userIDs []string, event delivery.Event)
}

// SignupParams carries signup input.
type SignupParams struct {
	FullName string
	Username string
	Email    string
	Password string
}

// UpdateProfileParams carries optional profile mutations. Nil means leave
// the field untouched. ProfilePic is a base64 data URL to upload.
type UpdateProfileParams struct {
	FullName   *string
	Username   *string
	ProfilePic *string
}

// LoginResult is the outcome of a credential check. SuggestReset flips once
// the account accumulates enough consecutive failures.
type LoginResult struct {
	User         *User
	SuggestReset bool
}

// Service implements identity, credential and friendship operations.
type Service interface {
	Signup(ctx context.Context, params SignupParams) (*User, error)
	Login(ctx context.Context, loginID, password string) (*LoginResult, error)
	GetByPublicID(ctx context.Context, publicID string) (*User, error)
	UpdateProfile(ctx context.Context, selfID uint, params UpdateProfileParams) (*User, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error

	SidebarUsers(ctx context.Context, selfID uint) ([]Summary, error)
	SearchUsers(ctx context.Context, self *User, query string) ([]SearchResult, error)

	SendFriendRequest(ctx context.Context, self *User, recipientPublicID string) error
	AcceptFriendRequest(ctx context.Context, self *User, requesterPublicID string) error
	RejectFriendRequest(ctx context.Context, self *User, requesterPublicID string) error
	RemoveFriend(ctx context.Context, self *User, friendPublicID string) error
	ListFriends(ctx context.Context, selfID uint) ([]Summary, error)
	ListPendingRequests(ctx context.Context, selfID uint) ([]Summary, error)
	FriendPublicIDs(ctx context.Context, selfID uint) ([]string, error)
}

// Options tunes service behavior from config.
type Options struct {
	MaxFailedLogins int
	ClientBaseURL   string
	ResetTokenTTL   time.Duration
}

// DefaultService is the production Service implementation.
type DefaultService struct {
	repo     Repository
	creds    CredentialHasher
	media    MediaStore
	mailer   Mailer
	notifier Notifier
	opts     Options
	log      zerolog.Logger
}

// NewService wires a DefaultService.
func NewService(repo Repository, creds CredentialHasher, media MediaStore, mailer Mailer, notifier Notifier, opts Options, log zerolog.Logger) *DefaultService {
	if opts.MaxFailedLogins <= 0 {
		opts.MaxFailedLogins = 5
	}
	if opts.ResetTokenTTL <= 0 {
		opts.ResetTokenTTL = time.Hour
	}
	return &DefaultService{
		repo:     repo,
		creds:    creds,
		media:    media,
		mailer:   mailer,
		notifier: notifier,
		opts:     opts,
		log:      log.With().Str("component", "user-service").Logger(),
	}
}

func (s *DefaultService) Signup(ctx context.Context, params SignupParams) (*User, error) {
	params.FullName = strings.TrimSpace(params.FullName)
	params.Username = strings.ToLower(strings.TrimSpace(params.Username))
	params.Email = strings.ToLower(strings.TrimSpace(params.Email))

	if params.FullName == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"full name is required", nil, "signup-fullname-required")
	}
	if !usernamePattern.MatchString(params.Username) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"username must be 3-30 characters (letters, digits, dot, underscore)", nil, "signup-username-invalid")
	}
	if _, err := mail.ParseAddress(params.Email); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"invalid email address", err, "signup-email-invalid")
	}
	if len(params.Password) < minPasswordLen {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			fmt.Sprintf("password must be at least %d characters", minPasswordLen), nil, "signup-password-short")
	}

	if existing, err := s.repo.FindByEmail(ctx, params.Email); err == nil && existing != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict,
			"email already registered", nil, "signup-email-taken")
	} else if err != nil && !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		return nil, err
	}
	if existing, err := s.repo.FindByUsername(ctx, params.Username); err == nil && existing != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict,
			"username already taken", nil, "signup-username-taken")
	} else if err != nil && !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		return nil, err
	}

	digest, err := s.creds.Hash(params.Password)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal,
			"failed to hash password", err, "signup-hash-failed")
	}

	publicID, err := idgen.GenerateSecureID("user", publicIDLength)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal,
			"failed to generate user id", err, "signup-id-failed")
	}

	u := &User{
		PublicID:     publicID,
		FullName:     params.FullName,
		Username:     params.Username,
		Email:        params.Email,
		PasswordHash: digest,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", u.PublicID).Msg("user registered")
	return u, nil
}

func (s *DefaultService) Login(ctx context.Context, loginID, password string) (*LoginResult, error) {
	loginID = strings.ToLower(strings.TrimSpace(loginID))
	if loginID == "" || password == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"login and password are required", nil, "login-input-missing")
	}

	u, err := s.repo.FindByLoginID(ctx, loginID)
	if err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
			return nil, invalidCredentials(ctx, false)
		}
		return nil, err
	}

	if !s.creds.Verify(password, u.PasswordHash) {
		u.FailedLoginAttempts++
		suggest := u.FailedLoginAttempts >= s.opts.MaxFailedLogins
		if uerr := s.repo.Update(ctx, u); uerr != nil {
			s.log.Warn().Err(uerr).Str("user_id", u.PublicID).Msg("failed to persist login failure count")
		}
		return nil, invalidCredentials(ctx, suggest)
	}

	if u.FailedLoginAttempts != 0 {
		u.FailedLoginAttempts = 0
		if uerr := s.repo.Update(ctx, u); uerr != nil {
			s.log.Warn().Err(uerr).Str("user_id", u.PublicID).Msg("failed to reset login failure count")
		}
	}

	return &LoginResult{User: u}, nil
}

func invalidCredentials(ctx context.Context, suggestReset bool) *platformerrors.PlatformError {
	return platformerrors.NewErrorWithContext(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeUnauthorized,
		"invalid credentials", nil, "login-invalid-credentials", map[string]any{"suggestReset": suggestReset})
}

func (s *DefaultService) GetByPublicID(ctx context.Context, publicID string) (*User, error) {
	return s.repo.FindByPublicID(ctx, publicID)
}

func (s *DefaultService) UpdateProfile(ctx context.Context, selfID uint, params UpdateProfileParams) (*User, error) {
	u, err := s.repo.FindByID(ctx, selfID)
	if err != nil {
		return nil, err
	}

	if params.FullName != nil {
		name := strings.TrimSpace(*params.FullName)
		if name == "" {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
				"full name cannot be empty", nil, "profile-fullname-empty")
		}
		u.FullName = name
	}

	if params.Username != nil {
		username := strings.ToLower(strings.TrimSpace(*params.Username))
		if username != u.Username {
			if !usernamePattern.MatchString(username) {
				return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
					"username must be 3-30 characters (letters, digits, dot, underscore)", nil, "profile-username-invalid")
			}
			if u.UsernameLastUpdatedAt != nil {
				if wait := usernameCooldown - time.Since(*u.UsernameLastUpdatedAt); wait > 0 {
					days := int(wait.Hours()/24) + 1
					return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
						fmt.Sprintf("username can be changed again in %d day(s)", days), nil, "profile-username-cooldown")
				}
			}
			if existing, ferr := s.repo.FindByUsername(ctx, username); ferr == nil && existing != nil && existing.ID != u.ID {
				return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict,
					"username already taken", nil, "profile-username-taken")
			} else if ferr != nil && !platformerrors.IsErrorType(ferr, platformerrors.ErrorTypeNotFound) {
				return nil, ferr
			}
			now := time.Now()
			u.Username = username
			u.UsernameLastUpdatedAt = &now
		}
	}

	if params.ProfilePic != nil && *params.ProfilePic != "" {
		url, uerr := s.media.Upload(ctx, *params.ProfilePic)
		if uerr != nil {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal,
				"profile picture upload failed", uerr, "profile-pic-upload-failed")
		}
		u.ProfilePic = url
	}

	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ForgotPassword issues a single-use reset token. The raw token only travels
// inside the email; the store keeps a sha256 digest.
func (s *DefaultService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
			// Do not leak account existence.
			return nil
		}
		return err
	}

	token := uuid.NewString()
	digest := hashToken(token)
	expiry := time.Now().Add(s.opts.ResetTokenTTL)
	u.ResetTokenHash = &digest
	u.ResetTokenExpiresAt = &expiry
	if err := s.repo.Update(ctx, u); err != nil {
		return err
	}

	resetURL := fmt.Sprintf("%s/reset-password/%s", strings.TrimRight(s.opts.ClientBaseURL, "/"), token)
	go func(address, link, userID string) {
		if merr := s.mailer.SendPasswordReset(address, link); merr != nil {
			s.log.Error().Err(merr).Str("user_id", userID).Msg("failed to send password reset email")
		}
	}(u.Email, resetURL, u.PublicID)

	return nil
}

func (s *DefaultService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLen {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			fmt.Sprintf("password must be at least %d characters", minPasswordLen), nil, "reset-password-short")
	}

	u, err := s.repo.FindByResetTokenHash(ctx, hashToken(token))
	if err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
			return resetTokenInvalid(ctx)
		}
		return err
	}
	if u.ResetTokenExpiresAt == nil || time.Now().After(*u.ResetTokenExpiresAt) {
		return resetTokenInvalid(ctx)
	}

	digest, err := s.creds.Hash(newPassword)
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal,
			"failed to hash password", err, "reset-hash-failed")
	}

	u.PasswordHash = digest
	u.ResetTokenHash = nil
	u.ResetTokenExpiresAt = nil
	u.FailedLoginAttempts = 0
	if err := s.repo.Update(ctx, u); err != nil {
		return err
	}

	s.log.Info().Str("user_id", u.PublicID).Msg("password reset completed")
	return nil
}

func resetTokenInvalid(ctx context.Context) *platformerrors.PlatformError {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
		"reset token is invalid or expired", nil, "reset-token-invalid")
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (s *DefaultService) SidebarUsers(ctx context.Context, selfID uint) ([]Summary, error) {
	users, err := s.repo.ListOthers(ctx, selfID)
	if err != nil {
		return nil, err
	}
	return toSummaries(users), nil
}

func (s *DefaultService) SearchUsers(ctx context.Context, self *User, query string) ([]SearchResult, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return []SearchResult{}, nil
	}

	users, err := s.repo.SearchByUsername(ctx, query, self.ID)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(users))
	for _, u := range users {
		r := SearchResult{Summary: u.ToSummary()}
		if r.IsFriend, err = s.repo.AreFriends(ctx, self.ID, u.ID); err != nil {
			return nil, err
		}
		if r.RequestSent, err = s.repo.HasFriendRequest(ctx, self.ID, u.ID); err != nil {
			return nil, err
		}
		if r.RequestReceived, err = s.repo.HasFriendRequest(ctx, u.ID, self.ID); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}

func (s *DefaultService) SendFriendRequest(ctx context.Context, self *User, recipientPublicID string) error {
	recipient, err := s.repo.FindByPublicID(ctx, recipientPublicID)
	if err != nil {
		return err
	}
	if recipient.ID == self.ID {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"cannot send a friend request to yourself", nil, "friend-request-self")
	}

	if friends, err := s.repo.AreFriends(ctx, self.ID, recipient.ID); err != nil {
		return err
	} else if friends {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict,
			"already friends", nil, "friend-request-already-friends")
	}

	// A reverse pending request means the other side already reached out;
	// accepting it is the correct move, not sending a duplicate.
	if reverse, err := s.repo.HasFriendRequest(ctx, recipient.ID, self.ID); err != nil {
		return err
	} else if reverse {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict,
			"this user already sent you a friend request", nil, "friend-request-reverse-pending")
	}

	if err := s.repo.CreateFriendRequest(ctx, self.ID, recipient.ID); err != nil {
		return err
	}

	s.notify([]string{recipient.PublicID}, delivery.EventFriendRequestReceived, self.ToSummary())
	return nil
}

func (s *DefaultService) AcceptFriendRequest(ctx context.Context, self *User, requesterPublicID string) error {
	requester, err := s.repo.FindByPublicID(ctx, requesterPublicID)
	if err != nil {
		return err
	}

	deleted, err := s.repo.DeleteFriendRequest(ctx, requester.ID, self.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound,
			"friend request not found", nil, "friend-accept-missing")
	}

	if err := s.repo.CreateFriendship(ctx, self.ID, requester.ID); err != nil {
		// A duplicate edge means a concurrent accept already landed.
		if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict) {
			return err
		}
	}

	s.notify([]string{requester.PublicID}, delivery.EventFriendRequestAccepted, self.ToSummary())
	return nil
}

func (s *DefaultService) RejectFriendRequest(ctx context.Context, self *User, requesterPublicID string) error {
	requester, err := s.repo.FindByPublicID(ctx, requesterPublicID)
	if err != nil {
		return err
	}

	deleted, err := s.repo.DeleteFriendRequest(ctx, requester.ID, self.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound,
			"friend request not found", nil, "friend-reject-missing")
	}
	return nil
}

func (s *DefaultService) RemoveFriend(ctx context.Context, self *User, friendPublicID string) error {
	friend, err := s.repo.FindByPublicID(ctx, friendPublicID)
	if err != nil {
		return err
	}

	deleted, err := s.repo.DeleteFriendship(ctx, self.ID, friend.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound,
			"friendship not found", nil, "friend-remove-missing")
	}

	s.notify([]string{friend.PublicID}, delivery.EventFriendRemoved, self.ToSummary())
	return nil
}

func (s *DefaultService) ListFriends(ctx context.Context, selfID uint) ([]Summary, error) {
	users, err := s.repo.ListFriends(ctx, selfID)
	if err != nil {
		return nil, err
	}
	return toSummaries(users), nil
}

func (s *DefaultService) ListPendingRequests(ctx context.Context, selfID uint) ([]Summary, error) {
	users, err := s.repo.ListPendingRequesters(ctx, selfID)
	if err != nil {
		return nil, err
	}
	return toSummaries(users), nil
}

func (s *DefaultService) FriendPublicIDs(ctx context.Context, selfID uint) ([]string, error) {
	return s.repo.FriendPublicIDs(ctx, selfID)
}

func (s *DefaultService) notify(userIDs []string, kind delivery.EventKind, payload any) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyUsers(userIDs, delivery.NewEvent(kind, payload))
}

func toSummaries(users []*User) []Summary {
	out := make([]Summary, 0, len(users))
	for _, u := range users {
		out = append(out, u.ToSummary())
	}
	return out
}
