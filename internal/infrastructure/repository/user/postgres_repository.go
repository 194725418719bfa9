package user

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	domainuser "connectify-server/internal/domain/user"
	"connectify-server/internal/infrastructure/database/entities"
	"connectify-server/internal/utils/platformerrors"
)

// PostgresRepository implements user.Repository on GORM/PostgreSQL.
type PostgresRepository struct {
	db  *gorm.DB
	log zerolog.Logger
}

// NewPostgresRepository wires a PostgresRepository.
func NewPostgresRepository(db *gorm.DB, log zerolog.Logger) *PostgresRepository {
	return &PostgresRepository{
		db:  db,
		log: log.With().Str("component", "user-repository").Logger(),
	}
}

func (r *PostgresRepository) Create(ctx context.Context, u *domainuser.User) error {
	entity := entities.UserFromDomain(u)
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return r.translate(ctx, err, "user", "user-create")
	}
	u.ID = entity.ID
	u.CreatedAt = entity.CreatedAt
	u.UpdatedAt = entity.UpdatedAt
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, u *domainuser.User) error {
	entity := entities.UserFromDomain(u)
	// Save with a full entity so cleared pointers (reset token) are written
	// back as NULL.
	if err := r.db.WithContext(ctx).Model(&entities.User{}).
		Where("id = ?", u.ID).
		Select("full_name", "username", "email", "password_hash", "profile_pic",
			"username_last_updated_at", "failed_login_attempts",
			"reset_token_hash", "reset_token_expires_at").
		Updates(entity).Error; err != nil {
		return r.translate(ctx, err, "user", "user-update")
	}
	return nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id uint) (*domainuser.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *PostgresRepository) FindByPublicID(ctx context.Context, publicID string) (*domainuser.User, error) {
	return r.findOne(ctx, "public_id = ?", publicID)
}

func (r *PostgresRepository) FindByLoginID(ctx context.Context, loginID string) (*domainuser.User, error) {
	return r.findOne(ctx, "email = ? OR username = ?", loginID, loginID)
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*domainuser.User, error) {
	return r.findOne(ctx, "email = ?", email)
}

func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) (*domainuser.User, error) {
	return r.findOne(ctx, "username = ?", username)
}

func (r *PostgresRepository) FindByResetTokenHash(ctx context.Context, tokenHash string) (*domainuser.User, error) {
	return r.findOne(ctx, "reset_token_hash = ?", tokenHash)
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, args ...any) (*domainuser.User, error) {
	var entity entities.User
	if err := r.db.WithContext(ctx).Where(query, args...).First(&entity).Error; err != nil {
		return nil, r.translate(ctx, err, "user", "user-find")
	}
	return entity.ToDomain(), nil
}

func (r *PostgresRepository) ListOthers(ctx context.Context, selfID uint) ([]*domainuser.User, error) {
	var rows []entities.User
	if err := r.db.WithContext(ctx).
		Where("id <> ?", selfID).
		Order("full_name ASC").
		Find(&rows).Error; err != nil {
		return nil, r.translate(ctx, err, "users", "user-list-others")
	}
	return toDomainUsers(rows), nil
}

func (r *PostgresRepository) SearchByUsername(ctx context.Context, query string, selfID uint) ([]*domainuser.User, error) {
	var rows []entities.User
	if err := r.db.WithContext(ctx).
		Where("username LIKE ? AND id <> ?", "%"+query+"%", selfID).
		Order("username ASC").
		Limit(20).
		Find(&rows).Error; err != nil {
		return nil, r.translate(ctx, err, "users", "user-search")
	}
	return toDomainUsers(rows), nil
}

func (r *PostgresRepository) CreateFriendRequest(ctx context.Context, requesterID, recipientID uint) error {
	req := entities.FriendRequest{RequesterID: requesterID, RecipientID: recipientID}
	if err := r.db.WithContext(ctx).Create(&req).Error; err != nil {
		return r.translate(ctx, err, "friend request", "friend-request-create")
	}
	return nil
}

func (r *PostgresRepository) HasFriendRequest(ctx context.Context, requesterID, recipientID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entities.FriendRequest{}).
		Where("requester_id = ? AND recipient_id = ?", requesterID, recipientID).
		Count(&count).Error; err != nil {
		return false, r.translate(ctx, err, "friend request", "friend-request-check")
	}
	return count > 0, nil
}

func (r *PostgresRepository) DeleteFriendRequest(ctx context.Context, requesterID, recipientID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("requester_id = ? AND recipient_id = ?", requesterID, recipientID).
		Delete(&entities.FriendRequest{})
	if res.Error != nil {
		return false, r.translate(ctx, res.Error, "friend request", "friend-request-delete")
	}
	return res.RowsAffected > 0, nil
}

func (r *PostgresRepository) ListPendingRequesters(ctx context.Context, recipientID uint) ([]*domainuser.User, error) {
	var requests []entities.FriendRequest
	if err := r.db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("created_at ASC").
		Find(&requests).Error; err != nil {
		return nil, r.translate(ctx, err, "friend requests", "friend-request-list")
	}
	if len(requests) == 0 {
		return []*domainuser.User{}, nil
	}

	ids := make([]uint, 0, len(requests))
	for _, req := range requests {
		ids = append(ids, req.RequesterID)
	}
	var rows []entities.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, r.translate(ctx, err, "users", "friend-request-list-users")
	}
	return orderByIDs(rows, ids), nil
}

func (r *PostgresRepository) CreateFriendship(ctx context.Context, userA, userB uint) error {
	lo, hi := orderPair(userA, userB)
	edge := entities.Friendship{UserLoID: lo, UserHiID: hi}
	if err := r.db.WithContext(ctx).Create(&edge).Error; err != nil {
		return r.translate(ctx, err, "friendship", "friendship-create")
	}
	return nil
}

func (r *PostgresRepository) DeleteFriendship(ctx context.Context, userA, userB uint) (bool, error) {
	lo, hi := orderPair(userA, userB)
	res := r.db.WithContext(ctx).
		Where("user_lo_id = ? AND user_hi_id = ?", lo, hi).
		Delete(&entities.Friendship{})
	if res.Error != nil {
		return false, r.translate(ctx, res.Error, "friendship", "friendship-delete")
	}
	return res.RowsAffected > 0, nil
}

func (r *PostgresRepository) AreFriends(ctx context.Context, userA, userB uint) (bool, error) {
	lo, hi := orderPair(userA, userB)
	var count int64
	if err := r.db.WithContext(ctx).Model(&entities.Friendship{}).
		Where("user_lo_id = ? AND user_hi_id = ?", lo, hi).
		Count(&count).Error; err != nil {
		return false, r.translate(ctx, err, "friendship", "friendship-check")
	}
	return count > 0, nil
}

func (r *PostgresRepository) ListFriends(ctx context.Context, userID uint) ([]*domainuser.User, error) {
	ids, err := r.friendIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*domainuser.User{}, nil
	}

	var rows []entities.User
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("full_name ASC").
		Find(&rows).Error; err != nil {
		return nil, r.translate(ctx, err, "users", "friendship-list-users")
	}
	return toDomainUsers(rows), nil
}

func (r *PostgresRepository) FriendPublicIDs(ctx context.Context, userID uint) ([]string, error) {
	ids, err := r.friendIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []string{}, nil
	}

	var publicIDs []string
	if err := r.db.WithContext(ctx).Model(&entities.User{}).
		Where("id IN ?", ids).
		Pluck("public_id", &publicIDs).Error; err != nil {
		return nil, r.translate(ctx, err, "users", "friendship-public-ids")
	}
	return publicIDs, nil
}

func (r *PostgresRepository) friendIDs(ctx context.Context, userID uint) ([]uint, error) {
	var edges []entities.Friendship
	if err := r.db.WithContext(ctx).
		Where("user_lo_id = ? OR user_hi_id = ?", userID, userID).
		Find(&edges).Error; err != nil {
		return nil, r.translate(ctx, err, "friendships", "friendship-list")
	}
	ids := make([]uint, 0, len(edges))
	for _, e := range edges {
		if e.UserLoID == userID {
			ids = append(ids, e.UserHiID)
		} else {
			ids = append(ids, e.UserLoID)
		}
	}
	return ids, nil
}

func (r *PostgresRepository) translate(ctx context.Context, err error, subject, slug string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
			subject+" not found", err, slug+"-not-found")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeConflict,
			subject+" already exists", err, slug+"-duplicate")
	default:
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"database operation failed", err, slug+"-failed")
	}
}

func orderPair(a, b uint) (uint, uint) {
	if a > b {
		return b, a
	}
	return a, b
}

func toDomainUsers(rows []entities.User) []*domainuser.User {
	out := make([]*domainuser.User, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out
}

func orderByIDs(rows []entities.User, ids []uint) []*domainuser.User {
	byID := make(map[uint]*entities.User, len(rows))
	for i := range rows {
		byID[rows[i].ID] = &rows[i]
	}
	out := make([]*domainuser.User, 0, len(rows))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			out = append(out, row.ToDomain())
		}
	}
	return out
}
