package conversation

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainconv "connectify-server/internal/domain/conversation"
	"connectify-server/internal/infrastructure/database/entities"
	"connectify-server/internal/utils/platformerrors"
)

// PostgresRepository implements conversation.Repository on GORM/PostgreSQL.
type PostgresRepository struct {
	db  *gorm.DB
	log zerolog.Logger
}

// NewPostgresRepository wires a PostgresRepository.
func NewPostgresRepository(db *gorm.DB, log zerolog.Logger) *PostgresRepository {
	return &PostgresRepository{
		db:  db,
		log: log.With().Str("component", "conversation-repository").Logger(),
	}
}

func (r *PostgresRepository) CreateWithParticipants(ctx context.Context, c *domainconv.Conversation, participantIDs []uint) error {
	entity := entities.Conversation{
		PublicID:     c.PublicID,
		IsGroupChat:  c.IsGroupChat,
		GroupName:    c.GroupName,
		GroupIcon:    c.GroupIcon,
		GroupAdminID: c.GroupAdminID,
		DirectKey:    c.DirectKey,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&entity).Error; err != nil {
			return err
		}
		for _, userID := range participantIDs {
			row := entities.ConversationParticipant{ConversationID: entity.ID, UserID: userID}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return r.translate(ctx, err, "conversation", "conversation-create")
	}

	c.ID = entity.ID
	c.CreatedAt = entity.CreatedAt
	c.UpdatedAt = entity.UpdatedAt
	return nil
}

func (r *PostgresRepository) FindByPublicID(ctx context.Context, publicID string) (*domainconv.Conversation, error) {
	return r.findOne(ctx, "public_id = ?", publicID)
}

func (r *PostgresRepository) FindByDirectKey(ctx context.Context, key string) (*domainconv.Conversation, error) {
	return r.findOne(ctx, "direct_key = ?", key)
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, args ...any) (*domainconv.Conversation, error) {
	var entity entities.Conversation
	if err := r.withRelations(r.db.WithContext(ctx)).Where(query, args...).First(&entity).Error; err != nil {
		return nil, r.translate(ctx, err, "conversation", "conversation-find")
	}

	conv := entity.ToDomain()
	if entity.LatestMessageID != nil {
		previews, err := r.latestMessages(ctx, []uint{*entity.LatestMessageID})
		if err != nil {
			return nil, err
		}
		conv.LatestMessage = previews[*entity.LatestMessageID]
	}
	return conv, nil
}

func (r *PostgresRepository) ListForUser(ctx context.Context, userID uint) ([]*domainconv.Conversation, error) {
	var memberships []entities.ConversationParticipant
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&memberships).Error; err != nil {
		return nil, r.translate(ctx, err, "conversations", "conversation-list-memberships")
	}
	if len(memberships) == 0 {
		return []*domainconv.Conversation{}, nil
	}

	convIDs := make([]uint, 0, len(memberships))
	for _, m := range memberships {
		convIDs = append(convIDs, m.ConversationID)
	}

	var rows []entities.Conversation
	if err := r.withRelations(r.db.WithContext(ctx)).
		Where("id IN ?", convIDs).
		Order("updated_at DESC").
		Find(&rows).Error; err != nil {
		return nil, r.translate(ctx, err, "conversations", "conversation-list")
	}

	latestIDs := make([]uint, 0, len(rows))
	for _, row := range rows {
		if row.LatestMessageID != nil {
			latestIDs = append(latestIDs, *row.LatestMessageID)
		}
	}
	previews, err := r.latestMessages(ctx, latestIDs)
	if err != nil {
		return nil, err
	}

	unread, err := r.unreadCounts(ctx, convIDs, userID)
	if err != nil {
		return nil, err
	}

	out := make([]*domainconv.Conversation, 0, len(rows))
	for i := range rows {
		conv := rows[i].ToDomain()
		if rows[i].LatestMessageID != nil {
			conv.LatestMessage = previews[*rows[i].LatestMessageID]
		}
		conv.UnreadCount = unread[rows[i].ID]
		out = append(out, conv)
	}
	return out, nil
}

func (r *PostgresRepository) UpdateGroupMeta(ctx context.Context, conversationID uint, name, icon *string) error {
	updates := map[string]any{}
	if name != nil {
		updates["group_name"] = *name
	}
	if icon != nil {
		updates["group_icon"] = *icon
	}
	if len(updates) == 0 {
		return nil
	}

	if err := r.db.WithContext(ctx).Model(&entities.Conversation{}).
		Where("id = ?", conversationID).
		Updates(updates).Error; err != nil {
		return r.translate(ctx, err, "conversation", "conversation-update-meta")
	}
	return nil
}

func (r *PostgresRepository) SetAdmin(ctx context.Context, conversationID, userID uint) error {
	if err := r.db.WithContext(ctx).Model(&entities.Conversation{}).
		Where("id = ?", conversationID).
		Update("group_admin_id", userID).Error; err != nil {
		return r.translate(ctx, err, "conversation", "conversation-set-admin")
	}
	return nil
}

func (r *PostgresRepository) SetLatestMessage(ctx context.Context, conversationID, messageID uint) error {
	if err := r.db.WithContext(ctx).Model(&entities.Conversation{}).
		Where("id = ?", conversationID).
		Update("latest_message_id", messageID).Error; err != nil {
		return r.translate(ctx, err, "conversation", "conversation-set-latest")
	}
	return nil
}

// Delete removes the conversation together with its messages, receipts and
// membership rows.
func (r *PostgresRepository) Delete(ctx context.Context, conversationID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		messageIDs := tx.Model(&entities.Message{}).
			Select("id").
			Where("conversation_id = ?", conversationID)
		if err := tx.Where("message_id IN (?)", messageIDs).
			Delete(&entities.MessageRead{}).Error; err != nil {
			return err
		}
		if err := tx.Where("conversation_id = ?", conversationID).
			Delete(&entities.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("conversation_id = ?", conversationID).
			Delete(&entities.ConversationParticipant{}).Error; err != nil {
			return err
		}
		return tx.Delete(&entities.Conversation{}, conversationID).Error
	})
	if err != nil {
		return r.translate(ctx, err, "conversation", "conversation-delete")
	}
	return nil
}

func (r *PostgresRepository) AddParticipant(ctx context.Context, conversationID, userID uint) error {
	row := entities.ConversationParticipant{ConversationID: conversationID, UserID: userID}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error; err != nil {
		return r.translate(ctx, err, "participant", "participant-add")
	}
	return nil
}

func (r *PostgresRepository) RemoveParticipant(ctx context.Context, conversationID, userID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Delete(&entities.ConversationParticipant{})
	if res.Error != nil {
		return false, r.translate(ctx, res.Error, "participant", "participant-remove")
	}
	return res.RowsAffected > 0, nil
}

func (r *PostgresRepository) IsParticipant(ctx context.Context, conversationID, userID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entities.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error; err != nil {
		return false, r.translate(ctx, err, "participant", "participant-check")
	}
	return count > 0, nil
}

func (r *PostgresRepository) ParticipantIDs(ctx context.Context, conversationID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&entities.ConversationParticipant{}).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Pluck("user_id", &ids).Error; err != nil {
		return nil, r.translate(ctx, err, "participants", "participant-ids")
	}
	return ids, nil
}

func (r *PostgresRepository) ParticipantPublicIDs(ctx context.Context, conversationPublicID string) ([]string, error) {
	var conv entities.Conversation
	if err := r.db.WithContext(ctx).
		Select("id").
		Where("public_id = ?", conversationPublicID).
		First(&conv).Error; err != nil {
		return nil, r.translate(ctx, err, "conversation", "participant-public-ids-find")
	}

	ids, err := r.ParticipantIDs(ctx, conv.ID)
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
		return nil, r.translate(ctx, err, "participants", "participant-public-ids")
	}
	return publicIDs, nil
}

// latestMessages loads sidebar previews keyed by message id.
func (r *PostgresRepository) latestMessages(ctx context.Context, messageIDs []uint) (map[uint]*domainconv.LatestMessage, error) {
	out := make(map[uint]*domainconv.LatestMessage, len(messageIDs))
	if len(messageIDs) == 0 {
		return out, nil
	}

	var rows []entities.Message
	if err := r.db.WithContext(ctx).
		Preload("Sender").
		Where("id IN ?", messageIDs).
		Find(&rows).Error; err != nil {
		return nil, r.translate(ctx, err, "messages", "conversation-latest-messages")
	}

	for i := range rows {
		row := &rows[i]
		out[row.ID] = &domainconv.LatestMessage{
			ID:        row.PublicID,
			Sender:    row.Sender.ToSummary(),
			Text:      row.Text,
			HasImage:  row.Image != nil,
			IsDeleted: row.IsDeleted,
			CreatedAt: row.CreatedAt,
		}
	}
	return out, nil
}

// unreadCounts counts, per conversation, messages from others the user has
// no receipt for. Tombstones do not count.
func (r *PostgresRepository) unreadCounts(ctx context.Context, conversationIDs []uint, userID uint) (map[uint]int64, error) {
	type unreadRow struct {
		ConversationID uint
		Count          int64
	}

	var rows []unreadRow
	err := r.db.WithContext(ctx).Model(&entities.Message{}).
		Select("conversation_id, COUNT(*) AS count").
		Where("conversation_id IN ? AND sender_id <> ? AND is_deleted = false", conversationIDs, userID).
		Where("NOT EXISTS (SELECT 1 FROM message_read WHERE message_read.message_id = message.id AND message_read.user_id = ?)", userID).
		Group("conversation_id").
		Scan(&rows).Error
	if err != nil {
		return nil, r.translate(ctx, err, "messages", "conversation-unread-counts")
	}

	out := make(map[uint]int64, len(rows))
	for _, row := range rows {
		out[row.ConversationID] = row.Count
	}
	return out, nil
}

func (r *PostgresRepository) withRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Participants", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Preload("Participants.User").
		Preload("GroupAdmin")
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
