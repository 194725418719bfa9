package message

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainmsg "connectify-server/internal/domain/message"
	"connectify-server/internal/infrastructure/database/entities"
	"connectify-server/internal/utils/platformerrors"
)

// PostgresRepository implements message.Repository on GORM/PostgreSQL.
type PostgresRepository struct {
	db  *gorm.DB
	log zerolog.Logger
}

// NewPostgresRepository wires a PostgresRepository.
func NewPostgresRepository(db *gorm.DB, log zerolog.Logger) *PostgresRepository {
	return &PostgresRepository{
		db:  db,
		log: log.With().Str("component", "message-repository").Logger(),
	}
}

func (r *PostgresRepository) Create(ctx context.Context, m *domainmsg.Message) error {
	var sender entities.User
	if err := r.db.WithContext(ctx).
		Select("id").
		Where("public_id = ?", m.Sender.ID).
		First(&sender).Error; err != nil {
		return r.translate(ctx, err, "sender", "message-create-sender")
	}

	entity := entities.Message{
		PublicID:       m.PublicID,
		ConversationID: m.ConversationID,
		SenderID:       sender.ID,
		Text:           m.Text,
		Image:          m.Image,
	}
	if err := r.db.WithContext(ctx).Create(&entity).Error; err != nil {
		return r.translate(ctx, err, "message", "message-create")
	}

	m.ID = entity.ID
	m.CreatedAt = entity.CreatedAt
	return nil
}

func (r *PostgresRepository) FindByPublicID(ctx context.Context, publicID string) (*domainmsg.Message, error) {
	var entity entities.Message
	if err := r.db.WithContext(ctx).
		Preload("Sender").
		Preload("Reads.User").
		Where("public_id = ?", publicID).
		First(&entity).Error; err != nil {
		return nil, r.translate(ctx, err, "message", "message-find")
	}

	m := entity.ToDomain()
	convPublicID, err := r.conversationPublicID(ctx, entity.ConversationID)
	if err != nil {
		return nil, err
	}
	m.ConversationPublicID = convPublicID
	return m, nil
}

func (r *PostgresRepository) ListByConversation(ctx context.Context, conversationID uint) ([]*domainmsg.Message, error) {
	convPublicID, err := r.conversationPublicID(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	var rows []entities.Message
	if err := r.db.WithContext(ctx).
		Preload("Sender").
		Preload("Reads.User").
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.translate(ctx, err, "messages", "message-list")
	}

	out := make([]*domainmsg.Message, 0, len(rows))
	for i := range rows {
		m := rows[i].ToDomain()
		m.ConversationPublicID = convPublicID
		out = append(out, m)
	}
	return out, nil
}

func (r *PostgresRepository) SoftDelete(ctx context.Context, messageID uint) error {
	if err := r.db.WithContext(ctx).Model(&entities.Message{}).
		Where("id = ?", messageID).
		Updates(map[string]any{
			"text":       nil,
			"image":      nil,
			"is_deleted": true,
		}).Error; err != nil {
		return r.translate(ctx, err, "message", "message-soft-delete")
	}
	return nil
}

func (r *PostgresRepository) MarkRead(ctx context.Context, conversationID, readerID uint) ([]string, error) {
	type unreadMessage struct {
		ID       uint
		PublicID string
	}

	var changed []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var unread []unreadMessage
		if err := tx.Model(&entities.Message{}).
			Select("id, public_id").
			Where("conversation_id = ? AND sender_id <> ?", conversationID, readerID).
			Where("NOT EXISTS (SELECT 1 FROM message_read WHERE message_read.message_id = message.id AND message_read.user_id = ?)", readerID).
			Order("created_at ASC, id ASC").
			Scan(&unread).Error; err != nil {
			return err
		}
		if len(unread) == 0 {
			return nil
		}

		receipts := make([]entities.MessageRead, 0, len(unread))
		for _, m := range unread {
			receipts = append(receipts, entities.MessageRead{MessageID: m.ID, UserID: readerID})
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&receipts).Error; err != nil {
			return err
		}

		changed = make([]string, 0, len(unread))
		for _, m := range unread {
			changed = append(changed, m.PublicID)
		}
		return nil
	})
	if err != nil {
		return nil, r.translate(ctx, err, "read receipts", "message-mark-read")
	}
	if changed == nil {
		changed = []string{}
	}
	return changed, nil
}

func (r *PostgresRepository) conversationPublicID(ctx context.Context, conversationID uint) (string, error) {
	var conv entities.Conversation
	if err := r.db.WithContext(ctx).
		Select("public_id").
		Where("id = ?", conversationID).
		First(&conv).Error; err != nil {
		return "", r.translate(ctx, err, "conversation", "message-conversation-find")
	}
	return conv.PublicID, nil
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
