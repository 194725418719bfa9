package database

import (
	"fmt"

	"gorm.io/gorm"

	"connectify-server/internal/infrastructure/database/entities"
)

// Migrate applies the schema for all chat entities.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&entities.User{},
		&entities.Friendship{},
		&entities.FriendRequest{},
		&entities.Conversation{},
		&entities.ConversationParticipant{},
		&entities.Message{},
		&entities.MessageRead{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
