package migration

import (
	"github.com/ourclass/backend/internal/domain"
	"gorm.io/gorm"
)

// Run executes AutoMigrate for the messaging tables.
// AutoMigrate creates missing tables and adds missing columns/indexes,
// it never drops anything.
func Run(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.ChatRoom{},
		&domain.ChatMessage{},
		&domain.GroupChatRoom{},
		&domain.GroupChatMember{},
		&domain.GroupChatMessage{},
		&domain.GroupMessageDeletion{},
		&domain.Notification{},
	)
}
