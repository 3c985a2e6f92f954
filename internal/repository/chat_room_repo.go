package repository

import (
	"errors"

	"github.com/ourclass/backend/internal/domain"
	"gorm.io/gorm"
)

// ChatRoomRepository manages direct (1:1) room rows
type ChatRoomRepository interface {
	// GetOrCreate looks up the room for a canonical pair, inserting it
	// if absent. Duplicate-key races against a concurrent insert are
	// resolved by re-reading the winner's row.
	GetOrCreate(user1ID, user2ID string) (*domain.ChatRoom, error)
	FindByID(id uint64) (*domain.ChatRoom, error)
	FindByUser(userID string) ([]domain.ChatRoom, error)
	UpdatePreview(roomID uint64, preview string) error
	// DeleteWithMessages hard-deletes the room and every message in it
	DeleteWithMessages(roomID uint64) error
}

type chatRoomRepository struct {
	db *gorm.DB
}

// NewChatRoomRepository creates a new ChatRoomRepository
func NewChatRoomRepository(db *gorm.DB) ChatRoomRepository {
	return &chatRoomRepository{db: db}
}

func (r *chatRoomRepository) GetOrCreate(user1ID, user2ID string) (*domain.ChatRoom, error) {
	user1ID, user2ID = domain.CanonicalPair(user1ID, user2ID)

	var room domain.ChatRoom
	err := r.db.Where("user1_id = ? AND user2_id = ?", user1ID, user2ID).
		First(&room).Error
	if err == nil {
		return &room, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	room = domain.ChatRoom{User1ID: user1ID, User2ID: user2ID}
	err = r.db.Create(&room).Error
	if err == nil {
		return &room, nil
	}

	// A concurrent request created the same pair first; the unique
	// index turned the race into a duplicate key. Use the winner.
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		var existing domain.ChatRoom
		if err := r.db.Where("user1_id = ? AND user2_id = ?", user1ID, user2ID).
			First(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	}

	return nil, err
}

func (r *chatRoomRepository) FindByID(id uint64) (*domain.ChatRoom, error) {
	var room domain.ChatRoom
	err := r.db.First(&room, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &room, nil
}

// FindByUser returns the user's rooms, most recent activity first.
// Rooms that never had a message sort last.
func (r *chatRoomRepository) FindByUser(userID string) ([]domain.ChatRoom, error) {
	var rooms []domain.ChatRoom
	err := r.db.Where("user1_id = ? OR user2_id = ?", userID, userID).
		Order("last_message_at IS NULL, last_message_at DESC").
		Find(&rooms).Error
	return rooms, err
}

func (r *chatRoomRepository) UpdatePreview(roomID uint64, preview string) error {
	return r.db.Model(&domain.ChatRoom{}).
		Where("id = ?", roomID).
		Updates(map[string]interface{}{
			"last_message":    preview,
			"last_message_at": gorm.Expr("NOW()"),
		}).Error
}

func (r *chatRoomRepository) DeleteWithMessages(roomID uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chat_room_id = ?", roomID).
			Delete(&domain.ChatMessage{}).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.ChatRoom{}, roomID).Error
	})
}
