package repository

import (
	"errors"

	"github.com/ourclass/backend/internal/domain"
	"gorm.io/gorm"
)

// GroupChatRoomRepository manages group room rows
type GroupChatRoomRepository interface {
	// CreateWithMembers inserts the room and one membership row per
	// user ID in a single transaction. memberUserIDs must already be
	// deduplicated and verified to exist.
	CreateWithMembers(room *domain.GroupChatRoom, memberUserIDs []string) error
	FindByID(id uint64) (*domain.GroupChatRoom, error)
	FindByUser(userID string) ([]domain.GroupChatRoom, error)
	UpdatePreview(roomID uint64, preview string) error
}

type groupChatRoomRepository struct {
	db *gorm.DB
}

// NewGroupChatRoomRepository creates a new GroupChatRoomRepository
func NewGroupChatRoomRepository(db *gorm.DB) GroupChatRoomRepository {
	return &groupChatRoomRepository{db: db}
}

func (r *groupChatRoomRepository) CreateWithMembers(room *domain.GroupChatRoom, memberUserIDs []string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(room).Error; err != nil {
			return err
		}
		for _, userID := range memberUserIDs {
			member := &domain.GroupChatMember{
				RoomID: room.ID,
				UserID: userID,
			}
			if err := tx.Create(member).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *groupChatRoomRepository) FindByID(id uint64) (*domain.GroupChatRoom, error) {
	var room domain.GroupChatRoom
	err := r.db.First(&room, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &room, nil
}

// FindByUser returns the rooms the user is currently a member of,
// most recent activity first
func (r *groupChatRoomRepository) FindByUser(userID string) ([]domain.GroupChatRoom, error) {
	var rooms []domain.GroupChatRoom
	err := r.db.
		Joins("JOIN group_chat_members m ON m.room_id = group_chat_rooms.id").
		Where("m.user_id = ?", userID).
		Order("group_chat_rooms.last_message_at IS NULL, group_chat_rooms.last_message_at DESC").
		Find(&rooms).Error
	return rooms, err
}

func (r *groupChatRoomRepository) UpdatePreview(roomID uint64, preview string) error {
	return r.db.Model(&domain.GroupChatRoom{}).
		Where("id = ?", roomID).
		Updates(map[string]interface{}{
			"last_message":    preview,
			"last_message_at": gorm.Expr("NOW()"),
		}).Error
}
