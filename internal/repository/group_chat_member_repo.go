package repository

import (
	"errors"

	"github.com/ourclass/backend/internal/domain"
	"gorm.io/gorm"
)

// GroupChatMemberRepository manages membership rows and read cursors
type GroupChatMemberRepository interface {
	Create(member *domain.GroupChatMember) error
	FindByRoom(roomID uint64) ([]domain.GroupChatMember, error)
	FindByRoomAndUser(roomID uint64, userID string) (*domain.GroupChatMember, error)
	Exists(roomID uint64, userID string) (bool, error)
	Delete(roomID uint64, userID string) error
	// AdvanceCursor moves the member's read cursor forward to
	// messageID. The guard keeps it monotonically non-decreasing, so
	// retries and out-of-order calls are harmless.
	AdvanceCursor(roomID uint64, userID string, messageID uint64) error
	// CountUnreadMembers counts currently-joined members whose cursor
	// has not reached the message
	CountUnreadMembers(roomID uint64, messageID uint64) (int64, error)
}

type groupChatMemberRepository struct {
	db *gorm.DB
}

// NewGroupChatMemberRepository creates a new GroupChatMemberRepository
func NewGroupChatMemberRepository(db *gorm.DB) GroupChatMemberRepository {
	return &groupChatMemberRepository{db: db}
}

func (r *groupChatMemberRepository) Create(member *domain.GroupChatMember) error {
	return r.db.Create(member).Error
}

func (r *groupChatMemberRepository) FindByRoom(roomID uint64) ([]domain.GroupChatMember, error) {
	var members []domain.GroupChatMember
	err := r.db.Where("room_id = ?", roomID).
		Order("joined_at ASC").
		Find(&members).Error
	return members, err
}

func (r *groupChatMemberRepository) FindByRoomAndUser(roomID uint64, userID string) (*domain.GroupChatMember, error) {
	var member domain.GroupChatMember
	err := r.db.Where("room_id = ? AND user_id = ?", roomID, userID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

func (r *groupChatMemberRepository) Exists(roomID uint64, userID string) (bool, error) {
	var count int64
	err := r.db.Model(&domain.GroupChatMember{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *groupChatMemberRepository) Delete(roomID uint64, userID string) error {
	return r.db.Where("room_id = ? AND user_id = ?", roomID, userID).
		Delete(&domain.GroupChatMember{}).Error
}

func (r *groupChatMemberRepository) AdvanceCursor(roomID uint64, userID string, messageID uint64) error {
	return r.db.Model(&domain.GroupChatMember{}).
		Where("room_id = ? AND user_id = ? AND last_read_message_id < ?", roomID, userID, messageID).
		Update("last_read_message_id", messageID).Error
}

func (r *groupChatMemberRepository) CountUnreadMembers(roomID uint64, messageID uint64) (int64, error) {
	var count int64
	err := r.db.Model(&domain.GroupChatMember{}).
		Where("room_id = ? AND last_read_message_id < ?", roomID, messageID).
		Count(&count).Error
	return count, err
}
