package repository

import (
	"errors"

	"github.com/ourclass/backend/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GroupDeleteDecision is the outcome of the sender-delete state machine
// for one group message. Exactly one of the two effects applies:
// CompletelyDelete hides the message from everyone; otherwise a
// per-viewer deletion row is inserted for HideForUserID.
type GroupDeleteDecision struct {
	CompletelyDelete bool
	HideForUserID    string
}

// GroupChatMessageRepository manages group message rows, their hide
// sets, and the locked delete transaction
type GroupChatMessageRepository interface {
	Create(msg *domain.GroupChatMessage) error
	FindByID(id uint64) (*domain.GroupChatMessage, error)
	FindByRoom(roomID uint64) ([]domain.GroupChatMessage, error)
	// FindHiddenForUser returns the IDs of messages in the room that
	// the user has hidden for themselves
	FindHiddenForUser(roomID uint64, userID string) ([]uint64, error)
	// DeleteWithLock runs the sender-delete state machine atomically:
	// the message row is locked, the unread-by count is computed over
	// current members inside the same transaction, and decide's
	// outcome is applied before commit. A concurrent cursor advance
	// cannot slip between the count and the flag write.
	DeleteWithLock(id uint64, decide func(msg *domain.GroupChatMessage, unreadBy int64) (GroupDeleteDecision, error)) (*domain.GroupChatMessage, error)
}

type groupChatMessageRepository struct {
	db *gorm.DB
}

// NewGroupChatMessageRepository creates a new GroupChatMessageRepository
func NewGroupChatMessageRepository(db *gorm.DB) GroupChatMessageRepository {
	return &groupChatMessageRepository{db: db}
}

func (r *groupChatMessageRepository) Create(msg *domain.GroupChatMessage) error {
	return r.db.Create(msg).Error
}

func (r *groupChatMessageRepository) FindByID(id uint64) (*domain.GroupChatMessage, error) {
	var msg domain.GroupChatMessage
	err := r.db.First(&msg, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

func (r *groupChatMessageRepository) FindByRoom(roomID uint64) ([]domain.GroupChatMessage, error) {
	var messages []domain.GroupChatMessage
	err := r.db.Where("room_id = ?", roomID).
		Order("sent_at ASC, id ASC").
		Find(&messages).Error
	return messages, err
}

func (r *groupChatMessageRepository) FindHiddenForUser(roomID uint64, userID string) ([]uint64, error) {
	var ids []uint64
	err := r.db.Model(&domain.GroupMessageDeletion{}).
		Joins("JOIN group_chat_messages m ON m.id = group_chat_message_deletions.message_id").
		Where("m.room_id = ? AND group_chat_message_deletions.user_id = ?", roomID, userID).
		Pluck("group_chat_message_deletions.message_id", &ids).Error
	return ids, err
}

func (r *groupChatMessageRepository) DeleteWithLock(id uint64, decide func(msg *domain.GroupChatMessage, unreadBy int64) (GroupDeleteDecision, error)) (*domain.GroupChatMessage, error) {
	var msg domain.GroupChatMessage
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&msg, id).Error; err != nil {
			return err
		}

		var unreadBy int64
		if err := tx.Model(&domain.GroupChatMember{}).
			Where("room_id = ? AND last_read_message_id < ?", msg.RoomID, msg.ID).
			Count(&unreadBy).Error; err != nil {
			return err
		}

		decision, err := decide(&msg, unreadBy)
		if err != nil {
			return err
		}

		if decision.CompletelyDelete {
			msg.CompletelyDeleted = true
			return tx.Model(&domain.GroupChatMessage{}).
				Where("id = ?", id).
				Update("completely_deleted", true).Error
		}

		deletion := &domain.GroupMessageDeletion{
			MessageID: id,
			UserID:    decision.HideForUserID,
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(deletion).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}
