package repository

import (
	"errors"

	"github.com/ourclass/backend/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChatMessageRepository manages direct message rows and their
// read/visibility flags
type ChatMessageRepository interface {
	Create(msg *domain.ChatMessage) error
	FindByID(id uint64) (*domain.ChatMessage, error)
	// FindByRoomAndMarkRead fetches the room's messages and flags the
	// other party's unread ones as read in the same transaction, so a
	// message landing between fetch and mark can never be marked read
	// without appearing in a returned batch. The returned rows carry
	// the read state from before the marking. Idempotent.
	FindByRoomAndMarkRead(roomID uint64, viewerID string) ([]domain.ChatMessage, error)
	// CountUnread counts messages the viewer has not read yet
	// (messages sent by the other party, still visible)
	CountUnread(roomID uint64, viewerID string) (int64, error)
	// MarkAllAsRead flags every unread message from the other party as
	// read across many rooms at once. Idempotent.
	MarkAllAsRead(roomIDs []uint64, viewerID string) error
	// UpdateWithLock loads the message under a row lock, applies fn to
	// it, and saves the visibility flags — all in one transaction. fn
	// sees the current committed state; concurrent read-marking and
	// deletion serialize on the row lock.
	UpdateWithLock(id uint64, fn func(msg *domain.ChatMessage) error) (*domain.ChatMessage, error)
}

type chatMessageRepository struct {
	db *gorm.DB
}

// NewChatMessageRepository creates a new ChatMessageRepository
func NewChatMessageRepository(db *gorm.DB) ChatMessageRepository {
	return &chatMessageRepository{db: db}
}

func (r *chatMessageRepository) Create(msg *domain.ChatMessage) error {
	return r.db.Create(msg).Error
}

func (r *chatMessageRepository) FindByID(id uint64) (*domain.ChatMessage, error) {
	var msg domain.ChatMessage
	err := r.db.First(&msg, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

func (r *chatMessageRepository) FindByRoomAndMarkRead(roomID uint64, viewerID string) ([]domain.ChatMessage, error) {
	var messages []domain.ChatMessage
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chat_room_id = ?", roomID).
			Order("sent_at ASC, id ASC").
			Find(&messages).Error; err != nil {
			return err
		}
		if len(messages) == 0 {
			return nil
		}

		// Bound the update to the fetched batch; anything inserted
		// after the fetch stays unread until its own fetch.
		var maxID uint64
		for i := range messages {
			if messages[i].ID > maxID {
				maxID = messages[i].ID
			}
		}
		return tx.Model(&domain.ChatMessage{}).
			Where("chat_room_id = ? AND sender_id != ? AND is_read = ? AND id <= ?",
				roomID, viewerID, false, maxID).
			Update("is_read", true).Error
	})
	return messages, err
}

func (r *chatMessageRepository) CountUnread(roomID uint64, viewerID string) (int64, error) {
	var count int64
	err := r.db.Model(&domain.ChatMessage{}).
		Where("chat_room_id = ? AND sender_id != ? AND is_read = ? AND completely_deleted = ?",
			roomID, viewerID, false, false).
		Count(&count).Error
	return count, err
}

func (r *chatMessageRepository) MarkAllAsRead(roomIDs []uint64, viewerID string) error {
	if len(roomIDs) == 0 {
		return nil
	}
	return r.db.Model(&domain.ChatMessage{}).
		Where("chat_room_id IN ? AND sender_id != ? AND is_read = ?", roomIDs, viewerID, false).
		Update("is_read", true).Error
}

func (r *chatMessageRepository) UpdateWithLock(id uint64, fn func(msg *domain.ChatMessage) error) (*domain.ChatMessage, error) {
	var msg domain.ChatMessage
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&msg, id).Error; err != nil {
			return err
		}
		if err := fn(&msg); err != nil {
			return err
		}
		return tx.Model(&domain.ChatMessage{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"is_read":            msg.IsRead,
				"completely_deleted": msg.CompletelyDeleted,
				"deleted_by_sender":  msg.DeletedBySender,
			}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}
