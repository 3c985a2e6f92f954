package service

import (
	"math"
	"time"

	"github.com/ourclass/backend/internal/common"
	"github.com/ourclass/backend/internal/domain"
	"github.com/ourclass/backend/internal/repository"
	"github.com/ourclass/backend/internal/ws"
	"github.com/ourclass/backend/pkg/logger"
)

// Publisher pushes events to live subscribers. Satisfied by *ws.Hub.
type Publisher interface {
	Publish(channel string, event *ws.Event)
}

// NotificationService stores notifications and pushes them to the
// recipient's live sessions
type NotificationService interface {
	// CreateAndSend stores a notification and pushes it to the
	// recipient's user channel. A missing recipient is logged and
	// swallowed: notification delivery must never fail the caller.
	CreateAndSend(recipientID, senderID, senderName, notifType, content string, referenceID uint64) error
	GetList(userID string, page, limit int) (*domain.NotificationListResponse, error)
	GetUnreadCount(userID string) (*domain.NotificationSummaryResponse, error)
	MarkAsRead(userID string, id uint64) error
	MarkAllAsRead(userID string) error
	Delete(userID string, id uint64) error
}

type notificationService struct {
	repo      repository.NotificationRepository
	userRepo  repository.UserRepository
	publisher Publisher
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(repo repository.NotificationRepository, userRepo repository.UserRepository, publisher Publisher) NotificationService {
	return &notificationService{
		repo:      repo,
		userRepo:  userRepo,
		publisher: publisher,
	}
}

func (s *notificationService) CreateAndSend(recipientID, senderID, senderName, notifType, content string, referenceID uint64) error {
	recipient, err := s.userRepo.FindByUserID(recipientID)
	if err != nil {
		return err
	}
	if recipient == nil {
		logger.GetLogger().Warn().
			Str("recipient_id", recipientID).
			Msg("notification recipient not found")
		return nil
	}

	notification := &domain.Notification{
		RecipientID: recipientID,
		SenderID:    senderID,
		SenderName:  senderName,
		Type:        notifType,
		Content:     content,
		ReferenceID: referenceID,
	}

	if err := s.repo.Create(notification); err != nil {
		return err
	}

	if s.publisher != nil {
		s.publisher.Publish(ws.UserChannel(recipientID), &ws.Event{
			Type:    ws.EventNotification,
			Payload: toNotificationItem(notification),
		})
	}

	return nil
}

func (s *notificationService) GetList(userID string, page, limit int) (*domain.NotificationListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	offset := (page - 1) * limit
	notifications, total, err := s.repo.GetList(userID, offset, limit)
	if err != nil {
		return nil, err
	}

	unreadCount, err := s.repo.GetUnreadCount(userID)
	if err != nil {
		return nil, err
	}

	items := make([]domain.NotificationItem, len(notifications))
	for i, n := range notifications {
		items[i] = *toNotificationItem(&n)
	}

	totalPages := int(math.Ceil(float64(total) / float64(limit)))

	return &domain.NotificationListResponse{
		Items:       items,
		Total:       total,
		UnreadCount: unreadCount,
		Page:        page,
		Limit:       limit,
		TotalPages:  totalPages,
	}, nil
}

func (s *notificationService) GetUnreadCount(userID string) (*domain.NotificationSummaryResponse, error) {
	count, err := s.repo.GetUnreadCount(userID)
	if err != nil {
		return nil, err
	}
	return &domain.NotificationSummaryResponse{TotalUnread: int(count)}, nil
}

func (s *notificationService) MarkAsRead(userID string, id uint64) error {
	n, err := s.repo.FindByID(id)
	if err != nil {
		return err
	}
	if n == nil {
		return common.ErrNotFound
	}
	if n.RecipientID != userID {
		return common.ErrForbidden
	}
	return s.repo.MarkAsRead(id)
}

func (s *notificationService) MarkAllAsRead(userID string) error {
	return s.repo.MarkAllAsRead(userID)
}

func (s *notificationService) Delete(userID string, id uint64) error {
	n, err := s.repo.FindByID(id)
	if err != nil {
		return err
	}
	if n == nil {
		return common.ErrNotFound
	}
	if n.RecipientID != userID {
		return common.ErrForbidden
	}
	return s.repo.Delete(id)
}

func toNotificationItem(n *domain.Notification) *domain.NotificationItem {
	return &domain.NotificationItem{
		ID:          n.ID,
		Type:        n.Type,
		Content:     n.Content,
		SenderID:    n.SenderID,
		SenderName:  n.SenderName,
		ReferenceID: n.ReferenceID,
		IsRead:      n.IsRead,
		CreatedAt:   n.CreatedAt.Format(time.RFC3339),
	}
}
