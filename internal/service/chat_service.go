package service

import (
	"time"

	"github.com/ourclass/backend/internal/common"
	"github.com/ourclass/backend/internal/domain"
	"github.com/ourclass/backend/internal/repository"
	"github.com/ourclass/backend/internal/ws"
	"github.com/ourclass/backend/pkg/logger"
)

// ChatService business logic for direct (1:1) chat
type ChatService interface {
	GetOrCreateRoom(userID, otherUserID string) (*domain.ChatRoom, error)
	GetMyRooms(userID string) ([]domain.ChatRoomResponse, error)
	SendMessage(roomID uint64, senderID, content string) (*domain.ChatMessageResponse, error)
	// GetMessages returns the viewer's visible messages and marks the
	// other party's messages as read. The returned batch reflects the
	// read state as it was before this call.
	GetMessages(roomID uint64, viewerID string) ([]*domain.ChatMessageResponse, error)
	// DeleteMessage is sender-only. An unread message is withdrawn for
	// both sides; a read one disappears from the sender's view only.
	DeleteMessage(messageID uint64, requesterID string) error
	MarkAllAsRead(userID string) error
	// LeaveRoom hard-deletes the room and all of its messages for both
	// participants. Intentional product behavior for 1:1 chat.
	LeaveRoom(roomID uint64, userID string) error
}

type chatService struct {
	roomRepo  repository.ChatRoomRepository
	msgRepo   repository.ChatMessageRepository
	directory Directory
	notifier  NotificationService
	publisher Publisher
}

// NewChatService creates a new ChatService
func NewChatService(
	roomRepo repository.ChatRoomRepository,
	msgRepo repository.ChatMessageRepository,
	directory Directory,
	notifier NotificationService,
	publisher Publisher,
) ChatService {
	return &chatService{
		roomRepo:  roomRepo,
		msgRepo:   msgRepo,
		directory: directory,
		notifier:  notifier,
		publisher: publisher,
	}
}

func (s *chatService) GetOrCreateRoom(userID, otherUserID string) (*domain.ChatRoom, error) {
	if userID == otherUserID {
		return nil, common.ErrSelfChat
	}

	for _, id := range []string{userID, otherUserID} {
		info, err := s.directory.Lookup(id)
		if err != nil {
			return nil, err
		}
		if info == nil {
			return nil, common.ErrUserNotFound
		}
	}

	return s.roomRepo.GetOrCreate(userID, otherUserID)
}

func (s *chatService) GetMyRooms(userID string) ([]domain.ChatRoomResponse, error) {
	rooms, err := s.roomRepo.FindByUser(userID)
	if err != nil {
		return nil, err
	}

	responses := make([]domain.ChatRoomResponse, 0, len(rooms))
	for _, room := range rooms {
		otherID := room.OtherParticipant(userID)
		otherInfo, err := s.directory.Lookup(otherID)
		if err != nil {
			return nil, err
		}
		if otherInfo == nil {
			otherInfo = &domain.UserInfo{UserID: otherID}
		}

		unread, err := s.msgRepo.CountUnread(room.ID, userID)
		if err != nil {
			return nil, err
		}

		resp := domain.ChatRoomResponse{
			RoomID:      room.ID,
			OtherUser:   *otherInfo,
			LastMessage: room.LastMessage,
			UnreadCount: unread,
		}
		if room.LastMessageAt != nil {
			resp.LastMessageAt = room.LastMessageAt.Format(time.RFC3339)
		}
		responses = append(responses, resp)
	}

	return responses, nil
}

func (s *chatService) SendMessage(roomID uint64, senderID, content string) (*domain.ChatMessageResponse, error) {
	room, err := s.roomRepo.FindByID(roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, common.ErrRoomNotFound
	}
	if !room.HasParticipant(senderID) {
		return nil, common.ErrNotRoomMember
	}

	sender, err := s.directory.Lookup(senderID)
	if err != nil {
		return nil, err
	}
	if sender == nil {
		return nil, common.ErrUserNotFound
	}

	msg := &domain.ChatMessage{
		ChatRoomID: roomID,
		SenderID:   senderID,
		Content:    content,
	}
	if err := s.msgRepo.Create(msg); err != nil {
		return nil, err
	}

	// Preview is advisory display data; a failed update must not fail
	// the send
	if err := s.roomRepo.UpdatePreview(roomID, domain.TruncatePreview(content)); err != nil {
		logger.GetLogger().Warn().Err(err).Uint64("room_id", roomID).Msg("preview update failed")
	}

	resp := msg.ToResponse(sender.Name)

	if s.publisher != nil {
		s.publisher.Publish(ws.DirectRoomChannel(roomID), &ws.Event{
			Type:    ws.EventMessage,
			Payload: resp,
		})
	}

	otherID := room.OtherParticipant(senderID)
	senderName := sender.Name
	go func() {
		if err := s.notifier.CreateAndSend(
			otherID,
			senderID,
			senderName,
			domain.NotificationTypeChat,
			senderName+"님이 메시지를 보냈습니다",
			roomID,
		); err != nil {
			logger.GetLogger().Warn().Err(err).
				Str("recipient_id", otherID).
				Msg("chat notification failed")
		}
	}()

	return resp, nil
}

func (s *chatService) GetMessages(roomID uint64, viewerID string) ([]*domain.ChatMessageResponse, error) {
	room, err := s.roomRepo.FindByID(roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, common.ErrRoomNotFound
	}
	if !room.HasParticipant(viewerID) {
		return nil, common.ErrNotRoomMember
	}

	// Fetch and read-marking run in one transaction; the batch shows
	// the read state the viewer actually walked in on.
	messages, err := s.msgRepo.FindByRoomAndMarkRead(roomID, viewerID)
	if err != nil {
		return nil, err
	}

	names, err := s.directory.LookupMany([]string{room.User1ID, room.User2ID})
	if err != nil {
		return nil, err
	}

	responses := make([]*domain.ChatMessageResponse, 0, len(messages))
	for i := range messages {
		m := &messages[i]
		if !m.VisibleTo(viewerID) {
			continue
		}
		responses = append(responses, m.ToResponse(names[m.SenderID].Name))
	}

	return responses, nil
}

func (s *chatService) DeleteMessage(messageID uint64, requesterID string) error {
	msg, err := s.msgRepo.UpdateWithLock(messageID, func(m *domain.ChatMessage) error {
		if m.SenderID != requesterID {
			return common.ErrNotSender
		}
		if m.IsRead {
			// Recipient already saw it: clean up the sender's view only
			m.DeletedBySender = true
		} else {
			// Never reached the recipient's awareness: withdraw entirely
			m.CompletelyDeleted = true
		}
		return nil
	})
	if err != nil {
		return err
	}
	if msg == nil {
		return common.ErrMessageNotFound
	}
	return nil
}

func (s *chatService) MarkAllAsRead(userID string) error {
	rooms, err := s.roomRepo.FindByUser(userID)
	if err != nil {
		return err
	}
	roomIDs := make([]uint64, len(rooms))
	for i, room := range rooms {
		roomIDs[i] = room.ID
	}
	return s.msgRepo.MarkAllAsRead(roomIDs, userID)
}

func (s *chatService) LeaveRoom(roomID uint64, userID string) error {
	room, err := s.roomRepo.FindByID(roomID)
	if err != nil {
		return err
	}
	if room == nil {
		return common.ErrRoomNotFound
	}
	if !room.HasParticipant(userID) {
		return common.ErrNotRoomMember
	}
	return s.roomRepo.DeleteWithMessages(roomID)
}
