package service

import (
	"time"

	"github.com/ourclass/backend/internal/common"
	"github.com/ourclass/backend/internal/domain"
	"github.com/ourclass/backend/internal/repository"
	"github.com/ourclass/backend/internal/ws"
	"github.com/ourclass/backend/pkg/logger"
)

// GroupChatService business logic for group chat rooms
type GroupChatService interface {
	CreateRoom(creatorID string, req *domain.CreateGroupRoomRequest) (*domain.GroupChatRoomResponse, error)
	GetMyRooms(userID string) ([]domain.GroupChatRoomResponse, error)
	SendMessage(roomID uint64, senderID, content string) (*domain.GroupChatMessageResponse, error)
	// GetMessages returns the viewer's visible messages and advances
	// their read cursor to the newest message in the room
	GetMessages(roomID uint64, viewerID string) ([]*domain.GroupChatMessageResponse, error)
	Invite(roomID uint64, inviterID, newMemberID string) error
	Kick(roomID uint64, actorID, targetID string) error
	Leave(roomID uint64, userID string) error
	// DeleteMessage is sender-only. If any current member has not read
	// the message it is withdrawn for everyone; otherwise it is hidden
	// from the requester's view only.
	DeleteMessage(messageID uint64, requesterID string) error
}

type groupChatService struct {
	roomRepo   repository.GroupChatRoomRepository
	memberRepo repository.GroupChatMemberRepository
	msgRepo    repository.GroupChatMessageRepository
	directory  Directory
	notifier   NotificationService
	publisher  Publisher
}

// NewGroupChatService creates a new GroupChatService
func NewGroupChatService(
	roomRepo repository.GroupChatRoomRepository,
	memberRepo repository.GroupChatMemberRepository,
	msgRepo repository.GroupChatMessageRepository,
	directory Directory,
	notifier NotificationService,
	publisher Publisher,
) GroupChatService {
	return &groupChatService{
		roomRepo:   roomRepo,
		memberRepo: memberRepo,
		msgRepo:    msgRepo,
		directory:  directory,
		notifier:   notifier,
		publisher:  publisher,
	}
}

func (s *groupChatService) CreateRoom(creatorID string, req *domain.CreateGroupRoomRequest) (*domain.GroupChatRoomResponse, error) {
	creator, err := s.directory.Lookup(creatorID)
	if err != nil {
		return nil, err
	}
	if creator == nil {
		return nil, common.ErrUserNotFound
	}

	// Distinct requested members, creator excluded; unknown IDs are
	// silently skipped
	seen := map[string]bool{creatorID: true}
	var candidates []string
	for _, id := range req.MemberIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		candidates = append(candidates, id)
	}

	existing, err := s.directory.LookupMany(candidates)
	if err != nil {
		return nil, err
	}

	memberIDs := []string{creatorID}
	for _, id := range candidates {
		if _, ok := existing[id]; ok {
			memberIDs = append(memberIDs, id)
		}
	}

	room := &domain.GroupChatRoom{
		Name:      req.Name,
		CreatorID: creatorID,
	}
	if err := s.roomRepo.CreateWithMembers(room, memberIDs); err != nil {
		return nil, err
	}

	return s.toRoomResponse(room)
}

func (s *groupChatService) GetMyRooms(userID string) ([]domain.GroupChatRoomResponse, error) {
	rooms, err := s.roomRepo.FindByUser(userID)
	if err != nil {
		return nil, err
	}

	responses := make([]domain.GroupChatRoomResponse, 0, len(rooms))
	for i := range rooms {
		resp, err := s.toRoomResponse(&rooms[i])
		if err != nil {
			return nil, err
		}
		responses = append(responses, *resp)
	}
	return responses, nil
}

func (s *groupChatService) SendMessage(roomID uint64, senderID, content string) (*domain.GroupChatMessageResponse, error) {
	room, err := s.roomRepo.FindByID(roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, common.ErrRoomNotFound
	}

	isMember, err := s.memberRepo.Exists(roomID, senderID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, common.ErrNotRoomMember
	}

	sender, err := s.directory.Lookup(senderID)
	if err != nil {
		return nil, err
	}
	if sender == nil {
		return nil, common.ErrUserNotFound
	}

	msg := &domain.GroupChatMessage{
		RoomID:   roomID,
		SenderID: senderID,
		Content:  content,
	}
	if err := s.msgRepo.Create(msg); err != nil {
		return nil, err
	}

	// The sender has obviously read their own message
	if err := s.memberRepo.AdvanceCursor(roomID, senderID, msg.ID); err != nil {
		logger.GetLogger().Warn().Err(err).Uint64("room_id", roomID).Msg("sender cursor advance failed")
	}

	if err := s.roomRepo.UpdatePreview(roomID, domain.TruncatePreview(content)); err != nil {
		logger.GetLogger().Warn().Err(err).Uint64("room_id", roomID).Msg("preview update failed")
	}

	unread, err := s.memberRepo.CountUnreadMembers(roomID, msg.ID)
	if err != nil {
		return nil, err
	}
	resp := msg.ToResponse(sender.Name, unread)

	if s.publisher != nil {
		s.publisher.Publish(ws.GroupRoomChannel(roomID), &ws.Event{
			Type:    ws.EventGroupMessage,
			Payload: resp,
		})
	}

	members, err := s.memberRepo.FindByRoom(roomID)
	if err != nil {
		return nil, err
	}
	senderName := sender.Name
	roomName := room.Name
	for _, member := range members {
		if member.UserID == senderID {
			continue
		}
		recipientID := member.UserID
		go func() {
			if err := s.notifier.CreateAndSend(
				recipientID,
				senderID,
				senderName,
				domain.NotificationTypeGroupChat,
				"["+roomName+"] "+senderName+"님이 메시지를 보냈습니다",
				roomID,
			); err != nil {
				logger.GetLogger().Warn().Err(err).
					Str("recipient_id", recipientID).
					Msg("group chat notification failed")
			}
		}()
	}

	return resp, nil
}

func (s *groupChatService) GetMessages(roomID uint64, viewerID string) ([]*domain.GroupChatMessageResponse, error) {
	room, err := s.roomRepo.FindByID(roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, common.ErrRoomNotFound
	}

	member, err := s.memberRepo.FindByRoomAndUser(roomID, viewerID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, common.ErrNotRoomMember
	}

	messages, err := s.msgRepo.FindByRoom(roomID)
	if err != nil {
		return nil, err
	}

	// Advance the cursor to the newest message before computing
	// unread-by counts, so the viewer no longer counts against them
	if len(messages) > 0 {
		newest := messages[len(messages)-1].ID
		if err := s.memberRepo.AdvanceCursor(roomID, viewerID, newest); err != nil {
			return nil, err
		}
	}

	hiddenIDs, err := s.msgRepo.FindHiddenForUser(roomID, viewerID)
	if err != nil {
		return nil, err
	}
	hidden := make(map[uint64]bool, len(hiddenIDs))
	for _, id := range hiddenIDs {
		hidden[id] = true
	}

	senderIDs := make([]string, 0, len(messages))
	seen := make(map[string]bool)
	for i := range messages {
		if !seen[messages[i].SenderID] {
			seen[messages[i].SenderID] = true
			senderIDs = append(senderIDs, messages[i].SenderID)
		}
	}
	names, err := s.directory.LookupMany(senderIDs)
	if err != nil {
		return nil, err
	}

	responses := make([]*domain.GroupChatMessageResponse, 0, len(messages))
	for i := range messages {
		m := &messages[i]
		if m.CompletelyDeleted || hidden[m.ID] {
			continue
		}
		unread, err := s.memberRepo.CountUnreadMembers(roomID, m.ID)
		if err != nil {
			return nil, err
		}
		responses = append(responses, m.ToResponse(names[m.SenderID].Name, unread))
	}

	return responses, nil
}

func (s *groupChatService) Invite(roomID uint64, inviterID, newMemberID string) error {
	room, err := s.roomRepo.FindByID(roomID)
	if err != nil {
		return err
	}
	if room == nil {
		return common.ErrRoomNotFound
	}

	inviterIsMember, err := s.memberRepo.Exists(roomID, inviterID)
	if err != nil {
		return err
	}
	if !inviterIsMember {
		return common.ErrNotRoomMember
	}

	newMember, err := s.directory.Lookup(newMemberID)
	if err != nil {
		return err
	}
	if newMember == nil {
		return common.ErrUserNotFound
	}

	alreadyMember, err := s.memberRepo.Exists(roomID, newMemberID)
	if err != nil {
		return err
	}
	if alreadyMember {
		return common.ErrAlreadyMember
	}

	return s.memberRepo.Create(&domain.GroupChatMember{
		RoomID: roomID,
		UserID: newMemberID,
	})
}

func (s *groupChatService) Kick(roomID uint64, actorID, targetID string) error {
	room, err := s.roomRepo.FindByID(roomID)
	if err != nil {
		return err
	}
	if room == nil {
		return common.ErrRoomNotFound
	}

	// Only the room creator may kick
	if room.CreatorID != actorID {
		return common.ErrNotRoomCreator
	}
	// Self-kick is forbidden; use Leave instead
	if actorID == targetID {
		return common.ErrSelfTarget
	}

	target, err := s.directory.Lookup(targetID)
	if err != nil {
		return err
	}
	if target == nil {
		return common.ErrUserNotFound
	}

	isMember, err := s.memberRepo.Exists(roomID, targetID)
	if err != nil {
		return err
	}
	if !isMember {
		return common.ErrNotRoomMember
	}

	return s.memberRepo.Delete(roomID, targetID)
}

func (s *groupChatService) Leave(roomID uint64, userID string) error {
	room, err := s.roomRepo.FindByID(roomID)
	if err != nil {
		return err
	}
	if room == nil {
		return common.ErrRoomNotFound
	}

	member, err := s.memberRepo.FindByRoomAndUser(roomID, userID)
	if err != nil {
		return err
	}
	if member == nil {
		return common.ErrNotRoomMember
	}

	// Membership row only; messages and the room stay for the others
	return s.memberRepo.Delete(roomID, userID)
}

func (s *groupChatService) DeleteMessage(messageID uint64, requesterID string) error {
	msg, err := s.msgRepo.DeleteWithLock(messageID, func(m *domain.GroupChatMessage, unreadBy int64) (repository.GroupDeleteDecision, error) {
		if m.SenderID != requesterID {
			return repository.GroupDeleteDecision{}, common.ErrNotSender
		}
		if unreadBy > 0 {
			// Someone currently joined hasn't seen it: withdraw it for
			// everyone
			return repository.GroupDeleteDecision{CompletelyDelete: true}, nil
		}
		// Everyone read it: hide it from the requester's view only
		return repository.GroupDeleteDecision{HideForUserID: requesterID}, nil
	})
	if err != nil {
		return err
	}
	if msg == nil {
		return common.ErrMessageNotFound
	}
	return nil
}

func (s *groupChatService) toRoomResponse(room *domain.GroupChatRoom) (*domain.GroupChatRoomResponse, error) {
	members, err := s.memberRepo.FindByRoom(room.ID)
	if err != nil {
		return nil, err
	}

	memberIDs := make([]string, len(members))
	for i, m := range members {
		memberIDs[i] = m.UserID
	}
	infos, err := s.directory.LookupMany(memberIDs)
	if err != nil {
		return nil, err
	}

	memberInfos := make([]domain.UserInfo, 0, len(members))
	for _, m := range members {
		if info, ok := infos[m.UserID]; ok {
			memberInfos = append(memberInfos, info)
		} else {
			memberInfos = append(memberInfos, domain.UserInfo{UserID: m.UserID})
		}
	}

	resp := &domain.GroupChatRoomResponse{
		RoomID:      room.ID,
		Name:        room.Name,
		CreatorID:   room.CreatorID,
		MemberCount: len(members),
		Members:     memberInfos,
		LastMessage: room.LastMessage,
		CreatedAt:   room.CreatedAt.Format(time.RFC3339),
	}
	if room.LastMessageAt != nil {
		resp.LastMessageAt = room.LastMessageAt.Format(time.RFC3339)
	}
	return resp, nil
}
