package service

import (
	"strconv"
	"strings"

	"github.com/ourclass/backend/internal/repository"
	"github.com/ourclass/backend/internal/ws"
)

// NewRoomAuthorizer returns the hub's channel authorizer: a user may
// join a room channel only while they are a participant of that room.
func NewRoomAuthorizer(chatRoomRepo repository.ChatRoomRepository, groupMemberRepo repository.GroupChatMemberRepository) ws.Authorizer {
	return func(userID, channel string) bool {
		kind, rawID, ok := strings.Cut(channel, ":")
		if !ok {
			return false
		}
		roomID, err := strconv.ParseUint(rawID, 10, 64)
		if err != nil {
			return false
		}

		switch kind {
		case "chat":
			room, err := chatRoomRepo.FindByID(roomID)
			if err != nil || room == nil {
				return false
			}
			return room.HasParticipant(userID)
		case "group":
			isMember, err := groupMemberRepo.Exists(roomID, userID)
			if err != nil {
				return false
			}
			return isMember
		default:
			return false
		}
	}
}
