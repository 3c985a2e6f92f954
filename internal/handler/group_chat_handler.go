package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ourclass/backend/internal/common"
	"github.com/ourclass/backend/internal/domain"
	"github.com/ourclass/backend/internal/middleware"
	"github.com/ourclass/backend/internal/service"
	"github.com/ourclass/backend/pkg/ginutil"
)

// GroupChatHandler handles group chat requests
type GroupChatHandler struct {
	service service.GroupChatService
}

// NewGroupChatHandler creates a new GroupChatHandler
func NewGroupChatHandler(service service.GroupChatService) *GroupChatHandler {
	return &GroupChatHandler{service: service}
}

// CreateRoom handles POST /api/v1/group-chat/rooms
func (h *GroupChatHandler) CreateRoom(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req domain.CreateGroupRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "채팅방 이름이 필요합니다", err)
		return
	}

	room, err := h.service.CreateRoom(userID, &req)
	if err != nil {
		common.ServiceError(c, err)
		return
	}

	common.SuccessResponse(c, room, nil)
}

// GetMyRooms handles GET /api/v1/group-chat/rooms
func (h *GroupChatHandler) GetMyRooms(c *gin.Context) {
	userID := middleware.GetUserID(c)

	rooms, err := h.service.GetMyRooms(userID)
	if err != nil {
		common.ServiceError(c, err)
		return
	}

	common.SuccessResponse(c, rooms, nil)
}

// SendMessage handles POST /api/v1/group-chat/rooms/:id/messages
func (h *GroupChatHandler) SendMessage(c *gin.Context) {
	userID := middleware.GetUserID(c)

	roomID, err := ginutil.ParamUint64(c, "id")
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "잘못된 채팅방 ID입니다", nil)
		return
	}

	var req domain.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "메시지 내용이 필요합니다", err)
		return
	}

	msg, err := h.service.SendMessage(roomID, userID, req.Content)
	if err != nil {
		common.ServiceError(c, err)
		return
	}

	common.SuccessResponse(c, msg, nil)
}

// GetMessages handles GET /api/v1/group-chat/rooms/:id/messages
func (h *GroupChatHandler) GetMessages(c *gin.Context) {
	userID := middleware.GetUserID(c)

	roomID, err := ginutil.ParamUint64(c, "id")
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "잘못된 채팅방 ID입니다", nil)
		return
	}

	messages, err := h.service.GetMessages(roomID, userID)
	if err != nil {
		common.ServiceError(c, err)
		return
	}

	common.SuccessResponse(c, messages, nil)
}

// Invite handles POST /api/v1/group-chat/rooms/:id/invite
func (h *GroupChatHandler) Invite(c *gin.Context) {
	userID := middleware.GetUserID(c)

	roomID, err := ginutil.ParamUint64(c, "id")
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "잘못된 채팅방 ID입니다", nil)
		return
	}

	var req domain.GroupMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "초대할 사용자 ID가 필요합니다", err)
		return
	}

	if err := h.service.Invite(roomID, userID, req.UserID); err != nil {
		common.ServiceError(c, err)
		return
	}

	common.SuccessResponse(c, gin.H{"message": "멤버를 초대했습니다"}, nil)
}

// Kick handles POST /api/v1/group-chat/rooms/:id/kick
func (h *GroupChatHandler) Kick(c *gin.Context) {
	userID := middleware.GetUserID(c)

	roomID, err := ginutil.ParamUint64(c, "id")
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "잘못된 채팅방 ID입니다", nil)
		return
	}

	var req domain.GroupMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "강퇴할 사용자 ID가 필요합니다", err)
		return
	}

	if err := h.service.Kick(roomID, userID, req.UserID); err != nil {
		common.ServiceError(c, err)
		return
	}

	common.SuccessResponse(c, gin.H{"message": "멤버를 강퇴했습니다"}, nil)
}

// Leave handles DELETE /api/v1/group-chat/rooms/:id/leave
func (h *GroupChatHandler) Leave(c *gin.Context) {
	userID := middleware.GetUserID(c)

	roomID, err := ginutil.ParamUint64(c, "id")
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "잘못된 채팅방 ID입니다", nil)
		return
	}

	if err := h.service.Leave(roomID, userID); err != nil {
		common.ServiceError(c, err)
		return
	}

	common.SuccessResponse(c, gin.H{"message": "채팅방을 나갔습니다"}, nil)
}

// DeleteMessage handles DELETE /api/v1/group-chat/messages/:id
func (h *GroupChatHandler) DeleteMessage(c *gin.Context) {
	userID := middleware.GetUserID(c)

	messageID, err := ginutil.ParamUint64(c, "id")
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "잘못된 메시지 ID입니다", nil)
		return
	}

	if err := h.service.DeleteMessage(messageID, userID); err != nil {
		common.ServiceError(c, err)
		return
	}

	common.SuccessResponse(c, gin.H{"message": "메시지가 삭제되었습니다"}, nil)
}
