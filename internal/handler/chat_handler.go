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

// ChatHandler handles direct chat requests
type ChatHandler struct {
	service service.ChatService
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(service service.ChatService) *ChatHandler {
	return &ChatHandler{service: service}
}

// CreateOrGetRoom handles POST /api/v1/chat/rooms
func (h *ChatHandler) CreateOrGetRoom(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req domain.CreateDirectRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "잘못된 요청입니다", err)
		return
	}

	room, err := h.service.GetOrCreateRoom(userID, req.OtherUserID)
	if err != nil {
		common.ServiceError(c, err)
		return
	}

	common.SuccessResponse(c, gin.H{"room_id": room.ID}, nil)
}

// GetMyRooms handles GET /api/v1/chat/rooms
func (h *ChatHandler) GetMyRooms(c *gin.Context) {
	userID := middleware.GetUserID(c)

	rooms, err := h.service.GetMyRooms(userID)
	if err != nil {
		common.ServiceError(c, err)
		return
	}

	common.SuccessResponse(c, rooms, nil)
}

// SendMessage handles POST /api/v1/chat/rooms/:id/messages
func (h *ChatHandler) SendMessage(c *gin.Context) {
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

// GetMessages handles GET /api/v1/chat/rooms/:id/messages
func (h *ChatHandler) GetMessages(c *gin.Context) {
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

// DeleteMessage handles DELETE /api/v1/chat/messages/:id
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
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

// MarkAllAsRead handles PUT /api/v1/chat/mark-all-read
func (h *ChatHandler) MarkAllAsRead(c *gin.Context) {
	userID := middleware.GetUserID(c)

	if err := h.service.MarkAllAsRead(userID); err != nil {
		common.ServiceError(c, err)
		return
	}

	common.SuccessResponse(c, gin.H{"message": "모든 메시지를 읽음 처리했습니다"}, nil)
}

// LeaveRoom handles DELETE /api/v1/chat/rooms/:id/leave
func (h *ChatHandler) LeaveRoom(c *gin.Context) {
	userID := middleware.GetUserID(c)

	roomID, err := ginutil.ParamUint64(c, "id")
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "잘못된 채팅방 ID입니다", nil)
		return
	}

	if err := h.service.LeaveRoom(roomID, userID); err != nil {
		common.ServiceError(c, err)
		return
	}

	common.SuccessResponse(c, gin.H{"message": "채팅방을 나갔습니다"}, nil)
}
