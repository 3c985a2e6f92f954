package domain

import "time"

// PreviewMaxRunes is the maximum length of a room's last-message preview
const PreviewMaxRunes = 100

// ChatRoom is a 1:1 chat room. Participants are stored in canonical
// order (User1ID < User2ID) so the unique index makes the unordered
// pair the room's identity.
type ChatRoom struct {
	ID            uint64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	User1ID       string     `gorm:"column:user1_id;size:50;uniqueIndex:idx_chat_rooms_pair,priority:1" json:"user1_id"`
	User2ID       string     `gorm:"column:user2_id;size:50;uniqueIndex:idx_chat_rooms_pair,priority:2" json:"user2_id"`
	LastMessage   string     `gorm:"column:last_message;size:500" json:"last_message,omitempty"`
	LastMessageAt *time.Time `gorm:"column:last_message_at" json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (ChatRoom) TableName() string { return "chat_rooms" }

// CanonicalPair orders two user IDs so {a,b} and {b,a} map to the same key
func CanonicalPair(a, b string) (string, string) {
	if a > b {
		return b, a
	}
	return a, b
}

// HasParticipant reports whether userID belongs to the room
func (r *ChatRoom) HasParticipant(userID string) bool {
	return r.User1ID == userID || r.User2ID == userID
}

// OtherParticipant returns the counterpart of userID in the room
func (r *ChatRoom) OtherParticipant(userID string) string {
	if r.User1ID == userID {
		return r.User2ID
	}
	return r.User1ID
}

// ChatMessage is one message in a direct room. Content is immutable;
// only the read flag and the deletion flags ever change.
type ChatMessage struct {
	ID                uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ChatRoomID        uint64    `gorm:"column:chat_room_id;index" json:"chat_room_id"`
	SenderID          string    `gorm:"column:sender_id;size:50" json:"sender_id"`
	Content           string    `gorm:"column:content;type:text" json:"content"`
	IsRead            bool      `gorm:"column:is_read;default:false" json:"is_read"`
	CompletelyDeleted bool      `gorm:"column:completely_deleted;default:false" json:"-"`
	DeletedBySender   bool      `gorm:"column:deleted_by_sender;default:false" json:"-"`
	SentAt            time.Time `gorm:"column:sent_at;autoCreateTime" json:"sent_at"`
}

func (ChatMessage) TableName() string { return "chat_messages" }

// VisibleTo reports whether viewerID may see the message.
// CompletelyDeleted hides it from everyone; DeletedBySender hides it
// from the sender only.
func (m *ChatMessage) VisibleTo(viewerID string) bool {
	if m.CompletelyDeleted {
		return false
	}
	if m.DeletedBySender && m.SenderID == viewerID {
		return false
	}
	return true
}

// CreateDirectRoomRequest opens (or returns) a room with another user
type CreateDirectRoomRequest struct {
	OtherUserID string `json:"other_user_id" binding:"required"`
}

// SendMessageRequest carries the content of a new message
type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// ChatRoomResponse is one entry in the direct room list
type ChatRoomResponse struct {
	RoomID        uint64   `json:"room_id"`
	OtherUser     UserInfo `json:"other_user"`
	LastMessage   string   `json:"last_message,omitempty"`
	LastMessageAt string   `json:"last_message_at,omitempty"`
	UnreadCount   int64    `json:"unread_count"`
}

// ChatMessageResponse is a direct message in API responses
type ChatMessageResponse struct {
	ID         uint64 `json:"id"`
	RoomID     uint64 `json:"room_id"`
	SenderID   string `json:"sender_id"`
	SenderName string `json:"sender_name,omitempty"`
	Content    string `json:"content"`
	IsRead     bool   `json:"is_read"`
	SentAt     string `json:"sent_at"`
}

// ToResponse converts a ChatMessage to its API shape
func (m *ChatMessage) ToResponse(senderName string) *ChatMessageResponse {
	return &ChatMessageResponse{
		ID:         m.ID,
		RoomID:     m.ChatRoomID,
		SenderID:   m.SenderID,
		SenderName: senderName,
		Content:    m.Content,
		IsRead:     m.IsRead,
		SentAt:     m.SentAt.Format(time.RFC3339),
	}
}

// TruncatePreview shortens content to PreviewMaxRunes for room previews
func TruncatePreview(content string) string {
	runes := []rune(content)
	if len(runes) <= PreviewMaxRunes {
		return content
	}
	return string(runes[:PreviewMaxRunes]) + "..."
}
