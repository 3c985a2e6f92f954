package domain

import "time"

// GroupChatRoom is a multi-member chat room
type GroupChatRoom struct {
	ID            uint64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name          string     `gorm:"column:name;size:100" json:"name"`
	CreatorID     string     `gorm:"column:creator_id;size:50" json:"creator_id"`
	LastMessage   string     `gorm:"column:last_message;size:500" json:"last_message,omitempty"`
	LastMessageAt *time.Time `gorm:"column:last_message_at" json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (GroupChatRoom) TableName() string { return "group_chat_rooms" }

// GroupChatMember is one membership row. LastReadMessageID is the
// member's read cursor: the highest message ID they have acknowledged.
// It never decreases while the row lives; leaving deletes the row, so a
// rejoin starts over at zero.
type GroupChatMember struct {
	ID                uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	RoomID            uint64    `gorm:"column:room_id;uniqueIndex:idx_group_members_pair,priority:1" json:"room_id"`
	UserID            string    `gorm:"column:user_id;size:50;uniqueIndex:idx_group_members_pair,priority:2" json:"user_id"`
	LastReadMessageID uint64    `gorm:"column:last_read_message_id;default:0" json:"last_read_message_id"`
	JoinedAt          time.Time `gorm:"column:joined_at;autoCreateTime" json:"joined_at"`
}

func (GroupChatMember) TableName() string { return "group_chat_members" }

// GroupChatMessage is one message in a group room
type GroupChatMessage struct {
	ID                uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	RoomID            uint64    `gorm:"column:room_id;index" json:"room_id"`
	SenderID          string    `gorm:"column:sender_id;size:50" json:"sender_id"`
	Content           string    `gorm:"column:content;type:text" json:"content"`
	CompletelyDeleted bool      `gorm:"column:completely_deleted;default:false" json:"-"`
	SentAt            time.Time `gorm:"column:sent_at;autoCreateTime" json:"sent_at"`
}

func (GroupChatMessage) TableName() string { return "group_chat_messages" }

// GroupMessageDeletion is the per-viewer hide set for group messages:
// one row means the message is invisible to that user only.
type GroupMessageDeletion struct {
	ID        uint64 `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	MessageID uint64 `gorm:"column:message_id;uniqueIndex:idx_group_msg_del_pair,priority:1" json:"message_id"`
	UserID    string `gorm:"column:user_id;size:50;uniqueIndex:idx_group_msg_del_pair,priority:2" json:"user_id"`
}

func (GroupMessageDeletion) TableName() string { return "group_chat_message_deletions" }

// CreateGroupRoomRequest creates a room with an initial member list
type CreateGroupRoomRequest struct {
	Name      string   `json:"name" binding:"required"`
	MemberIDs []string `json:"member_ids"`
}

// GroupMemberRequest targets a single user for invite/kick
type GroupMemberRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// GroupChatRoomResponse is one entry in the group room list
type GroupChatRoomResponse struct {
	RoomID        uint64     `json:"room_id"`
	Name          string     `json:"name"`
	CreatorID     string     `json:"creator_id"`
	MemberCount   int        `json:"member_count"`
	Members       []UserInfo `json:"members,omitempty"`
	LastMessage   string     `json:"last_message,omitempty"`
	LastMessageAt string     `json:"last_message_at,omitempty"`
	CreatedAt     string     `json:"created_at,omitempty"`
}

// GroupChatMessageResponse is a group message in API responses.
// UnreadCount is the number of current members whose cursor has not
// reached this message.
type GroupChatMessageResponse struct {
	ID          uint64 `json:"id"`
	RoomID      uint64 `json:"room_id"`
	SenderID    string `json:"sender_id"`
	SenderName  string `json:"sender_name,omitempty"`
	Content     string `json:"content"`
	UnreadCount int64  `json:"unread_count"`
	SentAt      string `json:"sent_at"`
}

// ToResponse converts a GroupChatMessage to its API shape
func (m *GroupChatMessage) ToResponse(senderName string, unreadCount int64) *GroupChatMessageResponse {
	return &GroupChatMessageResponse{
		ID:          m.ID,
		RoomID:      m.RoomID,
		SenderID:    m.SenderID,
		SenderName:  senderName,
		Content:     m.Content,
		UnreadCount: unreadCount,
		SentAt:      m.SentAt.Format(time.RFC3339),
	}
}
