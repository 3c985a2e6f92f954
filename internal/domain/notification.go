package domain

import "time"

// Notification types
const (
	NotificationTypeChat      = "CHAT"
	NotificationTypeGroupChat = "GROUP_CHAT"
)

// Notification is a stored notification addressed to one recipient.
// ReferenceID points back at the room the event happened in.
type Notification struct {
	ID          uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	RecipientID string    `gorm:"column:recipient_id;size:50;index" json:"recipient_id"`
	SenderID    string    `gorm:"column:sender_id;size:50" json:"sender_id"`
	SenderName  string    `gorm:"column:sender_name;size:100" json:"sender_name"`
	Type        string    `gorm:"column:type;size:30" json:"type"`
	Content     string    `gorm:"column:content;size:500" json:"content"`
	ReferenceID uint64    `gorm:"column:reference_id" json:"reference_id"`
	IsRead      bool      `gorm:"column:is_read;default:false" json:"is_read"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }

// NotificationItem is one notification in API responses
type NotificationItem struct {
	ID          uint64 `json:"id"`
	Type        string `json:"type"`
	Content     string `json:"content"`
	SenderID    string `json:"sender_id"`
	SenderName  string `json:"sender_name"`
	ReferenceID uint64 `json:"reference_id"`
	IsRead      bool   `json:"is_read"`
	CreatedAt   string `json:"created_at"`
}

// NotificationListResponse is the paginated notification list
type NotificationListResponse struct {
	Items       []NotificationItem `json:"items"`
	Total       int64              `json:"total"`
	UnreadCount int64              `json:"unread_count"`
	Page        int                `json:"page"`
	Limit       int                `json:"limit"`
	TotalPages  int                `json:"total_pages"`
}

// NotificationSummaryResponse carries the unread badge count
type NotificationSummaryResponse struct {
	TotalUnread int `json:"total_unread"`
}
