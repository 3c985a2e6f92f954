package domain

import "time"

// User is a participant directory row. Profile management lives in the
// account service; the messaging core only resolves IDs to display data.
type User struct {
	ID              uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	UserID          string    `gorm:"column:user_id;size:50;uniqueIndex" json:"user_id"`
	Name            string    `gorm:"column:name;size:100" json:"name"`
	ProfileImageURL string    `gorm:"column:profile_image_url;size:255" json:"profile_image_url,omitempty"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime" json:"-"`
}

func (User) TableName() string { return "users" }

// UserInfo is the participant shape embedded in API responses
type UserInfo struct {
	UserID          string `json:"user_id"`
	Name            string `json:"name"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`
}

// ToInfo converts a User to its response shape
func (u *User) ToInfo() UserInfo {
	return UserInfo{
		UserID:          u.UserID,
		Name:            u.Name,
		ProfileImageURL: u.ProfileImageURL,
	}
}
