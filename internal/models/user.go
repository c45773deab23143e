package models

import "time"

// User mirrors the identity-provider record; the survey service only reads it
// (creator lookup for notifications).
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;size:255"`
	Email     string    `json:"email" gorm:"uniqueIndex;not null;size:255"`
	FullName  *string   `json:"full_name" gorm:"size:255"`
	AvatarURL *string   `json:"avatar_url" gorm:"size:500"`
	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
