package models

import "time"

// Post represents a forum post.
type Post struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Title      string    `gorm:"size:255;not null" json:"title"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	Category   string    `gorm:"size:64;index" json:"category"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	IsReported bool      `gorm:"not null;default:false" json:"is_reported"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Comment represents a comment on a post.
type Comment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	PostID     uint      `gorm:"not null;index" json:"post_id"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	IsReported bool      `gorm:"not null;default:false" json:"is_reported"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
