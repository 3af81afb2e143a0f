// Package models contains data structures for the application's domain models.
package models

import "time"

// User is owned by the account collaborator. The engagement core only needs
// its ID and admin flag; rows are hard-deleted so the cascade can run first.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	Bio       string    `json:"bio"`
	IsAdmin   bool      `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AuthenticatedUser is the identity handed to the core by the auth layer.
type AuthenticatedUser struct {
	ID      uint `json:"id"`
	IsAdmin bool `json:"is_admin"`
}
