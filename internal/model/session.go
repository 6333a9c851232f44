package model

import "time"

// Session is a titled conversation owned by exactly one user. UpdatedAt is
// refreshed on every message append and title edit; session listings are
// ordered by it.
type Session struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Title     string    `gorm:"size:128;not null" json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const DefaultSessionTitle = "New Chat"
