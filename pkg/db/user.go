// Database models for accounts and sessions
package db

import "time"

// User represents a gateway account. The provider API key is stored per
// user so tenants bill against their own quota; when empty, the server-wide
// key from the config applies.
type User struct {
	ID           string    `json:"id" gorm:"primaryKey;size:36"`
	Email        string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string    `json:"-" gorm:"size:100;not null"`
	APIKey       string    `json:"-" gorm:"size:255"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// Session represents a logged-in session identified by an opaque token.
type Session struct {
	Token     string    `json:"token" gorm:"primaryKey;size:64"`
	UserID    string    `json:"user_id" gorm:"index;size:36;not null"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (Session) TableName() string {
	return "sessions"
}
