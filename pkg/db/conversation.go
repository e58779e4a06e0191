// Database models for chat conversations
package db

import "time"

// Conversation represents a chat conversation owned by a user. ThreadID is
// the remote provider's thread identifier, assigned lazily on first chat and
// immutable for the mapping's lifetime; a "new thread" request writes a
// fresh mapping rather than mutating the remote thread.
type Conversation struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	UserID      string    `json:"user_id" gorm:"index;size:36;not null"`
	AssistantID string    `json:"assistant_id,omitempty" gorm:"index;size:36"`
	ThreadID    string    `json:"thread_id,omitempty" gorm:"index;size:64"`
	Title       string    `json:"title" gorm:"size:200;default:'New Chat'"`
	Status      string    `json:"status" gorm:"size:20;default:'active'"` // active, archived
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// Conversation status
const (
	ConversationStatusActive   = "active"
	ConversationStatusArchived = "archived"
)
