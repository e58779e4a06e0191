// Database models for chat messages
package db

import "time"

// Message represents a stored user or assistant message. RemoteID and RunID
// carry the provider identifiers when known; a user message that started a
// run has exactly one completed assistant counterpart sharing its RunID, or
// none if the run failed.
type Message struct {
	ID             string    `json:"id" gorm:"primaryKey;size:36"`
	ConversationID string    `json:"conversation_id" gorm:"index;size:36;not null"`
	Role           string    `json:"role" gorm:"size:20;not null"` // user, assistant
	Content        string    `json:"content" gorm:"type:text"`
	RemoteID       string    `json:"remote_id,omitempty" gorm:"size:64"`
	RunID          string    `json:"run_id,omitempty" gorm:"index;size:64"`
	CreatedAt      time.Time `json:"created_at"`
}

func (*Message) TableName() string {
	return "messages"
}

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
