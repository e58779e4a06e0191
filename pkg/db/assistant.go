// Database models for assistant records
package db

import (
	"time"

	"gorm.io/datatypes"
)

// Assistant mirrors a remote assistant owned by a user. FileIDs caches the
// remote attachment list as last seen by the reconciler; the remote record
// stays authoritative.
type Assistant struct {
	ID        string                     `json:"id" gorm:"primaryKey;size:36"`
	UserID    string                     `json:"user_id" gorm:"index;size:36;not null"`
	RemoteID  string                     `json:"remote_id" gorm:"uniqueIndex;size:64;not null"`
	Name      string                     `json:"name" gorm:"size:200"`
	Model     string                     `json:"model" gorm:"size:100"`
	FileIDs   datatypes.JSONSlice[string] `json:"file_ids"`
	CreatedAt time.Time                  `json:"created_at"`
	UpdatedAt time.Time                  `json:"updated_at"`
}

func (Assistant) TableName() string {
	return "assistants"
}
