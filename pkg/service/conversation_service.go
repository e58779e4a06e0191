// Conversation bookkeeping scoped to the owning user
package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/threadgate/threadgate/pkg/db"
	"github.com/threadgate/threadgate/pkg/event"
	"github.com/threadgate/threadgate/pkg/models"
	"github.com/threadgate/threadgate/pkg/utils"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrAssistantNotFound    = errors.New("assistant not found")
)

// ConversationService handles conversation CRUD. Every query is scoped to
// the owning user; archiving is a soft delete and the only removal path.
type ConversationService struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewConversationService creates a conversation service.
func NewConversationService(gdb *gorm.DB) *ConversationService {
	return &ConversationService{db: gdb, logger: utils.GetLogger()}
}

// CreateConversation creates a new conversation for the user.
func (s *ConversationService) CreateConversation(userID string, req *models.CreateConversationRequest) (*db.Conversation, error) {
	title := req.Title
	if title == "" {
		title = "New Chat"
	}

	if req.AssistantID != "" {
		var a db.Assistant
		if err := s.db.First(&a, "id = ? AND user_id = ?", req.AssistantID, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrAssistantNotFound
			}
			return nil, err
		}
	}

	conv := &db.Conversation{
		ID:          uuid.New().String(),
		UserID:      userID,
		AssistantID: req.AssistantID,
		Title:       title,
		Status:      db.ConversationStatusActive,
	}

	if err := s.db.Create(conv).Error; err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	event.Emit(event.ConversationCreatedEvent{ConversationID: conv.ID})
	return conv, nil
}

// GetConversation retrieves a conversation owned by the user.
func (s *ConversationService) GetConversation(userID, id string) (*db.Conversation, error) {
	var conv db.Conversation
	if err := s.db.First(&conv, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return &conv, nil
}

// ListConversations lists the user's conversations, newest activity first.
func (s *ConversationService) ListConversations(userID, status string, limit, offset int) ([]db.Conversation, bool, error) {
	var conversations []db.Conversation

	query := s.db.Where("user_id = ?", userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	// Fetch one more to check if there are more results
	if err := query.Order("updated_at DESC").Limit(limit + 1).Offset(offset).Find(&conversations).Error; err != nil {
		return nil, false, err
	}

	hasMore := len(conversations) > limit
	if hasMore {
		conversations = conversations[:limit]
	}

	return conversations, hasMore, nil
}

// ArchiveConversation soft-deletes a conversation. The remote thread and
// stored messages are kept; protocol correctness never needs a hard delete.
func (s *ConversationService) ArchiveConversation(userID, id string) error {
	res := s.db.Model(&db.Conversation{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{
			"status":     db.ConversationStatusArchived,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConversationNotFound
	}
	event.Emit(event.ConversationArchivedEvent{ConversationID: id})
	return nil
}

// GetMessages retrieves all messages of a conversation owned by the user.
func (s *ConversationService) GetMessages(userID, conversationID string) ([]db.Message, error) {
	if _, err := s.GetConversation(userID, conversationID); err != nil {
		return nil, err
	}

	var messages []db.Message
	if err := s.db.Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}
