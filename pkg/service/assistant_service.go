// Assistant records - local mirror of remote assistants
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/threadgate/threadgate/pkg/db"
	"github.com/threadgate/threadgate/pkg/models"
	"github.com/threadgate/threadgate/pkg/provider"
	"github.com/threadgate/threadgate/pkg/utils"
)

// AssistantService mirrors remote assistants into local rows so
// conversations and uploads can reference them by stable local ids.
type AssistantService struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewAssistantService creates an assistant service.
func NewAssistantService(gdb *gorm.DB) *AssistantService {
	return &AssistantService{db: gdb, logger: utils.GetLogger()}
}

// Sync lists the user's remote assistants and upserts local rows.
func (s *AssistantService) Sync(ctx context.Context, client provider.Client, userID string) ([]db.Assistant, error) {
	remote, err := client.ListAssistants(ctx, 100)
	if err != nil {
		return nil, models.NewAPIError(models.KindRemoteFailure, fmt.Sprintf("list assistants: %v", err))
	}

	for _, ra := range remote {
		var existing db.Assistant
		err := s.db.First(&existing, "remote_id = ? AND user_id = ?", ra.ID, userID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			row := &db.Assistant{
				ID:       uuid.New().String(),
				UserID:   userID,
				RemoteID: ra.ID,
				Name:     ra.Name,
				Model:    ra.Model,
				FileIDs:  datatypes.NewJSONSlice(ra.FileIDs),
			}
			if err := s.db.Create(row).Error; err != nil {
				return nil, fmt.Errorf("failed to create assistant record: %w", err)
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		updates := map[string]interface{}{
			"name":       ra.Name,
			"model":      ra.Model,
			"file_ids":   datatypes.NewJSONSlice(ra.FileIDs),
			"updated_at": time.Now(),
		}
		if err := s.db.Model(&existing).Updates(updates).Error; err != nil {
			return nil, err
		}
	}

	return s.List(userID)
}

// List returns the user's assistant records.
func (s *AssistantService) List(userID string) ([]db.Assistant, error) {
	var assistants []db.Assistant
	if err := s.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&assistants).Error; err != nil {
		return nil, err
	}
	return assistants, nil
}

// Get returns one assistant record owned by the user.
func (s *AssistantService) Get(userID, id string) (*db.Assistant, error) {
	var a db.Assistant
	if err := s.db.First(&a, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssistantNotFound
		}
		return nil, err
	}
	return &a, nil
}

// Files fetches the authoritative remote attachment list and refreshes the
// local cache.
func (s *AssistantService) Files(ctx context.Context, client provider.Client, a *db.Assistant) ([]string, error) {
	remote, err := client.RetrieveAssistant(ctx, a.RemoteID)
	if err != nil {
		return nil, models.NewAPIError(models.KindRemoteFailure, fmt.Sprintf("retrieve assistant: %v", err))
	}

	updates := map[string]interface{}{
		"file_ids":   datatypes.NewJSONSlice(remote.FileIDs),
		"updated_at": time.Now(),
	}
	if err := s.db.Model(&db.Assistant{}).Where("id = ?", a.ID).Updates(updates).Error; err != nil {
		s.logger.Error("failed to cache attachment list", "assistant_id", a.ID, "error", err)
	}
	return remote.FileIDs, nil
}
