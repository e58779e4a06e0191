// Thread identity - maps local conversations to remote provider threads
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/threadgate/threadgate/pkg/config"
	"github.com/threadgate/threadgate/pkg/db"
	"github.com/threadgate/threadgate/pkg/models"
	"github.com/threadgate/threadgate/pkg/provider"
	"github.com/threadgate/threadgate/pkg/utils"
)

// ThreadService resolves or creates the remote thread behind a
// conversation. A conversation maps to at most one remote thread at a time;
// NewThread replaces the mapping with a fresh remote thread and never
// mutates the old one. Remote creation has no compensating action: if it
// fails, nothing is persisted.
//
// Two stores exist (see config.ThreadConfig): the relational one is the
// multi-user default, the JSON file one a single-tenant legacy fallback.
// The choice is explicit configuration, never auto-detected.
type ThreadService struct {
	db     *gorm.DB
	mode   string
	file   *FileThreadStore
	logger *slog.Logger
}

// NewThreadService creates a thread service using the configured store.
func NewThreadService(gdb *gorm.DB, cfg *config.AppConfig) *ThreadService {
	s := &ThreadService{
		db:     gdb,
		mode:   cfg.ThreadStore(),
		logger: utils.GetLogger(),
	}
	if s.mode == config.ThreadStoreFile {
		s.file = NewFileThreadStore(cfg.ThreadFile())
	}
	return s
}

// EnsureThread returns the conversation's remote thread id, creating and
// persisting one when the conversation has none yet.
func (s *ThreadService) EnsureThread(ctx context.Context, client provider.Client, conv *db.Conversation) (string, error) {
	if existing := s.lookup(conv); existing != "" {
		return existing, nil
	}

	threadID, err := client.CreateThread(ctx)
	if err != nil {
		return "", models.NewAPIError(models.KindRemoteFailure, fmt.Sprintf("create thread: %v", err))
	}

	if err := s.persist(conv, threadID); err != nil {
		return "", err
	}
	return threadID, nil
}

// NewThread always creates a fresh remote thread and replaces the stored
// mapping. The prior remote thread is abandoned, not deleted.
func (s *ThreadService) NewThread(ctx context.Context, client provider.Client, conv *db.Conversation) (string, error) {
	threadID, err := client.CreateThread(ctx)
	if err != nil {
		return "", models.NewAPIError(models.KindRemoteFailure, fmt.Sprintf("create thread: %v", err))
	}

	if err := s.persist(conv, threadID); err != nil {
		return "", err
	}
	s.logger.Info("replaced thread mapping", "conversation_id", conv.ID, "thread_id", threadID)
	return threadID, nil
}

func (s *ThreadService) lookup(conv *db.Conversation) string {
	if s.mode == config.ThreadStoreFile {
		id, _ := s.file.Get(conv.ID)
		return id
	}
	return conv.ThreadID
}

func (s *ThreadService) persist(conv *db.Conversation, threadID string) error {
	if s.mode == config.ThreadStoreFile {
		if err := s.file.Put(conv.ID, threadID); err != nil {
			return fmt.Errorf("persist thread mapping: %w", err)
		}
		conv.ThreadID = threadID
		return nil
	}

	updates := map[string]interface{}{"thread_id": threadID, "updated_at": time.Now()}
	if err := s.db.Model(&db.Conversation{}).Where("id = ?", conv.ID).Updates(updates).Error; err != nil {
		return fmt.Errorf("persist thread mapping: %w", err)
	}
	conv.ThreadID = threadID
	return nil
}

// FileThreadStore is the legacy single-tenant mapping: one JSON file from
// conversation id to remote thread id.
type FileThreadStore struct {
	path string
	mu   sync.Mutex
}

// NewFileThreadStore creates a file-backed store at path.
func NewFileThreadStore(path string) *FileThreadStore {
	return &FileThreadStore{path: path}
}

// Get returns the mapped thread id, or empty when none exists.
func (f *FileThreadStore) Get(conversationID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, err := f.load()
	if err != nil {
		return "", err
	}
	return m[conversationID], nil
}

// Put replaces the mapping for conversationID.
func (f *FileThreadStore) Put(conversationID, threadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, err := f.load()
	if err != nil {
		return err
	}
	m[conversationID] = threadID

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create thread store dir: %w", err)
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal thread store: %w", err)
	}
	if err := os.WriteFile(f.path, b, 0o600); err != nil {
		return fmt.Errorf("write thread store %s: %w", f.path, err)
	}
	return nil
}

func (f *FileThreadStore) load() (map[string]string, error) {
	b, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read thread store %s: %w", f.path, err)
	}
	m := map[string]string{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse thread store %s: %w", f.path, err)
	}
	return m, nil
}
