// Chat audit log - append-only side channel, never used for control flow
package service

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ChatLogService appends every user/assistant message to a per-day log
// file. Each line is written with a single O_APPEND write so concurrent
// requests cannot interleave inside one line.
type ChatLogService struct {
	dir string
	now func() time.Time
}

// NewChatLogService creates a chat logger writing under dir.
func NewChatLogService(dir string) *ChatLogService {
	return &ChatLogService{dir: dir, now: time.Now}
}

// Append writes one `[RFC3339] ROLE: text` line to today's log file.
func (s *ChatLogService) Append(role, text string) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create chat log dir %s: %w", s.dir, err)
	}

	now := s.now()
	path := filepath.Join(s.dir, fmt.Sprintf("chat-%s.log", now.Format("2006-01-02")))

	// Opened fresh per write; O_APPEND makes each write atomic across tasks.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open chat log %s: %w", path, err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] %s: %s\n", now.Format(time.RFC3339), role, text)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("append chat log %s: %w", path, err)
	}
	return nil
}
