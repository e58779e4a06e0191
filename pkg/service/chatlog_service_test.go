package service

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/threadgate/threadgate/pkg/db"
)

func TestChatLog_AppendsPerDayFile(t *testing.T) {
	dir := t.TempDir()
	logService := NewChatLogService(dir)
	logService.now = func() time.Time {
		return time.Date(2026, 3, 14, 12, 30, 0, 0, time.UTC)
	}

	if err := logService.Append(db.RoleUser, "what is up"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := logService.Append(db.RoleAssistant, "not much"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "chat-2026-03-14.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(b), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("log has %d lines, want 2:\n%s", len(lines), b)
	}
	if lines[0] != "[2026-03-14T12:30:00Z] user: what is up" {
		t.Errorf("line 1 = %q", lines[0])
	}
	if lines[1] != "[2026-03-14T12:30:00Z] assistant: not much" {
		t.Errorf("line 2 = %q", lines[1])
	}
}

func TestChatLog_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "deep", "logs")
	logService := NewChatLogService(dir)

	if err := logService.Append(db.RoleUser, "hello"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("log dir entries = %v, %v; want one file", entries, err)
	}
}
