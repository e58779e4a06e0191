package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"github.com/threadgate/threadgate/pkg/db"
	"github.com/threadgate/threadgate/pkg/provider"
)

// fakeClient is a scripted provider.Client. Zero values behave like a
// healthy remote: thread creation succeeds, uploads succeed with generated
// ids, runs complete immediately.
type fakeClient struct {
	threadErr    error
	threadIDs    []string
	threadsMade  int
	messageErr   error
	createRunErr error
	initialRun   provider.Run

	// statuses is consumed one per RetrieveRun call; the last entry
	// repeats once exhausted.
	statuses    []string
	lastError   string
	retrieveErr error
	polls       int

	messages []provider.ThreadMessage
	listErr  error

	uploadErrs map[string]error
	uploaded   []string

	assistant         provider.Assistant
	retrieveAsstErr   error
	updatedFileIDs    [][]string
	updatedModel      string
	updateFilesErr    error
	remoteAssistants  []provider.Assistant
	listAssistantsErr error
}

func (f *fakeClient) CreateThread(ctx context.Context) (string, error) {
	if f.threadErr != nil {
		return "", f.threadErr
	}
	f.threadsMade++
	if len(f.threadIDs) >= f.threadsMade {
		return f.threadIDs[f.threadsMade-1], nil
	}
	return fmt.Sprintf("thread_%d", f.threadsMade), nil
}

func (f *fakeClient) CreateUserMessage(ctx context.Context, threadID, text string) (string, error) {
	if f.messageErr != nil {
		return "", f.messageErr
	}
	return "msg_user_1", nil
}

func (f *fakeClient) CreateRun(ctx context.Context, threadID, assistantID string) (provider.Run, error) {
	if f.createRunErr != nil {
		return provider.Run{}, f.createRunErr
	}
	if f.initialRun.ID != "" {
		return f.initialRun, nil
	}
	return provider.Run{ID: "run_1", Status: provider.StatusCompleted}, nil
}

func (f *fakeClient) RetrieveRun(ctx context.Context, threadID, runID string) (provider.Run, error) {
	if f.retrieveErr != nil {
		return provider.Run{}, f.retrieveErr
	}
	idx := f.polls
	if idx >= len(f.statuses) {
		idx = len(f.statuses) - 1
	}
	f.polls++
	return provider.Run{ID: runID, Status: f.statuses[idx], LastError: f.lastError}, nil
}

func (f *fakeClient) ListMessages(ctx context.Context, threadID string, limit int) ([]provider.ThreadMessage, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.messages, nil
}

func (f *fakeClient) UploadFile(ctx context.Context, name string, r io.Reader, purpose string) (string, error) {
	if err, ok := f.uploadErrs[name]; ok {
		return "", err
	}
	f.uploaded = append(f.uploaded, name)
	return fmt.Sprintf("file_%d", len(f.uploaded)), nil
}

func (f *fakeClient) RetrieveAssistant(ctx context.Context, assistantID string) (provider.Assistant, error) {
	if f.retrieveAsstErr != nil {
		return provider.Assistant{}, f.retrieveAsstErr
	}
	return f.assistant, nil
}

func (f *fakeClient) UpdateAssistantFiles(ctx context.Context, assistantID, model string, fileIDs []string) error {
	if f.updateFilesErr != nil {
		return f.updateFilesErr
	}
	f.updatedFileIDs = append(f.updatedFileIDs, fileIDs)
	f.updatedModel = model
	return nil
}

func (f *fakeClient) ListAssistants(ctx context.Context, limit int) ([]provider.Assistant, error) {
	if f.listAssistantsErr != nil {
		return nil, f.listAssistantsErr
	}
	return f.remoteAssistants, nil
}

var errRemoteDown = errors.New("remote unavailable")

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate database: %v", err)
	}
	return gdb
}
