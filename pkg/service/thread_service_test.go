package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/threadgate/threadgate/pkg/config"
	"github.com/threadgate/threadgate/pkg/db"
	"github.com/threadgate/threadgate/pkg/models"
	"github.com/threadgate/threadgate/pkg/utils"
)

func TestEnsureThread_CreatesOnce(t *testing.T) {
	gdb := testDB(t)
	threads := &ThreadService{db: gdb, mode: config.ThreadStoreDatabase, logger: utils.GetLogger()}
	conv := newTestConversation(t, gdb)

	client := &fakeClient{}

	first, err := threads.EnsureThread(context.Background(), client, conv)
	if err != nil {
		t.Fatalf("EnsureThread failed: %v", err)
	}
	second, err := threads.EnsureThread(context.Background(), client, conv)
	if err != nil {
		t.Fatalf("second EnsureThread failed: %v", err)
	}

	if first != second {
		t.Errorf("thread id changed between calls: %q then %q", first, second)
	}
	if client.threadsMade != 1 {
		t.Errorf("remote threads created = %d, want 1", client.threadsMade)
	}

	var stored db.Conversation
	if err := gdb.First(&stored, "id = ?", conv.ID).Error; err != nil {
		t.Fatalf("load conversation: %v", err)
	}
	if stored.ThreadID != first {
		t.Errorf("persisted thread id = %q, want %q", stored.ThreadID, first)
	}
}

func TestEnsureThread_RemoteFailure(t *testing.T) {
	gdb := testDB(t)
	threads := &ThreadService{db: gdb, mode: config.ThreadStoreDatabase, logger: utils.GetLogger()}
	conv := newTestConversation(t, gdb)

	client := &fakeClient{threadErr: errRemoteDown}

	_, err := threads.EnsureThread(context.Background(), client, conv)
	if kind := models.AsAPIError(err).Kind; kind != models.KindRemoteFailure {
		t.Errorf("kind = %q, want %q", kind, models.KindRemoteFailure)
	}

	// Nothing is persisted when remote creation fails.
	var stored db.Conversation
	if err := gdb.First(&stored, "id = ?", conv.ID).Error; err != nil {
		t.Fatalf("load conversation: %v", err)
	}
	if stored.ThreadID != "" {
		t.Errorf("thread id persisted despite remote failure: %q", stored.ThreadID)
	}
}

func TestNewThread_ReplacesMapping(t *testing.T) {
	gdb := testDB(t)
	threads := &ThreadService{db: gdb, mode: config.ThreadStoreDatabase, logger: utils.GetLogger()}
	conv := newTestConversation(t, gdb)

	client := &fakeClient{}

	first, err := threads.EnsureThread(context.Background(), client, conv)
	if err != nil {
		t.Fatalf("EnsureThread failed: %v", err)
	}
	replacement, err := threads.NewThread(context.Background(), client, conv)
	if err != nil {
		t.Fatalf("NewThread failed: %v", err)
	}

	if replacement == first {
		t.Errorf("NewThread reused the old thread id %q", first)
	}
	if got, err := threads.EnsureThread(context.Background(), client, conv); err != nil || got != replacement {
		t.Errorf("EnsureThread after replacement = %q (%v), want %q", got, err, replacement)
	}
}

func TestFileThreadStore_PutGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "threads.json")
	store := NewFileThreadStore(path)

	if id, err := store.Get("conv_1"); err != nil || id != "" {
		t.Fatalf("Get on empty store = %q, %v; want empty, nil", id, err)
	}

	if err := store.Put("conv_1", "thread_a"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Put("conv_2", "thread_b"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// A second store over the same file sees both mappings.
	reopened := NewFileThreadStore(path)
	if id, _ := reopened.Get("conv_1"); id != "thread_a" {
		t.Errorf("conv_1 -> %q, want thread_a", id)
	}
	if id, _ := reopened.Get("conv_2"); id != "thread_b" {
		t.Errorf("conv_2 -> %q, want thread_b", id)
	}

	if err := store.Put("conv_1", "thread_c"); err != nil {
		t.Fatalf("replace failed: %v", err)
	}
	if id, _ := store.Get("conv_1"); id != "thread_c" {
		t.Errorf("conv_1 after replace -> %q, want thread_c", id)
	}
}

func TestEnsureThread_FileStore(t *testing.T) {
	gdb := testDB(t)
	threads := &ThreadService{
		db:     gdb,
		mode:   config.ThreadStoreFile,
		file:   NewFileThreadStore(filepath.Join(t.TempDir(), "threads.json")),
		logger: utils.GetLogger(),
	}
	conv := newTestConversation(t, gdb)

	client := &fakeClient{}

	first, err := threads.EnsureThread(context.Background(), client, conv)
	if err != nil {
		t.Fatalf("EnsureThread failed: %v", err)
	}
	second, err := threads.EnsureThread(context.Background(), client, conv)
	if err != nil {
		t.Fatalf("second EnsureThread failed: %v", err)
	}
	if first != second || client.threadsMade != 1 {
		t.Errorf("file store mapping not reused: %q, %q, created %d", first, second, client.threadsMade)
	}
}
