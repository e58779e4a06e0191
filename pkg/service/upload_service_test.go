package service

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/threadgate/threadgate/pkg/db"
	"github.com/threadgate/threadgate/pkg/models"
	"github.com/threadgate/threadgate/pkg/provider"
	"github.com/threadgate/threadgate/pkg/utils"
)

func writeFile(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte("x"), size), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func newTestUploadService(t *testing.T, gdb *gorm.DB) *UploadService {
	t.Helper()
	return &UploadService{
		db:        gdb,
		exts:      []string{".txt", ".jsonl"},
		singleMax: 100,
		dirMax:    100,
		logger:    utils.GetLogger(),
	}
}

func newTestAssistant(t *testing.T, gdb *gorm.DB, fileIDs ...string) *db.Assistant {
	t.Helper()
	a := &db.Assistant{
		ID:       uuid.New().String(),
		UserID:   uuid.New().String(),
		RemoteID: "asst_remote_1",
		Model:    "gpt-4o",
		FileIDs:  datatypes.NewJSONSlice(fileIDs),
	}
	if err := gdb.Create(a).Error; err != nil {
		t.Fatalf("create assistant: %v", err)
	}
	return a
}

func TestFileFilter_Scan(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "keep.txt", 10)
	writeFile(t, dir, "UPPER.TXT", 10)
	writeFile(t, dir, "nested/deep/data.jsonl", 10)
	writeFile(t, dir, "skip.exe", 10)
	writeFile(t, dir, "huge.txt", 5000)

	filter := NewFileFilter([]string{".txt", "jsonl"}, 100)
	candidates, err := filter.Scan(dir)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	var names []string
	for _, c := range candidates {
		names = append(names, c.Name)
	}
	want := map[string]bool{"keep.txt": true, "UPPER.TXT": true, "data.jsonl": true}
	if len(names) != len(want) {
		t.Fatalf("candidates = %v, want %d entries", names, len(want))
	}
	for _, n := range names {
		if !want[n] {
			t.Errorf("unexpected candidate %s", n)
		}
	}
}

func TestFileFilter_ScanMissingRoot(t *testing.T) {
	filter := NewFileFilter([]string{".txt"}, 100)
	_, err := filter.Scan(filepath.Join(t.TempDir(), "nope"))
	if kind := models.AsAPIError(err).Kind; kind != models.KindNotFound {
		t.Errorf("kind = %q, want %q", kind, models.KindNotFound)
	}
}

func TestFileFilter_ScanRootIsFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "plain.txt", 5)

	filter := NewFileFilter([]string{".txt"}, 100)
	_, err := filter.Scan(path)
	if kind := models.AsAPIError(err).Kind; kind != models.KindValidation {
		t.Errorf("kind = %q, want %q", kind, models.KindValidation)
	}
}

func TestFileFilter_ScanNoMatches(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "skip.exe", 5)

	filter := NewFileFilter([]string{".txt"}, 100)
	_, err := filter.Scan(dir)
	if kind := models.AsAPIError(err).Kind; kind != models.KindNoCompatibleFiles {
		t.Errorf("kind = %q, want %q", kind, models.KindNoCompatibleFiles)
	}
}

func TestMergeFileIDs(t *testing.T) {
	existing := []string{"a", "b", "c"}
	added := []string{"b", "d", "d", "a", "e"}

	got := MergeFileIDs(existing, added)
	want := []string{"a", "b", "c", "d", "e"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MergeFileIDs = %v, want %v", got, want)
	}

	// Merging the result with the same additions changes nothing.
	again := MergeFileIDs(got, added)
	if !reflect.DeepEqual(again, want) {
		t.Errorf("second merge = %v, want %v", again, want)
	}
}

func TestUploadSingle_TooLarge(t *testing.T) {
	gdb := testDB(t)
	uploads := newTestUploadService(t, gdb)

	_, err := uploads.UploadSingle(context.Background(), &fakeClient{}, nil,
		"big.txt", strings.NewReader("x"), 101, "")
	if kind := models.AsAPIError(err).Kind; kind != models.KindValidation {
		t.Errorf("kind = %q, want %q", kind, models.KindValidation)
	}
}

func TestUploadSingle_AttachesToAssistant(t *testing.T) {
	gdb := testDB(t)
	uploads := newTestUploadService(t, gdb)
	assistant := newTestAssistant(t, gdb, "file_old")

	client := &fakeClient{assistant: provider.Assistant{
		ID: assistant.RemoteID, Model: "gpt-4o", FileIDs: []string{"file_old"},
	}}

	result, err := uploads.UploadSingle(context.Background(), client, assistant,
		"notes.txt", strings.NewReader("hello"), 5, "assistants")
	if err != nil {
		t.Fatalf("UploadSingle failed: %v", err)
	}
	if result.Uploaded != 1 || len(result.FileIDs) != 1 {
		t.Fatalf("result = %+v, want one uploaded file", result)
	}

	if len(client.updatedFileIDs) != 1 {
		t.Fatalf("UpdateAssistantFiles called %d times, want 1", len(client.updatedFileIDs))
	}
	want := []string{"file_old", result.FileIDs[0]}
	if !reflect.DeepEqual(client.updatedFileIDs[0], want) {
		t.Errorf("attached = %v, want %v", client.updatedFileIDs[0], want)
	}
	if client.updatedModel != "gpt-4o" {
		t.Errorf("model = %q, want the remote assistant's model", client.updatedModel)
	}

	// The local attachment cache follows the remote update.
	var stored db.Assistant
	if err := gdb.First(&stored, "id = ?", assistant.ID).Error; err != nil {
		t.Fatalf("load assistant: %v", err)
	}
	if !reflect.DeepEqual([]string(stored.FileIDs), want) {
		t.Errorf("cached file ids = %v, want %v", stored.FileIDs, want)
	}
}

func TestUploadDirectory_PartialFailure(t *testing.T) {
	gdb := testDB(t)
	uploads := newTestUploadService(t, gdb)
	assistant := newTestAssistant(t, gdb)

	dir := t.TempDir()
	writeFile(t, dir, "a.txt", 5)
	writeFile(t, dir, "b.txt", 5)
	writeFile(t, dir, "c.txt", 5)

	client := &fakeClient{
		assistant:  provider.Assistant{ID: assistant.RemoteID, Model: "gpt-4o"},
		uploadErrs: map[string]error{"b.txt": errRemoteDown},
	}

	result, err := uploads.UploadDirectory(context.Background(), client, assistant, dir, "")
	if err != nil {
		t.Fatalf("UploadDirectory failed: %v", err)
	}
	if result.Uploaded != 2 {
		t.Errorf("uploaded = %d, want 2", result.Uploaded)
	}
	if len(result.Failures) != 1 || result.Failures[0].File != "b.txt" {
		t.Errorf("failures = %+v, want one entry for b.txt", result.Failures)
	}

	// One reconciliation for the whole batch.
	if len(client.updatedFileIDs) != 1 {
		t.Fatalf("UpdateAssistantFiles called %d times, want 1", len(client.updatedFileIDs))
	}
	if got := client.updatedFileIDs[0]; len(got) != 2 {
		t.Errorf("attached = %v, want the 2 successful uploads", got)
	}
}

func TestUploadDirectory_TotalFailure(t *testing.T) {
	gdb := testDB(t)
	uploads := newTestUploadService(t, gdb)
	assistant := newTestAssistant(t, gdb)

	dir := t.TempDir()
	writeFile(t, dir, "a.txt", 5)
	writeFile(t, dir, "b.txt", 5)

	client := &fakeClient{
		uploadErrs: map[string]error{"a.txt": errRemoteDown, "b.txt": errRemoteDown},
	}

	_, err := uploads.UploadDirectory(context.Background(), client, assistant, dir, "")
	if kind := models.AsAPIError(err).Kind; kind != models.KindTotalBatchFailure {
		t.Errorf("kind = %q, want %q", kind, models.KindTotalBatchFailure)
	}
	if len(client.updatedFileIDs) != 0 {
		t.Errorf("assistant was updated despite total failure")
	}
}

func TestReconcile_SkipsWhenAlreadyAttached(t *testing.T) {
	gdb := testDB(t)
	uploads := newTestUploadService(t, gdb)
	assistant := newTestAssistant(t, gdb, "file_1")

	client := &fakeClient{assistant: provider.Assistant{
		ID: assistant.RemoteID, Model: "gpt-4o", FileIDs: []string{"file_1", "file_2"},
	}}

	if err := uploads.Reconcile(context.Background(), client, assistant, []string{"file_2"}); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if len(client.updatedFileIDs) != 0 {
		t.Errorf("UpdateAssistantFiles called for an addition that was already attached")
	}
}

func TestReconcile_NilAssistantIsNoop(t *testing.T) {
	gdb := testDB(t)
	uploads := newTestUploadService(t, gdb)

	client := &fakeClient{retrieveAsstErr: errRemoteDown}
	if err := uploads.Reconcile(context.Background(), client, nil, []string{"file_1"}); err != nil {
		t.Fatalf("Reconcile with nil assistant should be a no-op, got %v", err)
	}
}
