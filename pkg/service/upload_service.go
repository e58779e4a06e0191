// File ingestion - directory filtering, per-file upload and attachment
// reconciliation against a remote assistant
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/threadgate/threadgate/pkg/config"
	"github.com/threadgate/threadgate/pkg/db"
	"github.com/threadgate/threadgate/pkg/event"
	"github.com/threadgate/threadgate/pkg/metrics"
	"github.com/threadgate/threadgate/pkg/models"
	"github.com/threadgate/threadgate/pkg/provider"
	"github.com/threadgate/threadgate/pkg/utils"
)

// FileFilter selects upload candidates under a directory tree: extension in
// the allow-list (case-insensitive) and size under the ceiling. Pure reads,
// symlinks not followed, deterministic lexical order.
type FileFilter struct {
	extensions map[string]bool
	maxBytes   int64
}

// NewFileFilter builds a filter for the given allow-list and size ceiling.
func NewFileFilter(extensions []string, maxBytes int64) *FileFilter {
	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = true
	}
	return &FileFilter{extensions: allowed, maxBytes: maxBytes}
}

// Scan walks root recursively and returns the matching candidates.
// A missing root is a not-found error; a tree with zero matches is the
// recoverable "no compatible files" condition.
func (f *FileFilter) Scan(root string) ([]models.UploadCandidate, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, models.NewAPIError(models.KindNotFound, fmt.Sprintf("directory %s does not exist", root))
		}
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, models.NewAPIError(models.KindValidation, fmt.Sprintf("%s is not a directory", root))
	}

	var candidates []models.UploadCandidate
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if !f.extensions[strings.ToLower(filepath.Ext(d.Name()))] {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		if f.maxBytes > 0 && fi.Size() > f.maxBytes {
			return nil
		}
		candidates = append(candidates, models.UploadCandidate{
			Path: path,
			Name: d.Name(),
			Size: fi.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	if len(candidates) == 0 {
		return nil, models.NewAPIError(models.KindNoCompatibleFiles,
			fmt.Sprintf("no compatible files under %s", root))
	}
	return candidates, nil
}

// MergeFileIDs returns the deduplicated union of existing and added ids,
// preserving insertion order: existing first, then new ids in upload order.
func MergeFileIDs(existing, added []string) []string {
	seen := make(map[string]bool, len(existing)+len(added))
	merged := make([]string, 0, len(existing)+len(added))
	for _, id := range existing {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		merged = append(merged, id)
	}
	for _, id := range added {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		merged = append(merged, id)
	}
	return merged
}

// UploadService orchestrates single and batch uploads and the attachment
// reconciliation that follows them.
type UploadService struct {
	db        *gorm.DB
	exts      []string
	singleMax int64
	dirMax    int64
	logger    *slog.Logger
}

// NewUploadService creates the upload orchestrator from config policy.
func NewUploadService(gdb *gorm.DB, cfg *config.AppConfig) *UploadService {
	return &UploadService{
		db:        gdb,
		exts:      cfg.UploadExtensions(),
		singleMax: cfg.SingleMaxBytes(),
		dirMax:    cfg.DirectoryMaxBytes(),
		logger:    utils.GetLogger(),
	}
}

// SingleMaxBytes exposes the single-file ceiling for request validation.
func (s *UploadService) SingleMaxBytes() int64 { return s.singleMax }

// UploadSingle uploads one multipart payload and reconciles it into the
// assistant's attachment list. A failed upload is fatal for this shape.
func (s *UploadService) UploadSingle(ctx context.Context, client provider.Client, assistant *db.Assistant, name string, r io.Reader, size int64, purpose string) (*models.UploadResult, error) {
	if s.singleMax > 0 && size > s.singleMax {
		return nil, models.NewAPIError(models.KindValidation,
			fmt.Sprintf("file %s exceeds the %d byte limit", name, s.singleMax))
	}

	fileID, err := client.UploadFile(ctx, name, r, purpose)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("failed").Inc()
		return nil, models.NewAPIError(models.KindRemoteFailure, fmt.Sprintf("upload %s: %v", name, err))
	}
	metrics.UploadsTotal.WithLabelValues("uploaded").Inc()

	if err := s.Reconcile(ctx, client, assistant, []string{fileID}); err != nil {
		return nil, err
	}

	event.Emit(event.UploadFinishedEvent{Uploaded: 1})
	return &models.UploadResult{Uploaded: 1, FileIDs: []string{fileID}}, nil
}

// UploadDirectory filters dir, uploads the candidates sequentially and
// reconciles the successes in one batch. A single bad file never aborts the
// batch; zero successes from a non-empty candidate set is the distinct
// total-failure condition.
func (s *UploadService) UploadDirectory(ctx context.Context, client provider.Client, assistant *db.Assistant, dir, purpose string) (*models.UploadResult, error) {
	filter := NewFileFilter(s.exts, s.dirMax)
	candidates, err := filter.Scan(dir)
	if err != nil {
		return nil, err
	}

	result := &models.UploadResult{}
	for _, cand := range candidates {
		fileID, err := s.uploadCandidate(ctx, client, cand, purpose)
		if err != nil {
			s.logger.Warn("file upload failed", "file", cand.Name, "error", err)
			metrics.UploadsTotal.WithLabelValues("failed").Inc()
			result.Failures = append(result.Failures, models.UploadFailure{
				File:   cand.Name,
				Detail: err.Error(),
			})
			continue
		}
		metrics.UploadsTotal.WithLabelValues("uploaded").Inc()
		result.FileIDs = append(result.FileIDs, fileID)
		result.Uploaded++
	}

	if result.Uploaded == 0 {
		return nil, models.NewAPIError(models.KindTotalBatchFailure,
			fmt.Sprintf("all %d compatible files failed to upload", len(candidates)))
	}

	// One reconciliation per batch, never per file.
	if err := s.Reconcile(ctx, client, assistant, result.FileIDs); err != nil {
		return nil, err
	}

	event.Emit(event.UploadFinishedEvent{Uploaded: result.Uploaded, Failed: len(result.Failures)})
	return result, nil
}

func (s *UploadService) uploadCandidate(ctx context.Context, client provider.Client, cand models.UploadCandidate, purpose string) (string, error) {
	f, err := os.Open(cand.Path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", cand.Path, err)
	}
	defer f.Close()
	return client.UploadFile(ctx, cand.Name, f, purpose)
}

// Reconcile merges newly uploaded ids into the assistant's attachment list
// with set-union semantics and persists the result in a single update call.
// An empty addition is a no-op success. The read-modify-write has no
// optimistic-lock check; concurrent batches to one assistant are
// last-write-wins (known gap, intentionally not fixed here).
func (s *UploadService) Reconcile(ctx context.Context, client provider.Client, assistant *db.Assistant, newIDs []string) error {
	if assistant == nil || len(newIDs) == 0 {
		return nil
	}

	remote, err := client.RetrieveAssistant(ctx, assistant.RemoteID)
	if err != nil {
		return models.NewAPIError(models.KindRemoteFailure, fmt.Sprintf("retrieve assistant: %v", err))
	}

	merged := MergeFileIDs(remote.FileIDs, newIDs)
	if len(merged) == len(remote.FileIDs) {
		// Every new id was already attached.
		return nil
	}

	if err := client.UpdateAssistantFiles(ctx, assistant.RemoteID, remote.Model, merged); err != nil {
		return models.NewAPIError(models.KindRemoteFailure, fmt.Sprintf("update assistant: %v", err))
	}

	// Refresh the local cache of the attachment list.
	assistant.FileIDs = datatypes.NewJSONSlice(merged)
	updates := map[string]interface{}{"file_ids": assistant.FileIDs, "updated_at": time.Now()}
	if err := s.db.Model(&db.Assistant{}).Where("id = ?", assistant.ID).Updates(updates).Error; err != nil {
		s.logger.Error("failed to cache attachment list", "assistant_id", assistant.ID, "error", err)
	}
	return nil
}
