// File ingestion HTTP handlers
package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/threadgate/threadgate/pkg/db"
	"github.com/threadgate/threadgate/pkg/models"
	"github.com/threadgate/threadgate/pkg/provider"
	"github.com/threadgate/threadgate/pkg/service"
)

// FileHandler handles single-file and directory-batch uploads.
type FileHandler struct {
	uploads    *service.UploadService
	assistants *service.AssistantService
	factory    provider.Factory
	logger     *slog.Logger
}

// NewFileHandler creates a new file handler.
func NewFileHandler(uploads *service.UploadService, assistants *service.AssistantService, factory provider.Factory, logger *slog.Logger) *FileHandler {
	return &FileHandler{
		uploads:    uploads,
		assistants: assistants,
		factory:    factory,
		logger:     logger,
	}
}

// RegisterRoutes registers upload routes.
func (h *FileHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/files", h.Upload)
}

// Upload accepts exactly one of two shapes, decided here and nowhere
// deeper: a multipart payload with a "file" field, or a JSON body naming a
// server-local "directory". Both or neither is a validation error, never a
// silent default.
// POST /api/files
func (h *FileHandler) Upload(c *gin.Context) {
	kind, err := h.sourceKind(c)
	if err != nil {
		respondError(c, err)
		return
	}

	switch kind {
	case models.UploadSourceSingleFile:
		h.uploadSingle(c)
	case models.UploadSourceDirectory:
		h.uploadDirectory(c)
	}
}

func (h *FileHandler) sourceKind(c *gin.Context) (models.UploadSourceKind, error) {
	contentType := c.ContentType()
	if strings.HasPrefix(contentType, "multipart/") {
		hasFile := false
		if _, err := c.FormFile("file"); err == nil {
			hasFile = true
		}
		hasDirectory := c.Request.FormValue("directory") != ""
		switch {
		case hasFile && hasDirectory:
			return "", models.NewAPIError(models.KindValidation, "provide either a file or a directory, not both")
		case hasFile:
			return models.UploadSourceSingleFile, nil
		default:
			return "", models.NewAPIError(models.KindValidation, "multipart upload requires a 'file' field")
		}
	}
	return models.UploadSourceDirectory, nil
}

func (h *FileHandler) uploadSingle(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		respondError(c, models.NewAPIError(models.KindValidation, "multipart upload requires a 'file' field"))
		return
	}

	user := currentUser(c)
	assistant, err := h.resolveAssistant(c, user.ID, c.Request.FormValue("assistant_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	src, err := header.Open()
	if err != nil {
		respondError(c, models.NewAPIError(models.KindValidation, "unreadable file payload"))
		return
	}
	defer src.Close()

	result, err := h.uploads.UploadSingle(c.Request.Context(), clientFor(h.factory, user),
		assistant, header.Filename, src, header.Size, c.Request.FormValue("purpose"))
	if err != nil {
		h.logger.Error("single upload failed", "file", header.Filename, "error", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *FileHandler) uploadDirectory(c *gin.Context) {
	var req models.DirectoryUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Directory) == "" {
		respondError(c, models.NewAPIError(models.KindValidation, "provide either a file or a directory"))
		return
	}

	user := currentUser(c)
	assistant, err := h.resolveAssistant(c, user.ID, req.AssistantID)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.uploads.UploadDirectory(c.Request.Context(), clientFor(h.factory, user),
		assistant, req.Directory, req.Purpose)
	if err != nil {
		if apiErr := models.AsAPIError(err); apiErr.HTTPStatus() >= http.StatusInternalServerError {
			h.logger.Error("directory upload failed", "directory", req.Directory, "kind", apiErr.Kind)
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// resolveAssistant loads the attachment target. Uploads without an
// assistant id are allowed and simply skip reconciliation.
func (h *FileHandler) resolveAssistant(c *gin.Context, userID, assistantID string) (*db.Assistant, error) {
	if assistantID == "" {
		return nil, nil
	}
	return h.assistants.Get(userID, assistantID)
}
