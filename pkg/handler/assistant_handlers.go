// Assistant HTTP handlers
package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/threadgate/threadgate/pkg/provider"
	"github.com/threadgate/threadgate/pkg/service"
)

// AssistantHandler exposes the locally cached assistant catalog.
type AssistantHandler struct {
	assistants *service.AssistantService
	factory    provider.Factory
	logger     *slog.Logger
}

// NewAssistantHandler creates a new assistant handler.
func NewAssistantHandler(assistants *service.AssistantService, factory provider.Factory, logger *slog.Logger) *AssistantHandler {
	return &AssistantHandler{
		assistants: assistants,
		factory:    factory,
		logger:     logger,
	}
}

// RegisterRoutes registers assistant routes.
func (h *AssistantHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/assistants", h.List)
	r.GET("/assistants/:id", h.Get)
	r.GET("/assistants/:id/files", h.Files)
}

// List returns the user's assistants. With ?sync=true the catalog is
// refreshed from the remote API first.
// GET /api/assistants
func (h *AssistantHandler) List(c *gin.Context) {
	user := currentUser(c)

	if c.Query("sync") == "true" {
		assistants, err := h.assistants.Sync(c.Request.Context(), clientFor(h.factory, user), user.ID)
		if err != nil {
			h.logger.Error("assistant sync failed", "user", user.ID, "error", err)
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, assistants)
		return
	}

	assistants, err := h.assistants.List(user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, assistants)
}

// Get returns one assistant.
// GET /api/assistants/:id
func (h *AssistantHandler) Get(c *gin.Context) {
	user := currentUser(c)
	assistant, err := h.assistants.Get(user.ID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, assistant)
}

// Files returns the current remote attachment set for an assistant and
// refreshes the local copy.
// GET /api/assistants/:id/files
func (h *AssistantHandler) Files(c *gin.Context) {
	user := currentUser(c)
	assistant, err := h.assistants.Get(user.ID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	fileIDs, err := h.assistants.Files(c.Request.Context(), clientFor(h.factory, user), assistant)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assistant_id": assistant.ID, "file_ids": fileIDs})
}
