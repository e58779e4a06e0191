// Conversation HTTP handlers
package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/threadgate/threadgate/pkg/models"
	"github.com/threadgate/threadgate/pkg/provider"
	"github.com/threadgate/threadgate/pkg/service"
)

// ConversationHandler handles conversation CRUD and thread management.
type ConversationHandler struct {
	conversations *service.ConversationService
	threads       *service.ThreadService
	factory       provider.Factory
	logger        *slog.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(conversations *service.ConversationService, threads *service.ThreadService, factory provider.Factory, logger *slog.Logger) *ConversationHandler {
	return &ConversationHandler{
		conversations: conversations,
		threads:       threads,
		factory:       factory,
		logger:        logger,
	}
}

// RegisterRoutes registers conversation routes.
func (h *ConversationHandler) RegisterRoutes(r *gin.RouterGroup) {
	conversations := r.Group("/conversations")
	{
		conversations.GET("", h.List)
		conversations.POST("", h.Create)
		conversations.GET(":id", h.Get)
		conversations.PUT(":id/archive", h.Archive)
		conversations.GET(":id/messages", h.Messages)
		conversations.POST(":id/thread", h.NewThread)
	}
}

// List returns the caller's conversations.
// GET /api/conversations?status=active&limit=50&offset=0
func (h *ConversationHandler) List(c *gin.Context) {
	user := currentUser(c)

	limit := 50
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 200 {
		limit = v
	}
	offset := 0
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v >= 0 {
		offset = v
	}

	conversations, hasMore, err := h.conversations.ListConversations(user.ID, c.Query("status"), limit, offset)
	if err != nil {
		h.logger.Error("failed to list conversations", "error", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": conversations, "has_more": hasMore})
}

// Create creates a new conversation.
func (h *ConversationHandler) Create(c *gin.Context) {
	var req models.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, models.NewAPIError(models.KindValidation, "invalid request format"))
		return
	}

	conv, err := h.conversations.CreateConversation(currentUser(c).ID, &req)
	if err != nil {
		h.logger.Error("failed to create conversation", "error", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, conv)
}

// Get returns one conversation.
func (h *ConversationHandler) Get(c *gin.Context) {
	conv, err := h.conversations.GetConversation(currentUser(c).ID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// Archive soft-deletes a conversation.
func (h *ConversationHandler) Archive(c *gin.Context) {
	if err := h.conversations.ArchiveConversation(currentUser(c).ID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "conversation archived"})
}

// Messages returns the conversation's stored messages.
func (h *ConversationHandler) Messages(c *gin.Context) {
	messages, err := h.conversations.GetMessages(currentUser(c).ID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// NewThread creates a fresh remote thread for the conversation, replacing
// the stored mapping. The prior remote thread is abandoned, not mutated.
func (h *ConversationHandler) NewThread(c *gin.Context) {
	user := currentUser(c)
	conv, err := h.conversations.GetConversation(user.ID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	threadID, err := h.threads.NewThread(c.Request.Context(), clientFor(h.factory, user), conv)
	if err != nil {
		h.logger.Error("failed to create thread", "conversation_id", conv.ID, "error", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewThreadResponse{ConversationID: conv.ID, ThreadID: threadID})
}
