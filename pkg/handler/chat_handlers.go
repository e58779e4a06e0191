// Chat HTTP handlers
package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/threadgate/threadgate/pkg/models"
	"github.com/threadgate/threadgate/pkg/provider"
	"github.com/threadgate/threadgate/pkg/service"
)

// ChatHandler handles chat requests.
type ChatHandler struct {
	runs          *service.RunService
	conversations *service.ConversationService
	factory       provider.Factory
	logger        *slog.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(runs *service.RunService, conversations *service.ConversationService, factory provider.Factory, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		runs:          runs,
		conversations: conversations,
		factory:       factory,
		logger:        logger,
	}
}

// RegisterRoutes registers chat routes.
func (h *ChatHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/chat", h.Chat)
}

// Chat submits one user message and blocks until the run settles. The
// response is either the assistant's reply or a typed error; worst case the
// request lasts the full polling budget before a 504.
// POST /api/chat
func (h *ChatHandler) Chat(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, models.NewAPIError(models.KindValidation, "conversation_id and message are required"))
		return
	}

	user := currentUser(c)
	conv, err := h.conversations.GetConversation(user.ID, req.ConversationID)
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := h.runs.Chat(c.Request.Context(), clientFor(h.factory, user), conv, req.Message)
	if err != nil {
		apiErr := models.AsAPIError(err)
		if apiErr.Kind != models.KindValidation {
			h.logger.Error("chat failed", "conversation_id", conv.ID, "kind", apiErr.Kind, "detail", apiErr.Detail)
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
