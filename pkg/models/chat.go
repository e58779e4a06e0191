// API request/response types for chat operations
package models

// ChatRequest submits one user message into a conversation.
type ChatRequest struct {
	ConversationID string `json:"conversation_id" binding:"required"`
	Message        string `json:"message" binding:"required"`
}

// ChatResponse carries the assistant's reply after the run completed.
type ChatResponse struct {
	ConversationID string `json:"conversation_id"`
	ThreadID       string `json:"thread_id"`
	RunID          string `json:"run_id"`
	Reply          string `json:"reply"`
}

// NewThreadResponse reports the fresh remote thread mapping.
type NewThreadResponse struct {
	ConversationID string `json:"conversation_id"`
	ThreadID       string `json:"thread_id"`
}

// CreateConversationRequest creates a conversation, optionally bound to a
// specific assistant record.
type CreateConversationRequest struct {
	Title       string `json:"title"`
	AssistantID string `json:"assistant_id"`
}
