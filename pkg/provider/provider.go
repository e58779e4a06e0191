// Package provider wraps the remote assistant service behind the narrow
// surface the gateway consumes: threads, messages, runs, files and the
// assistant attachment list. No call is retried; transient failures are
// the caller's to classify (fail fast, documented behavior).
package provider

import (
	"context"
	"io"
)

// Run statuses as reported by the remote provider. TimedOut is synthesized
// locally by the poller and never appears here.
const (
	StatusQueued         = "queued"
	StatusInProgress     = "in_progress"
	StatusRequiresAction = "requires_action"
	StatusCancelling     = "cancelling"
	StatusCompleted      = "completed"
	StatusFailed         = "failed"
	StatusCancelled      = "cancelled"
	StatusExpired        = "expired"
)

// TerminalFailure reports whether a remote status ends a run unsuccessfully.
func TerminalFailure(status string) bool {
	switch status {
	case StatusFailed, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// Run is the provider's view of a run at one poll.
type Run struct {
	ID        string
	Status    string
	LastError string
}

// ThreadMessage is one message in a thread's listing.
type ThreadMessage struct {
	ID        string
	Role      string
	RunID     string
	Text      string
	CreatedAt int64
}

// Assistant is the subset of a remote assistant record the gateway reads.
type Assistant struct {
	ID      string
	Name    string
	Model   string
	FileIDs []string
}

// Client is the remote surface consumed by the services. Implemented by the
// live OpenAI client; tests substitute fakes.
type Client interface {
	CreateThread(ctx context.Context) (string, error)
	CreateUserMessage(ctx context.Context, threadID, text string) (string, error)
	CreateRun(ctx context.Context, threadID, assistantID string) (Run, error)
	RetrieveRun(ctx context.Context, threadID, runID string) (Run, error)
	ListMessages(ctx context.Context, threadID string, limit int) ([]ThreadMessage, error)
	UploadFile(ctx context.Context, name string, r io.Reader, purpose string) (string, error)
	RetrieveAssistant(ctx context.Context, assistantID string) (Assistant, error)
	UpdateAssistantFiles(ctx context.Context, assistantID, model string, fileIDs []string) error
	ListAssistants(ctx context.Context, limit int) ([]Assistant, error)
}

// Factory builds a client for one request. Multi-tenant deployments hand
// each user's stored API key to the factory; an empty key means the
// server-wide fallback.
type Factory func(apiKey string) Client
