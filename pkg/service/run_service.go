// Run polling - submits a user message, drives the remote run to a
// terminal state and extracts the assistant's reply
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/threadgate/threadgate/pkg/config"
	"github.com/threadgate/threadgate/pkg/db"
	"github.com/threadgate/threadgate/pkg/event"
	"github.com/threadgate/threadgate/pkg/metrics"
	"github.com/threadgate/threadgate/pkg/models"
	"github.com/threadgate/threadgate/pkg/provider"
	"github.com/threadgate/threadgate/pkg/utils"
)

// messageListLimit bounds the thread listing used for reply extraction.
const messageListLimit = 50

// RunService drives one chat exchange through the remote run lifecycle:
//
//	Created -> Polling -> {Completed, Failed, Cancelled, Expired, TimedOut}
//
// Each invocation owns its {thread id, run id} pair; no state is shared
// between concurrent calls and no per-conversation mutual exclusion is
// taken (interleaving on one thread is the remote provider's concern).
// A locally timed-out run is abandoned, never cancelled remotely.
type RunService struct {
	db          *gorm.DB
	threads     *ThreadService
	chatLog     *ChatLogService
	assistantID string
	interval    time.Duration
	maxAttempts int
	logger      *slog.Logger
}

// NewRunService creates the run poller with the configured polling budget.
func NewRunService(gdb *gorm.DB, threads *ThreadService, chatLog *ChatLogService, cfg *config.AppConfig) *RunService {
	return &RunService{
		db:          gdb,
		threads:     threads,
		chatLog:     chatLog,
		assistantID: cfg.AssistantID(),
		interval:    cfg.PollInterval(),
		maxAttempts: cfg.PollMaxAttempts(),
		logger:      utils.GetLogger(),
	}
}

// Chat appends text to the conversation's thread, runs the assistant and
// returns the reply. Worst-case latency is bounded by
// maxAttempts * interval before a timeout error is reported.
func (s *RunService) Chat(ctx context.Context, client provider.Client, conv *db.Conversation, text string) (*models.ChatResponse, error) {
	if text == "" {
		return nil, models.NewAPIError(models.KindValidation, "message must not be empty")
	}

	assistantID, err := s.resolveAssistant(conv)
	if err != nil {
		return nil, err
	}

	threadID, err := s.threads.EnsureThread(ctx, client, conv)
	if err != nil {
		return nil, err
	}

	started := time.Now()

	remoteMsgID, err := client.CreateUserMessage(ctx, threadID, text)
	if err != nil {
		return nil, models.NewAPIError(models.KindRemoteFailure, fmt.Sprintf("append message: %v", err))
	}

	run, err := client.CreateRun(ctx, threadID, assistantID)
	if err != nil {
		return nil, models.NewAPIError(models.KindRemoteFailure, fmt.Sprintf("start run: %v", err))
	}

	// Created: the user message is on the thread and the run exists. Audit
	// the user line now; the assistant line is appended only on success.
	if err := s.chatLog.Append(db.RoleUser, text); err != nil {
		s.logger.Warn("chat log append failed", "error", err)
	}
	s.saveMessage(conv.ID, db.RoleUser, text, remoteMsgID, run.ID)
	event.Emit(event.RunStartedEvent{ConversationID: conv.ID, ThreadID: threadID, RunID: run.ID})

	run, attempts, err := s.poll(ctx, client, threadID, run)
	metrics.RunPollAttempts.Observe(float64(attempts))
	if err != nil {
		metrics.RunsTotal.WithLabelValues(runOutcome(run, err)).Inc()
		event.Emit(event.RunFailedEvent{ConversationID: conv.ID, RunID: run.ID, Status: run.Status})
		return nil, err
	}

	reply, err := s.extractReply(ctx, client, threadID, run.ID)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("no_response").Inc()
		event.Emit(event.RunFailedEvent{ConversationID: conv.ID, RunID: run.ID, Status: run.Status})
		return nil, err
	}

	if err := s.chatLog.Append(db.RoleAssistant, reply.Text); err != nil {
		s.logger.Warn("chat log append failed", "error", err)
	}
	s.saveMessage(conv.ID, db.RoleAssistant, reply.Text, reply.ID, run.ID)

	metrics.RunsTotal.WithLabelValues(provider.StatusCompleted).Inc()
	metrics.ChatDuration.Observe(time.Since(started).Seconds())
	event.Emit(event.RunCompletedEvent{ConversationID: conv.ID, RunID: run.ID, Attempts: attempts})

	return &models.ChatResponse{
		ConversationID: conv.ID,
		ThreadID:       threadID,
		RunID:          run.ID,
		Reply:          reply.Text,
	}, nil
}

// poll drives the run to a terminal state within the attempt budget. The
// returned attempt count is how many status fetches were spent.
func (s *RunService) poll(ctx context.Context, client provider.Client, threadID string, run provider.Run) (provider.Run, int, error) {
	// The create response already carries a status; a run that is born
	// terminal costs no attempts.
	if done, err := s.classify(run); done {
		return run, 0, err
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := s.wait(ctx); err != nil {
			return run, attempt - 1, models.NewAPIError(models.KindInternal, fmt.Sprintf("polling interrupted: %v", err))
		}

		current, err := client.RetrieveRun(ctx, threadID, run.ID)
		if err != nil {
			return run, attempt, models.NewAPIError(models.KindRemoteFailure, fmt.Sprintf("retrieve run: %v", err))
		}
		run = current

		if done, err := s.classify(run); done {
			return run, attempt, err
		}
	}

	// Attempt budget exhausted without a terminal remote status. This is a
	// local timeout, reported distinctly from the remote "expired" status;
	// the remote run may still complete but is no longer observed.
	return run, s.maxAttempts, models.NewAPIError(models.KindTimeout,
		fmt.Sprintf("run %s still %s after %d attempts", run.ID, run.Status, s.maxAttempts))
}

// classify reports whether the run reached a terminal state and, for the
// failure states, the error to surface. Non-terminal statuses (queued,
// in_progress, requires_action, cancelling) keep polling.
func (s *RunService) classify(run provider.Run) (bool, error) {
	switch {
	case run.Status == provider.StatusCompleted:
		return true, nil
	case provider.TerminalFailure(run.Status):
		detail := fmt.Sprintf("run %s ended with status %s", run.ID, run.Status)
		if run.LastError != "" {
			detail += ": " + run.LastError
		}
		return true, models.NewAPIError(models.KindRemoteFailure, detail)
	default:
		return false, nil
	}
}

// wait suspends only the calling goroutine for one polling interval.
func (s *RunService) wait(ctx context.Context) error {
	timer := time.NewTimer(s.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// extractReply selects the newest assistant message tagged with this run.
// A completed run without one is possible under the provider's semantics
// and is an error, not an empty success.
func (s *RunService) extractReply(ctx context.Context, client provider.Client, threadID, runID string) (*provider.ThreadMessage, error) {
	messages, err := client.ListMessages(ctx, threadID, messageListLimit)
	if err != nil {
		return nil, models.NewAPIError(models.KindRemoteFailure, fmt.Sprintf("list messages: %v", err))
	}

	// Listing is newest-first; the first match is the latest reply.
	for i := range messages {
		m := &messages[i]
		if m.Role == db.RoleAssistant && m.RunID == runID {
			return m, nil
		}
	}
	return nil, models.NewAPIError(models.KindNoResponseFound,
		fmt.Sprintf("run %s completed but produced no assistant message", runID))
}

func (s *RunService) resolveAssistant(conv *db.Conversation) (string, error) {
	if conv.AssistantID != "" {
		var a db.Assistant
		if err := s.db.First(&a, "id = ?", conv.AssistantID).Error; err != nil {
			return "", models.NewAPIError(models.KindNotFound, "assistant not found")
		}
		return a.RemoteID, nil
	}
	if s.assistantID == "" {
		return "", models.NewAPIError(models.KindValidation, "no assistant configured")
	}
	return s.assistantID, nil
}

// saveMessage persists a message row; bookkeeping failures are logged, not
// surfaced, since the exchange itself already happened remotely.
func (s *RunService) saveMessage(conversationID, role, content, remoteID, runID string) {
	msg := &db.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		RemoteID:       remoteID,
		RunID:          runID,
	}
	if err := s.db.Create(msg).Error; err != nil {
		s.logger.Error("failed to save message", "role", role, "error", err)
	}
}

func runOutcome(run provider.Run, err error) string {
	if apiErr := models.AsAPIError(err); apiErr.Kind == models.KindTimeout {
		return "timed_out"
	}
	if provider.TerminalFailure(run.Status) {
		return run.Status
	}
	return "error"
}
