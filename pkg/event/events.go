package event

// Event names
const (
	RunStarted           = "run.started"
	RunCompleted         = "run.completed"
	RunFailed            = "run.failed"
	UploadFinished       = "upload.finished"
	ConversationCreated  = "conversation.created"
	ConversationArchived = "conversation.archived"
)

// RunStartedEvent is emitted once a user message is on the thread and its
// run exists remotely.
type RunStartedEvent struct {
	ConversationID string `json:"conversation_id"`
	ThreadID       string `json:"thread_id"`
	RunID          string `json:"run_id"`
}

func (e RunStartedEvent) EventName() string { return RunStarted }

// RunCompletedEvent is emitted when a run produced a reply.
type RunCompletedEvent struct {
	ConversationID string `json:"conversation_id"`
	RunID          string `json:"run_id"`
	Attempts       int    `json:"attempts"`
}

func (e RunCompletedEvent) EventName() string { return RunCompleted }

// RunFailedEvent is emitted on any unsuccessful terminal path, including
// the local timeout.
type RunFailedEvent struct {
	ConversationID string `json:"conversation_id"`
	RunID          string `json:"run_id"`
	Status         string `json:"status"`
}

func (e RunFailedEvent) EventName() string { return RunFailed }

// UploadFinishedEvent is emitted after a single or batch upload settled.
type UploadFinishedEvent struct {
	Uploaded int `json:"uploaded"`
	Failed   int `json:"failed"`
}

func (e UploadFinishedEvent) EventName() string { return UploadFinished }

// ConversationCreatedEvent is emitted when a conversation is created.
type ConversationCreatedEvent struct {
	ConversationID string `json:"conversation_id"`
}

func (e ConversationCreatedEvent) EventName() string { return ConversationCreated }

// ConversationArchivedEvent is emitted when a conversation is archived.
type ConversationArchivedEvent struct {
	ConversationID string `json:"conversation_id"`
}

func (e ConversationArchivedEvent) EventName() string { return ConversationArchived }
