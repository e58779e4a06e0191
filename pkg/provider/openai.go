package provider

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
)

// openaiClient is the live implementation of Client.
type openaiClient struct {
	api *openai.Client
}

// New returns a Client talking to the OpenAI Assistants API. baseURL is
// optional and overrides the library default (useful for regional proxies).
func New(apiKey, baseURL string) Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &openaiClient{api: openai.NewClientWithConfig(cfg)}
}

// NewFactory returns a per-user client factory. An empty per-user key falls
// back to the server-wide key.
func NewFactory(fallbackKey, baseURL string) Factory {
	return func(apiKey string) Client {
		if apiKey == "" {
			apiKey = fallbackKey
		}
		return New(apiKey, baseURL)
	}
}

func (c *openaiClient) CreateThread(ctx context.Context) (string, error) {
	thread, err := c.api.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", errors.Wrap(err, "create thread")
	}
	return thread.ID, nil
}

func (c *openaiClient) CreateUserMessage(ctx context.Context, threadID, text string) (string, error) {
	msg, err := c.api.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    openai.ChatMessageRoleUser,
		Content: text,
	})
	if err != nil {
		return "", errors.Wrapf(err, "create message in thread %s", threadID)
	}
	return msg.ID, nil
}

func (c *openaiClient) CreateRun(ctx context.Context, threadID, assistantID string) (Run, error) {
	run, err := c.api.CreateRun(ctx, threadID, openai.RunRequest{AssistantID: assistantID})
	if err != nil {
		return Run{}, errors.Wrapf(err, "create run in thread %s", threadID)
	}
	return toRun(run), nil
}

func (c *openaiClient) RetrieveRun(ctx context.Context, threadID, runID string) (Run, error) {
	run, err := c.api.RetrieveRun(ctx, threadID, runID)
	if err != nil {
		return Run{}, errors.Wrapf(err, "retrieve run %s", runID)
	}
	return toRun(run), nil
}

func (c *openaiClient) ListMessages(ctx context.Context, threadID string, limit int) ([]ThreadMessage, error) {
	order := "desc"
	list, err := c.api.ListMessage(ctx, threadID, &limit, &order, nil, nil, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "list messages in thread %s", threadID)
	}

	messages := make([]ThreadMessage, 0, len(list.Messages))
	for _, m := range list.Messages {
		tm := ThreadMessage{
			ID:        m.ID,
			Role:      m.Role,
			CreatedAt: int64(m.CreatedAt),
		}
		if m.RunID != nil {
			tm.RunID = *m.RunID
		}
		for _, part := range m.Content {
			if part.Text != nil {
				tm.Text = part.Text.Value
				break
			}
		}
		messages = append(messages, tm)
	}
	return messages, nil
}

func (c *openaiClient) UploadFile(ctx context.Context, name string, r io.Reader, purpose string) (string, error) {
	if purpose == "" {
		purpose = string(openai.PurposeAssistants)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", errors.Wrapf(err, "read upload source %s", name)
	}

	file, err := c.api.CreateFileBytes(ctx, openai.FileBytesRequest{
		Name:    name,
		Bytes:   data,
		Purpose: openai.PurposeType(purpose),
	})
	if err != nil {
		return "", errors.Wrapf(err, "upload file %s", name)
	}
	return file.ID, nil
}

func (c *openaiClient) RetrieveAssistant(ctx context.Context, assistantID string) (Assistant, error) {
	a, err := c.api.RetrieveAssistant(ctx, assistantID)
	if err != nil {
		return Assistant{}, errors.Wrapf(err, "retrieve assistant %s", assistantID)
	}
	return toAssistant(a), nil
}

func (c *openaiClient) UpdateAssistantFiles(ctx context.Context, assistantID, model string, fileIDs []string) error {
	_, err := c.api.ModifyAssistant(ctx, assistantID, openai.AssistantRequest{
		Model:   model,
		FileIDs: fileIDs,
	})
	if err != nil {
		return errors.Wrapf(err, "update assistant %s files", assistantID)
	}
	return nil
}

func (c *openaiClient) ListAssistants(ctx context.Context, limit int) ([]Assistant, error) {
	list, err := c.api.ListAssistants(ctx, &limit, nil, nil, nil)
	if err != nil {
		return nil, errors.Wrap(err, "list assistants")
	}
	assistants := make([]Assistant, 0, len(list.Assistants))
	for _, a := range list.Assistants {
		assistants = append(assistants, toAssistant(a))
	}
	return assistants, nil
}

func toRun(run openai.Run) Run {
	r := Run{ID: run.ID, Status: string(run.Status)}
	if run.LastError != nil {
		r.LastError = fmt.Sprintf("%v: %s", run.LastError.Code, run.LastError.Message)
	}
	return r
}

func toAssistant(a openai.Assistant) Assistant {
	out := Assistant{ID: a.ID, Model: a.Model, FileIDs: a.FileIDs}
	if a.Name != nil {
		out.Name = *a.Name
	}
	return out
}
