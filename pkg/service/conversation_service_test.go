package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/threadgate/threadgate/pkg/db"
	"github.com/threadgate/threadgate/pkg/models"
)

func TestConversation_CreateAndGet(t *testing.T) {
	gdb := testDB(t)
	conversations := NewConversationService(gdb)
	userID := uuid.New().String()

	conv, err := conversations.CreateConversation(userID, &models.CreateConversationRequest{})
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}
	if conv.Title != "New Chat" {
		t.Errorf("default title = %q, want %q", conv.Title, "New Chat")
	}
	if conv.Status != db.ConversationStatusActive {
		t.Errorf("status = %q, want active", conv.Status)
	}

	got, err := conversations.GetConversation(userID, conv.ID)
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if got.ID != conv.ID {
		t.Errorf("got conversation %s, want %s", got.ID, conv.ID)
	}

	// Another user cannot see it.
	if _, err := conversations.GetConversation(uuid.New().String(), conv.ID); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("cross-user get err = %v, want ErrConversationNotFound", err)
	}
}

func TestConversation_CreateWithUnknownAssistant(t *testing.T) {
	gdb := testDB(t)
	conversations := NewConversationService(gdb)

	_, err := conversations.CreateConversation(uuid.New().String(), &models.CreateConversationRequest{
		AssistantID: "does-not-exist",
	})
	if !errors.Is(err, ErrAssistantNotFound) {
		t.Errorf("err = %v, want ErrAssistantNotFound", err)
	}
}

func TestConversation_ListPagination(t *testing.T) {
	gdb := testDB(t)
	conversations := NewConversationService(gdb)
	userID := uuid.New().String()

	for i := 0; i < 5; i++ {
		if _, err := conversations.CreateConversation(userID, &models.CreateConversationRequest{
			Title: fmt.Sprintf("chat %d", i),
		}); err != nil {
			t.Fatalf("CreateConversation failed: %v", err)
		}
	}

	page, hasMore, err := conversations.ListConversations(userID, "", 3, 0)
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}
	if len(page) != 3 || !hasMore {
		t.Errorf("page = %d items, hasMore = %v; want 3, true", len(page), hasMore)
	}

	rest, hasMore, err := conversations.ListConversations(userID, "", 3, 3)
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}
	if len(rest) != 2 || hasMore {
		t.Errorf("rest = %d items, hasMore = %v; want 2, false", len(rest), hasMore)
	}
}

func TestConversation_Archive(t *testing.T) {
	gdb := testDB(t)
	conversations := NewConversationService(gdb)
	userID := uuid.New().String()

	conv, err := conversations.CreateConversation(userID, &models.CreateConversationRequest{})
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	if err := conversations.ArchiveConversation(userID, conv.ID); err != nil {
		t.Fatalf("ArchiveConversation failed: %v", err)
	}

	got, err := conversations.GetConversation(userID, conv.ID)
	if err != nil {
		t.Fatalf("archived conversation should still load: %v", err)
	}
	if got.Status != db.ConversationStatusArchived {
		t.Errorf("status = %q, want archived", got.Status)
	}

	active, _, err := conversations.ListConversations(userID, db.ConversationStatusActive, 10, 0)
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("active list has %d items after archiving, want 0", len(active))
	}

	if err := conversations.ArchiveConversation(userID, "missing"); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("archive missing err = %v, want ErrConversationNotFound", err)
	}
}

func TestConversation_GetMessagesScoped(t *testing.T) {
	gdb := testDB(t)
	conversations := NewConversationService(gdb)
	userID := uuid.New().String()

	conv, err := conversations.CreateConversation(userID, &models.CreateConversationRequest{})
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	msg := &db.Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		Role:           db.RoleUser,
		Content:        "hi",
	}
	if err := gdb.Create(msg).Error; err != nil {
		t.Fatalf("create message: %v", err)
	}

	messages, err := conversations.GetMessages(userID, conv.ID)
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	if len(messages) != 1 || messages[0].Content != "hi" {
		t.Errorf("messages = %+v, want the one created", messages)
	}

	if _, err := conversations.GetMessages(uuid.New().String(), conv.ID); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("cross-user messages err = %v, want ErrConversationNotFound", err)
	}
}
