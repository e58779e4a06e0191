package service

import (
	"errors"
	"testing"
	"time"

	"github.com/threadgate/threadgate/pkg/db"
)

func TestAuth_RegisterAndLogin(t *testing.T) {
	gdb := testDB(t)
	auth := NewAuthService(gdb)

	user, err := auth.Register("alice@example.com", "s3cret")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.PasswordHash == "s3cret" {
		t.Fatal("password stored in the clear")
	}

	session, err := auth.Login("alice@example.com", "s3cret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if session.Token == "" {
		t.Fatal("session has no token")
	}

	authed, err := auth.Authenticate(session.Token)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if authed.ID != user.ID {
		t.Errorf("authenticated user = %s, want %s", authed.ID, user.ID)
	}
}

func TestAuth_WrongPassword(t *testing.T) {
	gdb := testDB(t)
	auth := NewAuthService(gdb)

	if _, err := auth.Register("bob@example.com", "right"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := auth.Login("bob@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := auth.Login("nobody@example.com", "right"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email err = %v, want ErrInvalidCredentials", err)
	}
}

func TestAuth_DuplicateEmail(t *testing.T) {
	gdb := testDB(t)
	auth := NewAuthService(gdb)

	if _, err := auth.Register("carol@example.com", "pw"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := auth.Register("carol@example.com", "pw2"); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("err = %v, want ErrEmailTaken", err)
	}
}

func TestAuth_ExpiredSession(t *testing.T) {
	gdb := testDB(t)
	auth := NewAuthService(gdb)

	if _, err := auth.Register("dave@example.com", "pw"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	session, err := auth.Login("dave@example.com", "pw")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	expired := time.Now().Add(-time.Minute)
	if err := gdb.Model(&db.Session{}).Where("token = ?", session.Token).
		Update("expires_at", expired).Error; err != nil {
		t.Fatalf("expire session: %v", err)
	}

	if _, err := auth.Authenticate(session.Token); !errors.Is(err, ErrSessionInvalid) {
		t.Errorf("err = %v, want ErrSessionInvalid", err)
	}

	// The stale session row is gone.
	var count int64
	gdb.Model(&db.Session{}).Where("token = ?", session.Token).Count(&count)
	if count != 0 {
		t.Error("expired session row was not deleted")
	}
}

func TestAuth_Logout(t *testing.T) {
	gdb := testDB(t)
	auth := NewAuthService(gdb)

	if _, err := auth.Register("erin@example.com", "pw"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	session, err := auth.Login("erin@example.com", "pw")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := auth.Logout(session.Token); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, err := auth.Authenticate(session.Token); !errors.Is(err, ErrSessionInvalid) {
		t.Errorf("err = %v, want ErrSessionInvalid after logout", err)
	}
}

func TestAuth_SetAPIKey(t *testing.T) {
	gdb := testDB(t)
	auth := NewAuthService(gdb)

	user, err := auth.Register("frank@example.com", "pw")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := auth.SetAPIKey(user.ID, "sk-user-key"); err != nil {
		t.Fatalf("SetAPIKey failed: %v", err)
	}

	var stored db.User
	if err := gdb.First(&stored, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if stored.APIKey != "sk-user-key" {
		t.Errorf("api key = %q, want sk-user-key", stored.APIKey)
	}
}
