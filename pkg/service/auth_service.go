// Accounts and sessions
package service

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/threadgate/threadgate/pkg/db"
	"github.com/threadgate/threadgate/pkg/utils"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrSessionInvalid     = errors.New("session invalid or expired")
)

const sessionTTL = 7 * 24 * time.Hour

// AuthService manages accounts, opaque session tokens and the per-user
// provider API key. OAuth and password-reset mail are handled outside this
// service.
type AuthService struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewAuthService creates an auth service.
func NewAuthService(gdb *gorm.DB) *AuthService {
	return &AuthService{db: gdb, logger: utils.GetLogger()}
}

// Register creates an account with a bcrypt password hash.
func (s *AuthService) Register(email, password string) (*db.User, error) {
	var existing db.User
	err := s.db.First(&existing, "email = ?", email).Error
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &db.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Login verifies credentials and opens a session.
func (s *AuthService) Login(email, password string) (*db.Session, error) {
	var user db.User
	if err := s.db.First(&user, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}
	session := &db.Session{
		Token:     token,
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(sessionTTL),
	}
	if err := s.db.Create(session).Error; err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// Logout removes the session; unknown tokens are ignored.
func (s *AuthService) Logout(token string) error {
	return s.db.Delete(&db.Session{}, "token = ?", token).Error
}

// Authenticate resolves a session token to its user.
func (s *AuthService) Authenticate(token string) (*db.User, error) {
	if token == "" {
		return nil, ErrSessionInvalid
	}

	var session db.Session
	if err := s.db.First(&session, "token = ?", token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, err
	}
	if time.Now().After(session.ExpiresAt) {
		_ = s.db.Delete(&db.Session{}, "token = ?", token).Error
		return nil, ErrSessionInvalid
	}

	var user db.User
	if err := s.db.First(&user, "id = ?", session.UserID).Error; err != nil {
		return nil, ErrSessionInvalid
	}
	return &user, nil
}

// SetAPIKey stores the user's provider API key.
func (s *AuthService) SetAPIKey(userID, apiKey string) error {
	return s.db.Model(&db.User{}).Where("id = ?", userID).
		Updates(map[string]interface{}{"api_key": apiKey, "updated_at": time.Now()}).Error
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
