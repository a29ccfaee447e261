package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound = errors.New("chat session not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

const defaultTitle = "New conversation"

type Service struct {
	repo Repository
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// CreateSession opens a new conversation for the user.
func (s *Service) CreateSession(ctx context.Context, userID, title string) (ChatSession, error) {
	if userID == "" {
		return ChatSession{}, ErrInvalidArgument
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultTitle
	}
	now := s.clock().UTC()
	sess := ChatSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.InsertSession(ctx, sess); err != nil {
		return ChatSession{}, err
	}
	return sess, nil
}

// ListSessions returns the user's conversations, most recently active first.
func (s *Service) ListSessions(ctx context.Context, userID string) ([]ChatSession, error) {
	if userID == "" {
		return nil, ErrInvalidArgument
	}
	return s.repo.ListSessions(ctx, userID)
}

func (s *Service) GetSession(ctx context.Context, userID, sessionID string) (ChatSession, error) {
	if userID == "" || sessionID == "" {
		return ChatSession{}, ErrInvalidArgument
	}
	return s.repo.GetSession(ctx, userID, sessionID)
}

// DeleteSession removes the conversation and its messages.
func (s *Service) DeleteSession(ctx context.Context, userID, sessionID string) error {
	if userID == "" || sessionID == "" {
		return ErrInvalidArgument
	}
	return s.repo.DeleteSession(ctx, userID, sessionID)
}

// AppendMessage stores one turn and marks the session as recently active.
func (s *Service) AppendMessage(ctx context.Context, userID, sessionID string, role Role, content string) (ChatMessage, error) {
	if userID == "" || sessionID == "" {
		return ChatMessage{}, ErrInvalidArgument
	}
	if !role.Valid() || strings.TrimSpace(content) == "" {
		return ChatMessage{}, ErrInvalidArgument
	}
	msg := ChatMessage{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: s.clock().UTC(),
	}
	if err := s.repo.InsertMessage(ctx, userID, msg); err != nil {
		return ChatMessage{}, err
	}
	return msg, nil
}

// ListMessages returns the session transcript in order.
func (s *Service) ListMessages(ctx context.Context, userID, sessionID string) ([]ChatMessage, error) {
	if userID == "" || sessionID == "" {
		return nil, ErrInvalidArgument
	}
	return s.repo.ListMessages(ctx, userID, sessionID)
}
