package chat

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository backs unit tests.
type MemoryRepository struct {
	mu       sync.Mutex
	sessions map[string]ChatSession
	messages map[string][]ChatMessage
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		sessions: make(map[string]ChatSession),
		messages: make(map[string][]ChatMessage),
	}
}

func (r *MemoryRepository) InsertSession(ctx context.Context, s ChatSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
	return nil
}

func (r *MemoryRepository) ListSessions(ctx context.Context, userID string) ([]ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ChatSession, 0)
	for _, s := range r.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *MemoryRepository) GetSession(ctx context.Context, userID, sessionID string) (ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok || s.UserID != userID {
		return ChatSession{}, ErrSessionNotFound
	}
	return s, nil
}

func (r *MemoryRepository) DeleteSession(ctx context.Context, userID, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok || s.UserID != userID {
		return ErrSessionNotFound
	}
	delete(r.sessions, sessionID)
	delete(r.messages, sessionID)
	return nil
}

func (r *MemoryRepository) InsertMessage(ctx context.Context, userID string, m ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[m.SessionID]
	if !ok || s.UserID != userID {
		return ErrSessionNotFound
	}
	s.UpdatedAt = m.CreatedAt
	r.sessions[m.SessionID] = s
	r.messages[m.SessionID] = append(r.messages[m.SessionID], m)
	return nil
}

func (r *MemoryRepository) ListMessages(ctx context.Context, userID, sessionID string) ([]ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok || s.UserID != userID {
		return []ChatMessage{}, nil
	}
	out := append([]ChatMessage(nil), r.messages[sessionID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
