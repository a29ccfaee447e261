package callsession

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"receptionist-platform/internal/calllog"
	"receptionist-platform/internal/voice"
)

// sessionRetention is how long a settled session stays in the registry so
// clients can still fetch the final snapshot.
const sessionRetention = 5 * time.Minute

// Manager owns the live-session registry and enforces the one-call-per-user
// cap before a session is created.
type Manager struct {
	dialer voice.Dialer
	logs   *calllog.Service
	caps   ConcurrencyCap
	gate   AudioGate
	logger *slog.Logger
	clock  func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(dialer voice.Dialer, logs *calllog.Service, caps ConcurrencyCap, gate AudioGate, logger *slog.Logger) *Manager {
	return &Manager{
		dialer:   dialer,
		logs:     logs,
		caps:     caps,
		gate:     gate,
		logger:   logger,
		clock:    time.Now,
		sessions: make(map[string]*Session),
	}
}

// StartParams identifies who is calling and which saved assistant to use.
// An empty AssistantID starts the default inline assistant; an empty UserID
// is an anonymous demo call, which is never capped and never logged.
type StartParams struct {
	UserID      string
	AssistantID string
}

// StartCall acquires the user's cap slot and launches the session. A second
// concurrent start for the same user fails with ErrCallInProgress regardless
// of which process holds the first call.
func (m *Manager) StartCall(ctx context.Context, p StartParams) (*Session, error) {
	m.pruneSettled()

	capHeld := false
	if p.UserID != "" {
		ok, err := m.caps.Acquire(ctx, p.UserID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrCallInProgress
		}
		capHeld = true
	}

	s := &Session{
		ID:          uuid.NewString(),
		userID:      p.UserID,
		assistantID: p.AssistantID,
		logs:        m.logs,
		caps:        m.caps,
		gate:        m.gate,
		logger:      m.logger,
		clock:       m.clock,
		state:       StateIdle,
		capHeld:     capHeld,
		done:        make(chan struct{}),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	s.start(ctx, m.dialer)
	return s, nil
}

// pruneSettled evicts sessions whose retention window has elapsed, keeping
// the registry bounded by live calls plus a short tail of settled ones.
func (m *Manager) pruneSettled() {
	cutoff := m.clock().Add(-sessionRetention)
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.settledBefore(cutoff) {
			delete(m.sessions, id)
		}
	}
}

// Get returns the caller's own session; other users' sessions are invisible.
func (m *Manager) Get(userID, sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok || s.userID != userID {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (m *Manager) EndCall(ctx context.Context, userID, sessionID string) error {
	s, err := m.Get(userID, sessionID)
	if err != nil {
		return err
	}
	return s.End()
}

func (m *Manager) SetMuted(ctx context.Context, userID, sessionID string, muted bool) error {
	s, err := m.Get(userID, sessionID)
	if err != nil {
		return err
	}
	return s.SetMuted(muted)
}
