package callsession

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receptionist-platform/internal/calllog"
	"receptionist-platform/internal/voice"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeVoiceSession struct {
	events   chan voice.Event
	startErr error

	// endOnStop mimics a platform that confirms a stopped call with a final
	// call-end frame before closing the connection.
	endOnStop bool

	mu      sync.Mutex
	opts    voice.StartOptions
	stopped bool
	muted   bool
}

func newFakeVoiceSession() *fakeVoiceSession {
	return &fakeVoiceSession{events: make(chan voice.Event, 8)}
}

func (f *fakeVoiceSession) Start(ctx context.Context, opts voice.StartOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opts = opts
	return f.startErr
}

func (f *fakeVoiceSession) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.stopped {
		f.stopped = true
		if f.endOnStop {
			f.events <- voice.Event{Type: voice.EventCallEnd}
		}
		close(f.events)
	}
	return nil
}

func (f *fakeVoiceSession) SetMuted(muted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.muted = muted
	return nil
}

func (f *fakeVoiceSession) Events() <-chan voice.Event { return f.events }

func (f *fakeVoiceSession) emit(ev voice.Event) { f.events <- ev }

type fakeDialer struct {
	sess *fakeVoiceSession
	err  error
}

func (d *fakeDialer) Dial(ctx context.Context) (voice.Session, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.sess, nil
}

type denyGate struct{}

func (denyGate) Acquire(ctx context.Context) error { return ErrPermissionDenied }
func (denyGate) Release()                          {}

type testEnv struct {
	manager *Manager
	repo    *calllog.MemoryRepository
	voice   *fakeVoiceSession
	clock   *fakeClock
}

func newTestEnv(t *testing.T, gate AudioGate) *testEnv {
	t.Helper()
	repo := calllog.NewMemoryRepository()
	vs := newFakeVoiceSession()
	clock := newFakeClock()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := NewManager(&fakeDialer{sess: vs}, calllog.NewService(repo), NewMemoryCap(), gate, logger)
	m.clock = clock.Now
	return &testEnv{manager: m, repo: repo, voice: vs, clock: clock}
}

func waitSettled(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not settle")
	}
}

func TestCompletedCallWritesOneLog(t *testing.T) {
	env := newTestEnv(t, OpenGate{})
	ctx := context.Background()

	s, err := env.manager.StartCall(ctx, StartParams{UserID: "user-1", AssistantID: "asst-1"})
	require.NoError(t, err)
	assert.Equal(t, StateReady, s.Snapshot().State)

	env.voice.emit(voice.Event{Type: voice.EventCallStart})
	require.Eventually(t, func() bool {
		return s.Snapshot().State == StateCalling
	}, 2*time.Second, 10*time.Millisecond)
	env.clock.Advance(95 * time.Second)
	env.voice.emit(voice.Event{Type: voice.EventCallEnd})
	env.voice.Stop()
	waitSettled(t, s)

	snap := s.Snapshot()
	assert.Equal(t, StateEnded, snap.State)
	assert.Empty(t, snap.ErrorMessage)
	assert.Equal(t, 95, snap.DurationSeconds)

	logs := env.repo.All()
	require.Len(t, logs, 1)
	assert.Equal(t, calllog.StatusCompleted, logs[0].Status)
	assert.Equal(t, "asst-1", logs[0].AssistantID)
	assert.Equal(t, 95, logs[0].DurationSeconds)
	assert.NotEmpty(t, logs[0].CallID)
}

func TestErrorAfterStartWritesFailedLog(t *testing.T) {
	env := newTestEnv(t, OpenGate{})
	ctx := context.Background()

	s, err := env.manager.StartCall(ctx, StartParams{UserID: "user-1", AssistantID: "asst-1"})
	require.NoError(t, err)

	env.voice.emit(voice.Event{Type: voice.EventCallStart})
	env.voice.emit(voice.Event{Type: voice.EventError, StatusCode: 403, ErrorMsg: "forbidden"})
	env.voice.Stop()
	waitSettled(t, s)

	snap := s.Snapshot()
	assert.Equal(t, StateErrored, snap.State)
	assert.Equal(t, msgVoiceService, snap.ErrorMessage)

	logs := env.repo.All()
	require.Len(t, logs, 1)
	assert.Equal(t, calllog.StatusFailed, logs[0].Status)
	assert.Equal(t, msgVoiceService, logs[0].ErrorMessage)
}

func TestAnonymousCallWritesNoLogs(t *testing.T) {
	env := newTestEnv(t, OpenGate{})
	ctx := context.Background()

	s, err := env.manager.StartCall(ctx, StartParams{})
	require.NoError(t, err)

	// Anonymous calls use the default inline assistant.
	env.voice.mu.Lock()
	inline := env.voice.opts.Inline
	env.voice.mu.Unlock()
	require.NotNil(t, inline)
	assert.Equal(t, "AI Assistant", inline.Name)

	env.voice.emit(voice.Event{Type: voice.EventCallStart})
	env.voice.emit(voice.Event{Type: voice.EventCallEnd})
	env.voice.Stop()
	waitSettled(t, s)

	assert.Equal(t, StateEnded, s.Snapshot().State)
	assert.Empty(t, env.repo.All())
}

func TestSecondStartBlockedUntilFirstSettles(t *testing.T) {
	env := newTestEnv(t, OpenGate{})
	ctx := context.Background()

	s, err := env.manager.StartCall(ctx, StartParams{UserID: "user-1", AssistantID: "asst-1"})
	require.NoError(t, err)

	_, err = env.manager.StartCall(ctx, StartParams{UserID: "user-1", AssistantID: "asst-1"})
	assert.ErrorIs(t, err, ErrCallInProgress)

	env.voice.emit(voice.Event{Type: voice.EventCallStart})
	env.voice.emit(voice.Event{Type: voice.EventCallEnd})
	env.voice.Stop()
	waitSettled(t, s)

	// Slot is released once the call settles.
	env2 := newFakeVoiceSession()
	env.manager.dialer = &fakeDialer{sess: env2}
	_, err = env.manager.StartCall(ctx, StartParams{UserID: "user-1", AssistantID: "asst-1"})
	assert.NoError(t, err)
}

func TestMicPermissionDenied(t *testing.T) {
	env := newTestEnv(t, denyGate{})
	ctx := context.Background()

	s, err := env.manager.StartCall(ctx, StartParams{UserID: "user-1", AssistantID: "asst-1"})
	require.NoError(t, err)
	waitSettled(t, s)

	snap := s.Snapshot()
	assert.Equal(t, StateErrored, snap.State)
	assert.Equal(t, msgMicDenied, snap.ErrorMessage)
	assert.Empty(t, env.repo.All())

	// Denial never touches the voice platform.
	env.voice.mu.Lock()
	defer env.voice.mu.Unlock()
	assert.Equal(t, voice.StartOptions{}, env.voice.opts)
}

func TestMuteOnlyWhileCalling(t *testing.T) {
	env := newTestEnv(t, OpenGate{})
	ctx := context.Background()

	s, err := env.manager.StartCall(ctx, StartParams{UserID: "user-1", AssistantID: "asst-1"})
	require.NoError(t, err)
	assert.ErrorIs(t, s.SetMuted(true), ErrNotInCall)

	env.voice.emit(voice.Event{Type: voice.EventCallStart})
	require.Eventually(t, func() bool {
		return s.Snapshot().State == StateCalling
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, s.SetMuted(true))
	assert.True(t, s.Snapshot().Muted)

	env.voice.emit(voice.Event{Type: voice.EventCallEnd})
	env.voice.Stop()
	waitSettled(t, s)
	assert.ErrorIs(t, s.SetMuted(false), ErrNotInCall)
}

func TestSessionScopedToOwner(t *testing.T) {
	env := newTestEnv(t, OpenGate{})
	ctx := context.Background()

	s, err := env.manager.StartCall(ctx, StartParams{UserID: "user-1", AssistantID: "asst-1"})
	require.NoError(t, err)

	_, err = env.manager.Get("user-2", s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, env.manager.EndCall(ctx, "user-2", s.ID), ErrSessionNotFound)

	got, err := env.manager.Get("user-1", s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
}

func TestUserEndRecordsCompleted(t *testing.T) {
	env := newTestEnv(t, OpenGate{})
	env.voice.endOnStop = true
	ctx := context.Background()

	s, err := env.manager.StartCall(ctx, StartParams{UserID: "user-1", AssistantID: "asst-1"})
	require.NoError(t, err)

	env.voice.emit(voice.Event{Type: voice.EventCallStart})
	require.Eventually(t, func() bool {
		return s.Snapshot().State == StateCalling
	}, 2*time.Second, 10*time.Millisecond)
	env.clock.Advance(42 * time.Second)

	require.NoError(t, env.manager.EndCall(ctx, "user-1", s.ID))
	waitSettled(t, s)

	assert.Equal(t, StateEnded, s.Snapshot().State)
	logs := env.repo.All()
	require.Len(t, logs, 1)
	assert.Equal(t, calllog.StatusCompleted, logs[0].Status)
	assert.Equal(t, 42, logs[0].DurationSeconds)
}

func TestSettledSessionsPrunedFromRegistry(t *testing.T) {
	env := newTestEnv(t, OpenGate{})
	ctx := context.Background()

	s, err := env.manager.StartCall(ctx, StartParams{UserID: "user-1", AssistantID: "asst-1"})
	require.NoError(t, err)
	env.voice.emit(voice.Event{Type: voice.EventCallStart})
	env.voice.emit(voice.Event{Type: voice.EventCallEnd})
	env.voice.Stop()
	waitSettled(t, s)

	// The final snapshot stays fetchable inside the retention window.
	_, err = env.manager.Get("user-1", s.ID)
	require.NoError(t, err)

	env.clock.Advance(sessionRetention + time.Second)
	env.manager.dialer = &fakeDialer{sess: newFakeVoiceSession()}
	_, err = env.manager.StartCall(ctx, StartParams{UserID: "user-2", AssistantID: "asst-2"})
	require.NoError(t, err)

	_, err = env.manager.Get("user-1", s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestDroppedConnectionLogsInterrupted(t *testing.T) {
	env := newTestEnv(t, OpenGate{})
	ctx := context.Background()

	s, err := env.manager.StartCall(ctx, StartParams{UserID: "user-1", AssistantID: "asst-1"})
	require.NoError(t, err)

	env.voice.emit(voice.Event{Type: voice.EventCallStart})
	require.Eventually(t, func() bool {
		return s.Snapshot().State == StateCalling
	}, 2*time.Second, 10*time.Millisecond)
	env.clock.Advance(30 * time.Second)
	env.voice.Stop()
	waitSettled(t, s)

	assert.Equal(t, StateEnded, s.Snapshot().State)
	logs := env.repo.All()
	require.Len(t, logs, 1)
	assert.Equal(t, calllog.StatusInterrupted, logs[0].Status)
	assert.Equal(t, 30, logs[0].DurationSeconds)
}

func TestErrorMessagePriority(t *testing.T) {
	cases := []struct {
		name string
		ev   voice.Event
		want string
	}{
		{"403 wins over fields", voice.Event{StatusCode: 403, ErrorMsg: "x", Message: "y"}, msgVoiceService},
		{"errorMsg before message", voice.Event{ErrorMsg: "no capacity", Message: "y"}, "no capacity"},
		{"message as last field", voice.Event{Message: "session expired"}, "session expired"},
		{"fallback", voice.Event{}, msgCallFallback},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, mapErrorMessage(tc.ev))
		})
	}
}
