package callsession

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"receptionist-platform/internal/calllog"
	"receptionist-platform/internal/voice"
)

type State string

const (
	StateIdle         State = "idle"
	StateInitializing State = "initializing"
	StateReady        State = "ready"
	StateCalling      State = "calling"
	StateEnded        State = "ended"
	StateErrored      State = "errored"
)

// User-facing messages. Wording is part of the product surface; keep stable.
const (
	msgMicDenied    = "Microphone permission was denied. Please allow microphone access to use the AI Assistant."
	msgVoiceService = "An error occurred with the voice service. Please try again."
	msgCallFallback = "An error occurred during the call"
)

var (
	ErrCallInProgress  = errors.New("a call is already in progress for this user")
	ErrSessionNotFound = errors.New("call session not found")
	ErrNotInCall       = errors.New("no active call")
)

// Session is one caller's web-call lifecycle:
// idle -> initializing -> ready -> calling -> (ended | errored).
// The event loop owns all transitions past ready.
type Session struct {
	ID          string
	userID      string
	assistantID string

	logs   *calllog.Service
	caps   ConcurrencyCap
	gate   AudioGate
	logger *slog.Logger
	clock  func() time.Time

	mu           sync.Mutex
	state        State
	muted        bool
	errMsg       string
	callID       string
	callStart    time.Time
	lastDuration int
	settledAt    time.Time
	voiceSess    voice.Session
	capHeld      bool
	gateHeld     bool

	// done closes when the event loop has finished all bookkeeping.
	done chan struct{}
}

// Snapshot is the session view returned to API clients.
type Snapshot struct {
	ID              string `json:"id"`
	State           State  `json:"state"`
	Muted           bool   `json:"muted"`
	ErrorMessage    string `json:"error_message,omitempty"`
	CallID          string `json:"call_id,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:              s.ID,
		State:           s.state,
		Muted:           s.muted,
		ErrorMessage:    s.errMsg,
		CallID:          s.callID,
		DurationSeconds: s.lastDuration,
	}
}

// Done closes once the call has fully settled, including log writes.
func (s *Session) Done() <-chan struct{} { return s.done }

// settledBefore reports whether the session settled at or before cutoff.
// Live sessions never match.
func (s *Session) settledBefore(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.settledAt.IsZero() && !s.settledAt.After(cutoff)
}

// start acquires the audio gate, opens the voice session, and hands off to
// the event loop. Failures land the session in errored; the audio gate is
// tried first so a denied caller never reaches the platform.
func (s *Session) start(ctx context.Context, dialer voice.Dialer) {
	s.mu.Lock()
	s.state = StateInitializing
	s.mu.Unlock()

	if err := s.gate.Acquire(ctx); err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			s.fail(msgMicDenied)
			return
		}
		s.logger.Error("audio gate acquire failed", "session_id", s.ID, "error", err)
		s.fail(msgCallFallback)
		return
	}
	s.mu.Lock()
	s.gateHeld = true
	s.mu.Unlock()

	vs, err := dialer.Dial(ctx)
	if err != nil {
		s.logger.Error("voice dial failed", "session_id", s.ID, "error", err)
		s.fail(msgCallFallback)
		return
	}

	opts := voice.StartOptions{AssistantID: s.assistantID}
	if s.assistantID == "" {
		inline := voice.DefaultInlineConfig()
		opts = voice.StartOptions{Inline: &inline}
	}
	if err := vs.Start(ctx, opts); err != nil {
		s.logger.Error("voice session start failed", "session_id", s.ID, "error", err)
		vs.Stop()
		s.fail(msgCallFallback)
		return
	}

	s.mu.Lock()
	s.voiceSess = vs
	s.state = StateReady
	s.mu.Unlock()

	go s.eventLoop()
}

// End stops the voice session; the event loop finalizes state once the
// platform confirms (or the connection drops). No-op outside a live call.
func (s *Session) End() error {
	s.mu.Lock()
	vs := s.voiceSess
	live := s.state == StateReady || s.state == StateCalling
	s.mu.Unlock()
	if !live || vs == nil {
		return nil
	}
	return vs.Stop()
}

// SetMuted toggles the caller's audio. Valid only mid-call.
func (s *Session) SetMuted(muted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateCalling {
		return ErrNotInCall
	}
	if err := s.voiceSess.SetMuted(muted); err != nil {
		return err
	}
	s.muted = muted
	return nil
}

func (s *Session) eventLoop() {
	defer close(s.done)
	terminal := false
	for ev := range s.voiceSess.Events() {
		switch ev.Type {
		case voice.EventCallStart:
			s.onCallStart()
		case voice.EventCallEnd:
			if !terminal {
				s.onCallEnd()
				terminal = true
			}
		case voice.EventError:
			if !terminal {
				s.onError(ev)
				terminal = true
			}
		}
	}
	if !terminal {
		s.onInterrupted()
	}
}

func (s *Session) onCallStart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return
	}
	s.callID = uuid.NewString()
	s.callStart = s.clock().UTC()
	s.state = StateCalling
}

func (s *Session) onCallEnd() {
	s.finalize(StateEnded, "", calllog.StatusCompleted, "")
}

func (s *Session) onError(ev voice.Event) {
	msg := mapErrorMessage(ev)
	s.finalize(StateErrored, msg, calllog.StatusFailed, msg)
}

func (s *Session) onInterrupted() {
	s.finalize(StateEnded, "", calllog.StatusInterrupted, "")
}

// finalize computes the call duration, writes the log if the call is
// attributable, and resets tracking state. Log failures are telemetry loss
// only; the session still settles.
func (s *Session) finalize(state State, errMsg string, status calllog.Status, logMsg string) {
	s.mu.Lock()
	end := s.clock().UTC()
	var duration int
	tracked := s.callID != "" && !s.callStart.IsZero()
	if tracked {
		duration = int(math.Round(end.Sub(s.callStart).Seconds()))
		s.lastDuration = duration
	}
	rec := calllog.Record{
		CallID:          s.callID,
		AssistantID:     s.assistantID,
		StartTime:       s.callStart,
		EndTime:         end,
		DurationSeconds: duration,
		Status:          status,
		ErrorMessage:    logMsg,
	}
	attributable := tracked && s.userID != "" && s.assistantID != ""
	s.callID = ""
	s.callStart = time.Time{}
	s.muted = false
	s.errMsg = errMsg
	s.state = state
	s.settledAt = end
	s.mu.Unlock()

	if attributable {
		if _, err := s.logs.Append(context.Background(), rec); err != nil {
			s.logger.Error("call log write failed",
				"session_id", s.ID, "call_id", rec.CallID, "error", err)
		}
	}
	s.release()
}

// fail marks the session errored before any call existed. Never logs a call.
func (s *Session) fail(msg string) {
	s.mu.Lock()
	s.errMsg = msg
	s.state = StateErrored
	s.settledAt = s.clock().UTC()
	s.mu.Unlock()
	s.release()
	close(s.done)
}

func (s *Session) release() {
	s.mu.Lock()
	gateHeld, capHeld := s.gateHeld, s.capHeld
	s.gateHeld, s.capHeld = false, false
	s.mu.Unlock()

	if gateHeld {
		s.gate.Release()
	}
	if capHeld {
		if err := s.caps.Release(context.Background(), s.userID); err != nil {
			s.logger.Error("call cap release failed", "session_id", s.ID, "error", err)
		}
	}
}

func mapErrorMessage(ev voice.Event) string {
	if ev.StatusCode == 403 {
		return msgVoiceService
	}
	if ev.ErrorMsg != "" {
		return ev.ErrorMsg
	}
	if ev.Message != "" {
		return ev.Message
	}
	return msgCallFallback
}
