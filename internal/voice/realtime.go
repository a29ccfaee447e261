package voice

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"receptionist-platform/internal/config"
)

type EventType string

const (
	EventCallStart EventType = "call-start"
	EventCallEnd   EventType = "call-end"
	EventError     EventType = "error"
)

// Event is one frame from the realtime plane. Error events carry whatever
// combination of fields the platform chose to send.
type Event struct {
	Type       EventType `json:"type"`
	StatusCode int       `json:"statusCode,omitempty"`
	ErrorMsg   string    `json:"errorMsg,omitempty"`
	Message    string    `json:"message,omitempty"`
}

// StartOptions selects a saved platform assistant by id, or an inline config
// when the caller has none. Exactly one of the two should be set.
type StartOptions struct {
	AssistantID string
	Inline      *AssistantRequest
}

// Session is one realtime web-call connection. Events are serialized by the
// read loop, so call-start is always observed before the matching call-end.
type Session interface {
	Start(ctx context.Context, opts StartOptions) error
	Stop() error
	SetMuted(muted bool) error
	Events() <-chan Event
}

// Dialer opens realtime sessions against the platform.
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}

var (
	ErrSessionClosed     = errors.New("realtime session closed")
	ErrAlreadyStarted    = errors.New("realtime session already started")
	ErrNotStarted        = errors.New("realtime session not started")
	ErrInvalidStartInput = errors.New("exactly one of assistant id or inline config must be set")
)

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 5 * time.Second
	stopDrainWindow  = 3 * time.Second
	eventBuffer      = 16
)

type WebSocketDialer struct {
	url       string
	publicKey string
}

func NewWebSocketDialer(cfg config.VoiceConfig) *WebSocketDialer {
	return &WebSocketDialer{url: cfg.RealtimeURL, publicKey: cfg.PublicKey}
}

func (d *WebSocketDialer) Dial(ctx context.Context) (Session, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, d.url, nil)
	if err != nil {
		return nil, err
	}
	return &webSocketSession{
		conn:      conn,
		publicKey: d.publicKey,
		events:    make(chan Event, eventBuffer),
	}, nil
}

type webSocketSession struct {
	conn      *websocket.Conn
	publicKey string

	writeMu sync.Mutex
	started atomic.Bool
	stopped atomic.Bool
	events  chan Event
}

type startFrame struct {
	Type        string            `json:"type"`
	PublicKey   string            `json:"publicKey"`
	AssistantID string            `json:"assistantId,omitempty"`
	Assistant   *AssistantRequest `json:"assistant,omitempty"`
}

type controlFrame struct {
	Type  string `json:"type"`
	Muted bool   `json:"muted"`
}

func (s *webSocketSession) Start(ctx context.Context, opts StartOptions) error {
	if s.stopped.Load() {
		return ErrSessionClosed
	}
	if (opts.AssistantID == "") == (opts.Inline == nil) {
		return ErrInvalidStartInput
	}
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	frame := startFrame{
		Type:        "start",
		PublicKey:   s.publicKey,
		AssistantID: opts.AssistantID,
		Assistant:   opts.Inline,
	}
	if err := s.writeJSON(frame); err != nil {
		s.stopped.Store(true)
		s.conn.Close()
		return err
	}
	go s.readLoop()
	return nil
}

// Stop begins the close handshake. The platform flushes its terminal frames
// (call-end in particular) before replying to the close, so the read loop
// keeps draining until the peer closes or the drain window elapses; the read
// loop owns the final connection close.
func (s *webSocketSession) Stop() error {
	if !s.stopped.CompareAndSwap(false, true) {
		return nil
	}
	s.writeMu.Lock()
	err := s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout),
	)
	s.writeMu.Unlock()
	if !s.started.Load() {
		// No read loop to hand off to.
		return s.conn.Close()
	}
	s.conn.SetReadDeadline(time.Now().Add(stopDrainWindow))
	return err
}

func (s *webSocketSession) SetMuted(muted bool) error {
	if s.stopped.Load() {
		return ErrSessionClosed
	}
	if !s.started.Load() {
		return ErrNotStarted
	}
	return s.writeJSON(controlFrame{Type: "control", Muted: muted})
}

func (s *webSocketSession) Events() <-chan Event {
	return s.events
}

func (s *webSocketSession) writeJSON(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteJSON(v)
}

// readLoop forwards platform frames to the events channel until the peer
// closes or the connection drops. Unknown frame types are skipped.
func (s *webSocketSession) readLoop() {
	defer close(s.events)
	defer s.conn.Close()
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if !s.stopped.Load() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.events <- Event{Type: EventError, Message: err.Error()}
			}
			return
		}
		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			continue
		}
		switch ev.Type {
		case EventCallStart, EventCallEnd, EventError:
			s.events <- ev
		}
	}
}
