package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	FirstStep = 1
	// TestStep is the final step, where the user trials the created assistant.
	TestStep  = 5
	buildStep = 4
)

var ErrNotStarted = errors.New("wizard not started")

// Form holds everything the user enters across the steps.
type Form struct {
	CompanyName         string `json:"company_name"`
	PhoneNumber         string `json:"phone_number"`
	BusinessDescription string `json:"business_description"`
	TargetCustomers     string `json:"target_customers"`
	GreetingPhrase      string `json:"greeting_phrase"`
	VoiceID             string `json:"voice_id"`
	AdditionalDetails   string `json:"additional_details"`
}

// State is one user's wizard progress. ErrorMessage is the inline message
// shown for the current step; it clears on any successful transition.
type State struct {
	UserID       string    `json:"user_id"`
	Step         int       `json:"step"`
	Form         Form      `json:"form"`
	AssistantID  string    `json:"assistant_id,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Store persists wizard progress between requests.
type Store interface {
	Get(ctx context.Context, userID string) (State, error)
	Put(ctx context.Context, st State) error
	Delete(ctx context.Context, userID string) error
}

const (
	wizardKeyPrefix = "wizard:state:"

	// Abandoned wizards expire rather than lingering forever.
	wizardTTL = 24 * time.Hour
)

type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Get(ctx context.Context, userID string) (State, error) {
	raw, err := s.rdb.Get(ctx, wizardKeyPrefix+userID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return State{}, ErrNotStarted
		}
		return State{}, err
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return State{}, err
	}
	return st, nil
}

func (s *RedisStore) Put(ctx context.Context, st State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, wizardKeyPrefix+st.UserID, raw, wizardTTL).Err()
}

func (s *RedisStore) Delete(ctx context.Context, userID string) error {
	return s.rdb.Del(ctx, wizardKeyPrefix+userID).Err()
}

// MemoryStore backs unit tests.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string]State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]State)}
}

func (s *MemoryStore) Get(ctx context.Context, userID string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[userID]
	if !ok {
		return State{}, ErrNotStarted
	}
	return st, nil
}

func (s *MemoryStore) Put(ctx context.Context, st State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[st.UserID] = st
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, userID)
	return nil
}
