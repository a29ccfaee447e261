package assistant

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("assistant not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

// NewAssistant carries the fields needed to register a freshly created
// platform assistant for a user.
type NewAssistant struct {
	PlatformID   string
	Name         string
	FirstMessage string
	SystemPrompt string
	Language     string
	VoiceID      string
	Temperature  float64
}

// UpdateParams are the user-editable fields.
type UpdateParams struct {
	Name         string
	FirstMessage string
	SystemPrompt string
	Language     string
	VoiceID      string
	Temperature  float64
}

type Service struct {
	repo Repository
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// Create registers the user's assistant, replacing any prior one so the
// user ends up with exactly one row.
func (s *Service) Create(ctx context.Context, userID string, in NewAssistant) (Assistant, error) {
	if userID == "" || in.PlatformID == "" {
		return Assistant{}, ErrInvalidArgument
	}
	if in.Name == "" || in.FirstMessage == "" || in.VoiceID == "" {
		return Assistant{}, ErrInvalidArgument
	}
	if in.Temperature < 0 || in.Temperature > 1 {
		return Assistant{}, ErrInvalidArgument
	}

	now := s.clock().UTC()
	a := Assistant{
		ID:           uuid.NewString(),
		UserID:       userID,
		PlatformID:   in.PlatformID,
		Name:         in.Name,
		FirstMessage: in.FirstMessage,
		SystemPrompt: in.SystemPrompt,
		Language:     in.Language,
		VoiceID:      in.VoiceID,
		Temperature:  in.Temperature,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return s.repo.Replace(ctx, a)
}

// Get returns the user's assistant, or ErrNotFound.
func (s *Service) Get(ctx context.Context, userID string) (Assistant, error) {
	if userID == "" {
		return Assistant{}, ErrInvalidArgument
	}
	return s.repo.GetLatestByUser(ctx, userID)
}

func (s *Service) Update(ctx context.Context, userID, id string, p UpdateParams) (Assistant, error) {
	if userID == "" || id == "" {
		return Assistant{}, ErrInvalidArgument
	}
	if p.Name == "" || p.FirstMessage == "" || p.VoiceID == "" {
		return Assistant{}, ErrInvalidArgument
	}
	if p.Temperature < 0 || p.Temperature > 1 {
		return Assistant{}, ErrInvalidArgument
	}

	a := Assistant{
		ID:           id,
		UserID:       userID,
		Name:         p.Name,
		FirstMessage: p.FirstMessage,
		SystemPrompt: p.SystemPrompt,
		Language:     p.Language,
		VoiceID:      p.VoiceID,
		Temperature:  p.Temperature,
		UpdatedAt:    s.clock().UTC(),
	}
	return s.repo.Update(ctx, a)
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if userID == "" || id == "" {
		return ErrInvalidArgument
	}
	return s.repo.Delete(ctx, userID, id)
}
