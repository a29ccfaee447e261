package calllog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidArgument = errors.New("invalid argument")

// Record carries the fields the call session supplies when a call finishes.
type Record struct {
	CallID          string
	AssistantID     string
	StartTime       time.Time
	EndTime         time.Time
	DurationSeconds int
	Status          Status
	ErrorMessage    string
}

type Service struct {
	repo Repository
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// Append writes one immutable call log row.
// Callers on the call path treat failures as telemetry loss, not call failure.
func (s *Service) Append(ctx context.Context, rec Record) (CallLog, error) {
	if rec.CallID == "" || rec.AssistantID == "" {
		return CallLog{}, ErrInvalidArgument
	}
	if !rec.Status.Valid() {
		return CallLog{}, ErrInvalidArgument
	}
	if rec.Status == StatusFailed && rec.ErrorMessage == "" {
		return CallLog{}, ErrInvalidArgument
	}
	if rec.StartTime.IsZero() || rec.EndTime.Before(rec.StartTime) {
		return CallLog{}, ErrInvalidArgument
	}
	if rec.DurationSeconds < 0 {
		return CallLog{}, ErrInvalidArgument
	}

	l := CallLog{
		ID:              uuid.NewString(),
		CallID:          rec.CallID,
		AssistantID:     rec.AssistantID,
		StartTime:       rec.StartTime,
		EndTime:         rec.EndTime,
		DurationSeconds: rec.DurationSeconds,
		Status:          rec.Status,
		ErrorMessage:    rec.ErrorMessage,
		CreatedAt:       s.clock().UTC(),
	}
	if err := s.repo.Insert(ctx, l); err != nil {
		return CallLog{}, err
	}
	return l, nil
}

// List returns the assistant's call history, newest first.
func (s *Service) List(ctx context.Context, assistantID string) ([]CallLog, error) {
	if assistantID == "" {
		return nil, ErrInvalidArgument
	}
	return s.repo.ListByAssistant(ctx, assistantID)
}

// Summarize aggregates call outcomes for an assistant.
func (s *Service) Summarize(ctx context.Context, assistantID string) (Summary, error) {
	rows, err := s.List(ctx, assistantID)
	if err != nil {
		return Summary{}, err
	}

	out := Summary{AssistantID: assistantID}
	for _, l := range rows {
		out.TotalCalls++
		out.TotalDurationSeconds += l.DurationSeconds
		switch l.Status {
		case StatusCompleted:
			out.CompletedCalls++
		case StatusFailed:
			out.FailedCalls++
		case StatusInterrupted:
			out.InterruptedCalls++
		}
	}
	if out.TotalCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / out.TotalCalls
	}
	return out, nil
}
