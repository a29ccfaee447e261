package calllog

import "time"

// CallLog is an immutable record of one call attempt's timing and outcome.
// Rows are appended when a call session ends (normally or with an error)
// and are never updated or deleted by the application.
type CallLog struct {
	ID string `json:"id" db:"id"`

	// CallID is the session-generated UUID for log correlation.
	CallID string `json:"call_id" db:"call_id"`

	// AssistantID is the voice platform's assistant identifier.
	AssistantID string `json:"assistant_id" db:"assistant_id"`

	StartTime       time.Time `json:"start_time" db:"start_time"`
	EndTime         time.Time `json:"end_time" db:"end_time"`
	DurationSeconds int       `json:"duration_seconds" db:"duration_seconds"`

	Status       Status `json:"status" db:"status"`
	ErrorMessage string `json:"error_message,omitempty" db:"error_message"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Status string

const (
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusInterrupted Status = "interrupted"
)

func (s Status) Valid() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusInterrupted:
		return true
	default:
		return false
	}
}

// Summary aggregates call outcomes for one assistant.
type Summary struct {
	AssistantID string `json:"assistant_id"`

	TotalCalls       int `json:"total_calls"`
	CompletedCalls   int `json:"completed_calls"`
	FailedCalls      int `json:"failed_calls"`
	InterruptedCalls int `json:"interrupted_calls"`

	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`
}
