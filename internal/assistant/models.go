package assistant

import "time"

// Assistant is a user-owned receptionist configuration bound to the
// identifier the voice platform assigned at creation time.
//
// Ownership invariant: every row carries user_id, and every query filters on it.
// Cardinality invariant: at most one assistant per user; creation replaces any
// prior rows (enforced in the repository inside one transaction).
type Assistant struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`

	// PlatformID is the voice platform's identifier, known only after the
	// platform confirms creation.
	PlatformID string `json:"assistant_id" db:"assistant_id"`

	Name         string  `json:"name" db:"name"`
	FirstMessage string  `json:"first_message" db:"first_message"`
	SystemPrompt string  `json:"system_prompt" db:"system_prompt"`
	Language     string  `json:"language" db:"language"`
	VoiceID      string  `json:"voice_id" db:"voice_id"`
	Temperature  float64 `json:"temperature" db:"temperature"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
