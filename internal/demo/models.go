package demo

import "time"

// Request is a stored demo booking from the marketing site.
type Request struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Email      string    `json:"email" db:"email"`
	Company    string    `json:"company" db:"company"`
	Message    string    `json:"message" db:"message"`
	Newsletter bool      `json:"newsletter" db:"newsletter"`
	DemoDate   string    `json:"demo_date" db:"demo_date"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
