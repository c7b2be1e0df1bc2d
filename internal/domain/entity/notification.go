package entity

import "time"

// Notification is a persisted notification request and its delivery state
type Notification struct {
	ID           int64      `json:"id"`
	DocumentID   int64      `json:"document_id"`
	DocNumber    string     `json:"doc_number"`
	Recipient    string     `json:"recipient"`
	EventType    string     `json:"event_type"`
	Summary      string     `json:"summary"`
	Status       string     `json:"status"`
	Attempts     int        `json:"attempts"`
	ErrorMessage string     `json:"error_message,omitempty"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
