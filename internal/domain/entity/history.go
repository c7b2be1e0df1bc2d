package entity

import "time"

// ApprovalHistory is the audit trail of a document.
// Actor is the user who actually performed the action, which for a delegated
// step is the delegate rather than the approver of record.
type ApprovalHistory struct {
	ID             int64          `json:"id"`
	DocumentID     int64          `json:"document_id"`
	LineID         *int64         `json:"line_id,omitempty"`
	Actor          string         `json:"actor"`
	Action         string         `json:"action"`
	PreviousStatus DocumentStatus `json:"previous_status"`
	NewStatus      DocumentStatus `json:"new_status"`
	Comment        string         `json:"comment,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}
