package entity

import "time"

// ApprovalDocument is a document routed through an ordered approval chain.
// Status only changes together with a line transition.
type ApprovalDocument struct {
	ID          int64          `json:"id"`
	DocNumber   string         `json:"doc_number"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	DocType     DocType        `json:"doc_type"`
	Status      DocumentStatus `json:"status"`
	Drafter     string         `json:"drafter"`
	DraftedAt   time.Time      `json:"drafted_at"`
	SubmittedAt *time.Time     `json:"submitted_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	IsDeleted   bool           `json:"is_deleted"`
	Version     int64          `json:"version"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`

	Lines []*ApprovalLine `json:"lines,omitempty"`
	Leave *LeaveRequest   `json:"leave,omitempty"`
}

// Line returns the line with the given ID, or nil
func (d *ApprovalDocument) Line(lineID int64) *ApprovalLine {
	for _, l := range d.Lines {
		if l.ID == lineID {
			return l
		}
	}
	return nil
}

// IsLeave reports whether the document carries a leave request
func (d *ApprovalDocument) IsLeave() bool {
	return d.DocType == DocTypeLeave
}

// ApprovalLine is one position in a document's approval chain.
// Approver is the approver of record and is never overwritten by delegation.
type ApprovalLine struct {
	ID             int64        `json:"id"`
	DocumentID     int64        `json:"document_id"`
	OrderSeq       int          `json:"order_seq"`
	Approver       string       `json:"approver"`
	DelegatedTo    string       `json:"delegated_to,omitempty"`
	DelegatedUntil *time.Time   `json:"delegated_until,omitempty"`
	ApprovalType   ApprovalType `json:"approval_type"`
	Status         LineStatus   `json:"status"`
	Comment        string       `json:"comment,omitempty"`
	DecidedBy      string       `json:"decided_by,omitempty"`
	DecidedAt      *time.Time   `json:"decided_at,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// IsApproval reports whether the line gates document progression
func (l *ApprovalLine) IsApproval() bool {
	return l.ApprovalType == ApprovalTypeApproval
}
