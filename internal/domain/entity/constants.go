package entity

// DocumentStatus is the lifecycle status of an ApprovalDocument
type DocumentStatus string

const (
	DocumentStatusDraft    DocumentStatus = "DRAFT"
	DocumentStatusPending  DocumentStatus = "PENDING"
	DocumentStatusApproved DocumentStatus = "APPROVED"
	DocumentStatusRejected DocumentStatus = "REJECTED"
	DocumentStatusCanceled DocumentStatus = "CANCELED"
)

var validDocumentStatuses = map[DocumentStatus]bool{
	DocumentStatusDraft:    true,
	DocumentStatusPending:  true,
	DocumentStatusApproved: true,
	DocumentStatusRejected: true,
	DocumentStatusCanceled: true,
}

// IsValid returns true if the status is a known document status
func (s DocumentStatus) IsValid() bool {
	return validDocumentStatuses[s]
}

// IsTerminal returns true once the document can no longer transition
func (s DocumentStatus) IsTerminal() bool {
	return s == DocumentStatusApproved || s == DocumentStatusRejected || s == DocumentStatusCanceled
}

func (s DocumentStatus) String() string {
	return string(s)
}

// LineStatus is the status of a single approval step
type LineStatus string

const (
	LineStatusPending  LineStatus = "PENDING"
	LineStatusApproved LineStatus = "APPROVED"
	LineStatusRejected LineStatus = "REJECTED"
	LineStatusSkipped  LineStatus = "SKIPPED"
)

// IsValid returns true if the status is a known line status
func (s LineStatus) IsValid() bool {
	switch s {
	case LineStatusPending, LineStatusApproved, LineStatusRejected, LineStatusSkipped:
		return true
	default:
		return false
	}
}

func (s LineStatus) String() string {
	return string(s)
}

// ApprovalType distinguishes blocking approval steps from informational ones
type ApprovalType string

const (
	ApprovalTypeApproval  ApprovalType = "APPROVAL"
	ApprovalTypeReference ApprovalType = "REFERENCE"
)

// IsValid returns true if the approval type is known
func (t ApprovalType) IsValid() bool {
	return t == ApprovalTypeApproval || t == ApprovalTypeReference
}

// DocType is the business category of a document
type DocType string

const (
	DocTypeGeneral DocType = "GENERAL"
	DocTypeLeave   DocType = "LEAVE"
	DocTypeExpense DocType = "EXPENSE"
)

// IsValid returns true if the document type is known
func (t DocType) IsValid() bool {
	switch t {
	case DocTypeGeneral, DocTypeLeave, DocTypeExpense:
		return true
	default:
		return false
	}
}

// Decision is the outcome an approver submits for their step
type Decision string

const (
	DecisionApproved Decision = "APPROVED"
	DecisionRejected Decision = "REJECTED"
)

// IsValid returns true for the two outcomes an approver may choose
func (d Decision) IsValid() bool {
	return d == DecisionApproved || d == DecisionRejected
}

// LeaveType categorizes a leave request
type LeaveType string

const (
	LeaveTypeAnnual  LeaveType = "ANNUAL"
	LeaveTypeHalfDay LeaveType = "HALF_DAY"
	LeaveTypeSick    LeaveType = "SICK"
	LeaveTypeOther   LeaveType = "OTHER"
)

// IsValid returns true if the leave type is known
func (t LeaveType) IsValid() bool {
	switch t {
	case LeaveTypeAnnual, LeaveTypeHalfDay, LeaveTypeSick, LeaveTypeOther:
		return true
	default:
		return false
	}
}

// LedgerEntryType classifies a leave ledger journal row
type LedgerEntryType string

const (
	LedgerEntryGrant   LedgerEntryType = "GRANT"
	LedgerEntryReserve LedgerEntryType = "RESERVE"
	LedgerEntryRelease LedgerEntryType = "RELEASE"
)

// Notification status constants
const (
	NotificationStatusPending = "PENDING"
	NotificationStatusSent    = "SENT"
	NotificationStatusFailed  = "FAILED"
)

// HoursPerDay converts leave days into hours
const HoursPerDay = 8
