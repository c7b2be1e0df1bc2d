package event

// Type identifies the type of domain event
type Type string

const (
	// TypeApprovalRequested tells an acting approver that a step awaits them
	TypeApprovalRequested Type = "approval.requested"
	// TypeDocumentReferenced tells a REFERENCE line holder about a submitted document
	TypeDocumentReferenced Type = "document.referenced"
	TypeDocumentApproved   Type = "document.approved"
	TypeDocumentRejected   Type = "document.rejected"
	TypeDocumentCanceled   Type = "document.canceled"
	// TypeNotificationQueued hands a persisted notification over for delivery
	TypeNotificationQueued Type = "notification.queued"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeApprovalRequested,
		TypeDocumentReferenced,
		TypeDocumentApproved,
		TypeDocumentRejected,
		TypeDocumentCanceled,
		TypeNotificationQueued:
		return true
	default:
		return false
	}
}
