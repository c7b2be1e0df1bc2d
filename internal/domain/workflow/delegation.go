package workflow

import (
	"time"

	"github.com/garyjia/groupware-approval/internal/domain/entity"
)

// ActingApprover returns the user who may decide the line at now: the delegate
// while the delegation is in force, otherwise the approver of record.
// Delegation is a single hop; a delegate's own delegations are never followed.
func ActingApprover(line *entity.ApprovalLine, now time.Time) string {
	if DelegationActive(line, now) {
		return line.DelegatedTo
	}
	return line.Approver
}

// DelegationActive reports whether line.DelegatedTo currently holds authority
func DelegationActive(line *entity.ApprovalLine, now time.Time) bool {
	if line.DelegatedTo == "" {
		return false
	}
	return line.DelegatedUntil == nil || now.Before(*line.DelegatedUntil)
}

// IsAuthorized reports whether callerID is the acting approver of the line
func IsAuthorized(line *entity.ApprovalLine, callerID string, now time.Time) bool {
	if callerID == "" {
		return false
	}
	return callerID == ActingApprover(line, now)
}
