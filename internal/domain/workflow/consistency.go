package workflow

import (
	"fmt"

	"github.com/garyjia/groupware-approval/internal/domain/entity"
)

// VerifyStatus checks that a document status agrees with its APPROVAL lines:
//
//	DRAFT    every line PENDING
//	PENDING  at least one PENDING, none REJECTED or SKIPPED
//	APPROVED every line APPROVED
//	REJECTED exactly one REJECTED, none PENDING
//	CANCELED none PENDING, none REJECTED
func VerifyStatus(status entity.DocumentStatus, lines []*entity.ApprovalLine) error {
	counts := make(map[entity.LineStatus]int, 4)
	total := 0
	for _, l := range lines {
		if !l.IsApproval() {
			continue
		}
		counts[l.Status]++
		total++
	}

	pending := counts[entity.LineStatusPending]
	rejected := counts[entity.LineStatusRejected]
	skipped := counts[entity.LineStatusSkipped]
	approved := counts[entity.LineStatusApproved]

	var ok bool
	switch status {
	case entity.DocumentStatusDraft:
		ok = pending == total
	case entity.DocumentStatusPending:
		ok = pending > 0 && rejected == 0 && skipped == 0
	case entity.DocumentStatusApproved:
		ok = total > 0 && approved == total
	case entity.DocumentStatusRejected:
		ok = rejected == 1 && pending == 0
	case entity.DocumentStatusCanceled:
		ok = pending == 0 && rejected == 0
	default:
		return fmt.Errorf("%w: unknown document status %q", ErrStructuralIntegrity, status)
	}

	if !ok {
		return fmt.Errorf("%w: status %s does not match lines (pending=%d approved=%d rejected=%d skipped=%d)",
			ErrStructuralIntegrity, status, pending, approved, rejected, skipped)
	}
	return nil
}
