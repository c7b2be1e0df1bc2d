package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/garyjia/groupware-approval/internal/domain/entity"
)

func TestVerifyStatus(t *testing.T) {
	p, a, r, s := entity.LineStatusPending, entity.LineStatusApproved, entity.LineStatusRejected, entity.LineStatusSkipped

	chain := func(statuses ...entity.LineStatus) []*entity.ApprovalLine {
		lines := make([]*entity.ApprovalLine, 0, len(statuses)+1)
		for i, st := range statuses {
			lines = append(lines, approvalLine(int64(i+1), i+1, st))
		}
		// a pending reference line never influences the result
		return append(lines, referenceLine(int64(len(statuses)+1), len(statuses)+1))
	}

	tests := []struct {
		name   string
		status entity.DocumentStatus
		lines  []*entity.ApprovalLine
		ok     bool
	}{
		{"draft untouched", entity.DocumentStatusDraft, chain(p, p), true},
		{"draft with decided line", entity.DocumentStatusDraft, chain(a, p), false},
		{"pending mid-chain", entity.DocumentStatusPending, chain(a, p, p), true},
		{"pending with nothing left", entity.DocumentStatusPending, chain(a, a), false},
		{"pending with skipped line", entity.DocumentStatusPending, chain(a, s, p), false},
		{"approved", entity.DocumentStatusApproved, chain(a, a, a), true},
		{"approved with pending line", entity.DocumentStatusApproved, chain(a, p), false},
		{"rejected with cascade", entity.DocumentStatusRejected, chain(r, s, s), true},
		{"rejected with pending line", entity.DocumentStatusRejected, chain(r, p), false},
		{"rejected twice", entity.DocumentStatusRejected, chain(r, r), false},
		{"canceled", entity.DocumentStatusCanceled, chain(a, s), true},
		{"canceled with pending line", entity.DocumentStatusCanceled, chain(s, p), false},
		{"unknown status", entity.DocumentStatus("ARCHIVED"), chain(a), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyStatus(tt.status, tt.lines)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrStructuralIntegrity)
			}
		})
	}
}
