package workflow

import (
	"fmt"
	"sort"

	"github.com/garyjia/groupware-approval/internal/domain/entity"
)

// CurrentStep returns the APPROVAL line with the smallest OrderSeq that is still
// PENDING, or nil when every APPROVAL line has been decided. REFERENCE lines never
// gate progression and are ignored.
func CurrentStep(lines []*entity.ApprovalLine) (*entity.ApprovalLine, error) {
	return NextStep(lines, 0)
}

// NextStep returns the smallest-OrderSeq PENDING APPROVAL line after afterSeq
func NextStep(lines []*entity.ApprovalLine, afterSeq int) (*entity.ApprovalLine, error) {
	if err := checkDuplicateApprovalSeq(lines); err != nil {
		return nil, err
	}

	var next *entity.ApprovalLine
	for _, l := range lines {
		if !l.IsApproval() || l.Status != entity.LineStatusPending || l.OrderSeq <= afterSeq {
			continue
		}
		if next == nil || l.OrderSeq < next.OrderSeq {
			next = l
		}
	}
	return next, nil
}

// ValidateSequence checks that the chain has at least one APPROVAL line and that
// OrderSeq values across all lines are exactly 1..N.
func ValidateSequence(lines []*entity.ApprovalLine) error {
	approvals := 0
	seqs := make([]int, 0, len(lines))
	for _, l := range lines {
		if !l.ApprovalType.IsValid() {
			return fmt.Errorf("%w: line %d has unknown approval type %q", ErrStructuralIntegrity, l.OrderSeq, l.ApprovalType)
		}
		if l.IsApproval() {
			approvals++
		}
		seqs = append(seqs, l.OrderSeq)
	}

	if approvals == 0 {
		return fmt.Errorf("%w: no approval line", ErrStructuralIntegrity)
	}

	sort.Ints(seqs)
	for i, seq := range seqs {
		if seq != i+1 {
			return fmt.Errorf("%w: order sequence %v is not 1..%d", ErrStructuralIntegrity, seqs, len(seqs))
		}
	}
	return nil
}

func checkDuplicateApprovalSeq(lines []*entity.ApprovalLine) error {
	seen := make(map[int]bool, len(lines))
	for _, l := range lines {
		if !l.IsApproval() {
			continue
		}
		if seen[l.OrderSeq] {
			return fmt.Errorf("%w: duplicate approval order_seq %d", ErrStructuralIntegrity, l.OrderSeq)
		}
		seen[l.OrderSeq] = true
	}
	return nil
}
