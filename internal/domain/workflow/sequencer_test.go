package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/groupware-approval/internal/domain/entity"
)

func approvalLine(id int64, seq int, status entity.LineStatus) *entity.ApprovalLine {
	return &entity.ApprovalLine{
		ID:           id,
		OrderSeq:     seq,
		Approver:     "approver-" + string(rune('a'+seq-1)),
		ApprovalType: entity.ApprovalTypeApproval,
		Status:       status,
	}
}

func referenceLine(id int64, seq int) *entity.ApprovalLine {
	return &entity.ApprovalLine{
		ID:           id,
		OrderSeq:     seq,
		Approver:     "cc-user",
		ApprovalType: entity.ApprovalTypeReference,
		Status:       entity.LineStatusPending,
	}
}

func TestCurrentStep(t *testing.T) {
	t.Run("lowest pending approval line", func(t *testing.T) {
		lines := []*entity.ApprovalLine{
			approvalLine(3, 3, entity.LineStatusPending),
			approvalLine(1, 1, entity.LineStatusApproved),
			approvalLine(2, 2, entity.LineStatusPending),
		}

		current, err := CurrentStep(lines)
		require.NoError(t, err)
		require.NotNil(t, current)
		assert.Equal(t, int64(2), current.ID)
	})

	t.Run("reference lines never become current", func(t *testing.T) {
		lines := []*entity.ApprovalLine{
			referenceLine(1, 1),
			approvalLine(2, 2, entity.LineStatusPending),
		}

		current, err := CurrentStep(lines)
		require.NoError(t, err)
		require.NotNil(t, current)
		assert.Equal(t, int64(2), current.ID)
	})

	t.Run("none when every approval line is decided", func(t *testing.T) {
		lines := []*entity.ApprovalLine{
			approvalLine(1, 1, entity.LineStatusApproved),
			approvalLine(2, 2, entity.LineStatusApproved),
			referenceLine(3, 3),
		}

		current, err := CurrentStep(lines)
		require.NoError(t, err)
		assert.Nil(t, current)
	})

	t.Run("duplicate order_seq is refused", func(t *testing.T) {
		lines := []*entity.ApprovalLine{
			approvalLine(1, 1, entity.LineStatusPending),
			approvalLine(2, 1, entity.LineStatusPending),
			approvalLine(3, 2, entity.LineStatusPending),
		}

		current, err := CurrentStep(lines)
		assert.ErrorIs(t, err, ErrStructuralIntegrity)
		assert.Nil(t, current)
	})

	t.Run("reference line sharing a seq with an approval line does not block", func(t *testing.T) {
		lines := []*entity.ApprovalLine{
			approvalLine(1, 1, entity.LineStatusPending),
			referenceLine(2, 1),
		}

		current, err := CurrentStep(lines)
		require.NoError(t, err)
		assert.Equal(t, int64(1), current.ID)
	})
}

func TestNextStep(t *testing.T) {
	lines := []*entity.ApprovalLine{
		approvalLine(1, 1, entity.LineStatusApproved),
		referenceLine(2, 2),
		approvalLine(3, 3, entity.LineStatusPending),
		approvalLine(4, 4, entity.LineStatusPending),
	}

	tests := []struct {
		name     string
		afterSeq int
		wantID   int64
	}{
		{"after first step skips the reference line", 1, 3},
		{"after third step", 3, 4},
		{"after last step", 4, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := NextStep(lines, tt.afterSeq)
			require.NoError(t, err)
			if tt.wantID == 0 {
				assert.Nil(t, next)
				return
			}
			require.NotNil(t, next)
			assert.Equal(t, tt.wantID, next.ID)
		})
	}
}

func TestValidateSequence(t *testing.T) {
	tests := []struct {
		name    string
		lines   []*entity.ApprovalLine
		wantErr bool
	}{
		{
			name: "consecutive sequence",
			lines: []*entity.ApprovalLine{
				approvalLine(1, 2, entity.LineStatusPending),
				approvalLine(2, 1, entity.LineStatusPending),
				referenceLine(3, 3),
			},
		},
		{
			name: "duplicate seq",
			lines: []*entity.ApprovalLine{
				approvalLine(1, 1, entity.LineStatusPending),
				approvalLine(2, 1, entity.LineStatusPending),
				approvalLine(3, 2, entity.LineStatusPending),
			},
			wantErr: true,
		},
		{
			name: "gap in sequence",
			lines: []*entity.ApprovalLine{
				approvalLine(1, 1, entity.LineStatusPending),
				approvalLine(2, 3, entity.LineStatusPending),
			},
			wantErr: true,
		},
		{
			name: "starts at zero",
			lines: []*entity.ApprovalLine{
				approvalLine(1, 0, entity.LineStatusPending),
				approvalLine(2, 1, entity.LineStatusPending),
			},
			wantErr: true,
		},
		{
			name:    "references only",
			lines:   []*entity.ApprovalLine{referenceLine(1, 1)},
			wantErr: true,
		},
		{
			name:    "empty chain",
			lines:   nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSequence(tt.lines)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrStructuralIntegrity)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
