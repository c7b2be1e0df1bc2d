package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/groupware-approval/internal/application/port"
	"github.com/garyjia/groupware-approval/internal/domain/entity"
	domainwf "github.com/garyjia/groupware-approval/internal/domain/workflow"
)

type memLeaveRepo struct {
	balances  map[string]*entity.AnnualLeave
	nextID    int64
	updateErr error
}

func newMemLeaveRepo() *memLeaveRepo {
	return &memLeaveRepo{balances: make(map[string]*entity.AnnualLeave)}
}

func leaveKey(userID string, year int) string {
	return fmt.Sprintf("%s/%d", userID, year)
}

func (m *memLeaveRepo) Get(ctx context.Context, userID string, year int) (*entity.AnnualLeave, error) {
	b, ok := m.balances[leaveKey(userID, year)]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (m *memLeaveRepo) Upsert(ctx context.Context, leave *entity.AnnualLeave) error {
	if leave.ID == 0 {
		m.nextID++
		leave.ID = m.nextID
	}
	cp := *leave
	m.balances[leaveKey(leave.UserID, leave.Year)] = &cp
	return nil
}

func (m *memLeaveRepo) UpdateUsed(ctx context.Context, id int64, expectedVersion int64, usedHours decimal.Decimal) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	for _, b := range m.balances {
		if b.ID != id {
			continue
		}
		if b.Version != expectedVersion {
			return domainwf.ErrConcurrentModification
		}
		b.UsedHours = usedHours
		b.Version++
		return nil
	}
	return errors.New("balance not found")
}

func (m *memLeaveRepo) ListByYear(ctx context.Context, year int) ([]*entity.AnnualLeave, error) {
	var out []*entity.AnnualLeave
	for _, b := range m.balances {
		if b.Year == year {
			out = append(out, b)
		}
	}
	return out, nil
}

type memEntryRepo struct {
	entries []*entity.LedgerEntry
}

func (m *memEntryRepo) Create(ctx context.Context, entry *entity.LedgerEntry) error {
	entry.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memEntryRepo) ListByUserYear(ctx context.Context, userID string, year int) ([]*entity.LedgerEntry, error) {
	var out []*entity.LedgerEntry
	for _, e := range m.entries {
		if e.UserID == userID && e.Year == year {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memEntryRepo) ListByDocumentID(ctx context.Context, documentID int64) ([]*entity.LedgerEntry, error) {
	var out []*entity.LedgerEntry
	for _, e := range m.entries {
		if e.DocumentID != nil && *e.DocumentID == documentID {
			out = append(out, e)
		}
	}
	return out, nil
}

type mockTxManager struct{}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

func hours(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func newTestLedger(t *testing.T, total int64) (port.LeaveLedger, *memLeaveRepo, *memEntryRepo) {
	t.Helper()
	leaves := newMemLeaveRepo()
	entries := &memEntryRepo{}
	l := NewAnnualLeaveLedger(leaves, entries, &mockTxManager{}, &mockLogger{})
	if total > 0 {
		_, err := l.Grant(context.Background(), port.LeaveGrant{UserID: "alice", Year: 2025, TotalHours: hours(total)})
		require.NoError(t, err)
	}
	return l, leaves, entries
}

func TestReserve_DebitsBalance(t *testing.T) {
	l, _, entries := newTestLedger(t, 80)
	ctx := context.Background()

	require.NoError(t, l.Reserve(ctx, "alice", 2025, hours(16), 10))

	bal, err := l.Balance(ctx, "alice", 2025)
	require.NoError(t, err)
	assert.True(t, bal.UsedHours.Equal(hours(16)))
	assert.True(t, bal.RemainingHours().Equal(hours(64)))

	require.Len(t, entries.entries, 2)
	assert.Equal(t, entity.LedgerEntryReserve, entries.entries[1].EntryType)
	require.NotNil(t, entries.entries[1].DocumentID)
	assert.Equal(t, int64(10), *entries.entries[1].DocumentID)
}

func TestReserve_InsufficientBalance(t *testing.T) {
	l, leaves, entries := newTestLedger(t, 8)
	ctx := context.Background()

	err := l.Reserve(ctx, "alice", 2025, hours(16), 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainwf.ErrInsufficientLeaveBalance))

	bal, _ := leaves.Get(ctx, "alice", 2025)
	assert.True(t, bal.UsedHours.IsZero(), "failed reserve must not touch the balance")
	assert.Len(t, entries.entries, 1, "only the grant is journaled")
}

func TestReserve_NoGrant(t *testing.T) {
	l, _, _ := newTestLedger(t, 0)

	err := l.Reserve(context.Background(), "alice", 2025, hours(8), 1)
	assert.True(t, errors.Is(err, domainwf.ErrInsufficientLeaveBalance))
}

func TestReserve_ExactRemaining(t *testing.T) {
	l, _, _ := newTestLedger(t, 16)

	require.NoError(t, l.Reserve(context.Background(), "alice", 2025, hours(16), 1))
	err := l.Reserve(context.Background(), "alice", 2025, decimal.RequireFromString("0.5"), 2)
	assert.True(t, errors.Is(err, domainwf.ErrInsufficientLeaveBalance))
}

func TestReserve_RejectsNonPositive(t *testing.T) {
	l, _, _ := newTestLedger(t, 16)

	assert.ErrorIs(t, l.Reserve(context.Background(), "alice", 2025, decimal.Zero, 1), ErrInvalidHours)
	assert.ErrorIs(t, l.Reserve(context.Background(), "alice", 2025, hours(-4), 1), ErrInvalidHours)
}

func TestReserve_ConcurrentModification(t *testing.T) {
	l, leaves, _ := newTestLedger(t, 40)
	leaves.updateErr = domainwf.ErrConcurrentModification

	err := l.Reserve(context.Background(), "alice", 2025, hours(8), 1)
	assert.True(t, errors.Is(err, domainwf.ErrInvalidState))
}

func TestRelease_RoundTrip(t *testing.T) {
	l, _, entries := newTestLedger(t, 40)
	ctx := context.Background()

	require.NoError(t, l.Reserve(ctx, "alice", 2025, hours(12), 3))
	require.NoError(t, l.Release(ctx, "alice", 2025, hours(12), 3))

	bal, err := l.Balance(ctx, "alice", 2025)
	require.NoError(t, err)
	assert.True(t, bal.UsedHours.IsZero())
	assert.True(t, bal.RemainingHours().Equal(hours(40)))

	reserved, released := decimal.Zero, decimal.Zero
	for _, e := range entries.entries {
		switch e.EntryType {
		case entity.LedgerEntryReserve:
			reserved = reserved.Add(e.Hours)
		case entity.LedgerEntryRelease:
			released = released.Add(e.Hours)
		}
	}
	assert.True(t, reserved.Equal(released))
}

func TestRelease_ZeroIsNoop(t *testing.T) {
	l, _, entries := newTestLedger(t, 40)

	require.NoError(t, l.Release(context.Background(), "alice", 2025, decimal.Zero, 1))
	assert.Len(t, entries.entries, 1)
}

func TestRelease_MoreThanUsed(t *testing.T) {
	l, _, _ := newTestLedger(t, 40)

	err := l.Release(context.Background(), "alice", 2025, hours(8), 1)
	assert.True(t, errors.Is(err, domainwf.ErrStructuralIntegrity))
}

func TestBalance_NotFound(t *testing.T) {
	l, _, _ := newTestLedger(t, 0)

	_, err := l.Balance(context.Background(), "bob", 2025)
	assert.True(t, errors.Is(err, domainwf.ErrNotFound))
}

func TestGrant_KeepsUsedHours(t *testing.T) {
	l, _, _ := newTestLedger(t, 40)
	ctx := context.Background()
	require.NoError(t, l.Reserve(ctx, "alice", 2025, hours(16), 1))

	bal, err := l.Grant(ctx, port.LeaveGrant{
		UserID:           "alice",
		Year:             2025,
		TotalHours:       hours(80),
		CarriedOverHours: hours(8),
	})
	require.NoError(t, err)
	assert.True(t, bal.UsedHours.Equal(hours(16)))
	assert.True(t, bal.RemainingHours().Equal(hours(72)))
	assert.Equal(t, 2025, bal.ExpiryDate.Year())
}

func TestGrant_BelowUsed(t *testing.T) {
	l, _, _ := newTestLedger(t, 40)
	ctx := context.Background()
	require.NoError(t, l.Reserve(ctx, "alice", 2025, hours(24), 1))

	_, err := l.Grant(ctx, port.LeaveGrant{UserID: "alice", Year: 2025, TotalHours: hours(16)})
	assert.True(t, errors.Is(err, domainwf.ErrInsufficientLeaveBalance))
}

func TestGrant_Validation(t *testing.T) {
	l, _, _ := newTestLedger(t, 0)

	_, err := l.Grant(context.Background(), port.LeaveGrant{Year: 2025, TotalHours: hours(8)})
	assert.Error(t, err)

	_, err = l.Grant(context.Background(), port.LeaveGrant{UserID: "alice", Year: 2025, TotalHours: hours(-8)})
	assert.ErrorIs(t, err, ErrInvalidHours)
}
