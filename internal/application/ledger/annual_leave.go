package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/groupware-approval/internal/application/port"
	"github.com/garyjia/groupware-approval/internal/domain/entity"
	domainwf "github.com/garyjia/groupware-approval/internal/domain/workflow"
)

// ErrInvalidHours is returned for zero or negative hour amounts
var ErrInvalidHours = errors.New("leave hours must be positive")

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type annualLeaveLedger struct {
	leaveRepo port.AnnualLeaveRepository
	entryRepo port.LedgerEntryRepository
	txManager port.TransactionManager
	logger    Logger
	now       func() time.Time
}

// NewAnnualLeaveLedger creates the ledger backed by the annual_leaves table.
// Every movement is journaled as a LedgerEntry in the same transaction.
func NewAnnualLeaveLedger(
	leaveRepo port.AnnualLeaveRepository,
	entryRepo port.LedgerEntryRepository,
	txManager port.TransactionManager,
	logger Logger,
) port.LeaveLedger {
	return &annualLeaveLedger{
		leaveRepo: leaveRepo,
		entryRepo: entryRepo,
		txManager: txManager,
		logger:    logger,
		now:       time.Now,
	}
}

func (l *annualLeaveLedger) Reserve(ctx context.Context, userID string, year int, hours decimal.Decimal, documentID int64) error {
	if !hours.IsPositive() {
		return fmt.Errorf("reserve %s hours: %w", hours, ErrInvalidHours)
	}

	return l.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		balance, err := l.leaveRepo.Get(txCtx, userID, year)
		if err != nil {
			return fmt.Errorf("failed to load leave balance: %w", err)
		}
		if balance == nil {
			return fmt.Errorf("%w: no leave granted to %s for %d", domainwf.ErrInsufficientLeaveBalance, userID, year)
		}

		remaining := balance.RemainingHours()
		if remaining.LessThan(hours) {
			return fmt.Errorf("%w: requested %s hours, remaining %s", domainwf.ErrInsufficientLeaveBalance, hours, remaining)
		}

		if err := l.leaveRepo.UpdateUsed(txCtx, balance.ID, balance.Version, balance.UsedHours.Add(hours)); err != nil {
			return fmt.Errorf("failed to update used hours: %w", err)
		}

		if err := l.journal(txCtx, userID, year, &documentID, entity.LedgerEntryReserve, hours); err != nil {
			return err
		}

		l.logger.Info("Leave reserved", "user_id", userID, "year", year, "hours", hours.String(), "document_id", documentID)
		return nil
	})
}

func (l *annualLeaveLedger) Release(ctx context.Context, userID string, year int, hours decimal.Decimal, documentID int64) error {
	if hours.IsZero() {
		return nil
	}
	if hours.IsNegative() {
		return fmt.Errorf("release %s hours: %w", hours, ErrInvalidHours)
	}

	return l.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		balance, err := l.leaveRepo.Get(txCtx, userID, year)
		if err != nil {
			return fmt.Errorf("failed to load leave balance: %w", err)
		}
		if balance == nil {
			return fmt.Errorf("%w: no leave balance for %s in %d", domainwf.ErrNotFound, userID, year)
		}

		used := balance.UsedHours.Sub(hours)
		if used.IsNegative() {
			return fmt.Errorf("%w: releasing %s hours exceeds used %s", domainwf.ErrStructuralIntegrity, hours, balance.UsedHours)
		}

		if err := l.leaveRepo.UpdateUsed(txCtx, balance.ID, balance.Version, used); err != nil {
			return fmt.Errorf("failed to update used hours: %w", err)
		}

		if err := l.journal(txCtx, userID, year, &documentID, entity.LedgerEntryRelease, hours); err != nil {
			return err
		}

		l.logger.Info("Leave released", "user_id", userID, "year", year, "hours", hours.String(), "document_id", documentID)
		return nil
	})
}

func (l *annualLeaveLedger) Balance(ctx context.Context, userID string, year int) (*entity.AnnualLeave, error) {
	balance, err := l.leaveRepo.Get(ctx, userID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to load leave balance: %w", err)
	}
	if balance == nil {
		return nil, fmt.Errorf("%w: no leave balance for %s in %d", domainwf.ErrNotFound, userID, year)
	}
	return balance, nil
}

// Grant sets the entitlement for a year, keeping hours already used
func (l *annualLeaveLedger) Grant(ctx context.Context, grant port.LeaveGrant) (*entity.AnnualLeave, error) {
	if grant.UserID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if grant.TotalHours.IsNegative() || grant.CarriedOverHours.IsNegative() {
		return nil, fmt.Errorf("grant for %s: %w", grant.UserID, ErrInvalidHours)
	}

	var result *entity.AnnualLeave
	err := l.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		existing, err := l.leaveRepo.Get(txCtx, grant.UserID, grant.Year)
		if err != nil {
			return fmt.Errorf("failed to load leave balance: %w", err)
		}

		now := l.now()
		balance := existing
		if balance == nil {
			balance = &entity.AnnualLeave{
				UserID:    grant.UserID,
				Year:      grant.Year,
				UsedHours: decimal.Zero,
				CreatedAt: now,
			}
		}

		entitlement := grant.TotalHours.Add(grant.CarriedOverHours)
		if entitlement.LessThan(balance.UsedHours) {
			return fmt.Errorf("%w: grant of %s hours is below %s already used",
				domainwf.ErrInsufficientLeaveBalance, entitlement, balance.UsedHours)
		}

		balance.TotalHours = grant.TotalHours
		balance.CarriedOverHours = grant.CarriedOverHours
		balance.GrantedDate = grant.GrantedDate
		balance.ExpiryDate = grant.ExpiryDate
		balance.UpdatedAt = now
		if balance.GrantedDate.IsZero() {
			balance.GrantedDate = now
		}
		if balance.ExpiryDate.IsZero() {
			balance.ExpiryDate = time.Date(grant.Year, time.December, 31, 23, 59, 59, 0, time.UTC)
		}

		if err := l.leaveRepo.Upsert(txCtx, balance); err != nil {
			return fmt.Errorf("failed to save leave balance: %w", err)
		}

		if err := l.journal(txCtx, grant.UserID, grant.Year, nil, entity.LedgerEntryGrant, entitlement); err != nil {
			return err
		}

		result = balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("Leave granted", "user_id", grant.UserID, "year", grant.Year,
		"total_hours", grant.TotalHours.String(), "carried_over_hours", grant.CarriedOverHours.String())
	return result, nil
}

func (l *annualLeaveLedger) journal(ctx context.Context, userID string, year int, documentID *int64, entryType entity.LedgerEntryType, hours decimal.Decimal) error {
	entry := &entity.LedgerEntry{
		UserID:     userID,
		Year:       year,
		DocumentID: documentID,
		EntryType:  entryType,
		Hours:      hours,
		CreatedAt:  l.now(),
	}
	if err := l.entryRepo.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to journal %s entry: %w", entryType, err)
	}
	return nil
}
