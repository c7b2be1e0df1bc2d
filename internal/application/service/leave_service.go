package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/garyjia/groupware-approval/internal/application/port"
	"github.com/garyjia/groupware-approval/internal/domain/entity"
)

// LeaveService administers annual leave balances
type LeaveService interface {
	Grant(ctx context.Context, grant port.LeaveGrant) (*entity.AnnualLeave, error)
	Balance(ctx context.Context, userID string, year int) (*entity.AnnualLeave, error)
	Entries(ctx context.Context, userID string, year int) ([]*entity.LedgerEntry, error)
	Report(ctx context.Context, year int) ([]byte, error)
}

type leaveServiceImpl struct {
	ledger             port.LeaveLedger
	leaveRepo          port.AnnualLeaveRepository
	entryRepo          port.LedgerEntryRepository
	exporter           port.DocumentExporter
	defaultAnnualHours decimal.Decimal
	logger             Logger
}

// NewLeaveService creates a new LeaveService. defaultAnnualHours applies to grants
// that leave TotalHours unset.
func NewLeaveService(
	ledger port.LeaveLedger,
	leaveRepo port.AnnualLeaveRepository,
	entryRepo port.LedgerEntryRepository,
	exporter port.DocumentExporter,
	defaultAnnualHours decimal.Decimal,
	logger Logger,
) LeaveService {
	return &leaveServiceImpl{
		ledger:             ledger,
		leaveRepo:          leaveRepo,
		entryRepo:          entryRepo,
		exporter:           exporter,
		defaultAnnualHours: defaultAnnualHours,
		logger:             logger,
	}
}

func (s *leaveServiceImpl) Grant(ctx context.Context, grant port.LeaveGrant) (*entity.AnnualLeave, error) {
	if grant.Year < 2000 || grant.Year > 9999 {
		return nil, fmt.Errorf("%w: year %d", ErrInvalidInput, grant.Year)
	}
	if grant.TotalHours.IsZero() {
		grant.TotalHours = s.defaultAnnualHours
	}

	balance, err := s.ledger.Grant(ctx, grant)
	if err != nil {
		s.logger.Error("Failed to grant leave", "user_id", grant.UserID, "year", grant.Year, "error", err)
		return nil, err
	}
	return balance, nil
}

func (s *leaveServiceImpl) Balance(ctx context.Context, userID string, year int) (*entity.AnnualLeave, error) {
	return s.ledger.Balance(ctx, userID, year)
}

func (s *leaveServiceImpl) Entries(ctx context.Context, userID string, year int) ([]*entity.LedgerEntry, error) {
	entries, err := s.entryRepo.ListByUserYear(ctx, userID, year)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	return entries, nil
}

// Report renders every balance of the year as a spreadsheet
func (s *leaveServiceImpl) Report(ctx context.Context, year int) ([]byte, error) {
	balances, err := s.leaveRepo.ListByYear(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}

	data, err := s.exporter.ExportLeaveReport(year, balances)
	if err != nil {
		return nil, fmt.Errorf("export leave report: %w", err)
	}

	s.logger.Info("Leave report exported", "year", year, "rows", len(balances))
	return data, nil
}
