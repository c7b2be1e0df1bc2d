package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// LeaveRequest is the leave detail attached to a LEAVE document
type LeaveRequest struct {
	ID            int64           `json:"id"`
	DocumentID    int64           `json:"document_id"`
	LeaveType     LeaveType       `json:"leave_type"`
	StartDate     time.Time       `json:"start_date"`
	EndDate       time.Time       `json:"end_date"`
	LeaveDays     decimal.Decimal `json:"leave_days"`
	LeaveHours    decimal.Decimal `json:"leave_hours"`
	ReservedHours decimal.Decimal `json:"reserved_hours"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// RequestedHours returns the hours to reserve. Explicit hours win over days.
func (r *LeaveRequest) RequestedHours() decimal.Decimal {
	if r.LeaveHours.IsPositive() {
		return r.LeaveHours
	}
	return r.LeaveDays.Mul(decimal.NewFromInt(HoursPerDay))
}

// Year is the ledger year the request is charged to
func (r *LeaveRequest) Year() int {
	return r.StartDate.Year()
}

// AnnualLeave is a user's leave balance for one year
type AnnualLeave struct {
	ID               int64           `json:"id"`
	UserID           string          `json:"user_id"`
	Year             int             `json:"year"`
	TotalHours       decimal.Decimal `json:"total_hours"`
	UsedHours        decimal.Decimal `json:"used_hours"`
	CarriedOverHours decimal.Decimal `json:"carried_over_hours"`
	GrantedDate      time.Time       `json:"granted_date"`
	ExpiryDate       time.Time       `json:"expiry_date"`
	Version          int64           `json:"version"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// RemainingHours is total plus carried-over minus used
func (a *AnnualLeave) RemainingHours() decimal.Decimal {
	return a.TotalHours.Add(a.CarriedOverHours).Sub(a.UsedHours)
}

// LedgerEntry is an append-only journal row of a balance movement
type LedgerEntry struct {
	ID         int64           `json:"id"`
	UserID     string          `json:"user_id"`
	Year       int             `json:"year"`
	DocumentID *int64          `json:"document_id,omitempty"`
	EntryType  LedgerEntryType `json:"entry_type"`
	Hours      decimal.Decimal `json:"hours"`
	CreatedAt  time.Time       `json:"created_at"`
}
