package repository

import (
	"database/sql"
	"fmt"
	"time"

	domainwf "github.com/garyjia/groupware-approval/internal/domain/workflow"
)

// nullableTime converts an optional timestamp into a driver value
func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

// timePtr converts a scanned nullable timestamp back into a pointer
func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

// expectOneRow turns a guarded UPDATE that matched nothing into ErrConcurrentModification
func expectOneRow(result sql.Result, what string, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %d changed underneath", domainwf.ErrConcurrentModification, what, id)
	}
	return nil
}
