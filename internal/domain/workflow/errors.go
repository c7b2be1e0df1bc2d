package workflow

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the approval engine. Callers classify with errors.Is.
var (
	// ErrNotFound is returned when a document or line does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidState is returned when an action is attempted in the wrong state,
	// including deciding a line that is not the current step or was already decided
	ErrInvalidState = errors.New("invalid state")

	// ErrUnauthorized is returned when the caller may not perform the action
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInsufficientLeaveBalance is returned when a leave reservation would overdraw the balance
	ErrInsufficientLeaveBalance = errors.New("insufficient leave balance")

	// ErrStructuralIntegrity is returned when the approval chain is malformed
	ErrStructuralIntegrity = errors.New("structural integrity violation")
)

var (
	// ErrInvalidTransition is returned when a trigger is not permitted from the current state
	ErrInvalidTransition = fmt.Errorf("%w: transition not permitted", ErrInvalidState)

	// ErrGuardFailed is returned when every guarded transition for a trigger refuses
	ErrGuardFailed = fmt.Errorf("%w: guard condition failed", ErrInvalidState)

	// ErrConcurrentModification is returned to the loser of a race on the same document
	ErrConcurrentModification = fmt.Errorf("%w: concurrent modification", ErrInvalidState)
)
