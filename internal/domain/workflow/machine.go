package workflow

import "context"

// StateMachine tracks a current state and validates transitions
type StateMachine[S State] interface {
	// State returns the current state
	State() S

	// CanFire returns true if the trigger is configured for the current state
	CanFire(trigger Trigger) bool

	// Fire executes the trigger, moving to the target state if permitted
	Fire(ctx context.Context, trigger Trigger) error

	// PermittedTriggers returns all triggers configured for the current state
	PermittedTriggers() []Trigger
}
