package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/garyjia/groupware-approval/internal/domain/entity"
)

type guardKey struct{}

func TestTrigger_String(t *testing.T) {
	if got := TriggerSubmit.String(); got != "SUBMIT" {
		t.Errorf("Trigger.String() = %v, want %v", got, "SUBMIT")
	}
}

func TestBuilder_Configure(t *testing.T) {
	builder := NewBuilder[entity.DocumentStatus]()

	config := builder.Configure(entity.DocumentStatusDraft)
	if config == nil {
		t.Fatal("Configure() returned nil")
	}

	if config2 := builder.Configure(entity.DocumentStatusDraft); config != config2 {
		t.Error("Configure() should return same config for same state")
	}
}

func TestBuilder_ConfigurePanicsOnInvalidState(t *testing.T) {
	builder := NewBuilder[entity.DocumentStatus]()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Configure() should panic on invalid state")
		}
	}()

	builder.Configure(entity.DocumentStatus("INVALID"))
}

func TestBuilder_BuildPanicsOnInvalidInitialState(t *testing.T) {
	builder := NewBuilder[entity.LineStatus]()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Build() should panic on invalid initial state")
		}
	}()

	builder.Build(entity.LineStatus(""))
}

func TestStateConfiguration_PermitPanicsOnInvalidTarget(t *testing.T) {
	builder := NewBuilder[entity.DocumentStatus]()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Permit() should panic on invalid target state")
		}
	}()

	builder.Configure(entity.DocumentStatusDraft).Permit(TriggerSubmit, entity.DocumentStatus("LIMBO"))
}

func TestStateConfiguration_Permit(t *testing.T) {
	builder := NewBuilder[entity.DocumentStatus]()
	builder.Configure(entity.DocumentStatusDraft).
		Permit(TriggerSubmit, entity.DocumentStatusPending)

	machine := builder.Build(entity.DocumentStatusDraft)

	if !machine.CanFire(TriggerSubmit) {
		t.Error("CanFire() should return true for permitted trigger")
	}
	if err := machine.Fire(context.Background(), TriggerSubmit); err != nil {
		t.Errorf("Fire() failed: %v", err)
	}
	if machine.State() != entity.DocumentStatusPending {
		t.Errorf("State after Fire() = %v, want %v", machine.State(), entity.DocumentStatusPending)
	}
}

func TestStateConfiguration_PermitIf(t *testing.T) {
	builder := NewBuilder[entity.DocumentStatus]()
	builder.Configure(entity.DocumentStatusPending).
		PermitIf(TriggerApprove, entity.DocumentStatusApproved, func(ctx context.Context) bool {
			last, _ := ctx.Value(guardKey{}).(bool)
			return last
		}).
		PermitIf(TriggerApprove, entity.DocumentStatusPending, func(ctx context.Context) bool {
			last, _ := ctx.Value(guardKey{}).(bool)
			return !last
		})

	tests := []struct {
		name      string
		lastStep  bool
		wantState entity.DocumentStatus
	}{
		{"last step finishes the document", true, entity.DocumentStatusApproved},
		{"intermediate step stays pending", false, entity.DocumentStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			machine := builder.Build(entity.DocumentStatusPending)
			ctx := context.WithValue(context.Background(), guardKey{}, tt.lastStep)
			if err := machine.Fire(ctx, TriggerApprove); err != nil {
				t.Fatalf("Fire() failed: %v", err)
			}
			if machine.State() != tt.wantState {
				t.Errorf("State after Fire() = %v, want %v", machine.State(), tt.wantState)
			}
		})
	}
}

func TestStateConfiguration_PermitIf_GuardFails(t *testing.T) {
	builder := NewBuilder[entity.LineStatus]()
	builder.Configure(entity.LineStatusPending).
		PermitIf(TriggerApprove, entity.LineStatusApproved, func(ctx context.Context) bool {
			return false
		})

	machine := builder.Build(entity.LineStatusPending)

	err := machine.Fire(context.Background(), TriggerApprove)
	if !errors.Is(err, ErrGuardFailed) {
		t.Fatalf("Fire() error = %v, want %v", err, ErrGuardFailed)
	}
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("guard failure should classify as ErrInvalidState, got %v", err)
	}
	if machine.State() != entity.LineStatusPending {
		t.Errorf("State should remain PENDING after failed Fire(), got %v", machine.State())
	}
}

func TestStateMachine_Fire_InvalidTransition(t *testing.T) {
	builder := NewBuilder[entity.DocumentStatus]()
	builder.Configure(entity.DocumentStatusDraft).
		Permit(TriggerSubmit, entity.DocumentStatusPending)

	machine := builder.Build(entity.DocumentStatusDraft)

	err := machine.Fire(context.Background(), TriggerApprove)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Fire() error = %v, want %v", err, ErrInvalidTransition)
	}
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("invalid transition should classify as ErrInvalidState, got %v", err)
	}
	if machine.State() != entity.DocumentStatusDraft {
		t.Errorf("State should remain DRAFT after failed Fire(), got %v", machine.State())
	}
}

func TestStateMachine_Fire_NoConfiguration(t *testing.T) {
	machine := NewBuilder[entity.DocumentStatus]().Build(entity.DocumentStatusApproved)

	if err := machine.Fire(context.Background(), TriggerCancel); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire() error = %v, want %v", err, ErrInvalidTransition)
	}
	if got := machine.PermittedTriggers(); len(got) != 0 {
		t.Errorf("PermittedTriggers() = %v, want none", got)
	}
}

func TestStateMachine_PermittedTriggers(t *testing.T) {
	builder := NewBuilder[entity.DocumentStatus]()
	builder.Configure(entity.DocumentStatusPending).
		Permit(TriggerReject, entity.DocumentStatusRejected).
		Permit(TriggerCancel, entity.DocumentStatusCanceled).
		Permit(TriggerApprove, entity.DocumentStatusApproved)

	triggers := builder.Build(entity.DocumentStatusPending).PermittedTriggers()

	want := []Trigger{TriggerApprove, TriggerCancel, TriggerReject}
	if len(triggers) != len(want) {
		t.Fatalf("PermittedTriggers() = %v, want %v", triggers, want)
	}
	for i := range want {
		if triggers[i] != want[i] {
			t.Errorf("PermittedTriggers()[%d] = %v, want %v", i, triggers[i], want[i])
		}
	}
}

func TestStateMachine_Independence(t *testing.T) {
	builder := NewBuilder[entity.DocumentStatus]()
	builder.Configure(entity.DocumentStatusDraft).
		Permit(TriggerSubmit, entity.DocumentStatusPending)

	machine1 := builder.Build(entity.DocumentStatusDraft)
	machine2 := builder.Build(entity.DocumentStatusDraft)

	// Configuring after Build must not affect machines already built
	builder.Configure(entity.DocumentStatusDraft).
		Permit(TriggerCancel, entity.DocumentStatusCanceled)

	if err := machine1.Fire(context.Background(), TriggerSubmit); err != nil {
		t.Fatalf("Fire() failed: %v", err)
	}
	if machine2.State() != entity.DocumentStatusDraft {
		t.Errorf("machine2 state = %v, want DRAFT", machine2.State())
	}
	if machine2.CanFire(TriggerCancel) {
		t.Error("machine2 should not see transitions configured after Build()")
	}
}
