package workflow

import (
	"github.com/garyjia/groupware-approval/internal/domain/entity"
	domainwf "github.com/garyjia/groupware-approval/internal/domain/workflow"
)

var (
	documentMachineBuilder = buildDocumentMachine()
	lineMachineBuilder     = buildLineMachine()
)

// NewDocumentStateMachine returns a document machine positioned at status
func NewDocumentStateMachine(status entity.DocumentStatus) domainwf.StateMachine[entity.DocumentStatus] {
	return documentMachineBuilder.Build(status)
}

// NewLineStateMachine returns a line machine positioned at status
func NewLineStateMachine(status entity.LineStatus) domainwf.StateMachine[entity.LineStatus] {
	return lineMachineBuilder.Build(status)
}

func buildDocumentMachine() domainwf.StateMachineBuilder[entity.DocumentStatus] {
	builder := domainwf.NewBuilder[entity.DocumentStatus]()

	builder.Configure(entity.DocumentStatusDraft).
		Permit(domainwf.TriggerSubmit, entity.DocumentStatusPending).
		Permit(domainwf.TriggerCancel, entity.DocumentStatusCanceled)

	// APPROVE_STEP is a self-transition: an intermediate step was approved
	builder.Configure(entity.DocumentStatusPending).
		Permit(domainwf.TriggerApproveStep, entity.DocumentStatusPending).
		Permit(domainwf.TriggerApprove, entity.DocumentStatusApproved).
		Permit(domainwf.TriggerReject, entity.DocumentStatusRejected).
		Permit(domainwf.TriggerCancel, entity.DocumentStatusCanceled)

	// APPROVED, REJECTED and CANCELED are terminal - no outgoing transitions

	return builder
}

func buildLineMachine() domainwf.StateMachineBuilder[entity.LineStatus] {
	builder := domainwf.NewBuilder[entity.LineStatus]()

	builder.Configure(entity.LineStatusPending).
		Permit(domainwf.TriggerApprove, entity.LineStatusApproved).
		Permit(domainwf.TriggerReject, entity.LineStatusRejected).
		Permit(domainwf.TriggerSkip, entity.LineStatusSkipped)

	return builder
}
