package workflow

// Trigger represents an event that can cause a state transition
type Trigger string

const (
	TriggerSubmit      Trigger = "SUBMIT"
	TriggerApproveStep Trigger = "APPROVE_STEP"
	TriggerApprove     Trigger = "APPROVE"
	TriggerReject      Trigger = "REJECT"
	TriggerCancel      Trigger = "CANCEL"
	TriggerSkip        Trigger = "SKIP"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
