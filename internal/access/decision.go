// Package access implements the page-level gate that runs the device check, then the concurrent-session
// check, then creates this device's session.
package access

import "course-guard/internal/policy/engine"

// Outcome is the three-valued result of running the checks.
type Outcome int

const (
	Allowed Outcome = iota
	Denied
	Indeterminate
)

func (o Outcome) String() string {
	switch o {
	case Allowed:
		return engine.DecisionAllowed
	case Denied:
		return engine.DecisionDenied
	default:
		return engine.DecisionIndeterminate
	}
}

// Decision is what the checks concluded before deployment policy is applied.
type Decision struct {
	Outcome Outcome
	// Reason is the denying state (device_limit or concurrent) when Outcome is Denied.
	Reason State
	// Message is the user-facing denial text.
	Message string
	// Err is the failure behind an Indeterminate outcome.
	Err error

	CurrentDevices int
	MaxDevices     int
	SessionToken   string
}

// State is a gate state. Loading is the only non-terminal one.
type State string

const (
	StateLoading     State = "loading"
	StatePassed      State = engine.StatePassed
	StateDeviceLimit State = engine.StateDeviceLimit
	StateConcurrent  State = engine.StateConcurrent
	// StateUnavailable is reached only when the deployment maps Indeterminate to a blocking state.
	StateUnavailable State = engine.StateUnavailable
)

// Terminal reports whether s ends the gate.
func (s State) Terminal() bool {
	return s != StateLoading && s != ""
}

// UnavailableMessage is shown for StateUnavailable.
const UnavailableMessage = "تعذر التحقق من صلاحية الوصول حالياً. يرجى المحاولة مرة أخرى بعد قليل."
