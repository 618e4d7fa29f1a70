package engine

import "context"

// Decision values fed to the gate policy.
const (
	DecisionAllowed       = "allowed"
	DecisionDenied        = "denied"
	DecisionIndeterminate = "indeterminate"
)

// Terminal gate states a policy may resolve to.
const (
	StatePassed      = "passed"
	StateDeviceLimit = "device_limit"
	StateConcurrent  = "concurrent"
	StateUnavailable = "unavailable"
)

// GateInput is the evaluated gate decision handed to the policy.
type GateInput struct {
	// Decision is one of the Decision* values.
	Decision string
	// Reason names the denying check (device_limit or concurrent) when Decision is denied.
	Reason string
	// DenyIndeterminate is the deployment setting for failed evaluations.
	DenyIndeterminate bool
}

// Evaluator maps a gate decision to a terminal state.
type Evaluator interface {
	// ResolveGateState returns the terminal state for in. On error the returned state is FallbackState(in).
	ResolveGateState(ctx context.Context, in GateInput) (string, error)
}

// FallbackState is the built-in mapping, identical to the default Rego policy.
func FallbackState(in GateInput) string {
	switch in.Decision {
	case DecisionDenied:
		if in.Reason == StateDeviceLimit || in.Reason == StateConcurrent {
			return in.Reason
		}
		return StateUnavailable
	case DecisionIndeterminate:
		if in.DenyIndeterminate {
			return StateUnavailable
		}
		return StatePassed
	default:
		return StatePassed
	}
}
