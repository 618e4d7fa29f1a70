package access

import (
	"context"
	"fmt"

	deviceservice "course-guard/internal/device/service"
	"course-guard/internal/identity"
	"course-guard/internal/logging"
	"course-guard/internal/policy/engine"
	sessionservice "course-guard/internal/session/service"
	"course-guard/internal/telemetry"
)

// DeviceChecker is the device registry step.
type DeviceChecker interface {
	CheckAndRegister(ctx context.Context, accountID string, maxDevices int) (*deviceservice.CheckResult, error)
}

// SessionChecker is the session registry steps.
type SessionChecker interface {
	CheckConcurrentAccess(ctx context.Context, accountID string) (*sessionservice.ConcurrentResult, error)
	CreateSingleSession(ctx context.Context, accountID string) (string, error)
	ForceNewSession(ctx context.Context, accountID string) (string, error)
}

// Recorder counts gate outcomes. *otel.Metrics satisfies it.
type Recorder interface {
	GateOutcome(ctx context.Context, state string)
}

// Result is a terminal gate state with what the remediation screen needs.
type Result struct {
	State          State  `json:"state"`
	Message        string `json:"message,omitempty"`
	CurrentDevices int    `json:"current_devices"`
	MaxDevices     int    `json:"max_devices"`
	// SessionToken is set when the gate created this device's session.
	SessionToken string `json:"session_token,omitempty"`
}

// Gate runs the access checks in a fixed order: device, concurrent session, session creation.
type Gate struct {
	devices           DeviceChecker
	sessions          SessionChecker
	policy            engine.Evaluator
	maxDevices        int
	denyIndeterminate bool
	metrics           Recorder
	events            telemetry.EventEmitter
}

// NewGate returns a Gate. policy may be nil to use engine.FallbackState; metrics and events may be nil.
func NewGate(devices DeviceChecker, sessions SessionChecker, policy engine.Evaluator, maxDevices int, denyIndeterminate bool, metrics Recorder, events telemetry.EventEmitter) *Gate {
	return &Gate{
		devices:           devices,
		sessions:          sessions,
		policy:            policy,
		maxDevices:        maxDevices,
		denyIndeterminate: denyIndeterminate,
		metrics:           metrics,
		events:            events,
	}
}

// Evaluate runs the gate for the identity in ctx. Without an identity the gate passes immediately.
func (g *Gate) Evaluate(ctx context.Context) *Result {
	accountID, ok := identity.AccountID(ctx)
	if !ok || accountID == "" {
		return &Result{State: StatePassed}
	}
	d := g.Decide(ctx, accountID)
	res := g.resolve(ctx, d)
	g.record(ctx, accountID, d, res)
	return res
}

// Decide runs the three checks and reports the raw decision. Any failure yields Indeterminate.
func (g *Gate) Decide(ctx context.Context, accountID string) Decision {
	dev, err := g.devices.CheckAndRegister(ctx, accountID, g.maxDevices)
	if err != nil {
		return Decision{Outcome: Indeterminate, Err: fmt.Errorf("device check: %w", err)}
	}
	d := Decision{CurrentDevices: dev.CurrentDevices, MaxDevices: dev.MaxDevices}
	if !dev.Allowed {
		d.Outcome, d.Reason, d.Message = Denied, StateDeviceLimit, dev.Message
		return d
	}

	conc, err := g.sessions.CheckConcurrentAccess(ctx, accountID)
	if err != nil {
		return Decision{Outcome: Indeterminate, Err: fmt.Errorf("concurrent check: %w", err), CurrentDevices: d.CurrentDevices, MaxDevices: d.MaxDevices}
	}
	if !conc.Allowed {
		d.Outcome, d.Reason, d.Message = Denied, StateConcurrent, conc.Message
		return d
	}

	token, err := g.sessions.CreateSingleSession(ctx, accountID)
	if err != nil {
		return Decision{Outcome: Indeterminate, Err: fmt.Errorf("create session: %w", err), CurrentDevices: d.CurrentDevices, MaxDevices: d.MaxDevices}
	}
	d.Outcome, d.SessionToken = Allowed, token
	return d
}

// Force makes the calling device the account's only session, signing any other device out.
// The device check still runs first; an over-cap device gets StateDeviceLimit and no session.
// The concurrent check is skipped since displacing the other session is the point.
func (g *Gate) Force(ctx context.Context, accountID string) (*Result, error) {
	dev, err := g.devices.CheckAndRegister(ctx, accountID, g.maxDevices)
	if err != nil {
		return nil, fmt.Errorf("device check: %w", err)
	}
	res := &Result{CurrentDevices: dev.CurrentDevices, MaxDevices: dev.MaxDevices}
	if !dev.Allowed {
		res.State, res.Message = StateDeviceLimit, dev.Message
		logging.Ctx(ctx).Info().Str("account", accountID).Msg("access: force refused, device over the limit")
		if g.metrics != nil {
			g.metrics.GateOutcome(ctx, string(res.State))
		}
		return res, nil
	}
	token, err := g.sessions.ForceNewSession(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("force session: %w", err)
	}
	res.State, res.SessionToken = StatePassed, token
	return res, nil
}

// resolve applies deployment policy to d.
func (g *Gate) resolve(ctx context.Context, d Decision) *Result {
	in := engine.GateInput{Decision: d.Outcome.String(), Reason: string(d.Reason), DenyIndeterminate: g.denyIndeterminate}
	var state string
	if g.policy == nil {
		state = engine.FallbackState(in)
	} else {
		var err error
		state, err = g.policy.ResolveGateState(ctx, in)
		if err != nil || state == "" {
			logging.Ctx(ctx).Warn().Err(err).Str("decision", in.Decision).Msg("access: policy evaluation failed, using built-in mapping")
			state = engine.FallbackState(in)
		}
	}

	res := &Result{
		State:          State(state),
		CurrentDevices: d.CurrentDevices,
		MaxDevices:     d.MaxDevices,
		SessionToken:   d.SessionToken,
	}
	switch res.State {
	case StateDeviceLimit, StateConcurrent:
		res.Message = d.Message
	case StateUnavailable:
		res.Message = UnavailableMessage
	}
	return res
}

func (g *Gate) record(ctx context.Context, accountID string, d Decision, res *Result) {
	if d.Outcome == Indeterminate {
		logging.Ctx(ctx).Warn().Err(d.Err).Str("state", string(res.State)).Msg("access: gate evaluation indeterminate")
	}
	if g.metrics != nil {
		g.metrics.GateOutcome(ctx, string(res.State))
	}
	telemetry.EmitAsync(g.events, ctx, telemetry.NewEvent(accountID, telemetry.EventGateOutcome, map[string]any{
		"state":    string(res.State),
		"decision": d.Outcome.String(),
	}))
}
