package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	"course-guard/internal/logging"
	"course-guard/internal/policy/repository"
)

const gateQuery = "data.course_guard.access.state"

// Default Rego policy: availability first unless the deployment denies indeterminate outcomes.
const defaultRegoPolicy = `package course_guard.access

default state := "passed"

state := input.reason if {
	input.decision == "denied"
	input.reason in {"device_limit", "concurrent"}
}

state := "unavailable" if {
	input.decision == "denied"
	not input.reason in {"device_limit", "concurrent"}
}

state := "unavailable" if {
	input.decision == "indeterminate"
	input.policy.deny_indeterminate
}
`

// policyCacheTTL bounds how long a compiled policy set is reused before enabled rows are reloaded.
const policyCacheTTL = 30 * time.Second

const preparedKey = "gate"

var validStates = map[string]bool{
	StatePassed:      true,
	StateDeviceLimit: true,
	StateConcurrent:  true,
	StateUnavailable: true,
}

// OPAEvaluator resolves gate states with OPA Rego. Enabled rows in access_policies replace the default module.
type OPAEvaluator struct {
	policyRepo repository.Repository
	prepared   *ttlcache.Cache[string, rego.PreparedEvalQuery]
}

// NewOPAEvaluator returns an OPA-based policy evaluator. policyRepo may be nil to always use the default policy.
func NewOPAEvaluator(policyRepo repository.Repository) *OPAEvaluator {
	return &OPAEvaluator{
		policyRepo: policyRepo,
		prepared: ttlcache.New(
			ttlcache.WithTTL[string, rego.PreparedEvalQuery](policyCacheTTL),
			ttlcache.WithDisableTouchOnHit[string, rego.PreparedEvalQuery](),
		),
	}
}

// HealthCheck verifies that the in-process OPA Rego engine can compile and evaluate the default policy.
// Does not call the policy repo or database. Returns nil on success.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	pq, err := prepare(ctx, []string{defaultRegoPolicy})
	if err != nil {
		return err
	}
	state, err := evalState(ctx, pq, GateInput{Decision: DecisionIndeterminate})
	if err != nil {
		return err
	}
	if state != StatePassed {
		return fmt.Errorf("default policy resolved %q, want %q", state, StatePassed)
	}
	return nil
}

// ResolveGateState evaluates the active policy set for in.
func (e *OPAEvaluator) ResolveGateState(ctx context.Context, in GateInput) (string, error) {
	pq, err := e.query(ctx)
	if err != nil {
		return FallbackState(in), err
	}
	state, err := evalState(ctx, pq, in)
	if err != nil {
		return FallbackState(in), err
	}
	return state, nil
}

// Invalidate drops the compiled policy set so the next evaluation reloads enabled policies.
func (e *OPAEvaluator) Invalidate() {
	e.prepared.DeleteAll()
}

func (e *OPAEvaluator) query(ctx context.Context) (rego.PreparedEvalQuery, error) {
	if item := e.prepared.Get(preparedKey); item != nil {
		return item.Value(), nil
	}
	modules, custom := e.loadModules(ctx)
	pq, err := prepare(ctx, modules)
	if err != nil && custom {
		logging.Ctx(ctx).Error().Err(err).Msg("policy: stored policies failed to compile, using default")
		pq, err = prepare(ctx, []string{defaultRegoPolicy})
	}
	if err != nil {
		return rego.PreparedEvalQuery{}, err
	}
	e.prepared.Set(preparedKey, pq, ttlcache.DefaultTTL)
	return pq, nil
}

// loadModules returns the enabled stored modules, or the default module with custom=false.
func (e *OPAEvaluator) loadModules(ctx context.Context) (modules []string, custom bool) {
	if e.policyRepo == nil {
		return []string{defaultRegoPolicy}, false
	}
	enabled, err := e.policyRepo.ListEnabled(ctx)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("policy: failed to load policies, using default")
		return []string{defaultRegoPolicy}, false
	}
	for _, p := range enabled {
		if p.Enabled && p.Rules != "" {
			modules = append(modules, p.Rules)
		}
	}
	if len(modules) == 0 {
		return []string{defaultRegoPolicy}, false
	}
	return modules, true
}

func prepare(ctx context.Context, policies []string) (rego.PreparedEvalQuery, error) {
	modules := make(map[string]string, len(policies))
	for i, policy := range policies {
		modules[fmt.Sprintf("policy_%d.rego", i)] = policy
	}
	compiler, err := ast.CompileModules(modules)
	if err != nil {
		return rego.PreparedEvalQuery{}, fmt.Errorf("compile policies: %w", err)
	}
	pq, err := rego.New(rego.Query(gateQuery), rego.Compiler(compiler)).PrepareForEval(ctx)
	if err != nil {
		return rego.PreparedEvalQuery{}, fmt.Errorf("prepare query: %w", err)
	}
	return pq, nil
}

func evalState(ctx context.Context, pq rego.PreparedEvalQuery, in GateInput) (string, error) {
	input := map[string]any{
		"decision": in.Decision,
		"reason":   in.Reason,
		"policy": map[string]any{
			"deny_indeterminate": in.DenyIndeterminate,
		},
	}
	rs, err := pq.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("eval policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return "", fmt.Errorf("policy query returned no result")
	}
	state, ok := rs[0].Expressions[0].Value.(string)
	if !ok || !validStates[state] {
		return "", fmt.Errorf("policy returned invalid state %v", rs[0].Expressions[0].Value)
	}
	return state, nil
}
