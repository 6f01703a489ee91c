package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
	"go.uber.org/zap"

	"mis-dashboard/backend/internal/policy/repository"
)

const routeGuardQuery = "data.mis.route_guard.action"

// DefaultRegoPolicy is the guard in Rego, equivalent to the built-in rules.
const DefaultRegoPolicy = `package mis.route_guard

default action := "allow"

excluded if {
	some prefix in input.excluded_prefixes
	input.path == prefix
}

excluded if {
	some prefix in input.excluded_prefixes
	startswith(input.path, concat("", [prefix, "/"]))
}

protected if input.path == input.protected_prefix

protected if startswith(input.path, concat("", [input.protected_prefix, "/"]))

action := "login" if {
	not excluded
	protected
	not input.has_token
}

action := "dashboard" if {
	not excluded
	input.path == input.login_path
	input.has_token
	not input.method == "POST"
	not input.reason == "unauthorized"
}
`

// OPAEvaluator evaluates the route guard with OPA Rego. Policies are compiled once at construction.
type OPAEvaluator struct {
	rules  Rules
	query  rego.PreparedEvalQuery
	logger *zap.Logger
}

// NewOPAEvaluator compiles the enabled policies of repo, or DefaultRegoPolicy when repo is nil or
// has none. Every policy must define data.mis.route_guard.action.
func NewOPAEvaluator(ctx context.Context, repo repository.Repository, rules Rules, logger *zap.Logger) (*OPAEvaluator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	modules := map[string]string{}
	if repo != nil {
		policies, err := repo.EnabledPolicies(ctx)
		if err != nil {
			return nil, fmt.Errorf("load policies: %w", err)
		}
		for i, p := range policies {
			if p.Enabled && p.Rules != "" {
				modules[fmt.Sprintf("policy_%d_%s", i, p.ID)] = p.Rules
			}
		}
	}
	if len(modules) == 0 {
		modules["route_guard.rego"] = DefaultRegoPolicy
	}
	compiler, err := ast.CompileModules(modules)
	if err != nil {
		return nil, fmt.Errorf("compile policies: %w", err)
	}
	pq, err := rego.New(
		rego.Query(routeGuardQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare query: %w", err)
	}
	return &OPAEvaluator{rules: rules, query: pq, logger: logger}, nil
}

// EvaluateRoute evaluates the policy. On failure the built-in decision is returned with the error.
func (e *OPAEvaluator) EvaluateRoute(ctx context.Context, in RouteInput) (Decision, error) {
	action, err := e.eval(ctx, in)
	if err != nil {
		e.logger.Warn("policy: route guard evaluation failed, using built-in rules", zap.String("path", in.Path), zap.Error(err))
		return e.rules.Decide(builtinAction(e.rules, in), in.Path), err
	}
	return e.rules.Decide(action, in.Path), nil
}

// HealthCheck evaluates the compiled policy against a protected path without a token.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	action, err := e.eval(ctx, RouteInput{Path: e.rules.ProtectedPrefix})
	if err != nil {
		return err
	}
	if action != ActionLogin {
		return fmt.Errorf("policy: protected path without token evaluated to %q", action)
	}
	return nil
}

func (e *OPAEvaluator) eval(ctx context.Context, in RouteInput) (Action, error) {
	excluded := make([]interface{}, 0, len(e.rules.ExcludedPrefixes))
	for _, p := range e.rules.ExcludedPrefixes {
		excluded = append(excluded, p)
	}
	input := map[string]interface{}{
		"method":            in.Method,
		"path":              in.Path,
		"has_token":         in.HasToken,
		"reason":            in.Reason,
		"protected_prefix":  e.rules.ProtectedPrefix,
		"login_path":        e.rules.LoginPath,
		"landing_path":      e.rules.LandingPath,
		"excluded_prefixes": excluded,
	}
	rs, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("eval: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return "", errors.New("policy query returned no result")
	}
	s, ok := rs[0].Expressions[0].Value.(string)
	if !ok {
		return "", fmt.Errorf("policy action has type %T, want string", rs[0].Expressions[0].Value)
	}
	switch a := Action(s); a {
	case ActionAllow, ActionLogin, ActionDashboard:
		return a, nil
	default:
		return "", fmt.Errorf("unknown policy action %q", s)
	}
}
