package authz

import (
	"context"
	"fmt"

	"github.com/sentinel-iam/sentinel-iam/internal/observability"
	"github.com/sentinel-iam/sentinel-iam/internal/shared"
)

// PermissionSource yields a subject's effective permission set. Satisfied by
// both Resolver and CachedResolver.
type PermissionSource interface {
	EffectivePermissions(ctx context.Context, subjectID int64) (*PermissionSet, error)
}

// ModuleDirectory answers whether a module name exists, so denial reasons
// can distinguish an unknown module from a missing grant.
type ModuleDirectory interface {
	ModuleExists(ctx context.Context, name string) (bool, error)
}

// Gate is the single authorization chokepoint. Every UI-affordance check and
// every endpoint guard goes through Allowed; no other code evaluates grants.
type Gate struct {
	source  PermissionSource
	modules ModuleDirectory
	metrics *observability.Metrics
}

// NewGate constructs a Gate.
func NewGate(source PermissionSource, modules ModuleDirectory, metrics *observability.Metrics) *Gate {
	return &Gate{source: source, modules: modules, metrics: metrics}
}

// Allowed decides whether the subject may perform action on the named
// module. Fail-closed: any resolution failure returns a denied decision
// alongside the error, never a grant.
func (g *Gate) Allowed(ctx context.Context, subjectID int64, moduleName string, action shared.Action) (Decision, error) {
	set, err := g.source.EffectivePermissions(ctx, subjectID)
	if err != nil {
		g.observe(moduleName, action, false)
		return Decision{Granted: false, Reason: "authorization unavailable"}, err
	}
	return g.AllowedWithSet(ctx, set, moduleName, action)
}

// AllowedWithSet evaluates against a pre-resolved set, letting callers reuse
// one resolution across several checks within a request.
func (g *Gate) AllowedWithSet(ctx context.Context, set *PermissionSet, moduleName string, action shared.Action) (Decision, error) {
	if set.Has(moduleName, action) {
		g.observe(moduleName, action, true)
		return Decision{Granted: true}, nil
	}

	known, err := g.modules.ModuleExists(ctx, moduleName)
	if err != nil {
		g.observe(moduleName, action, false)
		return Decision{Granted: false, Reason: "authorization unavailable"}, err
	}
	g.observe(moduleName, action, false)
	if !known {
		return Decision{Granted: false, Reason: fmt.Sprintf("module %q not found", moduleName)}, nil
	}
	return Decision{Granted: false, Reason: fmt.Sprintf("no %s permission for %s", action, moduleName)}, nil
}

func (g *Gate) observe(module string, action shared.Action, granted bool) {
	if g.metrics != nil {
		g.metrics.ObserveDecision(module, string(action), granted)
	}
}
