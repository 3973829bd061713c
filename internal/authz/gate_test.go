package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinel-iam/sentinel-iam/internal/shared"
)

type stubSource struct {
	set *PermissionSet
	err error
}

func (s stubSource) EffectivePermissions(ctx context.Context, subjectID int64) (*PermissionSet, error) {
	return s.set, s.err
}

type stubDirectory struct {
	known map[string]bool
	err   error
}

func (d stubDirectory) ModuleExists(ctx context.Context, name string) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	return d.known[name], nil
}

func supportSet() *PermissionSet {
	set := NewPermissionSet()
	set.Add(grant(1, 1, "Users", shared.ActionRead))
	set.Add(grant(2, 1, "Users", shared.ActionDelete))
	return set
}

func TestGateGrantsHeldPermission(t *testing.T) {
	gate := NewGate(stubSource{set: supportSet()}, stubDirectory{known: map[string]bool{"Users": true}}, nil)

	decision, err := gate.Allowed(context.Background(), 1, "Users", shared.ActionRead)
	require.NoError(t, err)
	assert.True(t, decision.Granted)
	assert.Empty(t, decision.Reason)
}

func TestGateDeniesMissingGrantOnKnownModule(t *testing.T) {
	gate := NewGate(stubSource{set: supportSet()}, stubDirectory{known: map[string]bool{"Users": true, "Reports": true}}, nil)

	decision, err := gate.Allowed(context.Background(), 1, "Reports", shared.ActionDelete)
	require.NoError(t, err)
	assert.False(t, decision.Granted)
	assert.Equal(t, "no delete permission for Reports", decision.Reason)
}

func TestGateDeniesUnknownModuleWithDistinctReason(t *testing.T) {
	gate := NewGate(stubSource{set: supportSet()}, stubDirectory{known: map[string]bool{"Users": true}}, nil)

	decision, err := gate.Allowed(context.Background(), 1, "Ghost", shared.ActionRead)
	require.NoError(t, err)
	assert.False(t, decision.Granted)
	assert.Equal(t, `module "Ghost" not found`, decision.Reason)
}

func TestGateFailsClosedOnResolutionError(t *testing.T) {
	resolveErr := &shared.ResolutionError{Err: errors.New("db down")}
	gate := NewGate(stubSource{err: resolveErr}, stubDirectory{known: map[string]bool{"Users": true}}, nil)

	decision, err := gate.Allowed(context.Background(), 1, "Users", shared.ActionRead)
	require.Error(t, err)
	assert.False(t, decision.Granted)
	assert.Equal(t, "authorization unavailable", decision.Reason)
}

func TestGateFailsClosedOnDirectoryError(t *testing.T) {
	gate := NewGate(stubSource{set: NewPermissionSet()}, stubDirectory{err: errors.New("db down")}, nil)

	decision, err := gate.Allowed(context.Background(), 1, "Users", shared.ActionRead)
	require.Error(t, err)
	assert.False(t, decision.Granted)
	assert.Equal(t, "authorization unavailable", decision.Reason)
}

func TestSimulatorReportsGrantWithJustification(t *testing.T) {
	gate := NewGate(stubSource{set: supportSet()}, stubDirectory{known: map[string]bool{"Users": true}}, nil)
	sim := NewSimulator(gate)

	result, err := sim.Simulate(context.Background(), SimulationRequest{SubjectID: 1, Module: "Users", Action: "delete"})
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, "Users:delete present in effective permission set", result.Reason)
	assert.NotEmpty(t, result.TraceID)
	assert.False(t, result.EvaluatedAt.IsZero())
}

func TestSimulatorRejectsUnknownAction(t *testing.T) {
	gate := NewGate(stubSource{set: supportSet()}, stubDirectory{known: map[string]bool{"Users": true}}, nil)
	sim := NewSimulator(gate)

	_, err := sim.Simulate(context.Background(), SimulationRequest{SubjectID: 1, Module: "Users", Action: "approve"})
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
}

func TestSimulatorPassesThroughDenialReason(t *testing.T) {
	gate := NewGate(stubSource{set: supportSet()}, stubDirectory{known: map[string]bool{"Users": true, "Reports": true}}, nil)
	sim := NewSimulator(gate)

	result, err := sim.Simulate(context.Background(), SimulationRequest{SubjectID: 1, Module: "Reports", Action: "read"})
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, "no read permission for Reports", result.Reason)
}
