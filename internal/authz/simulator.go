package authz

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sentinel-iam/sentinel-iam/internal/shared"
)

// SimulationRequest names an arbitrary (subject, module, action) triple to
// test against current policy.
type SimulationRequest struct {
	SubjectID int64  `json:"subject_id" validate:"required,gt=0"`
	Module    string `json:"module" validate:"required"`
	Action    string `json:"action" validate:"required"`
}

// SimulationResult is the gate decision plus a justification, tagged with a
// trace id so administrators can reference a specific evaluation.
type SimulationResult struct {
	TraceID     string    `json:"trace_id"`
	Allowed     bool      `json:"allowed"`
	Reason      string    `json:"reason,omitempty"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// Simulator exposes the gate as a side-effect-free what-if check. The
// contract is identical to Gate.Allowed; only the framing differs, with the
// subject given explicitly instead of taken from the caller's session.
type Simulator struct {
	gate *Gate
}

// NewSimulator constructs a Simulator.
func NewSimulator(gate *Gate) *Simulator {
	return &Simulator{gate: gate}
}

// Simulate evaluates the triple without mutating anything.
func (s *Simulator) Simulate(ctx context.Context, req SimulationRequest) (SimulationResult, error) {
	action, err := shared.ParseAction(req.Action)
	if err != nil {
		return SimulationResult{}, err
	}

	decision, err := s.gate.Allowed(ctx, req.SubjectID, req.Module, action)
	if err != nil {
		return SimulationResult{}, err
	}

	result := SimulationResult{
		TraceID:     uuid.NewString(),
		Allowed:     decision.Granted,
		Reason:      decision.Reason,
		EvaluatedAt: time.Now().UTC(),
	}
	if decision.Granted {
		result.Reason = fmt.Sprintf("%s:%s present in effective permission set", req.Module, action)
	}
	return result, nil
}
