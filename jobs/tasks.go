package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuthzWarmup pre-resolves effective permission sets for active users.
	TaskAuthzWarmup = "authz:warmup"
	// TaskAuditPrune trims old audit log records.
	TaskAuditPrune = "audit:prune"
)

// AuthzWarmupPayload scopes a warmup run.
type AuthzWarmupPayload struct {
	// MaxSubjects bounds how many users one run resolves; zero means all.
	MaxSubjects int `json:"max_subjects"`
}

// NewAuthzWarmupTask constructs an Asynq task.
func NewAuthzWarmupTask(payload AuthzWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuthzWarmup, data), nil
}

// AuditPrunePayload scopes an audit prune run.
type AuditPrunePayload struct {
	RetainDays int `json:"retain_days"`
}

// NewAuditPruneTask constructs an Asynq task.
func NewAuditPruneTask(payload AuditPrunePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditPrune, data), nil
}
