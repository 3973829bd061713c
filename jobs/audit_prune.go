package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/sentinel-iam/sentinel-iam/internal/jobs"
)

// AuditPruneJob deletes audit log records older than the retention window.
type AuditPruneJob struct {
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewAuditPruneJob wires dependencies for the prune handler.
func NewAuditPruneJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *AuditPruneJob {
	return &AuditPruneJob{Pool: pool, Logger: logger, Metrics: metrics}
}

// Handle processes prune tasks.
func (j *AuditPruneJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("audit prune: handler not configured")
	}
	var payload AuditPrunePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.RetainDays <= 0 {
		payload.RetainDays = 365
	}

	tracker := j.metrics().Track(TaskAuditPrune)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	tag, err := j.Pool.Exec(ctx,
		`DELETE FROM audit_logs WHERE occurred_at < NOW() - make_interval(days => $1)`,
		payload.RetainDays)
	if err != nil {
		resultErr = err
		j.logger().Error("prune audit logs", slog.Any("error", err))
		return resultErr
	}

	j.logger().Info("pruned audit logs",
		slog.Int64("removed", tag.RowsAffected()),
		slog.Int("retain_days", payload.RetainDays))
	return resultErr
}

func (j *AuditPruneJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskAuditPrune))
	}
	return slog.Default().With(slog.String("job", TaskAuditPrune))
}

func (j *AuditPruneJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
