package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/sentinel-iam/sentinel-iam/internal/authz"
	jobmetrics "github.com/sentinel-iam/sentinel-iam/internal/jobs"
	"github.com/sentinel-iam/sentinel-iam/internal/users"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// AuthzWarmupJob pre-resolves effective permission sets for active users so
// the first request after a cache bump does not pay the traversal cost.
type AuthzWarmupJob struct {
	Resolver authz.PermissionSource
	Users    *users.Service
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// NewAuthzWarmupJob wires dependencies for the warmup handler.
func NewAuthzWarmupJob(resolver authz.PermissionSource, usersSvc *users.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *AuthzWarmupJob {
	return &AuthzWarmupJob{
		Resolver: resolver,
		Users:    usersSvc,
		Logger:   logger,
		Metrics:  metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes warmup tasks.
func (j *AuthzWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Resolver == nil || j.Users == nil {
		return errors.New("authz warmup: handler not configured")
	}
	var payload AuthzWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskAuthzWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	start := j.now()
	logger.Info("starting authz warmup")

	ids, err := j.Users.ActiveIDs(ctx)
	if err != nil {
		resultErr = err
		logger.Error("load active users", slog.Any("error", err))
		return resultErr
	}
	if payload.MaxSubjects > 0 && len(ids) > payload.MaxSubjects {
		ids = ids[:payload.MaxSubjects]
	}

	warmed := 0
	for _, id := range ids {
		subjectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		_, err := j.Resolver.EffectivePermissions(subjectCtx, id)
		cancel()
		if err != nil {
			resultErr = err
			logger.Error("warm subject", slog.Int64("subject_id", id), slog.Any("error", err))
			return resultErr
		}
		warmed++
	}
	j.metrics().AddWarmed(TaskAuthzWarmup, warmed)

	logger.Info("completed authz warmup",
		slog.Int("subjects", warmed),
		slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *AuthzWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskAuthzWarmup))
	}
	return slog.Default().With(slog.String("job", TaskAuthzWarmup))
}

func (j *AuthzWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *AuthzWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
