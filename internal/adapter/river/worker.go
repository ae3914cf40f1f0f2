package river

import (
	"context"
	"errors"
	"fmt"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"github.com/neomorfeo/tenantscope/internal/domain"
)

// JobRunner executes an engine job by id.
type JobRunner interface {
	ExecuteScheduled(ctx context.Context, jobID string) error
}

// JobWorker hands River jobs to the engine. The runner is bound after the
// engine is built, since the engine itself publishes through River.
type JobWorker struct {
	river.WorkerDefaults[JobArgs]

	runner JobRunner
	logger *zap.Logger
}

// NewJobWorker creates an unbound worker.
func NewJobWorker(logger *zap.Logger) *JobWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobWorker{logger: logger}
}

// Bind sets the runner. It must be called before the client is started.
func (w *JobWorker) Bind(runner JobRunner) {
	w.runner = runner
}

// Work processes a single job. A failure that exhausted the engine's
// retries cancels the River job; other failures let River retry.
func (w *JobWorker) Work(ctx context.Context, job *river.Job[JobArgs]) error {
	if w.runner == nil {
		return river.JobCancel(errors.New("job worker not bound"))
	}

	w.logger.Debug("processing job",
		zap.String("job_id", job.Args.JobID),
		zap.String("type", job.Args.Type),
		zap.String("tenant_id", job.Args.TenantID),
		zap.Int64("river_id", job.ID),
		zap.Int("attempt", job.Attempt))

	err := w.runner.ExecuteScheduled(ctx, job.Args.JobID)
	if err == nil {
		return nil
	}

	var failure *domain.JobFailureError
	if errors.As(err, &failure) && failure.Retries <= 0 {
		w.logger.Warn("job retries exhausted",
			zap.String("job_id", job.Args.JobID),
			zap.Error(err))
		return river.JobCancel(err)
	}
	return fmt.Errorf("executing job %s: %w", job.Args.JobID, err)
}
