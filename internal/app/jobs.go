package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/neomorfeo/tenantscope/internal/domain"
)

// JobHandler runs the body of one job type.
type JobHandler interface {
	Handle(ctx context.Context, job domain.Job) error
}

// JobHandlerFunc adapts a function to JobHandler.
type JobHandlerFunc func(ctx context.Context, job domain.Job) error

func (f JobHandlerFunc) Handle(ctx context.Context, job domain.Job) error {
	return f(ctx, job)
}

// JobService persists jobs, hands them to the background executor and runs
// their bodies with retry bookkeeping.
type JobService struct {
	store     domain.Store
	publisher domain.JobPublisher
	gate      *TenantGate
	scope     *JobContextScope
	recorder  domain.Recorder
	logger    *zap.Logger
	retries   int

	mu       sync.RWMutex
	handlers map[domain.JobType]JobHandler
}

// NewJobService creates a job service. retries <= 0 uses domain.DefaultJobRetries.
func NewJobService(store domain.Store, publisher domain.JobPublisher, gate *TenantGate, scope *JobContextScope, retries int, recorder domain.Recorder, logger *zap.Logger) *JobService {
	if retries <= 0 {
		retries = domain.DefaultJobRetries
	}
	if recorder == nil {
		recorder = domain.NopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobService{
		store:     store,
		publisher: publisher,
		gate:      gate,
		scope:     scope,
		recorder:  recorder,
		logger:    logger,
		retries:   retries,
		handlers:  make(map[domain.JobType]JobHandler),
	}
}

// RegisterHandler binds a handler to a job type, replacing any previous one.
func (s *JobService) RegisterHandler(t domain.JobType, h JobHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[t] = h
}

func (s *JobService) handler(t domain.JobType) (JobHandler, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.handlers[t]
	return h, ok
}

// Create persists job and publishes it to the executor.
func (s *JobService) Create(ctx context.Context, job domain.Job) (domain.Job, error) {
	if job.ID == "" {
		job.ID = newID()
	}
	if job.Retries <= 0 {
		job.Retries = s.retries
	}
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	if job.DueDate.IsZero() {
		job.DueDate = now
	}

	if err := s.store.CreateJob(ctx, job); err != nil {
		return domain.Job{}, fmt.Errorf("creating job: %w", err)
	}
	if err := s.publisher.Publish(ctx, job); err != nil {
		return domain.Job{}, fmt.Errorf("publishing job %q: %w", job.ID, err)
	}

	s.logger.Debug("job created",
		zap.String("job_id", job.ID),
		zap.String("type", string(job.Type)),
		zap.String("tenant_id", string(job.TenantID)),
		zap.Time("due", job.DueDate))
	return job, nil
}

// Get returns a job by id.
func (s *JobService) Get(ctx context.Context, id string) (domain.Job, error) {
	return s.store.GetJob(ctx, id)
}

// ExecuteScheduled runs a job on behalf of the background executor. The
// job body runs inside the job's tenant scope. Deleted, suspended and
// exhausted jobs are skipped.
func (s *JobService) ExecuteScheduled(ctx context.Context, jobID string) error {
	job, err := s.store.GetJob(ctx, jobID)
	if errors.Is(err, domain.ErrJobNotFound) {
		s.logger.Debug("skipping deleted job", zap.String("job_id", jobID))
		return nil
	}
	if err != nil {
		return err
	}
	if job.Suspended || job.Retries <= 0 {
		s.logger.Debug("skipping job",
			zap.String("job_id", job.ID),
			zap.Bool("suspended", job.Suspended),
			zap.Int("retries", job.Retries))
		return nil
	}

	return s.scope.Run(ctx, job, func(ctx context.Context) error {
		return s.execute(ctx, job, !job.TenantID.IsNone())
	})
}

// ExecuteManually runs a job on behalf of an operator. The caller's own
// authentication applies; no job scope is installed.
func (s *JobService) ExecuteManually(ctx context.Context, jobID string) error {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if err := s.gate.Check(ctx, "execute", "job", job.ID, job.TenantID); err != nil {
		return err
	}
	return s.execute(ctx, job, false)
}

// SetRetries resets the retry budget of a failed job and republishes it.
func (s *JobService) SetRetries(ctx context.Context, jobID string, retries int) (domain.Job, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return domain.Job{}, err
	}
	if err := s.gate.Check(ctx, "set retries of", "job", job.ID, job.TenantID); err != nil {
		return domain.Job{}, err
	}

	job.Retries = retries
	if err := s.store.UpdateJob(ctx, job); err != nil {
		return domain.Job{}, fmt.Errorf("updating job: %w", err)
	}
	if retries > 0 {
		if err := s.publisher.Publish(ctx, job); err != nil {
			return domain.Job{}, fmt.Errorf("publishing job %q: %w", job.ID, err)
		}
	}
	return job, nil
}

// SetSuspended suspends or activates job. An activated job is handed to the
// executor again.
func (s *JobService) SetSuspended(ctx context.Context, job domain.Job, suspended bool) error {
	if job.Suspended == suspended {
		return nil
	}
	job.Suspended = suspended
	if err := s.store.UpdateJob(ctx, job); err != nil {
		return fmt.Errorf("updating job %q: %w", job.ID, err)
	}
	if !suspended && job.Retries > 0 {
		if err := s.publisher.Publish(ctx, job); err != nil {
			return fmt.Errorf("publishing job %q: %w", job.ID, err)
		}
	}
	return nil
}

func (s *JobService) execute(ctx context.Context, job domain.Job, scoped bool) error {
	h, ok := s.handler(job.Type)
	if !ok {
		return s.fail(ctx, job, scoped, fmt.Errorf("no handler registered for job type %q", job.Type))
	}

	if err := h.Handle(ctx, job); err != nil {
		return s.fail(ctx, job, scoped, err)
	}

	if err := s.store.DeleteJob(ctx, job.ID); err != nil && !errors.Is(err, domain.ErrJobNotFound) {
		return fmt.Errorf("removing completed job: %w", err)
	}
	s.recorder.JobExecuted(job.Type, scoped, false)
	s.logger.Info("job executed",
		zap.String("job_id", job.ID),
		zap.String("type", string(job.Type)),
		zap.String("tenant_id", string(job.TenantID)),
		zap.String("deployment_id", job.DeploymentID),
		zap.Bool("scoped", scoped))
	return nil
}

// fail records retry bookkeeping for job and raises an incident carrying the
// job's tenant once retries are exhausted.
func (s *JobService) fail(ctx context.Context, job domain.Job, scoped bool, cause error) error {
	s.recorder.JobExecuted(job.Type, scoped, true)

	job.Retries--
	if job.Retries < 0 {
		job.Retries = 0
	}
	job.ExceptionMessage = cause.Error()

	if err := s.store.UpdateJob(ctx, job); err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			return &domain.JobFailureError{JobID: job.ID, Retries: 0, Err: cause}
		}
		return fmt.Errorf("recording job failure: %w", err)
	}

	if job.Retries == 0 {
		incident := domain.Entity{
			ID:           newID(),
			Kind:         domain.EntityIncident,
			TenantID:     job.TenantID,
			ParentID:     job.ID,
			InstanceID:   job.InstanceID,
			DefinitionID: job.DefinitionID,
			Name:         "failedJob",
			Value:        job.ExceptionMessage,
			CreatedAt:    time.Now().UTC(),
		}
		if err := s.store.CreateEntity(ctx, incident); err != nil {
			return fmt.Errorf("creating incident: %w", err)
		}
	}

	s.logger.Warn("job failed",
		zap.String("job_id", job.ID),
		zap.String("type", string(job.Type)),
		zap.String("tenant_id", string(job.TenantID)),
		zap.String("deployment_id", job.DeploymentID),
		zap.Int("retries", job.Retries),
		zap.Error(cause))

	return &domain.JobFailureError{JobID: job.ID, Retries: job.Retries, Err: cause}
}
