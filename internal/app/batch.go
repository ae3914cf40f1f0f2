package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/neomorfeo/tenantscope/internal/domain"
)

// BatchService runs administrative operations on batches. The tenant gate
// is checked before anything is changed.
type BatchService struct {
	store     domain.Store
	gate      *TenantGate
	jobs      *JobService
	validator domain.TransitionValidator
	logger    *zap.Logger
}

// NewBatchService creates a batch service.
func NewBatchService(store domain.Store, gate *TenantGate, jobs *JobService, validator domain.TransitionValidator, logger *zap.Logger) *BatchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchService{store: store, gate: gate, jobs: jobs, validator: validator, logger: logger}
}

// Get returns a batch the caller may see.
func (s *BatchService) Get(ctx context.Context, id string) (domain.Batch, error) {
	b, err := s.store.GetBatch(ctx, id)
	if err != nil {
		return domain.Batch{}, err
	}
	if !s.gate.Visibility(ctx).Matches(b.TenantID) {
		return domain.Batch{}, domain.ErrBatchNotFound
	}
	return b, nil
}

// Suspend suspends the batch and all of its jobs.
func (s *BatchService) Suspend(ctx context.Context, id string) (domain.Batch, error) {
	return s.transition(ctx, id, "suspend", domain.EventSuspend)
}

// Activate re-activates a suspended batch and hands its jobs to the executor again.
func (s *BatchService) Activate(ctx context.Context, id string) (domain.Batch, error) {
	return s.transition(ctx, id, "activate", domain.EventActivate)
}

// Delete removes the batch together with its jobs and job definitions.
func (s *BatchService) Delete(ctx context.Context, id string) error {
	_, err := s.transition(ctx, id, "delete", domain.EventDelete)
	return err
}

func (s *BatchService) transition(ctx context.Context, id, operation string, event domain.Event) (domain.Batch, error) {
	b, err := s.store.GetBatch(ctx, id)
	if err != nil {
		return domain.Batch{}, err
	}
	if err := s.gate.Check(ctx, operation, "batch", b.ID, b.TenantID); err != nil {
		return domain.Batch{}, err
	}

	next, err := s.validator.Apply(ctx, domain.BatchLifecycle, domain.State(b.Status), event)
	if err != nil {
		return domain.Batch{}, err
	}

	jobs, err := s.store.FindJobs(ctx, domain.JobQuery{BatchID: b.ID})
	if err != nil {
		return domain.Batch{}, fmt.Errorf("finding batch jobs: %w", err)
	}

	switch event {
	case domain.EventDelete:
		if err := s.remove(ctx, b, jobs); err != nil {
			return domain.Batch{}, err
		}
	default:
		suspended := event == domain.EventSuspend
		for _, j := range jobs {
			if err := s.jobs.SetSuspended(ctx, j, suspended); err != nil {
				return domain.Batch{}, err
			}
		}
		b.Status = domain.Status(next)
		if err := s.store.UpdateBatch(ctx, b); err != nil {
			return domain.Batch{}, fmt.Errorf("updating batch: %w", err)
		}
	}

	b.Status = domain.Status(next)
	s.logger.Info("batch updated",
		zap.String("batch_id", b.ID),
		zap.String("operation", operation),
		zap.String("tenant_id", string(b.TenantID)),
		zap.String("status", string(b.Status)),
		zap.Int("jobs", len(jobs)))
	return b, nil
}

func (s *BatchService) remove(ctx context.Context, b domain.Batch, jobs []domain.Job) error {
	for _, j := range jobs {
		if err := s.store.DeleteJob(ctx, j.ID); err != nil && !errors.Is(err, domain.ErrJobNotFound) {
			return fmt.Errorf("deleting job %q: %w", j.ID, err)
		}
	}

	jobDefs, err := s.store.FindEntities(ctx, domain.EntityQuery{Kind: domain.EntityJobDefinition, ParentID: b.ID})
	if err != nil {
		return fmt.Errorf("finding batch job definitions: %w", err)
	}
	for _, jd := range jobDefs {
		if err := s.store.DeleteEntity(ctx, jd.ID); err != nil && !errors.Is(err, domain.ErrEntityNotFound) {
			return fmt.Errorf("deleting job definition %q: %w", jd.ID, err)
		}
	}

	if err := s.store.DeleteBatch(ctx, b.ID); err != nil {
		return fmt.Errorf("deleting batch: %w", err)
	}
	return nil
}
