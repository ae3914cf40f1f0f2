package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/neomorfeo/tenantscope/internal/domain"
)

// JobContextScope installs the job's tenant as the authentication of a
// background job body and releases it on every exit path.
//
// The authentication lives on the job's context.Context, so two workers
// never share it and nothing installed for one job is visible to the next.
type JobContextScope struct {
	validator domain.TransitionValidator
	logger    *zap.Logger
}

// NewJobContextScope creates a scope guarded by the job-scope lifecycle.
func NewJobContextScope(validator domain.TransitionValidator, logger *zap.Logger) *JobContextScope {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobContextScope{validator: validator, logger: logger}
}

type scopeKey struct{}

// scopeState is the job-scope lifecycle state of one Run.
type scopeState struct {
	state domain.State
}

func currentScope(ctx context.Context) domain.State {
	if st, ok := ctx.Value(scopeKey{}).(*scopeState); ok {
		return st.state
	}
	return domain.ScopeIdle
}

// Run executes body for job. Tenant-bound jobs see an authentication that
// carries exactly the job tenant; tenant-less jobs see none, even if the
// parent context had one. A job scope cannot be installed inside another.
func (s *JobContextScope) Run(ctx context.Context, job domain.Job, body func(context.Context) error) error {
	if job.TenantID.IsNone() {
		return body(domain.WithoutAuthentication(ctx))
	}

	installed, err := s.validator.Apply(ctx, domain.JobScopeLifecycle, currentScope(ctx), domain.EventInstall)
	if err != nil {
		return fmt.Errorf("installing job scope for job %q: %w", job.ID, err)
	}
	st := &scopeState{state: installed}

	scoped := domain.WithAuthentication(ctx, domain.Authentication{
		TenantIDs: domain.NewTenantSet(job.TenantID),
	})
	scoped = context.WithValue(scoped, scopeKey{}, st)
	s.logger.Debug("job scope installed",
		zap.String("job_id", job.ID),
		zap.String("tenant_id", string(job.TenantID)))

	defer func() {
		released, relErr := s.validator.Apply(ctx, domain.JobScopeLifecycle, st.state, domain.EventRelease)
		if relErr != nil {
			s.logger.Error("releasing job scope", zap.String("job_id", job.ID), zap.Error(relErr))
			return
		}
		st.state = released
		s.logger.Debug("job scope released", zap.String("job_id", job.ID))
	}()

	return body(scoped)
}
