package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/neomorfeo/tenantscope/internal/domain"
)

// DeploymentService deploys definitions for a tenant and keeps their
// timer start jobs in step with the latest version.
type DeploymentService struct {
	store  domain.Store
	gate   *TenantGate
	jobs   *JobService
	logger *zap.Logger
}

// NewDeploymentService creates a deployment service.
func NewDeploymentService(store domain.Store, gate *TenantGate, jobs *JobService, logger *zap.Logger) *DeploymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeploymentService{store: store, gate: gate, jobs: jobs, logger: logger}
}

// Deploy creates a deployment owned by req.TenantID. Resources whose content
// equals the latest deployed version for the same key and tenant are
// skipped; everything else gets the next version of its tenant.
func (s *DeploymentService) Deploy(ctx context.Context, req domain.DeploymentRequest) (domain.Deployment, error) {
	if err := validateResources(req.Resources); err != nil {
		return domain.Deployment{}, err
	}
	if err := s.gate.Check(ctx, "create", "deployment", req.Name, req.TenantID); err != nil {
		return domain.Deployment{}, err
	}

	dep := domain.Deployment{
		ID:         newID(),
		Name:       req.Name,
		TenantID:   req.TenantID,
		Source:     req.Source,
		DeployedAt: time.Now().UTC(),
	}

	for _, res := range req.Resources {
		sum := checksum(res)
		latest, found, err := s.latest(ctx, res.Kind, res.Key, req.TenantID)
		if err != nil {
			return domain.Deployment{}, err
		}
		if found && latest.Checksum == sum {
			s.logger.Debug("skipping unchanged resource",
				zap.String("resource", res.Name),
				zap.String("key", res.Key),
				zap.String("tenant_id", string(req.TenantID)),
				zap.Int("version", latest.Version))
			continue
		}

		name := res.DefName
		if name == "" {
			name = res.Key
		}
		dep.Definitions = append(dep.Definitions, domain.Definition{
			ID:           newID(),
			Kind:         res.Kind,
			Key:          res.Key,
			Name:         name,
			VersionTag:   res.VersionTag,
			TenantID:     req.TenantID,
			DeploymentID: dep.ID,
			ResourceName: res.Name,
			Checksum:     sum,
			TimerStart:   res.TimerStart,
			Content:      res.Content,
		})
	}

	saved, err := s.store.SaveDeployment(ctx, dep)
	if err != nil {
		return domain.Deployment{}, fmt.Errorf("saving deployment: %w", err)
	}

	for _, def := range saved.Definitions {
		if def.Kind != domain.KindProcess {
			continue
		}
		if err := s.rearmTimer(ctx, def); err != nil {
			return domain.Deployment{}, err
		}
	}

	s.logger.Info("deployment created",
		zap.String("deployment_id", saved.ID),
		zap.String("name", saved.Name),
		zap.String("tenant_id", string(saved.TenantID)),
		zap.Int("definitions", len(saved.Definitions)))
	return saved, nil
}

// GetDeployment returns a deployment the caller may see.
func (s *DeploymentService) GetDeployment(ctx context.Context, id string) (domain.Deployment, error) {
	dep, err := s.store.GetDeployment(ctx, id)
	if err != nil {
		return domain.Deployment{}, err
	}
	if !s.gate.Visibility(ctx).Matches(dep.TenantID) {
		return domain.Deployment{}, domain.ErrDeploymentNotFound
	}
	return dep, nil
}

// DeleteDeployment removes a deployment with its definitions, their jobs and
// job definitions. Timer start jobs of the versions that become latest again
// are re-created.
func (s *DeploymentService) DeleteDeployment(ctx context.Context, id string) error {
	dep, err := s.store.GetDeployment(ctx, id)
	if err != nil {
		return err
	}
	if err := s.gate.Check(ctx, "delete", "deployment", dep.ID, dep.TenantID); err != nil {
		return err
	}

	jobs, err := s.store.FindJobs(ctx, domain.JobQuery{DeploymentID: dep.ID})
	if err != nil {
		return fmt.Errorf("finding deployment jobs: %w", err)
	}
	for _, j := range jobs {
		if err := s.store.DeleteJob(ctx, j.ID); err != nil && !errors.Is(err, domain.ErrJobNotFound) {
			return fmt.Errorf("deleting job %q: %w", j.ID, err)
		}
	}

	for _, def := range dep.Definitions {
		jobDefs, err := s.store.FindEntities(ctx, domain.EntityQuery{
			Kind:         domain.EntityJobDefinition,
			DefinitionID: def.ID,
		})
		if err != nil {
			return fmt.Errorf("finding job definitions: %w", err)
		}
		for _, jd := range jobDefs {
			if err := s.store.DeleteEntity(ctx, jd.ID); err != nil && !errors.Is(err, domain.ErrEntityNotFound) {
				return fmt.Errorf("deleting job definition %q: %w", jd.ID, err)
			}
		}
	}

	if err := s.store.DeleteDeployment(ctx, dep.ID); err != nil {
		return fmt.Errorf("deleting deployment: %w", err)
	}

	for _, def := range dep.Definitions {
		if def.Kind != domain.KindProcess {
			continue
		}
		previous, found, err := s.latest(ctx, def.Kind, def.Key, def.TenantID)
		if err != nil {
			return err
		}
		if found {
			if err := s.rearmTimer(ctx, previous); err != nil {
				return err
			}
		}
	}

	s.logger.Info("deployment deleted",
		zap.String("deployment_id", dep.ID),
		zap.String("tenant_id", string(dep.TenantID)))
	return nil
}

// latest returns the highest deployed version of key owned by tenant.
func (s *DeploymentService) latest(ctx context.Context, kind domain.DefinitionKind, key string, tenant domain.TenantID) (domain.Definition, bool, error) {
	defs, err := s.store.FindDefinitions(ctx, domain.DefinitionQuery{
		Kind:    kind,
		Key:     key,
		Tenants: exactTenant(tenant),
	})
	if err != nil {
		return domain.Definition{}, false, fmt.Errorf("finding definitions: %w", err)
	}
	def, ok := latestFor(defs, tenant)
	return def, ok, nil
}

// rearmTimer replaces the timer start job of def's key and tenant with one
// for def. Definitions without a timer start only remove the old job.
func (s *DeploymentService) rearmTimer(ctx context.Context, def domain.Definition) error {
	existing, err := s.store.FindJobs(ctx, domain.JobQuery{
		Type:    domain.JobTimerStart,
		Tenants: exactTenant(def.TenantID),
	})
	if err != nil {
		return fmt.Errorf("finding timer jobs: %w", err)
	}
	for _, j := range existing {
		if j.Configuration != def.Key {
			continue
		}
		if j.DefinitionID == def.ID {
			return nil
		}
		if err := s.store.DeleteJob(ctx, j.ID); err != nil && !errors.Is(err, domain.ErrJobNotFound) {
			return fmt.Errorf("removing previous timer job: %w", err)
		}
	}

	if !def.HasTimerStart() {
		return nil
	}
	after, err := time.ParseDuration(def.TimerStart)
	if err != nil {
		return fmt.Errorf("parsing timer start of %q: %w", def.Key, err)
	}

	_, err = s.jobs.Create(ctx, domain.Job{
		Type:          domain.JobTimerStart,
		TenantID:      def.TenantID,
		DeploymentID:  def.DeploymentID,
		DefinitionID:  def.ID,
		Configuration: def.Key,
		DueDate:       time.Now().UTC().Add(after),
	})
	if err != nil {
		return fmt.Errorf("creating timer job: %w", err)
	}
	return nil
}

func validateResources(resources []domain.Resource) error {
	if len(resources) == 0 {
		return fmt.Errorf("%w: no resources", domain.ErrInvalidDeployment)
	}
	for _, r := range resources {
		if !r.Kind.Valid() {
			return fmt.Errorf("%w: resource %q: unknown definition kind %q", domain.ErrInvalidDeployment, r.Name, r.Kind)
		}
		if r.Key == "" {
			return fmt.Errorf("%w: resource %q: missing definition key", domain.ErrInvalidDeployment, r.Name)
		}
		if r.TimerStart != "" {
			if r.Kind != domain.KindProcess {
				return fmt.Errorf("%w: resource %q: only process definitions can have a timer start", domain.ErrInvalidDeployment, r.Name)
			}
			if _, err := time.ParseDuration(r.TimerStart); err != nil {
				return fmt.Errorf("%w: resource %q: invalid timer start %q", domain.ErrInvalidDeployment, r.Name, r.TimerStart)
			}
		}
	}
	return nil
}

// checksum covers everything that ends up on the definition, so a changed
// timer or version tag counts as a change.
func checksum(r domain.Resource) string {
	h := sha256.New()
	h.Write(r.Content)
	h.Write([]byte{0})
	h.Write([]byte(r.TimerStart))
	h.Write([]byte{0})
	h.Write([]byte(r.VersionTag))
	h.Write([]byte{0})
	h.Write([]byte(r.DefName))
	return hex.EncodeToString(h.Sum(nil))
}
