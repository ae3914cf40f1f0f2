package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/neomorfeo/tenantscope/internal/domain"
)

// seedConcurrency bounds the number of execution jobs a seed job creates in parallel.
const seedConcurrency = 8

type migrationBatchConfig struct {
	Plan        domain.MigrationPlan `json:"plan"`
	InstanceIDs []string             `json:"instanceIds"`
}

// MigrationService builds migration plans and executes them synchronously
// or as a batch of per-instance jobs.
type MigrationService struct {
	store           domain.Store
	resolver        *DefinitionResolver
	gate            *TenantGate
	jobs            *JobService
	migrator        domain.InstanceMigrator
	validator       domain.TransitionValidator
	monitorInterval time.Duration
	logger          *zap.Logger
}

// NewMigrationService creates a migration service.
func NewMigrationService(store domain.Store, resolver *DefinitionResolver, gate *TenantGate, jobs *JobService, migrator domain.InstanceMigrator, validator domain.TransitionValidator, monitorInterval time.Duration, logger *zap.Logger) *MigrationService {
	if migrator == nil {
		migrator = NewDefinitionMigrator(store)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MigrationService{
		store:           store,
		resolver:        resolver,
		gate:            gate,
		jobs:            jobs,
		migrator:        migrator,
		validator:       validator,
		monitorInterval: monitorInterval,
		logger:          logger,
	}
}

// CreatePlan builds a plan from sourceID to targetID. Plans between two
// different tenants are rejected here and never produced.
func (s *MigrationService) CreatePlan(ctx context.Context, sourceID, targetID string, instructions []domain.MigrationInstruction) (domain.MigrationPlan, error) {
	source, err := s.resolver.Resolve(ctx, domain.ByID(domain.KindProcess, sourceID))
	if err != nil {
		return domain.MigrationPlan{}, fmt.Errorf("resolving source definition: %w", err)
	}
	target, err := s.resolver.Resolve(ctx, domain.ByID(domain.KindProcess, targetID))
	if err != nil {
		return domain.MigrationPlan{}, fmt.Errorf("resolving target definition: %w", err)
	}

	if err := domain.CheckPlanTenants(source.TenantID, target.TenantID); err != nil {
		return domain.MigrationPlan{}, err
	}

	return domain.MigrationPlan{
		SourceDefinitionID: source.ID,
		TargetDefinitionID: target.ID,
		SourceTenantID:     source.TenantID,
		TargetTenantID:     target.TenantID,
		Instructions:       slices.Clone(instructions),
	}, nil
}

// Execute migrates instanceIDs synchronously and stops at the first failure.
func (s *MigrationService) Execute(ctx context.Context, plan domain.MigrationPlan, instanceIDs []string) error {
	for _, id := range instanceIDs {
		if err := s.migrateInstance(ctx, plan, id, true); err != nil {
			return err
		}
	}
	s.logger.Info("instances migrated",
		zap.String("source_definition_id", plan.SourceDefinitionID),
		zap.String("target_definition_id", plan.TargetDefinitionID),
		zap.Int("instances", len(instanceIDs)))
	return nil
}

// ExecuteAsync creates a migration batch. Every instance is migrated by its
// own job, so a tenant violation fails only that job.
func (s *MigrationService) ExecuteAsync(ctx context.Context, plan domain.MigrationPlan, instanceIDs []string) (domain.Batch, error) {
	if len(instanceIDs) == 0 {
		return domain.Batch{}, domain.ErrNoInstances
	}
	for _, id := range instanceIDs {
		inst, err := s.store.GetEntity(ctx, id)
		if err != nil {
			return domain.Batch{}, fmt.Errorf("loading process instance %q: %w", id, err)
		}
		if err := s.gate.Check(ctx, "migrate", "process instance", inst.ID, inst.TenantID); err != nil {
			return domain.Batch{}, err
		}
	}

	config, err := json.Marshal(migrationBatchConfig{Plan: plan, InstanceIDs: instanceIDs})
	if err != nil {
		return domain.Batch{}, fmt.Errorf("encoding batch configuration: %w", err)
	}

	tenant := domain.BatchTenant(plan.SourceTenantID, plan.TargetTenantID)
	now := time.Now().UTC()
	batch := domain.Batch{
		ID:            newID(),
		Type:          domain.BatchMigration,
		TenantID:      tenant,
		Status:        domain.StatusActive,
		TotalJobs:     len(instanceIDs),
		Configuration: string(config),
		CreatedAt:     now,
	}

	jobTypes := []domain.JobType{domain.JobBatchSeed, domain.JobBatchMonitor, domain.JobBatchMigration}
	jobDefs := make(map[domain.JobType]string, len(jobTypes))
	for _, jt := range jobTypes {
		jobDefs[jt] = newID()
	}
	batch.SeedJobDefinitionID = jobDefs[domain.JobBatchSeed]
	batch.MonitorJobDefinitionID = jobDefs[domain.JobBatchMonitor]
	batch.BatchJobDefinitionID = jobDefs[domain.JobBatchMigration]

	if err := s.store.CreateBatch(ctx, batch); err != nil {
		return domain.Batch{}, fmt.Errorf("creating batch: %w", err)
	}

	var created []string
	fail := func(err error) (domain.Batch, error) {
		s.discardBatch(ctx, batch.ID, created)
		return domain.Batch{}, err
	}
	for _, jt := range jobTypes {
		jd := domain.Entity{
			ID:        jobDefs[jt],
			Kind:      domain.EntityJobDefinition,
			TenantID:  tenant,
			ParentID:  batch.ID,
			Name:      string(jt),
			CreatedAt: now,
		}
		if err := s.store.CreateEntity(ctx, jd); err != nil {
			return fail(fmt.Errorf("creating %s job definition: %w", jt, err))
		}
		created = append(created, jd.ID)
	}

	if _, err := s.jobs.Create(ctx, domain.Job{
		Type:            domain.JobBatchSeed,
		TenantID:        tenant,
		BatchID:         batch.ID,
		JobDefinitionID: batch.SeedJobDefinitionID,
	}); err != nil {
		return fail(fmt.Errorf("creating seed job: %w", err))
	}

	s.logger.Info("migration batch created",
		zap.String("batch_id", batch.ID),
		zap.String("tenant_id", string(tenant)),
		zap.Int("instances", len(instanceIDs)))
	return batch, nil
}

// discardBatch removes a batch whose creation failed, with the job
// definitions and jobs already stored for it.
func (s *MigrationService) discardBatch(ctx context.Context, batchID string, jobDefinitionIDs []string) {
	jobs, err := s.store.FindJobs(ctx, domain.JobQuery{BatchID: batchID})
	if err != nil {
		s.logger.Warn("finding jobs of discarded batch", zap.String("batch_id", batchID), zap.Error(err))
	}
	for _, j := range jobs {
		if err := s.store.DeleteJob(ctx, j.ID); err != nil && !errors.Is(err, domain.ErrJobNotFound) {
			s.logger.Warn("deleting job of discarded batch", zap.String("job_id", j.ID), zap.Error(err))
		}
	}
	for _, id := range jobDefinitionIDs {
		if err := s.store.DeleteEntity(ctx, id); err != nil && !errors.Is(err, domain.ErrEntityNotFound) {
			s.logger.Warn("deleting job definition of discarded batch", zap.String("job_definition_id", id), zap.Error(err))
		}
	}
	if err := s.store.DeleteBatch(ctx, batchID); err != nil && !errors.Is(err, domain.ErrBatchNotFound) {
		s.logger.Warn("deleting discarded batch", zap.String("batch_id", batchID), zap.Error(err))
	}
}

// seed creates one execution job per instance that has none yet, then the monitor job.
func (s *MigrationService) seed(ctx context.Context, job domain.Job) error {
	batch, config, err := s.loadBatch(ctx, job.BatchID)
	if err != nil {
		return err
	}

	pending, err := s.store.FindJobs(ctx, domain.JobQuery{Type: domain.JobBatchMigration, BatchID: batch.ID})
	if err != nil {
		return fmt.Errorf("finding batch jobs: %w", err)
	}
	seeded := make(map[string]bool, len(pending))
	for _, j := range pending {
		seeded[j.Configuration] = true
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(seedConcurrency)
	for _, id := range config.InstanceIDs {
		if seeded[id] {
			continue
		}
		g.Go(func() error {
			_, err := s.jobs.Create(gctx, domain.Job{
				Type:            domain.JobBatchMigration,
				TenantID:        batch.TenantID,
				BatchID:         batch.ID,
				JobDefinitionID: batch.BatchJobDefinitionID,
				InstanceID:      id,
				Configuration:   id,
			})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("creating execution jobs: %w", err)
	}

	batch.JobsCreated = len(config.InstanceIDs)
	if err := s.store.UpdateBatch(ctx, batch); err != nil {
		return fmt.Errorf("updating batch: %w", err)
	}
	return s.scheduleMonitor(ctx, batch)
}

// executeJob migrates the one instance named by job. The tenant check runs
// here, inside the job.
func (s *MigrationService) executeJob(ctx context.Context, job domain.Job) error {
	_, config, err := s.loadBatch(ctx, job.BatchID)
	if err != nil {
		return err
	}
	return s.migrateInstance(ctx, config.Plan, job.Configuration, false)
}

// monitor completes the batch once no execution job is left and reschedules itself otherwise.
func (s *MigrationService) monitor(ctx context.Context, job domain.Job) error {
	batch, _, err := s.loadBatch(ctx, job.BatchID)
	if err != nil {
		return err
	}

	remaining, err := s.store.FindJobs(ctx, domain.JobQuery{Type: domain.JobBatchMigration, BatchID: batch.ID})
	if err != nil {
		return fmt.Errorf("finding batch jobs: %w", err)
	}
	if len(remaining) > 0 {
		s.logger.Debug("batch still running",
			zap.String("batch_id", batch.ID),
			zap.Int("remaining", len(remaining)))
		return s.scheduleMonitor(ctx, batch)
	}

	next, err := s.validator.Apply(ctx, domain.BatchLifecycle, domain.State(batch.Status), domain.EventComplete)
	if err != nil {
		return err
	}
	batch.Status = domain.Status(next)
	if err := s.store.UpdateBatch(ctx, batch); err != nil {
		return fmt.Errorf("completing batch: %w", err)
	}
	s.logger.Info("batch completed", zap.String("batch_id", batch.ID), zap.String("tenant_id", string(batch.TenantID)))
	return nil
}

func (s *MigrationService) scheduleMonitor(ctx context.Context, batch domain.Batch) error {
	_, err := s.jobs.Create(ctx, domain.Job{
		Type:            domain.JobBatchMonitor,
		TenantID:        batch.TenantID,
		BatchID:         batch.ID,
		JobDefinitionID: batch.MonitorJobDefinitionID,
		DueDate:         time.Now().UTC().Add(s.monitorInterval),
	})
	if err != nil {
		return fmt.Errorf("creating monitor job: %w", err)
	}
	return nil
}

func (s *MigrationService) loadBatch(ctx context.Context, id string) (domain.Batch, migrationBatchConfig, error) {
	batch, err := s.store.GetBatch(ctx, id)
	if err != nil {
		return domain.Batch{}, migrationBatchConfig{}, fmt.Errorf("loading batch: %w", err)
	}
	var config migrationBatchConfig
	if err := json.Unmarshal([]byte(batch.Configuration), &config); err != nil {
		return domain.Batch{}, migrationBatchConfig{}, fmt.Errorf("decoding batch %q configuration: %w", batch.ID, err)
	}
	return batch, config, nil
}

// migrateInstance checks and migrates one process instance. checked is false
// inside batch jobs, whose authorization was checked when the batch was created.
func (s *MigrationService) migrateInstance(ctx context.Context, plan domain.MigrationPlan, instanceID string, checked bool) error {
	inst, err := s.store.GetEntity(ctx, instanceID)
	if err != nil {
		return fmt.Errorf("loading process instance %q: %w", instanceID, err)
	}
	if !inst.IsInstanceRoot() || inst.Kind != domain.EntityExecution {
		return fmt.Errorf("entity %q is not a process instance", inst.ID)
	}
	if inst.DefinitionID == plan.TargetDefinitionID {
		return nil
	}
	if inst.DefinitionID != plan.SourceDefinitionID {
		return fmt.Errorf("process instance %q is not an instance of definition %q", inst.ID, plan.SourceDefinitionID)
	}

	if checked {
		if err := s.gate.Check(ctx, "migrate", "process instance", inst.ID, inst.TenantID); err != nil {
			return err
		}
	}
	if err := domain.CheckInstanceTenant(inst.ID, inst.TenantID, plan.TargetTenantID); err != nil {
		return err
	}

	if err := s.migrator.Migrate(ctx, inst, plan); err != nil {
		return fmt.Errorf("migrating process instance %q: %w", inst.ID, err)
	}
	s.logger.Debug("process instance migrated",
		zap.String("instance_id", inst.ID),
		zap.String("tenant_id", string(inst.TenantID)),
		zap.String("target_definition_id", plan.TargetDefinitionID))
	return nil
}

// DefinitionMigrator repoints every entity of an instance at the target
// definition. Tenants are left untouched.
type DefinitionMigrator struct {
	store domain.EntityRepository
}

var _ domain.InstanceMigrator = (*DefinitionMigrator)(nil)

// NewDefinitionMigrator creates a migrator writing to store.
func NewDefinitionMigrator(store domain.EntityRepository) *DefinitionMigrator {
	return &DefinitionMigrator{store: store}
}

func (m *DefinitionMigrator) Migrate(ctx context.Context, instance domain.Entity, plan domain.MigrationPlan) error {
	entities, err := m.store.FindEntities(ctx, domain.EntityQuery{InstanceID: instance.ID})
	if err != nil {
		return fmt.Errorf("finding instance entities: %w", err)
	}
	if !slices.ContainsFunc(entities, func(e domain.Entity) bool { return e.ID == instance.ID }) {
		entities = append(entities, instance)
	}
	for _, e := range entities {
		if e.DefinitionID != plan.SourceDefinitionID {
			continue
		}
		e.DefinitionID = plan.TargetDefinitionID
		if err := m.store.UpdateEntity(ctx, e); err != nil {
			return fmt.Errorf("updating entity %q: %w", e.ID, err)
		}
	}
	return nil
}
