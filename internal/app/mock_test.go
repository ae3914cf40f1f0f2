package app_test

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/neomorfeo/tenantscope/internal/domain"
)

// memStore is an in-memory domain.Store.
type memStore struct {
	mu          sync.Mutex
	deployments map[string]domain.Deployment
	definitions map[string]domain.Definition
	entities    map[string]domain.Entity
	jobs        map[string]domain.Job
	batches     map[string]domain.Batch
}

var _ domain.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		deployments: make(map[string]domain.Deployment),
		definitions: make(map[string]domain.Definition),
		entities:    make(map[string]domain.Entity),
		jobs:        make(map[string]domain.Job),
		batches:     make(map[string]domain.Batch),
	}
}

func (m *memStore) SaveDeployment(_ context.Context, d domain.Deployment) (domain.Deployment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, def := range d.Definitions {
		highest := 0
		for _, existing := range m.definitions {
			if existing.Kind == def.Kind && existing.Key == def.Key && existing.TenantID == def.TenantID && existing.Version > highest {
				highest = existing.Version
			}
		}
		def.Version = highest + 1
		def.DeploymentID = d.ID
		m.definitions[def.ID] = def
		d.Definitions[i] = def
	}
	stored := d
	stored.Definitions = nil
	m.deployments[d.ID] = stored
	return d, nil
}

func (m *memStore) GetDeployment(_ context.Context, id string) (domain.Deployment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.deployments[id]
	if !ok {
		return domain.Deployment{}, domain.ErrDeploymentNotFound
	}
	for _, def := range m.sortedDefinitions() {
		if def.DeploymentID == id {
			d.Definitions = append(d.Definitions, def)
		}
	}
	return d, nil
}

func (m *memStore) DeleteDeployment(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.deployments[id]; !ok {
		return domain.ErrDeploymentNotFound
	}
	delete(m.deployments, id)
	for defID, def := range m.definitions {
		if def.DeploymentID == id {
			delete(m.definitions, defID)
		}
	}
	return nil
}

func (m *memStore) GetDefinition(_ context.Context, id string) (domain.Definition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	def, ok := m.definitions[id]
	if !ok {
		return domain.Definition{}, domain.ErrDefinitionNotFound
	}
	return def, nil
}

func (m *memStore) FindDefinitions(_ context.Context, q domain.DefinitionQuery) ([]domain.Definition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Definition
	for _, def := range m.sortedDefinitions() {
		if q.Kind != "" && def.Kind != q.Kind {
			continue
		}
		if q.Key != "" && def.Key != q.Key {
			continue
		}
		if q.DeploymentID != "" && def.DeploymentID != q.DeploymentID {
			continue
		}
		if !q.Tenants.Matches(def.TenantID) || !q.Visibility.Matches(def.TenantID) {
			continue
		}
		out = append(out, def)
	}
	return out, nil
}

func (m *memStore) sortedDefinitions() []domain.Definition {
	defs := make([]domain.Definition, 0, len(m.definitions))
	for _, def := range m.definitions {
		defs = append(defs, def)
	}
	slices.SortFunc(defs, func(a, b domain.Definition) int {
		if c := domain.CompareTenantIDs(a.TenantID, b.TenantID); c != 0 {
			return c
		}
		return cmp.Compare(a.Version, b.Version)
	})
	return defs
}

func (m *memStore) CreateEntity(_ context.Context, e domain.Entity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entities[e.ID] = e
	return nil
}

func (m *memStore) GetEntity(_ context.Context, id string) (domain.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entities[id]
	if !ok {
		return domain.Entity{}, domain.ErrEntityNotFound
	}
	return e, nil
}

func (m *memStore) UpdateEntity(_ context.Context, e domain.Entity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entities[e.ID]; !ok {
		return domain.ErrEntityNotFound
	}
	m.entities[e.ID] = e
	return nil
}

func (m *memStore) DeleteEntity(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entities[id]; !ok {
		return domain.ErrEntityNotFound
	}
	delete(m.entities, id)
	return nil
}

func (m *memStore) FindEntities(_ context.Context, q domain.EntityQuery) ([]domain.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Entity
	for _, e := range m.entities {
		switch {
		case q.Kind != "" && e.Kind != q.Kind,
			q.InstanceID != "" && e.InstanceID != q.InstanceID,
			q.ParentID != "" && e.ParentID != q.ParentID,
			q.DefinitionID != "" && e.DefinitionID != q.DefinitionID,
			q.Name != "" && e.Name != q.Name,
			q.EventType != "" && e.EventType != q.EventType,
			!q.Tenants.Matches(e.TenantID),
			!q.Visibility.Matches(e.TenantID):
			continue
		}
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b domain.Entity) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (m *memStore) CreateJob(_ context.Context, j domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[j.ID] = j
	return nil
}

func (m *memStore) GetJob(_ context.Context, id string) (domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[id]
	if !ok {
		return domain.Job{}, domain.ErrJobNotFound
	}
	return j, nil
}

func (m *memStore) UpdateJob(_ context.Context, j domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[j.ID]; !ok {
		return domain.ErrJobNotFound
	}
	m.jobs[j.ID] = j
	return nil
}

func (m *memStore) DeleteJob(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[id]; !ok {
		return domain.ErrJobNotFound
	}
	delete(m.jobs, id)
	return nil
}

func (m *memStore) FindJobs(_ context.Context, q domain.JobQuery) ([]domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Job
	for _, j := range m.jobs {
		switch {
		case q.Type != "" && j.Type != q.Type,
			q.DeploymentID != "" && j.DeploymentID != q.DeploymentID,
			q.DefinitionID != "" && j.DefinitionID != q.DefinitionID,
			q.BatchID != "" && j.BatchID != q.BatchID,
			!q.Tenants.Matches(j.TenantID),
			!q.Visibility.Matches(j.TenantID):
			continue
		}
		out = append(out, j)
	}
	slices.SortFunc(out, func(a, b domain.Job) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (m *memStore) CreateBatch(_ context.Context, b domain.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches[b.ID] = b
	return nil
}

func (m *memStore) GetBatch(_ context.Context, id string) (domain.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.batches[id]
	if !ok {
		return domain.Batch{}, domain.ErrBatchNotFound
	}
	return b, nil
}

func (m *memStore) UpdateBatch(_ context.Context, b domain.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.batches[b.ID]; !ok {
		return domain.ErrBatchNotFound
	}
	m.batches[b.ID] = b
	return nil
}

func (m *memStore) DeleteBatch(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.batches[id]; !ok {
		return domain.ErrBatchNotFound
	}
	delete(m.batches, id)
	return nil
}

func (m *memStore) FindBatches(_ context.Context, q domain.BatchQuery) ([]domain.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Batch
	for _, b := range m.batches {
		if q.Type != "" && b.Type != q.Type {
			continue
		}
		if !q.Tenants.Matches(b.TenantID) || !q.Visibility.Matches(b.TenantID) {
			continue
		}
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b domain.Batch) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// jobsOf returns the stored jobs of the given type.
func (m *memStore) jobsOf(t domain.JobType) []domain.Job {
	jobs, _ := m.FindJobs(context.Background(), domain.JobQuery{Type: t})
	return jobs
}

// mockPublisher records published jobs.
type mockPublisher struct {
	mu        sync.Mutex
	published []domain.Job
	err       error
}

func (p *mockPublisher) Publish(_ context.Context, job domain.Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, job)
	return nil
}

func (p *mockPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

// countingProvider records every invocation and answers with tenant.
type countingProvider struct {
	mu       sync.Mutex
	tenant   domain.TenantID
	contexts []domain.ProviderContext
}

func (p *countingProvider) ProvideTenantID(pc domain.ProviderContext) domain.TenantID {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.contexts = append(p.contexts, pc)
	return p.tenant
}

func (p *countingProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.contexts)
}

// outputEvaluator returns the definition content as the single output "result".
type outputEvaluator struct{}

func (outputEvaluator) Evaluate(_ context.Context, def domain.Definition, _ map[string]any) (map[string]any, error) {
	return map[string]any{"result": string(def.Content)}, nil
}

// stubValidator applies lifecycle transitions from their tables.
type stubValidator struct {
	mu      sync.Mutex
	applied []domain.Event
}

func (v *stubValidator) Apply(_ context.Context, lc domain.Lifecycle, current domain.State, event domain.Event) (domain.State, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, t := range lc.Transitions {
		if t.Event == event && t.Src == current {
			v.applied = append(v.applied, event)
			return t.Dst, nil
		}
	}
	return "", &domain.TransitionError{Lifecycle: lc.Name, Event: event, Current: current}
}

func (v *stubValidator) events() []domain.Event {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.applied)
}
