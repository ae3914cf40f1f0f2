package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/tenantscope/internal/domain"
)

const tracerName = "github.com/neomorfeo/tenantscope/internal/adapter/otel"

// TracingStore wraps a domain.Store with OpenTelemetry tracing.
// Each method creates a span carrying the tenant predicates and records errors.
type TracingStore struct {
	next   domain.Store
	tracer trace.Tracer
}

// Compile-time check: TracingStore implements domain.Store.
var _ domain.Store = (*TracingStore)(nil)

// NewTracingStore creates a tracing decorator around the given store.
func NewTracingStore(next domain.Store) *TracingStore {
	return &TracingStore{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (s *TracingStore) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func tenantAttr(id domain.TenantID) attribute.KeyValue {
	return attribute.String("tenant.id", id.String())
}

func tenantQueryAttrs(q domain.TenantQuery, v domain.Visibility) []attribute.KeyValue {
	ids := make([]string, 0, len(q.IDs()))
	for _, id := range q.IDs() {
		ids = append(ids, string(id))
	}
	return []attribute.KeyValue{
		attribute.StringSlice("filter.tenant_ids", ids),
		attribute.Bool("filter.without_tenant", q.Without()),
		attribute.Bool("filter.include_without_tenant", q.IncludeWithout()),
		attribute.Bool("filter.restricted", v.Restricted),
	}
}

func (s *TracingStore) SaveDeployment(ctx context.Context, d domain.Deployment) (domain.Deployment, error) {
	ctx, span := s.start(ctx, "Store.SaveDeployment",
		attribute.String("deployment.id", d.ID),
		attribute.Int("deployment.definitions", len(d.Definitions)),
		tenantAttr(d.TenantID),
	)
	saved, err := s.next.SaveDeployment(ctx, d)
	finish(span, err)
	return saved, err
}

func (s *TracingStore) GetDeployment(ctx context.Context, id string) (domain.Deployment, error) {
	ctx, span := s.start(ctx, "Store.GetDeployment", attribute.String("deployment.id", id))
	d, err := s.next.GetDeployment(ctx, id)
	finish(span, err)
	return d, err
}

func (s *TracingStore) DeleteDeployment(ctx context.Context, id string) error {
	ctx, span := s.start(ctx, "Store.DeleteDeployment", attribute.String("deployment.id", id))
	err := s.next.DeleteDeployment(ctx, id)
	finish(span, err)
	return err
}

func (s *TracingStore) GetDefinition(ctx context.Context, id string) (domain.Definition, error) {
	ctx, span := s.start(ctx, "Store.GetDefinition", attribute.String("definition.id", id))
	def, err := s.next.GetDefinition(ctx, id)
	if err == nil {
		span.SetAttributes(tenantAttr(def.TenantID))
	}
	finish(span, err)
	return def, err
}

func (s *TracingStore) FindDefinitions(ctx context.Context, q domain.DefinitionQuery) ([]domain.Definition, error) {
	attrs := append(tenantQueryAttrs(q.Tenants, q.Visibility),
		attribute.String("definition.kind", string(q.Kind)),
		attribute.String("definition.key", q.Key),
	)
	ctx, span := s.start(ctx, "Store.FindDefinitions", attrs...)
	defs, err := s.next.FindDefinitions(ctx, q)
	if err == nil {
		span.SetAttributes(attribute.Int("result.count", len(defs)))
	}
	finish(span, err)
	return defs, err
}

func (s *TracingStore) CreateEntity(ctx context.Context, e domain.Entity) error {
	ctx, span := s.start(ctx, "Store.CreateEntity",
		attribute.String("entity.id", e.ID),
		attribute.String("entity.kind", string(e.Kind)),
		tenantAttr(e.TenantID),
	)
	err := s.next.CreateEntity(ctx, e)
	finish(span, err)
	return err
}

func (s *TracingStore) GetEntity(ctx context.Context, id string) (domain.Entity, error) {
	ctx, span := s.start(ctx, "Store.GetEntity", attribute.String("entity.id", id))
	e, err := s.next.GetEntity(ctx, id)
	finish(span, err)
	return e, err
}

func (s *TracingStore) UpdateEntity(ctx context.Context, e domain.Entity) error {
	ctx, span := s.start(ctx, "Store.UpdateEntity", attribute.String("entity.id", e.ID))
	err := s.next.UpdateEntity(ctx, e)
	finish(span, err)
	return err
}

func (s *TracingStore) DeleteEntity(ctx context.Context, id string) error {
	ctx, span := s.start(ctx, "Store.DeleteEntity", attribute.String("entity.id", id))
	err := s.next.DeleteEntity(ctx, id)
	finish(span, err)
	return err
}

func (s *TracingStore) FindEntities(ctx context.Context, q domain.EntityQuery) ([]domain.Entity, error) {
	attrs := append(tenantQueryAttrs(q.Tenants, q.Visibility),
		attribute.String("entity.kind", string(q.Kind)),
	)
	ctx, span := s.start(ctx, "Store.FindEntities", attrs...)
	entities, err := s.next.FindEntities(ctx, q)
	if err == nil {
		span.SetAttributes(attribute.Int("result.count", len(entities)))
	}
	finish(span, err)
	return entities, err
}

func (s *TracingStore) CreateJob(ctx context.Context, j domain.Job) error {
	ctx, span := s.start(ctx, "Store.CreateJob",
		attribute.String("job.id", j.ID),
		attribute.String("job.type", string(j.Type)),
		tenantAttr(j.TenantID),
	)
	err := s.next.CreateJob(ctx, j)
	finish(span, err)
	return err
}

func (s *TracingStore) GetJob(ctx context.Context, id string) (domain.Job, error) {
	ctx, span := s.start(ctx, "Store.GetJob", attribute.String("job.id", id))
	j, err := s.next.GetJob(ctx, id)
	finish(span, err)
	return j, err
}

func (s *TracingStore) UpdateJob(ctx context.Context, j domain.Job) error {
	ctx, span := s.start(ctx, "Store.UpdateJob",
		attribute.String("job.id", j.ID),
		attribute.Int("job.retries", j.Retries),
		attribute.Bool("job.suspended", j.Suspended),
	)
	err := s.next.UpdateJob(ctx, j)
	finish(span, err)
	return err
}

func (s *TracingStore) DeleteJob(ctx context.Context, id string) error {
	ctx, span := s.start(ctx, "Store.DeleteJob", attribute.String("job.id", id))
	err := s.next.DeleteJob(ctx, id)
	finish(span, err)
	return err
}

func (s *TracingStore) FindJobs(ctx context.Context, q domain.JobQuery) ([]domain.Job, error) {
	attrs := append(tenantQueryAttrs(q.Tenants, q.Visibility),
		attribute.String("job.type", string(q.Type)),
	)
	ctx, span := s.start(ctx, "Store.FindJobs", attrs...)
	jobs, err := s.next.FindJobs(ctx, q)
	if err == nil {
		span.SetAttributes(attribute.Int("result.count", len(jobs)))
	}
	finish(span, err)
	return jobs, err
}

func (s *TracingStore) CreateBatch(ctx context.Context, b domain.Batch) error {
	ctx, span := s.start(ctx, "Store.CreateBatch",
		attribute.String("batch.id", b.ID),
		tenantAttr(b.TenantID),
	)
	err := s.next.CreateBatch(ctx, b)
	finish(span, err)
	return err
}

func (s *TracingStore) GetBatch(ctx context.Context, id string) (domain.Batch, error) {
	ctx, span := s.start(ctx, "Store.GetBatch", attribute.String("batch.id", id))
	b, err := s.next.GetBatch(ctx, id)
	finish(span, err)
	return b, err
}

func (s *TracingStore) UpdateBatch(ctx context.Context, b domain.Batch) error {
	ctx, span := s.start(ctx, "Store.UpdateBatch",
		attribute.String("batch.id", b.ID),
		attribute.String("batch.status", string(b.Status)),
	)
	err := s.next.UpdateBatch(ctx, b)
	finish(span, err)
	return err
}

func (s *TracingStore) DeleteBatch(ctx context.Context, id string) error {
	ctx, span := s.start(ctx, "Store.DeleteBatch", attribute.String("batch.id", id))
	err := s.next.DeleteBatch(ctx, id)
	finish(span, err)
	return err
}

func (s *TracingStore) FindBatches(ctx context.Context, q domain.BatchQuery) ([]domain.Batch, error) {
	ctx, span := s.start(ctx, "Store.FindBatches", tenantQueryAttrs(q.Tenants, q.Visibility)...)
	batches, err := s.next.FindBatches(ctx, q)
	if err == nil {
		span.SetAttributes(attribute.Int("result.count", len(batches)))
	}
	finish(span, err)
	return batches, err
}
