package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/tenantscope/internal/domain"
)

// TracingPublisher wraps a domain.JobPublisher with OpenTelemetry tracing.
type TracingPublisher struct {
	next   domain.JobPublisher
	tracer trace.Tracer
}

// Compile-time check: TracingPublisher implements domain.JobPublisher.
var _ domain.JobPublisher = (*TracingPublisher)(nil)

// NewTracingPublisher creates a tracing decorator around the given publisher.
func NewTracingPublisher(next domain.JobPublisher) *TracingPublisher {
	return &TracingPublisher{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (p *TracingPublisher) Publish(ctx context.Context, job domain.Job) error {
	ctx, span := p.tracer.Start(ctx, "JobPublisher.Publish",
		trace.WithAttributes(
			attribute.String("job.id", job.ID),
			attribute.String("job.type", string(job.Type)),
			attribute.String("tenant.id", job.TenantID.String()),
		),
	)
	defer span.End()

	err := p.next.Publish(ctx, job)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
