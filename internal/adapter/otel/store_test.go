package otel_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	adapter "github.com/neomorfeo/tenantscope/internal/adapter/otel"
	"github.com/neomorfeo/tenantscope/internal/adapter/sqlite"
	"github.com/neomorfeo/tenantscope/internal/domain"
)

// --- Test tracer setup ---

func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return exporter
}

func newTracingStore(t *testing.T) *adapter.TracingStore {
	t.Helper()
	inner, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { inner.Close() })
	return adapter.NewTracingStore(inner)
}

// --- Tests ---

func TestTracingStore_SaveDeployment_RecordsSpan(t *testing.T) {
	exporter := setupTestTracer(t)
	store := newTracingStore(t)

	d := domain.Deployment{
		ID:         "dep-1",
		TenantID:   "tenant1",
		DeployedAt: time.Now(),
		Definitions: []domain.Definition{
			{ID: "def-1", Kind: domain.KindProcess, Key: "invoice", TenantID: "tenant1"},
		},
	}
	saved, err := store.SaveDeployment(context.Background(), d)
	if err != nil {
		t.Fatalf("SaveDeployment failed: %v", err)
	}
	if saved.Definitions[0].Version != 1 {
		t.Errorf("Version = %d, want 1", saved.Definitions[0].Version)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "Store.SaveDeployment" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "Store.SaveDeployment")
	}
	assertAttribute(t, spans[0], "deployment.id", "dep-1")
	assertAttribute(t, spans[0], "tenant.id", "tenant1")
}

func TestTracingStore_GetDefinition_NotFound(t *testing.T) {
	exporter := setupTestTracer(t)
	store := newTracingStore(t)

	_, err := store.GetDefinition(context.Background(), "missing")
	if !errors.Is(err, domain.ErrDefinitionNotFound) {
		t.Fatalf("expected ErrDefinitionNotFound, got %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status = %v, want %v", spans[0].Status.Code, codes.Error)
	}
	if len(spans[0].Events) == 0 {
		t.Error("expected error event on span")
	}
}

func TestTracingStore_FindEntities_RecordsFilter(t *testing.T) {
	exporter := setupTestTracer(t)
	store := newTracingStore(t)
	ctx := context.Background()

	if err := store.CreateEntity(ctx, domain.Entity{ID: "e-1", Kind: domain.EntityTask, TenantID: "tenant1", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("CreateEntity failed: %v", err)
	}

	got, err := store.FindEntities(ctx, domain.EntityQuery{
		Kind:    domain.EntityTask,
		Tenants: domain.TenantQuery{}.WithoutTenantID(),
	})
	if err != nil {
		t.Fatalf("FindEntities failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}
	find := spans[1]
	if find.Name != "Store.FindEntities" {
		t.Errorf("span name = %q, want %q", find.Name, "Store.FindEntities")
	}
	assertAttribute(t, find, "entity.kind", "task")
	assertAttribute(t, find, "filter.without_tenant", "true")
	assertAttribute(t, find, "result.count", "0")
}

// assertAttribute checks that a span has an attribute with the given key and string value.
func assertAttribute(t *testing.T, span tracetest.SpanStub, key, want string) {
	t.Helper()
	for _, attr := range span.Attributes {
		if string(attr.Key) == key {
			got := attr.Value.Emit()
			if got != want {
				t.Errorf("attribute %q = %q, want %q", key, got, want)
			}
			return
		}
	}
	t.Errorf("attribute %q not found on span %q", key, span.Name)
}
