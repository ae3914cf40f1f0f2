package sqlite_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/neomorfeo/tenantscope/internal/adapter/sqlite"
	"github.com/neomorfeo/tenantscope/internal/domain"
)

// newTestStore creates an in-memory SQLite store for testing.
func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

var deploySeq int

func mustDeploy(t *testing.T, store *sqlite.Store, tenant domain.TenantID, keys ...string) domain.Deployment {
	t.Helper()
	deploySeq++
	d := domain.Deployment{
		ID:         fmt.Sprintf("dep-%d", deploySeq),
		Name:       "test",
		TenantID:   tenant,
		DeployedAt: time.Now(),
	}
	for _, key := range keys {
		d.Definitions = append(d.Definitions, domain.Definition{
			ID:       fmt.Sprintf("%s-%s-%d", key, tenant, deploySeq),
			Kind:     domain.KindProcess,
			Key:      key,
			TenantID: tenant,
			Content:  []byte("content"),
		})
	}
	saved, err := store.SaveDeployment(context.Background(), d)
	if err != nil {
		t.Fatalf("SaveDeployment failed: %v", err)
	}
	return saved
}

func mustCreateEntity(t *testing.T, store *sqlite.Store, e domain.Entity) {
	t.Helper()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if err := store.CreateEntity(context.Background(), e); err != nil {
		t.Fatalf("CreateEntity failed: %v", err)
	}
}

func TestSaveDeployment_VersionsPerTenant(t *testing.T) {
	store := newTestStore(t)

	shared1 := mustDeploy(t, store, domain.NoTenant, "invoice")
	one1 := mustDeploy(t, store, "tenant1", "invoice")
	one2 := mustDeploy(t, store, "tenant1", "invoice")
	shared2 := mustDeploy(t, store, domain.NoTenant, "invoice")

	tests := []struct {
		name string
		got  int
		want int
	}{
		{"first shared", shared1.Definitions[0].Version, 1},
		{"first tenant1", one1.Definitions[0].Version, 1},
		{"second tenant1", one2.Definitions[0].Version, 2},
		{"second shared", shared2.Definitions[0].Version, 2},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: Version = %d, want %d", tt.name, tt.got, tt.want)
		}
	}
}

func TestGetDefinition_TenantRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	shared := mustDeploy(t, store, domain.NoTenant, "invoice")
	owned := mustDeploy(t, store, "tenant1", "invoice")

	got, err := store.GetDefinition(ctx, shared.Definitions[0].ID)
	if err != nil {
		t.Fatalf("GetDefinition failed: %v", err)
	}
	if !got.TenantID.IsNone() {
		t.Errorf("TenantID = %q, want none", got.TenantID)
	}
	if string(got.Content) != "content" {
		t.Errorf("Content = %q, want %q", got.Content, "content")
	}

	got, err = store.GetDefinition(ctx, owned.Definitions[0].ID)
	if err != nil {
		t.Fatalf("GetDefinition failed: %v", err)
	}
	if got.TenantID != "tenant1" {
		t.Errorf("TenantID = %q, want %q", got.TenantID, "tenant1")
	}
	if got.DeploymentID != owned.ID {
		t.Errorf("DeploymentID = %q, want %q", got.DeploymentID, owned.ID)
	}
}

func TestGetDefinition_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetDefinition(context.Background(), "nonexistent")
	if !errors.Is(err, domain.ErrDefinitionNotFound) {
		t.Errorf("expected ErrDefinitionNotFound, got %v", err)
	}
}

func TestFindDefinitions_TenantFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mustDeploy(t, store, domain.NoTenant, "invoice")
	mustDeploy(t, store, "tenant1", "invoice")
	mustDeploy(t, store, "tenant2", "invoice")

	tests := []struct {
		name string
		q    domain.DefinitionQuery
		want []domain.TenantID
	}{
		{
			name: "unfiltered sorts none first",
			q:    domain.DefinitionQuery{Key: "invoice"},
			want: []domain.TenantID{domain.NoTenant, "tenant1", "tenant2"},
		},
		{
			name: "tenant id in",
			q:    domain.DefinitionQuery{Tenants: domain.TenantQuery{}.TenantIDIn("tenant2")},
			want: []domain.TenantID{"tenant2"},
		},
		{
			name: "without tenant id",
			q:    domain.DefinitionQuery{Tenants: domain.TenantQuery{}.WithoutTenantID()},
			want: []domain.TenantID{domain.NoTenant},
		},
		{
			name: "include without tenant id",
			q:    domain.DefinitionQuery{Tenants: domain.TenantQuery{}.TenantIDIn("tenant1").IncludeWithoutTenantID()},
			want: []domain.TenantID{domain.NoTenant, "tenant1"},
		},
		{
			name: "descending",
			q:    domain.DefinitionQuery{Tenants: domain.TenantQuery{}.OrderByTenantID(domain.SortDesc)},
			want: []domain.TenantID{"tenant2", "tenant1", domain.NoTenant},
		},
		{
			name: "restricted visibility",
			q:    domain.DefinitionQuery{Visibility: domain.Visibility{Restricted: true, Tenants: domain.NewTenantSet("tenant1")}},
			want: []domain.TenantID{domain.NoTenant, "tenant1"},
		},
		{
			name: "unauthenticated visibility",
			q:    domain.DefinitionQuery{Visibility: domain.Visibility{Restricted: true}},
			want: []domain.TenantID{domain.NoTenant},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defs, err := store.FindDefinitions(ctx, tt.q)
			if err != nil {
				t.Fatalf("FindDefinitions failed: %v", err)
			}
			if len(defs) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(defs), len(tt.want))
			}
			for i, want := range tt.want {
				if defs[i].TenantID != want {
					t.Errorf("defs[%d].TenantID = %q, want %q", i, defs[i].TenantID, want)
				}
			}
		})
	}
}

func TestDeleteDeployment_RemovesDefinitions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	d := mustDeploy(t, store, "tenant1", "invoice", "shipping")

	if err := store.DeleteDeployment(ctx, d.ID); err != nil {
		t.Fatalf("DeleteDeployment failed: %v", err)
	}

	defs, err := store.FindDefinitions(ctx, domain.DefinitionQuery{DeploymentID: d.ID})
	if err != nil {
		t.Fatalf("FindDefinitions failed: %v", err)
	}
	if len(defs) != 0 {
		t.Errorf("expected no definitions, got %d", len(defs))
	}

	if _, err := store.GetDeployment(ctx, d.ID); !errors.Is(err, domain.ErrDeploymentNotFound) {
		t.Errorf("expected ErrDeploymentNotFound, got %v", err)
	}
	if err := store.DeleteDeployment(ctx, d.ID); !errors.Is(err, domain.ErrDeploymentNotFound) {
		t.Errorf("expected ErrDeploymentNotFound on second delete, got %v", err)
	}
}

func TestGetDeployment_LoadsDefinitions(t *testing.T) {
	store := newTestStore(t)

	d := mustDeploy(t, store, "tenant1", "invoice", "shipping")

	got, err := store.GetDeployment(context.Background(), d.ID)
	if err != nil {
		t.Fatalf("GetDeployment failed: %v", err)
	}
	if got.TenantID != "tenant1" {
		t.Errorf("TenantID = %q, want %q", got.TenantID, "tenant1")
	}
	if len(got.Definitions) != 2 {
		t.Errorf("len(Definitions) = %d, want 2", len(got.Definitions))
	}
}

func TestEntities_FindByInstanceAndTenant(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now()
	mustCreateEntity(t, store, domain.Entity{ID: "root", Kind: domain.EntityExecution, TenantID: "tenant1", InstanceID: "root", CreatedAt: base})
	mustCreateEntity(t, store, domain.Entity{ID: "var", Kind: domain.EntityVariable, TenantID: "tenant1", InstanceID: "root", ParentID: "root", Name: "amount", Value: "10", CreatedAt: base.Add(time.Millisecond)})
	mustCreateEntity(t, store, domain.Entity{ID: "other", Kind: domain.EntityExecution, InstanceID: "other", CreatedAt: base.Add(2 * time.Millisecond)})

	got, err := store.FindEntities(ctx, domain.EntityQuery{InstanceID: "root"})
	if err != nil {
		t.Fatalf("FindEntities failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "root" || got[1].ID != "var" {
		t.Errorf("order = [%s %s], want [root var]", got[0].ID, got[1].ID)
	}
	if got[1].Value != "10" {
		t.Errorf("Value = %q, want %q", got[1].Value, "10")
	}

	shared, err := store.FindEntities(ctx, domain.EntityQuery{Tenants: domain.TenantQuery{}.WithoutTenantID()})
	if err != nil {
		t.Fatalf("FindEntities failed: %v", err)
	}
	if len(shared) != 1 || shared[0].ID != "other" {
		t.Errorf("without tenant = %v, want [other]", shared)
	}
}

func TestEntities_UpdateKeepsTenant(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mustCreateEntity(t, store, domain.Entity{ID: "task", Kind: domain.EntityTask, TenantID: "tenant1", Name: "review"})

	if err := store.UpdateEntity(ctx, domain.Entity{ID: "task", TenantID: "tenant2", Name: "approve"}); err != nil {
		t.Fatalf("UpdateEntity failed: %v", err)
	}
	got, err := store.GetEntity(ctx, "task")
	if err != nil {
		t.Fatalf("GetEntity failed: %v", err)
	}
	if got.Name != "approve" {
		t.Errorf("Name = %q, want %q", got.Name, "approve")
	}
	if got.TenantID != "tenant1" {
		t.Errorf("TenantID = %q, want %q", got.TenantID, "tenant1")
	}
}

func TestEntities_NotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.GetEntity(ctx, "missing"); !errors.Is(err, domain.ErrEntityNotFound) {
		t.Errorf("GetEntity: expected ErrEntityNotFound, got %v", err)
	}
	if err := store.UpdateEntity(ctx, domain.Entity{ID: "missing"}); !errors.Is(err, domain.ErrEntityNotFound) {
		t.Errorf("UpdateEntity: expected ErrEntityNotFound, got %v", err)
	}
	if err := store.DeleteEntity(ctx, "missing"); !errors.Is(err, domain.ErrEntityNotFound) {
		t.Errorf("DeleteEntity: expected ErrEntityNotFound, got %v", err)
	}
}

func TestJobs_Lifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now()
	job := domain.Job{
		ID:         "job-1",
		Type:       domain.JobBatchMigration,
		TenantID:   "tenant1",
		BatchID:    "batch-1",
		InstanceID: "pi-1",
		Retries:    domain.DefaultJobRetries,
		DueDate:    now,
		CreatedAt:  now,
	}
	if err := store.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}

	job.Retries = 0
	job.ExceptionMessage = "boom"
	job.Suspended = true
	if err := store.UpdateJob(ctx, job); err != nil {
		t.Fatalf("UpdateJob failed: %v", err)
	}

	got, err := store.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if got.Retries != 0 {
		t.Errorf("Retries = %d, want 0", got.Retries)
	}
	if !got.Suspended {
		t.Error("Suspended = false, want true")
	}
	if got.ExceptionMessage != "boom" {
		t.Errorf("ExceptionMessage = %q, want %q", got.ExceptionMessage, "boom")
	}
	if !got.DueDate.Equal(now) {
		t.Errorf("DueDate = %v, want %v", got.DueDate, now)
	}

	byBatch, err := store.FindJobs(ctx, domain.JobQuery{BatchID: "batch-1"})
	if err != nil {
		t.Fatalf("FindJobs failed: %v", err)
	}
	if len(byBatch) != 1 {
		t.Errorf("len = %d, want 1", len(byBatch))
	}

	if err := store.DeleteJob(ctx, "job-1"); err != nil {
		t.Fatalf("DeleteJob failed: %v", err)
	}
	if _, err := store.GetJob(ctx, "job-1"); !errors.Is(err, domain.ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestBatches_Lifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	batch := domain.Batch{
		ID:        "batch-1",
		Type:      domain.BatchMigration,
		Status:    domain.StatusActive,
		TotalJobs: 2,
		CreatedAt: time.Now(),
	}
	if err := store.CreateBatch(ctx, batch); err != nil {
		t.Fatalf("CreateBatch failed: %v", err)
	}

	batch.Status = domain.StatusSuspended
	batch.JobsCreated = 2
	if err := store.UpdateBatch(ctx, batch); err != nil {
		t.Fatalf("UpdateBatch failed: %v", err)
	}

	got, err := store.GetBatch(ctx, "batch-1")
	if err != nil {
		t.Fatalf("GetBatch failed: %v", err)
	}
	if got.Status != domain.StatusSuspended {
		t.Errorf("Status = %q, want %q", got.Status, domain.StatusSuspended)
	}
	if got.JobsCreated != 2 {
		t.Errorf("JobsCreated = %d, want 2", got.JobsCreated)
	}
	if !got.TenantID.IsNone() {
		t.Errorf("TenantID = %q, want none", got.TenantID)
	}

	visible, err := store.FindBatches(ctx, domain.BatchQuery{Tenants: domain.TenantQuery{}.TenantIDIn("tenant1")})
	if err != nil {
		t.Fatalf("FindBatches failed: %v", err)
	}
	if len(visible) != 0 {
		t.Errorf("tenant1 batches = %d, want 0", len(visible))
	}

	if err := store.DeleteBatch(ctx, "batch-1"); err != nil {
		t.Fatalf("DeleteBatch failed: %v", err)
	}
	if err := store.DeleteBatch(ctx, "batch-1"); !errors.Is(err, domain.ErrBatchNotFound) {
		t.Errorf("expected ErrBatchNotFound, got %v", err)
	}
}
