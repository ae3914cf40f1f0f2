package app_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neomorfeo/tenantscope/internal/app"
	"github.com/neomorfeo/tenantscope/internal/domain"
)

func TestExecutionCommands_CheckCallerTenant(t *testing.T) {
	h := newHarness(t, true, nil)
	admin := authFor("tenant1", "tenant2")

	called := h.deploy(t, admin, "tenant2", process("P2", "p2"))
	h.deploy(t, admin, "tenant2", decision("D", "ok"))

	foreign, err := h.engine.Runtime.StartProcessInstance(authFor("tenant2"), app.StartRequest{Lookup: domain.ByKey(domain.KindProcess, "P2")})
	require.NoError(t, err)
	require.Equal(t, domain.TenantID("tenant2"), foreign.TenantID)

	for _, ctx := range []context.Context{authFor("tenant1"), context.Background()} {
		var denied *domain.TenantAuthorizationError

		_, err = h.engine.Runtime.CreateDependent(ctx, foreign.ID, app.DependentSpec{Kind: domain.EntityVariable, Name: "x", Value: 1})
		assert.ErrorAs(t, err, &denied, "create dependent")

		_, err = h.engine.Runtime.StartCalledInstance(ctx, foreign.ID, app.CalledElement{Kind: domain.KindProcess, Key: "P2"})
		assert.ErrorAs(t, err, &denied, "start called instance")

		_, err = h.engine.Runtime.CreateAsyncJob(ctx, foreign.ID, "next")
		assert.ErrorAs(t, err, &denied, "create async job")

		_, err = h.engine.Decisions.EvaluateDecisionTask(ctx, foreign.ID, app.DecisionTask{Key: "D"})
		assert.ErrorAs(t, err, &denied, "evaluate decision task")
	}

	ctx := context.Background()
	entities, err := h.store.FindEntities(ctx, domain.EntityQuery{InstanceID: foreign.ID})
	require.NoError(t, err)
	assert.Len(t, entities, 1, "nothing is written under a denied execution")
	instances, err := h.store.FindEntities(ctx, domain.EntityQuery{Kind: domain.EntityExecution, DefinitionID: called.ID})
	require.NoError(t, err)
	assert.Len(t, instances, 1)
	assert.Empty(t, h.store.jobsOf(domain.JobAsyncContinue))

	v, err := h.engine.Runtime.CreateDependent(authFor("tenant2"), foreign.ID, app.DependentSpec{Kind: domain.EntityVariable, Name: "x", Value: 1})
	require.NoError(t, err)
	assert.Equal(t, domain.TenantID("tenant2"), v.TenantID)
}

func TestCalledElement_ExplicitTenantIsChecked(t *testing.T) {
	h := newHarness(t, true, nil)
	admin := authFor("tenant1", "tenant2")

	h.deploy(t, admin, "tenant1", process("P1", "p1"))
	h.deploy(t, admin, "tenant2", process("P2", "p2"))
	h.deploy(t, admin, "tenant2", decision("D", "ok"))

	own, err := h.engine.Runtime.StartProcessInstance(authFor("tenant1"), app.StartRequest{Lookup: domain.ByKey(domain.KindProcess, "P1")})
	require.NoError(t, err)

	var denied *domain.TenantAuthorizationError
	_, err = h.engine.Runtime.StartCalledInstance(authFor("tenant1"), own.ID, app.CalledElement{
		Kind:   domain.KindProcess,
		Key:    "P2",
		Tenant: domain.ForTenant("tenant2"),
	})
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, domain.TenantID("tenant2"), denied.TenantID)

	_, err = h.engine.Decisions.EvaluateDecisionTask(authFor("tenant1"), own.ID, app.DecisionTask{
		Key:    "D",
		Tenant: domain.ForTenant("tenant2"),
	})
	require.ErrorAs(t, err, &denied)

	sub, err := h.engine.Runtime.StartCalledInstance(admin, own.ID, app.CalledElement{
		Kind:   domain.KindProcess,
		Key:    "P2",
		Tenant: domain.ForTenant("tenant2"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TenantID("tenant2"), sub.TenantID)
	assert.Equal(t, own.ID, sub.SuperExecutionID)
}

func TestSaveTask_UpdateKeepsTenantAndParent(t *testing.T) {
	h := newHarness(t, false, nil)
	ctx := context.Background()

	parent, err := h.engine.Tasks.SaveTask(ctx, app.TaskInput{Name: "T", TenantID: "t1"})
	require.NoError(t, err)
	sub, err := h.engine.Tasks.SaveTask(ctx, app.TaskInput{Name: "sub", ParentTaskID: parent.ID})
	require.NoError(t, err)

	renamed, err := h.engine.Tasks.SaveTask(ctx, app.TaskInput{ID: parent.ID, Name: "renamed"})
	require.NoError(t, err)
	assert.Equal(t, domain.TenantID("t1"), renamed.TenantID)

	renamed, err = h.engine.Tasks.SaveTask(ctx, app.TaskInput{ID: sub.ID, Name: "sub renamed", TenantID: "t1"})
	require.NoError(t, err)
	assert.Equal(t, parent.ID, renamed.ParentID)

	stored, err := h.store.GetEntity(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "sub renamed", stored.Name)
	assert.Equal(t, parent.ID, stored.ParentID)
	assert.Equal(t, domain.TenantID("t1"), stored.TenantID)
}

func TestSaveTask_ReparentAcrossTenantsRejected(t *testing.T) {
	h := newHarness(t, false, nil)
	ctx := context.Background()

	other, err := h.engine.Tasks.SaveTask(ctx, app.TaskInput{Name: "other", TenantID: "t2"})
	require.NoError(t, err)
	shared, err := h.engine.Tasks.SaveTask(ctx, app.TaskInput{Name: "shared"})
	require.NoError(t, err)

	_, err = h.engine.Tasks.SaveTask(ctx, app.TaskInput{ID: shared.ID, Name: "shared", ParentTaskID: other.ID})
	var immutable *domain.TenantImmutabilityError
	require.ErrorAs(t, err, &immutable)

	stored, err := h.store.GetEntity(ctx, shared.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.ParentID)
}

func TestExecuteAsync_FailureLeavesNothingBehind(t *testing.T) {
	h := newHarness(t, false, nil)
	ctx := context.Background()

	source := h.deploy(t, ctx, "tenant1", process("S", "s"))
	target := h.deploy(t, ctx, "tenant1", process("T", "t"))
	inst, err := h.engine.Runtime.StartProcessInstance(ctx, app.StartRequest{Lookup: domain.ByID(domain.KindProcess, source.ID)})
	require.NoError(t, err)
	plan, err := h.engine.Migrations.CreatePlan(ctx, source.ID, target.ID, nil)
	require.NoError(t, err)

	h.publisher.err = errors.New("queue unavailable")
	_, err = h.engine.Migrations.ExecuteAsync(ctx, plan, []string{inst.ID})
	require.Error(t, err)

	batches, err := h.store.FindBatches(ctx, domain.BatchQuery{})
	require.NoError(t, err)
	assert.Empty(t, batches)
	jobDefs, err := h.store.FindEntities(ctx, domain.EntityQuery{Kind: domain.EntityJobDefinition})
	require.NoError(t, err)
	assert.Empty(t, jobDefs)
	assert.Empty(t, h.store.jobsOf(domain.JobBatchSeed))
}

func TestCorrelate_UnencodableVariableWritesNothing(t *testing.T) {
	h := newHarness(t, false, nil)
	ctx := context.Background()

	h.deploy(t, ctx, "t1", process("P", "p"))
	var instances []domain.Entity
	for range 2 {
		inst, err := h.engine.Runtime.StartProcessInstance(ctx, app.StartRequest{Lookup: domain.ByKey(domain.KindProcess, "P")})
		require.NoError(t, err)
		_, err = h.engine.Runtime.CreateDependent(ctx, inst.ID, app.DependentSpec{
			Kind:      domain.EntityEventSubscription,
			EventType: domain.EventSignal,
			Name:      "go",
		})
		require.NoError(t, err)
		instances = append(instances, inst)
	}

	_, err := h.engine.Runtime.Signal(ctx, "go", domain.TenantFilter{}, map[string]any{
		"a":   "fine",
		"bad": make(chan int),
	})
	require.Error(t, err)

	for _, inst := range instances {
		vars, err := h.store.FindEntities(ctx, domain.EntityQuery{Kind: domain.EntityVariable, InstanceID: inst.ID})
		require.NoError(t, err)
		assert.Empty(t, vars)
	}
}
