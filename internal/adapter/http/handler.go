package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/tenantscope/internal/adapter/manifest"
	"github.com/neomorfeo/tenantscope/internal/app"
	"github.com/neomorfeo/tenantscope/internal/domain"
)

// --- Deployments ---

type ResourceBody struct {
	Name       string `json:"name,omitempty"`
	Kind       string `json:"kind" enum:"process,case,decision"`
	Key        string `json:"key" minLength:"1"`
	DefName    string `json:"defName,omitempty"`
	VersionTag string `json:"versionTag,omitempty"`
	TimerStart string `json:"timerStart,omitempty" doc:"Go duration after which a timer start event fires"`
	Content    string `json:"content,omitempty"`
}

type DeployInput struct {
	Body struct {
		Name      string         `json:"name,omitempty"`
		TenantID  string         `json:"tenantId,omitempty" doc:"Tenant owning every definition of the deployment"`
		Source    string         `json:"source,omitempty"`
		Manifest  string         `json:"manifest,omitempty" doc:"YAML deployment manifest; replaces the other fields"`
		Resources []ResourceBody `json:"resources,omitempty"`
	}
}

func (in *DeployInput) request() (domain.DeploymentRequest, error) {
	if in.Body.Manifest != "" {
		req, err := manifest.Parse([]byte(in.Body.Manifest))
		if err != nil {
			return domain.DeploymentRequest{}, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		return req, nil
	}
	req := domain.DeploymentRequest{
		Name:     in.Body.Name,
		TenantID: domain.TenantID(in.Body.TenantID),
		Source:   in.Body.Source,
	}
	for _, r := range in.Body.Resources {
		name := r.Name
		if name == "" {
			name = r.Key
		}
		req.Resources = append(req.Resources, domain.Resource{
			Name:       name,
			Kind:       domain.DefinitionKind(r.Kind),
			Key:        r.Key,
			DefName:    r.DefName,
			VersionTag: r.VersionTag,
			TimerStart: r.TimerStart,
			Content:    []byte(r.Content),
		})
	}
	return req, nil
}

type DeploymentOutput struct {
	Body DeploymentResponse
}

type DeploymentIDInput struct {
	ID string `path:"id" doc:"Deployment ID"`
}

// --- Definitions ---

type ListDefinitionsInput struct {
	Kind         string `query:"kind" doc:"process, case or decision"`
	Key          string `query:"key"`
	DeploymentID string `query:"deploymentId"`
	TenantParams
}

type ListDefinitionsOutput struct {
	Body []DefinitionResponse
}

// --- Instances ---

type StartInput struct {
	Body struct {
		LookupBody
		Variables map[string]any `json:"variables,omitempty"`
	}
}

type EntityOutput struct {
	Body EntityResponse
}

type ExecutionIDInput struct {
	ID string `path:"id" doc:"Execution ID"`
}

type DependentInput struct {
	ID   string `path:"id" doc:"Execution or task ID"`
	Body struct {
		Kind      string `json:"kind" enum:"execution,case_execution,task,variable,event_subscription,incident,external_task"`
		Name      string `json:"name,omitempty"`
		EventType string `json:"eventType,omitempty" enum:"message,signal"`
		Value     any    `json:"value,omitempty"`
		TenantID  string `json:"tenantId,omitempty" doc:"Explicit tenant override"`
	}
}

type CalledInput struct {
	ID   string `path:"id" doc:"Calling execution ID"`
	Body struct {
		Kind            string         `json:"kind" enum:"process,case"`
		Key             string         `json:"key" minLength:"1"`
		Binding         string         `json:"binding,omitempty" enum:"latest,version,versionTag,deployment"`
		Version         int            `json:"version,omitempty" minimum:"0"`
		VersionTag      string         `json:"versionTag,omitempty"`
		TenantID        string         `json:"tenantId,omitempty"`
		WithoutTenantID bool           `json:"withoutTenantId,omitempty"`
		Variables       map[string]any `json:"variables,omitempty"`
	}
}

type AsyncJobInput struct {
	ID   string `path:"id" doc:"Execution ID"`
	Body struct {
		Activity string `json:"activity" minLength:"1"`
	}
}

type ListEntitiesInput struct {
	Kind       string `query:"kind"`
	InstanceID string `query:"instanceId"`
	ParentID   string `query:"parentId"`
	Name       string `query:"name"`
	TenantParams
}

type ListEntitiesOutput struct {
	Body []EntityResponse
}

// --- Decisions ---

type DecisionResponse struct {
	DefinitionID       string         `json:"definitionId"`
	TenantID           *string        `json:"tenantId"`
	Outputs            map[string]any `json:"outputs"`
	HistoricInstanceID string         `json:"historicInstanceId"`
}

func toDecisionResponse(r app.DecisionResult) DecisionResponse {
	return DecisionResponse{
		DefinitionID:       r.Definition.ID,
		TenantID:           tenantPtr(r.Historic.TenantID),
		Outputs:            r.Outputs,
		HistoricInstanceID: r.Historic.ID,
	}
}

type EvaluateInput struct {
	Body struct {
		LookupBody
		Variables map[string]any `json:"variables,omitempty"`
	}
}

type DecisionTaskInput struct {
	ID   string `path:"id" doc:"Calling execution ID"`
	Body struct {
		Key             string         `json:"key" minLength:"1"`
		Binding         string         `json:"binding,omitempty" enum:"latest,version,versionTag,deployment"`
		Version         int            `json:"version,omitempty" minimum:"0"`
		VersionTag      string         `json:"versionTag,omitempty"`
		TenantID        string         `json:"tenantId,omitempty"`
		WithoutTenantID bool           `json:"withoutTenantId,omitempty"`
		Variables       map[string]any `json:"variables,omitempty"`
	}
}

type DecisionOutput struct {
	Body DecisionResponse
}

// --- Correlation ---

type MessageInput struct {
	Body struct {
		Name              string         `json:"name" minLength:"1"`
		TenantID          string         `json:"tenantId,omitempty"`
		WithoutTenantID   bool           `json:"withoutTenantId,omitempty"`
		ProcessInstanceID string         `json:"processInstanceId,omitempty"`
		All               bool           `json:"all,omitempty" doc:"Correlate to every matching execution across tenants"`
		Variables         map[string]any `json:"variables,omitempty"`
	}
}

type SignalInput struct {
	Body struct {
		Name            string         `json:"name" minLength:"1"`
		TenantID        string         `json:"tenantId,omitempty"`
		WithoutTenantID bool           `json:"withoutTenantId,omitempty"`
		Variables       map[string]any `json:"variables,omitempty"`
	}
}

type CorrelationOutput struct {
	Body struct {
		Executions []EntityResponse `json:"executions"`
	}
}

// --- Tasks ---

type SaveTaskInput struct {
	Body struct {
		ID           string `json:"id,omitempty" doc:"Existing task ID; empty creates a task"`
		Name         string `json:"name,omitempty"`
		ParentTaskID string `json:"parentTaskId,omitempty"`
		TenantID     string `json:"tenantId,omitempty"`
	}
}

// --- Migration ---

type PlanBody struct {
	SourceDefinitionID string                        `json:"sourceDefinitionId" minLength:"1"`
	TargetDefinitionID string                        `json:"targetDefinitionId" minLength:"1"`
	Instructions       []domain.MigrationInstruction `json:"instructions,omitempty"`
}

type CreatePlanInput struct {
	Body PlanBody
}

type PlanOutput struct {
	Body domain.MigrationPlan
}

type MigrateInput struct {
	Body struct {
		PlanBody
		ProcessInstanceIDs []string `json:"processInstanceIds" minItems:"1"`
		Async              bool     `json:"async,omitempty" doc:"Run as a batch, one job per instance"`
	}
}

type MigrateOutput struct {
	Body struct {
		Batch    *BatchResponse `json:"batch,omitempty"`
		Migrated int            `json:"migrated"`
	}
}

// --- Batches and jobs ---

type BatchIDInput struct {
	ID string `path:"id" doc:"Batch ID"`
}

type BatchOutput struct {
	Body BatchResponse
}

type ListBatchesInput struct {
	TenantParams
}

type ListBatchesOutput struct {
	Body []BatchResponse
}

type JobIDInput struct {
	ID string `path:"id" doc:"Job ID"`
}

type SetRetriesInput struct {
	ID   string `path:"id" doc:"Job ID"`
	Body struct {
		Retries int `json:"retries" minimum:"0"`
	}
}

type JobOutput struct {
	Body JobResponse
}

type ListJobsInput struct {
	Type         string `query:"type"`
	DeploymentID string `query:"deploymentId"`
	BatchID      string `query:"batchId"`
	TenantParams
}

type ListJobsOutput struct {
	Body []JobResponse
}

// Register adds all engine API routes to the Huma API.
func Register(api huma.API, e *app.Engine) {
	registerDeployments(api, e)
	registerRuntime(api, e)
	registerMigrations(api, e)
	registerJobs(api, e)
}

func registerDeployments(api huma.API, e *app.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "create-deployment",
		Method:      http.MethodPost,
		Path:        "/api/v1/deployments",
		Summary:     "Deploy definitions",
		Tags:        []string{"Deployments"},
	}, func(ctx context.Context, input *DeployInput) (*DeploymentOutput, error) {
		req, err := input.request()
		if err != nil {
			return nil, toHumaError(err)
		}
		d, err := e.Deployments.Deploy(ctx, req)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &DeploymentOutput{Body: toDeploymentResponse(d)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-deployment",
		Method:      http.MethodGet,
		Path:        "/api/v1/deployments/{id}",
		Summary:     "Get a deployment by ID",
		Tags:        []string{"Deployments"},
	}, func(ctx context.Context, input *DeploymentIDInput) (*DeploymentOutput, error) {
		d, err := e.Deployments.GetDeployment(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &DeploymentOutput{Body: toDeploymentResponse(d)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-deployment",
		Method:      http.MethodDelete,
		Path:        "/api/v1/deployments/{id}",
		Summary:     "Delete a deployment and its definitions",
		Tags:        []string{"Deployments"},
	}, func(ctx context.Context, input *DeploymentIDInput) (*struct{}, error) {
		if err := e.Deployments.DeleteDeployment(ctx, input.ID); err != nil {
			return nil, toHumaError(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-definitions",
		Method:      http.MethodGet,
		Path:        "/api/v1/definitions",
		Summary:     "Query definitions",
		Tags:        []string{"Deployments"},
	}, func(ctx context.Context, input *ListDefinitionsInput) (*ListDefinitionsOutput, error) {
		tenants, err := input.query()
		if err != nil {
			return nil, toHumaError(err)
		}
		defs, err := e.Queries.Definitions(ctx, domain.DefinitionQuery{
			Kind:         domain.DefinitionKind(input.Kind),
			Key:          input.Key,
			DeploymentID: input.DeploymentID,
			Tenants:      tenants,
		})
		if err != nil {
			return nil, toHumaError(err)
		}
		resp := make([]DefinitionResponse, len(defs))
		for i, d := range defs {
			resp[i] = toDefinitionResponse(d)
		}
		return &ListDefinitionsOutput{Body: resp}, nil
	})
}

func registerRuntime(api huma.API, e *app.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "start-process-instance",
		Method:      http.MethodPost,
		Path:        "/api/v1/process-instances",
		Summary:     "Start a process instance",
		Tags:        []string{"Runtime"},
	}, func(ctx context.Context, input *StartInput) (*EntityOutput, error) {
		root, err := e.Runtime.StartProcessInstance(ctx, app.StartRequest{
			Lookup:    input.Body.lookup(domain.KindProcess),
			Variables: input.Body.Variables,
		})
		if err != nil {
			return nil, toHumaError(err)
		}
		return &EntityOutput{Body: toEntityResponse(root)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-case-instance",
		Method:      http.MethodPost,
		Path:        "/api/v1/case-instances",
		Summary:     "Create a case instance",
		Tags:        []string{"Runtime"},
	}, func(ctx context.Context, input *StartInput) (*EntityOutput, error) {
		root, err := e.Runtime.CreateCaseInstance(ctx, app.StartRequest{
			Lookup:    input.Body.lookup(domain.KindCase),
			Variables: input.Body.Variables,
		})
		if err != nil {
			return nil, toHumaError(err)
		}
		return &EntityOutput{Body: toEntityResponse(root)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-dependent",
		Method:      http.MethodPost,
		Path:        "/api/v1/executions/{id}/entities",
		Summary:     "Create an entity under an execution or task",
		Tags:        []string{"Runtime"},
	}, func(ctx context.Context, input *DependentInput) (*EntityOutput, error) {
		entity, err := e.Runtime.CreateDependent(ctx, input.ID, app.DependentSpec{
			Kind:      domain.EntityKind(input.Body.Kind),
			Name:      input.Body.Name,
			EventType: domain.EventType(input.Body.EventType),
			Value:     input.Body.Value,
			TenantID:  domain.TenantID(input.Body.TenantID),
		})
		if err != nil {
			return nil, toHumaError(err)
		}
		return &EntityOutput{Body: toEntityResponse(entity)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "start-called-instance",
		Method:      http.MethodPost,
		Path:        "/api/v1/executions/{id}/called-instances",
		Summary:     "Start a sub-instance from a call activity or task",
		Tags:        []string{"Runtime"},
	}, func(ctx context.Context, input *CalledInput) (*EntityOutput, error) {
		b := input.Body
		root, err := e.Runtime.StartCalledInstance(ctx, input.ID, app.CalledElement{
			Kind:       domain.DefinitionKind(b.Kind),
			Key:        b.Key,
			Binding:    binding(b.Binding, b.Version, b.VersionTag),
			Version:    b.Version,
			VersionTag: b.VersionTag,
			Tenant:     tenantFilter(b.TenantID, b.WithoutTenantID),
			Variables:  b.Variables,
		})
		if err != nil {
			return nil, toHumaError(err)
		}
		return &EntityOutput{Body: toEntityResponse(root)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-async-job",
		Method:      http.MethodPost,
		Path:        "/api/v1/executions/{id}/async-jobs",
		Summary:     "Continue an execution asynchronously",
		Tags:        []string{"Runtime"},
	}, func(ctx context.Context, input *AsyncJobInput) (*JobOutput, error) {
		job, err := e.Runtime.CreateAsyncJob(ctx, input.ID, input.Body.Activity)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &JobOutput{Body: toJobResponse(job)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "evaluate-decision-task",
		Method:      http.MethodPost,
		Path:        "/api/v1/executions/{id}/decisions",
		Summary:     "Evaluate a decision from a business rule or decision task",
		Tags:        []string{"Decisions"},
	}, func(ctx context.Context, input *DecisionTaskInput) (*DecisionOutput, error) {
		b := input.Body
		result, err := e.Decisions.EvaluateDecisionTask(ctx, input.ID, app.DecisionTask{
			Key:        b.Key,
			Binding:    binding(b.Binding, b.Version, b.VersionTag),
			Version:    b.Version,
			VersionTag: b.VersionTag,
			Tenant:     tenantFilter(b.TenantID, b.WithoutTenantID),
			Variables:  b.Variables,
		})
		if err != nil {
			return nil, toHumaError(err)
		}
		return &DecisionOutput{Body: toDecisionResponse(result)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "evaluate-decision",
		Method:      http.MethodPost,
		Path:        "/api/v1/decisions/evaluate",
		Summary:     "Evaluate a decision",
		Tags:        []string{"Decisions"},
	}, func(ctx context.Context, input *EvaluateInput) (*DecisionOutput, error) {
		result, err := e.Decisions.Evaluate(ctx, app.DecisionRequest{
			Lookup:    input.Body.lookup(domain.KindDecision),
			Variables: input.Body.Variables,
		})
		if err != nil {
			return nil, toHumaError(err)
		}
		return &DecisionOutput{Body: toDecisionResponse(result)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "correlate-message",
		Method:      http.MethodPost,
		Path:        "/api/v1/messages",
		Summary:     "Correlate a message",
		Tags:        []string{"Runtime"},
	}, func(ctx context.Context, input *MessageInput) (*CorrelationOutput, error) {
		b := input.Body
		execs, err := e.Runtime.Correlate(ctx, app.Correlation{
			EventType:  domain.EventMessage,
			Name:       b.Name,
			Tenant:     tenantFilter(b.TenantID, b.WithoutTenantID),
			InstanceID: b.ProcessInstanceID,
			All:        b.All,
			Variables:  b.Variables,
		})
		if err != nil {
			return nil, toHumaError(err)
		}
		out := &CorrelationOutput{}
		out.Body.Executions = toEntityResponses(execs)
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "throw-signal",
		Method:      http.MethodPost,
		Path:        "/api/v1/signals",
		Summary:     "Deliver a signal",
		Tags:        []string{"Runtime"},
	}, func(ctx context.Context, input *SignalInput) (*CorrelationOutput, error) {
		b := input.Body
		execs, err := e.Runtime.Signal(ctx, b.Name, tenantFilter(b.TenantID, b.WithoutTenantID), b.Variables)
		if err != nil {
			return nil, toHumaError(err)
		}
		out := &CorrelationOutput{}
		out.Body.Executions = toEntityResponses(execs)
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "save-task",
		Method:      http.MethodPost,
		Path:        "/api/v1/tasks",
		Summary:     "Create or update a standalone task",
		Tags:        []string{"Runtime"},
	}, func(ctx context.Context, input *SaveTaskInput) (*EntityOutput, error) {
		task, err := e.Tasks.SaveTask(ctx, app.TaskInput{
			ID:           input.Body.ID,
			Name:         input.Body.Name,
			ParentTaskID: input.Body.ParentTaskID,
			TenantID:     domain.TenantID(input.Body.TenantID),
		})
		if err != nil {
			return nil, toHumaError(err)
		}
		return &EntityOutput{Body: toEntityResponse(task)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-entities",
		Method:      http.MethodGet,
		Path:        "/api/v1/entities",
		Summary:     "Query runtime entities",
		Tags:        []string{"Runtime"},
	}, func(ctx context.Context, input *ListEntitiesInput) (*ListEntitiesOutput, error) {
		tenants, err := input.query()
		if err != nil {
			return nil, toHumaError(err)
		}
		entities, err := e.Queries.Entities(ctx, domain.EntityQuery{
			Kind:       domain.EntityKind(input.Kind),
			InstanceID: input.InstanceID,
			ParentID:   input.ParentID,
			Name:       input.Name,
			Tenants:    tenants,
		})
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ListEntitiesOutput{Body: toEntityResponses(entities)}, nil
	})
}

func registerMigrations(api huma.API, e *app.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "create-migration-plan",
		Method:      http.MethodPost,
		Path:        "/api/v1/migrations/plans",
		Summary:     "Build a migration plan between two process definitions",
		Tags:        []string{"Migration"},
	}, func(ctx context.Context, input *CreatePlanInput) (*PlanOutput, error) {
		plan, err := e.Migrations.CreatePlan(ctx, input.Body.SourceDefinitionID, input.Body.TargetDefinitionID, input.Body.Instructions)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &PlanOutput{Body: plan}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "migrate-instances",
		Method:      http.MethodPost,
		Path:        "/api/v1/migrations",
		Summary:     "Migrate process instances",
		Tags:        []string{"Migration"},
	}, func(ctx context.Context, input *MigrateInput) (*MigrateOutput, error) {
		b := input.Body
		plan, err := e.Migrations.CreatePlan(ctx, b.SourceDefinitionID, b.TargetDefinitionID, b.Instructions)
		if err != nil {
			return nil, toHumaError(err)
		}

		out := &MigrateOutput{}
		if b.Async {
			batch, err := e.Migrations.ExecuteAsync(ctx, plan, b.ProcessInstanceIDs)
			if err != nil {
				return nil, toHumaError(err)
			}
			resp := toBatchResponse(batch)
			out.Body.Batch = &resp
			return out, nil
		}

		if err := e.Migrations.Execute(ctx, plan, b.ProcessInstanceIDs); err != nil {
			return nil, toHumaError(err)
		}
		out.Body.Migrated = len(b.ProcessInstanceIDs)
		return out, nil
	})
}

func registerJobs(api huma.API, e *app.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-batch",
		Method:      http.MethodGet,
		Path:        "/api/v1/batches/{id}",
		Summary:     "Get a batch by ID",
		Tags:        []string{"Batches"},
	}, func(ctx context.Context, input *BatchIDInput) (*BatchOutput, error) {
		b, err := e.Batches.Get(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &BatchOutput{Body: toBatchResponse(b)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-batches",
		Method:      http.MethodGet,
		Path:        "/api/v1/batches",
		Summary:     "Query batches",
		Tags:        []string{"Batches"},
	}, func(ctx context.Context, input *ListBatchesInput) (*ListBatchesOutput, error) {
		tenants, err := input.query()
		if err != nil {
			return nil, toHumaError(err)
		}
		batches, err := e.Queries.Batches(ctx, domain.BatchQuery{Tenants: tenants})
		if err != nil {
			return nil, toHumaError(err)
		}
		resp := make([]BatchResponse, len(batches))
		for i, b := range batches {
			resp[i] = toBatchResponse(b)
		}
		return &ListBatchesOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "suspend-batch",
		Method:      http.MethodPost,
		Path:        "/api/v1/batches/{id}/suspend",
		Summary:     "Suspend a batch and its jobs",
		Tags:        []string{"Batches"},
	}, func(ctx context.Context, input *BatchIDInput) (*BatchOutput, error) {
		b, err := e.Batches.Suspend(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &BatchOutput{Body: toBatchResponse(b)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "activate-batch",
		Method:      http.MethodPost,
		Path:        "/api/v1/batches/{id}/activate",
		Summary:     "Activate a suspended batch",
		Tags:        []string{"Batches"},
	}, func(ctx context.Context, input *BatchIDInput) (*BatchOutput, error) {
		b, err := e.Batches.Activate(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &BatchOutput{Body: toBatchResponse(b)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-batch",
		Method:      http.MethodDelete,
		Path:        "/api/v1/batches/{id}",
		Summary:     "Delete a batch and its jobs",
		Tags:        []string{"Batches"},
	}, func(ctx context.Context, input *BatchIDInput) (*struct{}, error) {
		if err := e.Batches.Delete(ctx, input.ID); err != nil {
			return nil, toHumaError(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-jobs",
		Method:      http.MethodGet,
		Path:        "/api/v1/jobs",
		Summary:     "Query jobs",
		Tags:        []string{"Jobs"},
	}, func(ctx context.Context, input *ListJobsInput) (*ListJobsOutput, error) {
		tenants, err := input.query()
		if err != nil {
			return nil, toHumaError(err)
		}
		jobs, err := e.Queries.Jobs(ctx, domain.JobQuery{
			Type:         domain.JobType(input.Type),
			DeploymentID: input.DeploymentID,
			BatchID:      input.BatchID,
			Tenants:      tenants,
		})
		if err != nil {
			return nil, toHumaError(err)
		}
		resp := make([]JobResponse, len(jobs))
		for i, j := range jobs {
			resp[i] = toJobResponse(j)
		}
		return &ListJobsOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "execute-job",
		Method:      http.MethodPost,
		Path:        "/api/v1/jobs/{id}/execute",
		Summary:     "Execute a job now",
		Tags:        []string{"Jobs"},
	}, func(ctx context.Context, input *JobIDInput) (*struct{}, error) {
		if err := e.Jobs.ExecuteManually(ctx, input.ID); err != nil {
			return nil, toHumaError(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-job-retries",
		Method:      http.MethodPut,
		Path:        "/api/v1/jobs/{id}/retries",
		Summary:     "Set the remaining retries of a job",
		Tags:        []string{"Jobs"},
	}, func(ctx context.Context, input *SetRetriesInput) (*JobOutput, error) {
		job, err := e.Jobs.SetRetries(ctx, input.ID, input.Body.Retries)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &JobOutput{Body: toJobResponse(job)}, nil
	})
}
