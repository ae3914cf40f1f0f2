package http

import (
	"fmt"
	"time"

	"github.com/neomorfeo/tenantscope/internal/domain"
)

const timeLayout = time.RFC3339Nano

// tenantPtr renders NoTenant as JSON null.
func tenantPtr(t domain.TenantID) *string {
	if t.IsNone() {
		return nil
	}
	s := string(t)
	return &s
}

// tenantFilter turns the request's tenant fields into a filter. An empty
// tenant without withoutTenantId leaves the choice to the engine.
func tenantFilter(tenant string, without bool) domain.TenantFilter {
	switch {
	case without:
		return domain.WithoutTenant()
	case tenant != "":
		return domain.ForTenant(domain.TenantID(tenant))
	default:
		return domain.TenantFilter{}
	}
}

// binding picks the version binding from explicit fields.
func binding(explicit string, version int, versionTag string) domain.Binding {
	switch {
	case explicit != "":
		return domain.Binding(explicit)
	case version > 0:
		return domain.BindingVersion
	case versionTag != "":
		return domain.BindingVersionTag
	default:
		return domain.BindingLatest
	}
}

// --- Responses ---

// DefinitionResponse is the API representation of a deployed definition.
type DefinitionResponse struct {
	ID           string  `json:"id"`
	Kind         string  `json:"kind"`
	Key          string  `json:"key"`
	Name         string  `json:"name,omitempty"`
	Version      int     `json:"version"`
	VersionTag   string  `json:"versionTag,omitempty"`
	TenantID     *string `json:"tenantId" doc:"Owning tenant, null for shared definitions"`
	DeploymentID string  `json:"deploymentId"`
	ResourceName string  `json:"resourceName,omitempty"`
	TimerStart   string  `json:"timerStart,omitempty"`
}

func toDefinitionResponse(d domain.Definition) DefinitionResponse {
	return DefinitionResponse{
		ID:           d.ID,
		Kind:         string(d.Kind),
		Key:          d.Key,
		Name:         d.Name,
		Version:      d.Version,
		VersionTag:   d.VersionTag,
		TenantID:     tenantPtr(d.TenantID),
		DeploymentID: d.DeploymentID,
		ResourceName: d.ResourceName,
		TimerStart:   d.TimerStart,
	}
}

// DeploymentResponse is the API representation of a deployment.
type DeploymentResponse struct {
	ID          string               `json:"id"`
	Name        string               `json:"name,omitempty"`
	TenantID    *string              `json:"tenantId"`
	Source      string               `json:"source,omitempty"`
	DeployedAt  string               `json:"deployedAt"`
	Definitions []DefinitionResponse `json:"definitions"`
}

func toDeploymentResponse(d domain.Deployment) DeploymentResponse {
	defs := make([]DefinitionResponse, len(d.Definitions))
	for i, def := range d.Definitions {
		defs[i] = toDefinitionResponse(def)
	}
	return DeploymentResponse{
		ID:          d.ID,
		Name:        d.Name,
		TenantID:    tenantPtr(d.TenantID),
		Source:      d.Source,
		DeployedAt:  d.DeployedAt.Format(timeLayout),
		Definitions: defs,
	}
}

// EntityResponse is the API representation of a runtime entity.
type EntityResponse struct {
	ID                   string  `json:"id"`
	Kind                 string  `json:"kind"`
	TenantID             *string `json:"tenantId"`
	ParentID             string  `json:"parentId,omitempty"`
	InstanceID           string  `json:"instanceId,omitempty"`
	SuperExecutionID     string  `json:"superExecutionId,omitempty"`
	SuperCaseExecutionID string  `json:"superCaseExecutionId,omitempty"`
	DefinitionID         string  `json:"definitionId,omitempty"`
	Name                 string  `json:"name,omitempty"`
	EventType            string  `json:"eventType,omitempty"`
	Value                string  `json:"value,omitempty"`
	CreatedAt            string  `json:"createdAt"`
}

func toEntityResponse(e domain.Entity) EntityResponse {
	return EntityResponse{
		ID:                   e.ID,
		Kind:                 string(e.Kind),
		TenantID:             tenantPtr(e.TenantID),
		ParentID:             e.ParentID,
		InstanceID:           e.InstanceID,
		SuperExecutionID:     e.SuperExecutionID,
		SuperCaseExecutionID: e.SuperCaseExecutionID,
		DefinitionID:         e.DefinitionID,
		Name:                 e.Name,
		EventType:            string(e.EventType),
		Value:                e.Value,
		CreatedAt:            e.CreatedAt.Format(timeLayout),
	}
}

func toEntityResponses(entities []domain.Entity) []EntityResponse {
	out := make([]EntityResponse, len(entities))
	for i, e := range entities {
		out[i] = toEntityResponse(e)
	}
	return out
}

// JobResponse is the API representation of a job.
type JobResponse struct {
	ID               string  `json:"id"`
	Type             string  `json:"type"`
	TenantID         *string `json:"tenantId"`
	DeploymentID     string  `json:"deploymentId,omitempty"`
	DefinitionID     string  `json:"definitionId,omitempty"`
	ExecutionID      string  `json:"executionId,omitempty"`
	BatchID          string  `json:"batchId,omitempty"`
	Retries          int     `json:"retries"`
	ExceptionMessage string  `json:"exceptionMessage,omitempty"`
	Suspended        bool    `json:"suspended"`
	DueDate          string  `json:"dueDate"`
}

func toJobResponse(j domain.Job) JobResponse {
	return JobResponse{
		ID:               j.ID,
		Type:             string(j.Type),
		TenantID:         tenantPtr(j.TenantID),
		DeploymentID:     j.DeploymentID,
		DefinitionID:     j.DefinitionID,
		ExecutionID:      j.ExecutionID,
		BatchID:          j.BatchID,
		Retries:          j.Retries,
		ExceptionMessage: j.ExceptionMessage,
		Suspended:        j.Suspended,
		DueDate:          j.DueDate.Format(timeLayout),
	}
}

// BatchResponse is the API representation of a batch.
type BatchResponse struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	TenantID    *string `json:"tenantId"`
	Status      string  `json:"status"`
	TotalJobs   int     `json:"totalJobs"`
	JobsCreated int     `json:"jobsCreated"`
	CreatedAt   string  `json:"createdAt"`
}

func toBatchResponse(b domain.Batch) BatchResponse {
	return BatchResponse{
		ID:          b.ID,
		Type:        string(b.Type),
		TenantID:    tenantPtr(b.TenantID),
		Status:      string(b.Status),
		TotalJobs:   b.TotalJobs,
		JobsCreated: b.JobsCreated,
		CreatedAt:   b.CreatedAt.Format(timeLayout),
	}
}

// --- Shared request parts ---

// LookupBody selects a definition by id, or by key with an optional version
// binding and tenant.
type LookupBody struct {
	DefinitionID    string `json:"definitionId,omitempty" doc:"Definition ID; excludes key and tenant"`
	Key             string `json:"key,omitempty" doc:"Definition key"`
	Version         int    `json:"version,omitempty" minimum:"0"`
	VersionTag      string `json:"versionTag,omitempty"`
	TenantID        string `json:"tenantId,omitempty" doc:"Tenant of the definition"`
	WithoutTenantID bool   `json:"withoutTenantId,omitempty" doc:"Select the shared definition"`
}

func (b LookupBody) lookup(kind domain.DefinitionKind) domain.Lookup {
	return domain.Lookup{
		Kind:       kind,
		ID:         b.DefinitionID,
		Key:        b.Key,
		Binding:    binding("", b.Version, b.VersionTag),
		Version:    b.Version,
		VersionTag: b.VersionTag,
		Tenant:     tenantFilter(b.TenantID, b.WithoutTenantID),
	}
}

// TenantParams are the tenant predicates every list endpoint accepts.
type TenantParams struct {
	TenantIDIn             []string `query:"tenantIdIn" doc:"Only rows of these tenants"`
	WithoutTenantID        bool     `query:"withoutTenantId" doc:"Only rows without a tenant"`
	IncludeWithoutTenantID bool     `query:"includeWithoutTenantId" doc:"Add rows without a tenant to tenantIdIn"`
	SortByTenant           string   `query:"sortByTenant" doc:"asc or desc"`
}

func (p TenantParams) query() (domain.TenantQuery, error) {
	var q domain.TenantQuery
	if p.TenantIDIn != nil {
		ids := make([]domain.TenantID, len(p.TenantIDIn))
		for i, id := range p.TenantIDIn {
			ids[i] = domain.TenantID(id)
		}
		q = q.TenantIDIn(ids...)
	}
	if p.WithoutTenantID {
		q = q.WithoutTenantID()
	}
	if p.IncludeWithoutTenantID {
		q = q.IncludeWithoutTenantID()
	}
	switch order := domain.SortOrder(p.SortByTenant); order {
	case domain.SortNone, domain.SortAsc, domain.SortDesc:
		q = q.OrderByTenantID(order)
	default:
		return q, fmt.Errorf("%w: sortByTenant must be asc or desc", errBadRequest)
	}
	return q, q.Err()
}
