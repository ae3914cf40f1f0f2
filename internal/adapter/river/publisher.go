package river

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/tenantscope/internal/domain"
)

// Compile-time check: Publisher implements domain.JobPublisher.
var _ domain.JobPublisher = (*Publisher)(nil)

// JobArgs points a River job at an engine job. The engine job stays the
// source of truth; River only carries its id and a snapshot for logging.
type JobArgs struct {
	JobID        string `json:"job_id"`
	Type         string `json:"type"`
	TenantID     string `json:"tenant_id,omitempty"`
	DeploymentID string `json:"deployment_id,omitempty"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (JobArgs) Kind() string { return "engine.job" }

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Publisher implements domain.JobPublisher by enqueuing River jobs.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher backed by the given River client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// Publish enqueues job for execution at its due date. River gets one
// attempt per remaining retry.
func (p *Publisher) Publish(ctx context.Context, job domain.Job) error {
	attempts := max(job.Retries, 1)

	_, err := p.client.Insert(ctx, JobArgs{
		JobID:        job.ID,
		Type:         string(job.Type),
		TenantID:     string(job.TenantID),
		DeploymentID: job.DeploymentID,
	}, &river.InsertOpts{
		MaxAttempts: attempts,
		ScheduledAt: job.DueDate,
		Tags:        []string{string(job.Type)},
	})
	if err != nil {
		return fmt.Errorf("enqueuing job %s: %w", job.ID, err)
	}
	return nil
}
