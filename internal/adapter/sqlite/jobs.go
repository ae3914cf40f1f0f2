package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/neomorfeo/tenantscope/internal/domain"
)

const jobColumns = `id, type, tenant_id, deployment_id, definition_id, job_definition_id, execution_id, instance_id, batch_id, configuration, retries, exception_message, suspended, due_date, created_at`

func (s *Store) CreateJob(ctx context.Context, j domain.Job) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, string(j.Type), nullTenant(j.TenantID), j.DeploymentID, j.DefinitionID, j.JobDefinitionID,
		j.ExecutionID, j.InstanceID, j.BatchID, j.Configuration, j.Retries, j.ExceptionMessage,
		j.Suspended, formatTime(j.DueDate), formatTime(j.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting job: %w", err)
	}
	return nil
}

func (s *Store) GetJob(ctx context.Context, id string) (domain.Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	if err != nil {
		return domain.Job{}, fmt.Errorf("querying job: %w", err)
	}
	jobs, err := scanJobs(rows)
	if err != nil {
		return domain.Job{}, err
	}
	if len(jobs) == 0 {
		return domain.Job{}, domain.ErrJobNotFound
	}
	return jobs[0], nil
}

// UpdateJob stores retry bookkeeping and suspension state.
func (s *Store) UpdateJob(ctx context.Context, j domain.Job) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET retries = ?, exception_message = ?, suspended = ?, due_date = ? WHERE id = ?`,
		j.Retries, j.ExceptionMessage, j.Suspended, formatTime(j.DueDate), j.ID,
	)
	if err != nil {
		return fmt.Errorf("updating job: %w", err)
	}
	return expectOne(result, domain.ErrJobNotFound)
}

func (s *Store) DeleteJob(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting job: %w", err)
	}
	return expectOne(result, domain.ErrJobNotFound)
}

func (s *Store) FindJobs(ctx context.Context, q domain.JobQuery) ([]domain.Job, error) {
	var w where
	w.eq("type", string(q.Type))
	w.eq("deployment_id", q.DeploymentID)
	w.eq("definition_id", q.DefinitionID)
	w.eq("batch_id", q.BatchID)
	w.tenants("tenant_id", q.Tenants, q.Visibility)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs`+w.String()+tenantOrder("tenant_id", q.Tenants.Order(), "created_at, id"),
		w.args...,
	)
	if err != nil {
		return nil, fmt.Errorf("querying jobs: %w", err)
	}
	return scanJobs(rows)
}

func scanJobs(rows *sql.Rows) ([]domain.Job, error) {
	defer rows.Close()

	var out []domain.Job
	for rows.Next() {
		var j domain.Job
		var jobType, dueDate, createdAt string
		var tenant sql.NullString
		if err := rows.Scan(&j.ID, &jobType, &tenant, &j.DeploymentID, &j.DefinitionID, &j.JobDefinitionID,
			&j.ExecutionID, &j.InstanceID, &j.BatchID, &j.Configuration, &j.Retries, &j.ExceptionMessage,
			&j.Suspended, &dueDate, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning job row: %w", err)
		}
		j.Type = domain.JobType(jobType)
		j.TenantID = tenantOf(tenant)
		j.DueDate = parseTime(dueDate)
		j.CreatedAt = parseTime(createdAt)
		out = append(out, j)
	}
	return out, rows.Err()
}
