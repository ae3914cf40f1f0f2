package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/neomorfeo/tenantscope/internal/domain"
)

const batchColumns = `id, type, tenant_id, status, total_jobs, jobs_created, seed_job_definition_id, monitor_job_definition_id, batch_job_definition_id, configuration, created_at`

func (s *Store) CreateBatch(ctx context.Context, b domain.Batch) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO batches (`+batchColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, string(b.Type), nullTenant(b.TenantID), string(b.Status), b.TotalJobs, b.JobsCreated,
		b.SeedJobDefinitionID, b.MonitorJobDefinitionID, b.BatchJobDefinitionID, b.Configuration,
		formatTime(b.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting batch: %w", err)
	}
	return nil
}

func (s *Store) GetBatch(ctx context.Context, id string) (domain.Batch, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+batchColumns+` FROM batches WHERE id = ?`, id)
	if err != nil {
		return domain.Batch{}, fmt.Errorf("querying batch: %w", err)
	}
	batches, err := scanBatches(rows)
	if err != nil {
		return domain.Batch{}, err
	}
	if len(batches) == 0 {
		return domain.Batch{}, domain.ErrBatchNotFound
	}
	return batches[0], nil
}

func (s *Store) UpdateBatch(ctx context.Context, b domain.Batch) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE batches SET status = ?, jobs_created = ? WHERE id = ?`,
		string(b.Status), b.JobsCreated, b.ID,
	)
	if err != nil {
		return fmt.Errorf("updating batch: %w", err)
	}
	return expectOne(result, domain.ErrBatchNotFound)
}

func (s *Store) DeleteBatch(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM batches WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting batch: %w", err)
	}
	return expectOne(result, domain.ErrBatchNotFound)
}

func (s *Store) FindBatches(ctx context.Context, q domain.BatchQuery) ([]domain.Batch, error) {
	var w where
	w.eq("type", string(q.Type))
	w.tenants("tenant_id", q.Tenants, q.Visibility)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+batchColumns+` FROM batches`+w.String()+tenantOrder("tenant_id", q.Tenants.Order(), "created_at, id"),
		w.args...,
	)
	if err != nil {
		return nil, fmt.Errorf("querying batches: %w", err)
	}
	return scanBatches(rows)
}

func scanBatches(rows *sql.Rows) ([]domain.Batch, error) {
	defer rows.Close()

	var out []domain.Batch
	for rows.Next() {
		var b domain.Batch
		var batchType, status, createdAt string
		var tenant sql.NullString
		if err := rows.Scan(&b.ID, &batchType, &tenant, &status, &b.TotalJobs, &b.JobsCreated,
			&b.SeedJobDefinitionID, &b.MonitorJobDefinitionID, &b.BatchJobDefinitionID, &b.Configuration,
			&createdAt); err != nil {
			return nil, fmt.Errorf("scanning batch row: %w", err)
		}
		b.Type = domain.BatchType(batchType)
		b.Status = domain.Status(status)
		b.TenantID = tenantOf(tenant)
		b.CreatedAt = parseTime(createdAt)
		out = append(out, b)
	}
	return out, rows.Err()
}
