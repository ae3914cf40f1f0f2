package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/neomorfeo/tenantscope/internal/domain"
)

const definitionColumns = `id, deployment_id, kind, key, name, version, version_tag, tenant_id, resource_name, checksum, timer_start, content`

// SaveDeployment inserts d and its definitions in one transaction. Each
// definition gets max(version)+1 of its kind, key and tenant.
func (s *Store) SaveDeployment(ctx context.Context, d domain.Deployment) (domain.Deployment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Deployment{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO deployments (id, name, tenant_id, source, deployed_at) VALUES (?, ?, ?, ?, ?)`,
		d.ID, d.Name, nullTenant(d.TenantID), d.Source, formatTime(d.DeployedAt),
	); err != nil {
		return domain.Deployment{}, fmt.Errorf("inserting deployment: %w", err)
	}

	defs := make([]domain.Definition, 0, len(d.Definitions))
	for _, def := range d.Definitions {
		var current int
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(version), 0) FROM definitions WHERE kind = ? AND key = ? AND tenant_id IS ?`,
			string(def.Kind), def.Key, nullTenant(def.TenantID),
		).Scan(&current); err != nil {
			return domain.Deployment{}, fmt.Errorf("reading latest version of %q: %w", def.Key, err)
		}

		def.Version = current + 1
		def.DeploymentID = d.ID
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO definitions (`+definitionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			def.ID, def.DeploymentID, string(def.Kind), def.Key, def.Name, def.Version, def.VersionTag,
			nullTenant(def.TenantID), def.ResourceName, def.Checksum, def.TimerStart, def.Content,
		); err != nil {
			return domain.Deployment{}, fmt.Errorf("inserting definition %q: %w", def.Key, err)
		}
		defs = append(defs, def)
	}

	if err := tx.Commit(); err != nil {
		return domain.Deployment{}, fmt.Errorf("committing deployment: %w", err)
	}

	d.Definitions = defs
	return d, nil
}

func (s *Store) GetDeployment(ctx context.Context, id string) (domain.Deployment, error) {
	var d domain.Deployment
	var tenant sql.NullString
	var deployedAt string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, tenant_id, source, deployed_at FROM deployments WHERE id = ?`, id,
	).Scan(&d.ID, &d.Name, &tenant, &d.Source, &deployedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Deployment{}, domain.ErrDeploymentNotFound
	}
	if err != nil {
		return domain.Deployment{}, fmt.Errorf("scanning deployment: %w", err)
	}
	d.TenantID = tenantOf(tenant)
	d.DeployedAt = parseTime(deployedAt)

	d.Definitions, err = s.FindDefinitions(ctx, domain.DefinitionQuery{DeploymentID: id})
	if err != nil {
		return domain.Deployment{}, err
	}
	return d, nil
}

// DeleteDeployment removes the deployment; its definitions go with it.
func (s *Store) DeleteDeployment(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM definitions WHERE deployment_id = ?`, id); err != nil {
		return fmt.Errorf("deleting definitions: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM deployments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting deployment: %w", err)
	}
	if err := expectOne(result, domain.ErrDeploymentNotFound); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) GetDefinition(ctx context.Context, id string) (domain.Definition, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+definitionColumns+` FROM definitions WHERE id = ?`, id)
	if err != nil {
		return domain.Definition{}, fmt.Errorf("querying definition: %w", err)
	}
	defs, err := scanDefinitions(rows)
	if err != nil {
		return domain.Definition{}, err
	}
	if len(defs) == 0 {
		return domain.Definition{}, domain.ErrDefinitionNotFound
	}
	return defs[0], nil
}

// FindDefinitions reads all matches in a single statement, ordered by
// tenant (NULL first) and version.
func (s *Store) FindDefinitions(ctx context.Context, q domain.DefinitionQuery) ([]domain.Definition, error) {
	var w where
	w.eq("kind", string(q.Kind))
	w.eq("key", q.Key)
	w.eq("deployment_id", q.DeploymentID)
	w.tenants("tenant_id", q.Tenants, q.Visibility)

	order := q.Tenants.Order()
	if order == domain.SortNone {
		order = domain.SortAsc
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+definitionColumns+` FROM definitions`+w.String()+tenantOrder("tenant_id", order, "key, version"),
		w.args...,
	)
	if err != nil {
		return nil, fmt.Errorf("querying definitions: %w", err)
	}
	return scanDefinitions(rows)
}

func scanDefinitions(rows *sql.Rows) ([]domain.Definition, error) {
	defer rows.Close()

	var defs []domain.Definition
	for rows.Next() {
		var d domain.Definition
		var kind string
		var tenant sql.NullString
		if err := rows.Scan(&d.ID, &d.DeploymentID, &kind, &d.Key, &d.Name, &d.Version, &d.VersionTag,
			&tenant, &d.ResourceName, &d.Checksum, &d.TimerStart, &d.Content); err != nil {
			return nil, fmt.Errorf("scanning definition row: %w", err)
		}
		d.Kind = domain.DefinitionKind(kind)
		d.TenantID = tenantOf(tenant)
		defs = append(defs, d)
	}
	return defs, rows.Err()
}

// expectOne maps an update or delete that touched no row to notFound.
func expectOne(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
