package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/neomorfeo/tenantscope/internal/domain"
)

const entityColumns = `id, kind, tenant_id, parent_id, instance_id, super_execution_id, super_case_execution_id, definition_id, name, event_type, value, created_at`

func (s *Store) CreateEntity(ctx context.Context, e domain.Entity) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entities (`+entityColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Kind), nullTenant(e.TenantID), e.ParentID, e.InstanceID, e.SuperExecutionID,
		e.SuperCaseExecutionID, e.DefinitionID, e.Name, string(e.EventType), e.Value, formatTime(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting %s: %w", e.Kind, err)
	}
	return nil
}

func (s *Store) GetEntity(ctx context.Context, id string) (domain.Entity, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+entityColumns+` FROM entities WHERE id = ?`, id)
	if err != nil {
		return domain.Entity{}, fmt.Errorf("querying entity: %w", err)
	}
	entities, err := scanEntities(rows)
	if err != nil {
		return domain.Entity{}, err
	}
	if len(entities) == 0 {
		return domain.Entity{}, domain.ErrEntityNotFound
	}
	return entities[0], nil
}

// UpdateEntity rewrites the mutable columns. The tenant is never updated.
func (s *Store) UpdateEntity(ctx context.Context, e domain.Entity) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE entities SET parent_id = ?, definition_id = ?, name = ?, value = ? WHERE id = ?`,
		e.ParentID, e.DefinitionID, e.Name, e.Value, e.ID,
	)
	if err != nil {
		return fmt.Errorf("updating entity: %w", err)
	}
	return expectOne(result, domain.ErrEntityNotFound)
}

func (s *Store) DeleteEntity(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM entities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting entity: %w", err)
	}
	return expectOne(result, domain.ErrEntityNotFound)
}

func (s *Store) FindEntities(ctx context.Context, q domain.EntityQuery) ([]domain.Entity, error) {
	var w where
	w.eq("kind", string(q.Kind))
	w.eq("instance_id", q.InstanceID)
	w.eq("parent_id", q.ParentID)
	w.eq("definition_id", q.DefinitionID)
	w.eq("name", q.Name)
	w.eq("event_type", string(q.EventType))
	w.tenants("tenant_id", q.Tenants, q.Visibility)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entityColumns+` FROM entities`+w.String()+tenantOrder("tenant_id", q.Tenants.Order(), "created_at, id"),
		w.args...,
	)
	if err != nil {
		return nil, fmt.Errorf("querying entities: %w", err)
	}
	return scanEntities(rows)
}

func scanEntities(rows *sql.Rows) ([]domain.Entity, error) {
	defer rows.Close()

	var out []domain.Entity
	for rows.Next() {
		var e domain.Entity
		var kind, eventType, createdAt string
		var tenant sql.NullString
		if err := rows.Scan(&e.ID, &kind, &tenant, &e.ParentID, &e.InstanceID, &e.SuperExecutionID,
			&e.SuperCaseExecutionID, &e.DefinitionID, &e.Name, &eventType, &e.Value, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning entity row: %w", err)
		}
		e.Kind = domain.EntityKind(kind)
		e.EventType = domain.EventType(eventType)
		e.TenantID = tenantOf(tenant)
		e.CreatedAt = parseTime(createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}
