package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/neomorfeo/tenantscope/internal/domain"
)

// TaskInput saves a standalone task. An empty ID creates a new task.
//
// On create an empty TenantID inherits the parent task's tenant. On update
// empty TenantID and ParentTaskID keep the persisted values.
type TaskInput struct {
	ID           string
	Name         string
	ParentTaskID string
	TenantID     domain.TenantID
}

// TaskService saves standalone tasks. A task's tenant never changes once
// persisted and a subtask always carries its parent's tenant.
type TaskService struct {
	store  domain.Store
	gate   *TenantGate
	logger *zap.Logger
}

// NewTaskService creates a task service.
func NewTaskService(store domain.Store, gate *TenantGate, logger *zap.Logger) *TaskService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskService{store: store, gate: gate, logger: logger}
}

// SaveTask creates or updates a standalone task.
func (s *TaskService) SaveTask(ctx context.Context, in TaskInput) (domain.Entity, error) {
	if in.ID != "" {
		existing, err := s.store.GetEntity(ctx, in.ID)
		switch {
		case err == nil:
			return s.update(ctx, existing, in)
		case !errors.Is(err, domain.ErrEntityNotFound):
			return domain.Entity{}, fmt.Errorf("loading task: %w", err)
		}
	}

	tenant := in.TenantID
	if in.ParentTaskID != "" {
		parent, err := s.parent(ctx, in.ID, in.ParentTaskID, tenant)
		if err != nil {
			return domain.Entity{}, err
		}
		tenant = parent.TenantID
	}

	if err := s.gate.Check(ctx, "create", "task", in.ID, tenant); err != nil {
		return domain.Entity{}, err
	}

	task := domain.Entity{
		ID:        in.ID,
		Kind:      domain.EntityTask,
		TenantID:  tenant,
		ParentID:  in.ParentTaskID,
		Name:      in.Name,
		CreatedAt: time.Now().UTC(),
	}
	if task.ID == "" {
		task.ID = newID()
	}
	if err := s.store.CreateEntity(ctx, task); err != nil {
		return domain.Entity{}, fmt.Errorf("creating task: %w", err)
	}

	s.logger.Debug("task created",
		zap.String("task_id", task.ID),
		zap.String("parent_task_id", task.ParentID),
		zap.String("tenant_id", string(task.TenantID)))
	return task, nil
}

func (s *TaskService) update(ctx context.Context, existing domain.Entity, in TaskInput) (domain.Entity, error) {
	if existing.Kind != domain.EntityTask {
		return domain.Entity{}, fmt.Errorf("entity %q is a %s, not a task", existing.ID, existing.Kind)
	}
	if !in.TenantID.IsNone() && in.TenantID != existing.TenantID {
		return domain.Entity{}, &domain.TenantImmutabilityError{
			TaskID:    existing.ID,
			Current:   existing.TenantID,
			Requested: in.TenantID,
		}
	}
	if in.ParentTaskID != "" && in.ParentTaskID != existing.ParentID {
		parent, err := s.store.GetEntity(ctx, in.ParentTaskID)
		if err != nil {
			return domain.Entity{}, fmt.Errorf("loading parent task: %w", err)
		}
		if parent.TenantID != existing.TenantID {
			return domain.Entity{}, &domain.TenantImmutabilityError{
				TaskID:       existing.ID,
				ParentTaskID: parent.ID,
				Current:      parent.TenantID,
				Requested:    existing.TenantID,
			}
		}
		existing.ParentID = parent.ID
	}
	if err := s.gate.Check(ctx, "update", "task", existing.ID, existing.TenantID); err != nil {
		return domain.Entity{}, err
	}

	existing.Name = in.Name
	if err := s.store.UpdateEntity(ctx, existing); err != nil {
		return domain.Entity{}, fmt.Errorf("updating task: %w", err)
	}
	return existing, nil
}

// parent loads the parent task of taskID. A non-empty tenant must match the
// parent's tenant.
func (s *TaskService) parent(ctx context.Context, taskID, parentID string, tenant domain.TenantID) (domain.Entity, error) {
	parent, err := s.store.GetEntity(ctx, parentID)
	if err != nil {
		return domain.Entity{}, fmt.Errorf("loading parent task: %w", err)
	}
	if !tenant.IsNone() && tenant != parent.TenantID {
		return domain.Entity{}, &domain.TenantImmutabilityError{
			TaskID:       taskID,
			ParentTaskID: parent.ID,
			Current:      parent.TenantID,
			Requested:    tenant,
		}
	}
	return parent, nil
}
