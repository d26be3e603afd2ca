package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pm-workorder-backend/internal/model"
)

func (s *gormStore) ListWorkflowLogs(ctx context.Context, f WorkflowLogFilters) ([]model.WorkflowLog, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	q := s.db.WithContext(ctx).
		Order("started_at DESC, id DESC").
		Limit(limit).
		Offset(f.Offset)
	if f.WorkflowName != "" {
		q = q.Where("workflow_name = ?", f.WorkflowName)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var logs []model.WorkflowLog
	if err := q.Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to list workflow logs: %w", err)
	}
	return logs, nil
}

func (s *gormStore) GetWorkflowLog(ctx context.Context, id uint) (*model.WorkflowLog, error) {
	var wl model.WorkflowLog
	if err := s.db.WithContext(ctx).First(&wl, id).Error; err != nil {
		return nil, wrapNotFound(err, fmt.Sprintf("workflow log %d", id))
	}
	return &wl, nil
}

// GetWorkflowLogByExecutionID returns the newest row for an execution id.
// Execution ids are indexed but not unique, so duplicates resolve to the
// latest run.
func (s *gormStore) GetWorkflowLogByExecutionID(ctx context.Context, executionID string) (*model.WorkflowLog, error) {
	var wl model.WorkflowLog
	err := s.db.WithContext(ctx).
		Where("execution_id = ?", executionID).
		Order("started_at DESC, id DESC").
		First(&wl).Error
	if err != nil {
		return nil, wrapNotFound(err, fmt.Sprintf("workflow log for execution %s", executionID))
	}
	return &wl, nil
}

func (s *gormStore) CreateWorkflowLog(ctx context.Context, wl *model.WorkflowLog) error {
	if err := s.db.WithContext(ctx).Create(wl).Error; err != nil {
		return fmt.Errorf("failed to create workflow log %s: %w", wl.ExecutionID, err)
	}
	return nil
}

func (s *gormStore) SaveWorkflowLog(ctx context.Context, wl *model.WorkflowLog) error {
	if err := s.db.WithContext(ctx).Save(wl).Error; err != nil {
		return fmt.Errorf("failed to save workflow log %d: %w", wl.ID, err)
	}
	return nil
}

func (s *gormStore) DeleteWorkflowLog(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&model.WorkflowLog{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete workflow log %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("workflow log %d: %w", id, ErrNotFound)
	}
	return nil
}

// UpsertSubscription creates or refreshes a subscription keyed by endpoint and
// replaces its watch list with the given machines. An empty list clears the
// watch list, which dispatch treats as "watch everything".
func (s *gormStore) UpsertSubscription(ctx context.Context, sub *model.PushSubscription, machineIDs []uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).Create(sub).Error; err != nil {
			return fmt.Errorf("failed to upsert subscription: %w", err)
		}

		var machines []model.Machine
		if len(machineIDs) > 0 {
			if err := tx.Find(&machines, machineIDs).Error; err != nil {
				return fmt.Errorf("failed to load watched machines: %w", err)
			}
		}

		if err := tx.Model(sub).Association("Machines").Replace(&machines); err != nil {
			return fmt.Errorf("failed to replace watched machines: %w", err)
		}
		return nil
	})
}

func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.WithContext(ctx).
		Preload("Machines").
		First(&sub, "endpoint = ?", endpoint).Error
	if err != nil {
		return nil, wrapNotFound(err, "subscription")
	}
	return &sub, nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	if err := s.db.WithContext(ctx).Select(clause.Associations).Delete(&model.PushSubscription{Endpoint: endpoint}).Error; err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}

// SubscriptionsForMachine returns every subscription that should hear about
// the machine: those watching it explicitly plus those with no watch list at
// all.
func (s *gormStore) SubscriptionsForMachine(ctx context.Context, machineID uint) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := s.db.WithContext(ctx).
		Where(`EXISTS (SELECT 1 FROM subscription_machine_watch w WHERE w.push_subscription_endpoint = push_subscriptions.endpoint AND w.machine_id = ?)
			OR NOT EXISTS (SELECT 1 FROM subscription_machine_watch w WHERE w.push_subscription_endpoint = push_subscriptions.endpoint)`, machineID).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions for machine %d: %w", machineID, err)
	}
	return subs, nil
}
