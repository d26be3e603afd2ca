package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"pm-workorder-backend/internal/model"
)

func (s *gormStore) ListWorkOrders(ctx context.Context, f WorkOrderFilters) ([]model.WorkOrder, error) {
	q := s.db.WithContext(ctx).Model(&model.WorkOrder{}).Preload("Machine")
	if f.Status != "" {
		q = q.Where("work_orders.status = ?", f.Status)
	}
	if f.MachineID != 0 {
		q = q.Where("work_orders.machine_id = ?", f.MachineID)
	}
	if f.Source != "" {
		q = q.Where("work_orders.creation_source = ?", f.Source)
	}
	if f.MachineName != "" {
		q = q.Joins("JOIN machines ON machines.id = work_orders.machine_id").
			Where("LOWER(machines.name) LIKE LOWER(?)", "%"+f.MachineName+"%")
	}
	var orders []model.WorkOrder
	if err := q.Order("work_orders.created_at DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list work orders: %w", err)
	}
	return orders, nil
}

func (s *gormStore) GetWorkOrder(ctx context.Context, id uint) (*model.WorkOrder, error) {
	var wo model.WorkOrder
	if err := s.db.WithContext(ctx).Preload("Machine").First(&wo, id).Error; err != nil {
		return nil, wrapNotFound(err, fmt.Sprintf("work order %d", id))
	}
	return &wo, nil
}

func (s *gormStore) GetWorkOrderByNumber(ctx context.Context, number string) (*model.WorkOrder, error) {
	var wo model.WorkOrder
	err := s.db.WithContext(ctx).Preload("Machine").
		Where("wo_number = ?", number).First(&wo).Error
	if err != nil {
		return nil, wrapNotFound(err, fmt.Sprintf("work order %s", number))
	}
	return &wo, nil
}

func (s *gormStore) CreateWorkOrder(ctx context.Context, wo *model.WorkOrder) error {
	if err := s.db.WithContext(ctx).Create(wo).Error; err != nil {
		return fmt.Errorf("failed to create work order %s: %w", wo.WONumber, err)
	}
	return nil
}

func (s *gormStore) SaveWorkOrder(ctx context.Context, wo *model.WorkOrder) error {
	if err := s.db.WithContext(ctx).Save(wo).Error; err != nil {
		return fmt.Errorf("failed to save work order %d: %w", wo.ID, err)
	}
	return nil
}

func (s *gormStore) DeleteWorkOrder(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&model.WorkOrder{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete work order %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("work order %d: %w", id, ErrNotFound)
	}
	return nil
}

// ActiveWorkOrders returns the machine's orders that still occupy the pipeline,
// i.e. everything not Completed or Cancelled.
func (s *gormStore) ActiveWorkOrders(ctx context.Context, machineID uint) ([]model.WorkOrder, error) {
	var orders []model.WorkOrder
	err := s.db.WithContext(ctx).
		Where("machine_id = ? AND status IN ?", machineID, model.OpenWorkOrderStatuses).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active work orders for machine %d: %w", machineID, err)
	}
	return orders, nil
}

// LatestWONumber returns the highest work-order number issued in the given
// year, or "" when none exists yet. Zero-padded sequences keep the string
// ordering aligned with the numeric one.
func (s *gormStore) LatestWONumber(ctx context.Context, year int) (string, error) {
	var wo model.WorkOrder
	err := s.db.WithContext(ctx).
		Where("wo_number LIKE ?", fmt.Sprintf("WO-%d-%%", year)).
		Order("wo_number DESC").
		First(&wo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up latest work order number for %d: %w", year, err)
	}
	return wo.WONumber, nil
}

// CompleteWorkOrder persists a completion in one transaction: the closed
// order, the machine with its rolled-over PM dates, and the new history row.
func (s *gormStore) CompleteWorkOrder(ctx context.Context, wo *model.WorkOrder, m *model.Machine, rec *model.MaintenanceRecord) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(wo).Error; err != nil {
			return fmt.Errorf("failed to save completed work order %d: %w", wo.ID, err)
		}
		if err := tx.Save(m).Error; err != nil {
			return fmt.Errorf("failed to save machine %d: %w", m.ID, err)
		}
		if err := tx.Create(rec).Error; err != nil {
			return fmt.Errorf("failed to create maintenance record for machine %d: %w", rec.MachineID, err)
		}
		return nil
	})
}
