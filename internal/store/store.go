package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"pm-workorder-backend/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines the interface for all database operations.
type Store interface {
	// Machines.
	ListMachines(ctx context.Context, f MachineFilters) ([]model.Machine, error)
	GetMachine(ctx context.Context, id uint) (*model.Machine, error)
	GetMachineByCode(ctx context.Context, code string) (*model.Machine, error)
	CreateMachine(ctx context.Context, m *model.Machine) error
	SaveMachine(ctx context.Context, m *model.Machine) error
	DeleteMachine(ctx context.Context, id uint) error
	MachinesDueBy(ctx context.Context, cutoff time.Time) ([]model.Machine, error)

	// Maintenance history.
	ListMaintenanceHistory(ctx context.Context, machineID uint, limit int) ([]model.MaintenanceRecord, error)
	CreateMaintenanceRecord(ctx context.Context, rec *model.MaintenanceRecord) error

	// Work orders.
	ListWorkOrders(ctx context.Context, f WorkOrderFilters) ([]model.WorkOrder, error)
	GetWorkOrder(ctx context.Context, id uint) (*model.WorkOrder, error)
	GetWorkOrderByNumber(ctx context.Context, number string) (*model.WorkOrder, error)
	CreateWorkOrder(ctx context.Context, wo *model.WorkOrder) error
	SaveWorkOrder(ctx context.Context, wo *model.WorkOrder) error
	DeleteWorkOrder(ctx context.Context, id uint) error
	ActiveWorkOrders(ctx context.Context, machineID uint) ([]model.WorkOrder, error)
	LatestWONumber(ctx context.Context, year int) (string, error)
	CompleteWorkOrder(ctx context.Context, wo *model.WorkOrder, m *model.Machine, rec *model.MaintenanceRecord) error

	// AI decisions.
	CreateDecision(ctx context.Context, d *model.Decision) error
	GetDecision(ctx context.Context, id uint) (*model.Decision, error)
	RecentDecisions(ctx context.Context, limit int, machineID uint) ([]model.Decision, error)
	MarkDecisionExecuted(ctx context.Context, id uint) (bool, error)
	DecisionStatistics(ctx context.Context) (*DecisionStats, error)

	// Workflow logs.
	ListWorkflowLogs(ctx context.Context, f WorkflowLogFilters) ([]model.WorkflowLog, error)
	GetWorkflowLog(ctx context.Context, id uint) (*model.WorkflowLog, error)
	GetWorkflowLogByExecutionID(ctx context.Context, executionID string) (*model.WorkflowLog, error)
	CreateWorkflowLog(ctx context.Context, wl *model.WorkflowLog) error
	SaveWorkflowLog(ctx context.Context, wl *model.WorkflowLog) error
	DeleteWorkflowLog(ctx context.Context, id uint) error

	// Push subscriptions.
	UpsertSubscription(ctx context.Context, sub *model.PushSubscription, machineIDs []uint) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	SubscriptionsForMachine(ctx context.Context, machineID uint) ([]model.PushSubscription, error)

	// Transaction runs fn against a store bound to a single database transaction.
	Transaction(ctx context.Context, fn func(Store) error) error

	// DB exposes the underlying handle for migrations and tests.
	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) Transaction(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

// wrapNotFound maps gorm's sentinel onto ErrNotFound so callers can use errors.Is.
func wrapNotFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func (s *gormStore) ListMachines(ctx context.Context, f MachineFilters) ([]model.Machine, error) {
	q := s.db.WithContext(ctx).Model(&model.Machine{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Location != "" {
		q = q.Where("location = ?", f.Location)
	}
	var machines []model.Machine
	if err := q.Order("next_pm_date ASC").Find(&machines).Error; err != nil {
		return nil, fmt.Errorf("failed to list machines: %w", err)
	}
	return machines, nil
}

func (s *gormStore) GetMachine(ctx context.Context, id uint) (*model.Machine, error) {
	var m model.Machine
	if err := s.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, wrapNotFound(err, fmt.Sprintf("machine %d", id))
	}
	return &m, nil
}

func (s *gormStore) GetMachineByCode(ctx context.Context, code string) (*model.Machine, error) {
	var m model.Machine
	if err := s.db.WithContext(ctx).Where("machine_id = ?", code).First(&m).Error; err != nil {
		return nil, wrapNotFound(err, fmt.Sprintf("machine %q", code))
	}
	return &m, nil
}

func (s *gormStore) CreateMachine(ctx context.Context, m *model.Machine) error {
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("failed to create machine %q: %w", m.MachineID, err)
	}
	return nil
}

func (s *gormStore) SaveMachine(ctx context.Context, m *model.Machine) error {
	if err := s.db.WithContext(ctx).Save(m).Error; err != nil {
		return fmt.Errorf("failed to save machine %d: %w", m.ID, err)
	}
	return nil
}

// DeleteMachine removes a machine and everything hanging off it. The child
// deletes are explicit so behaviour does not depend on the driver honouring
// foreign-key cascades.
func (s *gormStore) DeleteMachine(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("machine_id = ?", id).Delete(&model.MaintenanceRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete maintenance history for machine %d: %w", id, err)
		}
		if err := tx.Where("machine_id = ?", id).Delete(&model.WorkOrder{}).Error; err != nil {
			return fmt.Errorf("failed to delete work orders for machine %d: %w", id, err)
		}
		if err := tx.Where("machine_id = ?", id).Delete(&model.Decision{}).Error; err != nil {
			return fmt.Errorf("failed to delete decisions for machine %d: %w", id, err)
		}
		res := tx.Delete(&model.Machine{}, id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete machine %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("machine %d: %w", id, ErrNotFound)
		}
		return nil
	})
}

func (s *gormStore) MachinesDueBy(ctx context.Context, cutoff time.Time) ([]model.Machine, error) {
	var machines []model.Machine
	err := s.db.WithContext(ctx).
		Where("next_pm_date <= ? AND status = ?", cutoff, model.MachineStatusActive).
		Order("next_pm_date ASC").
		Find(&machines).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list machines due for maintenance: %w", err)
	}
	return machines, nil
}

func (s *gormStore) ListMaintenanceHistory(ctx context.Context, machineID uint, limit int) ([]model.MaintenanceRecord, error) {
	q := s.db.WithContext(ctx).
		Where("machine_id = ?", machineID).
		Order("maintenance_date DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var records []model.MaintenanceRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list maintenance history for machine %d: %w", machineID, err)
	}
	return records, nil
}

func (s *gormStore) CreateMaintenanceRecord(ctx context.Context, rec *model.MaintenanceRecord) error {
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to create maintenance record for machine %d: %w", rec.MachineID, err)
	}
	return nil
}
