package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"pm-workorder-backend/internal/model"
	"pm-workorder-backend/internal/store"
)

// LogEntry is a partial workflow-log record reported by a batch caller. Nil
// fields are left untouched on update.
type LogEntry struct {
	WorkflowName      string
	ExecutionID       string
	Status            *model.WorkflowStatus
	MachinesProcessed *int
	WorkOrdersCreated *int
	NotificationsSent *int
	Errors            *string
	ExecutionTimeMS   *int
	StartedAt         *time.Time
	CompletedAt       *time.Time
}

// RunLog records batch-run outcomes. External automation platforms report
// start and completion as two upserts sharing an execution id; the id ties
// them to one row.
type RunLog struct {
	store  store.Store
	logger *logrus.Logger
}

func NewRunLog(st store.Store, logger *logrus.Logger) *RunLog {
	return &RunLog{store: st, logger: logger}
}

// Upsert updates the log row matching the entry's execution id, or inserts a
// new one when no execution id is given or none matches. Inserts default
// StartedAt to now.
func (r *RunLog) Upsert(ctx context.Context, e LogEntry) (*model.WorkflowLog, error) {
	if e.ExecutionID != "" {
		existing, err := r.store.GetWorkflowLogByExecutionID(ctx, e.ExecutionID)
		if err == nil {
			r.logger.WithField("execution_id", e.ExecutionID).Info("updating existing workflow log")
			return r.apply(ctx, existing, e)
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}

	wl := &model.WorkflowLog{
		WorkflowName: e.WorkflowName,
		ExecutionID:  e.ExecutionID,
		StartedAt:    time.Now(),
	}
	if e.StartedAt != nil {
		wl.StartedAt = *e.StartedAt
	}
	if e.Status != nil {
		wl.Status = *e.Status
	}
	if e.MachinesProcessed != nil {
		wl.MachinesProcessed = *e.MachinesProcessed
	}
	if e.WorkOrdersCreated != nil {
		wl.WorkOrdersCreated = *e.WorkOrdersCreated
	}
	if e.NotificationsSent != nil {
		wl.NotificationsSent = *e.NotificationsSent
	}
	if e.Errors != nil {
		wl.Errors = *e.Errors
	}
	wl.ExecutionTimeMS = e.ExecutionTimeMS
	wl.CompletedAt = e.CompletedAt

	if err := r.store.CreateWorkflowLog(ctx, wl); err != nil {
		return nil, err
	}
	r.logger.WithFields(logrus.Fields{
		"workflow_name": wl.WorkflowName,
		"log_id":        wl.ID,
	}).Info("created workflow log")
	return wl, nil
}

// Update patches the log row by id, changing only the provided fields.
func (r *RunLog) Update(ctx context.Context, id uint, e LogEntry) (*model.WorkflowLog, error) {
	wl, err := r.store.GetWorkflowLog(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.apply(ctx, wl, e)
}

func (r *RunLog) apply(ctx context.Context, wl *model.WorkflowLog, e LogEntry) (*model.WorkflowLog, error) {
	if e.Status != nil {
		wl.Status = *e.Status
	}
	if e.MachinesProcessed != nil {
		wl.MachinesProcessed = *e.MachinesProcessed
	}
	if e.WorkOrdersCreated != nil {
		wl.WorkOrdersCreated = *e.WorkOrdersCreated
	}
	if e.NotificationsSent != nil {
		wl.NotificationsSent = *e.NotificationsSent
	}
	if e.Errors != nil {
		wl.Errors = *e.Errors
	}
	if e.ExecutionTimeMS != nil {
		wl.ExecutionTimeMS = e.ExecutionTimeMS
	}
	if e.CompletedAt != nil {
		wl.CompletedAt = e.CompletedAt
	}
	if err := r.store.SaveWorkflowLog(ctx, wl); err != nil {
		return nil, err
	}
	return wl, nil
}
