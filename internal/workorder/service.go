package workorder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"pm-workorder-backend/internal/lock"
	"pm-workorder-backend/internal/mailer"
	"pm-workorder-backend/internal/model"
	"pm-workorder-backend/internal/notification"
	"pm-workorder-backend/internal/parse"
	"pm-workorder-backend/internal/pm"
	"pm-workorder-backend/internal/store"
)

// Guard violations surfaced by the lifecycle transitions. API handlers map
// them to HTTP statuses with errors.Is.
var (
	ErrInvalidState          = errors.New("invalid work order state")
	ErrInvalidCompletionDate = errors.New("invalid completion date")
	ErrConflictActiveOrder   = errors.New("active work order(s) already exist")
	ErrApproverRequired      = errors.New("approver name is required")
)

// Service owns the work-order lifecycle: numbering, the state transitions,
// the PM schedule rollover on completion, and the supplier/staff
// notifications the transitions fire.
type Service struct {
	store  store.Store
	locks  lock.Locker
	mail   *mailer.Dispatcher
	push   *notification.WorkerPool
	logger *logrus.Logger
}

// NewService wires the state machine. A nil mail or push disables the
// corresponding notifications.
func NewService(st store.Store, locks lock.Locker, mail *mailer.Dispatcher, push *notification.WorkerPool, logger *logrus.Logger) *Service {
	return &Service{store: st, locks: locks, mail: mail, push: push, logger: logger}
}

// CreateParams describes a new work order. Status defaults to Draft when
// empty; AI-created orders pass Pending_Approval together with the decision
// id that produced them.
type CreateParams struct {
	MachineID     uint
	Priority      model.Priority
	Source        model.CreationSource
	Status        model.WorkOrderStatus
	ScheduledDate *time.Time
	Notes         string
	AIDecisionID  *uint
}

// Create issues the next work-order number for the current year and opens a
// new order. The machine lock is held across the open-order check and the
// insert so two concurrent creates cannot both slip past the
// one-open-order-per-machine invariant.
func (s *Service) Create(ctx context.Context, p CreateParams) (*model.WorkOrder, error) {
	release, err := s.locks.Acquire(ctx, fmt.Sprintf("machine:%d", p.MachineID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock machine %d: %w", p.MachineID, err)
	}
	defer release()

	m, err := s.store.GetMachine(ctx, p.MachineID)
	if err != nil {
		return nil, err
	}

	active, err := s.store.ActiveWorkOrders(ctx, p.MachineID)
	if err != nil {
		return nil, err
	}
	if len(active) > 0 {
		numbers := make([]string, len(active))
		for i, open := range active {
			numbers[i] = open.WONumber
		}
		return nil, fmt.Errorf("%w for machine ID %d: %s. Complete or cancel the existing work orders before creating a new one",
			ErrConflictActiveOrder, p.MachineID, strings.Join(numbers, ", "))
	}

	status := p.Status
	if status == "" {
		status = model.WorkOrderStatusDraft
	}

	year := time.Now().Year()
	latest, err := s.store.LatestWONumber(ctx, year)
	if err != nil {
		return nil, err
	}

	wo := &model.WorkOrder{
		WONumber:      parse.FormatWONumber(year, parse.NextSequence(latest)),
		MachineID:     p.MachineID,
		Status:        status,
		Priority:      p.Priority,
		Source:        p.Source,
		AIDecisionID:  p.AIDecisionID,
		ScheduledDate: p.ScheduledDate,
		Notes:         p.Notes,
	}
	if err := s.store.CreateWorkOrder(ctx, wo); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"wo_number":  wo.WONumber,
		"machine_id": m.MachineID,
		"source":     wo.Source,
	}).Info("work order created")

	s.dispatch(notification.Event{
		Kind:      notification.EventWorkOrderCreated,
		MachineID: m.ID,
		Machine:   m.Name,
		WONumber:  wo.WONumber,
	})
	return wo, nil
}

// Approve moves a Draft or Pending_Approval order to Approved, stamps the
// approver, and emails the supplier that work may start. The email outcome
// only toggles the notification flags; a failed send never rolls back the
// approval.
func (s *Service) Approve(ctx context.Context, id uint, approvedBy string) (*model.WorkOrder, error) {
	approvedBy = strings.TrimSpace(approvedBy)
	if approvedBy == "" {
		return nil, ErrApproverRequired
	}

	wo, err := s.store.GetWorkOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if wo.Status != model.WorkOrderStatusDraft && wo.Status != model.WorkOrderStatusPendingApproval {
		return nil, fmt.Errorf("work order %s cannot be approved from status %s: %w", wo.WONumber, wo.Status, ErrInvalidState)
	}

	now := time.Now()
	wo.Status = model.WorkOrderStatusApproved
	wo.ApprovedAt = &now
	wo.ApprovedBy = approvedBy
	if err := s.store.SaveWorkOrder(ctx, wo); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"wo_number":   wo.WONumber,
		"approved_by": approvedBy,
	}).Info("work order approved")

	if s.mail != nil && s.mail.WorkOrderApproved(ctx, &wo.Machine, wo) {
		if err := s.markNotified(ctx, wo); err != nil {
			return nil, err
		}
	}
	s.dispatch(notification.Event{
		Kind:      notification.EventWorkOrderApproved,
		MachineID: wo.MachineID,
		Machine:   wo.Machine.Name,
		WONumber:  wo.WONumber,
	})
	return wo, nil
}

// Complete closes an Approved order and rolls the machine's PM schedule
// forward in the same transaction: lastPmDate moves to the completion date,
// nextPmDate advances from the scheduled date (or the completion date when
// none was set) by the machine's cadence, and a Preventive history row is
// appended. The machine lock serializes the rollover against concurrent
// decision requests reading the schedule.
func (s *Service) Complete(ctx context.Context, id uint, completedDate time.Time) (*model.WorkOrder, error) {
	wo, err := s.store.GetWorkOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	release, err := s.locks.Acquire(ctx, fmt.Sprintf("machine:%d", wo.MachineID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock machine %d: %w", wo.MachineID, err)
	}
	defer release()

	// Re-read under the lock; the status may have moved since the first load.
	wo, err = s.store.GetWorkOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if wo.Status != model.WorkOrderStatusApproved {
		return nil, fmt.Errorf("only approved work orders can be completed (current status %s): %w", wo.Status, ErrInvalidState)
	}
	if pm.DaysUntil(completedDate, time.Now()) > 0 {
		return nil, fmt.Errorf("completion date cannot be in the future: %w", ErrInvalidCompletionDate)
	}
	if wo.ScheduledDate != nil && completedDate.Before(*wo.ScheduledDate) {
		return nil, fmt.Errorf("completion date cannot be before the scheduled date (%s): %w",
			wo.ScheduledDate.Format("2006-01-02"), ErrInvalidCompletionDate)
	}

	m, err := s.store.GetMachine(ctx, wo.MachineID)
	if err != nil {
		return nil, err
	}

	wo.Status = model.WorkOrderStatusCompleted
	wo.CompletedDate = &completedDate

	base := completedDate
	if wo.ScheduledDate != nil {
		base = *wo.ScheduledDate
	}
	m.LastPMDate = &completedDate
	m.NextPMDate = pm.NextDate(base, m.PMFrequency)

	rec := &model.MaintenanceRecord{
		MachineID:   m.ID,
		Date:        completedDate,
		Type:        "Preventive",
		Notes:       strings.TrimSpace(fmt.Sprintf("Completed work order %s. %s", wo.WONumber, wo.Notes)),
		PerformedBy: m.AssignedSupplier,
		WorkOrderID: &wo.ID,
	}
	if err := s.store.CompleteWorkOrder(ctx, wo, m, rec); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"wo_number":    wo.WONumber,
		"machine_id":   m.MachineID,
		"last_pm_date": completedDate.Format("2006-01-02"),
		"next_pm_date": m.NextPMDate.Format("2006-01-02"),
		"frequency":    m.PMFrequency,
	}).Info("work order completed, PM schedule rolled over")

	if s.mail != nil && s.mail.WorkOrderCompleted(ctx, m, wo) {
		if err := s.markNotified(ctx, wo); err != nil {
			return nil, err
		}
	}
	s.dispatch(notification.Event{
		Kind:      notification.EventWorkOrderCompleted,
		MachineID: m.ID,
		Machine:   m.Name,
		WONumber:  wo.WONumber,
	})
	return wo, nil
}

// Cancel retires an order. Completed orders cannot be cancelled; cancelling
// an already-Cancelled order is a no-op.
func (s *Service) Cancel(ctx context.Context, id uint) (*model.WorkOrder, error) {
	wo, err := s.store.GetWorkOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if wo.Status == model.WorkOrderStatusCompleted {
		return nil, fmt.Errorf("completed work orders cannot be cancelled: %w", ErrInvalidState)
	}
	if wo.Status == model.WorkOrderStatusCancelled {
		return wo, nil
	}

	wo.Status = model.WorkOrderStatusCancelled
	if err := s.store.SaveWorkOrder(ctx, wo); err != nil {
		return nil, err
	}
	s.logger.WithField("wo_number", wo.WONumber).Info("work order cancelled")
	return wo, nil
}

// UpdateParams is a partial patch; nil fields are left unchanged.
type UpdateParams struct {
	Status        *model.WorkOrderStatus
	Priority      *model.Priority
	ScheduledDate *time.Time
	CompletedDate *time.Time
	Notes         *string
	ApprovedBy    *string
}

// Update applies a plain field patch with no guard beyond the order
// existing. Lifecycle changes should go through Approve/Complete/Cancel;
// this exists for corrections.
func (s *Service) Update(ctx context.Context, id uint, p UpdateParams) (*model.WorkOrder, error) {
	wo, err := s.store.GetWorkOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != nil {
		wo.Status = *p.Status
	}
	if p.Priority != nil {
		wo.Priority = *p.Priority
	}
	if p.ScheduledDate != nil {
		wo.ScheduledDate = p.ScheduledDate
	}
	if p.CompletedDate != nil {
		wo.CompletedDate = p.CompletedDate
	}
	if p.Notes != nil {
		wo.Notes = *p.Notes
	}
	if p.ApprovedBy != nil {
		wo.ApprovedBy = *p.ApprovedBy
	}
	if err := s.store.SaveWorkOrder(ctx, wo); err != nil {
		return nil, err
	}
	return wo, nil
}

// MarkNotificationSent flags the order as notified. Used by callers that
// send supplier email outside a state transition.
func (s *Service) MarkNotificationSent(ctx context.Context, id uint) (*model.WorkOrder, error) {
	wo, err := s.store.GetWorkOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.markNotified(ctx, wo); err != nil {
		return nil, err
	}
	return wo, nil
}

func (s *Service) markNotified(ctx context.Context, wo *model.WorkOrder) error {
	now := time.Now()
	wo.NotificationSent = true
	wo.NotificationSentAt = &now
	return s.store.SaveWorkOrder(ctx, wo)
}

func (s *Service) dispatch(ev notification.Event) {
	if s.push != nil {
		s.push.Dispatch(ev)
	}
}
