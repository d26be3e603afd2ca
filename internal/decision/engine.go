package decision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"pm-workorder-backend/internal/lock"
	"pm-workorder-backend/internal/mailer"
	"pm-workorder-backend/internal/model"
	"pm-workorder-backend/internal/notification"
	"pm-workorder-backend/internal/oracle"
	"pm-workorder-backend/internal/pm"
	"pm-workorder-backend/internal/store"
	"pm-workorder-backend/internal/workorder"
)

// ErrReviewRequired is returned when a low-confidence decision is executed
// without force.
var ErrReviewRequired = errors.New("decision requires manual review")

// Outcome statuses reported by ExecuteDecision.
const (
	StatusAlreadyExecuted    = "already_executed"
	StatusWorkOrderCreated   = "work_order_created"
	StatusNotificationSent   = "notification_sent"
	StatusNotificationFailed = "notification_failed"
	StatusWait               = "wait"
	StatusError              = "error"
)

// Outcome describes what executing a decision did. Soft failures (no work
// order to notify about, email not delivered) are outcomes, not errors.
type Outcome struct {
	Status      string `json:"status"`
	DecisionID  uint   `json:"ai_decision_id"`
	Message     string `json:"message,omitempty"`
	WorkOrderID uint   `json:"work_order_id,omitempty"`
	WONumber    string `json:"wo_number,omitempty"`
	Recipient   string `json:"recipient,omitempty"`
	MachineID   string `json:"machine_id,omitempty"`
	EmailSent   *bool  `json:"email_sent,omitempty"`
}

// Verdict is a freshly persisted decision plus the governance flags the
// caller needs to decide whether to auto-execute it.
type Verdict struct {
	Decision       *model.Decision `json:"ai_decision"`
	CanAutoExecute bool            `json:"can_auto_execute"`
	RequiresReview bool            `json:"requires_review"`
	Threshold      float64         `json:"confidence_threshold"`
}

// Engine asks the oracle what to do about a machine and governs how the
// answer is executed. The oracle owns the maintenance policy; the engine only
// validates the response shape, applies the confidence threshold, and
// guarantees each decision is executed at most once.
type Engine struct {
	store      store.Store
	oracle     oracle.Client
	workOrders *workorder.Service
	mail       *mailer.Dispatcher
	push       *notification.WorkerPool
	locks      lock.Locker
	threshold  float64
	logger     *logrus.Logger
}

// NewEngine wires the orchestrator. threshold is the confidence below which
// decisions are held for manual review. A nil mail or push disables the
// corresponding notifications.
func NewEngine(st store.Store, oc oracle.Client, wos *workorder.Service, mail *mailer.Dispatcher, push *notification.WorkerPool, locks lock.Locker, threshold float64, logger *logrus.Logger) *Engine {
	return &Engine{
		store:      st,
		oracle:     oc,
		workOrders: wos,
		mail:       mail,
		push:       push,
		locks:      locks,
		threshold:  threshold,
		logger:     logger,
	}
}

// RequestDecision assembles the machine's context, asks the oracle, and
// persists the verdict as an immutable audit row with autoExecuted=false.
// The machine lock keeps the snapshot consistent with concurrent transitions.
func (e *Engine) RequestDecision(ctx context.Context, machineID uint) (*Verdict, error) {
	release, err := e.locks.Acquire(ctx, fmt.Sprintf("machine:%d", machineID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock machine %d: %w", machineID, err)
	}
	defer release()

	m, err := e.store.GetMachine(ctx, machineID)
	if err != nil {
		return nil, err
	}

	history, err := e.store.ListMaintenanceHistory(ctx, machineID, 10)
	if err != nil {
		return nil, err
	}
	open, err := e.store.ActiveWorkOrders(ctx, machineID)
	if err != nil {
		return nil, err
	}

	req := buildOracleRequest(m, pm.DaysUntil(m.NextPMDate, time.Now()), history, open)

	e.logger.WithFields(logrus.Fields{
		"machine_id": m.MachineID,
		"provider":   e.oracle.ProviderName(),
	}).Info("requesting maintenance decision")

	verdict, err := e.oracle.Decide(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("oracle decision for machine %d failed: %w", machineID, err)
	}

	snapshot := struct {
		oracle.DecisionRequest
		Timestamp string `json:"decision_timestamp"`
	}{req, time.Now().Format(time.RFC3339)}
	inputContext, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode decision context: %w", err)
	}

	requiresReview := verdict.Confidence < e.threshold
	d := &model.Decision{
		MachineID:      m.ID,
		Action:         verdict.Action,
		Priority:       verdict.Priority,
		Confidence:     verdict.Confidence,
		Explanation:    verdict.Explanation,
		InputContext:   string(inputContext),
		Provider:       e.oracle.ProviderName(),
		Model:          e.oracle.ModelName(),
		RawResponse:    verdict.Raw,
		AutoExecuted:   false,
		RequiresReview: requiresReview,
	}
	if err := e.store.CreateDecision(ctx, d); err != nil {
		return nil, err
	}

	e.logger.WithFields(logrus.Fields{
		"decision_id": d.ID,
		"machine_id":  m.MachineID,
		"decision":    d.Action,
		"confidence":  d.Confidence,
	}).Info("decision stored")

	if requiresReview {
		e.logger.WithFields(logrus.Fields{
			"decision_id": d.ID,
			"confidence":  d.Confidence,
			"threshold":   e.threshold,
		}).Warn("decision requires manual review, confidence below threshold")
		e.dispatch(notification.Event{
			Kind:      notification.EventReviewNeeded,
			MachineID: m.ID,
			Machine:   m.Name,
		})
	}

	return &Verdict{
		Decision:       d,
		CanAutoExecute: !requiresReview,
		RequiresReview: requiresReview,
		Threshold:      e.threshold,
	}, nil
}

// ExecuteDecision carries out a stored decision at most once. A decision that
// was already executed is reported as a no-op outcome, not an error; a
// low-confidence decision needs force. The decision lock serializes
// concurrent executors; the work-order service takes the machine lock inside.
func (e *Engine) ExecuteDecision(ctx context.Context, id uint, force bool) (*Outcome, error) {
	release, err := e.locks.Acquire(ctx, fmt.Sprintf("decision:%d", id))
	if err != nil {
		return nil, fmt.Errorf("failed to lock decision %d: %w", id, err)
	}
	defer release()

	d, err := e.store.GetDecision(ctx, id)
	if err != nil {
		return nil, err
	}

	if d.AutoExecuted {
		e.logger.WithField("decision_id", id).Warn("decision was already executed")
		return &Outcome{Status: StatusAlreadyExecuted, DecisionID: id}, nil
	}
	if d.RequiresReview && !force {
		return nil, fmt.Errorf("decision %d requires manual review (confidence: %.2f), use force=true to execute anyway: %w",
			id, d.Confidence, ErrReviewRequired)
	}

	var outcome *Outcome
	switch d.Action {
	case model.ActionCreateWorkOrder:
		outcome, err = e.executeCreate(ctx, d)
	case model.ActionSendNotification:
		outcome, err = e.executeNotify(ctx, d)
	case model.ActionWait:
		e.logger.WithField("decision_id", id).Info("decision is WAIT, no action required")
		outcome = &Outcome{Status: StatusWait, Message: "No action required"}
	default:
		outcome = &Outcome{Status: StatusError, Message: fmt.Sprintf("unknown decision action %q", d.Action)}
	}
	if err != nil {
		return nil, err
	}

	flipped, err := e.store.MarkDecisionExecuted(ctx, id)
	if err != nil {
		return nil, err
	}
	if !flipped {
		return &Outcome{Status: StatusAlreadyExecuted, DecisionID: id}, nil
	}

	e.logger.WithFields(logrus.Fields{
		"decision_id": id,
		"status":      outcome.Status,
	}).Info("decision executed")

	outcome.DecisionID = id
	return outcome, nil
}

func (e *Engine) executeCreate(ctx context.Context, d *model.Decision) (*Outcome, error) {
	decisionID := d.ID
	wo, err := e.workOrders.Create(ctx, workorder.CreateParams{
		MachineID:    d.MachineID,
		Priority:     d.Priority,
		Source:       model.SourceAI,
		Status:       model.WorkOrderStatusPendingApproval,
		Notes:        fmt.Sprintf("AI-generated work order. %s", d.Explanation),
		AIDecisionID: &decisionID,
	})
	if err != nil {
		return nil, err
	}
	return &Outcome{
		Status:      StatusWorkOrderCreated,
		WorkOrderID: wo.ID,
		WONumber:    wo.WONumber,
	}, nil
}

// executeNotify emails the supplier about the machine's open work order.
// Approved orders get the approval template; when only a Draft or
// Pending_Approval order exists, the created template with the decision
// rationale is sent instead. Having no order at all is an error outcome, but
// the decision still counts as executed.
func (e *Engine) executeNotify(ctx context.Context, d *model.Decision) (*Outcome, error) {
	m, err := e.store.GetMachine(ctx, d.MachineID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &Outcome{Status: StatusError, Message: "Machine not found"}, nil
		}
		return nil, err
	}

	open, err := e.store.ActiveWorkOrders(ctx, d.MachineID)
	if err != nil {
		return nil, err
	}

	var target *model.WorkOrder
	for i := range open {
		if open[i].Status == model.WorkOrderStatusApproved {
			target = &open[i]
			break
		}
	}
	if target == nil && len(open) > 0 {
		e.logger.WithField("machine_id", m.MachineID).Warn("no approved work order, notifying about a pending one")
		target = &open[0]
	}
	if target == nil {
		e.logger.WithField("machine_id", m.MachineID).Error("no work order found to notify about")
		return &Outcome{Status: StatusError, Message: "No work order found to notify about"}, nil
	}

	var sent bool
	if e.mail != nil {
		if target.Status == model.WorkOrderStatusApproved {
			sent = e.mail.WorkOrderApproved(ctx, m, target)
		} else {
			confidence := d.Confidence
			sent = e.mail.WorkOrderCreated(ctx, m, target, &mailer.AIContext{
				Explanation: d.Explanation,
				Confidence:  &confidence,
			})
		}
	}
	if sent {
		if _, err := e.workOrders.MarkNotificationSent(ctx, target.ID); err != nil {
			return nil, err
		}
	}

	e.logger.WithFields(logrus.Fields{
		"machine_id": m.MachineID,
		"wo_number":  target.WONumber,
		"recipient":  m.SupplierEmail,
		"sent":       sent,
	}).Info("supplier notification dispatched")

	status := StatusNotificationFailed
	if sent {
		status = StatusNotificationSent
	}
	return &Outcome{
		Status:    status,
		Recipient: m.SupplierEmail,
		MachineID: m.MachineID,
		WONumber:  target.WONumber,
		EmailSent: &sent,
	}, nil
}

// Recent lists the latest decisions for audit, optionally scoped to one
// machine.
func (e *Engine) Recent(ctx context.Context, limit int, machineID uint) ([]model.Decision, error) {
	return e.store.RecentDecisions(ctx, limit, machineID)
}

// Get returns one decision by id.
func (e *Engine) Get(ctx context.Context, id uint) (*model.Decision, error) {
	return e.store.GetDecision(ctx, id)
}

// Statistics aggregates the decision audit trail.
func (e *Engine) Statistics(ctx context.Context) (*store.DecisionStats, error) {
	return e.store.DecisionStatistics(ctx)
}

func (e *Engine) dispatch(ev notification.Event) {
	if e.push != nil {
		e.push.Dispatch(ev)
	}
}

func buildOracleRequest(m *model.Machine, daysUntil int, history []model.MaintenanceRecord, open []model.WorkOrder) oracle.DecisionRequest {
	mc := oracle.MachineContext{
		MachineID:        m.MachineID,
		Name:             m.Name,
		Location:         m.Location,
		PMFrequency:      string(m.PMFrequency),
		NextPMDate:       m.NextPMDate.Format("2006-01-02"),
		DaysUntilPM:      daysUntil,
		AssignedSupplier: m.AssignedSupplier,
		SupplierEmail:    m.SupplierEmail,
	}
	if m.LastPMDate != nil {
		mc.LastPMDate = m.LastPMDate.Format("2006-01-02")
	}

	entries := make([]oracle.HistoryEntry, 0, len(history))
	for _, h := range history {
		entries = append(entries, oracle.HistoryEntry{
			Date:        h.Date.Format("2006-01-02"),
			Type:        h.Type,
			Notes:       h.Notes,
			PerformedBy: h.PerformedBy,
		})
	}

	orders := make([]oracle.WorkOrderEntry, 0, len(open))
	for _, wo := range open {
		orders = append(orders, oracle.WorkOrderEntry{
			WONumber:  wo.WONumber,
			Status:    string(wo.Status),
			Priority:  string(wo.Priority),
			Source:    string(wo.Source),
			CreatedAt: wo.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	return oracle.DecisionRequest{Machine: mc, History: entries, WorkOrders: orders}
}
