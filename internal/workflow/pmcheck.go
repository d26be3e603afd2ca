package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"pm-workorder-backend/config"
	"pm-workorder-backend/internal/decision"
	"pm-workorder-backend/internal/model"
	"pm-workorder-backend/internal/store"
)

// CheckResult summarizes one PM-check sweep.
type CheckResult struct {
	ExecutionID       string               `json:"execution_id"`
	Status            model.WorkflowStatus `json:"status"`
	MachinesProcessed int                  `json:"machines_processed"`
	WorkOrdersCreated int                  `json:"work_orders_created"`
	NotificationsSent int                  `json:"notifications_sent"`
	HeldForReview     int                  `json:"held_for_review"`
	Errors            []string             `json:"errors,omitempty"`
	LogID             uint                 `json:"log_id"`
}

// Runner sweeps machines whose next PM falls inside the due-soon window,
// requests a decision for each, and auto-executes the confident ones. Each
// run is recorded as a WorkflowLog row under a generated execution id.
type Runner struct {
	cfg    *config.Config
	store  store.Store
	engine *decision.Engine
	logger *logrus.Logger
}

func NewRunner(cfg *config.Config, st store.Store, eng *decision.Engine, logger *logrus.Logger) *Runner {
	return &Runner{cfg: cfg, store: st, engine: eng, logger: logger}
}

// Run starts the periodic sweep loop. Deployments driven by an external
// automation platform leave auto_check_enabled off and trigger sweeps over
// the API instead.
func (r *Runner) Run(ctx context.Context) {
	if !r.cfg.Workflow.AutoCheckEnabled {
		r.logger.Info("automatic PM check is disabled, not starting")
		return
	}
	interval := time.Duration(r.cfg.Workflow.CheckIntervalHours) * time.Hour
	r.logger.WithField("interval", interval).Info("starting automatic PM check loop")

	r.CheckOnce(ctx)

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("PM check loop shutting down")
			return
		case <-timer.C:
			r.CheckOnce(ctx)
			timer.Reset(interval)
		}
	}
}

// CheckOnce performs a single sweep. Per-machine failures are collected into
// the result and the log row; they never abort the run.
func (r *Runner) CheckOnce(ctx context.Context) *CheckResult {
	started := time.Now()
	result := &CheckResult{
		ExecutionID: uuid.NewString(),
		Status:      model.WorkflowStatusSuccess,
	}

	cutoff := started.AddDate(0, 0, r.cfg.PM.DueSoonDays)
	machines, err := r.store.MachinesDueBy(ctx, cutoff)
	if err != nil {
		result.Status = model.WorkflowStatusFailed
		result.Errors = append(result.Errors, fmt.Sprintf("listing due machines: %v", err))
		r.record(ctx, result, started)
		return result
	}
	result.MachinesProcessed = len(machines)

	r.logger.WithFields(logrus.Fields{
		"execution_id": result.ExecutionID,
		"machines":     len(machines),
		"window_days":  r.cfg.PM.DueSoonDays,
	}).Info("PM check sweep started")

	workers := r.cfg.WorkerPool.Size
	if workers < 1 {
		workers = 1
	}

	// One worker owns a machine's decide-then-execute sequence end to end;
	// the mutex only guards the shared counters.
	jobs := make(chan model.Machine)
	var wg sync.WaitGroup
	var mu sync.Mutex
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range jobs {
				created, notified, held, err := r.processMachine(ctx, &m)
				mu.Lock()
				if created {
					result.WorkOrdersCreated++
				}
				if notified {
					result.NotificationsSent++
				}
				if held {
					result.HeldForReview++
				}
				if err != nil {
					result.Errors = append(result.Errors, fmt.Sprintf("machine %s: %v", m.MachineID, err))
				}
				mu.Unlock()
			}
		}()
	}
	for _, m := range machines {
		jobs <- m
	}
	close(jobs)
	wg.Wait()

	switch {
	case len(result.Errors) == 0:
	case len(result.Errors) >= len(machines):
		result.Status = model.WorkflowStatusFailed
	default:
		result.Status = model.WorkflowStatusPartial
	}

	r.record(ctx, result, started)

	r.logger.WithFields(logrus.Fields{
		"execution_id":        result.ExecutionID,
		"status":              result.Status,
		"work_orders_created": result.WorkOrdersCreated,
		"notifications_sent":  result.NotificationsSent,
		"errors":              len(result.Errors),
	}).Info("PM check sweep finished")
	return result
}

func (r *Runner) processMachine(ctx context.Context, m *model.Machine) (created, notified, held bool, err error) {
	verdict, err := r.engine.RequestDecision(ctx, m.ID)
	if err != nil {
		return false, false, false, err
	}
	if !verdict.CanAutoExecute {
		r.logger.WithFields(logrus.Fields{
			"machine_id":  m.MachineID,
			"decision_id": verdict.Decision.ID,
			"confidence":  verdict.Decision.Confidence,
		}).Info("decision held for manual review")
		return false, false, true, nil
	}

	outcome, err := r.engine.ExecuteDecision(ctx, verdict.Decision.ID, false)
	if err != nil {
		return false, false, false, err
	}
	switch outcome.Status {
	case decision.StatusWorkOrderCreated:
		return true, false, false, nil
	case decision.StatusNotificationSent:
		return false, true, false, nil
	case decision.StatusNotificationFailed:
		return false, false, false, fmt.Errorf("notification to %s was not delivered", outcome.Recipient)
	case decision.StatusError:
		return false, false, false, fmt.Errorf("execution failed: %s", outcome.Message)
	default:
		return false, false, false, nil
	}
}

func (r *Runner) record(ctx context.Context, result *CheckResult, started time.Time) {
	elapsed := int(time.Since(started).Milliseconds())
	completed := time.Now()
	wl := &model.WorkflowLog{
		WorkflowName:      "pm-check",
		ExecutionID:       result.ExecutionID,
		Status:            result.Status,
		MachinesProcessed: result.MachinesProcessed,
		WorkOrdersCreated: result.WorkOrdersCreated,
		NotificationsSent: result.NotificationsSent,
		Errors:            strings.Join(result.Errors, "\n"),
		ExecutionTimeMS:   &elapsed,
		StartedAt:         started,
		CompletedAt:       &completed,
	}
	if err := r.store.CreateWorkflowLog(ctx, wl); err != nil {
		config.LogError(r.logger, "workflow", "record", err, logrus.Fields{"execution_id": result.ExecutionID})
		return
	}
	result.LogID = wl.ID
}
