package workflow

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	appdb "pm-workorder-backend/internal/db"
	"pm-workorder-backend/internal/decision"
	"pm-workorder-backend/internal/lock"
	"pm-workorder-backend/internal/mailer"
	"pm-workorder-backend/internal/model"
	"pm-workorder-backend/internal/oracle"
	"pm-workorder-backend/internal/store"
	"pm-workorder-backend/internal/workorder"
)

type fakeOracle struct {
	mu           sync.Mutex
	decision     oracle.Decision
	decideErrFor map[string]error
	extraction   *oracle.DateExtraction
	extractErr   error
	decideCalls  int
	extractCalls int
}

func (f *fakeOracle) Decide(_ context.Context, req oracle.DecisionRequest) (*oracle.Decision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decideCalls++
	if err := f.decideErrFor[req.Machine.MachineID]; err != nil {
		return nil, err
	}
	d := f.decision
	return &d, nil
}

func (f *fakeOracle) ExtractDate(_ context.Context, _ string) (*oracle.DateExtraction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extractCalls++
	if f.extractErr != nil {
		return nil, f.extractErr
	}
	return f.extraction, nil
}

func (f *fakeOracle) ProviderName() string { return "OpenAI" }
func (f *fakeOracle) ModelName() string    { return "gpt-4" }

type fakeSender struct{}

func (fakeSender) Send(_ context.Context, _, _, _ string) error { return nil }

type testEnv struct {
	store    store.Store
	oracle   *fakeOracle
	services *workorder.Service
	engine   *decision.Engine
	logger   *logrus.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, appdb.Migrate(db))

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	oc := &fakeOracle{
		decision: oracle.Decision{
			Action:      model.ActionCreateWorkOrder,
			Priority:    model.PriorityHigh,
			Confidence:  0.9,
			Explanation: "PM is overdue and no open work order covers it",
		},
		decideErrFor: map[string]error{},
	}

	st := store.NewGormStore(db)
	locks := lock.NewKeyedMutex()
	mail := mailer.NewDispatcher(fakeSender{}, logger)
	wos := workorder.NewService(st, locks, mail, nil, logger)
	eng := decision.NewEngine(st, oc, wos, mail, nil, locks, 0.70, logger)
	return &testEnv{store: st, oracle: oc, services: wos, engine: eng, logger: logger}
}

func seedMachine(t *testing.T, st store.Store, code string, nextPM time.Time) *model.Machine {
	t.Helper()
	m := &model.Machine{
		MachineID:        code,
		Name:             "Airblade " + code,
		Location:         "Building A - Floor 2",
		PMFrequency:      model.FrequencyMonthly,
		NextPMDate:       nextPM,
		AssignedSupplier: "Acme Service",
		SupplierEmail:    "service@acme.example",
		Status:           model.MachineStatusActive,
	}
	require.NoError(t, st.CreateMachine(context.Background(), m))
	return m
}

func seedWorkOrder(t *testing.T, st store.Store, machineID uint, number string, status model.WorkOrderStatus) *model.WorkOrder {
	t.Helper()
	wo := &model.WorkOrder{
		WONumber:  number,
		MachineID: machineID,
		Status:    status,
		Priority:  model.PriorityMedium,
		Source:    model.SourceManual,
	}
	require.NoError(t, st.CreateWorkOrder(context.Background(), wo))
	return wo
}

func futureDate(days int) string {
	return time.Now().AddDate(0, 0, days).Format("2006-01-02")
}

func TestEmailPipeline_Success(t *testing.T) {
	env := newTestEnv(t)
	m := seedMachine(t, env.store, "DY-001", time.Now().AddDate(0, 0, 5))
	wo := seedWorkOrder(t, env.store, m.ID, "WO-2024-001", model.WorkOrderStatusApproved)

	selected := futureDate(14)
	env.oracle.extraction = &oracle.DateExtraction{
		SelectedDate: &selected,
		Confidence:   0.95,
		Explanation:  "supplier proposed a single concrete date",
	}

	p := NewEmailPipeline(env.store, env.oracle, env.services, env.logger)
	result := p.Process(context.Background(), "RE: Work Order wo-2024-001 update", "We can come on "+selected)

	assert.Equal(t, "Success", result.Status)
	assert.Equal(t, "WO-2024-001", result.WONumber)
	assert.Equal(t, wo.ID, result.WorkOrderID)
	assert.Equal(t, selected, result.ExtractedDate)
	require.NotNil(t, result.Confidence)
	assert.Equal(t, 0.95, *result.Confidence)
	assert.True(t, result.Updated)
	assert.Equal(t, fmt.Sprintf("Work order WO-2024-001 scheduled date updated to %s", selected), result.Message)

	reloaded, err := env.store.GetWorkOrder(context.Background(), wo.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.ScheduledDate)
	assert.Equal(t, selected, reloaded.ScheduledDate.Format("2006-01-02"))
	assert.Equal(t, 1, env.oracle.extractCalls)
}

func TestEmailPipeline_NoNumberInSubject(t *testing.T) {
	env := newTestEnv(t)

	p := NewEmailPipeline(env.store, env.oracle, env.services, env.logger)
	result := p.Process(context.Background(), "Maintenance question", "hello")

	assert.Equal(t, "Error", result.Status)
	assert.Equal(t, "No work order number found in email subject", result.Message)
	assert.False(t, result.Updated)
	assert.Zero(t, env.oracle.extractCalls)
}

func TestEmailPipeline_WorkOrderNotFound(t *testing.T) {
	env := newTestEnv(t)

	p := NewEmailPipeline(env.store, env.oracle, env.services, env.logger)
	result := p.Process(context.Background(), "RE: WO-2024-0999", "body text here")

	assert.Equal(t, "Error", result.Status)
	assert.Equal(t, "WO-2024-0999", result.WONumber)
	assert.Equal(t, "Work order WO-2024-0999 not found", result.Message)
	assert.Zero(t, env.oracle.extractCalls)
}

func TestEmailPipeline_RejectsUnapproved(t *testing.T) {
	env := newTestEnv(t)
	m := seedMachine(t, env.store, "DY-001", time.Now().AddDate(0, 0, 5))
	seedWorkOrder(t, env.store, m.ID, "WO-2024-002", model.WorkOrderStatusDraft)

	p := NewEmailPipeline(env.store, env.oracle, env.services, env.logger)
	result := p.Process(context.Background(), "RE: WO-2024-002", "We can come next week")

	assert.Equal(t, "Error", result.Status)
	assert.Equal(t, "Work order status is 'Draft', must be 'Approved'", result.Message)
	// The oracle must not be consulted for an order that cannot be scheduled.
	assert.Zero(t, env.oracle.extractCalls)
}

func TestEmailPipeline_LowConfidence(t *testing.T) {
	env := newTestEnv(t)
	m := seedMachine(t, env.store, "DY-001", time.Now().AddDate(0, 0, 5))
	seedWorkOrder(t, env.store, m.ID, "WO-2024-003", model.WorkOrderStatusApproved)

	selected := futureDate(7)
	env.oracle.extraction = &oracle.DateExtraction{
		SelectedDate: &selected,
		Confidence:   0.4,
		Explanation:  "several candidate dates mentioned",
	}

	p := NewEmailPipeline(env.store, env.oracle, env.services, env.logger)
	result := p.Process(context.Background(), "RE: WO-2024-003", "Monday or maybe Thursday")

	assert.Equal(t, "Error", result.Status)
	assert.Contains(t, result.Message, "AI confidence too low (0.40)")
	assert.Contains(t, result.Message, "several candidate dates mentioned")
	assert.False(t, result.Updated)
}

func TestEmailPipeline_NoDateExtracted(t *testing.T) {
	env := newTestEnv(t)
	m := seedMachine(t, env.store, "DY-001", time.Now().AddDate(0, 0, 5))
	seedWorkOrder(t, env.store, m.ID, "WO-2024-004", model.WorkOrderStatusApproved)

	env.oracle.extraction = &oracle.DateExtraction{
		SelectedDate: nil,
		Confidence:   0.9,
		Explanation:  "no date in the email",
	}

	p := NewEmailPipeline(env.store, env.oracle, env.services, env.logger)
	result := p.Process(context.Background(), "RE: WO-2024-004", "We will get back to you")

	assert.Equal(t, "Error", result.Status)
	assert.Equal(t, "No date extracted from email", result.Message)
}

func TestEmailPipeline_PastDate(t *testing.T) {
	env := newTestEnv(t)
	m := seedMachine(t, env.store, "DY-001", time.Now().AddDate(0, 0, 5))
	seedWorkOrder(t, env.store, m.ID, "WO-2024-005", model.WorkOrderStatusApproved)

	past := time.Now().AddDate(0, 0, -3).Format("2006-01-02")
	env.oracle.extraction = &oracle.DateExtraction{
		SelectedDate: &past,
		Confidence:   0.9,
		Explanation:  "clear date in the email",
	}

	p := NewEmailPipeline(env.store, env.oracle, env.services, env.logger)
	result := p.Process(context.Background(), "RE: WO-2024-005", "We came on "+past)

	assert.Equal(t, "Error", result.Status)
	assert.Equal(t, fmt.Sprintf("Date %s is in the past", past), result.Message)

	reloaded, err := env.store.GetWorkOrderByNumber(context.Background(), "WO-2024-005")
	require.NoError(t, err)
	assert.Nil(t, reloaded.ScheduledDate)
}

func TestEmailPipeline_OracleFailure(t *testing.T) {
	env := newTestEnv(t)
	m := seedMachine(t, env.store, "DY-001", time.Now().AddDate(0, 0, 5))
	seedWorkOrder(t, env.store, m.ID, "WO-2024-006", model.WorkOrderStatusApproved)

	env.oracle.extractErr = fmt.Errorf("provider timeout")

	p := NewEmailPipeline(env.store, env.oracle, env.services, env.logger)
	result := p.Process(context.Background(), "RE: WO-2024-006", "We can come next Tuesday")

	assert.Equal(t, "Error", result.Status)
	assert.Contains(t, result.Message, "AI confidence too low (0.00)")
	assert.Contains(t, result.Message, "Error during extraction: provider timeout")
}
