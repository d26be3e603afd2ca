package api

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pm-workorder-backend/internal/model"
	"pm-workorder-backend/internal/oracle"
)

type decisionJSON struct {
	ID             uint    `json:"id"`
	MachineID      uint    `json:"machine_id"`
	Decision       string  `json:"decision"`
	Confidence     float64 `json:"confidence"`
	Explanation    string  `json:"explanation"`
	AutoExecuted   bool    `json:"auto_executed"`
	RequiresReview bool    `json:"requires_review"`
}

type verdictJSON struct {
	AIDecision     decisionJSON `json:"ai_decision"`
	CanAutoExecute bool         `json:"can_auto_execute"`
	RequiresReview bool         `json:"requires_review"`
	Threshold      float64      `json:"confidence_threshold"`
}

func TestRequestDecision(t *testing.T) {
	ts := newTestServer(t)
	m := seedMachine(t, ts.store, "DY-001", time.Now().AddDate(0, 0, -5))

	w := ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/ai/decision/%d", m.ID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	verdict := decodeJSON[verdictJSON](t, w)
	assert.NotZero(t, verdict.AIDecision.ID)
	assert.Equal(t, "CREATE_WORK_ORDER", verdict.AIDecision.Decision)
	assert.InDelta(t, 0.9, verdict.AIDecision.Confidence, 0.001)
	assert.True(t, verdict.CanAutoExecute)
	assert.False(t, verdict.RequiresReview)
	assert.InDelta(t, 0.70, verdict.Threshold, 0.001)

	// Requesting a decision never creates a work order by itself.
	orders := decodeJSON[[]workOrderJSON](t, ts.do(t, http.MethodGet, "/api/v1/work-orders", nil))
	assert.Empty(t, orders)
}

func TestRequestDecision_MachineMissing(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/v1/ai/decision/9999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequestDecision_OracleFailure(t *testing.T) {
	ts := newTestServer(t)
	m := seedMachine(t, ts.store, "DY-001", time.Now().AddDate(0, 0, -5))
	ts.oracle.decideErr = fmt.Errorf("%w: provider returned malformed json", oracle.ErrBadResponse)

	w := ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/ai/decision/%d", m.ID), nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestExecuteDecision_CreatesWorkOrder(t *testing.T) {
	ts := newTestServer(t)
	m := seedMachine(t, ts.store, "DY-001", time.Now().AddDate(0, 0, -5))

	verdict := decodeJSON[verdictJSON](t, ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/ai/decision/%d", m.ID), nil))

	w := ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/ai/decisions/%d/execute", verdict.AIDecision.ID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	result := decodeJSON[map[string]any](t, w)
	assert.Equal(t, true, result["success"])
	assert.Equal(t, "work_order_created", result["status"])
	assert.NotEmpty(t, result["wo_number"])

	orders := decodeJSON[[]workOrderJSON](t, ts.do(t, http.MethodGet, "/api/v1/work-orders", nil))
	require.Len(t, orders, 1)
	assert.Equal(t, "Pending_Approval", orders[0].Status)
	assert.Equal(t, "AI", orders[0].Source)
}

func TestExecuteDecision_ReviewRequiresForce(t *testing.T) {
	ts := newTestServer(t)
	m := seedMachine(t, ts.store, "DY-001", time.Now().AddDate(0, 0, -5))
	ts.oracle.decision.Confidence = 0.55

	verdict := decodeJSON[verdictJSON](t, ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/ai/decision/%d", m.ID), nil))
	require.True(t, verdict.RequiresReview)
	require.False(t, verdict.CanAutoExecute)

	w := ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/ai/decisions/%d/execute", verdict.AIDecision.ID), nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, detailOf(t, w), "force=true")

	w = ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/ai/decisions/%d/execute?force=true", verdict.AIDecision.ID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decodeJSON[map[string]any](t, w)
	assert.Equal(t, "work_order_created", result["status"])
}

func TestExecuteDecision_SecondRunIsNoOp(t *testing.T) {
	ts := newTestServer(t)
	m := seedMachine(t, ts.store, "DY-001", time.Now().AddDate(0, 0, -5))

	verdict := decodeJSON[verdictJSON](t, ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/ai/decision/%d", m.ID), nil))
	path := fmt.Sprintf("/api/v1/ai/decisions/%d/execute", verdict.AIDecision.ID)

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, path, nil).Code)

	w := ts.do(t, http.MethodPost, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	result := decodeJSON[map[string]any](t, w)
	assert.Equal(t, "already_executed", result["status"])

	orders := decodeJSON[[]workOrderJSON](t, ts.do(t, http.MethodGet, "/api/v1/work-orders", nil))
	assert.Len(t, orders, 1)
}

func TestRecentDecisions(t *testing.T) {
	ts := newTestServer(t)
	m1 := seedMachine(t, ts.store, "DY-001", time.Now().AddDate(0, 0, -5))
	m2 := seedMachine(t, ts.store, "DY-002", time.Now().AddDate(0, 0, -2))

	ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/ai/decision/%d", m1.ID), nil)
	ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/ai/decision/%d", m2.ID), nil)

	w := ts.do(t, http.MethodGet, "/api/v1/ai/decisions/recent", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeJSON[[]decisionJSON](t, w), 2)

	w = ts.do(t, http.MethodGet, fmt.Sprintf("/api/v1/ai/decisions/recent?machine_id=%d", m2.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	forMachine := decodeJSON[[]decisionJSON](t, w)
	require.Len(t, forMachine, 1)
	assert.Equal(t, m2.ID, forMachine[0].MachineID)

	w = ts.do(t, http.MethodGet, "/api/v1/ai/decisions/recent?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeJSON[[]decisionJSON](t, w), 1)
}

func TestGetDecisionByID(t *testing.T) {
	ts := newTestServer(t)
	m := seedMachine(t, ts.store, "DY-001", time.Now().AddDate(0, 0, -5))

	verdict := decodeJSON[verdictJSON](t, ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/ai/decision/%d", m.ID), nil))

	w := ts.do(t, http.MethodGet, fmt.Sprintf("/api/v1/ai/decisions/%d", verdict.AIDecision.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeJSON[decisionJSON](t, w)
	assert.Equal(t, verdict.AIDecision.ID, got.ID)
	assert.Equal(t, m.ID, got.MachineID)

	w = ts.do(t, http.MethodGet, "/api/v1/ai/decisions/9999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDecisionStatistics(t *testing.T) {
	ts := newTestServer(t)
	m1 := seedMachine(t, ts.store, "DY-001", time.Now().AddDate(0, 0, -5))
	m2 := seedMachine(t, ts.store, "DY-002", time.Now().AddDate(0, 0, -2))

	ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/ai/decision/%d", m1.ID), nil)
	ts.oracle.decision = oracle.Decision{
		Action:      model.ActionWait,
		Priority:    model.PriorityLow,
		Confidence:  0.5,
		Explanation: "maintenance is not due yet, wait for the window",
	}
	ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/ai/decision/%d", m2.ID), nil)

	w := ts.do(t, http.MethodGet, "/api/v1/ai/statistics", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stats := decodeJSON[map[string]any](t, w)
	assert.EqualValues(t, 2, stats["total_decisions"])
	assert.InDelta(t, 0.7, stats["average_confidence"].(float64), 0.001)
	byType := stats["decisions_by_type"].(map[string]any)
	assert.EqualValues(t, 1, byType["CREATE_WORK_ORDER"])
	assert.EqualValues(t, 1, byType["WAIT"])
	assert.EqualValues(t, 1, stats["requiring_review"])
}
