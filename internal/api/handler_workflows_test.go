package api

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailDateExtraction(t *testing.T) {
	ts := newTestServer(t)
	m := seedMachine(t, ts.store, "DY-001", time.Now().AddDate(0, 0, -5))
	seedWorkOrder(t, ts.store, m.ID, "WO-2026-0001", "Approved")

	w := ts.do(t, http.MethodPost, "/api/v1/workflows/email-date-extraction", map[string]any{
		"email_subject": "RE: Work Order WO-2026-0001 scheduling",
		"email_body":    "We can attend to the unit in two weeks. Regards, Acme.",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	result := decodeJSON[map[string]any](t, w)
	assert.Equal(t, "Success", result["status"])
	assert.Equal(t, "WO-2026-0001", result["wo_number"])
	assert.Equal(t, true, result["updated"])
	assert.NotEmpty(t, result["extracted_date"])
}

func TestEmailDateExtraction_PipelineRejection(t *testing.T) {
	ts := newTestServer(t)

	// A subject without a work order number is still a 200; the result says
	// what went wrong.
	w := ts.do(t, http.MethodPost, "/api/v1/workflows/email-date-extraction", map[string]any{
		"email_subject": "Maintenance schedule question",
		"email_body":    "Hello, when should we come by for the service?",
	})
	require.Equal(t, http.StatusOK, w.Code)

	result := decodeJSON[map[string]any](t, w)
	assert.Equal(t, "Error", result["status"])
	assert.Equal(t, "No work order number found in email subject", result["message"])
	assert.Equal(t, false, result["updated"])
}

func TestEmailDateExtraction_Validation(t *testing.T) {
	ts := newTestServer(t)

	// Body shorter than the minimum is a request error, not a pipeline result.
	w := ts.do(t, http.MethodPost, "/api/v1/workflows/email-date-extraction", map[string]any{
		"email_subject": "RE: WO-2026-0001",
		"email_body":    "ok",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/v1/workflows/email-date-extraction", map[string]any{
		"email_body": "We can attend to the unit in two weeks.",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTriggerPMCheck(t *testing.T) {
	ts := newTestServer(t)
	seedMachine(t, ts.store, "DY-001", time.Now().AddDate(0, 0, -5))
	seedMachine(t, ts.store, "DY-002", time.Now().AddDate(0, 0, 200))

	w := ts.do(t, http.MethodPost, "/api/v1/workflows/pm-check", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	result := decodeJSON[map[string]any](t, w)
	assert.Equal(t, "Success", result["status"])
	assert.EqualValues(t, 1, result["machines_processed"])
	assert.EqualValues(t, 1, result["work_orders_created"])
	assert.NotEmpty(t, result["execution_id"])

	// The sweep left an audit row behind.
	logID := int(result["log_id"].(float64))
	w = ts.do(t, http.MethodGet, fmt.Sprintf("/api/v1/workflow-logs/%d", logID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	wl := decodeJSON[map[string]any](t, w)
	assert.Equal(t, "pm-check", wl["workflow_name"])
	assert.Equal(t, result["execution_id"], wl["execution_id"])
}

func TestWorkflowLogUpsert(t *testing.T) {
	ts := newTestServer(t)

	started := time.Now().Add(-2 * time.Minute).UTC().Format(time.RFC3339)
	w := ts.do(t, http.MethodPost, "/api/v1/workflow-logs", map[string]any{
		"workflow_name": "pm-check",
		"execution_id":  "n8n-4711",
		"status":        "Running",
		"started_at":    started,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decodeJSON[map[string]any](t, w)
	logID := int(first["id"].(float64))

	// The completion report targets the same execution id and lands on the
	// same row.
	w = ts.do(t, http.MethodPost, "/api/v1/workflow-logs", map[string]any{
		"workflow_name":      "pm-check",
		"execution_id":       "n8n-4711",
		"status":             "Success",
		"machines_processed": 12,
		"completed_at":       time.Now().UTC().Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, w.Code)
	second := decodeJSON[map[string]any](t, w)
	assert.EqualValues(t, logID, second["id"])
	assert.Equal(t, "Success", second["status"])
	assert.EqualValues(t, 12, second["machines_processed"])

	w = ts.do(t, http.MethodGet, "/api/v1/workflow-logs/execution/n8n-4711", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Success", decodeJSON[map[string]any](t, w)["status"])
}

func TestWorkflowLogUpdateAndDelete(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/v1/workflow-logs", map[string]any{
		"workflow_name": "email-date-extraction",
		"status":        "Running",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	logID := int(decodeJSON[map[string]any](t, w)["id"].(float64))

	w = ts.do(t, http.MethodPut, fmt.Sprintf("/api/v1/workflow-logs/%d", logID), map[string]any{
		"status": "Failed",
		"errors": "provider timeout",
	})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decodeJSON[map[string]any](t, w)
	assert.Equal(t, "Failed", updated["status"])
	assert.Equal(t, "provider timeout", updated["errors"])

	w = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/workflow-logs/%d", logID), nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, http.MethodGet, fmt.Sprintf("/api/v1/workflow-logs/%d", logID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWorkflowLogList_Filters(t *testing.T) {
	ts := newTestServer(t)

	for i, name := range []string{"pm-check", "pm-check", "email-date-extraction"} {
		status := "Success"
		if i == 1 {
			status = "Failed"
		}
		w := ts.do(t, http.MethodPost, "/api/v1/workflow-logs", map[string]any{
			"workflow_name": name,
			"status":        status,
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := ts.do(t, http.MethodGet, "/api/v1/workflow-logs?workflow_name=pm-check", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeJSON[[]map[string]any](t, w), 2)

	w = ts.do(t, http.MethodGet, "/api/v1/workflow-logs?status=Failed", nil)
	require.Equal(t, http.StatusOK, w.Code)
	failed := decodeJSON[[]map[string]any](t, w)
	require.Len(t, failed, 1)
	assert.Equal(t, "pm-check", failed[0]["workflow_name"])

	w = ts.do(t, http.MethodGet, "/api/v1/workflow-logs?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeJSON[[]map[string]any](t, w), 1)
}

func TestWorkflowLogUpsert_Validation(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/v1/workflow-logs", map[string]any{
		"execution_id": "n8n-1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/v1/workflow-logs", map[string]any{
		"workflow_name": "pm-check",
		"status":        "Exploded",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
