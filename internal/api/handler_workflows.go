package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pm-workorder-backend/internal/model"
	"pm-workorder-backend/internal/store"
	"pm-workorder-backend/internal/workflow"
)

type emailExtractionRequest struct {
	EmailSubject string `json:"email_subject" binding:"required"`
	EmailBody    string `json:"email_body" binding:"required,min=10"`
}

// ExtractEmailDate runs a supplier reply through the date-extraction
// pipeline. Rejections are normal outcomes, so the response is 200 either
// way; the status field says what happened.
func (h *Handler) ExtractEmailDate(c *gin.Context) {
	var req emailExtractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	result := h.email.Process(c.Request.Context(), req.EmailSubject, req.EmailBody)
	c.JSON(http.StatusOK, result)
}

// TriggerPMCheck runs one fleet sweep immediately and returns its summary.
// Per-machine failures are reported inside the result, not as an HTTP error.
func (h *Handler) TriggerPMCheck(c *gin.Context) {
	result := h.runner.CheckOnce(c.Request.Context())
	c.JSON(http.StatusOK, result)
}

// GetWorkflowLogs lists batch-run records, newest first.
func (h *Handler) GetWorkflowLogs(c *gin.Context) {
	logs, err := h.store.ListWorkflowLogs(c.Request.Context(), store.WorkflowLogFilters{
		WorkflowName: c.Query("workflow_name"),
		Status:       model.WorkflowStatus(c.Query("status")),
		Offset:       intQuery(c, "skip", 0, 0, 1<<30),
		Limit:        intQuery(c, "limit", 100, 1, 1000),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

// GetWorkflowLog returns one batch-run record by id.
func (h *Handler) GetWorkflowLog(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	wl, err := h.store.GetWorkflowLog(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wl)
}

// GetWorkflowLogByExecution looks a batch run up by the automation
// platform's execution id.
func (h *Handler) GetWorkflowLogByExecution(c *gin.Context) {
	executionID := c.Param("execution_id")
	if executionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid execution_id"})
		return
	}
	wl, err := h.store.GetWorkflowLogByExecutionID(c.Request.Context(), executionID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wl)
}

type workflowLogRequest struct {
	WorkflowName      string                `json:"workflow_name" binding:"required,max=100"`
	ExecutionID       string                `json:"execution_id" binding:"omitempty,max=100"`
	Status            *model.WorkflowStatus `json:"status" binding:"omitempty,oneof=Running Success Failed Partial"`
	MachinesProcessed *int                  `json:"machines_processed" binding:"omitempty,min=0"`
	WorkOrdersCreated *int                  `json:"work_orders_created" binding:"omitempty,min=0"`
	NotificationsSent *int                  `json:"notifications_sent" binding:"omitempty,min=0"`
	Errors            *string               `json:"errors"`
	ExecutionTimeMS   *int                  `json:"execution_time_ms" binding:"omitempty,min=0"`
	StartedAt         *time.Time            `json:"started_at"`
	CompletedAt       *time.Time            `json:"completed_at"`
}

func (r workflowLogRequest) entry() workflow.LogEntry {
	return workflow.LogEntry{
		WorkflowName:      r.WorkflowName,
		ExecutionID:       r.ExecutionID,
		Status:            r.Status,
		MachinesProcessed: r.MachinesProcessed,
		WorkOrdersCreated: r.WorkOrdersCreated,
		NotificationsSent: r.NotificationsSent,
		Errors:            r.Errors,
		ExecutionTimeMS:   r.ExecutionTimeMS,
		StartedAt:         r.StartedAt,
		CompletedAt:       r.CompletedAt,
	}
}

// UpsertWorkflowLog records a batch run reported by an external automation
// platform. A matching execution id updates the existing row, so a run can
// report its start and its completion as two calls.
func (h *Handler) UpsertWorkflowLog(c *gin.Context) {
	var req workflowLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	wl, err := h.runlog.Upsert(c.Request.Context(), req.entry())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, wl)
}

type workflowLogUpdateRequest struct {
	Status            *model.WorkflowStatus `json:"status" binding:"omitempty,oneof=Running Success Failed Partial"`
	MachinesProcessed *int                  `json:"machines_processed" binding:"omitempty,min=0"`
	WorkOrdersCreated *int                  `json:"work_orders_created" binding:"omitempty,min=0"`
	NotificationsSent *int                  `json:"notifications_sent" binding:"omitempty,min=0"`
	Errors            *string               `json:"errors"`
	ExecutionTimeMS   *int                  `json:"execution_time_ms" binding:"omitempty,min=0"`
	CompletedAt       *time.Time            `json:"completed_at"`
}

// UpdateWorkflowLog patches a batch-run record by id.
func (h *Handler) UpdateWorkflowLog(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req workflowLogUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	wl, err := h.runlog.Update(c.Request.Context(), id, workflow.LogEntry{
		Status:            req.Status,
		MachinesProcessed: req.MachinesProcessed,
		WorkOrdersCreated: req.WorkOrdersCreated,
		NotificationsSent: req.NotificationsSent,
		Errors:            req.Errors,
		ExecutionTimeMS:   req.ExecutionTimeMS,
		CompletedAt:       req.CompletedAt,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wl)
}

// DeleteWorkflowLog removes a batch-run record.
func (h *Handler) DeleteWorkflowLog(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.store.DeleteWorkflowLog(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
