package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pm-workorder-backend/internal/model"
	"pm-workorder-backend/internal/store"
	"pm-workorder-backend/internal/workorder"
)

// workOrderResponse flattens the joined machine name into the order row the
// dashboard lists.
type workOrderResponse struct {
	model.WorkOrder
	MachineName string `json:"machine_name,omitempty"`
}

func toWorkOrderResponse(wo model.WorkOrder) workOrderResponse {
	return workOrderResponse{WorkOrder: wo, MachineName: wo.Machine.Name}
}

// GetWorkOrders lists work orders, newest first, with optional filters.
func (h *Handler) GetWorkOrders(c *gin.Context) {
	machineID, ok := uintQuery(c, "machine_id")
	if !ok {
		return
	}

	orders, err := h.store.ListWorkOrders(c.Request.Context(), store.WorkOrderFilters{
		Status:      model.WorkOrderStatus(c.Query("status")),
		MachineID:   machineID,
		Source:      model.CreationSource(c.Query("creation_source")),
		MachineName: c.Query("machine_name"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	skip := intQuery(c, "skip", 0, 0, len(orders))
	limit := intQuery(c, "limit", 100, 1, 1000)
	end := skip + limit
	if end > len(orders) {
		end = len(orders)
	}

	responses := make([]workOrderResponse, 0, end-skip)
	for _, wo := range orders[skip:end] {
		responses = append(responses, toWorkOrderResponse(wo))
	}
	c.JSON(http.StatusOK, responses)
}

// GetWorkOrder returns one work order by id.
func (h *Handler) GetWorkOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	wo, err := h.store.GetWorkOrder(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toWorkOrderResponse(*wo))
}

type workOrderCreateRequest struct {
	MachineID     uint       `json:"machine_id" binding:"required"`
	Priority      string     `json:"priority" binding:"omitempty,oneof=Low Medium High"`
	ScheduledDate *dateField `json:"scheduled_date"`
	Notes         string     `json:"notes"`
	Source        string     `json:"creation_source" binding:"required,oneof=AI Manual"`
	AIDecisionID  *uint      `json:"ai_decision_id"`
	Status        string     `json:"status" binding:"omitempty,oneof=Draft Pending_Approval Approved Completed Cancelled"`
}

// CreateWorkOrder opens a new order. A machine with an open order answers
// 409 listing the conflicting numbers.
func (h *Handler) CreateWorkOrder(c *gin.Context) {
	var req workOrderCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	params := workorder.CreateParams{
		MachineID:    req.MachineID,
		Priority:     model.Priority(req.Priority),
		Source:       model.CreationSource(req.Source),
		Status:       model.WorkOrderStatus(req.Status),
		Notes:        req.Notes,
		AIDecisionID: req.AIDecisionID,
	}
	if req.ScheduledDate != nil {
		params.ScheduledDate = &req.ScheduledDate.Time
	}

	wo, err := h.workOrders.Create(c.Request.Context(), params)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toWorkOrderResponse(*wo))
}

type workOrderUpdateRequest struct {
	Status        *string    `json:"status" binding:"omitempty,oneof=Draft Pending_Approval Approved Completed Cancelled"`
	Priority      *string    `json:"priority" binding:"omitempty,oneof=Low Medium High"`
	ScheduledDate *dateField `json:"scheduled_date"`
	CompletedDate *dateField `json:"completed_date"`
	Notes         *string    `json:"notes"`
	ApprovedBy    *string    `json:"approved_by" binding:"omitempty,max=200"`
}

// UpdateWorkOrder patches the provided fields without state-machine guards;
// the transition endpoints below are the guarded path.
func (h *Handler) UpdateWorkOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req workOrderUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	params := workorder.UpdateParams{
		Notes:      req.Notes,
		ApprovedBy: req.ApprovedBy,
	}
	if req.Status != nil {
		status := model.WorkOrderStatus(*req.Status)
		params.Status = &status
	}
	if req.Priority != nil {
		priority := model.Priority(*req.Priority)
		params.Priority = &priority
	}
	if req.ScheduledDate != nil {
		params.ScheduledDate = &req.ScheduledDate.Time
	}
	if req.CompletedDate != nil {
		params.CompletedDate = &req.CompletedDate.Time
	}

	wo, err := h.workOrders.Update(c.Request.Context(), id, params)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toWorkOrderResponse(*wo))
}

type workOrderApprovalRequest struct {
	ApprovedBy string `json:"approved_by" binding:"required,max=200"`
}

// ApproveWorkOrder approves a Draft or Pending_Approval order and notifies
// the supplier.
func (h *Handler) ApproveWorkOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req workOrderApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	wo, err := h.workOrders.Approve(c.Request.Context(), id, req.ApprovedBy)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toWorkOrderResponse(*wo))
}

type workOrderCompletionRequest struct {
	CompletedDate *dateField `json:"completed_date" binding:"required"`
}

// CompleteWorkOrder closes an Approved order and rolls the machine's PM
// schedule forward.
func (h *Handler) CompleteWorkOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req workOrderCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	wo, err := h.workOrders.Complete(c.Request.Context(), id, req.CompletedDate.Time)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toWorkOrderResponse(*wo))
}

// CancelWorkOrder cancels any non-completed order; cancelling twice is a
// no-op.
func (h *Handler) CancelWorkOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	wo, err := h.workOrders.Cancel(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toWorkOrderResponse(*wo))
}

// DeleteWorkOrder removes an order outright.
func (h *Handler) DeleteWorkOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.store.DeleteWorkOrder(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
