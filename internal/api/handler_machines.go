package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"pm-workorder-backend/internal/model"
	"pm-workorder-backend/internal/pm"
	"pm-workorder-backend/internal/store"
)

// machineResponse is a machine enriched with its computed urgency.
type machineResponse struct {
	model.Machine
	PMStatus    pm.Status `json:"pm_status"`
	DaysUntilPM int       `json:"days_until_pm"`
}

type machineDetailResponse struct {
	machineResponse
	MaintenanceHistory []model.MaintenanceRecord `json:"maintenance_history"`
	WorkOrders         []model.WorkOrder         `json:"work_orders"`
}

func (h *Handler) enrichMachine(m model.Machine) machineResponse {
	status, days := pm.Classify(m.NextPMDate, time.Now(), h.dueSoonDays)
	return machineResponse{Machine: m, PMStatus: status, DaysUntilPM: days}
}

// GetMachines lists machines enriched with pm_status and days_until_pm,
// most urgent first. pm_status accepts a single value or a comma-separated
// set ("due_soon,overdue").
func (h *Handler) GetMachines(c *gin.Context) {
	filters := store.MachineFilters{
		Status:   model.MachineStatus(c.Query("status")),
		Location: c.Query("location"),
	}
	machines, err := h.store.ListMachines(c.Request.Context(), filters)
	if err != nil {
		h.fail(c, err)
		return
	}

	wanted := map[string]bool{}
	for _, s := range strings.Split(c.Query("pm_status"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			wanted[s] = true
		}
	}

	enriched := make([]machineResponse, 0, len(machines))
	for _, m := range machines {
		e := h.enrichMachine(m)
		if len(wanted) > 0 && !wanted[string(e.PMStatus)] {
			continue
		}
		enriched = append(enriched, e)
	}

	skip := intQuery(c, "skip", 0, 0, len(enriched))
	limit := intQuery(c, "limit", 100, 1, 1000)
	end := skip + limit
	if end > len(enriched) {
		end = len(enriched)
	}
	c.JSON(http.StatusOK, enriched[skip:end])
}

// GetMachine returns one machine with its recent maintenance history and
// work orders.
func (h *Handler) GetMachine(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	m, err := h.store.GetMachine(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	history, err := h.store.ListMaintenanceHistory(ctx, id, 20)
	if err != nil {
		h.fail(c, err)
		return
	}
	orders, err := h.store.ListWorkOrders(ctx, store.WorkOrderFilters{MachineID: id})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, machineDetailResponse{
		machineResponse:    h.enrichMachine(*m),
		MaintenanceHistory: history,
		WorkOrders:         orders,
	})
}

type machineCreateRequest struct {
	MachineID        string     `json:"machine_id" binding:"required,max=50"`
	Name             string     `json:"name" binding:"required,max=200"`
	Description      string     `json:"description"`
	Location         string     `json:"location" binding:"max=200"`
	PMFrequency      string     `json:"pm_frequency" binding:"required,oneof=Monthly Bimonthly Quarterly Yearly"`
	LastPMDate       *dateField `json:"last_pm_date"`
	NextPMDate       *dateField `json:"next_pm_date" binding:"required"`
	AssignedSupplier string     `json:"assigned_supplier" binding:"max=200"`
	SupplierEmail    string     `json:"supplier_email" binding:"omitempty,email"`
	Status           string     `json:"status" binding:"omitempty,oneof=Active Inactive"`
}

// CreateMachine registers a new machine. The external machine code must be
// unique.
func (h *Handler) CreateMachine(c *gin.Context) {
	var req machineCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()

	if _, err := h.store.GetMachineByCode(ctx, req.MachineID); err == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"detail": fmt.Sprintf("Machine with machine_id '%s' already exists", req.MachineID),
		})
		return
	}

	m := &model.Machine{
		MachineID:        req.MachineID,
		Name:             req.Name,
		Description:      req.Description,
		Location:         req.Location,
		PMFrequency:      model.PMFrequency(req.PMFrequency),
		NextPMDate:       req.NextPMDate.Time,
		AssignedSupplier: req.AssignedSupplier,
		SupplierEmail:    req.SupplierEmail,
		Status:           model.MachineStatusActive,
	}
	if req.LastPMDate != nil {
		m.LastPMDate = &req.LastPMDate.Time
	}
	if req.Status != "" {
		m.Status = model.MachineStatus(req.Status)
	}

	if err := h.store.CreateMachine(ctx, m); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.enrichMachine(*m))
}

type machineUpdateRequest struct {
	Name             *string    `json:"name" binding:"omitempty,min=1,max=200"`
	Description      *string    `json:"description"`
	Location         *string    `json:"location" binding:"omitempty,max=200"`
	PMFrequency      *string    `json:"pm_frequency" binding:"omitempty,oneof=Monthly Bimonthly Quarterly Yearly"`
	LastPMDate       *dateField `json:"last_pm_date"`
	NextPMDate       *dateField `json:"next_pm_date"`
	AssignedSupplier *string    `json:"assigned_supplier" binding:"omitempty,max=200"`
	SupplierEmail    *string    `json:"supplier_email" binding:"omitempty,email"`
	Status           *string    `json:"status" binding:"omitempty,oneof=Active Inactive"`
}

// UpdateMachine patches the provided fields.
func (h *Handler) UpdateMachine(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req machineUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()

	m, err := h.store.GetMachine(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}

	if req.Name != nil {
		m.Name = *req.Name
	}
	if req.Description != nil {
		m.Description = *req.Description
	}
	if req.Location != nil {
		m.Location = *req.Location
	}
	if req.PMFrequency != nil {
		m.PMFrequency = model.PMFrequency(*req.PMFrequency)
	}
	if req.LastPMDate != nil {
		m.LastPMDate = &req.LastPMDate.Time
	}
	if req.NextPMDate != nil {
		m.NextPMDate = req.NextPMDate.Time
	}
	if req.AssignedSupplier != nil {
		m.AssignedSupplier = *req.AssignedSupplier
	}
	if req.SupplierEmail != nil {
		m.SupplierEmail = *req.SupplierEmail
	}
	if req.Status != nil {
		m.Status = model.MachineStatus(*req.Status)
	}

	if err := h.store.SaveMachine(ctx, m); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.enrichMachine(*m))
}

// DeleteMachine removes a machine together with its history, work orders
// and decisions.
func (h *Handler) DeleteMachine(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.store.DeleteMachine(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetMachinesDueForPM lists active machines whose next PM falls within the
// requested window, most urgent first.
func (h *Handler) GetMachinesDueForPM(c *gin.Context) {
	days := intQuery(c, "days", h.dueSoonDays, 0, 365)
	cutoff := time.Now().AddDate(0, 0, days)

	machines, err := h.store.MachinesDueBy(c.Request.Context(), cutoff)
	if err != nil {
		h.fail(c, err)
		return
	}
	enriched := make([]machineResponse, 0, len(machines))
	for _, m := range machines {
		enriched = append(enriched, h.enrichMachine(m))
	}
	c.JSON(http.StatusOK, enriched)
}

// GetMaintenanceHistory lists a machine's maintenance records, newest first.
func (h *Handler) GetMaintenanceHistory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	limit := intQuery(c, "limit", 20, 1, 100)
	ctx := c.Request.Context()

	if _, err := h.store.GetMachine(ctx, id); err != nil {
		h.fail(c, err)
		return
	}
	history, err := h.store.ListMaintenanceHistory(ctx, id, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}
