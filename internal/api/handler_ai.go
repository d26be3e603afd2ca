package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pm-workorder-backend/internal/decision"
)

// RequestDecision asks the model what to do about a machine and stores the
// answer. Nothing is executed here; callers follow up with ExecuteDecision.
func (h *Handler) RequestDecision(c *gin.Context) {
	id, ok := idParam(c, "machine_id")
	if !ok {
		return
	}
	verdict, err := h.engine.RequestDecision(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, verdict)
}

type executeResponse struct {
	Success bool `json:"success"`
	*decision.Outcome
}

// ExecuteDecision carries out a stored decision. Low-confidence decisions
// are refused unless force=true.
func (h *Handler) ExecuteDecision(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	force, _ := strconv.ParseBool(c.DefaultQuery("force", "false"))

	outcome, err := h.engine.ExecuteDecision(c.Request.Context(), id, force)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, executeResponse{Success: true, Outcome: outcome})
}

// GetRecentDecisions lists the latest decisions, optionally for one machine.
func (h *Handler) GetRecentDecisions(c *gin.Context) {
	machineID, ok := uintQuery(c, "machine_id")
	if !ok {
		return
	}
	limit := intQuery(c, "limit", 20, 1, 100)

	decisions, err := h.engine.Recent(c.Request.Context(), limit, machineID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, decisions)
}

// GetDecision returns one stored decision with its full input context.
func (h *Handler) GetDecision(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	d, err := h.engine.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// GetDecisionStatistics aggregates decision counts, confidence and provider
// distribution for the dashboard.
func (h *Handler) GetDecisionStatistics(c *gin.Context) {
	stats, err := h.engine.Statistics(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
