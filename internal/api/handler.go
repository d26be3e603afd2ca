package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"pm-workorder-backend/config"
	"pm-workorder-backend/internal/decision"
	"pm-workorder-backend/internal/mw"
	"pm-workorder-backend/internal/oracle"
	"pm-workorder-backend/internal/store"
	"pm-workorder-backend/internal/workflow"
	"pm-workorder-backend/internal/workorder"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store       store.Store
	workOrders  *workorder.Service
	engine      *decision.Engine
	email       *workflow.EmailPipeline
	runner      *workflow.Runner
	runlog      *workflow.RunLog
	webpush     *webpush.Options
	dueSoonDays int
	logger      *logrus.Logger
}

// NewHandler creates a new API handler.
func NewHandler(
	st store.Store,
	workOrders *workorder.Service,
	engine *decision.Engine,
	email *workflow.EmailPipeline,
	runner *workflow.Runner,
	runlog *workflow.RunLog,
	webpushOptions *webpush.Options,
	dueSoonDays int,
	logger *logrus.Logger,
) *Handler {
	return &Handler{
		store:       st,
		workOrders:  workOrders,
		engine:      engine,
		email:       email,
		runner:      runner,
		runlog:      runlog,
		webpush:     webpushOptions,
		dueSoonDays: dueSoonDays,
		logger:      logger,
	}
}

// fail translates a service error into the matching HTTP status. The error
// text itself is the detail; services phrase their errors for end users.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": err.Error()})
	case errors.Is(err, workorder.ErrInvalidState),
		errors.Is(err, workorder.ErrInvalidCompletionDate),
		errors.Is(err, workorder.ErrApproverRequired),
		errors.Is(err, decision.ErrReviewRequired):
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
	case errors.Is(err, workorder.ErrConflictActiveOrder):
		c.JSON(http.StatusConflict, gin.H{"detail": err.Error()})
	case errors.Is(err, oracle.ErrBadResponse):
		c.JSON(http.StatusBadGateway, gin.H{"detail": err.Error()})
	default:
		config.LogError(h.logger, "api", c.FullPath(), err, logrus.Fields{"request_id": mw.RequestIDFrom(c)})
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
}

// idParam parses a positive integer path parameter.
func idParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || v == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf("invalid %s", name)})
		return 0, false
	}
	return uint(v), true
}

// uintQuery parses an optional positive integer query parameter. A present
// but malformed value answers 400 rather than being silently ignored.
func uintQuery(c *gin.Context, name string) (uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || v == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf("invalid %s", name)})
		return 0, false
	}
	return uint(v), true
}

// intQuery reads an integer query parameter clamped to [min, max], falling
// back to def when absent or unparseable.
func intQuery(c *gin.Context, name string, def, min, max int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// dateField accepts bare dates ("2026-03-05") as well as full RFC 3339
// timestamps in request bodies.
type dateField struct {
	time.Time
}

func (d *dateField) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	d.Time = t
	return nil
}

func (d dateField) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.Quote(d.Format("2006-01-02"))), nil
}
