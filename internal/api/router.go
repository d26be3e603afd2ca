package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"pm-workorder-backend/config"
	"pm-workorder-backend/internal/mw"
)

const serviceName = "pm-workorder-backend"

// NewRouter creates and configures the Gin router: CORS, request ids,
// per-client rate limiting, and a short-lived response cache over the
// dashboard reads. Mutations travel through the cache middleware too so a
// successful write flushes stale reads.
func NewRouter(cfg *config.Config, h *Handler) *gin.Engine {
	r := gin.Default()

	if cfg.Server.RequestIPHeader != "" {
		r.TrustedPlatform = cfg.Server.RequestIPHeader
	}

	corsCfg := cors.DefaultConfig()
	if len(cfg.Server.CORSOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.Server.CORSOrigins
		corsCfg.AllowCredentials = true
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", mw.RequestIDHeader)
	r.Use(cors.New(corsCfg))
	r.Use(mw.RequestID())

	r.GET("/health", func(c *gin.Context) {
		status, database := "healthy", "connected"
		sqlDB, err := h.store.DB().DB()
		if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status, database = "degraded", "disconnected"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":       status,
			"service":      serviceName,
			"database":     database,
			"llm_provider": cfg.LLM.Provider,
		})
	})

	ttl := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(ttl, 2*ttl)

	api := r.Group("/api/v1")
	api.Use(mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateBurst))
	api.Use(mw.Cache(cacheStore, ttl))
	{
		machines := api.Group("/machines")
		{
			machines.GET("", h.GetMachines)
			machines.GET("/due-for-pm", h.GetMachinesDueForPM)
			machines.GET("/:id", h.GetMachine)
			machines.GET("/:id/maintenance-history", h.GetMaintenanceHistory)
			machines.POST("", h.CreateMachine)
			machines.PUT("/:id", h.UpdateMachine)
			machines.DELETE("/:id", h.DeleteMachine)
		}

		orders := api.Group("/work-orders")
		{
			orders.GET("", h.GetWorkOrders)
			orders.GET("/:id", h.GetWorkOrder)
			orders.POST("", h.CreateWorkOrder)
			orders.PUT("/:id", h.UpdateWorkOrder)
			orders.POST("/:id/approve", h.ApproveWorkOrder)
			orders.POST("/:id/complete", h.CompleteWorkOrder)
			orders.POST("/:id/cancel", h.CancelWorkOrder)
			orders.DELETE("/:id", h.DeleteWorkOrder)
		}

		ai := api.Group("/ai")
		{
			ai.POST("/decision/:machine_id", h.RequestDecision)
			ai.GET("/decisions/recent", h.GetRecentDecisions)
			ai.GET("/decisions/:id", h.GetDecision)
			ai.POST("/decisions/:id/execute", h.ExecuteDecision)
			ai.GET("/statistics", h.GetDecisionStatistics)
		}

		workflows := api.Group("/workflows")
		{
			workflows.POST("/email-date-extraction", h.ExtractEmailDate)
			workflows.POST("/pm-check", h.TriggerPMCheck)
		}

		logs := api.Group("/workflow-logs")
		{
			logs.GET("", h.GetWorkflowLogs)
			logs.GET("/execution/:execution_id", h.GetWorkflowLogByExecution)
			logs.GET("/:id", h.GetWorkflowLog)
			logs.POST("", h.UpsertWorkflowLog)
			logs.PUT("/:id", h.UpdateWorkflowLog)
			logs.DELETE("/:id", h.DeleteWorkflowLog)
		}

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}
