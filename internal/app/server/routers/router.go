package routers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"alertx/internal/app/domains/apimodel/response"
	"alertx/internal/app/domains/entity/etcase"
	"alertx/internal/app/pkg/ginx"
	"alertx/internal/app/pkg/logger"
	"alertx/internal/app/server/handlers/emergency"
	"alertx/internal/app/server/handlers/tracking"
	"alertx/internal/app/server/handlers/triage"
	"alertx/internal/app/server/middlewares"
)

// Handlers 路由依赖
type Handlers struct {
	Triage    *triage.TriageHandler
	Emergency *emergency.EmergencyHandler
	Tracking  *tracking.TrackingHandler
}

// SetupRoutes 配置所有路由，使用 Route Group 分类
func SetupRoutes(h Handlers, log logger.Logger, corsOrigins []string) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.CORS(corsOrigins))
	r.Use(middlewares.AccessLog(log))
	r.Use(middlewares.ErrorHandler(log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, response.HealthResponse{Status: "ok", Service: "alertx"})
	})
	r.NoRoute(func(c *gin.Context) {
		ginx.NotFound(c, "route not found")
	})

	v1 := r.Group("/api/v1")
	{
		v1.POST("/triage/analyze", h.Triage.Analyze)

		emergencies := v1.Group("/emergencies")
		{
			emergencies.POST("", h.Emergency.Create)
			emergencies.POST("/emergency-button", h.Emergency.EmergencyButton)
			emergencies.POST("/dispatch-intelligent", h.Emergency.DispatchIntelligent)
			emergencies.GET("/:id", h.Emergency.Get)
			emergencies.POST("/:id/cancel", h.Emergency.Cancel)
			emergencies.POST("/:id/accept", h.Emergency.Confirm(etcase.EventAccept))
			emergencies.POST("/:id/pickup", h.Emergency.Confirm(etcase.EventPickup))
			emergencies.POST("/:id/arrive", h.Emergency.Confirm(etcase.EventArrive))

			emergencies.POST("/:id/location", h.Tracking.ReportLocation)
			emergencies.GET("/:id/location", h.Tracking.WaitLocation)
			emergencies.GET("/:id/track", h.Tracking.Track)
		}

		v1.GET("/requesters/:requester_id/active-case", h.Emergency.ActiveCase)
	}

	return r
}
