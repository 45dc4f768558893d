package http

import (
	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/AgentOS/sshd/internal/api/middleware"
	"github.com/GriffinCanCode/AgentOS/sshd/internal/infrastructure/monitoring"
)

// RouterConfig selects the middleware of the admin router
type RouterConfig struct {
	Development bool
	RateLimit   middleware.RateLimitConfig
	CORS        middleware.CORSConfig
}

// NewRouter builds the admin router
func NewRouter(cfg RouterConfig, h *Handlers, metrics *monitoring.Metrics) *gin.Engine {
	if !cfg.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestLog(h.logger))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(cfg.CORS))
	if cfg.RateLimit.RequestsPerSecond > 0 {
		router.Use(middleware.RateLimit(cfg.RateLimit))
	}

	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/metrics/json", h.MetricsJSON)
	router.GET("/log-level", h.GetLogLevel)
	router.PUT("/log-level", h.SetLogLevel)

	router.GET("/sessions", h.ListSessions)
	router.GET("/sessions/:id", h.GetSession)
	router.DELETE("/sessions/:id", h.DestroySession)

	router.GET("/terminals", h.ListTerminals)
	router.GET("/processes", h.ListProcesses)

	return router
}
