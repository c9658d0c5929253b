package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/handler"
	"github.com/stemsi/exstem-proctor/internal/middleware"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Health  *handler.HealthHandler
	Session *handler.SessionHandler
	Result  *handler.ResultHandler
	Monitor *handler.MonitorHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	limiter *middleware.RateLimiter,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	router.GET("/health", handlers.Health.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ─── 1. Student Group (JWT, Rate Limited) ──────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		limiter.Middleware(),
		middleware.RequireStudentJWT(authService),
		middleware.Brotli(),
	)
	{
		studentAPI.GET("/sessions/:session_id", handlers.Session.GetSession)
		studentAPI.GET("/tests/:test_id/result", handlers.Result.GetResult)
	}

	// ─── 2. Supervisor Group (JWT) ─────────────────────────────────────
	supervisorAPI := router.Group("/api/v1/supervisor")
	supervisorAPI.Use(middleware.RequireSupervisorJWT(authService))
	{
		supervisorAPI.GET("/tests/:test_id/monitor", handlers.Monitor.MonitorTestSSE)
		supervisorAPI.POST("/sessions/:session_id/terminate", handlers.Session.TerminateSession)
	}

	// ─── 3. WebSocket Group (Student WS Auth, Rate Limited) ────────────
	ws := router.Group("/ws/v1")
	ws.Use(limiter.Middleware(), middleware.RequireStudentWSAuth(authService))
	{
		ws.GET("/student/tests/:test_id/session", handlers.WS.SessionStream)
	}

	return router
}
