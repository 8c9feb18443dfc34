package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/fluentpath/detprep-backend/internal/config"
	"github.com/fluentpath/detprep-backend/internal/handler"
	"github.com/fluentpath/detprep-backend/internal/middleware"
	"github.com/fluentpath/detprep-backend/internal/response"
	"github.com/fluentpath/detprep-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth     *handler.AuthHandler
	Practice *handler.PracticeHandler
	History  *handler.HistoryHandler
	WS       *handler.WSHandler
	System   *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
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
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", handlers.System.Health)

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(middleware.AuthRate, middleware.AuthInterval)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)

		// Authenticated profile routes
		auth.POST("/logout", middleware.RequireJWT(authService), handlers.Auth.Logout)
		auth.GET("/me", middleware.RequireJWT(authService), handlers.Auth.Me)
		auth.PATCH("/me/target-score", middleware.RequireJWT(authService), handlers.Auth.UpdateTargetScore)
	}

	// ─── 2. Practice Group (JWT + Single Device) ───────────────────────
	practiceAPI := router.Group("/api/v1/practice")
	practiceAPI.Use(
		middleware.RequireJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		practiceAPI.GET("/prompts/:kind", handlers.Practice.GetPrompt)
		practiceAPI.GET("/prompts/:kind/all", handlers.Practice.ListPrompts)
		practiceAPI.POST("/prompts", handlers.Practice.CreatePrompt)
		practiceAPI.DELETE("/prompts/:prompt_id", handlers.Practice.RetirePrompt)
		practiceAPI.POST("/sessions", handlers.Practice.StartSession)
		practiceAPI.GET("/sessions/:session_id", handlers.Practice.GetSession)
		practiceAPI.POST("/sessions/:session_id/events", handlers.Practice.ApplyEvent)
		practiceAPI.POST("/sessions/:session_id/submit", handlers.Practice.SubmitSession)
		practiceAPI.DELETE("/sessions/:session_id", handlers.Practice.CancelSession)
		practiceAPI.GET("/draft", handlers.Practice.GetDraft)
	}

	// ─── 3. History Group (JWT + Single Device) ────────────────────────
	historyAPI := router.Group("/api/v1/history")
	historyAPI.Use(
		middleware.RequireJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		historyAPI.GET("", handlers.History.List)
		historyAPI.GET("/latest", handlers.History.Latest)
		historyAPI.GET("/stats", handlers.History.Stats)
		historyAPI.DELETE("", handlers.History.Clear)
	}

	// ─── 4. WebSocket Group (WS Auth via query token) ──────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(authService))
	{
		ws.GET("/practice/sessions/:session_id/stream", handlers.WS.SessionStream)
	}

	return router
}
