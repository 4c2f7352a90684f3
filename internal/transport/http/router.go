package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"corpsite/backend/internal/auth"
	"corpsite/backend/internal/config"
	"corpsite/backend/internal/health"
	"corpsite/backend/internal/middleware"
	"corpsite/backend/internal/monitoring"
	"corpsite/backend/internal/service"
	"corpsite/backend/internal/smtp"
	"corpsite/backend/internal/storage"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config         *config.Config
	MessageService *service.MessageService
	ReplyService   *service.ReplyService
	ContactService *service.ContactService
	AuthService    *auth.Service
	RateLimits     storage.RateLimitRepository
	Metrics        *monitoring.Metrics
	Health         *health.HealthChecker // 可选
	Outbox         *smtp.Outbox          // 可选，未启用捕获服务器时为 nil
	Logger         *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()

	router.Use(middleware.RecoveryHandler(log))
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.BodySizeLimit(middleware.DefaultBodyLimit))

	if deps.Metrics != nil {
		mm := middleware.NewMonitoringMiddleware(deps.Metrics)
		router.Use(mm.HTTPMetrics(), mm.BusinessMetrics())
	}

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins: deps.Config.CORS.AllowedOrigins,
		AllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{
			"Content-Length",
			"X-RateLimit-Limit",
			"X-RateLimit-Remaining",
			"Retry-After",
			middleware.RequestIDHeader,
		},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// 如果允许所有来源，则需清空凭证支持。
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	messageHandler := NewMessageHandler(deps.MessageService, log)
	replyHandler := NewReplyHandler(deps.ReplyService, log)
	contactHandler := NewContactHandler(deps.ContactService, log)
	authHandler := NewAuthHandler(deps.AuthService, log)
	outboxHandler := NewOutboxHandler(deps.Outbox)

	adminAuth := middleware.NewAdminAuth(deps.AuthService, log)
	limiter := func(name string, limit int, window time.Duration) gin.HandlerFunc {
		return middleware.NewRateLimiter(deps.RateLimits, limit, window, deps.Metrics, log).Limit(name)
	}

	// Swagger 文档
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))
	}

	// 健康检查
	if deps.Health != nil {
		router.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, deps.Health.CheckHealth())
		})
		router.GET("/health/live", gin.WrapF(deps.Health.LiveHandler()))
		router.GET("/health/ready", gin.WrapF(deps.Health.ReadyHandler()))
	} else {
		router.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
	}

	api := router.Group("/api", middleware.ValidateContentType("application/json"))
	{
		// ========== Public Routes ==========
		api.POST("/contact",
			limiter("contact", deps.Config.RateLimit.ContactPerIP, deps.Config.RateLimit.ContactWindow),
			contactHandler.Submit,
		)

		// ========== Auth Routes ==========
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/login",
				limiter("login", deps.Config.RateLimit.LoginAttempts, deps.Config.RateLimit.LoginWindow),
				authHandler.Login,
			)
			authRoutes.POST("/logout", adminAuth.RequireAdmin(), authHandler.Logout)
			authRoutes.GET("/me", adminAuth.RequireAdmin(), authHandler.Me)
		}

		// ========== Admin Routes ==========
		admin := api.Group("/admin", adminAuth.RequireAdmin())
		{
			admin.GET("/messages", messageHandler.List)
			admin.GET("/messages/:id/history", messageHandler.History)
			admin.DELETE("/messages/:id", messageHandler.Delete)
			admin.PATCH("/messages/:id", messageHandler.UpdateFlags)

			admin.POST("/reply", replyHandler.Reply)
			admin.POST("/forward", replyHandler.Forward)

			admin.GET("/outbox", outboxHandler.List)
		}
	}

	return router
}
