package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tgo/usagedash/internal/config"
	"github.com/tgo/usagedash/internal/middleware"
	"github.com/tgo/usagedash/internal/pkg/jwt"
	"github.com/tgo/usagedash/internal/pkg/redis"
	"github.com/tgo/usagedash/internal/repository"
	"github.com/tgo/usagedash/internal/service"
)

func SetupRouter(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *gin.Engine {
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.RequestID())

	// Initialize JWT manager
	jwtManager := jwt.NewManager(cfg.JWTSecret, cfg.AccessTokenExpireMin, cfg.RefreshTokenExpireDays)

	// Profile cache is optional; without Redis reads go straight to Postgres
	var profileCache *redis.ProfileCache
	if redisClient != nil {
		profileCache = redis.NewProfileCache(redisClient, time.Duration(cfg.ProfileCacheTTLSeconds)*time.Second)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewUsageProfileRepository(db)
	dailyRepo := repository.NewDailyUsageRepository(db)

	// Initialize services
	authSvc := service.NewAuthService(userRepo, jwtManager)
	ingestSvc := service.NewIngestService(db, profileCache)
	statsSvc := service.NewStatsService(profileRepo, dailyRepo, profileCache)

	// Initialize handlers
	authHandler := NewAuthHandler(authSvc)
	usageHandler := NewUsageHandler(ingestSvc, statsSvc)
	systemHandler := NewSystemHandler("1.0.0")

	r.GET("/health", systemHandler.GetHealth)

	// Auth middleware
	authMw := middleware.NewAuthMiddleware(jwtManager, db)

	// API v1
	v1 := r.Group("/v1")
	{
		// System routes (no auth required)
		v1.GET("/system/info", systemHandler.GetInfo)

		// Auth routes (no auth required)
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
		}

		// Protected routes
		protected := v1.Group("")
		protected.Use(authMw.Auth())
		{
			protected.GET("/auth/me", authHandler.GetCurrentUser)

			usage := protected.Group("/usage")
			{
				usage.POST("/submissions", usageHandler.Submit)
				usage.GET("/profile", usageHandler.GetProfile)
				usage.GET("/daily", usageHandler.ListDaily)
			}
		}
	}

	return r
}
