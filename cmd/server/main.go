package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/waveground/backend/internal/cache"
	"github.com/waveground/backend/internal/config"
	"github.com/waveground/backend/internal/database"
	"github.com/waveground/backend/internal/handlers"
	"github.com/waveground/backend/internal/identity"
	"github.com/waveground/backend/internal/logger"
	"github.com/waveground/backend/internal/metrics"
	"github.com/waveground/backend/internal/middleware"
	"github.com/waveground/backend/internal/moderation"
	"github.com/waveground/backend/internal/ratelimit"
	"github.com/waveground/backend/internal/repository"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	logger.Log.Info("=== Waveground backend starting ===")

	// Initialize database
	if err := database.Initialize(); err != nil {
		logger.FatalWithFields("Failed to initialize database", err)
	}
	defer database.Close()

	// Run migrations
	if err := database.Migrate(); err != nil {
		logger.FatalWithFields("Failed to run migrations", err)
	}

	// Redis is optional; without it the comment list cache is off
	var commentCache *cache.CommentCache
	var redisClient *cache.RedisClient
	if cfg.RedisHost != "" {
		redisClient, err = cache.NewRedisClient(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)
		if err != nil {
			logger.Log.Warn("Redis unavailable, comment list cache disabled", zap.Error(err))
		} else {
			commentCache = cache.NewCommentCache(redisClient)
			defer redisClient.Close()
		}
	}

	metrics.Initialize()

	resolver, err := identity.NewResolver(cfg.IdentityHashSecret)
	if err != nil {
		logger.FatalWithFields("Failed to initialize identity resolver", err)
	}

	identities := repository.NewIdentityRepository(database.DB)
	comments := repository.NewCommentRepository(database.DB)
	service := moderation.NewService(resolver, identities, comments)
	limiter := ratelimit.New()

	h := handlers.NewHandlers(service, resolver, identities, comments, commentCache, limiter, cfg)

	// Setup Gin router
	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())

	// CORS middleware
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"} // Configure properly for production
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Session-ID", "X-Local-Storage-ID", "X-TOTP-Code"}
	r.Use(cors.New(corsConfig))

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	api := r.Group("/api/v1")
	{
		// Public comment surface, no accounts anywhere
		api.GET("/posts/:post_id/comments", h.GetComments)
		api.POST("/posts/:post_id/comments", h.SubmitComment)
		api.PUT("/comments/:id", h.EditComment)
		api.POST("/comments/:id/report", h.ReportComment)

		api.GET("/identity", h.GetIdentity)
		api.POST("/username/check",
			middleware.RateLimitMiddleware(limiter, "username", 20, time.Minute),
			h.CheckUsername)

		// Moderation console
		admin := api.Group("/admin")
		{
			admin.POST("/login",
				middleware.RateLimitMiddleware(limiter, "admin-login", 5, time.Minute),
				h.AdminLogin)

			authed := admin.Group("")
			authed.Use(middleware.AdminAuthMiddleware([]byte(cfg.JWTSecret)))
			{
				authed.POST("/2fa/setup", h.Setup2FA)
				authed.POST("/2fa/verify", h.Verify2FA)

				authed.GET("/identities/flagged", h.ListFlaggedIdentities)
				authed.GET("/identities/banned", h.ListBannedIdentities)
				authed.GET("/identities/:hash", h.GetIdentityDetail)
				authed.POST("/identities/:hash/ban", h.BanIdentity)
				authed.POST("/identities/:hash/unban", h.UnbanIdentity)
				authed.POST("/identities/:hash/reset-cooldown", h.ResetCooldown)

				authed.GET("/posts/:post_id/comments", h.AdminListComments)
				authed.DELETE("/comments/:id", h.AdminDeleteComment)
			}
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info("Waveground backend listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.FatalWithFields("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.FatalWithFields("Server forced to shutdown", err)
	}

	logger.Log.Info("Server exited")
}
