package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/vozsegura/vozsegura-api/api/swagger"
	"github.com/vozsegura/vozsegura-api/internal/handler"
	"github.com/vozsegura/vozsegura-api/internal/middleware"
	"github.com/vozsegura/vozsegura-api/internal/models"
	"github.com/vozsegura/vozsegura-api/internal/repository"
	"github.com/vozsegura/vozsegura-api/internal/service"
	"github.com/vozsegura/vozsegura-api/pkg/cache"
	"github.com/vozsegura/vozsegura-api/pkg/config"
	"github.com/vozsegura/vozsegura-api/pkg/database"
	"github.com/vozsegura/vozsegura-api/pkg/logger"
	corsmiddleware "github.com/vozsegura/vozsegura-api/pkg/middleware/cors"
	reqidmiddleware "github.com/vozsegura/vozsegura-api/pkg/middleware/requestid"
	"github.com/vozsegura/vozsegura-api/pkg/secrets"
)

// @title VozSegura API
// @version 1.0.0
// @description Identity and case-routing control plane for the anonymous complaint platform
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	store := secrets.NewStore(cfg.Crypto.EncryptionKey)
	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	ruleRepo := repository.NewRuleRepository(db)
	complaintRepo := repository.NewComplaintRepository(db)
	recoveryRepo := repository.NewRecoveryRepository(redisClient)

	metricsService := service.NewMetricsService()

	auditService := service.NewAuditService(auditRepo, logr, service.AuditQueueConfig{
		Workers:    cfg.Audit.WorkerCount,
		BufferSize: cfg.Audit.QueueSize,
		MaxRetries: cfg.Audit.WorkerRetries,
	})
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	auditService.Start(ctx)
	defer auditService.Stop()

	authService := service.NewAuthService(userRepo, store, auditService, validate, logr, service.AuthConfig{
		TokenSecret:     cfg.JWT.Secret,
		TokenExpiry:     cfg.JWT.Expiration,
		Issuer:          cfg.JWT.Issuer,
		MaxAttempts:     cfg.Lockout.MaxAttempts,
		LockoutDuration: cfg.Lockout.Duration,
	})
	recoveryService := service.NewRecoveryService(userRepo, recoveryRepo, store, auditService, validate, logr, service.RecoveryConfig{
		CodeTTL: cfg.Recovery.CodeTTL,
	})
	assignmentService := service.NewAssignmentService(ruleRepo, complaintRepo, metricsService, logr)
	complaintService := service.NewComplaintService(complaintRepo, userRepo, assignmentService, auditService, validate, logr)
	ruleService := service.NewRuleService(ruleRepo, userRepo, auditService, validate, logr)
	userService := service.NewUserService(userRepo, ruleRepo, store, auditService, validate, logr)

	authHandler := handler.NewAuthHandler(authService, metricsService)
	recoveryHandler := handler.NewRecoveryHandler(recoveryService, metricsService, cfg.Env != config.EnvProduction)
	userHandler := handler.NewUserHandler(userService)
	ruleHandler := handler.NewRuleHandler(ruleService)
	complaintHandler := handler.NewComplaintHandler(complaintService, metricsService)
	auditHandler := handler.NewAuditHandler(auditService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "reason": "database unreachable"})
			return
		}
		if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "reason": "redis unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsService.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/register", authHandler.Register)
		auth.POST("/recovery", recoveryHandler.Request)
		auth.POST("/recovery/complete", recoveryHandler.Complete)

		secured := auth.Group("")
		secured.Use(middleware.JWT(authService))
		secured.GET("/me", authHandler.Me)
		secured.POST("/change-password", authHandler.ChangePassword)
	}

	users := api.Group("/users")
	users.Use(middleware.JWT(authService), middleware.RequireRoles(models.RoleAdmin))
	{
		users.GET("", userHandler.List)
		users.POST("", userHandler.Create)
		users.GET("/:id", userHandler.Get)
		users.PUT("/:id", userHandler.Update)
		users.DELETE("/:id", userHandler.Deactivate)
		users.DELETE("/:id/permanent", userHandler.Delete)
	}

	rules := api.Group("/rules")
	rules.Use(middleware.JWT(authService), middleware.RequireRoles(models.RoleAdmin))
	{
		rules.GET("", ruleHandler.List)
		rules.POST("", ruleHandler.Create)
		rules.PUT("/:id", ruleHandler.Update)
		rules.DELETE("/:id", ruleHandler.Deactivate)
	}

	complaints := api.Group("/complaints")
	complaints.Use(middleware.JWT(authService))
	{
		complaints.POST("", middleware.RequireRoles(models.RoleReporter), complaintHandler.Create)
		complaints.GET("", complaintHandler.List)
		complaints.GET("/:id", middleware.Audit(auditService, models.AuditActionComplaintView, "complaints"), complaintHandler.Get)
		complaints.PATCH("/:id/status", middleware.RequireRoles(models.RoleAdmin, models.RoleSupervisor), complaintHandler.UpdateStatus)
		complaints.PATCH("/:id/assign", middleware.RequireRoles(models.RoleAdmin), complaintHandler.Reassign)
	}

	audit := api.Group("/audit")
	audit.Use(middleware.JWT(authService), middleware.RequireRoles(models.RoleAdmin))
	{
		audit.GET("", auditHandler.Query)
		audit.GET("/export", auditHandler.Export)
	}

	api.GET("/metrics/snapshot", middleware.JWT(authService), middleware.RequireRoles(models.RoleAdmin), metricsHandler.Snapshot)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("graceful shutdown failed", "error", err)
	}
}
