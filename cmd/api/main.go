package main

import (
	"context"
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
	"go.uber.org/zap"

	_ "github.com/tutorlink/marketplace-api/api/swagger"
	"github.com/tutorlink/marketplace-api/internal/handler"
	"github.com/tutorlink/marketplace-api/internal/middleware"
	"github.com/tutorlink/marketplace-api/internal/models"
	"github.com/tutorlink/marketplace-api/internal/repository"
	"github.com/tutorlink/marketplace-api/internal/service"
	"github.com/tutorlink/marketplace-api/pkg/cache"
	"github.com/tutorlink/marketplace-api/pkg/config"
	"github.com/tutorlink/marketplace-api/pkg/database"
	"github.com/tutorlink/marketplace-api/pkg/jobs"
	"github.com/tutorlink/marketplace-api/pkg/logger"
	corsmiddleware "github.com/tutorlink/marketplace-api/pkg/middleware/cors"
	reqidmiddleware "github.com/tutorlink/marketplace-api/pkg/middleware/requestid"
	"github.com/tutorlink/marketplace-api/pkg/storage"
)

// @title TutorLink Marketplace API
// @version 1.0.0
// @description Tutoring marketplace: professor search, bookings, reviews and admin reporting
// @BasePath /api/v1
// @schemes http

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
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, running without cache", zap.Error(err))
		redisClient = nil
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	professorRepo := repository.NewProfessorRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)
	preferenceRepo := repository.NewPreferenceRepository(db)
	taxonomyRepo := repository.NewTaxonomyRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	bookingSvc := service.NewBookingService(bookingRepo, professorRepo, userRepo, validate, logr)
	reviewSvc := service.NewReviewService(reviewRepo, professorRepo, userRepo, validate, logr, cfg.Reviews.ModerationEnabled)
	feedbackSvc := service.NewFeedbackService(feedbackRepo, bookingRepo, professorRepo, validate, logr)
	searchSvc := service.NewSearchService(professorRepo, cacheRepo, metricsSvc, logr, service.SearchConfig{
		CacheTTL:        cfg.Search.CacheTTL,
		DefaultPageSize: cfg.Search.DefaultPageSize,
		MaxPageSize:     cfg.Search.MaxPageSize,
	})
	preferenceSvc := service.NewPreferenceService(preferenceRepo, taxonomyRepo, validate, logr)
	paymentSvc := service.NewPaymentService(bookingRepo, userRepo, validate, logr)
	dashboardSvc := service.NewDashboardService(dashboardRepo, cacheRepo, metricsSvc, logr, cfg.Dashboard.CacheTTL)

	// Write-side services drop the caches their writes make stale.
	reviewSvc.BindSearchCache(searchSvc)
	bookingSvc.BindDashboardCache(dashboardSvc)
	paymentSvc.BindDashboardCache(dashboardSvc)

	exportStorage, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare export storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportSvc := service.NewExportService(bookingRepo, exportStorage, signer, userRepo, validate, logr)

	exportQueue := jobs.NewQueue("exports", exportSvc.Process, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		Logger:     logr,
	})
	exportSvc.BindQueue(exportQueue)

	queueCtx, stopQueue := context.WithCancel(context.Background())
	exportQueue.Start(queueCtx)

	cleanupDone := make(chan struct{})
	go func() {
		defer close(cleanupDone)
		ticker := time.NewTicker(cfg.Exports.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-queueCtx.Done():
				return
			case <-ticker.C:
				exportSvc.Cleanup(cfg.Exports.SignedURLTTL)
				if _, err := exportStorage.CleanupOlderThan(cfg.Exports.SignedURLTTL); err != nil {
					logr.Warn("export cleanup failed", zap.Error(err))
				}
			}
		}
	}()

	authHandler := handler.NewAuthHandler(authSvc)
	bookingHandler := handler.NewBookingHandler(bookingSvc, exportSvc)
	reviewHandler := handler.NewReviewHandler(reviewSvc)
	feedbackHandler := handler.NewFeedbackHandler(feedbackSvc)
	searchHandler := handler.NewSearchHandler(searchSvc, taxonomyRepo)
	preferenceHandler := handler.NewPreferenceHandler(preferenceSvc)
	adminHandler := handler.NewAdminHandler(dashboardSvc, paymentSvc, metricsSvc)
	exportHandler := handler.NewExportHandler(exportSvc, exportStorage)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)

	api.GET("/professors", searchHandler.Search)
	api.GET("/professors/:id", searchHandler.GetProfessor)
	api.GET("/professors/:id/reviews", reviewHandler.ListByProfessor)
	api.GET("/subjects", searchHandler.ListSubjects)
	api.GET("/levels", searchHandler.ListLevels)
	api.GET("/cities", searchHandler.ListCities)

	// Signed download URLs are absolute paths minted by the export service,
	// so this route sits outside the API prefix.
	r.GET("/export/:token", exportHandler.Download)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	{
		authed.GET("/auth/me", authHandler.Me)
		authed.POST("/auth/logout", authHandler.Logout)
		authed.POST("/auth/change-password", authHandler.ChangePassword)

		authed.POST("/bookings", bookingHandler.Create)
		authed.GET("/bookings", bookingHandler.List)
		authed.GET("/bookings/:id", bookingHandler.Get)
		authed.PUT("/bookings/:id", bookingHandler.Update)
		authed.DELETE("/bookings/:id", bookingHandler.Cancel)
		authed.POST("/bookings/:id/cancel", bookingHandler.Cancel)
		authed.GET("/bookings/:id/receipt", bookingHandler.Receipt)
		authed.POST("/bookings/:id/confirm", middleware.RequireRoles(models.RoleProfessor), bookingHandler.Confirm)
		authed.POST("/bookings/:id/complete", middleware.RequireRoles(models.RoleProfessor), bookingHandler.Complete)

		authed.POST("/professors/:id/reviews", reviewHandler.Create)
		authed.PUT("/reviews/:id", reviewHandler.Update)
		authed.DELETE("/reviews/:id", reviewHandler.Delete)

		authed.POST("/bookings/:id/feedback", feedbackHandler.Create)
		authed.GET("/bookings/:id/feedback", feedbackHandler.GetByBooking)
		authed.PUT("/feedback/:id", feedbackHandler.Update)

		authed.GET("/me/preferences", preferenceHandler.Get)
		authed.PUT("/me/preferences/subjects", preferenceHandler.SyncSubjects)
		authed.PUT("/me/preferences/levels", preferenceHandler.SyncLevels)
		authed.PUT("/me/preferences/cities", preferenceHandler.SyncCities)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
	{
		if cfg.Dashboard.Enabled {
			admin.GET("/dashboard", adminHandler.Dashboard)
			admin.GET("/dashboard/system", adminHandler.SystemMetrics)
		}

		admin.GET("/reviews", reviewHandler.ListForModeration)
		admin.POST("/reviews/:id/moderate", reviewHandler.Moderate)

		admin.POST("/bookings/:id/payment", adminHandler.UpdatePayment)

		if cfg.Exports.Enabled {
			admin.POST("/exports", middleware.Audit(userRepo, models.AuditActionExportRequest, "exports"), exportHandler.Request)
			admin.GET("/exports/:id", exportHandler.Get)
		}
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}

	stopQueue()
	exportQueue.Stop()
	<-cleanupDone
}
