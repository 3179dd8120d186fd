package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"signature-form-api/config"
	"signature-form-api/controllers"
	"signature-form-api/middleware"
	"signature-form-api/routes"
	"signature-form-api/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	logFile, logWriter := config.InitLogging(cfg.LogDir)
	if logFile != nil {
		defer logFile.Close()
	}
	gin.DefaultWriter = logWriter
	gin.DefaultErrorWriter = logWriter

	// Set Gin mode
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.OpenDB(cfg)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if err := config.Bootstrap(db); err != nil {
		log.Fatalf("❌ Schema bootstrap failed: %v", err)
	}

	files, err := services.NewFileStore(cfg.Upload.Path)
	if err != nil {
		log.Fatalf("❌ Upload directory setup failed: %v", err)
	}

	eventLogs := config.OpenEventLogs(cfg.LogDir, cfg.LogSubmissions)
	defer eventLogs.Close()

	signatures := services.NewSignatureService(files, cfg.Upload, eventLogs)
	submissions := services.NewSubmissionService(db, files)
	agreements := services.NewAgreementService(submissions, signatures, eventLogs, cfg.RequireSignature)

	notifier := services.NewNotificationService(config.NewMailer(cfg.SMTP), cfg.NotifySubmitter, cfg.NotifyAdminEmails)
	if notifier.Enabled() {
		agreements.WithNotifier(notifier)
		log.Printf("📧 Submission notifications enabled")
	}

	sweeper := services.NewOrphanSweeper(files, submissions, cfg.OrphanMaxAge, eventLogs).WithLock(db)
	if err := sweeper.Start(cfg.CleanupSchedule); err != nil {
		log.Fatalf("❌ Orphan sweeper: %v", err)
	}
	defer sweeper.Stop()

	// Create Gin router
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Add security headers middleware
	router.Use(func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'self'")
		c.Next()
	})

	router.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	router.Use(middleware.MetricsMiddleware())

	handlers := routes.Handlers{
		Agreement:      controllers.NewAgreementController(agreements, cfg.DebugMode),
		Health:         controllers.NewHealthController(db),
		AdminJWTSecret: cfg.AdminJWTSecret,
	}
	if cfg.AdminJWTSecret != "" {
		handlers.Admin = controllers.NewAdminSubmissionController(submissions, sweeper, cfg.LogDir)
	} else {
		log.Printf("🔒 ADMIN_JWT_SECRET not set, admin routes disabled")
	}
	routes.SetupRoutes(router, handlers)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("🚀 Server starting on port %s", cfg.Port)
		if cfg.GinMode == "release" {
			log.Printf("🏭 Running in production mode")
		} else {
			log.Printf("🔧 Running in development mode")
		}
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("❌ Failed to start server:", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
