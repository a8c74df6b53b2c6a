package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/wellnest-io/wellnest-backend/internal/audit"
	"github.com/wellnest-io/wellnest-backend/internal/azure"
	"github.com/wellnest-io/wellnest-backend/internal/config"
	"github.com/wellnest-io/wellnest-backend/internal/handler"
	"github.com/wellnest-io/wellnest-backend/internal/middleware"
	"github.com/wellnest-io/wellnest-backend/internal/pdf"
	"github.com/wellnest-io/wellnest-backend/internal/repository"
	"github.com/wellnest-io/wellnest-backend/internal/security"
	"github.com/wellnest-io/wellnest-backend/internal/service"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize Zap logger
	var logger *zap.Logger
	if cfg.Server.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded successfully",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
	)

	// Initialize database connection pool with pgx
	pool, err := pgxpool.New(context.Background(), cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	// Test database connection
	if err := pool.Ping(context.Background()); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}
	logger.Info("Successfully connected to database")

	// Initialize blob storage for generated reports
	blobClient, err := azure.NewBlobStorageClient(
		cfg.Azure.Storage.AccountName,
		cfg.Azure.Storage.AccountKey,
		cfg.Azure.Storage.ReportContainer,
		logger,
	)
	if err != nil {
		logger.Fatal("Failed to initialize Azure Blob Storage client", zap.Error(err))
	}

	// Initialize repositories
	medicationRepo := repository.NewMedicationRepository(pool, logger)

	// Initialize audit logger
	auditLogger := audit.NewLogger(pool, logger)

	// Initialize optional export encryption
	var encryptor *security.Encryptor
	if cfg.Security.ExportEncryptionKey != "" {
		encryptor, err = security.NewEncryptor([]byte(cfg.Security.ExportEncryptionKey))
		if err != nil {
			logger.Fatal("Failed to initialize export encryptor", zap.Error(err))
		}
	}

	// Initialize services
	medicationService := service.NewMedicationService(medicationRepo, auditLogger, logger)
	pdfGenerator := pdf.NewPDFGenerator(logger)
	reportService := service.NewReportService(medicationRepo, blobClient, pdfGenerator, logger)
	gdprService := service.NewGDPRService(pool, auditLogger, encryptor, logger)

	// Initialize handlers
	medicationHandler := handler.NewMedicationHandler(medicationService, logger)
	reportHandler := handler.NewReportHandler(reportService, logger)
	gdprHandler := handler.NewGDPRHandler(gdprService, logger)
	healthHandler := handler.NewHealthHandler(pool, logger)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Gin router
	r := gin.New()

	// Add recovery middleware (must be first)
	r.Use(middleware.RecoveryMiddleware(logger))

	// Add CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"}, // Configure appropriately for production
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Add request ID middleware
	r.Use(middleware.RequestIDMiddleware())

	// Add request logging middleware
	r.Use(middleware.RequestLoggingMiddleware(logger))

	// Add error logging middleware
	r.Use(middleware.ErrorLoggingMiddleware(logger))

	// Register routes
	r.GET("/health", healthHandler.GetHealth)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/medications", medicationHandler.PostMedications)
		v1.GET("/medications", medicationHandler.GetMedications)
		v1.GET("/medications/overdue", medicationHandler.GetMedicationsOverdue)
		v1.PUT("/medications/:id", medicationHandler.PutMedicationsID)
		v1.DELETE("/medications/:id", medicationHandler.DeleteMedicationsID)

		v1.POST("/medications/:id/doses", medicationHandler.PostMedicationsIDDoses)
		v1.GET("/medications/:id/doses", medicationHandler.GetMedicationsIDDoses)
		v1.DELETE("/medications/:id/doses/:logId", medicationHandler.DeleteMedicationsIDDosesLogID)

		v1.GET("/medications/:id/constraints/check", medicationHandler.GetMedicationsIDConstraintsCheck)
		v1.GET("/medications/:id/next-available", medicationHandler.GetMedicationsIDNextAvailable)
		v1.GET("/medications/:id/adherence", medicationHandler.GetMedicationsIDAdherence)

		v1.POST("/reports/generate", reportHandler.PostReportsGenerate)
		v1.GET("/reports", reportHandler.GetReports)
		v1.GET("/reports/:id", reportHandler.GetReportsID)

		v1.DELETE("/users/:userId/data", gdprHandler.DeleteUserData)
		v1.GET("/users/:userId/export", gdprHandler.ExportUserData)
	}

	// Start server with graceful shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	pool.Close()

	logger.Info("Server exited")
}
