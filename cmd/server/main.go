package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appbilling "github.com/medpractice/backend/internal/application/billing"
	"github.com/medpractice/backend/internal/infrastructure/auth"
	"github.com/medpractice/backend/internal/infrastructure/config"
	"github.com/medpractice/backend/internal/infrastructure/fiscal"
	"github.com/medpractice/backend/internal/infrastructure/logger"
	"github.com/medpractice/backend/internal/infrastructure/persistence"
	"github.com/medpractice/backend/internal/interfaces/http/handler"
	"github.com/medpractice/backend/internal/interfaces/http/middleware"
	"github.com/medpractice/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting billing backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database connection with zap-backed GORM logger
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Repositories
	documentRepo := persistence.NewGormDocumentRepository(db.DB)
	patientRepo := persistence.NewGormPatientRepository(db.DB)

	// External fiscal-authority gateway
	fiscalGateway := fiscal.NewACubeClient(cfg.Fiscal, log)
	if !cfg.Fiscal.HasFiscalCredentials() {
		log.Warn("Fiscal authority credentials not configured; submissions will fail with a configuration error")
	}

	// Application services
	documentService := appbilling.NewDocumentService(documentRepo)
	conversionService := appbilling.NewConversionService(documentRepo, log)
	fiscalService := appbilling.NewFiscalService(documentRepo, patientRepo, fiscalGateway, log)

	// Auth
	jwtService := auth.NewJWTService(cfg.JWT)

	// HTTP handlers
	documentHandler := handler.NewDocumentHandler(documentService, conversionService, fiscalService)
	patientHandler := handler.NewPatientHandler(patientRepo)
	systemHandler := handler.NewSystemHandler(db)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	router.Setup(engine, router.Config{
		JWTService:      jwtService,
		DocumentHandler: documentHandler,
		PatientHandler:  patientHandler,
		SystemHandler:   systemHandler,
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exited")
}
