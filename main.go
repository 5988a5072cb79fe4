package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	database "github.com/FACorreiaa/go-recruiter-hub/app/db"
	appLogger "github.com/FACorreiaa/go-recruiter-hub/app/logger"
	"github.com/FACorreiaa/go-recruiter-hub/app/observability/metrics"
	"github.com/FACorreiaa/go-recruiter-hub/app/tracer"
	"github.com/FACorreiaa/go-recruiter-hub/config"
	"github.com/FACorreiaa/go-recruiter-hub/internal/api/audit"
	"github.com/FACorreiaa/go-recruiter-hub/internal/api/auth"
	"github.com/FACorreiaa/go-recruiter-hub/internal/api/messaging"
	"github.com/FACorreiaa/go-recruiter-hub/internal/api/resource"
	"github.com/FACorreiaa/go-recruiter-hub/internal/api/user"
	"github.com/FACorreiaa/go-recruiter-hub/internal/geocoder"
	"github.com/FACorreiaa/go-recruiter-hub/internal/mailer"
	"github.com/FACorreiaa/go-recruiter-hub/internal/router"
	"github.com/FACorreiaa/go-recruiter-hub/internal/store"
	"github.com/FACorreiaa/go-recruiter-hub/internal/types"
	"github.com/FACorreiaa/go-recruiter-hub/internal/upload"
)

func main() {
	// Use standard log until slog is configured, in case godotenv fails
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	logger := setupLogger(cfg.Mode)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tracer.InitTracingAndMetrics(cfg.Server.MetricsPort)
	metrics.InitAppMetrics()

	// --- Database Setup ---
	dbConfig, err := database.NewDatabaseConfig(&cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		os.Exit(1)
	}
	if err := database.RunMigrations(dbConfig.ConnectionURL, logger); err != nil {
		logger.Error("Failed to run database migrations", slog.Any("error", err))
		os.Exit(1)
	}
	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()
	if !database.WaitForDB(ctx, pool, logger) {
		logger.Error("Database not ready after waiting, exiting.")
		os.Exit(1)
	}

	// --- Collaborators ---
	storage, err := upload.New(ctx, cfg.Upload, logger)
	if err != nil {
		logger.Error("Failed to initialize upload storage", slog.Any("error", err))
		os.Exit(1)
	}
	geo := geocoder.NewNominatimClient(cfg.Geocoder.BaseURL, cfg.Geocoder.CacheTTL, logger)
	mail := mailer.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.FromName, cfg.SMTP.FromEmail, logger)

	// --- Dependency Injection ---
	entityStore := store.NewPGStore(pool, logger)

	auditRepo := audit.NewRepository(pool, logger)
	auditService := audit.NewServiceImpl(auditRepo, logger)
	auditHandler := audit.NewHandler(auditService, logger)

	authRepo := auth.NewRepository(pool, logger)
	authService := auth.NewServiceImpl(authRepo, entityStore, auditService, mail, cfg.JWT, logger)
	authHandler := auth.NewHandler(authService, logger)

	userRepo := user.NewRepository(pool, logger)
	userService := user.NewServiceImpl(userRepo, auditService, logger)
	userHandler := user.NewHandler(userService, logger)

	resourceService := resource.NewServiceImpl(entityStore, auditService, geo, storage, logger)
	newEntityHandler := func(entity resource.EntityConfig) resource.Handler {
		return resource.NewHandler(entity, resourceService, cfg.Upload.MaxSize, logger)
	}

	messagingService := messaging.NewServiceImpl(entityStore, auditService, userRepo, logger)
	messagingHandler := messaging.NewHandler(messagingService, logger)

	routerConfig := &router.Config{
		AuthHandler:      authHandler,
		UserHandler:      userHandler,
		AuditHandler:     auditHandler,
		CompanyHandler:   newEntityHandler(resource.Companies),
		JobHandler:       newEntityHandler(resource.Jobs),
		BootcampHandler:  newEntityHandler(resource.Bootcamps),
		CourseHandler:    newEntityHandler(resource.Courses),
		ReviewHandler:    newEntityHandler(resource.Reviews),
		MessagingHandler: messagingHandler,

		Authenticate:         auth.Authenticate(logger, cfg.JWT),
		OptionalAuthenticate: auth.OptionalAuthenticate(logger, cfg.JWT),
		RequireAdmin:         auth.RequireRole(logger, types.RoleAdmin),

		AllowedOrigins: []string{"http://localhost:5173", "http://localhost:3000"},
	}
	apiRouter := router.SetupRouter(routerConfig)

	mux := chi.NewMux()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(appLogger.StructuredLogger(logger))
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.StripSlashes)
	mux.Use(middleware.Timeout(cfg.Server.Timeout))
	mux.Use(middleware.Compress(5, "application/json"))
	mux.Use(countRequests)
	mux.Mount("/", apiRouter)

	// --- HTTP Server Setup ---
	serverAddress := fmt.Sprintf(":%s", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddress,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	go func() {
		logger.Info("Starting HTTP server", slog.String("address", serverAddress))
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server ListenAndServe error", slog.Any("error", err))
			cancel()
		}
	}()

	<-ctx.Done()

	logger.Info("Shutdown signal received, starting graceful shutdown...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", slog.Any("error", err))
	} else {
		logger.Info("HTTP server gracefully stopped")
	}
	logger.Info("Application shut down complete.")
}

// countRequests increments the request counter for every completed request.
func countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		metrics.Get().RequestsTotal.Add(r.Context(), 1)
	})
}

// setupLogger configures and returns the application logger.
func setupLogger(mode string) *slog.Logger {
	var logger *slog.Logger
	if mode == "development" || mode == "" {
		tintOpts := &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		}
		logger = slog.New(tint.NewHandler(os.Stdout, tintOpts))
		log.Println("Initialized development logger (tint)")
	} else {
		jsonOpts := &slog.HandlerOptions{
			Level:     slog.LevelInfo,
			AddSource: false,
		}
		logger = slog.New(slog.NewJSONHandler(os.Stdout, jsonOpts))
		log.Println("Initialized production logger (JSON)")
	}
	return logger
}
