package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpAdapter "github.com/lorrc/support-signals/internal/adapters/primary/http"
	mw "github.com/lorrc/support-signals/internal/adapters/primary/http/middleware"
	"github.com/lorrc/support-signals/internal/adapters/primary/websocket"
	"github.com/lorrc/support-signals/internal/adapters/secondary/email"
	"github.com/lorrc/support-signals/internal/adapters/secondary/kafka"
	"github.com/lorrc/support-signals/internal/adapters/secondary/postgres"
	"github.com/lorrc/support-signals/internal/config"
	"github.com/lorrc/support-signals/internal/core/ports"
	"github.com/lorrc/support-signals/internal/core/services"
	"github.com/lorrc/support-signals/internal/infrastructure/logging"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"config", cfg.String(),
	)

	// 3. Apply migrations before the pool starts handing out connections
	if cfg.Database.AutoMigrate {
		if err := postgres.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath, logger); err != nil {
			logger.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
	}

	// 4. Initialize Database Pool
	ctx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		logger.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}

	// Apply database configuration
	poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.Database.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	logger.Info("database connection established")

	// 5. Initialize Real-time Components
	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	// 6. Initialize Rate Limiters
	var generalRateLimiter, evaluateRateLimiter *mw.RateLimiter
	if cfg.RateLimit.Enabled {
		generalRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
			CleanupInterval:   time.Minute,
			TTL:               3 * time.Minute,
		})
		defer generalRateLimiter.Stop()

		evaluateConfig := mw.EvaluateRateLimiterConfig()
		evaluateConfig.RequestsPerSecond = cfg.RateLimit.EvaluateRPS
		evaluateConfig.BurstSize = cfg.RateLimit.EvaluateBurst
		evaluateRateLimiter = mw.NewRateLimiter(evaluateConfig)
		defer evaluateRateLimiter.Stop()
	}

	// 7. Dependency Injection (Wiring the Hexagon)

	// Error Handler
	errorHandler := httpAdapter.NewErrorHandler(logger)

	// Repositories (Secondary Adapters)
	threadRepo := postgres.NewThreadRepository(pool)
	kpiRepo := postgres.NewKPIRepository(pool)
	alertEventRepo := postgres.NewAlertEventRepository(pool)
	txManager := postgres.NewTransactionManager(pool)

	// Notifier and broker (Secondary Adapters)
	notifier := email.NewMockSMTPNotifier(cfg.Notify.FromAddress, logger)

	var publisher ports.AlertPublisher
	if cfg.Kafka.Enabled {
		publisher = kafka.NewAlertPublisher(cfg.Kafka.Brokers, cfg.Kafka.AlertsTopic, cfg.Kafka.WriteTimeout, logger)
		logger.Info("alert publishing enabled",
			"brokers", cfg.Kafka.Brokers,
			"topic", cfg.Kafka.AlertsTopic,
		)
	}

	// Services (Core)
	signalService := services.NewSignalService(threadRepo, kpiRepo, txManager, services.SignalConfig{
		SnapshotLimit:  cfg.Signals.SnapshotLimit,
		LookbackWindow: cfg.Signals.LookbackWindow,
	}, logger)
	alertHistoryService := services.NewAlertHistoryService(alertEventRepo)

	refresher := services.NewRefresher(signalService, alertEventRepo, hub, publisher, notifier, services.RefresherConfig{
		Interval:        cfg.Signals.RefreshInterval,
		AlertRecipients: cfg.Notify.AlertRecipients,
	}, logger)
	refresherDone := make(chan struct{})
	go func() {
		defer close(refresherDone)
		refresher.Run(ctx)
	}()

	// Handlers (Primary Adapters)
	signalHandler := httpAdapter.NewSignalHandler(signalService, alertHistoryService, errorHandler, cfg.Signals.MaxRequestBytes, logger)
	if evaluateRateLimiter != nil {
		signalHandler.UseForSnapshots(evaluateRateLimiter.Middleware)
	}
	wsHandler := httpAdapter.NewWebSocketHandler(hub, cfg, errorHandler, logger)
	healthHandler := httpAdapter.NewHealthHandler(pool, refresher, hub, cfg.App.Version)

	// 8. Setup Router
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.RecoveryLogger(logger))
	r.Use(mw.Metrics)
	r.Use(mw.CORS(cfg.Server.CORSOrigins))

	// Health and metrics endpoints (outside /api/v1 for standard probe paths)
	healthHandler.RegisterRoutes(r)
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket route is exempt from the per-request limiter
		r.Get("/ws", wsHandler.ServeHTTP)

		r.Group(func(r chi.Router) {
			if generalRateLimiter != nil {
				r.Use(generalRateLimiter.Middleware)
			}
			signalHandler.RegisterRoutes(r)
		})
	})

	// 9. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", "signal", sig.String())

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// Stop the refresh loop and the hub, then drain notifications
	stopBackground()
	<-refresherDone
	refresher.Shutdown()

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("failed to close alert publisher", "error", err)
		}
	}

	logger.Info("server shutdown complete")
}
