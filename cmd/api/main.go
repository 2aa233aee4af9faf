// Package main is the entry point for the MediWatch API server.
//
// It loads configuration, connects the database pool and AWS clients, wires
// the monitoring session manager with its external model clients, builds the
// HTTP server with the core chassis (middleware, routing, health checks), and
// starts listening for requests.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM):
// the HTTP server drains first, then every live monitoring session is stopped
// so its transition trace gets archived, and finally the database pool closes.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"

	"mediwatch/internal/api/handlers"
	"mediwatch/internal/archive"
	"mediwatch/internal/config"
	"mediwatch/internal/core"
	"mediwatch/internal/db"
	"mediwatch/internal/external"
	"mediwatch/internal/monitor"
	"mediwatch/internal/queue"
	"mediwatch/internal/triage"
	"mediwatch/internal/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("mediwatch API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	ctx := context.Background()
	clock := types.RealClock{}

	// Database pool.
	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting database: %w", err)
	}
	defer pool.Close()

	alertRepo := db.NewAlertRepository(pool)
	patientRepo := db.NewPatientRepository(pool)
	sessionRepo := db.NewSessionRepository(pool)

	// AWS clients. The endpoint override routes SQS and CloudWatch traffic to
	// LocalStack in local environments.
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return fmt.Errorf("loading AWS config: %w", err)
	}
	sqsClient := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.AWS.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
		}
	})
	cwClient := cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
		if cfg.AWS.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
		}
	})

	// External model clients.
	visionClient := external.NewVisionClient(cfg.Vision, clock)
	classifierClient := external.NewClassifierClient(cfg.Classifier)
	speechClient := external.NewSpeechClient(cfg.Speech)
	riskClient := external.NewRiskClient(cfg.Risk)

	riskService := triage.NewService(patientRepo, alertRepo, riskClient, clock, logger)

	archiver, err := archive.NewArchiver(archive.NewFSWriter(cfg.Archive.Dir), clock, logger)
	if err != nil {
		return fmt.Errorf("creating trace archiver: %w", err)
	}

	publisher := queue.NewPublisher(sqsClient, cfg.AWS, logger)

	manager := monitor.NewManager(cfg.Monitor, monitor.Deps{
		Detector:   visionClient,
		Classifier: classifierClient,
		Alerts:     alertRepo,
		Sessions:   sessionRepo,
		Publisher:  publisher,
		Archiver:   archiver,
		Clock:      clock,
		Logger:     logger,
	})

	// Build the server chassis.
	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.Authenticator = core.NewServiceTokenAuthenticator(cfg.Security.ServiceTokenHash)
	if cfg.Observability.EnableMetrics {
		srv.Metrics = core.NewCloudWatchMetrics(cwClient, cfg.Observability.MetricNamespace, logger)
	}
	srv.HealthProbes = []core.HealthProbe{
		db.NewPoolHealthProbe(pool),
		queue.NewHealthProbe(sqsClient, cfg.AWS.AlertQueueURL),
	}

	// Domain handlers.
	sessionHandler := handlers.NewSessionHandler(manager, alertRepo, srv.Validator, logger)
	alertHandler := handlers.NewAlertHandler(alertRepo, manager, clock, logger)
	riskHandler := handlers.NewRiskHandler(riskService, srv.Validator, logger)
	mediaHandler := handlers.NewMediaHandler(visionClient, speechClient, srv.Validator, logger)

	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		sessionHandler.RegisterRoutes,
		alertHandler.RegisterRoutes,
		riskHandler.RegisterRoutes,
		mediaHandler.RegisterRoutes,
	)

	srv.MountRoutes()

	return runHTTPServer(srv, manager, pool, cfg, logger)
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(srv *core.Server, manager *monitor.Manager, pool *pgxpool.Pool, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for shutdown signal or server error.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with a 10-second deadline.
	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	// Stop every live session so its trace gets archived before the process
	// exits. Session records are closed in the database along the way.
	if err := manager.Shutdown(ctx); err != nil {
		logger.Error("session manager shutdown error", "error", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: false,
	})
	return slog.New(handler)
}
