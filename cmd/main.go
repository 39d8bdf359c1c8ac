package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "consignment-api/docs"
	"consignment-api/internal/api"
	"consignment-api/internal/auth"
	"consignment-api/internal/config"
	"consignment-api/internal/job"
	"consignment-api/internal/logger"
	"consignment-api/internal/messaging"
	"consignment-api/internal/metrics"
	"consignment-api/internal/provider"
	"consignment-api/internal/scheduler"
	"consignment-api/internal/status"
	"consignment-api/internal/storage"
)

// @title V8 Consignment Job API
// @version 1.0
// @description Job orchestration service for V8 private consignment consultations
// @BasePath /
// @schemes http

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	// Init Metrics
	metrics.Init()

	// Load Configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.Provide()
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zlog.Sync()
	zlog.Info("configuration loaded", zap.String("path", *configPath))

	// Setup JWT Secret
	auth.SetSecret(cfg.Auth.JWTSecret)

	// Init PostgreSQL
	db, err := storage.NewStorage(cfg.Database.URL)
	if err != nil {
		zlog.Fatal("failed to init db", zap.Error(err))
	}
	defer db.Close()
	zlog.Info("PostgreSQL connected")

	// Init RabbitMQ (optional: cycle summaries are published when configured)
	var rabbitClient *messaging.RabbitClient
	if cfg.RabbitMQ.URL != "" {
		rabbitClient, err = messaging.NewRabbitClient(cfg.RabbitMQ.URL)
		if err != nil {
			zlog.Fatal("failed to connect to RabbitMQ", zap.Error(err))
		}
		defer rabbitClient.Close()
		if err := rabbitClient.DeclareCycleEventsQueue(); err != nil {
			zlog.Fatal("failed to declare cycle events queue", zap.Error(err))
		}
		zlog.Info("RabbitMQ connected")
	}

	// Provider client
	bff := provider.NewClient(provider.Options{
		BaseURL:     cfg.Provider.BaseURL,
		Provider:    cfg.Provider.Name,
		HTTPTimeout: time.Duration(cfg.Provider.HTTPTimeoutMs) * time.Millisecond,
		DefaultSignerPhone: provider.SignerPhone{
			CountryCode: cfg.Provider.SignerPhone.CountryCode,
			AreaCode:    cfg.Provider.SignerPhone.AreaCode,
			PhoneNumber: cfg.Provider.SignerPhone.PhoneNumber,
		},
	})

	tracker := status.NewTracker(cfg.Server.Host, cfg.Server.Port)

	var events job.EventPublisher
	if rabbitClient != nil {
		events = rabbitClient
	}
	jobService := job.NewService(db, bff, tracker, events, job.Config{
		WaitBetweenAPIs:    time.Duration(cfg.Job.WaitBetweenAPIsMs) * time.Millisecond,
		WaitBetweenClients: time.Duration(cfg.Job.WaitBetweenClientsMs) * time.Millisecond,
		MaxClientsPerToken: cfg.Job.MaxClientsPerToken,
	}, zlog)

	// Background loop exporting the events queue depth
	stopDepth := make(chan struct{})
	if rabbitClient != nil {
		go func() {
			ticker := time.NewTicker(10 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if err := rabbitClient.UpdateQueueDepth(); err != nil {
						zlog.Warn("failed to update queue depth", zap.Error(err))
					}
				case <-stopDepth:
					return
				}
			}
		}()
	}

	// Init API
	apiHandler := api.NewAPI(jobService, tracker, cfg, zlog)
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: apiHandler.Router(),
	}

	// Graceful Shutdown Setup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		zlog.Info("starting API server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("server error", zap.Error(err))
		}
	}()

	// Scheduler
	var cronTask *scheduler.Scheduler
	if cfg.Job.SchedulerEnabled {
		cronTask, err = scheduler.New(cfg.Job.SchedulerCron, zlog, func() {
			zlog.Info("scheduled cycle triggered")
			result := jobService.Run(context.Background(), "scheduler")
			if !result.OK {
				zlog.Error("scheduled cycle finished with error", zap.String("message", result.Message))
				return
			}
			zlog.Info("scheduled cycle finished")
		})
		if err != nil {
			zlog.Fatal("failed to init scheduler", zap.Error(err))
		}
		cronTask.Start()
		zlog.Info("scheduler enabled", zap.String("cron", cfg.Job.SchedulerCron))
	}

	if cfg.Job.RunOnStartup {
		go func() {
			zlog.Info("startup cycle triggered")
			result := jobService.Run(context.Background(), "startup")
			if !result.OK {
				zlog.Error("startup cycle finished with error", zap.String("message", result.Message))
				return
			}
			zlog.Info("startup cycle finished")
		}()
	}

	<-ctx.Done() // Wait for interrupt signal
	zlog.Info("shutdown initiated")

	// Shutdown sequence
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if cronTask != nil {
		cronTask.Stop()
	}
	close(stopDepth)

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Warn("HTTP shutdown error", zap.Error(err))
	}

	zlog.Info("graceful shutdown complete")
}
