package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"pm-workorder-backend/config"
	"pm-workorder-backend/internal/api"
	"pm-workorder-backend/internal/db"
	"pm-workorder-backend/internal/decision"
	"pm-workorder-backend/internal/lock"
	"pm-workorder-backend/internal/mailer"
	"pm-workorder-backend/internal/notification"
	"pm-workorder-backend/internal/oracle"
	"pm-workorder-backend/internal/store"
	"pm-workorder-backend/internal/workflow"
	"pm-workorder-backend/internal/workorder"
)

func main() {
	seedFlag := flag.Bool("seed", false, "populate the database with a sample fleet and exit")
	flag.Parse()

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}

	logger := config.NewLogger(cfg.Log.Level)
	logger.WithField("path", configPath).Info("configuration loaded")

	// Initialize database and run migrations
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.WithField("driver", cfg.Database.Driver).Info("database initialized")

	appStore := store.NewGormStore(gormDB)

	if *seedFlag {
		if err := seedFleet(context.Background(), appStore, logger); err != nil {
			logger.Fatalf("seeding failed: %v", err)
		}
		return
	}

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Single-writer locks: redis when configured, in-process otherwise
	var locks lock.Locker = lock.NewKeyedMutex()
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatalf("failed to connect to redis at %s: %v", cfg.Redis.Addr, err)
		}
		locks = lock.NewRedisLocker(rdb, time.Duration(cfg.Redis.LockTTLSeconds)*time.Second)
		logger.WithField("addr", cfg.Redis.Addr).Info("using redis for machine locks")
	}

	// Web push is optional; without VAPID keys the pool still drains events
	// but has nothing to deliver to.
	var webpushOptions *webpush.Options
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
	} else {
		logger.Warn("VAPID keys are not configured, dashboard push notifications are disabled")
	}

	pool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions, logger)
	pool.Start(ctx)

	mail := mailer.NewDispatcher(mailer.NewSMTPSender(&cfg.SMTP), logger)
	if cfg.SMTP.Host == "" {
		logger.Warn("SMTP host is not configured, supplier emails are disabled")
	}

	oc, err := oracle.New(&cfg.LLM, logger)
	if err != nil {
		logger.Fatalf("failed to initialize llm provider: %v", err)
	}
	logger.WithFields(logrus.Fields{
		"provider": oc.ProviderName(),
		"model":    oc.ModelName(),
	}).Info("llm provider initialized")

	workOrders := workorder.NewService(appStore, locks, mail, pool, logger)
	engine := decision.NewEngine(appStore, oc, workOrders, mail, pool, locks, cfg.LLM.ConfidenceThreshold, logger)
	emailPipeline := workflow.NewEmailPipeline(appStore, oc, workOrders, logger)
	runlog := workflow.NewRunLog(appStore, logger)
	runner := workflow.NewRunner(cfg, appStore, engine, logger)
	go runner.Run(ctx)

	handler := api.NewHandler(appStore, workOrders, engine, emailPipeline, runner, runlog, webpushOptions, cfg.PM.DueSoonDays, logger)
	router := api.NewRouter(cfg, handler)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.WithField("port", cfg.Server.Port).Info("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Info("shutdown signal received, stopping services")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Info("server gracefully stopped")
}
