package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/estate-crm/backend/internal/automation"
	"github.com/estate-crm/backend/internal/config"
	"github.com/estate-crm/backend/internal/db"
	"github.com/estate-crm/backend/internal/events"
	apphttp "github.com/estate-crm/backend/internal/http"
	"github.com/estate-crm/backend/internal/http/handlers"
	"github.com/estate-crm/backend/internal/integrations"
	"github.com/estate-crm/backend/internal/llm"
	"github.com/estate-crm/backend/internal/metrics"
	"github.com/estate-crm/backend/internal/repositories"
	"github.com/estate-crm/backend/internal/services"
	"github.com/estate-crm/backend/migrations"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, db.PoolOptions{}, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repositories
	automationRepo := repositories.NewAutomationRepo(pool)
	logRepo := repositories.NewAutomationLogRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Automation engine
	m := metrics.NewRegistry()
	clients := integrations.New(cfg, log)
	executor := automation.NewExecutor(logRepo, clients, publisher, m, log)
	builder := automation.NewBuilder(llm.New(llm.Config{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
	}, log), log)
	automationService := services.NewAutomationService(automationRepo, logRepo, auditRepo, executor, builder, clients, publisher, m, log)

	// Start WS hub
	wsHub := handlers.NewWSHub(cfg, subscriber, log)
	if err := wsHub.Start(ctx); err != nil {
		log.Fatal("failed to start ws hub", zap.Error(err))
	}

	app := apphttp.NewApp()
	apphttp.SetupRouter(app, apphttp.Deps{
		Config:            cfg,
		Log:               log,
		Redis:             rdb,
		Metrics:           m,
		AutomationService: automationService,
		WSHub:             wsHub,
	})

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
