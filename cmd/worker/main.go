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
	"github.com/estate-crm/backend/internal/integrations"
	"github.com/estate-crm/backend/internal/llm"
	"github.com/estate-crm/backend/internal/metrics"
	"github.com/estate-crm/backend/internal/models"
	"github.com/estate-crm/backend/internal/repositories"
	"github.com/estate-crm/backend/internal/scheduler"
	"github.com/estate-crm/backend/internal/services"
	"go.uber.org/zap"
)

// Worker fires schedule triggers and dispatches trigger events that other
// CRM services publish on Redis.
func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, db.PoolOptions{MaxConns: 4}, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repos
	automationRepo := repositories.NewAutomationRepo(pool)
	logRepo := repositories.NewAutomationLogRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	// Services
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)
	m := metrics.NewRegistry()
	clients := integrations.New(cfg, log)
	executor := automation.NewExecutor(logRepo, clients, publisher, m, log)
	builder := automation.NewBuilder(llm.New(llm.Config{APIKey: cfg.OpenAIAPIKey, BaseURL: cfg.OpenAIBaseURL, Model: cfg.OpenAIModel}, log), log)
	automationService := services.NewAutomationService(automationRepo, logRepo, auditRepo, executor, builder, clients, publisher, m, log)

	// Inbound trigger events
	err = subscriber.Subscribe(ctx, events.StreamTriggers, func(event events.Event) {
		trigger := models.TriggerType(event.Type)
		if !trigger.IsValid() {
			log.Warn("ignoring unknown trigger event", zap.String("type", event.Type))
			return
		}
		if _, err := automationService.Dispatch(ctx, models.NewTriggerEvent(trigger, event.Payload)); err != nil {
			log.Error("trigger dispatch failed", zap.String("type", event.Type), zap.Error(err))
		}
	})
	if err != nil {
		log.Fatal("failed to subscribe to trigger events", zap.Error(err))
	}

	// Schedule triggers
	sched := scheduler.New(scheduler.Config{
		DailyHour: cfg.ScheduleDailyHour,
		WeeklyDay: cfg.ScheduleWeeklyDay,
		Location:  cfg.ScheduleLocation,
	}, scheduler.NewRedisLocker(rdb), automationService.Dispatch, log)
	go sched.Run(ctx, cfg.ScheduleCheckEvery)

	// Health and metrics
	ops := apphttp.NewApp()
	apphttp.SetupOpsRouter(ops, m)
	go func() {
		addr := fmt.Sprintf(":%s", cfg.WorkerMetricsPort)
		if err := ops.Listen(addr); err != nil {
			log.Error("metrics listener stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()

	log.Info("worker started",
		zap.Int("daily_hour", cfg.ScheduleDailyHour),
		zap.String("weekly_day", cfg.ScheduleWeeklyDay.String()),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down worker")
	cancel()
	_ = ops.Shutdown()
}
