package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/estate-crm/backend/internal/config"
	"github.com/estate-crm/backend/internal/db"
	"github.com/estate-crm/backend/internal/events"
	"github.com/estate-crm/backend/internal/services"
	"go.uber.org/zap"
)

// Notify bridge: forwards team notifications and queued emails published
// by automation runs to the team chat webhook.
func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	subscriber := events.NewRedisSubscriber(rdb, log)
	notifier := services.NewTeamNotifier(cfg.TeamNotifyWebhookURL, log)
	if cfg.TeamNotifyWebhookURL == "" {
		log.Warn("TEAM_NOTIFY_WEBHOOK_URL not set, notifications are dropped")
	}

	err = subscriber.Subscribe(ctx, events.StreamAutomation, func(event events.Event) {
		msg, ok := services.MessageFor(event)
		if !ok {
			return
		}
		log.Info("forwarding notification", zap.String("type", event.Type), zap.String("channel", msg.Channel))
		if err := notifier.Send(ctx, msg); err != nil {
			log.Warn("failed to forward notification", zap.Error(err))
		}
	})
	if err != nil {
		log.Fatal("failed to subscribe", zap.Error(err))
	}

	log.Info("notify-bridge started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down notify-bridge")
	cancel()
}
