package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"budgetme/internal/config"
	"budgetme/internal/events"
	"budgetme/internal/log"
	"budgetme/internal/storage"
	"budgetme/internal/worker"
)

const notificationQueue = "budgetme.notifications"

func main() {
	once := flag.Bool("once", false, "run one maintenance pass and exit")
	flag.Parse()

	_ = godotenv.Load()

	cfg := config.Load()

	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Component: log.ComponentWorker,
	})
	log.SetDefault(logger)

	logger.Info("Starting maintenance-worker")

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("Failed to initialize storage", log.FieldError, err)
		os.Exit(1)
	}
	defer store.Close()

	maint := worker.NewMaintenance(store, cfg.QuotaResetSchedule, cfg.CachePurgeSchedule, logger)

	if *once {
		if err := maint.RunOnce(ctx); err != nil {
			logger.Error("Maintenance pass failed", log.FieldError, err)
			os.Exit(1)
		}
		logger.Info("Maintenance pass complete")
		return
	}

	if err := maint.Start(); err != nil {
		logger.Error("Failed to start maintenance schedules", log.FieldError, err)
		os.Exit(1)
	}
	defer maint.Stop()

	// The event feed turns threshold and completion events into user
	// notifications. Without AMQP the worker still runs the cron jobs.
	if cfg.AMQPURL != "" {
		feed, err := events.NewFeed(cfg.AMQPURL, cfg.AMQPExchange, notificationQueue, logger)
		if err != nil {
			logger.Warn("Failed to initialize event feed, continuing without notifications", log.FieldError, err)
		} else {
			defer feed.Close()
			if err := subscribeNotifications(feed, store); err != nil {
				logger.Error("Failed to subscribe to events", log.FieldError, err)
				os.Exit(1)
			}
			go func() {
				if err := feed.Run(ctx); err != nil && ctx.Err() == nil {
					logger.Error("Event feed stopped", log.FieldError, err)
				}
			}()
			logger.Info("Event feed initialized", "queue", notificationQueue)
		}
	}

	logger.Info("Maintenance schedules running",
		"quota_schedule", cfg.QuotaResetSchedule,
		"purge_schedule", cfg.CachePurgeSchedule,
	)

	<-ctx.Done()
	logger.Info("Worker stopped gracefully")
}

func subscribeNotifications(feed *events.Feed, store *storage.Store) error {
	if err := feed.Subscribe(events.KeyBudgetAlert, func(ctx context.Context, routingKey string, body []byte) error {
		var msg events.BudgetAlertMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return err
		}
		return store.CreateNotification(ctx, &storage.Notification{
			UserID: msg.UserID,
			Kind:   storage.KindBudgetAlert,
			Title:  fmt.Sprintf("Budget alert: %s", msg.CategoryName),
			Body: fmt.Sprintf("Your %s budget is %.0f%% used (%s).",
				msg.CategoryName, msg.PercentageUsed, msg.StatusIndicator),
		})
	}); err != nil {
		return err
	}

	return feed.Subscribe(events.KeyGoalCompleted, func(ctx context.Context, routingKey string, body []byte) error {
		var msg events.GoalCompletedMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return err
		}
		return store.CreateNotification(ctx, &storage.Notification{
			UserID: msg.UserID,
			Kind:   storage.KindGoalCompleted,
			Title:  fmt.Sprintf("Goal reached: %s", msg.Name),
			Body:   fmt.Sprintf("You hit your %.2f target for %q. Congratulations!", msg.TargetAmount, msg.Name),
		})
	})
}
