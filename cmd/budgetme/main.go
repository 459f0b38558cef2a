package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"budgetme/internal/config"
	"budgetme/internal/events"
	apphttp "budgetme/internal/http"
	"budgetme/internal/insights"
	"budgetme/internal/log"
	"budgetme/internal/prediction"
	"budgetme/internal/services"
	"budgetme/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()

	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Component: log.ComponentApp,
	})
	log.SetDefault(logger)

	logger.Info("Starting budgetme server")

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	port, _ := strconv.Atoi(cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("Failed to initialize storage", log.FieldError, err)
		os.Exit(1)
	}
	defer store.Close()

	// Event publishing is optional; without AMQP the API runs in
	// standalone mode and alerts stay in the database.
	var (
		publisher *events.Publisher
		alerts    services.AlertPublisher
		goalEv    services.GoalEventPublisher
		predEv    prediction.EventPublisher
	)
	if cfg.AMQPURL != "" {
		publisher, err = events.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			logger.Warn("Failed to initialize event publisher, continuing without events", log.FieldError, err)
		} else {
			defer publisher.Close()
			alerts, goalEv, predEv = publisher, publisher, publisher
			logger.Info("Event publisher initialized", "exchange", cfg.AMQPExchange)
		}
	} else {
		logger.Info("AMQP disabled, events will not be published")
	}

	budgetSvc := services.NewBudgetService(store, alerts, logger)
	goalSvc := services.NewGoalService(store, goalEv, logger)
	txSvc := services.NewTransactionService(store, logger)

	insightClient := insights.NewClient(cfg.InsightsAPIURL, cfg.InsightsAPIKey, cfg.InsightsTimeout, logger)
	insightGen := insights.NewGenerator(insightClient, store, cfg.InsightsCacheTTL, logger)

	forecastClient := prediction.NewClient(cfg.ForecastAPIURL, cfg.ForecastAPIKey, cfg.ForecastTimeout, logger)
	engine := prediction.NewEngine(cfg.FallbackAnnualGrowth, cfg.IncomeEstimateFactor, logger)
	orchestrator := prediction.NewOrchestrator(prediction.Config{
		DailyLimit:      cfg.DailyPredictionLimit,
		MinTransactions: cfg.MinTransactions,
		CacheTTL:        cfg.PredictionCacheTTL,
		BranchTimeout:   cfg.BranchTimeout,
	}, store, store, txSvc, forecastClient, engine, insightGen, predEv, logger)

	srv := apphttp.NewServer(port, apphttp.Deps{
		Budgets:      budgetSvc,
		Goals:        goalSvc,
		Transactions: txSvc,
		Orchestrator: orchestrator,
		Insights:     insightGen,
		Store:        store,
		DailyLimit:   cfg.DailyPredictionLimit,
		IncomeFactor: cfg.IncomeEstimateFactor,
		Logger:       logger,
	})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cancel()
	}()

	logger.Info("Starting HTTP listener", "port", port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", log.FieldError, err, "port", port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
