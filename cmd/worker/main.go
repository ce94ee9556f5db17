package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"testimonials/internal/app"
	"testimonials/internal/config"
	"testimonials/internal/logger"
	"testimonials/internal/worker"
	"testimonials/internal/worker/processors"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize logger
	logger := logger.New(cfg.LogLevel)
	defer logger.Sync()

	if len(cfg.KafkaBrokers) == 0 {
		logger.Fatal("KAFKA_BROKERS is required for the worker")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Cannot generate testimonials: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize: %v", err)
	}
	defer a.Close()

	// Initialize worker
	w := worker.New(cfg, processors.NewEventProcessor(a.Service, logger), logger)

	// Start worker
	logger.Info("Starting worker...")
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	cancel()
	<-done
	w.Stop()
}
