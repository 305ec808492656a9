package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"alert-escalation-service/internal/api"
	"alert-escalation-service/internal/config"
	"alert-escalation-service/internal/db"
	"alert-escalation-service/internal/escalation"
	"alert-escalation-service/internal/kafka"
	"alert-escalation-service/internal/logging"
	"alert-escalation-service/internal/notifier"
	"alert-escalation-service/internal/scheduler"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	// Connect to database
	dbConn, err := db.New(cfg.DB.DSN)
	if err != nil {
		logger.Errorf("Failed to connect to database: %v", err)
		log.Fatalf("Database connection failed: %v", err)
	}
	defer dbConn.Close()

	// Notification dispatcher: WebSocket push + Telegram
	wsManager := notifier.NewWebSocketManager(logger)
	dispatcher := notifier.NewDispatcher(wsManager, dbConn, logger, cfg)

	// Escalation engine
	engine := escalation.New(dbConn, dbConn, dbConn, dispatcher, logger, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Sweep scheduler
	sched := scheduler.New(engine, logger,
		time.Duration(cfg.Escalation.SweepInterval)*time.Second,
		cfg.Escalation.RetentionDays)
	go sched.Run(ctx)

	// Kafka consumer for inbound alert events
	consumer := kafka.NewConsumer([]string{cfg.Kafka.Broker}, cfg.Kafka.Topic, cfg.Kafka.GroupID, engine, logger)
	go consumer.Start(ctx)

	// Start API server
	handler := api.NewHandler(dbConn, engine, sched, logger)
	router := api.NewRouter(handler, wsManager, logger, cfg)
	go func() {
		logger.Infof("Starting API server on %s", cfg.API.Port)
		if err := router.Run(cfg.API.Port); err != nil {
			logger.Errorf("API server failed: %v", err)
		}
	}()

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	logger.Infof("Shutting down...")
	cancel()
	consumer.Close()
	logger.Infof("Service stopped")
}
