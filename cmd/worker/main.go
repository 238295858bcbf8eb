package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/w3-80717/SuprabhatGroceries/internal/config"
	"github.com/w3-80717/SuprabhatGroceries/internal/messaging"
	"github.com/w3-80717/SuprabhatGroceries/internal/notification"
	"github.com/w3-80717/SuprabhatGroceries/internal/telemetry"
	"github.com/w3-80717/SuprabhatGroceries/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.LoadWorker()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
		shutdown, err := telemetry.InitTracerProvider(ctx, config.ServiceName+"-worker", config.ServiceVersion)
		if err != nil {
			logger.Error("failed to init tracer provider", "error", err)
			os.Exit(1)
		}
		defer func() { _ = shutdown(context.Background()) }()
	}

	httpClient := &http.Client{
		Timeout: 10 * time.Second,
	}

	email := notification.NewEmailClient(cfg.EmailGatewayURL, httpClient)
	var whatsapp *notification.WhatsAppClient
	if cfg.WhatsAppGatewayURL != "" {
		whatsapp = notification.NewWhatsAppClient(cfg.WhatsAppGatewayURL, httpClient)
	}

	handler := worker.NewNotificationHandler(email, whatsapp, logger)

	createdConsumer := messaging.NewConsumer(cfg.KafkaBrokers, config.TopicOrderCreated, config.NotificationGroupID, logger)
	defer func() { _ = createdConsumer.Close() }()
	statusConsumer := messaging.NewConsumer(cfg.KafkaBrokers, config.TopicOrderStatusChanged, config.NotificationGroupID, logger)
	defer func() { _ = statusConsumer.Close() }()

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	logger.Info("starting notification worker", "brokers", cfg.KafkaBrokers)

	errCh := make(chan error, 2)
	go func() { errCh <- createdConsumer.Consume(ctx, handler.HandleOrderCreated) }()
	go func() { errCh <- statusConsumer.Consume(ctx, handler.HandleStatusChanged) }()

	err = <-errCh
	if ctx.Err() == context.Canceled {
		logger.Info("consumer stopped")
		return
	}
	logger.Error("consumer error", "error", err)
	os.Exit(1)
}
