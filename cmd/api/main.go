package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/w3-80717/SuprabhatGroceries/internal/auth"
	"github.com/w3-80717/SuprabhatGroceries/internal/catalog"
	"github.com/w3-80717/SuprabhatGroceries/internal/config"
	"github.com/w3-80717/SuprabhatGroceries/internal/inventory"
	"github.com/w3-80717/SuprabhatGroceries/internal/messaging"
	"github.com/w3-80717/SuprabhatGroceries/internal/orders"
	"github.com/w3-80717/SuprabhatGroceries/internal/telemetry"
	"github.com/w3-80717/SuprabhatGroceries/internal/users"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.LoadAPI()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
		shutdown, err := telemetry.InitTracerProvider(ctx, config.ServiceName, config.ServiceVersion)
		if err != nil {
			logger.Error("failed to init tracer provider", "error", err)
			os.Exit(1)
		}
		defer func() { _ = shutdown(context.Background()) }()
	}

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(config.ServiceName, config.ServiceVersion)
	if err != nil {
		logger.Error("failed to init meter provider", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(context.Background()) }()

	if err := runtime.Start(); err != nil {
		logger.Warn("failed to start runtime instrumentation", "error", err)
	}

	db, err := telemetry.OpenDB("postgres", cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	var productCache *catalog.Cache
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, catalog cache disabled", "error", err)
		} else {
			productCache = catalog.NewCache(redisClient)
			defer func() { _ = redisClient.Close() }()
		}
	}

	var createdProducer, statusProducer *messaging.Producer
	if len(cfg.KafkaBrokers) > 0 {
		createdProducer = messaging.NewProducer(cfg.KafkaBrokers, config.TopicOrderCreated)
		defer func() { _ = createdProducer.Close() }()
		statusProducer = messaging.NewProducer(cfg.KafkaBrokers, config.TopicOrderStatusChanged)
		defer func() { _ = statusProducer.Close() }()
	} else {
		logger.Warn("KAFKA_BROKERS not set, order notifications disabled")
	}

	productRepo := catalog.NewProductRepository(db)
	ledger := inventory.NewLedger(db)
	userRepo := users.NewUserRepository(db)
	store := orders.NewPostgresStore(db, productRepo, ledger)

	// a typed-nil *Producer must not reach the workflow's nil checks
	var createdPub, statusPub orders.EventPublisher
	if createdProducer != nil {
		createdPub = createdProducer
	}
	if statusProducer != nil {
		statusPub = statusProducer
	}

	workflow := orders.NewWorkflow(store, userRepo, createdPub, statusPub, logger)

	orderHandler := orders.NewHandler(workflow, userRepo, logger)
	catalogHandler := catalog.NewHandler(productRepo, productCache, logger)
	inventoryHandler := inventory.NewHandler(ledger, logger)

	authed := auth.Middleware(cfg.JWTSecret, logger)
	admin := func(h http.HandlerFunc) http.Handler {
		return authed(auth.RequireAdmin(telemetry.WithHTTPRoute(h)))
	}
	user := func(h http.HandlerFunc) http.Handler {
		return authed(telemetry.WithHTTPRoute(h))
	}
	public := func(h http.HandlerFunc) http.Handler {
		return telemetry.WithHTTPRoute(h)
	}

	mux := http.NewServeMux()

	mux.Handle("GET /healthz", public(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	mux.Handle("GET /metrics", metricsHandler)

	mux.Handle("GET /products", public(catalogHandler.HandleList))
	mux.Handle("GET /products/{id}", public(catalogHandler.HandleGet))
	mux.Handle("GET /products/admin", admin(catalogHandler.HandleListAll))
	mux.Handle("POST /products", admin(catalogHandler.HandleCreate))
	mux.Handle("PUT /products/{id}", admin(catalogHandler.HandleUpdate))
	mux.Handle("DELETE /products/{id}", admin(catalogHandler.HandleDelete))

	mux.Handle("GET /stock", admin(inventoryHandler.HandleListStock))
	mux.Handle("GET /stock/{productId}", admin(inventoryHandler.HandleGetStock))
	mux.Handle("POST /stock/{productId}/restock", admin(inventoryHandler.HandleRestock))

	mux.Handle("POST /orders", user(orderHandler.HandleCreate))
	mux.Handle("GET /orders", user(orderHandler.HandleListMine))
	mux.Handle("GET /orders/admin", admin(orderHandler.HandleListAll))
	mux.Handle("GET /orders/{orderId}", user(orderHandler.HandleGet))
	mux.Handle("PUT /orders/admin/{orderId}/status", admin(orderHandler.HandleUpdateStatus))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelhttp.NewHandler(mux, "server"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting api server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
