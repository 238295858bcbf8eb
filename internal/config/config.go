package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	ServiceName    = "suprabhat-groceries"
	ServiceVersion = "1.0.0"
)

const (
	TopicOrderCreated       = "order.created"
	TopicOrderStatusChanged = "order.status_changed"
	NotificationGroupID     = "notification-worker"
)

// API holds the configuration of the HTTP server binary. KafkaBrokers and
// RedisAddr are optional: without brokers order events are not published,
// without Redis catalog reads skip the cache.
type API struct {
	Port         string
	PostgresURL  string
	KafkaBrokers []string
	RedisAddr    string
	JWTSecret    string
}

// Worker holds the configuration of the notification worker binary.
type Worker struct {
	KafkaBrokers       []string
	EmailGatewayURL    string
	WhatsAppGatewayURL string
}

func LoadAPI() (*API, error) {
	cfg := &API{
		Port:         getenv("PORT", "8080"),
		PostgresURL:  os.Getenv("POSTGRES_URL"),
		KafkaBrokers: splitBrokers(os.Getenv("KAFKA_BROKERS")),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
	}

	if cfg.PostgresURL == "" {
		return nil, fmt.Errorf("POSTGRES_URL environment variable is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	return cfg, nil
}

func LoadWorker() (*Worker, error) {
	cfg := &Worker{
		KafkaBrokers:       splitBrokers(os.Getenv("KAFKA_BROKERS")),
		EmailGatewayURL:    os.Getenv("EMAIL_GATEWAY_URL"),
		WhatsAppGatewayURL: os.Getenv("WHATSAPP_GATEWAY_URL"),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS environment variable is required")
	}
	if cfg.EmailGatewayURL == "" {
		return nil, fmt.Errorf("EMAIL_GATEWAY_URL environment variable is required")
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitBrokers(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
