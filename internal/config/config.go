package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppEnv   string
	LogLevel string
	RunLocal bool
	HTTPPort int

	OrdersTable      string
	PromoCodesTable  string
	IdempotencyTable string
	EventsQueueURL   string
	MetricsNamespace string
	IdempotencyTTL   time.Duration

	AdminToken    string
	WebhookSecret string

	GatewayBaseURL      string
	GatewayClientID     string
	GatewayClientSecret string
	GatewayScope        string
	GatewayTimeout      time.Duration

	FreeShippingThreshold int64
	StandardShippingCost  int64
	DeliveryCutoffHour    int
	DeliveryTimezone      string

	MailFrom string
}

func Load() Config {
	return Config{
		AppEnv:   getEnv("APP_ENV", "dev"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		RunLocal: getEnv("RUN_LOCAL", "") == "true",
		HTTPPort: getEnvInt("HTTP_PORT", 8080),

		OrdersTable:      getEnv("ORDERS_TABLE", "orders"),
		PromoCodesTable:  getEnv("PROMO_CODES_TABLE", "promo_codes"),
		IdempotencyTable: getEnv("IDEMPOTENCY_TABLE", "idempotency"),
		EventsQueueURL:   os.Getenv("EVENTS_QUEUE_URL"),
		MetricsNamespace: getEnv("METRICS_NAMESPACE", "Storefront/Settlement"),
		IdempotencyTTL:   getEnvDuration("IDEMPOTENCY_TTL", 30*24*time.Hour),

		AdminToken:    os.Getenv("ADMIN_TOKEN"),
		WebhookSecret: os.Getenv("WEBHOOK_SECRET"),

		GatewayBaseURL:      getEnv("GATEWAY_BASE_URL", "https://gw.sandbox.gopay.com/api"),
		GatewayClientID:     os.Getenv("GATEWAY_CLIENT_ID"),
		GatewayClientSecret: os.Getenv("GATEWAY_CLIENT_SECRET"),
		GatewayScope:        getEnv("GATEWAY_SCOPE", "payment-all"),
		GatewayTimeout:      getEnvDuration("GATEWAY_TIMEOUT", 10*time.Second),

		FreeShippingThreshold: int64(getEnvInt("FREE_SHIPPING_THRESHOLD", 2000)),
		StandardShippingCost:  int64(getEnvInt("STANDARD_SHIPPING_COST", 79)),
		DeliveryCutoffHour:    getEnvInt("DELIVERY_CUTOFF_HOUR", 14),
		DeliveryTimezone:      getEnv("DELIVERY_TIMEZONE", "Europe/Prague"),

		MailFrom: getEnv("MAIL_FROM", "objednavky@example.cz"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)

	if v == "" {
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}

	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}

	return d
}
