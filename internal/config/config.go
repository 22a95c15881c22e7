package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
// It is the single source of truth for runtime parameters.
type Config struct {
	Port           string
	Env            string
	AdminJWTSecret string

	DB      DatabaseConfig
	Redis   RedisConfig
	POS     POSConfig
	Discogs DiscogsConfig
	Webhook WebhookConfig
	Alert   AlertConfig
	Cache   CacheConfig
	Worker  WorkerConfig
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig contains Redis connection parameters.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// POSConfig contains credentials for the point-of-sale commerce API,
// the source of truth for catalog, inventory, and orders.
type POSConfig struct {
	BaseURL     string
	AccessToken string
	LocationID  string
}

// DiscogsConfig contains credentials and quota settings for the metadata
// enrichment API. Enrichment is disabled when Token is empty.
type DiscogsConfig struct {
	BaseURL           string
	Token             string
	UserAgent         string
	RequestsPerMinute int
}

// WebhookConfig holds the per-route HMAC secrets for inbound webhooks.
// Fallback secrets cover the rotation window and may be empty.
type WebhookConfig struct {
	InventorySecret         string
	InventorySecretFallback string
	OrdersSecret            string
	OrdersSecretFallback    string
}

// AlertConfig points at the external alerting collaborator. Alerts are
// disabled when WebhookURL is empty.
type AlertConfig struct {
	WebhookURL    string
	WebhookSecret string
}

// CacheConfig controls the catalog snapshot store.
type CacheConfig struct {
	Namespace   string
	SnapshotTTL time.Duration
}

// WorkerConfig contains interval configuration for background workers.
type WorkerConfig struct {
	RefreshInterval        time.Duration
	ReconcileInterval      time.Duration
	BackfillInterval       time.Duration
	OrderPropagationWindow time.Duration
	OrderLookback          time.Duration
	EnrichmentBatchLimit   int
}

// Load reads configuration from environment variables. If a .env file exists
// in the working directory, it will be loaded first. It returns a populated
// Config or an error with a human-friendly message.
func Load() (*Config, error) {
	// Load .env if present; ignore error if file is missing so that production
	// environments relying solely on real environment variables keep working.
	_ = godotenv.Load()

	cfg := &Config{}

	// Server
	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("ENV", "development")
	cfg.AdminJWTSecret = getEnv("ADMIN_JWT_SECRET", "")

	// Database
	cfg.DB = DatabaseConfig{
		Host:     getEnv("DB_HOST", ""),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", ""),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", ""),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	// Redis
	cfg.Redis = RedisConfig{
		Host:     getEnv("REDIS_HOST", "redis"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}

	// POS commerce API
	cfg.POS = POSConfig{
		BaseURL:     getEnv("POS_BASE_URL", ""),
		AccessToken: getEnv("POS_ACCESS_TOKEN", ""),
		LocationID:  getEnv("POS_LOCATION_ID", ""),
	}

	// Discogs enrichment API. The quota default stays conservatively below
	// the vendor's stated 60 requests per minute.
	cfg.Discogs = DiscogsConfig{
		BaseURL:           getEnv("DISCOGS_BASE_URL", "https://api.discogs.com"),
		Token:             getEnv("DISCOGS_TOKEN", ""),
		UserAgent:         getEnv("DISCOGS_USER_AGENT", "CratesideShop/1.0"),
		RequestsPerMinute: getEnvInt("DISCOGS_REQUESTS_PER_MINUTE", 50),
	}

	// Webhook signature secrets
	cfg.Webhook = WebhookConfig{
		InventorySecret:         getEnv("INVENTORY_WEBHOOK_SECRET", ""),
		InventorySecretFallback: getEnv("INVENTORY_WEBHOOK_SECRET_FALLBACK", ""),
		OrdersSecret:            getEnv("ORDERS_WEBHOOK_SECRET", ""),
		OrdersSecretFallback:    getEnv("ORDERS_WEBHOOK_SECRET_FALLBACK", ""),
	}

	// Alerting collaborator
	cfg.Alert = AlertConfig{
		WebhookURL:    getEnv("ALERT_WEBHOOK_URL", ""),
		WebhookSecret: getEnv("ALERT_WEBHOOK_SECRET", ""),
	}

	// Catalog snapshot cache
	cfg.Cache.Namespace = getEnv("CATALOG_CACHE_NAMESPACE", "storefront")

	var err error
	if cfg.Cache.SnapshotTTL, err = parseDurationEnv("CATALOG_CACHE_TTL", "24h"); err != nil {
		return nil, fmt.Errorf("invalid CATALOG_CACHE_TTL: %w", err)
	}

	// Workers (durations)
	if cfg.Worker.RefreshInterval, err = parseDurationEnv("REFRESH_INTERVAL", "15m"); err != nil {
		return nil, fmt.Errorf("invalid REFRESH_INTERVAL: %w", err)
	}
	if cfg.Worker.ReconcileInterval, err = parseDurationEnv("RECONCILE_INTERVAL", "1h"); err != nil {
		return nil, fmt.Errorf("invalid RECONCILE_INTERVAL: %w", err)
	}
	if cfg.Worker.BackfillInterval, err = parseDurationEnv("BACKFILL_INTERVAL", "1m"); err != nil {
		return nil, fmt.Errorf("invalid BACKFILL_INTERVAL: %w", err)
	}
	if cfg.Worker.OrderPropagationWindow, err = parseDurationEnv("ORDER_PROPAGATION_WINDOW", "10m"); err != nil {
		return nil, fmt.Errorf("invalid ORDER_PROPAGATION_WINDOW: %w", err)
	}
	if cfg.Worker.OrderLookback, err = parseDurationEnv("RECONCILE_ORDER_LOOKBACK", "24h"); err != nil {
		return nil, fmt.Errorf("invalid RECONCILE_ORDER_LOOKBACK: %w", err)
	}
	cfg.Worker.EnrichmentBatchLimit = getEnvInt("ENRICHMENT_BATCH_LIMIT", 25)

	if cfg.DB.Host == "" || cfg.DB.User == "" || cfg.DB.Name == "" {
		return nil, errors.New("database configuration incomplete: ensure DB_HOST, DB_USER, and DB_NAME are set")
	}

	// Webhook secrets are mandatory: an unset secret would turn signature
	// verification into an open door.
	if cfg.Webhook.InventorySecret == "" || cfg.Webhook.OrdersSecret == "" {
		return nil, errors.New("webhook configuration incomplete: ensure INVENTORY_WEBHOOK_SECRET and ORDERS_WEBHOOK_SECRET are set")
	}

	// The sync engine is pointless without its source of truth.
	if cfg.POS.BaseURL == "" || cfg.POS.AccessToken == "" {
		return nil, errors.New("POS configuration incomplete: ensure POS_BASE_URL and POS_ACCESS_TOKEN are set")
	}

	// Validate ADMIN_JWT_SECRET
	if cfg.AdminJWTSecret == "" {
		return nil, errors.New("ADMIN_JWT_SECRET must be set for admin authentication")
	}

	return cfg, nil
}

// getEnv returns the value of an environment variable or a default if empty.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the value of an environment variable as an integer or a default if empty/invalid.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// parseDurationEnv reads an environment variable and parses it as time.Duration.
// If the variable is empty, it falls back to the provided default value.
func parseDurationEnv(key, def string) (time.Duration, error) {
	raw := getEnv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be >= 0")
	}
	return d, nil
}
