package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ErrMissingSecrets is wrapped by MissingSecretsError.
var ErrMissingSecrets = errors.New("missing environment variables")

// Candidate strategies.
const (
	StrategyStatic    = "static"
	StrategyDiscovery = "discovery"
)

// Webhook modes.
const (
	WebhookModeSync  = "sync"
	WebhookModeQueue = "queue"
)

type Config struct {
	// Shopify
	ShopifyStore       string `envconfig:"SHOPIFY_STORE"`
	ShopifyAccessToken string `envconfig:"SHOPIFY_ACCESS_TOKEN"`
	ShopifyAPIVersion  string `envconfig:"SHOPIFY_API_VERSION" default:"2024-01"`

	// Generation backends
	OpenRouterAPIKey  string `envconfig:"OPENROUTER_API_KEY"`
	OpenRouterBaseURL string `envconfig:"OPENROUTER_BASE_URL" default:"https://openrouter.ai/api/v1"`
	GeminiAPIKey      string `envconfig:"GEMINI_API_KEY"`

	// Candidate resolution
	CandidateStrategy string   `envconfig:"CANDIDATE_STRATEGY" default:"static"`
	Candidates        []string `envconfig:"CANDIDATES"`
	MaxCandidates     int      `envconfig:"MAX_CANDIDATES" default:"8"`

	// Generation tuning
	Temperature      float32       `envconfig:"TEMPERATURE" default:"0.9"`
	MaxOutputTokens  int           `envconfig:"MAX_OUTPUT_TOKENS" default:"200"`
	RequestTimeout   time.Duration `envconfig:"REQUEST_TIMEOUT" default:"45s"`
	RateLimitBackoff time.Duration `envconfig:"RATE_LIMIT_BACKOFF" default:"4s"`
	RateLimitRetries int           `envconfig:"RATE_LIMIT_RETRIES" default:"2"`
	ErrorDelay       time.Duration `envconfig:"ERROR_DELAY" default:"2s"`

	// Bulk loop
	BulkDelay    time.Duration `envconfig:"BULK_DELAY" default:"2s"`
	BulkPageSize int           `envconfig:"BULK_PAGE_SIZE" default:"250"`

	// Journal database (optional)
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// Redis catalog cache (optional)
	RedisURL        string        `envconfig:"REDIS_URL"`
	CatalogCacheTTL time.Duration `envconfig:"CATALOG_CACHE_TTL" default:"1h"`

	// Kafka
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"product-events"`
	KafkaGroupID string   `envconfig:"KAFKA_GROUP_ID" default:"testimonial-worker"`
	WebhookMode  string   `envconfig:"WEBHOOK_MODE" default:"sync"`

	// API Configuration
	APIPort string `envconfig:"API_PORT" default:"8080"`
	APIHost string `envconfig:"API_HOST" default:"0.0.0.0"`

	// Environment
	Env      string `envconfig:"ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// A missing .env file is normal in deployed environments.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.ShopifyStore = SanitizeStoreDomain(cfg.ShopifyStore)
	cfg.CandidateStrategy = strings.ToLower(strings.TrimSpace(cfg.CandidateStrategy))
	cfg.WebhookMode = strings.ToLower(strings.TrimSpace(cfg.WebhookMode))

	return &cfg, nil
}

// MissingSecretsError lists the required variables that are unset.
type MissingSecretsError struct {
	Missing  []string
	Required []string
}

func (e *MissingSecretsError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingSecrets, strings.Join(e.Missing, ", "))
}

func (e *MissingSecretsError) Unwrap() error {
	return ErrMissingSecrets
}

// RequiredSecrets names the variables a generation call needs. One of the two
// backend keys is enough.
var RequiredSecrets = []string{"SHOPIFY_STORE", "SHOPIFY_ACCESS_TOKEN", "OPENROUTER_API_KEY or GEMINI_API_KEY"}

// Validate reports a *MissingSecretsError when a required secret is absent.
func (c *Config) Validate() error {
	var missing []string
	if c.ShopifyStore == "" {
		missing = append(missing, "SHOPIFY_STORE")
	}
	if c.ShopifyAccessToken == "" {
		missing = append(missing, "SHOPIFY_ACCESS_TOKEN")
	}
	if !c.HasOpenRouter() && !c.HasGemini() {
		missing = append(missing, "OPENROUTER_API_KEY or GEMINI_API_KEY")
	}
	if len(missing) > 0 {
		return &MissingSecretsError{Missing: missing, Required: RequiredSecrets}
	}
	return nil
}

func (c *Config) HasOpenRouter() bool { return c.OpenRouterAPIKey != "" }

func (c *Config) HasGemini() bool { return c.GeminiAPIKey != "" }

func (c *Config) QueueWebhooks() bool {
	return c.WebhookMode == WebhookModeQueue && len(c.KafkaBrokers) > 0
}

// SanitizeStoreDomain accepts "shop", "shop.myshopify.com" or a full URL and
// returns the bare host.
func SanitizeStoreDomain(store string) string {
	store = strings.TrimSpace(strings.ToLower(store))
	store = strings.TrimPrefix(store, "https://")
	store = strings.TrimPrefix(store, "http://")
	store = strings.TrimSuffix(store, "/")
	if store != "" && !strings.Contains(store, ".") {
		store += ".myshopify.com"
	}
	return store
}

// Mask shows only the first few characters of a secret.
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	n := 10
	if len(secret) <= n {
		n = len(secret) / 2
	}
	return secret[:n] + "..."
}
