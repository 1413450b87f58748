package config

import (
	"encoding/json"
	"log"
	"os"
	"strings"

	"outreach-gateway/internal/tenant"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string
	Env  string

	// Postgres DSN. When empty the server falls back to a local SQLite file.
	DatabaseURL string
	DBPath      string

	WebhookSecret          string
	WebhookAllowUnverified bool

	JWTSecret string

	DefaultTenant string
	TenantHosts   []tenant.Mapping

	WhatsAppBaseURL    string
	WhatsAppInstanceID string
	WhatsAppToken      string

	PlacesAPIKey string

	RedisAddr     string
	RedisPassword string

	AMQPURL      string
	AMQPExchange string
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: Error loading .env file")
	}

	cfg := &Config{
		Port:                   getEnv("PORT", "8080"),
		Env:                    getEnv("APP_ENV", "development"),
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		DBPath:                 getEnv("DB_PATH", "./outreach.db"),
		WebhookSecret:          getEnv("WEBHOOK_SECRET", ""),
		WebhookAllowUnverified: getBoolEnv("WEBHOOK_ALLOW_UNVERIFIED"),
		JWTSecret:              getEnv("JWT_SECRET", ""),
		DefaultTenant:          getEnv("DEFAULT_TENANT", ""),
		WhatsAppBaseURL:        getEnv("WHATSAPP_BASE_URL", ""),
		WhatsAppInstanceID:     getEnv("WHATSAPP_INSTANCE_ID", ""),
		WhatsAppToken:          getEnv("WHATSAPP_TOKEN", ""),
		PlacesAPIKey:           getEnv("PLACES_API_KEY", ""),
		RedisAddr:              getEnv("REDIS_ADDR", ""),
		RedisPassword:          getEnv("REDIS_PASSWORD", ""),
		AMQPURL:                getEnv("AMQP_URL", ""),
		AMQPExchange:           getEnv("AMQP_EXCHANGE", "outreach.events"),
	}

	cfg.TenantHosts = loadTenantHosts(cfg)

	if cfg.WebhookSecret == "" {
		log.Fatalf("WEBHOOK_SECRET is not configured; refusing to accept unauthenticated webhooks")
	}
	if cfg.JWTSecret == "" && cfg.IsProduction() {
		log.Fatalf("JWT_SECRET is required in production")
	}

	return cfg
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// loadTenantHosts parses the TENANT_HOSTS allowlist, a JSON array of
// {"host": "...", "prefixes": ["/..."], "ownerId": "..."} entries.
// The allowlist is parsed once at boot; changing it requires a restart.
func loadTenantHosts(cfg *Config) []tenant.Mapping {
	raw := os.Getenv("TENANT_HOSTS")
	if raw == "" {
		if cfg.IsProduction() && cfg.DefaultTenant == "" {
			log.Fatalf("TENANT_HOSTS is not configured and no DEFAULT_TENANT is set")
		}
		// Developer fallback: a single localhost entry bound to the default tenant.
		devTenant := cfg.DefaultTenant
		if devTenant == "" {
			devTenant = "dev"
		}
		return []tenant.Mapping{
			{Host: "localhost", Prefixes: []string{"/"}, OwnerID: devTenant},
		}
	}

	var hosts []tenant.Mapping
	if err := json.Unmarshal([]byte(raw), &hosts); err != nil {
		log.Fatalf("TENANT_HOSTS is not valid JSON: %v", err)
	}
	return hosts
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getBoolEnv(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "true" || v == "1"
}
