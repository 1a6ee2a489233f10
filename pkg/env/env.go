package env

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv  string
	AppPort string
	TZ      string

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
	TokenTTLMin int

	RedisURL string

	MongoURI string
	DBName   string

	// Per-invocation budget for business tool handlers.
	ToolTimeoutMs int

	// Requests per minute allowed per call token on events/tools routes.
	CallRateLimitRPM int

	ProviderWebhookSecret string
	// External URL the vendor signs webhook requests against.
	PublicBaseURL string

	SMSServiceURL string
	SMSTimeoutMs  int

	DefaultTenantID   string
	DefaultTenantName string
	DefaultAgentID    string
	DefaultAgentName  string
	BrandName         string

	LogLevel           string
	CORSAllowedOrigins string

	OTELEndpoint string
	OTELEnabled  bool
}

func Load(envFile string) (*Config, error) {
	if envFile != "" {
		// Missing .env is fine - production runs on environment variables only.
		if err := godotenv.Load(envFile); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		AppEnv:  getEnv("APP_ENV", "development"),
		AppPort: getEnv("APP_PORT", "8080"),
		TZ:      getEnv("TZ", "America/Chicago"),

		JWTSecret:   mustGetEnv("JWT_SECRET"),
		JWTIssuer:   getEnv("JWT_ISSUER", "cora-call-gateway"),
		JWTAudience: getEnv("JWT_AUDIENCE", "cora-voice"),
		TokenTTLMin: getEnvInt("JWT_TTL_MIN", 15),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:   getEnv("DB_NAME", "cora"),

		ToolTimeoutMs:    getEnvInt("TOOL_TIMEOUT_MS", 5000),
		CallRateLimitRPM: getEnvInt("CALL_RATE_LIMIT_RPM", 600),

		ProviderWebhookSecret: getEnv("PROVIDER_WEBHOOK_SECRET", ""),
		PublicBaseURL:         getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),

		SMSServiceURL: getEnv("SMS_SERVICE_URL", ""),
		SMSTimeoutMs:  getEnvInt("SMS_TIMEOUT_MS", 3000),

		DefaultTenantID:   getEnv("DEFAULT_TENANT_ID", "default"),
		DefaultTenantName: getEnv("DEFAULT_TENANT_NAME", "Ray Richards Real Estate"),
		DefaultAgentID:    getEnv("DEFAULT_AGENT_ID", "agt_ray"),
		DefaultAgentName:  getEnv("DEFAULT_AGENT_NAME", "Ray Richards"),
		BrandName:         getEnv("BRAND_NAME", "CORA"),

		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),

		OTELEndpoint: getEnv("OTEL_ENDPOINT", ""),
		OTELEnabled:  getEnvBool("OTEL_ENABLED", false),
	}

	loc, err := time.LoadLocation(cfg.TZ)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", cfg.TZ, err)
	}
	time.Local = loc

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustGetEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	strValue := os.Getenv(key)
	if strValue == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	strValue := os.Getenv(key)
	if strValue == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(strValue)
	if err != nil {
		return defaultValue
	}
	return value
}
