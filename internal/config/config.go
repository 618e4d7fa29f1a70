// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Session store backends accepted by SESSION_STORE.
const (
	SessionStorePostgres = "postgres"
	SessionStoreRedis    = "redis"
)

// Client IP sources accepted by IP_SOURCE.
const (
	IPSourceRequest = "request"
	IPSourceEcho    = "echo"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the JSON API listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr is the address the gRPC health server listens on (e.g. :9090).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// LogPretty switches to the human-readable console writer.
	LogPretty bool `mapstructure:"LOG_PRETTY"`

	// AuthJWTSecret is the HS256 secret shared with the hosted auth service. Either this or AuthJWTPublicKey must be set.
	AuthJWTSecret string `mapstructure:"AUTH_JWT_SECRET"`
	// AuthJWTPublicKey is a PEM public key (inline or file path) for RS256/ES256 identity tokens.
	AuthJWTPublicKey string `mapstructure:"AUTH_JWT_PUBLIC_KEY"`
	// AuthJWTIssuer is the expected iss claim; empty skips the check.
	AuthJWTIssuer string `mapstructure:"AUTH_JWT_ISSUER"`
	// AuthJWTAudience is the expected aud claim; empty skips the check.
	AuthJWTAudience string `mapstructure:"AUTH_JWT_AUDIENCE"`

	// MaxDevicesPerAccount caps registered devices per account.
	MaxDevicesPerAccount int `mapstructure:"MAX_DEVICES_PER_ACCOUNT"`
	// SessionTTL is the active-session lifetime (e.g. "24h").
	SessionTTL string `mapstructure:"SESSION_TTL"`
	// SessionStore selects the ActiveSession backend: postgres or redis.
	SessionStore string `mapstructure:"SESSION_STORE"`
	// RedisURL is the redis:// URL used when SessionStore is redis.
	RedisURL string `mapstructure:"REDIS_URL"`
	// StrictAtomicity serializes check-then-act sequences per account with a Postgres advisory lock.
	StrictAtomicity bool `mapstructure:"STRICT_ATOMICITY"`
	// IndeterminatePolicy decides what a failed gate evaluation resolves to: allow or deny.
	IndeterminatePolicy string `mapstructure:"INDETERMINATE_POLICY"`

	// IPSource selects how the client IP is resolved: request headers, or the address the browser
	// looked up from an IP-echo service and sent in X-Client-Echo-IP.
	IPSource string `mapstructure:"IP_SOURCE"`

	// CORSOrigins is a comma-separated list of allowed browser origins.
	CORSOrigins string `mapstructure:"CORS_ORIGINS"`
	// RateLimitPerMinute is the per-IP request budget for the JSON API.
	RateLimitPerMinute int `mapstructure:"RATE_LIMIT_PER_MINUTE"`
	// BrandName is the watermark fallback when the viewer has neither name nor email.
	BrandName string `mapstructure:"BRAND_NAME"`

	// OTLPEndpoint is the OpenTelemetry collector endpoint; empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext gRPC to the collector.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// KafkaBrokers is a comma-separated list of Kafka broker addresses. Empty disables security events.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// KafkaTopic is the topic for security events.
	KafkaTopic string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`
	// KafkaGroupID is the consumer group ID for the worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
	// LokiURL is where the worker pushes events (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("GRPC_ADDR", ":9090")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)
	v.SetDefault("AUTH_JWT_SECRET", "")
	v.SetDefault("AUTH_JWT_PUBLIC_KEY", "")
	v.SetDefault("AUTH_JWT_ISSUER", "")
	v.SetDefault("AUTH_JWT_AUDIENCE", "authenticated")
	v.SetDefault("MAX_DEVICES_PER_ACCOUNT", 2)
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("SESSION_STORE", SessionStorePostgres)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("STRICT_ATOMICITY", false)
	v.SetDefault("INDETERMINATE_POLICY", "allow")
	v.SetDefault("IP_SOURCE", IPSourceRequest)
	v.SetDefault("CORS_ORIGINS", "")
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 120)
	v.SetDefault("BRAND_NAME", "Academy")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("TELEMETRY_KAFKA_TOPIC", "course-guard-events")
	v.SetDefault("KAFKA_GROUP_ID", "course-guard-worker")
	v.SetDefault("LOKI_URL", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.MaxDevicesPerAccount < 1 {
		return nil, errors.New("config: MAX_DEVICES_PER_ACCOUNT must be at least 1")
	}
	switch cfg.SessionStore {
	case SessionStorePostgres:
	case SessionStoreRedis:
		if cfg.RedisURL == "" {
			return nil, errors.New("config: REDIS_URL is required when SESSION_STORE=redis")
		}
	default:
		return nil, errors.New("config: SESSION_STORE must be postgres or redis")
	}
	switch cfg.IndeterminatePolicy {
	case "allow", "deny":
	default:
		return nil, errors.New("config: INDETERMINATE_POLICY must be allow or deny")
	}
	switch cfg.IPSource {
	case IPSourceRequest, IPSourceEcho:
	default:
		return nil, errors.New("config: IP_SOURCE must be request or echo")
	}
	if cfg.Env == "production" && cfg.AuthJWTSecret == "" && cfg.AuthJWTPublicKey == "" {
		return nil, errors.New("config: AUTH_JWT_SECRET or AUTH_JWT_PUBLIC_KEY must be set when APP_ENV=production")
	}
	if cfg.RateLimitPerMinute <= 0 {
		cfg.RateLimitPerMinute = 120
	}

	return &cfg, nil
}

// SessionLifetime parses SessionTTL as a time.Duration. Returns 24h if unset or invalid.
func (c *Config) SessionLifetime() time.Duration {
	d, err := time.ParseDuration(c.SessionTTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if security events are enabled (non-empty list) and to create the producer.
func (c *Config) KafkaBrokersList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.KafkaBrokers)
}

// CORSOriginsList returns the allowed origins; empty means CORS is not configured.
func (c *Config) CORSOriginsList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.CORSOrigins)
}

// DenyIndeterminate reports whether failed gate evaluations should block instead of pass.
func (c *Config) DenyIndeterminate() bool {
	return c != nil && c.IndeterminatePolicy == "deny"
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
