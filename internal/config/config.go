// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Token store backends accepted by TOKEN_STORE.
const (
	TokenStoreMemory   = "memory"
	TokenStoreRedis    = "redis"
	TokenStorePostgres = "postgres"
	TokenStoreSQLite   = "sqlite"
)

// Route policy evaluators accepted by ROUTE_POLICY.
const (
	RoutePolicyBuiltin = "builtin"
	RoutePolicyOPA     = "opa"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the BFF HTTP server listens on (e.g. :3000).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// HealthGRPCAddr is the address of the optional gRPC health server; empty disables it.
	HealthGRPCAddr string `mapstructure:"HEALTH_GRPC_ADDR"`
	// Env is the application environment (e.g. "development", "production"). Production turns on secure cookies.
	Env string `mapstructure:"APP_ENV"`

	// UpstreamBaseURL is the base URL of the beneficiary management API (e.g. https://mis.fly.dev/api/v1).
	UpstreamBaseURL string `mapstructure:"UPSTREAM_BASE_URL"`
	// UpstreamTimeout is the per-request timeout for upstream calls (e.g. "15s").
	UpstreamTimeout string `mapstructure:"UPSTREAM_TIMEOUT"`

	// TokenStore selects the durable token storage: memory, redis, postgres or sqlite.
	TokenStore string `mapstructure:"TOKEN_STORE"`
	// TokenStoreTTL bounds how long a persisted token is kept (e.g. "720h"). Independent of the 7-day cookie.
	TokenStoreTTL string `mapstructure:"TOKEN_STORE_TTL"`
	// DatabaseURL is the Postgres DSN; required when TokenStore is postgres.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// SQLitePath is the database file used when TokenStore is sqlite.
	SQLitePath string `mapstructure:"SQLITE_PATH"`
	// RedisAddr is host:port of the Redis server; required when TokenStore is redis.
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// RedisPassword is the optional Redis password.
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	// RedisDB selects the Redis logical database.
	RedisDB int `mapstructure:"REDIS_DB"`
	// SerializeSessionWrites when true serializes SetToken/ClearToken per browser client.
	SerializeSessionWrites bool `mapstructure:"SESSION_SERIALIZE_WRITES"`

	// RoutePolicy selects the route guard evaluator: builtin or opa.
	RoutePolicy string `mapstructure:"ROUTE_POLICY"`
	// RoutePolicyFile is an optional Rego file overriding the embedded route policy (opa only).
	RoutePolicyFile string `mapstructure:"ROUTE_POLICY_FILE"`

	// LogLevel is the zap level (debug, info, warn, error).
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// OTLPEndpoint is the OTLP gRPC collector endpoint; empty means no-op telemetry providers.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces a plaintext connection to the collector.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// Dev upstream only: listen address and seeded credentials.
	DevUpstreamAddr     string `mapstructure:"DEV_UPSTREAM_ADDR"`
	DevUpstreamEmail    string `mapstructure:"DEV_UPSTREAM_EMAIL"`
	DevUpstreamPassword string `mapstructure:"DEV_UPSTREAM_PASSWORD"`
	// DevUpstreamSigningKey is a PEM private key (inline or path) for dev upstream tokens;
	// empty generates an ES256 key per run.
	DevUpstreamSigningKey string `mapstructure:"DEV_UPSTREAM_SIGNING_KEY"`
	// BcryptCost is the bcrypt cost factor (4–31) used by the dev upstream; default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":3000")
	v.SetDefault("HEALTH_GRPC_ADDR", "")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("UPSTREAM_BASE_URL", "https://mis.fly.dev/api/v1")
	v.SetDefault("UPSTREAM_TIMEOUT", "15s")
	v.SetDefault("TOKEN_STORE", TokenStoreMemory)
	v.SetDefault("TOKEN_STORE_TTL", "720h") // 30d
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("SQLITE_PATH", "data/sessions.db")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SESSION_SERIALIZE_WRITES", true)
	v.SetDefault("ROUTE_POLICY", RoutePolicyBuiltin)
	v.SetDefault("ROUTE_POLICY_FILE", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("DEV_UPSTREAM_ADDR", ":4000")
	v.SetDefault("DEV_UPSTREAM_EMAIL", "admin@example.com")
	v.SetDefault("DEV_UPSTREAM_PASSWORD", "password123")
	v.SetDefault("DEV_UPSTREAM_SIGNING_KEY", "")
	v.SetDefault("BCRYPT_COST", 12)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	cfg.UpstreamBaseURL = strings.TrimRight(strings.TrimSpace(cfg.UpstreamBaseURL), "/")
	u, err := url.Parse(cfg.UpstreamBaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, errors.New("config: UPSTREAM_BASE_URL must be an absolute http(s) URL")
	}

	cfg.TokenStore = strings.ToLower(strings.TrimSpace(cfg.TokenStore))
	switch cfg.TokenStore {
	case TokenStoreMemory, TokenStoreSQLite:
	case TokenStoreRedis:
		if cfg.RedisAddr == "" {
			return nil, errors.New("config: REDIS_ADDR must be set when TOKEN_STORE=redis")
		}
	case TokenStorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("config: DATABASE_URL must be set when TOKEN_STORE=postgres")
		}
	default:
		return nil, errors.New("config: TOKEN_STORE must be one of memory, redis, postgres, sqlite")
	}

	cfg.RoutePolicy = strings.ToLower(strings.TrimSpace(cfg.RoutePolicy))
	if cfg.RoutePolicy != RoutePolicyBuiltin && cfg.RoutePolicy != RoutePolicyOPA {
		return nil, errors.New("config: ROUTE_POLICY must be builtin or opa")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	return &cfg, nil
}

// Secure reports whether cookies must carry the Secure attribute (production only).
func (c *Config) Secure() bool {
	return c != nil && c.Env == "production"
}

// UpstreamTimeoutDuration parses UpstreamTimeout. Returns 15s if unset or invalid.
func (c *Config) UpstreamTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.UpstreamTimeout)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// TokenStoreTTLDuration parses TokenStoreTTL. Returns 720h if unset or invalid.
func (c *Config) TokenStoreTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.TokenStoreTTL)
	if err != nil || d <= 0 {
		return 720 * time.Hour
	}
	return d
}
