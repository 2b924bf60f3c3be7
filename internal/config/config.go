// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, database selection, the LLM client, chatbot tuning, rate limiting,
// admin authentication and observability.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool          `env:"ENABLE_HSTS" envDefault:"false"`
	HSTSMaxAge time.Duration `env:"HSTS_MAX_AGE" envDefault:"4320h"`
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    `env:"OTEL_ENABLED" envDefault:"false"`
	Endpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	Insecure    bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	ServiceName string  `env:"OTEL_SERVICE_NAME" envDefault:"go-travel-portal"`
	SampleRatio float64 `env:"OTEL_TRACES_SAMPLER_ARG" envDefault:"1.0"`
}

// LLMConfig configures the chat completion backend.
type LLMConfig struct {
	Provider        string        `env:"LLM_PROVIDER" envDefault:"openai"` // openai|echo
	BaseURL         string        `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	APIKey          string        `env:"LLM_API_KEY"`
	Model           string        `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	Timeout         time.Duration `env:"LLM_TIMEOUT" envDefault:"30s"`
	MaxTokens       int           `env:"LLM_MAX_TOKENS" envDefault:"800"`
	Temperature     float64       `env:"LLM_TEMPERATURE" envDefault:"0.7"`
	BreakerFailures uint32        `env:"LLM_BREAKER_FAILURES" envDefault:"5"`
	BreakerCooldown time.Duration `env:"LLM_BREAKER_COOLDOWN" envDefault:"30s"`
}

// ChatConfig tunes the chatbot pipeline.
type ChatConfig struct {
	HistoryWindow          int  `env:"CHAT_HISTORY_WINDOW" envDefault:"10"`
	SearchLimit            int  `env:"CHAT_SEARCH_LIMIT" envDefault:"5"`
	MaxMessageRunes        int  `env:"CHAT_MAX_MESSAGE_RUNES" envDefault:"2000"`
	SerializeConversations bool `env:"CHAT_SERIALIZE_CONVERSATIONS" envDefault:"true"`
	CategoryCacheSize      int  `env:"CATEGORY_CACHE_SIZE" envDefault:"256"`
}

// AuthConfig configures JWT verification for admin endpoints. Admin routes
// are disabled when JWTSecret is empty.
type AuthConfig struct {
	JWTSecret   string `env:"ADMIN_JWT_SECRET"`
	JWTIssuer   string `env:"ADMIN_JWT_ISSUER"`
	JWTAudience string `env:"ADMIN_JWT_AUDIENCE"`
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        `env:"PORT" envDefault:"8080"`
	ReadTimeout       time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" envDefault:"10s"`
	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT" envDefault:"60s"`
	IdleTimeout       time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	MaxHeaderBytes    int           `env:"MAX_HEADER_BYTES" envDefault:"1048576"`
	GinMode           string        `env:"GIN_MODE" envDefault:"release"` // debug|release|test

	// Logging / Docs
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty      bool   `env:"LOG_PRETTY" envDefault:"false"`
	SwaggerEnabled bool   `env:"SWAGGER_ENABLED" envDefault:"false"`
	APIBasePath    string `env:"API_BASE_PATH" envDefault:"/api/v1"`

	// Storage
	DBDriver    string `env:"DB_DRIVER" envDefault:"sqlite"` // sqlite|postgres
	DBPath      string `env:"DB_PATH" envDefault:"portal.db"`
	DatabaseURL string `env:"DATABASE_URL"`
	SeedOnStart bool   `env:"SEED_ON_START" envDefault:"true"`
	RedisURL    string `env:"REDIS_URL"`

	// Knowledge base override; the embedded document is used when empty.
	KnowledgePath string `env:"KNOWLEDGE_PATH"`

	// Rate limiting
	RateRPS   float64 `env:"RATE_RPS" envDefault:"5"`
	RateBurst int     `env:"RATE_BURST" envDefault:"10"`

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`

	LLM  LLMConfig
	Chat ChatConfig
	Auth AuthConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env config: %w", err)
	}

	// --- normalization ---
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	cfg.GinMode = strings.ToLower(cfg.GinMode)
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	cfg.LLM.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.LLM.BaseURL), "/")
	cfg.APIBasePath = normalizeBasePath(cfg.APIBasePath)
	cfg.CORS.AllowedOrigins = compact(cfg.CORS.AllowedOrigins)

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.DBDriver {
	case "sqlite":
		if strings.TrimSpace(cfg.DBPath) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return cfg, errors.New("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	switch cfg.LLM.Provider {
	case "openai":
		if cfg.LLM.BaseURL == "" {
			return cfg, errors.New("LLM_BASE_URL must not be empty")
		}
	case "echo":
	default:
		return cfg, errors.New("LLM_PROVIDER must be one of: openai, echo")
	}
	if cfg.LLM.Timeout <= 0 {
		return cfg, errors.New("LLM_TIMEOUT must be > 0")
	}
	if cfg.Chat.HistoryWindow < 1 {
		return cfg, errors.New("CHAT_HISTORY_WINDOW must be >= 1")
	}
	if cfg.Chat.SearchLimit < 1 {
		return cfg, errors.New("CHAT_SEARCH_LIMIT must be >= 1")
	}
	if cfg.Chat.MaxMessageRunes < 1 {
		return cfg, errors.New("CHAT_MAX_MESSAGE_RUNES must be >= 1")
	}
	if cfg.Chat.CategoryCacheSize < 1 {
		return cfg, errors.New("CATEGORY_CACHE_SIZE must be >= 1")
	}

	return cfg, nil
}

// AdminEnabled reports whether admin routes should be mounted.
func (c Config) AdminEnabled() bool { return strings.TrimSpace(c.Auth.JWTSecret) != "" }

// compact trims every entry and drops empties.
func compact(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, p := range in {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
