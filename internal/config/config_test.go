package config

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

// --- MustLoad ---

func TestMustLoad_PanicsOnInvalidConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose") // invalid -> Load() error
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("MustLoad should panic on invalid config")
		}
	}()
	_ = MustLoad()
}

// --- defaults ---

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != "8080" || cfg.GinMode != "release" || cfg.APIBasePath != "/api/v1" {
		t.Fatalf("server defaults unexpected: %+v", cfg)
	}
	if cfg.DBDriver != "sqlite" || cfg.DBPath != "portal.db" || !cfg.SeedOnStart {
		t.Fatalf("storage defaults unexpected: %+v", cfg)
	}
	if cfg.Chat.HistoryWindow != 10 || cfg.Chat.SearchLimit != 5 || !cfg.Chat.SerializeConversations {
		t.Fatalf("chat defaults unexpected: %+v", cfg.Chat)
	}
	if cfg.LLM.Provider != "openai" || cfg.LLM.Timeout != 30*time.Second || cfg.LLM.BreakerFailures != 5 {
		t.Fatalf("llm defaults unexpected: %+v", cfg.LLM)
	}
	if cfg.AdminEnabled() {
		t.Fatalf("admin must be disabled without ADMIN_JWT_SECRET")
	}
	if cfg.CORS.AllowedOrigins != nil {
		t.Fatalf("expected no CORS origins by default, got %#v", cfg.CORS.AllowedOrigins)
	}
}

// --- Load success + normalization + parsing ---

func TestLoad_Success_Overrides(t *testing.T) {
	t.Setenv("PORT", "8088")
	t.Setenv("READ_TIMEOUT", "2s")
	t.Setenv("READ_HEADER_TIMEOUT", "1s")
	t.Setenv("WRITE_TIMEOUT", "3s")
	t.Setenv("IDLE_TIMEOUT", "4s")
	t.Setenv("MAX_HEADER_BYTES", "8192")
	t.Setenv("GIN_MODE", "weird") // normalizes to "release"

	t.Setenv("LOG_LEVEL", "WARNING") // normalizes to "warn"
	t.Setenv("LOG_PRETTY", "true")
	t.Setenv("SWAGGER_ENABLED", "1")
	t.Setenv("API_BASE_PATH", "api/v2/")

	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/portal")
	t.Setenv("SEED_ON_START", "false")

	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.com , , http://b ")
	t.Setenv("ENABLE_HSTS", "TRUE")
	t.Setenv("HSTS_MAX_AGE", "24h")
	t.Setenv("IDEMPOTENCY_TTL", "48h")

	t.Setenv("LLM_PROVIDER", "ECHO")
	t.Setenv("LLM_BASE_URL", "http://llm.local/v1/")
	t.Setenv("LLM_TIMEOUT", "5s")
	t.Setenv("CHAT_HISTORY_WINDOW", "6")
	t.Setenv("ADMIN_JWT_SECRET", "s3cret")

	t.Setenv("OTEL_ENABLED", "1")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "0")
	t.Setenv("OTEL_SERVICE_NAME", "svc")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.75")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "8088" ||
		cfg.ReadTimeout != 2*time.Second ||
		cfg.ReadHeaderTimeout != 1*time.Second ||
		cfg.WriteTimeout != 3*time.Second ||
		cfg.IdleTimeout != 4*time.Second ||
		cfg.MaxHeaderBytes != 8192 ||
		cfg.GinMode != "release" {
		t.Fatalf("server fields unexpected: %+v", cfg)
	}
	if cfg.LogLevel != "warn" || !cfg.LogPretty || !cfg.SwaggerEnabled || cfg.APIBasePath != "/api/v2" {
		t.Fatalf("logging/docs unexpected: %+v", cfg)
	}
	if cfg.DBDriver != "postgres" || cfg.DatabaseURL == "" || cfg.SeedOnStart {
		t.Fatalf("storage unexpected: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, []string{"https://a.com", "http://b"}) {
		t.Fatalf("cors origins unexpected: %#v", cfg.CORS.AllowedOrigins)
	}
	if !cfg.Security.EnableHSTS || cfg.Security.HSTSMaxAge != 24*time.Hour {
		t.Fatalf("security unexpected: %+v", cfg.Security)
	}
	if cfg.IdempotencyTTL != 48*time.Hour {
		t.Fatalf("idempotency ttl unexpected: %v", cfg.IdempotencyTTL)
	}
	if cfg.LLM.Provider != "echo" || cfg.LLM.BaseURL != "http://llm.local/v1" || cfg.LLM.Timeout != 5*time.Second {
		t.Fatalf("llm unexpected: %+v", cfg.LLM)
	}
	if cfg.Chat.HistoryWindow != 6 || !cfg.AdminEnabled() {
		t.Fatalf("chat/auth unexpected: %+v %+v", cfg.Chat, cfg.Auth)
	}
	if !cfg.OTEL.Enabled || cfg.OTEL.Endpoint != "otel:4317" || cfg.OTEL.Insecure || cfg.OTEL.ServiceName != "svc" || cfg.OTEL.SampleRatio != 0.75 {
		t.Fatalf("otel unexpected: %+v", cfg.OTEL)
	}
}

// --- Load validations (each case triggers exactly one validation error) ---

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"invalid LOG_LEVEL", map[string]string{"LOG_LEVEL": "verbose"}, "LOG_LEVEL"},
		{"unparsable duration", map[string]string{"READ_TIMEOUT": "soon"}, "parse env config"},
		{"non-positive timeout", map[string]string{"WRITE_TIMEOUT": "0s"}, "timeouts"},
		{"bad MAX_HEADER_BYTES", map[string]string{"MAX_HEADER_BYTES": "0"}, "MAX_HEADER_BYTES"},
		{"unknown driver", map[string]string{"DB_DRIVER": "mysql"}, "DB_DRIVER"},
		{"postgres without url", map[string]string{"DB_DRIVER": "postgres"}, "DATABASE_URL"},
		{"negative RATE_RPS", map[string]string{"RATE_RPS": "-1"}, "RATE_RPS"},
		{"bad RATE_BURST", map[string]string{"RATE_BURST": "0"}, "RATE_BURST"},
		{"bad IDEMPOTENCY_TTL", map[string]string{"IDEMPOTENCY_TTL": "0s"}, "IDEMPOTENCY_TTL"},
		{"sampler out of range", map[string]string{"OTEL_TRACES_SAMPLER_ARG": "1.5"}, "OTEL_TRACES_SAMPLER_ARG"},
		{"unknown provider", map[string]string{"LLM_PROVIDER": "llama"}, "LLM_PROVIDER"},
		{"zero llm timeout", map[string]string{"LLM_TIMEOUT": "0s"}, "LLM_TIMEOUT"},
		{"zero history window", map[string]string{"CHAT_HISTORY_WINDOW": "0"}, "CHAT_HISTORY_WINDOW"},
		{"zero search limit", map[string]string{"CHAT_SEARCH_LIMIT": "0"}, "CHAT_SEARCH_LIMIT"},
		{"zero cache size", map[string]string{"CATEGORY_CACHE_SIZE": "0"}, "CATEGORY_CACHE_SIZE"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestNormalizeBasePath(t *testing.T) {
	cases := map[string]string{
		"":         "/",
		"  ":       "/",
		"/":        "/",
		"api":      "/api",
		"/api/":    "/api",
		"api/v1//": "/api/v1",
	}
	for in, want := range cases {
		if got := normalizeBasePath(in); got != want {
			t.Fatalf("normalizeBasePath(%q) = %q; want %q", in, got, want)
		}
	}
}
