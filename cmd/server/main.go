// Command server runs the travel portal API.
//
// @title       Namibia Travel Portal API
// @version     1.0
// @description Catalog browsing, admin writes and the travel assistant chatbot.
// @BasePath    /api/v1
//
// @securityDefinitions.apikey BearerAuth
// @in   header
// @name Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/tbourn/go-travel-portal/internal/config"
	httpapi "github.com/tbourn/go-travel-portal/internal/http"
	"github.com/tbourn/go-travel-portal/internal/llm"
	"github.com/tbourn/go-travel-portal/internal/lock"
	"github.com/tbourn/go-travel-portal/internal/observability"
	"github.com/tbourn/go-travel-portal/internal/prompt"
	"github.com/tbourn/go-travel-portal/internal/repo"
	"github.com/tbourn/go-travel-portal/internal/search"
	"github.com/tbourn/go-travel-portal/internal/services"
	"github.com/tbourn/go-travel-portal/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	loadEnvFiles()
	cfg := config.MustLoad()
	logger := sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped with error")
	}
	logger.Info().Msg("server exited cleanly")
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OTEL, version)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Error().Err(err).Msg("shutdown tracing")
		}
	}()

	dsn := cfg.DBPath
	if cfg.DBDriver == repo.DriverPostgres {
		dsn = cfg.DatabaseURL
	}
	db, err := repo.Open(cfg.DBDriver, dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if cfg.OTEL.Enabled {
		if err := repo.EnableTracing(db); err != nil {
			return fmt.Errorf("enable db tracing: %w", err)
		}
	}
	if err := repo.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	if cfg.SeedOnStart {
		n, err := repo.SeedCategories(ctx, db)
		if err != nil {
			return fmt.Errorf("seed categories: %w", err)
		}
		logger.Info().Int64("categories", n).Msg("reference categories seeded")
	}

	knowledge, err := prompt.LoadKnowledge(cfg.KnowledgePath)
	if err != nil {
		return fmt.Errorf("load knowledge base: %w", err)
	}

	locker, closeLocker, err := newLocker(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLocker()

	cache, err := services.NewCategoryCache(db, cfg.Chat.CategoryCacheSize)
	if err != nil {
		return fmt.Errorf("category cache: %w", err)
	}
	listingSearch := services.NewListingSearch(db, cache)
	temperature := cfg.LLM.Temperature

	chat := &services.ChatService{
		DB:              db,
		LLM:             newLLM(cfg.LLM),
		Search:          listingSearch,
		Trigger:         search.NewKeywordTrigger(),
		Prompt:          prompt.NewAssembler(knowledge),
		Locker:          locker,
		Metrics:         observability.NewChatMetrics(prometheus.DefaultRegisterer),
		Model:           cfg.LLM.Model,
		MaxTokens:       cfg.LLM.MaxTokens,
		Temperature:     &temperature,
		HistoryWindow:   cfg.Chat.HistoryWindow,
		SearchLimit:     cfg.Chat.SearchLimit,
		MaxMessageRunes: cfg.Chat.MaxMessageRunes,
		LLMTimeout:      cfg.LLM.Timeout,
		IdempotencyTTL:  cfg.IdempotencyTTL,
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, httpapi.Services{
		Chat:    chat,
		Catalog: services.NewCatalogService(db, listingSearch),
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Str("db", cfg.DBDriver).
			Str("llm", cfg.LLM.Provider).
			Bool("admin", cfg.AdminEnabled()).
			Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}

// newLLM builds the completion client behind a circuit breaker.
func newLLM(cfg config.LLMConfig) llm.Client {
	var base llm.Client = llm.EchoClient{}
	if cfg.Provider != "echo" {
		base = llm.NewHTTPClient(llm.HTTPConfig{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Timeout:     cfg.Timeout,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		})
	}
	return llm.NewBreaker(base, llm.BreakerConfig{
		Name:     "llm-" + cfg.Provider,
		Failures: cfg.BreakerFailures,
		Cooldown: cfg.BreakerCooldown,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("llm circuit state changed")
		},
	})
}

// newLocker picks the conversation lock: Redis when REDIS_URL is set so
// replicas serialize together, otherwise in-process.
func newLocker(ctx context.Context, cfg config.Config) (lock.Locker, func(), error) {
	if !cfg.Chat.SerializeConversations {
		return lock.Noop{}, func() {}, nil
	}
	if cfg.RedisURL == "" {
		return lock.NewLocal(), func() {}, nil
	}
	rl, err := lock.NewRedis(ctx, lock.RedisConfig{URL: cfg.RedisURL, Expiry: cfg.LLM.Timeout + time.Minute})
	if err != nil {
		return nil, nil, fmt.Errorf("redis lock: %w", err)
	}
	return rl, func() {
		if err := rl.Close(); err != nil {
			log.Error().Err(err).Msg("close redis")
		}
	}, nil
}

func loadEnvFiles() {
	for _, path := range []string{".env", "../.env"} {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
