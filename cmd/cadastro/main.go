package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/portalcadastro/cadastro-api/internal/config"
	"github.com/portalcadastro/cadastro-api/internal/handler"
	"github.com/portalcadastro/cadastro-api/internal/infra/cache"
	"github.com/portalcadastro/cadastro-api/internal/infra/hash"
	"github.com/portalcadastro/cadastro-api/internal/infra/observability"
	"github.com/portalcadastro/cadastro-api/internal/infra/resilience"
	"github.com/portalcadastro/cadastro-api/internal/infra/supabase"
	"github.com/portalcadastro/cadastro-api/internal/port"
	"github.com/portalcadastro/cadastro-api/internal/service"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = godotenv.Load()

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	if cfg.SupabaseURL == "" || cfg.SupabaseAnonKey == "" || cfg.SupabaseServiceKey == "" {
		logger.Fatal("SUPABASE_URL, SUPABASE_ANON_KEY and SUPABASE_SERVICE_ROLE_KEY are required")
	}

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("supabase_url", cfg.SupabaseURL),
		zap.String("hash_scheme", cfg.HashScheme),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Bool("require_admin_token", cfg.RequireAdminToken),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "cadastro-api")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	adminCache := cache.New[bool](cfg.CacheTTL)

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("supabase")

	// --- Supabase client ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	supabaseClient := supabase.NewClient(
		httpClient,
		cfg.SupabaseURL,
		cfg.SupabaseAnonKey,
		cfg.SupabaseServiceKey,
		cfg.SiteURL,
		cb,
		resilienceCfg,
		logger,
	)

	// --- Password hasher ---
	var hasher port.PasswordHasher
	switch cfg.HashScheme {
	case "bcrypt":
		hasher = hash.BcryptHasher{}
	default:
		hasher = hash.Sha256Hasher{}
	}

	// --- Service ---
	regSvc := service.NewRegistrationService(
		supabaseClient,
		supabaseClient,
		hasher,
		adminCache,
		metrics,
		logger,
	)

	// --- Rate limiter ---
	opts := handler.Options{
		AdminJWTSecret:    cfg.SupabaseJWTSecret,
		RequireAdminToken: cfg.RequireAdminToken,
	}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		opts.RateLimit = handler.RateLimiter(rdb, cfg.RateLimit, cfg.RateLimitWindow, logger)
		logger.Info("rate limiter enabled",
			zap.String("redis_addr", cfg.RedisAddr),
			zap.Int("limit", cfg.RateLimit),
			zap.Duration("window", cfg.RateLimitWindow),
		)
	}

	// --- Router ---
	router := handler.NewRouter(regSvc, metrics, logger, opts)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
