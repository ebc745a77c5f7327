package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/crm-bff-go/internal/config"
	"github.com/boddenberg/crm-bff-go/internal/domain"
	"github.com/boddenberg/crm-bff-go/internal/handler"
	"github.com/boddenberg/crm-bff-go/internal/infra/cache"
	"github.com/boddenberg/crm-bff-go/internal/infra/client"
	"github.com/boddenberg/crm-bff-go/internal/infra/observability"
	"github.com/boddenberg/crm-bff-go/internal/infra/queue"
	"github.com/boddenberg/crm-bff-go/internal/infra/resilience"
	"github.com/boddenberg/crm-bff-go/internal/lifecycle"
	"github.com/boddenberg/crm-bff-go/internal/port"
	"github.com/boddenberg/crm-bff-go/internal/service"

	"go.uber.org/zap"
)

const serviceName = "crm-bff"

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel, serviceName)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Strings("cors_allowed_origins", cfg.CORSAllowedOrigins),
		zap.String("crm_api_url", cfg.CRMAPIURL),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Bool("redis_cache", cfg.RedisURL != ""),
		zap.Bool("amqp_events", cfg.AMQPURL != ""),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, serviceName)
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	var checks []handler.ReadinessCheck

	// --- Cache ---
	var dashboardCache port.Cache[domain.Dashboard]
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		dashboardCache = cache.NewRedis[domain.Dashboard](rdb, serviceName, cfg.CacheTTL, logger)
		checks = append(checks, handler.ReadinessCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
		logger.Info("dashboard cache: redis")
	} else {
		mem := cache.New[domain.Dashboard](cfg.CacheTTL)
		defer mem.Close()
		dashboardCache = mem
		logger.Info("dashboard cache: in-memory")
	}

	// --- Lead events ---
	var publisher port.EventPublisher
	if cfg.AMQPURL != "" {
		mq, err := queue.Dial(cfg.AMQPURL, cfg.EventsExchange)
		if err != nil {
			logger.Fatal("failed to connect to rabbitmq", zap.Error(err))
		}
		defer mq.Close()
		publisher = mq
		checks = append(checks, handler.ReadinessCheck{
			Name: "rabbitmq",
			Check: func(context.Context) error {
				if !mq.Healthy() {
					return fmt.Errorf("connection to exchange %s closed", cfg.EventsExchange)
				}
				return nil
			},
		})
		logger.Info("lead events: rabbitmq", zap.String("exchange", cfg.EventsExchange))
	} else {
		publisher = queue.NewLogPublisher(logger)
		logger.Warn("lead events: AMQP_URL not set, events are only logged")
	}

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("crm-api", client.IsClientError)

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	crmClient := client.NewCRMClient(httpClient, cfg.CRMAPIURL, cb, resilienceCfg)

	// --- Services ---
	controller := lifecycle.NewController()
	leadSvc := service.NewLeadService(crmClient, publisher, controller, dashboardCache, metrics, logger)
	taskSvc := service.NewTaskService(crmClient, dashboardCache, metrics, logger)
	dashSvc := service.NewDashboardService(crmClient, dashboardCache, metrics, logger)
	tokens := service.NewTokenService(cfg.JWTSecret, cfg.JWTTokenTTL)

	// --- Router ---
	router := handler.NewRouter(leadSvc, taskSvc, dashSvc, tokens, metrics, logger, checks...)
	router = handler.WithCORS(router, cfg.CORSAllowedOrigins)

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
