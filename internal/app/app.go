package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	pkgkafka "github.com/MiSArch/wishlist/pkg/kafka"

	"github.com/MiSArch/wishlist/internal/catalog"
	"github.com/MiSArch/wishlist/internal/config"
	"github.com/MiSArch/wishlist/internal/event"
	"github.com/MiSArch/wishlist/internal/handler/graph"
	handler "github.com/MiSArch/wishlist/internal/handler/http"
	"github.com/MiSArch/wishlist/internal/repository/postgres"
	"github.com/MiSArch/wishlist/internal/service"
	"github.com/MiSArch/wishlist/migrations"
	"github.com/MiSArch/wishlist/pkg/database"
	"github.com/MiSArch/wishlist/pkg/health"
	"github.com/MiSArch/wishlist/pkg/httpclient"
	"github.com/MiSArch/wishlist/pkg/tracing"
)

// Idempotency keys outlive any realistic consumer lag; after this window a
// replayed event is indistinguishable from a new one anyway.
const dedupTTL = 24 * time.Hour

// App wires together all dependencies and runs the wishlist service.
type App struct {
	cfg             *config.Config
	logger          *slog.Logger
	pool            *pgxpool.Pool
	redisClient     *redis.Client
	producer        *pkgkafka.Producer
	dlq             *pkgkafka.DLQProducer
	consumer        *pkgkafka.Consumer
	httpServer      *http.Server
	tracingShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	// Tracing first so every subsequent component picks up the global
	// provider.
	tracingShutdown := func(context.Context) error { return nil }
	if cfg.TracingEnabled {
		var err error
		tracingShutdown, err = tracing.InitTracer(ctx, tracing.Config{
			ServiceName:    "wishlist",
			ServiceVersion: "0.1.0",
			Environment:    cfg.Environment,
			OTLPEndpoint:   cfg.TracingEndpoint,
			SampleRate:     cfg.TracingSample,
			Enabled:        true,
		})
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
		logger.Info("tracing initialized", slog.String("endpoint", cfg.TracingEndpoint))
	}

	// Postgres.
	dbCfg := database.DefaultPostgresConfig()
	dbCfg.Host = cfg.PostgresHost
	dbCfg.Port = cfg.PostgresPort
	dbCfg.User = cfg.PostgresUser
	dbCfg.Password = cfg.PostgresPassword
	dbCfg.DBName = cfg.PostgresDB

	pool, err := database.NewPostgresPoolWithLogger(ctx, &dbCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	if err := prometheus.Register(database.NewPoolStatsCollector(pool, cfg.PostgresDB)); err != nil {
		logger.Warn("pool stats collector registration failed", slog.String("error", err.Error()))
	}

	wishlistRepo := postgres.NewWishlistRepository(pool)
	variantRepo := postgres.NewProductVariantRepository(pool)

	// Redis backs consumer-side event deduplication.
	redisClient := database.NewRedisClient(database.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	// Kafka producer for wishlist domain events.
	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
	publisher := event.NewProducer(producer, logger)

	// Product service client: local replica fast path, HTTP fallback behind
	// a circuit breaker.
	productClient := httpclient.New(httpclient.Config{
		Timeout:         2 * time.Second,
		MaxRetries:      2,
		RetryWaitMin:    100 * time.Millisecond,
		RetryWaitMax:    time.Second,
		MaxConnsPerHost: 50,
	})
	cb := httpclient.NewCircuitBreakerClient(productClient,
		httpclient.DefaultCircuitBreakerConfig("product-service"), logger)
	catalogClient := catalog.NewClient(variantRepo, cb, cfg.ProductServiceURL, logger)

	// Service and API layers.
	wishlistService := service.NewWishlistService(wishlistRepo, publisher, catalogClient, logger)
	graphHandler, err := graph.NewHandler(wishlistService, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init graphql handler: %w", err)
	}

	// Kafka consumer keeping the local product variant replica fresh.
	// Replayed events are dropped by the Redis-backed dedup store.
	eventConsumer := event.NewConsumer(variantRepo, logger)
	dedupStore := pkgkafka.NewRedisIdempotencyStore(redisClient, "wishlist", dedupTTL)
	dlq := pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)
	consumer := pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers: cfg.KafkaBrokers,
		GroupID: cfg.ConsumerGroup,
		Topics: []string{
			event.TopicProductCreated,
			event.TopicProductUpdated,
			event.TopicProductDeleted,
		},
		MinBytes: 1,
		MaxBytes: 10e6, // 10 MB
	}, pkgkafka.IdempotentHandler(dedupStore, cfg.ConsumerGroup, eventConsumer.Handle, logger), dlq, logger)

	// Health checks. Postgres gates readiness; kafka and redis degrade the
	// service but do not block traffic.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return pkgkafka.PingBrokers(ctx, cfg.KafkaBrokers)
	})
	healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})

	router := handler.NewRouter(graphHandler, healthHandler, cfg.PprofAllowedCIDRs, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:             cfg,
		logger:          logger,
		pool:            pool,
		redisClient:     redisClient,
		producer:        producer,
		dlq:             dlq,
		consumer:        consumer,
		httpServer:      httpServer,
		tracingShutdown: tracingShutdown,
	}, nil
}

// Run starts the HTTP server and the Kafka consumer, blocking until the
// context is canceled or a component fails.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		if err := a.consumer.Start(ctx); err != nil {
			errCh <- fmt.Errorf("kafka consumer: %w", err)
		}
	}()

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components. The HTTP server drains first so
// in-flight commands can still commit and publish.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.consumer.Close(); err != nil {
		a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	if err := a.dlq.Close(); err != nil {
		a.logger.Error("dlq producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	if err := a.redisClient.Close(); err != nil {
		errs = append(errs, err)
	}

	a.pool.Close()

	if err := a.tracingShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracing shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
