package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/config"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/event"
	handler "github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/handler/http"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/notify"
	redisrepo "github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/repository/redis"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/repository/remote"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/state"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/pkg/database"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/pkg/health"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/pkg/httpclient"
	pkgkafka "github.com/Zembil-Gift/go-zembil-frontend-sub002/pkg/kafka"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/pkg/middleware"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/pkg/tracing"
)

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	registry       *state.Registry
	limiter        *middleware.RateLimiter
	shutdownTracer func(context.Context) error
	httpServer     *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tcfg := tracing.DefaultConfig(handler.ServiceName)
	tcfg.Environment = cfg.Environment
	tcfg.OTLPEndpoint = cfg.OTELEndpoint
	tcfg.SampleRate = cfg.OTELSampleRate
	tcfg.Enabled = cfg.OTELEnabled
	shutdownTracer, err := tracing.InitTracer(ctx, tcfg)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Redis holds guest wishlists.
	rcfg := database.DefaultRedisConfig()
	rcfg.Host = cfg.RedisHost
	rcfg.Port = cfg.RedisPort
	rcfg.Password = cfg.RedisPassword
	rcfg.DB = cfg.RedisDB
	rdb, err := database.NewRedisClientWithLogger(ctx, rcfg, logger)
	if err != nil {
		_ = shutdownTracer(context.Background())
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	database.SetSlowCommandLogging(cfg.RedisSlowCommandThreshold, logger)
	if err := database.RegisterPoolMetrics(rdb, handler.ServiceName); err != nil {
		logger.Warn("redis pool metrics not registered", slog.String("error", err.Error()))
	}
	logger.Info("connected to Redis",
		slog.String("addr", rcfg.Addr()),
		slog.Int("db", cfg.RedisDB),
	)

	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Remote stores, each behind its own breaker.
	hcfg := httpclient.DefaultConfig()
	hcfg.Timeout = cfg.RemoteTimeout
	hcfg.MaxRetries = cfg.RemoteReadRetries
	base := httpclient.New(hcfg)
	cartAPI := httpclient.NewCircuitBreakerClient(base, httpclient.DefaultCircuitBreakerConfig("cart-store"), logger)
	wishlistAPI := httpclient.NewCircuitBreakerClient(base, httpclient.DefaultCircuitBreakerConfig("wishlist-store"), logger)

	eventProducer := event.NewProducer(producer, logger)

	registry := state.NewRegistry(state.Deps{
		Cart:          remote.NewCartStore(cartAPI, cfg.CartStoreURL),
		Wishlist:      remote.NewWishlistStore(wishlistAPI, cfg.WishlistStoreURL),
		EventWishlist: remote.NewEventWishlistStore(wishlistAPI, cfg.WishlistStoreURL),
		Guest:         redisrepo.NewGuestStore(rdb, cfg.GuestTTL()),
		Sink: notify.Multi{
			notify.ContextSink{},
			notify.NewLogSink(logger),
			eventProducer,
		},
		Snapshots:  eventProducer,
		Logger:     logger,
		SignInPath: cfg.SignInPath,
	}, cfg.SessionIdleTTL)

	// Health checks. Guest data cannot be served without Redis; the remote
	// stores and Kafka degrade single operations only.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("redis", database.RedisPinger(rdb))
	healthHandler.RegisterNonCritical("cart-store", remote.Pinger(cartAPI, cfg.CartStoreURL))
	healthHandler.RegisterNonCritical("wishlist-store", remote.Pinger(wishlistAPI, cfg.WishlistStoreURL))
	healthHandler.RegisterNonCritical("kafka", producer.Ping)

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.SessionIdleTTL, handler.SessionRateKey, logger)

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSOrigins
	cors.AllowCredentials = true
	cors.Environment = cfg.Environment

	router := handler.NewRouter(handler.RouterConfig{
		Registry:       registry,
		Health:         healthHandler,
		Logger:         logger,
		TokenValidator: middleware.NewHMACValidator([]byte(cfg.JWTSecret)),
		RateLimiter:    limiter,
		Cookie: handler.CookieConfig{
			MaxAge: cfg.GuestTTL(),
			Secure: cfg.SecureCookies,
		},
		CORS:       cors,
		PprofCIDRs: cfg.PprofAllowedCIDRs,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		rdb:            rdb,
		producer:       producer,
		registry:       registry,
		limiter:        limiter,
		shutdownTracer: shutdownTracer,
		httpServer:     httpServer,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			a.logger.Info("shutdown signal received")
		}
		return a.Shutdown()
	})

	return g.Wait()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	if e := a.httpServer.Shutdown(shutdownCtx); e != nil {
		err = multierr.Append(err, fmt.Errorf("http server shutdown: %w", e))
	}

	// No request can reach the registry past this point.
	a.registry.Close()
	a.limiter.Close()

	if e := a.producer.Close(); e != nil {
		err = multierr.Append(err, fmt.Errorf("kafka producer close: %w", e))
	}
	if e := a.rdb.Close(); e != nil {
		err = multierr.Append(err, fmt.Errorf("redis close: %w", e))
	}
	if e := a.shutdownTracer(shutdownCtx); e != nil {
		err = multierr.Append(err, fmt.Errorf("tracer shutdown: %w", e))
	}

	for _, e := range multierr.Errors(err) {
		a.logger.Error("shutdown error", slog.String("error", e.Error()))
	}
	a.logger.Info("application shutdown complete")
	return err
}
