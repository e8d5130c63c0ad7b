package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/crispydelights/storefront/internal/cart"
	"github.com/crispydelights/storefront/internal/catalog"
	"github.com/crispydelights/storefront/internal/checkout"
	"github.com/crispydelights/storefront/internal/config"
	"github.com/crispydelights/storefront/internal/event"
	handler "github.com/crispydelights/storefront/internal/handler/http"
	"github.com/crispydelights/storefront/internal/notify"
	"github.com/crispydelights/storefront/internal/repository"
	"github.com/crispydelights/storefront/internal/repository/memory"
	redisrepo "github.com/crispydelights/storefront/internal/repository/redis"
	"github.com/crispydelights/storefront/internal/service"
	"github.com/crispydelights/storefront/pkg/database"
	"github.com/crispydelights/storefront/pkg/health"
	"github.com/crispydelights/storefront/pkg/httpclient"
	pkgkafka "github.com/crispydelights/storefront/pkg/kafka"
	"github.com/crispydelights/storefront/pkg/middleware"
	"github.com/crispydelights/storefront/pkg/tracing"
)

// Inboxes outlive the cart panel by a day at most.
const inboxTTL = 24 * time.Hour

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	storefront     *service.Storefront
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	// Tracing.
	tcfg := tracing.DefaultConfig("storefront")
	tcfg.Environment = cfg.Environment
	tcfg.OTLPEndpoint = cfg.OTELEndpoint
	tcfg.SampleRate = cfg.OTELSampleRate
	tcfg.Enabled = cfg.OTELEnabled
	shutdown, err := tracing.InitTracer(ctx, tcfg)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = shutdown

	healthHandler := health.NewHandler()

	// Snapshot store and notification inbox.
	var (
		store repository.SnapshotStore
		inbox repository.NotificationInbox
	)
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		store = memory.NewSnapshotStore()
		inbox = memory.NewInbox(cfg.NotificationInboxSize)
		logger.Warn("using in-memory store; carts do not survive restarts")
	default:
		rcfg := database.DefaultRedisConfig()
		rcfg.Addr = cfg.RedisAddr
		rcfg.Password = cfg.RedisPass
		rcfg.DB = cfg.RedisDB
		rdb, err := database.NewRedisClient(ctx, rcfg)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis",
			slog.String("addr", cfg.RedisAddr),
			slog.Int("db", cfg.RedisDB),
		)
		a.rdb = rdb
		store = redisrepo.NewSnapshotStore(rdb, cfg.CartTTLDuration())
		inbox = redisrepo.NewInbox(rdb, cfg.NotificationInboxSize, inboxTTL)
		healthHandler.Register("redis", database.RedisPinger(rdb))
	}

	// Notification publishers. The inbox comes first so the UI sees every
	// toast even when a remote publisher is slow.
	inboxPublisher := notify.NewInboxPublisher(inbox, logger)
	publishers := []notify.Publisher{inboxPublisher, notify.NewLogPublisher(logger)}

	if cfg.NotifyWebhookURL != "" {
		cb := httpclient.DefaultCircuitBreakerConfig("notify-webhook")
		cb.MaxRequests = cfg.CBMaxRequests
		cb.Interval = time.Duration(cfg.CBInterval) * time.Second
		cb.Timeout = time.Duration(cfg.CBTimeout) * time.Second
		cb.FailureRatio = cfg.CBFailureRatio
		cb.MinRequests = cfg.CBMinRequests
		client := httpclient.NewCircuitBreakerClient(httpclient.New(httpclient.DefaultConfig()), cb, logger)
		publishers = append(publishers, notify.NewWebhookPublisher(client, cfg.NotifyWebhookURL))
		logger.Info("notification webhook enabled", slog.String("url", cfg.NotifyWebhookURL))
	}

	// Domain events.
	var (
		cartEvents   cart.EventPublisher
		checkoutOpts = []checkout.Option{
			checkout.WithDelay(cfg.CheckoutDelay),
			checkout.WithOrderNumberCeiling(cfg.OrderNumberCeiling),
		}
	)
	if cfg.EventsEnabled {
		kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
		kafkaCfg.Async = true
		a.producer = pkgkafka.NewProducer(kafkaCfg, logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

		events := event.NewProducer(a.producer, logger)
		cartEvents = events
		checkoutOpts = append(checkoutOpts, checkout.WithEvents(events))
		publishers = append(publishers, notify.NewEventPublisher(events))
		healthHandler.Register("kafka", a.producer.Ping)
	}

	orchestrator := checkout.New(logger, checkoutOpts...)
	dispatcher := notify.NewDispatcher(logger, publishers...)

	a.storefront = service.NewStorefront(
		catalog.Menu(),
		store,
		cartEvents,
		orchestrator,
		dispatcher,
		inboxPublisher,
		service.Config{
			SnapshotKey: cfg.SnapshotKey,
			IdleTimeout: cfg.SessionIdleTimeout,
		},
		logger,
	)

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins

	router := handler.NewRouter(a.storefront, healthHandler, logger, handler.RouterConfig{
		CORS:           corsCfg,
		PprofCIDRs:     cfg.PprofAllowedCIDRs,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return a, nil
}

// Run starts the HTTP server and the idle session sweeper, and blocks until
// the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go a.storefront.RunSweeper(sweepCtx, sweepInterval(a.cfg.SessionIdleTimeout))

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	// Graceful HTTP server shutdown with a 10-second deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}

	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}

	if err := a.tracerShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}

// sweepInterval checks for idle sessions a few times per timeout window.
func sweepInterval(idle time.Duration) time.Duration {
	d := idle / 4
	if d < time.Minute {
		d = time.Minute
	}
	return d
}
