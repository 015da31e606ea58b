package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nammaspot/parkgo/internal/backend"
	"github.com/nammaspot/parkgo/internal/config"
	"github.com/nammaspot/parkgo/internal/postgres"
	"github.com/nammaspot/parkgo/internal/redis"
	postgresrepo "github.com/nammaspot/parkgo/internal/repository/postgres"
	redisrepo "github.com/nammaspot/parkgo/internal/repository/redis"
	"github.com/nammaspot/parkgo/internal/service"
	"github.com/nammaspot/parkgo/internal/service/checkout"
	"github.com/nammaspot/parkgo/internal/service/dispatch"
	httpgin "github.com/nammaspot/parkgo/internal/transport/http/gin"
	"github.com/nammaspot/parkgo/internal/worker"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const verifyWindow = time.Minute

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	pool       *pgxpool.Pool
	rdb        *goredis.Client
	direct     *dispatch.Direct
	outbox     *worker.Outbox
	pubsub     *redisrepo.SlotsPubSub
	hub        *httpgin.SlotHub
	httpServer *http.Server
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	// Initialize dependencies
	pgxPool, err := postgres.New(ctx, postgres.Config{DSN: cfg.Postgres.DSN(), Migrate: true})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	rdb, err := redis.New(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		pgxPool.Close()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	api := backend.NewClient(backend.Config{BaseURL: cfg.Backend.BaseURL, Timeout: cfg.Backend.Timeout})

	// Initialize repositories
	store := postgresrepo.NewStore(pgxPool)
	cache := redisrepo.New(rdb)
	pubsub := redisrepo.NewSlotsPubSub(rdb)
	limiter := redisrepo.NewFixedWindowLimiter(rdb, "verify", cfg.Operator.VerifyRateLimit, verifyWindow)
	idempotencyStore := redisrepo.NewIdempotencyStore(rdb, 24*time.Hour)

	// Side effects: durable outbox first, direct delivery if it is down
	direct := dispatch.NewDirect(api, logger)
	outbox := worker.NewOutbox(store.Outbox(), api, pubsub, worker.Config{
		PollInterval: cfg.Outbox.PollInterval,
		MaxAttempts:  cfg.Outbox.MaxAttempts,
		Backoff:      cfg.Outbox.Backoff,
		BatchSize:    cfg.Outbox.BatchSize,
	}, logger)
	effects := dispatch.NewOutbox(store.Outbox(), direct, outbox.Wake, logger)

	// Initialize services
	services := service.NewServices(
		api,
		store,
		cache,
		pubsub,
		idempotencyStore,
		limiter,
		effects,
		outbox.Wake,
		service.Config{
			SessionTTL: cfg.Session.TTL,
			Checkout: checkout.Config{
				KeyID:        cfg.Payment.KeyID,
				MerchantName: cfg.Payment.MerchantName,
				Description:  cfg.Payment.Description,
			},
		},
		logger,
	)

	hub := httpgin.NewSlotHub(services.Selection, logger)

	// Initialize Gin router
	router := httpgin.NewRouter(services, hub, httpgin.RouterConfig{
		OperatorJWTSecret: cfg.Operator.JWTSecret,
		CORSOrigins:       cfg.Server.CORSOrigins,
	}, logger)

	return &App{
		cfg:    cfg,
		logger: logger,
		pool:   pgxPool,
		rdb:    rdb,
		direct: direct,
		outbox: outbox,
		pubsub: pubsub,
		hub:    hub,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	defer a.close()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Side-effect delivery
	g.Go(func() error {
		return a.outbox.Run(gCtx)
	})

	// Live slot boards
	g.Go(func() error {
		return a.hub.Run(gCtx)
	})
	g.Go(func() error {
		err := a.pubsub.Subscribe(gCtx, a.hub.Refresh)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}

func (a *App) close() {
	a.direct.Wait()
	if err := a.rdb.Close(); err != nil {
		a.logger.Warn("redis close failed", "error", err)
	}
	a.pool.Close()
}
