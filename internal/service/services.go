package service

import (
	"log/slog"
	"time"

	"github.com/nammaspot/parkgo/internal/backend"
	postgresrepo "github.com/nammaspot/parkgo/internal/repository/postgres"
	redisrepo "github.com/nammaspot/parkgo/internal/repository/redis"
	"github.com/nammaspot/parkgo/internal/service/checkout"
	"github.com/nammaspot/parkgo/internal/service/dispatch"
	"github.com/nammaspot/parkgo/internal/service/selection"
	"github.com/nammaspot/parkgo/internal/service/ticketing"
	"github.com/nammaspot/parkgo/internal/service/verification"
)

type Services struct {
	Selection    *selection.Service
	Checkout     *checkout.Service
	Ticketing    *ticketing.Service
	Verification *verification.Service
}

type Config struct {
	SessionTTL time.Duration
	Checkout   checkout.Config
}

func NewServices(
	api backend.API,
	store *postgresrepo.Store,
	cache *redisrepo.Cache,
	pubsub *redisrepo.SlotsPubSub,
	idem *redisrepo.IdempotencyStore,
	limiter *redisrepo.FixedWindowLimiter,
	effects dispatch.Dispatcher,
	wake func(),
	cfg Config,
	logger *slog.Logger,
) *Services {
	selections := redisrepo.NewSessionStore[selection.Selection](cache, redisrepo.KeySelection, cfg.SessionTTL)
	confirmations := redisrepo.NewSessionStore[checkout.Confirmation](cache, redisrepo.KeyConfirmation, cfg.SessionTTL)
	desks := redisrepo.NewSessionStore[verification.Session](cache, redisrepo.KeyVerification, cfg.SessionTTL)

	ledger := ticketing.NewPostgresLedger(store, cache, wake, logger)

	return &Services{
		Selection:    selection.New(api, selections, logger),
		Checkout:     checkout.New(api, confirmations, idem, cfg.Checkout, logger),
		Ticketing:    ticketing.New(api, ledger, logger),
		Verification: verification.New(api, desks, effects, limiter, pubsub, logger),
	}
}
