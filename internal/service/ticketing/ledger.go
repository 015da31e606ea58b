package ticketing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nammaspot/parkgo/internal/domain"
	"github.com/nammaspot/parkgo/internal/repository"
	postgresrepo "github.com/nammaspot/parkgo/internal/repository/postgres"
	redisrepo "github.com/nammaspot/parkgo/internal/repository/redis"
	"github.com/nammaspot/parkgo/internal/uow"
)

const ticketViewTTL = time.Hour

// PostgresLedger stores tickets and their side-effect tasks in one
// transaction. Committed tickets are cached in Redis; they never change.
type PostgresLedger struct {
	store  *postgresrepo.Store
	uow    *uow.UoW
	cache  *redisrepo.Cache
	wake   func()
	logger *slog.Logger
}

func NewPostgresLedger(
	store *postgresrepo.Store,
	cache *redisrepo.Cache,
	wake func(),
	logger *slog.Logger,
) *PostgresLedger {
	return &PostgresLedger{
		store:  store,
		uow:    uow.NewUoW(store),
		cache:  cache,
		wake:   wake,
		logger: logger,
	}
}

func (l *PostgresLedger) Record(ctx context.Context, t domain.Ticket, tasks []domain.Task) error {
	return l.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		if err := l.store.Tickets().With(tx).Insert(ctx, t); err != nil {
			return err
		}

		if err := l.store.Outbox().With(tx).Enqueue(ctx, tasks...); err != nil {
			return err
		}

		after(func(ctx context.Context) {
			if l.wake != nil {
				l.wake()
			}
		})

		return nil
	})
}

func (l *PostgresLedger) Get(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	load := func(ctx context.Context) (*domain.Ticket, error) {
		return l.store.Tickets().Get(ctx, id)
	}

	if l.cache == nil {
		return load(ctx)
	}

	t, err := redisrepo.Remember(ctx, l.cache, redisrepo.KeyTicketView(id.String()), ticketViewTTL, load)
	if err == nil || errors.Is(err, repository.ErrNotFound) {
		return t, err
	}

	l.logger.Warn("ticket cache unavailable, reading ledger", "ticket_id", id, "error", err)
	return load(ctx)
}
