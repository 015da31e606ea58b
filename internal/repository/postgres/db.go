package postgresrepo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is satisfied by both the pool and an open transaction, so repos can
// run inside or outside a unit of work.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Pool is what the store needs from a connection pool. *pgxpool.Pool
// satisfies it.
type Pool interface {
	DB
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

var _ Pool = (*pgxpool.Pool)(nil)

// Store hands out the ticket ledger and outbox repos over one pool.
type Store struct {
	pool Pool
}

func NewStore(pool Pool) *Store {
	return &Store{pool: pool}
}

// RunTx runs fn in a read-committed transaction. The transaction is rolled
// back unless fn returns nil and the commit succeeds.
func (s *Store) RunTx(ctx context.Context, fn func(ctx context.Context, tx DB) error) (err error) {
	const op = "postgresrepo.Store.RunTx"

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return wrapDBErr(op, err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = errors.Join(err, rbErr)
			}
		}
	}()

	if err = fn(ctx, tx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return wrapDBErr(op+": commit", err)
	}

	return nil
}

func (s *Store) Tickets() *TicketRepo { return &TicketRepo{pool: s.pool} }
func (s *Store) Outbox() *OutboxRepo  { return &OutboxRepo{pool: s.pool} }
